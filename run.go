package sigtrader

import (
	"context"
	"errors"
	"fmt"

	"github.com/igolaizola/sigtrader/pkg/command"
	"github.com/igolaizola/sigtrader/pkg/exchange"
	"github.com/igolaizola/sigtrader/pkg/exchange/binance"
	"github.com/igolaizola/sigtrader/pkg/logger"
	"github.com/igolaizola/sigtrader/pkg/mtproto"
	"github.com/igolaizola/sigtrader/pkg/policy"
	"github.com/igolaizola/sigtrader/pkg/record/bolt"
	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/igolaizola/sigtrader/pkg/signal/parser"
	"github.com/igolaizola/sigtrader/pkg/telegram"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	DB     string
	LogDir string
	Dry    bool
	Debug  bool

	ExchangeKey    string
	ExchangeSecret string
	Quote          string
	QuoteQuantity  float64
	MaxRecords     int

	TelegramToken string
	ControlChat   int64
	SignalChats   []int64

	MTProtoID       int
	MTProtoHash     string
	MTProtoPhone    string
	MTProtoSession  string
	MTProtoChannels []int64

	Parser         string
	Keywords       string
	Whitelist      []string
	Blacklist      []string
	SymbolMappings map[string]string
	TimerStart     string
	TimerEnd       string
}

// Run starts the bot and blocks until the context is canceled or the
// /shutdown command is received.
func Run(ctx context.Context, cfg *Config) error {
	zl, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		return err
	}
	defer zl.Sync()
	sugar := zl.Sugar()

	keywords, err := command.Load(cfg.Keywords)
	if err != nil {
		return err
	}
	window, err := policy.ParseWindow(cfg.TimerStart, cfg.TimerEnd)
	if err != nil {
		return err
	}
	p, err := parser.NewParser(cfg.Parser, cfg.SymbolMappings)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't create parser %q: %w", cfg.Parser, err)
	}

	tgbot, err := telegram.New(cfg.TelegramToken, cfg.ControlChat, sugar)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't create telegram bot: %w", err)
	}
	// Bot events reach the control chat, exchange and transport details
	// only the log
	log := tgbot.Print
	logOnly := logger.Func(sugar)

	var ex exchange.Exchange
	if cfg.Dry {
		ex = binance.NewDry(logOnly, cfg.Quote, cfg.Debug)
	} else {
		ex = binance.New(logOnly, cfg.ExchangeKey, cfg.ExchangeSecret, cfg.Quote, cfg.Debug)
	}

	store, err := bolt.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't create db: %w", err)
	}
	defer store.Close()

	engine := signal.NewEngine(signal.WithSymbolAliases(cfg.SymbolMappings))
	bot := NewBot(log, engine, p, ex, store, Options{
		QuoteQuantity: decimal.NewFromFloat(cfg.QuoteQuantity),
		MaxRecords:    cfg.MaxRecords,
		Keywords:      keywords,
		Symbols:       policy.NewSymbolFilter(cfg.Whitelist, cfg.Blacklist),
		Window:        window,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := func(e Event) {
		if err := bot.Handle(ctx, e); err != nil && !errors.Is(err, signal.ErrUnparseable) {
			log(err)
		}
	}

	tgbot.HandleSignals(cfg.SignalChats, func(m telegram.Message) {
		handle(fromTelegram(m))
	})
	tgbot.HandleCommand("status", func(string) {
		log(bot.Status())
	})
	tgbot.HandleCommand("test", func(text string) {
		log(bot.Test(text))
	})
	tgbot.HandleCommand("shutdown", func(string) {
		log("shutting down")
		cancel()
	})
	codes := make(chan string, 1)
	tgbot.HandleCommand("code", func(code string) {
		select {
		case codes <- code:
		default:
		}
	})

	log(fmt.Sprintf("🤖 sigtrader bot running\n- version: %s\n- dry mode: %t\n- window: %s", version, cfg.Dry, window))
	defer log("🛑 sigtrader bot stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tgbot.Run(ctx)
	})
	if cfg.MTProtoID != 0 {
		listener := mtproto.New(cfg.MTProtoID, cfg.MTProtoHash, cfg.MTProtoPhone, cfg.MTProtoSession, cfg.MTProtoChannels, logOnly,
			func(m mtproto.Message) {
				handle(fromMTProto(m))
			},
			func(ctx context.Context) string {
				log("🔑 send the login code with /code <code>")
				select {
				case <-ctx.Done():
					return ""
				case code := <-codes:
					return code
				}
			})
		g.Go(func() error {
			return listener.Listen(ctx)
		})
	}
	return g.Wait()
}

func fromTelegram(m telegram.Message) Event {
	e := Event{
		Type:      New,
		Provider:  "telegram",
		Channel:   m.Channel,
		ChatID:    m.ChatID,
		MessageID: m.MessageID,
		ReplyTo:   m.ReplyTo,
		Text:      m.Text,
	}
	if m.Edited {
		e.Type = Edited
	}
	return e
}

func fromMTProto(m mtproto.Message) Event {
	e := Event{
		Type:      New,
		Provider:  "mtproto",
		Channel:   m.Channel,
		ChatID:    m.ChatID,
		MessageID: m.MessageID,
		ReplyTo:   m.ReplyTo,
		Text:      m.Text,
	}
	switch m.Kind {
	case mtproto.Edited:
		e.Type = Edited
	case mtproto.Deleted:
		e.Type = Deleted
	}
	return e
}

// Parse runs the signal tester offline.
func Parse(text string, mappings map[string]string) string {
	engine := signal.NewEngine(signal.WithSymbolAliases(mappings))
	bot := NewBot(func(...interface{}) {}, engine, nil, nil, nil, Options{})
	return bot.Test(text)
}
