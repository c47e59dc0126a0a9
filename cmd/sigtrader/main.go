package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/igolaizola/sigtrader"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func main() {
	// Create signal based context
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, os.Kill)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			cancel()
		}
		signal.Stop(c)
	}()

	// Environment files are optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println(err)
	}

	// Launch command
	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("sigtrader", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sigtrader [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newRunCommand(),
			newParseCommand(),
		},
	}
}

func newRunCommand() *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	db := fs.String("db", "sigtrader.db", "database path")
	logDir := fs.String("log-dir", "logs", "log directory, empty to disable log files")
	key := fs.String("exchange-key", "", "binance api key")
	secret := fs.String("exchange-secret", "", "binance api secret")
	quote := fs.String("quote", "USDT", "quote currency used for USD symbols")
	quoteQty := fs.Float64("quote-quantity", 10, "quote quantity to spend per signal")
	maxRecords := fs.Int("max-signals", 5, "max simultaneous open signals, 0 for no limit")
	token := fs.String("telegram-token", "", "telegram token")
	controlChat := fs.Int64("telegram-control-chat", 0, "telegram chat id for logs and commands")
	signalChats := fs.String("telegram-signal-chats", "", "comma separated telegram chat ids to read signals")
	mtprotoID := fs.Int("mtproto-id", 0, "mtproto app id (optional)")
	mtprotoHash := fs.String("mtproto-hash", "", "mtproto app hash")
	mtprotoPhone := fs.String("mtproto-phone", "", "mtproto account phone")
	mtprotoSession := fs.String("mtproto-session", "sigtrader.session", "mtproto session file")
	mtprotoChannels := fs.String("mtproto-channels", "", "comma separated channel ids to read with mtproto")
	parserName := fs.String("parser", "cascade", "signal parser (cascade, json)")
	keywords := fs.String("keywords", "", "command keywords yaml file (optional)")
	whitelist := fs.String("symbols-whitelist", "", "comma separated symbols allowed to trade")
	blacklist := fs.String("symbols-blacklist", "", "comma separated symbols never traded")
	mappings := fs.String("symbol-mappings", "", "comma separated FROM=TO symbol mappings")
	timerStart := fs.String("timer-start", "", "trading window start HH:MM (optional)")
	timerEnd := fs.String("timer-end", "", "trading window end HH:MM (optional)")
	dry := fs.Bool("dry", false, "enable dry mode")
	debug := fs.Bool("debug", false, "enable debug mode")

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "sigtrader run [flags]",
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("SIGTRADER"),
		},
		ShortHelp: "run sigtrader bot",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			if *db == "" {
				return errors.New("missing db path")
			}
			if *dry && !strings.HasSuffix(*db, ".dry.db") {
				*db = fmt.Sprintf("%s.dry.db", strings.TrimSuffix(*db, ".db"))
			}
			if !*dry {
				if *key == "" {
					return errors.New("missing exchange api key")
				}
				if *secret == "" {
					return errors.New("missing exchange api secret")
				}
			}
			if *token == "" {
				return errors.New("missing telegram token")
			}
			if *controlChat == 0 {
				return errors.New("missing telegram control chat")
			}
			chats, err := parseIDs(*signalChats)
			if err != nil {
				return fmt.Errorf("invalid telegram signal chats: %w", err)
			}
			channels, err := parseIDs(*mtprotoChannels)
			if err != nil {
				return fmt.Errorf("invalid mtproto channels: %w", err)
			}
			if len(chats) == 0 && len(channels) == 0 {
				return errors.New("missing signal chats")
			}
			if *mtprotoID != 0 && (*mtprotoHash == "" || *mtprotoPhone == "") {
				return errors.New("missing mtproto hash or phone")
			}
			m, err := parseMappings(*mappings)
			if err != nil {
				return err
			}
			return sigtrader.Run(ctx, &sigtrader.Config{
				DB:              *db,
				LogDir:          *logDir,
				Dry:             *dry,
				Debug:           *debug,
				ExchangeKey:     *key,
				ExchangeSecret:  *secret,
				Quote:           *quote,
				QuoteQuantity:   *quoteQty,
				MaxRecords:      *maxRecords,
				TelegramToken:   *token,
				ControlChat:     *controlChat,
				SignalChats:     chats,
				MTProtoID:       *mtprotoID,
				MTProtoHash:     *mtprotoHash,
				MTProtoPhone:    *mtprotoPhone,
				MTProtoSession:  *mtprotoSession,
				MTProtoChannels: channels,
				Parser:          *parserName,
				Keywords:        *keywords,
				Whitelist:       split(*whitelist),
				Blacklist:       split(*blacklist),
				SymbolMappings:  m,
				TimerStart:      *timerStart,
				TimerEnd:        *timerEnd,
			})
		},
	}
}

func newParseCommand() *ffcli.Command {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	mappings := fs.String("symbol-mappings", "", "comma separated FROM=TO symbol mappings")

	return &ffcli.Command{
		Name:       "parse",
		ShortUsage: "sigtrader parse [flags] [text...]",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("SIGTRADER"),
		},
		ShortHelp: "parse a signal and print its fields, reads stdin when no text is given",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			m, err := parseMappings(*mappings)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(bufio.NewReader(os.Stdin))
				if err != nil {
					return fmt.Errorf("couldn't read stdin: %w", err)
				}
				text = string(b)
			}
			fmt.Println(sigtrader.Parse(text, m))
			return nil
		},
	}
}

func split(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, v := range split(s) {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseMappings(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, v := range split(s) {
		kv := strings.SplitN(v, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" || strings.TrimSpace(kv[1]) == "" {
			return nil, fmt.Errorf("invalid symbol mapping %q", v)
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return m, nil
}
