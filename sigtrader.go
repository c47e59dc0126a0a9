package sigtrader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/igolaizola/sigtrader/pkg/command"
	"github.com/igolaizola/sigtrader/pkg/exchange"
	"github.com/igolaizola/sigtrader/pkg/policy"
	"github.com/igolaizola/sigtrader/pkg/record"
	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

var version = "v0.1.0"

var (
	ErrFiltered   = errors.New("sigtrader: symbol filtered")
	ErrClosed     = errors.New("sigtrader: trading window closed")
	ErrMaxRecords = errors.New("sigtrader: maximum number of open signals")
	ErrNoPrice    = errors.New("sigtrader: no price in message")
)

type EventType int

const (
	New EventType = iota
	Edited
	Deleted
)

func (t EventType) String() string {
	switch t {
	case Edited:
		return "edited"
	case Deleted:
		return "deleted"
	default:
		return "new"
	}
}

// Event is a message update coming from any transport.
type Event struct {
	Type      EventType
	Provider  string
	Channel   string
	ChatID    int64
	MessageID int
	// ReplyTo is the parent message id, 0 when it isn't a reply.
	ReplyTo int
	Text    string
}

type Options struct {
	QuoteQuantity decimal.Decimal
	// MaxRecords limits open signals, 0 means no limit.
	MaxRecords int
	Keywords   command.Keywords
	Symbols    *policy.SymbolFilter
	Window     policy.Window
	RetryWait  time.Duration
	Attempts   int
	Now        func() time.Time
}

type Bot struct {
	log      func(v ...interface{})
	engine   *signal.Engine
	parser   signal.Parser
	exchange exchange.Exchange
	store    record.Store
	opts     Options
	lock     sync.Mutex
}

// NewBot ties the signal engine to an exchange and a record store. The
// engine serves edit prices and the tester; parser reads new signals.
func NewBot(log func(v ...interface{}), engine *signal.Engine, parser signal.Parser, ex exchange.Exchange, store record.Store, opts Options) *Bot {
	if opts.Symbols == nil {
		opts.Symbols = policy.NewSymbolFilter(nil, nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RetryWait == 0 {
		opts.RetryWait = 5 * time.Second
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Keywords.Edit == nil && opts.Keywords.Delete == nil && opts.Keywords.RiskFree == nil && opts.Keywords.TP == nil {
		opts.Keywords = command.Default()
	}
	return &Bot{
		log:      log,
		engine:   engine,
		parser:   parser,
		exchange: ex,
		store:    store,
		opts:     opts,
	}
}

// Handle processes one event. Events are handled one at a time.
func (b *Bot) Handle(ctx context.Context, e Event) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if e.Type == Deleted {
		return b.delete(ctx, e)
	}

	// Edit commands without reply apply to the last signal of the chat
	if e.Type == New && e.ReplyTo == 0 && b.opts.Keywords.Has(command.Edit, e.Text) {
		r, err := b.store.Last(e.ChatID)
		if err != nil {
			return fmt.Errorf("sigtrader: couldn't get last signal of %s: %w", e.Channel, err)
		}
		return b.editStop(ctx, r, e.Text)
	}

	if e.Type == New && e.ReplyTo != 0 {
		return b.reply(ctx, e)
	}

	if e.Type == Edited {
		return b.edit(ctx, e)
	}
	return b.open(ctx, e)
}

func (b *Bot) reply(ctx context.Context, e Event) error {
	kind := b.opts.Keywords.Match(e.Text)
	if kind == command.None {
		return nil
	}
	r, err := b.store.ByMessage(e.ChatID, e.ReplyTo)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't get signal replied by %d: %w", e.MessageID, err)
	}
	switch kind {
	case command.Edit:
		return b.editStop(ctx, r, e.Text)
	case command.Delete:
		if command.IsHalf(e.Text) {
			return b.close(ctx, r, decimal.NewFromFloat(0.5), "half closed")
		}
		return b.close(ctx, r, decimal.NewFromInt(1), "closed")
	case command.RiskFree:
		if err := b.retry(ctx, r, func(p *exchange.Position) error {
			stop := p.Entry
			if !stop.IsPositive() {
				stop = r.Entry
			}
			return b.exchange.UpdateStop(ctx, p, stop)
		}); err != nil {
			return err
		}
		r.StopLoss = r.Entry
		b.log(fmt.Sprintf("🛡 %s risk free", describe(r)))
		return b.update(r)
	case command.TP:
		return b.close(ctx, r, decimal.NewFromInt(1), "take profit")
	}
	return nil
}

func (b *Bot) editStop(ctx context.Context, r *record.Record, text string) error {
	price := b.engine.ExtractPrice(text)
	if !price.Valid {
		return fmt.Errorf("%w: %q", ErrNoPrice, text)
	}
	return b.moveStop(ctx, r, price.Decimal)
}

func (b *Bot) moveStop(ctx context.Context, r *record.Record, stop decimal.Decimal) error {
	if err := b.retry(ctx, r, func(p *exchange.Position) error {
		return b.exchange.UpdateStop(ctx, p, stop)
	}); err != nil {
		return err
	}
	r.StopLoss = stop
	b.log(fmt.Sprintf("✏️ %s stop loss moved to %s", describe(r), stop))
	return b.update(r)
}

func (b *Bot) close(ctx context.Context, r *record.Record, ratio decimal.Decimal, reason string) error {
	if err := b.retry(ctx, r, func(p *exchange.Position) error {
		return b.exchange.Close(ctx, p, ratio)
	}); err != nil {
		return err
	}
	b.log(fmt.Sprintf("💰 %s %s", describe(r), reason))
	if !r.Open() {
		if err := b.store.Delete(r); err != nil {
			return fmt.Errorf("sigtrader: couldn't delete signal %d: %w", r.ID, err)
		}
		return nil
	}
	return b.update(r)
}

func (b *Bot) open(ctx context.Context, e Event) error {
	if now := b.opts.Now(); !b.opts.Window.Open(now) {
		return fmt.Errorf("%w: %s not in %s", ErrClosed, now.Format("15:04"), b.opts.Window)
	}
	_, err := b.store.ByMessage(e.ChatID, e.MessageID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, record.ErrNotFound) {
		return fmt.Errorf("sigtrader: couldn't look up message %d of %s: %w", e.MessageID, e.Channel, err)
	}
	sig, err := b.parser.Parse(e.Text)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't parse message %d of %s: %w", e.MessageID, e.Channel, err)
	}
	if err := policy.Validate(*sig); err != nil {
		return err
	}
	if !b.opts.Symbols.Allowed(sig.Symbol) {
		return fmt.Errorf("%w: %s", ErrFiltered, sig.Symbol)
	}
	if b.opts.MaxRecords > 0 {
		open, err := b.openRecords()
		if err != nil {
			return err
		}
		if len(open) >= b.opts.MaxRecords {
			return fmt.Errorf("%w: %d", ErrMaxRecords, len(open))
		}
	}

	r := record.New(e.Provider, e.Channel, e.ChatID, e.MessageID, *sig)
	order := exchange.Order{
		Action:        sig.Action,
		Symbol:        sig.Symbol,
		Entry:         sig.Entry.Decimal,
		StopLoss:      sig.StopLoss.Decimal,
		TakeProfits:   sig.TakeProfits,
		QuoteQuantity: b.opts.QuoteQuantity,
	}
	var pos *exchange.Position
	if err := exchange.Retry(ctx, b.log, b.opts.RetryWait, b.opts.Attempts, func() error {
		p, err := b.exchange.Open(ctx, order)
		if p != nil {
			// Bought, don't buy again even if protecting the position failed
			pos = p
			if err != nil {
				b.log(fmt.Errorf("sigtrader: %s position opened without protection: %w", p.Symbol, err))
			}
			return nil
		}
		return err
	}); err != nil {
		return fmt.Errorf("sigtrader: couldn't open %s: %w", sig.Symbol, err)
	}
	r.Positions = append(r.Positions, pos)
	if err := b.store.Create(r); err != nil {
		return fmt.Errorf("sigtrader: couldn't store signal: %w", err)
	}
	b.log(fmt.Sprintf("⚙️ opened %s", describe(r)))
	return nil
}

func (b *Bot) edit(ctx context.Context, e Event) error {
	r, err := b.store.ByMessage(e.ChatID, e.MessageID)
	if errors.Is(err, record.ErrNotFound) {
		// Signals may be completed by editing a message that didn't parse
		return b.open(ctx, e)
	}
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't get edited signal %d: %w", e.MessageID, err)
	}
	sig, err := b.parser.Parse(e.Text)
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't parse edited message %d: %w", e.MessageID, err)
	}
	stop := r.StopLoss
	if sig.StopLoss.Valid {
		stop = sig.StopLoss.Decimal
	}
	tps := r.TakeProfits()
	if len(sig.TakeProfits) > 0 {
		tps = sig.TakeProfits
	}
	stopChanged := !stop.Equal(r.StopLoss)
	tpChanged := record.JoinTakeProfits(tps) != r.TPList
	if !stopChanged && !tpChanged {
		return nil
	}
	if err := b.retry(ctx, r, func(p *exchange.Position) error {
		entry := p.Entry
		if !entry.IsPositive() {
			entry = r.Entry
		}
		if target, ok := exchange.Target(r.Action, entry, tps); ok {
			p.Target = target
		}
		return b.exchange.UpdateStop(ctx, p, stop)
	}); err != nil {
		return err
	}
	r.StopLoss = stop
	r.TPList = record.JoinTakeProfits(tps)
	b.log(fmt.Sprintf("✏️ %s updated", describe(r)))
	return b.update(r)
}

func (b *Bot) delete(ctx context.Context, e Event) error {
	r, err := b.store.ByMessage(e.ChatID, e.MessageID)
	if errors.Is(err, record.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sigtrader: couldn't get deleted signal %d: %w", e.MessageID, err)
	}
	return b.close(ctx, r, decimal.NewFromInt(1), "closed, message deleted")
}

// retry runs fn for every open position of the record.
func (b *Bot) retry(ctx context.Context, r *record.Record, fn func(*exchange.Position) error) error {
	for _, p := range r.Positions {
		if p.Closed {
			continue
		}
		p := p
		if err := exchange.Retry(ctx, b.log, b.opts.RetryWait, b.opts.Attempts, func() error {
			return fn(p)
		}); err != nil {
			return fmt.Errorf("sigtrader: couldn't update %s: %w", p.Symbol, err)
		}
	}
	return nil
}

func (b *Bot) update(r *record.Record) error {
	if err := b.store.Update(r); err != nil {
		return fmt.Errorf("sigtrader: couldn't update signal %d: %w", r.ID, err)
	}
	return nil
}

func (b *Bot) openRecords() ([]*record.Record, error) {
	to := b.opts.Now().UTC().Add(24 * time.Hour)
	from := to.Add(-366 * 24 * time.Hour)
	records, err := b.store.List(from, to)
	if err != nil {
		return nil, fmt.Errorf("sigtrader: couldn't list signals: %w", err)
	}
	var open []*record.Record
	for _, r := range records {
		if r.Open() {
			open = append(open, r)
		}
	}
	return open, nil
}

// Status lists the open signals.
func (b *Bot) Status() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	records, err := b.openRecords()
	if err != nil {
		return err.Error()
	}
	if len(records) == 0 {
		return "no signals running"
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	sb := &strings.Builder{}
	for _, r := range records {
		fmt.Fprintf(sb, "📈 #%d %s entry %s sl %s tp [%s] %s\n", r.ID, r.Symbol, r.Entry, r.StopLoss, r.TPList,
			b.opts.Now().Sub(r.Time).Round(time.Second))
	}
	fmt.Fprintf(sb, "Total: %d", len(records))
	return sb.String()
}

// Test parses a message and describes the result. It never trades.
func (b *Bot) Test(text string) string {
	sig := b.engine.Parse(text)
	sb := &strings.Builder{}
	fmt.Fprintln(sb, "🧪 signal test")
	fmt.Fprintf(sb, "action: %s\n", sig.Action)
	symbol := sig.Symbol
	if symbol == "" {
		symbol = "-"
	}
	fmt.Fprintf(sb, "symbol: %s\n", symbol)
	fmt.Fprintf(sb, "entry: %s\n", nullString(sig.Entry))
	fmt.Fprintf(sb, "second: %s\n", nullString(sig.Second))
	fmt.Fprintf(sb, "stop loss: %s\n", nullString(sig.StopLoss))
	tps := record.JoinTakeProfits(sig.TakeProfits)
	if tps == "" {
		tps = "-"
	}
	fmt.Fprintf(sb, "take profits: %s\n", strings.ReplaceAll(tps, ",", ", "))
	switch err := policy.Validate(sig); {
	case err != nil:
		fmt.Fprintf(sb, "❌ %s", strings.TrimPrefix(err.Error(), "policy: "))
	case !b.opts.Symbols.Allowed(sig.Symbol):
		fmt.Fprintf(sb, "⚠️ %s is filtered", sig.Symbol)
	default:
		fmt.Fprint(sb, "✅ valid signal")
	}
	return sb.String()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func describe(r *record.Record) string {
	return fmt.Sprintf("#%d %s %s (%s)", r.ID, r.Action, r.Symbol, r.Channel)
}
