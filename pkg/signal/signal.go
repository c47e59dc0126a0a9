package signal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparseable is returned by a Parser when no field could be extracted.
var ErrUnparseable = errors.New("signal: unparseable")

type Action int

const (
	Unknown Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	*a = ParseAction(string(b))
	return nil
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy
	case "SELL":
		return Sell
	default:
		return Unknown
	}
}

// Signal is the structured form of a trading alert. Every field is optional.
type Signal struct {
	Action      Action
	Symbol      string
	Entry       decimal.NullDecimal
	Second      decimal.NullDecimal
	StopLoss    decimal.NullDecimal
	TakeProfits []decimal.Decimal
}

// Empty reports whether nothing was extracted.
func (s Signal) Empty() bool {
	return s.Action == Unknown && s.Symbol == "" && !s.Entry.Valid &&
		!s.Second.Valid && !s.StopLoss.Valid && len(s.TakeProfits) == 0
}

func (s Signal) String() string {
	tps := make([]string, len(s.TakeProfits))
	for i, tp := range s.TakeProfits {
		tps[i] = tp.String()
	}
	return fmt.Sprintf("%s %s entry=%s second=%s sl=%s tp=[%s]", s.Action, s.Symbol,
		nullString(s.Entry), nullString(s.Second), nullString(s.StopLoss), strings.Join(tps, ","))
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

type Parser interface {
	Parse(text string) (*Signal, error)
}

// Engine runs every detector against the same normalized text.
type Engine struct {
	normalizer *Normalizer
	actions    *ActionDetector
	symbols    *SymbolDetector
	prices     *PriceExtractor
}

// Option configures an Engine.
type Option func(*Engine)

// WithSymbolAliases adds broker specific symbol names on top of the defaults.
func WithSymbolAliases(aliases map[string]string) Option {
	return func(e *Engine) {
		e.symbols = NewSymbolDetector(aliases)
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		normalizer: NewNormalizer(nil),
		actions:    NewActionDetector(),
		symbols:    NewSymbolDetector(nil),
		prices:     NewPriceExtractor(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Parse never fails; fields that can't be found are left empty.
func (e *Engine) Parse(text string) Signal {
	t := e.normalizer.Normalize(text)
	return Signal{
		Action:      e.actions.Detect(t),
		Symbol:      e.symbols.Detect(t),
		Entry:       e.prices.EntryPrice(t),
		Second:      e.prices.SecondPrice(t),
		StopLoss:    e.prices.StopLoss(t),
		TakeProfits: e.prices.TakeProfits(t),
	}
}

// ExtractPrice finds the single price carried by an edit message such as
// "move sl to 1.2400". Stop loss cues are preferred over the first number.
func (e *Engine) ExtractPrice(text string) decimal.NullDecimal {
	t := e.normalizer.Normalize(text)
	if sl := e.prices.StopLoss(t); sl.Valid {
		return sl
	}
	return e.prices.EntryPrice(t)
}

type parser struct {
	engine *Engine
}

// NewParser returns the cascade engine behind the Parser interface.
func NewParser(opts ...Option) (Parser, error) {
	return &parser{engine: NewEngine(opts...)}, nil
}

func (p *parser) Parse(text string) (*Signal, error) {
	sig := p.engine.Parse(text)
	if sig.Empty() {
		return nil, ErrUnparseable
	}
	return &sig, nil
}
