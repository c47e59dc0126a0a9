package record

import (
	"errors"
	"strings"
	"time"

	"github.com/igolaizola/sigtrader/pkg/exchange"
	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record: not found")

// Record is a traded signal as it is persisted.
type Record struct {
	ID        uint64
	Provider  string
	Channel   string
	ChatID    int64
	MessageID int
	Action    signal.Action
	Symbol    string
	Entry     decimal.Decimal
	Second    decimal.NullDecimal
	StopLoss  decimal.Decimal
	// TPList is the comma joined take profit set.
	TPList    string
	Time      time.Time
	Positions []*exchange.Position
}

func New(provider, channel string, chatID int64, messageID int, sig signal.Signal) *Record {
	return &Record{
		Provider:  provider,
		Channel:   channel,
		ChatID:    chatID,
		MessageID: messageID,
		Action:    sig.Action,
		Symbol:    sig.Symbol,
		Entry:     sig.Entry.Decimal,
		Second:    sig.Second,
		StopLoss:  sig.StopLoss.Decimal,
		TPList:    JoinTakeProfits(sig.TakeProfits),
		Time:      time.Now().UTC(),
	}
}

func (r *Record) TakeProfits() []decimal.Decimal {
	return SplitTakeProfits(r.TPList)
}

func JoinTakeProfits(tps []decimal.Decimal) string {
	parts := make([]string, len(tps))
	for i, tp := range tps {
		parts[i] = tp.String()
	}
	return strings.Join(parts, ",")
}

// SplitTakeProfits skips values that don't parse.
func SplitTakeProfits(s string) []decimal.Decimal {
	var tps []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := decimal.NewFromString(part)
		if err != nil {
			continue
		}
		tps = append(tps, d)
	}
	return tps
}

// Open reports whether any position of the record is still running.
func (r *Record) Open() bool {
	for _, p := range r.Positions {
		if !p.Closed {
			return true
		}
	}
	return false
}
