package json

import (
	"encoding/json"
	"fmt"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

// Parser reads signals that already come structured, e.g. from a webhook
// relay.
type Parser struct{}

type jsonSignal struct {
	Action      string   `json:"action"`
	Symbol      string   `json:"symbol"`
	Entry       string   `json:"entry"`
	Second      string   `json:"second"`
	StopLoss    string   `json:"stop_loss"`
	TakeProfits []string `json:"take_profits"`
}

func (p Parser) Parse(text string) (*signal.Signal, error) {
	var js jsonSignal
	if err := json.Unmarshal([]byte(text), &js); err != nil {
		return nil, fmt.Errorf("json: couldn't parse signal (%s): %w", text, err)
	}
	s := &signal.Signal{
		Action: signal.ParseAction(js.Action),
		Symbol: js.Symbol,
	}
	var err error
	if s.Entry, err = optional(js.Entry); err != nil {
		return nil, fmt.Errorf("json: couldn't parse entry price (%s): %w", js.Entry, err)
	}
	if s.Second, err = optional(js.Second); err != nil {
		return nil, fmt.Errorf("json: couldn't parse second price (%s): %w", js.Second, err)
	}
	if s.StopLoss, err = optional(js.StopLoss); err != nil {
		return nil, fmt.Errorf("json: couldn't parse stop loss (%s): %w", js.StopLoss, err)
	}
	one := decimal.NewFromInt(1)
	for i, target := range js.TakeProfits {
		tp, err := decimal.NewFromString(target)
		if err != nil {
			return nil, fmt.Errorf("json: couldn't parse take profit %d (%s): %w", i+1, target, err)
		}
		if tp.Equal(one) || contains(s.TakeProfits, tp) {
			continue
		}
		s.TakeProfits = append(s.TakeProfits, tp)
	}
	if s.Empty() {
		return nil, signal.ErrUnparseable
	}
	return s, nil
}

func optional(value string) (decimal.NullDecimal, error) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func contains(values []decimal.Decimal, v decimal.Decimal) bool {
	for _, x := range values {
		if x.Equal(v) {
			return true
		}
	}
	return false
}
