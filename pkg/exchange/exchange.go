package exchange

import (
	"context"
	"errors"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

// Order is a validated signal ready to be placed.
type Order struct {
	Action        signal.Action
	Symbol        string
	Entry         decimal.Decimal
	StopLoss      decimal.Decimal
	TakeProfits   []decimal.Decimal
	QuoteQuantity decimal.Decimal
}

// Position is an opened order protected by a stop and a target.
type Position struct {
	Symbol      string
	OrderListID string
	OrderIDs    []string
	Quantity    decimal.Decimal
	Entry       decimal.Decimal
	Target      decimal.Decimal
	Stop        decimal.Decimal
	Closed      bool
}

type Exchange interface {
	Open(ctx context.Context, o Order) (*Position, error)
	UpdateStop(ctx context.Context, p *Position, stop decimal.Decimal) error
	// Close sells ratio (0, 1] of the position quantity.
	Close(ctx context.Context, p *Position, ratio decimal.Decimal) error
	Symbol(code string) string
}

var (
	ErrOrderCanceled = errors.New("order canceled")
	ErrUnsupported   = errors.New("unsupported action")
	ErrMissingTarget = errors.New("missing take profit")
)

// Target picks the nearest take profit on the winning side of entry: the
// lowest one above it for a buy, the highest one below it for a sell.
func Target(action signal.Action, entry decimal.Decimal, tps []decimal.Decimal) (decimal.Decimal, bool) {
	var target decimal.Decimal
	var found bool
	for _, tp := range tps {
		switch action {
		case signal.Buy:
			if !tp.GreaterThan(entry) || (found && !tp.LessThan(target)) {
				continue
			}
		case signal.Sell:
			if !tp.LessThan(entry) || (found && !tp.GreaterThan(target)) {
				continue
			}
		default:
			continue
		}
		target, found = tp, true
	}
	return target, found
}
