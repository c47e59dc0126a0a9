package binance

import (
	"context"
	"fmt"

	"github.com/igolaizola/sigtrader/pkg/exchange"
	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

// pricer returns the current price of a symbol.
type pricer func(ctx context.Context, symbol string) (decimal.Decimal, error)

type binanceExchangeDry struct {
	price pricer
	log   func(v ...interface{})
	quote string
	seq   int
}

// NewDry fakes fills at the public price. No keys are needed.
func NewDry(log func(v ...interface{}), quote string, debug bool) exchange.Exchange {
	ex := newExchange(log, "", "", quote, debug)
	return newDry(log, ex.quote, ex.price)
}

func newDry(log func(v ...interface{}), quote string, price pricer) *binanceExchangeDry {
	return &binanceExchangeDry{price: price, log: log, quote: quote}
}

func (e *binanceExchangeDry) Symbol(code string) string {
	return symbol(code, e.quote)
}

func (e *binanceExchangeDry) Open(ctx context.Context, o exchange.Order) (*exchange.Position, error) {
	if o.Action != signal.Buy {
		return nil, fmt.Errorf("binance: %s: %w", o.Action, exchange.ErrUnsupported)
	}
	target, ok := exchange.Target(o.Action, o.Entry, o.TakeProfits)
	if !ok {
		return nil, fmt.Errorf("binance: %w", exchange.ErrMissingTarget)
	}
	symbol := e.Symbol(o.Symbol)
	price, err := e.price(ctx, symbol)
	if err != nil {
		return nil, err
	}
	p := &exchange.Position{
		Symbol:   symbol,
		Quantity: o.QuoteQuantity.Div(price).Round(4),
		Entry:    price,
		Target:   target,
		Stop:     o.StopLoss,
	}
	e.protect(p)
	e.log("dry: bought", p.Quantity, p.Symbol, "at", p.Entry)
	return p, nil
}

func (e *binanceExchangeDry) UpdateStop(ctx context.Context, p *exchange.Position, stop decimal.Decimal) error {
	p.Stop = stop
	e.protect(p)
	e.log("dry: stop of", p.Symbol, "moved to", stop)
	return nil
}

func (e *binanceExchangeDry) Close(ctx context.Context, p *exchange.Position, ratio decimal.Decimal) error {
	price, err := e.price(ctx, p.Symbol)
	if err != nil {
		return err
	}
	qty := p.Quantity.Mul(ratio).Round(4)
	if qty.GreaterThan(p.Quantity) {
		qty = p.Quantity
	}
	p.Quantity = p.Quantity.Sub(qty)
	e.log("dry: sold", qty, p.Symbol, "at", price)
	if !p.Quantity.IsPositive() {
		p.Closed = true
		p.OrderListID, p.OrderIDs = "", nil
		return nil
	}
	e.protect(p)
	return nil
}

func (e *binanceExchangeDry) protect(p *exchange.Position) {
	e.seq++
	p.OrderListID = fmt.Sprintf("dry_%d", e.seq)
	p.OrderIDs = []string{
		fmt.Sprintf("greater_%s_%s", p.Target, p.Quantity),
		fmt.Sprintf("less_%s_%s", p.Stop, p.Quantity),
	}
}
