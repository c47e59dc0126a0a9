package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/igolaizola/sigtrader/pkg/exchange"
	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

const (
	decimalPrecision = 8
	// maxSlippage is how far above the signal entry the current price may be.
	maxSlippage = 0.02
)

var zero = decimal.Decimal{}

type binanceExchange struct {
	client *binance.Client
	log    func(v ...interface{})
	quote  string
	debug  bool
}

// New returns a spot exchange. Canonical USD symbols are traded against
// quote (USDT when empty).
func New(log func(v ...interface{}), apiKey, apiSecret, quote string, debug bool) exchange.Exchange {
	return newExchange(log, apiKey, apiSecret, quote, debug)
}

func newExchange(log func(v ...interface{}), apiKey, apiSecret, quote string, debug bool) *binanceExchange {
	if quote == "" {
		quote = "USDT"
	}
	cli := binance.NewClient(apiKey, apiSecret)
	cli.NewSetServerTimeService().Do(context.Background())
	return &binanceExchange{
		client: cli,
		log:    log,
		quote:  strings.ToUpper(quote),
		debug:  debug,
	}
}

func (e *binanceExchange) Symbol(code string) string {
	return symbol(code, e.quote)
}

func symbol(code, quote string) string {
	code = strings.ToUpper(code)
	if strings.HasSuffix(code, "USD") {
		return strings.TrimSuffix(code, "USD") + quote
	}
	return code
}

func (e *binanceExchange) Open(ctx context.Context, o exchange.Order) (*exchange.Position, error) {
	if o.Action != signal.Buy {
		return nil, fmt.Errorf("binance: %s: %w", o.Action, exchange.ErrUnsupported)
	}
	target, ok := exchange.Target(o.Action, o.Entry, o.TakeProfits)
	if !ok {
		return nil, fmt.Errorf("binance: %w", exchange.ErrMissingTarget)
	}
	symbol := e.Symbol(o.Symbol)
	quoteQty, qty, err := e.buy(ctx, symbol, o.QuoteQuantity, o.Entry)
	if err != nil {
		return nil, err
	}
	p := &exchange.Position{
		Symbol:   symbol,
		Quantity: qty,
		Entry:    quoteQty.Div(qty),
		Target:   target,
		Stop:     o.StopLoss,
	}
	if err := e.protect(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

func (e *binanceExchange) UpdateStop(ctx context.Context, p *exchange.Position, stop decimal.Decimal) error {
	if err := e.cancelStopLimit(ctx, p.Symbol, p.OrderListID); err != nil {
		return fmt.Errorf("binance: couldn't cancel oco %s: %w", p.OrderListID, err)
	}
	p.Stop = stop
	return e.protect(ctx, p)
}

func (e *binanceExchange) Close(ctx context.Context, p *exchange.Position, ratio decimal.Decimal) error {
	if err := e.cancelStopLimit(ctx, p.Symbol, p.OrderListID); err != nil {
		return fmt.Errorf("binance: couldn't cancel oco %s: %w", p.OrderListID, err)
	}
	lot, _, err := e.precisions(ctx, p.Symbol)
	if err != nil {
		return err
	}
	qty := p.Quantity.Mul(ratio).Round(lot)
	if qty.GreaterThan(p.Quantity) {
		qty = p.Quantity
	}
	if _, err := e.sell(ctx, p.Symbol, qty); err != nil {
		return fmt.Errorf("binance: couldn't sell %s %s: %w", qty, p.Symbol, err)
	}
	p.Quantity = p.Quantity.Sub(qty)
	if !p.Quantity.IsPositive() {
		p.Closed = true
		p.OrderListID, p.OrderIDs = "", nil
		return nil
	}
	return e.protect(ctx, p)
}

// protect places the OCO order with the position target and stop.
func (e *binanceExchange) protect(ctx context.Context, p *exchange.Position) error {
	id, ids, err := e.createStopLimit(ctx, p.Symbol, p.Quantity, p.Target, p.Stop)
	if err != nil {
		return fmt.Errorf("binance: couldn't create oco: %w", err)
	}
	p.OrderListID, p.OrderIDs = id, ids
	return nil
}

func (e *binanceExchange) buy(ctx context.Context, symbol string, quoteQuantity, price decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	currentPrice, err := e.price(ctx, symbol)
	if err != nil {
		return zero, zero, err
	}
	if currentPrice.GreaterThan(price.Mul(decimal.NewFromFloat(1 + maxSlippage))) {
		return zero, zero, fmt.Errorf("binance: current price is higher than entry price: %s %s", currentPrice, price)
	}
	quoteQty, qty, err := e.buyLimit(ctx, symbol, quoteQuantity, currentPrice)
	if err != nil {
		e.log(fmt.Errorf("binance: buy limit failed, falling back to buy market: %w", err))
		return e.buyMarket(ctx, symbol, quoteQuantity)
	}
	return quoteQty, qty, nil
}

func (e *binanceExchange) sell(ctx context.Context, symbol string, quantity decimal.Decimal) (decimal.Decimal, error) {
	order, err := e.client.NewCreateOrderService().Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return zero, err
	}
	e.debugLog("sell_order:", order)
	quoteQty, _, err := e.waitOrder(ctx, symbol, order.OrderID)
	if err != nil {
		return zero, fmt.Errorf("binance: couldn't get sell order: %w", err)
	}
	return quoteQty, nil
}

func (e *binanceExchange) buyMarket(ctx context.Context, symbol string, quoteQuantity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	quoteQty := quoteQuantity.Round(decimalPrecision)
	order, err := e.client.NewCreateOrderService().Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(quoteQty.String()).
		Do(ctx)
	if err != nil {
		return zero, zero, err
	}
	e.debugLog("buy_market_order:", order)
	quoteQty, qty, err := e.waitOrder(ctx, symbol, order.OrderID)
	if err != nil {
		return zero, zero, fmt.Errorf("binance: couldn't get buy market order: %w", err)
	}
	return quoteQty, qty, nil
}

func (e *binanceExchange) buyLimit(ctx context.Context, symbol string, quoteQuantity, price decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	lot, _, err := e.precisions(ctx, symbol)
	if err != nil {
		return zero, zero, err
	}
	qty := quoteQuantity.Div(price).Round(lot)
	order, err := e.client.NewCreateOrderService().Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeFOK).
		Quantity(qty.String()).
		Price(price.String()).
		Do(ctx)
	if err != nil {
		return zero, zero, fmt.Errorf("binance: couldn't create buy limit order (%s %s): %w", qty, price, err)
	}
	e.debugLog("buy_limit_order:", order)
	quoteQty, qty, err := e.waitOrder(ctx, symbol, order.OrderID)
	if err != nil {
		return zero, zero, fmt.Errorf("binance: couldn't get buy limit order: %w", err)
	}
	return quoteQty, qty, nil
}

// precisions returns the decimal places of the lot step and price tick.
func (e *binanceExchange) precisions(ctx context.Context, symbol string) (int32, int32, error) {
	lot, tick := int32(decimalPrecision), int32(decimalPrecision)
	info, err := e.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("binance: couldn't get exchange info for %s: %w", symbol, err)
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		if f := s.LotSizeFilter(); f != nil {
			if lot, err = precision(f.StepSize); err != nil {
				return 0, 0, err
			}
		}
		if f := s.PriceFilter(); f != nil {
			if tick, err = precision(f.TickSize); err != nil {
				return 0, 0, err
			}
		}
	}
	return lot, tick, nil
}

func precision(step string) (int32, error) {
	split := strings.Split(step, ".")
	if len(split) != 2 {
		return 0, fmt.Errorf("binance: couldn't parse step size %s", step)
	}
	return int32(len(strings.TrimRight(split[1], "0"))), nil
}

func (e *binanceExchange) createStopLimit(ctx context.Context, symbol string, quantity, target, stop decimal.Decimal) (string, []string, error) {
	_, tick, err := e.precisions(ctx, symbol)
	if err != nil {
		return "", nil, err
	}
	target = target.Round(tick)
	stop = stop.Round(tick)
	limit := stop.Mul(decimal.NewFromFloat(0.99)).Round(tick)

	order, err := e.client.NewCreateOCOService().Symbol(symbol).
		Side(binance.SideTypeSell).
		StopLimitTimeInForce(binance.TimeInForceTypeGTC).
		Quantity(quantity.String()).
		Price(target.String()).
		StopPrice(stop.String()).
		StopLimitPrice(limit.String()).
		Do(ctx)
	if err != nil {
		return "", nil, err
	}
	e.debugLog("stop_limit_order:", order)
	var orderIDs []string
	for _, o := range order.Orders {
		orderIDs = append(orderIDs, strconv.FormatInt(o.OrderID, 10))
	}
	return strconv.FormatInt(order.OrderListID, 10), orderIDs, nil
}

func (e *binanceExchange) cancelStopLimit(ctx context.Context, symbol string, id string) error {
	if id == "" {
		return nil
	}
	orderListID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("binance: invalid id %s: %w", id, err)
	}
	_, err = e.client.NewCancelOCOService().Symbol(symbol).
		OrderListID(orderListID).
		Do(ctx)
	return err
}

// waitOrder polls the order until it is filled.
func (e *binanceExchange) waitOrder(ctx context.Context, symbol string, id int64) (decimal.Decimal, decimal.Decimal, error) {
	for {
		select {
		case <-ctx.Done():
			return zero, zero, ctx.Err()
		default:
		}
		ok, quoteQty, qty, err := e.getOrder(ctx, symbol, id)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		if err != nil {
			return zero, zero, err
		}
		if ok {
			return quoteQty, qty, nil
		}
	}
}

func (e *binanceExchange) getOrder(ctx context.Context, symbol string, id int64) (bool, decimal.Decimal, decimal.Decimal, error) {
	order, err := e.client.NewGetOrderService().Symbol(symbol).
		OrderID(id).Do(ctx)
	if err != nil {
		return false, zero, zero, fmt.Errorf("binance: couldn't get order: %w", err)
	}
	switch order.Status {
	// The order has been accepted by the engine.
	case binance.OrderStatusTypeNew:
		return false, zero, zero, nil
	// A part of the order has been filled.
	case binance.OrderStatusTypePartiallyFilled:
		return false, zero, zero, nil
	case binance.OrderStatusTypeFilled:
		e.debugLog("order_filled:", order)
		qty, err := decimal.NewFromString(order.ExecutedQuantity)
		if err != nil {
			return false, zero, zero, fmt.Errorf("binance: couldn't parse quantity: %s: %w", order.ExecutedQuantity, err)
		}
		quoteQty, err := decimal.NewFromString(order.CummulativeQuoteQuantity)
		if err != nil {
			return false, zero, zero, fmt.Errorf("binance: couldn't parse price: %s: %w", order.CummulativeQuoteQuantity, err)
		}
		return true, quoteQty, qty, nil
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return false, zero, zero, fmt.Errorf("binance: %w", exchange.ErrOrderCanceled)
	default:
	}
	return false, zero, zero, fmt.Errorf("binance: status %s", order.Status)
}

func (e *binanceExchange) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return zero, fmt.Errorf("binance: couldn't get price for %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return zero, fmt.Errorf("binance: couldn't parse price: %s: %w", p.Price, err)
		}
		return price, nil
	}
	return zero, fmt.Errorf("binance: price for %s not found", symbol)
}

func (e *binanceExchange) debugLog(msg string, v interface{}) {
	if !e.debug {
		return
	}
	js, _ := json.Marshal(v)
	e.log(msg, string(js))
}
