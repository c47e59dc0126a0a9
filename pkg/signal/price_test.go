package signal

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSecondPrice(t *testing.T) {
	tests := []struct {
		msg  string
		want decimal.NullDecimal
	}{
		{"4220-4224", null("4224")},
		{"4220_4224", null("4224")},
		{"4220＿4224", null("4224")},
		{"4220:4224", null("4224")},
		{"4220///4224", null("4224")},
		{"4220/4224", null("4224")},
		{"buy 2nd limit @ 4210", null("4210")},
		{"4220 و 4224 فروش", null("4224")},
		{"4220 و 4224 خرید", null("4224")},
		{"entry = 4230", null("4230")},
		{"4220", decimal.NullDecimal{}},
		{"", decimal.NullDecimal{}},
	}
	n := NewNormalizer(nil)
	p := NewPriceExtractor()
	for _, tt := range tests {
		got := p.SecondPrice(n.Normalize(tt.msg))
		if !equalNull(got, tt.want) {
			t.Errorf("%q: want %v, got %v", tt.msg, tt.want, got)
		}
	}
}

func TestStopLoss(t *testing.T) {
	tests := []struct {
		msg  string
		want decimal.NullDecimal
	}{
		{"sl:1.2450", null("1.245")},
		{"Stop Loss: 1.2450", null("1.245")},
		{"stoploss=1.2450", null("1.245")},
		{"SL:::4090", null("4090")},
		{"حد 1.2450", null("1.245")},
		{"حد ضرر 1.2450", null("1.245")},
		{"استاپ 4090", null("4090")},
		{"entry 1.2500, 1.2450 SL", null("1.245")},
		{"GER40 BUY 18000 SL 17900", null("17900")},
		{"no stop here", decimal.NullDecimal{}},
		{"sl: 0", decimal.NullDecimal{}},
		{"", decimal.NullDecimal{}},
	}
	n := NewNormalizer(nil)
	p := NewPriceExtractor()
	for _, tt := range tests {
		got := p.StopLoss(n.Normalize(tt.msg))
		if !equalNull(got, tt.want) {
			t.Errorf("%q: want %v, got %v", tt.msg, tt.want, got)
		}
	}
}

func TestEntryPrice(t *testing.T) {
	tests := []struct {
		msg  string
		want decimal.NullDecimal
	}{
		{"@ 1.2550", null("1.255")},
		{"BUY EURUSD @1.2500 SL:1.2450", null("1.25")},
		{"US30 BUY 34000", null("34000")},
		{"NAS100 buy 18000 sl 17900 tp 18100", null("18000")},
		{"GER40 BUY 18000\nSL 17900", null("18000")},
		{"us500 sell 5200", null("5200")},
		{"خرید طلا ۲۳۵۰", null("2350")},
		{"buy now", decimal.NullDecimal{}},
	}
	n := NewNormalizer(nil)
	p := NewPriceExtractor()
	for _, tt := range tests {
		got := p.EntryPrice(n.Normalize(tt.msg))
		if !equalNull(got, tt.want) {
			t.Errorf("%q: want %v, got %v", tt.msg, tt.want, got)
		}
	}
}

func TestTakeProfits(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []decimal.Decimal
	}{
		{"numbered", "TP1: 1.2550\nTP2: 1.2600", decimals("1.255", "1.26")},
		{"dotted", "TP1. 4130\nTP2. 4138", decimals("4130", "4138")},
		{"no space", "tp.4130", decimals("4130")},
		{"duplicates", "TP: 1.2550\nTP: 1.2550", decimals("1.255")},
		{"take profit", "take profit 2: 4150", decimals("4150")},
		{"checkpoint", "checkpoint 1: 4145", decimals("4145")},
		{"checkpoint open", "checkpoint 1: open", nil},
		{"persian list", "تی پی 4130, 4135، 4140", decimals("4130", "4135", "4140")},
		{"persian target", "هدف 4130-4140-4150", decimals("4130", "4140", "4150")},
		{"persian target spaces", "تارگت 4150 4160", decimals("4150", "4160")},
		{"only sentinel", "tp 1", nil},
		// The numbered rule lets tp\d* take the leading digits
		{"greedy index", "TP 2375", decimals("5", "2375")},
		{"sentinel dropped", "TP1: 1\nTP2: 1.2600", decimals("1.26")},
		{"none", "BUY EURUSD @1.2500 SL:1.2450", nil},
		{"empty", "", nil},
	}
	n := NewNormalizer(nil)
	p := NewPriceExtractor()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := p.TakeProfits(n.Normalize(tt.msg))
			if !equalDecimals(got, tt.want) {
				t.Errorf("want %v, got %v", tt.want, got)
			}
		})
	}
}
