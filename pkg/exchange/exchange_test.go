package exchange

import (
	"testing"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

func decimals(vs ...int64) []decimal.Decimal {
	var ds []decimal.Decimal
	for _, v := range vs {
		ds = append(ds, decimal.NewFromInt(v))
	}
	return ds
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name   string
		action signal.Action
		entry  int64
		tps    []decimal.Decimal
		want   int64
		found  bool
	}{
		{"buy", signal.Buy, 2350, decimals(2360, 2370), 2360, true},
		{"buy unordered", signal.Buy, 2350, decimals(2380, 2360, 2370), 2360, true},
		{"buy skips below entry", signal.Buy, 2350, decimals(5, 2375), 2375, true},
		{"sell", signal.Sell, 2350, decimals(2340, 2330), 2340, true},
		{"sell skips above entry", signal.Sell, 2350, decimals(2500, 2330, 5), 2330, true},
		{"buy none above", signal.Buy, 100, decimals(5, 100), 0, false},
		{"empty", signal.Buy, 100, nil, 0, false},
		{"unknown", signal.Unknown, 100, decimals(120), 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Target(tt.action, decimal.NewFromInt(tt.entry), tt.tps)
			if ok != tt.found {
				t.Fatalf("want found %v, got %v", tt.found, ok)
			}
			if ok && !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("want %d, got %s", tt.want, got)
			}
		})
	}
}
