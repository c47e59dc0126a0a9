package json

import (
	"errors"
	"reflect"
	"testing"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    *signal.Signal
		wantErr error
	}{
		{
			name: "valid signal",
			msg: `{
	"action": "buy",
	"symbol": "XAUUSD",
	"entry": "2350.5",
	"stop_loss": "2340",
	"take_profits": ["2360", "2370", "2360", "1"]
}`,
			want: &signal.Signal{
				Action:   signal.Buy,
				Symbol:   "XAUUSD",
				Entry:    decimal.NullDecimal{Decimal: toDecimal("2350.5"), Valid: true},
				StopLoss: decimal.NullDecimal{Decimal: toDecimal("2340"), Valid: true},
				TakeProfits: []decimal.Decimal{
					toDecimal("2360"),
					toDecimal("2370"),
				},
			},
		},
		{
			name:    "invalid price",
			msg:     `{"action": "sell", "entry": "abc"}`,
			wantErr: errors.New("any"),
		},
		{
			name:    "empty",
			msg:     `{}`,
			wantErr: signal.ErrUnparseable,
		},
	}

	parser := Parser{}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.Parse(tt.msg)
			if err != nil {
				if tt.wantErr == nil {
					t.Fatal(err)
				}
				if errors.Is(tt.wantErr, signal.ErrUnparseable) && !errors.Is(err, signal.ErrUnparseable) {
					t.Errorf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.wantErr != nil {
				t.Fatalf("expected error, got %v", got)
			}
			if !reflect.DeepEqual(*got, *tt.want) {
				t.Errorf("got: %v, want: %v", got, tt.want)
			}
		})
	}
}

func toDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
