package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/shopspring/decimal"
)

func TestValidate(t *testing.T) {
	valid := decimal.NullDecimal{Decimal: decimal.NewFromInt(10), Valid: true}
	tests := []struct {
		name    string
		sig     signal.Signal
		wantErr bool
	}{
		{"complete", signal.Signal{Action: signal.Buy, Symbol: "EURUSD", Entry: valid, StopLoss: valid}, false},
		{"no action", signal.Signal{Symbol: "EURUSD", Entry: valid, StopLoss: valid}, true},
		{"no stop", signal.Signal{Action: signal.Sell, Symbol: "EURUSD", Entry: valid}, true},
		{"no symbol", signal.Signal{Action: signal.Sell, Entry: valid, StopLoss: valid}, true},
		{"empty", signal.Signal{}, true},
	}
	for _, tt := range tests {
		err := Validate(tt.sig)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if err != nil && !errors.Is(err, ErrIncomplete) {
			t.Errorf("%s: want ErrIncomplete, got %v", tt.name, err)
		}
	}
}

func TestSymbolFilter(t *testing.T) {
	f := NewSymbolFilter([]string{"xauusd", "EURUSD"}, []string{"EURUSD"})
	if !f.Allowed("XAUUSD") {
		t.Error("whitelisted symbol rejected")
	}
	if f.Allowed("eurusd") {
		t.Error("blacklist must win over whitelist")
	}
	if f.Allowed("GBPUSD") {
		t.Error("symbol outside whitelist accepted")
	}
	if !NewSymbolFilter(nil, nil).Allowed("ANY") {
		t.Error("empty filter must allow everything")
	}
}

func TestWindow(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2024, 1, 1, h, m, 0, 0, time.Local)
	}
	w, err := ParseWindow("", "")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Open(at(3, 0)) {
		t.Error("empty window must be open")
	}

	w, err = ParseWindow("08:30", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Open(at(8, 30)) || !w.Open(at(12, 0)) || w.Open(at(17, 1)) || w.Open(at(7, 0)) {
		t.Errorf("wrong day window %s", w)
	}

	w, err = ParseWindow("22:00", "02:00")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Open(at(23, 0)) || !w.Open(at(1, 0)) || w.Open(at(12, 0)) {
		t.Errorf("wrong overnight window %s", w)
	}

	if _, err := ParseWindow("25:00", "01:00"); err == nil {
		t.Error("expected error for invalid time")
	}
	if _, err := ParseWindow("10:00", ""); err == nil {
		t.Error("expected error for half window")
	}
}
