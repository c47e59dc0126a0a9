package parser

import (
	"errors"
	"testing"

	"github.com/igolaizola/sigtrader/pkg/signal"
)

func TestNewParser(t *testing.T) {
	p, err := NewParser("", map[string]string{"XAUUSD": "GOLD.i"})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := p.Parse("buy gold 2350 sl 2340")
	if err != nil {
		t.Fatal(err)
	}
	if sig.Symbol != "GOLD.i" || sig.Action != signal.Buy {
		t.Errorf("wrong signal: %v", sig)
	}

	p, err = NewParser("json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(`{"action": "sell", "symbol": "EURUSD"}`); err != nil {
		t.Fatal(err)
	}

	if _, err := NewParser("unknown", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("want not found, got %v", err)
	}
}
