// Package policy holds the business rules applied to a parsed signal before
// it may be traded.
package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/igolaizola/sigtrader/pkg/signal"
)

var ErrIncomplete = errors.New("policy: incomplete signal")

// Validate requires an action, an entry price, a stop loss and a symbol.
func Validate(s signal.Signal) error {
	var missing []string
	if s.Action == signal.Unknown {
		missing = append(missing, "action")
	}
	if !s.Entry.Valid {
		missing = append(missing, "entry price")
	}
	if !s.StopLoss.Valid {
		missing = append(missing, "stop loss")
	}
	if s.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

type SymbolFilter struct {
	whitelist map[string]bool
	blacklist map[string]bool
}

func NewSymbolFilter(whitelist, blacklist []string) *SymbolFilter {
	return &SymbolFilter{
		whitelist: set(whitelist),
		blacklist: set(blacklist),
	}
}

// Allowed applies the blacklist first, then the whitelist if there is one.
func (f *SymbolFilter) Allowed(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if f.blacklist[symbol] {
		return false
	}
	if len(f.whitelist) > 0 && !f.whitelist[symbol] {
		return false
	}
	return true
}

func set(values []string) map[string]bool {
	m := make(map[string]bool)
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			m[v] = true
		}
	}
	return m
}

// Window is a daily trading window in local time. The zero value is always
// open.
type Window struct {
	start, end time.Duration
	set        bool
}

// ParseWindow parses HH:MM bounds. Both empty means no restriction.
func ParseWindow(start, end string) (Window, error) {
	if start == "" && end == "" {
		return Window{}, nil
	}
	if start == "" || end == "" {
		return Window{}, fmt.Errorf("policy: window needs both start and end (%q, %q)", start, end)
	}
	s, err := clock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := clock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{start: s, end: e, set: true}, nil
}

func clock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("policy: invalid time %q: %w", v, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Open reports whether now falls inside the window. Windows where end is
// before start span midnight.
func (w Window) Open(now time.Time) bool {
	if !w.set {
		return true
	}
	d := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute
	if w.start <= w.end {
		return d >= w.start && d <= w.end
	}
	return d >= w.start || d <= w.end
}

func (w Window) String() string {
	if !w.set {
		return "always"
	}
	return fmt.Sprintf("%s-%s", hhmm(w.start), hhmm(w.end))
}

func hhmm(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
