package signal

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Signal
	}{
		{
			name: "single line",
			msg:  "BUY EURUSD @1.2500 SL:1.2450",
			want: Signal{
				Action:   Buy,
				Symbol:   "EURUSD",
				Entry:    null("1.25"),
				Second:   null("1.245"),
				StopLoss: null("1.245"),
			},
		},
		{
			name: "multiple targets",
			msg:  "BUY EURUSD @1.2500\nSL: 1.2450\nTP1: 1.2550\nTP2: 1.2600",
			want: Signal{
				Action:      Buy,
				Symbol:      "EURUSD",
				Entry:       null("1.25"),
				Second:      null("1.255"),
				StopLoss:    null("1.245"),
				TakeProfits: decimals("1.255", "1.26"),
			},
		},
		{
			name: "entry range",
			msg:  "SELL GOLD 4220-4224\nSL 4235\nTP 4200",
			want: Signal{
				Action:      Sell,
				Symbol:      "XAUUSD",
				Entry:       null("4220"),
				Second:      null("4224"),
				StopLoss:    null("4235"),
				TakeProfits: decimals("4200"),
			},
		},
		{
			name: "persian",
			msg:  "خرید طلا ۴۲۲۰\nحد ضرر ۴۲۱۰\nتی پی ۴۲۳۰, ۴۲۴۰",
			want: Signal{
				Action:      Buy,
				Symbol:      "XAUUSD",
				Entry:       null("4220"),
				Second:      null("4240"),
				StopLoss:    null("4210"),
				TakeProfits: decimals("4230", "4240"),
			},
		},
		{
			name: "index alias",
			msg:  "us30 sell 34000 sl 34100",
			want: Signal{
				Action:   Sell,
				Symbol:   "DJIUSD",
				Entry:    null("34000"),
				StopLoss: null("34100"),
			},
		},
		{
			name: "simple price",
			msg:  "@ 1.2550",
			want: Signal{
				Entry:  null("1.255"),
				Second: null("2550"),
			},
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Parse(tt.msg)
			if !equalSignal(got, tt.want) {
				t.Errorf("got: %v, want: %v", got, tt.want)
			}
		})
	}
}

func TestParseInvariants(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t  ",
		"\x00\xff\xfe garbage \x01",
		"TP1: 1\nTP2: 1.2600\nTP3: 1.2600\nTP4: 1.26",
		"tp 1",
		"تی پی 1, 1, 2",
		"هدف 1-1-1",
		"😀🔥 @@@ ::: ---",
	}
	one := decimal.NewFromInt(1)
	engine := NewEngine()
	for _, in := range inputs {
		a := engine.Parse(in)
		b := engine.Parse(in)
		if !equalSignal(a, b) {
			t.Errorf("%q: not deterministic: %v != %v", in, a, b)
		}
		for i, tp := range a.TakeProfits {
			if tp.Equal(one) {
				t.Errorf("%q: sentinel in take profits: %v", in, a.TakeProfits)
			}
			for _, other := range a.TakeProfits[i+1:] {
				if tp.Equal(other) {
					t.Errorf("%q: duplicated take profit %s", in, tp)
				}
			}
		}
	}
}

func TestParser(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse("hello there"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected unparseable, got %v", err)
	}
	sig, err := p.Parse("SELL XAUUSD 2350 SL 2360")
	if err != nil {
		t.Fatal(err)
	}
	if sig.Action != Sell || sig.Symbol != "XAUUSD" {
		t.Errorf("wrong signal: %v", sig)
	}
}

func TestSymbolMappings(t *testing.T) {
	engine := NewEngine(WithSymbolAliases(map[string]string{"xauusd": "XAUUSD.m"}))
	got := engine.Parse("gold buy 2350").Symbol
	if got != "XAUUSD.m" {
		t.Errorf("want XAUUSD.m, got %s", got)
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		msg  string
		want decimal.NullDecimal
	}{
		{msg: "edit sl 1.2400", want: null("1.24")},
		{msg: "move stop to 1.2400", want: null("1.24")},
		{msg: "edit", want: decimal.NullDecimal{}},
	}
	engine := NewEngine()
	for _, tt := range tests {
		got := engine.ExtractPrice(tt.msg)
		if !equalNull(got, tt.want) {
			t.Errorf("%q: want %v, got %v", tt.msg, tt.want, got)
		}
	}
}

func TestAction(t *testing.T) {
	tests := []struct {
		msg  string
		want Action
	}{
		{"BUY EURUSD", Buy},
		{"sell gold now", Sell},
		{"xauusd buylimit 2350", Buy},
		{"short btc", Sell},
		{"خرید طلا", Buy},
		{"طلا فروش", Sell},
		{"longer than expected", Unknown},
		{"SELL XAUUSD 2350 sl 2360, buy back later", Sell},
		{"buy the dip, don't sell", Buy},
		{"فروش طلا، بعدا خرید", Sell},
		{"", Unknown},
	}
	n := NewNormalizer(nil)
	d := NewActionDetector()
	for _, tt := range tests {
		if got := d.Detect(n.Normalize(tt.msg)); got != tt.want {
			t.Errorf("%q: want %s, got %s", tt.msg, tt.want, got)
		}
	}
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"BUY EURUSD @1.25", "EURUSD"},
		{"EUR/USD buy 1.25", "EURUSD"},
		{"gbp-jpy sell", "GBPJPY"},
		{"btc/usdt long", "BTCUSDT"},
		{"NAS100 buy 18000", "NAS100"},
		{"US30 sell", "DJIUSD"},
		{"خرید انس", "XAUUSD"},
		{"TARGET 1.2", ""},
		{"buy now 1.25", ""},
		{"trying to buy 1.25", ""},
		{"SOLVED: buy 100", ""},
		{"cadence buy 5", ""},
		{"ETHUSD buy", "ETHUSD"},
		{"GER40 BUY 18000", "GER40"},
	}
	n := NewNormalizer(nil)
	d := NewSymbolDetector(nil)
	for _, tt := range tests {
		if got := d.Detect(n.Normalize(tt.msg)); got != tt.want {
			t.Errorf("%q: want %q, got %q", tt.msg, tt.want, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)
	tests := []struct {
		in    string
		upper string
	}{
		{"", ""},
		{"us30 buy", "DJIUSD BUY"},
		{"ＴＰ１：１．２５", "TP1:1.25"},
		{"قیمت ۱۲۳۴٫۵", "قیمت 1234.5"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.in)
		if got.Upper != tt.upper {
			t.Errorf("%q: want %q, got %q", tt.in, tt.upper, got.Upper)
		}
	}
}

func null(value string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: toDecimal(value), Valid: true}
}

func decimals(values ...string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, v := range values {
		out = append(out, toDecimal(v))
	}
	return out
}

func toDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func equalNull(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func equalDecimals(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalSignal(a, b Signal) bool {
	return a.Action == b.Action && a.Symbol == b.Symbol &&
		equalNull(a.Entry, b.Entry) && equalNull(a.Second, b.Second) &&
		equalNull(a.StopLoss, b.StopLoss) && equalDecimals(a.TakeProfits, b.TakeProfits)
}
