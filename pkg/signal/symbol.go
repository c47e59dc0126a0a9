package signal

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSymbolAliases maps instrument nicknames to canonical codes.
var DefaultSymbolAliases = map[string]string{
	"GOLD":    "XAUUSD",
	"XAU":     "XAUUSD",
	"SILVER":  "XAGUSD",
	"XAG":     "XAGUSD",
	"DOW":     "DJIUSD",
	"DJI":     "DJIUSD",
	"NASDAQ":  "NAS100",
	"USTEC":   "NAS100",
	"DAX":     "GER40",
	"BITCOIN": "BTCUSD",

	// Persian
	"طلا":      "XAUUSD",
	"اونس":     "XAUUSD",
	"انس":      "XAUUSD",
	"نقره":     "XAGUSD",
	"بیت کوین": "BTCUSD",
}

var currencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "AUD": true, "NZD": true,
	"CAD": true, "CHF": true, "SGD": true, "HKD": true, "SEK": true, "NOK": true,
	"MXN": true, "ZAR": true, "TRY": true, "CNH": true, "XAU": true, "XAG": true,
	"BTC": true, "ETH": true, "LTC": true, "XRP": true, "SOL": true, "BNB": true,
	"USDT": true,
}

var notSymbols = map[string]bool{
	"TARGET": true, "PROFIT": true, "SIGNAL": true, "MARKET": true, "UPDATE": true,
	"CLOSED": true,
}

// indexPrefixes start index tickers that carry digits, like NAS100.
const indexPrefixes = `NAS|US|GER|DE|UK|SPX|JP|HK|AUS|FRA|EU|ES|CHINA`

var (
	tokenRegex  = regexp.MustCompile(`[A-Z][A-Z0-9]*(?:[/\-_.][A-Z0-9]+)*`)
	pairRegex   = regexp.MustCompile(`^([A-Z]{3})([A-Z]{3,4})$`)
	cryptoRegex = regexp.MustCompile(`^[A-Z]{2,10}(?:USDT|USDC|BUSD)$`)
	indexRegex  = regexp.MustCompile(`^(?:` + indexPrefixes + `)\d{2,4}$`)
	separators  = strings.NewReplacer("/", "", "-", "", "_", "")
)

type SymbolDetector struct {
	ascii    map[string]string
	nonASCII map[string]string
	mappings map[string]string
	// codes are the canonical codes aliases resolve to.
	codes map[string]bool
}

// NewSymbolDetector uses DefaultSymbolAliases for nicknames and applies
// mappings (canonical code to broker name) to the detected code.
func NewSymbolDetector(mappings map[string]string) *SymbolDetector {
	d := &SymbolDetector{
		ascii:    make(map[string]string),
		nonASCII: make(map[string]string),
		mappings: make(map[string]string),
		codes:    make(map[string]bool),
	}
	for k, v := range DefaultSymbolAliases {
		d.codes[v] = true
		if isASCII(k) {
			d.ascii[k] = v
		} else {
			d.nonASCII[k] = v
		}
	}
	for k, v := range mappings {
		d.mappings[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return d
}

// Detect returns the first ticker shaped token, or "" when there is none.
func (d *SymbolDetector) Detect(t Text) string {
	for _, tok := range tokenRegex.FindAllString(t.Upper, -1) {
		if code, ok := d.canonical(tok); ok {
			return d.mapped(code)
		}
	}
	var (
		code string
		pos  = -1
	)
	for alias, c := range d.nonASCII {
		i := strings.Index(t.Upper, alias)
		if i < 0 {
			continue
		}
		if pos < 0 || i < pos || (i == pos && c < code) {
			pos, code = i, c
		}
	}
	if pos < 0 {
		return ""
	}
	return d.mapped(code)
}

func (d *SymbolDetector) canonical(tok string) (string, bool) {
	tok = strings.TrimSuffix(tok, ".")
	if c, ok := d.ascii[tok]; ok {
		return c, true
	}
	compact := separators.Replace(tok)
	if i := strings.IndexByte(compact, '.'); i > 0 {
		// Broker suffixes like EURUSD.M
		compact = compact[:i]
	}
	if c, ok := d.ascii[compact]; ok {
		return c, true
	}
	if notSymbols[compact] {
		return "", false
	}
	if _, ok := d.mappings[compact]; ok || d.codes[compact] {
		return compact, true
	}
	if cryptoRegex.MatchString(compact) || indexRegex.MatchString(compact) {
		return compact, true
	}
	if m := pairRegex.FindStringSubmatch(compact); m != nil {
		// Both halves must be known, otherwise words like TRYING pass
		if currencies[m[1]] && currencies[m[2]] {
			return compact, true
		}
	}
	return "", false
}

func (d *SymbolDetector) mapped(code string) string {
	if m, ok := d.mappings[code]; ok && m != "" {
		return m
	}
	return code
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
