package signal

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// rule is a single pattern of a cascade. groups lists the capture groups
// that may hold the value; the first non empty one is used.
type rule struct {
	re     *regexp.Regexp
	groups []int
}

func newRule(expr string, groups ...int) rule {
	if len(groups) == 0 {
		groups = []int{1}
	}
	return rule{re: regexp.MustCompile(expr), groups: groups}
}

func (r rule) find(s string) decimal.NullDecimal {
	m := r.re.FindStringSubmatch(s)
	if m == nil {
		return decimal.NullDecimal{}
	}
	return r.value(m)
}

func (r rule) value(m []string) decimal.NullDecimal {
	for _, g := range r.groups {
		if g < len(m) && m[g] != "" {
			return parsePrice(m[g])
		}
	}
	return decimal.NullDecimal{}
}

// cascade returns the value of the first rule that yields one.
func cascade(rules []rule, s string) decimal.NullDecimal {
	for _, r := range rules {
		if v := r.find(s); v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}

// parsePrice parses a base 10 number. Anything that isn't a positive number
// is treated as absent.
func parsePrice(s string) decimal.NullDecimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// The generic number rule goes first: the normalizer has already rewritten
// instrument names that carry digits.
var entryRules = []rule{
	newRule(`(\d+(?:\.\d+)?)`),
	newRule(`(\d+\.\d+)`),
	newRule(`@ (\d+\.\d+)`),
	newRule(`@\s*([0-9]+(?:\.[0-9]+)?)`),
}

var secondRules = []rule{
	newRule(`(\d+\.?\d*)[_\x{FF3F}]+(\d+\.?\d*)`, 2),
	newRule(`(\d+\.?\d*)\s*[:\-]\s*(\d+\.?\d*)`, 2),
	newRule(`\b\d+\.?\d*///(\d+\.?\d*)`),
	newRule(`@\d+\.?\d*\s*-\s*(\d+\.?\d*)`),
	newRule(`(?i)2(?:nd)?\s+limit\s*@\s*(\d+\.?\d*)`),
	newRule(`\b\d+\.?\d*__+(\d+\.?\d*)`),
	newRule(`@\s*\d+\.?\d*\s*-\s*(\d+\.?\d*)`),
	newRule(`@\s*\d+\.?\d*\s*-\s*(\d+\.?\d*)|:\s*\d+\.?\d*\s*-\s*(\d+\.?\d*)`, 1, 2),
	newRule(`\b\d+\.?\d*\s*-\s*(\d+\.?\d*)`),
	newRule(`\b\d+\b\s*و\s*(\d+)\s*فروش`),
	newRule(`\b\d+\b\s*و\s*(\d+)\s*خرید`),
	newRule(`\b\d+\.?\d*/(\d+\.?\d*)`),
	newRule(`=\s*(\d+\.?\d*)`),
	newRule(`(?:\d+\.\d+)[^\d]+(\d+\.\d+)`),
	// Last resort: two numbers close to each other.
	newRule(`(\d+\.?\d*)\D{1,3}(\d+\.?\d*)`, 2),
}

var stopLossKeywords = []string{
	`sl`,
	`stop\s*loss`,
	`stoploss`,
	`stop`,
	`استاپ`,
	`حد\s*ضرر`,
	`ضرر`,
	`حد`,
}

var (
	stopLossRule = newRule(`(?:` + strings.Join(stopLossKeywords, "|") + `)\s*[:@=\-]*\s*(\d+(?:\.\d+)?)`)
	// Reversed phrasing: "1.2450 sl".
	stopLossFallback = newRule(`(\d+(?:\.\d+)?)\s*(?:sl|stop)`)
)

// tpRule collects every match on a line. When split is set the capture holds
// a list of integers.
type tpRule struct {
	re    *regexp.Regexp
	group int
	split *regexp.Regexp
	// exclusive rules replace everything collected so far.
	exclusive bool
}

func newTPRule(expr string, group int) tpRule {
	return tpRule{re: regexp.MustCompile(expr), group: group}
}

var (
	lineSplit    = regexp.MustCompile(`\n+`)
	integerRegex = regexp.MustCompile(`^\d+$`)
)

var tpRules = []tpRule{
	newTPRule(`tp\s*\d*\s*[@:.\-]?\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`tp\s*(?:\d*\s*:\s*)?(\d+\.\d+)`, 1),
	newTPRule(`\btp\b\s*[:\-@.]?\s*(\d+(?:\.\d+)?)`, 1),
	newTPRule(`tp\s*:\s*(\d+\.?\d*)`, 1),
	newTPRule(`tp1\s*:\s*(\d+\.?\d*)`, 1),
	newTPRule(`tp1\s*(\d+\.?\d*)`, 1),
	newTPRule(`tp\s*[-:]\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`tp\s*1\s*[-:]\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`checkpoint\s*1\s*:\s*(\d+\.?\d*|open)`, 1),
	newTPRule(`takeprofit\s*1\s*=\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`take\s*profit\s*1\s*:\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`tp\d+\.\s*(\d+\.?\d*)`, 1),
	newTPRule(`tp\.\s*(\d+\.?\d*)`, 1),
	newTPRule(`tp\.(\d+\.?\d*)`, 1),
	newTPRule(`تی پی\s*(\d+)`, 1),
	newTPRule(`take\s*profit\s*\d+\s*[-:]\s*(\d+\.\d+|\d+)`, 1),
	newTPRule(`tp(\d+)\s*[:\-]?\s*(\d+\.\d+|\d+)`, 2),
	{
		re:        regexp.MustCompile(`تی پی\s*([\d\s,،]+)`),
		group:     1,
		split:     regexp.MustCompile(`[,\s،]+`),
		exclusive: true,
	},
	{
		re:    regexp.MustCompile(`(?:تارگت|هدف)\s*([\d\-–—\s]+)`),
		group: 1,
		split: regexp.MustCompile(`[\-–—\s]+`),
	},
}

func (r tpRule) collect(line string) ([]decimal.Decimal, bool) {
	var values []decimal.Decimal
	matches := r.re.FindAllStringSubmatch(line, -1)
	for _, m := range matches {
		if r.group >= len(m) {
			continue
		}
		if r.split == nil {
			if v := parsePrice(m[r.group]); v.Valid {
				values = append(values, v.Decimal)
			}
			continue
		}
		for _, part := range r.split.Split(m[r.group], -1) {
			part = strings.TrimSpace(part)
			if !integerRegex.MatchString(part) {
				continue
			}
			if v := parsePrice(part); v.Valid {
				values = append(values, v.Decimal)
			}
		}
	}
	return values, len(matches) > 0
}

// sentinel is produced by generic take profit rules and is never a price.
var sentinel = decimal.NewFromInt(1)

type PriceExtractor struct {
	entry    []rule
	second   []rule
	stopLoss []rule
	tp       []tpRule
}

func NewPriceExtractor() *PriceExtractor {
	return &PriceExtractor{
		entry:    entryRules,
		second:   secondRules,
		stopLoss: []rule{stopLossRule, stopLossFallback},
		tp:       tpRules,
	}
}

func (p *PriceExtractor) EntryPrice(t Text) decimal.NullDecimal {
	return cascade(p.entry, maskTickers(t.Upper))
}

func (p *PriceExtractor) SecondPrice(t Text) decimal.NullDecimal {
	return cascade(p.second, maskTickers(t.Upper))
}

func (p *PriceExtractor) StopLoss(t Text) decimal.NullDecimal {
	return cascade(p.stopLoss, maskTickers(t.Lower))
}

var (
	indexToken = regexp.MustCompile(`(?i)\b(?:` + indexPrefixes + `)\d{2,4}\b`)
	digitRun   = regexp.MustCompile(`\d+`)
)

// maskTickers drops the digits of index tickers so "GER40 BUY 18000" can't
// be read as a price of 40.
func maskTickers(s string) string {
	return indexToken.ReplaceAllStringFunc(s, func(tok string) string {
		return digitRun.ReplaceAllString(tok, "")
	})
}

// TakeProfits gathers values from every rule on every line, in first seen
// order without duplicates. It returns nil when nothing but the sentinel was
// found.
func (p *PriceExtractor) TakeProfits(t Text) []decimal.Decimal {
	if t.Lower == "" {
		return nil
	}
	var values []decimal.Decimal
	for _, line := range lineSplit.Split(t.Lower, -1) {
		for _, r := range p.tp {
			found, ok := r.collect(line)
			if r.exclusive && ok {
				return uniqueTakeProfits(found)
			}
			values = append(values, found...)
		}
	}
	return uniqueTakeProfits(values)
}

func uniqueTakeProfits(values []decimal.Decimal) []decimal.Decimal {
	var out []decimal.Decimal
	for _, v := range values {
		if v.Equal(sentinel) || containsDecimal(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsDecimal(values []decimal.Decimal, v decimal.Decimal) bool {
	for _, x := range values {
		if x.Equal(v) {
			return true
		}
	}
	return false
}
