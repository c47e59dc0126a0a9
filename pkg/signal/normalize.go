package signal

import (
	"sort"
	"strings"

	"golang.org/x/text/width"
)

// DefaultTextAliases are instrument nicknames rewritten before any pattern
// runs, matched against the upper cased message.
var DefaultTextAliases = map[string]string{
	"US30": "DJIUSD",
}

// digits maps Persian and Arabic-Indic digits and separators to ASCII.
var digits = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".",
)

// Text is a message prepared for matching. Stop loss and take profit rules
// read Lower, everything else reads Upper.
type Text struct {
	Upper string
	Lower string
}

type Normalizer struct {
	aliases *strings.Replacer
}

// NewNormalizer builds a normalizer from an alias table; nil selects
// DefaultTextAliases.
func NewNormalizer(aliases map[string]string) *Normalizer {
	if aliases == nil {
		aliases = DefaultTextAliases
	}
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	// Longer aliases first so the replacer never prefers a prefix.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, strings.ToUpper(k), strings.ToUpper(aliases[k]))
	}
	return &Normalizer{aliases: strings.NewReplacer(pairs...)}
}

func (n *Normalizer) Normalize(raw string) Text {
	if raw == "" {
		return Text{}
	}
	s := width.Narrow.String(raw)
	s = digits.Replace(s)
	upper := n.aliases.Replace(strings.ToUpper(s))
	return Text{
		Upper: upper,
		Lower: strings.ToLower(upper),
	}
}
