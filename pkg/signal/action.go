package signal

import (
	"regexp"
	"strings"
)

// actionRule.find returns the byte offset of the first cue, -1 when absent.
type actionRule struct {
	action Action
	find   func(Text) int
}

func keywordRule(action Action, re *regexp.Regexp) actionRule {
	return actionRule{action: action, find: func(t Text) int {
		if loc := re.FindStringIndex(t.Upper); loc != nil {
			return loc[0]
		}
		return -1
	}}
}

func substringRule(action Action, words ...string) actionRule {
	return actionRule{action: action, find: func(t Text) int {
		pos := -1
		for _, w := range words {
			if i := strings.Index(t.Upper, w); i >= 0 && (pos < 0 || i < pos) {
				pos = i
			}
		}
		return pos
	}}
}

// actionRules break ties between cues at the same offset: English before
// Persian, buy before sell.
var actionRules = []actionRule{
	keywordRule(Buy, regexp.MustCompile(`\b(?:BUY|LONG)(?:LIMIT|STOP)?\b`)),
	keywordRule(Sell, regexp.MustCompile(`\b(?:SELL|SHORT)(?:LIMIT|STOP)?\b`)),
	substringRule(Buy, "خرید", "بخر", "لانگ"),
	substringRule(Sell, "فروش", "بفروش", "شورت"),
}

type ActionDetector struct {
	rules []actionRule
}

func NewActionDetector() *ActionDetector {
	return &ActionDetector{rules: actionRules}
}

// Detect returns the action of the earliest cue in the message, so
// "sell now, buy back later" is a sell.
func (d *ActionDetector) Detect(t Text) Action {
	action, pos := Unknown, -1
	for _, r := range d.rules {
		if i := r.find(t); i >= 0 && (pos < 0 || i < pos) {
			action, pos = r.action, i
		}
	}
	return action
}
