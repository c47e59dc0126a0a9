// Package command recognizes operator commands posted as plain channel
// messages or replies, such as "edit sl" or "close half".
package command

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	None Kind = iota
	Edit
	Delete
	RiskFree
	TP
)

func (k Kind) String() string {
	switch k {
	case Edit:
		return "edit"
	case Delete:
		return "delete"
	case RiskFree:
		return "risk-free"
	case TP:
		return "tp"
	default:
		return "none"
	}
}

// Keywords holds lower case keyword lists per command. It is built once and
// never modified.
type Keywords struct {
	Edit     []string `yaml:"edit_keywords"`
	Delete   []string `yaml:"delete_keywords"`
	RiskFree []string `yaml:"risk_free_keywords"`
	TP       []string `yaml:"tp_keywords"`
}

type file struct {
	Commands Keywords `yaml:"message_commands"`
}

func Default() Keywords {
	return Keywords{
		Edit:     []string{"edit", "update sl", "move sl", "ویرایش", "تغییر حد"},
		Delete:   []string{"delete", "close", "cancel", "حذف", "ببند", "کنسل"},
		RiskFree: []string{"risk free", "riskfree", "ریسک فری", "سربه سر"},
		TP:       []string{"tp", "هدف"},
	}
}

// Load reads a keywords file. An empty path returns the default keywords.
func Load(path string) (Keywords, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("command: couldn't read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Keywords, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Keywords{}, fmt.Errorf("command: couldn't decode keywords: %w", err)
	}
	k := f.Commands
	k.Edit = lower(k.Edit)
	k.Delete = lower(k.Delete)
	k.RiskFree = lower(k.RiskFree)
	k.TP = lower(k.TP)
	return k, nil
}

// Match returns the first command whose keyword appears in text. Commands
// are checked in edit, delete, risk-free, tp order.
func (k Keywords) Match(text string) Kind {
	text = strings.ToLower(text)
	switch {
	case containsAny(text, k.Edit):
		return Edit
	case containsAny(text, k.Delete):
		return Delete
	case containsAny(text, k.RiskFree):
		return RiskFree
	case containsAny(text, k.TP):
		return TP
	}
	return None
}

// Has reports whether text contains one of the keywords of kind.
func (k Keywords) Has(kind Kind, text string) bool {
	text = strings.ToLower(text)
	switch kind {
	case Edit:
		return containsAny(text, k.Edit)
	case Delete:
		return containsAny(text, k.Delete)
	case RiskFree:
		return containsAny(text, k.RiskFree)
	case TP:
		return containsAny(text, k.TP)
	}
	return false
}

// IsHalf reports the "close half" modifier of a delete command.
func IsHalf(text string) bool {
	text = strings.ToLower(text)
	return strings.Contains(text, "half") || strings.Contains(text, "نصف")
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func lower(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
