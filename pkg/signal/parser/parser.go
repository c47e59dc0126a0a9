package parser

import (
	"errors"

	"github.com/igolaizola/sigtrader/pkg/signal"
	"github.com/igolaizola/sigtrader/pkg/signal/parser/json"
)

var ErrNotFound = errors.New("parser: not found")

// NewParser returns a parser by name. Mappings only apply to the cascade
// parser.
func NewParser(name string, mappings map[string]string) (signal.Parser, error) {
	switch name {
	case "json":
		return json.Parser{}, nil
	case "", "cascade":
		return signal.NewParser(signal.WithSymbolAliases(mappings))
	default:
		return nil, ErrNotFound
	}
}
