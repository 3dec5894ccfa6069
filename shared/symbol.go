package shared

import (
	"errors"
	"strings"
)

// Symbol represents a canonical instrument ticker.
type Symbol string

// NewSymbol canonicalizes and validates the provided ticker. Symbols are
// case-normalized to upper case, two symbols are equal iff their normalized
// values match.
func NewSymbol(value string) (Symbol, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New("symbol cannot be an empty string")
	}

	return Symbol(strings.ToUpper(trimmed)), nil
}

// String stringifies the provided symbol.
func (s Symbol) String() string {
	return string(s)
}
