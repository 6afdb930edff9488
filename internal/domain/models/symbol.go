package models

import (
	"fmt"
	"strings"
)

// Symbol is a case-normalized ticker identifier.
type Symbol string

// NormalizeSymbol trims whitespace and upper-cases s.
// It fails with ErrInvalidSymbol when nothing is left.
func NormalizeSymbol(s string) (Symbol, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	if n == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	return Symbol(n), nil
}

// ParseSymbols splits a comma separated list, normalizes each entry and drops
// blanks and duplicates while keeping first-seen order.
func ParseSymbols(list string) []Symbol {
	return DedupeSymbols(strings.Split(list, ","))
}

// DedupeSymbols normalizes raw and removes empty entries and duplicates.
func DedupeSymbols(raw []string) []Symbol {
	seen := make(map[Symbol]struct{}, len(raw))
	out := make([]Symbol, 0, len(raw))
	for _, r := range raw {
		s, err := NormalizeSymbol(r)
		if err != nil {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (s Symbol) String() string { return string(s) }
