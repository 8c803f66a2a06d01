package model

import (
	"fmt"
	"strings"
)

// Pair is an ordered base/quote currency tuple, e.g. EUR_USD.
// A pair and its inverse are distinct identities; only pairs on the
// configured allow-list are evaluated, so EUR_USD and USD_EUR never
// both produce signals.
type Pair struct {
	Base  Currency
	Quote Currency
}

// ParsePair parses an "EUR_USD"-style identifier. Returns an error for a
// malformed identifier or a currency outside the tracked set; callers skip
// such pairs with a warning rather than aborting the pass.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "_")
	if !ok {
		return Pair{}, fmt.Errorf("pair %q: missing '_' separator", s)
	}
	p := Pair{Base: Currency(base), Quote: Currency(quote)}
	if !IsTracked(p.Base) || !IsTracked(p.Quote) {
		return Pair{}, fmt.Errorf("pair %q: currency outside tracked set", s)
	}
	return p, nil
}

// String returns the canonical "EUR_USD" form.
func (p Pair) String() string {
	return string(p.Base) + "_" + string(p.Quote)
}

// Inverse returns the economically related reversed pair.
func (p Pair) Inverse() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// Contains reports whether c is either side of the pair.
func (p Pair) Contains(c Currency) bool {
	return p.Base == c || p.Quote == c
}
