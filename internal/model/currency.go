package model

// Currency is a currency symbol from the fixed tracked set (e.g. "EUR").
// Identity is the symbol string itself.
type Currency string

// TrackedCurrencies is the closed set of currencies the evaluator scores.
// Ordering is cosmetic (used for display); membership is what matters.
var TrackedCurrencies = []Currency{"EUR", "GBP", "USD", "JPY", "CHF", "AUD", "NZD", "CAD"}

// IsTracked reports whether c belongs to the tracked currency set.
func IsTracked(c Currency) bool {
	for _, t := range TrackedCurrencies {
		if c == t {
			return true
		}
	}
	return false
}
