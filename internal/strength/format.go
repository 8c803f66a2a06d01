package strength

import (
	"fmt"
	"strings"

	"forex-signalsv1/internal/model"
)

// FormatAlert renders the rank table for the periodic strength notification.
func FormatAlert(ranks model.RankMap) string {
	var b strings.Builder
	b.WriteString("📊 Currency Strength Alert 📊\n")
	b.WriteString("Currency Strength Rankings (+7 strongest → -7 weakest):\n")
	for _, cur := range ranks.Sorted() {
		fmt.Fprintf(&b, "%s: %+d\n", cur, ranks[cur])
	}
	return b.String()
}

// Extremes returns the currencies whose absolute rank meets the threshold,
// the candidate set for trade-signal evaluation.
func Extremes(ranks model.RankMap, minAbs int) model.RankMap {
	out := make(model.RankMap)
	for cur, r := range ranks {
		if r >= minAbs || r <= -minAbs {
			out[cur] = r
		}
	}
	return out
}
