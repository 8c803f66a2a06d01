package signal

import (
	"fmt"
	"strings"

	"forex-signalsv1/internal/model"
)

// FormatSignal renders a trade signal as the notification text.
func FormatSignal(s *model.TradeSignal) string {
	head := "🟢 BUY"
	if s.Direction == model.DirectionSell {
		head = "🔴 SELL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]\n", head, s.Pair, s.Scenario)
	fmt.Fprintf(&b, "Strength Diff: %d\n", s.StrengthDiff)
	fmt.Fprintf(&b, "H1 RSI: %.1f | M15 RSI: %.1f\n", s.H1RSI, s.M15RSI)
	fmt.Fprintf(&b, "Entry: %.5f | SL: %.5f | ATR: %.5f\n", s.Entry, s.StopLoss, s.ATR)
	b.WriteString("TPs:")
	for i, tp := range s.TakeProfits {
		fmt.Fprintf(&b, " TP%d:%.5f", i+1, tp)
	}
	return b.String()
}
