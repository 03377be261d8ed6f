package cli

import (
	"fmt"
	"io"
	"strings"

	"donation_backend/internal/card"
)

const barWidth = 30

func printCard(out io.Writer, c card.Card) {
	fmt.Fprintf(out, "[%s] %s\n", c.Label, c.Amount)
	fmt.Fprintf(out, "  ID         : %s\n", c.TransactionID)
	fmt.Fprintf(out, "  Sisa waktu : %s %s\n", c.RemainingText, bar(c.Progress))
	fmt.Fprintf(out, "  Berlaku    : %s\n", c.ExpiresAt)
	fmt.Fprintf(out, "  QR         : %s\n", c.QRImageURL)
}

func printTick(out io.Writer, c card.Card) {
	fmt.Fprintf(out, "  %s %s\n", c.RemainingText, bar(c.Progress))
}

func bar(progress float64) string {
	n := int(progress / 100 * barWidth)
	n = min(barWidth, max(0, n))
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", barWidth-n) + "]"
}
