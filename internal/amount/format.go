package amount

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders a whole rupiah amount with Indonesian digit grouping,
// e.g. "Rp 25.000".
func FormatIDR(n int64) string {
	if n < 0 {
		return "-Rp " + idPrinter.Sprintf("%d", -n)
	}
	return "Rp " + idPrinter.Sprintf("%d", n)
}
