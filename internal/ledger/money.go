package ledger

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Epsilon absorbs floating point residue when deciding whether a balance is
// settled. Never compare balances against zero exactly.
const Epsilon = 0.01

var printer = message.NewPrinter(language.English)

// Round2 rounds an amount to cents, half away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func IsSettled(v float64) bool {
	return math.Abs(v) <= Epsilon
}

// FormatCurrency renders an amount in the single unit of account, e.g. "$20.00".
func FormatCurrency(v float64) string {
	return printer.Sprintf("$%.2f", Round2(v))
}
