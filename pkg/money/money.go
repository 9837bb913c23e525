package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"usd": "$",
	"cad": "CA$",
	"aud": "A$",
	"gbp": "£",
	"eur": "€",
}

// FromCents converts minor units into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Format renders minor units for display, e.g. 4999/usd -> "$49.99".
// Unknown currencies fall back to the upper-cased ISO code as a suffix.
func Format(cents int64, currency string) string {
	amount := FromCents(cents).StringFixed(2)
	code := strings.ToLower(strings.TrimSpace(currency))
	if symbol, ok := symbols[code]; ok {
		if strings.HasPrefix(amount, "-") {
			return "-" + symbol + strings.TrimPrefix(amount, "-")
		}
		return symbol + amount
	}
	return amount + " " + strings.ToUpper(code)
}

// Percent returns part/whole*100 rounded to places decimals, capped at 100.
// A non-positive whole yields zero.
func Percent(part, whole int64, places int32) float64 {
	if whole <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(whole)).Round(places)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		pct = decimal.NewFromInt(100)
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	f, _ := pct.Float64()
	return f
}
