package market

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is the currency rates are quoted in
const DefaultCurrency = "EGP"

var printer = message.NewPrinter(language.English)

// FormatCurrency renders amount with no fraction digits, e.g. "EGP 1,235".
// An empty code means EGP; an unknown code is an error.
func FormatCurrency(amount float64, code string) (string, error) {
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("[FormatCurrency] unknown currency %q: %w", code, err)
	}

	n := int64(math.Floor(math.Abs(amount) + 0.5))
	sign := ""
	if amount < 0 && n != 0 {
		sign = "-"
	}
	return sign + printer.Sprintf("%s %d", unit.String(), n), nil
}
