package dashboard

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbolPrinter = message.NewPrinter(language.English)

// CurrencySymbol returns the narrow display symbol of an ISO-4217 code,
// or the code itself when it is unknown.
func CurrencySymbol(code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return symbolPrinter.Sprint(currency.NarrowSymbol(unit))
}

// FormatAmount renders an amount with its currency symbol and two decimals
func FormatAmount(amount decimal.Decimal, code string) string {
	symbol := CurrencySymbol(code)
	if symbol == code {
		return code + " " + amount.StringFixed(2)
	}
	return symbol + amount.StringFixed(2)
}
