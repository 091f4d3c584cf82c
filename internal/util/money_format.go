package util

import (
	"strconv"
	"strings"

	"jetstore/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands grouping, e.g. "1,234.50 RUB".
// Only the integer part goes through the printer; the digits stay exact.
func FormatMoney(m models.Money) string {
	s := m.Amount.StringFixed(m.Currency.Places())
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = printer.Sprintf("%d", n)
	}
	if frac != "" {
		whole += "." + frac
	}
	return sign + whole + " " + m.Currency.String()
}
