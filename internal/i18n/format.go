package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var arabicMonthNames = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

func printerFor(lang string) *message.Printer {
	if Normalize(lang, DefaultLanguage) == LanguageEnglish {
		return message.NewPrinter(language.English)
	}
	return message.NewPrinter(language.Arabic)
}

func formatNumber(lang string, amount float64) string {
	return printerFor(lang).Sprint(number.Decimal(amount, number.Scale(2)))
}

// FormatMoney renders amount followed by the localized currency label.
// Unknown currency codes are rendered as given.
func FormatMoney(lang string, amount float64, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	label := Label(lang, "currency", code)
	return fmt.Sprintf("%s %s", formatNumber(lang, amount), label)
}

// FormatDate renders a calendar date in lang.
func FormatDate(lang string, value time.Time) string {
	if value.IsZero() {
		return ""
	}
	if Normalize(lang, DefaultLanguage) == LanguageEnglish {
		return value.Format("January 2, 2006")
	}
	return fmt.Sprintf("%d %s %d", value.Day(), arabicMonthNames[value.Month()-1], value.Year())
}
