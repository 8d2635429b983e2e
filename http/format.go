package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatMoney 金额加千分位，例如 $5,000
func formatMoney(amount int) string {
	return printer.Sprintf("$%d", amount)
}

// formatPercent 置信度转为百分比
func formatPercent(ratio float64) string {
	return printer.Sprintf("%.0f%%", ratio*100)
}
