package handlers

import (
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Display helpers. JSON payloads always carry raw numbers.
var templateFuncs = template.FuncMap{
	"money": func(v float64) string { return printer.Sprintf("SAR %.0f", v) },
	"num":   func(v any) string { return printer.Sprintf("%d", v) },
	"pct":   func(v float64) string { return printer.Sprintf("%+.1f%%", v) },
	"dec":   func(v float64) string { return printer.Sprintf("%.2f", v) },
	"inc":   func(i int) int { return i + 1 },
}
