// Package templates holds the HTML pages of the application.
package templates

import (
	"embed"
	"html/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed *.html
var files embed.FS

// Parse loads every page with the shared helper functions.
func Parse() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(files, "*.html")
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"usd": USD,
		"abs": func(n int64) int64 {
			if n < 0 {
				return -n
			}
			return n
		},
	}
}

// USD formats an amount as US dollars, rounded to the cent. Amounts whose
// cents overflow int64 are printed without grouping.
func USD(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		if d.IsNegative() {
			return "-$" + d.Abs().StringFixed(2)
		}
		return "$" + d.StringFixed(2)
	}
	return money.New(cents.IntPart(), money.USD).Display()
}
