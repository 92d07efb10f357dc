package presentation

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// PriceOnRequest is shown instead of a zero or missing price.
const PriceOnRequest = "Price on Request"

const currencySymbol = "₹"

func newPricePrinter() *message.Printer {
	return message.NewPrinter(language.MustParse("en-IN"))
}

// priceLabel formats amount as rupees with locale digit grouping.
func (r *Renderer) priceLabel(amount float64) string {
	if amount <= 0 {
		return PriceOnRequest
	}
	return currencySymbol + r.printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}
