// Package invoice computes invoice totals and numbers.
package invoice

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

const (
	numberPrefix         = "INV"
	numberSequenceDigits = 4
	minorUnitsPerMajor   = 100
	representationSnap   = 1e6
)

var ErrInvalidNumber = errors.New("invoice: invalid number")

// Line is a billed quantity at a unit price.
type Line struct {
	Quantity  float64
	UnitPrice float64
}

// Totals are the stage amounts of an invoice, each rounded to two decimals.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	Total          float64 `json:"total"`
}

// RoundAmount rounds half away from zero to two decimals. Binary
// representation error below a millionth of a halala is discarded first, so
// 1.005 rounds to 1.01.
func RoundAmount(value float64) float64 {
	return fromMinorUnits(toMinorUnits(value))
}

// Calculate applies discount then tax to the sum of lines. Every stage is
// rounded to whole halalas before the next stage consumes it.
func Calculate(lines []Line, discountRate float64, taxRate float64) Totals {
	var rawSubtotal float64
	for _, line := range lines {
		rawSubtotal += line.Quantity * line.UnitPrice
	}
	subtotal := toMinorUnits(rawSubtotal)
	discountAmount := roundMinorUnits(float64(subtotal) * discountRate / 100)
	taxableAmount := subtotal - discountAmount
	taxAmount := roundMinorUnits(float64(taxableAmount) * taxRate / 100)
	total := taxableAmount + taxAmount
	return Totals{
		Subtotal:       fromMinorUnits(subtotal),
		DiscountAmount: fromMinorUnits(discountAmount),
		TaxableAmount:  fromMinorUnits(taxableAmount),
		TaxAmount:      fromMinorUnits(taxAmount),
		Total:          fromMinorUnits(total),
	}
}

func toMinorUnits(amount float64) int64 {
	return roundMinorUnits(amount * minorUnitsPerMajor)
}

func roundMinorUnits(minorUnits float64) int64 {
	snapped := math.Round(minorUnits*representationSnap) / representationSnap
	return int64(math.Round(snapped))
}

func fromMinorUnits(minorUnits int64) float64 {
	return float64(minorUnits) / minorUnitsPerMajor
}

// LinesFromItems converts stored invoice items into calculation lines.
func LinesFromItems(items []model.InvoiceItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return lines
}

// Apply recomputes and stores the totals of invoice from its items and rates.
func Apply(invoice *model.Invoice) Totals {
	totals := Calculate(LinesFromItems(invoice.Items), invoice.DiscountRate, invoice.TaxRate)
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.TaxableAmount = totals.TaxableAmount
	invoice.TaxAmount = totals.TaxAmount
	invoice.Total = totals.Total
	return totals
}

// FormatNumber renders the invoice number for a year and yearly sequence.
func FormatNumber(year int, sequence int) string {
	return fmt.Sprintf("%s-%d-%0*d", numberPrefix, year, numberSequenceDigits, sequence)
}

// NumberPrefix is the prefix shared by every invoice number issued in year.
func NumberPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", numberPrefix, year)
}

// ParseNumber splits an invoice number into its year and sequence.
func ParseNumber(number string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) != 3 || parts[0] != numberPrefix || len(parts[2]) < numberSequenceDigits {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	year, yearErr := strconv.Atoi(parts[1])
	sequence, sequenceErr := strconv.Atoi(parts[2])
	if yearErr != nil || sequenceErr != nil || sequence < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	return year, sequence, nil
}
