package invoice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

func TestCalculateStandardVAT(t *testing.T) {
	totals := Calculate([]Line{{Quantity: 10, UnitPrice: 5000}}, 0, 15)
	require.Equal(t, Totals{
		Subtotal:       50000,
		DiscountAmount: 0,
		TaxableAmount:  50000,
		TaxAmount:      7500,
		Total:          57500,
	}, totals)
}

func TestCalculateAppliesDiscountBeforeTax(t *testing.T) {
	totals := Calculate([]Line{{Quantity: 2, UnitPrice: 12500}, {Quantity: 1, UnitPrice: 25000}}, 10, 15)
	require.Equal(t, 50000.0, totals.Subtotal)
	require.Equal(t, 5000.0, totals.DiscountAmount)
	require.Equal(t, 45000.0, totals.TaxableAmount)
	require.Equal(t, 6750.0, totals.TaxAmount)
	require.Equal(t, 51750.0, totals.Total)
}

func TestCalculateMatchesClosedForm(t *testing.T) {
	testCases := []struct {
		lines        []Line
		discountRate float64
		taxRate      float64
	}{
		{lines: []Line{{Quantity: 3, UnitPrice: 333.33}}, discountRate: 7.5, taxRate: 15},
		{lines: []Line{{Quantity: 1.5, UnitPrice: 1999.99}, {Quantity: 4, UnitPrice: 12.35}}, discountRate: 12, taxRate: 5},
		{lines: []Line{{Quantity: 1, UnitPrice: 0.01}}, discountRate: 0, taxRate: 15},
		{lines: []Line{{Quantity: 12, UnitPrice: 850000}}, discountRate: 3.25, taxRate: 15},
	}
	for _, testCase := range testCases {
		var subtotal float64
		for _, line := range testCase.lines {
			subtotal += line.Quantity * line.UnitPrice
		}
		expected := subtotal * (1 - testCase.discountRate/100) * (1 + testCase.taxRate/100)
		totals := Calculate(testCase.lines, testCase.discountRate, testCase.taxRate)
		require.InDelta(t, expected, totals.Total, 0.02)
		require.InDelta(t, totals.TaxableAmount+totals.TaxAmount, totals.Total, 1e-9)
	}
}

func TestCalculateEmptyLines(t *testing.T) {
	require.Equal(t, Totals{}, Calculate(nil, 10, 15))
}

func TestRoundAmount(t *testing.T) {
	testCases := []struct {
		value    float64
		expected float64
	}{
		{value: 2.345000001, expected: 2.35},
		{value: -2.345000001, expected: -2.35},
		{value: 9.999, expected: 10},
		{value: 0.125, expected: 0.13},
		{value: 1.005, expected: 1.01},
		{value: 2.675, expected: 2.68},
		{value: -1.005, expected: -1.01},
		{value: 1.0049, expected: 1},
	}
	for _, testCase := range testCases {
		require.Equal(t, testCase.expected, RoundAmount(testCase.value), "%v", testCase.value)
	}
}

func TestCalculateRoundsEachStageAtTies(t *testing.T) {
	totals := Calculate([]Line{{Quantity: 1, UnitPrice: 10.05}}, 50, 15)
	require.Equal(t, Totals{
		Subtotal:       10.05,
		DiscountAmount: 5.03,
		TaxableAmount:  5.02,
		TaxAmount:      0.75,
		Total:          5.77,
	}, totals)

	halved := Calculate([]Line{{Quantity: 3, UnitPrice: 0.335}}, 0, 10)
	require.Equal(t, 1.01, halved.Subtotal)
	require.Equal(t, 0.1, halved.TaxAmount)
	require.Equal(t, 1.11, halved.Total)
}

func TestApplyStoresTotals(t *testing.T) {
	invoice := model.Invoice{
		TaxRate: 15,
		Items: []model.InvoiceItem{
			{Quantity: 10, UnitPrice: 5000},
		},
	}
	totals := Apply(&invoice)
	require.Equal(t, 57500.0, invoice.Total)
	require.Equal(t, totals.TaxAmount, invoice.TaxAmount)
}

func TestFormatAndParseNumber(t *testing.T) {
	number := FormatNumber(2024, 7)
	require.Equal(t, "INV-2024-0007", number)
	require.Equal(t, "INV-2024-", NumberPrefix(2024))

	year, sequence, err := ParseNumber(number)
	require.NoError(t, err)
	require.Equal(t, 2024, year)
	require.Equal(t, 7, sequence)

	require.Equal(t, "INV-2024-12345", FormatNumber(2024, 12345))

	for _, invalid := range []string{"", "INV-2024", "BILL-2024-0001", "INV-2024-12", "INV-xx-0001", "INV-2024-0000"} {
		_, _, err = ParseNumber(invalid)
		require.ErrorIs(t, err, ErrInvalidNumber, invalid)
	}
}
