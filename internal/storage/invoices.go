package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/invoice"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

const maxInvoiceNumberAttempts = 5

// ErrInvoiceNumberUnavailable indicates every candidate invoice number was already taken.
var ErrInvoiceNumberUnavailable = errors.New("storage: invoice number unavailable")

// NextInvoiceNumber proposes the next number for invoices issued in year:
// the highest sequence already issued that year, plus one. Deleted drafts
// leave gaps that are never reused.
func NextInvoiceNumber(ctx context.Context, database *gorm.DB, year int) (string, error) {
	var highest []string
	if err := database.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("number LIKE ?", invoice.NumberPrefix(year)+"%").
		Order("LENGTH(number) DESC").
		Order("number DESC").
		Limit(1).
		Pluck("number", &highest).Error; err != nil {
		return "", err
	}
	if len(highest) == 0 {
		return invoice.FormatNumber(year, 1), nil
	}
	_, sequence, err := invoice.ParseNumber(highest[0])
	if err != nil {
		return "", err
	}
	return invoice.FormatNumber(year, sequence+1), nil
}

// CreateInvoice numbers record and inserts it with its items, moving to the
// following sequence when a concurrent insert took the proposed number.
func CreateInvoice(ctx context.Context, database *gorm.DB, record *model.Invoice) error {
	year := record.IssueDate.Year()
	proposed, err := NextInvoiceNumber(ctx, database, year)
	if err != nil {
		return err
	}
	_, sequence, err := invoice.ParseNumber(proposed)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxInvoiceNumberAttempts; attempt++ {
		record.Number = invoice.FormatNumber(year, sequence+attempt)
		createErr := database.WithContext(ctx).Create(record).Error
		if createErr == nil {
			return nil
		}
		if !IsDuplicateKey(createErr) {
			return createErr
		}
	}
	return fmt.Errorf("%w: %d", ErrInvoiceNumberUnavailable, year)
}
