package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"

	DefaultInvoiceCurrency = "SAR"
	DefaultInvoiceTaxRate  = 15.0

	invoiceDescriptionMaxLength = 500
	invoiceNotesMaxLength       = 4000
	invoiceMaxItems             = 200
)

var (
	ErrInvalidInvoice           = errors.New("invalid_invoice")
	ErrInvalidInvoiceTransition = errors.New("invalid_invoice_transition")
)

var invoiceTransitions = map[string][]string{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// Invoice bills a client. Monetary totals are stored as computed at save time.
type Invoice struct {
	ID             string        `gorm:"primaryKey;size:36"`
	Number         string        `gorm:"not null;size:32;uniqueIndex"`
	ClientID       string        `gorm:"not null;size:36;index"`
	ProjectID      *string       `gorm:"size:36;index"`
	IssueDate      time.Time     `gorm:"not null;index"`
	DueDate        time.Time     `gorm:"not null"`
	Status         string        `gorm:"not null;size:16;index"`
	Currency       string        `gorm:"not null;size:3"`
	DiscountRate   float64       `gorm:"not null;default:0"`
	TaxRate        float64       `gorm:"not null;default:0"`
	Subtotal       float64       `gorm:"not null;default:0"`
	DiscountAmount float64       `gorm:"not null;default:0"`
	TaxableAmount  float64       `gorm:"not null;default:0"`
	TaxAmount      float64       `gorm:"not null;default:0"`
	Total          float64       `gorm:"not null;default:0"`
	Notes          string        `gorm:"size:4000"`
	PaidAt         *time.Time    `gorm:"index"`
	Items          []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time     `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime"`
}

// InvoiceItem is a single billed line.
type InvoiceItem struct {
	ID            string  `gorm:"primaryKey;size:36"`
	InvoiceID     string  `gorm:"not null;size:36;index"`
	Description   string  `gorm:"not null;size:500"`
	DescriptionEn string  `gorm:"size:500"`
	Quantity      float64 `gorm:"not null"`
	UnitPrice     float64 `gorm:"not null"`
	Position      int     `gorm:"not null;default:0"`
}

// InvoiceItemInput holds the raw values of one invoice line.
type InvoiceItemInput struct {
	Description   string
	DescriptionEn string
	Quantity      float64
	UnitPrice     float64
}

// InvoiceInput holds the raw values used to construct an Invoice.
// A nil TaxRate selects DefaultInvoiceTaxRate.
type InvoiceInput struct {
	ClientID     string
	ProjectID    string
	IssueDate    time.Time
	DueDate      time.Time
	Currency     string
	DiscountRate float64
	TaxRate      *float64
	Notes        string
	Items        []InvoiceItemInput
}

// NewInvoice validates input and returns a draft Invoice with fresh identifiers.
// The number and totals are assigned by the caller.
func NewInvoice(input InvoiceInput) (Invoice, error) {
	fieldErrors := FieldErrors{}

	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		fieldErrors.Add("client_id", FieldErrorRequired)
	}
	var projectID *string
	if trimmedProjectID := strings.TrimSpace(input.ProjectID); trimmedProjectID != "" {
		projectID = &trimmedProjectID
	}

	if input.IssueDate.IsZero() {
		fieldErrors.Add("issue_date", FieldErrorRequired)
	}
	if input.DueDate.IsZero() {
		fieldErrors.Add("due_date", FieldErrorRequired)
	} else if !input.IssueDate.IsZero() && input.DueDate.Before(input.IssueDate) {
		fieldErrors.Add("due_date", FieldErrorInvalidDateRange)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = DefaultInvoiceCurrency
	}
	if len(currency) != 3 {
		fieldErrors.Add("currency", FieldErrorInvalidValue)
	}

	if input.DiscountRate < 0 || input.DiscountRate > 100 {
		fieldErrors.Add("discount_rate", FieldErrorOutOfRange)
	}
	taxRate := DefaultInvoiceTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}
	if taxRate < 0 || taxRate > 100 {
		fieldErrors.Add("tax_rate", FieldErrorOutOfRange)
	}

	notes := limitText(fieldErrors, "notes", input.Notes, invoiceNotesMaxLength)

	invoiceID := newIdentifier()
	items := make([]InvoiceItem, 0, len(input.Items))
	if len(input.Items) == 0 {
		fieldErrors.Add("items", FieldErrorRequired)
	}
	if len(input.Items) > invoiceMaxItems {
		fieldErrors.Add("items", FieldErrorTooLong)
	}
	for index, itemInput := range input.Items {
		fieldPrefix := fmt.Sprintf("items[%d].", index)
		description := requireText(fieldErrors, fieldPrefix+"description", itemInput.Description, invoiceDescriptionMaxLength)
		descriptionEn := limitText(fieldErrors, fieldPrefix+"description_en", itemInput.DescriptionEn, invoiceDescriptionMaxLength)
		if itemInput.Quantity <= 0 {
			fieldErrors.Add(fieldPrefix+"quantity", FieldErrorMustBePositive)
		}
		if itemInput.UnitPrice < 0 {
			fieldErrors.Add(fieldPrefix+"unit_price", FieldErrorNegative)
		}
		items = append(items, InvoiceItem{
			ID:            newIdentifier(),
			InvoiceID:     invoiceID,
			Description:   description,
			DescriptionEn: descriptionEn,
			Quantity:      itemInput.Quantity,
			UnitPrice:     itemInput.UnitPrice,
			Position:      index,
		})
	}

	if err := validationResult(ErrInvalidInvoice, fieldErrors); err != nil {
		return Invoice{}, err
	}

	return Invoice{
		ID:           invoiceID,
		ClientID:     clientID,
		ProjectID:    projectID,
		IssueDate:    input.IssueDate.UTC(),
		DueDate:      input.DueDate.UTC(),
		Status:       InvoiceStatusDraft,
		Currency:     currency,
		DiscountRate: input.DiscountRate,
		TaxRate:      taxRate,
		Notes:        notes,
		Items:        items,
	}, nil
}

// CanTransition reports whether the invoice may move to status.
func (invoice Invoice) CanTransition(status string) bool {
	for _, allowed := range invoiceTransitions[invoice.Status] {
		if allowed == status {
			return true
		}
	}
	return false
}

// TransitionTo moves the invoice to status, stamping PaidAt when it is paid.
func (invoice *Invoice) TransitionTo(status string, now time.Time) error {
	normalized := strings.ToLower(strings.TrimSpace(status))
	if !invoice.CanTransition(normalized) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidInvoiceTransition, invoice.Status, normalized)
	}
	invoice.Status = normalized
	if normalized == InvoiceStatusPaid {
		paidAt := now.UTC()
		invoice.PaidAt = &paidAt
	}
	return nil
}

// IsOutstanding reports whether the invoice still awaits payment.
func (invoice Invoice) IsOutstanding() bool {
	return invoice.Status == InvoiceStatusSent || invoice.Status == InvoiceStatusOverdue
}

// IsPastDue reports whether an outstanding invoice passed its due date at now.
// The due date itself still counts as on time.
func (invoice Invoice) IsPastDue(now time.Time) bool {
	return invoice.IsOutstanding() && invoice.DueDate.Before(StartOfDay(now))
}

// StartOfDay is midnight UTC of the calendar day holding moment.
func StartOfDay(moment time.Time) time.Time {
	utc := moment.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
