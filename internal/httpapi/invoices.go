package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/invoice"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

const (
	logEventListInvoices        = "list_invoices"
	logEventLoadInvoice         = "load_invoice"
	logEventCreateInvoice       = "create_invoice"
	logEventUpdateInvoiceStatus = "update_invoice_status"
	logEventDeleteInvoice       = "delete_invoice"
)

var invoiceAccessors = listing.Accessors[model.Invoice]{
	ScopeKey: func(record model.Invoice) string { return record.ClientID },
	Text:     func(record model.Invoice) []string { return []string{record.Number, record.Notes} },
	Status:   func(record model.Invoice) string { return record.Status },
}

type InvoiceHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
	clock      func() time.Time
}

type invoiceItemRequest struct {
	Description   string  `json:"description"`
	DescriptionEn string  `json:"description_en"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
}

type invoiceRequest struct {
	ClientID     string               `json:"client_id"`
	ProjectID    string               `json:"project_id"`
	IssueDate    *string              `json:"issue_date"`
	DueDate      *string              `json:"due_date"`
	Currency     string               `json:"currency"`
	DiscountRate float64              `json:"discount_rate"`
	TaxRate      *float64             `json:"tax_rate"`
	Notes        string               `json:"notes"`
	Items        []invoiceItemRequest `json:"items"`
}

type invoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type invoiceItemResponse struct {
	ID            string  `json:"id"`
	Description   string  `json:"description"`
	DescriptionEn string  `json:"description_en"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	Amount        float64 `json:"amount"`
}

type invoiceResponse struct {
	ID           string  `json:"id"`
	Number       string  `json:"number"`
	ClientID     string  `json:"client_id"`
	ProjectID    *string `json:"project_id"`
	IssueDate    string  `json:"issue_date"`
	DueDate      string  `json:"due_date"`
	Status       string  `json:"status"`
	StatusLabel  string  `json:"status_label"`
	Currency     string  `json:"currency"`
	DiscountRate float64 `json:"discount_rate"`
	TaxRate      float64 `json:"tax_rate"`
	invoice.Totals
	TotalDisplay string                `json:"total_display"`
	Notes        string                `json:"notes"`
	PaidAt       *time.Time            `json:"paid_at"`
	PastDue      bool                  `json:"past_due"`
	Items        []invoiceItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

type invoicePreviewResponse struct {
	invoice.Totals
	Currency     string `json:"currency"`
	TotalDisplay string `json:"total_display"`
}

func NewInvoiceHandlers(database *gorm.DB, logger *zap.Logger) *InvoiceHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, 0),
		clock:      time.Now,
	}
}

func (handlers *InvoiceHandlers) ListInvoices(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	var query listQuery
	if !bindQuery(context, &query) {
		return
	}

	criteria, criteriaErr := handlers.visibility.clientCriteria(context.Request.Context(), currentUser, false)
	if criteriaErr != nil {
		handlers.logger.Warn(logEventListInvoices, zap.Error(criteriaErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	invoiceQuery := handlers.database.WithContext(context.Request.Context()).Model(&model.Invoice{})
	if clientID := strings.TrimSpace(query.ClientID); clientID != "" {
		invoiceQuery = invoiceQuery.Where("client_id = ?", clientID)
	}
	var records []model.Invoice
	if err := invoiceQuery.Order("issue_date desc").Order("number desc").Find(&records).Error; err != nil {
		handlers.logger.Warn(logEventListInvoices, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	criteria.Search = query.Search
	criteria.Status = query.Status
	page := listing.Paginate(listing.Filter(records, invoiceAccessors, criteria), query.Page, query.Limit)

	now := handlers.clock()
	lang := LanguageFromContext(context)
	responses := make([]invoiceResponse, 0, len(page.Items))
	for _, record := range page.Items {
		responses = append(responses, toInvoiceResponse(record, lang, now))
	}
	respondPage(context, listing.Page[invoiceResponse]{
		Items:      responses,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (handlers *InvoiceHandlers) GetInvoice(context *gin.Context) {
	record, ok := handlers.loadVisibleInvoice(context, true)
	if !ok {
		return
	}
	respondData(context, http.StatusOK, toInvoiceResponse(record, LanguageFromContext(context), handlers.clock()))
}

// PreviewInvoice validates the payload and returns its totals without saving.
func (handlers *InvoiceHandlers) PreviewInvoice(context *gin.Context) {
	var payload invoiceRequest
	if !bindJSON(context, &payload) {
		return
	}

	parseErrors := model.FieldErrors{}
	record, buildErr := model.NewInvoice(payload.toInput(parseErrors))
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}

	totals := invoice.Apply(&record)
	respondData(context, http.StatusOK, invoicePreviewResponse{
		Totals:       totals,
		Currency:     record.Currency,
		TotalDisplay: i18n.FormatMoney(LanguageFromContext(context), totals.Total, record.Currency),
	})
}

func (handlers *InvoiceHandlers) CreateInvoice(context *gin.Context) {
	var payload invoiceRequest
	if !bindJSON(context, &payload) {
		return
	}

	parseErrors := model.FieldErrors{}
	record, buildErr := model.NewInvoice(payload.toInput(parseErrors))
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}
	if !handlers.requireBillingTarget(context, record) {
		return
	}

	invoice.Apply(&record)
	if err := storage.CreateInvoice(context.Request.Context(), handlers.database, &record); err != nil {
		handlers.logger.Warn(logEventCreateInvoice, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	respondData(context, http.StatusCreated, toInvoiceResponse(record, LanguageFromContext(context), handlers.clock()))
}

func (handlers *InvoiceHandlers) UpdateInvoiceStatus(context *gin.Context) {
	record, ok := handlers.loadVisibleInvoice(context, false)
	if !ok {
		return
	}

	var payload invoiceStatusRequest
	if !bindJSON(context, &payload) {
		return
	}

	now := handlers.clock()
	if err := record.TransitionTo(payload.Status, now); err != nil {
		respondDomainError(context, err)
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).
		Model(&model.Invoice{ID: record.ID}).
		Updates(map[string]any{"status": record.Status, "paid_at": record.PaidAt}).Error; err != nil {
		handlers.logger.Warn(logEventUpdateInvoiceStatus, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	respondData(context, http.StatusOK, toInvoiceResponse(record, LanguageFromContext(context), now))
}

// DeleteInvoice removes a draft invoice. Issued invoices are cancelled instead.
func (handlers *InvoiceHandlers) DeleteInvoice(context *gin.Context) {
	record, ok := handlers.loadVisibleInvoice(context, false)
	if !ok {
		return
	}
	if record.Status != model.InvoiceStatusDraft {
		respondError(context, http.StatusConflict, errorValueInvalidTransition)
		return
	}

	deleteErr := handlers.database.WithContext(context.Request.Context()).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("invoice_id = ?", record.ID).Delete(&model.InvoiceItem{}).Error; err != nil {
			return err
		}
		return transaction.Delete(&model.Invoice{ID: record.ID}).Error
	})
	if deleteErr != nil {
		handlers.logger.Warn(logEventDeleteInvoice, zap.Error(deleteErr))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *InvoiceHandlers) loadVisibleInvoice(context *gin.Context, withItems bool) (model.Invoice, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return model.Invoice{}, false
	}

	query := handlers.database.WithContext(context.Request.Context())
	if withItems {
		query = query.Preload("Items", func(itemQuery *gorm.DB) *gorm.DB {
			return itemQuery.Order("position")
		})
	}
	var record model.Invoice
	if err := query.First(&record, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.Invoice{}, false
		}
		handlers.logger.Warn(logEventLoadInvoice, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Invoice{}, false
	}

	visible, visibilityErr := handlers.visibility.canSeeClient(context.Request.Context(), currentUser, record.ClientID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventLoadInvoice, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Invoice{}, false
	}
	if !visible {
		respondError(context, http.StatusNotFound, errorValueNotFound)
		return model.Invoice{}, false
	}
	return record, true
}

// requireBillingTarget checks the client exists and any project belongs to it.
func (handlers *InvoiceHandlers) requireBillingTarget(context *gin.Context, record model.Invoice) bool {
	database := handlers.database.WithContext(context.Request.Context())
	var clientMatches int64
	if err := database.Model(&model.Client{}).Where("id = ?", record.ClientID).Count(&clientMatches).Error; err != nil {
		handlers.logger.Warn(logEventCreateInvoice, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	if clientMatches == 0 {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"client_id": model.FieldErrorInvalidValue})
		return false
	}
	if record.ProjectID == nil {
		return true
	}
	var projectMatches int64
	if err := database.Model(&model.Project{}).Where("id = ? AND client_id = ?", *record.ProjectID, record.ClientID).Count(&projectMatches).Error; err != nil {
		handlers.logger.Warn(logEventCreateInvoice, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	if projectMatches == 0 {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"project_id": model.FieldErrorInvalidValue})
		return false
	}
	return true
}

func (request invoiceRequest) toInput(parseErrors model.FieldErrors) model.InvoiceInput {
	input := model.InvoiceInput{
		ClientID:     request.ClientID,
		ProjectID:    request.ProjectID,
		Currency:     request.Currency,
		DiscountRate: request.DiscountRate,
		TaxRate:      request.TaxRate,
		Notes:        request.Notes,
		Items:        make([]model.InvoiceItemInput, 0, len(request.Items)),
	}
	if issueDate := parseDate(parseErrors, "issue_date", request.IssueDate); issueDate != nil {
		input.IssueDate = *issueDate
	}
	if dueDate := parseDate(parseErrors, "due_date", request.DueDate); dueDate != nil {
		input.DueDate = *dueDate
	}
	for _, item := range request.Items {
		input.Items = append(input.Items, model.InvoiceItemInput{
			Description:   item.Description,
			DescriptionEn: item.DescriptionEn,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
		})
	}
	return input
}

func toInvoiceResponse(record model.Invoice, lang string, now time.Time) invoiceResponse {
	response := invoiceResponse{
		ID:           record.ID,
		Number:       record.Number,
		ClientID:     record.ClientID,
		ProjectID:    record.ProjectID,
		IssueDate:    record.IssueDate.UTC().Format(dateLayout),
		DueDate:      record.DueDate.UTC().Format(dateLayout),
		Status:       record.Status,
		StatusLabel:  i18n.Label(lang, "invoice_status", record.Status),
		Currency:     record.Currency,
		DiscountRate: record.DiscountRate,
		TaxRate:      record.TaxRate,
		Totals: invoice.Totals{
			Subtotal:       record.Subtotal,
			DiscountAmount: record.DiscountAmount,
			TaxableAmount:  record.TaxableAmount,
			TaxAmount:      record.TaxAmount,
			Total:          record.Total,
		},
		TotalDisplay: i18n.FormatMoney(lang, record.Total, record.Currency),
		Notes:        record.Notes,
		PaidAt:       record.PaidAt,
		PastDue:      record.IsPastDue(now),
		CreatedAt:    record.CreatedAt,
	}
	for _, item := range record.Items {
		response.Items = append(response.Items, invoiceItemResponse{
			ID:            item.ID,
			Description:   item.Description,
			DescriptionEn: item.DescriptionEn,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Amount:        invoice.RoundAmount(item.Quantity * item.UnitPrice),
		})
	}
	return response
}
