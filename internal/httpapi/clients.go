package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

const (
	logEventListClients  = "list_clients"
	logEventLoadClient   = "load_client"
	logEventCreateClient = "create_client"
	logEventUpdateClient = "update_client"
	logEventDeleteClient = "delete_client"
)

var clientAccessors = listing.Accessors[model.Client]{
	ScopeKey: func(client model.Client) string { return client.ID },
	Text:     func(client model.Client) []string { return client.SearchableText() },
	Status:   func(client model.Client) string { return client.Status },
}

type ClientHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
}

// clientRequest carries create and patch payloads. Absent fields keep their
// stored value on update.
type clientRequest struct {
	Name                  *string   `json:"name"`
	NameEn                *string   `json:"name_en"`
	Industry              *string   `json:"industry"`
	IndustryEn            *string   `json:"industry_en"`
	ContactName           *string   `json:"contact_name"`
	ContactNameEn         *string   `json:"contact_name_en"`
	ContactPosition       *string   `json:"contact_position"`
	ContactPositionEn     *string   `json:"contact_position_en"`
	ContactEmail          *string   `json:"contact_email"`
	ContactPhone          *string   `json:"contact_phone"`
	Address               *string   `json:"address"`
	AddressEn             *string   `json:"address_en"`
	EstablishedAt         *string   `json:"established_at"`
	RelationshipStartedAt *string   `json:"relationship_started_at"`
	Status                *string   `json:"status"`
	TotalProjects         *int      `json:"total_projects"`
	ActiveProjects        *int      `json:"active_projects"`
	CompletedProjects     *int      `json:"completed_projects"`
	TotalValue            *float64  `json:"total_value"`
	PaidValue             *float64  `json:"paid_value"`
	Satisfaction          *int      `json:"satisfaction"`
	Tags                  *[]string `json:"tags"`
	TagsEn                *[]string `json:"tags_en"`
	Notes                 *string   `json:"notes"`
}

type clientResponse struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	NameEn                string    `json:"name_en"`
	DisplayName           string    `json:"display_name"`
	Industry              string    `json:"industry"`
	IndustryEn            string    `json:"industry_en"`
	ContactName           string    `json:"contact_name"`
	ContactNameEn         string    `json:"contact_name_en"`
	ContactPosition       string    `json:"contact_position"`
	ContactPositionEn     string    `json:"contact_position_en"`
	ContactEmail          string    `json:"contact_email"`
	ContactPhone          string    `json:"contact_phone"`
	Address               string    `json:"address"`
	AddressEn             string    `json:"address_en"`
	EstablishedAt         *string   `json:"established_at"`
	RelationshipStartedAt *string   `json:"relationship_started_at"`
	Status                string    `json:"status"`
	StatusLabel           string    `json:"status_label"`
	TotalProjects         int       `json:"total_projects"`
	ActiveProjects        int       `json:"active_projects"`
	CompletedProjects     int       `json:"completed_projects"`
	TotalValue            float64   `json:"total_value"`
	PaidValue             float64   `json:"paid_value"`
	OutstandingValue      float64   `json:"outstanding_value"`
	TotalValueDisplay     string    `json:"total_value_display"`
	Satisfaction          int       `json:"satisfaction"`
	Tags                  []string  `json:"tags"`
	TagsEn                []string  `json:"tags_en"`
	Notes                 string    `json:"notes"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func NewClientHandlers(database *gorm.DB, logger *zap.Logger, restrictedListLimit int) *ClientHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, restrictedListLimit),
	}
}

func (handlers *ClientHandlers) ListClients(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	var query listQuery
	if !bindQuery(context, &query) {
		return
	}

	criteria, criteriaErr := handlers.visibility.clientCriteria(context.Request.Context(), currentUser, true)
	if criteriaErr != nil {
		handlers.logger.Warn(logEventListClients, zap.Error(criteriaErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	var clients []model.Client
	if err := handlers.database.WithContext(context.Request.Context()).
		Order("created_at desc").
		Order("id").
		Find(&clients).Error; err != nil {
		handlers.logger.Warn(logEventListClients, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	criteria.Search = query.Search
	criteria.Status = query.Status
	filtered := listing.Filter(clients, clientAccessors, criteria)
	page := listing.Paginate(filtered, query.Page, query.Limit)

	lang := LanguageFromContext(context)
	responses := make([]clientResponse, 0, len(page.Items))
	for _, client := range page.Items {
		responses = append(responses, toClientResponse(client, lang))
	}
	respondPage(context, listing.Page[clientResponse]{
		Items:      responses,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (handlers *ClientHandlers) GetClient(context *gin.Context) {
	client, ok := handlers.loadVisibleClient(context)
	if !ok {
		return
	}
	respondData(context, http.StatusOK, toClientResponse(client, LanguageFromContext(context)))
}

func (handlers *ClientHandlers) CreateClient(context *gin.Context) {
	var payload clientRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := model.ClientInput{}
	parseErrors := payload.applyTo(&input)
	client, buildErr := model.NewClient(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Create(&client).Error; err != nil {
		handlers.logger.Warn(logEventCreateClient, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	respondData(context, http.StatusCreated, toClientResponse(client, LanguageFromContext(context)))
}

func (handlers *ClientHandlers) UpdateClient(context *gin.Context) {
	client, ok := handlers.loadVisibleClient(context)
	if !ok {
		return
	}

	var payload clientRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := client.Input()
	parseErrors := payload.applyTo(&input)
	updated, buildErr := client.WithInput(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Save(&updated).Error; err != nil {
		handlers.logger.Warn(logEventUpdateClient, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	respondData(context, http.StatusOK, toClientResponse(updated, LanguageFromContext(context)))
}

// DeleteClient removes a client together with its meetings. Clients still
// referenced by projects, invoices or user accounts are kept.
func (handlers *ClientHandlers) DeleteClient(context *gin.Context) {
	client, ok := handlers.loadVisibleClient(context)
	if !ok {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	for _, referencing := range []any{&model.Project{}, &model.Invoice{}, &model.User{}} {
		var references int64
		if err := database.Model(referencing).Where("client_id = ?", client.ID).Count(&references).Error; err != nil {
			handlers.logger.Warn(logEventDeleteClient, zap.Error(err))
			respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
			return
		}
		if references > 0 {
			respondError(context, http.StatusConflict, errorValueConflict)
			return
		}
	}

	deleteErr := database.Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("client_id = ?", client.ID).Delete(&model.Meeting{}).Error; err != nil {
			return err
		}
		return transaction.Delete(&model.Client{ID: client.ID}).Error
	})
	if deleteErr != nil {
		handlers.logger.Warn(logEventDeleteClient, zap.Error(deleteErr))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *ClientHandlers) loadVisibleClient(context *gin.Context) (model.Client, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return model.Client{}, false
	}

	var client model.Client
	if err := handlers.database.WithContext(context.Request.Context()).First(&client, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.Client{}, false
		}
		handlers.logger.Warn(logEventLoadClient, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Client{}, false
	}

	visible, visibilityErr := handlers.visibility.canSeeClient(context.Request.Context(), currentUser, client.ID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventLoadClient, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Client{}, false
	}
	if !visible {
		respondError(context, http.StatusNotFound, errorValueNotFound)
		return model.Client{}, false
	}
	return client, true
}

func (request clientRequest) applyTo(input *model.ClientInput) model.FieldErrors {
	parseErrors := model.FieldErrors{}
	assignString(&input.Name, request.Name)
	assignString(&input.NameEn, request.NameEn)
	assignString(&input.Industry, request.Industry)
	assignString(&input.IndustryEn, request.IndustryEn)
	assignString(&input.ContactName, request.ContactName)
	assignString(&input.ContactNameEn, request.ContactNameEn)
	assignString(&input.ContactPosition, request.ContactPosition)
	assignString(&input.ContactPositionEn, request.ContactPositionEn)
	assignString(&input.ContactEmail, request.ContactEmail)
	assignString(&input.ContactPhone, request.ContactPhone)
	assignString(&input.Address, request.Address)
	assignString(&input.AddressEn, request.AddressEn)
	assignString(&input.Status, request.Status)
	assignString(&input.Notes, request.Notes)
	if request.EstablishedAt != nil {
		input.EstablishedAt = parseDate(parseErrors, "established_at", request.EstablishedAt)
	}
	if request.RelationshipStartedAt != nil {
		input.RelationshipStartedAt = parseDate(parseErrors, "relationship_started_at", request.RelationshipStartedAt)
	}
	if request.TotalProjects != nil {
		input.TotalProjects = *request.TotalProjects
	}
	if request.ActiveProjects != nil {
		input.ActiveProjects = *request.ActiveProjects
	}
	if request.CompletedProjects != nil {
		input.CompletedProjects = *request.CompletedProjects
	}
	if request.TotalValue != nil {
		input.TotalValue = *request.TotalValue
	}
	if request.PaidValue != nil {
		input.PaidValue = *request.PaidValue
	}
	if request.Satisfaction != nil {
		input.Satisfaction = *request.Satisfaction
	}
	if request.Tags != nil {
		input.Tags = *request.Tags
	}
	if request.TagsEn != nil {
		input.TagsEn = *request.TagsEn
	}
	return parseErrors
}

func toClientResponse(client model.Client, lang string) clientResponse {
	return clientResponse{
		ID:                    client.ID,
		Name:                  client.Name,
		NameEn:                client.NameEn,
		DisplayName:           client.DisplayName(lang),
		Industry:              client.Industry,
		IndustryEn:            client.IndustryEn,
		ContactName:           client.ContactName,
		ContactNameEn:         client.ContactNameEn,
		ContactPosition:       client.ContactPosition,
		ContactPositionEn:     client.ContactPositionEn,
		ContactEmail:          client.ContactEmail,
		ContactPhone:          client.ContactPhone,
		Address:               client.Address,
		AddressEn:             client.AddressEn,
		EstablishedAt:         formatDate(client.EstablishedAt),
		RelationshipStartedAt: formatDate(client.RelationshipStartedAt),
		Status:                client.Status,
		StatusLabel:           i18n.Label(lang, "client_status", client.Status),
		TotalProjects:         client.TotalProjects,
		ActiveProjects:        client.ActiveProjects,
		CompletedProjects:     client.CompletedProjects,
		TotalValue:            client.TotalValue,
		PaidValue:             client.PaidValue,
		OutstandingValue:      client.OutstandingValue(),
		TotalValueDisplay:     i18n.FormatMoney(lang, client.TotalValue, model.DefaultInvoiceCurrency),
		Satisfaction:          client.Satisfaction,
		Tags:                  nonNilStrings(client.Tags),
		TagsEn:                nonNilStrings(client.TagsEn),
		Notes:                 client.Notes,
		CreatedAt:             client.CreatedAt,
		UpdatedAt:             client.UpdatedAt,
	}
}

func assignString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func nonNilStrings(values []string) []string {
	result := make([]string, len(values))
	copy(result, values)
	return result
}
