package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

const (
	jsonKeySuccess    = "success"
	jsonKeyData       = "data"
	jsonKeyPagination = "pagination"
	jsonKeyError      = "error"
	jsonKeyMessage    = "message"
	jsonKeyFields     = "fields"

	errorValueInvalidJSON       = "invalid_json"
	errorValueInvalidQuery      = "invalid_query"
	errorValueValidationFailed  = "validation_failed"
	errorValueNotFound          = "not_found"
	errorValueNotAuthenticated  = "not_authenticated"
	errorValueNotAuthorized     = "not_authorized"
	errorValueInvalidCredential = "invalid_credentials"
	errorValueSaveFailed        = "save_failed"
	errorValueQueryFailed       = "query_failed"
	errorValueDeleteFailed      = "delete_failed"
	errorValueConflict          = "conflict"
	errorValueInvalidTransition = "invalid_transition"
	errorValueExportFailed      = "export_failed"
	errorValueSessionFailed     = "session_failed"

	dateLayout = "2006-01-02"
)

var registerTagNamesOnce sync.Once

type paginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type listQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=0"`
	Search   string `form:"search" binding:"max=200"`
	Status   string `form:"status" binding:"max=32"`
	ClientID string `form:"client_id" binding:"max=36"`
}

func respondData(context *gin.Context, status int, data any) {
	context.JSON(status, gin.H{jsonKeySuccess: true, jsonKeyData: data})
}

func respondPage[T any](context *gin.Context, page listing.Page[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	context.JSON(http.StatusOK, gin.H{
		jsonKeySuccess: true,
		jsonKeyData:    items,
		jsonKeyPagination: paginationResponse{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

func respondError(context *gin.Context, status int, code string) {
	respondFieldErrors(context, status, code, nil)
}

func respondFieldErrors(context *gin.Context, status int, code string, fieldErrors map[string]string) {
	lang := LanguageFromContext(context)
	body := gin.H{
		jsonKeySuccess: false,
		jsonKeyError:   code,
		jsonKeyMessage: i18n.T(lang, code),
	}
	if translated := i18n.Fields(lang, fieldErrors); translated != nil {
		body[jsonKeyFields] = translated
	}
	context.AbortWithStatusJSON(status, body)
}

// respondDomainError reports model validation failures field by field and
// treats everything else as a failed save.
func respondDomainError(context *gin.Context, err error) {
	if fieldErrors, ok := model.FieldErrorsOf(err); ok {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, fieldErrors)
		return
	}
	if errors.Is(err, model.ErrInvalidInvoiceTransition) {
		respondError(context, http.StatusConflict, errorValueInvalidTransition)
		return
	}
	respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
}

func bindJSON(context *gin.Context, payload any) bool {
	registerValidatorTagNames()
	bindErr := context.ShouldBindJSON(payload)
	if bindErr == nil {
		return true
	}
	if fieldErrors, ok := bindingFieldErrors(bindErr); ok {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, fieldErrors)
		return false
	}
	respondError(context, http.StatusBadRequest, errorValueInvalidJSON)
	return false
}

func bindQuery(context *gin.Context, query any) bool {
	registerValidatorTagNames()
	bindErr := context.ShouldBindQuery(query)
	if bindErr == nil {
		return true
	}
	fieldErrors, _ := bindingFieldErrors(bindErr)
	respondFieldErrors(context, http.StatusBadRequest, errorValueInvalidQuery, fieldErrors)
	return false
}

func bindingFieldErrors(bindErr error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(bindErr, &validationErrors) {
		return nil, false
	}
	fieldErrors := model.FieldErrors{}
	for _, fieldError := range validationErrors {
		fieldErrors.Add(fieldError.Field(), fieldErrorCodeForTag(fieldError.Tag()))
	}
	return fieldErrors, true
}

func fieldErrorCodeForTag(tag string) string {
	switch tag {
	case "required":
		return model.FieldErrorRequired
	case "email":
		return model.FieldErrorInvalidEmail
	case "min", "max", "gte", "lte":
		return model.FieldErrorOutOfRange
	case "gt":
		return model.FieldErrorMustBePositive
	default:
		return model.FieldErrorInvalidValue
	}
}

// registerValidatorTagNames makes validator report JSON or form field names
// instead of Go struct field names.
func registerValidatorTagNames() {
	registerTagNamesOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tagKey := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tagKey), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. A nil or blank
// value yields nil; anything unparseable records an invalid_value field error.
func parseDate(fieldErrors model.FieldErrors, field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	fieldErrors.Add(field, model.FieldErrorInvalidValue)
	return nil
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(dateLayout)
	return &formatted
}

func stringValue(pointer *string) string {
	if pointer == nil {
		return ""
	}
	return *pointer
}

func paramID(context *gin.Context, name string) string {
	return strings.TrimSpace(context.Param(name))
}

// respondInvalidInput writes a validation response when either request
// parsing or model validation failed and reports whether it did.
func respondInvalidInput(context *gin.Context, parseErrors model.FieldErrors, err error) bool {
	if err == nil && parseErrors.Empty() {
		return false
	}
	if err != nil {
		modelErrors, ok := model.FieldErrorsOf(err)
		if !ok {
			respondDomainError(context, err)
			return true
		}
		for field, code := range modelErrors {
			parseErrors.Add(field, code)
		}
	}
	respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, parseErrors)
	return true
}
