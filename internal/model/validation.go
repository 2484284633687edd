package model

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field error codes reported to API callers and translated by the i18n package.
const (
	FieldErrorRequired         = "required"
	FieldErrorInvalidEmail     = "invalid_email"
	FieldErrorInvalidValue     = "invalid_value"
	FieldErrorOutOfRange       = "out_of_range"
	FieldErrorMustBePositive   = "must_be_positive"
	FieldErrorNegative         = "must_not_be_negative"
	FieldErrorTooLong          = "too_long"
	FieldErrorInvalidDateRange = "invalid_date_range"
	FieldErrorInPast           = "in_past"
	FieldErrorExceedsTotal     = "exceeds_total"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps JSON field names to field error codes.
type FieldErrors map[string]string

// Add records code for field unless the field already has an error.
func (fieldErrors FieldErrors) Add(field string, code string) {
	if _, exists := fieldErrors[field]; exists {
		return
	}
	fieldErrors[field] = code
}

// Empty reports whether no field failed validation.
func (fieldErrors FieldErrors) Empty() bool {
	return len(fieldErrors) == 0
}

// ValidationError carries every failing field for an entity.
type ValidationError struct {
	Entity error
	Fields FieldErrors
}

func (validationError *ValidationError) Error() string {
	fieldNames := make([]string, 0, len(validationError.Fields))
	for fieldName := range validationError.Fields {
		fieldNames = append(fieldNames, fieldName)
	}
	sort.Strings(fieldNames)
	parts := make([]string, 0, len(fieldNames))
	for _, fieldName := range fieldNames {
		parts = append(parts, fmt.Sprintf("%s=%s", fieldName, validationError.Fields[fieldName]))
	}
	return fmt.Sprintf("%v: %s", validationError.Entity, strings.Join(parts, ", "))
}

func (validationError *ValidationError) Unwrap() error {
	return validationError.Entity
}

// FieldErrorsOf extracts field errors from err when it wraps a ValidationError.
func FieldErrorsOf(err error) (FieldErrors, bool) {
	var validationError *ValidationError
	if !errors.As(err, &validationError) {
		return nil, false
	}
	return validationError.Fields, true
}

func validationResult(entity error, fieldErrors FieldErrors) error {
	if fieldErrors.Empty() {
		return nil
	}
	return &ValidationError{Entity: entity, Fields: fieldErrors}
}

func newIdentifier() string {
	return uuid.NewString()
}

func requireText(fieldErrors FieldErrors, field string, value string, maxLength int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		fieldErrors.Add(field, FieldErrorRequired)
		return trimmed
	}
	return limitText(fieldErrors, field, trimmed, maxLength)
}

func limitText(fieldErrors FieldErrors, field string, value string, maxLength int) string {
	trimmed := strings.TrimSpace(value)
	if maxLength > 0 && len([]rune(trimmed)) > maxLength {
		fieldErrors.Add(field, FieldErrorTooLong)
	}
	return trimmed
}

func validateEmail(fieldErrors FieldErrors, field string, value string, required bool) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		if required {
			fieldErrors.Add(field, FieldErrorRequired)
		}
		return normalized
	}
	if len(normalized) > emailMaxLength || !emailPattern.MatchString(normalized) {
		fieldErrors.Add(field, FieldErrorInvalidEmail)
	}
	return normalized
}

// IsValidEmail reports whether value has the shape accepted for contact emails.
func IsValidEmail(value string) bool {
	normalized := strings.TrimSpace(value)
	return normalized != "" && len(normalized) <= emailMaxLength && emailPattern.MatchString(normalized)
}

func normalizeEnum(fieldErrors FieldErrors, field string, value string, defaultValue string, allowed ...string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		normalized = defaultValue
	}
	if normalized == "" {
		fieldErrors.Add(field, FieldErrorRequired)
		return normalized
	}
	for _, candidate := range allowed {
		if normalized == candidate {
			return normalized
		}
	}
	fieldErrors.Add(field, FieldErrorInvalidValue)
	return normalized
}

func normalizeTags(values []string) []string {
	tags := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		tags = append(tags, trimmed)
	}
	return tags
}

func validateDateRange(fieldErrors FieldErrors, field string, start *time.Time, end *time.Time) {
	if start == nil || end == nil {
		return
	}
	if end.Before(*start) {
		fieldErrors.Add(field, FieldErrorInvalidDateRange)
	}
}

const emailMaxLength = 320
