package storage

import (
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

// normalizeStoredRecords repairs rows written before the current validation rules.
func normalizeStoredRecords(database *gorm.DB) error {
	if err := database.Model(&model.User{}).
		Where("email <> LOWER(TRIM(email))").
		Update("email", gorm.Expr("LOWER(TRIM(email))")).Error; err != nil {
		return err
	}
	if err := database.Model(&model.Client{}).
		Where("contact_email <> LOWER(TRIM(contact_email))").
		Update("contact_email", gorm.Expr("LOWER(TRIM(contact_email))")).Error; err != nil {
		return err
	}
	return database.Model(&model.Invoice{}).
		Where("currency IS NULL OR TRIM(currency) = ''").
		Update("currency", model.DefaultInvoiceCurrency).Error
}
