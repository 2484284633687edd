package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
	ClientStatusProspect = "prospect"

	clientNameMaxLength     = 200
	clientIndustryMaxLength = 120
	clientContactMaxLength  = 200
	clientPhoneMaxLength    = 40
	clientAddressMaxLength  = 500
	clientNotesMaxLength    = 4000
	clientTagMaxCount       = 20

	MinSatisfaction = 0
	MaxSatisfaction = 100
)

var ErrInvalidClient = errors.New("invalid_client")

// Client is a consulting customer organization. Text attributes come in
// Arabic/English pairs; the English half is optional.
type Client struct {
	ID                    string `gorm:"primaryKey;size:36"`
	Name                  string `gorm:"not null;size:200"`
	NameEn                string `gorm:"size:200"`
	Industry              string `gorm:"size:120"`
	IndustryEn            string `gorm:"size:120"`
	ContactName           string `gorm:"not null;size:200"`
	ContactNameEn         string `gorm:"size:200"`
	ContactPosition       string `gorm:"size:200"`
	ContactPositionEn     string `gorm:"size:200"`
	ContactEmail          string `gorm:"not null;size:320"`
	ContactPhone          string `gorm:"size:40"`
	Address               string `gorm:"size:500"`
	AddressEn             string `gorm:"size:500"`
	EstablishedAt         *time.Time
	RelationshipStartedAt *time.Time
	Status                string `gorm:"not null;size:16;index"`
	TotalProjects         int    `gorm:"not null;default:0"`
	ActiveProjects        int    `gorm:"not null;default:0"`
	CompletedProjects     int    `gorm:"not null;default:0"`
	TotalValue            float64
	PaidValue             float64
	Satisfaction          int
	Tags                  datatypes.JSONSlice[string]
	TagsEn                datatypes.JSONSlice[string]
	Notes                 string    `gorm:"size:4000"`
	CreatedAt             time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

// ClientInput holds the raw values used to construct or update a Client.
type ClientInput struct {
	Name                  string
	NameEn                string
	Industry              string
	IndustryEn            string
	ContactName           string
	ContactNameEn         string
	ContactPosition       string
	ContactPositionEn     string
	ContactEmail          string
	ContactPhone          string
	Address               string
	AddressEn             string
	EstablishedAt         *time.Time
	RelationshipStartedAt *time.Time
	Status                string
	TotalProjects         int
	ActiveProjects        int
	CompletedProjects     int
	TotalValue            float64
	PaidValue             float64
	Satisfaction          int
	Tags                  []string
	TagsEn                []string
	Notes                 string
}

// NewClient validates input and returns a Client with a fresh identifier.
func NewClient(input ClientInput) (Client, error) {
	client, err := Client{}.WithInput(input)
	if err != nil {
		return Client{}, err
	}
	client.ID = newIdentifier()
	return client, nil
}

// WithInput returns a copy of client carrying the validated input values.
// The identifier and timestamps are preserved.
func (client Client) WithInput(input ClientInput) (Client, error) {
	fieldErrors := FieldErrors{}

	updated := client
	updated.Name = requireText(fieldErrors, "name", input.Name, clientNameMaxLength)
	updated.NameEn = limitText(fieldErrors, "name_en", input.NameEn, clientNameMaxLength)
	updated.Industry = limitText(fieldErrors, "industry", input.Industry, clientIndustryMaxLength)
	updated.IndustryEn = limitText(fieldErrors, "industry_en", input.IndustryEn, clientIndustryMaxLength)
	updated.ContactName = requireText(fieldErrors, "contact_name", input.ContactName, clientContactMaxLength)
	updated.ContactNameEn = limitText(fieldErrors, "contact_name_en", input.ContactNameEn, clientContactMaxLength)
	updated.ContactPosition = limitText(fieldErrors, "contact_position", input.ContactPosition, clientContactMaxLength)
	updated.ContactPositionEn = limitText(fieldErrors, "contact_position_en", input.ContactPositionEn, clientContactMaxLength)
	updated.ContactEmail = validateEmail(fieldErrors, "contact_email", input.ContactEmail, true)
	updated.ContactPhone = limitText(fieldErrors, "contact_phone", input.ContactPhone, clientPhoneMaxLength)
	updated.Address = limitText(fieldErrors, "address", input.Address, clientAddressMaxLength)
	updated.AddressEn = limitText(fieldErrors, "address_en", input.AddressEn, clientAddressMaxLength)
	updated.Notes = limitText(fieldErrors, "notes", input.Notes, clientNotesMaxLength)
	updated.Status = normalizeEnum(fieldErrors, "status", input.Status, ClientStatusProspect,
		ClientStatusActive, ClientStatusInactive, ClientStatusProspect)
	updated.EstablishedAt = input.EstablishedAt
	updated.RelationshipStartedAt = input.RelationshipStartedAt

	if input.Satisfaction < MinSatisfaction || input.Satisfaction > MaxSatisfaction {
		fieldErrors.Add("satisfaction", FieldErrorOutOfRange)
	}
	updated.Satisfaction = input.Satisfaction

	if input.TotalProjects < 0 {
		fieldErrors.Add("total_projects", FieldErrorNegative)
	}
	if input.ActiveProjects < 0 {
		fieldErrors.Add("active_projects", FieldErrorNegative)
	}
	if input.CompletedProjects < 0 {
		fieldErrors.Add("completed_projects", FieldErrorNegative)
	}
	if input.ActiveProjects+input.CompletedProjects > input.TotalProjects {
		fieldErrors.Add("total_projects", FieldErrorOutOfRange)
	}
	updated.TotalProjects = input.TotalProjects
	updated.ActiveProjects = input.ActiveProjects
	updated.CompletedProjects = input.CompletedProjects

	if input.TotalValue < 0 {
		fieldErrors.Add("total_value", FieldErrorNegative)
	}
	if input.PaidValue < 0 {
		fieldErrors.Add("paid_value", FieldErrorNegative)
	} else if input.PaidValue > input.TotalValue {
		fieldErrors.Add("paid_value", FieldErrorExceedsTotal)
	}
	updated.TotalValue = input.TotalValue
	updated.PaidValue = input.PaidValue

	tags := normalizeTags(input.Tags)
	tagsEn := normalizeTags(input.TagsEn)
	if len(tags) > clientTagMaxCount {
		fieldErrors.Add("tags", FieldErrorTooLong)
	}
	if len(tagsEn) > clientTagMaxCount {
		fieldErrors.Add("tags_en", FieldErrorTooLong)
	}
	updated.Tags = datatypes.JSONSlice[string](tags)
	updated.TagsEn = datatypes.JSONSlice[string](tagsEn)

	if err := validationResult(ErrInvalidClient, fieldErrors); err != nil {
		return Client{}, err
	}
	return updated, nil
}

// Input returns the editable values of client.
func (client Client) Input() ClientInput {
	return ClientInput{
		Name:                  client.Name,
		NameEn:                client.NameEn,
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
		EstablishedAt:         client.EstablishedAt,
		RelationshipStartedAt: client.RelationshipStartedAt,
		Status:                client.Status,
		TotalProjects:         client.TotalProjects,
		ActiveProjects:        client.ActiveProjects,
		CompletedProjects:     client.CompletedProjects,
		TotalValue:            client.TotalValue,
		PaidValue:             client.PaidValue,
		Satisfaction:          client.Satisfaction,
		Tags:                  append([]string(nil), client.Tags...),
		TagsEn:                append([]string(nil), client.TagsEn...),
		Notes:                 client.Notes,
	}
}

// OutstandingValue is the part of the total contract value not paid yet.
func (client Client) OutstandingValue() float64 {
	return client.TotalValue - client.PaidValue
}

// DisplayName picks the organization name for the given UI language,
// falling back to the Arabic name when no English name is stored.
func (client Client) DisplayName(language string) string {
	return pickBilingual(language, client.Name, client.NameEn)
}

// DisplayIndustry picks the industry label for the given UI language.
func (client Client) DisplayIndustry(language string) string {
	return pickBilingual(language, client.Industry, client.IndustryEn)
}

// DisplayContactName picks the contact person name for the given UI language.
func (client Client) DisplayContactName(language string) string {
	return pickBilingual(language, client.ContactName, client.ContactNameEn)
}

// SearchableText lists the bilingual values free-text search matches against.
func (client Client) SearchableText() []string {
	values := []string{
		client.Name,
		client.NameEn,
		client.Industry,
		client.IndustryEn,
		client.ContactName,
		client.ContactNameEn,
		client.ContactEmail,
	}
	values = append(values, client.Tags...)
	values = append(values, client.TagsEn...)
	return values
}

func pickBilingual(language string, arabic string, english string) string {
	if language == "en" && english != "" {
		return english
	}
	if arabic == "" {
		return english
	}
	return arabic
}
