package model

import (
	"errors"
	"strings"
	"time"
)

// Role identifies what a dashboard user is allowed to see and change.
type Role string

const (
	RoleSystemAdmin    Role = "system_admin"
	RoleProjectManager Role = "project_manager"
	RoleConsultant     Role = "consultant"
	RoleSubConsultant  Role = "sub_consultant"
	RoleMainClient     Role = "main_client"
	RoleSubClient      Role = "sub_client"

	userNameMaxLength = 200
)

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrUnknownRole = errors.New("unknown_role")
)

var knownRoles = []Role{
	RoleSystemAdmin,
	RoleProjectManager,
	RoleConsultant,
	RoleSubConsultant,
	RoleMainClient,
	RoleSubClient,
}

// ParseRole normalizes raw into a known Role.
func ParseRole(raw string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, role := range knownRoles {
		if role == normalized {
			return role, nil
		}
	}
	return "", ErrUnknownRole
}

// Roles returns every known role.
func Roles() []Role {
	return append([]Role(nil), knownRoles...)
}

// IsClient reports whether the role belongs to a client organization user.
func (role Role) IsClient() bool {
	return role == RoleMainClient || role == RoleSubClient
}

// User is an authenticated dashboard account.
type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"not null;size:320;uniqueIndex"`
	Name         string    `gorm:"not null;size:200"`
	NameEn       string    `gorm:"size:200"`
	Role         Role      `gorm:"not null;size:32;index"`
	ClientID     *string   `gorm:"size:36;index"`
	PasswordHash string    `gorm:"size:100"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// UserInput holds the raw values used to construct a User.
type UserInput struct {
	Email        string
	Name         string
	NameEn       string
	Role         string
	ClientID     string
	PasswordHash string
}

// NewUser validates input and returns a User with a fresh identifier.
// Client roles must reference the client organization they belong to.
func NewUser(input UserInput) (User, error) {
	fieldErrors := FieldErrors{}

	email := validateEmail(fieldErrors, "email", input.Email, true)
	name := requireText(fieldErrors, "name", input.Name, userNameMaxLength)
	nameEn := limitText(fieldErrors, "name_en", input.NameEn, userNameMaxLength)

	role, roleErr := ParseRole(input.Role)
	if roleErr != nil {
		fieldErrors.Add("role", FieldErrorInvalidValue)
	}

	var clientID *string
	trimmedClientID := strings.TrimSpace(input.ClientID)
	if trimmedClientID != "" {
		clientID = &trimmedClientID
	}
	if roleErr == nil && role.IsClient() && clientID == nil {
		fieldErrors.Add("client_id", FieldErrorRequired)
	}

	if err := validationResult(ErrInvalidUser, fieldErrors); err != nil {
		return User{}, err
	}

	return User{
		ID:           newIdentifier(),
		Email:        email,
		Name:         name,
		NameEn:       nameEn,
		Role:         role,
		ClientID:     clientID,
		PasswordHash: input.PasswordHash,
	}, nil
}

// DisplayName picks the user name for the given UI language.
func (user User) DisplayName(language string) string {
	return pickBilingual(language, user.Name, user.NameEn)
}

// ClientIdentifier returns the linked client id or an empty string.
func (user User) ClientIdentifier() string {
	if user.ClientID == nil {
		return ""
	}
	return *user.ClientID
}
