package model

import (
	"errors"
	"strings"
	"time"
)

// AssignmentRole is a deliverable assignee's responsibility level.
type AssignmentRole string

const (
	AssignmentRoleOwner            AssignmentRole = "owner"
	AssignmentRoleContributor      AssignmentRole = "contributor"
	AssignmentRoleInternalReviewer AssignmentRole = "internal_reviewer"
)

var ErrInvalidAssignment = errors.New("invalid_assignment")

// AssignmentCapabilities are the four independent actions an assignee may take.
// They are stored exactly as submitted; the role does not constrain them.
type AssignmentCapabilities struct {
	CanView    bool
	CanUpload  bool
	CanSubmit  bool
	CanRespond bool
}

// DefaultCapabilities returns the capabilities offered for role when none are supplied.
func DefaultCapabilities(role AssignmentRole) AssignmentCapabilities {
	switch role {
	case AssignmentRoleOwner:
		return AssignmentCapabilities{CanView: true, CanUpload: true, CanSubmit: true, CanRespond: true}
	case AssignmentRoleContributor:
		return AssignmentCapabilities{CanView: true, CanUpload: true, CanRespond: true}
	case AssignmentRoleInternalReviewer:
		return AssignmentCapabilities{CanView: true, CanRespond: true}
	default:
		return AssignmentCapabilities{}
	}
}

// DeliverableAssignment associates a user with a deliverable.
type DeliverableAssignment struct {
	ID            string         `gorm:"primaryKey;size:36"`
	DeliverableID string         `gorm:"not null;size:36;uniqueIndex:idx_assignments_deliverable_user"`
	UserID        string         `gorm:"not null;size:36;uniqueIndex:idx_assignments_deliverable_user;index"`
	Role          AssignmentRole `gorm:"not null;size:24"`
	CanView       bool           `gorm:"not null;default:false"`
	CanUpload     bool           `gorm:"not null;default:false"`
	CanSubmit     bool           `gorm:"not null;default:false"`
	CanRespond    bool           `gorm:"not null;default:false"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

// DeliverableAssignmentInput holds the raw values used to construct a DeliverableAssignment.
// A nil Capabilities selects DefaultCapabilities for the role.
type DeliverableAssignmentInput struct {
	DeliverableID string
	UserID        string
	Role          string
	Capabilities  *AssignmentCapabilities
}

// NewDeliverableAssignment validates input and returns an assignment with a fresh identifier.
func NewDeliverableAssignment(input DeliverableAssignmentInput) (DeliverableAssignment, error) {
	fieldErrors := FieldErrors{}

	deliverableID := strings.TrimSpace(input.DeliverableID)
	if deliverableID == "" {
		fieldErrors.Add("deliverable_id", FieldErrorRequired)
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		fieldErrors.Add("user_id", FieldErrorRequired)
	}
	role := AssignmentRole(normalizeEnum(fieldErrors, "role", input.Role, "",
		string(AssignmentRoleOwner), string(AssignmentRoleContributor), string(AssignmentRoleInternalReviewer)))

	if err := validationResult(ErrInvalidAssignment, fieldErrors); err != nil {
		return DeliverableAssignment{}, err
	}

	capabilities := DefaultCapabilities(role)
	if input.Capabilities != nil {
		capabilities = *input.Capabilities
	}

	assignment := DeliverableAssignment{
		ID:            newIdentifier(),
		DeliverableID: deliverableID,
		UserID:        userID,
		Role:          role,
	}
	assignment.SetCapabilities(capabilities)
	return assignment, nil
}

// WithRole returns a copy of assignment with a validated role.
func (assignment DeliverableAssignment) WithRole(rawRole string) (DeliverableAssignment, error) {
	fieldErrors := FieldErrors{}
	role := AssignmentRole(normalizeEnum(fieldErrors, "role", rawRole, "",
		string(AssignmentRoleOwner), string(AssignmentRoleContributor), string(AssignmentRoleInternalReviewer)))
	if err := validationResult(ErrInvalidAssignment, fieldErrors); err != nil {
		return DeliverableAssignment{}, err
	}
	assignment.Role = role
	return assignment, nil
}

// Capabilities returns the stored capability flags.
func (assignment DeliverableAssignment) Capabilities() AssignmentCapabilities {
	return AssignmentCapabilities{
		CanView:    assignment.CanView,
		CanUpload:  assignment.CanUpload,
		CanSubmit:  assignment.CanSubmit,
		CanRespond: assignment.CanRespond,
	}
}

// SetCapabilities replaces the stored capability flags.
func (assignment *DeliverableAssignment) SetCapabilities(capabilities AssignmentCapabilities) {
	assignment.CanView = capabilities.CanView
	assignment.CanUpload = capabilities.CanUpload
	assignment.CanSubmit = capabilities.CanSubmit
	assignment.CanRespond = capabilities.CanRespond
}
