package model

import (
	"errors"
	"strings"
	"time"
)

// AccessLevel is a permission tier granted on a deliverable.
type AccessLevel string

const (
	AccessLevelView    AccessLevel = "view"
	AccessLevelComment AccessLevel = "comment"
	AccessLevelReview  AccessLevel = "review"
	AccessLevelApprove AccessLevel = "approve"
)

var accessLevelRanks = map[AccessLevel]int{
	AccessLevelView:    1,
	AccessLevelComment: 2,
	AccessLevelReview:  3,
	AccessLevelApprove: 4,
}

var ErrInvalidGrant = errors.New("invalid_grant")

// Allows reports whether holding level permits acting at requested.
// Levels are ordered view < comment < review < approve.
func (level AccessLevel) Allows(requested AccessLevel) bool {
	heldRank, heldKnown := accessLevelRanks[level]
	requestedRank, requestedKnown := accessLevelRanks[requested]
	if !heldKnown || !requestedKnown {
		return false
	}
	return heldRank >= requestedRank
}

// DeliverableGrant is a time-bounded access grant from one user to another.
type DeliverableGrant struct {
	ID              string      `gorm:"primaryKey;size:36"`
	DeliverableID   string      `gorm:"not null;size:36;index"`
	GrantedByUserID string      `gorm:"not null;size:36"`
	GranteeUserID   string      `gorm:"not null;size:36;index"`
	AccessLevel     AccessLevel `gorm:"not null;size:16"`
	ExpiresAt       *time.Time  `gorm:"index"`
	RevokedAt       *time.Time
	Note            string    `gorm:"size:500"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// DeliverableGrantInput holds the raw values used to construct a DeliverableGrant.
type DeliverableGrantInput struct {
	DeliverableID   string
	GrantedByUserID string
	GranteeUserID   string
	AccessLevel     string
	ExpiresAt       *time.Time
	Note            string
}

// NewDeliverableGrant validates input against now and returns a grant with a fresh identifier.
func NewDeliverableGrant(input DeliverableGrantInput, now time.Time) (DeliverableGrant, error) {
	fieldErrors := FieldErrors{}

	deliverableID := strings.TrimSpace(input.DeliverableID)
	if deliverableID == "" {
		fieldErrors.Add("deliverable_id", FieldErrorRequired)
	}
	grantedBy := strings.TrimSpace(input.GrantedByUserID)
	if grantedBy == "" {
		fieldErrors.Add("granted_by_user_id", FieldErrorRequired)
	}
	grantee := strings.TrimSpace(input.GranteeUserID)
	if grantee == "" {
		fieldErrors.Add("grantee_user_id", FieldErrorRequired)
	} else if grantee == grantedBy {
		fieldErrors.Add("grantee_user_id", FieldErrorInvalidValue)
	}
	level := AccessLevel(normalizeEnum(fieldErrors, "access_level", input.AccessLevel, string(AccessLevelView),
		string(AccessLevelView), string(AccessLevelComment), string(AccessLevelReview), string(AccessLevelApprove)))
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		fieldErrors.Add("expires_at", FieldErrorInPast)
	}
	note := limitText(fieldErrors, "note", input.Note, 500)

	if err := validationResult(ErrInvalidGrant, fieldErrors); err != nil {
		return DeliverableGrant{}, err
	}

	return DeliverableGrant{
		ID:              newIdentifier(),
		DeliverableID:   deliverableID,
		GrantedByUserID: grantedBy,
		GranteeUserID:   grantee,
		AccessLevel:     level,
		ExpiresAt:       input.ExpiresAt,
		Note:            note,
	}, nil
}

// IsActive reports whether the grant is neither revoked nor expired at now.
func (grant DeliverableGrant) IsActive(now time.Time) bool {
	if grant.RevokedAt != nil {
		return false
	}
	if grant.ExpiresAt != nil && !grant.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Permits reports whether the grant lets its grantee act at requested level at now.
func (grant DeliverableGrant) Permits(requested AccessLevel, now time.Time) bool {
	return grant.IsActive(now) && grant.AccessLevel.Allows(requested)
}

// Revoke stamps the revocation time once.
func (grant *DeliverableGrant) Revoke(now time.Time) {
	if grant.RevokedAt != nil {
		return
	}
	revokedAt := now.UTC()
	grant.RevokedAt = &revokedAt
}
