package model

import (
	"errors"
	"strings"
	"time"
)

// MemberType classifies a project participant's organizational relationship.
type MemberType string

const (
	MemberTypeProjectManager MemberType = "pm"
	MemberTypeConsultant     MemberType = "consultant"
	MemberTypeSubConsultant  MemberType = "sub_consultant"
	MemberTypeClientMain     MemberType = "client_main"
	MemberTypeClientSub      MemberType = "client_sub"
)

// VisibilityMode controls how much of a project a member may see.
type VisibilityMode string

const (
	VisibilityFullProject  VisibilityMode = "full_project"
	VisibilityAssignedOnly VisibilityMode = "assigned_only"
	VisibilityRestricted   VisibilityMode = "restricted"
)

var ErrInvalidProjectMember = errors.New("invalid_project_member")

// ProjectMember associates a user with a project.
type ProjectMember struct {
	ID             string         `gorm:"primaryKey;size:36"`
	ProjectID      string         `gorm:"not null;size:36;uniqueIndex:idx_project_members_project_user"`
	UserID         string         `gorm:"not null;size:36;uniqueIndex:idx_project_members_project_user;index"`
	MemberType     MemberType     `gorm:"not null;size:20"`
	VisibilityMode VisibilityMode `gorm:"not null;size:20"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

// ProjectMemberInput holds the raw values used to construct a ProjectMember.
type ProjectMemberInput struct {
	ProjectID      string
	UserID         string
	MemberType     string
	VisibilityMode string
}

// DefaultVisibility is the visibility mode a member type gets when none is given.
func DefaultVisibility(memberType MemberType) VisibilityMode {
	switch memberType {
	case MemberTypeSubConsultant:
		return VisibilityAssignedOnly
	case MemberTypeClientSub:
		return VisibilityRestricted
	default:
		return VisibilityFullProject
	}
}

// MemberTypeForRole suggests the member type matching a user role.
func MemberTypeForRole(role Role) MemberType {
	switch role {
	case RoleConsultant:
		return MemberTypeConsultant
	case RoleSubConsultant:
		return MemberTypeSubConsultant
	case RoleMainClient:
		return MemberTypeClientMain
	case RoleSubClient:
		return MemberTypeClientSub
	default:
		return MemberTypeProjectManager
	}
}

// NewProjectMember validates input and returns a ProjectMember with a fresh identifier.
func NewProjectMember(input ProjectMemberInput) (ProjectMember, error) {
	fieldErrors := FieldErrors{}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		fieldErrors.Add("project_id", FieldErrorRequired)
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		fieldErrors.Add("user_id", FieldErrorRequired)
	}

	memberType := MemberType(normalizeEnum(fieldErrors, "member_type", input.MemberType, "",
		string(MemberTypeProjectManager), string(MemberTypeConsultant), string(MemberTypeSubConsultant),
		string(MemberTypeClientMain), string(MemberTypeClientSub)))
	visibilityMode := VisibilityMode(normalizeEnum(fieldErrors, "visibility_mode", input.VisibilityMode, string(DefaultVisibility(memberType)),
		string(VisibilityFullProject), string(VisibilityAssignedOnly), string(VisibilityRestricted)))

	if err := validationResult(ErrInvalidProjectMember, fieldErrors); err != nil {
		return ProjectMember{}, err
	}

	return ProjectMember{
		ID:             newIdentifier(),
		ProjectID:      projectID,
		UserID:         userID,
		MemberType:     memberType,
		VisibilityMode: visibilityMode,
	}, nil
}

// SeesWholeProject reports whether the member may see every deliverable of the project.
func (member ProjectMember) SeesWholeProject() bool {
	return member.VisibilityMode == VisibilityFullProject
}
