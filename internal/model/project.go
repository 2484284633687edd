package model

import (
	"errors"
	"strings"
	"time"
)

const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"

	DeliverableStatusPending    = "pending"
	DeliverableStatusInProgress = "in_progress"
	DeliverableStatusSubmitted  = "submitted"
	DeliverableStatusApproved   = "approved"
	DeliverableStatusRejected   = "rejected"

	projectNameMaxLength        = 200
	projectDescriptionMaxLength = 4000
)

var (
	ErrInvalidProject     = errors.New("invalid_project")
	ErrInvalidDeliverable = errors.New("invalid_deliverable")
)

// Project is an engagement delivered to a client.
type Project struct {
	ID            string     `gorm:"primaryKey;size:36"`
	ClientID      string     `gorm:"not null;size:36;index"`
	Name          string     `gorm:"not null;size:200"`
	NameEn        string     `gorm:"size:200"`
	Description   string     `gorm:"size:4000"`
	DescriptionEn string     `gorm:"size:4000"`
	Status        string     `gorm:"not null;size:16;index"`
	StartDate     *time.Time
	EndDate       *time.Time
	Budget        float64
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// ProjectInput holds the raw values used to construct or update a Project.
type ProjectInput struct {
	ClientID      string
	Name          string
	NameEn        string
	Description   string
	DescriptionEn string
	Status        string
	StartDate     *time.Time
	EndDate       *time.Time
	Budget        float64
}

// NewProject validates input and returns a Project with a fresh identifier.
func NewProject(input ProjectInput) (Project, error) {
	project, err := Project{}.WithInput(input)
	if err != nil {
		return Project{}, err
	}
	project.ID = newIdentifier()
	return project, nil
}

// WithInput returns a copy of project carrying the validated input values.
func (project Project) WithInput(input ProjectInput) (Project, error) {
	fieldErrors := FieldErrors{}

	updated := project
	updated.ClientID = strings.TrimSpace(input.ClientID)
	if updated.ClientID == "" {
		fieldErrors.Add("client_id", FieldErrorRequired)
	}
	updated.Name = requireText(fieldErrors, "name", input.Name, projectNameMaxLength)
	updated.NameEn = limitText(fieldErrors, "name_en", input.NameEn, projectNameMaxLength)
	updated.Description = limitText(fieldErrors, "description", input.Description, projectDescriptionMaxLength)
	updated.DescriptionEn = limitText(fieldErrors, "description_en", input.DescriptionEn, projectDescriptionMaxLength)
	updated.Status = normalizeEnum(fieldErrors, "status", input.Status, ProjectStatusPlanning,
		ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled)
	validateDateRange(fieldErrors, "end_date", input.StartDate, input.EndDate)
	updated.StartDate = input.StartDate
	updated.EndDate = input.EndDate
	if input.Budget < 0 {
		fieldErrors.Add("budget", FieldErrorNegative)
	}
	updated.Budget = input.Budget

	if err := validationResult(ErrInvalidProject, fieldErrors); err != nil {
		return Project{}, err
	}
	return updated, nil
}

// Input returns the editable values of project.
func (project Project) Input() ProjectInput {
	return ProjectInput{
		ClientID:      project.ClientID,
		Name:          project.Name,
		NameEn:        project.NameEn,
		Description:   project.Description,
		DescriptionEn: project.DescriptionEn,
		Status:        project.Status,
		StartDate:     project.StartDate,
		EndDate:       project.EndDate,
		Budget:        project.Budget,
	}
}

// DisplayName picks the project name for the given UI language.
func (project Project) DisplayName(language string) string {
	return pickBilingual(language, project.Name, project.NameEn)
}

// Deliverable is a unit of work handed over to the client within a project.
type Deliverable struct {
	ID        string `gorm:"primaryKey;size:36"`
	ProjectID string `gorm:"not null;size:36;index"`
	Title     string `gorm:"not null;size:200"`
	TitleEn   string `gorm:"size:200"`
	DueDate   *time.Time
	Status    string    `gorm:"not null;size:16;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DeliverableInput holds the raw values used to construct a Deliverable.
type DeliverableInput struct {
	ProjectID string
	Title     string
	TitleEn   string
	DueDate   *time.Time
	Status    string
}

// NewDeliverable validates input and returns a Deliverable with a fresh identifier.
func NewDeliverable(input DeliverableInput) (Deliverable, error) {
	fieldErrors := FieldErrors{}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		fieldErrors.Add("project_id", FieldErrorRequired)
	}
	title := requireText(fieldErrors, "title", input.Title, projectNameMaxLength)
	titleEn := limitText(fieldErrors, "title_en", input.TitleEn, projectNameMaxLength)
	status := normalizeEnum(fieldErrors, "status", input.Status, DeliverableStatusPending,
		DeliverableStatusPending, DeliverableStatusInProgress, DeliverableStatusSubmitted,
		DeliverableStatusApproved, DeliverableStatusRejected)

	if err := validationResult(ErrInvalidDeliverable, fieldErrors); err != nil {
		return Deliverable{}, err
	}

	return Deliverable{
		ID:        newIdentifier(),
		ProjectID: projectID,
		Title:     title,
		TitleEn:   titleEn,
		DueDate:   input.DueDate,
		Status:    status,
	}, nil
}
