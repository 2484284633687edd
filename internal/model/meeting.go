package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	MeetingKindInPerson = "in_person"
	MeetingKindOnline   = "online"
	MeetingKindPhone    = "phone"

	MeetingStatusScheduled = "scheduled"
	MeetingStatusCompleted = "completed"
	MeetingStatusCancelled = "cancelled"

	DefaultMeetingDurationMinutes = 60
	maxMeetingDurationMinutes     = 24 * 60
	meetingTitleMaxLength         = 200
	meetingLocationMaxLength      = 300
	meetingURLMaxLength           = 500
	meetingNotesMaxLength         = 4000
)

var ErrInvalidMeeting = errors.New("invalid_meeting")

// Meeting is a scheduled session with a client.
type Meeting struct {
	ID              string                      `gorm:"primaryKey;size:36"`
	ClientID        string                      `gorm:"not null;size:36;index"`
	ProjectID       *string                     `gorm:"size:36;index"`
	Title           string                      `gorm:"not null;size:200"`
	TitleEn         string                      `gorm:"size:200"`
	ScheduledAt     time.Time                   `gorm:"not null;index"`
	DurationMinutes int                         `gorm:"not null"`
	Kind            string                      `gorm:"not null;size:16"`
	Location        string                      `gorm:"size:300"`
	MeetingURL      string                      `gorm:"size:500"`
	Status          string                      `gorm:"not null;size:16;index"`
	Attendees       datatypes.JSONSlice[string] `gorm:"type:json"`
	Notes           string                      `gorm:"size:4000"`
	CreatedByUserID string                      `gorm:"size:36"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
}

// MeetingInput holds the raw values used to construct or update a Meeting.
type MeetingInput struct {
	ClientID        string
	ProjectID       string
	Title           string
	TitleEn         string
	ScheduledAt     time.Time
	DurationMinutes int
	Kind            string
	Location        string
	MeetingURL      string
	Status          string
	Attendees       []string
	Notes           string
	CreatedByUserID string
}

// NewMeeting validates input and returns a Meeting with a fresh identifier.
func NewMeeting(input MeetingInput) (Meeting, error) {
	meeting, err := Meeting{}.WithInput(input)
	if err != nil {
		return Meeting{}, err
	}
	meeting.ID = newIdentifier()
	meeting.CreatedByUserID = strings.TrimSpace(input.CreatedByUserID)
	return meeting, nil
}

// WithInput returns a copy of meeting carrying the validated input values.
func (meeting Meeting) WithInput(input MeetingInput) (Meeting, error) {
	fieldErrors := FieldErrors{}

	updated := meeting
	updated.ClientID = strings.TrimSpace(input.ClientID)
	if updated.ClientID == "" {
		fieldErrors.Add("client_id", FieldErrorRequired)
	}
	updated.ProjectID = nil
	if trimmedProjectID := strings.TrimSpace(input.ProjectID); trimmedProjectID != "" {
		updated.ProjectID = &trimmedProjectID
	}
	updated.Title = requireText(fieldErrors, "title", input.Title, meetingTitleMaxLength)
	updated.TitleEn = limitText(fieldErrors, "title_en", input.TitleEn, meetingTitleMaxLength)
	if input.ScheduledAt.IsZero() {
		fieldErrors.Add("scheduled_at", FieldErrorRequired)
	}
	updated.ScheduledAt = input.ScheduledAt.UTC()

	duration := input.DurationMinutes
	if duration == 0 {
		duration = DefaultMeetingDurationMinutes
	}
	if duration < 0 || duration > maxMeetingDurationMinutes {
		fieldErrors.Add("duration_minutes", FieldErrorOutOfRange)
	}
	updated.DurationMinutes = duration

	updated.Kind = normalizeEnum(fieldErrors, "kind", input.Kind, MeetingKindInPerson,
		MeetingKindInPerson, MeetingKindOnline, MeetingKindPhone)
	updated.Location = limitText(fieldErrors, "location", input.Location, meetingLocationMaxLength)
	updated.MeetingURL = limitText(fieldErrors, "meeting_url", input.MeetingURL, meetingURLMaxLength)
	if updated.Kind == MeetingKindOnline && updated.MeetingURL == "" {
		fieldErrors.Add("meeting_url", FieldErrorRequired)
	}
	updated.Status = normalizeEnum(fieldErrors, "status", input.Status, MeetingStatusScheduled,
		MeetingStatusScheduled, MeetingStatusCompleted, MeetingStatusCancelled)
	updated.Attendees = datatypes.JSONSlice[string](normalizeTags(input.Attendees))
	updated.Notes = limitText(fieldErrors, "notes", input.Notes, meetingNotesMaxLength)

	if err := validationResult(ErrInvalidMeeting, fieldErrors); err != nil {
		return Meeting{}, err
	}
	return updated, nil
}

// Input returns the editable values of meeting.
func (meeting Meeting) Input() MeetingInput {
	projectID := ""
	if meeting.ProjectID != nil {
		projectID = *meeting.ProjectID
	}
	return MeetingInput{
		ClientID:        meeting.ClientID,
		ProjectID:       projectID,
		Title:           meeting.Title,
		TitleEn:         meeting.TitleEn,
		ScheduledAt:     meeting.ScheduledAt,
		DurationMinutes: meeting.DurationMinutes,
		Kind:            meeting.Kind,
		Location:        meeting.Location,
		MeetingURL:      meeting.MeetingURL,
		Status:          meeting.Status,
		Attendees:       append([]string(nil), meeting.Attendees...),
		Notes:           meeting.Notes,
		CreatedByUserID: meeting.CreatedByUserID,
	}
}

// EndsAt is the scheduled end of the meeting.
func (meeting Meeting) EndsAt() time.Time {
	return meeting.ScheduledAt.Add(time.Duration(meeting.DurationMinutes) * time.Minute)
}

// IsUpcoming reports whether a scheduled meeting starts within window after now.
func (meeting Meeting) IsUpcoming(now time.Time, window time.Duration) bool {
	if meeting.Status != MeetingStatusScheduled {
		return false
	}
	return !meeting.ScheduledAt.Before(now) && meeting.ScheduledAt.Before(now.Add(window))
}
