package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

const (
	logEventListMeetings  = "list_meetings"
	logEventLoadMeeting   = "load_meeting"
	logEventCreateMeeting = "create_meeting"
	logEventUpdateMeeting = "update_meeting"
	logEventDeleteMeeting = "delete_meeting"
)

var meetingAccessors = listing.Accessors[model.Meeting]{
	ScopeKey: func(meeting model.Meeting) string { return meeting.ClientID },
	Text: func(meeting model.Meeting) []string {
		return []string{meeting.Title, meeting.TitleEn, meeting.Location}
	},
	Status: func(meeting model.Meeting) string { return meeting.Status },
}

type MeetingHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
}

type meetingListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=0"`
	Search   string `form:"search" binding:"max=200"`
	Status   string `form:"status" binding:"max=32"`
	ClientID string `form:"client_id" binding:"max=36"`
	From     string `form:"from"`
	To       string `form:"to"`
}

type meetingRequest struct {
	ClientID        *string   `json:"client_id"`
	ProjectID       *string   `json:"project_id"`
	Title           *string   `json:"title"`
	TitleEn         *string   `json:"title_en"`
	ScheduledAt     *string   `json:"scheduled_at"`
	DurationMinutes *int      `json:"duration_minutes"`
	Kind            *string   `json:"kind"`
	Location        *string   `json:"location"`
	MeetingURL      *string   `json:"meeting_url"`
	Status          *string   `json:"status"`
	Attendees       *[]string `json:"attendees"`
	Notes           *string   `json:"notes"`
}

type meetingResponse struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	ProjectID       *string   `json:"project_id"`
	Title           string    `json:"title"`
	TitleEn         string    `json:"title_en"`
	DisplayTitle    string    `json:"display_title"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	EndsAt          time.Time `json:"ends_at"`
	ScheduledLabel  string    `json:"scheduled_label"`
	DurationMinutes int       `json:"duration_minutes"`
	Kind            string    `json:"kind"`
	KindLabel       string    `json:"kind_label"`
	Location        string    `json:"location"`
	MeetingURL      string    `json:"meeting_url"`
	Status          string    `json:"status"`
	StatusLabel     string    `json:"status_label"`
	Attendees       []string  `json:"attendees"`
	Notes           string    `json:"notes"`
	CreatedByUserID string    `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewMeetingHandlers(database *gorm.DB, logger *zap.Logger) *MeetingHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, 0),
	}
}

// ListMeetings lists visible meetings in schedule order. The optional from
// and to dates bound scheduled_at, to being inclusive of the whole day.
func (handlers *MeetingHandlers) ListMeetings(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	var query meetingListQuery
	if !bindQuery(context, &query) {
		return
	}
	parseErrors := model.FieldErrors{}
	from := parseDate(parseErrors, "from", &query.From)
	to := parseDate(parseErrors, "to", &query.To)
	if !parseErrors.Empty() {
		respondFieldErrors(context, http.StatusBadRequest, errorValueInvalidQuery, parseErrors)
		return
	}

	criteria, criteriaErr := handlers.visibility.clientCriteria(context.Request.Context(), currentUser, false)
	if criteriaErr != nil {
		handlers.logger.Warn(logEventListMeetings, zap.Error(criteriaErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	meetingQuery := handlers.database.WithContext(context.Request.Context()).Model(&model.Meeting{})
	if clientID := strings.TrimSpace(query.ClientID); clientID != "" {
		meetingQuery = meetingQuery.Where("client_id = ?", clientID)
	}
	if from != nil {
		meetingQuery = meetingQuery.Where("scheduled_at >= ?", *from)
	}
	if to != nil {
		meetingQuery = meetingQuery.Where("scheduled_at < ?", to.AddDate(0, 0, 1))
	}
	var meetings []model.Meeting
	if err := meetingQuery.Order("scheduled_at").Order("id").Find(&meetings).Error; err != nil {
		handlers.logger.Warn(logEventListMeetings, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	criteria.Search = query.Search
	criteria.Status = query.Status
	page := listing.Paginate(listing.Filter(meetings, meetingAccessors, criteria), query.Page, query.Limit)

	lang := LanguageFromContext(context)
	responses := make([]meetingResponse, 0, len(page.Items))
	for _, meeting := range page.Items {
		responses = append(responses, toMeetingResponse(meeting, lang))
	}
	respondPage(context, listing.Page[meetingResponse]{
		Items:      responses,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (handlers *MeetingHandlers) CreateMeeting(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	var payload meetingRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := model.MeetingInput{CreatedByUserID: currentUser.ID}
	parseErrors := payload.applyTo(&input)
	meeting, buildErr := model.NewMeeting(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}
	if !handlers.requireSchedulableClient(context, currentUser, meeting) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Create(&meeting).Error; err != nil {
		handlers.logger.Warn(logEventCreateMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusCreated, toMeetingResponse(meeting, LanguageFromContext(context)))
}

func (handlers *MeetingHandlers) GetMeeting(context *gin.Context) {
	meeting, ok := handlers.loadVisibleMeeting(context)
	if !ok {
		return
	}
	respondData(context, http.StatusOK, toMeetingResponse(meeting, LanguageFromContext(context)))
}

func (handlers *MeetingHandlers) UpdateMeeting(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}
	meeting, ok := handlers.loadVisibleMeeting(context)
	if !ok {
		return
	}

	var payload meetingRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := meeting.Input()
	parseErrors := payload.applyTo(&input)
	updated, buildErr := meeting.WithInput(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}
	if !handlers.requireSchedulableClient(context, currentUser, updated) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Save(&updated).Error; err != nil {
		handlers.logger.Warn(logEventUpdateMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusOK, toMeetingResponse(updated, LanguageFromContext(context)))
}

func (handlers *MeetingHandlers) DeleteMeeting(context *gin.Context) {
	meeting, ok := handlers.loadVisibleMeeting(context)
	if !ok {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Delete(&model.Meeting{ID: meeting.ID}).Error; err != nil {
		handlers.logger.Warn(logEventDeleteMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *MeetingHandlers) loadVisibleMeeting(context *gin.Context) (model.Meeting, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return model.Meeting{}, false
	}

	var meeting model.Meeting
	if err := handlers.database.WithContext(context.Request.Context()).First(&meeting, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.Meeting{}, false
		}
		handlers.logger.Warn(logEventLoadMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Meeting{}, false
	}

	visible, visibilityErr := handlers.visibility.canSeeClient(context.Request.Context(), currentUser, meeting.ClientID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventLoadMeeting, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Meeting{}, false
	}
	if !visible {
		respondError(context, http.StatusNotFound, errorValueNotFound)
		return model.Meeting{}, false
	}
	return meeting, true
}

// requireSchedulableClient checks the meeting's client exists and is visible
// to the caller, and that a linked project belongs to that client.
func (handlers *MeetingHandlers) requireSchedulableClient(context *gin.Context, currentUser *CurrentUser, meeting model.Meeting) bool {
	database := handlers.database.WithContext(context.Request.Context())
	var clientMatches int64
	if err := database.Model(&model.Client{}).Where("id = ?", meeting.ClientID).Count(&clientMatches).Error; err != nil {
		handlers.logger.Warn(logEventCreateMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	visible, visibilityErr := handlers.visibility.canSeeClient(context.Request.Context(), currentUser, meeting.ClientID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventCreateMeeting, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	if clientMatches == 0 || !visible {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"client_id": model.FieldErrorInvalidValue})
		return false
	}
	if meeting.ProjectID == nil {
		return true
	}
	var projectMatches int64
	if err := database.Model(&model.Project{}).Where("id = ? AND client_id = ?", *meeting.ProjectID, meeting.ClientID).Count(&projectMatches).Error; err != nil {
		handlers.logger.Warn(logEventCreateMeeting, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	if projectMatches == 0 {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"project_id": model.FieldErrorInvalidValue})
		return false
	}
	return true
}

func (request meetingRequest) applyTo(input *model.MeetingInput) model.FieldErrors {
	parseErrors := model.FieldErrors{}
	assignString(&input.ClientID, request.ClientID)
	assignString(&input.ProjectID, request.ProjectID)
	assignString(&input.Title, request.Title)
	assignString(&input.TitleEn, request.TitleEn)
	assignString(&input.Kind, request.Kind)
	assignString(&input.Location, request.Location)
	assignString(&input.MeetingURL, request.MeetingURL)
	assignString(&input.Status, request.Status)
	assignString(&input.Notes, request.Notes)
	if request.ScheduledAt != nil {
		input.ScheduledAt = time.Time{}
		if scheduledAt := parseDate(parseErrors, "scheduled_at", request.ScheduledAt); scheduledAt != nil {
			input.ScheduledAt = *scheduledAt
		}
	}
	if request.DurationMinutes != nil {
		input.DurationMinutes = *request.DurationMinutes
	}
	if request.Attendees != nil {
		input.Attendees = *request.Attendees
	}
	return parseErrors
}

func toMeetingResponse(meeting model.Meeting, lang string) meetingResponse {
	displayTitle := meeting.Title
	if lang == i18n.LanguageEnglish && meeting.TitleEn != "" {
		displayTitle = meeting.TitleEn
	}
	return meetingResponse{
		ID:              meeting.ID,
		ClientID:        meeting.ClientID,
		ProjectID:       meeting.ProjectID,
		Title:           meeting.Title,
		TitleEn:         meeting.TitleEn,
		DisplayTitle:    displayTitle,
		ScheduledAt:     meeting.ScheduledAt,
		EndsAt:          meeting.EndsAt(),
		ScheduledLabel:  i18n.FormatDate(lang, meeting.ScheduledAt),
		DurationMinutes: meeting.DurationMinutes,
		Kind:            meeting.Kind,
		KindLabel:       i18n.Label(lang, "meeting_kind", meeting.Kind),
		Location:        meeting.Location,
		MeetingURL:      meeting.MeetingURL,
		Status:          meeting.Status,
		StatusLabel:     i18n.Label(lang, "meeting_status", meeting.Status),
		Attendees:       nonNilStrings(meeting.Attendees),
		Notes:           meeting.Notes,
		CreatedByUserID: meeting.CreatedByUserID,
		CreatedAt:       meeting.CreatedAt,
	}
}
