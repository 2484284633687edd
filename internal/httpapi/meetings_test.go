package httpapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/httpapi"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

type meetingBody struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	Title           string    `json:"title"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	EndsAt          time.Time `json:"ends_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	Attendees       []string  `json:"attendees"`
	CreatedByUserID string    `json:"created_by_user_id"`
}

func scheduleMeeting(testingT *testing.T, handlers *httpapi.MeetingHandlers, currentUser *httpapi.CurrentUser, payload map[string]any) (int, meetingBody) {
	testingT.Helper()
	recorder, context := newJSONContext(http.MethodPost, "/api/meetings", payload)
	context.Set(testSessionContextKey, currentUser)
	handlers.CreateMeeting(context)
	if recorder.Code != http.StatusCreated {
		return recorder.Code, meetingBody{}
	}
	return recorder.Code, decodeData[meetingBody](testingT, recorder)
}

func TestCreateMeetingDefaultsAndRecordsCreator(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewMeetingHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())

	status, meeting := scheduleMeeting(testingT, handlers, adminUser(), map[string]any{
		"client_id":    client.ID,
		"title":        "اجتماع الانطلاق",
		"scheduled_at": "2026-06-01T09:00:00Z",
		"attendees":    []string{"سارة", "سارة", " أحمد "},
	})
	require.Equal(testingT, http.StatusCreated, status)
	require.Equal(testingT, model.DefaultMeetingDurationMinutes, meeting.DurationMinutes)
	require.Equal(testingT, model.MeetingKindInPerson, meeting.Kind)
	require.Equal(testingT, model.MeetingStatusScheduled, meeting.Status)
	require.Equal(testingT, testAdminUserID, meeting.CreatedByUserID)
	require.Equal(testingT, meeting.ScheduledAt.Add(time.Hour), meeting.EndsAt)
	require.Equal(testingT, []string{"سارة", "أحمد"}, meeting.Attendees)
}

func TestCreateOnlineMeetingRequiresURL(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewMeetingHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())

	recorder, context := newJSONContext(http.MethodPost, "/api/meetings", map[string]any{
		"client_id":    client.ID,
		"title":        "مراجعة",
		"scheduled_at": "2026-06-01T09:00:00Z",
		"kind":         "online",
	})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateMeeting(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.Equal(testingT, "validation_failed", body.Error)
	require.Contains(testingT, body.Fields, "meeting_url")
}

func TestCreateMeetingRejectsClientOutsideScope(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewMeetingHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	consultant := createTestUser(testingT, database, "consultant@example.com", model.RoleConsultant, "")

	status, _ := scheduleMeeting(testingT, handlers, currentUserFor(consultant), map[string]any{
		"client_id":    client.ID,
		"title":        "اجتماع",
		"scheduled_at": "2026-06-01T09:00:00Z",
	})
	require.Equal(testingT, http.StatusBadRequest, status)
}

func TestListMeetingsFiltersByDateRange(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewMeetingHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())

	for _, scheduledAt := range []string{"2026-05-31T23:00:00Z", "2026-06-01T09:00:00Z", "2026-06-10T18:30:00Z", "2026-06-11T00:00:00Z"} {
		status, _ := scheduleMeeting(testingT, handlers, adminUser(), map[string]any{
			"client_id":    client.ID,
			"title":        "اجتماع",
			"scheduled_at": scheduledAt,
		})
		require.Equal(testingT, http.StatusCreated, status)
	}

	recorder, context := newJSONContext(http.MethodGet, "/api/meetings?from=2026-06-01&to=2026-06-10", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListMeetings(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	meetings := decodeData[[]meetingBody](testingT, recorder)
	require.Len(testingT, meetings, 2)
	require.True(testingT, meetings[0].ScheduledAt.Before(meetings[1].ScheduledAt))

	recorder, context = newJSONContext(http.MethodGet, "/api/meetings?from=tomorrow", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListMeetings(context)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Equal(testingT, "invalid_query", decodeEnvelope(testingT, recorder).Error)
}

func TestUpdateMeetingKeepsUnspecifiedFields(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewMeetingHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	_, created := scheduleMeeting(testingT, handlers, adminUser(), map[string]any{
		"client_id":        client.ID,
		"title":            "اجتماع",
		"scheduled_at":     "2026-06-01T09:00:00Z",
		"duration_minutes": 45,
	})

	recorder, context := newJSONContext(http.MethodPatch, "/api/meetings/"+created.ID, map[string]any{"status": "completed"})
	context.Params = gin.Params{{Key: "id", Value: created.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.UpdateMeeting(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	updated := decodeData[meetingBody](testingT, recorder)
	require.Equal(testingT, model.MeetingStatusCompleted, updated.Status)
	require.Equal(testingT, 45, updated.DurationMinutes)
	require.Equal(testingT, "اجتماع", updated.Title)

	recorder, context = newJSONContext(http.MethodDelete, "/api/meetings/"+created.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: created.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.DeleteMeeting(context)
	require.Equal(testingT, http.StatusNoContent, recorder.Code)
}
