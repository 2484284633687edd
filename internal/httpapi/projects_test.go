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
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

type projectBody struct {
	ID        string  `json:"id"`
	ClientID  string  `json:"client_id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type memberBody struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	MemberType     string `json:"member_type"`
	VisibilityMode string `json:"visibility_mode"`
}

func TestCreateProjectValidatesClientAndDates(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewProjectHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())

	recorder, context := newJSONContext(http.MethodPost, "/api/projects", map[string]any{"client_id": "missing", "name": "مشروع"})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateProject(context)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Contains(testingT, decodeEnvelope(testingT, recorder).Fields, "client_id")

	recorder, context = newJSONContext(http.MethodPost, "/api/projects", map[string]any{
		"client_id":  client.ID,
		"name":       "مشروع",
		"start_date": "2026-05-01",
		"end_date":   "2026-04-01",
	})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateProject(context)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Contains(testingT, decodeEnvelope(testingT, recorder).Fields, "end_date")

	recorder, context = newJSONContext(http.MethodPost, "/api/projects", map[string]any{
		"client_id":  client.ID,
		"name":       "مشروع",
		"start_date": "2026-04-01",
		"end_date":   "2026-05-01",
	})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateProject(context)
	require.Equal(testingT, http.StatusCreated, recorder.Code)
	created := decodeData[projectBody](testingT, recorder)
	require.Equal(testingT, model.ProjectStatusPlanning, created.Status)
	require.NotNil(testingT, created.StartDate)
	require.Equal(testingT, "2026-04-01", *created.StartDate)
}

func TestListProjectsShowsConsultantMemberProjectsOnly(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewProjectHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	memberProject := createTestProject(testingT, database, client.ID, "مشروع مشارك")
	createTestProject(testingT, database, client.ID, "مشروع آخر")
	consultant := createTestUser(testingT, database, "consultant@example.com", model.RoleConsultant, "")
	addTestMember(testingT, database, memberProject.ID, consultant)

	recorder, context := newJSONContext(http.MethodGet, "/api/projects", nil)
	context.Set(testSessionContextKey, currentUserFor(consultant))
	handlers.ListProjects(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	projects := decodeData[[]projectBody](testingT, recorder)
	require.Len(testingT, projects, 1)
	require.Equal(testingT, memberProject.ID, projects[0].ID)
}

func TestAddMemberDefaultsTypeFromRole(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewProjectHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	project := createTestProject(testingT, database, client.ID, "مشروع")
	subConsultant := createTestUser(testingT, database, "sub@example.com", model.RoleSubConsultant, "")

	addMember := func() (int, memberBody) {
		recorder, context := newJSONContext(http.MethodPost, "/api/projects/"+project.ID+"/members", map[string]any{"user_id": subConsultant.ID})
		context.Params = gin.Params{{Key: "id", Value: project.ID}}
		context.Set(testSessionContextKey, adminUser())
		handlers.AddMember(context)
		if recorder.Code != http.StatusCreated {
			return recorder.Code, memberBody{}
		}
		return recorder.Code, decodeData[memberBody](testingT, recorder)
	}

	status, member := addMember()
	require.Equal(testingT, http.StatusCreated, status)
	require.Equal(testingT, string(model.MemberTypeSubConsultant), member.MemberType)
	require.Equal(testingT, string(model.VisibilityAssignedOnly), member.VisibilityMode)

	duplicateStatus, _ := addMember()
	require.Equal(testingT, http.StatusConflict, duplicateStatus)
}

func TestDeleteProjectRemovesDependents(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewProjectHandlers(database, zap.NewNop())
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	project := createTestProject(testingT, database, client.ID, "مشروع")
	consultant := createTestUser(testingT, database, "consultant@example.com", model.RoleConsultant, "")
	addTestMember(testingT, database, project.ID, consultant)

	deliverable, err := model.NewDeliverable(model.DeliverableInput{ProjectID: project.ID, Title: "مخرج"})
	require.NoError(testingT, err)
	require.NoError(testingT, database.Create(&deliverable).Error)
	assignment, err := model.NewDeliverableAssignment(model.DeliverableAssignmentInput{DeliverableID: deliverable.ID, UserID: consultant.ID, Role: "owner"})
	require.NoError(testingT, err)
	require.NoError(testingT, database.Create(&assignment).Error)

	projectID := project.ID
	meeting := model.Meeting{
		ID:              storage.NewID(),
		ClientID:        client.ID,
		ProjectID:       &projectID,
		Title:           "اجتماع",
		ScheduledAt:     time.Now().UTC(),
		DurationMinutes: 30,
		Kind:            model.MeetingKindPhone,
		Status:          model.MeetingStatusScheduled,
	}
	require.NoError(testingT, database.Create(&meeting).Error)

	recorder, context := newJSONContext(http.MethodDelete, "/api/projects/"+project.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: project.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.DeleteProject(context)
	require.Equal(testingT, http.StatusNoContent, recorder.Code)

	for _, dependent := range []any{&model.Project{}, &model.Deliverable{}, &model.DeliverableAssignment{}, &model.ProjectMember{}} {
		var count int64
		require.NoError(testingT, database.Model(dependent).Count(&count).Error)
		require.Zero(testingT, count)
	}

	var storedMeeting model.Meeting
	require.NoError(testingT, database.First(&storedMeeting, "id = ?", meeting.ID).Error)
	require.Nil(testingT, storedMeeting.ProjectID)
}
