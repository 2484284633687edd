package httpapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/httpapi"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

type assignmentBody struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	CanView    bool   `json:"can_view"`
	CanUpload  bool   `json:"can_upload"`
	CanSubmit  bool   `json:"can_submit"`
	CanRespond bool   `json:"can_respond"`
}

type grantBody struct {
	ID              string     `json:"id"`
	GrantedByUserID string     `json:"granted_by_user_id"`
	GranteeUserID   string     `json:"grantee_user_id"`
	AccessLevel     string     `json:"access_level"`
	RevokedAt       *time.Time `json:"revoked_at"`
	Active          bool       `json:"active"`
}

type deliverableFixture struct {
	database    *gorm.DB
	handlers    *httpapi.DeliverableHandlers
	project     model.Project
	deliverable model.Deliverable
	consultant  model.User
	outsider    model.User
}

func newDeliverableFixture(testingT *testing.T) deliverableFixture {
	testingT.Helper()
	database := openTestDatabase(testingT)
	client := createTestClient(testingT, database, "عميل", "", time.Now().UTC())
	project := createTestProject(testingT, database, client.ID, "مشروع التحول")
	deliverable, err := model.NewDeliverable(model.DeliverableInput{ProjectID: project.ID, Title: "تقرير التقييم"})
	require.NoError(testingT, err)
	require.NoError(testingT, database.Create(&deliverable).Error)

	consultant := createTestUser(testingT, database, "consultant@example.com", model.RoleConsultant, "")
	addTestMember(testingT, database, project.ID, consultant)
	outsider := createTestUser(testingT, database, "outsider@example.com", model.RoleConsultant, "")

	return deliverableFixture{
		database:    database,
		handlers:    httpapi.NewDeliverableHandlers(database, zap.NewNop()),
		project:     project,
		deliverable: deliverable,
		consultant:  consultant,
		outsider:    outsider,
	}
}

func (fixture deliverableFixture) createAssignment(testingT *testing.T, payload map[string]any) (int, assignmentBody) {
	testingT.Helper()
	recorder, context := newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/assignments", payload)
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.CreateAssignment(context)
	if recorder.Code != http.StatusCreated {
		return recorder.Code, assignmentBody{}
	}
	return recorder.Code, decodeData[assignmentBody](testingT, recorder)
}

func TestCreateAssignmentAppliesRoleDefaults(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)

	status, assignment := fixture.createAssignment(testingT, map[string]any{"user_id": fixture.consultant.ID, "role": "contributor"})
	require.Equal(testingT, http.StatusCreated, status)
	require.Equal(testingT, "contributor", assignment.Role)
	require.True(testingT, assignment.CanView)
	require.True(testingT, assignment.CanUpload)
	require.False(testingT, assignment.CanSubmit)
	require.True(testingT, assignment.CanRespond)

	duplicateStatus, _ := fixture.createAssignment(testingT, map[string]any{"user_id": fixture.consultant.ID, "role": "owner"})
	require.Equal(testingT, http.StatusConflict, duplicateStatus)
}

func TestCreateAssignmentStoresExplicitFlags(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)

	status, assignment := fixture.createAssignment(testingT, map[string]any{
		"user_id":    fixture.consultant.ID,
		"role":       "internal_reviewer",
		"can_submit": true,
		"can_view":   false,
	})
	require.Equal(testingT, http.StatusCreated, status)
	require.False(testingT, assignment.CanView)
	require.True(testingT, assignment.CanSubmit)
	require.True(testingT, assignment.CanRespond)
}

func TestCreateAssignmentRequiresProjectMembership(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)

	recorder, context := newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/assignments", map[string]any{
		"user_id": fixture.outsider.ID,
		"role":    "owner",
	})
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.CreateAssignment(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Contains(testingT, decodeEnvelope(testingT, recorder).Fields, "user_id")
}

func TestUpdateAssignmentRoleKeepsFlags(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)
	_, created := fixture.createAssignment(testingT, map[string]any{"user_id": fixture.consultant.ID, "role": "internal_reviewer"})

	recorder, context := newJSONContext(http.MethodPatch, "/api/assignments/"+created.ID, map[string]any{"role": "owner", "can_upload": true})
	context.Params = gin.Params{{Key: "id", Value: created.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.UpdateAssignment(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	updated := decodeData[assignmentBody](testingT, recorder)
	require.Equal(testingT, "owner", updated.Role)
	require.True(testingT, updated.CanView)
	require.True(testingT, updated.CanUpload)
	require.False(testingT, updated.CanSubmit)

	var stored model.DeliverableAssignment
	require.NoError(testingT, fixture.database.First(&stored, "id = ?", created.ID).Error)
	require.Equal(testingT, model.AssignmentRoleOwner, stored.Role)
	require.True(testingT, stored.CanUpload)
}

func TestAssignmentsHiddenFromNonMembers(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)

	recorder, context := newJSONContext(http.MethodGet, "/api/deliverables/"+fixture.deliverable.ID+"/assignments", nil)
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, currentUserFor(fixture.outsider))
	fixture.handlers.ListAssignments(context)
	require.Equal(testingT, http.StatusNotFound, recorder.Code)

	recorder, context = newJSONContext(http.MethodGet, "/api/deliverables/"+fixture.deliverable.ID+"/assignments", nil)
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, currentUserFor(fixture.consultant))
	fixture.handlers.ListAssignments(context)
	require.Equal(testingT, http.StatusOK, recorder.Code)
}

func TestRevokeGrantIsLimitedToGrantorAndIdempotent(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)
	manager := createTestUser(testingT, fixture.database, "manager@example.com", model.RoleProjectManager, "")
	grantor := currentUserFor(manager)

	recorder, context := newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/grants", map[string]any{
		"grantee_user_id": fixture.outsider.ID,
		"access_level":    "review",
		"expires_at":      time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"),
	})
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, grantor)
	fixture.handlers.CreateGrant(context)
	require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	grant := decodeData[grantBody](testingT, recorder)
	require.Equal(testingT, manager.ID, grant.GrantedByUserID)
	require.True(testingT, grant.Active)

	otherMember := createTestUser(testingT, fixture.database, "peer@example.com", model.RoleConsultant, "")
	addTestMember(testingT, fixture.database, fixture.project.ID, otherMember)
	recorder, context = newJSONContext(http.MethodDelete, "/api/grants/"+grant.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: grant.ID}}
	context.Set(testSessionContextKey, currentUserFor(otherMember))
	fixture.handlers.RevokeGrant(context)
	require.Equal(testingT, http.StatusForbidden, recorder.Code)

	recorder, context = newJSONContext(http.MethodDelete, "/api/grants/"+grant.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: grant.ID}}
	context.Set(testSessionContextKey, grantor)
	fixture.handlers.RevokeGrant(context)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	revoked := decodeData[grantBody](testingT, recorder)
	require.NotNil(testingT, revoked.RevokedAt)
	require.False(testingT, revoked.Active)

	recorder, context = newJSONContext(http.MethodDelete, "/api/grants/"+grant.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: grant.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.RevokeGrant(context)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	again := decodeData[grantBody](testingT, recorder)
	require.NotNil(testingT, again.RevokedAt)
	require.WithinDuration(testingT, *revoked.RevokedAt, *again.RevokedAt, time.Second)
}

func TestCreateGrantRejectsUnknownGrantee(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)

	recorder, context := newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/grants", map[string]any{
		"grantee_user_id": "missing-user",
	})
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.CreateGrant(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	require.Contains(testingT, decodeEnvelope(testingT, recorder).Fields, "grantee_user_id")
}

func (fixture deliverableFixture) listAssignmentsAs(currentUser *httpapi.CurrentUser) int {
	recorder, context := newJSONContext(http.MethodGet, "/api/deliverables/"+fixture.deliverable.ID+"/assignments", nil)
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, currentUser)
	fixture.handlers.ListAssignments(context)
	return recorder.Code
}

func TestActiveGrantOpensDeliverableToGrantee(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)
	grantee := currentUserFor(fixture.outsider)
	require.Equal(testingT, http.StatusNotFound, fixture.listAssignmentsAs(grantee))

	recorder, context := newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/grants", map[string]any{
		"grantee_user_id": fixture.outsider.ID,
		"access_level":    "view",
	})
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.CreateGrant(context)
	require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	grant := decodeData[grantBody](testingT, recorder)

	require.Equal(testingT, http.StatusOK, fixture.listAssignmentsAs(grantee))

	recorder, context = newJSONContext(http.MethodPost, "/api/deliverables/"+fixture.deliverable.ID+"/grants", map[string]any{
		"grantee_user_id": fixture.consultant.ID,
	})
	context.Params = gin.Params{{Key: "id", Value: fixture.deliverable.ID}}
	context.Set(testSessionContextKey, grantee)
	fixture.handlers.CreateGrant(context)
	require.Equal(testingT, http.StatusNotFound, recorder.Code)

	recorder, context = newJSONContext(http.MethodDelete, "/api/grants/"+grant.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: grant.ID}}
	context.Set(testSessionContextKey, adminUser())
	fixture.handlers.RevokeGrant(context)
	require.Equal(testingT, http.StatusOK, recorder.Code)

	require.Equal(testingT, http.StatusNotFound, fixture.listAssignmentsAs(grantee))
}

func TestExpiredGrantDoesNotOpenDeliverable(testingT *testing.T) {
	fixture := newDeliverableFixture(testingT)
	issuedAt := time.Now().UTC().AddDate(0, 0, -10)
	expiresAt := issuedAt.AddDate(0, 0, 5)
	grant, err := model.NewDeliverableGrant(model.DeliverableGrantInput{
		DeliverableID:   fixture.deliverable.ID,
		GrantedByUserID: testAdminUserID,
		GranteeUserID:   fixture.outsider.ID,
		AccessLevel:     string(model.AccessLevelApprove),
		ExpiresAt:       &expiresAt,
	}, issuedAt)
	require.NoError(testingT, err)
	require.NoError(testingT, fixture.database.Create(&grant).Error)

	require.Equal(testingT, http.StatusNotFound, fixture.listAssignmentsAs(currentUserFor(fixture.outsider)))
}
