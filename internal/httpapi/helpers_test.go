package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/httpapi"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/testutil"
)

const (
	testSessionContextKey = "httpapi_current_user"
	testAdminUserID       = "admin-user"
	testAdminEmailAddress = "admin@example.com"
)

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Pagination *paginationBody   `json:"pagination"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields"`
}

type paginationBody struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func openTestDatabase(testingT *testing.T) *gorm.DB {
	testingT.Helper()
	gin.SetMode(gin.TestMode)
	return testutil.OpenMigratedDatabase(testingT)
}

func newJSONContext(method string, path string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	recorder := httptest.NewRecorder()
	var requestBody *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		requestBody = bytes.NewReader(encoded)
	} else {
		requestBody = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, requestBody)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	context, _ := gin.CreateTestContext(recorder)
	context.Request = request
	return recorder, context
}

func adminUser() *httpapi.CurrentUser {
	return &httpapi.CurrentUser{ID: testAdminUserID, Email: testAdminEmailAddress, Name: "مدير النظام", Role: model.RoleSystemAdmin}
}

func decodeEnvelope(testingT *testing.T, recorder *httptest.ResponseRecorder) envelope {
	testingT.Helper()
	var body envelope
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &body), recorder.Body.String())
	return body
}

func decodeData[T any](testingT *testing.T, recorder *httptest.ResponseRecorder) T {
	testingT.Helper()
	body := decodeEnvelope(testingT, recorder)
	require.True(testingT, body.Success, recorder.Body.String())
	var data T
	require.NoError(testingT, json.Unmarshal(body.Data, &data))
	return data
}

func createTestClient(testingT *testing.T, database *gorm.DB, name string, nameEn string, createdAt time.Time) model.Client {
	testingT.Helper()
	client, err := model.NewClient(model.ClientInput{
		Name:         name,
		NameEn:       nameEn,
		ContactName:  "جهة الاتصال",
		ContactEmail: "contact@example.com",
		Status:       model.ClientStatusActive,
		TotalValue:   100000,
		PaidValue:    40000,
		Satisfaction: 80,
	})
	require.NoError(testingT, err)
	client.CreatedAt = createdAt
	require.NoError(testingT, database.Create(&client).Error)
	return client
}

func createTestProject(testingT *testing.T, database *gorm.DB, clientID string, name string) model.Project {
	testingT.Helper()
	project, err := model.NewProject(model.ProjectInput{ClientID: clientID, Name: name, Status: model.ProjectStatusActive})
	require.NoError(testingT, err)
	require.NoError(testingT, database.Create(&project).Error)
	return project
}

func createTestUser(testingT *testing.T, database *gorm.DB, email string, role model.Role, clientID string) model.User {
	testingT.Helper()
	user, err := model.NewUser(model.UserInput{Email: email, Name: email, Role: string(role), ClientID: clientID})
	require.NoError(testingT, err)
	require.NoError(testingT, database.Create(&user).Error)
	return user
}

func addTestMember(testingT *testing.T, database *gorm.DB, projectID string, user model.User) {
	testingT.Helper()
	member := model.ProjectMember{
		ID:             storage.NewID(),
		ProjectID:      projectID,
		UserID:         user.ID,
		MemberType:     model.MemberTypeForRole(user.Role),
		VisibilityMode: model.DefaultVisibility(model.MemberTypeForRole(user.Role)),
	}
	require.NoError(testingT, database.Create(&member).Error)
}

func currentUserFor(user model.User) *httpapi.CurrentUser {
	return &httpapi.CurrentUser{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		ClientID: user.ClientIdentifier(),
	}
}
