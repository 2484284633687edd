package httpapi_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/httpapi"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

type clientBody struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name"`
	Status            string   `json:"status"`
	StatusLabel       string   `json:"status_label"`
	OutstandingValue  float64  `json:"outstanding_value"`
	TotalValueDisplay string   `json:"total_value_display"`
	Tags              []string `json:"tags"`
}

func TestListClientsPaginatesNewestFirst(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	base := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	for index := 0; index < 12; index++ {
		createTestClient(testingT, database, fmt.Sprintf("عميل %02d", index), fmt.Sprintf("Client %02d", index), base.Add(time.Duration(index)*time.Hour))
	}

	recorder, context := newJSONContext(http.MethodGet, "/api/clients?page=2&limit=5", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListClients(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.NotNil(testingT, body.Pagination)
	require.Equal(testingT, paginationBody{Page: 2, Limit: 5, Total: 12, TotalPages: 3}, *body.Pagination)

	clients := decodeData[[]clientBody](testingT, recorder)
	require.Len(testingT, clients, 5)
	require.Equal(testingT, "عميل 06", clients[0].Name)
	require.Equal(testingT, "عميل 02", clients[4].Name)
}

func TestListClientsSearchesBothLanguagesCaseInsensitively(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	now := time.Now().UTC()
	createTestClient(testingT, database, "شركة النخبة", "Elite Holdings", now)
	createTestClient(testingT, database, "مؤسسة الأفق", "Horizon Group", now.Add(time.Minute))

	recorder, context := newJSONContext(http.MethodGet, "/api/clients?search=ELITE", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListClients(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	clients := decodeData[[]clientBody](testingT, recorder)
	require.Len(testingT, clients, 1)
	require.Equal(testingT, "شركة النخبة", clients[0].Name)

	recorder, context = newJSONContext(http.MethodGet, "/api/clients?search="+url.QueryEscape("الأفق"), nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListClients(context)

	clients = decodeData[[]clientBody](testingT, recorder)
	require.Len(testingT, clients, 1)
	require.Equal(testingT, "مؤسسة الأفق", clients[0].DisplayName)
}

func TestListClientsTruncatesSubConsultantScope(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	subConsultant := createTestUser(testingT, database, "sub@example.com", model.RoleSubConsultant, "")
	base := time.Now().UTC()
	for index := 0; index < 5; index++ {
		client := createTestClient(testingT, database, fmt.Sprintf("عميل %d", index), "", base.Add(time.Duration(index)*time.Minute))
		project := createTestProject(testingT, database, client.ID, fmt.Sprintf("مشروع %d", index))
		addTestMember(testingT, database, project.ID, subConsultant)
	}
	createTestClient(testingT, database, "عميل خارج النطاق", "", base.Add(time.Hour))

	recorder, context := newJSONContext(http.MethodGet, "/api/clients", nil)
	context.Set(testSessionContextKey, currentUserFor(subConsultant))
	handlers.ListClients(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.Equal(testingT, 3, body.Pagination.Total)
	clients := decodeData[[]clientBody](testingT, recorder)
	require.Len(testingT, clients, 3)
	for _, client := range clients {
		require.NotEqual(testingT, "عميل خارج النطاق", client.Name)
	}
}

func TestListClientsRestrictsClientRolesToOwnOrganization(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	now := time.Now().UTC()
	ownClient := createTestClient(testingT, database, "عميلي", "", now)
	otherClient := createTestClient(testingT, database, "عميل آخر", "", now.Add(time.Minute))
	clientUser := createTestUser(testingT, database, "owner@example.com", model.RoleMainClient, ownClient.ID)

	recorder, context := newJSONContext(http.MethodGet, "/api/clients", nil)
	context.Set(testSessionContextKey, currentUserFor(clientUser))
	handlers.ListClients(context)

	clients := decodeData[[]clientBody](testingT, recorder)
	require.Len(testingT, clients, 1)
	require.Equal(testingT, ownClient.ID, clients[0].ID)

	recorder, context = newJSONContext(http.MethodGet, "/api/clients/"+otherClient.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: otherClient.ID}}
	context.Set(testSessionContextKey, currentUserFor(clientUser))
	handlers.GetClient(context)

	require.Equal(testingT, http.StatusNotFound, recorder.Code)
	require.Equal(testingT, "not_found", decodeEnvelope(testingT, recorder).Error)
}

func TestListClientsRejectsNegativePage(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	recorder, context := newJSONContext(http.MethodGet, "/api/clients?page=-1", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListClients(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.False(testingT, body.Success)
	require.Equal(testingT, "invalid_query", body.Error)
	require.Contains(testingT, body.Fields, "page")
}

func TestListClientsReturnsEmptyPageForHugePageNumber(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)
	createTestClient(testingT, database, "عميل", "Client", time.Now().UTC())

	recorder, context := newJSONContext(http.MethodGet, "/api/clients?page=1844674407370955162&limit=10", nil)
	context.Set(testSessionContextKey, adminUser())
	handlers.ListClients(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.NotNil(testingT, body.Pagination)
	require.Equal(testingT, 1, body.Pagination.Total)
	require.Empty(testingT, decodeData[[]clientBody](testingT, recorder))
}

func TestCreateClientReportsLocalizedFieldErrors(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	recorder, context := newJSONContext(http.MethodPost, "/api/clients", map[string]any{
		"contact_email": "not-an-email",
		"satisfaction":  120,
	})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateClient(context)

	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	body := decodeEnvelope(testingT, recorder)
	require.False(testingT, body.Success)
	require.Equal(testingT, "validation_failed", body.Error)
	require.Equal(testingT, i18n.T(i18n.LanguageArabic, "validation_failed"), body.Message)
	require.Equal(testingT, i18n.T(i18n.LanguageArabic, model.FieldErrorRequired), body.Fields["name"])
	require.Equal(testingT, i18n.T(i18n.LanguageArabic, model.FieldErrorRequired), body.Fields["contact_name"])
	require.Equal(testingT, i18n.T(i18n.LanguageArabic, model.FieldErrorInvalidEmail), body.Fields["contact_email"])
	require.Equal(testingT, i18n.T(i18n.LanguageArabic, model.FieldErrorOutOfRange), body.Fields["satisfaction"])

	var stored int64
	require.NoError(testingT, database.Model(&model.Client{}).Count(&stored).Error)
	require.Zero(testingT, stored)
}

func TestCreateAndPatchClient(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	recorder, context := newJSONContext(http.MethodPost, "/api/clients", map[string]any{
		"name":          "شركة المدار",
		"name_en":       "Orbit Co",
		"contact_name":  "سارة",
		"contact_email": "sara@orbit.example",
		"status":        "active",
		"total_value":   250000,
		"paid_value":    100000,
		"satisfaction":  90,
	})
	context.Set(testSessionContextKey, adminUser())
	handlers.CreateClient(context)

	require.Equal(testingT, http.StatusCreated, recorder.Code)
	created := decodeData[clientBody](testingT, recorder)
	require.NotEmpty(testingT, created.ID)
	require.Equal(testingT, 150000.0, created.OutstandingValue)
	require.NotNil(testingT, created.Tags)

	recorder, context = newJSONContext(http.MethodPatch, "/api/clients/"+created.ID, map[string]any{"status": "inactive"})
	context.Params = gin.Params{{Key: "id", Value: created.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.UpdateClient(context)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	updated := decodeData[clientBody](testingT, recorder)
	require.Equal(testingT, "inactive", updated.Status)
	require.Equal(testingT, "شركة المدار", updated.Name)

	var stored model.Client
	require.NoError(testingT, database.First(&stored, "id = ?", created.ID).Error)
	require.Equal(testingT, model.ClientStatusInactive, stored.Status)
	require.Equal(testingT, "sara@orbit.example", stored.ContactEmail)
}

func TestDeleteClientRefusesReferencedClient(testingT *testing.T) {
	database := openTestDatabase(testingT)
	handlers := httpapi.NewClientHandlers(database, zap.NewNop(), 0)

	client := createTestClient(testingT, database, "عميل مرتبط", "", time.Now().UTC())
	createTestProject(testingT, database, client.ID, "مشروع")

	recorder, context := newJSONContext(http.MethodDelete, "/api/clients/"+client.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: client.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.DeleteClient(context)

	require.Equal(testingT, http.StatusConflict, recorder.Code)

	standalone := createTestClient(testingT, database, "عميل مستقل", "", time.Now().UTC())
	recorder, context = newJSONContext(http.MethodDelete, "/api/clients/"+standalone.ID, nil)
	context.Params = gin.Params{{Key: "id", Value: standalone.ID}}
	context.Set(testSessionContextKey, adminUser())
	handlers.DeleteClient(context)

	require.Equal(testingT, http.StatusNoContent, recorder.Code)
	var remaining int64
	require.NoError(testingT, database.Model(&model.Client{}).Where("id = ?", standalone.ID).Count(&remaining).Error)
	require.Zero(testingT, remaining)
}
