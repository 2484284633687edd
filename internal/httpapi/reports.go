package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/access"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/report"
)

const (
	logEventBuildSummary  = "build_summary"
	logEventExportClients = "export_clients"

	workbookContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	workbookFileTemplate = "clients-%s.xlsx"
)

type ReportHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
	clock      func() time.Time
}

func NewReportHandlers(database *gorm.DB, logger *zap.Logger, restrictedListLimit int) *ReportHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, restrictedListLimit),
		clock:      time.Now,
	}
}

// Summary aggregates the records visible to the caller. Invoice figures are
// left empty for roles that cannot view invoices.
func (handlers *ReportHandlers) Summary(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	dataset, err := handlers.loadDataset(context, currentUser)
	if err != nil {
		handlers.logger.Warn(logEventBuildSummary, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	respondData(context, http.StatusOK, report.BuildSummary(dataset, handlers.clock()))
}

// ClientsWorkbook streams the visible clients as an XLSX attachment.
func (handlers *ReportHandlers) ClientsWorkbook(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	clients, err := handlers.visibleClients(context, currentUser)
	if err != nil {
		handlers.logger.Warn(logEventExportClients, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	var buffer bytes.Buffer
	if err := report.WriteClientsWorkbook(&buffer, clients, LanguageFromContext(context)); err != nil {
		handlers.logger.Warn(logEventExportClients, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueExportFailed)
		return
	}

	fileName := fmt.Sprintf(workbookFileTemplate, handlers.clock().UTC().Format(dateLayout))
	context.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	context.Data(http.StatusOK, workbookContentType, buffer.Bytes())
}

func (handlers *ReportHandlers) visibleClients(context *gin.Context, currentUser *CurrentUser) ([]model.Client, error) {
	criteria, err := handlers.visibility.clientCriteria(context.Request.Context(), currentUser, true)
	if err != nil {
		return nil, err
	}
	var clients []model.Client
	if err := handlers.database.WithContext(context.Request.Context()).
		Order("created_at desc").
		Order("id").
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return listing.Filter(clients, clientAccessors, criteria), nil
}

func (handlers *ReportHandlers) loadDataset(context *gin.Context, currentUser *CurrentUser) (report.Dataset, error) {
	ctx := context.Request.Context()
	database := handlers.database.WithContext(ctx)

	clients, err := handlers.visibleClients(context, currentUser)
	if err != nil {
		return report.Dataset{}, err
	}
	dataset := report.Dataset{Clients: clients}

	criteria, err := handlers.visibility.clientCriteria(ctx, currentUser, false)
	if err != nil {
		return report.Dataset{}, err
	}

	if access.CanViewInvoices(currentUser.Role) {
		var invoices []model.Invoice
		if err := database.Find(&invoices).Error; err != nil {
			return report.Dataset{}, err
		}
		dataset.Invoices = listing.Filter(invoices, invoiceAccessors, criteria)
	}

	if access.CanViewMeetings(currentUser.Role) {
		var meetings []model.Meeting
		if err := database.Where("status = ?", model.MeetingStatusScheduled).Find(&meetings).Error; err != nil {
			return report.Dataset{}, err
		}
		dataset.Meetings = listing.Filter(meetings, meetingAccessors, criteria)
	}

	grantQuery := database.Model(&model.DeliverableGrant{})
	if access.ScopeFor(currentUser.Role) != access.ScopeAll {
		grantQuery = grantQuery.Where("grantee_user_id = ? OR granted_by_user_id = ?", currentUser.ID, currentUser.ID)
	}
	if err := grantQuery.Find(&dataset.Grants).Error; err != nil {
		return report.Dataset{}, err
	}
	return dataset, nil
}
