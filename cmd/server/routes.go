package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/access"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/httpapi"
)

const (
	apiRoutePrefix              = "/api"
	apiRouteLogin               = "/auth/login"
	apiRouteLogout              = "/auth/logout"
	apiRouteMe                  = "/me"
	apiRouteClients             = "/clients"
	apiRouteClient              = "/clients/:id"
	apiRouteProjects            = "/projects"
	apiRouteProject             = "/projects/:id"
	apiRouteProjectDeliverables = "/projects/:id/deliverables"
	apiRouteProjectMembers      = "/projects/:id/members"
	apiRouteProjectMember       = "/projects/:id/members/:member_id"
	apiRouteAssignments         = "/deliverables/:id/assignments"
	apiRouteAssignment          = "/assignments/:id"
	apiRouteGrants              = "/deliverables/:id/grants"
	apiRouteGrant               = "/grants/:id"
	apiRouteInvoices            = "/invoices"
	apiRouteInvoicePreview      = "/invoices/preview"
	apiRouteInvoice             = "/invoices/:id"
	apiRouteInvoiceStatus       = "/invoices/:id/status"
	apiRouteMeetings            = "/meetings"
	apiRouteMeeting             = "/meetings/:id"
	apiRouteReportSummary       = "/reports/summary"
	apiRouteReportClients       = "/reports/clients.xlsx"
	corsHeaderContentType       = "Content-Type"
	corsHeaderAcceptLanguage    = "Accept-Language"
	corsHeaderContentLanguage   = "Content-Language"
	corsHeaderDisposition       = "Content-Disposition"
	httpMethodGet               = "GET"
	httpMethodPost              = "POST"
	httpMethodPatch             = "PATCH"
	httpMethodDelete            = "DELETE"
	httpMethodOptions           = "OPTIONS"
	corsMaxAge                  = 12 * time.Hour
)

var (
	corsAllowedMethods = []string{httpMethodGet, httpMethodPost, httpMethodPatch, httpMethodDelete, httpMethodOptions}
	corsAllowedHeaders = []string{corsHeaderContentType, corsHeaderAcceptLanguage}
	corsExposedHeaders = []string{corsHeaderContentType, corsHeaderContentLanguage, corsHeaderDisposition}
)

type routerDependencies struct {
	database            *gorm.DB
	logger              *zap.Logger
	sessionStore        *sessions.CookieStore
	allowedOrigins      []string
	defaultLanguage     string
	restrictedListLimit int
}

func newRouter(dependencies routerDependencies) *gin.Engine {
	logger := dependencies.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	if len(dependencies.allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     dependencies.allowedOrigins,
			AllowMethods:     corsAllowedMethods,
			AllowHeaders:     corsAllowedHeaders,
			ExposeHeaders:    corsExposedHeaders,
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}
	router.Use(httpapi.LanguageMiddleware(dependencies.defaultLanguage))

	registerAPIRoutes(router, apiHandlers{
		auth:         httpapi.NewAuthManager(dependencies.database, logger, dependencies.sessionStore),
		clients:      httpapi.NewClientHandlers(dependencies.database, logger, dependencies.restrictedListLimit),
		projects:     httpapi.NewProjectHandlers(dependencies.database, logger),
		deliverables: httpapi.NewDeliverableHandlers(dependencies.database, logger),
		invoices:     httpapi.NewInvoiceHandlers(dependencies.database, logger),
		meetings:     httpapi.NewMeetingHandlers(dependencies.database, logger),
		reports:      httpapi.NewReportHandlers(dependencies.database, logger, dependencies.restrictedListLimit),
	})

	return router
}

type apiHandlers struct {
	auth         *httpapi.AuthManager
	clients      *httpapi.ClientHandlers
	projects     *httpapi.ProjectHandlers
	deliverables *httpapi.DeliverableHandlers
	invoices     *httpapi.InvoiceHandlers
	meetings     *httpapi.MeetingHandlers
	reports      *httpapi.ReportHandlers
}

func registerAPIRoutes(router *gin.Engine, handlers apiHandlers) {
	publicGroup := router.Group(apiRoutePrefix)
	publicGroup.POST(apiRouteLogin, handlers.auth.Login)
	publicGroup.POST(apiRouteLogout, handlers.auth.Logout)

	apiGroup := router.Group(apiRoutePrefix)
	apiGroup.Use(handlers.auth.RequireAuthenticatedJSON())
	apiGroup.GET(apiRouteMe, handlers.auth.CurrentUser)

	viewClients := httpapi.RequirePermission(access.CanViewClients)
	manageClients := httpapi.RequirePermission(access.CanManageClients)
	apiGroup.GET(apiRouteClients, viewClients, handlers.clients.ListClients)
	apiGroup.POST(apiRouteClients, manageClients, handlers.clients.CreateClient)
	apiGroup.GET(apiRouteClient, viewClients, handlers.clients.GetClient)
	apiGroup.PATCH(apiRouteClient, manageClients, handlers.clients.UpdateClient)
	apiGroup.DELETE(apiRouteClient, manageClients, handlers.clients.DeleteClient)

	viewProjects := httpapi.RequirePermission(access.CanViewProjects)
	manageProjects := httpapi.RequirePermission(access.CanManageProjects)
	manageMembers := httpapi.RequirePermission(access.CanManageProjectMembers)
	apiGroup.GET(apiRouteProjects, viewProjects, handlers.projects.ListProjects)
	apiGroup.POST(apiRouteProjects, manageProjects, handlers.projects.CreateProject)
	apiGroup.GET(apiRouteProject, viewProjects, handlers.projects.GetProject)
	apiGroup.PATCH(apiRouteProject, manageProjects, handlers.projects.UpdateProject)
	apiGroup.DELETE(apiRouteProject, manageProjects, handlers.projects.DeleteProject)
	apiGroup.GET(apiRouteProjectDeliverables, viewProjects, handlers.projects.ListDeliverables)
	apiGroup.POST(apiRouteProjectDeliverables, manageProjects, handlers.projects.CreateDeliverable)
	apiGroup.GET(apiRouteProjectMembers, viewProjects, handlers.projects.ListMembers)
	apiGroup.POST(apiRouteProjectMembers, manageMembers, handlers.projects.AddMember)
	apiGroup.DELETE(apiRouteProjectMember, manageMembers, handlers.projects.RemoveMember)

	viewAssignments := httpapi.RequirePermission(access.CanViewAssignments)
	manageAssignments := httpapi.RequirePermission(access.CanManageAssignments)
	apiGroup.GET(apiRouteAssignments, viewAssignments, handlers.deliverables.ListAssignments)
	apiGroup.POST(apiRouteAssignments, manageAssignments, handlers.deliverables.CreateAssignment)
	apiGroup.PATCH(apiRouteAssignment, manageAssignments, handlers.deliverables.UpdateAssignment)
	apiGroup.DELETE(apiRouteAssignment, manageAssignments, handlers.deliverables.DeleteAssignment)

	viewGrants := httpapi.RequirePermission(access.CanViewGrants)
	manageGrants := httpapi.RequirePermission(access.CanManageGrants)
	apiGroup.GET(apiRouteGrants, viewGrants, handlers.deliverables.ListGrants)
	apiGroup.POST(apiRouteGrants, manageGrants, handlers.deliverables.CreateGrant)
	apiGroup.DELETE(apiRouteGrant, manageGrants, handlers.deliverables.RevokeGrant)

	viewInvoices := httpapi.RequirePermission(access.CanViewInvoices)
	manageInvoices := httpapi.RequirePermission(access.CanManageInvoices)
	apiGroup.GET(apiRouteInvoices, viewInvoices, handlers.invoices.ListInvoices)
	apiGroup.POST(apiRouteInvoicePreview, manageInvoices, handlers.invoices.PreviewInvoice)
	apiGroup.POST(apiRouteInvoices, manageInvoices, handlers.invoices.CreateInvoice)
	apiGroup.GET(apiRouteInvoice, viewInvoices, handlers.invoices.GetInvoice)
	apiGroup.PATCH(apiRouteInvoiceStatus, manageInvoices, handlers.invoices.UpdateInvoiceStatus)
	apiGroup.DELETE(apiRouteInvoice, manageInvoices, handlers.invoices.DeleteInvoice)

	viewMeetings := httpapi.RequirePermission(access.CanViewMeetings)
	scheduleMeetings := httpapi.RequirePermission(access.CanScheduleMeetings)
	apiGroup.GET(apiRouteMeetings, viewMeetings, handlers.meetings.ListMeetings)
	apiGroup.POST(apiRouteMeetings, scheduleMeetings, handlers.meetings.CreateMeeting)
	apiGroup.GET(apiRouteMeeting, viewMeetings, handlers.meetings.GetMeeting)
	apiGroup.PATCH(apiRouteMeeting, scheduleMeetings, handlers.meetings.UpdateMeeting)
	apiGroup.DELETE(apiRouteMeeting, scheduleMeetings, handlers.meetings.DeleteMeeting)

	viewReports := httpapi.RequirePermission(access.CanViewReports)
	apiGroup.GET(apiRouteReportSummary, viewReports, handlers.reports.Summary)
	apiGroup.GET(apiRouteReportClients, viewReports, handlers.reports.ClientsWorkbook)
}
