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
	logEventListProjects      = "list_projects"
	logEventLoadProject       = "load_project"
	logEventCreateProject     = "create_project"
	logEventUpdateProject     = "update_project"
	logEventDeleteProject     = "delete_project"
	logEventListDeliverables  = "list_deliverables"
	logEventCreateDeliverable = "create_deliverable"
	logEventListMembers       = "list_project_members"
	logEventAddMember         = "add_project_member"
	logEventRemoveMember      = "remove_project_member"
)

var projectAccessors = listing.Accessors[model.Project]{
	ScopeKey: func(project model.Project) string { return project.ID },
	Text: func(project model.Project) []string {
		return []string{project.Name, project.NameEn, project.Description, project.DescriptionEn}
	},
	Status: func(project model.Project) string { return project.Status },
}

type ProjectHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
}

type projectRequest struct {
	ClientID      *string  `json:"client_id"`
	Name          *string  `json:"name"`
	NameEn        *string  `json:"name_en"`
	Description   *string  `json:"description"`
	DescriptionEn *string  `json:"description_en"`
	Status        *string  `json:"status"`
	StartDate     *string  `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	Budget        *float64 `json:"budget"`
}

type projectResponse struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	Name          string    `json:"name"`
	NameEn        string    `json:"name_en"`
	DisplayName   string    `json:"display_name"`
	Description   string    `json:"description"`
	DescriptionEn string    `json:"description_en"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"status_label"`
	StartDate     *string   `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	Budget        float64   `json:"budget"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type deliverableRequest struct {
	Title   string  `json:"title"`
	TitleEn string  `json:"title_en"`
	DueDate *string `json:"due_date"`
	Status  string  `json:"status"`
}

type deliverableResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Title        string    `json:"title"`
	TitleEn      string    `json:"title_en"`
	DisplayTitle string    `json:"display_title"`
	DueDate      *string   `json:"due_date"`
	Status       string    `json:"status"`
	StatusLabel  string    `json:"status_label"`
	CreatedAt    time.Time `json:"created_at"`
}

type memberRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	MemberType     string `json:"member_type"`
	VisibilityMode string `json:"visibility_mode"`
}

type memberResponse struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	UserEmail       string    `json:"user_email"`
	MemberType      string    `json:"member_type"`
	MemberTypeLabel string    `json:"member_type_label"`
	VisibilityMode  string    `json:"visibility_mode"`
	VisibilityLabel string    `json:"visibility_label"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewProjectHandlers(database *gorm.DB, logger *zap.Logger) *ProjectHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, 0),
	}
}

func (handlers *ProjectHandlers) ListProjects(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	var query listQuery
	if !bindQuery(context, &query) {
		return
	}

	criteria, criteriaErr := handlers.visibility.projectCriteria(context.Request.Context(), currentUser)
	if criteriaErr != nil {
		handlers.logger.Warn(logEventListProjects, zap.Error(criteriaErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	projectQuery := handlers.database.WithContext(context.Request.Context()).Model(&model.Project{})
	if clientID := strings.TrimSpace(query.ClientID); clientID != "" {
		projectQuery = projectQuery.Where("client_id = ?", clientID)
	}
	var projects []model.Project
	if err := projectQuery.Order("created_at desc").Order("id").Find(&projects).Error; err != nil {
		handlers.logger.Warn(logEventListProjects, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	criteria.Search = query.Search
	criteria.Status = query.Status
	page := listing.Paginate(listing.Filter(projects, projectAccessors, criteria), query.Page, query.Limit)

	lang := LanguageFromContext(context)
	responses := make([]projectResponse, 0, len(page.Items))
	for _, project := range page.Items {
		responses = append(responses, toProjectResponse(project, lang))
	}
	respondPage(context, listing.Page[projectResponse]{
		Items:      responses,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (handlers *ProjectHandlers) GetProject(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}
	respondData(context, http.StatusOK, toProjectResponse(project, LanguageFromContext(context)))
}

func (handlers *ProjectHandlers) CreateProject(context *gin.Context) {
	var payload projectRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := model.ProjectInput{}
	parseErrors := payload.applyTo(&input)
	project, buildErr := model.NewProject(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}
	if !handlers.requireClientExists(context, project.ClientID) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Create(&project).Error; err != nil {
		handlers.logger.Warn(logEventCreateProject, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusCreated, toProjectResponse(project, LanguageFromContext(context)))
}

func (handlers *ProjectHandlers) UpdateProject(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	var payload projectRequest
	if !bindJSON(context, &payload) {
		return
	}

	input := project.Input()
	parseErrors := payload.applyTo(&input)
	updated, buildErr := project.WithInput(input)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}
	if updated.ClientID != project.ClientID && !handlers.requireClientExists(context, updated.ClientID) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Save(&updated).Error; err != nil {
		handlers.logger.Warn(logEventUpdateProject, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusOK, toProjectResponse(updated, LanguageFromContext(context)))
}

// DeleteProject removes the project with its deliverables, their assignments
// and grants, and its members. Invoices and meetings lose the project link.
func (handlers *ProjectHandlers) DeleteProject(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	deleteErr := handlers.database.WithContext(context.Request.Context()).Transaction(func(transaction *gorm.DB) error {
		deliverableIDs, err := projectDeliverableIDs(transaction, project.ID)
		if err != nil {
			return err
		}
		if len(deliverableIDs) > 0 {
			if err := transaction.Where("deliverable_id IN ?", deliverableIDs).Delete(&model.DeliverableAssignment{}).Error; err != nil {
				return err
			}
			if err := transaction.Where("deliverable_id IN ?", deliverableIDs).Delete(&model.DeliverableGrant{}).Error; err != nil {
				return err
			}
		}
		if err := transaction.Where("project_id = ?", project.ID).Delete(&model.Deliverable{}).Error; err != nil {
			return err
		}
		if err := transaction.Where("project_id = ?", project.ID).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		for _, linked := range []any{&model.Invoice{}, &model.Meeting{}} {
			if err := transaction.Model(linked).Where("project_id = ?", project.ID).Update("project_id", nil).Error; err != nil {
				return err
			}
		}
		return transaction.Delete(&model.Project{ID: project.ID}).Error
	})
	if deleteErr != nil {
		handlers.logger.Warn(logEventDeleteProject, zap.Error(deleteErr))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *ProjectHandlers) ListDeliverables(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	var deliverables []model.Deliverable
	if err := handlers.database.WithContext(context.Request.Context()).
		Where("project_id = ?", project.ID).
		Order("created_at desc").
		Order("id").
		Find(&deliverables).Error; err != nil {
		handlers.logger.Warn(logEventListDeliverables, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	lang := LanguageFromContext(context)
	responses := make([]deliverableResponse, 0, len(deliverables))
	for _, deliverable := range deliverables {
		responses = append(responses, toDeliverableResponse(deliverable, lang))
	}
	respondData(context, http.StatusOK, responses)
}

func (handlers *ProjectHandlers) CreateDeliverable(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	var payload deliverableRequest
	if !bindJSON(context, &payload) {
		return
	}

	parseErrors := model.FieldErrors{}
	deliverable, buildErr := model.NewDeliverable(model.DeliverableInput{
		ProjectID: project.ID,
		Title:     payload.Title,
		TitleEn:   payload.TitleEn,
		DueDate:   parseDate(parseErrors, "due_date", payload.DueDate),
		Status:    payload.Status,
	})
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Create(&deliverable).Error; err != nil {
		handlers.logger.Warn(logEventCreateDeliverable, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusCreated, toDeliverableResponse(deliverable, LanguageFromContext(context)))
}

func (handlers *ProjectHandlers) ListMembers(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	var members []model.ProjectMember
	if err := handlers.database.WithContext(context.Request.Context()).
		Where("project_id = ?", project.ID).
		Order("created_at").
		Order("id").
		Find(&members).Error; err != nil {
		handlers.logger.Warn(logEventListMembers, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	userIDs := make([]string, 0, len(members))
	for _, member := range members {
		userIDs = append(userIDs, member.UserID)
	}
	usersByID, usersErr := loadUsersByID(handlers.database.WithContext(context.Request.Context()), userIDs)
	if usersErr != nil {
		handlers.logger.Warn(logEventListMembers, zap.Error(usersErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	lang := LanguageFromContext(context)
	responses := make([]memberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, toMemberResponse(member, usersByID[member.UserID], lang))
	}
	respondData(context, http.StatusOK, responses)
}

// AddMember adds a user to the project. The member type defaults to the one
// matching the user's role and the visibility mode to the type's default.
func (handlers *ProjectHandlers) AddMember(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	var payload memberRequest
	if !bindJSON(context, &payload) {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var user model.User
	if err := database.First(&user, "id = ?", strings.TrimSpace(payload.UserID)).Error; err != nil {
		if storage.IsNotFound(err) {
			respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"user_id": model.FieldErrorInvalidValue})
			return
		}
		handlers.logger.Warn(logEventAddMember, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	memberType := payload.MemberType
	if strings.TrimSpace(memberType) == "" {
		memberType = string(model.MemberTypeForRole(user.Role))
	}
	member, buildErr := model.NewProjectMember(model.ProjectMemberInput{
		ProjectID:      project.ID,
		UserID:         user.ID,
		MemberType:     memberType,
		VisibilityMode: payload.VisibilityMode,
	})
	if buildErr != nil {
		respondDomainError(context, buildErr)
		return
	}

	if err := database.Create(&member).Error; err != nil {
		if storage.IsDuplicateKey(err) {
			respondError(context, http.StatusConflict, errorValueConflict)
			return
		}
		handlers.logger.Warn(logEventAddMember, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusCreated, toMemberResponse(member, user, LanguageFromContext(context)))
}

// RemoveMember removes the member and the user's assignments on the project's deliverables.
func (handlers *ProjectHandlers) RemoveMember(context *gin.Context) {
	project, ok := handlers.loadVisibleProject(context)
	if !ok {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var member model.ProjectMember
	if err := database.First(&member, "id = ? AND project_id = ?", paramID(context, "member_id"), project.ID).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return
		}
		handlers.logger.Warn(logEventRemoveMember, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	deleteErr := database.Transaction(func(transaction *gorm.DB) error {
		deliverableIDs, err := projectDeliverableIDs(transaction, project.ID)
		if err != nil {
			return err
		}
		if len(deliverableIDs) > 0 {
			if err := transaction.
				Where("user_id = ? AND deliverable_id IN ?", member.UserID, deliverableIDs).
				Delete(&model.DeliverableAssignment{}).Error; err != nil {
				return err
			}
		}
		return transaction.Delete(&model.ProjectMember{ID: member.ID}).Error
	})
	if deleteErr != nil {
		handlers.logger.Warn(logEventRemoveMember, zap.Error(deleteErr))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *ProjectHandlers) loadVisibleProject(context *gin.Context) (model.Project, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return model.Project{}, false
	}

	var project model.Project
	if err := handlers.database.WithContext(context.Request.Context()).First(&project, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.Project{}, false
		}
		handlers.logger.Warn(logEventLoadProject, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Project{}, false
	}

	visible, visibilityErr := handlers.visibility.canSeeProject(context.Request.Context(), currentUser, project.ID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventLoadProject, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Project{}, false
	}
	if !visible {
		respondError(context, http.StatusNotFound, errorValueNotFound)
		return model.Project{}, false
	}
	return project, true
}

func (handlers *ProjectHandlers) requireClientExists(context *gin.Context, clientID string) bool {
	var matches int64
	if err := handlers.database.WithContext(context.Request.Context()).
		Model(&model.Client{}).
		Where("id = ?", clientID).
		Count(&matches).Error; err != nil {
		handlers.logger.Warn(logEventLoadProject, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return false
	}
	if matches == 0 {
		respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"client_id": model.FieldErrorInvalidValue})
		return false
	}
	return true
}

func (request projectRequest) applyTo(input *model.ProjectInput) model.FieldErrors {
	parseErrors := model.FieldErrors{}
	assignString(&input.ClientID, request.ClientID)
	assignString(&input.Name, request.Name)
	assignString(&input.NameEn, request.NameEn)
	assignString(&input.Description, request.Description)
	assignString(&input.DescriptionEn, request.DescriptionEn)
	assignString(&input.Status, request.Status)
	if request.StartDate != nil {
		input.StartDate = parseDate(parseErrors, "start_date", request.StartDate)
	}
	if request.EndDate != nil {
		input.EndDate = parseDate(parseErrors, "end_date", request.EndDate)
	}
	if request.Budget != nil {
		input.Budget = *request.Budget
	}
	return parseErrors
}

func projectDeliverableIDs(database *gorm.DB, projectID string) ([]string, error) {
	var deliverableIDs []string
	err := database.Model(&model.Deliverable{}).Where("project_id = ?", projectID).Pluck("id", &deliverableIDs).Error
	return deliverableIDs, err
}

func loadUsersByID(database *gorm.DB, userIDs []string) (map[string]model.User, error) {
	usersByID := make(map[string]model.User, len(userIDs))
	if len(userIDs) == 0 {
		return usersByID, nil
	}
	var users []model.User
	if err := database.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		usersByID[user.ID] = user
	}
	return usersByID, nil
}

func toProjectResponse(project model.Project, lang string) projectResponse {
	return projectResponse{
		ID:            project.ID,
		ClientID:      project.ClientID,
		Name:          project.Name,
		NameEn:        project.NameEn,
		DisplayName:   project.DisplayName(lang),
		Description:   project.Description,
		DescriptionEn: project.DescriptionEn,
		Status:        project.Status,
		StatusLabel:   i18n.Label(lang, "project_status", project.Status),
		StartDate:     formatDate(project.StartDate),
		EndDate:       formatDate(project.EndDate),
		Budget:        project.Budget,
		CreatedAt:     project.CreatedAt,
		UpdatedAt:     project.UpdatedAt,
	}
}

func toDeliverableResponse(deliverable model.Deliverable, lang string) deliverableResponse {
	displayTitle := deliverable.Title
	if lang == i18n.LanguageEnglish && deliverable.TitleEn != "" {
		displayTitle = deliverable.TitleEn
	}
	return deliverableResponse{
		ID:           deliverable.ID,
		ProjectID:    deliverable.ProjectID,
		Title:        deliverable.Title,
		TitleEn:      deliverable.TitleEn,
		DisplayTitle: displayTitle,
		DueDate:      formatDate(deliverable.DueDate),
		Status:       deliverable.Status,
		StatusLabel:  i18n.Label(lang, "deliverable_status", deliverable.Status),
		CreatedAt:    deliverable.CreatedAt,
	}
}

func toMemberResponse(member model.ProjectMember, user model.User, lang string) memberResponse {
	return memberResponse{
		ID:              member.ID,
		ProjectID:       member.ProjectID,
		UserID:          member.UserID,
		UserName:        user.DisplayName(lang),
		UserEmail:       user.Email,
		MemberType:      string(member.MemberType),
		MemberTypeLabel: i18n.Label(lang, "member_type", string(member.MemberType)),
		VisibilityMode:  string(member.VisibilityMode),
		VisibilityLabel: i18n.Label(lang, "visibility", string(member.VisibilityMode)),
		CreatedAt:       member.CreatedAt,
	}
}
