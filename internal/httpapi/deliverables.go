package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/access"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

const (
	logEventLoadDeliverable  = "load_deliverable"
	logEventListAssignments  = "list_assignments"
	logEventCreateAssignment = "create_assignment"
	logEventUpdateAssignment = "update_assignment"
	logEventDeleteAssignment = "delete_assignment"
	logEventListGrants       = "list_grants"
	logEventCreateGrant      = "create_grant"
	logEventRevokeGrant      = "revoke_grant"
)

// DeliverableHandlers manages who works on a deliverable and who was granted access to it.
type DeliverableHandlers struct {
	database   *gorm.DB
	logger     *zap.Logger
	visibility visibility
	clock      func() time.Time
}

type assignmentRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Role       string `json:"role" binding:"required"`
	CanView    *bool  `json:"can_view"`
	CanUpload  *bool  `json:"can_upload"`
	CanSubmit  *bool  `json:"can_submit"`
	CanRespond *bool  `json:"can_respond"`
}

type assignmentUpdateRequest struct {
	Role       *string `json:"role"`
	CanView    *bool   `json:"can_view"`
	CanUpload  *bool   `json:"can_upload"`
	CanSubmit  *bool   `json:"can_submit"`
	CanRespond *bool   `json:"can_respond"`
}

type assignmentResponse struct {
	ID            string    `json:"id"`
	DeliverableID string    `json:"deliverable_id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	Role          string    `json:"role"`
	RoleLabel     string    `json:"role_label"`
	CanView       bool      `json:"can_view"`
	CanUpload     bool      `json:"can_upload"`
	CanSubmit     bool      `json:"can_submit"`
	CanRespond    bool      `json:"can_respond"`
	CreatedAt     time.Time `json:"created_at"`
}

type grantRequest struct {
	GranteeUserID string  `json:"grantee_user_id" binding:"required"`
	AccessLevel   string  `json:"access_level"`
	ExpiresAt     *string `json:"expires_at"`
	Note          string  `json:"note"`
}

type grantResponse struct {
	ID               string     `json:"id"`
	DeliverableID    string     `json:"deliverable_id"`
	GrantedByUserID  string     `json:"granted_by_user_id"`
	GranteeUserID    string     `json:"grantee_user_id"`
	GranteeName      string     `json:"grantee_name"`
	AccessLevel      string     `json:"access_level"`
	AccessLevelLabel string     `json:"access_level_label"`
	ExpiresAt        *time.Time `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at"`
	Active           bool       `json:"active"`
	Note             string     `json:"note"`
	CreatedAt        time.Time  `json:"created_at"`
}

func NewDeliverableHandlers(database *gorm.DB, logger *zap.Logger) *DeliverableHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliverableHandlers{
		database:   database,
		logger:     logger,
		visibility: newVisibility(database, 0),
		clock:      time.Now,
	}
}

func (handlers *DeliverableHandlers) ListAssignments(context *gin.Context) {
	deliverable, ok := handlers.loadVisibleDeliverable(context, paramID(context, "id"), model.AccessLevelView)
	if !ok {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var assignments []model.DeliverableAssignment
	if err := database.Where("deliverable_id = ?", deliverable.ID).Order("created_at").Order("id").Find(&assignments).Error; err != nil {
		handlers.logger.Warn(logEventListAssignments, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	userIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		userIDs = append(userIDs, assignment.UserID)
	}
	usersByID, usersErr := loadUsersByID(database, userIDs)
	if usersErr != nil {
		handlers.logger.Warn(logEventListAssignments, zap.Error(usersErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	lang := LanguageFromContext(context)
	responses := make([]assignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, toAssignmentResponse(assignment, usersByID[assignment.UserID], lang))
	}
	respondData(context, http.StatusOK, responses)
}

// CreateAssignment assigns a project member to the deliverable. Capability
// flags left out of the payload take the role's defaults.
func (handlers *DeliverableHandlers) CreateAssignment(context *gin.Context) {
	deliverable, ok := handlers.loadVisibleDeliverable(context, paramID(context, "id"), model.AccessLevelApprove)
	if !ok {
		return
	}

	var payload assignmentRequest
	if !bindJSON(context, &payload) {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	userID := strings.TrimSpace(payload.UserID)
	var membership model.ProjectMember
	if err := database.First(&membership, "project_id = ? AND user_id = ?", deliverable.ProjectID, userID).Error; err != nil {
		if storage.IsNotFound(err) {
			respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"user_id": model.FieldErrorInvalidValue})
			return
		}
		handlers.logger.Warn(logEventCreateAssignment, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	input := model.DeliverableAssignmentInput{
		DeliverableID: deliverable.ID,
		UserID:        userID,
		Role:          payload.Role,
	}
	if payload.CanView != nil || payload.CanUpload != nil || payload.CanSubmit != nil || payload.CanRespond != nil {
		capabilities := model.DefaultCapabilities(model.AssignmentRole(strings.ToLower(strings.TrimSpace(payload.Role))))
		overrideCapabilities(&capabilities, payload.CanView, payload.CanUpload, payload.CanSubmit, payload.CanRespond)
		input.Capabilities = &capabilities
	}
	assignment, buildErr := model.NewDeliverableAssignment(input)
	if buildErr != nil {
		respondDomainError(context, buildErr)
		return
	}

	if err := database.Create(&assignment).Error; err != nil {
		if storage.IsDuplicateKey(err) {
			respondError(context, http.StatusConflict, errorValueConflict)
			return
		}
		handlers.logger.Warn(logEventCreateAssignment, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	var user model.User
	if err := database.First(&user, "id = ?", assignment.UserID).Error; err != nil {
		handlers.logger.Debug(logEventCreateAssignment, zap.Error(err))
	}
	respondData(context, http.StatusCreated, toAssignmentResponse(assignment, user, LanguageFromContext(context)))
}

// UpdateAssignment changes the role or individual capability flags. Flags
// are stored as given; changing the role alone keeps the current flags.
func (handlers *DeliverableHandlers) UpdateAssignment(context *gin.Context) {
	assignment, ok := handlers.loadVisibleAssignment(context, model.AccessLevelApprove)
	if !ok {
		return
	}

	var payload assignmentUpdateRequest
	if !bindJSON(context, &payload) {
		return
	}

	updated := assignment
	if payload.Role != nil {
		withRole, roleErr := assignment.WithRole(*payload.Role)
		if roleErr != nil {
			respondDomainError(context, roleErr)
			return
		}
		updated = withRole
	}
	capabilities := updated.Capabilities()
	overrideCapabilities(&capabilities, payload.CanView, payload.CanUpload, payload.CanSubmit, payload.CanRespond)
	updated.SetCapabilities(capabilities)

	database := handlers.database.WithContext(context.Request.Context())
	if err := database.Save(&updated).Error; err != nil {
		handlers.logger.Warn(logEventUpdateAssignment, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}

	var user model.User
	if err := database.First(&user, "id = ?", updated.UserID).Error; err != nil {
		handlers.logger.Debug(logEventUpdateAssignment, zap.Error(err))
	}
	respondData(context, http.StatusOK, toAssignmentResponse(updated, user, LanguageFromContext(context)))
}

func (handlers *DeliverableHandlers) DeleteAssignment(context *gin.Context) {
	assignment, ok := handlers.loadVisibleAssignment(context, model.AccessLevelApprove)
	if !ok {
		return
	}

	if err := handlers.database.WithContext(context.Request.Context()).Delete(&model.DeliverableAssignment{ID: assignment.ID}).Error; err != nil {
		handlers.logger.Warn(logEventDeleteAssignment, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueDeleteFailed)
		return
	}

	context.Status(http.StatusNoContent)
	context.Writer.WriteHeaderNow()
}

func (handlers *DeliverableHandlers) ListGrants(context *gin.Context) {
	deliverable, ok := handlers.loadVisibleDeliverable(context, paramID(context, "id"), model.AccessLevelView)
	if !ok {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var grants []model.DeliverableGrant
	if err := database.Where("deliverable_id = ?", deliverable.ID).Order("created_at desc").Order("id").Find(&grants).Error; err != nil {
		handlers.logger.Warn(logEventListGrants, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	userIDs := make([]string, 0, len(grants))
	for _, grant := range grants {
		userIDs = append(userIDs, grant.GranteeUserID)
	}
	usersByID, usersErr := loadUsersByID(database, userIDs)
	if usersErr != nil {
		handlers.logger.Warn(logEventListGrants, zap.Error(usersErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	now := handlers.clock()
	lang := LanguageFromContext(context)
	responses := make([]grantResponse, 0, len(grants))
	for _, grant := range grants {
		responses = append(responses, toGrantResponse(grant, usersByID[grant.GranteeUserID], lang, now))
	}
	respondData(context, http.StatusOK, responses)
}

func (handlers *DeliverableHandlers) CreateGrant(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}
	deliverable, ok := handlers.loadVisibleDeliverable(context, paramID(context, "id"), model.AccessLevelApprove)
	if !ok {
		return
	}

	var payload grantRequest
	if !bindJSON(context, &payload) {
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var grantee model.User
	if err := database.First(&grantee, "id = ?", strings.TrimSpace(payload.GranteeUserID)).Error; err != nil {
		if storage.IsNotFound(err) {
			respondFieldErrors(context, http.StatusBadRequest, errorValueValidationFailed, map[string]string{"grantee_user_id": model.FieldErrorInvalidValue})
			return
		}
		handlers.logger.Warn(logEventCreateGrant, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}

	now := handlers.clock()
	parseErrors := model.FieldErrors{}
	grant, buildErr := model.NewDeliverableGrant(model.DeliverableGrantInput{
		DeliverableID:   deliverable.ID,
		GrantedByUserID: currentUser.ID,
		GranteeUserID:   grantee.ID,
		AccessLevel:     payload.AccessLevel,
		ExpiresAt:       parseDate(parseErrors, "expires_at", payload.ExpiresAt),
		Note:            payload.Note,
	}, now)
	if respondInvalidInput(context, parseErrors, buildErr) {
		return
	}

	if err := database.Create(&grant).Error; err != nil {
		handlers.logger.Warn(logEventCreateGrant, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
		return
	}
	respondData(context, http.StatusCreated, toGrantResponse(grant, grantee, LanguageFromContext(context), now))
}

// RevokeGrant stamps the revocation time. Revoking twice keeps the first
// stamp. Only the grantor or a caller who sees all data may revoke.
func (handlers *DeliverableHandlers) RevokeGrant(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}

	database := handlers.database.WithContext(context.Request.Context())
	var grant model.DeliverableGrant
	if err := database.First(&grant, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return
		}
		handlers.logger.Warn(logEventRevokeGrant, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return
	}
	if _, visible := handlers.loadVisibleDeliverable(context, grant.DeliverableID, model.AccessLevelView); !visible {
		return
	}
	if grant.GrantedByUserID != currentUser.ID && !access.CanViewAllData(currentUser.Role) {
		respondError(context, http.StatusForbidden, errorValueNotAuthorized)
		return
	}

	now := handlers.clock()
	if grant.RevokedAt == nil {
		grant.Revoke(now)
		if err := database.Model(&grant).Update("revoked_at", grant.RevokedAt).Error; err != nil {
			handlers.logger.Warn(logEventRevokeGrant, zap.Error(err))
			respondError(context, http.StatusInternalServerError, errorValueSaveFailed)
			return
		}
	}

	var grantee model.User
	if err := database.First(&grantee, "id = ?", grant.GranteeUserID).Error; err != nil {
		handlers.logger.Debug(logEventRevokeGrant, zap.Error(err))
	}
	respondData(context, http.StatusOK, toGrantResponse(grant, grantee, LanguageFromContext(context), now))
}

// loadVisibleDeliverable resolves a deliverable the caller may reach through
// project visibility or through an active grant at required or above.
func (handlers *DeliverableHandlers) loadVisibleDeliverable(context *gin.Context, deliverableID string, required model.AccessLevel) (model.Deliverable, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return model.Deliverable{}, false
	}

	var deliverable model.Deliverable
	if err := handlers.database.WithContext(context.Request.Context()).First(&deliverable, "id = ?", deliverableID).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.Deliverable{}, false
		}
		handlers.logger.Warn(logEventLoadDeliverable, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Deliverable{}, false
	}

	visible, visibilityErr := handlers.visibility.canSeeProject(context.Request.Context(), currentUser, deliverable.ProjectID)
	if visibilityErr != nil {
		handlers.logger.Warn(logEventLoadDeliverable, zap.Error(visibilityErr))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.Deliverable{}, false
	}
	if !visible {
		var grants []model.DeliverableGrant
		if err := handlers.database.WithContext(context.Request.Context()).
			Where("deliverable_id = ? AND grantee_user_id = ? AND revoked_at IS NULL", deliverable.ID, currentUser.ID).
			Find(&grants).Error; err != nil {
			handlers.logger.Warn(logEventLoadDeliverable, zap.Error(err))
			respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
			return model.Deliverable{}, false
		}
		visible = access.GrantAllows(grants, currentUser.ID, required, handlers.clock())
	}
	if !visible {
		respondError(context, http.StatusNotFound, errorValueNotFound)
		return model.Deliverable{}, false
	}
	return deliverable, true
}

func (handlers *DeliverableHandlers) loadVisibleAssignment(context *gin.Context, required model.AccessLevel) (model.DeliverableAssignment, bool) {
	var assignment model.DeliverableAssignment
	if err := handlers.database.WithContext(context.Request.Context()).First(&assignment, "id = ?", paramID(context, "id")).Error; err != nil {
		if storage.IsNotFound(err) {
			respondError(context, http.StatusNotFound, errorValueNotFound)
			return model.DeliverableAssignment{}, false
		}
		handlers.logger.Warn(logEventLoadDeliverable, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
		return model.DeliverableAssignment{}, false
	}
	if _, visible := handlers.loadVisibleDeliverable(context, assignment.DeliverableID, required); !visible {
		return model.DeliverableAssignment{}, false
	}
	return assignment, true
}

func overrideCapabilities(capabilities *model.AssignmentCapabilities, canView *bool, canUpload *bool, canSubmit *bool, canRespond *bool) {
	if canView != nil {
		capabilities.CanView = *canView
	}
	if canUpload != nil {
		capabilities.CanUpload = *canUpload
	}
	if canSubmit != nil {
		capabilities.CanSubmit = *canSubmit
	}
	if canRespond != nil {
		capabilities.CanRespond = *canRespond
	}
}

func toAssignmentResponse(assignment model.DeliverableAssignment, user model.User, lang string) assignmentResponse {
	return assignmentResponse{
		ID:            assignment.ID,
		DeliverableID: assignment.DeliverableID,
		UserID:        assignment.UserID,
		UserName:      user.DisplayName(lang),
		Role:          string(assignment.Role),
		RoleLabel:     i18n.Label(lang, "assignment_role", string(assignment.Role)),
		CanView:       assignment.CanView,
		CanUpload:     assignment.CanUpload,
		CanSubmit:     assignment.CanSubmit,
		CanRespond:    assignment.CanRespond,
		CreatedAt:     assignment.CreatedAt,
	}
}

func toGrantResponse(grant model.DeliverableGrant, grantee model.User, lang string, now time.Time) grantResponse {
	return grantResponse{
		ID:               grant.ID,
		DeliverableID:    grant.DeliverableID,
		GrantedByUserID:  grant.GrantedByUserID,
		GranteeUserID:    grant.GranteeUserID,
		GranteeName:      grantee.DisplayName(lang),
		AccessLevel:      string(grant.AccessLevel),
		AccessLevelLabel: i18n.Label(lang, "access_level", string(grant.AccessLevel)),
		ExpiresAt:        grant.ExpiresAt,
		RevokedAt:        grant.RevokedAt,
		Active:           grant.IsActive(now),
		Note:             grant.Note,
		CreatedAt:        grant.CreatedAt,
	}
}
