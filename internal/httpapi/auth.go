package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/access"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/auth"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

const (
	contextKeyCurrentUser = "httpapi_current_user"
	logEventLoadSession   = "load_session"
	logEventLoadUser      = "load_session_user"
	logEventSaveSession   = "save_session"
	logEventLoginFailed   = "login_failed"
	logEventLogin         = "login"
)

// CurrentUser is the authenticated caller resolved from the session cookie.
type CurrentUser struct {
	ID       string
	Email    string
	Name     string
	NameEn   string
	Role     model.Role
	ClientID string
}

func newCurrentUser(user model.User) *CurrentUser {
	return &CurrentUser{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		NameEn:   user.NameEn,
		Role:     user.Role,
		ClientID: user.ClientIdentifier(),
	}
}

type AuthManager struct {
	database     *gorm.DB
	logger       *zap.Logger
	sessionStore *sessions.CookieStore
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Language string `json:"language" binding:"omitempty,oneof=ar en"`
}

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	NameEn      string  `json:"name_en"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	RoleLabel   string  `json:"role_label"`
	ClientID    *string `json:"client_id"`
}

type currentUserResponse struct {
	User         userResponse    `json:"user"`
	Capabilities map[string]bool `json:"capabilities"`
	Permissions  []string        `json:"permissions"`
	Scope        string          `json:"scope"`
	Language     string          `json:"language"`
	Direction    string          `json:"direction"`
	Languages    []string        `json:"languages"`
}

func NewAuthManager(database *gorm.DB, logger *zap.Logger, sessionStore *sessions.CookieStore) *AuthManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthManager{
		database:     database,
		logger:       logger,
		sessionStore: sessionStore,
	}
}

func (authManager *AuthManager) RequireAuthenticatedJSON() gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, ok := authManager.ensureUser(context); !ok {
			respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
			return
		}
		context.Next()
	}
}

// RequirePermission rejects callers whose role fails predicate.
func RequirePermission(predicate func(model.Role) bool) gin.HandlerFunc {
	return func(context *gin.Context) {
		currentUser, ok := CurrentUserFromContext(context)
		if !ok {
			respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
			return
		}
		if !predicate(currentUser.Role) {
			respondError(context, http.StatusForbidden, errorValueNotAuthorized)
			return
		}
		context.Next()
	}
}

func CurrentUserFromContext(context *gin.Context) (*CurrentUser, bool) {
	value, exists := context.Get(contextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	currentUser, ok := value.(*CurrentUser)
	return currentUser, ok
}

func (authManager *AuthManager) Login(context *gin.Context) {
	var payload loginRequest
	if !bindJSON(context, &payload) {
		return
	}

	var user model.User
	lookupErr := authManager.database.WithContext(context.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(payload.Email))).
		First(&user).Error
	if lookupErr != nil {
		if !storage.IsNotFound(lookupErr) {
			authManager.logger.Warn(logEventLoginFailed, zap.Error(lookupErr))
			respondError(context, http.StatusInternalServerError, errorValueQueryFailed)
			return
		}
		respondError(context, http.StatusUnauthorized, errorValueInvalidCredential)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, payload.Password); err != nil {
		respondError(context, http.StatusUnauthorized, errorValueInvalidCredential)
		return
	}

	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, auth.SessionName)
	if sessionErr != nil {
		authManager.logger.Debug(logEventLoadSession, zap.Error(sessionErr))
	}
	sessionInstance.Values[auth.SessionKeyUserID] = user.ID
	if payload.Language != "" {
		sessionInstance.Values[auth.SessionKeyLanguage] = payload.Language
	}
	sessionInstance.Options.Secure = auth.IsSecureRequest(context.Request)
	if err := sessionInstance.Save(context.Request, context.Writer); err != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSessionFailed)
		return
	}

	authManager.logger.Info(logEventLogin, zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	currentUser := newCurrentUser(user)
	context.Set(contextKeyCurrentUser, currentUser)
	respondData(context, http.StatusOK, authManager.currentUserResponse(context, currentUser))
}

func (authManager *AuthManager) Logout(context *gin.Context) {
	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, auth.SessionName)
	if sessionErr != nil {
		authManager.logger.Debug(logEventLoadSession, zap.Error(sessionErr))
	}
	sessionInstance.Values = map[interface{}]interface{}{}
	sessionInstance.Options.MaxAge = -1
	if err := sessionInstance.Save(context.Request, context.Writer); err != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(err))
		respondError(context, http.StatusInternalServerError, errorValueSessionFailed)
		return
	}
	respondData(context, http.StatusOK, nil)
}

func (authManager *AuthManager) CurrentUser(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondError(context, http.StatusUnauthorized, errorValueNotAuthenticated)
		return
	}
	respondData(context, http.StatusOK, authManager.currentUserResponse(context, currentUser))
}

func (authManager *AuthManager) currentUserResponse(context *gin.Context, currentUser *CurrentUser) currentUserResponse {
	lang := LanguageFromContext(context)
	return currentUserResponse{
		User:         toUserResponse(currentUser, lang),
		Capabilities: access.Capabilities(currentUser.Role),
		Permissions:  permissionNames(access.PermissionsFor(currentUser.Role)),
		Scope:        string(access.ScopeFor(currentUser.Role)),
		Language:     lang,
		Direction:    i18n.Direction(lang),
		Languages:    i18n.SupportedLanguages(),
	}
}

func permissionNames(permissions []access.Permission) []string {
	names := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		names = append(names, string(permission))
	}
	return names
}

func (authManager *AuthManager) ensureUser(context *gin.Context) (*CurrentUser, bool) {
	if currentUser, exists := CurrentUserFromContext(context); exists {
		return currentUser, true
	}

	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, auth.SessionName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
		return nil, false
	}

	userID := extractString(sessionInstance.Values[auth.SessionKeyUserID])
	if userID == "" {
		return nil, false
	}

	var user model.User
	if err := authManager.database.WithContext(context.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if !storage.IsNotFound(err) {
			authManager.logger.Warn(logEventLoadUser, zap.Error(err))
		}
		return nil, false
	}

	if requested := context.Query(queryParameterLanguage); !i18n.IsSupported(requested) {
		if sessionLanguage := extractString(sessionInstance.Values[auth.SessionKeyLanguage]); i18n.IsSupported(sessionLanguage) {
			context.Set(contextKeyLanguage, sessionLanguage)
			context.Header(headerContentLanguage, sessionLanguage)
		}
	}

	currentUser := newCurrentUser(user)
	context.Set(contextKeyCurrentUser, currentUser)
	return currentUser, true
}

func toUserResponse(currentUser *CurrentUser, lang string) userResponse {
	var clientID *string
	if currentUser.ClientID != "" {
		identifier := currentUser.ClientID
		clientID = &identifier
	}
	displayName := currentUser.Name
	if lang == i18n.LanguageEnglish && currentUser.NameEn != "" {
		displayName = currentUser.NameEn
	}
	return userResponse{
		ID:          currentUser.ID,
		Email:       currentUser.Email,
		Name:        currentUser.Name,
		NameEn:      currentUser.NameEn,
		DisplayName: displayName,
		Role:        string(currentUser.Role),
		RoleLabel:   i18n.Label(lang, "role", string(currentUser.Role)),
		ClientID:    clientID,
	}
}

func extractString(value interface{}) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
