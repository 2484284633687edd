package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
)

const (
	contextKeyLanguage      = "httpapi_language"
	queryParameterLanguage  = "lang"
	headerAcceptLanguage    = "Accept-Language"
	headerContentLanguage   = "Content-Language"
	logEventHTTPRequest     = "http"
	logFieldLanguage        = "lang"
	logFieldRequestDuration = "dur"
)

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		start := time.Now()
		context.Next()
		logger.Info(logEventHTTPRequest,
			zap.String("method", context.Request.Method),
			zap.String("path", context.Request.URL.Path),
			zap.Int("status", context.Writer.Status()),
			zap.Duration(logFieldRequestDuration, time.Since(start)),
			zap.String("ip", context.ClientIP()),
			zap.String("ua", context.Request.UserAgent()),
			zap.String(logFieldLanguage, LanguageFromContext(context)),
		)
	}
}

// LanguageMiddleware resolves the response language from the lang query
// parameter, then the Accept-Language header, then defaultLanguage.
func LanguageMiddleware(defaultLanguage string) gin.HandlerFunc {
	fallback := i18n.Normalize(defaultLanguage, i18n.DefaultLanguage)
	return func(context *gin.Context) {
		lang := ""
		if requested := context.Query(queryParameterLanguage); i18n.IsSupported(requested) {
			lang = strings.ToLower(strings.TrimSpace(requested))
		}
		if lang == "" {
			lang = i18n.DetectLanguageWithDefault(context.GetHeader(headerAcceptLanguage), fallback)
		}
		context.Set(contextKeyLanguage, lang)
		context.Header(headerContentLanguage, lang)
		context.Next()
	}
}

// LanguageFromContext returns the language chosen for the request.
func LanguageFromContext(context *gin.Context) string {
	if value, exists := context.Get(contextKeyLanguage); exists {
		if lang, ok := value.(string); ok && lang != "" {
			return lang
		}
	}
	return i18n.DefaultLanguage
}
