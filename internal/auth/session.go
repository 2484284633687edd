package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie carrying the dashboard session.
	SessionName = "clientdesk_session"
	// SessionKeyUserID stores the authenticated user identifier.
	SessionKeyUserID = "user_id"
	// SessionKeyLanguage stores the language chosen at login.
	SessionKeyLanguage = "language"

	// MinimumSessionSecretLength is the shortest accepted signing secret.
	MinimumSessionSecretLength = 32

	sessionMaxAge = 12 * time.Hour

	headerForwarded        = "Forwarded"
	headerXForwardedProto  = "X-Forwarded-Proto"
	headerXForwardedScheme = "X-Forwarded-Scheme"
	forwardedProtoPrefix   = "proto="
	headerValueSeparator   = ","
	forwardedPairSeparator = ";"
	urlSchemeHTTPS         = "https"
)

// ErrShortSessionSecret indicates the session secret is shorter than MinimumSessionSecretLength.
var ErrShortSessionSecret = errors.New("auth: session secret too short")

// NewSessionStore builds the signed cookie store for dashboard sessions.
func NewSessionStore(secret string) (*sessions.CookieStore, error) {
	trimmedSecret := strings.TrimSpace(secret)
	if len(trimmedSecret) < MinimumSessionSecretLength {
		return nil, ErrShortSessionSecret
	}
	store := sessions.NewCookieStore([]byte(trimmedSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// IsSecureRequest reports whether the client reached the service over HTTPS,
// honouring the forwarding headers set by a reverse proxy.
func IsSecureRequest(request *http.Request) bool {
	return resolveScheme(request) == urlSchemeHTTPS
}

func resolveScheme(request *http.Request) string {
	if forwardedProto := extractForwardedDirective(request.Header.Get(headerForwarded), forwardedProtoPrefix); forwardedProto != "" {
		return strings.ToLower(forwardedProto)
	}

	if protoHeader := firstHeaderValue(request.Header.Get(headerXForwardedProto)); protoHeader != "" {
		return strings.ToLower(protoHeader)
	}

	if schemeHeader := firstHeaderValue(request.Header.Get(headerXForwardedScheme)); schemeHeader != "" {
		return strings.ToLower(schemeHeader)
	}

	if request.TLS != nil {
		return urlSchemeHTTPS
	}

	if request.URL != nil && request.URL.Scheme != "" {
		return strings.ToLower(request.URL.Scheme)
	}

	return "http"
}

func firstHeaderValue(rawValue string) string {
	for _, segment := range strings.Split(rawValue, headerValueSeparator) {
		if trimmedSegment := strings.TrimSpace(segment); trimmedSegment != "" {
			return trimmedSegment
		}
	}
	return ""
}

func extractForwardedDirective(headerValue string, prefix string) string {
	for _, directive := range strings.Split(headerValue, headerValueSeparator) {
		for _, pair := range strings.Split(directive, forwardedPairSeparator) {
			trimmedPair := strings.TrimSpace(pair)
			if !strings.HasPrefix(strings.ToLower(trimmedPair), prefix) {
				continue
			}
			value := strings.Trim(strings.TrimSpace(trimmedPair[len(prefix):]), "\"")
			if value != "" {
				return value
			}
		}
	}
	return ""
}
