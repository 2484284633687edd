// Package i18n resolves the dashboard language and renders localized labels.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"

	DefaultLanguage = LanguageArabic

	DirectionRTL = "rtl"
	DirectionLTR = "ltr"
)

var (
	supportedLanguages = []string{LanguageArabic, LanguageEnglish}
	languageMatcher    = language.NewMatcher([]language.Tag{language.Arabic, language.English})
)

// SupportedLanguages lists the language codes the dashboard renders.
func SupportedLanguages() []string {
	return append([]string(nil), supportedLanguages...)
}

// IsSupported reports whether code names a supported language.
func IsSupported(code string) bool {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, supported := range supportedLanguages {
		if normalized == supported {
			return true
		}
	}
	return false
}

// Normalize returns code when it is supported and fallback otherwise.
// An unsupported fallback resolves to DefaultLanguage.
func Normalize(code string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if IsSupported(normalized) {
		return normalized
	}
	if IsSupported(fallback) {
		return strings.ToLower(strings.TrimSpace(fallback))
	}
	return DefaultLanguage
}

// DetectLanguageWithDefault picks the best supported language for an
// Accept-Language header, answering fallback when nothing matches.
func DetectLanguageWithDefault(acceptLanguage string, fallback string) string {
	fallback = Normalize(fallback, DefaultLanguage)
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supportedLanguages[index]
}

// Direction returns the text direction of lang.
func Direction(lang string) string {
	if Normalize(lang, DefaultLanguage) == LanguageArabic {
		return DirectionRTL
	}
	return DirectionLTR
}
