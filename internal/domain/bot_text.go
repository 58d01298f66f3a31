package domain

import "time"

// Supported interface languages.
const (
	LanguageRussian = "ru"
	LanguageKazakh  = "kk"

	DefaultLanguage = LanguageRussian
)

// NormalizeLanguage maps arbitrary input to a supported language code.
func NormalizeLanguage(lang string) string {
	if lang == LanguageKazakh {
		return LanguageKazakh
	}
	return DefaultLanguage
}

// BotText is a dashboard-editable localized text keyed by (key, language).
type BotText struct {
	ID          int64
	Key         string
	Language    string
	Value       string
	Description string
	UpdatedAt   time.Time
}
