package analysis

import "strings"

const defaultLanguageCode = "en"

var languageCodeToName = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"sv": "Swedish",
	"th": "Thai",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

func normalizeLanguageCode(lang string) string {
	code := strings.TrimSpace(strings.ToLower(lang))
	if code == "" {
		return defaultLanguageCode
	}
	if idx := strings.Index(code, ","); idx >= 0 {
		code = strings.TrimSpace(code[:idx])
	}
	if idx := strings.Index(code, "-"); idx >= 0 {
		code = strings.TrimSpace(code[:idx])
	}
	if code == "" {
		return defaultLanguageCode
	}
	return code
}

// resolveLanguageName maps an ISO 639-1 code to the English language name
// used in prompts; unknown codes pass through verbatim.
func resolveLanguageName(lang string) string {
	code := normalizeLanguageCode(lang)
	if name, ok := languageCodeToName[code]; ok {
		return name
	}
	return code
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
