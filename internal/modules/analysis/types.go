package analysis

import (
	"context"
	"errors"
)

// WordAnalysis is one analyzed word of a sentence, in sentence order.
type WordAnalysis struct {
	Word              string `json:"word"`
	Translation       string `json:"translation"`
	Pronunciation     string `json:"pronunciation,omitempty"`
	PronunciationType string `json:"pronunciationType,omitempty"`
	Stem              string `json:"stem,omitempty"`
}

// Oracle is the external text-analysis collaborator. Implementations must
// validate responses and reject malformed ones before they enter the
// pipeline; transient failures are reported as ErrOracleUnavailable so
// callers can retry later.
type Oracle interface {
	// AnalyzeSentence splits a sentence into words with translations and
	// pronunciations, in order of appearance.
	AnalyzeSentence(ctx context.Context, text, language string) ([]WordAnalysis, error)
	// ExtractText performs OCR on an image and returns ordered text segments.
	ExtractText(ctx context.Context, image []byte, language string) ([]string, error)
	// ReduceTranslations collapses a grown translation list into a smaller
	// deduplicated set.
	ReduceTranslations(ctx context.Context, word string, translations []string, sourceLang, targetLang string) ([]string, error)
}

var (
	// ErrOracleUnavailable marks retryable analysis failures (network,
	// provider outage, malformed response).
	ErrOracleUnavailable = errors.New("analysis oracle unavailable")
	// ErrNoProvider means no enabled AI provider is configured.
	ErrNoProvider = errors.New("no enabled AI provider")
	// ErrAnalysisDisabled means sentence analysis is switched off in config.
	ErrAnalysisDisabled = errors.New("sentence analysis is disabled")
)
