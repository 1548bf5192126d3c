package subtitle

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	assSectionRe = regexp.MustCompile(`(?mi)^\[(Script Info|Events|V4\+? Styles)\]`)
	srtCueRe     = regexp.MustCompile(`(?m)^\d+\s*\r?\n\d{2}:\d{2}:\d{2},\d{3}\s*-->\s*\d{2}:\d{2}:\d{2},\d{3}`)
)

// Detect sniffs the lesson file format from content first, then falls back
// to the filename extension, and finally to plain text.
func Detect(content, filename string) Format {
	if assSectionRe.MatchString(content) {
		return FormatASS
	}
	if srtCueRe.MatchString(content) {
		return FormatSRT
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ass", ".ssa":
		return FormatASS
	case ".srt":
		return FormatSRT
	}
	return FormatText
}
