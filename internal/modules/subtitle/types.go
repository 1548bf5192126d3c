package subtitle

import "errors"

// Format identifies a supported lesson file format.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatASS  Format = "ass"
	FormatText Format = "txt"
)

// Cue is one timed subtitle entry before sentence-level processing.
type Cue struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

var (
	errNoCues     = errors.New("no recognizable subtitle cues found")
	errNoDialogue = errors.New("no dialogue lines found in [Events] section")
	errEmptyText  = errors.New("text content is empty")
)
