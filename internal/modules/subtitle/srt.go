package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parser turns raw subtitle/plain-text content into timed cues.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("SubtitleParser")}
}

// Parse sniffs the format and dispatches to the matching parser.
func (p *Parser) Parse(content, filename string) ([]Cue, Format, error) {
	format := Detect(content, filename)
	var (
		cues []Cue
		err  error
	)
	switch format {
	case FormatASS:
		cues, err = p.ParseASS(content)
	case FormatSRT:
		cues, err = p.ParseSRT(content)
	default:
		cues, err = p.ParseText(content, filename)
	}
	return cues, format, err
}

var (
	srtTimingRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)
	markupTagRe = regexp.MustCompile(`<[^>]+>|\{\\[^}]*\}`)
)

// ParseSRT parses SubRip content into one cue per numbered block.
// A block with a malformed timing line is skipped with a warning; a file
// producing zero cues fails the whole parse.
func (p *Parser) ParseSRT(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// Optional numeric index line before the timing line.
		idx := 0
		if isCueIndex(lines[0]) {
			idx = 1
		}
		if idx >= len(lines) {
			continue
		}

		m := srtTimingRe.FindStringSubmatch(lines[idx])
		if m == nil {
			if strings.Contains(lines[idx], "-->") {
				p.logger.Warn("skipping cue with malformed timing line", zap.String("line", lines[idx]))
			}
			continue
		}

		start := srtTimestampMs(m[1], m[2], m[3], m[4])
		end := srtTimestampMs(m[5], m[6], m[7], m[8])

		text := cleanCueText(strings.Join(lines[idx+1:], " "))
		if text == "" {
			continue
		}

		cues = append(cues, Cue{Text: text, StartMs: start, EndMs: end})
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("srt: %w", errNoCues)
	}
	return cues, nil
}

func isCueIndex(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	_, err := strconv.Atoi(line)
	return err == nil
}

func srtTimestampMs(h, m, s, ms string) int64 {
	hh, _ := strconv.ParseInt(h, 10, 64)
	mm, _ := strconv.ParseInt(m, 10, 64)
	ss, _ := strconv.ParseInt(s, 10, 64)
	mss, _ := strconv.ParseInt(ms, 10, 64)
	return ((hh*60+mm)*60+ss)*1000 + mss
}

// cleanCueText strips markup tags and collapses embedded newlines/whitespace
// to single spaces.
func cleanCueText(text string) string {
	text = markupTagRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
