package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	assOverrideRe = regexp.MustCompile(`\{[^}]*\}`)
	assTimingRe   = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{2})$`)
)

// ParseASS parses Advanced SubStation Alpha content. Only Dialogue lines in
// the [Events] section are kept; Comment lines and other sections are
// ignored. Zero dialogue lines is a parse failure.
func (p *Parser) ParseASS(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	inEvents := false
	var columns []string
	startIdx, endIdx, textIdx := -1, -1, -1

	var cues []Cue
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inEvents = strings.EqualFold(trimmed, "[Events]")
			continue
		}
		if !inEvents {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "Format:"):
			columns = splitAssColumns(strings.TrimPrefix(trimmed, "Format:"))
			startIdx, endIdx, textIdx = -1, -1, -1
			for i, col := range columns {
				switch strings.ToLower(col) {
				case "start":
					startIdx = i
				case "end":
					endIdx = i
				case "text":
					textIdx = i
				}
			}

		case strings.HasPrefix(trimmed, "Dialogue:"):
			if len(columns) == 0 || startIdx < 0 || endIdx < 0 || textIdx < 0 {
				continue
			}
			// The text field is last and may itself contain commas, so only
			// the leading N-1 fields are split off.
			fields := strings.SplitN(strings.TrimPrefix(trimmed, "Dialogue:"), ",", len(columns))
			if len(fields) < len(columns) {
				continue
			}
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}

			start, okStart := assTimestampMs(fields[startIdx])
			end, okEnd := assTimestampMs(fields[endIdx])
			if !okStart || !okEnd {
				p.logger.Warn("skipping dialogue with malformed timestamp",
					zap.String("start", fields[startIdx]), zap.String("end", fields[endIdx]))
				continue
			}

			text := cleanAssText(fields[textIdx])
			if text == "" {
				continue
			}
			cues = append(cues, Cue{Text: text, StartMs: start, EndMs: end})
		}
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("ass: %w", errNoDialogue)
	}
	return cues, nil
}

func splitAssColumns(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// assTimestampMs converts "H:MM:SS.cc" (centiseconds) to milliseconds.
func assTimestampMs(ts string) (int64, bool) {
	m := assTimingRe.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseInt(m[1], 10, 64)
	mm, _ := strconv.ParseInt(m[2], 10, 64)
	ss, _ := strconv.ParseInt(m[3], 10, 64)
	cs, _ := strconv.ParseInt(m[4], 10, 64)
	return ((h*60+mm)*60+ss)*1000 + cs*10, true
}

// cleanAssText strips {...} override tags, maps \N and \n to spaces and \h
// to a literal space.
func cleanAssText(text string) string {
	text = assOverrideRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\N`, " ")
	text = strings.ReplaceAll(text, `\n`, " ")
	text = strings.ReplaceAll(text, `\h`, " ")
	return strings.Join(strings.Fields(text), " ")
}
