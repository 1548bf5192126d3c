package subtitle

import (
	"math"
	"strings"
	"unicode/utf8"
)

// sentenceEnders covers Western and CJK sentence-ending punctuation.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '～': true, '‥': true, '…': true,
}

// SplitSentences divides text on sentence-ending punctuation, keeping the
// punctuation attached to the preceding sentence. Runs of consecutive
// punctuation ("!?", "……") stay together.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	var cur []rune
	for i, r := range runes {
		cur = append(cur, r)
		if !sentenceEnders[r] {
			continue
		}
		if i+1 < len(runes) && sentenceEnders[runes[i+1]] {
			continue
		}
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	if s := strings.TrimSpace(string(cur)); s != "" {
		out = append(out, s)
	}
	return out
}

// SplitCue divides a timed cue into per-sentence cues, distributing the
// cue's time span proportionally by character count. The time cursor
// advances cumulatively so the last fragment absorbs rounding and the
// fragments always cover the original span exactly.
func SplitCue(c Cue) []Cue {
	parts := SplitSentences(c.Text)
	if len(parts) <= 1 {
		if len(parts) == 1 && parts[0] != c.Text {
			c.Text = parts[0]
		}
		return []Cue{c}
	}

	total := 0
	for _, p := range parts {
		total += utf8.RuneCountInString(p)
	}
	duration := c.EndMs - c.StartMs

	cues := make([]Cue, 0, len(parts))
	cursor := c.StartMs
	seen := 0
	for i, p := range parts {
		seen += utf8.RuneCountInString(p)
		end := c.StartMs + int64(math.Round(float64(duration)*float64(seen)/float64(total)))
		if i == len(parts)-1 {
			end = c.EndMs
		}
		cues = append(cues, Cue{Text: p, StartMs: cursor, EndMs: end})
		cursor = end
	}
	return cues
}

// ExpandCues applies SplitCue across a cue sequence.
func ExpandCues(cues []Cue) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		out = append(out, SplitCue(c)...)
	}
	return out
}
