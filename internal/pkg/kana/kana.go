// Package kana normalizes half-width (hankaku) katakana to its canonical
// full-width form. Voiced two-character sequences (base kana followed by a
// half-width dakuten or handakuten mark) must be replaced before single
// characters, otherwise an orphaned mark would be left behind.
//
// Normalize is pure, total and idempotent; runes without a mapping pass
// through unchanged.
package kana

import "strings"

// voicedPairs maps half-width kana + voicing mark sequences to their
// composed full-width equivalent. Checked before single characters
// (longest match).
var voicedPairs = []struct{ narrow, wide string }{
	// dakuten (ﾞ)
	{"ｶﾞ", "ガ"}, {"ｷﾞ", "ギ"}, {"ｸﾞ", "グ"}, {"ｹﾞ", "ゲ"}, {"ｺﾞ", "ゴ"},
	{"ｻﾞ", "ザ"}, {"ｼﾞ", "ジ"}, {"ｽﾞ", "ズ"}, {"ｾﾞ", "ゼ"}, {"ｿﾞ", "ゾ"},
	{"ﾀﾞ", "ダ"}, {"ﾁﾞ", "ヂ"}, {"ﾂﾞ", "ヅ"}, {"ﾃﾞ", "デ"}, {"ﾄﾞ", "ド"},
	{"ﾊﾞ", "バ"}, {"ﾋﾞ", "ビ"}, {"ﾌﾞ", "ブ"}, {"ﾍﾞ", "ベ"}, {"ﾎﾞ", "ボ"},
	{"ｳﾞ", "ヴ"}, {"ﾜﾞ", "ヷ"}, {"ｦﾞ", "ヺ"},
	// handakuten (ﾟ)
	{"ﾊﾟ", "パ"}, {"ﾋﾟ", "ピ"}, {"ﾌﾟ", "プ"}, {"ﾍﾟ", "ペ"}, {"ﾎﾟ", "ポ"},
}

// singles maps the remaining half-width characters one to one.
var singles = []struct{ narrow, wide string }{
	{"ｱ", "ア"}, {"ｲ", "イ"}, {"ｳ", "ウ"}, {"ｴ", "エ"}, {"ｵ", "オ"},
	{"ｶ", "カ"}, {"ｷ", "キ"}, {"ｸ", "ク"}, {"ｹ", "ケ"}, {"ｺ", "コ"},
	{"ｻ", "サ"}, {"ｼ", "シ"}, {"ｽ", "ス"}, {"ｾ", "セ"}, {"ｿ", "ソ"},
	{"ﾀ", "タ"}, {"ﾁ", "チ"}, {"ﾂ", "ツ"}, {"ﾃ", "テ"}, {"ﾄ", "ト"},
	{"ﾅ", "ナ"}, {"ﾆ", "ニ"}, {"ﾇ", "ヌ"}, {"ﾈ", "ネ"}, {"ﾉ", "ノ"},
	{"ﾊ", "ハ"}, {"ﾋ", "ヒ"}, {"ﾌ", "フ"}, {"ﾍ", "ヘ"}, {"ﾎ", "ホ"},
	{"ﾏ", "マ"}, {"ﾐ", "ミ"}, {"ﾑ", "ム"}, {"ﾒ", "メ"}, {"ﾓ", "モ"},
	{"ﾔ", "ヤ"}, {"ﾕ", "ユ"}, {"ﾖ", "ヨ"},
	{"ﾗ", "ラ"}, {"ﾘ", "リ"}, {"ﾙ", "ル"}, {"ﾚ", "レ"}, {"ﾛ", "ロ"},
	{"ﾜ", "ワ"}, {"ｦ", "ヲ"}, {"ﾝ", "ン"},
	// small kana
	{"ｧ", "ァ"}, {"ｨ", "ィ"}, {"ｩ", "ゥ"}, {"ｪ", "ェ"}, {"ｫ", "ォ"},
	{"ｬ", "ャ"}, {"ｭ", "ュ"}, {"ｮ", "ョ"}, {"ｯ", "ッ"},
	// punctuation and marks
	{"ｰ", "ー"}, {"｡", "。"}, {"｢", "「"}, {"｣", "」"}, {"､", "、"}, {"･", "・"},
	// stray voicing marks left without a base kana
	{"ﾞ", "゛"}, {"ﾟ", "゜"},
}

var pairReplacer, singleReplacer *strings.Replacer

func init() {
	pairs := make([]string, 0, len(voicedPairs)*2)
	for _, e := range voicedPairs {
		pairs = append(pairs, e.narrow, e.wide)
	}
	pairReplacer = strings.NewReplacer(pairs...)

	ones := make([]string, 0, len(singles)*2)
	for _, e := range singles {
		ones = append(ones, e.narrow, e.wide)
	}
	singleReplacer = strings.NewReplacer(ones...)
}

// Normalize replaces every half-width katakana character in s with its
// full-width form. Two-character voiced sequences are composed first.
func Normalize(s string) string {
	if s == "" || !containsNarrow(s) {
		return s
	}
	return singleReplacer.Replace(pairReplacer.Replace(s))
}

// IsNormalized reports whether s contains no half-width katakana.
func IsNormalized(s string) bool { return !containsNarrow(s) }

// containsNarrow fast-paths pure wide-script strings.
// The half-width katakana block is U+FF61..U+FF9F.
func containsNarrow(s string) bool {
	for _, r := range s {
		if r >= 0xFF61 && r <= 0xFF9F {
			return true
		}
	}
	return false
}
