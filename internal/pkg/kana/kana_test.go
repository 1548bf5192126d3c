package kana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain ascii", "hello world", "hello world"},
		{"already wide", "ガギグゲゴ", "ガギグゲゴ"},
		{"single kana", "ｱｲｳｴｵ", "アイウエオ"},
		{"voiced pair", "ｶﾞ", "ガ"},
		{"handakuten pair", "ﾊﾟﾋﾟﾌﾟ", "パピプ"},
		{"vu", "ｳﾞｨｵﾗ", "ヴィオラ"},
		{"mixed sentence", "ﾄﾞｱを開けて､ｺｰﾋｰを飲む｡", "ドアを開けて、コーヒーを飲む。"},
		{"small kana", "ｷｬｯﾁ", "キャッチ"},
		{"stray mark", "ﾞ", "゛"},
		{"punctuation", "｢ﾃｽﾄ｣･｡", "「テスト」・。"},
		{"hiragana untouched", "ひらがなｶﾀｶﾅ", "ひらがなカタカナ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"ｶﾞｷﾞｸﾞｹﾞｺﾞ",
		"ﾊﾟﾋﾟﾌﾟﾍﾟﾎﾟ",
		"ﾄﾞｱを開けて",
		"mixed ｱｲｳ and text",
		"ﾞﾟ",
		"\x00\xff invalid utf8 ｶ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestIsNormalized(t *testing.T) {
	assert.True(t, IsNormalized("ガラス"))
	assert.True(t, IsNormalized("plain"))
	assert.False(t, IsNormalized("ｶﾞﾗｽ"))
	assert.True(t, IsNormalized(Normalize("ｶﾞﾗｽ")))
}
