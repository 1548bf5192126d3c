package models

// WordModel is the canonical entry for one literal word in one language.
// The (word, language) pair is the only identity that matters; after
// consolidation no two rows in the same language may share a normalized
// literal.
type WordModel struct {
	Base
	Word     string `json:"word"     gorm:"uniqueIndex:uniq_word_lang,composite:1;not null"`
	Language string `json:"language" gorm:"uniqueIndex:uniq_word_lang,composite:2;not null;type:varchar(16)"`

	Translations   []WordTranslationModel   `json:"translations,omitempty"   gorm:"foreignKey:WordID"`
	Pronunciations []WordPronunciationModel `json:"pronunciations,omitempty" gorm:"foreignKey:WordID"`
	Stems          []WordStemModel          `json:"stems,omitempty"          gorm:"foreignKey:WordID"`
}

func (WordModel) TableName() string { return "words" }

// WordTranslationModel stores one translation of a word into a target
// language. Byte-identical duplicates are forbidden by the unique key.
type WordTranslationModel struct {
	Base
	WordID      string `json:"word_id"     gorm:"uniqueIndex:uniq_word_translation,composite:1;not null;index"`
	TargetLang  string `json:"target_lang" gorm:"uniqueIndex:uniq_word_translation,composite:2;not null;type:varchar(16)"`
	Translation string `json:"translation" gorm:"uniqueIndex:uniq_word_translation,composite:3;not null;type:varchar(255)"`
}

func (WordTranslationModel) TableName() string { return "word_translations" }

// PronunciationKind enumerates supported pronunciation notations.
type PronunciationKind string

const (
	PronunciationHiragana PronunciationKind = "hiragana"
	PronunciationRomaji   PronunciationKind = "romaji"
	PronunciationPinyin   PronunciationKind = "pinyin"
	PronunciationIPA      PronunciationKind = "ipa"
)

// WordPronunciationModel stores one pronunciation of a word.
type WordPronunciationModel struct {
	Base
	WordID        string            `json:"word_id"       gorm:"uniqueIndex:uniq_word_pron,composite:1;not null;index"`
	Pronunciation string            `json:"pronunciation" gorm:"uniqueIndex:uniq_word_pron,composite:2;not null;type:varchar(255)"`
	Kind          PronunciationKind `json:"kind"          gorm:"uniqueIndex:uniq_word_pron,composite:3;not null;type:varchar(16)"`
}

func (WordPronunciationModel) TableName() string { return "word_pronunciations" }

// WordStemModel stores an alternate morphological base form of a word.
// A stem equal to the word's own literal is never stored.
type WordStemModel struct {
	Base
	WordID string `json:"word_id" gorm:"uniqueIndex:uniq_word_stem,composite:1;not null;index"`
	Stem   string `json:"stem"    gorm:"uniqueIndex:uniq_word_stem,composite:2;not null;type:varchar(255)"`
}

func (WordStemModel) TableName() string { return "word_stems" }

// MarkSource indicates where a user mark came from.
type MarkSource string

const (
	MarkSourceManual   MarkSource = "manual"
	MarkSourceImported MarkSource = "imported"
)

const (
	MarkMin = 0
	MarkMax = 5 // 5 = best known; 4-5 count as "known"
)

// WordUserMarkModel holds one user's familiarity mark for one word.
// Exactly one row per (user, word); created on first mark, updated after.
type WordUserMarkModel struct {
	Base
	UserID string     `json:"user_id" gorm:"uniqueIndex:uniq_user_word,composite:1;not null;index"`
	WordID string     `json:"word_id" gorm:"uniqueIndex:uniq_user_word,composite:2;not null;index"`
	Mark   int        `json:"mark"    gorm:"not null;default:0"`
	Note   string     `json:"note"    gorm:"type:text"`
	Source MarkSource `json:"source"  gorm:"not null;default:'manual';type:varchar(16)"`
}

func (WordUserMarkModel) TableName() string { return "word_user_marks" }
