package models

// SentenceModel is one sentence of a lesson, created at ingestion.
// SplitWords is the cached word split filled in lazily by analysis; it stays
// NULL until the sentence has been analyzed, and is the only field mutated
// after creation.
type SentenceModel struct {
	Base
	LessonID   string      `json:"lesson_id"   gorm:"index;not null"`
	Text       string      `json:"text"        gorm:"type:text;not null"`
	SplitWords StringArray `json:"split_words" gorm:"type:longtext;serializer:json"`
	HasSplit   bool        `json:"has_split"   gorm:"index;default:false"`
	StartMs    *int64      `json:"start_ms"`
	EndMs      *int64      `json:"end_ms"`
	OrderIndex int         `json:"order_index" gorm:"index;not null;default:0"`
}

func (SentenceModel) TableName() string { return "sentences" }

// SentenceWordModel links a word to a sentence it occurs in.
// Weak association; established the first time the word is seen in the
// sentence and never duplicated.
type SentenceWordModel struct {
	Base
	WordID     string `json:"word_id"     gorm:"uniqueIndex:uniq_word_sentence,composite:1;not null;index"`
	SentenceID string `json:"sentence_id" gorm:"uniqueIndex:uniq_word_sentence,composite:2;not null;index"`
}

func (SentenceWordModel) TableName() string { return "sentence_words" }
