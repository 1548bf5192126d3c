package models

// LessonModel is a unit of learning material backed by one uploaded file.
type LessonModel struct {
	Base
	UserID   string `json:"user_id"   gorm:"index"`
	Title    string `json:"title"     gorm:"not null"`
	Language string `json:"language"  gorm:"index;not null;type:varchar(16)"`
	FileKey  string `json:"file_key"  gorm:"index"`
	FileName string `json:"file_name"`

	Sentences []SentenceModel `json:"sentences,omitempty" gorm:"foreignKey:LessonID"`
}

func (LessonModel) TableName() string { return "lessons" }
