package models

// ImportRecordModel logs processed third-party lexical-status imports.
type ImportRecordModel struct {
	Base
	UserID   string `json:"user_id"  gorm:"index;not null"`
	Source   string `json:"source"   gorm:"index;not null"` // export provider tag
	Language string `json:"language" gorm:"type:varchar(16)"`
	Total    int    `json:"total"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

func (ImportRecordModel) TableName() string { return "import_records" }

// OptionModel is a generic key-value store for system configuration.
type OptionModel struct {
	ID    uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name"  gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:longtext"` // JSON-encoded value
}

func (OptionModel) TableName() string { return "options" }
