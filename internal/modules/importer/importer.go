package importer

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// entry is one word-status record of a third-party lexical export. BSON
// exports are a raw document stream; JSON exports are an array of the same
// shape.
type entry struct {
	Word        string `bson:"word" json:"word"`
	Language    string `bson:"language" json:"language"`
	Status      int    `bson:"status" json:"status"`
	Translation string `bson:"translation" json:"translation"`
	TargetLang  string `bson:"target_lang" json:"targetLang"`
}

// Result summarizes one processed import.
type Result struct {
	Record   *models.ImportRecordModel `json:"record"`
	Total    int                       `json:"total"`
	Imported int                       `json:"imported"`
	Skipped  int                       `json:"skipped"`
}

type Service struct {
	db      *gorm.DB
	lexicon *lexicon.Service
	logger  *zap.Logger
}

func NewService(db *gorm.DB, lex *lexicon.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, lexicon: lex, logger: logger.Named("Importer")}
}

// ImportLexicalExport folds a third-party word-status export into the
// store. Imported marks never downgrade an existing mark. Rows without a
// word literal are skipped, not fatal.
func (s *Service) ImportLexicalExport(ctx context.Context, userID, source, defaultLang string, payload []byte) (*Result, error) {
	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("export contains no entries")
	}

	result := &Result{Total: len(entries)}
	for _, e := range entries {
		literal := strings.TrimSpace(e.Word)
		lang := strings.TrimSpace(e.Language)
		if lang == "" {
			lang = defaultLang
		}
		if literal == "" || lang == "" {
			result.Skipped++
			continue
		}

		if err := s.importEntry(ctx, userID, literal, lang, e); err != nil {
			s.logger.Warn("import entry failed", zap.String("word", literal), zap.Error(err))
			result.Skipped++
			continue
		}
		result.Imported++
	}

	record := models.ImportRecordModel{
		UserID:   userID,
		Source:   source,
		Language: defaultLang,
		Total:    result.Total,
		Imported: result.Imported,
		Skipped:  result.Skipped,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	result.Record = &record
	return result, nil
}

func (s *Service) importEntry(ctx context.Context, userID, literal, lang string, e entry) error {
	targetLang := strings.TrimSpace(e.TargetLang)
	if targetLang == "" {
		targetLang = "en"
	}
	upserts := []lexicon.WordUpsert{{
		Word:        literal,
		Translation: strings.TrimSpace(e.Translation),
		TargetLang:  targetLang,
	}}
	if err := s.lexicon.ApplyAnalysis(ctx, nil, lang, upserts); err != nil {
		return err
	}

	word, err := s.lexicon.FindWord(ctx, literal, lang)
	if err != nil {
		return err
	}
	_, err = s.lexicon.UpsertMark(ctx, lexicon.MarkUpsert{
		UserID:     userID,
		WordID:     word.ID,
		Mark:       e.Status,
		Source:     models.MarkSourceImported,
		KeepHigher: true,
	})
	return err
}

// decodeEntries sniffs the export format. JSON arrays start with '[',
// anything else is treated as a BSON document stream.
func decodeEntries(payload []byte) ([]entry, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty export payload")
	}
	if trimmed[0] == '[' {
		var entries []entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode json export: %w", err)
		}
		return entries, nil
	}
	return decodeBSONStream(payload)
}

func decodeBSONStream(payload []byte) ([]entry, error) {
	entries := make([]entry, 0)
	cursor := 0
	for cursor < len(payload) {
		if cursor+4 > len(payload) {
			return nil, fmt.Errorf("invalid bson payload")
		}
		docLen := int(int32(binary.LittleEndian.Uint32(payload[cursor : cursor+4])))
		if docLen <= 0 || cursor+docLen > len(payload) {
			return nil, fmt.Errorf("invalid bson document length")
		}
		var e entry
		if err := bson.Unmarshal(payload[cursor:cursor+docLen], &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
		cursor += docLen
	}
	return entries, nil
}
