package lexicon

import (
	"context"
	"strings"

	"github.com/kotoba-space/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TranslationReducer collapses a word's grown translation list into a
// smaller set. Implemented by the analysis oracle.
type TranslationReducer interface {
	ReduceTranslations(ctx context.Context, word string, translations []string, sourceLang, targetLang string) ([]string, error)
}

// lookupReductionMin is the stored-translation count at which a lookup
// triggers synchronous reduction.
const lookupReductionMin = 3

// WordUpsert is one analyzed word to be folded into the store.
type WordUpsert struct {
	Word              string
	Translation       string
	TargetLang        string
	Pronunciation     string
	PronunciationKind string
	Stem              string
}

// WordProjection is the stored view of one word, used to rebuild analysis
// results without calling the oracle again.
type WordProjection struct {
	ID             string
	Word           string
	Translations   []string
	Pronunciations []ProjectedPronunciation
	Stems          []string
}

type ProjectedPronunciation struct {
	Value string
	Kind  models.PronunciationKind
}

// MarkUpsert sets a user's familiarity mark on a word. With KeepHigher an
// existing higher mark wins, used by imports so they never downgrade manual
// progress.
type MarkUpsert struct {
	UserID     string
	WordID     string
	Mark       int
	Note       string
	Source     models.MarkSource
	KeepHigher bool
}

type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	reducer TranslationReducer
}

func NewService(db *gorm.DB, reducer TranslationReducer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger.Named("Lexicon"), reducer: reducer}
}

// getOrCreate resolves an entity by its natural key, creating it when
// missing. Key must carry only natural-key fields; concurrent creators
// converge on the unique index.
func getOrCreate[M any](tx *gorm.DB, key M) (M, error) {
	out := key
	if err := tx.Where(&key).FirstOrCreate(&out).Error; err != nil {
		// A concurrent insert can fail the create; the row exists now.
		var again M
		if ferr := tx.Where(&key).First(&again).Error; ferr == nil {
			return again, nil
		}
		return out, err
	}
	return out, nil
}

func normalizeKind(raw string) models.PronunciationKind {
	switch models.PronunciationKind(strings.ToLower(strings.TrimSpace(raw))) {
	case models.PronunciationHiragana:
		return models.PronunciationHiragana
	case models.PronunciationRomaji:
		return models.PronunciationRomaji
	case models.PronunciationPinyin:
		return models.PronunciationPinyin
	default:
		return models.PronunciationIPA
	}
}

// ApplyAnalysis folds one sentence's analyzed words into the store and
// caches the split on the sentence, all in a single transaction.
func (s *Service) ApplyAnalysis(ctx context.Context, sentence *models.SentenceModel, lang string, words []WordUpsert) error {
	if len(words) == 0 {
		return nil
	}

	split := make(models.StringArray, 0, len(words))
	for _, w := range words {
		split = append(split, w.Word)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range words {
			literal := strings.TrimSpace(w.Word)
			if literal == "" {
				continue
			}

			word, err := getOrCreate(tx, models.WordModel{Word: literal, Language: lang})
			if err != nil {
				return err
			}

			if t := strings.TrimSpace(w.Translation); t != "" {
				if _, err := getOrCreate(tx, models.WordTranslationModel{
					WordID:      word.ID,
					TargetLang:  w.TargetLang,
					Translation: t,
				}); err != nil {
					return err
				}
			}

			if p := strings.TrimSpace(w.Pronunciation); p != "" {
				if _, err := getOrCreate(tx, models.WordPronunciationModel{
					WordID:        word.ID,
					Pronunciation: p,
					Kind:          normalizeKind(w.PronunciationKind),
				}); err != nil {
					return err
				}
			}

			if stem := strings.TrimSpace(w.Stem); stem != "" && stem != literal {
				if _, err := getOrCreate(tx, models.WordStemModel{
					WordID: word.ID,
					Stem:   stem,
				}); err != nil {
					return err
				}
			}

			if sentence != nil && sentence.ID != "" {
				if _, err := getOrCreate(tx, models.SentenceWordModel{
					WordID:     word.ID,
					SentenceID: sentence.ID,
				}); err != nil {
					return err
				}
			}
		}

		if sentence != nil && sentence.ID != "" {
			return tx.Model(&models.SentenceModel{}).
				Where("id = ?", sentence.ID).
				Updates(map[string]interface{}{"split_words": split, "has_split": true}).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sentence != nil {
		sentence.SplitWords = split
		sentence.HasSplit = true
	}
	return nil
}

// ProjectWords loads stored projections of the given literals. Missing
// literals are silently absent from the result.
func (s *Service) ProjectWords(ctx context.Context, lang, targetLang string, literals []string) (map[string]WordProjection, error) {
	result := make(map[string]WordProjection, len(literals))
	if len(literals) == 0 {
		return result, nil
	}

	var words []models.WordModel
	if err := s.db.WithContext(ctx).
		Preload("Translations", "target_lang = ?", targetLang).
		Preload("Pronunciations").
		Preload("Stems").
		Where("language = ? AND word IN ?", lang, literals).
		Find(&words).Error; err != nil {
		return nil, err
	}

	for _, w := range words {
		proj := WordProjection{ID: w.ID, Word: w.Word}
		for _, t := range w.Translations {
			proj.Translations = append(proj.Translations, t.Translation)
		}
		for _, p := range w.Pronunciations {
			proj.Pronunciations = append(proj.Pronunciations, ProjectedPronunciation{Value: p.Pronunciation, Kind: p.Kind})
		}
		for _, st := range w.Stems {
			proj.Stems = append(proj.Stems, st.Stem)
		}
		result[w.Word] = proj
	}
	return result, nil
}

// LookupTranslations returns the stored translations of a word; when the
// list has grown to lookupReductionMin or more it is reduced through the
// oracle first and the reduced set is persisted. Reduction failures fall
// back to the stored set.
func (s *Service) LookupTranslations(ctx context.Context, wordID, targetLang string) ([]string, error) {
	var word models.WordModel
	if err := s.db.WithContext(ctx).First(&word, "id = ?", wordID).Error; err != nil {
		return nil, err
	}

	var rows []models.WordTranslationModel
	if err := s.db.WithContext(ctx).
		Where("word_id = ? AND target_lang = ?", wordID, targetLang).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(rows))
	for _, r := range rows {
		stored = append(stored, r.Translation)
	}
	if len(stored) < lookupReductionMin || s.reducer == nil {
		return stored, nil
	}

	reduced, err := s.reducer.ReduceTranslations(ctx, word.Word, stored, word.Language, targetLang)
	if err != nil || len(reduced) == 0 {
		if err != nil {
			s.logger.Warn("lookup reduction failed, serving stored translations",
				zap.String("word", word.Word), zap.Error(err))
		}
		return stored, nil
	}

	if err := s.replaceTranslations(ctx, wordID, targetLang, reduced); err != nil {
		s.logger.Warn("persisting reduced translations failed",
			zap.String("word", word.Word), zap.Error(err))
		return stored, nil
	}
	return reduced, nil
}

// replaceTranslations atomically swaps a word's translation rows for one
// target language.
func (s *Service) replaceTranslations(ctx context.Context, wordID, targetLang string, translations []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("word_id = ? AND target_lang = ?", wordID, targetLang).
			Delete(&models.WordTranslationModel{}).Error; err != nil {
			return err
		}
		for _, t := range translations {
			row := models.WordTranslationModel{WordID: wordID, TargetLang: targetLang, Translation: t}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func clampMark(mark int) int {
	if mark < models.MarkMin {
		return models.MarkMin
	}
	if mark > models.MarkMax {
		return models.MarkMax
	}
	return mark
}

// UpsertMark creates or updates the single (user, word) mark row.
func (s *Service) UpsertMark(ctx context.Context, m MarkUpsert) (*models.WordUserMarkModel, error) {
	m.Mark = clampMark(m.Mark)
	if m.Source == "" {
		m.Source = models.MarkSourceManual
	}

	var mark models.WordUserMarkModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND word_id = ?", m.UserID, m.WordID).First(&mark).Error
		if err == gorm.ErrRecordNotFound {
			mark = models.WordUserMarkModel{
				UserID: m.UserID,
				WordID: m.WordID,
				Mark:   m.Mark,
				Note:   m.Note,
				Source: m.Source,
			}
			return tx.Create(&mark).Error
		}
		if err != nil {
			return err
		}

		if m.KeepHigher && mark.Mark >= m.Mark {
			return nil
		}
		mark.Mark = m.Mark
		mark.Source = m.Source
		if m.Note != "" {
			mark.Note = m.Note
		}
		return tx.Save(&mark).Error
	})
	if err != nil {
		return nil, err
	}
	return &mark, nil
}

// FindWord resolves a word row by literal and language.
func (s *Service) FindWord(ctx context.Context, literal, lang string) (*models.WordModel, error) {
	var word models.WordModel
	err := s.db.WithContext(ctx).
		Where("word = ? AND language = ?", literal, lang).
		First(&word).Error
	if err != nil {
		return nil, err
	}
	return &word, nil
}

// ListMarks returns one user's marks with their words preloaded.
func (s *Service) ListMarks(ctx context.Context, userID string) ([]models.WordUserMarkModel, error) {
	var marks []models.WordUserMarkModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&marks).Error
	return marks, err
}
