package lexicon

import (
	"context"

	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/pkg/kana"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// variantPair is one narrow-script word row and its normalized literal.
type variantPair struct {
	variant    models.WordModel
	normalized string
}

// RunConsolidationPass merges word rows whose literal contains narrow
// half-width script into the normalized canonical entry. Each pair is
// merged in its own transaction; a failed pair is logged and retried on
// the next pass. Returns the number of merged pairs.
func (s *Service) RunConsolidationPass(ctx context.Context) (int, error) {
	var words []models.WordModel
	if err := s.db.WithContext(ctx).
		Select("id", "word", "language").
		Find(&words).Error; err != nil {
		return 0, err
	}

	pairs := make([]variantPair, 0)
	for _, w := range words {
		if normalized := kana.Normalize(w.Word); normalized != w.Word {
			pairs = append(pairs, variantPair{variant: w, normalized: normalized})
		}
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	merged := 0
	for _, pair := range pairs {
		if err := s.mergePair(ctx, pair); err != nil {
			s.logger.Warn("consolidation pair failed",
				zap.String("variant", pair.variant.Word),
				zap.String("normalized", pair.normalized),
				zap.Error(err))
			continue
		}
		merged++
	}
	s.logger.Info("consolidation pass finished",
		zap.Int("candidates", len(pairs)), zap.Int("merged", merged))
	return merged, nil
}

// mergePair folds one variant word into its canonical entry. Everything the
// variant owns survives the merge exactly once: children are deduplicated
// by natural key, marks keep the higher value (more recent on equal marks),
// sentence links are re-pointed. The variant row and its leftovers are
// removed for good so the literal can never resurrect a duplicate.
func (s *Service) mergePair(ctx context.Context, pair variantPair) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		canonical, err := getOrCreate(tx, models.WordModel{
			Word:     pair.normalized,
			Language: pair.variant.Language,
		})
		if err != nil {
			return err
		}
		variantID := pair.variant.ID

		var translations []models.WordTranslationModel
		if err := tx.Where("word_id = ?", variantID).Find(&translations).Error; err != nil {
			return err
		}
		for _, t := range translations {
			if _, err := getOrCreate(tx, models.WordTranslationModel{
				WordID:      canonical.ID,
				TargetLang:  t.TargetLang,
				Translation: t.Translation,
			}); err != nil {
				return err
			}
		}

		var pronunciations []models.WordPronunciationModel
		if err := tx.Where("word_id = ?", variantID).Find(&pronunciations).Error; err != nil {
			return err
		}
		for _, p := range pronunciations {
			if _, err := getOrCreate(tx, models.WordPronunciationModel{
				WordID:        canonical.ID,
				Pronunciation: p.Pronunciation,
				Kind:          p.Kind,
			}); err != nil {
				return err
			}
		}

		var stems []models.WordStemModel
		if err := tx.Where("word_id = ?", variantID).Find(&stems).Error; err != nil {
			return err
		}
		for _, st := range stems {
			if st.Stem == canonical.Word {
				continue
			}
			if _, err := getOrCreate(tx, models.WordStemModel{
				WordID: canonical.ID,
				Stem:   st.Stem,
			}); err != nil {
				return err
			}
		}

		if err := mergeMarks(tx, variantID, canonical.ID); err != nil {
			return err
		}
		if err := mergeSentenceLinks(tx, variantID, canonical.ID); err != nil {
			return err
		}

		// Hard-delete so the unique (word, language) index stays usable if
		// the narrow literal ever gets ingested again.
		for _, model := range []interface{}{
			&models.WordTranslationModel{},
			&models.WordPronunciationModel{},
			&models.WordStemModel{},
		} {
			if err := tx.Unscoped().Where("word_id = ?", variantID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&models.WordModel{}, "id = ?", variantID).Error
	})
}

// mergeMarks moves the variant's user marks onto the canonical word. When
// both words carry a mark for the same user the higher mark wins; on a tie
// the more recently updated one does.
func mergeMarks(tx *gorm.DB, variantID, canonicalID string) error {
	var variantMarks []models.WordUserMarkModel
	if err := tx.Where("word_id = ?", variantID).Find(&variantMarks).Error; err != nil {
		return err
	}

	for _, vm := range variantMarks {
		var existing models.WordUserMarkModel
		err := tx.Where("user_id = ? AND word_id = ?", vm.UserID, canonicalID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if uerr := tx.Model(&models.WordUserMarkModel{}).
				Where("id = ?", vm.ID).
				Update("word_id", canonicalID).Error; uerr != nil {
				return uerr
			}
			continue
		}
		if err != nil {
			return err
		}

		keepVariant := vm.Mark > existing.Mark ||
			(vm.Mark == existing.Mark && vm.UpdatedAt.After(existing.UpdatedAt))
		if keepVariant {
			existing.Mark = vm.Mark
			existing.Note = vm.Note
			existing.Source = vm.Source
			if uerr := tx.Save(&existing).Error; uerr != nil {
				return uerr
			}
		}
		if derr := tx.Unscoped().Delete(&models.WordUserMarkModel{}, "id = ?", vm.ID).Error; derr != nil {
			return derr
		}
	}
	return nil
}

// mergeSentenceLinks re-points the variant's sentence links unless the
// canonical word is already linked to that sentence.
func mergeSentenceLinks(tx *gorm.DB, variantID, canonicalID string) error {
	var links []models.SentenceWordModel
	if err := tx.Where("word_id = ?", variantID).Find(&links).Error; err != nil {
		return err
	}

	for _, link := range links {
		var count int64
		if err := tx.Model(&models.SentenceWordModel{}).
			Where("word_id = ? AND sentence_id = ?", canonicalID, link.SentenceID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			if err := tx.Unscoped().Delete(&models.SentenceWordModel{}, "id = ?", link.ID).Error; err != nil {
				return err
			}
			continue
		}
		if err := tx.Model(&models.SentenceWordModel{}).
			Where("id = ?", link.ID).
			Update("word_id", canonicalID).Error; err != nil {
			return err
		}
	}
	return nil
}
