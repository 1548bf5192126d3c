package lexicon

import (
	"context"

	"github.com/kotoba-space/core/internal/models"
	"go.uber.org/zap"
)

// reductionCandidate is one (word, target_lang) group whose translation
// count exceeded the threshold.
type reductionCandidate struct {
	WordID     string `gorm:"column:word_id"`
	TargetLang string `gorm:"column:target_lang"`
	Count      int64  `gorm:"column:cnt"`
}

// RunTranslationReductionPass finds words whose stored translation count
// for one target language exceeds threshold and replaces each set with the
// oracle's reduced version. A failed or empty reduction leaves the word's
// rows untouched. Returns the number of words reduced.
func (s *Service) RunTranslationReductionPass(ctx context.Context, threshold int) (int, error) {
	if s.reducer == nil {
		return 0, nil
	}
	if threshold < 1 {
		threshold = 1
	}

	var candidates []reductionCandidate
	if err := s.db.WithContext(ctx).
		Model(&models.WordTranslationModel{}).
		Select("word_id, target_lang, COUNT(*) AS cnt").
		Group("word_id").Group("target_lang").
		Having("COUNT(*) > ?", threshold).
		Scan(&candidates).Error; err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	reducedCount := 0
	for _, cand := range candidates {
		if err := s.reduceWord(ctx, cand); err != nil {
			s.logger.Warn("translation reduction failed",
				zap.String("wordId", cand.WordID),
				zap.String("targetLang", cand.TargetLang),
				zap.Error(err))
			continue
		}
		reducedCount++
	}
	s.logger.Info("translation reduction pass finished",
		zap.Int("candidates", len(candidates)), zap.Int("reduced", reducedCount))
	return reducedCount, nil
}

func (s *Service) reduceWord(ctx context.Context, cand reductionCandidate) error {
	var word models.WordModel
	if err := s.db.WithContext(ctx).First(&word, "id = ?", cand.WordID).Error; err != nil {
		return err
	}

	var rows []models.WordTranslationModel
	if err := s.db.WithContext(ctx).
		Where("word_id = ? AND target_lang = ?", cand.WordID, cand.TargetLang).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return err
	}

	stored := make([]string, 0, len(rows))
	for _, r := range rows {
		stored = append(stored, r.Translation)
	}

	reduced, err := s.reducer.ReduceTranslations(ctx, word.Word, stored, word.Language, cand.TargetLang)
	if err != nil {
		return err
	}
	if len(reduced) == 0 || len(reduced) >= len(stored) {
		return nil
	}
	return s.replaceTranslations(ctx, cand.WordID, cand.TargetLang, reduced)
}
