package lexicon

import (
	"context"
	"testing"

	"github.com/kotoba-space/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTranslations(t *testing.T, svc *Service, word string, translations ...string) *models.WordModel {
	t.Helper()
	ctx := context.Background()
	for _, tr := range translations {
		require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", []WordUpsert{
			{Word: word, Translation: tr, TargetLang: "en"},
		}))
	}
	w, err := svc.FindWord(ctx, word, "ja")
	require.NoError(t, err)
	return w
}

func TestReductionPassShrinksOvergrownSets(t *testing.T) {
	db := newTestDB(t)
	reducer := &stubReducer{out: []string{"to run", "to sprint"}}
	svc := NewService(db, reducer, nil)
	ctx := context.Background()

	word := seedTranslations(t, svc, "走る", "to run", "to dash", "to sprint", "to jog", "to race")
	below := seedTranslations(t, svc, "本", "book", "volume")

	reduced, err := svc.RunTranslationReductionPass(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, reduced)
	assert.Equal(t, 1, reducer.calls, "only the overgrown word goes to the reducer")

	var rows []models.WordTranslationModel
	require.NoError(t, db.Where("word_id = ?", word.ID).Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.ElementsMatch(t, []string{"to run", "to sprint"},
		[]string{rows[0].Translation, rows[1].Translation})

	var belowCount int64
	db.Model(&models.WordTranslationModel{}).Where("word_id = ?", below.ID).Count(&belowCount)
	assert.EqualValues(t, 2, belowCount, "words under the threshold stay untouched")

	// The reduced set sits below the threshold now.
	reduced, err = svc.RunTranslationReductionPass(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, reduced)
	assert.Equal(t, 1, reducer.calls)
}

func TestReductionPassRejectsNonShrinkingResult(t *testing.T) {
	db := newTestDB(t)
	reducer := &stubReducer{out: []string{"a", "b", "c", "d", "e", "f"}}
	svc := NewService(db, reducer, nil)
	ctx := context.Background()

	word := seedTranslations(t, svc, "行く", "to go", "to head", "to travel", "to proceed", "to move")

	reduced, err := svc.RunTranslationReductionPass(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, reduced, "a rejected result still counts the pass as handled")

	var count int64
	db.Model(&models.WordTranslationModel{}).Where("word_id = ?", word.ID).Count(&count)
	assert.EqualValues(t, 5, count, "stored rows survive a non-shrinking reduction")
}

func TestReductionPassSurvivesReducerFailure(t *testing.T) {
	db := newTestDB(t)
	reducer := &stubReducer{err: assert.AnError}
	svc := NewService(db, reducer, nil)
	ctx := context.Background()

	word := seedTranslations(t, svc, "見る", "to see", "to watch", "to look", "to view")

	reduced, err := svc.RunTranslationReductionPass(ctx, 3)
	require.NoError(t, err, "a failed word is logged, not fatal")
	assert.Equal(t, 0, reduced)

	var count int64
	db.Model(&models.WordTranslationModel{}).Where("word_id = ?", word.ID).Count(&count)
	assert.EqualValues(t, 4, count)
}

func TestReductionPassWithoutReducerIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)

	seedTranslations(t, svc, "食べる", "to eat", "to have", "to consume", "to dine")

	reduced, err := svc.RunTranslationReductionPass(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, reduced)
}
