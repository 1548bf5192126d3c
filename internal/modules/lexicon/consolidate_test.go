package lexicon

import (
	"context"
	"testing"
	"time"

	"github.com/kotoba-space/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidationMergesNarrowVariant(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	canonical := models.WordModel{Word: "ガラス", Language: "ja"}
	variant := models.WordModel{Word: "ｶﾞﾗｽ", Language: "ja"}
	require.NoError(t, db.Create(&canonical).Error)
	require.NoError(t, db.Create(&variant).Error)

	require.NoError(t, db.Create(&models.WordTranslationModel{WordID: canonical.ID, TargetLang: "en", Translation: "glass"}).Error)
	require.NoError(t, db.Create(&models.WordTranslationModel{WordID: variant.ID, TargetLang: "en", Translation: "glass"}).Error)
	require.NoError(t, db.Create(&models.WordTranslationModel{WordID: variant.ID, TargetLang: "en", Translation: "pane"}).Error)
	require.NoError(t, db.Create(&models.WordPronunciationModel{WordID: variant.ID, Pronunciation: "garasu", Kind: models.PronunciationRomaji}).Error)

	sentence := models.SentenceModel{LessonID: "lesson-1", Text: "ｶﾞﾗｽの窓"}
	require.NoError(t, db.Create(&sentence).Error)
	require.NoError(t, db.Create(&models.SentenceWordModel{WordID: variant.ID, SentenceID: sentence.ID}).Error)

	merged, err := svc.RunConsolidationPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	// The variant row is gone for good, including its soft-delete shadow.
	var count int64
	db.Unscoped().Model(&models.WordModel{}).Where("id = ?", variant.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	// The canonical word ends up with the union of both entries.
	projections, err := svc.ProjectWords(ctx, "ja", "en", []string{"ガラス"})
	require.NoError(t, err)
	proj := projections["ガラス"]
	assert.ElementsMatch(t, []string{"glass", "pane"}, proj.Translations)
	require.Len(t, proj.Pronunciations, 1)
	assert.Equal(t, "garasu", proj.Pronunciations[0].Value)

	// Sentence links now point at the canonical word.
	var links []models.SentenceWordModel
	require.NoError(t, db.Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, canonical.ID, links[0].WordID)

	// A second pass finds nothing left to merge.
	merged, err = svc.RunConsolidationPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
}

func TestConsolidationCreatesMissingCanonical(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	variant := models.WordModel{Word: "ﾃﾚﾋﾞ", Language: "ja"}
	require.NoError(t, db.Create(&variant).Error)
	require.NoError(t, db.Create(&models.WordTranslationModel{WordID: variant.ID, TargetLang: "en", Translation: "television"}).Error)

	merged, err := svc.RunConsolidationPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	word, err := svc.FindWord(ctx, "テレビ", "ja")
	require.NoError(t, err)
	got, err := svc.LookupTranslations(ctx, word.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"television"}, got)
}

func TestConsolidationKeepsHigherMark(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	canonical := models.WordModel{Word: "パン", Language: "ja"}
	variant := models.WordModel{Word: "ﾊﾟﾝ", Language: "ja"}
	require.NoError(t, db.Create(&canonical).Error)
	require.NoError(t, db.Create(&variant).Error)

	canonicalMark := models.WordUserMarkModel{UserID: "u1", WordID: canonical.ID, Mark: 2, Source: models.MarkSourceManual}
	require.NoError(t, db.Create(&canonicalMark).Error)
	variantMark := models.WordUserMarkModel{UserID: "u1", WordID: variant.ID, Mark: 4, Note: "bakery chapter", Source: models.MarkSourceImported}
	require.NoError(t, db.Create(&variantMark).Error)

	// A different user marked only the variant; that mark just moves over.
	require.NoError(t, db.Create(&models.WordUserMarkModel{UserID: "u2", WordID: variant.ID, Mark: 1}).Error)

	merged, err := svc.RunConsolidationPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	marks, err := svc.ListMarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, canonical.ID, marks[0].WordID)
	assert.Equal(t, 4, marks[0].Mark)
	assert.Equal(t, "bakery chapter", marks[0].Note)

	marks, err = svc.ListMarks(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, canonical.ID, marks[0].WordID)
	assert.Equal(t, 1, marks[0].Mark)
}

func TestConsolidationMarkTieBreaksOnRecency(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	canonical := models.WordModel{Word: "コーヒー", Language: "ja"}
	variant := models.WordModel{Word: "ｺｰﾋｰ", Language: "ja"}
	require.NoError(t, db.Create(&canonical).Error)
	require.NoError(t, db.Create(&variant).Error)

	old := time.Now().Add(-time.Hour)
	canonicalMark := models.WordUserMarkModel{UserID: "u1", WordID: canonical.ID, Mark: 3, Note: "old note"}
	require.NoError(t, db.Create(&canonicalMark).Error)
	require.NoError(t, db.Model(&canonicalMark).Update("updated_at", old).Error)
	require.NoError(t, db.Create(&models.WordUserMarkModel{UserID: "u1", WordID: variant.ID, Mark: 3, Note: "fresh note"}).Error)

	_, err := svc.RunConsolidationPass(ctx)
	require.NoError(t, err)

	marks, err := svc.ListMarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "fresh note", marks[0].Note)
}
