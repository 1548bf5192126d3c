package lexicon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kotoba-space/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.WordModel{},
		&models.WordTranslationModel{},
		&models.WordPronunciationModel{},
		&models.WordStemModel{},
		&models.WordUserMarkModel{},
		&models.SentenceModel{},
		&models.SentenceWordModel{},
	))
	return db
}

type stubReducer struct {
	out   []string
	err   error
	calls int
}

func (r *stubReducer) ReduceTranslations(_ context.Context, _ string, _ []string, _, _ string) ([]string, error) {
	r.calls++
	return r.out, r.err
}

func TestApplyAnalysisUpsertsAndCachesSplit(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	sentence := models.SentenceModel{LessonID: "lesson-1", Text: "こんにちは世界"}
	require.NoError(t, db.Create(&sentence).Error)

	words := []WordUpsert{
		{Word: "こんにちは", Translation: "hello", TargetLang: "en", Pronunciation: "konnichiwa", PronunciationKind: "romaji"},
		{Word: "世界", Translation: "world", TargetLang: "en", Pronunciation: "せかい", PronunciationKind: "hiragana", Stem: "世界"},
	}
	require.NoError(t, svc.ApplyAnalysis(ctx, &sentence, "ja", words))

	assert.True(t, sentence.HasSplit)
	assert.Equal(t, models.StringArray{"こんにちは", "世界"}, sentence.SplitWords)

	var stored models.SentenceModel
	require.NoError(t, db.First(&stored, "id = ?", sentence.ID).Error)
	assert.True(t, stored.HasSplit)
	assert.Equal(t, models.StringArray{"こんにちは", "世界"}, stored.SplitWords)

	var wordCount, translationCount, stemCount, linkCount int64
	db.Model(&models.WordModel{}).Count(&wordCount)
	db.Model(&models.WordTranslationModel{}).Count(&translationCount)
	db.Model(&models.WordStemModel{}).Count(&stemCount)
	db.Model(&models.SentenceWordModel{}).Count(&linkCount)
	assert.EqualValues(t, 2, wordCount)
	assert.EqualValues(t, 2, translationCount)
	assert.EqualValues(t, 0, stemCount, "stem equal to the literal must not be stored")
	assert.EqualValues(t, 2, linkCount)

	// Re-applying the same analysis converges instead of duplicating.
	require.NoError(t, svc.ApplyAnalysis(ctx, &sentence, "ja", words))
	db.Model(&models.WordModel{}).Count(&wordCount)
	db.Model(&models.WordTranslationModel{}).Count(&translationCount)
	db.Model(&models.SentenceWordModel{}).Count(&linkCount)
	assert.EqualValues(t, 2, wordCount)
	assert.EqualValues(t, 2, translationCount)
	assert.EqualValues(t, 2, linkCount)
}

func TestApplyAnalysisAccumulatesTranslations(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	first := []WordUpsert{{Word: "走る", Translation: "to run", TargetLang: "en"}}
	second := []WordUpsert{{Word: "走る", Translation: "to dash", TargetLang: "en", Stem: "走"}}
	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", first))
	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", second))

	word, err := svc.FindWord(ctx, "走る", "ja")
	require.NoError(t, err)

	projections, err := svc.ProjectWords(ctx, "ja", "en", []string{"走る"})
	require.NoError(t, err)
	proj, ok := projections["走る"]
	require.True(t, ok)
	assert.Equal(t, word.ID, proj.ID)
	assert.ElementsMatch(t, []string{"to run", "to dash"}, proj.Translations)
	assert.Equal(t, []string{"走"}, proj.Stems)
}

func TestApplyAnalysisSkipsBlankEntries(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	words := []WordUpsert{
		{Word: "  ", Translation: "ghost", TargetLang: "en"},
		{Word: "本", Translation: "", TargetLang: "en", Pronunciation: "ほん", PronunciationKind: "hiragana"},
	}
	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", words))

	var wordCount, translationCount, pronCount int64
	db.Model(&models.WordModel{}).Count(&wordCount)
	db.Model(&models.WordTranslationModel{}).Count(&translationCount)
	db.Model(&models.WordPronunciationModel{}).Count(&pronCount)
	assert.EqualValues(t, 1, wordCount)
	assert.EqualValues(t, 0, translationCount)
	assert.EqualValues(t, 1, pronCount)
}

func TestProjectWordsFiltersTargetLanguage(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", []WordUpsert{
		{Word: "水", Translation: "water", TargetLang: "en"},
		{Word: "水", Translation: "Wasser", TargetLang: "de"},
	}))

	projections, err := svc.ProjectWords(ctx, "ja", "en", []string{"水", "missing"})
	require.NoError(t, err)
	require.Len(t, projections, 1)
	assert.Equal(t, []string{"water"}, projections["水"].Translations)
}

func TestUpsertMark(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	word := models.WordModel{Word: "犬", Language: "ja"}
	require.NoError(t, db.Create(&word).Error)

	mark, err := svc.UpsertMark(ctx, MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 3, Note: "seen in lesson"})
	require.NoError(t, err)
	assert.Equal(t, 3, mark.Mark)
	assert.Equal(t, models.MarkSourceManual, mark.Source)

	// Overwrite without KeepHigher always wins, even downward.
	mark, err = svc.UpsertMark(ctx, MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, mark.Mark)
	assert.Equal(t, "seen in lesson", mark.Note, "empty note keeps the stored one")

	// KeepHigher never downgrades.
	_, err = svc.UpsertMark(ctx, MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 5})
	require.NoError(t, err)
	mark, err = svc.UpsertMark(ctx, MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 2, Source: models.MarkSourceImported, KeepHigher: true})
	require.NoError(t, err)
	assert.Equal(t, 5, mark.Mark)
	assert.Equal(t, models.MarkSourceManual, mark.Source)

	// Out-of-range marks clamp instead of erroring.
	mark, err = svc.UpsertMark(ctx, MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 9})
	require.NoError(t, err)
	assert.Equal(t, models.MarkMax, mark.Mark)

	var count int64
	db.Model(&models.WordUserMarkModel{}).Where("user_id = ? AND word_id = ?", "u1", word.ID).Count(&count)
	assert.EqualValues(t, 1, count, "one row per (user, word)")
}

func TestLookupTranslationsReducesLargeSets(t *testing.T) {
	db := newTestDB(t)
	reducer := &stubReducer{out: []string{"to run"}}
	svc := NewService(db, reducer, nil)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", []WordUpsert{
		{Word: "走る", Translation: "to run", TargetLang: "en"},
		{Word: "走る", Translation: "to dash", TargetLang: "en"},
		{Word: "走る", Translation: "to sprint", TargetLang: "en"},
	}))
	word, err := svc.FindWord(ctx, "走る", "ja")
	require.NoError(t, err)

	got, err := svc.LookupTranslations(ctx, word.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"to run"}, got)
	assert.Equal(t, 1, reducer.calls)

	var rows []models.WordTranslationModel
	require.NoError(t, db.Where("word_id = ?", word.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "reduced set is persisted")
	assert.Equal(t, "to run", rows[0].Translation)

	// Below the threshold the reducer stays untouched.
	got, err = svc.LookupTranslations(ctx, word.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"to run"}, got)
	assert.Equal(t, 1, reducer.calls)
}

func TestLookupTranslationsFallsBackOnReducerError(t *testing.T) {
	db := newTestDB(t)
	reducer := &stubReducer{err: assert.AnError}
	svc := NewService(db, reducer, nil)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAnalysis(ctx, nil, "ja", []WordUpsert{
		{Word: "本", Translation: "book", TargetLang: "en"},
		{Word: "本", Translation: "volume", TargetLang: "en"},
		{Word: "本", Translation: "main", TargetLang: "en"},
	}))
	word, err := svc.FindWord(ctx, "本", "ja")
	require.NoError(t, err)

	got, err := svc.LookupTranslations(ctx, word.ID, "en")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book", "volume", "main"}, got)

	var count int64
	db.Model(&models.WordTranslationModel{}).Where("word_id = ?", word.ID).Count(&count)
	assert.EqualValues(t, 3, count, "stored rows survive a failed reduction")
}
