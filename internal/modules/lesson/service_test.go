package lesson

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/analysis"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
こんにちは

2
00:00:04,000 --> 00:00:06,000
さようなら
`

// stubOracle serves OCR segments and a literal-per-sentence analysis.
type stubOracle struct {
	segments []string
	ocrErr   error
}

func (o *stubOracle) AnalyzeSentence(_ context.Context, text, _ string) ([]analysis.WordAnalysis, error) {
	return []analysis.WordAnalysis{{Word: text, Translation: "x"}}, nil
}

func (o *stubOracle) ExtractText(context.Context, []byte, string) ([]string, error) {
	return o.segments, o.ocrErr
}

func (o *stubOracle) ReduceTranslations(_ context.Context, _ string, translations []string, _, _ string) ([]string, error) {
	return translations, nil
}

func newTestService(t *testing.T, oracle analysis.Oracle) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.LessonModel{},
		&models.SentenceModel{},
		&models.SentenceWordModel{},
		&models.WordModel{},
		&models.WordTranslationModel{},
		&models.WordPronunciationModel{},
		&models.WordStemModel{},
		&models.WordUserMarkModel{},
		&models.OptionModel{},
	))

	cfgSvc := configs.NewService(db)
	lex := lexicon.NewService(db, nil, nil)
	pipeline := analysis.NewPipeline(oracle, lex, cfgSvc, nil)
	return NewService(db, cfgSvc, pipeline, oracle, nil, nil, nil), db
}

func TestIngestSRTKeepsTimings(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{})
	ctx := context.Background()

	lesson, processed, err := svc.IngestLessonFile(ctx, IngestInput{
		Content:  []byte(sampleSRT),
		FileName: "episode1.srt",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "episode1", lesson.Title, "title falls back to the file name")
	require.Len(t, processed, 2)

	require.NotNil(t, processed[0].StartMs)
	require.NotNil(t, processed[0].EndMs)
	assert.EqualValues(t, 1000, *processed[0].StartMs)
	assert.EqualValues(t, 3500, *processed[0].EndMs)
	assert.Equal(t, "こんにちは", processed[0].Text)

	var sentences []models.SentenceModel
	require.NoError(t, db.Where("lesson_id = ?", lesson.ID).Order("order_index ASC").Find(&sentences).Error)
	require.Len(t, sentences, 2)
	require.NotNil(t, sentences[1].StartMs)
	assert.EqualValues(t, 4000, *sentences[1].StartMs)
	assert.False(t, sentences[0].HasSplit, "analysis is deferred, not part of ingestion")
}

func TestIngestPlainTextHasNoTimings(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{})
	ctx := context.Background()

	lesson, processed, err := svc.IngestLessonFile(ctx, IngestInput{
		Content:  []byte("今日は晴れ。明日は雨。"),
		FileName: "diary.txt",
		Title:    "Weather diary",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Weather diary", lesson.Title)
	require.NotEmpty(t, processed)
	for _, p := range processed {
		assert.Nil(t, p.StartMs)
		assert.Nil(t, p.EndMs)
	}

	var count int64
	db.Model(&models.SentenceModel{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	assert.EqualValues(t, len(processed), count)
}

func TestIngestNormalizesNarrowKana(t *testing.T) {
	svc, _ := newTestService(t, &stubOracle{})

	_, processed, err := svc.IngestLessonFile(context.Background(), IngestInput{
		Content:  []byte("ｶﾞﾗｽの窓"),
		FileName: "notes.txt",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, "ガラスの窓", processed[0].Text)
}

func TestIngestEmptyFileFails(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{})
	ctx := context.Background()

	_, _, err := svc.IngestLessonFile(ctx, IngestInput{
		Content: nil, FileName: "empty.txt", Language: "ja", UserID: "u1",
	})
	assert.Error(t, err)

	// Whitespace-only content parses to zero sentences and persists nothing.
	_, _, err = svc.IngestLessonFile(ctx, IngestInput{
		Content: []byte("   \n\n  "), FileName: "blank.txt", Language: "ja", UserID: "u1",
	})
	assert.Error(t, err)

	var lessons int64
	db.Model(&models.LessonModel{}).Count(&lessons)
	assert.EqualValues(t, 0, lessons)
}

func TestIngestImageRunsOCR(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{segments: []string{"背中を押す。前を向く。"}})
	ctx := context.Background()

	lesson, processed, err := svc.IngestImage(ctx, []byte{0x89, 0x50}, IngestInput{
		FileName: "page.png",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)
	require.Len(t, processed, 2)
	assert.Equal(t, "背中を押す。", processed[0].Text)
	assert.Nil(t, processed[0].StartMs)

	var count int64
	db.Model(&models.SentenceModel{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestIngestImageFailsWhenOCRFindsNothing(t *testing.T) {
	svc, _ := newTestService(t, &stubOracle{segments: nil})

	_, _, err := svc.IngestImage(context.Background(), []byte{0x89}, IngestInput{Language: "ja", UserID: "u1"})
	assert.Error(t, err)
}

func TestEnsureLessonAnalyzed(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{})
	ctx := context.Background()

	lesson, _, err := svc.IngestLessonFile(ctx, IngestInput{
		Content:  []byte(sampleSRT),
		FileName: "episode1.srt",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)

	results, err := svc.EnsureLessonAnalyzed(ctx, lesson.ID, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Analyzed)
	}

	var analyzed int64
	db.Model(&models.SentenceModel{}).Where("lesson_id = ? AND has_split = ?", lesson.ID, true).Count(&analyzed)
	assert.EqualValues(t, 2, analyzed)
}

func TestDeleteLessonRemovesSentences(t *testing.T) {
	svc, db := newTestService(t, &stubOracle{})
	ctx := context.Background()

	lesson, _, err := svc.IngestLessonFile(ctx, IngestInput{
		Content:  []byte(sampleSRT),
		FileName: "episode1.srt",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLesson(ctx, lesson.ID, "u1"))

	var lessons, sentences int64
	db.Model(&models.LessonModel{}).Count(&lessons)
	db.Model(&models.SentenceModel{}).Where("lesson_id = ?", lesson.ID).Count(&sentences)
	assert.Zero(t, lessons)
	assert.Zero(t, sentences)

	err = svc.DeleteLesson(ctx, lesson.ID, "u1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteLessonChecksOwner(t *testing.T) {
	svc, _ := newTestService(t, &stubOracle{})
	ctx := context.Background()

	lesson, _, err := svc.IngestLessonFile(ctx, IngestInput{
		Content:  []byte("今日は晴れです。"),
		FileName: "note.txt",
		Language: "ja",
		UserID:   "u1",
	})
	require.NoError(t, err)

	err = svc.DeleteLesson(ctx, lesson.ID, "someone-else")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
