package importer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *lexicon.Service, *gorm.DB) {
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
		&models.ImportRecordModel{},
	))
	lex := lexicon.NewService(db, nil, nil)
	return NewService(db, lex, nil), lex, db
}

func TestImportJSONExport(t *testing.T) {
	svc, lex, db := newTestService(t)
	ctx := context.Background()

	payload := []byte(`[
		{"word": "犬", "language": "ja", "status": 4, "translation": "dog", "targetLang": "en"},
		{"word": "猫", "status": 2, "translation": "cat"},
		{"word": "  ", "status": 1}
	]`)

	result, err := svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", payload)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.NotNil(t, result.Record)
	assert.Equal(t, "lwt", result.Record.Source)

	// Missing language falls back to the default.
	word, err := lex.FindWord(ctx, "猫", "ja")
	require.NoError(t, err)
	got, err := lex.LookupTranslations(ctx, word.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, got)

	marks, err := lex.ListMarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	for _, m := range marks {
		assert.Equal(t, models.MarkSourceImported, m.Source)
	}

	var records int64
	db.Model(&models.ImportRecordModel{}).Count(&records)
	assert.EqualValues(t, 1, records)
}

func TestImportBSONStream(t *testing.T) {
	svc, lex, _ := newTestService(t)
	ctx := context.Background()

	var payload []byte
	docs := []entry{
		{Word: "走る", Language: "ja", Status: 3, Translation: "to run", TargetLang: "en"},
		{Word: "見る", Language: "ja", Status: 5},
	}
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		require.NoError(t, err)
		payload = append(payload, raw...)
	}

	result, err := svc.ImportLexicalExport(ctx, "u1", "lingq", "ja", payload)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	word, err := lex.FindWord(ctx, "見る", "ja")
	require.NoError(t, err)
	marks, err := lex.ListMarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	for _, m := range marks {
		if m.WordID == word.ID {
			assert.Equal(t, 5, m.Mark)
		}
	}
}

func TestImportNeverDowngradesMarks(t *testing.T) {
	svc, lex, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, lex.ApplyAnalysis(ctx, nil, "ja", []lexicon.WordUpsert{
		{Word: "犬", Translation: "dog", TargetLang: "en"},
	}))
	word, err := lex.FindWord(ctx, "犬", "ja")
	require.NoError(t, err)
	_, err = lex.UpsertMark(ctx, lexicon.MarkUpsert{UserID: "u1", WordID: word.ID, Mark: 5})
	require.NoError(t, err)

	payload := []byte(`[{"word": "犬", "language": "ja", "status": 2}]`)
	result, err := svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", payload)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	marks, err := lex.ListMarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, 5, marks[0].Mark)
	assert.Equal(t, models.MarkSourceManual, marks[0].Source)
}

func TestImportRejectsMalformedPayloads(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", nil)
	assert.Error(t, err)

	_, err = svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", []byte(`[{"word":`))
	assert.Error(t, err)

	_, err = svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", []byte{0x01, 0x02})
	assert.Error(t, err)

	_, err = svc.ImportLexicalExport(ctx, "u1", "lwt", "ja", []byte(`[]`))
	assert.Error(t, err, "an empty export is reported, not silently recorded")
}
