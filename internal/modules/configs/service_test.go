package configs

import (
	"encoding/json"
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
	require.NoError(t, db.AutoMigrate(&models.OptionModel{}))
	return db
}

func TestGetPersistsDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	cfg, err := svc.Get()
	require.NoError(t, err)
	assert.True(t, cfg.AI.EnableAnalysis)
	assert.Equal(t, "en", cfg.AI.DefaultTargetLanguage)
	assert.Equal(t, 30, cfg.Jobs.ConsolidationIntervalMinutes)

	var opt models.OptionModel
	require.NoError(t, db.First(&opt, "name = ?", "full_config").Error)
	assert.NotEmpty(t, opt.Value)
}

func TestPatchMergesPartialUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Get()
	require.NoError(t, err)

	patched, err := svc.Patch(map[string]json.RawMessage{
		"jobs": json.RawMessage(`{"translation_threshold": 25, "consolidation_interval_minutes": 30, "reduction_interval_minutes": 30, "analysis_concurrency": 5, "split_cue_sentences": true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 25, patched.Jobs.TranslationThreshold)
	assert.True(t, patched.Jobs.SplitCueSentences)
	assert.True(t, patched.AI.EnableAnalysis, "untouched sections keep their values")

	// A fresh service sees the persisted patch.
	fresh := NewService(db)
	cfg, err := fresh.Get()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Jobs.TranslationThreshold)
}

func TestPatchIgnoresBlankValues(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Patch(map[string]json.RawMessage{
		"jobs": json.RawMessage("  "),
	})
	require.NoError(t, err)

	cfg, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Jobs.TranslationThreshold)
}
