package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/analysis"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/kotoba-space/core/internal/modules/subtitle"
	"github.com/kotoba-space/core/internal/pkg/kana"
	"github.com/kotoba-space/core/internal/pkg/storage"
	"github.com/kotoba-space/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TaskTypeAnalyzeLesson = "lesson:analyze"

// ProcessedSentence is one ingested sentence as returned to the caller.
// Timing fields stay nil for untimed sources.
type ProcessedSentence struct {
	Text    string `json:"text"`
	StartMs *int64 `json:"startMs,omitempty"`
	EndMs   *int64 `json:"endMs,omitempty"`
}

// IngestInput describes one lesson file to ingest. Content may be empty
// when FileKey points at object storage.
type IngestInput struct {
	Content  []byte
	FileKey  string
	FileName string
	Title    string
	Language string
	UserID   string
}

// AnalyzePayload is the task payload for background lesson analysis.
type AnalyzePayload struct {
	LessonID string `json:"lesson_id"`
	Language string `json:"language"`
}

type Service struct {
	db       *gorm.DB
	cfgSvc   *configs.Service
	parser   *subtitle.Parser
	pipeline *analysis.Pipeline
	oracle   analysis.Oracle
	store    *storage.Client
	taskSvc  *taskqueue.Service
	logger   *zap.Logger
}

// NewService wires the ingestion service. store and taskSvc may be nil
// when object storage or redis are not configured.
func NewService(db *gorm.DB, cfgSvc *configs.Service, pipeline *analysis.Pipeline, oracle analysis.Oracle, store *storage.Client, taskSvc *taskqueue.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		cfgSvc:   cfgSvc,
		parser:   subtitle.NewParser(logger),
		pipeline: pipeline,
		oracle:   oracle,
		store:    store,
		taskSvc:  taskSvc,
		logger:   logger.Named("Lesson"),
	}
}

const uploadURLTTL = 15 * time.Minute

// PresignUpload issues a short-lived direct-upload URL plus the file key to
// pass back into ingestion.
func (s *Service) PresignUpload(ctx context.Context, fileName string) (string, string, error) {
	if s.store == nil {
		return "", "", storage.ErrDisabled
	}
	key := "lessons/" + uuid.New().String() + strings.ToLower(filepath.Ext(fileName))
	url, err := s.store.PresignUpload(ctx, key, uploadURLTTL)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// IngestLessonFile parses one lesson file into sentences and persists the
// lesson atomically. A parse failure persists nothing. Returns the lesson
// and the processed sentences in document order.
func (s *Service) IngestLessonFile(ctx context.Context, in IngestInput) (*models.LessonModel, []ProcessedSentence, error) {
	content := in.Content
	if len(content) == 0 && in.FileKey != "" {
		if s.store == nil {
			return nil, nil, storage.ErrDisabled
		}
		fetched, err := s.store.GetFileContent(ctx, in.FileKey)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch lesson file: %w", err)
		}
		content = fetched
	}
	if len(content) == 0 {
		return nil, nil, errors.New("lesson file is empty")
	}

	cues, format, err := s.parser.Parse(string(content), in.FileName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, nil, err
	}
	if format != subtitle.FormatText && cfg.Jobs.SplitCueSentences {
		cues = subtitle.ExpandCues(cues)
	}

	// Archive direct uploads so the original file stays retrievable.
	if in.FileKey == "" && s.store != nil {
		key := "lessons/" + uuid.New().String() + strings.ToLower(filepath.Ext(in.FileName))
		if err := s.store.Put(ctx, key, content, "text/plain; charset=utf-8"); err != nil {
			s.logger.Warn("archive lesson file failed", zap.Error(err))
		} else {
			in.FileKey = key
		}
	}

	timed := format != subtitle.FormatText
	lesson, processed, err := s.persistLesson(ctx, in, cues, timed)
	if err != nil {
		return nil, nil, err
	}

	s.enqueueAnalysis(ctx, lesson)
	return lesson, processed, nil
}

// IngestImage runs OCR over an image and ingests the extracted segments as
// an untimed lesson.
func (s *Service) IngestImage(ctx context.Context, image []byte, in IngestInput) (*models.LessonModel, []ProcessedSentence, error) {
	if s.oracle == nil {
		return nil, nil, analysis.ErrNoProvider
	}
	segments, err := s.oracle.ExtractText(ctx, image, in.Language)
	if err != nil {
		return nil, nil, err
	}
	if len(segments) == 0 {
		return nil, nil, errors.New("no text found in image")
	}

	cues := make([]subtitle.Cue, 0, len(segments))
	for _, seg := range segments {
		for _, sentence := range subtitle.SplitSentences(seg) {
			cues = append(cues, subtitle.Cue{Text: sentence})
		}
	}

	lesson, processed, err := s.persistLesson(ctx, in, cues, false)
	if err != nil {
		return nil, nil, err
	}
	s.enqueueAnalysis(ctx, lesson)
	return lesson, processed, nil
}

func (s *Service) persistLesson(ctx context.Context, in IngestInput, cues []subtitle.Cue, timed bool) (*models.LessonModel, []ProcessedSentence, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(in.FileName, filepath.Ext(in.FileName))
	}
	if title == "" {
		title = "Untitled lesson"
	}

	lesson := models.LessonModel{
		UserID:   in.UserID,
		Title:    title,
		Language: in.Language,
		FileKey:  in.FileKey,
		FileName: in.FileName,
	}
	processed := make([]ProcessedSentence, 0, len(cues))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lesson).Error; err != nil {
			return err
		}
		for i, cue := range cues {
			text := kana.Normalize(strings.TrimSpace(cue.Text))
			if text == "" {
				continue
			}
			sentence := models.SentenceModel{
				LessonID:   lesson.ID,
				Text:       text,
				OrderIndex: i,
			}
			var p ProcessedSentence
			p.Text = text
			if timed {
				start, end := cue.StartMs, cue.EndMs
				sentence.StartMs, sentence.EndMs = &start, &end
				p.StartMs, p.EndMs = &start, &end
			}
			if err := tx.Create(&sentence).Error; err != nil {
				return err
			}
			processed = append(processed, p)
		}
		if len(processed) == 0 {
			return errors.New("no sentences after processing")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &lesson, processed, nil
}

// enqueueAnalysis schedules background analysis when the task queue is up.
// Best effort; sentences stay unanalyzed until the next explicit request.
func (s *Service) enqueueAnalysis(ctx context.Context, lesson *models.LessonModel) {
	if s.taskSvc == nil {
		return
	}
	payload := AnalyzePayload{LessonID: lesson.ID, Language: lesson.Language}
	task, err := s.taskSvc.Enqueue(ctx, TaskTypeAnalyzeLesson, payload, lesson.ID, "lesson")
	if err != nil {
		s.logger.Warn("enqueue lesson analysis failed", zap.String("lessonId", lesson.ID), zap.Error(err))
		return
	}

	// Execute immediately in a goroutine (in production use a worker pool)
	if task.Status == taskqueue.TaskPending {
		go s.RunAnalyzeTask(context.Background(), task.ID, task.Payload)
	}
}

// RunAnalyzeTask executes one queued lesson analysis task.
func (s *Service) RunAnalyzeTask(ctx context.Context, taskID string, rawPayload json.RawMessage) {
	var payload AnalyzePayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		s.failTask(ctx, taskID, "invalid payload")
		return
	}

	if s.taskSvc != nil {
		_ = s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")
	}

	results, err := s.EnsureLessonAnalyzed(ctx, payload.LessonID, payload.Language)
	if err != nil {
		s.failTask(ctx, taskID, err.Error())
		return
	}

	analyzed := 0
	for _, r := range results {
		if r.Analyzed {
			analyzed++
		}
	}
	if s.taskSvc != nil {
		_ = s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted,
			map[string]int{"sentences": len(results), "analyzed": analyzed}, "")
	}
}

func (s *Service) failTask(ctx context.Context, taskID, msg string) {
	if s.taskSvc != nil {
		_ = s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, msg)
	}
}

// EnsureLessonAnalyzed loads a lesson's sentences and runs them through the
// analysis pipeline.
func (s *Service) EnsureLessonAnalyzed(ctx context.Context, lessonID, language string) ([]analysis.SentenceResult, error) {
	var lesson models.LessonModel
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", lessonID).Error; err != nil {
		return nil, err
	}
	if language == "" {
		language = lesson.Language
	}

	var sentences []models.SentenceModel
	if err := s.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("order_index ASC").
		Find(&sentences).Error; err != nil {
		return nil, err
	}
	return s.pipeline.EnsureAnalyzed(ctx, sentences, language)
}

// GetLesson loads a lesson with its sentences.
func (s *Service) GetLesson(ctx context.Context, id string) (*models.LessonModel, error) {
	var lesson models.LessonModel
	err := s.db.WithContext(ctx).
		Preload("Sentences", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		First(&lesson, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessons returns a user's lessons, newest first.
func (s *Service) ListLessons(ctx context.Context, userID string) ([]models.LessonModel, error) {
	var lessons []models.LessonModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&lessons).Error
	return lessons, err
}

// FileURL resolves a URL for the lesson's original file, preferring the
// public domain when one is configured.
func (s *Service) FileURL(ctx context.Context, id string) (string, error) {
	var lesson models.LessonModel
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return "", err
	}
	if lesson.FileKey == "" {
		return "", errors.New("lesson has no stored file")
	}
	if s.store == nil {
		return "", storage.ErrDisabled
	}
	if url := s.store.PublicURL(lesson.FileKey); url != "" {
		return url, nil
	}
	return s.store.PresignDownload(ctx, lesson.FileKey, uploadURLTTL)
}

// DeleteLesson removes a lesson with its sentences and word links. The
// stored file is deleted best effort after the rows are gone.
func (s *Service) DeleteLesson(ctx context.Context, id, userID string) error {
	var lesson models.LessonModel
	if err := s.db.WithContext(ctx).First(&lesson, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sentenceIDs := tx.Model(&models.SentenceModel{}).Select("id").Where("lesson_id = ?", lesson.ID)
		if err := tx.Unscoped().Where("sentence_id IN (?)", sentenceIDs).Delete(&models.SentenceWordModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("lesson_id = ?", lesson.ID).Delete(&models.SentenceModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&lesson).Error
	})
	if err != nil {
		return err
	}

	if lesson.FileKey != "" && s.store != nil {
		if err := s.store.Delete(ctx, lesson.FileKey); err != nil {
			s.logger.Warn("delete lesson file failed", zap.String("key", lesson.FileKey), zap.Error(err))
		}
	}
	return nil
}
