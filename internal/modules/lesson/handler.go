package lesson

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/middleware"
	"github.com/kotoba-space/core/internal/pkg/response"
	"github.com/kotoba-space/core/internal/pkg/storage"
	"gorm.io/gorm"
)

const maxLessonFileBytes = 10 << 20

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/lessons", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.ingest)
	g.POST("/upload-url", h.uploadURL)
	g.POST("/ocr", h.ingestImage)
	g.POST("/:id/analyze", h.analyze)
	g.GET("/:id/file-url", h.fileURL)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	lessons, err := h.svc.ListLessons(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, lessons)
}

func (h *Handler) get(c *gin.Context) {
	lesson, err := h.svc.GetLesson(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, lesson)
}

func (h *Handler) uploadURL(c *gin.Context) {
	var body struct {
		FileName string `json:"fileName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "fileName is required")
		return
	}
	key, url, err := h.svc.PresignUpload(c.Request.Context(), body.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			response.BadRequest(c, "object storage is not configured")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"fileKey": key, "uploadUrl": url})
}

// ingest accepts either a multipart "file" upload or a JSON body with a
// fileKey pointing at object storage.
func (h *Handler) ingest(c *gin.Context) {
	in := IngestInput{
		UserID:   middleware.CurrentUserID(c),
		Language: strings.TrimSpace(c.Query("lang")),
		Title:    strings.TrimSpace(c.Query("title")),
	}
	if in.Language == "" {
		response.BadRequest(c, "lang is required")
		return
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		if fileHeader.Size > maxLessonFileBytes {
			response.BadRequest(c, "file too large")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.InternalError(c, err)
			return
		}
		defer file.Close()
		content, err := io.ReadAll(io.LimitReader(file, maxLessonFileBytes+1))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if len(content) > maxLessonFileBytes {
			response.BadRequest(c, "file too large")
			return
		}
		in.Content = content
		in.FileName = fileHeader.Filename
	} else {
		var body struct {
			FileKey  string `json:"fileKey" binding:"required"`
			FileName string `json:"fileName"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "file or fileKey is required")
			return
		}
		in.FileKey = body.FileKey
		in.FileName = body.FileName
		if in.FileName == "" {
			in.FileName = body.FileKey
		}
	}

	lesson, sentences, err := h.svc.IngestLessonFile(c.Request.Context(), in)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.Created(c, gin.H{"lesson": lesson, "sentences": sentences})
}

func (h *Handler) ingestImage(c *gin.Context) {
	in := IngestInput{
		UserID:   middleware.CurrentUserID(c),
		Language: strings.TrimSpace(c.Query("lang")),
		Title:    strings.TrimSpace(c.Query("title")),
	}
	if in.Language == "" {
		response.BadRequest(c, "lang is required")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxLessonFileBytes))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	in.FileName = fileHeader.Filename

	lesson, sentences, err := h.svc.IngestImage(c.Request.Context(), image, in)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.Created(c, gin.H{"lesson": lesson, "sentences": sentences})
}

func (h *Handler) fileURL(c *gin.Context) {
	url, err := h.svc.FileURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		if errors.Is(err, storage.ErrDisabled) {
			response.BadRequest(c, "object storage is not configured")
			return
		}
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *Handler) remove(c *gin.Context) {
	err := h.svc.DeleteLesson(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) analyze(c *gin.Context) {
	results, err := h.svc.EnsureLessonAnalyzed(c.Request.Context(), c.Param("id"), c.Query("lang"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, results)
}
