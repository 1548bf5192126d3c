package lexicon

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/middleware"
	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	words := rg.Group("/words")
	words.GET("/lookup", h.lookupWord)
	words.GET("/:id/translations", h.getTranslations)

	marks := rg.Group("/marks", authMW)
	marks.GET("", h.listMarks)
	marks.POST("", h.upsertMark)
}

// lookupWord resolves a word by literal+language and returns its stored
// projection.
func (h *Handler) lookupWord(c *gin.Context) {
	literal := strings.TrimSpace(c.Query("word"))
	lang := strings.TrimSpace(c.Query("lang"))
	if literal == "" || lang == "" {
		response.BadRequest(c, "word and lang are required")
		return
	}
	targetLang := strings.TrimSpace(c.DefaultQuery("target_lang", "en"))

	word, err := h.svc.FindWord(c.Request.Context(), literal, lang)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	projections, err := h.svc.ProjectWords(c.Request.Context(), lang, targetLang, []string{literal})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	proj := projections[literal]
	proj.ID = word.ID
	response.OK(c, proj)
}

// getTranslations serves a word's translations, reduced on the fly when
// the stored list has grown.
func (h *Handler) getTranslations(c *gin.Context) {
	wordID := c.Param("id")
	targetLang := strings.TrimSpace(c.DefaultQuery("target_lang", "en"))

	translations, err := h.svc.LookupTranslations(c.Request.Context(), wordID, targetLang)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"translations": translations})
}

type upsertMarkBody struct {
	WordID string `json:"wordId" binding:"required"`
	Mark   int    `json:"mark"`
	Note   string `json:"note"`
}

func (h *Handler) upsertMark(c *gin.Context) {
	var body upsertMarkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if body.Mark < models.MarkMin || body.Mark > models.MarkMax {
		response.UnprocessableEntity(c, "mark must be between 0 and 5")
		return
	}

	uid := middleware.CurrentUserID(c)
	if uid == "" {
		response.Unauthorized(c)
		return
	}

	mark, err := h.svc.UpsertMark(c.Request.Context(), MarkUpsert{
		UserID: uid,
		WordID: body.WordID,
		Mark:   body.Mark,
		Note:   body.Note,
		Source: models.MarkSourceManual,
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, mark)
}

func (h *Handler) listMarks(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		response.Unauthorized(c)
		return
	}

	marks, err := h.svc.ListMarks(c.Request.Context(), uid)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, marks)
}
