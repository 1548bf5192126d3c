package importer

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/middleware"
	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/pkg/response"
)

const maxImportBytes = 32 << 20

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/imports", authMW)
	g.POST("", h.importExport)
	g.GET("", h.listRecords)
}

func (h *Handler) importExport(c *gin.Context) {
	source := strings.TrimSpace(c.Query("source"))
	if source == "" {
		source = "unknown"
	}
	lang := strings.TrimSpace(c.Query("lang"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxImportBytes {
		response.BadRequest(c, "file too large")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	result, err := h.svc.ImportLexicalExport(c.Request.Context(), middleware.CurrentUserID(c), source, lang, payload)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, result)
}

func (h *Handler) listRecords(c *gin.Context) {
	var records []models.ImportRecordModel
	err := h.svc.db.WithContext(c.Request.Context()).
		Where("user_id = ?", middleware.CurrentUserID(c)).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, records)
}
