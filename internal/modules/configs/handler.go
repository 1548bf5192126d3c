package configs

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/config"
	"github.com/kotoba-space/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/options", authMW)
	g.GET("", h.get)
	g.PATCH("", h.patch)
}

func (h *Handler) get(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, redact(cfg))
}

// patch merges the given top-level sections into the stored config.
func (h *Handler) patch(c *gin.Context) {
	var partial map[string]json.RawMessage
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	cfg, err := h.svc.Patch(partial)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, redact(cfg))
}

// redact hides credentials before the config leaves the API.
func redact(cfg *config.FullConfig) *config.FullConfig {
	out := *cfg
	out.AI.Providers = make([]config.AIProvider, len(cfg.AI.Providers))
	copy(out.AI.Providers, cfg.AI.Providers)
	for i := range out.AI.Providers {
		if out.AI.Providers[i].APIKey != "" {
			out.AI.Providers[i].APIKey = "********"
		}
	}
	if out.S3.SecretAccessKey != "" {
		out.S3.SecretAccessKey = "********"
	}
	if out.Bark.Key != "" {
		out.Bark.Key = "********"
	}
	return &out
}
