package app

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/middleware"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/kotoba-space/core/internal/modules/importer"
	"github.com/kotoba-space/core/internal/modules/lesson"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"github.com/kotoba-space/core/internal/modules/tasks/crontask"
	"github.com/kotoba-space/core/internal/modules/user"
	"github.com/kotoba-space/core/internal/pkg/bark"
	pkgredis "github.com/kotoba-space/core/internal/pkg/redis"
	"github.com/kotoba-space/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

// httpCacheSkipPaths lists auth-bound and self-mutating read paths the
// shared response cache must never serve.
func httpCacheSkipPaths(prefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	return []string{
		p + "/user/check_logged",
		p + "/user",
		p + "/user/tokens",
		p + "/marks",
		p + "/lessons",
		p + "/lessons/*",
		p + "/imports",
		p + "/options",
		p + "/cron-task",
		p + "/cron-task/*",
	}
}

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "kotoba-core",
		"version": "1.0.0",
	}

	// Bark push service for rate-limit alerts.
	barkSvc := bark.New(func() (key, serverURL, siteTitle string) {
		cfg, err := a.cfgSvc.Get()
		if err != nil || !cfg.Bark.Enable {
			return "", "", ""
		}
		return cfg.Bark.Key, cfg.Bark.ServerURL, cfg.Bark.SiteTitle
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), barkSvc))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(apiPrefix),
	}))

	api.GET("", func(c *gin.Context) {
		response.OK(c, appInfo)
	})

	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW)
	lesson.NewHandler(a.lessonSvc).RegisterRoutes(api, authMW)
	lexicon.NewHandler(a.lexiconSvc).RegisterRoutes(api, authMW)
	importer.NewHandler(a.importSvc).RegisterRoutes(api, authMW)
	configs.NewHandler(a.cfgSvc).RegisterRoutes(api, authMW)
	crontask.NewHandler(a.sched, a.taskSvc).RegisterRoutes(api, authMW)
}
