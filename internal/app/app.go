package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kotoba-space/core/internal/config"
	"github.com/kotoba-space/core/internal/database"
	"github.com/kotoba-space/core/internal/middleware"
	"github.com/kotoba-space/core/internal/modules/analysis"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/kotoba-space/core/internal/modules/importer"
	"github.com/kotoba-space/core/internal/modules/lesson"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"github.com/kotoba-space/core/internal/pkg/cluster"
	pkgcron "github.com/kotoba-space/core/internal/pkg/cron"
	"github.com/kotoba-space/core/internal/pkg/prettylog"
	pkgredis "github.com/kotoba-space/core/internal/pkg/redis"
	"github.com/kotoba-space/core/internal/pkg/storage"
	"github.com/kotoba-space/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	cfgSvc     *configs.Service
	oracle     *analysis.AIOracle
	lexiconSvc *lexicon.Service
	pipeline   *analysis.Pipeline
	lessonSvc  *lesson.Service
	importSvc  *importer.Service
	taskSvc    *taskqueue.Service
	store      *storage.Client
}

// New initializes the application from config: database, redis, services and routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}
	if cluster.ShouldLogBootstrap() {
		logger.Info("bootstrapping application", prettylog.StartField())
	}

	db, err := database.Connect(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
		if !cluster.ShouldLogDevDiagnostics() {
			gin.DebugPrintRouteFunc = func(string, string, string, int) {}
			gin.DebugPrintFunc = func(string, ...interface{}) {}
		}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-kotoba-cache", "x-kotoba-served-by"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	app := &App{cfg: cfg, router: router, db: db, logger: logger}
	app.buildServices(rc)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.sched = pkgcron.New()
	if cluster.ShouldRunCron() {
		app.registerCronJobs()
		go app.sched.Start(ctx)
	}

	app.registerRoutes(rc)
	return app, nil
}

func (a *App) buildServices(rc *pkgredis.Client) {
	a.cfgSvc = configs.NewService(a.db, configs.WithLogger(a.logger))
	a.taskSvc = taskqueue.NewService(rc)
	a.oracle = analysis.NewAIOracle(a.cfgSvc, a.logger)
	a.lexiconSvc = lexicon.NewService(a.db, a.oracle, a.logger)
	a.pipeline = analysis.NewPipeline(a.oracle, a.lexiconSvc, a.cfgSvc, a.logger)

	if cfg, err := a.cfgSvc.Get(); err == nil && cfg.S3.Enable {
		store, err := storage.New(cfg.S3, a.logger)
		if err != nil {
			a.logger.Warn("object storage unavailable", zap.Error(err))
		} else {
			a.store = store
		}
	}

	a.lessonSvc = lesson.NewService(a.db, a.cfgSvc, a.pipeline, a.oracle, a.store, a.taskSvc, a.logger)
	a.importSvc = importer.NewService(a.db, a.lexiconSvc, a.logger)
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
