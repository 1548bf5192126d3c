package app

import (
	"context"
	"time"

	pkgcron "github.com/kotoba-space/core/internal/pkg/cron"
	"github.com/kotoba-space/core/internal/pkg/prettylog"
	"go.uber.org/zap"
)

const (
	JobLexemeConsolidation  = "lexeme_consolidation"
	JobTranslationReduction = "translation_reduction"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("CronService")

	consolidationInterval := 30 * time.Minute
	reductionInterval := 30 * time.Minute
	threshold := 10
	if cfg, err := a.cfgSvc.Get(); err == nil {
		if cfg.Jobs.ConsolidationIntervalMinutes > 0 {
			consolidationInterval = time.Duration(cfg.Jobs.ConsolidationIntervalMinutes) * time.Minute
		}
		if cfg.Jobs.ReductionIntervalMinutes > 0 {
			reductionInterval = time.Duration(cfg.Jobs.ReductionIntervalMinutes) * time.Minute
		}
		if cfg.Jobs.TranslationThreshold > 0 {
			threshold = cfg.Jobs.TranslationThreshold
		}
	}

	a.sched.Register(pkgcron.Job{
		Name:        JobLexemeConsolidation,
		Description: "Merge half-width script word variants into their normalized entries",
		Interval:    consolidationInterval,
		Fn: func(ctx context.Context) error {
			merged, err := a.lexiconSvc.RunConsolidationPass(ctx)
			if err != nil {
				cronLogger.Warn("lexeme consolidation failed", zap.Error(err))
				return err
			}
			if merged > 0 {
				cronLogger.Info("lexeme consolidation done", zap.Int("merged", merged), prettylog.SuccessField())
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        JobTranslationReduction,
		Description: "Collapse oversized translation lists through the AI oracle",
		Interval:    reductionInterval,
		Fn: func(ctx context.Context) error {
			reduced, err := a.lexiconSvc.RunTranslationReductionPass(ctx, threshold)
			if err != nil {
				cronLogger.Warn("translation reduction failed", zap.Error(err))
				return err
			}
			if reduced > 0 {
				cronLogger.Info("translation reduction done", zap.Int("reduced", reduced), prettylog.SuccessField())
			}
			return nil
		},
	})
}
