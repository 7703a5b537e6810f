package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/logger"
)

// ReportBuilder builds a store-backed report.
type ReportBuilder interface {
	Build(ctx context.Context, f insights.Filters) (*insights.Report, error)
}

// StartReportWarmer starts a background goroutine that periodically rebuilds the
// default report so the grouping cache stays warm. The worker stops when ctx is done.
func StartReportWarmer(ctx context.Context, interval time.Duration, builder ReportBuilder, log logger.Logger) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = logger.NewNop()
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info("Report warmer shutting down")
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				report, err := builder.Build(ctx, insights.Filters{PeriodDays: insights.DefaultPeriodDays})
				if err != nil {
					log.Warn("Report warmer failed to build report", zap.Error(err))
					continue
				}
				log.Debug("Report warmed",
					zap.String("view", string(report.View)),
					zap.Bool("grouped", report.Grouped),
				)
			}
		}
	}()
}
