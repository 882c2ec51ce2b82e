package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// NewScheduler registers the sweeper on spec in the campus location. The
// caller starts and stops the returned cron.
func NewScheduler(sweeper *OrphanSweeper, spec string, loc *time.Location, logger *slog.Logger) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cronLog := cronLogger{logger: logger.With("component", "cron")}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(spec, func() { sweeper.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule orphan sweep %q: %w", spec, err)
	}
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
