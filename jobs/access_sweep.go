package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vetnest/vetnest/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RevokedPurger deletes revoked assignments older than the retention window.
type RevokedPurger interface {
	PurgeRevoked(ctx context.Context, retention time.Duration) (int64, error)
}

// AccessSweepJob deletes assignment rows that were revoked long enough ago
// that the audit trail no longer needs them in the live table.
type AccessSweepJob struct {
	Store     RevokedPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAccessSweepJob initialises the sweep handler.
func NewAccessSweepJob(store RevokedPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessSweepJob {
	return &AccessSweepJob{
		Store:     store,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the sweep.
func (j *AccessSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("access sweep: handler not configured")
	}
	if j.Store == nil {
		return errors.New("access sweep: store not configured")
	}
	retention := j.Retention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTypeAccessSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("retention", retention))
	logger.Info("starting access sweep")

	purged, err := j.Store.PurgeRevoked(ctx, retention)
	if err != nil {
		resultErr = err
		logger.Error("sweep failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed access sweep",
		slog.Int64("purged", purged),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *AccessSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeAccessSweep))
	}
	return slog.Default().With(slog.String("job", TaskTypeAccessSweep))
}

func (j *AccessSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AccessSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
