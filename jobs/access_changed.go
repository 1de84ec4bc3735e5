package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/vetnest/vetnest/internal/jobs"
)

// AccessChangedJob turns role-change events into user-facing emails.
type AccessChangedJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	From    string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAccessChangedJob initialises the role-change notification handler.
func NewAccessChangedJob(pool *pgxpool.Pool, client *Client, from string, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessChangedJob {
	return &AccessChangedJob{
		Pool:    pool,
		Client:  client,
		From:    from,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the notification logic.
func (j *AccessChangedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("access changed: handler not configured")
	}
	var payload AccessChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.UserID == "" || payload.RoleName == "" {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTypeAccessChanged)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("action", payload.Action),
		slog.String("user_id", payload.UserID),
		slog.String("role", payload.RoleName),
	)
	logger.Info("starting access change notification")

	email, err := j.lookupEmail(ctx, payload.UserID)
	if err != nil {
		resultErr = err
		logger.Error("email lookup failed", slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddRoleChange(payload.Action)

	if j.Client != nil && email != "" {
		if _, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      email,
			Subject: j.subject(payload),
			Body:    j.body(payload),
		}); err != nil {
			resultErr = err
			logger.Error("email enqueue failed", slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed access change notification",
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *AccessChangedJob) lookupEmail(ctx context.Context, userID string) (string, error) {
	if j.Pool == nil {
		return "", errors.New("access changed: pool not configured")
	}
	var email string
	err := j.Pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return "", err
	}
	return email, nil
}

func (j *AccessChangedJob) subject(payload AccessChangedPayload) string {
	if payload.Action == "revoked" {
		return fmt.Sprintf("Your %s access was revoked", payload.RoleName)
	}
	return fmt.Sprintf("You were granted the %s role", payload.RoleName)
}

func (j *AccessChangedJob) body(payload AccessChangedPayload) string {
	scope := "across all clinics"
	if payload.Organization != "" {
		scope = "at " + payload.Organization
	}
	if payload.Action == "revoked" {
		return fmt.Sprintf("Your %s role %s is no longer active. Contact an administrator if this is unexpected.", payload.RoleName, scope)
	}
	return fmt.Sprintf("You now have the %s role %s. Sign in again to pick up the new permissions.", payload.RoleName, scope)
}

func (j *AccessChangedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeAccessChanged))
	}
	return slog.Default().With(slog.String("job", TaskTypeAccessChanged))
}

func (j *AccessChangedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AccessChangedJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
