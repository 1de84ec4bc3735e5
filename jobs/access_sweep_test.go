package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	retention time.Duration
	purged    int64
	err       error
}

func (f *fakePurger) PurgeRevoked(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return f.purged, f.err
}

func TestAccessSweepUsesConfiguredRetention(t *testing.T) {
	purger := &fakePurger{purged: 3}
	job := NewAccessSweepJob(purger, 48*time.Hour, slog.New(slog.DiscardHandler), nil)

	err := job.Handle(context.Background(), NewAccessSweepTask())
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, purger.retention)
}

func TestAccessSweepDefaultsRetention(t *testing.T) {
	purger := &fakePurger{}
	job := NewAccessSweepJob(purger, 0, slog.New(slog.DiscardHandler), nil)

	err := job.Handle(context.Background(), NewAccessSweepTask())
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, purger.retention)
}

func TestAccessSweepPropagatesStoreError(t *testing.T) {
	purger := &fakePurger{err: errors.New("boom")}
	job := NewAccessSweepJob(purger, time.Hour, slog.New(slog.DiscardHandler), nil)

	err := job.Handle(context.Background(), NewAccessSweepTask())
	require.Error(t, err)
}

func TestAccessChangedRejectsMalformedPayload(t *testing.T) {
	job := NewAccessChangedJob(nil, nil, "no-reply@vetnest.local", slog.New(slog.DiscardHandler), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeAccessChanged, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
