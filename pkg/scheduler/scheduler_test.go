package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(logger.NewNoop())
	assert.Error(t, s.Add("broken", "not a spec", func(context.Context) error { return nil }))
	require.NoError(t, s.Stop(context.Background()))
}

func TestRunNowPassesTraceAndLogger(t *testing.T) {
	s := New(logger.NewNoop())

	var traceID string
	s.RunNow("probe", func(ctx context.Context) error {
		traceID = contextkeys.TraceIDFromContext(ctx)
		return errors.New("ignored")
	})
	assert.NotEmpty(t, traceID)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduledJobRunsAndStops(t *testing.T) {
	s := New(logger.NewNoop())

	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
