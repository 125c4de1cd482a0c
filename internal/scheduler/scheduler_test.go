package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sweeperStub struct {
	calls   int32
	expired int
	err     error
}

func (s *sweeperStub) RunExpirationSweep(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return s.expired, s.err
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("every night", &sweeperStub{}, nil)
	require.Error(t, err)

	// Five-field expressions are rejected because seconds are required.
	_, err = New("0 2 * * *", &sweeperStub{}, nil)
	require.Error(t, err)
}

func TestRunSweepLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sweeper := &sweeperStub{expired: 3}
	s, err := New("0 0 2 * * *", sweeper, zap.New(core))
	require.NoError(t, err)

	s.RunSweep()

	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeper.calls))
	entries := logs.FilterMessage("expiration sweep finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["expired"])

	sweeper.err = errors.New("connection reset")
	s.RunSweep()
	assert.Equal(t, 1, logs.FilterMessage("expiration sweep failed").Len())
}

func TestSchedulerFiresOnSchedule(t *testing.T) {
	sweeper := &sweeperStub{}
	s, err := New("* * * * * *", sweeper, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&sweeper.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
