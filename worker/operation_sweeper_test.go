package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockMaintainer struct {
	mock.Mock
	recoveries atomic.Int32
	releases   atomic.Int32
}

func (m *mockMaintainer) RecoverStuckOperations(ctx context.Context) (int, error) {
	m.recoveries.Add(1)
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockMaintainer) ReleaseExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	m.releases.Add(1)
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestOperationSweeper_SweepsOnStartAndOnTick(t *testing.T) {
	maintainer := new(mockMaintainer)
	maintainer.On("RecoverStuckOperations", mock.Anything).Return(1, nil)
	maintainer.On("ReleaseExpiredIdempotencyKeys", mock.Anything).Return(int64(2), nil)

	stop := NewOperationSweeper(maintainer, 10*time.Millisecond).Start(context.Background())

	assert.Eventually(t, func() bool { return maintainer.releases.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, maintainer.recoveries.Load(), maintainer.releases.Load())
	after := maintainer.releases.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, maintainer.releases.Load(), "no sweeps after stop")
}

func TestOperationSweeper_RecoveryFailureStillReleasesKeys(t *testing.T) {
	maintainer := new(mockMaintainer)
	maintainer.On("RecoverStuckOperations", mock.Anything).Return(0, errors.New("connection refused"))
	maintainer.On("ReleaseExpiredIdempotencyKeys", mock.Anything).Return(int64(0), nil)

	stop := NewOperationSweeper(maintainer, 10*time.Millisecond).Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool { return maintainer.releases.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestOperationSweeper_KeepsRunningAfterErrors(t *testing.T) {
	maintainer := new(mockMaintainer)
	maintainer.On("RecoverStuckOperations", mock.Anything).Return(0, nil)
	maintainer.On("ReleaseExpiredIdempotencyKeys", mock.Anything).Return(int64(0), errors.New("connection refused"))

	stop := NewOperationSweeper(maintainer, 10*time.Millisecond).Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool { return maintainer.recoveries.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestOperationSweeper_StopsWithContext(t *testing.T) {
	maintainer := new(mockMaintainer)
	maintainer.On("RecoverStuckOperations", mock.Anything).Return(0, nil)
	maintainer.On("ReleaseExpiredIdempotencyKeys", mock.Anything).Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	stop := NewOperationSweeper(maintainer, time.Hour).Start(ctx)

	assert.Eventually(t, func() bool { return maintainer.releases.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
