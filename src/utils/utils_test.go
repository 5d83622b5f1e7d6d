package utils

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"volume-screener/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer[int](3)
	assert.Empty(t, rb.GetAll())

	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}
	assert.True(t, rb.IsFull())
	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, []int{3, 4, 5}, rb.GetAll())
	assert.Equal(t, []int{4, 5}, rb.GetLatest(2))
	assert.Equal(t, []int{3, 4, 5}, rb.GetLatest(10))
	assert.Empty(t, rb.GetLatest(0))

	rb.Clear()
	assert.Zero(t, rb.Size())
	rb.Append(9)
	assert.Equal(t, []int{9}, rb.GetAll())
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	assert.Equal(t, 100, NewRingBuffer[string](0).Capacity())
}

func quiet() *logger.Logger {
	return logger.NewWithWriter("Scheduler", logger.LevelError, io.Discard)
}

func TestRunSchedulerRunsImmediatelyAndOnTrigger(t *testing.T) {
	s := NewRunScheduler(time.Hour, quiet())
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(ctx context.Context) {
			if calls.Add(1) == 1 {
				<-release
			}
		})
		close(done)
	}()

	require.Eventually(t, s.Running, time.Second, 5*time.Millisecond)
	assert.False(t, s.Trigger(), "trigger while running is refused")

	close(release)
	require.Eventually(t, func() bool { return s.Runs() == 1 && !s.Running() }, time.Second, 5*time.Millisecond)

	require.True(t, s.Trigger())
	require.Eventually(t, func() bool { return s.Runs() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunSchedulerTicks(t *testing.T) {
	s := NewRunScheduler(20*time.Millisecond, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx, func(ctx context.Context) {})
	require.Eventually(t, func() bool { return s.Runs() >= 3 }, 2*time.Second, 5*time.Millisecond)
}
