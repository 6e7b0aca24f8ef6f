package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEveryRunsImmediately(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int32
	job := s.Every("poll", time.Hour, func() { atomic.AddInt32(&runs, 1) })
	defer job.Cancel()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 10*time.Millisecond)
}

func TestEveryRepeatsAndCancels(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var runs int32
	job := s.Every("poll", time.Second, func() { atomic.AddInt32(&runs, 1) })
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, 3*time.Second, 20*time.Millisecond)

	job.Cancel()
	after := atomic.LoadInt32(&runs)
	time.Sleep(1500 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&runs), after+1)
}

func TestOnceRunsAfterDelay(t *testing.T) {
	s := New(zap.NewNop())

	var runs int32
	s.Once("discover", 20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestOnceCancelled(t *testing.T) {
	s := New(zap.NewNop())

	var runs int32
	job := s.Once("discover", 50*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	job.Cancel()
	job.Cancel()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
