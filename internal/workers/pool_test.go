package workers

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool("test", 4, 16, testLogger())

	var counter int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		ok := p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&counter, 1)
		})
		require.True(t, ok)
	}
	wg.Wait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&counter))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

func TestPoolContainsPanics(t *testing.T) {
	p := NewPool("test", 1, 4, testLogger())

	done := make(chan struct{})
	require.True(t, p.Submit(func() { panic("task blew up") }))
	require.True(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
		// the single worker survived the panic
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

func TestSubmitAfterShutdownReturnsFalse(t *testing.T) {
	p := NewPool("test", 2, 4, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	assert.False(t, p.Submit(func() {}))
	assert.False(t, p.TrySubmit(func() {}))

	// Second shutdown is a no-op
	assert.NoError(t, p.Shutdown(ctx))
}

func TestTrySubmitDropsWhenSaturated(t *testing.T) {
	p := NewPool("test", 1, 1, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	// Fill the queue, then the next TrySubmit must drop
	require.True(t, p.TrySubmit(func() {}))
	assert.False(t, p.TrySubmit(func() {}))

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}
