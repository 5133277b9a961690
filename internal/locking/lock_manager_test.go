package locking

import (
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

func TestAcquireRelease(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	require.True(t, m.Acquire(101, "create", time.Second))
	assert.True(t, m.IsLocked(101))

	m.Release(101)
	assert.False(t, m.IsLocked(101))

	// Lock is reusable after release
	require.True(t, m.Acquire(101, "cancel", time.Second))
	m.Release(101)
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	require.True(t, m.Acquire(101, "create", time.Second))
	defer m.Release(101)

	start := time.Now()
	ok := m.Acquire(101, "create", 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDifferentRoomsDoNotContend(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	require.True(t, m.Acquire(101, "create", 10*time.Millisecond))
	require.True(t, m.Acquire(102, "create", 10*time.Millisecond))

	m.Release(101)
	m.Release(102)
}

func TestReleaseWithoutHoldIsNoOp(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	// Never acquired
	m.Release(101)

	// Double release must not free a lock acquired by someone else
	require.True(t, m.Acquire(101, "create", time.Second))
	m.Release(101)
	m.Release(101)

	require.True(t, m.Acquire(101, "create", time.Second))
	m.Release(101)
}

func TestMutualExclusionUnderContention(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	const goroutines = 50
	var inCritical int32
	var maxInCritical int32
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !m.Acquire(7, "create", 5*time.Second) {
				return
			}
			n := atomic.AddInt32(&inCritical, 1)
			for {
				max := atomic.LoadInt32(&maxInCritical)
				if n <= max || atomic.CompareAndSwapInt32(&maxInCritical, max, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inCritical, -1)
			m.Release(7)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInCritical), "two holders were inside the critical section")
	assert.False(t, m.IsLocked(7))
}

func TestSnapshotReportsHeldLocks(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	require.True(t, m.Acquire(101, "create", time.Second))
	require.True(t, m.Acquire(102, "check_out", time.Second))

	held := m.Snapshot()
	assert.Equal(t, "create", held[101])
	assert.Equal(t, "check_out", held[102])

	m.Release(101)
	m.Release(102)
	assert.Empty(t, m.Snapshot())
}

func TestReclaimStaleSkipsHeldLocks(t *testing.T) {
	m := NewLockManager(time.Second, testLogger())

	// Held lock must survive reclamation regardless of age
	require.True(t, m.Acquire(101, "create", time.Second))

	// Released lock becomes reclaimable once old enough
	require.True(t, m.Acquire(102, "create", time.Second))
	m.Release(102)

	assert.Equal(t, 0, m.ReclaimStale(time.Hour))

	time.Sleep(20 * time.Millisecond)
	reclaimed := m.ReclaimStale(10 * time.Millisecond)
	assert.Equal(t, 1, reclaimed)
	assert.True(t, m.IsLocked(101))

	m.Release(101)
}
