package locking

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAcquireTimeout is the bounded wait used when callers pass a
// non-positive timeout.
const DefaultAcquireTimeout = 30 * time.Second

// roomLock serializes conflicting operations on a single room. The semaphore
// channel carries the exclusive permit; mu only guards the metadata.
type roomLock struct {
	sem chan struct{}

	mu            sync.Mutex
	held          bool
	lastOperation string
	acquiredAt    time.Time
}

func newRoomLock() *roomLock {
	return &roomLock{sem: make(chan struct{}, 1)}
}

// LockManager owns one exclusive lock per room number. Entries are created
// lazily on first contention and only removed by ReclaimStale. All state is
// instance-scoped, so independent managers (one per property) can coexist in
// a single process.
type LockManager struct {
	mu             sync.RWMutex
	locks          map[int]*roomLock
	acquireTimeout time.Duration
	logger         *logrus.Logger
}

// NewLockManager creates a lock manager with the given default acquire timeout
func NewLockManager(acquireTimeout time.Duration, logger *logrus.Logger) *LockManager {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &LockManager{
		locks:          make(map[int]*roomLock),
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// lockFor returns the lock entry for a room, materializing it on first use.
// The double-checked insert keeps first access race-free: exactly one caller
// wins the write and everyone else observes the winner's entry.
func (m *LockManager) lockFor(roomNumber int) *roomLock {
	m.mu.RLock()
	l, ok := m.locks[roomNumber]
	m.mu.RUnlock()
	if ok {
		return l
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok = m.locks[roomNumber]; ok {
		return l
	}
	l = newRoomLock()
	m.locks[roomNumber] = l
	return l
}

// Acquire blocks up to timeout waiting for exclusive access to the room.
// It returns false on timeout with no side effects; contention is a normal
// outcome, not an error. A non-positive timeout uses the manager default.
func (m *LockManager) Acquire(roomNumber int, operation string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = m.acquireTimeout
	}

	l := m.lockFor(roomNumber)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		l.mu.Lock()
		l.held = true
		l.lastOperation = operation
		l.acquiredAt = time.Now()
		l.mu.Unlock()
		return true
	case <-timer.C:
		m.logger.WithFields(logrus.Fields{
			"room_number": roomNumber,
			"operation":   operation,
			"timeout":     timeout,
		}).Debug("Room lock acquisition timed out")
		return false
	}
}

// Release returns the room's permit. Callers must pair it with a successful
// Acquire; releasing a room that is not held is logged and ignored so a
// misbehaving caller cannot free a permit it never owned.
func (m *LockManager) Release(roomNumber int) {
	m.mu.RLock()
	l, ok := m.locks[roomNumber]
	m.mu.RUnlock()
	if !ok {
		m.logger.WithField("room_number", roomNumber).Warn("Release called for unknown room lock")
		return
	}

	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		m.logger.WithField("room_number", roomNumber).Warn("Release called for room lock that is not held")
		return
	}
	l.held = false
	l.mu.Unlock()

	<-l.sem
}

// IsLocked reports whether the room's lock is currently held
func (m *LockManager) IsLocked(roomNumber int) bool {
	m.mu.RLock()
	l, ok := m.locks[roomNumber]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Snapshot returns the currently held locks keyed by room number, with the
// label recorded at acquisition. Intended for diagnostics endpoints.
func (m *LockManager) Snapshot() map[int]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	held := make(map[int]string)
	for roomNumber, l := range m.locks {
		l.mu.Lock()
		if l.held {
			held[roomNumber] = l.lastOperation
		}
		l.mu.Unlock()
	}
	return held
}

// ReclaimStale drops lock entries that are unlocked and were last acquired
// before the cutoff. Purely a memory-bounding sweep; a held lock is never
// removed. Returns the number of entries reclaimed.
func (m *LockManager) ReclaimStale(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	reclaimed := 0
	for roomNumber, l := range m.locks {
		l.mu.Lock()
		stale := !l.held && !l.acquiredAt.IsZero() && l.acquiredAt.Before(cutoff)
		l.mu.Unlock()
		if stale {
			delete(m.locks, roomNumber)
			reclaimed++
		}
	}

	if reclaimed > 0 {
		m.logger.WithField("reclaimed", reclaimed).Debug("Reclaimed stale room locks")
	}
	return reclaimed
}
