package safety

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Lock is an exclusive operation lock on one robot.
type Lock struct {
	RobotID    string
	UserID     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// LockChangeFunc is notified after every lock change. holder is empty
// when the lock was released; reason is one of acquired, released,
// expired, forced, override.
type LockChangeFunc func(robotID, holder, reason string)

// LockStore holds at most one operation lock per robot and sweeps
// expired locks on a fixed period.
type LockStore struct {
	mu      sync.RWMutex
	locks   map[string]*Lock
	ttl     time.Duration
	onEvent LockChangeFunc
	logger  *zap.Logger

	startMu sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

const sweepPeriod = 1 * time.Second

// NewLockStore returns a store with the given default TTL.
func NewLockStore(ttl time.Duration, logger *zap.Logger) *LockStore {
	return &LockStore{
		locks:  make(map[string]*Lock),
		ttl:    ttl,
		logger: logger,
	}
}

// OnChange sets the change callback; call before Start.
func (s *LockStore) OnChange(fn LockChangeFunc) {
	s.onEvent = fn
}

// Start launches the expiry sweep task.
func (s *LockStore) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop halts the sweep task and waits for it to exit.
func (s *LockStore) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.stopCh)
	s.wg.Wait()
}

// Acquire takes the lock for userID, or refreshes it if already held by
// the same user. Held by another user is an error.
func (s *LockStore) Acquire(robotID, userID string, ttl time.Duration) (*Lock, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.mu.Lock()
	if cur, ok := s.locks[robotID]; ok && cur.UserID != userID && time.Now().Before(cur.ExpiresAt) {
		holder := cur.UserID
		s.mu.Unlock()
		return nil, fmt.Errorf("robot %s locked by %s", robotID, holder)
	}
	now := time.Now()
	lk := &Lock{RobotID: robotID, UserID: userID, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	s.locks[robotID] = lk
	s.mu.Unlock()

	s.logger.Info("operation lock acquired",
		zap.String("robot_id", robotID),
		zap.String("user_id", userID),
		zap.Duration("ttl", ttl),
	)
	s.notify(robotID, userID, "acquired")
	cp := *lk
	return &cp, nil
}

// Release drops the lock when held by userID. An admin releases any
// holder's lock; the override is logged for audit.
func (s *LockStore) Release(robotID, userID string, admin bool) error {
	s.mu.Lock()
	cur, ok := s.locks[robotID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if cur.UserID != userID && !admin {
		holder := cur.UserID
		s.mu.Unlock()
		return fmt.Errorf("robot %s locked by %s", robotID, holder)
	}
	override := cur.UserID != userID
	delete(s.locks, robotID)
	s.mu.Unlock()

	reason := "released"
	if override {
		reason = "override"
		s.logger.Warn("operation lock override",
			zap.String("robot_id", robotID),
			zap.String("holder", cur.UserID),
			zap.String("admin", userID),
			zap.String("audit", "LOCK_OVERRIDE"),
		)
	} else {
		s.logger.Info("operation lock released",
			zap.String("robot_id", robotID),
			zap.String("user_id", userID),
		)
	}
	s.notify(robotID, "", reason)
	return nil
}

// ForceRelease drops the lock unconditionally. Used when a robot goes
// offline or a session is torn down with lock release enabled.
func (s *LockStore) ForceRelease(robotID string) {
	s.mu.Lock()
	_, ok := s.locks[robotID]
	if ok {
		delete(s.locks, robotID)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("operation lock force released", zap.String("robot_id", robotID))
		s.notify(robotID, "", "forced")
	}
}

// ReleaseAllFor drops every lock held by userID and returns the robot
// ids released.
func (s *LockStore) ReleaseAllFor(userID string) []string {
	s.mu.Lock()
	var released []string
	for id, lk := range s.locks {
		if lk.UserID == userID {
			delete(s.locks, id)
			released = append(released, id)
		}
	}
	s.mu.Unlock()

	for _, id := range released {
		s.logger.Info("operation lock released with session",
			zap.String("robot_id", id),
			zap.String("user_id", userID),
		)
		s.notify(id, "", "released")
	}
	return released
}

// Holder returns the current lock for a robot, or nil. Expired locks
// not yet swept read as absent.
func (s *LockStore) Holder(robotID string) *Lock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lk, ok := s.locks[robotID]
	if !ok || time.Now().After(lk.ExpiresAt) {
		return nil
	}
	cp := *lk
	return &cp
}

func (s *LockStore) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *LockStore) sweep(now time.Time) {
	s.mu.Lock()
	var expired []string
	for id, lk := range s.locks {
		if now.After(lk.ExpiresAt) {
			delete(s.locks, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.logger.Info("operation lock expired", zap.String("robot_id", id))
		s.notify(id, "", "expired")
	}
}

func (s *LockStore) notify(robotID, holder, reason string) {
	if s.onEvent != nil {
		s.onEvent(robotID, holder, reason)
	}
}
