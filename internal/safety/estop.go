// Package safety implements the four-stage filter chain every actuation
// command passes through before it may reach an adapter:
//
//	E-Stop Check -> Operation Lock -> Velocity Limiter -> Timeout Watchdog
//
// The first two stages can reject; the limiter only modifies; the
// watchdog observes command flow and injects synthetic stops from a
// background task.
package safety

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EStopRecord describes an active emergency stop.
type EStopRecord struct {
	ActivatedBy string
	ActivatedAt time.Time
	Reason      string
}

// EStop holds the global flag and one flag per robot. Activation is
// monotonic: nothing clears a flag except an explicit Release with a
// distinct call path from activation.
type EStop struct {
	mu     sync.RWMutex
	global *EStopRecord
	robots map[string]*EStopRecord
	logger *zap.Logger
}

// NewEStop returns an EStop store with no active stops.
func NewEStop(logger *zap.Logger) *EStop {
	return &EStop{
		robots: make(map[string]*EStopRecord),
		logger: logger,
	}
}

// Activate latches the stop for one robot, or globally when robotID is
// empty. Re-activation keeps the original record.
func (e *EStop) Activate(robotID, userID, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := &EStopRecord{ActivatedBy: userID, ActivatedAt: time.Now(), Reason: reason}
	if robotID == "" {
		if e.global == nil {
			e.global = rec
			e.logger.Warn("global emergency stop activated",
				zap.String("user_id", userID),
				zap.String("reason", reason),
			)
		}
		return
	}
	if _, active := e.robots[robotID]; !active {
		e.robots[robotID] = rec
		e.logger.Warn("emergency stop activated",
			zap.String("robot_id", robotID),
			zap.String("user_id", userID),
			zap.String("reason", reason),
		)
	}
}

// Release clears the stop for one robot, or the global stop when
// robotID is empty. Returns false if no stop was active.
func (e *EStop) Release(robotID, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if robotID == "" {
		if e.global == nil {
			return false
		}
		e.global = nil
		e.logger.Info("global emergency stop released", zap.String("user_id", userID))
		return true
	}
	if _, active := e.robots[robotID]; !active {
		return false
	}
	delete(e.robots, robotID)
	e.logger.Info("emergency stop released",
		zap.String("robot_id", robotID),
		zap.String("user_id", userID),
	)
	return true
}

// IsActive reports whether the global stop or the robot's stop is set.
func (e *EStop) IsActive(robotID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.global != nil {
		return true
	}
	_, active := e.robots[robotID]
	return active
}

// Count returns the number of active stops; the global stop counts as
// one. Exported to feed the estop gauge.
func (e *EStop) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.robots)
	if e.global != nil {
		n++
	}
	return n
}

// Active returns the record governing this robot: the global record if
// set, otherwise the per-robot record, otherwise nil.
func (e *EStop) Active(robotID string) *EStopRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.global != nil {
		cp := *e.global
		return &cp
	}
	if rec, ok := e.robots[robotID]; ok {
		cp := *rec
		return &cp
	}
	return nil
}
