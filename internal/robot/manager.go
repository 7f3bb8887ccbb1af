// Package robot owns the robot catalog: one record per connected robot,
// its lifecycle state machine, and the latest sensor / control samples
// used to snapshot state at command-ack time.
package robot

import (
	"fmt"
	"sync"
	"time"

	"github.com/amr-saas/gateway/internal/adapter"
	"go.uber.org/zap"
)

// Position is a 2D pose.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Robot is one catalog entry. Manager hands out detached copies only;
// callers never hold a pointer into the catalog.
type Robot struct {
	ID               string
	Name             string
	Vendor           string
	Model            string
	State            State
	Battery          float64 // [0, 100]
	Position         Position
	Capabilities     adapter.Capabilities
	IsOnline         bool
	LastSeen         time.Time
	CurrentMissionID string
	Metadata         map[string]string
}

func (r *Robot) clone() *Robot {
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	cp.Capabilities.SensorTopics = append([]string(nil), r.Capabilities.SensorTopics...)
	return &cp
}

// LockReleaser is the hook the manager calls when a robot goes offline
// so its operation lock does not outlive the connection.
type LockReleaser interface {
	ForceRelease(robotID string)
}

// Manager serializes all catalog mutations under one reader-preferring
// lock. Reads return copies, so readers never observe partial writes.
type Manager struct {
	mu          sync.RWMutex
	robots      map[string]*Robot
	sensorData  map[string]map[string]float64 // robot id -> latest numeric sensor sample
	controlData map[string]map[string]float64 // robot id -> latest delivered control values
	locks       LockReleaser
	logger      *zap.Logger
}

// NewManager returns an empty catalog.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		robots:      make(map[string]*Robot),
		sensorData:  make(map[string]map[string]float64),
		controlData: make(map[string]map[string]float64),
		logger:      logger,
	}
}

// SetLockReleaser wires the operation-lock store; called once at startup.
func (m *Manager) SetLockReleaser(lr LockReleaser) {
	m.mu.Lock()
	m.locks = lr
	m.mu.Unlock()
}

// Register inserts a robot if absent. Idempotent: re-registering an
// existing id refreshes capabilities and marks it back online
// (Offline -> Idle on reconnect).
func (m *Manager) Register(id, name, vendor, model string, caps adapter.Capabilities) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.robots[id]; ok {
		r.Capabilities = caps
		r.LastSeen = time.Now()
		if r.State == StateOffline {
			r.State = StateIdle
			r.IsOnline = true
			m.logger.Info("robot reconnected",
				zap.String("robot_id", id),
				zap.String("transition", string(StateOffline)+"->"+string(StateIdle)),
			)
		}
		return
	}

	m.robots[id] = &Robot{
		ID:           id,
		Name:         name,
		Vendor:       vendor,
		Model:        model,
		State:        StateIdle,
		Battery:      100,
		Capabilities: caps,
		IsOnline:     true,
		LastSeen:     time.Now(),
		Metadata:     make(map[string]string),
	}
	m.logger.Info("robot registered",
		zap.String("robot_id", id),
		zap.String("vendor", vendor),
		zap.String("model", model),
	)
}

// UpdateStatus applies a status report from the adapter. The state
// change is validated against the FSM table; an illegal transition is
// rejected without touching the record.
func (m *Manager) UpdateStatus(id string, state State, battery, x, y, theta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.robots[id]
	if !ok {
		return fmt.Errorf("unknown robot: %s", id)
	}
	if !CanTransition(r.State, state) {
		return &IllegalTransitionError{RobotID: id, From: r.State, To: state}
	}

	if r.State != state {
		m.logger.Debug("robot state transition",
			zap.String("robot_id", id),
			zap.String("transition", string(r.State)+"->"+string(state)),
			zap.String("reason", "status update"),
		)
	}
	r.State = state
	r.Battery = clampBattery(battery)
	r.Position = Position{X: x, Y: y, Theta: theta}
	r.IsOnline = true
	r.LastSeen = time.Now()
	return nil
}

// Get returns a detached copy of the robot record.
func (m *Manager) Get(id string) (*Robot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.robots[id]
	if !ok {
		return nil, fmt.Errorf("unknown robot: %s", id)
	}
	return r.clone(), nil
}

// List returns detached copies of every robot.
func (m *Manager) List() []*Robot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Robot, 0, len(m.robots))
	for _, r := range m.robots {
		out = append(out, r.clone())
	}
	return out
}

// Count returns the number of robots currently online.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.robots {
		if r.IsOnline {
			n++
		}
	}
	return n
}

// Move transitions a robot into Moving.
func (m *Manager) Move(id string) error { return m.transition(id, StateMoving, "move") }

// Stop transitions a robot back to Idle.
func (m *Manager) Stop(id string) error { return m.transition(id, StateIdle, "stop") }

// Resume transitions a paused robot back to Moving.
func (m *Manager) Resume(id string) error { return m.transition(id, StateMoving, "resume") }

// Pause transitions a robot into Paused; requires the pause capability.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.robots[id]
	if !ok {
		return fmt.Errorf("unknown robot: %s", id)
	}
	if !r.Capabilities.SupportsPause {
		return fmt.Errorf("robot %s does not support pause", id)
	}
	return m.applyTransition(r, StatePaused, "pause")
}

// ForceError pushes a robot into Error regardless of its current state.
func (m *Manager) ForceError(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.robots[id]
	if !ok {
		return fmt.Errorf("unknown robot: %s", id)
	}
	m.logger.Warn("robot forced into error state",
		zap.String("robot_id", id),
		zap.String("transition", string(r.State)+"->"+string(StateError)),
		zap.String("reason", reason),
	)
	r.State = StateError
	r.LastSeen = time.Now()
	return nil
}

// SetMission attaches or clears the current mission id.
func (m *Manager) SetMission(id, missionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.robots[id]
	if !ok {
		return fmt.Errorf("unknown robot: %s", id)
	}
	r.CurrentMissionID = missionID
	return nil
}

// CheckTimeouts marks every online robot not seen since deadline as
// Offline and releases its operation lock. E-Stop state is deliberately
// preserved across the offline transition.
func (m *Manager) CheckTimeouts(deadline time.Time) []string {
	m.mu.Lock()
	var offlined []string
	for id, r := range m.robots {
		if r.IsOnline && r.LastSeen.Before(deadline) {
			m.logger.Warn("robot heartbeat timeout",
				zap.String("robot_id", id),
				zap.String("transition", string(r.State)+"->"+string(StateOffline)),
				zap.Time("last_seen", r.LastSeen),
			)
			r.State = StateOffline
			r.IsOnline = false
			offlined = append(offlined, id)
		}
	}
	locks := m.locks
	m.mu.Unlock()

	if locks != nil {
		for _, id := range offlined {
			locks.ForceRelease(id)
		}
	}
	return offlined
}

// RecordSensorData stores the latest numeric sensor sample for a robot
// and refreshes its heartbeat.
func (m *Manager) RecordSensorData(id string, sample map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensorData[id] = sample
	if r, ok := m.robots[id]; ok {
		r.LastSeen = time.Now()
		r.IsOnline = true
	}
}

// RecordControlData stores the latest delivered control values.
func (m *Manager) RecordControlData(id string, sample map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controlData[id] = sample
}

// SensorData returns a copy of the latest sensor sample for a robot.
func (m *Manager) SensorData(id string) map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySample(m.sensorData[id])
}

// ControlData returns a copy of the latest control sample for a robot.
func (m *Manager) ControlData(id string) map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySample(m.controlData[id])
}

func (m *Manager) transition(id string, to State, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.robots[id]
	if !ok {
		return fmt.Errorf("unknown robot: %s", id)
	}
	return m.applyTransition(r, to, reason)
}

// applyTransition must be called under the write lock.
func (m *Manager) applyTransition(r *Robot, to State, reason string) error {
	if !CanTransition(r.State, to) {
		return &IllegalTransitionError{RobotID: r.ID, From: r.State, To: to}
	}
	m.logger.Info("robot state transition",
		zap.String("robot_id", r.ID),
		zap.String("transition", string(r.State)+"->"+string(to)),
		zap.String("reason", reason),
	)
	r.State = to
	r.LastSeen = time.Now()
	return nil
}

func clampBattery(b float64) float64 {
	if b < 0 {
		return 0
	}
	if b > 100 {
		return 100
	}
	return b
}

func copySample(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
