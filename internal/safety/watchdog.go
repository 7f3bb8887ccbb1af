package safety

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// InjectFunc delivers a synthetic zero-velocity command to one robot.
// Called from the watchdog task, never while its lock is held.
type InjectFunc func(robotID string)

type velocityTrack struct {
	lastAt  time.Time
	nonZero bool // last delivered velocity had a non-zero component
}

// Watchdog halts robots whose command stream stalls. Every delivered
// velocity command is recorded; a background task injects a zero
// velocity for any robot whose latest command is older than the
// staleness window while its last delivered velocity was non-zero.
// Navigation goals are never touched, and no synthetic command is sent
// while E-Stop is active since the stop already holds the robot.
type Watchdog struct {
	mu     sync.Mutex
	tracks map[string]*velocityTrack

	interval time.Duration
	estop    *EStop
	inject   InjectFunc
	logger   *zap.Logger

	startMu sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatchdog builds a watchdog ticking at interval, which is also the
// staleness window.
func NewWatchdog(interval time.Duration, estop *EStop, inject InjectFunc, logger *zap.Logger) *Watchdog {
	return &Watchdog{
		tracks:   make(map[string]*velocityTrack),
		interval: interval,
		estop:    estop,
		inject:   inject,
		logger:   logger,
	}
}

// Record notes a delivered velocity command for a robot.
func (w *Watchdog) Record(robotID string, vx, vy, wz float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracks[robotID] = &velocityTrack{
		lastAt:  time.Now(),
		nonZero: vx != 0 || vy != 0 || wz != 0,
	}
}

// Forget drops tracking for a robot, typically on adapter removal.
func (w *Watchdog) Forget(robotID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracks, robotID)
}

// Start launches the background tick task.
func (w *Watchdog) Start() {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the tick task and waits for it to exit.
func (w *Watchdog) Stop() {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if !w.started {
		return
	}
	w.started = false
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watchdog) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case now := <-ticker.C:
			w.check(now)
		}
	}
}

// check runs one sweep. Stale robots are collected under the lock, the
// injections happen outside it.
func (w *Watchdog) check(now time.Time) {
	w.mu.Lock()
	var stale []string
	for id, tr := range w.tracks {
		if tr.nonZero && now.Sub(tr.lastAt) >= w.interval {
			// The synthetic zero counts as the last delivered
			// velocity, so the robot is not re-stopped next tick.
			tr.lastAt = now
			tr.nonZero = false
			stale = append(stale, id)
		}
	}
	w.mu.Unlock()

	for _, id := range stale {
		if w.estop.IsActive(id) {
			continue
		}
		w.logger.Warn("velocity stream stalled, injecting zero velocity",
			zap.String("robot_id", id),
		)
		w.inject(id)
	}
}
