// Package mock provides a simulated robot adapter for development and
// tests. It integrates velocity commands into a pose, drains a battery,
// and emits odometry and scan telemetry on a fixed period.
package mock

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/amr-saas/gateway/internal/adapter"
	"go.uber.org/zap"
)

const (
	defaultTickPeriod = 100 * time.Millisecond
	sensorBuffer      = 64
)

// Adapter simulates a differential-drive robot.
type Adapter struct {
	robotID string
	logger  *zap.Logger

	mu        sync.Mutex
	connected bool
	stopped   bool // estop latched
	x, y, th  float64
	vx, vy    float64
	wz        float64
	battery   float64

	tick   time.Duration
	sensor chan adapter.SensorRecord
	cancel context.CancelFunc
}

// Factory builds a mock adapter; registered under kind "mock".
func Factory(robotID string, config map[string]any, logger *zap.Logger) adapter.RobotAdapter {
	tick := defaultTickPeriod
	if ms, ok := config["tick_ms"].(int); ok && ms > 0 {
		tick = time.Duration(ms) * time.Millisecond
	}
	return &Adapter{
		robotID: robotID,
		logger:  logger,
		battery: 100,
		tick:    tick,
	}
}

func (a *Adapter) Name() string { return "mock" }

// Connect starts the simulation loop.
func (a *Adapter) Connect(ctx context.Context, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return nil
	}
	a.connected = true
	a.sensor = make(chan adapter.SensorRecord, sensorBuffer)

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.run(loopCtx)

	a.logger.Info("mock adapter connected")
	return nil
}

// Disconnect stops the simulation and closes the sensor stream.
func (a *Adapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil
	}
	a.connected = false
	a.cancel()
	a.logger.Info("mock adapter disconnected")
	return nil
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// SendCommand applies velocity commands to the simulated state; other
// command types are accepted and logged.
func (a *Adapter) SendCommand(_ context.Context, cmd adapter.Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("mock adapter not connected")
	}

	switch cmd.Type {
	case adapter.CmdVelocity:
		if a.stopped {
			return fmt.Errorf("estop latched")
		}
		a.vx = toFloat(cmd.Payload["linear_x"])
		a.vy = toFloat(cmd.Payload["linear_y"])
		a.wz = toFloat(cmd.Payload["angular_z"])
	case adapter.CmdEmergencyStop:
		a.vx, a.vy, a.wz = 0, 0, 0
		a.stopped = true
	case adapter.CmdNavGoal, adapter.CmdNavCancel:
		a.logger.Debug("mock navigation command", zap.String("type", string(cmd.Type)))
	}
	return nil
}

func (a *Adapter) SensorStream() <-chan adapter.SensorRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sensor
}

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsVelocity:   true,
		SupportsNavigation: true,
		SupportsEStop:      true,
		SupportsPause:      true,
		MaxLinearVel:       1.5,
		MaxAngularVel:      2.5,
		SensorTopics:       []string{"odom", "scan", "battery"},
	}
}

// EmergencyStop latches the stop flag and zeroes all velocities.
func (a *Adapter) EmergencyStop(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vx, a.vy, a.wz = 0, 0, 0
	a.stopped = true
	a.logger.Warn("mock adapter emergency stop")
	return nil
}

// ReleaseStop clears the estop latch. Test hook; real adapters get this
// from the vendor side.
func (a *Adapter) ReleaseStop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = false
}

func (a *Adapter) run(ctx context.Context) {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	defer close(a.sensor)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.step(now)
		}
	}
}

// step advances the simulation one tick and emits telemetry.
func (a *Adapter) step(now time.Time) {
	a.mu.Lock()
	dt := a.tick.Seconds()
	a.x += (a.vx*math.Cos(a.th) - a.vy*math.Sin(a.th)) * dt
	a.y += (a.vx*math.Sin(a.th) + a.vy*math.Cos(a.th)) * dt
	a.th = normalizeAngle(a.th + a.wz*dt)

	moving := a.vx != 0 || a.vy != 0 || a.wz != 0
	drain := 0.001
	if moving {
		drain = 0.005
	}
	a.battery = math.Max(0, a.battery-drain)

	odom := adapter.SensorRecord{
		RobotID:   a.robotID,
		Topic:     "odom",
		DataType:  "odometry",
		FrameID:   "odom",
		Timestamp: now.UnixMilli(),
		Data: map[string]any{
			"x": a.x, "y": a.y, "theta": a.th,
			"vx": a.vx, "vy": a.vy, "wz": a.wz,
			"battery": a.battery,
		},
	}
	a.mu.Unlock()

	a.emit(odom)
}

func (a *Adapter) emit(rec adapter.SensorRecord) {
	select {
	case a.sensor <- rec:
	default:
		// Reader is behind; the hub applies its own drop policy, so
		// dropping here only loses simulated samples.
	}
}

func normalizeAngle(th float64) float64 {
	for th > math.Pi {
		th -= 2 * math.Pi
	}
	for th < -math.Pi {
		th += 2 * math.Pi
	}
	return th
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return 0
	}
}
