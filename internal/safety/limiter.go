package safety

import (
	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/adapter"
)

// CapsFunc resolves per-robot velocity caps. ok=false falls back to the
// configured defaults.
type CapsFunc func(robotID string) (maxLinear, maxAngular float64, ok bool)

// Limiter clamps velocity components to the robot's envelope. It never
// rejects; out-of-range components are pulled to the boundary and the
// command is annotated.
type Limiter struct {
	maxLinear  float64
	maxAngular float64
	caps       CapsFunc
	logger     *zap.Logger
}

// NewLimiter returns a limiter with the given default caps.
func NewLimiter(maxLinear, maxAngular float64, caps CapsFunc, logger *zap.Logger) *Limiter {
	return &Limiter{
		maxLinear:  maxLinear,
		maxAngular: maxAngular,
		caps:       caps,
		logger:     logger,
	}
}

// Clamp bounds the velocity components of cmd in place and reports
// whether any component was altered. Non-velocity commands pass
// untouched.
func (l *Limiter) Clamp(cmd *adapter.Command) bool {
	if cmd.Type != adapter.CmdVelocity {
		return false
	}

	maxLin, maxAng := l.maxLinear, l.maxAngular
	if l.caps != nil {
		if ml, ma, ok := l.caps(cmd.RobotID); ok {
			if ml > 0 {
				maxLin = ml
			}
			if ma > 0 {
				maxAng = ma
			}
		}
	}

	clamped := false
	for _, key := range []string{"linear_x", "linear_y"} {
		if v, changed := clampAbs(numField(cmd.Payload, key), maxLin); changed {
			cmd.Payload[key] = v
			clamped = true
		}
	}
	if v, changed := clampAbs(numField(cmd.Payload, "angular_z"), maxAng); changed {
		cmd.Payload["angular_z"] = v
		clamped = true
	}

	if clamped {
		cmd.Payload["clamped"] = true
		l.logger.Debug("velocity clamped",
			zap.String("robot_id", cmd.RobotID),
			zap.Float64("max_linear", maxLin),
			zap.Float64("max_angular", maxAng),
		)
	}
	return clamped
}

func clampAbs(v, limit float64) (float64, bool) {
	switch {
	case v > limit:
		return limit, true
	case v < -limit:
		return -limit, true
	}
	return v, false
}

func numField(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}
