package safety

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/protocol"
)

// Verdict is the outcome of one pipeline pass.
type Verdict struct {
	Approved bool
	Code     string // reject code when not approved
	Message  string

	// Clamped is set when the limiter altered the command; the caller
	// broadcasts a safety alert for the robot.
	Clamped bool
	// LockOverride is set when an admin commanded past another user's
	// lock.
	LockOverride bool
}

// Pipeline is the fixed four-stage chain. Process is invoked
// synchronously for every actuation command; the watchdog additionally
// runs its own background task.
type Pipeline struct {
	estop    *EStop
	locks    *LockStore
	limiter  *Limiter
	watchdog *Watchdog
	logger   *zap.Logger
}

// NewPipeline assembles the chain from its four stages.
func NewPipeline(estop *EStop, locks *LockStore, limiter *Limiter, watchdog *Watchdog, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		estop:    estop,
		locks:    locks,
		limiter:  limiter,
		watchdog: watchdog,
		logger:   logger,
	}
}

// EStop exposes the E-Stop store for the dispatch layer.
func (p *Pipeline) EStop() *EStop { return p.estop }

// Locks exposes the lock store for the dispatch layer.
func (p *Pipeline) Locks() *LockStore { return p.locks }

// Watchdog exposes the watchdog for lifecycle wiring.
func (p *Pipeline) Watchdog() *Watchdog { return p.watchdog }

// Process runs cmd through all stages, mutating it in place when the
// limiter clamps. The command must carry its robot and user ids.
func (p *Pipeline) Process(cmd *adapter.Command, role auth.Role) Verdict {
	// Stage 1: E-Stop. Emergency-stop commands always pass so a stop
	// can be set or released while the flag is up.
	if cmd.Type != adapter.CmdEmergencyStop && p.estop.IsActive(cmd.RobotID) {
		rec := p.estop.Active(cmd.RobotID)
		msg := "emergency stop active"
		if rec != nil && rec.Reason != "" {
			msg = fmt.Sprintf("emergency stop active: %s", rec.Reason)
		}
		p.logger.Debug("command rejected by estop stage",
			zap.String("robot_id", cmd.RobotID),
			zap.String("command_type", string(cmd.Type)),
		)
		return Verdict{Code: protocol.CodeEStopActive, Message: msg}
	}

	verdict := Verdict{Approved: true}

	// Stage 2: operation lock. Applies to velocity and navigation only;
	// lock management and emergency stops are never gated here.
	if isLockGated(cmd.Type) {
		if lk := p.locks.Holder(cmd.RobotID); lk != nil && lk.UserID != cmd.UserID {
			if role != auth.RoleAdmin {
				return Verdict{
					Code:    protocol.CodeLockedByOther,
					Message: fmt.Sprintf("robot locked by %s", lk.UserID),
				}
			}
			verdict.LockOverride = true
			p.logger.Warn("admin commanded past operation lock",
				zap.String("robot_id", cmd.RobotID),
				zap.String("holder", lk.UserID),
				zap.String("admin", cmd.UserID),
				zap.String("audit", "LOCK_OVERRIDE"),
			)
		}
	}

	// Stage 3: velocity limiter. Modifies, never rejects.
	verdict.Clamped = p.limiter.Clamp(cmd)

	// Stage 4: watchdog bookkeeping for velocity commands.
	if cmd.Type == adapter.CmdVelocity {
		p.watchdog.Record(cmd.RobotID,
			numField(cmd.Payload, "linear_x"),
			numField(cmd.Payload, "linear_y"),
			numField(cmd.Payload, "angular_z"),
		)
	}

	return verdict
}

func isLockGated(t adapter.CommandType) bool {
	switch t {
	case adapter.CmdVelocity, adapter.CmdNavGoal, adapter.CmdNavCancel:
		return true
	}
	return false
}
