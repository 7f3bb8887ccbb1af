package safety

import (
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/protocol"
)

func newTestPipeline(t *testing.T) (*Pipeline, *EStop, *LockStore) {
	t.Helper()
	logger := zap.NewNop()
	estop := NewEStop(logger)
	locks := NewLockStore(300*time.Second, logger)
	limiter := NewLimiter(1.0, 2.0, nil, logger)
	wd := NewWatchdog(500*time.Millisecond, estop, func(string) {}, logger)
	return NewPipeline(estop, locks, limiter, wd, logger), estop, locks
}

func velocityCmd(robotID, userID string, vx, vy, wz float64) adapter.Command {
	return adapter.NewCommand(robotID, adapter.CmdVelocity, userID, map[string]any{
		"linear_x": vx, "linear_y": vy, "angular_z": wz,
	})
}

func TestClampOverLimit(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	cmd := velocityCmd("r1", "alice", 2.5, 0, 0)
	v := p.Process(&cmd, auth.RoleOperator)
	if !v.Approved {
		t.Fatalf("expected approval, got %s", v.Code)
	}
	if !v.Clamped {
		t.Fatal("expected clamp annotation")
	}
	if got := cmd.Payload["linear_x"].(float64); got != 1.0 {
		t.Fatalf("linear_x = %v, want 1.0", got)
	}
	if cmd.Payload["clamped"] != true {
		t.Fatal("missing clamped annotation on command")
	}
}

func TestClampNegativeComponents(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	cmd := velocityCmd("r1", "alice", -3, 0.5, -9)
	v := p.Process(&cmd, auth.RoleOperator)
	if !v.Clamped {
		t.Fatal("expected clamp")
	}
	if got := cmd.Payload["linear_x"].(float64); got != -1.0 {
		t.Fatalf("linear_x = %v, want -1.0", got)
	}
	if got := cmd.Payload["linear_y"].(float64); got != 0.5 {
		t.Fatalf("linear_y = %v, want untouched 0.5", got)
	}
	if got := cmd.Payload["angular_z"].(float64); got != -2.0 {
		t.Fatalf("angular_z = %v, want -2.0", got)
	}
}

func TestClampWithinLimitUntouched(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	cmd := velocityCmd("r1", "alice", 0.7, 0, 1.5)
	v := p.Process(&cmd, auth.RoleOperator)
	if v.Clamped {
		t.Fatal("unexpected clamp")
	}
	if _, ok := cmd.Payload["clamped"]; ok {
		t.Fatal("clamped annotation on unmodified command")
	}
}

func TestClampPerRobotCaps(t *testing.T) {
	logger := zap.NewNop()
	caps := func(robotID string) (float64, float64, bool) {
		if robotID == "fast" {
			return 3.0, 4.0, true
		}
		return 0, 0, false
	}
	limiter := NewLimiter(1.0, 2.0, caps, logger)

	cmd := velocityCmd("fast", "alice", 2.5, 0, 0)
	if limiter.Clamp(&cmd) {
		t.Fatal("2.5 m/s is within the per-robot cap of 3.0")
	}

	cmd = velocityCmd("slow", "alice", 2.5, 0, 0)
	if !limiter.Clamp(&cmd) {
		t.Fatal("expected default cap to clamp")
	}
}

func TestEStopBlocksActuation(t *testing.T) {
	p, estop, _ := newTestPipeline(t)
	estop.Activate("r1", "alice", "test")

	for _, ct := range []adapter.CommandType{adapter.CmdVelocity, adapter.CmdNavGoal, adapter.CmdNavCancel} {
		cmd := adapter.NewCommand("r1", ct, "alice", map[string]any{})
		v := p.Process(&cmd, auth.RoleOperator)
		if v.Approved {
			t.Fatalf("%s approved while estop active", ct)
		}
		if v.Code != protocol.CodeEStopActive {
			t.Fatalf("code = %s, want %s", v.Code, protocol.CodeEStopActive)
		}
	}

	// A different robot is unaffected.
	cmd := velocityCmd("r2", "alice", 0.1, 0, 0)
	if v := p.Process(&cmd, auth.RoleOperator); !v.Approved {
		t.Fatalf("r2 blocked by r1 estop: %s", v.Code)
	}
}

func TestGlobalEStopBlocksAllRobots(t *testing.T) {
	p, estop, _ := newTestPipeline(t)
	estop.Activate("", "alice", "site stop")

	cmd := velocityCmd("r2", "alice", 0.1, 0, 0)
	if v := p.Process(&cmd, auth.RoleOperator); v.Approved {
		t.Fatal("global estop did not block")
	}
}

func TestEStopCommandsAlwaysPass(t *testing.T) {
	p, estop, _ := newTestPipeline(t)
	estop.Activate("r1", "alice", "test")

	cmd := adapter.NewCommand("r1", adapter.CmdEmergencyStop, "bob", map[string]any{"activate": false})
	if v := p.Process(&cmd, auth.RoleOperator); !v.Approved {
		t.Fatalf("estop release rejected: %s", v.Code)
	}
}

func TestEStopIsMonotonic(t *testing.T) {
	logger := zap.NewNop()
	estop := NewEStop(logger)

	estop.Activate("r1", "alice", "first")
	estop.Activate("r1", "bob", "second")

	rec := estop.Active("r1")
	if rec == nil || rec.ActivatedBy != "alice" {
		t.Fatalf("re-activation overwrote original record: %+v", rec)
	}
	if !estop.Release("r1", "carol") {
		t.Fatal("release failed")
	}
	if estop.IsActive("r1") {
		t.Fatal("still active after release")
	}
	if estop.Release("r1", "carol") {
		t.Fatal("double release reported success")
	}
}

func TestLockBlocksOtherUsers(t *testing.T) {
	p, _, locks := newTestPipeline(t)
	if _, err := locks.Acquire("r1", "alice", 300*time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	cmd := velocityCmd("r1", "bob", 0.2, 0, 0)
	v := p.Process(&cmd, auth.RoleOperator)
	if v.Approved || v.Code != protocol.CodeLockedByOther {
		t.Fatalf("verdict = %+v, want %s", v, protocol.CodeLockedByOther)
	}

	cmd = velocityCmd("r1", "alice", 0.2, 0, 0)
	if v := p.Process(&cmd, auth.RoleOperator); !v.Approved {
		t.Fatalf("holder rejected: %s", v.Code)
	}
}

func TestAdminBypassesLockWithAudit(t *testing.T) {
	p, _, locks := newTestPipeline(t)
	if _, err := locks.Acquire("r1", "alice", 300*time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	cmd := velocityCmd("r1", "root", 0.2, 0, 0)
	v := p.Process(&cmd, auth.RoleAdmin)
	if !v.Approved {
		t.Fatalf("admin rejected: %s", v.Code)
	}
	if !v.LockOverride {
		t.Fatal("expected lock override flag")
	}
}

func TestUnlockedRobotAcceptsAnyOperator(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	cmd := velocityCmd("r1", "bob", 0.2, 0, 0)
	if v := p.Process(&cmd, auth.RoleOperator); !v.Approved {
		t.Fatalf("unlocked robot rejected: %s", v.Code)
	}
}

func TestLockAcquireRefreshAndConflict(t *testing.T) {
	logger := zap.NewNop()
	locks := NewLockStore(300*time.Second, logger)

	if _, err := locks.Acquire("r1", "alice", 0); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locks.Acquire("r1", "alice", 0); err != nil {
		t.Fatalf("refresh by holder: %v", err)
	}
	if _, err := locks.Acquire("r1", "bob", 0); err == nil {
		t.Fatal("expected conflict for second user")
	}
	if err := locks.Release("r1", "bob", false); err == nil {
		t.Fatal("expected release by non-holder to fail")
	}
	if err := locks.Release("r1", "bob", true); err != nil {
		t.Fatalf("admin release: %v", err)
	}
	if locks.Holder("r1") != nil {
		t.Fatal("lock survived admin release")
	}
}

func TestLockExpirySweep(t *testing.T) {
	logger := zap.NewNop()
	locks := NewLockStore(300*time.Second, logger)

	var mu sync.Mutex
	events := map[string]string{}
	locks.OnChange(func(robotID, holder, reason string) {
		mu.Lock()
		events[robotID] = reason
		mu.Unlock()
	})

	if _, err := locks.Acquire("r1", "alice", 10*time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// Expired but unswept locks read as absent.
	if locks.Holder("r1") != nil {
		t.Fatal("expired lock still visible")
	}

	locks.sweep(time.Now())
	mu.Lock()
	reason := events["r1"]
	mu.Unlock()
	if reason != "expired" {
		t.Fatalf("event reason = %q, want expired", reason)
	}
}

func TestWatchdogInjectsZeroVelocity(t *testing.T) {
	logger := zap.NewNop()
	estop := NewEStop(logger)

	var mu sync.Mutex
	injected := map[string]int{}
	wd := NewWatchdog(500*time.Millisecond, estop, func(robotID string) {
		mu.Lock()
		injected[robotID]++
		mu.Unlock()
	}, logger)

	wd.Record("r1", 0.5, 0, 0)
	wd.Record("r2", 0, 0, 0) // already stopped
	wd.Record("r3", 0.3, 0, 0)
	estop.Activate("r3", "alice", "test")

	wd.check(time.Now().Add(600 * time.Millisecond))

	mu.Lock()
	defer mu.Unlock()
	if injected["r1"] != 1 {
		t.Fatalf("r1 injections = %d, want 1", injected["r1"])
	}
	if injected["r2"] != 0 {
		t.Fatal("zero-velocity robot must not be re-stopped")
	}
	if injected["r3"] != 0 {
		t.Fatal("no synthetic stop while estop holds the robot")
	}
}

func TestWatchdogInjectsOnce(t *testing.T) {
	logger := zap.NewNop()
	estop := NewEStop(logger)

	var mu sync.Mutex
	count := 0
	wd := NewWatchdog(500*time.Millisecond, estop, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}, logger)

	wd.Record("r1", 0.5, 0, 0)
	deadline := time.Now().Add(600 * time.Millisecond)
	wd.check(deadline)
	wd.check(deadline.Add(600 * time.Millisecond))

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("injections = %d, want 1", count)
	}
}

func TestWatchdogFreshCommandNotStopped(t *testing.T) {
	logger := zap.NewNop()
	estop := NewEStop(logger)
	fired := false
	wd := NewWatchdog(500*time.Millisecond, estop, func(string) { fired = true }, logger)

	wd.Record("r1", 0.5, 0, 0)
	wd.check(time.Now().Add(100 * time.Millisecond))
	if fired {
		t.Fatal("fresh command treated as stale")
	}
}

func TestDeliveredMagnitudeNeverExceedsCap(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	for _, vx := range []float64{-10, -1.5, -1, 0, 0.3, 1, 2, 100} {
		cmd := velocityCmd("r1", "alice", vx, vx/2, vx*3)
		v := p.Process(&cmd, auth.RoleOperator)
		if !v.Approved {
			t.Fatalf("vx=%v rejected: %s", vx, v.Code)
		}
		if got := math.Abs(cmd.Payload["linear_x"].(float64)); got > 1.0 {
			t.Fatalf("linear_x magnitude %v exceeds cap", got)
		}
		if got := math.Abs(cmd.Payload["linear_y"].(float64)); got > 1.0 {
			t.Fatalf("linear_y magnitude %v exceeds cap", got)
		}
		if got := math.Abs(cmd.Payload["angular_z"].(float64)); got > 2.0 {
			t.Fatalf("angular_z magnitude %v exceeds cap", got)
		}
	}
}
