package server

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/forwarder"
	"github.com/amr-saas/gateway/internal/protocol"
	"github.com/amr-saas/gateway/internal/robot"
	"github.com/amr-saas/gateway/internal/safety"
)

const handlerTestSecret = "handler-test-secret"

type stubRecorder struct{}

func (stubRecorder) BatchSensor(context.Context, *fleetpb.SensorBatch, ...grpc.CallOption) (*fleetpb.BatchAck, error) {
	return &fleetpb.BatchAck{}, nil
}

func (stubRecorder) BatchCommand(context.Context, *fleetpb.CommandBatch, ...grpc.CallOption) (*fleetpb.BatchAck, error) {
	return &fleetpb.BatchAck{}, nil
}

type fakeAdapter struct {
	mu       sync.Mutex
	failSend bool
	sent     []adapter.Command
	stops    int
	stream   chan adapter.SensorRecord
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{stream: make(chan adapter.SensorRecord, 16)}
}

func (f *fakeAdapter) Name() string                                  { return "fake" }
func (f *fakeAdapter) Connect(context.Context, map[string]any) error { return nil }
func (f *fakeAdapter) Disconnect(context.Context) error              { return nil }
func (f *fakeAdapter) IsConnected() bool                             { return true }
func (f *fakeAdapter) SensorStream() <-chan adapter.SensorRecord     { return f.stream }
func (f *fakeAdapter) Capabilities() adapter.Capabilities            { return adapter.Capabilities{} }

func (f *fakeAdapter) SendCommand(_ context.Context, cmd adapter.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return fmt.Errorf("transport down")
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeAdapter) EmergencyStop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeAdapter) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeAdapter) lastSent() adapter.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type handlerEnv struct {
	handler  *Handler
	hub      *Hub
	manager  *robot.Manager
	pipeline *safety.Pipeline
	adapter  *fakeAdapter
}

func newHandlerEnv(t *testing.T, cfg HandlerConfig) *handlerEnv {
	t.Helper()
	nop := zap.NewNop()

	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = time.Second
	}
	if cfg.EStopTimeout == 0 {
		cfg.EStopTimeout = time.Second
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.EStopReleaseRole == "" {
		cfg.EStopReleaseRole = auth.RoleViewer
	}

	estop := safety.NewEStop(nop)
	locks := safety.NewLockStore(time.Minute, nop)
	limiter := safety.NewLimiter(1.0, 2.0, nil, nop)
	watchdog := safety.NewWatchdog(500*time.Millisecond, estop, func(string) {}, nop)
	pipeline := safety.NewPipeline(estop, locks, limiter, watchdog, nop)

	manager := robot.NewManager(nop)
	manager.Register("r1", "Unit One", "acme", "AMR-100", adapter.Capabilities{
		SupportsVelocity: true, SupportsNavigation: true, SupportsEStop: true,
	})

	fake := newFakeAdapter()
	registry := adapter.NewRegistry(nop)
	registry.RegisterFactory("fake", func(string, map[string]any, *zap.Logger) adapter.RobotAdapter {
		return fake
	})
	if _, err := registry.Create("r1", "fake", nil); err != nil {
		t.Fatalf("create adapter: %v", err)
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{HMACSecret: handlerTestSecret})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	fwd := forwarder.New(stubRecorder{}, 100, time.Hour, nop)
	hub := NewHub(nop)

	h := NewHandler(hub, registry, manager, pipeline, verifier, fwd, nil, cfg, nop)
	return &handlerEnv{handler: h, hub: hub, manager: manager, pipeline: pipeline, adapter: fake}
}

func (e *handlerEnv) sessionAs(userID string, role auth.Role) *Session {
	s := testSession()
	s.setIdentity(&auth.Identity{UserID: userID, Role: role}, protocol.EncodingJSON)
	e.hub.Register(s)
	return s
}

func popMsg(t *testing.T, s *Session) *protocol.Message {
	t.Helper()
	msg := s.queue.pop()
	if msg == nil {
		t.Fatal("expected a queued message")
	}
	return msg
}

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(handlerTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func velocityMsg(robotID string, vx float64) *protocol.Message {
	msg := protocol.NewMessage(protocol.MsgTypeVelocityCommand, robotID)
	msg.Payload["linear_x"] = vx
	msg.Payload["angular_z"] = 0.0
	return msg
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := testSession()
	s.hub = env.hub

	msg := protocol.NewMessage(protocol.MsgTypeAuth, "")
	msg.Payload["token"] = signToken(t, "u1", "operator")

	if !env.handler.Authenticate(s, msg, protocol.EncodingJSON) {
		t.Fatal("valid token rejected")
	}
	if s.UserID() != "u1" || s.Role() != auth.RoleOperator {
		t.Fatalf("identity = %q/%q", s.UserID(), s.Role())
	}
	reply := popMsg(t, s)
	if reply.Type != protocol.MsgTypeConnectionStatus {
		t.Fatalf("reply type = %q", reply.Type)
	}
	if ok, _ := reply.Payload["authenticated"].(bool); !ok {
		t.Fatal("reply not marked authenticated")
	}
	if env.hub.Sessions() != 1 {
		t.Fatalf("hub sessions = %d", env.hub.Sessions())
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := testSession()

	msg := protocol.NewMessage(protocol.MsgTypeAuth, "")
	msg.Payload["token"] = "not-a-jwt"
	if env.handler.Authenticate(s, msg, protocol.EncodingJSON) {
		t.Fatal("garbage token accepted")
	}

	msg.Payload["token"] = ""
	if env.handler.Authenticate(s, msg, protocol.EncodingJSON) {
		t.Fatal("empty token accepted")
	}
}

func TestViewerCannotSendCommands(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("viewer1", auth.RoleViewer)

	env.handler.HandleMessage(s, velocityMsg("r1", 0.5))

	ack := popMsg(t, s)
	if ack.Type != protocol.MsgTypeCommandAck {
		t.Fatalf("reply type = %q", ack.Type)
	}
	if ok, _ := ack.Payload["success"].(bool); ok {
		t.Fatal("viewer command succeeded")
	}
	if ack.Payload["code"] != protocol.CodeRoleDenied {
		t.Fatalf("code = %v", ack.Payload["code"])
	}
	if env.adapter.sentCount() != 0 {
		t.Fatal("command reached the adapter")
	}
}

func TestVelocityDeliveredAndAcked(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("op1", auth.RoleOperator)

	env.handler.HandleMessage(s, velocityMsg("r1", 0.5))

	if env.adapter.sentCount() != 1 {
		t.Fatalf("adapter got %d commands", env.adapter.sentCount())
	}
	sent := env.adapter.lastSent()
	if sent.Type != adapter.CmdVelocity || sent.UserID != "op1" || sent.CommandID == "" {
		t.Fatalf("sent = %+v", sent)
	}

	ack := popMsg(t, s)
	if ok, _ := ack.Payload["success"].(bool); !ok {
		t.Fatalf("ack = %+v", ack.Payload)
	}
	if clamped, _ := ack.Payload["clamped"].(bool); clamped {
		t.Fatal("in-range command marked clamped")
	}
	if got := env.manager.ControlData("r1"); got["linear_x"] != 0.5 {
		t.Fatalf("control data = %v", got)
	}
}

func TestVelocityClampedEmitsAlert(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("op1", auth.RoleOperator)
	watcher := env.sessionAs("viewer1", auth.RoleViewer)
	env.hub.Subscribe(watcher, "r1", "")

	env.handler.HandleMessage(s, velocityMsg("r1", 5.0))

	sent := env.adapter.lastSent()
	if got := sent.Payload["linear_x"].(float64); got != 1.0 {
		t.Fatalf("delivered linear_x = %v", got)
	}
	ack := popMsg(t, s)
	if clamped, _ := ack.Payload["clamped"].(bool); !clamped {
		t.Fatal("ack not marked clamped")
	}

	alert := popMsg(t, watcher)
	if alert.Type != protocol.MsgTypeSafetyAlert {
		t.Fatalf("watcher got %q", alert.Type)
	}
	if alert.Payload["type"] != "velocity_clamped" {
		t.Fatalf("alert = %v", alert.Payload)
	}
}

func TestEStopBlocksVelocity(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("op1", auth.RoleOperator)
	env.pipeline.EStop().Activate("r1", "someone", "test")

	env.handler.HandleMessage(s, velocityMsg("r1", 0.5))

	ack := popMsg(t, s)
	if ok, _ := ack.Payload["success"].(bool); ok {
		t.Fatal("command passed an active estop")
	}
	if ack.Payload["code"] != protocol.CodeEStopActive {
		t.Fatalf("code = %v", ack.Payload["code"])
	}
	if env.adapter.sentCount() != 0 {
		t.Fatal("command reached the adapter")
	}
}

func TestEStopActivationStopsHardware(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("viewer1", auth.RoleViewer)

	msg := protocol.NewMessage(protocol.MsgTypeEmergencyStop, "r1")
	msg.Payload["activate"] = true
	msg.Payload["reason"] = "obstacle"
	env.handler.HandleMessage(s, msg)

	if !env.pipeline.EStop().IsActive("r1") {
		t.Fatal("estop not latched")
	}
	if env.adapter.stops != 1 {
		t.Fatalf("hardware stops = %d", env.adapter.stops)
	}

	// Viewers can activate; the broadcast reaches every session.
	alert := popMsg(t, s)
	if alert.Type != protocol.MsgTypeSafetyAlert {
		t.Fatalf("first queued = %q", alert.Type)
	}
	ack := popMsg(t, s)
	if ok, _ := ack.Payload["success"].(bool); !ok {
		t.Fatalf("estop ack = %+v", ack.Payload)
	}
}

func TestEStopReleaseRequiresRole(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{EStopReleaseRole: auth.RoleAdmin})
	env.pipeline.EStop().Activate("r1", "someone", "test")

	release := func(robotID string) *protocol.Message {
		msg := protocol.NewMessage(protocol.MsgTypeEmergencyStop, robotID)
		msg.Payload["activate"] = false
		return msg
	}

	op := env.sessionAs("op1", auth.RoleOperator)
	env.handler.HandleMessage(op, release("r1"))
	ack := popMsg(t, op)
	if ack.Payload["code"] != protocol.CodeRoleDenied {
		t.Fatalf("operator release: %v", ack.Payload)
	}
	if !env.pipeline.EStop().IsActive("r1") {
		t.Fatal("estop cleared by operator")
	}

	admin := env.sessionAs("admin1", auth.RoleAdmin)
	env.handler.HandleMessage(admin, release("r1"))
	if env.pipeline.EStop().IsActive("r1") {
		t.Fatal("estop still active after admin release")
	}
}

func TestLockTTLFromIntegerPayload(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{LockTTL: time.Minute})
	holder := env.sessionAs("op1", auth.RoleOperator)

	// Msgpack clients send ttl_sec as an integer, not a float.
	lockMsg := protocol.NewMessage(protocol.MsgTypeOperationLock, "r1")
	lockMsg.Payload["ttl_sec"] = int64(5)
	env.handler.HandleMessage(holder, lockMsg)

	lk := env.pipeline.Locks().Holder("r1")
	if lk == nil {
		t.Fatal("lock not acquired")
	}
	remaining := time.Until(lk.ExpiresAt)
	if remaining <= 0 || remaining > 6*time.Second {
		t.Fatalf("lock ttl = %v, want about 5s", remaining)
	}
}

func TestLockBlocksOtherOperators(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	holder := env.sessionAs("op1", auth.RoleOperator)
	other := env.sessionAs("op2", auth.RoleOperator)

	lockMsg := protocol.NewMessage(protocol.MsgTypeOperationLock, "r1")
	env.handler.HandleMessage(holder, lockMsg)
	status := popMsg(t, holder)
	if status.Type != protocol.MsgTypeLockStatus || status.Payload["locked"] != true {
		t.Fatalf("lock status = %+v", status.Payload)
	}

	env.handler.HandleMessage(other, velocityMsg("r1", 0.5))
	ack := popMsg(t, other)
	if ack.Payload["code"] != protocol.CodeLockedByOther {
		t.Fatalf("other operator: %v", ack.Payload)
	}

	env.handler.HandleMessage(holder, velocityMsg("r1", 0.5))
	ack = popMsg(t, holder)
	if ok, _ := ack.Payload["success"].(bool); !ok {
		t.Fatalf("holder command rejected: %v", ack.Payload)
	}
}

func TestAdminBypassesLockWithAudit(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	holder := env.sessionAs("op1", auth.RoleOperator)
	admin := env.sessionAs("admin1", auth.RoleAdmin)

	env.handler.HandleMessage(holder, protocol.NewMessage(protocol.MsgTypeOperationLock, "r1"))
	popMsg(t, holder)

	env.handler.HandleMessage(admin, velocityMsg("r1", 0.5))
	ack := popMsg(t, admin)
	if ok, _ := ack.Payload["success"].(bool); !ok {
		t.Fatalf("admin command rejected: %v", ack.Payload)
	}
	if override, _ := ack.Payload["lock_override"].(bool); !override {
		t.Fatal("lock override not flagged in ack")
	}
}

func TestUnknownRobotGetsNotFoundAck(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("op1", auth.RoleOperator)

	env.handler.HandleMessage(s, velocityMsg("ghost", 0.5))

	ack := popMsg(t, s)
	if ack.Payload["code"] != protocol.CodeRobotNotFound {
		t.Fatalf("code = %v", ack.Payload["code"])
	}
}

func TestAdapterFailureGetsUnavailableAck(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	env.adapter.failSend = true
	s := env.sessionAs("op1", auth.RoleOperator)

	env.handler.HandleMessage(s, velocityMsg("r1", 0.5))

	ack := popMsg(t, s)
	if ack.Payload["code"] != protocol.CodeAdapterUnavailable {
		t.Fatalf("code = %v", ack.Payload["code"])
	}
}

func TestPingEchoesTimestamp(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("viewer1", auth.RoleViewer)

	ping := protocol.NewMessage(protocol.MsgTypePing, "")
	env.handler.HandleMessage(s, ping)

	pong := popMsg(t, s)
	if pong.Type != protocol.MsgTypePong {
		t.Fatalf("reply type = %q", pong.Type)
	}
	if pong.Payload["echo_ts"] != ping.Timestamp {
		t.Fatalf("echo_ts = %v, want %v", pong.Payload["echo_ts"], ping.Timestamp)
	}
}

func TestUnlockByNonHolderRejected(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	holder := env.sessionAs("op1", auth.RoleOperator)
	other := env.sessionAs("op2", auth.RoleOperator)

	env.handler.HandleMessage(holder, protocol.NewMessage(protocol.MsgTypeOperationLock, "r1"))
	popMsg(t, holder)

	env.handler.HandleMessage(other, protocol.NewMessage(protocol.MsgTypeOperationUnlock, "r1"))
	reply := popMsg(t, other)
	if reply.Type != protocol.MsgTypeError {
		t.Fatalf("reply type = %q", reply.Type)
	}

	if lk := env.pipeline.Locks().Holder("r1"); lk == nil || lk.UserID != "op1" {
		t.Fatalf("holder = %+v", lk)
	}
}

func TestOnSessionClosedReleasesLocks(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{ReleaseLocksOnClose: true})
	s := env.sessionAs("op1", auth.RoleOperator)

	env.handler.HandleMessage(s, protocol.NewMessage(protocol.MsgTypeOperationLock, "r1"))
	popMsg(t, s)

	env.handler.OnSessionClosed(s)
	if lk := env.pipeline.Locks().Holder("r1"); lk != nil {
		t.Fatalf("lock survived session close, holder = %+v", lk)
	}
}

func TestUnknownMessageTypeGetsError(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	s := env.sessionAs("viewer1", auth.RoleViewer)

	msg := protocol.NewMessage("teleport", "r1")
	env.handler.HandleMessage(s, msg)

	reply := popMsg(t, s)
	if reply.Type != protocol.MsgTypeError || reply.Payload["code"] != protocol.CodeBadFrame {
		t.Fatalf("reply = %q %v", reply.Type, reply.Payload)
	}
}

func TestInjectZeroVelocityDelivers(t *testing.T) {
	env := newHandlerEnv(t, HandlerConfig{})
	watcher := env.sessionAs("viewer1", auth.RoleViewer)
	env.hub.Subscribe(watcher, "r1", "")

	env.handler.InjectZeroVelocity("r1")

	sent := env.adapter.lastSent()
	if sent.Type != adapter.CmdVelocity || sent.UserID != "watchdog" {
		t.Fatalf("sent = %+v", sent)
	}
	if sent.Payload["linear_x"].(float64) != 0 {
		t.Fatalf("injected linear_x = %v", sent.Payload["linear_x"])
	}

	alert := popMsg(t, watcher)
	if alert.Payload["type"] != "watchdog_stop" {
		t.Fatalf("alert = %v", alert.Payload)
	}
}
