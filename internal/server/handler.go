package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/bridge"
	"github.com/amr-saas/gateway/internal/forwarder"
	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
	"github.com/amr-saas/gateway/internal/robot"
	"github.com/amr-saas/gateway/internal/safety"
)

// HandlerConfig carries the dispatch-layer tunables.
type HandlerConfig struct {
	SendTimeout  time.Duration
	EStopTimeout time.Duration
	LockTTL      time.Duration

	// Minimum role allowed to release an E-Stop. Activation is open to
	// any authenticated user.
	EStopReleaseRole auth.Role

	// ReleaseLocksOnClose drops a user's locks when their session ends
	// instead of letting them run to expiry.
	ReleaseLocksOnClose bool
}

// Handler routes authenticated frames: actuation commands through the
// safety pipeline, lock and stop management, and subscription edits.
type Handler struct {
	hub      *Hub
	registry *adapter.Registry
	manager  *robot.Manager
	pipeline *safety.Pipeline
	verifier *auth.Verifier
	fwd      *forwarder.Forwarder
	mirror   *bridge.Publisher
	cfg      HandlerConfig
	logger   *zap.Logger
}

// NewHandler wires the dispatch layer.
func NewHandler(
	hub *Hub,
	registry *adapter.Registry,
	manager *robot.Manager,
	pipeline *safety.Pipeline,
	verifier *auth.Verifier,
	fwd *forwarder.Forwarder,
	mirror *bridge.Publisher,
	cfg HandlerConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		manager:  manager,
		pipeline: pipeline,
		verifier: verifier,
		fwd:      fwd,
		mirror:   mirror,
		cfg:      cfg,
		logger:   logger,
	}
}

// Authenticate verifies the session's auth frame and fixes its identity
// and encoding preference. Returns false when the token is rejected.
func (h *Handler) Authenticate(s *Session, msg *protocol.Message, enc protocol.Encoding) bool {
	token, _ := msg.Payload["token"].(string)
	if token == "" {
		return false
	}

	id, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn("authentication rejected",
			zap.String("session_id", s.ID()),
			zap.Error(err),
		)
		return false
	}
	s.setIdentity(id, enc)
	h.hub.Register(s)

	h.logger.Info("session authenticated",
		zap.String("session_id", s.ID()),
		zap.String("user_id", id.UserID),
		zap.String("role", string(id.Role)),
		zap.String("encoding", enc.String()),
	)

	reply := protocol.NewMessage(protocol.MsgTypeConnectionStatus, msg.RobotID)
	reply.Payload["authenticated"] = true
	reply.Payload["session_id"] = s.ID()
	reply.Payload["role"] = string(id.Role)
	s.Enqueue(reply)

	// Subscribing in the auth frame is a convenience for single-robot
	// dashboards.
	if msg.RobotID != "" {
		h.hub.Subscribe(s, msg.RobotID, msg.Topic)
	}
	return true
}

// HandleMessage dispatches one authenticated frame.
func (h *Handler) HandleMessage(s *Session, msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgTypePing:
		h.handlePing(s, msg)
	case protocol.MsgTypeVelocityCommand:
		h.handleActuation(s, msg, adapter.CmdVelocity)
	case protocol.MsgTypeNavigationGoal:
		h.handleActuation(s, msg, adapter.CmdNavGoal)
	case protocol.MsgTypeNavigationCancel:
		h.handleActuation(s, msg, adapter.CmdNavCancel)
	case protocol.MsgTypeEmergencyStop:
		h.handleEStop(s, msg)
	case protocol.MsgTypeOperationLock:
		h.handleLock(s, msg)
	case protocol.MsgTypeOperationUnlock:
		h.handleUnlock(s, msg)
	case protocol.MsgTypeSubscribe:
		h.handleSubscribe(s, msg)
	case protocol.MsgTypeUnsubscribe:
		h.handleUnsubscribe(s, msg)
	default:
		s.sendError(msg.RobotID, protocol.CodeBadFrame, "unknown message type")
	}
}

// OnSessionClosed runs the session's teardown policy.
func (h *Handler) OnSessionClosed(s *Session) {
	if !h.cfg.ReleaseLocksOnClose {
		return
	}
	if userID := s.UserID(); userID != "" {
		h.pipeline.Locks().ReleaseAllFor(userID)
	}
}

func (h *Handler) handlePing(s *Session, msg *protocol.Message) {
	pong := protocol.NewMessage(protocol.MsgTypePong, "")
	pong.Payload["echo_ts"] = msg.Timestamp
	s.Enqueue(pong)
}

// handleActuation runs a velocity or navigation command through the
// safety pipeline and on to the adapter. The ack is sent after the
// transport accepts the frame, not after physical execution.
func (h *Handler) handleActuation(s *Session, msg *protocol.Message, cmdType adapter.CommandType) {
	if !s.Role().CanCommand() {
		h.rejectCommand(s, msg, cmdType, protocol.CodeRoleDenied, "role may not send commands")
		return
	}
	if msg.RobotID == "" {
		s.sendError("", protocol.CodeBadFrame, "robot_id is required")
		return
	}

	start := time.Now()
	cmd := adapter.NewCommand(msg.RobotID, cmdType, s.UserID(), copyPayload(msg.Payload))
	cmd.CommandID = uuid.NewString()

	verdict := h.pipeline.Process(&cmd, s.Role())
	if !verdict.Approved {
		metrics.RecordCommand(string(cmdType), "rejected")
		h.rejectCommand(s, msg, cmdType, verdict.Code, verdict.Message)
		return
	}
	if verdict.Clamped {
		alert := protocol.NewMessage(protocol.MsgTypeSafetyAlert, msg.RobotID)
		alert.Topic = "safety"
		alert.Payload["type"] = "velocity_clamped"
		alert.Payload["user_id"] = s.UserID()
		h.hub.Publish(msg.RobotID, "safety", alert)
	}

	adp, ok := h.registry.Get(msg.RobotID)
	if !ok {
		metrics.RecordCommand(string(cmdType), "rejected")
		h.rejectCommand(s, msg, cmdType, protocol.CodeRobotNotFound, "no adapter for robot")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SendTimeout)
	err := adp.SendCommand(ctx, cmd)
	cancel()
	if err != nil {
		metrics.RecordCommand(string(cmdType), "failed")
		h.logger.Warn("adapter send failed",
			zap.String("robot_id", msg.RobotID),
			zap.String("command_type", string(cmdType)),
			zap.Error(err),
		)
		h.rejectCommand(s, msg, cmdType, protocol.CodeAdapterUnavailable, "adapter send failed")
		return
	}

	metrics.RecordCommand(string(cmdType), "approved")
	metrics.ObserveCommandLatency(string(cmdType), float64(time.Since(start).Milliseconds()))

	if cmdType == adapter.CmdVelocity {
		h.manager.RecordControlData(msg.RobotID, map[string]float64{
			"linear_x":  numPayload(cmd.Payload, "linear_x"),
			"linear_y":  numPayload(cmd.Payload, "linear_y"),
			"angular_z": numPayload(cmd.Payload, "angular_z"),
		})
	}
	h.recordCommand(cmd)

	ack := protocol.NewMessage(protocol.MsgTypeCommandAck, msg.RobotID)
	ack.Payload["command"] = string(cmdType)
	ack.Payload["command_id"] = cmd.CommandID
	ack.Payload["success"] = true
	ack.Payload["clamped"] = verdict.Clamped
	if verdict.LockOverride {
		ack.Payload["lock_override"] = true
	}
	s.Enqueue(ack)
}

// handleEStop sets or clears an emergency stop. Activation is open to
// every authenticated user and bypasses the lock and limiter stages;
// release requires the configured role.
func (h *Handler) handleEStop(s *Session, msg *protocol.Message) {
	activate, _ := msg.Payload["activate"].(bool)
	reason, _ := msg.Payload["reason"].(string)
	estop := h.pipeline.EStop()

	if activate {
		estop.Activate(msg.RobotID, s.UserID(), reason)

		// Best effort hardware stop on the targeted adapter; a global
		// stop halts every connected robot.
		if msg.RobotID != "" {
			h.hardwareStop(msg.RobotID)
		} else {
			for id := range h.registry.ActiveSnapshot() {
				h.hardwareStop(id)
			}
		}

		h.broadcastAlert(msg.RobotID, "estop_activated", s.UserID(), reason)
	} else {
		if !s.Role().AtLeast(h.cfg.EStopReleaseRole) {
			h.rejectCommand(s, msg, adapter.CmdEmergencyStop, protocol.CodeRoleDenied, "role may not release estop")
			return
		}
		if !estop.Release(msg.RobotID, s.UserID()) {
			s.sendError(msg.RobotID, protocol.CodeBadFrame, "no active estop")
			return
		}
		h.broadcastAlert(msg.RobotID, "estop_released", s.UserID(), reason)
	}

	metrics.SetEStopActive(estop.Count())

	cmd := adapter.NewCommand(msg.RobotID, adapter.CmdEmergencyStop, s.UserID(), map[string]any{
		"activate": activate,
		"reason":   reason,
	})
	cmd.CommandID = uuid.NewString()
	h.recordCommand(cmd)

	ack := protocol.NewMessage(protocol.MsgTypeCommandAck, msg.RobotID)
	ack.Payload["command"] = string(adapter.CmdEmergencyStop)
	ack.Payload["command_id"] = cmd.CommandID
	ack.Payload["success"] = true
	ack.Payload["active"] = activate
	s.Enqueue(ack)
	metrics.RecordCommand(string(adapter.CmdEmergencyStop), "approved")
}

func (h *Handler) hardwareStop(robotID string) {
	adp, ok := h.registry.Get(robotID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.EStopTimeout)
	defer cancel()
	if err := adp.EmergencyStop(ctx); err != nil {
		h.logger.Error("hardware estop failed",
			zap.String("robot_id", robotID),
			zap.Error(err),
		)
	}
}

func (h *Handler) handleLock(s *Session, msg *protocol.Message) {
	if !s.Role().CanCommand() {
		s.sendError(msg.RobotID, protocol.CodeRoleDenied, "role may not acquire locks")
		return
	}
	if msg.RobotID == "" {
		s.sendError("", protocol.CodeBadFrame, "robot_id is required")
		return
	}

	ttl := h.cfg.LockTTL
	if sec := numPayload(msg.Payload, "ttl_sec"); sec > 0 {
		ttl = time.Duration(sec * float64(time.Second))
	}

	lock, err := h.pipeline.Locks().Acquire(msg.RobotID, s.UserID(), ttl)
	if err != nil {
		s.sendError(msg.RobotID, protocol.CodeLockedByOther, err.Error())
		return
	}

	reply := protocol.NewMessage(protocol.MsgTypeLockStatus, msg.RobotID)
	reply.Payload["locked"] = true
	reply.Payload["user_id"] = lock.UserID
	reply.Payload["expires_at"] = lock.ExpiresAt.Format(time.RFC3339)
	s.Enqueue(reply)
}

func (h *Handler) handleUnlock(s *Session, msg *protocol.Message) {
	if !s.Role().CanCommand() {
		s.sendError(msg.RobotID, protocol.CodeRoleDenied, "role may not release locks")
		return
	}

	err := h.pipeline.Locks().Release(msg.RobotID, s.UserID(), s.Role() == auth.RoleAdmin)
	if err != nil {
		s.sendError(msg.RobotID, protocol.CodeLockedByOther, err.Error())
		return
	}

	reply := protocol.NewMessage(protocol.MsgTypeLockStatus, msg.RobotID)
	reply.Payload["locked"] = false
	s.Enqueue(reply)
}

func (h *Handler) handleSubscribe(s *Session, msg *protocol.Message) {
	if msg.RobotID == "" {
		s.sendError("", protocol.CodeBadFrame, "robot_id is required")
		return
	}
	for _, topic := range topicsOf(msg) {
		h.hub.Subscribe(s, msg.RobotID, topic)
	}
}

func (h *Handler) handleUnsubscribe(s *Session, msg *protocol.Message) {
	if msg.RobotID == "" {
		s.sendError("", protocol.CodeBadFrame, "robot_id is required")
		return
	}
	if topics, ok := msg.Payload["topics"].([]any); ok && len(topics) > 0 {
		for _, t := range topics {
			if name, ok := t.(string); ok {
				h.hub.Unsubscribe(s, msg.RobotID, name)
			}
		}
		return
	}
	h.hub.Unsubscribe(s, msg.RobotID, msg.Topic)
}

// InjectZeroVelocity delivers the watchdog's synthetic stop. The
// watchdog already verified E-Stop is inactive.
func (h *Handler) InjectZeroVelocity(robotID string) {
	adp, ok := h.registry.Get(robotID)
	if !ok {
		return
	}

	cmd := adapter.NewCommand(robotID, adapter.CmdVelocity, "watchdog", map[string]any{
		"linear_x": 0.0, "linear_y": 0.0, "angular_z": 0.0,
	})
	cmd.CommandID = uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SendTimeout)
	defer cancel()
	if err := adp.SendCommand(ctx, cmd); err != nil {
		h.logger.Error("watchdog stop delivery failed",
			zap.String("robot_id", robotID),
			zap.Error(err),
		)
		return
	}

	h.pipeline.Watchdog().Record(robotID, 0, 0, 0)
	h.manager.RecordControlData(robotID, map[string]float64{
		"linear_x": 0, "linear_y": 0, "angular_z": 0,
	})
	h.recordCommand(cmd)

	alert := protocol.NewMessage(protocol.MsgTypeSafetyAlert, robotID)
	alert.Topic = "safety"
	alert.Payload["type"] = "watchdog_stop"
	h.hub.Publish(robotID, "safety", alert)
	metrics.RecordCommand(string(adapter.CmdVelocity), "watchdog")
}

func (h *Handler) rejectCommand(s *Session, msg *protocol.Message, cmdType adapter.CommandType, code, message string) {
	ack := protocol.NewMessage(protocol.MsgTypeCommandAck, msg.RobotID)
	ack.Payload["command"] = string(cmdType)
	ack.Payload["success"] = false
	ack.Payload["code"] = code
	ack.Payload["message"] = message
	s.Enqueue(ack)
}

func (h *Handler) broadcastAlert(robotID, alertType, userID, reason string) {
	alert := protocol.NewMessage(protocol.MsgTypeSafetyAlert, robotID)
	alert.Topic = "safety"
	alert.Payload["type"] = alertType
	alert.Payload["user_id"] = userID
	if reason != "" {
		alert.Payload["reason"] = reason
	}
	h.hub.BroadcastAll(alert)
}

// recordCommand mirrors a delivered command to the forwarder and the
// Redis stream. Both are fire and forget.
func (h *Handler) recordCommand(cmd adapter.Command) {
	payload, _ := json.Marshal(cmd.Payload)
	h.fwd.AddCommand(&fleetpb.CommandRecord{
		CommandId:   cmd.CommandID,
		RobotId:     cmd.RobotID,
		Type:        string(cmd.Type),
		UserId:      cmd.UserID,
		TimestampMs: cmd.Timestamp,
		PayloadJson: payload,
	})
	h.mirror.PublishCommand(cmd)
}

func copyPayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func topicsOf(msg *protocol.Message) []string {
	if raw, ok := msg.Payload["topics"].([]any); ok && len(raw) > 0 {
		var topics []string
		for _, t := range raw {
			if name, ok := t.(string); ok {
				topics = append(topics, name)
			}
		}
		if len(topics) > 0 {
			return topics
		}
	}
	return []string{msg.Topic}
}

// numPayload coerces a payload field to float64. Msgpack decodes
// integers at the narrowest width that fits, so every width matters.
func numPayload(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}
