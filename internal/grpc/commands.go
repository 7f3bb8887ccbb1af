package grpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
)

var commandTypes = map[string]adapter.CommandType{
	"velocity":          adapter.CmdVelocity,
	"navigation-goal":   adapter.CmdNavGoal,
	"navigation-cancel": adapter.CmdNavCancel,
	"emergency-stop":    adapter.CmdEmergencyStop,
}

// SendCommand runs one command through the safety pipeline and the
// adapter. Control plane callers are internal services acting for a
// user, so they carry operator privileges: locks held by someone else
// still reject.
func (s *Server) SendCommand(ctx context.Context, req *fleetpb.CommandRequest) (*fleetpb.CommandAck, error) {
	if req.GetRobotId() == "" {
		return nil, status.Error(codes.InvalidArgument, "robot_id is required")
	}
	cmdType, ok := commandTypes[req.GetType()]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown command type: %s", req.GetType())
	}

	payload := make(map[string]any)
	if len(req.GetPayloadJson()) > 0 {
		if err := json.Unmarshal(req.GetPayloadJson(), &payload); err != nil {
			return nil, status.Error(codes.InvalidArgument, "payload_json must be a JSON object")
		}
	}

	cmd := adapter.NewCommand(req.GetRobotId(), cmdType, req.GetUserId(), payload)
	cmd.CommandID = uuid.NewString()

	if cmdType == adapter.CmdEmergencyStop {
		return s.sendEStop(ctx, cmd)
	}

	verdict := s.pipeline.Process(&cmd, auth.RoleOperator)
	if !verdict.Approved {
		metrics.RecordCommand(string(cmdType), "rejected")
		return &fleetpb.CommandAck{
			Success:   false,
			Code:      verdict.Code,
			Message:   verdict.Message,
			CommandId: cmd.CommandID,
		}, nil
	}

	if err := s.deliver(ctx, cmd); err != nil {
		return err.ack, nil
	}

	metrics.RecordCommand(string(cmdType), "approved")
	return &fleetpb.CommandAck{
		Success:   true,
		CommandId: cmd.CommandID,
		Clamped:   verdict.Clamped,
	}, nil
}

// StartMission attaches a mission and dispatches its first navigation
// goal through the pipeline.
func (s *Server) StartMission(ctx context.Context, req *fleetpb.StartMissionRequest) (*fleetpb.MissionAck, error) {
	if req.GetRobotId() == "" || req.GetMissionId() == "" {
		return nil, status.Error(codes.InvalidArgument, "robot_id and mission_id are required")
	}

	payload := make(map[string]any)
	if len(req.GetPayloadJson()) > 0 {
		if err := json.Unmarshal(req.GetPayloadJson(), &payload); err != nil {
			return nil, status.Error(codes.InvalidArgument, "payload_json must be a JSON object")
		}
	}
	payload["mission_id"] = req.GetMissionId()

	cmd := adapter.NewCommand(req.GetRobotId(), adapter.CmdNavGoal, "control-plane", payload)
	cmd.CommandID = uuid.NewString()

	verdict := s.pipeline.Process(&cmd, auth.RoleOperator)
	if !verdict.Approved {
		return &fleetpb.MissionAck{Success: false, Message: verdict.Message, MissionId: req.GetMissionId()}, nil
	}
	if err := s.deliver(ctx, cmd); err != nil {
		return &fleetpb.MissionAck{Success: false, Message: err.ack.GetMessage(), MissionId: req.GetMissionId()}, nil
	}

	if err := s.manager.SetMission(req.GetRobotId(), req.GetMissionId()); err != nil {
		return nil, status.Errorf(codes.NotFound, "robot not found: %s", req.GetRobotId())
	}
	if err := s.manager.Move(req.GetRobotId()); err != nil {
		s.logger.Debug("mission start left state unchanged",
			zap.String("robot_id", req.GetRobotId()),
			zap.Error(err),
		)
	}
	return &fleetpb.MissionAck{Success: true, MissionId: req.GetMissionId()}, nil
}

// CancelMission clears the mission and sends a navigation cancel. The
// cancel is never blocked by the watchdog or limiter; only E-Stop and
// the lock stage apply.
func (s *Server) CancelMission(ctx context.Context, req *fleetpb.CancelMissionRequest) (*fleetpb.MissionAck, error) {
	if req.GetRobotId() == "" {
		return nil, status.Error(codes.InvalidArgument, "robot_id is required")
	}

	cmd := adapter.NewCommand(req.GetRobotId(), adapter.CmdNavCancel, "control-plane", map[string]any{
		"mission_id": req.GetMissionId(),
	})
	cmd.CommandID = uuid.NewString()

	verdict := s.pipeline.Process(&cmd, auth.RoleOperator)
	if !verdict.Approved {
		return &fleetpb.MissionAck{Success: false, Message: verdict.Message, MissionId: req.GetMissionId()}, nil
	}
	if err := s.deliver(ctx, cmd); err != nil {
		return &fleetpb.MissionAck{Success: false, Message: err.ack.GetMessage(), MissionId: req.GetMissionId()}, nil
	}

	if err := s.manager.SetMission(req.GetRobotId(), ""); err != nil {
		return nil, status.Errorf(codes.NotFound, "robot not found: %s", req.GetRobotId())
	}
	if err := s.manager.Stop(req.GetRobotId()); err != nil {
		s.logger.Debug("mission cancel left state unchanged",
			zap.String("robot_id", req.GetRobotId()),
			zap.Error(err),
		)
	}
	return &fleetpb.MissionAck{Success: true, MissionId: req.GetMissionId()}, nil
}

// sendEStop latches or clears the stop and fires the hardware stop.
func (s *Server) sendEStop(ctx context.Context, cmd adapter.Command) (*fleetpb.CommandAck, error) {
	activate, _ := cmd.Payload["activate"].(bool)
	reason, _ := cmd.Payload["reason"].(string)
	estop := s.pipeline.EStop()

	if activate {
		estop.Activate(cmd.RobotID, cmd.UserID, reason)
		if adp, ok := s.registry.Get(cmd.RobotID); ok {
			stopCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
			defer cancel()
			if err := adp.EmergencyStop(stopCtx); err != nil {
				s.logger.Error("hardware estop failed",
					zap.String("robot_id", cmd.RobotID),
					zap.Error(err),
				)
			}
		}
	} else if !estop.Release(cmd.RobotID, cmd.UserID) {
		return &fleetpb.CommandAck{
			Success:   false,
			Code:      protocol.CodeBadFrame,
			Message:   "no active estop",
			CommandId: cmd.CommandID,
		}, nil
	}

	metrics.SetEStopActive(estop.Count())
	metrics.RecordCommand(string(adapter.CmdEmergencyStop), "approved")
	return &fleetpb.CommandAck{Success: true, CommandId: cmd.CommandID}, nil
}

type deliverError struct {
	ack *fleetpb.CommandAck
}

func (e *deliverError) Error() string { return e.ack.GetMessage() }

// deliver hands the approved command to the adapter within the send
// deadline.
func (s *Server) deliver(ctx context.Context, cmd adapter.Command) *deliverError {
	adp, ok := s.registry.Get(cmd.RobotID)
	if !ok {
		metrics.RecordCommand(string(cmd.Type), "rejected")
		return &deliverError{ack: &fleetpb.CommandAck{
			Success:   false,
			Code:      protocol.CodeRobotNotFound,
			Message:   "no adapter for robot",
			CommandId: cmd.CommandID,
		}}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := adp.SendCommand(sendCtx, cmd); err != nil {
		metrics.RecordCommand(string(cmd.Type), "failed")
		s.logger.Warn("adapter send failed",
			zap.String("robot_id", cmd.RobotID),
			zap.String("command_type", string(cmd.Type)),
			zap.Error(err),
		)
		return &deliverError{ack: &fleetpb.CommandAck{
			Success:   false,
			Code:      protocol.CodeAdapterUnavailable,
			Message:   "adapter send failed",
			CommandId: cmd.CommandID,
		}}
	}
	return nil
}
