// Package grpc hosts the control plane: the FleetGateway service used
// by internal tooling and sibling services. It shares the safety
// pipeline with the WebSocket plane, so a command is filtered the same
// way no matter which door it came in through.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/logging"
	"github.com/amr-saas/gateway/internal/robot"
	"github.com/amr-saas/gateway/internal/safety"
)

// minStreamInterval floors the status stream period so a misconfigured
// client cannot turn the stream into a busy loop.
const minStreamInterval = 100 * time.Millisecond

// Version is stamped at build time via -ldflags.
var Version = "dev"

// ServerConfig holds the control plane tunables.
type ServerConfig struct {
	SendTimeout time.Duration
}

// Server implements the FleetGateway service.
type Server struct {
	fleetpb.UnimplementedFleetGatewayServer

	manager  *robot.Manager
	registry *adapter.Registry
	pipeline *safety.Pipeline
	cfg      ServerConfig
	logger   *zap.Logger

	server    *grpc.Server
	startedAt time.Time
}

// NewServer wires the control plane against the shared state.
func NewServer(manager *robot.Manager, registry *adapter.Registry, pipeline *safety.Pipeline, cfg ServerConfig, logger *zap.Logger) *Server {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 2 * time.Second
	}
	return &Server{
		manager:   manager,
		registry:  registry,
		pipeline:  pipeline,
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start begins serving on addr. Serve errors after a successful listen
// are logged, not returned.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor),
	)
	fleetpb.RegisterFleetGatewayServer(s.server, s)

	logging.Op().Info("grpc server listening", zap.String("addr", addr))

	go func() {
		if err := s.server.Serve(lis); err != nil {
			logging.Op().Error("grpc server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight RPCs and closes the listener.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// ListRobots returns the full catalog.
func (s *Server) ListRobots(_ context.Context, _ *fleetpb.ListRobotsRequest) (*fleetpb.ListRobotsResponse, error) {
	robots := s.manager.List()
	resp := &fleetpb.ListRobotsResponse{Robots: make([]*fleetpb.Robot, 0, len(robots))}
	for _, r := range robots {
		resp.Robots = append(resp.Robots, toProto(r))
	}
	return resp, nil
}

// GetRobot returns one catalog entry.
func (s *Server) GetRobot(_ context.Context, req *fleetpb.GetRobotRequest) (*fleetpb.Robot, error) {
	if req.GetRobotId() == "" {
		return nil, status.Error(codes.InvalidArgument, "robot_id is required")
	}
	r, err := s.manager.Get(req.GetRobotId())
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "robot not found: %s", req.GetRobotId())
	}
	return toProto(r), nil
}

// StreamRobotStatus pushes catalog snapshots until the client goes
// away. An empty robot_ids filter streams the whole fleet.
func (s *Server) StreamRobotStatus(req *fleetpb.StreamStatusRequest, stream fleetpb.FleetGateway_StreamRobotStatusServer) error {
	interval := time.Duration(req.GetIntervalMs()) * time.Millisecond
	if interval < minStreamInterval {
		interval = minStreamInterval
	}

	filter := make(map[string]struct{}, len(req.GetRobotIds()))
	for _, id := range req.GetRobotIds() {
		filter[id] = struct{}{}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
			now := time.Now().UnixMilli()
			for _, r := range s.manager.List() {
				if len(filter) > 0 {
					if _, keep := filter[r.ID]; !keep {
						continue
					}
				}
				if err := stream.Send(&fleetpb.RobotStatus{Robot: toProto(r), TimestampMs: now}); err != nil {
					return err
				}
			}
		}
	}
}

// HealthCheck reports liveness and basic fleet stats.
func (s *Server) HealthCheck(_ context.Context, _ *fleetpb.HealthCheckRequest) (*fleetpb.HealthCheckResponse, error) {
	return &fleetpb.HealthCheckResponse{
		Healthy:             true,
		Version:             Version,
		ConnectedRobotCount: int32(s.manager.Count()),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
	}, nil
}

func toProto(r *robot.Robot) *fleetpb.Robot {
	meta := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return &fleetpb.Robot{
		Id:           r.ID,
		Name:         r.Name,
		Vendor:       r.Vendor,
		Model:        r.Model,
		State:        string(r.State),
		Battery:      r.Battery,
		X:            r.Position.X,
		Y:            r.Position.Y,
		Theta:        r.Position.Theta,
		Online:       r.IsOnline,
		LastSeenMs:   r.LastSeen.UnixMilli(),
		MissionId:    r.CurrentMissionID,
		Metadata:     meta,
		SensorTopics: append([]string(nil), r.Capabilities.SensorTopics...),
	}
}
