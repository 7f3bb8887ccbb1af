package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/adapter/mock"
	"github.com/amr-saas/gateway/internal/auth"
	"github.com/amr-saas/gateway/internal/bridge"
	"github.com/amr-saas/gateway/internal/config"
	"github.com/amr-saas/gateway/internal/forwarder"
	gatewaygrpc "github.com/amr-saas/gateway/internal/grpc"
	"github.com/amr-saas/gateway/internal/logging"
	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
	"github.com/amr-saas/gateway/internal/ratelimit"
	"github.com/amr-saas/gateway/internal/robot"
	"github.com/amr-saas/gateway/internal/safety"
	"github.com/amr-saas/gateway/internal/server"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(serve())
		},
	}
}

// serve wires everything and blocks until a signal or a fatal server
// error. Exit codes: 0 clean shutdown, 1 runtime failure, 2 bad config.
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	logger := logging.Init(cfg.Server.LogLevel)
	defer logger.Sync()

	metrics.Init("fleet_gateway")

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		PublicKey:  cfg.Auth.PublicKey,
		HMACSecret: cfg.Auth.HMACSecret,
	})
	if err != nil {
		logger.Error("auth configuration invalid", zap.Error(err))
		return 1
	}
	releaseRole := auth.Role(cfg.Auth.EStopReleaseRole)
	if !auth.ValidRole(releaseRole) {
		logger.Error("invalid ESTOP_RELEASE_ROLE", zap.String("role", cfg.Auth.EStopReleaseRole))
		return 1
	}

	manager := robot.NewManager(logger)
	registry := adapter.NewRegistry(logger)
	registry.RegisterFactory("mock", mock.Factory)

	// Safety chain. The watchdog's inject target is the dispatch layer,
	// which does not exist yet; the indirection closes the cycle.
	var handler *server.Handler
	estop := safety.NewEStop(logger)
	locks := safety.NewLockStore(cfg.Safety.LockTTL(), logger)
	limiter := safety.NewLimiter(cfg.Safety.MaxLinearVel, cfg.Safety.MaxAngularVel, robotCaps(manager), logger)
	watchdog := safety.NewWatchdog(cfg.Safety.WatchdogInterval(), estop, func(robotID string) {
		if handler != nil {
			handler.InjectZeroVelocity(robotID)
		}
	}, logger)
	pipeline := safety.NewPipeline(estop, locks, limiter, watchdog, logger)
	manager.SetLockReleaser(locks)

	// Recording forwarder. The dial is non-blocking; a recorder outage
	// costs buffered batches, never command flow.
	conn, err := grpc.NewClient(cfg.Forwarder.RecorderAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		logger.Error("recorder dial failed", zap.String("addr", cfg.Forwarder.RecorderAddr), zap.Error(err))
		return 1
	}
	defer conn.Close()
	fwd := forwarder.New(fleetpb.NewDataRecordingClient(conn), cfg.Forwarder.BufferSize, cfg.Forwarder.FlushInterval, logger)

	mirror, err := bridge.New(cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("redis mirror unavailable, continuing without it", zap.Error(err))
		mirror = nil
	}

	hub := server.NewHub(logger)
	readers := server.NewReaders(hub, manager, fwd, mirror, cfg.Adapter.ReconnectMaxBackoff, logger)
	handler = server.NewHandler(hub, registry, manager, pipeline, verifier, fwd, mirror, server.HandlerConfig{
		SendTimeout:         cfg.Adapter.SendTimeout,
		EStopTimeout:        cfg.Adapter.EStopTimeout,
		LockTTL:             cfg.Safety.LockTTL(),
		EStopReleaseRole:    releaseRole,
		ReleaseLocksOnClose: cfg.Safety.ReleaseLocksOnClose,
	}, logger)

	locks.OnChange(func(robotID, holder, reason string) {
		msg := protocol.NewMessage(protocol.MsgTypeLockStatus, robotID)
		msg.Payload["locked"] = holder != ""
		msg.Payload["user_id"] = holder
		msg.Payload["reason"] = reason
		hub.Publish(robotID, "status", msg)
	})

	// Adapter misconfiguration (unknown kind, duplicate id) is its own
	// exit code so orchestrators can tell it from runtime failures.
	if err := bringUpMockFleet(cfg, registry, manager, readers, logger); err != nil {
		logger.Error("adapter bring-up failed", zap.Error(err))
		return 2
	}

	rl := ratelimit.NewLimiter(cfg.RateLimitPerMin, time.Minute)
	wsSrv := server.NewWSServer(server.WSServerConfig{
		Addr:             fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort),
		Path:             cfg.Server.WSPath,
		HeartbeatTimeout: cfg.Safety.HeartbeatTimeout(),
	}, hub, handler, manager, estop, rl, logger)

	rpcSrv := gatewaygrpc.NewServer(manager, registry, pipeline, gatewaygrpc.ServerConfig{
		SendTimeout: cfg.Adapter.SendTimeout,
	}, logger)

	fwd.Start()
	locks.Start()
	watchdog.Start()

	errCh := make(chan error, 1)
	wsSrv.Start(errCh)
	if err := rpcSrv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.RPCPort)); err != nil {
		logger.Error("grpc server start failed", zap.Error(err))
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		code = 1
	}

	// Shutdown order: stop accepting and drain operator sessions, then
	// the control plane, then the safety tasks, then adapters, and the
	// forwarder last so the final flush carries everything recorded
	// during teardown.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := wsSrv.Stop(ctx); err != nil {
		logger.Warn("websocket shutdown incomplete", zap.Error(err))
	}
	rpcSrv.Stop()

	watchdog.Stop()
	locks.Stop()
	readers.StopAll()

	for id := range registry.ActiveSnapshot() {
		registry.Remove(id)
	}

	fwd.Close()
	if mirror != nil {
		mirror.Close()
	}

	logger.Info("shutdown complete")
	return code
}

// robotCaps resolves per-robot velocity envelopes from the catalog.
func robotCaps(manager *robot.Manager) safety.CapsFunc {
	return func(robotID string) (float64, float64, bool) {
		r, err := manager.Get(robotID)
		if err != nil {
			return 0, 0, false
		}
		caps := r.Capabilities
		if caps.MaxLinearVel <= 0 && caps.MaxAngularVel <= 0 {
			return 0, 0, false
		}
		return caps.MaxLinearVel, caps.MaxAngularVel, true
	}
}

// bringUpMockFleet creates and connects a mock adapter per configured
// robot id.
func bringUpMockFleet(cfg *config.Config, registry *adapter.Registry, manager *robot.Manager, readers *server.Readers, logger *zap.Logger) error {
	if cfg.MockRobots == "" {
		return nil
	}
	for _, id := range strings.Split(cfg.MockRobots, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		adp, err := registry.Create(id, "mock", nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Adapter.ConnectTimeout)
		err = adp.Connect(ctx, nil)
		cancel()
		if err != nil {
			return fmt.Errorf("connect %s: %w", id, err)
		}

		manager.Register(id, id, "mock", "sim-1", adp.Capabilities())
		readers.Start(id, adp)
		logger.Info("mock robot online", zap.String("robot_id", id))
	}
	return nil
}
