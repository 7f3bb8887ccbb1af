package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
	"github.com/amr-saas/gateway/internal/ratelimit"
	"github.com/amr-saas/gateway/internal/robot"
	"github.com/amr-saas/gateway/internal/safety"
)

// statusBroadcastPeriod paces the robot_status push to subscribers.
const statusBroadcastPeriod = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth happens on the first frame; origin is not a trust
	// boundary here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSServerConfig holds the listen address and background loop periods.
type WSServerConfig struct {
	Addr             string
	Path             string
	HeartbeatTimeout time.Duration
}

// WSServer is the operator-facing plane: the WebSocket endpoint plus
// health and metrics, with the status broadcast and heartbeat sweep
// loops.
type WSServer struct {
	cfg     WSServerConfig
	hub     *Hub
	handler *Handler
	manager *robot.Manager
	estop   *safety.EStop
	limiter *ratelimit.Limiter
	logger  *zap.Logger

	httpSrv *http.Server

	startMu sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWSServer wires the HTTP surface. The rate limiter applies to every
// inbound request including the upgrade.
func NewWSServer(
	cfg WSServerConfig,
	hub *Hub,
	handler *Handler,
	manager *robot.Manager,
	estop *safety.EStop,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *WSServer {
	s := &WSServer{
		cfg:     cfg,
		hub:     hub,
		handler: handler,
		manager: manager,
		estop:   estop,
		limiter: limiter,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())

	var h http.Handler = mux
	h = ratelimit.Middleware(limiter)(h)
	h = ratelimit.Logging(logger)(h)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving and launches the background loops. The listen
// error surfaces on errCh.
func (s *WSServer) Start(errCh chan<- error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(2)
	go s.statusLoop()
	go s.heartbeatLoop()

	go func() {
		s.logger.Info("websocket server listening",
			zap.String("addr", s.cfg.Addr),
			zap.String("path", s.cfg.Path),
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("websocket server: %w", err)
		}
	}()
}

// Stop shuts the HTTP listener and the background loops. Open sessions
// are asked to drain via the hub before the listener closes.
func (s *WSServer) Stop(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	close(s.stopCh)
	s.hub.CloseAll()
	err := s.httpSrv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *WSServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := newSession(conn, s.hub, s.handler, s.logger)
	s.logger.Debug("session accepted",
		zap.String("session_id", sess.ID()),
		zap.String("remote", r.RemoteAddr),
	)
	go sess.run()
}

func (s *WSServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","sessions":%d,"robots":%d}`, s.hub.Sessions(), s.manager.Count())
}

func (s *WSServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// statusLoop pushes each robot's current record to its status
// subscribers once a second and refreshes the online gauge.
func (s *WSServer) statusLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(statusBroadcastPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			robots := s.manager.List()
			metrics.SetRobotsOnline(s.manager.Count())
			for _, r := range robots {
				msg := statusMessage(r, s.estop.IsActive(r.ID))
				if sample := s.manager.SensorData(r.ID); len(sample) > 0 {
					msg.Payload["sensors"] = sample
				}
				if sample := s.manager.ControlData(r.ID); len(sample) > 0 {
					msg.Payload["control"] = sample
				}
				s.hub.Publish(r.ID, "status", msg)
			}
		}
	}
}

// heartbeatLoop marks silent robots offline and tells their watchers.
func (s *WSServer) heartbeatLoop() {
	defer s.wg.Done()
	period := s.cfg.HeartbeatTimeout / 2
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			deadline := time.Now().Add(-s.cfg.HeartbeatTimeout)
			for _, id := range s.manager.CheckTimeouts(deadline) {
				msg := protocol.NewMessage(protocol.MsgTypeConnectionStatus, id)
				msg.Payload["online"] = false
				msg.Payload["reason"] = "heartbeat timeout"
				s.hub.Publish(id, "status", msg)
			}
		}
	}
}

func statusMessage(r *robot.Robot, estopped bool) *protocol.Message {
	msg := protocol.NewMessage(protocol.MsgTypeRobotStatus, r.ID)
	msg.Topic = "status"
	msg.Payload["name"] = r.Name
	msg.Payload["state"] = string(r.State)
	msg.Payload["battery"] = r.Battery
	msg.Payload["online"] = r.IsOnline
	msg.Payload["x"] = r.Position.X
	msg.Payload["y"] = r.Position.Y
	msg.Payload["theta"] = r.Position.Theta
	msg.Payload["estop"] = estopped
	if r.CurrentMissionID != "" {
		msg.Payload["mission_id"] = r.CurrentMissionID
	}
	return msg
}
