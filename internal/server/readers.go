package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/adapter"
	"github.com/amr-saas/gateway/internal/bridge"
	"github.com/amr-saas/gateway/internal/forwarder"
	"github.com/amr-saas/gateway/internal/protocol"
	"github.com/amr-saas/gateway/internal/robot"
)

const (
	// readerRestartDelay spaces out restarts after a reader panic so a
	// poisoned adapter stream cannot spin the scheduler.
	readerRestartDelay = time.Second

	// reconnectBaseBackoff seeds the doubling backoff after the
	// adapter's stream closes.
	reconnectBaseBackoff = time.Second

	reconnectTimeout = 10 * time.Second
)

// Readers runs one consumer task per robot over the adapter's sensor
// stream. Each record fans out to the hub, the recording forwarder, the
// Redis mirror and the robot manager. A panicking reader is restarted;
// a closed stream triggers reconnect attempts with doubling backoff.
type Readers struct {
	hub        *Hub
	manager    *robot.Manager
	fwd        *forwarder.Forwarder
	mirror     *bridge.Publisher
	maxBackoff time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	cancels map[string]chan struct{}
	wg      sync.WaitGroup
}

// NewReaders returns an empty reader set. maxBackoff caps the reconnect
// backoff; zero means no reconnecting, a closed stream ends the reader.
func NewReaders(hub *Hub, manager *robot.Manager, fwd *forwarder.Forwarder, mirror *bridge.Publisher, maxBackoff time.Duration, logger *zap.Logger) *Readers {
	return &Readers{
		hub:        hub,
		manager:    manager,
		fwd:        fwd,
		mirror:     mirror,
		maxBackoff: maxBackoff,
		logger:     logger,
		cancels:    make(map[string]chan struct{}),
	}
}

// Start launches the reader for one robot's adapter. A second Start for
// the same robot is a no-op until Stop is called.
func (r *Readers) Start(robotID string, adp adapter.RobotAdapter) {
	r.mu.Lock()
	if _, running := r.cancels[robotID]; running {
		r.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	r.cancels[robotID] = stop
	r.mu.Unlock()

	r.wg.Add(1)
	go r.supervise(robotID, adp, stop)
}

// Stop ends the reader for one robot.
func (r *Readers) Stop(robotID string) {
	r.mu.Lock()
	stop, ok := r.cancels[robotID]
	if ok {
		delete(r.cancels, robotID)
	}
	r.mu.Unlock()
	if ok {
		close(stop)
	}
}

// StopAll ends every reader and waits for them to exit.
func (r *Readers) StopAll() {
	r.mu.Lock()
	for id, stop := range r.cancels {
		close(stop)
		delete(r.cancels, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

type readerExit int

const (
	readerStopped readerExit = iota
	readerPanicked
	readerStreamClosed
)

// supervise reruns the consume loop after a panic, and reconnects the
// adapter with doubling backoff after its stream closes.
func (r *Readers) supervise(robotID string, adp adapter.RobotAdapter, stop chan struct{}) {
	defer r.wg.Done()

	for {
		switch r.consume(robotID, adp, stop) {
		case readerStopped:
			return

		case readerPanicked:
			select {
			case <-stop:
				return
			case <-time.After(readerRestartDelay):
			}

		case readerStreamClosed:
			if r.maxBackoff <= 0 {
				return
			}
			if !r.reconnect(robotID, adp, stop) {
				return
			}
		}
	}
}

// reconnect retries Connect until it succeeds or the reader is stopped.
func (r *Readers) reconnect(robotID string, adp adapter.RobotAdapter, stop chan struct{}) bool {
	backoff := reconnectBaseBackoff
	for {
		select {
		case <-stop:
			return false
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), reconnectTimeout)
		err := adp.Connect(ctx, nil)
		cancel()
		if err == nil {
			r.logger.Info("adapter reconnected", zap.String("robot_id", robotID))
			return true
		}

		r.logger.Warn("adapter reconnect failed",
			zap.String("robot_id", robotID),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// consume drains the sensor stream until it closes, the reader stops,
// or the dispatch path panics.
func (r *Readers) consume(robotID string, adp adapter.RobotAdapter, stop chan struct{}) (exit readerExit) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("sensor reader panic, restarting",
				zap.String("robot_id", robotID),
				zap.Any("panic", p),
			)
			exit = readerPanicked
		}
	}()

	stream := adp.SensorStream()
	for {
		select {
		case <-stop:
			return readerStopped
		case rec, ok := <-stream:
			if !ok {
				r.logger.Info("sensor stream closed",
					zap.String("robot_id", robotID),
				)
				return readerStreamClosed
			}
			r.dispatch(rec)
		}
	}
}

func (r *Readers) dispatch(rec adapter.SensorRecord) {
	msg := protocol.NewMessage(protocol.MsgTypeSensorData, rec.RobotID)
	msg.Topic = rec.Topic
	msg.Timestamp = rec.Timestamp
	msg.Payload["topic"] = rec.Topic
	msg.Payload["data_type"] = rec.DataType
	msg.Payload["frame_id"] = rec.FrameID
	msg.Payload["data"] = rec.Data
	r.hub.Publish(rec.RobotID, rec.Topic, msg)

	data, err := json.Marshal(rec.Data)
	if err == nil {
		r.fwd.AddSensor(&fleetpb.SensorRecord{
			RobotId:     rec.RobotID,
			Topic:       rec.Topic,
			DataType:    rec.DataType,
			FrameId:     rec.FrameID,
			TimestampMs: rec.Timestamp,
			DataJson:    data,
		})
	}
	r.mirror.PublishSensor(rec)

	r.manager.RecordSensorData(rec.RobotID, numericFields(rec.Data))

	if rec.Topic == "status" {
		r.applyStatus(rec)
	}
}

// applyStatus folds a status report into the robot record. Illegal
// transitions are logged and skipped; the adapter keeps reporting and a
// later report usually reconciles.
func (r *Readers) applyStatus(rec adapter.SensorRecord) {
	state, _ := rec.Data["state"].(string)
	if state == "" {
		return
	}
	err := r.manager.UpdateStatus(
		rec.RobotID,
		robot.State(state),
		numField(rec.Data, "battery"),
		numField(rec.Data, "x"),
		numField(rec.Data, "y"),
		numField(rec.Data, "theta"),
	)
	if err != nil {
		r.logger.Debug("status update rejected",
			zap.String("robot_id", rec.RobotID),
			zap.String("state", state),
			zap.Error(err),
		)
	}
}

func numericFields(data map[string]any) map[string]float64 {
	out := make(map[string]float64, len(data))
	for k, v := range data {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case float32:
			out[k] = float64(n)
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		}
	}
	return out
}

func numField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
