// Package forwarder batches sensor and command records and ships them
// to the recording service over gRPC. Batches flush on a fixed timer,
// immediately when a buffer reaches its high-water mark, and once more
// synchronously at shutdown. Recording failures are retried in-buffer
// and never surfaced to clients.
package forwarder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
	"github.com/amr-saas/gateway/internal/metrics"
)

const flushRPCTimeout = 5 * time.Second

// Forwarder owns the two record buffers and the flush loop.
type Forwarder struct {
	client   fleetpb.DataRecordingClient
	sensors  *buffer[*fleetpb.SensorRecord]
	commands *buffer[*fleetpb.CommandRecord]

	flushInterval  time.Duration
	sensorTrigger  chan struct{}
	commandTrigger chan struct{}
	logger         *zap.Logger

	startMu sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a forwarder with the given per-buffer high-water mark.
func New(client fleetpb.DataRecordingClient, highWater int, flushInterval time.Duration, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		client:        client,
		sensors:       newBuffer[*fleetpb.SensorRecord](highWater),
		commands:      newBuffer[*fleetpb.CommandRecord](highWater),
		flushInterval:  flushInterval,
		sensorTrigger:  make(chan struct{}, 1),
		commandTrigger: make(chan struct{}, 1),
		logger:         logger,
	}
}

// Start launches one flush loop per buffer. Keeping the loops separate
// means a stalled recording call on one stream cannot hold back the
// other.
func (f *Forwarder) Start() {
	f.startMu.Lock()
	defer f.startMu.Unlock()
	if f.started {
		return
	}
	f.started = true
	f.stopCh = make(chan struct{})
	f.wg.Add(2)
	go f.loop(f.sensorTrigger, f.flushSensors)
	go f.loop(f.commandTrigger, f.flushCommands)
}

// Close stops the flush loops and synchronously flushes what remains.
func (f *Forwarder) Close() {
	f.startMu.Lock()
	defer f.startMu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	close(f.stopCh)
	f.wg.Wait()

	f.flushSensors()
	f.flushCommands()
}

// AddSensor queues one sensor record.
func (f *Forwarder) AddSensor(rec *fleetpb.SensorRecord) {
	full, dropped := f.sensors.add(rec)
	f.noteIngestDrop("sensor", dropped)
	if full {
		trigger(f.sensorTrigger)
	}
}

// AddCommand queues one command record.
func (f *Forwarder) AddCommand(rec *fleetpb.CommandRecord) {
	full, dropped := f.commands.add(rec)
	f.noteIngestDrop("command", dropped)
	if full {
		trigger(f.commandTrigger)
	}
}

// trigger requests an asynchronous flush; a pending trigger is enough.
func trigger(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (f *Forwarder) noteIngestDrop(buffer string, dropped int) {
	if dropped == 0 {
		return
	}
	metrics.RecordForwarderDrop(buffer, dropped)
	f.logger.Warn("recording backlog overflow, oldest records dropped",
		zap.String("buffer", buffer),
		zap.Int("dropped", dropped),
	)
}

func (f *Forwarder) loop(triggerCh <-chan struct{}, flush func()) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
		case <-triggerCh:
		}
		flush()
	}
}

func (f *Forwarder) flushSensors() {
	batch := f.sensors.drain()
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushRPCTimeout)
	defer cancel()

	ack, err := f.client.BatchSensor(ctx, &fleetpb.SensorBatch{Records: batch})
	if err != nil {
		metrics.RecordForwarderBatch("sensor", "error")
		dropped := f.sensors.prepend(batch)
		f.logFlushFailure("sensor", len(batch), dropped, err)
		return
	}
	metrics.RecordForwarderBatch("sensor", "ok")
	f.logger.Debug("sensor batch recorded",
		zap.Int("sent", len(batch)),
		zap.Int32("recorded", ack.GetRecordedCount()),
	)
}

func (f *Forwarder) flushCommands() {
	batch := f.commands.drain()
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushRPCTimeout)
	defer cancel()

	ack, err := f.client.BatchCommand(ctx, &fleetpb.CommandBatch{Records: batch})
	if err != nil {
		metrics.RecordForwarderBatch("command", "error")
		dropped := f.commands.prepend(batch)
		f.logFlushFailure("command", len(batch), dropped, err)
		return
	}
	metrics.RecordForwarderBatch("command", "ok")
	f.logger.Debug("command batch recorded",
		zap.Int("sent", len(batch)),
		zap.Int32("recorded", ack.GetRecordedCount()),
	)
}

func (f *Forwarder) logFlushFailure(buffer string, size, dropped int, err error) {
	if dropped > 0 {
		metrics.RecordForwarderDrop(buffer, dropped)
		f.logger.Warn("recording backlog overflow, oldest records dropped",
			zap.String("buffer", buffer),
			zap.Int("batch_size", size),
			zap.Int("dropped", dropped),
			zap.Error(err),
		)
		return
	}
	f.logger.Warn("recording batch failed, records requeued",
		zap.String("buffer", buffer),
		zap.Int("batch_size", size),
		zap.Error(err),
	)
}
