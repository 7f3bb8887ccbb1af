package forwarder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/amr-saas/gateway/api/proto/fleetpb"
)

type fakeRecorder struct {
	mu           sync.Mutex
	fail         bool
	sensorBatch  [][]*fleetpb.SensorRecord
	commandBatch [][]*fleetpb.CommandRecord
}

func (f *fakeRecorder) BatchSensor(_ context.Context, in *fleetpb.SensorBatch, _ ...grpc.CallOption) (*fleetpb.BatchAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("recorder down")
	}
	f.sensorBatch = append(f.sensorBatch, in.GetRecords())
	return &fleetpb.BatchAck{RecordedCount: int32(len(in.GetRecords()))}, nil
}

func (f *fakeRecorder) BatchCommand(_ context.Context, in *fleetpb.CommandBatch, _ ...grpc.CallOption) (*fleetpb.BatchAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("recorder down")
	}
	f.commandBatch = append(f.commandBatch, in.GetRecords())
	return &fleetpb.BatchAck{RecordedCount: int32(len(in.GetRecords()))}, nil
}

func (f *fakeRecorder) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeRecorder) sensorTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.sensorBatch {
		n += len(b)
	}
	return n
}

func (f *fakeRecorder) commandTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.commandBatch {
		n += len(b)
	}
	return n
}

// stallRecorder blocks every sensor batch until release is closed;
// command batches go straight through.
type stallRecorder struct {
	fakeRecorder
	release chan struct{}
}

func (s *stallRecorder) BatchSensor(ctx context.Context, in *fleetpb.SensorBatch, opts ...grpc.CallOption) (*fleetpb.BatchAck, error) {
	<-s.release
	return s.fakeRecorder.BatchSensor(ctx, in, opts...)
}

func sensorRec(i int) *fleetpb.SensorRecord {
	return &fleetpb.SensorRecord{
		RobotId:     "r1",
		Topic:       "odom",
		TimestampMs: int64(i),
	}
}

func TestHighWaterTriggersAdd(t *testing.T) {
	b := newBuffer[*fleetpb.SensorRecord](3)
	for i := 1; i <= 2; i++ {
		if full, _ := b.add(sensorRec(i)); full {
			t.Fatalf("high water reported at %d records", i)
		}
	}
	if full, _ := b.add(sensorRec(3)); !full {
		t.Fatal("high water not reported at mark")
	}
}

func TestAddDropsOldestPastDoubleHighWater(t *testing.T) {
	b := newBuffer[*fleetpb.SensorRecord](4)
	totalDropped := 0
	for i := 1; i <= 12; i++ {
		_, dropped := b.add(sensorRec(i))
		totalDropped += dropped
		if b.len() > 8 {
			t.Fatalf("backlog at %d records after add %d, cap is 8", b.len(), i)
		}
	}

	// The 9th add crosses 2x high-water and cuts back to high-water.
	if totalDropped != 5 {
		t.Fatalf("dropped = %d, want 5", totalDropped)
	}
	batch := b.drain()
	if len(batch) != 7 {
		t.Fatalf("len = %d, want 7", len(batch))
	}
	if batch[0].GetTimestampMs() != 6 {
		t.Fatalf("oldest surviving ts = %d, want 6", batch[0].GetTimestampMs())
	}
}

func TestDrainEmptiesBuffer(t *testing.T) {
	b := newBuffer[*fleetpb.SensorRecord](3)
	b.add(sensorRec(1))
	b.add(sensorRec(2))

	batch := b.drain()
	if len(batch) != 2 || b.len() != 0 {
		t.Fatalf("drain returned %d, left %d", len(batch), b.len())
	}
	if b.drain() != nil {
		t.Fatal("drain of empty buffer returned records")
	}
}

func TestPrependPreservesOrder(t *testing.T) {
	b := newBuffer[*fleetpb.SensorRecord](10)
	b.add(sensorRec(1))
	b.add(sensorRec(2))
	failed := b.drain()
	b.add(sensorRec(3))

	if dropped := b.prepend(failed); dropped != 0 {
		t.Fatalf("unexpected drop of %d", dropped)
	}
	batch := b.drain()
	if len(batch) != 3 {
		t.Fatalf("len = %d, want 3", len(batch))
	}
	for i, rec := range batch {
		if rec.GetTimestampMs() != int64(i+1) {
			t.Fatalf("order broken at %d: ts=%d", i, rec.GetTimestampMs())
		}
	}
}

func TestPrependDropsOldestPastDoubleHighWater(t *testing.T) {
	b := newBuffer[*fleetpb.SensorRecord](4)
	var failed []*fleetpb.SensorRecord
	for i := 1; i <= 6; i++ {
		failed = append(failed, sensorRec(i))
	}
	for i := 7; i <= 10; i++ {
		b.add(sensorRec(i))
	}

	// 6 + 4 = 10 > 2*4, so the backlog is cut down to high-water.
	dropped := b.prepend(failed)
	if dropped != 6 {
		t.Fatalf("dropped = %d, want 6", dropped)
	}
	batch := b.drain()
	if len(batch) != 4 {
		t.Fatalf("len = %d, want 4", len(batch))
	}
	if batch[0].GetTimestampMs() != 7 {
		t.Fatalf("oldest surviving ts = %d, want 7", batch[0].GetTimestampMs())
	}
}

func TestFlushOnTimer(t *testing.T) {
	rec := &fakeRecorder{}
	f := New(rec, 100, 20*time.Millisecond, zap.NewNop())
	f.Start()
	defer f.Close()

	f.AddSensor(sensorRec(1))
	f.AddCommand(&fleetpb.CommandRecord{CommandId: "c1", RobotId: "r1"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec.sensorTotal() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rec.sensorTotal() != 1 {
		t.Fatal("timer flush did not deliver sensor record")
	}

	rec.mu.Lock()
	cmds := len(rec.commandBatch)
	rec.mu.Unlock()
	if cmds != 1 {
		t.Fatalf("command batches = %d, want 1", cmds)
	}
}

func TestHighWaterFlushBeforeTimer(t *testing.T) {
	rec := &fakeRecorder{}
	f := New(rec, 2, time.Hour, zap.NewNop())
	f.Start()
	defer f.Close()

	f.AddSensor(sensorRec(1))
	f.AddSensor(sensorRec(2))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec.sensorTotal() == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("high-water did not trigger an early flush")
}

func TestFailureRequeuesThenDelivers(t *testing.T) {
	rec := &fakeRecorder{}
	rec.setFail(true)
	f := New(rec, 100, 20*time.Millisecond, zap.NewNop())
	f.Start()
	defer f.Close()

	f.AddSensor(sensorRec(1))
	time.Sleep(60 * time.Millisecond)
	if rec.sensorTotal() != 0 {
		t.Fatal("records delivered while recorder failing")
	}

	rec.setFail(false)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec.sensorTotal() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("requeued record never delivered after recovery")
}

func TestCommandFlushNotHeldBySensorStall(t *testing.T) {
	rec := &stallRecorder{release: make(chan struct{})}
	f := New(rec, 2, 20*time.Millisecond, zap.NewNop())
	f.Start()
	defer f.Close()
	defer close(rec.release)

	f.AddSensor(sensorRec(1))
	f.AddSensor(sensorRec(2))
	time.Sleep(30 * time.Millisecond)

	f.AddCommand(&fleetpb.CommandRecord{CommandId: "c1", RobotId: "r1"})
	f.AddCommand(&fleetpb.CommandRecord{CommandId: "c2", RobotId: "r1"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec.commandTotal() == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("command buffer still holds %d records while sensor flush is stalled", f.commands.len())
}

func TestIngestCappedWhileFlushInFlight(t *testing.T) {
	rec := &stallRecorder{release: make(chan struct{})}
	f := New(rec, 4, 20*time.Millisecond, zap.NewNop())
	f.Start()
	defer f.Close()
	defer close(rec.release)

	// Fill to high-water so a flush starts and blocks, then keep adding.
	for i := 1; i <= 16; i++ {
		f.AddSensor(sensorRec(i))
		if n := f.sensors.len(); n > 8 {
			t.Fatalf("sensor backlog at %d records, 2x high-water is 8", n)
		}
	}
}

func TestCloseFlushesRemainder(t *testing.T) {
	rec := &fakeRecorder{}
	f := New(rec, 100, time.Hour, zap.NewNop())
	f.Start()

	f.AddSensor(sensorRec(1))
	f.AddSensor(sensorRec(2))
	f.Close()

	if rec.sensorTotal() != 2 {
		t.Fatalf("final flush delivered %d, want 2", rec.sensorTotal())
	}
}
