package server

import (
	"sync"

	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
)

type queued struct {
	msg *protocol.Message
	key subKey
}

// sendQueue is a session's bounded outbound buffer. When full, the
// oldest message for the incoming message's (robot, topic) pair is
// dropped; the drop count is surfaced on the next delivered message
// for that pair as a dropped:N envelope annotation.
type sendQueue struct {
	mu      sync.Mutex
	items   []queued
	max     int
	dropped map[subKey]int64
	closed  bool

	// notify carries at most one pending wakeup for the write pump.
	notify chan struct{}
}

func newSendQueue(max int) *sendQueue {
	return &sendQueue{
		items:   make([]queued, 0, max),
		max:     max,
		dropped: make(map[subKey]int64),
		notify:  make(chan struct{}, 1),
	}
}

func (q *sendQueue) push(msg *protocol.Message) {
	key := subKey{robotID: msg.RobotID, topic: msg.Topic}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.items) >= q.max {
		q.evictOldest(key)
	}
	q.items = append(q.items, queued{msg: msg, key: key})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// evictOldest drops the oldest queued message for key, falling back to
// the queue head when the pair has nothing queued. Caller holds q.mu.
func (q *sendQueue) evictOldest(key subKey) {
	idx := 0
	for i, it := range q.items {
		if it.key == key {
			idx = i
			break
		}
	}
	victim := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.dropped[victim.key]++
	metrics.RecordTelemetryDrop(victim.key.topic)
}

// pop returns the next message, annotated with the pending drop count
// for its pair, or nil when the queue is empty. The returned message is
// a copy when annotation is needed so sibling sessions are unaffected.
func (q *sendQueue) pop() *protocol.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	it := q.items[0]
	q.items = q.items[1:]

	if n := q.dropped[it.key]; n > 0 {
		delete(q.dropped, it.key)
		cp := *it.msg
		cp.Payload = make(map[string]any, len(it.msg.Payload)+1)
		for k, v := range it.msg.Payload {
			cp.Payload[k] = v
		}
		cp.Payload["dropped"] = n
		return &cp
	}
	return it.msg
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *sendQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
