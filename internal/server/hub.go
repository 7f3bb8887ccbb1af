// Package server owns the WebSocket surface: the telemetry hub, the
// per-connection session lifecycle, and message dispatch into the
// safety pipeline.
//
// # Fan-out model
//
// Adapter sensor streams are consumed by one reader task per robot
// which publishes into the hub. The hub maps (robot id, topic) to the
// set of subscribed sessions and copies each message into every
// subscriber's bounded send queue. A slow session only loses its own
// messages; the adapter reader never blocks.
package server

import (
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/metrics"
	"github.com/amr-saas/gateway/internal/protocol"
)

const hubShards = 16

// TopicAll subscribes a session to every topic of a robot.
const TopicAll = "*"

type subKey struct {
	robotID string
	topic   string
}

type hubShard struct {
	mu   sync.RWMutex
	subs map[subKey]map[*Session]struct{}
}

// Hub is the process-wide subscription table, sharded by robot id to
// keep concurrent publishers for different robots off each other's
// locks.
type Hub struct {
	shards [hubShards]*hubShard

	mu       sync.RWMutex
	sessions map[*Session]struct{}

	logger *zap.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		sessions: make(map[*Session]struct{}),
		logger:   logger,
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{subs: make(map[subKey]map[*Session]struct{})}
	}
	return h
}

func (h *Hub) shardFor(robotID string) *hubShard {
	f := fnv.New32a()
	f.Write([]byte(robotID))
	return h.shards[f.Sum32()%hubShards]
}

// Register adds a session to the hub.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()

	metrics.SessionOpened()
	h.logger.Info("session registered",
		zap.String("session_id", s.ID()),
		zap.Int("total_sessions", n),
	)
}

// Unregister removes a session and all its subscriptions.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}

	for _, shard := range h.shards {
		shard.mu.Lock()
		for key, set := range shard.subs {
			if _, subbed := set[s]; subbed {
				delete(set, s)
				if len(set) == 0 {
					delete(shard.subs, key)
				}
			}
		}
		shard.mu.Unlock()
	}

	metrics.SessionClosed()
	h.logger.Info("session unregistered",
		zap.String("session_id", s.ID()),
		zap.Int("total_sessions", n),
	)
}

// Subscribe adds (robotID, topic) to the session's subscription set.
func (h *Hub) Subscribe(s *Session, robotID, topic string) {
	if topic == "" {
		topic = TopicAll
	}
	key := subKey{robotID: robotID, topic: topic}
	shard := h.shardFor(robotID)

	shard.mu.Lock()
	set, ok := shard.subs[key]
	if !ok {
		set = make(map[*Session]struct{})
		shard.subs[key] = set
	}
	set[s] = struct{}{}
	shard.mu.Unlock()

	h.logger.Debug("session subscribed",
		zap.String("session_id", s.ID()),
		zap.String("robot_id", robotID),
		zap.String("topic", topic),
	)
}

// Unsubscribe removes (robotID, topic) from the session's set. An
// empty topic removes every subscription for the robot.
func (h *Hub) Unsubscribe(s *Session, robotID, topic string) {
	shard := h.shardFor(robotID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if topic == "" {
		for key, set := range shard.subs {
			if key.robotID == robotID {
				delete(set, s)
				if len(set) == 0 {
					delete(shard.subs, key)
				}
			}
		}
		return
	}

	key := subKey{robotID: robotID, topic: topic}
	if set, ok := shard.subs[key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(shard.subs, key)
		}
	}
}

// Publish copies msg to every session subscribed to the robot's topic,
// either exactly or through the wildcard subscription.
func (h *Hub) Publish(robotID, topic string, msg *protocol.Message) {
	shard := h.shardFor(robotID)

	shard.mu.RLock()
	var targets []*Session
	for _, key := range []subKey{
		{robotID: robotID, topic: topic},
		{robotID: robotID, topic: TopicAll},
	} {
		for s := range shard.subs[key] {
			targets = append(targets, s)
		}
	}
	shard.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	metrics.RecordTelemetry(topic)
	for _, s := range targets {
		s.Enqueue(msg)
	}
}

// BroadcastAll sends msg to every connected session regardless of
// subscriptions. Used for safety alerts.
func (h *Hub) BroadcastAll(msg *protocol.Message) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Enqueue(msg)
	}
}

// Sessions returns the current session count.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll asks every session to begin draining and closing. Used at
// shutdown before the safety tasks stop.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Close()
	}
}
