package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// disconnectGrace bounds how long Remove waits for an adapter to
// disconnect before dropping the reference anyway.
const disconnectGrace = 5 * time.Second

// Factory builds an adapter of one kind. The config map's keys are
// adapter-defined.
type Factory func(robotID string, config map[string]any, logger *zap.Logger) RobotAdapter

// Registry maps robot ids to active adapters and adapter kinds to
// factories. Gets are read-locked and hot; inserts and removes are rare.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]RobotAdapter
	logger    *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]RobotAdapter),
		logger:    logger,
	}
}

// RegisterFactory makes a kind available to Create.
func (r *Registry) RegisterFactory(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
	r.logger.Info("registered adapter factory", zap.String("kind", kind))
}

// Create looks up the factory for kind, builds the adapter and stores it
// under id. An existing adapter for id is an error; remove it first.
func (r *Registry) Create(id, kind string, config map[string]any) (RobotAdapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[id]; exists {
		return nil, fmt.Errorf("adapter already registered for robot %s", id)
	}
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown adapter kind: %s", kind)
	}

	adp := factory(id, config, r.logger.With(zap.String("robot_id", id), zap.String("kind", kind)))
	r.active[id] = adp

	r.logger.Info("created adapter", zap.String("robot_id", id), zap.String("kind", kind))
	return adp, nil
}

// Get returns the active adapter for a robot.
func (r *Registry) Get(id string) (RobotAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adp, ok := r.active[id]
	return adp, ok
}

// Remove disconnects and drops the adapter for id. Disconnect gets a
// bounded grace period; on overrun the reference is dropped anyway and a
// warning recorded.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	adp, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()

	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), disconnectGrace)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- adp.Disconnect(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			r.logger.Warn("adapter disconnect failed", zap.String("robot_id", id), zap.Error(err))
		} else {
			r.logger.Info("removed adapter", zap.String("robot_id", id))
		}
	case <-ctx.Done():
		r.logger.Warn("adapter disconnect exceeded grace period, dropping reference",
			zap.String("robot_id", id),
			zap.Duration("grace", disconnectGrace),
		)
	}
}

// ActiveSnapshot returns a copy of the active map, safe to iterate
// outside the lock.
func (r *Registry) ActiveSnapshot() map[string]RobotAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RobotAdapter, len(r.active))
	for k, v := range r.active {
		out[k] = v
	}
	return out
}

// Kinds lists the registered factory kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
