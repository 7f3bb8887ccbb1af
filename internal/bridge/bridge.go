// Package bridge mirrors telemetry and delivered commands onto Redis
// streams so sibling services can consume them without touching the
// gateway. The bridge is optional: with no Redis configured every
// publish is a no-op, and a broken connection only costs mirror copies.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/amr-saas/gateway/internal/adapter"
)

const (
	sensorStreamPrefix = "fleet:sensor:"
	commandStream      = "fleet:commands"
	maxStreamEntries   = 10000
	publishTimeout     = 2 * time.Second
)

// Publisher writes to the mirror streams. A nil *Publisher is valid and
// publishes nothing.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redisURL and returns a publisher, or nil when the URL
// is empty. A connection error is returned so the caller can decide to
// run without the mirror.
func New(redisURL string, logger *zap.Logger) (*Publisher, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis mirror connected", zap.String("url", redisURL))
	return &Publisher{client: client, logger: logger}, nil
}

// PublishSensor mirrors one telemetry record to the robot's stream.
func (p *Publisher) PublishSensor(rec adapter.SensorRecord) {
	if p == nil {
		return
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: sensorStreamPrefix + rec.RobotID,
		MaxLen: maxStreamEntries,
		Approx: true,
		Values: map[string]interface{}{
			"topic":     rec.Topic,
			"data_type": rec.DataType,
			"frame_id":  rec.FrameID,
			"ts":        rec.Timestamp,
			"data":      string(data),
		},
	}).Err()
	if err != nil {
		p.logger.Debug("sensor mirror publish failed",
			zap.String("robot_id", rec.RobotID),
			zap.Error(err),
		)
	}
}

// PublishCommand mirrors one delivered command.
func (p *Publisher) PublishCommand(cmd adapter.Command) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(cmd.Payload)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: commandStream,
		MaxLen: maxStreamEntries,
		Approx: true,
		Values: map[string]interface{}{
			"command_id": cmd.CommandID,
			"robot_id":   cmd.RobotID,
			"type":       string(cmd.Type),
			"user_id":    cmd.UserID,
			"ts":         cmd.Timestamp,
			"payload":    string(payload),
		},
	}).Err()
	if err != nil {
		p.logger.Debug("command mirror publish failed",
			zap.String("robot_id", cmd.RobotID),
			zap.Error(err),
		)
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
