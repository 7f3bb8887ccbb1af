// Package adapter defines the contract between the gateway and the
// per-vendor robot transports, and the registry that owns the live
// instances.
//
// An adapter hides everything vendor-specific behind RobotAdapter: the
// gateway never sees ROS topics, MQTT sessions or vendor SDKs, only
// Commands going down and SensorRecords coming up. Implementations must
// be safe for concurrent SendCommand calls and for concurrent readers on
// the sensor channel.
package adapter

import (
	"context"
	"time"
)

// CommandType enumerates the actuation commands the gateway forwards.
type CommandType string

const (
	CmdVelocity      CommandType = "velocity"
	CmdNavGoal       CommandType = "navigation-goal"
	CmdNavCancel     CommandType = "navigation-cancel"
	CmdEmergencyStop CommandType = "emergency-stop"
	CmdLock          CommandType = "operation-lock"
	CmdUnlock        CommandType = "operation-unlock"
)

// Command is a single actuation request bound for a robot. CommandID is
// assigned by the gateway on ingress and echoed in the ack.
type Command struct {
	CommandID string
	RobotID   string
	Type      CommandType
	Payload   map[string]any
	UserID    string
	Timestamp int64 // ingress time, unix ms
}

// SensorRecord is one telemetry sample produced by an adapter.
type SensorRecord struct {
	RobotID   string
	Topic     string
	DataType  string
	FrameID   string
	Timestamp int64 // source time, unix ms, monotonic per (robot, topic)
	Data      map[string]any
}

// Capabilities describes what a connected robot supports. Velocity
// limits of zero mean "use the gateway defaults".
type Capabilities struct {
	SupportsVelocity   bool
	SupportsNavigation bool
	SupportsEStop      bool
	SupportsPause      bool
	MaxLinearVel       float64
	MaxAngularVel      float64
	SensorTopics       []string
}

// RobotAdapter is the plug-in contract. Connect and SendCommand must
// honor the context deadline; SensorStream returns a channel that is
// closed when the adapter disconnects.
type RobotAdapter interface {
	Name() string
	Connect(ctx context.Context, config map[string]any) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	SendCommand(ctx context.Context, cmd Command) error
	SensorStream() <-chan SensorRecord
	Capabilities() Capabilities
	EmergencyStop(ctx context.Context) error
}

// NewCommand stamps a command with the current ingress time.
func NewCommand(robotID string, cmdType CommandType, userID string, payload map[string]any) Command {
	return Command{
		RobotID:   robotID,
		Type:      cmdType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}
