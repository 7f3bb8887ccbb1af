// Package protocol defines the wire envelope exchanged with browser
// clients and the codec that moves it between MessagePack and JSON.
package protocol

import "time"

// MessageType discriminates the envelope payload.
type MessageType string

const (
	// Client -> gateway
	MsgTypeAuth             MessageType = "auth"
	MsgTypeVelocityCommand  MessageType = "velocity_cmd"
	MsgTypeNavigationGoal   MessageType = "nav_goal"
	MsgTypeNavigationCancel MessageType = "nav_cancel"
	MsgTypeEmergencyStop    MessageType = "estop"
	MsgTypeOperationLock    MessageType = "op_lock"
	MsgTypeOperationUnlock  MessageType = "op_unlock"
	MsgTypeSubscribe        MessageType = "subscribe"
	MsgTypeUnsubscribe      MessageType = "unsubscribe"
	MsgTypePing             MessageType = "ping"

	// Gateway -> client
	MsgTypeSensorData       MessageType = "sensor_data"
	MsgTypeRobotStatus      MessageType = "robot_status"
	MsgTypeCommandAck       MessageType = "cmd_ack"
	MsgTypeLockStatus       MessageType = "lock_status"
	MsgTypeConnectionStatus MessageType = "conn_status"
	MsgTypeError            MessageType = "error"
	MsgTypePong             MessageType = "pong"
	MsgTypeSafetyAlert      MessageType = "safety_alert"
)

// Message is the envelope shared by every frame in both directions.
// Field absence and explicit null are equivalent; unknown types decode
// successfully and are rejected by the session layer.
type Message struct {
	Type      MessageType    `msgpack:"type" json:"type"`
	Topic     string         `msgpack:"topic,omitempty" json:"topic,omitempty"`
	RobotID   string         `msgpack:"robot_id,omitempty" json:"robot_id,omitempty"`
	UserID    string         `msgpack:"user_id,omitempty" json:"user_id,omitempty"`
	Timestamp int64          `msgpack:"ts" json:"ts"`
	Payload   map[string]any `msgpack:"payload,omitempty" json:"payload,omitempty"`
	Error     string         `msgpack:"error,omitempty" json:"error,omitempty"`
}

// NewMessage returns an envelope stamped with the current time in
// milliseconds and an initialized payload map.
func NewMessage(msgType MessageType, robotID string) *Message {
	return &Message{
		Type:      msgType,
		RobotID:   robotID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   make(map[string]any),
	}
}

// VelocityPayload is the body of a velocity_cmd frame. Linear components
// are m/s, angular is rad/s.
type VelocityPayload struct {
	LinearX  float64 `msgpack:"linear_x" json:"linear_x"`
	LinearY  float64 `msgpack:"linear_y" json:"linear_y"`
	AngularZ float64 `msgpack:"angular_z" json:"angular_z"`
}

// NavigationGoalPayload is the body of a nav_goal frame.
type NavigationGoalPayload struct {
	X                    float64 `msgpack:"x" json:"x"`
	Y                    float64 `msgpack:"y" json:"y"`
	Z                    float64 `msgpack:"z" json:"z"`
	OrientationW         float64 `msgpack:"ow" json:"ow"`
	FrameID              string  `msgpack:"frame_id" json:"frame_id"`
	TolerancePosition    float64 `msgpack:"tol_pos" json:"tol_pos"`
	ToleranceOrientation float64 `msgpack:"tol_ori" json:"tol_ori"`
}

// EStopPayload is the body of an estop frame. Activate=false is a
// release, which is the only path that clears an active E-Stop.
type EStopPayload struct {
	Activate bool   `msgpack:"activate" json:"activate"`
	Reason   string `msgpack:"reason" json:"reason"`
}

// SensorDataPayload is the body of a sensor_data frame.
type SensorDataPayload struct {
	DataType string         `msgpack:"data_type" json:"data_type"`
	FrameID  string         `msgpack:"frame_id" json:"frame_id"`
	Data     map[string]any `msgpack:"data" json:"data"`
}

// AuthPayload is the body of the first frame on every connection.
type AuthPayload struct {
	Token string `msgpack:"token" json:"token"`
}
