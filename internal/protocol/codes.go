package protocol

// Reject and error codes carried in command acks and error frames.
const (
	CodeEStopActive        = "ESTOP_ACTIVE"
	CodeLockedByOther      = "LOCKED_BY_OTHER"
	CodeAdapterUnavailable = "ADAPTER_UNAVAILABLE"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeRoleDenied         = "ROLE_DENIED"
	CodeRobotNotFound      = "ROBOT_NOT_FOUND"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeBadFrame           = "BAD_FRAME"
)
