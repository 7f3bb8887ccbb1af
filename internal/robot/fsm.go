package robot

import "fmt"

// State is a robot lifecycle state.
type State string

const (
	StateIdle     State = "IDLE"
	StateMoving   State = "MOVING"
	StatePaused   State = "PAUSED"
	StateCharging State = "CHARGING"
	StateError    State = "ERROR"
	StateOffline  State = "OFFLINE"
)

// transitions is the allowed-transition table. Offline is reachable from
// any state on heartbeat timeout and Error is always reachable as a
// forced safety override; both are special-cased in CanTransition.
var transitions = map[State][]State{
	StateIdle:     {StateMoving, StateCharging, StateError},
	StateMoving:   {StateIdle, StatePaused, StateError},
	StatePaused:   {StateMoving, StateIdle, StateError},
	StateCharging: {StateIdle, StateError},
	StateError:    {StateIdle},
	StateOffline:  {StateIdle},
}

// ValidState reports whether s is one of the six lifecycle states.
func ValidState(s State) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	if !ValidState(from) || !ValidState(to) {
		return false
	}
	if from == to {
		return true
	}
	// Safety overrides: forced Error entry and heartbeat Offline are
	// permitted from anywhere.
	if to == StateError || to == StateOffline {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError is returned when a status update violates the
// FSM table.
type IllegalTransitionError struct {
	RobotID string
	From    State
	To      State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition for robot %s: %s -> %s", e.RobotID, e.From, e.To)
}
