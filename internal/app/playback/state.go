// Package playback provides the players the cursor drives.
package playback

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNotReady = errors.New("player not ready")
	ErrNegative = errors.New("negative playback time")
)

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing loaded or no time observed yet
	StatePlaying              // Position advances
	StatePaused               // Position is held
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ParseState parses a state name as produced by String.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return StateIdle, nil
	case "playing":
		return StatePlaying, nil
	case "paused":
		return StatePaused, nil
	default:
		return StateIdle, errors.Newf("unknown playback state: %q", s)
	}
}

// Player is a controllable playback position.
type Player interface {
	GetCurrentTime() (float64, error)
	Seek(t float64) error
	Play() error
	Pause() error
	State() State
}
