// Package cursor provides the playback-synchronized playlist cursor.
package cursor

import "github.com/osa030/tvchannel/internal/domain/item"

// State is the cursor state.
// ActiveIndex is -1 if and only if the playlist is empty.
type State struct {
	ActiveIndex int     // Index of the active item
	LastTime    float64 // Last observed sample or seek target, in seconds
}

// Cause identifies what triggered an active index change.
type Cause int

const (
	CauseTime       Cause = iota // Playback time passed a timecode
	CauseNavigation              // Explicit user navigation
	CauseReplace                 // Playlist was replaced
)

// String returns the string representation of the cause.
func (c Cause) String() string {
	switch c {
	case CauseTime:
		return "time"
	case CauseNavigation:
		return "navigation"
	case CauseReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change describes one active index change.
type Change struct {
	State    State
	Previous int        // Active index before the change
	Cause    Cause      // What triggered the change
	Item     *item.Item // Active item (nil when the playlist is empty)
}
