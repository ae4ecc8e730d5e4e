// Package playlist provides the Playlist domain entity.
package playlist

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/tvchannel/internal/domain/item"
)

// ErrTimecodeOrder is returned when item timecodes decrease along the list.
var ErrTimecodeOrder = errors.New("timecodes are not in ascending order")

// Playlist is an ordered, index-addressable sequence of items.
// A Playlist is never mutated after construction; reloads replace it.
type Playlist struct {
	items []item.Item
}

// Empty returns a playlist with no items.
func Empty() *Playlist {
	return &Playlist{items: []item.Item{}}
}

// New creates a playlist holding a copy of items.
func New(items []item.Item) *Playlist {
	cp := make([]item.Item, len(items))
	copy(cp, items)
	return &Playlist{items: cp}
}

// Len returns the number of items. A nil playlist is empty.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// IsEmpty returns true if the playlist has no items.
func (p *Playlist) IsEmpty() bool {
	return p.Len() == 0
}

// At returns the item at index i.
func (p *Playlist) At(i int) (item.Item, bool) {
	if i < 0 || i >= p.Len() {
		return item.Item{}, false
	}
	return p.items[i], true
}

// Items returns a copy of the items.
func (p *Playlist) Items() []item.Item {
	result := make([]item.Item, p.Len())
	if p != nil {
		copy(result, p.items)
	}
	return result
}

// CheckOrder verifies that timecodes are non-decreasing.
func (p *Playlist) CheckOrder() error {
	for i := 1; i < p.Len(); i++ {
		if p.items[i].Timecode < p.items[i-1].Timecode {
			return errors.Wrapf(ErrTimecodeOrder, "item %d (%.3fs) precedes item %d (%.3fs)",
				i, p.items[i].Timecode, i-1, p.items[i-1].Timecode)
		}
	}
	return nil
}

// ResolveByTime returns the index of the item playing at time t.
// The scan runs from the end so that ties and times between two timecodes
// resolve to the most recently passed item. Returns 0 when no item has
// started yet, and -1 for an empty playlist.
func (p *Playlist) ResolveByTime(t float64) int {
	if p.IsEmpty() {
		return -1
	}
	for i := len(p.items) - 1; i >= 0; i-- {
		if p.items[i].Timecode <= t {
			return i
		}
	}
	return 0
}

// Clamp maps index into the bounds of this playlist.
// An empty playlist yields -1; an unset index (-1) on a non-empty playlist
// yields 0.
func (p *Playlist) Clamp(index int) int {
	n := p.Len()
	if n == 0 {
		return -1
	}
	if index < 0 {
		return 0
	}
	if index > n-1 {
		return n - 1
	}
	return index
}

// LastTimecode returns the timecode of the last item in seconds.
func (p *Playlist) LastTimecode() float64 {
	if p.IsEmpty() {
		return 0
	}
	return p.items[len(p.items)-1].Timecode
}
