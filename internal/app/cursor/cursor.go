package cursor

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/domain/item"
	"github.com/osa030/tvchannel/internal/domain/playlist"
)

// ErrOutOfRange is returned when navigation targets an index outside the playlist.
var ErrOutOfRange = errors.New("index out of range")

// Player is the playback capability the cursor drives.
type Player interface {
	GetCurrentTime() (float64, error)
	Seek(t float64) error
	Play() error
}

// Publisher receives active index changes.
type Publisher interface {
	Publish(change Change)
}

// Cursor tracks the active playlist item.
// Time samples move the index without seeking; navigation moves the index
// and seeks the player. Every transition runs under the cursor lock,
// including the player command and the published change.
type Cursor struct {
	mu sync.Mutex

	playlist *playlist.Playlist
	state    State

	player    Player
	publisher Publisher
}

// New creates a cursor over an empty playlist.
func New(player Player, publisher Publisher) *Cursor {
	return &Cursor{
		playlist:  playlist.Empty(),
		state:     State{ActiveIndex: -1},
		player:    player,
		publisher: publisher,
	}
}

// State returns a snapshot of the cursor state.
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Playlist returns the playlist the cursor currently indexes.
func (c *Cursor) Playlist() *playlist.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist
}

// ActiveItem returns the active item.
func (c *Cursor) ActiveItem() (item.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.At(c.state.ActiveIndex)
}

// View is a consistent read of the cursor.
type View struct {
	State       State
	Item        *item.Item
	Length      int
	HasNext     bool
	HasPrevious bool
}

// View returns the state, active item and edge flags under one lock.
func (c *Cursor) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:       c.state,
		Length:      c.playlist.Len(),
		HasNext:     c.state.ActiveIndex >= 0 && c.state.ActiveIndex < c.playlist.Len()-1,
		HasPrevious: c.state.ActiveIndex > 0,
	}
	if it, ok := c.playlist.At(c.state.ActiveIndex); ok {
		v.Item = &it
	}
	return v
}

// HasNext returns true if Next would move the cursor.
func (c *Cursor) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveIndex >= 0 && c.state.ActiveIndex < c.playlist.Len()-1
}

// HasPrevious returns true if Previous would move the cursor.
func (c *Cursor) HasPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveIndex > 0
}

// OnTimeSample resolves the active item from a playback time sample.
// It never commands the player: the time already reflects the index.
func (c *Cursor) OnTimeSample(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.LastTime = t
	if c.playlist.IsEmpty() {
		return
	}

	candidate := c.playlist.ResolveByTime(t)
	if candidate == c.state.ActiveIndex {
		return
	}

	zlog.Debug().Msgf("cursor: time sample moved index: time=%.3f from=%d to=%d",
		t, c.state.ActiveIndex, candidate)
	c.setIndexLocked(candidate, CauseTime)
}

// NavigateTo makes index the active item and seeks the player to its timecode.
// Navigating to the active index is a no-op.
func (c *Cursor) NavigateTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.navigateLocked(index)
}

// NavigateRelative moves the cursor by delta items.
// Moves past either end are ignored.
func (c *Cursor) NavigateRelative(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.playlist.Len()
	if n == 0 {
		return nil
	}

	target := c.state.ActiveIndex + delta
	if target < 0 || target >= n {
		zlog.Debug().Msgf("cursor: relative navigation clamped at edge: index=%d delta=%d length=%d",
			c.state.ActiveIndex, delta, n)
		return nil
	}
	return c.navigateLocked(target)
}

// Next moves the cursor to the following item.
func (c *Cursor) Next() error {
	return c.NavigateRelative(1)
}

// Previous moves the cursor to the preceding item.
func (c *Cursor) Previous() error {
	return c.NavigateRelative(-1)
}

// OnPlaylistReplaced switches the cursor to a newly loaded playlist and
// clamps the active index into its bounds. The player is not commanded.
func (c *Cursor) OnPlaylistReplaced(p *playlist.Playlist) {
	if p == nil {
		p = playlist.Empty()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.playlist = p
	clamped := p.Clamp(c.state.ActiveIndex)
	if clamped == c.state.ActiveIndex {
		return
	}

	zlog.Debug().Msgf("cursor: playlist replaced, index clamped: from=%d to=%d length=%d",
		c.state.ActiveIndex, clamped, p.Len())
	c.setIndexLocked(clamped, CauseReplace)
}

// navigateLocked must be called with lock held.
func (c *Cursor) navigateLocked(index int) error {
	n := c.playlist.Len()
	if index < 0 || index >= n {
		return errors.Wrapf(ErrOutOfRange, "navigate to %d (length %d)", index, n)
	}
	if index == c.state.ActiveIndex {
		return nil
	}

	target, _ := c.playlist.At(index)
	c.state.LastTime = target.Timecode
	c.setIndexLocked(index, CauseNavigation)

	if c.player == nil {
		return nil
	}
	if err := c.player.Seek(target.Timecode); err != nil {
		zlog.Warn().Msgf("cursor: player seek failed: timecode=%.3f error=%v", target.Timecode, err)
		return nil
	}
	if err := c.player.Play(); err != nil {
		zlog.Warn().Msgf("cursor: player play failed: error=%v", err)
	}
	return nil
}

// setIndexLocked updates the active index and publishes the change.
// Must be called with lock held.
func (c *Cursor) setIndexLocked(index int, cause Cause) {
	previous := c.state.ActiveIndex
	c.state.ActiveIndex = index

	if c.publisher == nil {
		return
	}

	change := Change{
		State:    c.state,
		Previous: previous,
		Cause:    cause,
	}
	if it, ok := c.playlist.At(index); ok {
		change.Item = &it
	}
	c.publisher.Publish(change)
}
