package cursor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tvchannel/internal/domain/item"
	"github.com/osa030/tvchannel/internal/domain/playlist"
)

// fakePlayer records the commands it receives.
type fakePlayer struct {
	calls   []string
	seeks   []float64
	seekErr error
}

func (p *fakePlayer) GetCurrentTime() (float64, error) { return 0, nil }

func (p *fakePlayer) Seek(t float64) error {
	p.calls = append(p.calls, "seek")
	p.seeks = append(p.seeks, t)
	return p.seekErr
}

func (p *fakePlayer) Play() error {
	p.calls = append(p.calls, "play")
	return nil
}

// recorder collects published changes.
type recorder struct {
	changes []Change
}

func (r *recorder) Publish(change Change) {
	r.changes = append(r.changes, change)
}

func newPlaylist(timecodes ...float64) *playlist.Playlist {
	items := make([]item.Item, len(timecodes))
	for i, tc := range timecodes {
		items[i] = item.Item{Title: "lecture", Timecode: tc}
	}
	return playlist.New(items)
}

// newLoaded returns a cursor over timecodes with the initial change discarded.
func newLoaded(t *testing.T, timecodes ...float64) (*Cursor, *fakePlayer, *recorder) {
	t.Helper()
	player := &fakePlayer{}
	rec := &recorder{}
	c := New(player, rec)
	c.OnPlaylistReplaced(newPlaylist(timecodes...))
	require.Equal(t, 0, c.State().ActiveIndex)
	rec.changes = nil
	return c, player, rec
}

func assertInvariant(t *testing.T, c *Cursor) {
	t.Helper()
	n := c.Playlist().Len()
	idx := c.State().ActiveIndex
	if n == 0 {
		assert.Equal(t, -1, idx)
		return
	}
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, n)
}

func TestCursor_New(t *testing.T) {
	c := New(nil, nil)
	assert.Equal(t, State{ActiveIndex: -1}, c.State())
	_, ok := c.ActiveItem()
	assert.False(t, ok)
	assert.False(t, c.HasNext())
	assert.False(t, c.HasPrevious())
}

func TestCursor_FirstPlaylistStartsAtZero(t *testing.T) {
	rec := &recorder{}
	c := New(&fakePlayer{}, rec)

	c.OnPlaylistReplaced(newPlaylist(0, 30, 90))

	assert.Equal(t, 0, c.State().ActiveIndex)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, CauseReplace, rec.changes[0].Cause)
	assert.Equal(t, -1, rec.changes[0].Previous)
	require.NotNil(t, rec.changes[0].Item)
	assert.Equal(t, "lecture", rec.changes[0].Item.Title)
}

func TestCursor_OnTimeSample(t *testing.T) {
	tests := []struct {
		name        string
		sample      float64
		wantIndex   int
		wantChanges int
	}{
		{name: "stays on first item", sample: 10, wantIndex: 0, wantChanges: 0},
		{name: "moves to second item", sample: 45, wantIndex: 1, wantChanges: 1},
		{name: "negative time", sample: -5, wantIndex: 0, wantChanges: 0},
		{name: "past the end", sample: 1000, wantIndex: 2, wantChanges: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, player, rec := newLoaded(t, 0, 30, 90)

			c.OnTimeSample(tt.sample)

			assert.Equal(t, tt.wantIndex, c.State().ActiveIndex)
			assert.Equal(t, tt.sample, c.State().LastTime)
			assert.Len(t, rec.changes, tt.wantChanges)
			assert.Empty(t, player.calls, "time samples must never command the player")
			for _, ch := range rec.changes {
				assert.Equal(t, CauseTime, ch.Cause)
			}
		})
	}
}

func TestCursor_OnTimeSample_RepeatedSamplesEmitOnce(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)

	c.OnTimeSample(31)
	c.OnTimeSample(32)
	c.OnTimeSample(33)

	assert.Len(t, rec.changes, 1)
	assert.Equal(t, float64(33), c.State().LastTime)
	assert.Empty(t, player.calls)
}

func TestCursor_OnTimeSample_EmptyPlaylist(t *testing.T) {
	rec := &recorder{}
	c := New(&fakePlayer{}, rec)

	c.OnTimeSample(42)

	assert.Equal(t, State{ActiveIndex: -1, LastTime: 42}, c.State())
	assert.Empty(t, rec.changes)
}

func TestCursor_NavigateTo(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)

	require.NoError(t, c.NavigateTo(2))

	assert.Equal(t, State{ActiveIndex: 2, LastTime: 90}, c.State())
	assert.Equal(t, []string{"seek", "play"}, player.calls)
	assert.Equal(t, []float64{90}, player.seeks)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, CauseNavigation, rec.changes[0].Cause)
	assert.Equal(t, 0, rec.changes[0].Previous)
	assert.Equal(t, 2, rec.changes[0].State.ActiveIndex)
}

func TestCursor_NavigateTo_CurrentIndexIsNoop(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)

	require.NoError(t, c.NavigateTo(0))

	assert.Empty(t, rec.changes)
	assert.Empty(t, player.calls)
}

func TestCursor_NavigateTo_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{name: "negative", index: -1},
		{name: "equal to length", index: 3},
		{name: "far beyond", index: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, player, rec := newLoaded(t, 0, 30, 90)

			err := c.NavigateTo(tt.index)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfRange))
			assert.Equal(t, 0, c.State().ActiveIndex)
			assert.Empty(t, rec.changes)
			assert.Empty(t, player.calls)
		})
	}
}

func TestCursor_NavigateTo_EmptyPlaylist(t *testing.T) {
	c := New(&fakePlayer{}, &recorder{})
	err := c.NavigateTo(0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestCursor_NavigateTo_SeekFailureStillCommits(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)
	player.seekErr = errors.New("player detached")

	require.NoError(t, c.NavigateTo(1))

	assert.Equal(t, 1, c.State().ActiveIndex)
	assert.Len(t, rec.changes, 1)
	assert.Equal(t, []string{"seek"}, player.calls)
}

func TestCursor_NavigateRelative_Clamping(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)

	require.NoError(t, c.NavigateRelative(-1))
	assert.Equal(t, 0, c.State().ActiveIndex)
	assert.Empty(t, rec.changes)
	assert.False(t, c.HasPrevious())

	require.NoError(t, c.NavigateTo(2))
	rec.changes = nil
	player.calls = nil

	require.NoError(t, c.NavigateRelative(1))
	assert.Equal(t, 2, c.State().ActiveIndex)
	assert.Empty(t, rec.changes)
	assert.Empty(t, player.calls)
	assert.False(t, c.HasNext())
}

func TestCursor_NextPrevious(t *testing.T) {
	c, player, rec := newLoaded(t, 0, 30, 90)

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	require.NoError(t, c.Previous())

	assert.Equal(t, 1, c.State().ActiveIndex)
	assert.Equal(t, []float64{30, 90, 30}, player.seeks)
	require.Len(t, rec.changes, 3)
	assert.Equal(t, []int{1, 2, 1}, []int{
		rec.changes[0].State.ActiveIndex,
		rec.changes[1].State.ActiveIndex,
		rec.changes[2].State.ActiveIndex,
	})
	assert.True(t, c.HasNext())
	assert.True(t, c.HasPrevious())
}

func TestCursor_NavigateRelative_EmptyPlaylist(t *testing.T) {
	c := New(&fakePlayer{}, &recorder{})
	assert.NoError(t, c.Next())
	assert.NoError(t, c.Previous())
	assert.Equal(t, -1, c.State().ActiveIndex)
}

func TestCursor_OnPlaylistReplaced(t *testing.T) {
	tests := []struct {
		name        string
		newLength   int
		wantIndex   int
		wantChanged bool
	}{
		{name: "shrinks below active index", newLength: 2, wantIndex: 1, wantChanged: true},
		{name: "empty playlist", newLength: 0, wantIndex: -1, wantChanged: true},
		{name: "still in bounds", newLength: 6, wantIndex: 4, wantChanged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, player, rec := newLoaded(t, 0, 10, 20, 30, 40)
			require.NoError(t, c.NavigateTo(4))
			rec.changes = nil
			player.calls = nil

			timecodes := make([]float64, tt.newLength)
			for i := range timecodes {
				timecodes[i] = float64(i * 10)
			}
			c.OnPlaylistReplaced(newPlaylist(timecodes...))

			assert.Equal(t, tt.wantIndex, c.State().ActiveIndex)
			assert.Empty(t, player.calls, "replacement must not command the player")
			if tt.wantChanged {
				require.Len(t, rec.changes, 1)
				assert.Equal(t, CauseReplace, rec.changes[0].Cause)
				assert.Equal(t, 4, rec.changes[0].Previous)
			} else {
				assert.Empty(t, rec.changes)
			}
			assertInvariant(t, c)
		})
	}
}

func TestCursor_OnPlaylistReplaced_Nil(t *testing.T) {
	c, _, _ := newLoaded(t, 0, 30)
	c.OnPlaylistReplaced(nil)
	assert.Equal(t, -1, c.State().ActiveIndex)
	assertInvariant(t, c)
}

func TestCursor_InvariantAcrossSequence(t *testing.T) {
	c, _, _ := newLoaded(t, 0, 30, 90)

	steps := []func(){
		func() { c.OnTimeSample(50) },
		func() { _ = c.Next() },
		func() { _ = c.Next() },
		func() { c.OnPlaylistReplaced(newPlaylist(0)) },
		func() { c.OnTimeSample(500) },
		func() { _ = c.Previous() },
		func() { c.OnPlaylistReplaced(newPlaylist()) },
		func() { c.OnTimeSample(5) },
		func() { _ = c.Next() },
		func() { c.OnPlaylistReplaced(newPlaylist(0, 5, 10, 15)) },
		func() { _ = c.NavigateTo(3) },
		func() { c.OnTimeSample(7) },
	}

	for _, step := range steps {
		step()
		assertInvariant(t, c)
	}
	assert.Equal(t, 1, c.State().ActiveIndex)
}

func TestCursor_StaleTickReassertsUntilPlaybackCatchesUp(t *testing.T) {
	c, _, rec := newLoaded(t, 0, 30, 90)

	require.NoError(t, c.NavigateTo(2))
	// Playback has not reached the seek target yet.
	c.OnTimeSample(12)
	assert.Equal(t, 0, c.State().ActiveIndex)
	// Playback catches up.
	c.OnTimeSample(91)
	assert.Equal(t, 2, c.State().ActiveIndex)

	require.Len(t, rec.changes, 3)
	assert.Equal(t, []Cause{CauseNavigation, CauseTime, CauseTime},
		[]Cause{rec.changes[0].Cause, rec.changes[1].Cause, rec.changes[2].Cause})
}

func TestCause_String(t *testing.T) {
	assert.Equal(t, "time", CauseTime.String())
	assert.Equal(t, "navigation", CauseNavigation.String())
	assert.Equal(t, "replace", CauseReplace.String())
	assert.Equal(t, "unknown", Cause(42).String())
}

func TestCursor_View(t *testing.T) {
	c, _, _ := newLoaded(t, 0, 30, 90)
	require.NoError(t, c.NavigateTo(1))

	v := c.View()
	assert.Equal(t, State{ActiveIndex: 1, LastTime: 30}, v.State)
	assert.Equal(t, 3, v.Length)
	assert.True(t, v.HasNext)
	assert.True(t, v.HasPrevious)
	require.NotNil(t, v.Item)
	assert.Equal(t, float64(30), v.Item.Timecode)

	empty := New(nil, nil).View()
	assert.Nil(t, empty.Item)
	assert.Equal(t, -1, empty.State.ActiveIndex)
	assert.False(t, empty.HasNext)
}
