// Package store provides the playlist store that loads and publishes playlists.
package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/domain/item"
	"github.com/osa030/tvchannel/internal/domain/playlist"
)

// Errors
var (
	ErrSourceUnavailable = errors.New("playlist source unavailable")
	ErrMalformedPayload  = errors.New("malformed playlist payload")
)

// Fetcher retrieves a raw source document.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ParseFunc decodes a source document into items.
type ParseFunc func(data []byte) ([]item.Item, error)

// ReplacedFunc is called after a new playlist is published.
type ReplacedFunc func(p *playlist.Playlist)

// Store holds the current playlist.
// A failed load leaves the current playlist untouched.
type Store struct {
	mu sync.RWMutex

	// publishMu orders publication and OnReplaced delivery across loads.
	publishMu sync.Mutex

	fetcher Fetcher
	parse   ParseFunc

	current *playlist.Playlist
	source  string

	onReplaced []ReplacedFunc
}

// New creates a store with an empty playlist.
func New(fetcher Fetcher, parse ParseFunc) *Store {
	return &Store{
		fetcher: fetcher,
		parse:   parse,
		current: playlist.Empty(),
	}
}

// OnReplaced registers fn to be called after every successful load.
func (s *Store) OnReplaced(fn ReplacedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReplaced = append(s.onReplaced, fn)
}

// Current returns the last successfully loaded playlist.
func (s *Store) Current() *playlist.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Source returns the reference of the last successful load.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Load fetches and parses the document at ref and publishes it as the
// current playlist. Transport failures are marked ErrSourceUnavailable;
// documents of the wrong shape are marked ErrMalformedPayload.
//
// Overlapping loads may fetch concurrently, but each one publishes and
// runs its OnReplaced callbacks before the next publishes, so the last
// callback always sees Current.
func (s *Store) Load(ctx context.Context, ref string) (*playlist.Playlist, error) {
	data, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		zlog.Warn().Msgf("store: failed to fetch source: ref=%s error=%v", ref, err)
		return nil, errors.Mark(errors.Wrapf(err, "load %s", ref), ErrSourceUnavailable)
	}

	items, err := s.parse(data)
	if err != nil {
		zlog.Warn().Msgf("store: malformed source: ref=%s error=%v", ref, err)
		return nil, errors.Mark(errors.Wrapf(err, "load %s", ref), ErrMalformedPayload)
	}

	p := playlist.New(items)
	if err := p.CheckOrder(); err != nil {
		zlog.Warn().Msgf("store: rejected unsorted source: ref=%s error=%v", ref, err)
		return nil, errors.Mark(errors.Wrapf(err, "load %s", ref), ErrMalformedPayload)
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.current = p
	s.source = ref
	callbacks := make([]ReplacedFunc, len(s.onReplaced))
	copy(callbacks, s.onReplaced)
	s.mu.Unlock()

	zlog.Info().Msgf("store: playlist loaded: ref=%s items=%d", ref, p.Len())

	for _, fn := range callbacks {
		fn(p)
	}
	return p, nil
}
