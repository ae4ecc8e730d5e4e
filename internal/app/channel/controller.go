// Package channel provides the controller that wires a channel's playlist,
// cursor, poller and player together.
package channel

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/app/cursor"
	"github.com/osa030/tvchannel/internal/app/notification"
	"github.com/osa030/tvchannel/internal/app/playback"
	"github.com/osa030/tvchannel/internal/app/store"
	"github.com/osa030/tvchannel/internal/app/watcher"
	"github.com/osa030/tvchannel/internal/domain/item"
	"github.com/osa030/tvchannel/internal/domain/playlist"
	infrachannel "github.com/osa030/tvchannel/internal/infra/channel"
	"github.com/osa030/tvchannel/internal/infra/config"
	"github.com/osa030/tvchannel/internal/infra/metrics"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("channel controller is closed")

// Options holds controller configuration.
type Options struct {
	Name           string
	Source         string
	PollInterval   time.Duration
	ReloadInterval time.Duration // 0 disables periodic reload
	LoadTimeout    time.Duration
}

// Snapshot is a consistent view of the channel for API consumers.
type Snapshot struct {
	Name        string
	Source      string
	State       cursor.State
	Item        *item.Item
	Length      int
	HasNext     bool
	HasPrevious bool
	PlayerState playback.State
}

// Controller owns one channel: its playlist store, cursor, notifier,
// time watcher and player.
type Controller struct {
	opts Options

	store    *store.Store
	cursor   *cursor.Cursor
	notifier *notification.Manager
	watcher  *watcher.Watcher
	player   playback.Player
	metrics  *metrics.Metrics

	mu      sync.Mutex
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// New creates a controller. met may be nil to disable metric recording.
func New(opts Options, fetcher store.Fetcher, player playback.Player, met *metrics.Metrics, watcherOpts ...watcher.Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}

	c := &Controller{
		opts:     opts,
		store:    store.New(fetcher, infrachannel.Parse),
		notifier: notification.NewManager(),
		player:   player,
		metrics:  met,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if met != nil {
		watcherOpts = append(watcherOpts, watcher.WithSkipHook(func(error) { met.IncSamplesSkipped() }))
		c.notifier.Subscribe(func(change cursor.Change) {
			met.ObserveTransition(change.Cause.String(), change.State.ActiveIndex)
		})
	}

	c.watcher = watcher.New(watcherOpts...)
	c.cursor = cursor.New(player, c.notifier)
	c.store.OnReplaced(func(p *playlist.Playlist) {
		c.cursor.OnPlaylistReplaced(p)
		if met != nil {
			met.SetPlaylistLength(p.Len())
		}
	})

	return c
}

// NewFromConfig creates a controller from application configuration.
func NewFromConfig(cfg *config.Config, met *metrics.Metrics) (*Controller, error) {
	player, err := playback.NewFromConfig(cfg.Player)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create player")
	}

	client := infrachannel.New(infrachannel.Config{Timeout: cfg.FetchTimeout()})

	return New(Options{
		Name:           cfg.Channel.Name,
		Source:         cfg.Channel.Source,
		PollInterval:   cfg.PollInterval(),
		ReloadInterval: cfg.ReloadInterval(),
		LoadTimeout:    cfg.FetchTimeout(),
	}, client, player, met), nil
}

// Start begins polling the player and loads the configured source.
// Polling keeps running when the initial load fails; the load error is
// returned so the caller can report it, and Reload may be retried.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true

	// Still under mu: a concurrent Close either sees these running and
	// stops them, or has already marked the controller closed.
	c.watcher.Start(c.opts.PollInterval, c.player.GetCurrentTime, c.cursor.OnTimeSample)

	if c.opts.ReloadInterval > 0 {
		c.wg.Add(1)
		go c.reloadLoop(c.opts.ReloadInterval)
	}
	c.mu.Unlock()

	zlog.Info().Msgf("channel started: name=%s source=%s poll=%v reload=%v",
		c.opts.Name, c.opts.Source, c.opts.PollInterval, c.opts.ReloadInterval)

	_, err := c.Reload(ctx, c.opts.Source)
	return err
}

// Reload loads ref, or the last loaded source when ref is empty.
// On failure the current playlist is kept.
func (c *Controller) Reload(ctx context.Context, ref string) (*playlist.Playlist, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if ref == "" {
		ref = c.store.Source()
	}
	if ref == "" {
		ref = c.opts.Source
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	defer cancel()

	p, err := c.store.Load(ctx, ref)
	c.observeLoad(err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Controller) observeLoad(err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case err == nil:
		c.metrics.ObserveLoad(metrics.LoadOK)
	case errors.Is(err, store.ErrMalformedPayload):
		c.metrics.ObserveLoad(metrics.LoadMalformed)
	default:
		c.metrics.ObserveLoad(metrics.LoadUnavailable)
	}
}

// reloadLoop reloads the current source periodically.
func (c *Controller) reloadLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Reload(c.ctx, ""); err != nil {
				zlog.Warn().Msgf("channel: periodic reload failed: %v", err)
			}
		}
	}
}

// Cursor returns the channel cursor.
func (c *Controller) Cursor() *cursor.Cursor {
	return c.cursor
}

// Notifier returns the change notifier.
func (c *Controller) Notifier() *notification.Manager {
	return c.notifier
}

// Store returns the playlist store.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Player returns the player driven by the cursor.
func (c *Controller) Player() playback.Player {
	return c.player
}

// Name returns the channel name.
func (c *Controller) Name() string {
	return c.opts.Name
}

// Snapshot returns the current channel view.
func (c *Controller) Snapshot() Snapshot {
	v := c.cursor.View()
	return Snapshot{
		Name:        c.opts.Name,
		Source:      c.store.Source(),
		State:       v.State,
		Item:        v.Item,
		Length:      v.Length,
		HasNext:     v.HasNext,
		HasPrevious: v.HasPrevious,
		PlayerState: c.player.State(),
	}
}

// Polling reports whether the player is being sampled.
func (c *Controller) Polling() bool {
	return c.watcher.Running()
}

// SequencedSnapshot returns the current view together with the sequence
// number of the last change it reflects.
func (c *Controller) SequencedSnapshot() (Snapshot, uint64) {
	for {
		before := c.notifier.SequenceNo()
		snap := c.Snapshot()
		// Transitions bump the sequence number under the cursor lock, so an
		// unchanged number means snap saw no transition past it.
		if c.notifier.SequenceNo() == before {
			return snap, before
		}
	}
}

// Done returns a channel that is closed when the controller is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops polling first, then periodic reload, and drops subscribers.
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.watcher.Stop()
	c.cancel()
	c.wg.Wait()
	c.notifier.Close()
	close(c.done)

	zlog.Info().Msgf("channel closed: name=%s", c.opts.Name)
}
