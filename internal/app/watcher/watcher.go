// Package watcher provides the poller that samples a player's playback time.
package watcher

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 1000 * time.Millisecond

// ReadFunc reads the current playback time in seconds.
// An error means the player is not ready; the tick is skipped.
type ReadFunc func() (float64, error)

// SampleFunc receives a playback time sample.
type SampleFunc func(t float64)

// TickerFunc creates a ticker channel and its stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// SkipFunc is notified when a tick is skipped because the read failed.
type SkipFunc func(err error)

// Watcher polls a playback time source on a fixed interval.
// At most one polling loop is active per Watcher.
type Watcher struct {
	mu sync.Mutex

	newTicker TickerFunc
	onSkip    SkipFunc

	cancel context.CancelFunc // Cancel function for the polling loop
	done   chan struct{}      // Closed when the polling loop exits
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTicker replaces the wall-clock ticker, e.g. with a manual one in tests.
func WithTicker(fn TickerFunc) Option {
	return func(w *Watcher) {
		w.newTicker = fn
	}
}

// WithSkipHook registers a hook called for every skipped tick.
func WithSkipHook(fn SkipFunc) Option {
	return func(w *Watcher) {
		w.onSkip = fn
	}
}

// New creates a stopped watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins polling read every interval and forwards each sample to onSample.
// A running loop is stopped first. A non-positive interval uses DefaultInterval.
func (w *Watcher) Start(interval time.Duration, read ReadFunc, onSample SampleFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()

	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticks, stopTicker := w.newTicker(interval)

	w.cancel = cancel
	w.done = done

	zlog.Debug().Msgf("watcher: polling started: interval=%v", interval)

	go func() {
		defer close(done)
		defer stopTicker()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				// Re-check so no sample is delivered after Stop.
				if ctx.Err() != nil {
					return
				}
				w.tick(read, onSample)
			}
		}
	}()
}

func (w *Watcher) tick(read ReadFunc, onSample SampleFunc) {
	t, err := read()
	if err != nil {
		zlog.Debug().Msgf("watcher: sample skipped: %v", err)
		if w.onSkip != nil {
			w.onSkip(err)
		}
		return
	}
	onSample(t)
}

// Stop cancels polling and waits for the loop to exit.
// Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
}

// stopLocked must be called with lock held.
func (w *Watcher) stopLocked() {
	if w.cancel == nil {
		return
	}

	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil

	zlog.Debug().Msg("watcher: polling stopped")
}

// Running returns true while a polling loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}
