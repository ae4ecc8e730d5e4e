package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ClockConfig holds clock player configuration.
type ClockConfig struct {
	StartOffsetSec float64 `mapstructure:"start_offset_sec" validate:"gte=0"`
	DurationSec    float64 `mapstructure:"duration_sec" validate:"gte=0"` // 0 means unbounded
	Rate           float64 `mapstructure:"rate" default:"1" validate:"gt=0,lte=16"`
	Autoplay       bool    `mapstructure:"autoplay" default:"true"`
}

// ClockPlayer is a headless player whose position follows the wall clock.
type ClockPlayer struct {
	mu sync.Mutex

	config ClockConfig
	now    func() time.Time

	state     State
	position  float64   // Position at startedAt (or held position when paused)
	startedAt time.Time // Wall time when playback last started
}

// NewClockPlayer creates a clock player positioned at StartOffsetSec.
func NewClockPlayer(config ClockConfig) *ClockPlayer {
	return newClockPlayer(config, time.Now)
}

func newClockPlayer(config ClockConfig, now func() time.Time) *ClockPlayer {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	p := &ClockPlayer{
		config:   config,
		now:      now,
		state:    StatePaused,
		position: config.StartOffsetSec,
	}
	if config.Autoplay {
		p.state = StatePlaying
		p.startedAt = toWallTime(now())
	}
	return p
}

// GetCurrentTime returns the current position in seconds.
func (p *ClockPlayer) GetCurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked(), nil
}

// Seek moves the position to t, keeping the play state.
func (p *ClockPlayer) Seek(t float64) error {
	if t < 0 {
		return errors.Wrapf(ErrNegative, "seek to %.3f", t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = p.clampLocked(t)
	p.startedAt = toWallTime(p.now())
	zlog.Debug().Msgf("playback: clock seek: position=%.3f state=%s", p.position, p.state)
	return nil
}

// Play starts or resumes playback.
func (p *ClockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		return nil
	}
	p.state = StatePlaying
	p.startedAt = toWallTime(p.now())
	return nil
}

// Pause holds the current position.
func (p *ClockPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return nil
	}
	p.position = p.positionLocked()
	p.state = StatePaused
	return nil
}

// State returns the playback state.
func (p *ClockPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// positionLocked must be called with lock held.
func (p *ClockPlayer) positionLocked() float64 {
	if p.state != StatePlaying {
		return p.position
	}
	elapsed := toWallTime(p.now()).Sub(p.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return p.clampLocked(p.position + elapsed.Seconds()*p.config.Rate)
}

func (p *ClockPlayer) clampLocked(t float64) float64 {
	if p.config.DurationSec > 0 && t > p.config.DurationSec {
		return p.config.DurationSec
	}
	return t
}

// toWallTime returns the time with monotonic clock stripped.
// Differences are then computed on wall clock time.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
