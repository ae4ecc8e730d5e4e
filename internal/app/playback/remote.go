package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// RemoteConfig holds remote player configuration.
type RemoteConfig struct {
	// StaleAfterMs marks the player not ready when no report arrived for this long.
	// 0 disables staleness.
	StaleAfterMs int `mapstructure:"stale_after_ms" default:"5000" validate:"gte=0"`
	// MaxPendingCommands bounds the command queue; the oldest are dropped.
	MaxPendingCommands int `mapstructure:"max_pending_commands" default:"16" validate:"gte=1,lte=1024"`
}

// CommandType represents a command for the remote client.
type CommandType int

const (
	CommandSeek  CommandType = iota // Seek to Time
	CommandPlay                     // Start playback
	CommandPause                    // Pause playback
)

// String returns the string representation of the command type.
func (c CommandType) String() string {
	switch c {
	case CommandSeek:
		return "seek"
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Command is an instruction queued for the remote client.
type Command struct {
	Type CommandType
	Time float64 // Seek target (CommandSeek only)
}

// RemotePlayer mirrors a player running in a remote client.
// The client reports its position with ReportTime and collects the
// commands issued by the cursor with TakeCommands.
type RemotePlayer struct {
	mu sync.Mutex

	config RemoteConfig
	now    func() time.Time

	state      State
	position   float64
	reportedAt time.Time
	pending    []Command
}

// NewRemotePlayer creates a remote player that is not ready until the first report.
func NewRemotePlayer(config RemoteConfig) *RemotePlayer {
	return newRemotePlayer(config, time.Now)
}

func newRemotePlayer(config RemoteConfig, now func() time.Time) *RemotePlayer {
	if config.MaxPendingCommands <= 0 {
		config.MaxPendingCommands = 16
	}
	return &RemotePlayer{
		config:  config,
		now:     now,
		state:   StateIdle,
		pending: make([]Command, 0),
	}
}

// ReportTime records the position reported by the client.
func (p *RemotePlayer) ReportTime(t float64, paused bool) error {
	if t < 0 {
		return errors.Wrapf(ErrNegative, "report %.3f", t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = t
	p.reportedAt = p.now()
	if paused {
		p.state = StatePaused
	} else {
		p.state = StatePlaying
	}
	return nil
}

// TakeCommands returns and clears the pending commands.
func (p *RemotePlayer) TakeCommands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmds := p.pending
	p.pending = make([]Command, 0)
	return cmds
}

// GetCurrentTime returns the last reported position.
func (p *RemotePlayer) GetCurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateIdle {
		return 0, ErrNotReady
	}
	if p.config.StaleAfterMs > 0 {
		age := p.now().Sub(p.reportedAt)
		if age > time.Duration(p.config.StaleAfterMs)*time.Millisecond {
			return 0, errors.Wrapf(ErrNotReady, "last report %v ago", age.Round(time.Millisecond))
		}
	}
	return p.position, nil
}

// Seek queues a seek for the client and assumes it succeeds.
func (p *RemotePlayer) Seek(t float64) error {
	if t < 0 {
		return errors.Wrapf(ErrNegative, "seek to %.3f", t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = t
	p.enqueueLocked(Command{Type: CommandSeek, Time: t})
	return nil
}

// Play queues a play command.
func (p *RemotePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enqueueLocked(Command{Type: CommandPlay})
	return nil
}

// Pause queues a pause command.
func (p *RemotePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enqueueLocked(Command{Type: CommandPause})
	return nil
}

// State returns the last reported playback state.
func (p *RemotePlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// enqueueLocked must be called with lock held.
func (p *RemotePlayer) enqueueLocked(cmd Command) {
	if len(p.pending) >= p.config.MaxPendingCommands {
		dropped := p.pending[0]
		p.pending = p.pending[1:]
		zlog.Warn().Msgf("playback: remote command queue full, dropped %s", dropped.Type)
	}
	p.pending = append(p.pending, cmd)
}
