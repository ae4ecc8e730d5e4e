package playback

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/infra/config"
)

// Player types
const (
	TypeClock  = "clock"
	TypeRemote = "remote"
)

// NewFromConfig creates the player selected by configuration.
func NewFromConfig(cfg config.PlayerConfig) (Player, error) {
	zlog.Debug().Msgf("creating player: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case TypeClock:
		var c ClockConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, errors.Wrapf(err, "player type %s", cfg.Type)
		}
		return NewClockPlayer(c), nil

	case TypeRemote:
		var c RemoteConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, errors.Wrapf(err, "player type %s", cfg.Type)
		}
		return NewRemotePlayer(c), nil

	default:
		return nil, errors.Newf("unsupported player type: %s", cfg.Type)
	}
}

// decodeSettings decodes settings into out, applies defaults and validates.
func decodeSettings(settings map[string]any, out any) error {
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := mapstructure.WeakDecode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
