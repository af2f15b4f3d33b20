package selection

import (
	"fmt"
	"math"

	"github.com/okian/httcp/internal/domain/disambiguate"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/preselect"
)

// Config groups every working point of the pair selection.
type Config struct {
	Channel     model.Channel
	Thresholds  preselect.Thresholds
	TieBreak    disambiguate.TieBreak
	PreSortLegs bool
}

// DefaultConfig returns the e-tau selection with standard working points.
func DefaultConfig() Config {
	return Config{
		Channel:     model.ETau,
		Thresholds:  preselect.DefaultThresholds(),
		TieBreak:    disambiguate.DefaultTieBreak(),
		PreSortLegs: true,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.Channel.Name == "":
		return fmt.Errorf("%w: channel name is empty", ErrInvalidConfig)
	case c.Channel.Leg1.Collection == "" || c.Channel.Leg2.Collection == "":
		return fmt.Errorf("%w: channel %q has an unnamed leg", ErrInvalidConfig, c.Channel.Name)
	case math.IsNaN(c.Thresholds.MinDeltaR) || c.Thresholds.MinDeltaR < 0:
		return fmt.Errorf("%w: min delta R %v", ErrInvalidConfig, c.Thresholds.MinDeltaR)
	case math.IsNaN(c.Thresholds.MaxTransverseMass) || c.Thresholds.MaxTransverseMass <= 0:
		return fmt.Errorf("%w: max transverse mass %v", ErrInvalidConfig, c.Thresholds.MaxTransverseMass)
	}
	return nil
}
