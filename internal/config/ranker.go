package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/botwatch/internal/scoring"
)

// EnvRankerPrefix prefixes the per-weight overrides, e.g.
// BOTWATCH_RANKER_BOT_THRESHOLD or BOTWATCH_RANKER_IS_PRIVATE.
const EnvRankerPrefix = "BOTWATCH_RANKER_"

// RankerConfig holds partial weight overrides applied over the shipped weights.
type RankerConfig struct {
	scoring.Overrides
}

// Weights returns the effective weights.
func (c *RankerConfig) Weights() scoring.Weights {
	return c.Apply(scoring.DefaultWeights())
}

// Finalize applies environment variable overrides and validates the result.
func (c *RankerConfig) Finalize() error {
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.Weights().Validate()
}

// Merge overwrites every weight set in overlay.
func (c *RankerConfig) Merge(overlay *RankerConfig) {
	c.Overrides.Merge(&overlay.Overrides)
}

func (c *RankerConfig) loadEnv() error {
	for _, f := range c.Fields() {
		name := EnvRankerPrefix + strings.ToUpper(f.Name)
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*f.Slot = &n
	}
	return nil
}
