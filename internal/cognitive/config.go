package cognitive

import (
	"fmt"
	"time"

	"github.com/cortexbuild/cortex/internal/cognitive/detector"
	"github.com/cortexbuild/cortex/internal/cognitive/executor"
	"github.com/cortexbuild/cortex/internal/cognitive/planner"
	"github.com/cortexbuild/cortex/internal/cognitive/synthesis"
	"github.com/cortexbuild/cortex/internal/models"
)

// Config tunes the pipeline. Every heuristic constant lives here so it can
// be calibrated against incident data without code changes.
type Config struct {
	// MaxQueries caps the cross-agent questions asked per pattern
	MaxQueries int `yaml:"maxQueries" json:"maxQueries"`

	// QueryTimeout bounds each specialist query
	QueryTimeout time.Duration `yaml:"queryTimeout" json:"queryTimeout"`

	// Concurrency limits in-flight specialist queries per event
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// BoostDivisor and BoostCap shape the corroboration confidence boost
	BoostDivisor float64 `yaml:"boostDivisor" json:"boostDivisor"`
	BoostCap     float64 `yaml:"boostCap" json:"boostCap"`

	// DefaultCurrency labels exposure figures that carry no currency
	DefaultCurrency string `yaml:"defaultCurrency" json:"defaultCurrency"`

	// Patterns overrides detector thresholds per pattern type
	Patterns map[models.PatternType]PatternOverride `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternOverride adjusts one detector rule. Zero fields keep the default.
type PatternOverride struct {
	Threshold int           `yaml:"threshold" json:"threshold"`
	Lookback  time.Duration `yaml:"lookback" json:"lookback"`
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxQueries:      planner.DefaultMaxQueries,
		QueryTimeout:    executor.DefaultTimeout,
		Concurrency:     executor.DefaultConcurrency,
		BoostDivisor:    synthesis.DefaultBoostDivisor,
		BoostCap:        synthesis.DefaultBoostCap,
		DefaultCurrency: synthesis.DefaultCurrency,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.MaxQueries < 1 {
		return fmt.Errorf("maxQueries must be at least 1, got %d", c.MaxQueries)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("queryTimeout must be positive, got %v", c.QueryTimeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.BoostDivisor <= 0 {
		return fmt.Errorf("boostDivisor must be positive, got %v", c.BoostDivisor)
	}
	if c.BoostCap < 0 || c.BoostCap > 1 {
		return fmt.Errorf("boostCap must be within [0,1], got %v", c.BoostCap)
	}
	for pt, o := range c.Patterns {
		if o.Threshold < 0 {
			return fmt.Errorf("patterns.%s.threshold must not be negative", pt)
		}
		if o.Lookback < 0 {
			return fmt.Errorf("patterns.%s.lookback must not be negative", pt)
		}
	}
	return nil
}

// detectorRules applies the pattern overrides to the default rules.
func (c Config) detectorRules() []detector.Rule {
	rules := detector.DefaultRules()
	for i := range rules {
		o, ok := c.Patterns[rules[i].PatternType]
		if !ok {
			continue
		}
		if o.Threshold > 0 {
			rules[i].Threshold = o.Threshold
		}
		if o.Lookback > 0 {
			rules[i].Lookback = o.Lookback
		}
	}
	return rules
}
