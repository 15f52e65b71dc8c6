package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PatternType classifies a recurring risk signature. The set is open: new
// types are introduced by adding detector, planner and knowledge rules.
type PatternType string

const (
	PatternSafetyViolation        PatternType = "safety_violation"
	PatternPerformanceDegradation PatternType = "performance_degradation"
	PatternCostOverrun            PatternType = "cost_overrun"
)

// RiskLevel is an ordered severity classification:
// low < medium < high < critical < systemic.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
	RiskSystemic
)

var riskLevelNames = []string{"low", "medium", "high", "critical", "systemic"}

// String returns the lower-case level name.
func (r RiskLevel) String() string {
	if r < RiskLow || r > RiskSystemic {
		return fmt.Sprintf("risk(%d)", int(r))
	}
	return riskLevelNames[r]
}

// ParseRiskLevel converts a level name into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, name := range riskLevelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return RiskLevel(i), nil
		}
	}
	return RiskLow, fmt.Errorf("unknown risk level %q", s)
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r >= other
}

// Escalate raises r by steps levels, capped at systemic.
func (r RiskLevel) Escalate(steps int) RiskLevel {
	next := r + RiskLevel(steps)
	if next > RiskSystemic {
		return RiskSystemic
	}
	if next < RiskLow {
		return RiskLow
	}
	return next
}

// MarshalJSON encodes the level by name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a level name.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// MarshalText lets RiskLevel appear as a YAML/koanf scalar.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a level name from configuration.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// PatternStatus is owned by the persistence collaborator after creation.
type PatternStatus string

const (
	PatternStatusActive   PatternStatus = "active"
	PatternStatusResolved PatternStatus = "resolved"
	PatternStatusExpired  PatternStatus = "expired"
)

// DetectedPattern is a recurring signature found for one entity.
type DetectedPattern struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenantId,omitempty"`
	PatternType      PatternType   `json:"patternType"`
	Frequency        int           `json:"frequency"`
	Confidence       float64       `json:"confidence"`
	RiskLevel        RiskLevel     `json:"riskLevel"`
	AffectedEntities []EntityRef   `json:"affectedEntities"`
	Timespan         TimeWindow    `json:"timespan"`
	Status           PatternStatus `json:"status"`
	DetectedAt       time.Time     `json:"detectedAt"`
}

// PrimaryEntity returns the first affected entity.
func (p *DetectedPattern) PrimaryEntity() (EntityRef, bool) {
	if len(p.AffectedEntities) == 0 {
		return EntityRef{}, false
	}
	return p.AffectedEntities[0], true
}

// DaysSpanned returns ceil((end-start) in days).
func (p *DetectedPattern) DaysSpanned() int {
	d := p.Timespan.End.Sub(p.Timespan.Start)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Validate enforces frequency >= 1, confidence in [0,1] and a non-empty
// entity list.
func (p *DetectedPattern) Validate() error {
	if p.Frequency < 1 {
		return NewValidationError("pattern frequency must be at least 1, got %d", p.Frequency)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return NewValidationError("pattern confidence must be within [0,1], got %f", p.Confidence)
	}
	if len(p.AffectedEntities) == 0 {
		return NewValidationError("pattern must affect at least one entity")
	}
	return nil
}
