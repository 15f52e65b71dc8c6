package detector

import (
	"strings"
	"time"

	"github.com/cortexbuild/cortex/internal/models"
)

// RiskStep assigns Level once a pattern reaches MinFrequency occurrences.
type RiskStep struct {
	MinFrequency int
	Level        models.RiskLevel
}

// Rule describes one recurring signature. Rules are data: adding a pattern
// type means adding a Rule, not editing Detect.
type Rule struct {
	PatternType models.PatternType

	// EventTypes is the family of related event types counted together
	EventTypes []string

	// Threshold is the minimum number of occurrences that forms a pattern
	Threshold int

	// Lookback bounds how far before the triggering event occurrences count
	Lookback time.Duration

	// RiskSteps must be sorted by ascending MinFrequency
	RiskSteps []RiskStep

	// EscalateOn lists payload severities that raise the risk level by one
	EscalateOn []string

	// Confidence is BaseConfidence at Threshold, plus ConfidenceStep per
	// additional occurrence, capped at MaxConfidence
	BaseConfidence float64
	ConfidenceStep float64
	MaxConfidence  float64
}

// Matches reports whether eventType belongs to the rule's family.
func (r *Rule) Matches(eventType string) bool {
	for _, t := range r.EventTypes {
		if strings.EqualFold(t, eventType) {
			return true
		}
	}
	return false
}

// riskFor returns the level of the highest step reached by frequency.
func (r *Rule) riskFor(frequency int) models.RiskLevel {
	level := models.RiskLow
	for _, step := range r.RiskSteps {
		if frequency >= step.MinFrequency {
			level = step.Level
		}
	}
	return level
}

func (r *Rule) escalates(severity string) bool {
	if severity == "" {
		return false
	}
	for _, s := range r.EscalateOn {
		if strings.EqualFold(s, severity) {
			return true
		}
	}
	return false
}

func (r *Rule) confidenceFor(frequency int) float64 {
	c := r.BaseConfidence + r.ConfidenceStep*float64(frequency-r.Threshold)
	if c > r.MaxConfidence {
		c = r.MaxConfidence
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// DefaultLookback is the trailing window used when a rule sets none.
const DefaultLookback = 30 * 24 * time.Hour

// DefaultRules returns the built-in signatures for safety, performance and
// cost patterns.
//
// The thresholds and steps are heuristics carried over from production
// dashboards and have not been calibrated against incident data.
func DefaultRules() []Rule {
	return []Rule{
		{
			PatternType: models.PatternSafetyViolation,
			EventTypes:  []string{"safety_incident", "safety_violation", "near_miss"},
			Threshold:   3,
			Lookback:    DefaultLookback,
			RiskSteps: []RiskStep{
				{MinFrequency: 1, Level: models.RiskMedium},
				{MinFrequency: 3, Level: models.RiskHigh},
				{MinFrequency: 5, Level: models.RiskCritical},
				{MinFrequency: 8, Level: models.RiskSystemic},
			},
			EscalateOn:     []string{"critical", "fatal"},
			BaseConfidence: 0.6,
			ConfidenceStep: 0.1,
			MaxConfidence:  0.95,
		},
		{
			PatternType: models.PatternPerformanceDegradation,
			EventTypes:  []string{"schedule_slip", "productivity_drop", "performance_issue", "quality_defect"},
			Threshold:   3,
			Lookback:    DefaultLookback,
			RiskSteps: []RiskStep{
				{MinFrequency: 1, Level: models.RiskLow},
				{MinFrequency: 3, Level: models.RiskMedium},
				{MinFrequency: 5, Level: models.RiskHigh},
				{MinFrequency: 8, Level: models.RiskCritical},
				{MinFrequency: 12, Level: models.RiskSystemic},
			},
			EscalateOn:     []string{"critical"},
			BaseConfidence: 0.6,
			ConfidenceStep: 0.1,
			MaxConfidence:  0.95,
		},
		{
			PatternType: models.PatternCostOverrun,
			EventTypes:  []string{"cost_variance", "budget_overrun", "change_order"},
			Threshold:   2,
			Lookback:    DefaultLookback,
			RiskSteps: []RiskStep{
				{MinFrequency: 1, Level: models.RiskLow},
				{MinFrequency: 2, Level: models.RiskMedium},
				{MinFrequency: 4, Level: models.RiskHigh},
				{MinFrequency: 6, Level: models.RiskCritical},
				{MinFrequency: 10, Level: models.RiskSystemic},
			},
			EscalateOn:     []string{"critical"},
			BaseConfidence: 0.6,
			ConfidenceStep: 0.1,
			MaxConfidence:  0.95,
		},
	}
}
