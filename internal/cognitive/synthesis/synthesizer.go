// Package synthesis fuses specialist responses into a root-cause hypothesis
// with an aggregate confidence and a risk assessment.
//
// Synthesis is a pure transform: the only inputs besides the pattern and the
// responses are the fixed knowledge table, the ID generator and the clock.
package synthesis

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/cortexbuild/cortex/internal/models"
)

const (
	// DefaultBoostDivisor and DefaultBoostCap shape the corroboration boost:
	// min(len(responses)/divisor, cap). Both are uncalibrated heuristics.
	DefaultBoostDivisor = 5.0
	DefaultBoostCap     = 0.2

	// DefaultCurrency applies when an exposure figure names no currency.
	DefaultCurrency = "GBP"
)

// Config tunes confidence aggregation.
type Config struct {
	BoostDivisor    float64
	BoostCap        float64
	DefaultCurrency string
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		BoostDivisor:    DefaultBoostDivisor,
		BoostCap:        DefaultBoostCap,
		DefaultCurrency: DefaultCurrency,
	}
}

// exposureKeys are checked in order for a financial exposure figure.
var exposureKeys = []string{"totalPenaltyRisk", "financialExposure"}

// Synthesizer builds hypotheses.
type Synthesizer struct {
	config    Config
	knowledge Knowledge
	insights  []Insight
	newID     func() string
	now       func() time.Time
}

// Option customises a Synthesizer.
type Option func(*Synthesizer)

// WithKnowledge replaces the knowledge table.
func WithKnowledge(k Knowledge) Option {
	return func(s *Synthesizer) { s.knowledge = k }
}

// WithInsights replaces the insight rules.
func WithInsights(insights []Insight) Option {
	return func(s *Synthesizer) { s.insights = insights }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// WithIDGenerator overrides hypothesis ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Synthesizer) { s.newID = newID }
}

// New creates a Synthesizer. Non-positive tuning values fall back to the
// defaults.
func New(cfg Config, opts ...Option) *Synthesizer {
	defaults := DefaultConfig()
	if cfg.BoostDivisor <= 0 {
		cfg.BoostDivisor = defaults.BoostDivisor
	}
	if cfg.BoostCap < 0 {
		cfg.BoostCap = defaults.BoostCap
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	s := &Synthesizer{
		config:    cfg,
		knowledge: DefaultKnowledge(),
		insights:  DefaultInsights(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize fuses responses into a hypothesis for pattern. With no
// responses the hypothesis is still produced, from the pattern alone, with
// confidence 0.
func (s *Synthesizer) Synthesize(pattern models.DetectedPattern, responses []models.CrossAgentResponse) models.RootCauseHypothesis {
	entry, ok := s.knowledge[pattern.PatternType]
	if !ok {
		entry = fallbackEntry
	}

	evidence := make([]models.CrossAgentResponse, len(responses))
	copy(evidence, responses)

	return models.RootCauseHypothesis{
		ID:                 s.newID(),
		Pattern:            pattern,
		Hypothesis:         s.compose(entry.Template, pattern, responses),
		SupportingEvidence: evidence,
		Confidence:         s.Confidence(responses),
		RiskAssessment: models.RiskAssessment{
			Level:                 pattern.RiskLevel,
			ImpactAreas:           append([]string{}, entry.ImpactAreas...),
			PotentialConsequences: append([]string{}, entry.PotentialConsequences...),
			FinancialImpact:       s.financialImpact(responses),
		},
		GeneratedAt: s.now(),
	}
}

// Confidence returns min(1, mean + min(n/divisor, cap)), or 0 for no
// responses.
func (s *Synthesizer) Confidence(responses []models.CrossAgentResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	values := make([]float64, len(responses))
	for i, r := range responses {
		values[i] = clamp01(r.Confidence)
	}
	boost := math.Min(float64(len(responses))/s.config.BoostDivisor, s.config.BoostCap)
	return clamp01(stat.Mean(values, nil) + boost)
}

func (s *Synthesizer) compose(tmpl Template, pattern models.DetectedPattern, responses []models.CrossAgentResponse) string {
	entity := "The affected entity"
	if primary, ok := pattern.PrimaryEntity(); ok {
		entity = primary.DisplayName()
	}
	fill := strings.NewReplacer(
		"{{entity}}", entity,
		"{{frequency}}", strconv.Itoa(pattern.Frequency),
		"{{days}}", strconv.Itoa(pattern.DaysSpanned()),
		"{{pattern}}", strings.ReplaceAll(string(pattern.PatternType), "_", " "),
	)

	parts := []string{fill.Replace(tmpl.Opening)}
	parts = append(parts, s.insightSentences(responses)...)
	parts = append(parts, fill.Replace(tmpl.Closing))
	return strings.Join(parts, " ")
}

func (s *Synthesizer) insightSentences(responses []models.CrossAgentResponse) []string {
	var sentences []string
	for _, r := range responses {
		for _, in := range s.insights {
			if in.Agent != r.AgentType {
				continue
			}
			v, ok := r.Data.Float(in.DataKey)
			if !ok || v <= 0 {
				continue
			}
			currency := r.Data.String("currency")
			if currency == "" {
				currency = s.config.DefaultCurrency
			}
			sentences = append(sentences, strings.NewReplacer(
				"{{value}}", formatNumber(v),
				"{{currency}}", currency,
			).Replace(in.Sentence))
		}
	}
	return sentences
}

// financialImpact takes the first positive exposure figure in response
// order and returns the range [x, 2x].
func (s *Synthesizer) financialImpact(responses []models.CrossAgentResponse) *models.FinancialImpact {
	for _, r := range responses {
		for _, key := range exposureKeys {
			v, ok := r.Data.Float(key)
			if !ok || v <= 0 {
				continue
			}
			currency := r.Data.String("currency")
			if currency == "" {
				currency = s.config.DefaultCurrency
			}
			return &models.FinancialImpact{Min: v, Max: v * 2, Currency: currency}
		}
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
