package strategy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cortexbuild/cortex/internal/models"
)

// Generator converts a hypothesis into a prioritised action plan.
type Generator struct {
	rules Rules
	newID func() string
}

// New returns a Generator over rules.
func New(rules Rules) *Generator {
	return &Generator{rules: rules, newID: uuid.NewString}
}

// NewDefault returns a Generator over DefaultRules.
func NewDefault() *Generator {
	return New(DefaultRules())
}

// WithIDGenerator overrides action ID generation.
func (g *Generator) WithIDGenerator(newID func() string) *Generator {
	g.newID = newID
	return g
}

// Generate maps the hypothesis's impact areas, then its consequences, to
// actions and partitions them by priority. A hypothesis with no impact areas
// yields an empty plan.
func (g *Generator) Generate(h models.RootCauseHypothesis) models.ActionPlan {
	var plan models.ActionPlan
	if len(h.RiskAssessment.ImpactAreas) == 0 {
		return plan
	}

	fill := replacer(h)
	seen := make(map[models.ActionPriority]map[string]struct{})

	add := func(t ActionTemplate) {
		title := fill.Replace(t.Title)
		if seen[t.Priority] == nil {
			seen[t.Priority] = make(map[string]struct{})
		}
		if _, dup := seen[t.Priority][title]; dup {
			return
		}
		seen[t.Priority][title] = struct{}{}

		action := models.StrategicAction{
			ID:           g.newID(),
			HypothesisID: h.ID,
			Priority:     t.Priority,
			Category:     t.Category,
			Title:        title,
			Description:  fill.Replace(t.Description),
			Status:       models.ActionStatusPending,
			CreatedAt:    h.GeneratedAt,
		}
		switch t.Priority {
		case models.ActionImmediate:
			plan.ImmediateActions = append(plan.ImmediateActions, action)
		case models.ActionShortTerm:
			plan.ShortTermActions = append(plan.ShortTermActions, action)
		case models.ActionStrategic:
			plan.StrategicActions = append(plan.StrategicActions, action)
		}
	}

	for _, area := range h.RiskAssessment.ImpactAreas {
		for _, t := range g.rules.ImpactAreas[area] {
			add(t)
		}
	}
	for _, consequence := range h.RiskAssessment.PotentialConsequences {
		lower := strings.ToLower(consequence)
		for _, rule := range g.rules.Consequences {
			if strings.Contains(lower, strings.ToLower(rule.Match)) {
				for _, t := range rule.Actions {
					add(t)
				}
			}
		}
	}
	return plan
}

func replacer(h models.RootCauseHypothesis) *strings.Replacer {
	entity := "the affected entity"
	if primary, ok := h.Pattern.PrimaryEntity(); ok {
		entity = primary.DisplayName()
	}
	exposure := "not quantified"
	if fi := h.RiskAssessment.FinancialImpact; fi != nil {
		exposure = fmt.Sprintf("%s %.0f-%.0f", fi.Currency, fi.Min, fi.Max)
	}
	return strings.NewReplacer(
		"{{entity}}", entity,
		"{{level}}", h.RiskAssessment.Level.String(),
		"{{exposure}}", exposure,
	)
}
