package synthesis

import "github.com/cortexbuild/cortex/internal/models"

// Template composes the hypothesis text for one pattern type. Opening and
// Closing may reference {{entity}}, {{frequency}}, {{days}} and {{pattern}};
// insight sentences are placed between them.
type Template struct {
	Opening string
	Closing string
}

// Entry is the fixed knowledge held for a pattern type.
type Entry struct {
	Template              Template
	ImpactAreas           []string
	PotentialConsequences []string
}

// Knowledge maps a pattern type to its entry.
type Knowledge map[models.PatternType]Entry

// Insight turns a quantitative field in a specialist response into a
// sentence. Sentence may reference {{value}} and {{currency}}.
type Insight struct {
	Agent    models.AgentType
	DataKey  string
	Sentence string
}

// fallbackEntry is used for pattern types without knowledge. It carries no
// impact areas, so it produces no actions.
var fallbackEntry = Entry{
	Template: Template{
		Opening: "{{entity}} shows a recurring {{pattern}} pattern with {{frequency}} occurrences over {{days}} days.",
		Closing: "Further investigation is needed to establish the underlying cause.",
	},
	PotentialConsequences: []string{"Unquantified operational risk"},
}

// DefaultKnowledge returns the built-in templates, impact areas and
// consequences.
func DefaultKnowledge() Knowledge {
	return Knowledge{
		models.PatternSafetyViolation: {
			Template: Template{
				Opening: "{{entity}} has recorded {{frequency}} safety incidents in {{days}} days.",
				Closing: "This pattern suggests {{entity}} may be cutting corners to meet deadlines, creating an imminent safety risk.",
			},
			ImpactAreas: []string{"Worker Safety", "Legal Compliance", "Project Reputation"},
			PotentialConsequences: []string{
				"Serious injury or fatality on site",
				"Regulatory enforcement action or prosecution",
				"Site stoppage and programme delay",
				"Exclusion from future tenders",
			},
		},
		models.PatternPerformanceDegradation: {
			Template: Template{
				Opening: "{{entity}} has shown {{frequency}} performance issues over {{days}} days.",
				Closing: "The trend points to a resourcing shortfall at {{entity}} that will compound into critical-path delay if it is not addressed.",
			},
			ImpactAreas: []string{"Schedule", "Productivity", "Client Relationship"},
			PotentialConsequences: []string{
				"Missed contractual milestones",
				"Liquidated damages claims",
				"Knock-on delays to follow-on trades",
			},
		},
		models.PatternCostOverrun: {
			Template: Template{
				Opening: "{{entity}} has recorded {{frequency}} cost variances over {{days}} days.",
				Closing: "Recurring variances indicate a systemic estimating or change-control weakness on {{entity}} that will erode margin.",
			},
			ImpactAreas: []string{"Budget", "Cash Flow", "Margin"},
			PotentialConsequences: []string{
				"Budget overrun at completion",
				"Reduced project margin",
				"Cash-flow pressure on the supply chain",
			},
		},
	}
}

// DefaultInsights lists the quantitative fields quoted in hypotheses.
func DefaultInsights() []Insight {
	return []Insight{
		{Agent: models.AgentProjectControls, DataKey: "delayDays", Sentence: "They are currently {{value}} days behind schedule."},
		{Agent: models.AgentFinancial, DataKey: "totalPenaltyRisk", Sentence: "They face {{value}} {{currency}} in potential penalties."},
		{Agent: models.AgentFinancial, DataKey: "financialExposure", Sentence: "Forecast financial exposure stands at {{value}} {{currency}}."},
		{Agent: models.AgentCommercial, DataKey: "openDisputes", Sentence: "{{value}} contractual disputes remain open."},
		{Agent: models.AgentQuality, DataKey: "defectCount", Sentence: "{{value}} quality defects are outstanding."},
	}
}
