package planner

import "github.com/cortexbuild/cortex/internal/models"

// QueryRule is one row of the planning table. Template may reference
// {{entity}}, {{entityType}}, {{frequency}}, {{pattern}} and {{days}}.
type QueryRule struct {
	TargetAgent models.AgentType     `json:"targetAgent" yaml:"targetAgent"`
	Template    string               `json:"template" yaml:"template"`
	Priority    models.QueryPriority `json:"priority" yaml:"priority"`
}

// Table maps a pattern type to the ordered questions asked about it. Rows
// are listed urgent-first; Plan never re-sorts them.
type Table map[models.PatternType][]QueryRule

// DefaultTable returns the built-in planning rows.
func DefaultTable() Table {
	return Table{
		models.PatternSafetyViolation: {
			{
				TargetAgent: models.AgentProjectControls,
				Template:    "Is {{entity}} under schedule pressure? Report current delay days and upcoming deadlines.",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentFinancial,
				Template:    "What penalty or liquidated damages exposure does {{entity}} face if it falls further behind?",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentSafety,
				Template:    "What is the prior safety violation history of {{entity}} beyond the {{frequency}} recent incidents?",
				Priority:    models.PriorityNormal,
			},
			{
				TargetAgent: models.AgentCommercial,
				Template:    "Which contractual penalty clauses apply to {{entity}} and are any disputes open?",
				Priority:    models.PriorityNormal,
			},
			{
				TargetAgent: models.AgentQuality,
				Template:    "Has {{entity}} shown a rise in defects or rework over the last {{days}} days?",
				Priority:    models.PriorityNormal,
			},
			{
				TargetAgent: models.AgentProjectControls,
				Template:    "Are resource levels for {{entity}} below plan on current activities?",
				Priority:    models.PriorityNormal,
			},
		},
		models.PatternPerformanceDegradation: {
			{
				TargetAgent: models.AgentProjectControls,
				Template:    "How many days behind baseline is {{entity}} and which critical-path activities are affected?",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentFinancial,
				Template:    "What is the cost of the {{frequency}} recent performance issues on {{entity}} and the forecast exposure?",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentQuality,
				Template:    "Are defects or failed inspections contributing to the slowdown on {{entity}}?",
				Priority:    models.PriorityNormal,
			},
			{
				TargetAgent: models.AgentCommercial,
				Template:    "Are there unresolved variations or disputes affecting {{entity}}?",
				Priority:    models.PriorityNormal,
			},
		},
		models.PatternCostOverrun: {
			{
				TargetAgent: models.AgentFinancial,
				Template:    "What is the total cost variance and forecast overrun for {{entity}}?",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentProjectControls,
				Template:    "Is schedule slippage on {{entity}} driving the {{frequency}} recorded cost variances?",
				Priority:    models.PriorityUrgent,
			},
			{
				TargetAgent: models.AgentCommercial,
				Template:    "How many change orders or disputes are open against {{entity}}?",
				Priority:    models.PriorityNormal,
			},
			{
				TargetAgent: models.AgentQuality,
				Template:    "Is rework contributing to cost growth on {{entity}}?",
				Priority:    models.PriorityNormal,
			},
		},
	}
}
