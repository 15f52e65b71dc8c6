package strategy

import "github.com/cortexbuild/cortex/internal/models"

// ActionTemplate is a candidate action. Title and Description may reference
// {{entity}}, {{level}} and {{exposure}}.
type ActionTemplate struct {
	Priority    models.ActionPriority
	Category    string
	Title       string
	Description string
}

// ConsequenceRule adds actions when a potential consequence contains Match
// (case-insensitive).
type ConsequenceRule struct {
	Match   string
	Actions []ActionTemplate
}

// Rules is the impact-area and consequence lookup used by the generator.
type Rules struct {
	ImpactAreas  map[string][]ActionTemplate
	Consequences []ConsequenceRule
}

// DefaultRules returns the built-in remediation playbook.
func DefaultRules() Rules {
	return Rules{
		ImpactAreas: map[string][]ActionTemplate{
			"Worker Safety": {
				{
					Priority:    models.ActionImmediate,
					Category:    "safety",
					Title:       "Stand down {{entity}} for a safety briefing",
					Description: "Pause {{entity}} work fronts and hold a toolbox talk covering the recent incidents before work resumes. Risk level: {{level}}.",
				},
				{
					Priority:    models.ActionShortTerm,
					Category:    "safety",
					Title:       "Increase safety inspections for {{entity}}",
					Description: "Schedule daily supervisor inspections of {{entity}} activities for the next four weeks and log findings.",
				},
				{
					Priority:    models.ActionStrategic,
					Category:    "safety",
					Title:       "Review {{entity}} safety management at prequalification",
					Description: "Require an updated safety management plan from {{entity}} before awarding further packages.",
				},
			},
			"Legal Compliance": {
				{
					Priority:    models.ActionImmediate,
					Category:    "compliance",
					Title:       "Confirm statutory incident reporting for {{entity}}",
					Description: "Check that every incident involving {{entity}} has been reported to the regulator where required.",
				},
				{
					Priority:    models.ActionStrategic,
					Category:    "compliance",
					Title:       "Strengthen subcontract safety obligations",
					Description: "Add explicit safety performance clauses and step-in rights to future subcontracts.",
				},
			},
			"Project Reputation": {
				{
					Priority:    models.ActionShortTerm,
					Category:    "communications",
					Title:       "Brief the client on remediation",
					Description: "Share the safety remediation plan for {{entity}} with the client before the next progress meeting.",
				},
			},
			"Schedule": {
				{
					Priority:    models.ActionImmediate,
					Category:    "programme",
					Title:       "Hold a recovery programme meeting with {{entity}}",
					Description: "Agree a recovery programme with {{entity}} covering the delayed critical-path activities.",
				},
				{
					Priority:    models.ActionShortTerm,
					Category:    "programme",
					Title:       "Track {{entity}} against weekly look-ahead",
					Description: "Compare planned against actual progress for {{entity}} every week until the programme is recovered.",
				},
			},
			"Productivity": {
				{
					Priority:    models.ActionShortTerm,
					Category:    "resourcing",
					Title:       "Review resource levels for {{entity}}",
					Description: "Compare labour and plant on site against the resourced programme and close any gap.",
				},
				{
					Priority:    models.ActionStrategic,
					Category:    "resourcing",
					Title:       "Benchmark {{entity}} productivity",
					Description: "Record output rates for {{entity}} and use them when planning future packages.",
				},
			},
			"Client Relationship": {
				{
					Priority:    models.ActionShortTerm,
					Category:    "communications",
					Title:       "Update the client on programme recovery",
					Description: "Explain the causes of delay and the recovery actions agreed with {{entity}}.",
				},
			},
			"Budget": {
				{
					Priority:    models.ActionImmediate,
					Category:    "financial",
					Title:       "Freeze uncommitted spend on {{entity}}",
					Description: "Hold new commitments on {{entity}} until the cost to complete has been re-forecast.",
				},
				{
					Priority:    models.ActionShortTerm,
					Category:    "financial",
					Title:       "Re-forecast cost to complete for {{entity}}",
					Description: "Produce an updated cost report including all recorded variances.",
				},
			},
			"Cash Flow": {
				{
					Priority:    models.ActionShortTerm,
					Category:    "financial",
					Title:       "Review payment schedule for {{entity}}",
					Description: "Align valuations and payments for {{entity}} with verified progress.",
				},
			},
			"Margin": {
				{
					Priority:    models.ActionStrategic,
					Category:    "commercial",
					Title:       "Review estimating assumptions",
					Description: "Feed the variances recorded on {{entity}} back into estimating norms and change-control procedures.",
				},
			},
		},
		Consequences: []ConsequenceRule{
			{
				Match: "injury",
				Actions: []ActionTemplate{{
					Priority:    models.ActionImmediate,
					Category:    "safety",
					Title:       "Verify first-aid and emergency provision",
					Description: "Confirm first-aid cover and emergency arrangements on every site where {{entity}} is working.",
				}},
			},
			{
				Match: "liquidated damages",
				Actions: []ActionTemplate{{
					Priority:    models.ActionShortTerm,
					Category:    "commercial",
					Title:       "Assess liquidated damages exposure",
					Description: "Quantify the damages exposure for {{entity}} (estimated {{exposure}}) and issue the required contractual notices.",
				}},
			},
			{
				Match: "programme delay",
				Actions: []ActionTemplate{{
					Priority:    models.ActionShortTerm,
					Category:    "programme",
					Title:       "Model the impact of a site stoppage",
					Description: "Assess how a stoppage of {{entity}} work would move key milestones and prepare mitigation.",
				}},
			},
			{
				Match: "budget overrun",
				Actions: []ActionTemplate{{
					Priority:    models.ActionStrategic,
					Category:    "financial",
					Title:       "Add contingency review gates",
					Description: "Introduce monthly contingency draw-down reviews on packages like {{entity}}.",
				}},
			},
		},
	}
}
