package models

import "time"

// ActionPriority buckets a recommended step by urgency.
type ActionPriority string

const (
	ActionImmediate ActionPriority = "immediate"
	ActionShortTerm ActionPriority = "short_term"
	ActionStrategic ActionPriority = "strategic"
)

// ActionStatus transitions are owned by the persistence collaborator.
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusCompleted  ActionStatus = "completed"
)

// StrategicAction is one recommended remediation step.
type StrategicAction struct {
	ID           string         `json:"id"`
	HypothesisID string         `json:"hypothesisId"`
	Priority     ActionPriority `json:"priority"`
	Category     string         `json:"category"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Status       ActionStatus   `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ActionPlan partitions actions by priority.
type ActionPlan struct {
	ImmediateActions []StrategicAction `json:"immediateActions"`
	ShortTermActions []StrategicAction `json:"shortTermActions"`
	StrategicActions []StrategicAction `json:"strategicActions"`
}

// All returns every action, immediate first.
func (p ActionPlan) All() []StrategicAction {
	all := make([]StrategicAction, 0, len(p.ImmediateActions)+len(p.ShortTermActions)+len(p.StrategicActions))
	all = append(all, p.ImmediateActions...)
	all = append(all, p.ShortTermActions...)
	all = append(all, p.StrategicActions...)
	return all
}

// Len returns the total number of actions.
func (p ActionPlan) Len() int {
	return len(p.ImmediateActions) + len(p.ShortTermActions) + len(p.StrategicActions)
}

// PipelineResult is the full payload produced when a pattern is found. A nil
// *PipelineResult means no pattern crossed its threshold.
type PipelineResult struct {
	Pattern    DetectedPattern     `json:"pattern"`
	Hypothesis RootCauseHypothesis `json:"hypothesis"`
	Actions    ActionPlan          `json:"actions"`
}
