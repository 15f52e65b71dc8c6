package models

import "time"

// QueryPriority orders cross-agent questions. Schedule and cost pressure
// questions are urgent; corroborating questions are normal.
type QueryPriority string

const (
	PriorityUrgent QueryPriority = "urgent"
	PriorityNormal QueryPriority = "normal"
)

// QueryContext grounds a specialist's answer in the pattern being analysed.
type QueryContext struct {
	EntityID    string      `json:"entityId"`
	EntityType  string      `json:"entityType"`
	EntityName  string      `json:"entityName"`
	PatternType PatternType `json:"patternType"`
	Frequency   int         `json:"frequency"`
	RiskLevel   RiskLevel   `json:"riskLevel"`
}

// CrossAgentQuery is a targeted question for one specialist domain. Queries
// are transient; only their responses are persisted.
type CrossAgentQuery struct {
	TargetAgent AgentType     `json:"targetAgent"`
	Question    string        `json:"question"`
	Context     QueryContext  `json:"context"`
	Priority    QueryPriority `json:"priority"`
}

// CrossAgentResponse is one specialist's answer. It is never mutated after
// the executor hands it to the synthesizer.
type CrossAgentResponse struct {
	AgentType  AgentType `json:"agentType"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Data       Payload   `json:"data,omitempty"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
