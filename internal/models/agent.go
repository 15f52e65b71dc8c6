package models

// AgentType identifies a specialist reasoning domain. Events are submitted by
// one of these domains and cross-agent queries are routed to them.
type AgentType string

const (
	// AgentProjectControls covers schedule and cost control.
	AgentProjectControls AgentType = "project_controls"
	// AgentFinancial covers financial forecasting and penalty exposure.
	AgentFinancial AgentType = "financial"
	// AgentSafety covers health and safety.
	AgentSafety AgentType = "safety"
	// AgentQuality covers quality assurance and defects.
	AgentQuality AgentType = "quality"
	// AgentCommercial covers contracts, variations and disputes.
	AgentCommercial AgentType = "commercial"
)

// AllAgentTypes lists every known domain in a stable order.
var AllAgentTypes = []AgentType{
	AgentProjectControls,
	AgentFinancial,
	AgentSafety,
	AgentQuality,
	AgentCommercial,
}

// IsValid reports whether a is a known domain.
func (a AgentType) IsValid() bool {
	for _, known := range AllAgentTypes {
		if a == known {
			return true
		}
	}
	return false
}

// EntityRef identifies the subject of an observation: a subcontractor,
// project, activity and so on.
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// DisplayName returns Name, falling back to ID.
func (e EntityRef) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// SameAs reports whether two references point at the same entity.
func (e EntityRef) SameAs(other EntityRef) bool {
	return e.ID == other.ID && e.Type == other.Type
}
