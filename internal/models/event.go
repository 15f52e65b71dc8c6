package models

import (
	"strings"
	"time"
)

// AgentEvent is a single observation submitted for analysis. Events are
// append-only: once recorded in a HistoricalContext they are never modified.
type AgentEvent struct {
	// ID identifies the event for duplicate detection (optional)
	ID string `json:"id,omitempty"`

	// TenantID scopes the event to one customer organisation
	TenantID string `json:"tenantId,omitempty"`

	// AgentType is the domain that produced the observation
	AgentType AgentType `json:"agentType"`

	// EventType is a free-form classification such as "safety_incident"
	EventType string `json:"eventType"`

	// Entity is the subject being observed
	Entity EntityRef `json:"entity"`

	// Timestamp is when the observed occurrence happened
	Timestamp time.Time `json:"timestamp"`

	// Payload holds domain-specific data (severity, amounts, descriptions)
	Payload Payload `json:"payload,omitempty"`
}

// Validate checks the fields the pipeline relies on.
func (e *AgentEvent) Validate() error {
	if e.AgentType == "" {
		return &InvalidEventError{Field: "agentType", Reason: "is required"}
	}
	if !e.AgentType.IsValid() {
		return &InvalidEventError{Field: "agentType", Reason: "unknown agent type " + string(e.AgentType)}
	}
	if strings.TrimSpace(e.EventType) == "" {
		return &InvalidEventError{Field: "eventType", Reason: "is required"}
	}
	if e.Entity.ID == "" {
		return &InvalidEventError{Field: "entity.id", Reason: "is required"}
	}
	if e.Timestamp.IsZero() {
		return &InvalidEventError{Field: "timestamp", Reason: "is required"}
	}
	return nil
}

// Severity returns the lower-cased payload severity, or "" when absent.
func (e *AgentEvent) Severity() string {
	return strings.ToLower(e.Payload.String("severity"))
}

// Payload is the structured, domain-specific part of an event or response.
type Payload map[string]interface{}

// String returns the value at key when it is a string.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}

// Float returns the numeric value at key. JSON numbers decode as float64;
// integer types are accepted for payloads built in code.
func (p Payload) Float(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

// Entities decodes a list of {id, type, name} objects stored at key.
func (p Payload) Entities(key string) []EntityRef {
	if p == nil {
		return nil
	}
	switch v := p[key].(type) {
	case []EntityRef:
		return v
	case []interface{}:
		var refs []EntityRef
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			ref := EntityRef{
				ID:   Payload(m).String("id"),
				Type: Payload(m).String("type"),
				Name: Payload(m).String("name"),
			}
			if ref.ID != "" {
				refs = append(refs, ref)
			}
		}
		return refs
	default:
		return nil
	}
}

// TimeWindow bounds a span of time. A zero bound is open.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window (inclusive).
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// HistoricalContext is the trailing window of prior observations for one
// tenant. The caller owns it; the pipeline only reads it.
type HistoricalContext struct {
	TenantID       string                `json:"tenantId,omitempty"`
	Window         TimeWindow            `json:"window"`
	Events         []AgentEvent          `json:"events"`
	ActivePatterns []DetectedPattern     `json:"activePatterns,omitempty"`
	Hypotheses     []RootCauseHypothesis `json:"hypotheses,omitempty"`
}
