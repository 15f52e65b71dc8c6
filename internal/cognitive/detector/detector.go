package detector

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cortexbuild/cortex/internal/models"
)

// patternNamespace seeds deterministic pattern IDs.
var patternNamespace = uuid.MustParse("8d6f1c2e-4b7a-5e3f-9a1d-2c4b6e8f0a13")

// Detector recognises recurring risk signatures. It holds only immutable rule
// data, so one Detector may serve concurrent callers.
type Detector struct {
	rules []Rule
}

// New returns a Detector over rules. Rules are evaluated in order and the
// first rule whose threshold is reached wins.
func New(rules []Rule) *Detector {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	for i := range copied {
		if copied[i].Lookback <= 0 {
			copied[i].Lookback = DefaultLookback
		}
		steps := make([]RiskStep, len(copied[i].RiskSteps))
		copy(steps, copied[i].RiskSteps)
		sort.SliceStable(steps, func(a, b int) bool { return steps[a].MinFrequency < steps[b].MinFrequency })
		copied[i].RiskSteps = steps
	}
	return &Detector{rules: copied}
}

// NewDefault returns a Detector over DefaultRules.
func NewDefault() *Detector {
	return New(DefaultRules())
}

// Rules returns a copy of the configured rules.
func (d *Detector) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Detect evaluates event against history and returns a pattern when a rule's
// threshold is reached, or nil. Detect is a pure function of its inputs and
// never modifies history.
//
// Events sharing an ID are counted once. Events without an ID cannot be told
// apart from a redelivery, so each one counts; producers that redeliver must
// set IDs.
func (d *Detector) Detect(event models.AgentEvent, history models.HistoricalContext) *models.DetectedPattern {
	for i := range d.rules {
		rule := &d.rules[i]
		if !rule.Matches(event.EventType) {
			continue
		}
		if p := d.evaluate(rule, event, history); p != nil {
			return p
		}
	}
	return nil
}

func (d *Detector) evaluate(rule *Rule, event models.AgentEvent, history models.HistoricalContext) *models.DetectedPattern {
	contributing := collect(rule, event, history)
	frequency := len(contributing)
	if frequency < rule.Threshold || frequency < 1 {
		return nil
	}

	level := rule.riskFor(frequency)
	for _, e := range contributing {
		if rule.escalates(e.Severity()) {
			level = level.Escalate(1)
			break
		}
	}

	span := models.TimeWindow{Start: contributing[0].Timestamp, End: contributing[0].Timestamp}
	for _, e := range contributing[1:] {
		if e.Timestamp.Before(span.Start) {
			span.Start = e.Timestamp
		}
		if e.Timestamp.After(span.End) {
			span.End = e.Timestamp
		}
	}

	tenant := event.TenantID
	if tenant == "" {
		tenant = history.TenantID
	}

	return &models.DetectedPattern{
		ID:               patternID(tenant, rule.PatternType, event.Entity, span),
		TenantID:         tenant,
		PatternType:      rule.PatternType,
		Frequency:        frequency,
		Confidence:       rule.confidenceFor(frequency),
		RiskLevel:        level,
		AffectedEntities: affectedEntities(event.Entity, contributing),
		Timespan:         span,
		Status:           models.PatternStatusActive,
		DetectedAt:       event.Timestamp,
	}
}

// collect returns the triggering event followed by every matching historical
// event, ordered by timestamp. Events sharing an ID are counted once.
func collect(rule *Rule, event models.AgentEvent, history models.HistoricalContext) []models.AgentEvent {
	from := event.Timestamp.Add(-rule.Lookback)
	seen := make(map[string]struct{})
	if event.ID != "" {
		seen[event.ID] = struct{}{}
	}

	matched := []models.AgentEvent{event}
	for _, h := range history.Events {
		if !h.Entity.SameAs(event.Entity) || !rule.Matches(h.EventType) {
			continue
		}
		if h.Timestamp.Before(from) || h.Timestamp.After(event.Timestamp) {
			continue
		}
		if !history.Window.Contains(h.Timestamp) {
			continue
		}
		if h.ID != "" {
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
		}
		matched = append(matched, h)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	return matched
}

// affectedEntities puts the subject first, then related entities in order
// of first appearance.
func affectedEntities(primary models.EntityRef, events []models.AgentEvent) []models.EntityRef {
	entities := []models.EntityRef{primary}
	for _, e := range events {
		for _, ref := range e.Payload.Entities("relatedEntities") {
			known := false
			for _, existing := range entities {
				if existing.SameAs(ref) {
					known = true
					break
				}
			}
			if !known {
				entities = append(entities, ref)
			}
		}
	}
	return entities
}

func patternID(tenant string, patternType models.PatternType, entity models.EntityRef, span models.TimeWindow) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%d|%d", tenant, patternType, entity.Type, entity.ID,
		span.Start.UTC().UnixNano(), span.End.UTC().UnixNano())
	return uuid.NewSHA1(patternNamespace, []byte(key)).String()
}

// Window returns the trailing window used to build a HistoricalContext for
// an event at t: the longest lookback of any rule.
func (d *Detector) Window(t time.Time) models.TimeWindow {
	longest := DefaultLookback
	for _, r := range d.rules {
		if r.Lookback > longest {
			longest = r.Lookback
		}
	}
	return models.TimeWindow{Start: t.Add(-longest), End: t}
}
