package specialist

import (
	"context"
	"strings"
	"time"

	"github.com/cortexbuild/cortex/internal/models"
)

// Canned is a fixed answer for one domain. Answer may reference {{entity}}.
type Canned struct {
	Answer     string
	Confidence float64
	Data       models.Payload
}

// Simulated answers every query from a fixed table keyed by domain. It
// stands in for a reasoning backend in demos and tests.
type Simulated struct {
	answers map[models.AgentType]Canned
	now     func() time.Time
}

// NewSimulated returns a Simulated specialist over answers. A nil map
// selects DefaultCannedAnswers.
func NewSimulated(answers map[models.AgentType]Canned) *Simulated {
	if answers == nil {
		answers = DefaultCannedAnswers()
	}
	return &Simulated{answers: answers, now: time.Now}
}

// WithClock overrides the response timestamp source.
func (s *Simulated) WithClock(now func() time.Time) *Simulated {
	s.now = now
	return s
}

// Ask returns the canned answer for the query's target domain.
func (s *Simulated) Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canned, ok := s.answers[query.TargetAgent]
	if !ok {
		return nil, &UnsupportedAgentError{Agent: query.TargetAgent}
	}

	name := query.Context.EntityName
	if name == "" {
		name = query.Context.EntityID
	}

	data := make(models.Payload, len(canned.Data))
	for k, v := range canned.Data {
		data[k] = v
	}

	return &models.CrossAgentResponse{
		AgentType:  query.TargetAgent,
		Question:   query.Question,
		Answer:     strings.ReplaceAll(canned.Answer, "{{entity}}", name),
		Data:       data,
		Confidence: canned.Confidence,
		Timestamp:  s.now(),
	}, nil
}

// DefaultCannedAnswers mirrors the figures the dashboards were demoed with.
func DefaultCannedAnswers() map[models.AgentType]Canned {
	return map[models.AgentType]Canned{
		models.AgentProjectControls: {
			Answer:     "{{entity}} is 14 days behind programme on current activities with a milestone due in 7 days.",
			Confidence: 0.85,
			Data:       models.Payload{"delayDays": 14.0, "upcomingMilestoneDays": 7.0},
		},
		models.AgentFinancial: {
			Answer:     "{{entity}} faces liquidated damages of 3000 GBP if the next milestone is missed.",
			Confidence: 0.8,
			Data:       models.Payload{"totalPenaltyRisk": 3000.0, "currency": "GBP"},
		},
		models.AgentSafety: {
			Answer:     "{{entity}} had 2 further violations on earlier projects.",
			Confidence: 0.75,
			Data:       models.Payload{"priorViolations": 2.0},
		},
		models.AgentCommercial: {
			Answer:     "The subcontract for {{entity}} carries delay penalties and 1 dispute is open.",
			Confidence: 0.7,
			Data:       models.Payload{"openDisputes": 1.0},
		},
		models.AgentQuality: {
			Answer:     "{{entity}} has 4 open defects from recent inspections.",
			Confidence: 0.7,
			Data:       models.Payload{"defectCount": 4.0},
		},
	}
}

// UnsupportedAgentError is returned when no answer source exists for a
// domain.
type UnsupportedAgentError struct {
	Agent models.AgentType
}

func (e *UnsupportedAgentError) Error() string {
	return "no specialist configured for " + string(e.Agent)
}
