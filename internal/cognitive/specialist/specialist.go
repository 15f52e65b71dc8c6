// Package specialist defines the capability the pipeline uses to ask a
// specialist domain a question, together with its implementations: canned
// simulated answers, per-domain routing, and LLM-backed specialists.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cortexbuild/cortex/internal/models"
)

// Specialist answers one cross-agent query. Implementations must be safe for
// concurrent use and should honour ctx cancellation.
type Specialist interface {
	Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error)
}

// Func adapts a function to the Specialist interface.
type Func func(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error)

// Ask calls f.
func (f Func) Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	return f(ctx, query)
}

// structuredAnswer is the JSON shape LLM-backed specialists are asked to
// produce.
type structuredAnswer struct {
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Data       models.Payload `json:"data"`
}

const systemPrompt = `You are the %s specialist of a construction project management platform.
Answer the question using the supplied context. Respond with a single JSON object and nothing else:
{"answer": "<one or two sentences>", "confidence": <number between 0 and 1>, "data": {<numeric facts>}}
Use these data keys when they apply: delayDays, totalPenaltyRisk, financialExposure, currency,
openDisputes, defectCount, priorViolations.`

func buildPrompt(query models.CrossAgentQuery) (string, string, error) {
	ctxJSON, err := json.Marshal(query.Context)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode query context: %w", err)
	}
	system := fmt.Sprintf(systemPrompt, strings.ReplaceAll(string(query.TargetAgent), "_", " "))
	user := fmt.Sprintf("Question (%s priority): %s\nContext: %s", query.Priority, query.Question, ctxJSON)
	return system, user, nil
}

// parseAnswer extracts the JSON object from model output. Models sometimes
// wrap it in prose or code fences, so the outermost braces are used.
func parseAnswer(text string) (*structuredAnswer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in specialist output")
	}
	var ans structuredAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &ans); err != nil {
		return nil, fmt.Errorf("failed to decode specialist output: %w", err)
	}
	if strings.TrimSpace(ans.Answer) == "" {
		return nil, fmt.Errorf("specialist output has no answer")
	}
	return &ans, nil
}
