package specialist

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/cortexbuild/cortex/internal/models"
)

// Gemini answers queries through the Gemini API.
type Gemini struct {
	client *genai.Client
	config LLMConfig
	now    func() time.Time
}

// NewGemini creates a Gemini-backed specialist. When APIKey is empty the
// client reads GOOGLE_API_KEY or GEMINI_API_KEY from the environment.
func NewGemini(ctx context.Context, cfg LLMConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultLLMConfig().MaxTokens
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, config: cfg, now: time.Now}, nil
}

// Ask sends the query with a JSON response type and decodes the answer.
func (g *Gemini) Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	system, user, err := buildPrompt(query)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   int32(g.config.MaxTokens),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	ans, err := parseAnswer(resp.Text())
	if err != nil {
		return nil, err
	}

	return &models.CrossAgentResponse{
		AgentType:  query.TargetAgent,
		Question:   query.Question,
		Answer:     ans.Answer,
		Data:       ans.Data,
		Confidence: ans.Confidence,
		Timestamp:  g.now(),
	}, nil
}
