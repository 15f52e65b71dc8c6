package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cortexbuild/cortex/internal/models"
)

// LLMConfig configures an LLM-backed specialist.
type LLMConfig struct {
	Model     string
	MaxTokens int
	APIKey    string
	// BaseURL overrides the provider endpoint (proxies, tests)
	BaseURL string
	// MaxRetries is passed to the client; negative keeps the SDK default
	MaxRetries int
}

// DefaultLLMConfig returns the settings used when fields are left empty.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:      "claude-sonnet-4-5",
		MaxTokens:  1024,
		MaxRetries: -1,
	}
}

// Anthropic answers queries through the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	config LLMConfig
	now    func() time.Time
}

// NewAnthropic creates an Anthropic-backed specialist. When APIKey is empty
// the SDK reads ANTHROPIC_API_KEY from the environment.
func NewAnthropic(cfg LLMConfig) *Anthropic {
	defaults := DefaultLLMConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		config: cfg,
		now:    time.Now,
	}
}

// Ask sends the query as a single user turn and decodes the JSON answer.
func (a *Anthropic) Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	system, user, err := buildPrompt(query)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: int64(a.config.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var parts []string
	for i := range resp.Content {
		if block := &resp.Content[i]; block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	ans, err := parseAnswer(strings.Join(parts, ""))
	if err != nil {
		return nil, err
	}

	return &models.CrossAgentResponse{
		AgentType:  query.TargetAgent,
		Question:   query.Question,
		Answer:     ans.Answer,
		Data:       ans.Data,
		Confidence: ans.Confidence,
		Timestamp:  a.now(),
	}, nil
}
