// Package tools implements the MCP tools exposed by cortex.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/models"
)

// Service is the part of the analysis service the tools call into.
type Service interface {
	Process(ctx context.Context, req service.Request) (*service.Outcome, error)
	History(ctx context.Context, tenantID string, since time.Time) (models.HistoricalContext, error)
	Pipeline() *cognitive.Pipeline
}

func decode(input json.RawMessage, into interface{}) error {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, into); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
