// Package store persists analysis inputs and outputs: the append-only event
// log, detected patterns, hypotheses and their actions.
package store

import (
	"context"
	"errors"

	"github.com/cortexbuild/cortex/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator of the analysis service.
type Store interface {
	// AppendEvent records an event. Re-delivering an event with a known ID
	// is a no-op.
	AppendEvent(ctx context.Context, event models.AgentEvent) error

	// InsertPattern records a detected pattern, replacing an earlier record
	// with the same ID.
	InsertPattern(ctx context.Context, pattern models.DetectedPattern) error

	// InsertHypothesis records a synthesized hypothesis.
	InsertHypothesis(ctx context.Context, hypothesis models.RootCauseHypothesis) error

	// InsertAction records one recommended action.
	InsertAction(ctx context.Context, action models.StrategicAction) error

	// LoadHistory returns the tenant's events, active patterns and
	// hypotheses inside window, oldest first.
	LoadHistory(ctx context.Context, tenantID string, window models.TimeWindow) (models.HistoricalContext, error)

	// Close releases the underlying resources.
	Close() error
}
