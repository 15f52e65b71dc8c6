package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cortexbuild/cortex/internal/models"
)

// SQLiteStore keeps the analysis record in a single SQLite file. Structured
// values are stored as JSON next to the columns used for lookups.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// busyTimeout is how long a connection waits on a locked database before
// giving up with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite admits one writer at a time. A single pooled connection queues
	// concurrent requests in database/sql instead of failing them with
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL DEFAULT '',
    tenant_id TEXT NOT NULL,
    agent_type TEXT NOT NULL,
    event_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    entity_type TEXT,
    entity_name TEXT,
    ts INTEGER NOT NULL,
    payload TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_tenant_id ON events(tenant_id, id) WHERE id != '';
CREATE INDEX IF NOT EXISTS idx_events_tenant_ts ON events(tenant_id, ts);

CREATE TABLE IF NOT EXISTS patterns (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    pattern_type TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    status TEXT NOT NULL,
    detected_at INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_tenant_detected ON patterns(tenant_id, detected_at);

CREATE TABLE IF NOT EXISTS hypotheses (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    pattern_id TEXT NOT NULL,
    confidence REAL NOT NULL,
    generated_at INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hypotheses_tenant_generated ON hypotheses(tenant_id, generated_at);

CREATE TABLE IF NOT EXISTS actions (
    id TEXT PRIMARY KEY,
    hypothesis_id TEXT NOT NULL,
    priority TEXT NOT NULL,
    category TEXT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_hypothesis ON actions(hypothesis_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// AppendEvent records an event. Events carrying an ID already stored for the
// tenant are ignored.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e models.AgentEvent) error {
	payload, err := marshalJSON(e.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, tenant_id, agent_type, event_type, entity_id, entity_type, entity_name, ts, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, string(e.AgentType), e.EventType,
		e.Entity.ID, e.Entity.Type, e.Entity.Name, e.Timestamp.UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// InsertPattern records a pattern, replacing an earlier record with the same ID.
func (s *SQLiteStore) InsertPattern(ctx context.Context, p models.DetectedPattern) error {
	body, err := marshalJSON(p)
	if err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO patterns (id, tenant_id, pattern_type, risk_level, status, detected_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, string(p.PatternType), p.RiskLevel.String(), string(p.Status),
		p.DetectedAt.UnixNano(), body,
	)
	if err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	return nil
}

// SetPatternStatus moves a pattern to a new lifecycle status.
func (s *SQLiteStore) SetPatternStatus(ctx context.Context, id string, status models.PatternStatus) error {
	p, err := s.getPattern(ctx, id)
	if err != nil {
		return fmt.Errorf("set pattern status: %w", err)
	}
	p.Status = status
	return s.InsertPattern(ctx, *p)
}

func (s *SQLiteStore) getPattern(ctx context.Context, id string) (*models.DetectedPattern, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM patterns WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p models.DetectedPattern
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("decode pattern %s: %w", id, err)
	}
	return &p, nil
}

// InsertHypothesis records a hypothesis.
func (s *SQLiteStore) InsertHypothesis(ctx context.Context, h models.RootCauseHypothesis) error {
	body, err := marshalJSON(h)
	if err != nil {
		return fmt.Errorf("insert hypothesis: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO hypotheses (id, tenant_id, pattern_id, confidence, generated_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.Pattern.TenantID, h.Pattern.ID, h.Confidence, h.GeneratedAt.UnixNano(), body,
	)
	if err != nil {
		return fmt.Errorf("insert hypothesis: %w", err)
	}
	return nil
}

// InsertAction records an action.
func (s *SQLiteStore) InsertAction(ctx context.Context, a models.StrategicAction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (id, hypothesis_id, priority, category, title, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.HypothesisID, string(a.Priority), a.Category, a.Title, a.Description,
		string(a.Status), a.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// Actions returns the actions recorded for a hypothesis in insertion order.
func (s *SQLiteStore) Actions(ctx context.Context, hypothesisID string) ([]models.StrategicAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hypothesis_id, priority, category, title, description, status, created_at
		 FROM actions WHERE hypothesis_id = ? ORDER BY rowid`, hypothesisID,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []models.StrategicAction
	for rows.Next() {
		var a models.StrategicAction
		var priority, status string
		var category, description sql.NullString
		var created int64
		if err := rows.Scan(&a.ID, &a.HypothesisID, &priority, &category, &a.Title,
			&description, &status, &created); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Priority = models.ActionPriority(priority)
		a.Status = models.ActionStatus(status)
		a.Category = category.String
		a.Description = description.String
		a.CreatedAt = time.Unix(0, created).UTC()
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// LoadHistory returns the tenant's history inside window. Only patterns that
// are still active are included.
func (s *SQLiteStore) LoadHistory(ctx context.Context, tenantID string, window models.TimeWindow) (models.HistoricalContext, error) {
	history := models.HistoricalContext{TenantID: tenantID, Window: window}
	from, to := bounds(window)

	events, err := s.loadEvents(ctx, tenantID, from, to)
	if err != nil {
		return history, err
	}
	history.Events = events

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM patterns
		 WHERE tenant_id = ? AND status = ? AND detected_at BETWEEN ? AND ?
		 ORDER BY detected_at`,
		tenantID, string(models.PatternStatusActive), from, to,
	)
	if err != nil {
		return history, fmt.Errorf("load patterns: %w", err)
	}
	history.ActivePatterns, err = scanBodies[models.DetectedPattern](rows)
	if err != nil {
		return history, fmt.Errorf("load patterns: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT body FROM hypotheses
		 WHERE tenant_id = ? AND generated_at BETWEEN ? AND ?
		 ORDER BY generated_at`,
		tenantID, from, to,
	)
	if err != nil {
		return history, fmt.Errorf("load hypotheses: %w", err)
	}
	history.Hypotheses, err = scanBodies[models.RootCauseHypothesis](rows)
	if err != nil {
		return history, fmt.Errorf("load hypotheses: %w", err)
	}

	return history, nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context, tenantID string, from, to int64) ([]models.AgentEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, agent_type, event_type, entity_id, entity_type, entity_name, ts, payload
		 FROM events WHERE tenant_id = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts, seq`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []models.AgentEvent
	for rows.Next() {
		var e models.AgentEvent
		var agentType string
		var entityType, entityName, payload sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &e.TenantID, &agentType, &e.EventType, &e.Entity.ID,
			&entityType, &entityName, &ts, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.AgentType = models.AgentType(agentType)
		e.Entity.Type = entityType.String
		e.Entity.Name = entityName.String
		e.Timestamp = time.Unix(0, ts).UTC()
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("decode event %s payload: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanBodies[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// bounds converts a window to inclusive nanosecond bounds; zero ends are open.
func bounds(w models.TimeWindow) (int64, int64) {
	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if !w.Start.IsZero() {
		from = w.Start.UnixNano()
	}
	if !w.End.IsZero() {
		to = w.End.UnixNano()
	}
	return from, to
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
