package planner

import (
	"strconv"
	"strings"

	"github.com/cortexbuild/cortex/internal/models"
)

// DefaultMaxQueries caps a plan when no limit is configured.
const DefaultMaxQueries = 5

// Planner turns a detected pattern into targeted cross-agent questions.
type Planner struct {
	table      Table
	maxQueries int
}

// New returns a Planner over table. maxQueries <= 0 selects
// DefaultMaxQueries.
func New(table Table, maxQueries int) *Planner {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	copied := make(Table, len(table))
	for k, rows := range table {
		copied[k] = append([]QueryRule(nil), rows...)
	}
	return &Planner{table: copied, maxQueries: maxQueries}
}

// NewDefault returns a Planner over DefaultTable capped at DefaultMaxQueries.
func NewDefault() *Planner {
	return New(DefaultTable(), DefaultMaxQueries)
}

// MaxQueries returns the plan size cap.
func (p *Planner) MaxQueries() int {
	return p.maxQueries
}

// Plan builds the ordered questions for pattern, all about its primary
// entity. Unknown pattern types and patterns without entities yield an empty
// plan. Rows beyond MaxQueries are dropped in table order.
func (p *Planner) Plan(pattern models.DetectedPattern) []models.CrossAgentQuery {
	entity, ok := pattern.PrimaryEntity()
	if !ok {
		return nil
	}
	rows := p.table[pattern.PatternType]
	if len(rows) > p.maxQueries {
		rows = rows[:p.maxQueries]
	}

	replacer := strings.NewReplacer(
		"{{entity}}", entity.DisplayName(),
		"{{entityType}}", entity.Type,
		"{{frequency}}", strconv.Itoa(pattern.Frequency),
		"{{pattern}}", strings.ReplaceAll(string(pattern.PatternType), "_", " "),
		"{{days}}", strconv.Itoa(pattern.DaysSpanned()),
	)

	queries := make([]models.CrossAgentQuery, 0, len(rows))
	for _, row := range rows {
		priority := row.Priority
		if priority == "" {
			priority = models.PriorityNormal
		}
		queries = append(queries, models.CrossAgentQuery{
			TargetAgent: row.TargetAgent,
			Question:    replacer.Replace(row.Template),
			Context: models.QueryContext{
				EntityID:    entity.ID,
				EntityType:  entity.Type,
				EntityName:  entity.Name,
				PatternType: pattern.PatternType,
				Frequency:   pattern.Frequency,
				RiskLevel:   pattern.RiskLevel,
			},
			Priority: priority,
		})
	}
	return queries
}
