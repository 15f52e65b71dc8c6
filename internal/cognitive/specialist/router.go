package specialist

import (
	"context"

	"github.com/cortexbuild/cortex/internal/models"
)

// Router dispatches each query to the specialist registered for its target
// domain, or to the fallback when none is registered.
type Router struct {
	routes   map[models.AgentType]Specialist
	fallback Specialist
}

// NewRouter returns a Router. fallback may be nil.
func NewRouter(fallback Specialist) *Router {
	return &Router{routes: make(map[models.AgentType]Specialist), fallback: fallback}
}

// Handle registers s for agent, replacing any previous registration. It is
// not safe to call concurrently with Ask.
func (r *Router) Handle(agent models.AgentType, s Specialist) *Router {
	r.routes[agent] = s
	return r
}

// Ask forwards query to the matching specialist.
func (r *Router) Ask(ctx context.Context, query models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	if s, ok := r.routes[query.TargetAgent]; ok {
		return s.Ask(ctx, query)
	}
	if r.fallback != nil {
		return r.fallback.Ask(ctx, query)
	}
	return nil, &UnsupportedAgentError{Agent: query.TargetAgent}
}
