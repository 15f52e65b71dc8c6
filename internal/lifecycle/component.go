package lifecycle

import "context"

// Component is anything the Manager starts and stops: the store, the
// analysis service, the config watcher, the HTTP server.
type Component interface {
	// Start starts the component. It must not block for the lifetime of
	// the component; long-running work belongs in a goroutine.
	Start(ctx context.Context) error

	// Stop stops the component within the context deadline. An error is
	// logged but does not prevent other components from stopping.
	Stop(ctx context.Context) error

	// Name identifies the component in logs and errors. Must not be empty.
	Name() string
}

// Hooks adapts a pair of functions to a Component. Nil hooks are no-ops.
type Hooks struct {
	ComponentName string
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error
}

func (h *Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h *Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

func (h *Hooks) Name() string {
	return h.ComponentName
}
