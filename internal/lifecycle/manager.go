package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cortexbuild/cortex/internal/logging"
)

// DefaultShutdownTimeout bounds how long each component may take to stop.
const DefaultShutdownTimeout = 30 * time.Second

// State is where a component is in its lifecycle.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// ComponentStatus describes one registered component.
type ComponentStatus struct {
	Name      string
	State     State
	DependsOn []string
	StartTook time.Duration
	StopTook  time.Duration
	Err       error
}

type entry struct {
	component Component
	dependsOn []Component
	status    ComponentStatus
}

// Manager starts the cortex components (tracing, analysis service, config
// watcher, API server) and stops them again. Dependencies must be registered
// before their dependents, so registration order is always a valid start
// order and cycles cannot be expressed.
type Manager struct {
	mu              sync.RWMutex
	entries         []*entry
	byComponent     map[Component]*entry
	shutdownTimeout time.Duration
	started         bool
	logger          *logging.Logger

	up        *prometheus.GaugeVec
	startTime *prometheus.GaugeVec
}

// Option customises a Manager.
type Option func(*Manager)

// WithRegisterer exports per-component state and start duration.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		m.up = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cortex_component_up",
			Help: "1 while the component is running.",
		}, []string{"component"})
		m.startTime = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cortex_component_start_seconds",
			Help: "Time the component took to start.",
		}, []string{"component"})
		reg.MustRegister(m.up, m.startTime)
	}
}

// NewManager creates a manager with DefaultShutdownTimeout.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		byComponent:     make(map[Component]*entry),
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a component. Every dependency must already be registered.
// Registration is closed once Start has run.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	name := component.Name()
	if name == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	if m.started {
		return fmt.Errorf("cannot register %s after start", name)
	}
	if _, ok := m.byComponent[component]; ok {
		return fmt.Errorf("component %s is already registered", name)
	}

	depNames := make([]string, 0, len(dependsOn))
	for _, dep := range dependsOn {
		if dep == nil {
			return fmt.Errorf("component %s has a nil dependency", name)
		}
		if _, ok := m.byComponent[dep]; !ok {
			return fmt.Errorf("dependency %s of %s is not registered", dep.Name(), name)
		}
		depNames = append(depNames, dep.Name())
	}

	e := &entry{
		component: component,
		dependsOn: dependsOn,
		status:    ComponentStatus{Name: name, State: StatePending, DependsOn: depNames},
	}
	m.entries = append(m.entries, e)
	m.byComponent[component] = e

	m.logger.Debug("Registered %s (depends on %v)", name, depNames)
	return nil
}

// Start starts components in registration order. When one fails, those
// already running are stopped in reverse order and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	entries := append([]*entry(nil), m.entries...)
	m.mu.Unlock()

	for i, e := range entries {
		name := e.component.Name()
		began := time.Now()
		err := e.component.Start(ctx)
		took := time.Since(began)

		if err != nil {
			m.setStatus(e, StateFailed, func(s *ComponentStatus) { s.StartTook, s.Err = took, err })
			m.logger.Error("Failed to start %s: %v", name, err)
			m.stopAll(context.Background(), entries[:i])
			return fmt.Errorf("initialization failed for %s: %w", name, err)
		}

		m.setStatus(e, StateRunning, func(s *ComponentStatus) { s.StartTook, s.Err = took, nil })
		if m.startTime != nil {
			m.startTime.WithLabelValues(name).Set(took.Seconds())
		}
		m.logger.Info("%s started (took %dms)", name, took.Milliseconds())
	}

	m.logger.Info("All %d components started", len(entries))
	return nil
}

// Stop stops running components in reverse registration order, giving each
// its own shutdown timeout within ctx. A component that fails or times out
// does not keep the others from stopping; all errors are returned joined.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.RLock()
	entries := append([]*entry(nil), m.entries...)
	m.mu.RUnlock()

	err := m.stopAll(ctx, entries)
	m.logger.Info("All components stopped")
	return err
}

func (m *Manager) stopAll(ctx context.Context, entries []*entry) error {
	m.mu.RLock()
	timeout := m.shutdownTimeout
	m.mu.RUnlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if m.state(e) != StateRunning {
			continue
		}
		name := e.component.Name()

		stopCtx, cancel := context.WithTimeout(ctx, timeout)
		began := time.Now()
		err := e.component.Stop(stopCtx)
		took := time.Since(began)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s did not stop within %v", name, timeout)
		case err != nil:
			m.logger.Error("Error stopping %s: %v", name, err)
		default:
			m.logger.Info("%s stopped (took %dms)", name, took.Milliseconds())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
		m.setStatus(e, StateStopped, func(s *ComponentStatus) { s.StopTook, s.Err = took, err })
	}
	return errors.Join(errs...)
}

func (m *Manager) state(e *entry) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.status.State
}

func (m *Manager) setStatus(e *entry, state State, update func(*ComponentStatus)) {
	m.mu.Lock()
	e.status.State = state
	update(&e.status)
	m.mu.Unlock()

	if m.up != nil {
		v := 0.0
		if state == StateRunning {
			v = 1
		}
		m.up.WithLabelValues(e.status.Name).Set(v)
	}
}

// IsRunning reports whether component has started and not stopped.
func (m *Manager) IsRunning(component Component) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byComponent[component]
	return ok && e.status.State == StateRunning
}

// IsReady reports whether every registered component is running. The API
// server uses it for /ready.
func (m *Manager) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.started {
		return false
	}
	for _, e := range m.entries {
		if e.status.State != StateRunning {
			return false
		}
	}
	return true
}

// Status returns a snapshot of every component in registration order.
func (m *Manager) Status() []ComponentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ComponentStatus, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.status
		out[i].DependsOn = append([]string(nil), e.status.DependsOn...)
	}
	return out
}

// SetShutdownTimeout sets the per-component stop timeout.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
