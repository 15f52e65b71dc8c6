package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func component(j *journal, name string, startErr error) *Hooks {
	return &Hooks{
		ComponentName: name,
		OnStart: func(context.Context) error {
			j.add("start " + name)
			return startErr
		},
		OnStop: func(context.Context) error {
			j.add("stop " + name)
			return nil
		},
	}
}

func TestManagerStartsInDependencyOrder(t *testing.T) {
	j := &journal{}
	m := NewManager()
	store := component(j, "store", nil)
	svc := component(j, "service", nil)
	api := component(j, "api", nil)

	require.NoError(t, m.Register(api))
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(svc, store))
	require.NoError(t, m.Register(&Hooks{ComponentName: "noop"}))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning(svc))

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.IsRunning(svc))

	assert.Equal(t, []string{
		"start api", "start store", "start service",
		"stop service", "stop store", "stop api",
	}, j.list())
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	j := &journal{}
	m := NewManager()
	store := component(j, "store", nil)
	svc := component(j, "service", errors.New("no specialist"))
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(svc, store))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialization failed for service")
	assert.Equal(t, []string{"start store", "start service", "stop store"}, j.list())
	assert.False(t, m.IsRunning(store))
}

func TestManagerRegisterValidation(t *testing.T) {
	m := NewManager()
	a := &Hooks{ComponentName: "a"}

	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&Hooks{}))
	assert.Error(t, m.Register(a, &Hooks{ComponentName: "unregistered"}))
	require.NoError(t, m.Register(a))
	assert.Error(t, m.Register(a))
}

func TestManagerStopTimeoutDoesNotBlockOthers(t *testing.T) {
	j := &journal{}
	m := NewManager()
	m.SetShutdownTimeout(20 * time.Millisecond)

	slow := &Hooks{
		ComponentName: "slow",
		OnStop: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	fast := component(j, "fast", nil)
	require.NoError(t, m.Register(fast))
	require.NoError(t, m.Register(slow, fast))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"start fast", "stop fast"}, j.list())
	assert.False(t, m.IsRunning(slow))
}

func TestManagerReadinessAndStatus(t *testing.T) {
	j := &journal{}
	m := NewManager()
	svc := component(j, "analysis-service", nil)
	api := component(j, "api", nil)
	require.NoError(t, m.Register(svc))
	require.NoError(t, m.Register(api, svc))
	assert.False(t, m.IsReady(), "not ready before start")

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsReady())
	assert.Error(t, m.Register(&Hooks{ComponentName: "late"}), "registration closes at start")

	status := m.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "api", status[1].Name)
	assert.Equal(t, StateRunning, status[1].State)
	assert.Equal(t, []string{"analysis-service"}, status[1].DependsOn)

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.IsReady())
	assert.Equal(t, StateStopped, m.Status()[0].State)
}

func TestManagerFailedStartIsRecorded(t *testing.T) {
	m := NewManager()
	boom := errors.New("port in use")
	api := &Hooks{ComponentName: "api", OnStart: func(context.Context) error { return boom }}
	require.NoError(t, m.Register(api))

	require.ErrorIs(t, m.Start(context.Background()), boom)
	status := m.Status()
	assert.Equal(t, StateFailed, status[0].State)
	assert.ErrorIs(t, status[0].Err, boom)
	assert.False(t, m.IsReady())
}

func TestManagerExportsComponentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(WithRegisterer(reg))
	svc := &Hooks{ComponentName: "analysis-service"}
	require.NoError(t, m.Register(svc))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.up.WithLabelValues("analysis-service")))

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.up.WithLabelValues("analysis-service")))
}
