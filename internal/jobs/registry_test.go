package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndRun(t *testing.T) {
	registry := NewRegistry()

	var gotPayload json.RawMessage
	err := registry.Register(Job{
		Name: "test.echo",
		Run: func(ctx context.Context, payload json.RawMessage) error {
			gotPayload = payload
			return nil
		},
	})
	require.NoError(t, err)

	err = registry.Run(context.Background(), "test.echo", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(gotPayload))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	job := Job{Name: "test.echo", Run: func(ctx context.Context, payload json.RawMessage) error { return nil }}

	require.NoError(t, registry.Register(job))
	assert.Error(t, registry.Register(job))
}

func TestRegistryRejectsIncompleteJobs(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(Job{Name: "test.norun"}))
	assert.Error(t, registry.Register(Job{Run: func(ctx context.Context, payload json.RawMessage) error { return nil }}))
}

func TestRegistryUnknownJob(t *testing.T) {
	registry := NewRegistry()
	err := registry.Run(context.Background(), "no.such.job", nil)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRegistryRunPropagatesError(t *testing.T) {
	registry := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, registry.Register(Job{
		Name: "test.fail",
		Run:  func(ctx context.Context, payload json.RawMessage) error { return boom },
	}))

	assert.ErrorIs(t, registry.Run(context.Background(), "test.fail", nil), boom)
}

func TestRegistryNamesInRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	run := func(ctx context.Context, payload json.RawMessage) error { return nil }

	require.NoError(t, registry.Register(Job{Name: "b", Run: run}))
	require.NoError(t, registry.Register(Job{Name: "a", Run: run}))
	require.NoError(t, registry.Register(Job{Name: "c", Run: run}))

	assert.Equal(t, []string{"b", "a", "c"}, registry.Names())
}

func TestRegistryScheduleBadExpression(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Job{
		Name:     "test.cron",
		Schedule: "not a cron expression",
		Run:      func(ctx context.Context, payload json.RawMessage) error { return nil },
	}))

	err := registry.Schedule(context.Background(), cron.New())
	assert.ErrorContains(t, err, "bad schedule")
}

func TestRegistryScheduleSkipsOnDemandJobs(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Job{
		Name: "test.ondemand",
		Run:  func(ctx context.Context, payload json.RawMessage) error { return nil },
	}))
	require.NoError(t, registry.Register(Job{
		Name:     "test.cron",
		Schedule: "*/5 * * * *",
		Run:      func(ctx context.Context, payload json.RawMessage) error { return nil },
	}))

	runner := cron.New()
	require.NoError(t, registry.Schedule(context.Background(), runner))
	assert.Len(t, runner.Entries(), 1)
}

func TestDecode(t *testing.T) {
	type payload struct {
		Network int64 `json:"network"`
	}

	var p payload
	require.NoError(t, Decode(json.RawMessage(`{"network":137}`), &p))
	assert.Equal(t, int64(137), p.Network)

	assert.ErrorIs(t, Decode(nil, &p), ErrInvalidPayload)
	assert.ErrorIs(t, Decode(json.RawMessage(`{"network":1,"bogus":true}`), &p), ErrInvalidPayload)
	assert.ErrorIs(t, Decode(json.RawMessage(`{`), &p), ErrInvalidPayload)
}
