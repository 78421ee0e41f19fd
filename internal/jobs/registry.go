package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"keyline/internal/platform/metrics"
)

// ErrInvalidPayload marks a payload that failed schema validation. Such a run
// must not be retried: replaying a malformed payload cannot succeed.
var ErrInvalidPayload = errors.New("invalid job payload")

var ErrUnknownJob = errors.New("unknown job")

// Job is one named, independently invocable unit of work. Run must validate
// its payload before causing any side effect.
type Job struct {
	Name     string
	Schedule string // cron expression; empty means on-demand only
	Run      func(ctx context.Context, payload json.RawMessage) error
}

// Registry holds the process's jobs. It is constructed at startup and passed
// by reference wherever jobs are dispatched; there is no package-level state.
type Registry struct {
	jobs  map[string]Job
	order []string
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Job)}
}

func (r *Registry) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	r.jobs[job.Name] = job
	r.order = append(r.order, job.Name)
	return nil
}

// Run invokes one job by name.
func (r *Registry) Run(ctx context.Context, name string, payload json.RawMessage) error {
	job, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	err := job.Run(ctx, payload)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.JobRuns.WithLabelValues(name, status).Inc()
	return err
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Schedule attaches every job that carries a cron expression to the runner.
// Scheduled runs get no payload; jobs that require one are on-demand only.
func (r *Registry) Schedule(ctx context.Context, runner *cron.Cron) error {
	for _, name := range r.order {
		job := r.jobs[name]
		if job.Schedule == "" {
			continue
		}

		name := name
		_, err := runner.AddFunc(job.Schedule, func() {
			if err := r.Run(ctx, name, nil); err != nil {
				log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			}
		})
		if err != nil {
			return fmt.Errorf("job %q: bad schedule %q: %w", name, job.Schedule, err)
		}
	}
	return nil
}

// Decode strictly unmarshals a payload into its declared shape. Unknown
// fields are rejected so malformed payloads fail loudly instead of running
// with silently dropped parameters.
func Decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
