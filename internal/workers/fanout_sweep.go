package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"keyline/internal/engine/webhooks"
	"keyline/internal/jobs"
	"keyline/internal/pkg/fanout"
	"keyline/internal/platform/models"
	"keyline/internal/platform/repositories"
)

// FanoutPayload describes one domain event to broadcast: every active
// subscribe-mode hook whose topic pattern matches gets its own delivery.
type FanoutPayload struct {
	Network int64           `json:"network"`
	Topic   string          `json:"topic"`
	Lock    string          `json:"lock,omitempty"`
	Body    json.RawMessage `json:"body"`
}

func (p FanoutPayload) Validate() error {
	if p.Network <= 0 {
		return errors.New("network is required")
	}
	if p.Topic == "" {
		return errors.New("topic is required")
	}
	if len(p.Body) == 0 {
		return errors.New("body is required")
	}
	return nil
}

// FanoutSweep resolves the hooks interested in a domain event and hands each
// one to the delivery orchestrator. Deliveries run concurrently; one
// subscriber's failure never affects its siblings.
type FanoutSweep struct {
	hooks        *repositories.HookRepository
	orchestrator *webhooks.Orchestrator
}

func NewFanoutSweep(hooks *repositories.HookRepository, orchestrator *webhooks.Orchestrator) *FanoutSweep {
	return &FanoutSweep{hooks: hooks, orchestrator: orchestrator}
}

func (w *FanoutSweep) Job() jobs.Job {
	return jobs.Job{Name: "webhooks.fanout", Run: w.Run}
}

func (w *FanoutSweep) Run(ctx context.Context, payload json.RawMessage) error {
	var p FanoutPayload
	if err := jobs.Decode(payload, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}

	hooks, err := w.hooks.ListActiveSubscribers(p.Network, time.Now().Unix())
	if err != nil {
		return err
	}

	var matched []*models.Hook
	for _, hook := range hooks {
		if webhooks.TopicMatches(hook.Topic, p.Topic) {
			matched = append(matched, hook)
		}
	}
	if len(matched) == 0 {
		log.Debug().Int64("network", p.Network).Str("topic", p.Topic).Msg("no hooks subscribed to topic")
		return nil
	}

	results := fanout.Settle(matched, func(hook *models.Hook) error {
		_, err := w.orchestrator.Notify(ctx, hook, p.Lock, p.Body)
		return err
	})

	// Only storage failures surface from Notify; those must reach the runner.
	var errs []error
	for _, failure := range fanout.Failures(results) {
		errs = append(errs, fmt.Errorf("hook %s: %w", failure.Input.ID, failure.Err))
	}
	return errors.Join(errs...)
}
