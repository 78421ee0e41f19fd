package webhooks

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"keyline/internal/platform/metrics"
	"keyline/internal/platform/models"
	"keyline/internal/platform/repositories"
)

type RetryPolicy struct {
	Retries      int
	BackoffMin   time.Duration
	BackoffCap   time.Duration
	RetryCeiling time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:      3,
		BackoffMin:   100 * time.Millisecond,
		BackoffCap:   200 * time.Millisecond,
		RetryCeiling: time.Second,
	}
}

// Orchestrator wraps the Notifier in a bounded retry policy, consults hook
// health, and persists every attempt so a crash mid-delivery still leaves an
// auditable trail.
type Orchestrator struct {
	notifier *Notifier
	health   *HealthTracker
	events   *repositories.HookEventRepository
	policy   RetryPolicy
}

func NewOrchestrator(notifier *Notifier, health *HealthTracker, events *repositories.HookEventRepository, policy RetryPolicy) *Orchestrator {
	if policy.Retries == 0 && policy.RetryCeiling == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Orchestrator{notifier: notifier, health: health, events: events, policy: policy}
}

// Notify delivers one payload to one hook. Delivery failures are encoded in
// the returned event's state and last error, never in the error return; a
// non-nil error means the audit trail itself could not be persisted.
func (o *Orchestrator) Notify(ctx context.Context, hook *models.Hook, lock string, body any) (*models.HookEvent, error) {
	payload, err := Payload(body)
	if err != nil {
		return nil, err
	}

	// Evaluated once, before this delivery's own event exists: the failures
	// recorded below must not flip the verdict mid-delivery.
	unhealthy, err := o.health.IsUnhealthy(hook)
	if err != nil {
		return nil, err
	}

	event := &models.HookEvent{
		HookID:  hook.ID,
		Network: hook.Network,
		Lock:    lock,
		Topic:   hook.Topic,
		Body:    string(payload),
		State:   models.EventStatePending,
	}
	if err := o.events.Create(event); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(o.policy.RetryCeiling)
	delay := o.policy.BackoffMin

	for attempt := 0; ; attempt++ {
		result := o.notifier.Deliver(ctx, hook, payload)
		event.Attempts++

		if result.OK {
			event.State = models.EventStateSuccess
			event.LastError = ""
			if err := o.events.Update(event); err != nil {
				return nil, err
			}
			metrics.WebhookDeliveries.WithLabelValues(models.EventStateSuccess).Inc()
			return event, nil
		}

		event.State = models.EventStateFailed
		event.LastError = result.StatusText
		if err := o.events.Update(event); err != nil {
			return nil, err
		}
		log.Warn().
			Str("hook", hook.ID).
			Int("attempt", event.Attempts).
			Str("status", result.StatusText).
			Msg("webhook delivery failed")

		if unhealthy {
			// Circuit breaker: no success in the hook's recent history, stop
			// after a single attempt.
			break
		}
		if attempt >= o.policy.Retries {
			break
		}
		if !time.Now().Add(delay).Before(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			metrics.WebhookDeliveries.WithLabelValues(models.EventStateFailed).Inc()
			return event, nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > o.policy.BackoffCap {
			delay = o.policy.BackoffCap
		}
	}

	metrics.WebhookDeliveries.WithLabelValues(models.EventStateFailed).Inc()
	return event, nil
}
