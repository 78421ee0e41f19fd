package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"keyline/internal/engine/renewals"
	"keyline/internal/jobs"
	"keyline/internal/pkg/fanout"
	"keyline/internal/platform/config"
	"keyline/internal/platform/repositories"
)

// RenewalSweep walks every configured network and runs the renewal path over
// the recurring subscriptions found there. Networks are swept concurrently
// and independently: one network failing never aborts the others.
type RenewalSweep struct {
	executor *renewals.Executor
	subs     *repositories.KeySubscriptionRepository
	networks map[string]config.NetworkConfig
	env      string
	schedule string
}

func NewRenewalSweep(executor *renewals.Executor, subs *repositories.KeySubscriptionRepository, networks map[string]config.NetworkConfig, env, schedule string) *RenewalSweep {
	return &RenewalSweep{executor: executor, subs: subs, networks: networks, env: env, schedule: schedule}
}

func (w *RenewalSweep) Job() jobs.Job {
	return jobs.Job{Name: "renewals.sweep", Schedule: w.schedule, Run: w.Run}
}

func (w *RenewalSweep) Run(ctx context.Context, payload json.RawMessage) error {
	if len(payload) > 0 {
		return fmt.Errorf("%w: the renewal sweep takes no payload", jobs.ErrInvalidPayload)
	}

	var networks []config.NetworkConfig
	for _, network := range w.networks {
		if network.Test && w.env == "production" {
			continue
		}
		networks = append(networks, network)
	}

	results := fanout.Settle(networks, func(network config.NetworkConfig) error {
		return w.sweepNetwork(ctx, network.ChainID)
	})

	var errs []error
	for _, failure := range fanout.Failures(results) {
		log.Error().
			Err(failure.Err).
			Int64("network", failure.Input.ChainID).
			Str("name", failure.Input.Name).
			Msg("renewal sweep failed for network")
		errs = append(errs, fmt.Errorf("network %d: %w", failure.Input.ChainID, failure.Err))
	}
	return errors.Join(errs...)
}

func (w *RenewalSweep) sweepNetwork(ctx context.Context, network int64) error {
	subs, err := w.subs.ListRecurring(network)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		outcome, err := w.executor.RenewKey(ctx, renewals.Request{
			Network:     network,
			LockAddress: sub.LockAddress,
			KeyID:       sub.KeyID,
		})
		if err != nil {
			// Storage failure: the audit trail is broken, stop this network.
			return err
		}
		if outcome.Error != "" {
			log.Warn().
				Int64("network", network).
				Str("lock", sub.LockAddress).
				Str("key", sub.KeyID).
				Str("reason", outcome.Error).
				Msg("key not renewed")
		}
	}
	return nil
}

// RenewalKeyJob renews one specific key on demand.
type RenewalKeyJob struct {
	executor *renewals.Executor
}

func NewRenewalKeyJob(executor *renewals.Executor) *RenewalKeyJob {
	return &RenewalKeyJob{executor: executor}
}

func (w *RenewalKeyJob) Job() jobs.Job {
	return jobs.Job{Name: "renewals.key", Run: w.Run}
}

func (w *RenewalKeyJob) Run(ctx context.Context, payload json.RawMessage) error {
	var req renewals.Request
	if err := jobs.Decode(payload, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}

	_, err := w.executor.RenewKey(ctx, req)
	return err
}
