package renewals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"keyline/internal/platform/metrics"
	"keyline/internal/platform/models"
	"keyline/internal/platform/repositories"
)

type Request struct {
	Network     int64  `json:"network"`
	LockAddress string `json:"lockAddress"`
	KeyID       string `json:"keyId"`
}

func (r Request) Validate() error {
	if r.Network <= 0 {
		return fmt.Errorf("network is required")
	}
	if r.LockAddress == "" {
		return fmt.Errorf("lockAddress is required")
	}
	if r.KeyID == "" {
		return fmt.Errorf("keyId is required")
	}
	return nil
}

// Outcome reports one renewal attempt. Tx is set only when a transaction was
// submitted; Error carries the reason otherwise.
type Outcome struct {
	Network     int64  `json:"network"`
	LockAddress string `json:"lockAddress"`
	KeyID       string `json:"keyId"`
	Tx          string `json:"tx,omitempty"`
	InitiatedBy string `json:"initiatedBy,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Executor submits renewals the decision engine cleared and keeps the audit
// trail.
type Executor struct {
	engine   *Engine
	chain    Dispatcher
	renewals *repositories.KeyRenewalRepository
}

func NewExecutor(engine *Engine, chain Dispatcher, renewals *repositories.KeyRenewalRepository) *Executor {
	return &Executor{engine: engine, chain: chain, renewals: renewals}
}

// RenewKey runs the economic check and, when it clears, submits the renewal
// transaction and records a KeyRenewal row. Rejections and submission
// failures come back in the Outcome; the error return is reserved for storage
// failures, which must not be swallowed.
func (x *Executor) RenewKey(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Network: req.Network, LockAddress: req.LockAddress, KeyID: req.KeyID}

	decision := x.engine.IsWorthRenewing(ctx, req.Network, req.LockAddress, req.KeyID)
	if !decision.ShouldRenew {
		if decision.Err != nil {
			out.Error = decision.Err.Error()
		} else {
			out.Error = fmt.Sprintf("GasRefundValue (%s) does not cover gas cost", decision.GasRefund)
		}
		metrics.KeyRenewals.WithLabelValues("rejected").Inc()
		log.Info().
			Int64("network", req.Network).
			Str("lock", req.LockAddress).
			Str("key", req.KeyID).
			Str("reason", out.Error).
			Msg("renewal not worth submitting")
		return out, nil
	}

	initiatedBy := x.chain.SignerAddress(req.Network)

	tx, err := x.chain.SubmitRenewal(ctx, req.Network, req.LockAddress, req.KeyID, decision.GasLimit)
	if err != nil {
		out.Error = err.Error()
		metrics.KeyRenewals.WithLabelValues("failed").Inc()
		log.Error().
			Err(err).
			Int64("network", req.Network).
			Str("lock", req.LockAddress).
			Str("key", req.KeyID).
			Msg("renewal submission failed")
		// Audit the failed submission too; with no tx hash it cannot be
		// mistaken for a completed renewal.
		if dbErr := x.renewals.Create(&models.KeyRenewal{
			Network:     req.Network,
			LockAddress: req.LockAddress,
			KeyID:       req.KeyID,
			InitiatedBy: initiatedBy,
			Error:       err.Error(),
		}); dbErr != nil {
			return out, dbErr
		}
		return out, nil
	}

	out.Tx = tx
	out.InitiatedBy = initiatedBy

	if err := x.renewals.Create(&models.KeyRenewal{
		Network:     req.Network,
		LockAddress: req.LockAddress,
		KeyID:       req.KeyID,
		Tx:          tx,
		InitiatedBy: initiatedBy,
	}); err != nil {
		return out, err
	}

	metrics.KeyRenewals.WithLabelValues("success").Inc()
	log.Info().
		Int64("network", req.Network).
		Str("lock", req.LockAddress).
		Str("key", req.KeyID).
		Str("tx", tx).
		Msg("key renewed")
	return out, nil
}
