package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"keyline/internal/engine/pricing"
	"keyline/internal/engine/renewals"
	"keyline/internal/jobs"
	"keyline/internal/platform/config"
	"keyline/internal/platform/metrics"
)

// weiPerToken converts native balances (wei) to whole tokens.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// BalanceMonitor polls the operator's purchaser wallet balance on every
// network and raises an alert when the fiat value drops below the threshold.
// A network whose price oracle is unavailable is logged and skipped, never
// failing the sweep.
type BalanceMonitor struct {
	chain    renewals.Dispatcher
	oracle   pricing.Oracle
	networks map[string]config.NetworkConfig
	minimum  *big.Int // microcents
	schedule string
}

func NewBalanceMonitor(chain renewals.Dispatcher, oracle pricing.Oracle, networks map[string]config.NetworkConfig, minBalanceCents int64, schedule string) *BalanceMonitor {
	return &BalanceMonitor{
		chain:    chain,
		oracle:   oracle,
		networks: networks,
		minimum:  pricing.Cents(minBalanceCents),
		schedule: schedule,
	}
}

func (w *BalanceMonitor) Job() jobs.Job {
	return jobs.Job{Name: "balance.monitor", Schedule: w.schedule, Run: w.Run}
}

func (w *BalanceMonitor) Run(ctx context.Context, payload json.RawMessage) error {
	if len(payload) > 0 {
		return fmt.Errorf("%w: the balance monitor takes no payload", jobs.ErrInvalidPayload)
	}

	for _, network := range w.networks {
		w.checkNetwork(ctx, network)
	}
	return nil
}

func (w *BalanceMonitor) checkNetwork(ctx context.Context, network config.NetworkConfig) {
	balance, err := w.chain.PurchaserBalance(ctx, network.ChainID)
	if err != nil {
		log.Warn().Err(err).Int64("network", network.ChainID).Msg("balance read failed, skipping network")
		return
	}

	price, err := w.oracle.NativePrice(ctx, network.ChainID)
	if err != nil {
		log.Warn().Err(err).Int64("network", network.ChainID).Msg("price oracle unavailable, skipping network")
		return
	}

	// balance(wei) * price(microcents per token) / wei per token
	fiat := new(big.Int).Mul(balance, price)
	fiat.Div(fiat, weiPerToken)

	cents := new(big.Int).Div(fiat, big.NewInt(pricing.CentsScale))
	metrics.PurchaserBalance.WithLabelValues(network.Name).Set(float64(cents.Int64()))

	if fiat.Cmp(w.minimum) < 0 {
		log.Error().
			Int64("network", network.ChainID).
			Str("name", network.Name).
			Str("balance_cents", cents.String()).
			Str("signer", w.chain.SignerAddress(network.ChainID)).
			Msg("purchaser balance below threshold, top up required")
	}
}
