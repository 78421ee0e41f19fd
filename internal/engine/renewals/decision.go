package renewals

import (
	"context"
	"math/big"

	"keyline/internal/engine/pricing"
)

// Decision is the outcome of the economic check. Err being set means the
// check could not be completed; callers treat that the same as "do not renew
// now".
type Decision struct {
	ShouldRenew bool
	GasRefund   *big.Int
	GasLimit    *big.Int
	Err         error
}

// Engine decides whether the operator should pay gas to renew a key: either
// the lock's gas refund covers the cost, or the cost falls under the
// operator's subsidy ceiling.
type Engine struct {
	chain   Dispatcher
	oracle  pricing.Oracle
	maxCost *big.Int // subsidy ceiling, microcents
}

func NewEngine(chain Dispatcher, oracle pricing.Oracle, maxCostCents int64) *Engine {
	return &Engine{chain: chain, oracle: oracle, maxCost: pricing.Cents(maxCostCents)}
}

// IsWorthRenewing never returns an error: estimation reverts and RPC failures
// are folded into the decision so the sweep treats "could not determine" and
// "not worth it" uniformly.
func (e *Engine) IsWorthRenewing(ctx context.Context, network int64, lockAddress, keyID string) Decision {
	refund, err := e.chain.GasRefundValue(ctx, network, lockAddress)
	if err != nil {
		return Decision{Err: err}
	}

	gasLimit, err := e.chain.EstimateRenewal(ctx, network, lockAddress, keyID)
	if err != nil {
		return Decision{GasRefund: refund, Err: err}
	}

	gasPrice, err := e.oracle.GasPrice(ctx, network)
	if err != nil {
		return Decision{GasRefund: refund, Err: err}
	}

	costToRenew := new(big.Int).Mul(gasLimit, gasPrice)
	costRefunded := new(big.Int).Mul(refund, gasPrice)

	covered := costToRenew.Cmp(costRefunded) <= 0 || costToRenew.Cmp(e.maxCost) <= 0
	return Decision{ShouldRenew: covered, GasRefund: refund, GasLimit: gasLimit}
}
