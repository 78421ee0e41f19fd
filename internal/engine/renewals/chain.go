package renewals

import (
	"context"
	"math/big"
)

// Dispatcher is the boundary to the wallet/RPC layer that reads lock state
// and signs transactions on the operator's behalf. This package never touches
// keys or providers directly; every call below is fallible and must carry its
// own timeout behind the boundary.
type Dispatcher interface {
	// GasRefundValue reads the refund, in gas units, the lock owner has
	// committed to reimburse for operator-submitted renewals.
	GasRefundValue(ctx context.Context, network int64, lockAddress string) (*big.Int, error)

	// EstimateRenewal estimates the gas for renewMembershipFor. It fails when
	// the call would revert, e.g. on locks that do not support recurring
	// renewal.
	EstimateRenewal(ctx context.Context, network int64, lockAddress, keyID string) (*big.Int, error)

	// SubmitRenewal signs and broadcasts the renewal transaction with the
	// given gas limit and returns the transaction hash.
	SubmitRenewal(ctx context.Context, network int64, lockAddress, keyID string, gasLimit *big.Int) (string, error)

	// PurchaserBalance returns the operator wallet balance in wei.
	PurchaserBalance(ctx context.Context, network int64) (*big.Int, error)

	// SignerAddress is the operator address that signs on the given network.
	SignerAddress(network int64) string
}
