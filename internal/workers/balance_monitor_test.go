package workers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyline/internal/jobs"
	"keyline/internal/platform/config"
	"keyline/internal/platform/metrics"
)

func TestBalanceMonitorRejectsPayload(t *testing.T) {
	monitor := NewBalanceMonitor(newStubChain(), &stubOracle{}, nil, 0, "")
	err := monitor.Run(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, jobs.ErrInvalidPayload)
}

func TestBalanceMonitorRecordsFiatBalance(t *testing.T) {
	chain := newStubChain()
	// 2 tokens at 2500 cents each: 5000 cents on the wallet.
	chain.balances[137] = new(big.Int).Mul(big.NewInt(2), weiPerToken)

	oracle := &stubOracle{
		natives: map[int64]*big.Int{137: big.NewInt(2_500_000_000)},
	}
	networks := map[string]config.NetworkConfig{
		"polygon": {ChainID: 137, Name: "polygon"},
	}

	monitor := NewBalanceMonitor(chain, oracle, networks, 10_000, "")
	require.NoError(t, monitor.Run(context.Background(), nil))

	got := testutil.ToFloat64(metrics.PurchaserBalance.WithLabelValues("polygon"))
	assert.Equal(t, float64(5000), got)
}

func TestBalanceMonitorSkipsFailingNetworks(t *testing.T) {
	chain := newStubChain()
	chain.balanceErr[1] = errors.New("connection refused")
	chain.balances[137] = new(big.Int).Mul(big.NewInt(10), weiPerToken)

	oracle := &stubOracle{
		natives:    map[int64]*big.Int{137: big.NewInt(1_000_000_000)},
		nativeErrs: map[int64]error{10: errors.New("pricing oracle returned 503 Service Unavailable")},
	}
	networks := map[string]config.NetworkConfig{
		"mainnet":  {ChainID: 1, Name: "mainnet"},
		"optimism": {ChainID: 10, Name: "optimism"},
		"polygon":  {ChainID: 137, Name: "polygon"},
	}

	// Unreachable balance and oracle reads are logged and skipped; the run
	// itself never fails.
	monitor := NewBalanceMonitor(chain, oracle, networks, 100, "")
	require.NoError(t, monitor.Run(context.Background(), nil))

	got := testutil.ToFloat64(metrics.PurchaserBalance.WithLabelValues("polygon"))
	assert.Equal(t, float64(10_000), got)
}
