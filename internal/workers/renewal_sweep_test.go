package workers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyline/internal/engine/renewals"
	"keyline/internal/jobs"
	"keyline/internal/platform/config"
	"keyline/internal/platform/models"
	"keyline/internal/platform/repositories"
)

func newSweepFixture(t *testing.T, chain *stubChain, networks map[string]config.NetworkConfig, env string) (*RenewalSweep, *repositories.KeySubscriptionRepository, *repositories.KeyRenewalRepository) {
	t.Helper()

	db := setupTestDB(t)
	subs := repositories.NewKeySubscriptionRepository(db)
	renewalRepo := repositories.NewKeyRenewalRepository(db)

	oracle := &stubOracle{gas: big.NewInt(1_000_000)}
	engine := renewals.NewEngine(chain, oracle, 0)
	executor := renewals.NewExecutor(engine, chain, renewalRepo)

	return NewRenewalSweep(executor, subs, networks, env, ""), subs, renewalRepo
}

func TestRenewalSweepRejectsPayload(t *testing.T) {
	sweep, _, _ := newSweepFixture(t, newStubChain(), nil, "test")

	err := sweep.Run(context.Background(), json.RawMessage(`{"network":1}`))
	assert.ErrorIs(t, err, jobs.ErrInvalidPayload)
}

func TestRenewalSweepSkipsTestNetworksInProduction(t *testing.T) {
	chain := newStubChain()
	chain.refunds[1] = big.NewInt(200_000)
	chain.refunds[31337] = big.NewInt(200_000)

	networks := map[string]config.NetworkConfig{
		"mainnet":   {ChainID: 1, Name: "mainnet"},
		"localhost": {ChainID: 31337, Name: "localhost", Test: true},
	}
	sweep, subs, _ := newSweepFixture(t, chain, networks, "production")

	for _, sub := range []*models.KeySubscription{
		{Network: 1, LockAddress: "0xaaa", KeyID: "1", UserAddress: "0xu1", Recurring: 12},
		{Network: 31337, LockAddress: "0xbbb", KeyID: "2", UserAddress: "0xu2", Recurring: 12},
	} {
		require.NoError(t, subs.Create(sub))
	}

	require.NoError(t, sweep.Run(context.Background(), nil))

	assert.Equal(t, 1, chain.refundCallsFor(1))
	assert.Zero(t, chain.refundCallsFor(31337), "test network swept in production")
}

func TestRenewalSweepNetworkIsolation(t *testing.T) {
	chain := newStubChain()
	chain.refundErrs[1] = errors.New("connection refused")
	chain.refunds[137] = big.NewInt(200_000)

	networks := map[string]config.NetworkConfig{
		"mainnet": {ChainID: 1, Name: "mainnet"},
		"polygon": {ChainID: 137, Name: "polygon"},
	}
	sweep, subs, renewalRepo := newSweepFixture(t, chain, networks, "test")

	for _, sub := range []*models.KeySubscription{
		{Network: 1, LockAddress: "0xaaa", KeyID: "1", UserAddress: "0xu1", Recurring: 12},
		{Network: 137, LockAddress: "0xbbb", KeyID: "2", UserAddress: "0xu2", Recurring: 12},
	} {
		require.NoError(t, subs.Create(sub))
	}

	// The unreachable network yields rejected outcomes, not a sweep failure,
	// and the healthy network still renews.
	require.NoError(t, sweep.Run(context.Background(), nil))

	assert.Zero(t, chain.submitsFor(1))
	assert.Equal(t, 1, chain.submitsFor(137))

	rows, err := renewalRepo.ListByKey(137, "0xbbb", "2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0xtx", rows[0].Tx)
}

func TestRenewalSweepStorageFailureSurfaces(t *testing.T) {
	chain := newStubChain()
	chain.refundErrs[1] = errors.New("connection refused")
	chain.refunds[137] = big.NewInt(200_000)

	networks := map[string]config.NetworkConfig{
		"mainnet": {ChainID: 1, Name: "mainnet"},
		"polygon": {ChainID: 137, Name: "polygon"},
	}

	db := setupTestDB(t)
	subs := repositories.NewKeySubscriptionRepository(db)
	renewalRepo := repositories.NewKeyRenewalRepository(db)
	executor := renewals.NewExecutor(renewals.NewEngine(chain, &stubOracle{gas: big.NewInt(1_000_000)}, 0), chain, renewalRepo)
	sweep := NewRenewalSweep(executor, subs, networks, "test", "")

	for _, sub := range []*models.KeySubscription{
		{Network: 1, LockAddress: "0xaaa", KeyID: "1", UserAddress: "0xu1", Recurring: 12},
		{Network: 137, LockAddress: "0xbbb", KeyID: "2", UserAddress: "0xu2", Recurring: 12},
	} {
		require.NoError(t, subs.Create(sub))
	}

	// Breaking the audit table fails the network that submits a renewal; the
	// network whose keys were rejected never writes a row and stays clean.
	_, err := db.Exec(`DROP TABLE key_renewals`)
	require.NoError(t, err)

	err = sweep.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network 137")
	assert.NotContains(t, err.Error(), "network 1:")

	assert.Equal(t, 1, chain.refundCallsFor(1), "failing sibling must not stop this network")
}

func TestRenewalKeyJob(t *testing.T) {
	chain := newStubChain()
	chain.refunds[1] = big.NewInt(200_000)

	db := setupTestDB(t)
	renewalRepo := repositories.NewKeyRenewalRepository(db)
	executor := renewals.NewExecutor(renewals.NewEngine(chain, &stubOracle{gas: big.NewInt(1_000_000)}, 0), chain, renewalRepo)
	job := NewRenewalKeyJob(executor)

	assert.ErrorIs(t, job.Run(context.Background(), nil), jobs.ErrInvalidPayload)
	assert.ErrorIs(t, job.Run(context.Background(), json.RawMessage(`{"network":1}`)), jobs.ErrInvalidPayload)

	payload := json.RawMessage(`{"network":1,"lockAddress":"0xaaa","keyId":"7"}`)
	require.NoError(t, job.Run(context.Background(), payload))
	assert.Equal(t, 1, chain.submitsFor(1))
}
