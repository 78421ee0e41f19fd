package workers

import (
	"context"
	"database/sql"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

// stubChain satisfies renewals.Dispatcher with per-network canned responses
// and call accounting. Sweeps fan out concurrently, hence the lock.
type stubChain struct {
	mu sync.Mutex

	refunds    map[int64]*big.Int
	refundErrs map[int64]error
	gasLimit   *big.Int
	balances   map[int64]*big.Int
	balanceErr map[int64]error

	refundCalls map[int64]int
	submits     map[int64]int
}

func newStubChain() *stubChain {
	return &stubChain{
		refunds:     map[int64]*big.Int{},
		refundErrs:  map[int64]error{},
		gasLimit:    big.NewInt(150_000),
		balances:    map[int64]*big.Int{},
		balanceErr:  map[int64]error{},
		refundCalls: map[int64]int{},
		submits:     map[int64]int{},
	}
}

func (s *stubChain) GasRefundValue(ctx context.Context, network int64, lockAddress string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refundCalls[network]++
	if err := s.refundErrs[network]; err != nil {
		return nil, err
	}
	if refund, ok := s.refunds[network]; ok {
		return refund, nil
	}
	return big.NewInt(0), nil
}

func (s *stubChain) EstimateRenewal(ctx context.Context, network int64, lockAddress, keyID string) (*big.Int, error) {
	return s.gasLimit, nil
}

func (s *stubChain) SubmitRenewal(ctx context.Context, network int64, lockAddress, keyID string, gasLimit *big.Int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits[network]++
	return "0xtx", nil
}

func (s *stubChain) PurchaserBalance(ctx context.Context, network int64) (*big.Int, error) {
	if err := s.balanceErr[network]; err != nil {
		return nil, err
	}
	if balance, ok := s.balances[network]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (s *stubChain) SignerAddress(network int64) string {
	return "0xsigner"
}

func (s *stubChain) refundCallsFor(network int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refundCalls[network]
}

func (s *stubChain) submitsFor(network int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits[network]
}

// stubOracle satisfies pricing.Oracle with per-network quotes in microcents.
type stubOracle struct {
	gas        *big.Int
	natives    map[int64]*big.Int
	nativeErrs map[int64]error
}

func (s *stubOracle) GasPrice(ctx context.Context, network int64) (*big.Int, error) {
	return s.gas, nil
}

func (s *stubOracle) NativePrice(ctx context.Context, network int64) (*big.Int, error) {
	if err := s.nativeErrs[network]; err != nil {
		return nil, err
	}
	return s.natives[network], nil
}
