package renewals

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyline/internal/platform/repositories"
)

func setupRenewalRepo(t *testing.T) *repositories.KeyRenewalRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return repositories.NewKeyRenewalRepository(db)
}

func TestRenewKeySuccess(t *testing.T) {
	repo := setupRenewalRepo(t)
	chain := &fakeDispatcher{
		refund:   big.NewInt(200_000),
		gasLimit: big.NewInt(150_000),
		tx:       "0xdeadbeef",
		signer:   "0xsigner",
	}
	oracle := &fakeOracle{gas: big.NewInt(1_000_000)}
	executor := NewExecutor(NewEngine(chain, oracle, 0), chain, repo)

	out, err := executor.RenewKey(context.Background(), Request{Network: 1, LockAddress: "0xlock", KeyID: "7"})
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", out.Tx)
	assert.Equal(t, "0xsigner", out.InitiatedBy)
	assert.Empty(t, out.Error)
	assert.Equal(t, 1, chain.submitted)

	rows, err := repo.ListByKey(1, "0xlock", "7")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0xdeadbeef", rows[0].Tx)
	assert.Equal(t, "0xsigner", rows[0].InitiatedBy)
	assert.Empty(t, rows[0].Error)
}

func TestRenewKeyRejectedWritesNoRow(t *testing.T) {
	repo := setupRenewalRepo(t)
	chain := &fakeDispatcher{refund: big.NewInt(0), gasLimit: big.NewInt(100_000), tx: "0xdeadbeef"}
	oracle := &fakeOracle{gas: big.NewInt(20_000)}
	executor := NewExecutor(NewEngine(chain, oracle, 1000), chain, repo)

	out, err := executor.RenewKey(context.Background(), Request{Network: 1, LockAddress: "0xlock", KeyID: "7"})
	require.NoError(t, err)

	assert.Empty(t, out.Tx)
	assert.Equal(t, "GasRefundValue (0) does not cover gas cost", out.Error)
	assert.Zero(t, chain.submitted)

	rows, err := repo.ListByKey(1, "0xlock", "7")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRenewKeyDecisionErrorReported(t *testing.T) {
	repo := setupRenewalRepo(t)
	chain := &fakeDispatcher{refundErr: errors.New("connection refused")}
	executor := NewExecutor(NewEngine(chain, &fakeOracle{}, 1000), chain, repo)

	out, err := executor.RenewKey(context.Background(), Request{Network: 1, LockAddress: "0xlock", KeyID: "7"})
	require.NoError(t, err)

	assert.Contains(t, out.Error, "connection refused")
	assert.Zero(t, chain.submitted)

	rows, err := repo.ListByKey(1, "0xlock", "7")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRenewKeySubmissionFailureAudited(t *testing.T) {
	repo := setupRenewalRepo(t)
	chain := &fakeDispatcher{
		refund:    big.NewInt(200_000),
		gasLimit:  big.NewInt(150_000),
		submitErr: errors.New("nonce too low"),
		signer:    "0xsigner",
	}
	oracle := &fakeOracle{gas: big.NewInt(1_000_000)}
	executor := NewExecutor(NewEngine(chain, oracle, 0), chain, repo)

	out, err := executor.RenewKey(context.Background(), Request{Network: 1, LockAddress: "0xlock", KeyID: "7"})
	require.NoError(t, err)

	assert.Empty(t, out.Tx)
	assert.Contains(t, out.Error, "nonce too low")

	// The failure is on record, distinguishable from a completed renewal by
	// its missing tx hash.
	rows, err := repo.ListByKey(1, "0xlock", "7")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Tx)
	assert.Contains(t, rows[0].Error, "nonce too low")
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Network: 1, LockAddress: "0xlock", KeyID: "7"}.Validate())
	assert.Error(t, Request{LockAddress: "0xlock", KeyID: "7"}.Validate())
	assert.Error(t, Request{Network: 1, KeyID: "7"}.Validate())
	assert.Error(t, Request{Network: 1, LockAddress: "0xlock"}.Validate())
}
