package db

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(filepath.Join(t.TempDir(), "referee.sqlite"))
	require.NoError(t, err)
	d.SetBcryptCost(bcrypt.MinCost)
	t.Cleanup(func() { d.Close() })
	return d
}

func seed(t *testing.T, d *DB, address string, balance int64) {
	t.Helper()
	require.NoError(t, d.CreateAccount(context.Background(), &Account{
		Address: address,
		Type:    "bitcoin",
		Network: "test",
		Balance: contract.NewAmount(balance),
	}, "secret"))
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	seed(t, d, "alice", 500)

	acct, err := d.GetAccount(ctx, AccountQuery{Address: "alice", Password: "secret"}, true)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", acct.Type)
	assert.Equal(t, "test", acct.Network)
	assert.Equal(t, "500", acct.Balance.String())

	_, err = d.GetAccount(ctx, AccountQuery{Address: "alice", Password: "wrong"}, true)
	assert.ErrorIs(t, err, ErrBadCredentials)

	// Without the credential check any password is accepted.
	_, err = d.GetAccount(ctx, AccountQuery{Address: "alice"}, false)
	assert.NoError(t, err)

	_, err = d.GetAccount(ctx, AccountQuery{Address: "alice", Network: "main", Password: "secret"}, true)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = d.GetAccount(ctx, AccountQuery{Address: "bob"}, false)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAccountBalance(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	seed(t, d, "alice", 500)

	acct, err := d.UpdateAccountBalance(ctx, "alice", contract.NewAmount(-200), "buyin", "c1")
	require.NoError(t, err)
	assert.Equal(t, "300", acct.Balance.String())

	_, err = d.UpdateAccountBalance(ctx, "alice", contract.NewAmount(-301), "buyin", "c2")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	acct, err = d.UpdateAccountBalance(ctx, "alice", contract.NewAmount(50), "payout", "c1")
	require.NoError(t, err)
	assert.Equal(t, "350", acct.Balance.String())

	// The rejected debit left no trace.
	entries, err := d.Ledger(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "-200", entries[0].Delta.String())
	assert.Equal(t, "buyin", entries[0].Reason)
	assert.Equal(t, "350", entries[1].Balance.String())
	assert.Equal(t, "c1", entries[1].ContractID)

	_, err = d.UpdateAccountBalance(ctx, "bob", contract.NewAmount(1), "payout", "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestLargeBalances(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	seed(t, d, "whale", 0)

	big, err := contract.ParseAmount("123456789012345678901234567890")
	require.NoError(t, err)
	acct, err := d.UpdateAccountBalance(ctx, "whale", big, "deposit", "")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", acct.Balance.String())

	acct.Balance = acct.Balance.Add(contract.NewAmount(10))
	require.NoError(t, d.SaveAccount(ctx, acct))
	got, err := d.GetAccount(ctx, AccountQuery{Address: "whale"}, false)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567900", got.Balance.String())
}

func TestSaveLoadContracts(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	c := &contract.Contract{
		ContractID: "c1",
		OwnerPID:   "alice",
		Pot:        contract.NewAmount(40),
		Players: []*contract.Player{
			{PrivateID: "alice", IsDealer: true, Balance: contract.NewAmount(980), Agreed: true},
			{PrivateID: "bob", Balance: contract.NewAmount(980)},
		},
		History: contract.NewHistory(),
	}
	c.History.AddDeck("alice", []string{"4", "9", "16"})
	require.NoError(t, d.SaveContract(ctx, c))

	// Saving again replaces the snapshot.
	c.Pot = contract.NewAmount(60)
	require.NoError(t, d.SaveContract(ctx, c))

	done := &contract.Contract{ContractID: "c2", OwnerPID: "alice", Invalid: true}
	require.NoError(t, d.SaveContract(ctx, done))

	open, err := d.LoadContracts(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	got := open[0]
	assert.Equal(t, "c1", got.ContractID)
	assert.Equal(t, "60", got.Pot.String())
	require.Len(t, got.Players, 2)
	assert.True(t, got.Players[0].Agreed)
	assert.Equal(t, "980", got.Players[1].Balance.String())
	require.Len(t, got.History.Deck, 1)
	assert.Equal(t, []string{"4", "9", "16"}, got.History.Deck[0].Cards)

	all, err := d.LoadContracts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
