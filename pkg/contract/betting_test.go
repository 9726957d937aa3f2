package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/contract/contracttest"
)

func bet(t *testing.T, c *contract.Contract, pid string, amount int64) *contract.BetResult {
	t.Helper()
	res, err := c.ApplyBet(pid, contract.NewAmount(amount))
	require.NoError(t, err)
	return res
}

func TestHeadsUpBlinds(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Funded("c1", time.Now())

	// Pre-flop the dealer acts first.
	assert.Equal(t, "alice", c.NextBettingPlayer(""))

	res := bet(t, c, "alice", 5)
	assert.Equal(t, contract.BetRaise, res.Kind)
	assert.Equal(t, "bob", res.NextPID)

	res = bet(t, c, "bob", 10)
	assert.Equal(t, contract.BetRaise, res.Kind)
	assert.False(t, res.BettingDone)
	assert.Equal(t, "alice", res.NextPID)

	res = bet(t, c, "alice", 5)
	assert.Equal(t, contract.BetCall, res.Kind)
	assert.False(t, res.BettingDone, "big blind has not used its option")
	assert.Equal(t, "bob", res.NextPID)

	res = bet(t, c, "bob", 0)
	assert.Equal(t, contract.BetCheck, res.Kind)
	assert.True(t, res.BettingDone)

	assert.Equal(t, "20", c.Pot.String())
	p, _ := c.Player("alice")
	assert.Equal(t, "990", p.Balance.String())

	// Post-flop the non-dealer opens.
	g.Deal(c, "alice", false, "2h", "7d", "Kc")
	assert.Equal(t, "bob", c.NextBettingPlayer(""))

	res = bet(t, c, "bob", 20)
	assert.True(t, res.NewRound)
	assert.Equal(t, contract.BetRaise, res.Kind)
	assert.Equal(t, "20", c.BiggestBet().String())
	assert.False(t, res.BettingDone)

	res = bet(t, c, "alice", 20)
	assert.True(t, res.BettingDone)
	assert.Equal(t, "60", c.Pot.String())
}

func TestRaiseResetsAction(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Funded("c1", time.Now())

	// bob and carol post the blinds, alice calls, bob completes and carol
	// checks her option.
	bet(t, c, "bob", 5)
	bet(t, c, "carol", 10)
	bet(t, c, "alice", 10)
	bet(t, c, "bob", 5)
	require.True(t, bet(t, c, "carol", 0).BettingDone)

	// Next round: equal bets, then alice raises.
	bet(t, c, "bob", 20)
	bet(t, c, "carol", 20)
	res := bet(t, c, "alice", 40)
	assert.Equal(t, contract.BetRaise, res.Kind)
	assert.False(t, res.BettingDone)
	for _, pid := range []string{"bob", "carol"} {
		p, _ := c.Player(pid)
		assert.False(t, p.HasBet, pid)
	}
	assert.Equal(t, "bob", res.NextPID)

	res = bet(t, c, "bob", 20)
	assert.False(t, res.BettingDone)
	assert.Equal(t, "carol", res.NextPID)

	res = bet(t, c, "carol", 20)
	assert.True(t, res.BettingDone)
	assert.Equal(t, "150", c.Pot.String())
}

func TestFold(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Funded("c1", time.Now())

	bet(t, c, "bob", 5)
	bet(t, c, "carol", 10)
	res := bet(t, c, "alice", -1)
	assert.Equal(t, contract.BetFold, res.Kind)

	alice, _ := c.Player("alice")
	assert.True(t, alice.HasFolded)
	assert.True(t, alice.TotalBet.IsZero())
	assert.Equal(t, "1000", alice.Balance.String())
	assert.Len(t, c.ActivePlayers(), 2)

	_, err := c.ApplyBet("alice", contract.NewAmount(10))
	assert.ErrorIs(t, err, contract.ErrPlayerFolded)

	bet(t, c, "bob", 5)
	res = bet(t, c, "carol", 0)
	assert.True(t, res.BettingDone, "folded players do not block the round")
}

func TestBetRejected(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Funded("c1", time.Now())

	_, err := c.ApplyBet("alice", contract.NewAmount(1001))
	assert.ErrorIs(t, err, contract.ErrInsufficientEscrow)
	assert.True(t, c.Pot.IsZero())

	_, err = c.ApplyBet("mallory", contract.NewAmount(1))
	assert.ErrorIs(t, err, contract.ErrPlayerNotFound)

	c.Invalid = true
	_, err = c.ApplyBet("alice", contract.NewAmount(1))
	assert.ErrorIs(t, err, contract.ErrContractInvalid)
}
