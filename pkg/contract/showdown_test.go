package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/contract/contracttest"
	"github.com/vctt94/pokerreferee/pkg/poker"
)

func TestScoreHandsWinner(t *testing.T) {
	_, c := headsUp(t)
	a, err := contract.AnalyzeCards(c)
	require.NoError(t, err)

	winners, err := contract.ScoreHands(c, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, winners)
	assert.Equal(t, winners, a.WinningPlayers)
	require.Len(t, a.WinningHands, 1)
	assert.Equal(t, poker.Pair, a.WinningHands[0].Rank)
	assert.Equal(t, poker.Pair, a.Hands["bob"].Rank)
}

// board deals a hand where both players play the public royal flush.
func board(t *testing.T, alice, bob []string) (*contract.Contract, *contract.Analysis) {
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Funded("c1", time.Now())
	g.Deal(c, "alice", true, alice...)
	g.Deal(c, "bob", true, bob...)
	g.Deal(c, "alice", false, "Ts", "Js", "Qs", "Ks", "As")
	g.RevealAll(c)
	a, err := contract.AnalyzeCards(c)
	require.NoError(t, err)
	return c, a
}

func TestScoreHandsPrivateTiebreak(t *testing.T) {
	c, a := board(t, []string{"2h", "3d"}, []string{"4h", "2d"})
	winners, err := contract.ScoreHands(c, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, winners)
	assert.Equal(t, poker.RoyalFlush, a.Hands["alice"].Rank)
}

func TestScoreHandsSplit(t *testing.T) {
	c, a := board(t, []string{"2h", "3d"}, []string{"3h", "2d"})
	winners, err := contract.ScoreHands(c, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, winners)
	assert.Len(t, a.WinningHands, 2)
}

func TestScoreHandsLastPlayerStanding(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Funded("c1", time.Now())
	c.Players[0].HasFolded = true
	c.Players[2].HasFolded = true

	winners, err := contract.ScoreHands(c, &contract.Analysis{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, winners)
}

func TestScoreHandsTooFewCards(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Funded("c1", time.Now())
	g.Deal(c, "alice", true, "As", "Ad")
	g.Deal(c, "bob", true, "Kh", "Kd")
	g.RevealAll(c)
	a, err := contract.AnalyzeCards(c)
	require.NoError(t, err)

	_, err = contract.ScoreHands(c, a)
	requireVerifyErr(t, err, contract.CodeStructure, "alice")
}
