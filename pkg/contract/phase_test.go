package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/contract/contracttest"
)

func TestPhase(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Contract("c1")
	c.Reset("alice", c.Table.TableInfo.Currency, time.Now())
	assert.Equal(t, contract.PhaseAgreeing, c.Phase())

	c = g.Funded("c1", time.Now())
	assert.Equal(t, contract.PhaseDealing, c.Phase())

	c.History.Deck = c.History.Deck[:2]
	assert.Equal(t, contract.PhaseEncrypting, c.Phase())

	_, c = headsUp(t)
	assert.Equal(t, contract.PhaseRevealing, c.Phase())
	a, err := contract.AnalyzeCards(c)
	require.NoError(t, err)

	c.Invalid = true
	assert.Equal(t, contract.PhaseTerminated, c.Phase())

	a.Complete = true
	c.History.Analysis = a
	assert.Equal(t, contract.PhaseSettled, c.Phase())
}

func TestPhaseCancelledBeforeAgreement(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Contract("c1")
	c.Reset("alice", c.Table.TableInfo.Currency, time.Now())
	c.Players[0].Agreed = true
	c.Invalid = true
	assert.Equal(t, contract.PhaseTerminated, c.Phase())
}
