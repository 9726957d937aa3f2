package contract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/contract/contracttest"
)

func TestValidateNew(t *testing.T) {
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	require.NoError(t, contract.ValidateNew(g.Contract("c1"), "alice"))

	tests := []struct {
		name   string
		pid    string
		mutate func(c *contract.Contract)
		field  string
	}{
		{"missing id", "alice", func(c *contract.Contract) { c.ContractID = "" }, "contractID"},
		{"open seats", "alice", func(c *contract.Contract) { c.Table.RequiredPID = []string{"dave"} }, "table.requiredPID"},
		{"not owner", "bob", func(c *contract.Contract) {}, "table.joinedPID"},
		{"one player", "alice", func(c *contract.Contract) {
			c.Table.JoinedPID = c.Table.JoinedPID[:1]
			c.Table.RestorePID = c.Table.RestorePID[:1]
		}, "table.joinedPID"},
		{"restore length", "alice", func(c *contract.Contract) { c.Table.RestorePID = c.Table.RestorePID[:2] }, "table.restorePID"},
		{"zero buy-in", "alice", func(c *contract.Contract) { c.Table.TableInfo.BuyIn = contract.NewAmount(0) }, "table.tableInfo.buyIn"},
		{"negative blind", "alice", func(c *contract.Contract) { c.Table.TableInfo.SmallBlind = contract.NewAmount(-1) }, "table.tableInfo.smallBlind"},
		{"negative timeout", "alice", func(c *contract.Contract) { c.Table.TableInfo.Timeout = -1 }, "table.tableInfo.timeout"},
		{"seat mismatch", "alice", func(c *contract.Contract) { c.Players[1], c.Players[2] = c.Players[2], c.Players[1] }, "players"},
		{"duplicate player", "alice", func(c *contract.Contract) {
			c.Players[2].PrivateID = "bob"
			c.Table.JoinedPID[2] = "bob"
		}, "players"},
		{"two dealers", "alice", func(c *contract.Contract) { c.Players[1].IsDealer = true }, "players"},
		{"shared blinds", "alice", func(c *contract.Contract) {
			c.Players[1].IsBigBlind = true
			c.Players[2].IsBigBlind = false
		}, "players"},
		{"bad prime", "alice", func(c *contract.Contract) { c.Prime = "91" }, "prime"},
		{"short deck", "alice", func(c *contract.Contract) { c.CardDecks.Faceup = c.CardDecks.Faceup[:51] }, "cardDecks.faceup"},
		{"duplicate mapping", "alice", func(c *contract.Contract) {
			c.CardDecks.Faceup[3].Mapping = c.CardDecks.Faceup[4].Mapping
		}, "cardDecks.faceup"},
		{"non canonical mapping", "alice", func(c *contract.Contract) {
			c.CardDecks.Faceup[0].Mapping = "0" + c.CardDecks.Faceup[0].Mapping
		}, "cardDecks.faceup"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := g.Contract("c1")
			tc.mutate(c)
			err := contract.ValidateNew(c, tc.pid)
			require.Error(t, err)
			var verr *contract.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}
