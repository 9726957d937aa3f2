package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract/contracttest"
)

func TestTimedOutPlayers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Funded("c1", now)

	c.UpdatePlayersTimeout("alice", now.Add(-60*time.Second))
	c.UpdatePlayersTimeout("bob", now.Add(-45*time.Second))
	c.UpdatePlayersTimeout("carol", now.Add(-60*time.Second))

	// Both oldest players time out together; bob is late too but younger.
	assert.Equal(t, []string{"alice", "carol"}, c.TimedOutPlayers(now, time.Minute))

	// Seating order does not change who is picked.
	c.Players[0], c.Players[2] = c.Players[2], c.Players[0]
	assert.ElementsMatch(t, []string{"alice", "carol"}, c.TimedOutPlayers(now, time.Minute))

	// A revealed keychain ends the player's obligations.
	require.NoError(t, c.History.SetKeychain("alice", g.Keychain("alice")))
	require.NoError(t, c.History.SetKeychain("carol", g.Keychain("carol")))
	assert.Equal(t, []string{"bob"}, c.TimedOutPlayers(now, time.Minute))
}

func TestTimeoutThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := contracttest.NewGame(t, "alice", "bob")
	c := g.Funded("c1", now.Add(-40*time.Second))

	assert.Equal(t, 30*time.Second, c.TimeoutThreshold(time.Hour))
	assert.Equal(t, []string{"alice", "bob"}, c.TimedOutPlayers(now, time.Hour))

	c.Table.TableInfo.Timeout = 0
	assert.Equal(t, time.Hour, c.TimeoutThreshold(time.Hour))
	assert.Empty(t, c.TimedOutPlayers(now, time.Hour))

	c.UpdatePlayersTimeout("alice", now)
	assert.Equal(t, []string{"bob"}, c.TimedOutPlayers(now, 10*time.Second))
}

func TestTimedOutPlayersWhileAgreeing(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := contracttest.NewGame(t, "alice", "bob", "carol")
	c := g.Contract("c1")
	c.Reset("alice", c.Table.TableInfo.Currency, now.Add(-time.Hour))
	c.Players[0].Agreed = true

	// The owner shares the creation stamp but has nothing left to do.
	assert.Equal(t, []string{"bob", "carol"}, c.TimedOutPlayers(now, time.Minute))

	c.Players[1].Agreed = true
	c.UpdatePlayersTimeout("bob", now.Add(-2*time.Minute))
	assert.Equal(t, []string{"carol"}, c.TimedOutPlayers(now, time.Minute))
}
