// Package contracttest plays the SRA mental poker protocol for tests: it
// builds valid contracts, holds every player's key and produces the deck
// stages, selections and decrypts an honest table would submit.
package contracttest

import (
	"math/big"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/poker"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

// Prime is 2^127 - 1.
const Prime = "170141183460469231731687303715884105727"

// Player is a seat together with its secret key.
type Player struct {
	PID     string
	Keypair sra.Keypair
	Key     *sra.Key
}

// Game is an honest table.
type Game struct {
	t       testing.TB
	Players []*Player
	Faceup  []poker.Card
	// Stages holds the deck after each encryption, starting with the
	// plaintext mappings. Owners[i] encrypted Stages[i+1].
	Stages [][]string
	Owners []string
}

// NewGame creates keys for pids, seated in that order.
func NewGame(t testing.TB, pids ...string) *Game {
	t.Helper()
	prime, ok := new(big.Int).SetString(Prime, 10)
	require.True(t, ok)

	mappings, err := sra.MappingValues(prime, 52)
	require.NoError(t, err)
	faceup, err := poker.StandardDeck(mappings)
	require.NoError(t, err)

	g := &Game{t: t, Faceup: faceup, Stages: [][]string{mappings}}
	for _, pid := range pids {
		kp, err := sra.GenerateKeypair(prime, nil)
		require.NoError(t, err)
		k, err := kp.Parse()
		require.NoError(t, err)
		g.Players = append(g.Players, &Player{PID: pid, Keypair: kp, Key: k})
	}
	return g
}

// Player returns the seat of pid.
func (g *Game) Player(pid string) *Player {
	for _, p := range g.Players {
		if p.PID == pid {
			return p
		}
	}
	g.t.Fatalf("unknown player %s", pid)
	return nil
}

// Contract returns a contract ready to be submitted by the first player.
// The first seat deals; with two players the dealer is also the small blind.
func (g *Game) Contract(id string) *contract.Contract {
	pids := make([]string, len(g.Players))
	for i, p := range g.Players {
		pids[i] = p.PID
	}
	restore := make([]string, len(pids))
	for i, pid := range pids {
		restore[i] = "restore-" + pid
	}

	sb, bb := 1, 2
	if len(pids) == 2 {
		sb, bb = 0, 1
	}
	players := make([]*contract.Player, len(pids))
	for i, pid := range pids {
		players[i] = &contract.Player{
			PrivateID:    pid,
			Balance:      contract.NewAmount(0),
			TotalBet:     contract.NewAmount(0),
			IsDealer:     i == 0,
			IsSmallBlind: i == sb,
			IsBigBlind:   i == bb,
		}
	}

	return &contract.Contract{
		ContractID: id,
		Table: contract.Table{
			OwnerPID:    pids[0],
			TableID:     "table-" + id,
			TableName:   "test table",
			RequiredPID: []string{},
			JoinedPID:   pids,
			RestorePID:  restore,
			TableInfo: contract.TableInfo{
				BuyIn:      contract.NewAmount(1000),
				BigBlind:   contract.NewAmount(10),
				SmallBlind: contract.NewAmount(5),
				Timeout:    30,
				Currency:   contract.Currency{Type: "bitcoin", Network: "test"},
			},
		},
		Players: players,
		Prime:   Prime,
		Pot:     contract.NewAmount(0),
		CardDecks: contract.CardDecks{
			Faceup: append([]poker.Card(nil), g.Faceup...),
		},
	}
}

// Encrypt returns pid's encryption of the latest deck stage, reordered, and
// records it as the new latest stage.
func (g *Game) Encrypt(pid string) []string {
	g.t.Helper()
	prev := g.Stages[len(g.Stages)-1]
	enc, err := sra.EncryptCards(prev, []*sra.Key{g.Player(pid).Key})
	require.NoError(g.t, err)
	sort.Strings(enc)
	g.Stages = append(g.Stages, enc)
	g.Owners = append(g.Owners, pid)
	return enc
}

// Decrypt returns pid's decryption of cards.
func (g *Game) Decrypt(pid string, cards []string) []string {
	g.t.Helper()
	dec, err := sra.DecryptCards(cards, []*sra.Key{g.Player(pid).Key})
	require.NoError(g.t, err)
	return dec
}

// Card returns the faceup card named like "As", "Td" or "10h".
func (g *Game) Card(name string) poker.Card {
	g.t.Helper()
	name = strings.TrimSpace(name)
	require.GreaterOrEqual(g.t, len(name), 2)
	rank, suit := name[:len(name)-1], name[len(name)-1:]
	if rank == "T" {
		rank = "10"
	}
	s, err := poker.ParseSuit(suit)
	require.NoError(g.t, err)
	for _, c := range g.Faceup {
		if c.Suit == s && c.Value.String() == strings.ToUpper(rank) {
			return c
		}
	}
	g.t.Fatalf("no card %s", name)
	return poker.Card{}
}

// Encrypted returns the values of the named cards in the fully encrypted
// deck. Every player must have encrypted first.
func (g *Game) Encrypted(names ...string) []string {
	g.t.Helper()
	require.Len(g.t, g.Stages, len(g.Players)+1, "deck not fully encrypted")
	out := make([]string, len(names))
	for i, name := range names {
		v := g.Card(name).MappingValue()
		for _, pid := range g.Owners {
			enc, err := sra.EncryptCards([]string{v}, []*sra.Key{g.Player(pid).Key})
			require.NoError(g.t, err)
			v = enc[0]
		}
		out[i] = v
	}
	return out
}

// DecryptOrder returns who decrypts a lineage started by source.
func (g *Game) DecryptOrder(source string) []string {
	seats := make([]string, len(g.Players))
	for i, p := range g.Players {
		seats[i] = p.PID
	}
	return contract.DecryptOrder(seats, source)
}

// Lineage returns the honest select entry followed by every decrypt for
// the named cards selected by source.
func (g *Game) Lineage(source string, private bool, names ...string) []contract.Deal {
	g.t.Helper()
	cards := g.Encrypted(names...)
	deals := []contract.Deal{{FromPID: source, Type: contract.DealSelect, Private: private, Cards: cards}}
	for _, pid := range g.DecryptOrder(source) {
		cards = g.Decrypt(pid, cards)
		deals = append(deals, contract.Deal{FromPID: pid, Type: contract.DealDecrypt, Private: private, Cards: cards})
	}
	return deals
}

// Keychain returns pid's one-key keychain.
func (g *Game) Keychain(pid string) sra.Keychain {
	return sra.Keychain{g.Player(pid).Keypair}
}

// Funded returns a contract as it stands after every player funded the
// buy-in and the deck was fully encrypted, in seating order.
func (g *Game) Funded(id string, now time.Time) *contract.Contract {
	g.t.Helper()
	c := g.Contract(id)
	c.Reset(g.Players[0].PID, c.Table.TableInfo.Currency, now)
	c.History.AddDeck(g.Players[0].PID, g.Stages[0])
	for _, p := range c.Players {
		p.Agreed = true
		p.Balance = c.Table.TableInfo.BuyIn
	}
	if len(g.Stages) == 1 {
		for _, p := range g.Players {
			g.Encrypt(p.PID)
		}
	}
	for i, st := range g.Stages[1:] {
		c.History.AddDeck(g.Owners[i], st)
	}
	c.CardDecks.Facedown = append([]string(nil), g.Stages[len(g.Stages)-1]...)
	return c
}

// Deal records an honest lineage on c.
func (g *Game) Deal(c *contract.Contract, source string, private bool, names ...string) {
	g.t.Helper()
	for _, d := range g.Lineage(source, private, names...) {
		c.History.AddDeal(source, d)
	}
	remaining, err := poker.RemoveCards(c.CardDecks.Facedown, g.Encrypted(names...))
	require.NoError(g.t, err)
	c.CardDecks.Facedown = remaining
}

// RevealAll records every player's keychain on c.
func (g *Game) RevealAll(c *contract.Contract) {
	g.t.Helper()
	for _, p := range g.Players {
		require.NoError(g.t, c.History.SetKeychain(p.PID, g.Keychain(p.PID)))
	}
}
