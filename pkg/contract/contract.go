// Package contract holds the mental poker contract model and the rules a
// referee applies to it: payload validation, betting rounds, the append-only
// protocol history, history verification, hand scoring and the escrow side of
// settlement.
//
// Nothing in this package performs I/O. Account balances and persistence are
// owned by the caller; settlement functions mutate the contract's escrow and
// return the account credits the caller must apply.
package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vctt94/pokerreferee/pkg/poker"
)

// Currency identifies the coin and network a table plays for.
type Currency struct {
	Type    string `json:"type"`
	Network string `json:"network"`
}

// TableInfo holds the stakes of a table.
type TableInfo struct {
	BuyIn      Amount   `json:"buyIn"`
	BigBlind   Amount   `json:"bigBlind"`
	SmallBlind Amount   `json:"smallBlind"`
	Timeout    int      `json:"timeout"` // seconds, 0 selects the server default
	Currency   Currency `json:"currency"`
}

// Table is the seating agreed by the peers before the contract was created.
type Table struct {
	OwnerPID    string    `json:"ownerPID"`
	TableID     string    `json:"tableID"`
	TableName   string    `json:"tableName"`
	RequiredPID []string  `json:"requiredPID"`
	JoinedPID   []string  `json:"joinedPID"`
	RestorePID  []string  `json:"restorePID"`
	TableInfo   TableInfo `json:"tableInfo"`
}

// Account is the snapshot of the external account a player funds the
// contract from.
type Account struct {
	Address string `json:"address"`
	Type    string `json:"type"`
	Network string `json:"network"`
	Balance Amount `json:"balance"`
}

// Player is one seat of the contract.
type Player struct {
	PrivateID    string   `json:"privateID"`
	Balance      Amount   `json:"balance"`  // contract escrow
	TotalBet     Amount   `json:"totalBet"` // current betting round
	HasBet       bool     `json:"hasBet"`
	HasFolded    bool     `json:"hasFolded"`
	NumActions   int      `json:"numActions"`
	IsDealer     bool     `json:"isDealer"`
	IsBigBlind   bool     `json:"isBigBlind"`
	IsSmallBlind bool     `json:"isSmallBlind"`
	Account      *Account `json:"account,omitempty"`
	Agreed       bool     `json:"agreed"`
	Updated      int64    `json:"updated"` // unix milliseconds of the last action
}

// CardDecks holds the plaintext deck and the decks in play. Dealt and Public
// are client bookkeeping the referee stores without interpreting.
type CardDecks struct {
	Faceup   []poker.Card      `json:"faceup"`
	Facedown []string          `json:"facedown"`
	Dealt    []json.RawMessage `json:"dealt"`
	Public   []json.RawMessage `json:"public"`
}

// Contract is the authoritative record of one hand.
type Contract struct {
	ContractID string            `json:"contractID"`
	OwnerPID   string            `json:"ownerPID"`
	Table      Table             `json:"table"`
	Players    []*Player         `json:"players"`
	Prime      string            `json:"prime"`
	Pot        Amount            `json:"pot"`
	CardDecks  CardDecks         `json:"cardDecks"`
	History    History           `json:"history"`
	Invalid    bool              `json:"invalid"`
	Penalty    *SettlementReport `json:"penalty,omitempty"`
}

// Player returns the seat held by pid.
func (c *Contract) Player(pid string) (*Player, error) {
	if i := c.PlayerIndex(pid); i >= 0 {
		return c.Players[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, pid)
}

// PlayerIndex returns the seat index of pid, or -1.
func (c *Contract) PlayerIndex(pid string) int {
	for i, p := range c.Players {
		if p.PrivateID == pid {
			return i
		}
	}
	return -1
}

// Seats returns the private IDs in seating order.
func (c *Contract) Seats() []string {
	seats := make([]string, len(c.Players))
	for i, p := range c.Players {
		seats[i] = p.PrivateID
	}
	return seats
}

// ActivePlayers returns the players that have not folded, in seating order.
func (c *Contract) ActivePlayers() []*Player {
	var active []*Player
	for _, p := range c.Players {
		if !p.HasFolded {
			active = append(active, p)
		}
	}
	return active
}

// AllAgreed reports whether every seated player has funded the contract.
func (c *Contract) AllAgreed() bool {
	for _, p := range c.Players {
		if !p.Agreed {
			return false
		}
	}
	return true
}

func (c *Contract) roleIndex(is func(*Player) bool) int {
	for i, p := range c.Players {
		if is(p) {
			return i
		}
	}
	return -1
}

func (c *Contract) dealerIndex() int {
	return c.roleIndex(func(p *Player) bool { return p.IsDealer })
}

func (c *Contract) bigBlindIndex() int {
	return c.roleIndex(func(p *Player) bool { return p.IsBigBlind })
}

func (c *Contract) smallBlindIndex() int {
	return c.roleIndex(func(p *Player) bool { return p.IsSmallBlind })
}

// FaceupIndex maps every faceup mapping value to its card.
func (c *Contract) FaceupIndex() map[string]poker.Card {
	idx := make(map[string]poker.Card, len(c.CardDecks.Faceup))
	for _, card := range c.CardDecks.Faceup {
		idx[card.MappingValue()] = card
	}
	return idx
}

// UpdatePlayersTimeout restarts pid's inactivity clock.
func (c *Contract) UpdatePlayersTimeout(pid string, now time.Time) {
	if p, err := c.Player(pid); err == nil {
		p.Updated = now.UnixMilli()
	}
}

// Clone returns a deep copy of the contract.
func (c *Contract) Clone() (*Contract, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var cp Contract
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Reset prepares a freshly submitted contract for play: ownership and
// currency come from the caller, all money and history is cleared and every
// player's clock starts at now.
func (c *Contract) Reset(ownerPID string, currency Currency, now time.Time) {
	c.OwnerPID = ownerPID
	c.Table.OwnerPID = ownerPID
	c.Table.TableInfo.Currency = currency
	c.Pot = NewAmount(0)
	c.Invalid = false
	c.Penalty = nil
	c.History = NewHistory()
	c.CardDecks.Facedown = poker.Mappings(c.CardDecks.Faceup)
	c.CardDecks.Dealt = nil
	c.CardDecks.Public = nil
	for _, p := range c.Players {
		p.Balance = NewAmount(0)
		p.TotalBet = NewAmount(0)
		p.HasBet = false
		p.HasFolded = false
		p.NumActions = 0
		p.Account = nil
		p.Agreed = false
		p.Updated = now.UnixMilli()
	}
}
