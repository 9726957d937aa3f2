package contract

import (
	"github.com/vctt94/pokerreferee/pkg/poker"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

// MinFaceupCards is the smallest acceptable plaintext deck.
const MinFaceupCards = 52

// ValidateTable checks the seating and stakes of a table. sessionPID is the
// authenticated creator, who must hold the first seat.
func ValidateTable(t *Table, sessionPID string) error {
	if len(t.RequiredPID) != 0 {
		return invalid("table.requiredPID", "seating is not complete (%d seats open)", len(t.RequiredPID))
	}
	if len(t.JoinedPID) < 2 {
		return invalid("table.joinedPID", "need at least 2 players, got %d", len(t.JoinedPID))
	}
	if t.JoinedPID[0] != sessionPID {
		return invalid("table.joinedPID", "first seat must be the contract owner")
	}
	if len(t.RestorePID) != len(t.JoinedPID) {
		return invalid("table.restorePID", "length %d does not match joinedPID length %d",
			len(t.RestorePID), len(t.JoinedPID))
	}

	info := t.TableInfo
	for _, f := range []struct {
		name string
		v    Amount
	}{
		{"table.tableInfo.buyIn", info.BuyIn},
		{"table.tableInfo.bigBlind", info.BigBlind},
		{"table.tableInfo.smallBlind", info.SmallBlind},
	} {
		if f.v.Sign() <= 0 {
			return invalid(f.name, "must be positive, got %s", f.v)
		}
	}
	if info.SmallBlind.Cmp(info.BigBlind) > 0 {
		return invalid("table.tableInfo.smallBlind", "larger than the big blind")
	}
	if info.BigBlind.Cmp(info.BuyIn) > 0 {
		return invalid("table.tableInfo.bigBlind", "larger than the buy-in")
	}
	if info.Timeout < 0 {
		return invalid("table.tableInfo.timeout", "must not be negative")
	}
	return nil
}

// ValidateNew checks a contract submitted for creation by sessionPID.
func ValidateNew(c *Contract, sessionPID string) error {
	if c.ContractID == "" {
		return invalid("contractID", "missing")
	}
	if err := ValidateTable(&c.Table, sessionPID); err != nil {
		return err
	}

	if len(c.Players) != len(c.Table.JoinedPID) {
		return invalid("players", "%d players for %d seats", len(c.Players), len(c.Table.JoinedPID))
	}
	seen := make(map[string]bool, len(c.Players))
	var dealers, bigs, smalls int
	for i, p := range c.Players {
		if p == nil || p.PrivateID == "" {
			return invalid("players", "seat %d has no privateID", i)
		}
		if seen[p.PrivateID] {
			return invalid("players", "duplicate privateID %s", p.PrivateID)
		}
		seen[p.PrivateID] = true
		if p.PrivateID != c.Table.JoinedPID[i] {
			return invalid("players", "seat %d is %s, table has %s", i, p.PrivateID, c.Table.JoinedPID[i])
		}
		if p.IsDealer {
			dealers++
		}
		if p.IsBigBlind {
			bigs++
		}
		if p.IsSmallBlind {
			smalls++
		}
		if p.IsBigBlind && p.IsSmallBlind {
			return invalid("players", "%s holds both blinds", p.PrivateID)
		}
	}
	if dealers != 1 || bigs != 1 || smalls != 1 {
		return invalid("players", "need exactly one dealer, big blind and small blind")
	}

	prime, err := sra.ParsePrime(c.Prime)
	if err != nil {
		return invalid("prime", "%v", err)
	}

	faceup := c.CardDecks.Faceup
	if len(faceup) < MinFaceupCards {
		return invalid("cardDecks.faceup", "need at least %d cards, got %d", MinFaceupCards, len(faceup))
	}
	mappings := poker.Mappings(faceup)
	for i, m := range mappings {
		v, err := sra.ParseValue(m, prime)
		if err != nil {
			return invalid("cardDecks.faceup", "card %d: %v", i, err)
		}
		if v.String() != m {
			return invalid("cardDecks.faceup", "card %d: mapping %q is not in canonical form", i, m)
		}
	}
	if poker.HasDuplicates(mappings) {
		return invalid("cardDecks.faceup", "duplicate mapping values")
	}
	return nil
}
