package contract

import (
	"fmt"
)

// BetKind classifies an accepted bet.
type BetKind string

const (
	BetFold  BetKind = "fold"
	BetCheck BetKind = "check"
	BetCall  BetKind = "call"
	BetRaise BetKind = "raise"
)

// BetResult describes the effect of ApplyBet.
type BetResult struct {
	Kind        BetKind `json:"kind"`
	Amount      Amount  `json:"amount"`
	NewRound    bool    `json:"newRound"`
	NextPID     string  `json:"nextPID"`
	BettingDone bool    `json:"bettingDone"`
}

// BiggestBet returns the largest totalBet among players still in the hand.
func (c *Contract) BiggestBet() Amount {
	biggest := NewAmount(0)
	for _, p := range c.Players {
		if !p.HasFolded && p.TotalBet.Cmp(biggest) > 0 {
			biggest = p.TotalBet
		}
	}
	return biggest
}

// BettingDone reports whether the current betting round is complete: the
// big blind has acted at least twice (or folded) and every player still in
// the hand has bet the same total.
func (c *Contract) BettingDone() bool {
	bb := c.bigBlindIndex()
	if bb < 0 {
		return false
	}
	if p := c.Players[bb]; !p.HasFolded && p.NumActions < 2 {
		return false
	}

	active := c.ActivePlayers()
	if len(active) <= 1 {
		return true
	}
	total := active[0].TotalBet
	for _, p := range active {
		if !p.HasBet || p.TotalBet.Cmp(total) != 0 {
			return false
		}
	}
	return true
}

// PreFlop reports whether no public card has been selected yet.
func (c *Contract) PreFlop() bool {
	return !c.History.HasPublicSelect()
}

// firstToAct returns the seat that opens a betting round.
func (c *Contract) firstToAct() int {
	if len(c.Players) == 2 {
		d := c.dealerIndex()
		if d < 0 {
			return 0
		}
		if c.PreFlop() {
			return d
		}
		return (d + 1) % 2
	}
	if sb := c.smallBlindIndex(); sb >= 0 {
		return sb
	}
	return 0
}

// NextBettingPlayer returns the player expected to act after actingPID, or
// "" when nobody owes an action. An empty actingPID asks who opens the
// round.
func (c *Contract) NextBettingPlayer(actingPID string) string {
	n := len(c.Players)
	if n == 0 {
		return ""
	}
	if c.BettingDone() {
		// The next action opens a new round; nobody is behind.
		start := c.firstToAct()
		for i := 0; i < n; i++ {
			if p := c.Players[(start+i)%n]; !p.HasFolded {
				return p.PrivateID
			}
		}
		return ""
	}

	start := c.firstToAct()
	if i := c.PlayerIndex(actingPID); i >= 0 {
		start = (i + 1) % n
	}
	biggest := c.BiggestBet()
	for i := 0; i < n; i++ {
		p := c.Players[(start+i)%n]
		if p.HasFolded {
			continue
		}
		if !p.HasBet || p.TotalBet.Cmp(biggest) < 0 {
			return p.PrivateID
		}
	}
	// Everybody matched but the big blind still has its option.
	if bb := c.bigBlindIndex(); bb >= 0 && !c.Players[bb].HasFolded {
		return c.Players[bb].PrivateID
	}
	return ""
}

// startRound clears the per-round state. Folds carry over.
func (c *Contract) startRound() {
	for _, p := range c.Players {
		p.TotalBet = NewAmount(0)
		p.HasBet = false
	}
}

// ApplyBet applies a bet by pid. A negative amount folds. The escrow is
// checked before anything is mutated.
func (c *Contract) ApplyBet(pid string, amount Amount) (*BetResult, error) {
	if c.Invalid {
		return nil, ErrContractInvalid
	}
	p, err := c.Player(pid)
	if err != nil {
		return nil, err
	}
	if p.HasFolded {
		return nil, fmt.Errorf("%w: %s", ErrPlayerFolded, pid)
	}
	if amount.Sign() >= 0 && amount.Cmp(p.Balance) > 0 {
		return nil, fmt.Errorf("%w: bet %s, escrow %s", ErrInsufficientEscrow, amount, p.Balance)
	}

	res := &BetResult{Amount: amount}
	if c.BettingDone() {
		c.startRound()
		res.NewRound = true
	}

	switch {
	case amount.Sign() < 0:
		p.TotalBet = NewAmount(0)
		p.HasFolded = true
		p.HasBet = true
		res.Kind = BetFold
		res.Amount = NewAmount(0)

	default:
		biggest := c.BiggestBet()
		balance, err := p.Balance.Sub(amount)
		if err != nil {
			return nil, err
		}
		p.Balance = balance
		p.TotalBet = p.TotalBet.Add(amount)
		p.HasBet = true
		c.Pot = c.Pot.Add(amount)

		switch cmp := p.TotalBet.Cmp(biggest); {
		case cmp > 0:
			for _, other := range c.Players {
				if other != p && !other.HasFolded {
					other.HasBet = false
				}
			}
			res.Kind = BetRaise
		case amount.IsZero():
			res.Kind = BetCheck
		default:
			res.Kind = BetCall
		}
	}
	p.NumActions++

	res.BettingDone = c.BettingDone()
	res.NextPID = c.NextBettingPlayer(pid)
	return res, nil
}
