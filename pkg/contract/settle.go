package contract

// Settlement modes.
const (
	ModePayout   = "payout"
	ModeTimeout  = "timeout"
	ModeValidate = "validate"
	ModeCancel   = "cancel"
)

// Transfer is an amount moved to or from a player.
type Transfer struct {
	PrivateID string `json:"privateID"`
	Amount    Amount `json:"amount"`
}

// SettlementReport records how a contract's funds were distributed.
// Awarded holds pot shares, Returned the escrow balances flushed back to
// accounts. Remainder is what the split could not distribute.
type SettlementReport struct {
	Mode      string     `json:"mode"`
	Penalized []Transfer `json:"penalized,omitempty"`
	Awarded   []Transfer `json:"awarded"`
	Returned  []Transfer `json:"returned,omitempty"`
	Remainder Amount     `json:"remainder"`
}

// Credits returns the total account credit per player, in report order.
func (r *SettlementReport) Credits() []Transfer {
	totals := make(map[string]Amount)
	var order []string
	add := func(ts []Transfer) {
		for _, t := range ts {
			if _, ok := totals[t.PrivateID]; !ok {
				order = append(order, t.PrivateID)
			}
			totals[t.PrivateID] = totals[t.PrivateID].Add(t.Amount)
		}
	}
	add(r.Awarded)
	add(r.Returned)

	out := make([]Transfer, 0, len(order))
	for _, pid := range order {
		if totals[pid].Sign() > 0 {
			out = append(out, Transfer{PrivateID: pid, Amount: totals[pid]})
		}
	}
	return out
}

// flushEscrow zeroes every escrow balance and reports the amounts returned.
func (c *Contract) flushEscrow() []Transfer {
	var out []Transfer
	for _, p := range c.Players {
		if p.Balance.Sign() > 0 {
			out = append(out, Transfer{PrivateID: p.PrivateID, Amount: p.Balance})
		}
		p.Balance = NewAmount(0)
	}
	return out
}

// PlanPayout splits the pot evenly among winners and flushes every escrow.
// The winners' shares are paid through their escrow, so the returned
// report's Credits are the full account credits to apply.
func (c *Contract) PlanPayout(winners []string) (*SettlementReport, error) {
	share, rem := c.Pot.Split(len(winners))
	rep := &SettlementReport{Mode: ModePayout, Remainder: rem}
	for _, pid := range winners {
		p, err := c.Player(pid)
		if err != nil {
			return nil, err
		}
		p.Balance = p.Balance.Add(share)
		rep.Awarded = append(rep.Awarded, Transfer{PrivateID: pid, Amount: share})
	}
	c.Pot = NewAmount(0)
	// Awarded shares already sit in escrow; report them once.
	returned := c.flushEscrow()
	rep.Returned = subtractAwards(returned, rep.Awarded)
	return rep, nil
}

func subtractAwards(returned, awarded []Transfer) []Transfer {
	award := make(map[string]Amount, len(awarded))
	for _, t := range awarded {
		award[t.PrivateID] = award[t.PrivateID].Add(t.Amount)
	}
	var out []Transfer
	for _, t := range returned {
		rest, err := t.Amount.Sub(award[t.PrivateID])
		if err != nil || rest.IsZero() {
			continue
		}
		out = append(out, Transfer{PrivateID: t.PrivateID, Amount: rest})
	}
	return out
}

// PlanPenalty forfeits the escrow of the penalized players. Their balances
// and the pot are pooled and split evenly among the other players that
// funded a seat; with none left the pool is refunded to the funded part of
// the penalized set. Seats that never agreed have no account to credit and
// receive nothing. Every remaining escrow is flushed back. An empty
// penalized list refunds the pot to everyone.
func (c *Contract) PlanPenalty(mode string, penalized []string) (*SettlementReport, error) {
	rep := &SettlementReport{Mode: mode}
	isPenalized := make(map[string]bool, len(penalized))
	pool := c.Pot
	for _, pid := range penalized {
		p, err := c.Player(pid)
		if err != nil {
			return nil, err
		}
		if isPenalized[pid] {
			continue
		}
		isPenalized[pid] = true
		rep.Penalized = append(rep.Penalized, Transfer{PrivateID: pid, Amount: p.Balance})
		pool = pool.Add(p.Balance)
		p.Balance = NewAmount(0)
	}

	var recipients, fallback []string
	for _, p := range c.Players {
		switch {
		case !p.Agreed:
		case isPenalized[p.PrivateID]:
			fallback = append(fallback, p.PrivateID)
		default:
			recipients = append(recipients, p.PrivateID)
		}
	}
	if len(recipients) == 0 {
		recipients = fallback
	}

	share, rem := pool.Split(len(recipients))
	rep.Remainder = rem
	for _, pid := range recipients {
		rep.Awarded = append(rep.Awarded, Transfer{PrivateID: pid, Amount: share})
	}
	c.Pot = NewAmount(0)
	rep.Returned = c.flushEscrow()
	return rep, nil
}

// PlanCancel returns every escrow balance. The pot is not refunded and is
// reported as the remainder.
func (c *Contract) PlanCancel() *SettlementReport {
	rep := &SettlementReport{Mode: ModeCancel, Remainder: c.Pot}
	c.Pot = NewAmount(0)
	rep.Returned = c.flushEscrow()
	return rep
}
