package contract

import "github.com/vctt94/pokerreferee/pkg/statemachine"

// Contract lifecycle phases.
const (
	PhaseAgreeing   = "agreeing"
	PhaseEncrypting = "encrypting"
	PhaseDealing    = "dealing"
	PhaseRevealing  = "revealing"
	PhaseSettled    = "settled"
	PhaseTerminated = "terminated"
)

var (
	stAgreeing, stEncrypting, stDealing, stRevealing statemachine.State[Contract]

	stSettled    = statemachine.State[Contract]{Name: PhaseSettled}
	stTerminated = statemachine.State[Contract]{Name: PhaseTerminated}

	phases *statemachine.Machine[Contract]
)

// ended moves an invalid contract to its final phase.
func ended(c *Contract) *statemachine.State[Contract] {
	if !c.Invalid {
		return nil
	}
	if a := c.History.Analysis; a != nil && a.Complete {
		return &stSettled
	}
	return &stTerminated
}

func init() {
	stAgreeing = statemachine.State[Contract]{Name: PhaseAgreeing, Next: func(c *Contract) *statemachine.State[Contract] {
		if st := ended(c); st != nil {
			return st
		}
		if c.AllAgreed() {
			return &stEncrypting
		}
		return nil
	}}
	stEncrypting = statemachine.State[Contract]{Name: PhaseEncrypting, Next: func(c *Contract) *statemachine.State[Contract] {
		if st := ended(c); st != nil {
			return st
		}
		if len(c.History.Deck)-1 >= len(c.Players) {
			return &stDealing
		}
		return nil
	}}
	stDealing = statemachine.State[Contract]{Name: PhaseDealing, Next: func(c *Contract) *statemachine.State[Contract] {
		if st := ended(c); st != nil {
			return st
		}
		if len(c.History.Keychains) > 0 {
			return &stRevealing
		}
		return nil
	}}
	stRevealing = statemachine.State[Contract]{Name: PhaseRevealing, Next: ended}

	phases = statemachine.New(&stAgreeing, 0)
}

// Phase returns the lifecycle phase c is in, derived from its players and
// history.
func (c *Contract) Phase() string {
	st, _, err := phases.Settle(c)
	if err != nil {
		return PhaseTerminated
	}
	return st.Name
}
