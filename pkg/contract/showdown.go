package contract

import (
	"github.com/vctt94/pokerreferee/pkg/poker"
)

// privateRank orders two private cards: higher card first, then the lower.
func privateRank(cards []poker.Card) int {
	high, low := 0, 0
	for _, c := range cards {
		v := c.Value.High()
		switch {
		case v > high:
			high, low = v, high
		case v > low:
			low = v
		}
	}
	return high*100 + low
}

// ScoreHands scores the hands of every player still in the hand and records
// the winners on the analysis. A lone remaining player wins without scoring.
func ScoreHands(c *Contract, a *Analysis) ([]string, error) {
	active := c.ActivePlayers()
	if len(active) == 0 {
		return nil, verifyErr(CodeStructure, nil, "no active players")
	}
	if len(active) == 1 {
		a.WinningPlayers = []string{active[0].PrivateID}
		return a.WinningPlayers, nil
	}

	a.Hands = make(map[string]poker.HandValue, len(active))
	var (
		best    int64 = -1
		leaders []string
	)
	for _, p := range active {
		private := a.Private[p.PrivateID]
		cards := make([]poker.Card, 0, len(private)+len(a.Public))
		cards = append(cards, private...)
		cards = append(cards, a.Public...)

		hv, err := poker.BestHand(cards)
		if err != nil {
			return nil, verifyErr(CodeStructure, []string{p.PrivateID}, "hand: %v", err)
		}
		a.Hands[p.PrivateID] = hv
		switch {
		case hv.Score > best:
			best, leaders = hv.Score, []string{p.PrivateID}
		case hv.Score == best:
			leaders = append(leaders, p.PrivateID)
		}
	}

	winners := leaders
	if len(leaders) > 1 {
		top := -1
		winners = nil
		for _, pid := range leaders {
			switch r := privateRank(a.Private[pid]); {
			case r > top:
				top, winners = r, []string{pid}
			case r == top:
				winners = append(winners, pid)
			}
		}
	}

	a.WinningPlayers = winners
	a.WinningHands = make([]poker.HandValue, 0, len(winners))
	for _, pid := range winners {
		a.WinningHands = append(a.WinningHands, a.Hands[pid])
	}
	return winners, nil
}
