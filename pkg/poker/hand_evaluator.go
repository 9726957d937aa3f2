package poker

import (
	"fmt"
	"sort"

	"github.com/chehsunliu/poker"
)

// HandRank represents the rank of a poker hand
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handRankNames = [...]string{
	HighCard:      "High Card",
	Pair:          "One Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (r HandRank) String() string {
	if r < HighCard || r > RoyalFlush {
		return "Unknown"
	}
	return handRankNames[r]
}

// tieBase is one more than the largest card value; tie-break values are
// encoded as base-15 digits below the category multiplier.
const tieBase = 15

// categoryMultiplier is 15^5, larger than any encoded tie-break.
const categoryMultiplier = tieBase * tieBase * tieBase * tieBase * tieBase

// HandValue represents a complete evaluation of a hand, including rank and kickers
type HandValue struct {
	Rank        HandRank `json:"rank"`
	RankName    string   `json:"rankName"`
	Score       int64    `json:"score"`
	Kickers     []int    `json:"kickers"` // tie-break values, most significant first
	BestHand    []Card   `json:"cards"`
	Description string   `json:"description,omitempty"`
}

// StraightType returns the low end of the five-card run formed by cards (1
// for the ace-low wheel up to 9 for nine-to-king, 10 for ten-to-ace), or 0 when
// the values do not form a straight.
func StraightType(cards []Card) int {
	present := make(map[Value]bool, len(cards))
	for _, c := range cards {
		present[c.Value] = true
	}
	if present[Ten] && present[Jack] && present[Queen] && present[King] && present[Ace] {
		return 10
	}
	for low := Nine; low >= Ace; low-- {
		run := true
		for v := low; v < low+5; v++ {
			if !present[v] {
				run = false
				break
			}
		}
		if run {
			return int(low)
		}
	}
	return 0
}

func isFlush(cards []Card) bool {
	if len(cards) != 5 {
		return false
	}
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// valueGroups returns the high values of cards grouped by equal value, largest
// group first and higher value first within equal group sizes.
func valueGroups(cards []Card) (sizes []int, values []int) {
	counts := make(map[int]int, len(cards))
	for _, c := range cards {
		counts[c.Value.High()]++
	}
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		ci, cj := counts[values[i]], counts[values[j]]
		if ci != cj {
			return ci > cj
		}
		return values[i] > values[j]
	})
	for _, v := range values {
		sizes = append(sizes, counts[v])
	}
	return sizes, values
}

// ScoreHand scores exactly five cards. Higher scores are better hands.
func ScoreHand(cards []Card) (HandValue, error) {
	if len(cards) != 5 {
		return HandValue{}, fmt.Errorf("poker: need 5 cards to score, got %d", len(cards))
	}
	seen := make(map[string]bool, 5)
	for _, c := range cards {
		if seen[c.String()] {
			return HandValue{}, fmt.Errorf("poker: duplicate card %s", c)
		}
		seen[c.String()] = true
	}

	flush := isFlush(cards)
	straight := StraightType(cards)
	sizes, values := valueGroups(cards)

	var rank HandRank
	var kickers []int
	switch {
	case flush && straight == 10:
		rank, kickers = RoyalFlush, []int{14}
	case flush && straight > 0:
		rank, kickers = StraightFlush, []int{straight + 4}
	case sizes[0] == 4:
		rank, kickers = FourOfAKind, values
	case sizes[0] == 3 && sizes[1] == 2:
		rank, kickers = FullHouse, values
	case flush:
		rank, kickers = Flush, values
	case straight == 10:
		rank, kickers = Straight, []int{14}
	case straight > 0:
		// The wheel tops out at five: the ace plays low.
		rank, kickers = Straight, []int{straight + 4}
	case sizes[0] == 3:
		rank, kickers = ThreeOfAKind, values
	case sizes[0] == 2 && sizes[1] == 2:
		rank, kickers = TwoPair, values
	case sizes[0] == 2:
		rank, kickers = Pair, values
	default:
		rank, kickers = HighCard, values
	}

	var tie int64
	for i := 0; i < 5; i++ {
		tie *= tieBase
		if i < len(kickers) {
			tie += int64(kickers[i])
		}
	}

	best := make([]Card, 5)
	copy(best, cards)
	sortCardsByValue(best)

	return HandValue{
		Rank:     rank,
		RankName: rank.String(),
		Score:    int64(rank+1)*categoryMultiplier + tie,
		Kickers:  kickers,
		BestHand: best,
	}, nil
}

// BestHand evaluates every five-card combination of 5 to 7 cards and returns
// the highest scoring one.
func BestHand(cards []Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("poker: need 5 to 7 cards, got %d", len(cards))
	}

	var best HandValue
	found := false
	for _, combo := range generateCombinations(cards, 5) {
		hv, err := ScoreHand(combo)
		if err != nil {
			return HandValue{}, err
		}
		if !found || hv.Score > best.Score {
			best, found = hv, true
		}
	}
	best.Description = DescribeHand(cards)
	return best, nil
}

// generateCombinations generates all possible k-combinations from a slice of cards
func generateCombinations(cards []Card, k int) [][]Card {
	var combinations [][]Card

	if k > len(cards) || k <= 0 {
		return combinations
	}

	if k == len(cards) {
		return [][]Card{cards}
	}

	var generate func(start int, current []Card)
	generate = func(start int, current []Card) {
		if len(current) == k {
			combination := make([]Card, k)
			copy(combination, current)
			combinations = append(combinations, combination)
			return
		}

		for i := start; i <= len(cards)-(k-len(current)); i++ {
			generate(i+1, append(current, cards[i]))
		}
	}

	generate(0, []Card{})
	return combinations
}

// Helper function to sort cards by value (highest first)
func sortCardsByValue(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Value.High() > cards[j].Value.High()
	})
}

// CompareHands compares two hand values and returns:
// -1 if handA < handB (handA is worse)
// 0 if handA == handB (tie)
// 1 if handA > handB (handA is better)
func CompareHands(handA, handB HandValue) int {
	switch {
	case handA.Score < handB.Score:
		return -1
	case handA.Score > handB.Score:
		return 1
	}
	return 0
}

// convertCardToChehsunliu converts our Card type to the chehsunliu/poker Card type
func convertCardToChehsunliu(card Card) poker.Card {
	rankChars := "  23456789TJQKA"
	var suitChar byte
	switch card.Suit {
	case Spades:
		suitChar = 's'
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	default:
		suitChar = 'c'
	}
	return poker.NewCard(string([]byte{rankChars[card.Value.High()], suitChar}))
}

// DescribeHand returns a readable name for the best hand in 5 to 7 cards.
func DescribeHand(cards []Card) string {
	if len(cards) < 5 || len(cards) > 7 {
		return ""
	}
	cc := make([]poker.Card, len(cards))
	for i, c := range cards {
		cc[i] = convertCardToChehsunliu(c)
	}
	return poker.RankString(poker.Evaluate(cc))
}
