package poker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// ParseSuit accepts the symbol, the single letter or the word for a suit.
func ParseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s", "S", "spades", "Spades", "spade":
		return Spades, nil
	case "♥", "h", "H", "hearts", "Hearts", "heart":
		return Hearts, nil
	case "♦", "d", "D", "diamonds", "Diamonds", "diamond":
		return Diamonds, nil
	case "♣", "c", "C", "clubs", "Clubs", "club":
		return Clubs, nil
	}
	return "", fmt.Errorf("invalid suit: %s", s)
}

// Value represents a low card value: ace is 1, king is 13.
type Value int

const (
	Ace Value = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var valueNames = map[Value]string{
	Ace: "ace", Two: "two", Three: "three", Four: "four", Five: "five",
	Six: "six", Seven: "seven", Eight: "eight", Nine: "nine", Ten: "ten",
	Jack: "jack", Queen: "queen", King: "king",
}

// String returns the short rank symbol of the value.
func (v Value) String() string {
	switch v {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if v >= Two && v <= Ten {
		return fmt.Sprintf("%d", int(v))
	}
	return "?"
}

// High returns the value with the ace counted high (2..14).
func (v Value) High() int {
	if v == Ace {
		return 14
	}
	return int(v)
}

// Card is a faceup card: its identity plus the plaintext value that stands for
// it inside the cipher.
type Card struct {
	Mapping    string
	AltMapping string
	Suit       Suit
	Value      Value
	HighValue  int
	Name       string
}

// CardJSON represents a card for JSON serialization
type CardJSON struct {
	Mapping    string `json:"mapping,omitempty"`
	AltMapping string `json:"_mapping,omitempty"`
	Suit       string `json:"suit"`
	Value      int    `json:"value"`
	HighValue  int    `json:"highvalue"`
	Name       string `json:"name,omitempty"`
}

// NewCard builds a card with the given mapping value.
func NewCard(suit Suit, value Value, mapping string) Card {
	return Card{
		Mapping:   mapping,
		Suit:      suit,
		Value:     value,
		HighValue: value.High(),
		Name:      valueNames[value],
	}
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(CardJSON{
		Mapping:    c.Mapping,
		AltMapping: c.AltMapping,
		Suit:       string(c.Suit),
		Value:      int(c.Value),
		HighValue:  c.HighValue,
		Name:       c.Name,
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cardJSON CardJSON
	if err := json.Unmarshal(data, &cardJSON); err != nil {
		return err
	}

	suit, err := ParseSuit(cardJSON.Suit)
	if err != nil {
		return err
	}
	value := Value(cardJSON.Value)
	if value < Ace || value > King {
		return fmt.Errorf("invalid value: %d", cardJSON.Value)
	}
	high := cardJSON.HighValue
	if high == 0 {
		high = value.High()
	}
	if high != value.High() {
		return fmt.Errorf("highvalue %d does not match value %d", high, cardJSON.Value)
	}

	*c = Card{
		Mapping:    cardJSON.Mapping,
		AltMapping: cardJSON.AltMapping,
		Suit:       suit,
		Value:      value,
		HighValue:  high,
		Name:       cardJSON.Name,
	}
	return nil
}

// MappingValue returns the plaintext mapping, preferring "mapping" over the
// "_mapping" field some clients serialize.
func (c Card) MappingValue() string {
	if c.Mapping != "" {
		return c.Mapping
	}
	return c.AltMapping
}

// String returns a string representation of the card
func (c Card) String() string {
	return c.Value.String() + string(c.Suit)
}

// StandardDeck creates the 52 faceup cards in canonical order, assigning
// mappings[i] to the i-th card.
func StandardDeck(mappings []string) ([]Card, error) {
	if len(mappings) != 52 {
		return nil, fmt.Errorf("need 52 mappings, got %d", len(mappings))
	}
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	values := []Value{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

	cards := make([]Card, 0, 52)
	for _, suit := range suits {
		for _, value := range values {
			cards = append(cards, NewCard(suit, value, mappings[len(cards)]))
		}
	}
	return cards, nil
}

// Mappings returns the mapping values of cards, in order.
func Mappings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.MappingValue()
	}
	return out
}

// CompareDecks reports whether a and b hold the same values with the same
// multiplicity, ignoring order.
func CompareDecks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		if counts[v] == 0 {
			return false
		}
		counts[v]--
	}
	return true
}

// HasDuplicates reports whether values contains a repeated element.
func HasDuplicates(values []string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

// Dedupe returns values without repeats, keeping first occurrences in order.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// RemoveCards returns deck without the values in remove. Every value in
// remove must be distinct and present in deck; otherwise an error is returned
// and deck is left untouched.
func RemoveCards(deck, remove []string) ([]string, error) {
	if len(remove) == 0 {
		return nil, fmt.Errorf("no cards to remove")
	}
	if HasDuplicates(remove) {
		return nil, fmt.Errorf("duplicate cards in selection")
	}
	pending := make(map[string]struct{}, len(remove))
	for _, v := range remove {
		pending[v] = struct{}{}
	}
	out := make([]string, 0, len(deck))
	for _, v := range deck {
		if _, ok := pending[v]; ok {
			delete(pending, v)
			continue
		}
		out = append(out, v)
	}
	if len(pending) > 0 {
		missing := make([]string, 0, len(pending))
		for _, v := range remove {
			if _, ok := pending[v]; ok {
				missing = append(missing, v)
			}
		}
		return nil, fmt.Errorf("cards not available: %s", strings.Join(missing, ","))
	}
	return out, nil
}
