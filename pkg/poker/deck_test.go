package poker

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMappings(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa((i + 2) * (i + 2))
	}
	return out
}

func TestStandardDeck(t *testing.T) {
	deck, err := StandardDeck(testMappings(52))
	require.NoError(t, err)
	require.Len(t, deck, 52)

	// Check for duplicates
	seen := make(map[string]bool)
	for _, card := range deck {
		assert.False(t, seen[card.String()], "duplicate card %s", card)
		seen[card.String()] = true
	}

	assert.Equal(t, "A♠", deck[0].String())
	assert.Equal(t, 14, deck[0].HighValue)
	assert.Equal(t, "4", deck[0].Mapping)
	assert.Equal(t, "K♣", deck[51].String())
	assert.Equal(t, "king", deck[51].Name)

	_, err = StandardDeck(testMappings(51))
	assert.Error(t, err)
}

func TestCardJSONSerialization(t *testing.T) {
	card := NewCard(Hearts, Ten, "121")
	data, err := json.Marshal(card)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mapping":"121","suit":"♥","value":10,"highvalue":10,"name":"ten"}`, string(data))

	var back Card
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, card, back)

	// Clients may use the alternate mapping field and suit letters.
	var alt Card
	require.NoError(t, json.Unmarshal([]byte(`{"_mapping":"16","suit":"s","value":1}`), &alt))
	assert.Equal(t, "16", alt.MappingValue())
	assert.Equal(t, Spades, alt.Suit)
	assert.Equal(t, 14, alt.HighValue)

	assert.Error(t, json.Unmarshal([]byte(`{"suit":"x","value":1}`), &alt))
	assert.Error(t, json.Unmarshal([]byte(`{"suit":"s","value":14}`), &alt))
	assert.Error(t, json.Unmarshal([]byte(`{"suit":"s","value":2,"highvalue":9}`), &alt))
}

func TestCompareDecks(t *testing.T) {
	assert.True(t, CompareDecks([]string{"1", "2", "3"}, []string{"3", "1", "2"}))
	assert.False(t, CompareDecks([]string{"1", "2", "3"}, []string{"1", "2"}))
	assert.False(t, CompareDecks([]string{"1", "1", "2"}, []string{"1", "2", "2"}))
	assert.True(t, CompareDecks(nil, []string{}))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"3", "1", "2"}, Dedupe([]string{"3", "1", "3", "2", "1"}))
	assert.True(t, HasDuplicates([]string{"1", "2", "1"}))
	assert.False(t, HasDuplicates([]string{"1", "2"}))
}

func TestRemoveCards(t *testing.T) {
	deck := []string{"1", "2", "3", "4"}

	rest, err := RemoveCards(deck, []string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4"}, rest)
	assert.Equal(t, []string{"1", "2", "3", "4"}, deck)

	_, err = RemoveCards(deck, []string{"5"})
	assert.Error(t, err)
	_, err = RemoveCards(deck, []string{"2", "2"})
	assert.Error(t, err)
	_, err = RemoveCards(deck, nil)
	assert.Error(t, err)
}
