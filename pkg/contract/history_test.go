package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

func TestSetKeychainWriteOnce(t *testing.T) {
	h := NewHistory()
	first := sra.Keychain{{EncKey: "3", DecKey: "7", Prime: "11"}}
	require.NoError(t, h.SetKeychain("alice", first))

	err := h.SetKeychain("alice", sra.Keychain{{EncKey: "9", DecKey: "9", Prime: "11"}})
	assert.ErrorIs(t, err, ErrKeychainExists)
	assert.Equal(t, first, h.Keychains["alice"])

	assert.True(t, h.KeychainsComplete([]string{"alice"}))
	assert.False(t, h.KeychainsComplete([]string{"alice", "bob"}))
}

func TestDecryptOrder(t *testing.T) {
	seats := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"b", "c", "d"}, DecryptOrder(seats, "a"))
	assert.Equal(t, []string{"d", "a", "b"}, DecryptOrder(seats, "c"))
	assert.Nil(t, DecryptOrder(seats, "x"))
}

func TestNextDealAction(t *testing.T) {
	deals := []Deal{
		{FromPID: "a", Type: DealSelect},
		{FromPID: "b", Type: DealDecrypt},
		{FromPID: "a", Type: DealSelect},
		{FromPID: "b", Type: DealDecrypt},
	}
	assert.Equal(t, 0, NextDealAction(deals, "a", DealSelect, 0))
	assert.Equal(t, 2, NextDealAction(deals, "a", DealSelect, 1))
	assert.Equal(t, 3, NextDealAction(deals, "b", DealDecrypt, 1))
	assert.Equal(t, -1, NextDealAction(deals, "b", DealDecrypt, 2))
	assert.Equal(t, -1, NextDealAction(deals, "a", DealDecrypt, 0))
}

func TestFixDealsOrder(t *testing.T) {
	seats := []string{"a", "b", "c"}
	sel := func(n string) Deal { return Deal{FromPID: "b", Type: DealSelect, Cards: []string{n}} }
	dec := func(pid, n string) Deal { return Deal{FromPID: pid, Type: DealDecrypt, Cards: []string{n}} }

	// Arrival order: both selections first, the decrypts interleaved and
	// a's decrypt of the first lineage arriving before c's.
	raw := map[string][]Deal{
		"b": {
			sel("s1"), sel("s2"),
			dec("a", "a1"), dec("c", "c1"), dec("c", "c2"), dec("a", "a2"),
		},
	}
	ordered, unplaced := FixDealsOrder(seats, raw)
	assert.Empty(t, unplaced)
	assert.Equal(t, []Deal{
		sel("s1"), dec("c", "c1"), dec("a", "a1"),
		sel("s2"), dec("c", "c2"), dec("a", "a2"),
	}, ordered["b"])

	// The input is not modified.
	assert.Equal(t, "a1", raw["b"][2].Cards[0])
}

func TestFixDealsOrderUnplaced(t *testing.T) {
	seats := []string{"a", "b"}
	raw := map[string][]Deal{
		"a": {
			{FromPID: "a", Type: DealSelect, Cards: []string{"1"}},
			{FromPID: "b", Type: DealDecrypt, Cards: []string{"2"}},
			{FromPID: "b", Type: DealDecrypt, Cards: []string{"3"}}, // no second selection
			{FromPID: "z", Type: DealDecrypt, Cards: []string{"4"}}, // not seated
		},
		"z": {{FromPID: "z", Type: DealSelect, Cards: []string{"5"}}},
	}
	ordered, unplaced := FixDealsOrder(seats, raw)
	assert.Len(t, ordered["a"], 2)
	assert.Len(t, unplaced["a"], 2)
	assert.Equal(t, "3", unplaced["a"][0].Cards[0])
	assert.Len(t, unplaced["z"], 1)
}

func TestHistoryDigest(t *testing.T) {
	h := NewHistory()
	h.AddDeck("a", []string{"4", "9"})
	d1, err := h.Digest()
	require.NoError(t, err)
	assert.Len(t, d1, 64)

	h.AddDeal("a", Deal{FromPID: "a", Type: DealSelect, Cards: []string{"4"}})
	d2, err := h.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	again, err := h.Digest()
	require.NoError(t, err)
	assert.Equal(t, d2, again)
}
