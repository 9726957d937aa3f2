package contract

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	a, err := ParseAmount("123456789012345678901234567890")
	require.NoError(t, err)
	b := NewAmount(90)

	assert.Equal(t, "123456789012345678901234567980", a.Add(b).String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567800", diff.String())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	// The receiver never changes.
	assert.Equal(t, "90", b.String())

	var zero Amount
	assert.True(t, zero.IsZero())
	assert.Equal(t, "0", zero.String())
	assert.Equal(t, 1, b.Cmp(zero))
	assert.Equal(t, -1, b.Neg().Sign())
}

func TestAmountSplit(t *testing.T) {
	share, rem := NewAmount(301).Split(3)
	assert.Equal(t, "100", share.String())
	assert.Equal(t, "1", rem.String())

	share, rem = NewAmount(300).Split(2)
	assert.Equal(t, "150", share.String())
	assert.True(t, rem.IsZero())

	share, rem = NewAmount(7).Split(0)
	assert.True(t, share.IsZero())
	assert.Equal(t, "7", rem.String())
}

func TestAmountJSON(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1000","b":25}`), &v))
	assert.Equal(t, "1000", v.A.String())
	assert.Equal(t, "25", v.B.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1000","b":"25"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"12x"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1.5}`), &v))
}

func TestAmountCBOR(t *testing.T) {
	in, err := ParseAmount("-98765432109876543210")
	require.NoError(t, err)

	b, err := cbor.Marshal(in)
	require.NoError(t, err)
	var out Amount
	require.NoError(t, cbor.Unmarshal(b, &out))
	assert.Equal(t, 0, in.Cmp(out))
}
