package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestSettle(t *testing.T) {
	var low, mid, high State[counter]
	low = State[counter]{Name: "low", Next: func(c *counter) *State[counter] {
		if c.n >= 10 {
			return &mid
		}
		return nil
	}}
	mid = State[counter]{Name: "mid", Next: func(c *counter) *State[counter] {
		if c.n >= 100 {
			return &high
		}
		return nil
	}}
	high = State[counter]{Name: "high"}

	m := New(&low, 0)
	tests := []struct {
		n    int
		want string
		path []string
	}{
		{1, "low", []string{"low"}},
		{10, "mid", []string{"low", "mid"}},
		{500, "high", []string{"low", "mid", "high"}},
	}
	for _, tt := range tests {
		st, path, err := m.Settle(&counter{n: tt.n})
		require.NoError(t, err)
		assert.Equal(t, tt.want, st.Name)
		assert.Equal(t, tt.path, path)
	}
}

func TestSettleCycle(t *testing.T) {
	var ping, pong State[counter]
	ping = State[counter]{Name: "ping", Next: func(*counter) *State[counter] { return &pong }}
	pong = State[counter]{Name: "pong", Next: func(*counter) *State[counter] { return &ping }}

	_, path, err := New(&ping, 5).Settle(&counter{})
	assert.Error(t, err)
	assert.Len(t, path, 6)
}
