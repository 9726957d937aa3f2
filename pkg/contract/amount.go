package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ErrNegativeAmount is returned when checked arithmetic would go below zero.
var ErrNegativeAmount = errors.New("negative amount")

// Amount is an arbitrary precision integer number of the smallest currency
// unit. Amounts are immutable; every operation returns a new value. On the
// wire an Amount is a decimal string.
type Amount struct {
	v *big.Int
}

// NewAmount returns an Amount holding i.
func NewAmount(i int64) Amount {
	return Amount{v: big.NewInt(i)}
}

// ParseAmount parses a signed decimal integer string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("malformed amount %q", s)
	}
	return Amount{v: v}, nil
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.int())
}

func (a Amount) Sign() int      { return a.int().Sign() }
func (a Amount) IsZero() bool   { return a.Sign() == 0 }
func (a Amount) String() string { return a.int().String() }

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.int(), b.int())}
}

func (a Amount) Neg() Amount {
	return Amount{v: new(big.Int).Neg(a.int())}
}

// Sub returns a-b, or ErrNegativeAmount if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := new(big.Int).Sub(a.int(), b.int())
	if r.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrNegativeAmount, a, b)
	}
	return Amount{v: r}, nil
}

// Split divides a into n equal shares, truncating. It returns the share and
// the undistributed remainder.
func (a Amount) Split(n int) (share, remainder Amount) {
	if n <= 0 {
		return Amount{}, a
	}
	q, r := new(big.Int).QuoRem(a.int(), big.NewInt(int64(n)), new(big.Int))
	return Amount{v: q}, Amount{v: r}
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (a Amount) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (a *Amount) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
