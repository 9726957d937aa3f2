// Package sra implements the commutative SRA cipher used to shuffle and deal
// cards without a trusted dealer.
//
// Every participant holds a key pair (e, d) with e*d = 1 (mod p-1) over a prime
// p shared by the whole table. Encryption is m^e mod p and decryption is
// c^d mod p; because exponentiation commutes, layers added by different players
// can be removed in any order.
package sra

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/cronokirby/saferith"
)

var (
	// ErrInvalidPrime is returned when a modulus is not an odd prime > 3.
	ErrInvalidPrime = errors.New("sra: invalid prime")
	// ErrInvalidValue is returned for values outside (0, p).
	ErrInvalidValue = errors.New("sra: value out of range")
	// ErrInvalidKey is returned for a key pair that does not invert.
	ErrInvalidKey = errors.New("sra: invalid key pair")
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Keypair is the wire form of a player's key pair. All fields are decimal
// integer strings.
type Keypair struct {
	EncKey string `json:"encKey"`
	DecKey string `json:"decKey"`
	Prime  string `json:"prime"`
}

// Keychain is the ordered list of key pairs a player reveals after the hand.
type Keychain []Keypair

// Key is a parsed, validated key pair ready for use.
type Key struct {
	enc   *saferith.Nat
	dec   *saferith.Nat
	mod   *saferith.Modulus
	prime *big.Int
}

// ParseInt parses a non-negative decimal integer string.
func ParseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative integer %q", s)
	}
	return v, nil
}

// Canonical returns the normalized decimal form of s (no sign, no leading
// zeros) so that values submitted by different clients compare equal.
func Canonical(s string) (string, error) {
	v, err := ParseInt(s)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// ParsePrime parses and checks a shared modulus.
func ParsePrime(s string) (*big.Int, error) {
	p, err := ParseInt(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrime, err)
	}
	if p.Cmp(big.NewInt(3)) <= 0 || p.Bit(0) == 0 || !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrime, s)
	}
	return p, nil
}

// ParseValue parses a card value and checks 0 < v < prime.
func ParseValue(s string, prime *big.Int) (*big.Int, error) {
	v, err := ParseInt(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if v.Sign() <= 0 || v.Cmp(prime) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, s)
	}
	return v, nil
}

// Parse validates the key pair and prepares it for exponentiation.
func (kp Keypair) Parse() (*Key, error) {
	p, err := ParsePrime(kp.Prime)
	if err != nil {
		return nil, err
	}
	enc, err := ParseInt(kp.EncKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encKey: %v", ErrInvalidKey, err)
	}
	dec, err := ParseInt(kp.DecKey)
	if err != nil {
		return nil, fmt.Errorf("%w: decKey: %v", ErrInvalidKey, err)
	}
	phi := new(big.Int).Sub(p, one)
	if enc.Sign() == 0 || dec.Sign() == 0 || enc.Cmp(phi) >= 0 || dec.Cmp(phi) >= 0 {
		return nil, fmt.Errorf("%w: key out of range", ErrInvalidKey)
	}
	prod := new(big.Int).Mul(enc, dec)
	if prod.Mod(prod, phi).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: encKey*decKey != 1 mod p-1", ErrInvalidKey)
	}

	pNat := new(saferith.Nat).SetBig(p, p.BitLen())
	return &Key{
		enc:   new(saferith.Nat).SetBig(enc, enc.BitLen()),
		dec:   new(saferith.Nat).SetBig(dec, dec.BitLen()),
		mod:   saferith.ModulusFromNat(pNat),
		prime: p,
	}, nil
}

// Prime returns the key's modulus.
func (k *Key) Prime() *big.Int {
	return new(big.Int).Set(k.prime)
}

func (k *Key) exp(value string, e *saferith.Nat) (string, error) {
	v, err := ParseValue(value, k.prime)
	if err != nil {
		return "", err
	}
	x := new(saferith.Nat).SetBig(v, k.prime.BitLen())
	return new(saferith.Nat).Exp(x, e, k.mod).Big().String(), nil
}

// Encrypt returns value^enc mod p.
func (k *Key) Encrypt(value string) (string, error) {
	return k.exp(value, k.enc)
}

// Decrypt returns value^dec mod p.
func (k *Key) Decrypt(value string) (string, error) {
	return k.exp(value, k.dec)
}

// Parse parses every key pair of the keychain. An empty keychain is invalid.
func (kc Keychain) Parse() ([]*Key, error) {
	if len(kc) == 0 {
		return nil, fmt.Errorf("%w: empty keychain", ErrInvalidKey)
	}
	keys := make([]*Key, 0, len(kc))
	for i, kp := range kc {
		k, err := kp.Parse()
		if err != nil {
			return nil, fmt.Errorf("keypair %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// EncryptCards applies every key of the chain, in order, to every value.
func EncryptCards(cards []string, keys []*Key) ([]string, error) {
	out := make([]string, len(cards))
	for i, c := range cards {
		v := c
		for _, k := range keys {
			var err error
			if v, err = k.Encrypt(v); err != nil {
				return nil, err
			}
		}
		out[i] = v
	}
	return out, nil
}

// DecryptCards removes every key of the chain, last key first.
func DecryptCards(cards []string, keys []*Key) ([]string, error) {
	out := make([]string, len(cards))
	for i, c := range cards {
		v := c
		for j := len(keys) - 1; j >= 0; j-- {
			var err error
			if v, err = keys[j].Decrypt(v); err != nil {
				return nil, err
			}
		}
		out[i] = v
	}
	return out, nil
}

// GenerateKeypair draws a random key pair for prime. A nil rnd uses
// crypto/rand.
func GenerateKeypair(prime *big.Int, rnd io.Reader) (Keypair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	phi := new(big.Int).Sub(prime, one)
	gcd := new(big.Int)
	for {
		e, err := rand.Int(rnd, phi)
		if err != nil {
			return Keypair{}, err
		}
		if e.Cmp(two) < 0 {
			continue
		}
		if gcd.GCD(nil, nil, e, phi).Cmp(one) != 0 {
			continue
		}
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			continue
		}
		return Keypair{
			EncKey: e.String(),
			DecKey: d.String(),
			Prime:  prime.String(),
		}, nil
	}
}

// MappingValues returns n distinct quadratic residues mod prime (the squares
// of 2..n+1), suitable as plaintext card mappings.
func MappingValues(prime *big.Int, n int) ([]string, error) {
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; len(out) < n; i++ {
		b := big.NewInt(int64(i + 2))
		if b.Cmp(prime) >= 0 {
			return nil, fmt.Errorf("prime %s too small for %d mappings", prime, n)
		}
		v := new(big.Int).Mul(b, b)
		v.Mod(v, prime)
		if v.Sign() == 0 {
			continue
		}
		s := v.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
