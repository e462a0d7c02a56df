// Package numeral provides fixed-width plaintext unsigned integers used as
// moduli, curve constants and scalar widths by the encrypted arithmetic.
//
// A Numeral carries its value together with the bit width of the machine type
// it was built from (8, 16, 32, 64 or 256). The width drives iteration counts
// of the fixed-cost algorithms, so two numerals with equal values but
// different widths are not interchangeable.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package numeral

import (
	"math/big"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// ErrOverflow is returned when a value does not fit the requested width.
var ErrOverflow = errors.New("numeral: value exceeds width")

// Numeral is an immutable unsigned integer of a fixed bit width.
type Numeral struct {
	v    *big.Int
	bits int
}

// Of builds a numeral from a native unsigned integer. The width is the size
// of T in bits.
func Of[T constraints.Unsigned](x T) Numeral {
	return Numeral{
		v:    new(big.Int).SetUint64(uint64(x)),
		bits: int(unsafe.Sizeof(x)) * 8,
	}
}

// New builds a numeral of the given width. The value is reduced modulo 2^bits.
func New(v *big.Int, bits int) Numeral {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	mask.Sub(mask, big.NewInt(1))
	return Numeral{v: new(big.Int).And(v, mask), bits: bits}
}

// Zero returns 0 of the given width.
func Zero(bits int) Numeral { return Numeral{v: new(big.Int), bits: bits} }

// One returns 1 of the given width.
func One(bits int) Numeral { return Numeral{v: big.NewInt(1), bits: bits} }

// U256 builds a 256-bit numeral.
func U256(v *big.Int) Numeral {
	return New(v, 256)
}

// FromDecimal parses a base-10 string into a numeral of the given width.
func FromDecimal(s string, bits int) (Numeral, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return Numeral{}, errors.Newf("numeral: invalid decimal %q", s)
	}
	if v.BitLen() > bits {
		return Numeral{}, errors.Wrapf(ErrOverflow, "%d bits > %d", v.BitLen(), bits)
	}
	return Numeral{v: v, bits: bits}, nil
}

// MustFromDecimal is FromDecimal for package-level constants.
func MustFromDecimal(s string, bits int) Numeral {
	n, err := FromDecimal(s, bits)
	if err != nil {
		panic(err)
	}
	return n
}

// Bits returns the width of the numeral type.
func (n Numeral) Bits() int { return n.bits }

// Big returns a copy of the value.
func (n Numeral) Big() *big.Int {
	if n.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n.v)
}

// BitLen returns the number of significant bits of the value.
func (n Numeral) BitLen() int {
	if n.v == nil {
		return 0
	}
	return n.v.BitLen()
}

// IsZero reports whether the value is zero.
func (n Numeral) IsZero() bool { return n.v == nil || n.v.Sign() == 0 }

// Bit returns bit i of the value.
func (n Numeral) Bit(i int) uint {
	if n.v == nil {
		return 0
	}
	return n.v.Bit(i)
}

// Rsh returns n >> s with the same width.
func (n Numeral) Rsh(s uint) Numeral {
	return Numeral{v: new(big.Int).Rsh(n.Big(), s), bits: n.bits}
}

// Lsh returns n << s truncated to the width of n.
func (n Numeral) Lsh(s uint) Numeral {
	return New(new(big.Int).Lsh(n.Big(), s), n.bits)
}

// And returns n & m with the width of n.
func (n Numeral) And(m Numeral) Numeral {
	return Numeral{v: new(big.Int).And(n.Big(), m.Big()), bits: n.bits}
}

// Cmp compares the values of n and m.
func (n Numeral) Cmp(m Numeral) int {
	return n.Big().Cmp(m.Big())
}

// BytesLE returns the little-endian encoding, exactly Bits()/8 bytes long
// (rounded up).
func (n Numeral) BytesLE() []byte {
	size := (n.bits + 7) / 8
	out := make([]byte, size)
	be := n.Big().Bytes()
	for i := 0; i < len(be) && i < size; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// FromBytesLE decodes a little-endian value of the given width.
func FromBytesLE(b []byte, bits int) Numeral {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return New(new(big.Int).SetBytes(be), bits)
}

func (n Numeral) String() string {
	return n.Big().String()
}
