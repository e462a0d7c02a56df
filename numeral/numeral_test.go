// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package numeral

import (
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfWidth(t *testing.T) {
	assert.Equal(t, 8, Of(uint8(251)).Bits())
	assert.Equal(t, 16, Of(uint16(1)).Bits())
	assert.Equal(t, 32, Of(uint32(1)).Bits())
	assert.Equal(t, 64, Of(uint64(1)).Bits())
	assert.Equal(t, 256, U256(big.NewInt(7)).Bits())
	assert.Equal(t, "251", Of(uint8(251)).String())
}

func TestFromDecimal(t *testing.T) {
	n, err := FromDecimal("32670510020758816978083085130507043184471273380659243275938904335757337482424", 256)
	require.NoError(t, err)
	assert.Equal(t, 256, n.Bits())

	_, err = FromDecimal("256", 8)
	assert.True(t, errors.Is(err, ErrOverflow))

	_, err = FromDecimal("12x", 8)
	assert.Error(t, err)
}

func TestBitsAndShift(t *testing.T) {
	n := Of(uint8(0b1011_0010))
	assert.Equal(t, uint(0), n.Bit(0))
	assert.Equal(t, uint(1), n.Bit(1))
	assert.Equal(t, uint(1), n.Bit(7))
	assert.Equal(t, "44", n.Rsh(2).String())
	assert.Equal(t, "2", n.And(Of(uint8(3))).String())
	assert.Equal(t, "200", n.Lsh(2).String())
	assert.Equal(t, 8, n.Lsh(2).Bits())
	assert.False(t, n.IsZero())
	assert.True(t, Numeral{}.IsZero())
}

func TestZeroOne(t *testing.T) {
	z, o := Zero(64), One(256)
	assert.True(t, z.IsZero())
	assert.Equal(t, 64, z.Bits())
	assert.Equal(t, "1", o.String())
	assert.Equal(t, 256, o.Bits())
	assert.Equal(t, 0, o.Lsh(255).Rsh(255).Cmp(o))
	assert.True(t, o.Lsh(256).IsZero())
}

func TestBytesLERoundTrip(t *testing.T) {
	v, _ := new(big.Int).SetString("0102030405", 16)
	n := New(v, 64)
	b := n.BytesLE()
	require.Len(t, b, 8)
	assert.Equal(t, []byte{5, 4, 3, 2, 1, 0, 0, 0}, b)
	assert.Equal(t, 0, FromBytesLE(b, 64).Cmp(n))
}

func TestNewMasks(t *testing.T) {
	n := New(big.NewInt(0x1ff), 8)
	assert.Equal(t, "255", n.String())
}
