// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package plain implements engine.Engine over cleartext values with the exact
// width and wrap-around behavior of the encrypted engines. It is used for
// development and to check that algorithms are data-oblivious: every call is
// counted, so two runs over different inputs must report identical Stats.
package plain

import (
	"encoding/binary"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/luxfi/fhe-ecdsa/engine"
)

// DefaultBlockBits matches the 2-bit message blocks of the radix engine.
const DefaultBlockBits = 2

// Int is a cleartext radix integer.
type Int struct {
	v      *big.Int
	blocks int
}

// Blocks implements engine.Ciphertext.
func (x *Int) Blocks() int { return x.blocks }

// Value returns a copy of the held value.
func (x *Int) Value() *big.Int { return new(big.Int).Set(x.v) }

// Engine is the cleartext engine. The zero value is not usable; call New.
type Engine struct {
	blockBits int

	mu    sync.Mutex
	stats map[string]uint64
}

var (
	_ engine.Engine    = (*Engine)(nil)
	_ engine.Encrypter = (*Engine)(nil)
	_ engine.Decrypter = (*Engine)(nil)
	_ engine.Codec     = (*Engine)(nil)
)

// New returns an engine with the given block width in bits.
func New(blockBits int) *Engine {
	if blockBits <= 0 {
		blockBits = DefaultBlockBits
	}
	return &Engine{blockBits: blockBits, stats: make(map[string]uint64)}
}

// Stats is a snapshot of per-operation call counts.
type Stats map[string]uint64

// Total returns the number of counted operations.
func (s Stats) Total() uint64 {
	var n uint64
	for _, c := range s {
		n += c
	}
	return n
}

func (s Stats) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strconv.FormatUint(s[k], 10))
	}
	return b.String()
}

// Stats returns a copy of the operation counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(Stats, len(e.stats))
	for k, v := range e.stats {
		out[k] = v
	}
	return out
}

// ResetStats clears the operation counters.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	e.stats = make(map[string]uint64)
	e.mu.Unlock()
}

func (e *Engine) count(op string) {
	e.mu.Lock()
	e.stats[op]++
	e.mu.Unlock()
}

// BlockBits implements engine.Engine.
func (e *Engine) BlockBits() int { return e.blockBits }

func (e *Engine) modulus(blocks int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(blocks*e.blockBits))
}

func (e *Engine) wrap(v *big.Int, blocks int) *Int {
	return &Int{v: v.Mod(v, e.modulus(blocks)), blocks: blocks}
}

func (e *Engine) unwrap(ct engine.Ciphertext) *Int {
	x, ok := ct.(*Int)
	if !ok || x == nil {
		panic(errors.Wrapf(engine.ErrForeignCiphertext, "%T", ct))
	}
	return x
}

func (e *Engine) pair(a, b engine.Ciphertext) (*Int, *Int, int, error) {
	x, ok := a.(*Int)
	if !ok || x == nil {
		return nil, nil, 0, errors.Wrapf(engine.ErrForeignCiphertext, "%T", a)
	}
	y, ok := b.(*Int)
	if !ok || y == nil {
		return nil, nil, 0, errors.Wrapf(engine.ErrForeignCiphertext, "%T", b)
	}
	w := x.blocks
	if y.blocks > w {
		w = y.blocks
	}
	return x, y, w, nil
}

func (e *Engine) one(a engine.Ciphertext) (*Int, error) {
	x, ok := a.(*Int)
	if !ok || x == nil {
		return nil, errors.Wrapf(engine.ErrForeignCiphertext, "%T", a)
	}
	return x, nil
}

func boolInt(b bool) *Int {
	if b {
		return &Int{v: big.NewInt(1), blocks: 1}
	}
	return &Int{v: new(big.Int), blocks: 1}
}

// Trivial implements engine.Engine.
func (e *Engine) Trivial(v *big.Int, blocks int) (engine.Ciphertext, error) {
	if blocks <= 0 {
		return nil, errors.Wrapf(engine.ErrWidth, "%d blocks", blocks)
	}
	e.count("trivial")
	return e.wrap(new(big.Int).Set(v), blocks), nil
}

// Encrypt implements engine.Encrypter.
func (e *Engine) Encrypt(v *big.Int, blocks int) (engine.Ciphertext, error) {
	if blocks <= 0 {
		return nil, errors.Wrapf(engine.ErrWidth, "%d blocks", blocks)
	}
	return e.wrap(new(big.Int).Set(v), blocks), nil
}

// Decrypt implements engine.Decrypter.
func (e *Engine) Decrypt(ct engine.Ciphertext) (*big.Int, error) {
	x, err := e.one(ct)
	if err != nil {
		return nil, err
	}
	return x.Value(), nil
}

// Extend implements engine.Engine.
func (e *Engine) Extend(ct engine.Ciphertext, blocks int) engine.Ciphertext {
	x := e.unwrap(ct)
	if blocks < x.blocks {
		panic(errors.Wrapf(engine.ErrWidth, "extend %d to %d", x.blocks, blocks))
	}
	return &Int{v: x.Value(), blocks: blocks}
}

// Trim implements engine.Engine.
func (e *Engine) Trim(ct engine.Ciphertext, blocks int) engine.Ciphertext {
	x := e.unwrap(ct)
	if blocks < 1 || blocks > x.blocks {
		panic(errors.Wrapf(engine.ErrWidth, "trim %d to %d", x.blocks, blocks))
	}
	return e.wrap(x.Value(), blocks)
}

// Add implements engine.Engine.
func (e *Engine) Add(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("add")
	return e.wrap(new(big.Int).Add(x.v, y.v), w), nil
}

// Sub implements engine.Engine.
func (e *Engine) Sub(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("sub")
	return e.wrap(new(big.Int).Sub(x.v, y.v), w), nil
}

// Mul implements engine.Engine.
func (e *Engine) Mul(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("mul")
	return e.wrap(new(big.Int).Mul(x.v, y.v), w), nil
}

// DivRem implements engine.Engine.
func (e *Engine) DivRem(a, b engine.Ciphertext) (engine.Ciphertext, engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, nil, err
	}
	e.count("divrem")
	if y.v.Sign() == 0 {
		allOnes := new(big.Int).Sub(e.modulus(w), big.NewInt(1))
		return &Int{v: allOnes, blocks: w}, &Int{v: x.Value(), blocks: w}, nil
	}
	q, r := new(big.Int).QuoRem(x.v, y.v, new(big.Int))
	return e.wrap(q, w), e.wrap(r, w), nil
}

// BitAnd implements engine.Engine.
func (e *Engine) BitAnd(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("bitand")
	return e.wrap(new(big.Int).And(x.v, y.v), w), nil
}

// BitOr implements engine.Engine.
func (e *Engine) BitOr(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, w, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("bitor")
	return e.wrap(new(big.Int).Or(x.v, y.v), w), nil
}

// Gt implements engine.Engine.
func (e *Engine) Gt(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, _, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	e.count("gt")
	return boolInt(x.v.Cmp(y.v) > 0), nil
}

// ScalarAdd implements engine.Engine.
func (e *Engine) ScalarAdd(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count("scalar_add")
	return e.wrap(new(big.Int).Add(x.v, k), x.blocks), nil
}

// ScalarMul implements engine.Engine.
func (e *Engine) ScalarMul(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count("scalar_mul")
	return e.wrap(new(big.Int).Mul(x.v, k), x.blocks), nil
}

// ScalarBitAnd implements engine.Engine.
func (e *Engine) ScalarBitAnd(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count("scalar_bitand")
	return e.wrap(new(big.Int).And(x.v, k), x.blocks), nil
}

func (e *Engine) scalarCmp(op string, a engine.Ciphertext, k *big.Int, pred func(int) bool) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count(op)
	return boolInt(pred(x.v.Cmp(k))), nil
}

// ScalarGe implements engine.Engine.
func (e *Engine) ScalarGe(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalarCmp("scalar_ge", a, k, func(c int) bool { return c >= 0 })
}

// ScalarLt implements engine.Engine.
func (e *Engine) ScalarLt(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalarCmp("scalar_lt", a, k, func(c int) bool { return c < 0 })
}

// ScalarEq implements engine.Engine.
func (e *Engine) ScalarEq(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalarCmp("scalar_eq", a, k, func(c int) bool { return c == 0 })
}

// ScalarNe implements engine.Engine.
func (e *Engine) ScalarNe(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalarCmp("scalar_ne", a, k, func(c int) bool { return c != 0 })
}

// ShiftLeft implements engine.Engine.
func (e *Engine) ShiftLeft(a engine.Ciphertext, n int) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count("shl")
	return e.wrap(new(big.Int).Lsh(x.v, uint(n)), x.blocks), nil
}

// ShiftRight implements engine.Engine.
func (e *Engine) ShiftRight(a engine.Ciphertext, n int) (engine.Ciphertext, error) {
	x, err := e.one(a)
	if err != nil {
		return nil, err
	}
	e.count("shr")
	return &Int{v: new(big.Int).Rsh(x.v, uint(n)), blocks: x.blocks}, nil
}

// MarshalCiphertext implements engine.Codec. The layout is a little-endian
// uint32 block count followed by the little-endian value.
func (e *Engine) MarshalCiphertext(ct engine.Ciphertext) ([]byte, error) {
	x, err := e.one(ct)
	if err != nil {
		return nil, err
	}
	size := (x.blocks*e.blockBits + 7) / 8
	out := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(out, uint32(x.blocks))
	be := x.v.Bytes()
	for i := 0; i < len(be); i++ {
		out[4+i] = be[len(be)-1-i]
	}
	return out, nil
}

// UnmarshalCiphertext implements engine.Codec.
func (e *Engine) UnmarshalCiphertext(data []byte) (engine.Ciphertext, error) {
	if len(data) < 4 {
		return nil, errors.New("plain: ciphertext too short")
	}
	blocks := int(binary.LittleEndian.Uint32(data))
	size := (blocks*e.blockBits + 7) / 8
	if blocks <= 0 || len(data) != 4+size {
		return nil, errors.Wrapf(engine.ErrWidth, "%d blocks in %d bytes", blocks, len(data))
	}
	be := make([]byte, size)
	for i := 0; i < size; i++ {
		be[size-1-i] = data[4+i]
	}
	return e.wrap(new(big.Int).SetBytes(be), blocks), nil
}
