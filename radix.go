// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/luxfi/fhe-ecdsa/engine"
)

// RadixBlockBits is the message width of one radix block.
const RadixBlockBits = 2

// RadixCiphertext is an encrypted unsigned integer made of RadixBlockBits-bit
// blocks, stored as encrypted bits least significant first. It is immutable.
type RadixCiphertext struct {
	bits bitVec
}

// Blocks implements engine.Ciphertext.
func (rc *RadixCiphertext) Blocks() int { return len(rc.bits) / RadixBlockBits }

// Bits returns the encrypted bits, least significant first.
func (rc *RadixCiphertext) Bits() []*Ciphertext {
	return append([]*Ciphertext(nil), rc.bits...)
}

// RadixEngine implements engine.Engine with gate bootstrapping. It holds
// only the bootstrap key and is safe for concurrent use.
type RadixEngine struct {
	c circuits
}

var (
	_ engine.Engine = (*RadixEngine)(nil)
	_ engine.Codec  = (*RadixEngine)(nil)
)

// NewRadixEngine returns an engine evaluating with bsk.
func NewRadixEngine(params Parameters, bsk *BootstrapKey, opts ...EvaluatorOption) *RadixEngine {
	return &RadixEngine{c: circuits{eval: NewEvaluator(params, bsk, opts...)}}
}

// Evaluator returns the gate evaluator behind the engine.
func (e *RadixEngine) Evaluator() *Evaluator { return e.c.eval }

func radix(ct engine.Ciphertext) (*RadixCiphertext, error) {
	rc, ok := ct.(*RadixCiphertext)
	if !ok || rc == nil {
		return nil, errors.Wrapf(engine.ErrForeignCiphertext, "%T", ct)
	}
	return rc, nil
}

func mustRadix(ct engine.Ciphertext) *RadixCiphertext {
	rc, err := radix(ct)
	if err != nil {
		panic(err)
	}
	return rc
}

// pair unwraps two operands and zero-extends both to the wider width.
func (e *RadixEngine) pair(a, b engine.Ciphertext) (bitVec, bitVec, error) {
	x, err := radix(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := radix(b)
	if err != nil {
		return nil, nil, err
	}
	n := max(len(x.bits), len(y.bits))
	return e.widen(x.bits, n), e.widen(y.bits, n), nil
}

func (e *RadixEngine) widen(a bitVec, n int) bitVec {
	if len(a) >= n {
		return a
	}
	return append(append(bitVec{}, a...), e.c.zeros(n-len(a))...)
}

// flag wraps a single bit as a one-block ciphertext.
func (e *RadixEngine) flag(bit *Ciphertext) *RadixCiphertext {
	return &RadixCiphertext{bits: append(bitVec{bit}, e.c.zeros(RadixBlockBits-1)...)}
}

// BlockBits implements engine.Engine.
func (e *RadixEngine) BlockBits() int { return RadixBlockBits }

// Trivial implements engine.Engine.
func (e *RadixEngine) Trivial(v *big.Int, blocks int) (engine.Ciphertext, error) {
	if blocks <= 0 {
		return nil, errors.Wrapf(engine.ErrWidth, "%d blocks", blocks)
	}
	return &RadixCiphertext{bits: e.c.constant(v, blocks*RadixBlockBits)}, nil
}

// Extend implements engine.Engine.
func (e *RadixEngine) Extend(ct engine.Ciphertext, blocks int) engine.Ciphertext {
	rc := mustRadix(ct)
	if blocks < rc.Blocks() {
		panic(errors.Wrapf(engine.ErrWidth, "extend %d to %d", rc.Blocks(), blocks))
	}
	return &RadixCiphertext{bits: e.widen(rc.bits, blocks*RadixBlockBits)}
}

// Trim implements engine.Engine.
func (e *RadixEngine) Trim(ct engine.Ciphertext, blocks int) engine.Ciphertext {
	rc := mustRadix(ct)
	if blocks < 1 || blocks > rc.Blocks() {
		panic(errors.Wrapf(engine.ErrWidth, "trim %d to %d", rc.Blocks(), blocks))
	}
	return &RadixCiphertext{bits: rc.bits[:blocks*RadixBlockBits:blocks*RadixBlockBits]}
}

func (e *RadixEngine) binary(a, b engine.Ciphertext, op func(x, y bitVec) (bitVec, error)) (engine.Ciphertext, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	out, err := op(x, y)
	if err != nil {
		return nil, err
	}
	return &RadixCiphertext{bits: out}, nil
}

// Add implements engine.Engine.
func (e *RadixEngine) Add(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	return e.binary(a, b, e.c.add)
}

// Sub implements engine.Engine.
func (e *RadixEngine) Sub(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	return e.binary(a, b, func(x, y bitVec) (bitVec, error) {
		d, _, err := e.c.sub(x, y)
		return d, err
	})
}

// Mul implements engine.Engine.
func (e *RadixEngine) Mul(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	return e.binary(a, b, e.c.mul)
}

// DivRem implements engine.Engine.
func (e *RadixEngine) DivRem(a, b engine.Ciphertext) (engine.Ciphertext, engine.Ciphertext, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return nil, nil, err
	}
	q, r, err := e.c.divRem(x, y)
	if err != nil {
		return nil, nil, err
	}
	return &RadixCiphertext{bits: q}, &RadixCiphertext{bits: r}, nil
}

// BitAnd implements engine.Engine.
func (e *RadixEngine) BitAnd(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	return e.binary(a, b, e.c.and)
}

// BitOr implements engine.Engine.
func (e *RadixEngine) BitOr(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	return e.binary(a, b, e.c.or)
}

// Gt implements engine.Engine.
func (e *RadixEngine) Gt(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return nil, err
	}
	ge, err := e.c.ge(y, x)
	if err != nil {
		return nil, err
	}
	return e.flag(e.c.eval.NOT(ge)), nil
}

func (e *RadixEngine) scalar(a engine.Ciphertext, k *big.Int, op func(x bitVec, k *big.Int) (bitVec, error)) (engine.Ciphertext, error) {
	x, err := radix(a)
	if err != nil {
		return nil, err
	}
	// Negative constants act modulo 2^len like the other engines.
	kk := new(big.Int).Mod(k, new(big.Int).Lsh(big.NewInt(1), uint(len(x.bits))))
	out, err := op(x.bits, kk)
	if err != nil {
		return nil, err
	}
	return &RadixCiphertext{bits: out}, nil
}

// ScalarAdd implements engine.Engine.
func (e *RadixEngine) ScalarAdd(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalar(a, k, func(x bitVec, k *big.Int) (bitVec, error) {
		return e.c.add(x, e.c.constant(k, len(x)))
	})
}

// ScalarMul implements engine.Engine.
func (e *RadixEngine) ScalarMul(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalar(a, k, e.c.mulConst)
}

// ScalarBitAnd implements engine.Engine. Masking with a public constant
// needs no gates.
func (e *RadixEngine) ScalarBitAnd(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.scalar(a, k, func(x bitVec, k *big.Int) (bitVec, error) {
		out := make(bitVec, len(x))
		for i := range x {
			if k.Bit(i) == 1 {
				out[i] = x[i]
			} else {
				out[i] = e.c.eval.Constant(false)
			}
		}
		return out, nil
	})
}

func (e *RadixEngine) compare(a engine.Ciphertext, k *big.Int, op func(x bitVec, k *big.Int) (*Ciphertext, error)) (engine.Ciphertext, error) {
	x, err := radix(a)
	if err != nil {
		return nil, err
	}
	if k.Sign() < 0 {
		return nil, errors.Newf("fhe: negative comparison constant %s", k)
	}
	bit, err := op(x.bits, k)
	if err != nil {
		return nil, err
	}
	return e.flag(bit), nil
}

// ScalarGe implements engine.Engine.
func (e *RadixEngine) ScalarGe(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.compare(a, k, e.c.geConst)
}

// ScalarLt implements engine.Engine.
func (e *RadixEngine) ScalarLt(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.compare(a, k, func(x bitVec, k *big.Int) (*Ciphertext, error) {
		ge, err := e.c.geConst(x, k)
		if err != nil {
			return nil, err
		}
		return e.c.eval.NOT(ge), nil
	})
}

// ScalarEq implements engine.Engine.
func (e *RadixEngine) ScalarEq(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.compare(a, k, e.c.eqConst)
}

// ScalarNe implements engine.Engine.
func (e *RadixEngine) ScalarNe(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	return e.compare(a, k, func(x bitVec, k *big.Int) (*Ciphertext, error) {
		eq, err := e.c.eqConst(x, k)
		if err != nil {
			return nil, err
		}
		return e.c.eval.NOT(eq), nil
	})
}

// ShiftLeft implements engine.Engine.
func (e *RadixEngine) ShiftLeft(a engine.Ciphertext, n int) (engine.Ciphertext, error) {
	x, err := radix(a)
	if err != nil {
		return nil, err
	}
	return &RadixCiphertext{bits: e.c.shiftLeft(x.bits, n)}, nil
}

// ShiftRight implements engine.Engine.
func (e *RadixEngine) ShiftRight(a engine.Ciphertext, n int) (engine.Ciphertext, error) {
	x, err := radix(a)
	if err != nil {
		return nil, err
	}
	return &RadixCiphertext{bits: e.c.shiftRight(x.bits, n)}, nil
}

// MarshalCiphertext implements engine.Codec.
func (e *RadixEngine) MarshalCiphertext(ct engine.Ciphertext) ([]byte, error) {
	rc, err := radix(ct)
	if err != nil {
		return nil, err
	}
	return rc.MarshalBinary()
}

// UnmarshalCiphertext implements engine.Codec.
func (e *RadixEngine) UnmarshalCiphertext(data []byte) (engine.Ciphertext, error) {
	rc := new(RadixCiphertext)
	if err := rc.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return rc, nil
}

// RadixEncryptor encrypts integers bit by bit. It implements
// engine.Encrypter and is safe for concurrent use.
type RadixEncryptor struct {
	mu  sync.Mutex
	enc *Encryptor
}

// NewRadixEncryptor wraps a bit encryptor.
func NewRadixEncryptor(enc *Encryptor) *RadixEncryptor {
	return &RadixEncryptor{enc: enc}
}

// Encrypt implements engine.Encrypter.
func (re *RadixEncryptor) Encrypt(v *big.Int, blocks int) (engine.Ciphertext, error) {
	if blocks <= 0 {
		return nil, errors.Wrapf(engine.ErrWidth, "%d blocks", blocks)
	}
	re.mu.Lock()
	defer re.mu.Unlock()
	bits := make(bitVec, blocks*RadixBlockBits)
	for i := range bits {
		ct, err := re.enc.Encrypt(v.Bit(i) == 1)
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d", i)
		}
		bits[i] = ct
	}
	return &RadixCiphertext{bits: bits}, nil
}

// RadixDecryptor decrypts radix ciphertexts. It implements engine.Decrypter
// and is safe for concurrent use.
type RadixDecryptor struct {
	mu  sync.Mutex
	dec *Decryptor
}

// NewRadixDecryptor wraps a bit decryptor.
func NewRadixDecryptor(dec *Decryptor) *RadixDecryptor {
	return &RadixDecryptor{dec: dec}
}

// Decrypt implements engine.Decrypter.
func (rd *RadixDecryptor) Decrypt(ct engine.Ciphertext) (*big.Int, error) {
	rc, err := radix(ct)
	if err != nil {
		return nil, err
	}
	rd.mu.Lock()
	defer rd.mu.Unlock()
	v := new(big.Int)
	for i, bit := range rc.bits {
		if rd.dec.Decrypt(bit) {
			v.SetBit(v, i, 1)
		}
	}
	return v, nil
}
