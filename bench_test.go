// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/luxfi/fhe-ecdsa/engine"
)

func BenchmarkParameters(b *testing.B) {
	for name, lit := range map[string]ParametersLiteral{"PN10QP27": PN10QP27, "PN11QP54": PN11QP54} {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := NewParametersFromLiteral(lit); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkKeyGeneration(b *testing.B) {
	params, err := NewParametersFromLiteral(PN10QP27)
	if err != nil {
		b.Fatal(err)
	}
	kg := NewKeyGenerator(params)
	sk := kg.GenSecretKey()

	b.Run("PublicKey", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			kg.GenPublicKey(sk)
		}
	})
	b.Run("BootstrapKey", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			kg.GenBootstrapKey(sk)
		}
	})
}

func benchKit(b *testing.B) (*Encryptor, *Evaluator, *RadixEngine, *RadixEncryptor) {
	params, err := NewParametersFromLiteral(PN10QP27)
	if err != nil {
		b.Fatal(err)
	}
	kg := NewKeyGenerator(params)
	sk := kg.GenSecretKey()
	bsk := kg.GenBootstrapKey(sk)
	enc := NewEncryptor(params, sk)
	return enc, NewEvaluator(params, bsk), NewRadixEngine(params, bsk), NewRadixEncryptor(enc)
}

func BenchmarkGates(b *testing.B) {
	enc, eval, _, _ := benchKit(b)
	x, _ := enc.Encrypt(true)
	y, _ := enc.Encrypt(false)
	z, _ := enc.Encrypt(true)

	for name, gate := range map[string]func() (*Ciphertext, error){
		"AND":      func() (*Ciphertext, error) { return eval.AND(x, y) },
		"XOR":      func() (*Ciphertext, error) { return eval.XOR(x, y) },
		"MAJORITY": func() (*Ciphertext, error) { return eval.MAJORITY(x, y, z) },
		"MUX":      func() (*Ciphertext, error) { return eval.MUX(x, y, z) },
	} {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := gate(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRadix(b *testing.B) {
	_, _, e, renc := benchKit(b)
	for _, blocks := range []int{2, 4} {
		x, err := renc.Encrypt(big.NewInt(11), blocks)
		if err != nil {
			b.Fatal(err)
		}
		y, err := renc.Encrypt(big.NewInt(6), blocks)
		if err != nil {
			b.Fatal(err)
		}
		ops := map[string]func() (engine.Ciphertext, error){
			"Add":      func() (engine.Ciphertext, error) { return e.Add(x, y) },
			"Mul":      func() (engine.Ciphertext, error) { return e.Mul(x, y) },
			"ScalarLt": func() (engine.Ciphertext, error) { return e.ScalarLt(x, big.NewInt(100)) },
		}
		for name, op := range ops {
			b.Run(fmt.Sprintf("%s/%dblocks", name, blocks), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := op(); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkSerialization(b *testing.B) {
	_, _, e, renc := benchKit(b)
	ct, err := renc.Encrypt(big.NewInt(3), 4)
	if err != nil {
		b.Fatal(err)
	}
	data, err := e.MarshalCiphertext(ct)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("Marshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := e.MarshalCiphertext(ct); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("Unmarshal", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			if _, err := e.UnmarshalCiphertext(data); err != nil {
				b.Fatal(err)
			}
		}
	})
}
