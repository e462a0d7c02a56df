// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// maxSerializedBits bounds the bit count read from an untrusted radix blob.
const maxSerializedBits = 1 << 16

func init() {
	// BRK is an interface; gob needs the concrete key-set types.
	gob.Register(blindrot.MemBlindRotationEvaluationKeySet{})
	gob.Register(&rlwe.MemEvaluationKeySet{})
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	data, err := gobEncode(sk.SK)
	return data, errors.Wrap(err, "serialize secret key")
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	sk.SK = new(rlwe.SecretKey)
	return errors.Wrap(gobDecode(data, sk.SK), "deserialize secret key")
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	data, err := gobEncode(pk.PK)
	return data, errors.Wrap(err, "serialize public key")
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	pk.PK = new(rlwe.PublicKey)
	return errors.Wrap(gobDecode(data, pk.PK), "deserialize public key")
}

// bootstrapKeyWire is the gob form of a BootstrapKey. Test polynomials use
// the fixed little-endian layout of writePoly.
type bootstrapKeyWire struct {
	BRK       blindrot.BlindRotationEvaluationKeySet
	TestPolys []byte
}

func (bsk *BootstrapKey) testPolys() []**ring.Poly {
	return []**ring.Poly{
		&bsk.TestPolyAND, &bsk.TestPolyOR, &bsk.TestPolyXOR,
		&bsk.TestPolyXNOR, &bsk.TestPolyMAJORITY,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (bsk *BootstrapKey) MarshalBinary() ([]byte, error) {
	var polys bytes.Buffer
	for i, p := range bsk.testPolys() {
		if *p == nil {
			return nil, errors.Newf("serialize bootstrap key: test polynomial %d missing", i)
		}
		if err := writePoly(&polys, *p); err != nil {
			return nil, errors.Wrapf(err, "serialize test polynomial %d", i)
		}
	}
	data, err := gobEncode(&bootstrapKeyWire{BRK: bsk.BRK, TestPolys: polys.Bytes()})
	return data, errors.Wrap(err, "serialize bootstrap key")
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (bsk *BootstrapKey) UnmarshalBinary(data []byte) error {
	var w bootstrapKeyWire
	if err := gobDecode(data, &w); err != nil {
		return errors.Wrap(err, "deserialize bootstrap key")
	}
	bsk.BRK = w.BRK
	r := bytes.NewReader(w.TestPolys)
	for i, p := range bsk.testPolys() {
		poly, err := readPoly(r)
		if err != nil {
			return errors.Wrapf(err, "deserialize test polynomial %d", i)
		}
		*p = poly
	}
	return nil
}

func writePoly(w io.Writer, poly *ring.Poly) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(poly.Coeffs))); err != nil {
		return err
	}
	for _, coeffs := range poly.Coeffs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(coeffs))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, coeffs); err != nil {
			return err
		}
	}
	return nil
}

func readPoly(r io.Reader) (*ring.Poly, error) {
	var levels uint32
	if err := binary.Read(r, binary.LittleEndian, &levels); err != nil {
		return nil, err
	}
	if levels == 0 || levels > 64 {
		return nil, errors.Newf("bad level count %d", levels)
	}
	coeffs := make([][]uint64, levels)
	for i := range coeffs {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		if n > 1<<17 {
			return nil, errors.Newf("bad coefficient count %d", n)
		}
		coeffs[i] = make([]uint64, n)
		if err := binary.Read(r, binary.LittleEndian, coeffs[i]); err != nil {
			return nil, err
		}
	}
	return &ring.Poly{Coeffs: coeffs}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	return gobEncode(ct.Ciphertext)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	ct.Ciphertext = new(rlwe.Ciphertext)
	return gobDecode(data, ct.Ciphertext)
}

// MarshalBinary encodes the bit count followed by each bit as a
// length-prefixed blob, all little-endian.
func (rc *RadixCiphertext) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(rc.bits))); err != nil {
		return nil, err
	}
	for i, bit := range rc.bits {
		data, err := bit.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "bit %d", i)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(data))); err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (rc *RadixCiphertext) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Wrap(err, "radix header")
	}
	if n == 0 || n%RadixBlockBits != 0 || n > maxSerializedBits {
		return errors.Newf("fhe: bad radix bit count %d", n)
	}
	rc.bits = make(bitVec, n)
	for i := range rc.bits {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return errors.Wrapf(err, "bit %d", i)
		}
		if int64(size) > int64(r.Len()) {
			return errors.Newf("fhe: bit %d truncated", i)
		}
		blob := make([]byte, size)
		if _, err := io.ReadFull(r, blob); err != nil {
			return errors.Wrapf(err, "bit %d", i)
		}
		rc.bits[i] = new(Ciphertext)
		if err := rc.bits[i].UnmarshalBinary(blob); err != nil {
			return errors.Wrapf(err, "bit %d", i)
		}
	}
	return nil
}
