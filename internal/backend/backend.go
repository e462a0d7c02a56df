// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package backend opens the homomorphic engine named by the configuration
// and manages TFHE key files.
package backend

import (
	"encoding"
	"math/big"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	fhe "github.com/luxfi/fhe-ecdsa"
	"github.com/luxfi/fhe-ecdsa/approval"
	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/ecdsa"
	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/engine/plain"
	"github.com/luxfi/fhe-ecdsa/field"
	"github.com/luxfi/fhe-ecdsa/internal/config"
)

// Key file names inside the key directory.
const (
	SecretKeyFile    = "secret.key"
	PublicKeyFile    = "public.key"
	BootstrapKeyFile = "bootstrap.key"
)

// ErrNoKey is returned when an operation needs a key the backend lacks.
var ErrNoKey = errors.New("backend: key not available")

// Backend bundles an engine with what the process holds of its keys.
// Evaluation needs only Engine; Encrypter and Decrypter may be nil.
type Backend struct {
	Engine    engine.Engine
	Codec     engine.Codec
	Encrypter engine.Encrypter
	Decrypter engine.Decrypter
}

// Encrypt encrypts v, or fails with ErrNoKey when no encryption key was
// loaded.
func (b *Backend) Encrypt(v *big.Int, blocks int) (engine.Ciphertext, error) {
	if b.Encrypter == nil {
		return nil, errors.Wrap(ErrNoKey, "encrypt")
	}
	return b.Encrypter.Encrypt(v, blocks)
}

// Decrypt decrypts ct, or fails with ErrNoKey without the secret key.
func (b *Backend) Decrypt(ct engine.Ciphertext) (*big.Int, error) {
	if b.Decrypter == nil {
		return nil, errors.Wrap(ErrNoKey, "decrypt")
	}
	return b.Decrypter.Decrypt(ct)
}

// Open builds the backend for cfg. The TFHE engine reads its keys from
// cfg.KeyDir: the bootstrap key is required, the secret key enables
// encryption and decryption, the public key alone enables encryption.
func Open(cfg config.Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Engine {
	case config.EnginePlain:
		e := plain.New(cfg.BlockBits)
		log.Warn("using the cleartext engine; values are not encrypted")
		return &Backend{Engine: e, Codec: e, Encrypter: e, Decrypter: e}, nil
	case config.EngineTFHE:
		return openTFHE(cfg, log)
	}
	return nil, errors.Wrapf(config.ErrUnknownEngine, "%q", cfg.Engine)
}

func openTFHE(cfg config.Config, log *zap.Logger) (*Backend, error) {
	params, err := Parameters(cfg.Params)
	if err != nil {
		return nil, err
	}

	bsk := new(fhe.BootstrapKey)
	if err := readKey(cfg.KeyDir, BootstrapKeyFile, bsk, log); err != nil {
		return nil, err
	}
	eng := fhe.NewRadixEngine(params, bsk, fhe.WithParallelism(cfg.Parallelism))
	log.Info("tfhe engine ready", zap.Int("parallelism", eng.Evaluator().Parallelism()))
	b := &Backend{Engine: eng, Codec: eng}

	sk := new(fhe.SecretKey)
	switch err := readKey(cfg.KeyDir, SecretKeyFile, sk, log); {
	case err == nil:
		b.Encrypter = fhe.NewRadixEncryptor(fhe.NewEncryptor(params, sk))
		b.Decrypter = fhe.NewRadixDecryptor(fhe.NewDecryptor(params, sk))
		return b, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	pk := new(fhe.PublicKey)
	switch err := readKey(cfg.KeyDir, PublicKeyFile, pk, log); {
	case err == nil:
		b.Encrypter = fhe.NewRadixEncryptor(fhe.NewPublicEncryptor(params, pk))
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	return b, nil
}

// Parameters resolves a named TFHE parameter set.
func Parameters(name string) (fhe.Parameters, error) {
	lit, err := fhe.ParametersByName(name)
	if err != nil {
		return fhe.Parameters{}, err
	}
	return fhe.NewParametersFromLiteral(lit)
}

// GenerateKeys writes a fresh secret, public and bootstrap key to dir.
// The secret key file is readable by the owner only.
func GenerateKeys(dir string, params fhe.Parameters, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create key dir")
	}
	kgen := fhe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPair()
	bsk := kgen.GenBootstrapKey(sk)

	for _, k := range []struct {
		name string
		key  encoding.BinaryMarshaler
		perm os.FileMode
	}{
		{SecretKeyFile, sk, 0o600},
		{PublicKeyFile, pk, 0o644},
		{BootstrapKeyFile, bsk, 0o644},
	} {
		data, err := k.key.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "marshal %s", k.name)
		}
		path := filepath.Join(dir, k.name)
		if err := os.WriteFile(path, data, k.perm); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
		log.Info("wrote key", zap.String("path", path), zap.String("size", humanize.IBytes(uint64(len(data)))))
	}
	return nil
}

func readKey(dir, name string, key encoding.BinaryUnmarshaler, log *zap.Logger) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := key.UnmarshalBinary(data); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	log.Info("loaded key", zap.String("path", path), zap.String("size", humanize.IBytes(uint64(len(data)))))
	return nil
}

// Service builds the approval service for cfg on top of b. obs may be nil.
func Service(cfg config.Config, b *Backend, obs field.Observer, log *zap.Logger) (*approval.Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	params, err := curve.ByName(cfg.Curve)
	if err != nil {
		return nil, err
	}
	opts := []ecdsa.Option{ecdsa.WithWindow(cfg.Window), ecdsa.WithLogger(log)}
	if obs != nil {
		opts = append(opts, ecdsa.WithObserver(obs))
	}
	signer, err := ecdsa.NewSigner(b.Engine, params, opts...)
	if err != nil {
		return nil, err
	}
	return approval.New(signer, approval.WithThreshold(cfg.Threshold), approval.WithLogger(log)), nil
}
