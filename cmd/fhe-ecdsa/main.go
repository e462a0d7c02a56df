// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhe-ecdsa runs the approval-and-sign demo locally and generates
// TFHE keys.
//
// Usage:
//
//	fhe-ecdsa keygen --keys ./keys --params PN10QP27
//	fhe-ecdsa demo --balance 50
//	fhe-ecdsa demo --engine tfhe --keys ./keys --curve toy211 --cpuprofile cpu.prof
package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/ecdsa"
	"github.com/luxfi/fhe-ecdsa/internal/backend"
	"github.com/luxfi/fhe-ecdsa/internal/config"
	"github.com/luxfi/fhe-ecdsa/internal/profile"
)

// Fixed demo key material. On curves with a smaller order both are reduced
// modulo n.
const (
	demoSecretKey = "32670510020758816978083085130507043184471273380659243275938904335757337482424"
	demoNonce     = "158972629851468960855479098042189567798917817837573660423710583832714848"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fhe-ecdsa",
		Short:         "Oblivious ECDSA signing over encrypted integers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("debug", false, "development logging at debug level")
	root.AddCommand(newDemoCmd(), newKeygenCmd())
	return root
}

func newKeygenCmd() *cobra.Command {
	var (
		dir    string
		params string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate TFHE secret, public and bootstrap keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			log, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := backend.Parameters(params)
			if err != nil {
				return err
			}
			start := time.Now()
			if err := backend.GenerateKeys(dir, p, log); err != nil {
				return err
			}
			log.Info("keys generated", zap.String("dir", dir), zap.Duration("elapsed", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keys", "keys", "output `directory`")
	cmd.Flags().StringVar(&params, "params", "PN10QP27", "TFHE parameter set")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var (
		balance uint64
		prof    profile.Config
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Review an encrypted balance and sign the encrypted decision",
	}
	flags := config.BindFlags(cmd.Flags())
	prof.RegisterFlags(cmd.Flags())
	cmd.Flags().Uint64Var(&balance, "balance", 50, "plaintext balance to encrypt and review")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log, err := newLogger(debug)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cfg, err := flags.Config()
		if err != nil {
			return err
		}
		p := profile.New(prof, log)
		if err := p.Start(); err != nil {
			return err
		}
		runErr := runDemo(cfg, new(big.Int).SetUint64(balance), log)
		if err := p.Stop(); err != nil && runErr == nil {
			runErr = err
		}
		if prof.Enabled() {
			log.Info("memory", profile.MemFields()...)
		}
		return runErr
	}
	return cmd
}

func runDemo(cfg config.Config, balance *big.Int, log *zap.Logger) error {
	b, err := backend.Open(cfg, log)
	if err != nil {
		return err
	}
	svc, err := backend.Service(cfg, b, nil, log)
	if err != nil {
		return err
	}
	params := svc.Signer().Params()
	n := params.N.Big()

	sk, _ := new(big.Int).SetString(demoSecretKey, 10)
	nonce, _ := new(big.Int).SetString(demoNonce, 10)
	sk.Mod(sk, n)
	nonce.Mod(nonce, n)
	pub, ok := params.PublicKey(sk)
	if !ok || nonce.Sign() == 0 {
		return errors.Wrapf(ecdsa.ErrNonceRange, "demo key material reduces to zero modulo %s", n)
	}

	encBalance, err := b.Encrypt(balance, params.Blocks)
	if err != nil {
		return errors.Wrap(err, "encrypt balance")
	}
	encKey, err := b.Encrypt(sk, params.Blocks)
	if err != nil {
		return errors.Wrap(err, "encrypt key")
	}
	encNonce, err := b.Encrypt(nonce, params.Blocks)
	if err != nil {
		return errors.Wrap(err, "encrypt nonce")
	}

	start := time.Now()
	decision, err := svc.ReviewApplication(encBalance)
	if err != nil {
		return err
	}
	log.Info("reviewed application", zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	encSig, err := svc.SignResult(encKey, encNonce, decision)
	if err != nil {
		return err
	}
	log.Info("signed decision", zap.String("curve", params.Name), zap.Duration("elapsed", time.Since(start)))

	approved, err := b.Decrypt(decision)
	if err != nil {
		return err
	}
	sig, err := ecdsa.Decrypt(b.Decrypter, encSig)
	if err != nil {
		return err
	}

	verifyErr := ecdsa.Verify(params, pub, approved, sig)
	if verifyErr == nil && params.Name == curve.Secp256k1().Name {
		verifyErr = ecdsa.VerifySecp256k1(pub, approved, sig)
	}

	fmt.Printf("curve:     %s\n", params.Name)
	fmt.Printf("balance:   %s (threshold %s)\n", balance, svc.Threshold())
	fmt.Printf("approved:  %s\n", approved)
	fmt.Printf("signature: r=%s s=%s\n", sig.R, sig.S)
	fmt.Printf("encoded:   %x\n", sig.Encode(params.N))
	if verifyErr != nil {
		fmt.Println("verify:    FAILED")
		return verifyErr
	}
	fmt.Println("verify:    ok")
	return nil
}
