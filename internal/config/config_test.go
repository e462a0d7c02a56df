// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhe-ecdsa/curve"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "toy211", cfg.Curve)
	assert.Equal(t, EnginePlain, cfg.Engine)
	assert.Equal(t, 6, cfg.Window)
	assert.Equal(t, uint64(100), cfg.Threshold)
}

func TestLoad(t *testing.T) {
	yml := writeFile(t, "c.yaml", `
curve: secp256k1
window: 4
redis:
  addr: redis:6379
  queue: sign
storage:
  kind: file
  path: /var/lib/fhe
`)
	cfg, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", cfg.Curve)
	assert.Equal(t, 4, cfg.Window)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "sign", cfg.Redis.Queue)
	assert.Equal(t, "file", cfg.Storage.Kind)
	assert.Equal(t, uint64(100), cfg.Threshold, "unset keys keep defaults")

	tml := writeFile(t, "c.toml", `
engine = "tfhe"
threshold = 250
workers = 2

[storage]
capacity = "1GiB"
`)
	cfg, err = Load(tml)
	require.NoError(t, err)
	assert.Equal(t, EngineTFHE, cfg.Engine)
	assert.Equal(t, uint64(250), cfg.Threshold)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "1GiB", cfg.Storage.Capacity)
	assert.Equal(t, "memory", cfg.Storage.Kind)

	_, err = Load(writeFile(t, "c.json", "{}"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "c.yaml", "window: 3\nthreshold: 7\n")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--threshold", "42"}))

	cfg, err := flags.Config()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Window)
	assert.Equal(t, uint64(42), cfg.Threshold)
}

func TestFlagsWithoutFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--curve", "secp256k1", "--workers", "8", "--parallelism", "3"}))
	cfg, err := flags.Config()
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", cfg.Curve)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 3, cfg.Parallelism)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		target error
	}{
		"engine": {func(c *Config) { c.Engine = "gpu" }, ErrUnknownEngine},
		"curve":  {func(c *Config) { c.Curve = "p256" }, curve.ErrUnknownCurve},
		"window": {func(c *Config) { c.Window = 0 }, curve.ErrWindow},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.target)
		})
	}

	cfg := Default()
	cfg.Engine = EngineTFHE
	cfg.BlockBits = 4
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Parallelism = -1
	assert.Error(t, cfg.Validate())
}
