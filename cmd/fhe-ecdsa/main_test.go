// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/internal/config"
)

func TestDemo(t *testing.T) {
	for _, balance := range []int64{50, 150} {
		require.NoError(t, runDemo(config.Default(), big.NewInt(balance), zap.NewNop()), "balance=%d", balance)
	}
}

func TestDemoCommand(t *testing.T) {
	cmd := newRootCmd()
	prof := filepath.Join(t.TempDir(), "mem.out")
	cmd.SetArgs([]string{"demo", "--balance", "7", "--window", "3", "--memprofile", prof})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, prof)

	cmd = newRootCmd()
	cmd.SetArgs([]string{"demo", "--engine", "gpu"})
	assert.ErrorIs(t, cmd.Execute(), config.ErrUnknownEngine)
}
