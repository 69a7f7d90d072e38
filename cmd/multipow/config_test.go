// Copyright 2024 The go-multipow Authors
// This file is part of the go-multipow library.
//
// The go-multipow library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-multipow library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-multipow library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/academy-pow/go-multipow/miner"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := multipowConfig{
		Node:    defaultNodeConfig(),
		Miner:   miner.DefaultConfig,
		Metrics: metrics.DefaultConfig,
	}
	cfg.Node.DataDir = "/var/lib/multipow"
	cfg.Consensus.Position = params.OnlyKeccak
	cfg.Miner.Algorithm = multipow.Keccak
	cfg.Miner.Coinbase = common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	cfg.Miner.Recommit = 3 * time.Second

	out, err := tomlSettings.Marshal(&cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `Position = "only-keccak"`)
	assert.Contains(t, string(out), `Algorithm = "keccak"`)

	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, out, 0644))

	var loaded multipowConfig
	require.NoError(t, loadConfig(file, &loaded))
	assert.Equal(t, cfg.Node.DataDir, loaded.Node.DataDir)
	assert.Equal(t, params.OnlyKeccak, loaded.Consensus.Position)
	assert.Equal(t, multipow.Keccak, loaded.Miner.Algorithm)
	assert.Equal(t, cfg.Miner.Coinbase, loaded.Miner.Coinbase)
	assert.Equal(t, cfg.Miner.Recommit, loaded.Miner.Recommit)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Miner]\nHashPower = 7\n"), 0644))

	var cfg multipowConfig
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HashPower")
}

func TestLoadConfigRejectsUnknownPosition(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Consensus]\nPosition = \"md5-forever\"\n"), 0644))

	var cfg multipowConfig
	assert.Error(t, loadConfig(file, &cfg))
}

func TestMakeExtraData(t *testing.T) {
	extra := makeExtraData(nil)
	assert.NotEmpty(t, extra)
	assert.LessOrEqual(t, len(extra), miner.MaximumExtraDataSize)

	assert.Equal(t, []byte("custom"), makeExtraData([]byte("custom")))
	assert.Nil(t, makeExtraData(make([]byte, miner.MaximumExtraDataSize+1)))
}

func TestSearchSealVerifies(t *testing.T) {
	var (
		preHash    = common.HexToHash("0x42")
		difficulty = multipow.NewThreshold(uint256.NewInt(1000))
	)
	compute := multipow.Compute{Difficulty: difficulty, PreHash: preHash}
	seal, hashes, err := searchSeal(context.Background(), compute, multipow.Keccak, 0)
	require.NoError(t, err)
	assert.NotZero(t, hashes)

	policy, err := multipow.NewForkPolicy(params.DevChainConfig, params.AllowAll)
	require.NoError(t, err)
	engine := multipow.New(policy)
	assert.NoError(t, engine.CheckSeal(0, preHash, nil, seal.Encode(), difficulty))
}

func TestSearchSealLimits(t *testing.T) {
	compute := multipow.Compute{
		Difficulty: multipow.NewThreshold(new(uint256.Int).SetAllOne()),
		PreHash:    common.HexToHash("0x42"),
	}
	_, hashes, err := searchSeal(context.Background(), compute, multipow.Sha3, 10)
	assert.ErrorIs(t, err, errSearchExhausted)
	assert.Equal(t, uint64(10), hashes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = searchSeal(ctx, compute, multipow.Sha3, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
