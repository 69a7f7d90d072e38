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

package core

import (
	"math/big"
	"testing"

	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupGenesisBlock(t *testing.T) {
	db := rawdb.NewMemoryDatabase()

	// An empty database receives the default genesis.
	config, hash, err := SetupGenesisBlock(db, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGenesisBlock().ToHeader().Hash(), hash)
	assert.Equal(t, params.DefaultChainConfig, config)
	assert.Equal(t, BlockChainVersion, *rawdb.ReadDatabaseVersion(db))
	assert.Equal(t, hash, rawdb.ReadHeadHeaderHash(db))

	// Later runs load it back.
	config, stored, err := SetupGenesisBlock(db, nil)
	require.NoError(t, err)
	assert.Equal(t, hash, stored)
	assert.Equal(t, params.DefaultChainConfig.Forks, config.Forks)

	// A different genesis is refused.
	_, _, err = SetupGenesisBlock(db, DeveloperGenesisBlock())
	var mismatch *GenesisMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, hash, mismatch.Stored)
}

func TestSetupGenesisBlockConfigUpdate(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	_, hash, err := SetupGenesisBlock(db, DefaultGenesisBlock())
	require.NoError(t, err)

	// Rescheduling forks is allowed.
	rescheduled := DefaultGenesisBlock()
	cfg := *params.DefaultChainConfig
	cfg.Forks.SplitBlock = big.NewInt(90_000)
	rescheduled.Config = &cfg
	config, _, err := SetupGenesisBlock(db, rescheduled)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), config.Forks.SplitBlock.Int64())
	assert.Equal(t, int64(90_000), rawdb.ReadChainConfig(db, hash).Forks.SplitBlock.Int64())

	// Changing the retarget parameters would invalidate stored states.
	retargeted := DefaultGenesisBlock()
	cfg2 := *params.DefaultChainConfig
	cfg2.Difficulty.InitialDifficulty = uint256.NewInt(1)
	retargeted.Config = &cfg2
	_, _, err = SetupGenesisBlock(db, retargeted)
	assert.Error(t, err)

	// So is a broken fork order.
	broken := DefaultGenesisBlock()
	cfg3 := *params.DefaultChainConfig
	cfg3.Forks.AddSecondaryAlgorithmsBlock = nil
	broken.Config = &cfg3
	_, _, err = SetupGenesisBlock(db, broken)
	assert.Error(t, err)
}

func TestGenesisCommitRejectsBadConfig(t *testing.T) {
	_, err := (&Genesis{}).Commit(rawdb.NewMemoryDatabase())
	assert.ErrorIs(t, err, errGenesisNoConfig)

	cfg := *params.DevChainConfig
	cfg.Difficulty.DampFactor = 0
	_, err = (&Genesis{Config: &cfg}).Commit(rawdb.NewMemoryDatabase())
	assert.Error(t, err)
}

func TestGenesisHeader(t *testing.T) {
	header := DeveloperGenesisBlock().ToHeader()
	assert.Equal(t, uint64(0), header.NumberU64())
	assert.Nil(t, header.PreDigest)
	assert.Nil(t, header.Seal)
	assert.NotEqual(t, header.Hash(), DefaultGenesisBlock().ToHeader().Hash())
}
