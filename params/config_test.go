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

package params

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigForkOrder(t *testing.T) {
	tests := []struct {
		name  string
		forks ForkConfig
		ok    bool
	}{
		{"none", ForkConfig{}, true},
		{"ordered", ForkConfig{big.NewInt(1), big.NewInt(2), big.NewInt(3)}, true},
		{"same block", ForkConfig{big.NewInt(5), big.NewInt(5), big.NewInt(5)}, true},
		{"only first", ForkConfig{AddSecondaryAlgorithmsBlock: big.NewInt(7)}, true},
		{"skipped", ForkConfig{RemoveLegacyAlgorithmBlock: big.NewInt(7)}, false},
		{"split without removal", ForkConfig{AddSecondaryAlgorithmsBlock: big.NewInt(1), SplitBlock: big.NewInt(9)}, false},
		{"reversed", ForkConfig{big.NewInt(10), big.NewInt(5), nil}, false},
		{"negative", ForkConfig{AddSecondaryAlgorithmsBlock: big.NewInt(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ChainConfig{Forks: tt.forks, Difficulty: DefaultDifficultyConfig()}
			err := cfg.CheckConfigForkOrder()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestManualForksIgnoreConfiguredHeights(t *testing.T) {
	cfg := &ChainConfig{
		Forks:       ForkConfig{RemoveLegacyAlgorithmBlock: big.NewInt(7)}, // invalid, but ignored
		ManualForks: true,
		Difficulty:  DefaultDifficultyConfig(),
	}
	require.NoError(t, cfg.CheckConfig())

	add := new(big.Int).SetUint64(ManualAddSecondaryAlgorithmsBlock)
	assert.False(t, cfg.IsSecondaryAlgorithms(new(big.Int).Sub(add, big.NewInt(1))))
	assert.True(t, cfg.IsSecondaryAlgorithms(add))
	assert.False(t, cfg.IsSplit(big.NewInt(1<<40)))
}

func TestCheckDifficultyConfig(t *testing.T) {
	good := DefaultDifficultyConfig()
	cfg := &ChainConfig{Difficulty: good}
	require.NoError(t, cfg.CheckDifficultyConfig())

	bad := good
	bad.DampFactor = 0
	cfg.Difficulty = bad
	assert.ErrorIs(t, cfg.CheckDifficultyConfig(), errZeroDampFactor)

	bad = good
	bad.MinDifficulty = uint256.NewInt(10)
	bad.MaxDifficulty = uint256.NewInt(9)
	cfg.Difficulty = bad
	assert.ErrorIs(t, cfg.CheckDifficultyConfig(), errDifficultyBounds)

	bad = good
	bad.InitialDifficulty = nil
	cfg.Difficulty = bad
	assert.ErrorIs(t, cfg.CheckDifficultyConfig(), errMissingDifficulty)
}

func TestDefaultConfigsAreValid(t *testing.T) {
	assert.NoError(t, DefaultChainConfig.CheckConfig())
	assert.NoError(t, DevChainConfig.CheckConfig())
	assert.Equal(t, "340282366920938463463374607431768211455", MaximumDifficulty.Dec())
}

func TestParsePosition(t *testing.T) {
	for input, want := range map[string]Position{
		"allow-all":     AllowAll,
		"":              AllowAll,
		"Only-Sha3":     OnlySha3,
		"keccak":        OnlyKeccak,
		"follow-mining": FollowMining,
	} {
		have, err := ParsePosition(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, have, input)
	}
	_, err := ParsePosition("md5-forever")
	assert.Error(t, err)

	var p Position
	require.NoError(t, p.UnmarshalText([]byte("only-keccak")))
	assert.Equal(t, OnlyKeccak, p)
	assert.False(t, FollowMining.IsConcrete())
	assert.True(t, OnlySha3.IsConcrete())
}

func TestResolvePosition(t *testing.T) {
	pos, err := ResolvePosition(FollowMining, "sha3")
	require.NoError(t, err)
	assert.Equal(t, OnlySha3, pos)

	pos, err = ResolvePosition(FollowMining, "Keccak")
	require.NoError(t, err)
	assert.Equal(t, OnlyKeccak, pos)

	pos, err = ResolvePosition(FollowMining, "md5")
	require.NoError(t, err)
	assert.Equal(t, AllowAll, pos, "md5 miners take no side")

	_, err = ResolvePosition(FollowMining, "scrypt")
	assert.Error(t, err)

	// Concrete positions ignore the mining algorithm.
	pos, err = ResolvePosition(OnlyKeccak, "sha3")
	require.NoError(t, err)
	assert.Equal(t, OnlyKeccak, pos)
}
