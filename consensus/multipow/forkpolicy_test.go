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

package multipow

import (
	"math/big"
	"testing"

	"github.com/academy-pow/go-multipow/params"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChainConfig(add, remove, split int64) *params.ChainConfig {
	return &params.ChainConfig{
		Forks: params.ForkConfig{
			AddSecondaryAlgorithmsBlock: big.NewInt(add),
			RemoveLegacyAlgorithmBlock:  big.NewInt(remove),
			SplitBlock:                  big.NewInt(split),
		},
		Difficulty: params.DefaultDifficultyConfig(),
	}
}

func algoSet(algos ...Algorithm) mapset.Set[Algorithm] {
	return mapset.NewThreadUnsafeSet(algos...)
}

func TestAutomaticPolicyRegimes(t *testing.T) {
	config := testChainConfig(10, 20, 30)
	tests := []struct {
		parent   uint64
		position params.Position
		want     mapset.Set[Algorithm]
	}{
		{0, params.AllowAll, algoSet(Md5)},
		{9, params.AllowAll, algoSet(Md5)},
		{10, params.AllowAll, algoSet(Md5, Sha3, Keccak)},
		{19, params.OnlySha3, algoSet(Md5, Sha3, Keccak)},
		{20, params.AllowAll, algoSet(Sha3, Keccak)},
		{29, params.OnlyKeccak, algoSet(Sha3, Keccak)},
		{30, params.AllowAll, algoSet(Sha3, Keccak)},
		{30, params.OnlySha3, algoSet(Sha3)},
		{1 << 40, params.OnlyKeccak, algoSet(Keccak)},
	}
	for _, tt := range tests {
		policy, err := NewForkPolicy(config, tt.position)
		require.NoError(t, err)
		have := policy.AllowedAlgorithms(tt.parent)
		assert.True(t, tt.want.Equal(have), "parent %d %v: have %v, want %v", tt.parent, tt.position, have, tt.want)
		for _, algo := range Algorithms {
			assert.Equal(t, tt.want.Contains(algo), policy.IsAlgorithmAllowed(tt.parent, algo))
		}
		assert.False(t, policy.IsAlgorithmAllowed(tt.parent, Algorithm(3)))
	}
}

func TestAutomaticPolicyAddBoundary(t *testing.T) {
	policy, err := NewForkPolicy(params.DefaultChainConfig, params.AllowAll)
	require.NoError(t, err)

	add := params.DefaultChainConfig.Forks.AddSecondaryAlgorithmsBlock.Uint64()
	assert.True(t, algoSet(Md5).Equal(policy.AllowedAlgorithms(add-1)))
	assert.True(t, algoSet(Md5, Sha3, Keccak).Equal(policy.AllowedAlgorithms(add)))
}

func TestManualPolicy(t *testing.T) {
	// The configured heights and position are ignored in manual mode.
	config := testChainConfig(1, 2, 3)
	config.ManualForks = true
	policy, err := NewForkPolicy(config, params.OnlySha3)
	require.NoError(t, err)

	add, remove := params.ManualAddSecondaryAlgorithmsBlock, params.ManualRemoveLegacyAlgorithmBlock
	assert.True(t, algoSet(Md5).Equal(policy.AllowedAlgorithms(add-1)))
	assert.True(t, algoSet(Md5, Sha3, Keccak).Equal(policy.AllowedAlgorithms(add)))
	assert.True(t, algoSet(Md5, Sha3, Keccak).Equal(policy.AllowedAlgorithms(remove-1)))
	assert.True(t, algoSet(Sha3, Keccak).Equal(policy.AllowedAlgorithms(remove)))
	assert.True(t, algoSet(Sha3, Keccak).Equal(policy.AllowedAlgorithms(1<<50)), "manual mode never splits")
	assert.Equal(t, "manual", policy.String())
}

func TestForkPolicyRejectsUnresolvedPosition(t *testing.T) {
	_, err := NewForkPolicy(params.DefaultChainConfig, params.FollowMining)
	assert.ErrorIs(t, err, errUnresolvedPosition)

	_, err = NewForkPolicy(testChainConfig(10, 5, 30), params.AllowAll)
	assert.Error(t, err)
}

func TestUnscheduledForksKeepLegacy(t *testing.T) {
	policy, err := NewForkPolicy(&params.ChainConfig{Difficulty: params.DefaultDifficultyConfig()}, params.AllowAll)
	require.NoError(t, err)
	assert.True(t, algoSet(Md5).Equal(policy.AllowedAlgorithms(1<<62)))
}
