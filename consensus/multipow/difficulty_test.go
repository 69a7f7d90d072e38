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
	"bytes"
	"testing"

	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDampAndClamp(t *testing.T) {
	assert.Equal(t, uint64(300_000), Damp(300_000, 300_000, 3))
	assert.Equal(t, uint64(200_001), Damp(3, 300_000, 3))
	assert.Equal(t, uint64(^uint64(0)/3), Damp(^uint64(0), 0, 3))
	assert.Equal(t, uint64(7), Damp(7, 100, 1))

	assert.Equal(t, uint64(150_000), Clamp(1, 300_000, 2))
	assert.Equal(t, uint64(600_000), Clamp(1_000_000, 300_000, 2))
	assert.Equal(t, uint64(400_000), Clamp(400_000, 300_000, 2))
	assert.Equal(t, ^uint64(0)-1, Clamp(^uint64(0)-1, ^uint64(0)/2, 4), "goal*factor must not wrap")
}

func TestAdjusterSteadyState(t *testing.T) {
	cfg := params.DefaultDifficultyConfig()
	a := NewAdjuster(Sha3, cfg)
	for i := range a.window {
		a.window[i] = &WindowEntry{Difficulty: uint256.NewInt(1_000_000), Timestamp: uint64(i) * 5000}
	}
	a.current.SetUint64(1_000_000)

	now := uint64(len(a.window)) * 5000
	for i := 0; i < 10; i++ {
		require.True(t, a.OnBlockFinalized(Sha3, now))
		assert.Equal(t, uint64(1_000_000), a.Current().Uint64(), "block %d", i)
		now += 5000
	}
}

func TestAdjusterEmptyWindow(t *testing.T) {
	a := NewAdjuster(Keccak, params.DefaultDifficultyConfig())
	assert.Equal(t, uint64(params.GenesisDifficulty), a.Current().Uint64())

	require.True(t, a.OnBlockFinalized(Keccak, 1_700_000_000_000))
	assert.Equal(t, uint64(4_000_000), a.Current().Uint64())

	window := a.Window()
	assert.Nil(t, window[0])
	require.NotNil(t, window[len(window)-1])
	assert.Equal(t, uint64(4_000_000), window[len(window)-1].Difficulty.Uint64())
}

func TestAdjusterIgnoresOtherAlgorithms(t *testing.T) {
	a := NewAdjuster(Sha3, params.DefaultDifficultyConfig())
	before := a.Window()
	assert.False(t, a.OnBlockFinalized(Keccak, 1))
	assert.False(t, a.OnBlockFinalized(Md5, 2))
	assert.Equal(t, before, a.Window())
	assert.Equal(t, uint64(params.GenesisDifficulty), a.Current().Uint64())
}

// simulate mines n blocks with a constant hash rate starting at time now, so
// the block time is proportional to the difficulty. It returns the timestamp
// of the last block.
func simulate(a *Adjuster, hashesPerMs uint64, now uint64, n int) uint64 {
	for i := 0; i < n; i++ {
		now += a.Current().Uint64() / hashesPerMs
		a.OnBlockFinalized(a.Algorithm(), now)
	}
	return now
}

func TestAdjusterConverges(t *testing.T) {
	// 200 hashes per millisecond at 5s blocks settles around 1,000,000.
	a := NewAdjuster(Sha3, params.DefaultDifficultyConfig())
	now := simulate(a, 200, 0, 1500)
	have := a.Current().Uint64()
	assert.InEpsilon(t, 1_000_000, have, 0.01)

	// The clock keeps running, a restart at zero would look like instant blocks.
	for i := 0; i < 10; i++ {
		now = simulate(a, 200, now, 100)
		assert.InEpsilon(t, have, a.Current().Uint64(), 0.001, "difficulty must hold once converged")
	}
}

func TestAdjusterBounds(t *testing.T) {
	cfg := params.DefaultDifficultyConfig()
	cfg.MaxDifficulty = uint256.NewInt(10_000_000)

	instant := NewAdjuster(Md5, cfg)
	for i := 0; i < 300; i++ {
		instant.OnBlockFinalized(Md5, 0)
		assert.False(t, instant.Current().Gt(cfg.MaxDifficulty))
	}
	assert.Equal(t, cfg.MaxDifficulty, instant.Current())

	slow := NewAdjuster(Md5, cfg)
	for i := uint64(1); i <= 1000; i++ {
		slow.OnBlockFinalized(Md5, i*1_000_000_000_000)
		assert.False(t, slow.Current().Lt(cfg.MinDifficulty))
	}
	assert.Equal(t, cfg.MinDifficulty, slow.Current())

	// Timestamps going backwards count as zero deltas.
	backwards := NewAdjuster(Md5, cfg)
	for i := uint64(300); i > 0; i-- {
		backwards.OnBlockFinalized(Md5, i)
	}
	assert.Equal(t, cfg.MaxDifficulty, backwards.Current())
}

func TestAdjusterSaturates(t *testing.T) {
	cfg := params.DefaultDifficultyConfig()
	cfg.MaxDifficulty = new(uint256.Int).SetAllOne()
	cfg.InitialDifficulty = new(uint256.Int).SetAllOne()

	a := NewAdjuster(Sha3, cfg)
	assert.NotPanics(t, func() {
		a.OnBlockFinalized(Sha3, ^uint64(0))
		a.OnBlockFinalized(Sha3, 0)
	})
	assert.Equal(t, cfg.MaxDifficulty, a.Current())
}

func TestDifficultyState(t *testing.T) {
	cfg := params.DefaultDifficultyConfig()
	state := NewDifficultyState(cfg)
	assert.Equal(t, NewThreshold(uint256.NewInt(params.GenesisDifficulty)), state.Threshold())

	child := state.Copy()
	for i := uint64(1); i <= 5; i++ {
		child.OnBlockFinalized(Sha3, i*1000)
	}
	assert.True(t, child.Current(Sha3).Gt(uint256.NewInt(params.GenesisDifficulty)), "fast sha3 blocks raise its difficulty")
	assert.Equal(t, uint64(params.GenesisDifficulty), child.Current(Keccak).Uint64())
	assert.Equal(t, uint64(params.GenesisDifficulty), state.Current(Sha3).Uint64(), "copy must not alias the parent")

	blob, err := rlp.EncodeToBytes(child)
	require.NoError(t, err)
	restored, err := DecodeDifficultyState(cfg, blob)
	require.NoError(t, err)
	assert.Equal(t, child.Threshold(), restored.Threshold())
	assert.Equal(t, child.Adjuster(Sha3).Window(), restored.Adjuster(Sha3).Window())

	// Both copies keep evolving identically.
	child.OnBlockFinalized(Sha3, 9000)
	restored.OnBlockFinalized(Sha3, 9000)
	again, err := rlp.EncodeToBytes(restored)
	require.NoError(t, err)
	want, _ := rlp.EncodeToBytes(child)
	assert.True(t, bytes.Equal(want, again))

	_, err = DecodeDifficultyState(cfg, []byte{0xc0})
	assert.ErrorIs(t, err, errStateShape)
}
