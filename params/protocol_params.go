// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/holiman/uint256"

// 难度调整算法（DAA）：每种哈希算法维护一个独立的滑动窗口，在每个最终确定的区块上重新计算难度，
// 使出块时间保持在目标值附近。阻尼（damp）和钳制（clamp）用于避免对短期噪声的过度反应。

const (
	TargetBlockTime uint64 = 5_000 // The block time in milliseconds that the retarget loop aims for.
	// TargetBlockTime 是难度调整循环力图维持的出块时间（毫秒）。
	DampFactor uint64 = 3 // Fraction of the distance towards the goal removed per retarget.
	// DampFactor 是阻尼因子，每次调整向目标线性移动的比例。
	ClampFactor uint64 = 2 // Adjusted window time is kept within goal/ClampFactor and goal*ClampFactor.
	// ClampFactor 是钳制因子，调整后的窗口时间被限制在目标值的该倍数范围内。
	DifficultyAdjustWindow = 60 // Number of past blocks the retarget loop averages over.
	// DifficultyAdjustWindow 是难度调整所参考的历史区块数量。

	GenesisDifficulty uint64 = 4_000_000 // Initial difficulty of every algorithm at genesis.
	// GenesisDifficulty 是创世时每种算法的初始难度。

	// MinimumDifficulty is the lowest difficulty the retarget loop may produce. It is
	// kept equal to DampFactor, lower values can get stuck under damping.
	// MinimumDifficulty 是难度调整可产生的最低难度，与 DampFactor 相同，更低的值会在阻尼下停滞。
	MinimumDifficulty = DampFactor
)

// Hard-coded fork heights used when the node runs with manual fork scheduling.
// These are not configurable on purpose: manual mode exists for networks that
// already agreed on the heights out of band.
// 手动分叉模式下使用的硬编码分叉高度。
const (
	ManualAddSecondaryAlgorithmsBlock uint64 = 100
	ManualRemoveLegacyAlgorithmBlock  uint64 = 200
)

// MaximumDifficulty is the highest difficulty the retarget loop may produce,
// 2^128-1 to match the u128 ceiling of the reference network.
// MaximumDifficulty 是难度调整可产生的最高难度（2^128-1）。
var MaximumDifficulty = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
