// Copyright 2017 The go-ethereum Authors
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

// Package consensus defines the interfaces shared by the proof-of-work engines
// and the chain that drives them.
package consensus

import (
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
)

// ChainHeaderReader defines a small collection of methods needed to access the local
// blockchain during seal verification.
// ChainHeaderReader 定义了在封印验证期间访问本地区块链所需的一小部分方法。
type ChainHeaderReader interface {
	// Config retrieves the blockchain's chain configuration.
	// Config 获取区块链的链配置。
	Config() *params.ChainConfig

	// CurrentHeader retrieves the current header from the local chain.
	// CurrentHeader 从本地区块链中获取当前区块头。
	CurrentHeader() *types.Header

	// GetHeaderByHash retrieves a block header from the database by its hash.
	// GetHeaderByHash 通过哈希从数据库中检索一个区块头。
	GetHeaderByHash(hash common.Hash) *types.Header
}

// ChainReader extends ChainHeaderReader with the difficulty stored in chain
// state. D is the difficulty type of the engine, a per-algorithm vector for
// multi-algorithm proof-of-work.
// ChainReader 在 ChainHeaderReader 的基础上增加了链状态中保存的难度，D 是引擎的难度类型。
type ChainReader[D any] interface {
	ChainHeaderReader

	// GetDifficulty retrieves the difficulty a child of the given block has to meet.
	// GetDifficulty 获取给定区块的子区块需要满足的难度。
	GetDifficulty(hash common.Hash) (D, bool)
}

// PowAlgorithm is a proof-of-work algorithm that the import pipeline can
// verify blocks against.
// PowAlgorithm 是区块导入流程用来验证区块的工作量证明算法。
type PowAlgorithm[D any] interface {
	// Difficulty returns the difficulty a block built on top of parent has to meet.
	// Difficulty 返回构建在 parent 之上的区块需要满足的难度。
	Difficulty(chain ChainReader[D], parent common.Hash) (D, error)

	// Verify checks a raw seal against the pre-hash of its block. Invalid seals
	// are an expected outcome and reported as false, never as a panic.
	// Verify 根据区块的预哈希检查原始封印，无效的封印是预期结果，返回 false 而不会 panic。
	Verify(parent uint64, preHash common.Hash, preDigest []byte, seal []byte, difficulty D) bool
}
