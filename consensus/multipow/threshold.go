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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Threshold holds one difficulty per supported algorithm. Every algorithm is
// retargeted independently, so chain difficulty is a vector and not a scalar.
// The same type accumulates the total work of a chain.
// Threshold 为每种支持的算法保存一个难度值。每种算法独立调整难度，因此链难度是一个向量而不是标量。
// 同一类型也用于累计链的总工作量。
type Threshold struct {
	Md5    uint256.Int
	Sha3   uint256.Int
	Keccak uint256.Int
}

// NewThreshold returns a threshold with the same difficulty for every algorithm.
func NewThreshold(difficulty *uint256.Int) Threshold {
	return Threshold{Md5: *difficulty, Sha3: *difficulty, Keccak: *difficulty}
}

// Get returns the component belonging to algo. Unknown algorithms yield nil.
// Get 返回属于 algo 的分量，未知算法返回 nil。
func (t *Threshold) Get(algo Algorithm) *uint256.Int {
	switch algo {
	case Md5:
		return &t.Md5
	case Sha3:
		return &t.Sha3
	case Keccak:
		return &t.Keccak
	}
	return nil
}

// Set overwrites the component belonging to algo.
func (t *Threshold) Set(algo Algorithm, value *uint256.Int) {
	if c := t.Get(algo); c != nil {
		c.Set(value)
	}
}

// Increment adds the value of a digest to the component of the algorithm that
// produced it. The addition saturates at 2^256-1 instead of wrapping.
// Increment 将摘要的值加到生成它的算法对应的分量上，加法在 2^256-1 处饱和而不是回绕。
func (t *Threshold) Increment(work TaggedDigest) {
	c := t.Get(work.Algorithm)
	if c == nil {
		return
	}
	value := new(uint256.Int).SetBytes32(work.Digest[:])
	if _, overflow := c.AddOverflow(c, value); overflow {
		c.SetAllOne()
	}
}

// Cmp compares two accumulated totals component by component in the order
// Md5, Sha3, Keccak and returns -1, 0 or +1. Fork choice uses it to pick the
// heavier chain.
// Cmp 按 Md5、Sha3、Keccak 的顺序逐个分量比较两个累计值，分叉选择用它挑选更重的链。
func (t *Threshold) Cmp(other *Threshold) int {
	for _, algo := range Algorithms {
		if c := t.Get(algo).Cmp(other.Get(algo)); c != 0 {
			return c
		}
	}
	return 0
}

// String implements fmt.Stringer.
func (t Threshold) String() string {
	return fmt.Sprintf("{md5: %s, sha3: %s, keccak: %s}", t.Md5.Dec(), t.Sha3.Dec(), t.Keccak.Dec())
}

// TaggedDigest is a digest together with the algorithm that computed it.
// Digests of different algorithms are never compared with each other.
// TaggedDigest 是摘要以及计算它的算法，不同算法的摘要之间永远不会进行比较。
type TaggedDigest struct {
	Algorithm Algorithm
	Digest    common.Hash
}

// String implements fmt.Stringer.
func (w TaggedDigest) String() string {
	return w.Algorithm.String() + ":" + w.Digest.Hex()
}

// Seal is the proof-of-work attached to a block.
// Seal 是附加在区块上的工作量证明。
type Seal struct {
	Difficulty Threshold    // Difficulty the work was computed against
	Work       TaggedDigest // Digest of the encoded Compute input
	Nonce      uint256.Int
}

// Compute is a not yet solved attempt at the puzzle. It is what actually gets
// hashed and is never persisted.
// Compute 是尚未求解的工作量证明尝试，它是实际被哈希的内容，从不持久化。
type Compute struct {
	Difficulty Threshold
	PreHash    common.Hash
	Nonce      uint256.Int
}
