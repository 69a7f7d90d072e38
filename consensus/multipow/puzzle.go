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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Compute hashes the encoded puzzle input with algo and wraps the digest into
// a seal. Identical inputs always yield identical seals.
// Compute 使用 algo 对编码后的谜题输入进行哈希，并将摘要封装为封印。
func (c *Compute) Compute(algo Algorithm) Seal {
	return Seal{
		Difficulty: c.Difficulty,
		Work:       TaggedDigest{Algorithm: algo, Digest: algo.Sum(c.Encode())},
		Nonce:      c.Nonce,
	}
}

// MeetsDifficulty reports whether digest satisfies target. Both are read as
// unsigned 256-bit integers, the digest big-endian, and the check passes iff
// digest*target does not overflow. Raising the target only ever turns passing
// digests into failing ones, and a zero target is met by every digest.
// MeetsDifficulty 报告摘要是否满足目标难度：两者都作为 256 位无符号整数，当且仅当 digest*target 不溢出时通过。
func MeetsDifficulty(digest common.Hash, target *uint256.Int) bool {
	value := new(uint256.Int).SetBytes32(digest[:])
	_, overflow := value.MulOverflow(value, target)
	return !overflow
}

// MultiMeetsDifficulty checks the work against the threshold component of the
// algorithm that produced it.
// MultiMeetsDifficulty 使用生成工作量的算法对应的阈值分量进行检查。
func MultiMeetsDifficulty(work TaggedDigest, threshold Threshold) bool {
	target := threshold.Get(work.Algorithm)
	if target == nil {
		return false
	}
	return MeetsDifficulty(work.Digest, target)
}
