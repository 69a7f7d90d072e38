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

package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Header represents a block header of the proof-of-work chain. The body and
// state of a block are owned by the surrounding ledger and only enter the
// header through its commitments.
// Header 表示工作量证明链的区块头。区块体和状态由外围账本维护，只通过承诺进入区块头。
type Header struct {
	ParentHash common.Hash    `json:"parentHash"`
	Number     *big.Int       `json:"number"`
	Time       uint64         `json:"timestamp"` // milliseconds since the unix epoch
	Coinbase   common.Address `json:"miner"`
	Extra      []byte         `json:"extraData"`

	// PreDigest announces the algorithm the block was mined with. It is part of
	// the pre-hash, so a miner cannot change its claim after sealing.
	// PreDigest 声明区块所用的挖矿算法，它属于预哈希的一部分，矿工在封印后无法更改。
	PreDigest []byte `json:"preDigest"`

	// Seal is the encoded proof-of-work, excluded from the pre-hash.
	Seal []byte `json:"seal" rlp:"optional"`
}

// sealless mirrors Header without the seal field.
type sealless struct {
	ParentHash common.Hash
	Number     *big.Int
	Time       uint64
	Coinbase   common.Address
	Extra      []byte
	PreDigest  []byte
}

// Hash returns the keccak256 hash of the header's RLP encoding, seal included.
// Hash 返回区块头（包含封印）RLP 编码的 keccak256 哈希。
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// PreHash returns the hash the proof-of-work is computed over: the header
// without its seal.
// PreHash 返回工作量证明所基于的哈希：不含封印的区块头哈希。
func (h *Header) PreHash() common.Hash {
	return rlpHash(&sealless{
		ParentHash: h.ParentHash,
		Number:     h.Number,
		Time:       h.Time,
		Coinbase:   h.Coinbase,
		Extra:      h.Extra,
		PreDigest:  h.PreDigest,
	})
}

// NumberU64 returns the block number as a uint64.
func (h *Header) NumberU64() uint64 {
	return h.Number.Uint64()
}

// Copy creates a deep copy of the header.
// Copy 创建区块头的深拷贝。
func (h *Header) Copy() *Header {
	cpy := *h
	if h.Number != nil {
		cpy.Number = new(big.Int).Set(h.Number)
	}
	cpy.Extra = common.CopyBytes(h.Extra)
	cpy.PreDigest = common.CopyBytes(h.PreDigest)
	cpy.Seal = common.CopyBytes(h.Seal)
	return &cpy
}

// WithSeal returns a copy of the header carrying the given seal.
func (h *Header) WithSeal(seal []byte) *Header {
	cpy := h.Copy()
	cpy.Seal = common.CopyBytes(seal)
	return cpy
}

// String implements fmt.Stringer.
func (h *Header) String() string {
	return fmt.Sprintf("Header(#%v %x parent=%x time=%d predigest=%s seal=%d bytes)",
		h.Number, h.Hash().Bytes()[:4], h.ParentHash.Bytes()[:4], h.Time, hexutil.Encode(h.PreDigest), len(h.Seal))
}
