// Copyright 2018 The go-ethereum Authors
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

package rawdb

import (
	"bytes"
	"encoding/binary"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// ReadCanonicalHash retrieves the hash assigned to a canonical block number.
// ReadCanonicalHash 检索分配给规范区块编号的哈希。
func ReadCanonicalHash(db ethdb.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(headerHashKey(number))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteCanonicalHash stores the hash assigned to a canonical block number.
func WriteCanonicalHash(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(headerHashKey(number), hash.Bytes()); err != nil {
		log.Crit("Failed to store number to hash mapping", "err", err)
	}
}

// DeleteCanonicalHash removes the number to hash canonical mapping.
func DeleteCanonicalHash(db ethdb.KeyValueWriter, number uint64) {
	if err := db.Delete(headerHashKey(number)); err != nil {
		log.Crit("Failed to delete number to hash mapping", "err", err)
	}
}

// ReadHeaderNumber returns the header number assigned to a hash.
// ReadHeaderNumber 返回分配给哈希的区块头编号。
func ReadHeaderNumber(db ethdb.KeyValueReader, hash common.Hash) *uint64 {
	data, _ := db.Get(headerNumberKey(hash))
	if len(data) != 8 {
		return nil
	}
	number := binary.BigEndian.Uint64(data)
	return &number
}

// ReadHeadHeaderHash retrieves the hash of the current canonical head header.
func ReadHeadHeaderHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headHeaderKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteHeadHeaderHash stores the hash of the current canonical head header.
func WriteHeadHeaderHash(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headHeaderKey, hash.Bytes()); err != nil {
		log.Crit("Failed to store last header's hash", "err", err)
	}
}

// ReadHeaderRLP retrieves a block header in its raw RLP database encoding.
func ReadHeaderRLP(db ethdb.KeyValueReader, hash common.Hash, number uint64) rlp.RawValue {
	data, _ := db.Get(headerKey(number, hash))
	return data
}

// HasHeader verifies the existence of a block header corresponding to the hash.
func HasHeader(db ethdb.KeyValueReader, hash common.Hash, number uint64) bool {
	has, err := db.Has(headerKey(number, hash))
	return err == nil && has
}

// ReadHeader retrieves the block header corresponding to the hash.
// ReadHeader 检索与哈希对应的区块头。
func ReadHeader(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Header {
	data := ReadHeaderRLP(db, hash, number)
	if len(data) == 0 {
		return nil
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		log.Error("Invalid block header RLP", "hash", hash, "err", err)
		return nil
	}
	return header
}

// WriteHeader stores a block header into the database and also stores the hash-
// to-number mapping.
// WriteHeader 将区块头存入数据库，并存储哈希到编号的映射。
func WriteHeader(db ethdb.KeyValueWriter, header *types.Header) {
	var (
		hash   = header.Hash()
		number = header.Number.Uint64()
	)
	key := headerNumberKey(hash)
	enc := encodeBlockNumber(number)
	if err := db.Put(key, enc); err != nil {
		log.Crit("Failed to store hash to number mapping", "err", err)
	}
	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		log.Crit("Failed to RLP encode header", "err", err)
	}
	key = headerKey(number, hash)
	if err := db.Put(key, data); err != nil {
		log.Crit("Failed to store header", "err", err)
	}
}

// ReadTd retrieves the accumulated per-algorithm work of a block.
// ReadTd 检索区块累计的每种算法的工作量。
func ReadTd(db ethdb.KeyValueReader, hash common.Hash, number uint64) *multipow.Threshold {
	data, _ := db.Get(headerTDKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	td, err := multipow.DecodeThreshold(data)
	if err != nil {
		log.Error("Invalid block total work", "hash", hash, "err", err)
		return nil
	}
	return &td
}

// WriteTd stores the accumulated per-algorithm work of a block.
func WriteTd(db ethdb.KeyValueWriter, hash common.Hash, number uint64, td multipow.Threshold) {
	if err := db.Put(headerTDKey(number, hash), multipow.EncodeThreshold(td)); err != nil {
		log.Crit("Failed to store block total work", "err", err)
	}
}

// ReadDifficultyState retrieves the difficulty state a block left behind, the
// one its children are verified against.
// ReadDifficultyState 检索区块留下的难度状态，即其子区块验证所依据的状态。
func ReadDifficultyState(db ethdb.KeyValueReader, config params.DifficultyConfig, hash common.Hash, number uint64) *multipow.DifficultyState {
	data, _ := db.Get(difficultyKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	state, err := multipow.DecodeDifficultyState(config, data)
	if err != nil {
		log.Error("Invalid difficulty state", "hash", hash, "err", err)
		return nil
	}
	return state
}

// WriteDifficultyState stores the difficulty state of a block.
func WriteDifficultyState(db ethdb.KeyValueWriter, hash common.Hash, number uint64, state *multipow.DifficultyState) {
	var buf bytes.Buffer
	if err := state.EncodeRLP(&buf); err != nil {
		log.Crit("Failed to RLP encode difficulty state", "err", err)
	}
	if err := db.Put(difficultyKey(number, hash), buf.Bytes()); err != nil {
		log.Crit("Failed to store difficulty state", "err", err)
	}
}
