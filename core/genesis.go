// Copyright 2014 The go-ethereum Authors
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

package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// BlockChainVersion is the version of the database layout written by this
// package.
const BlockChainVersion uint64 = 1

var errGenesisNoConfig = errors.New("genesis has no chain configuration")

// Genesis specifies the header fields and the chain configuration of the
// genesis block. Every algorithm starts out at the configured initial
// difficulty with an empty retarget window.
// Genesis 指定创世区块的区块头字段和链配置。每种算法都从配置的初始难度和空的调整窗口开始。
type Genesis struct {
	Config    *params.ChainConfig `json:"config"`
	Timestamp uint64              `json:"timestamp"` // milliseconds
	Coinbase  common.Address      `json:"coinbase"`
	ExtraData []byte              `json:"extraData"`
}

// DefaultGenesisBlock returns the genesis block of the public network.
// DefaultGenesisBlock 返回公共网络的创世区块。
func DefaultGenesisBlock() *Genesis {
	return &Genesis{
		Config:    params.DefaultChainConfig,
		Timestamp: 1_700_000_000_000,
		ExtraData: hexutil.MustDecode("0x6d756c7469706f77"),
	}
}

// DeveloperGenesisBlock returns the genesis block of a local development chain.
func DeveloperGenesisBlock() *Genesis {
	return &Genesis{Config: params.DevChainConfig}
}

// GenesisMismatchError is raised when trying to overwrite an existing
// genesis block with an incompatible one.
type GenesisMismatchError struct {
	Stored, New common.Hash
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("database contains incompatible genesis (have %x, new %x)", e.Stored, e.New)
}

// ToHeader returns the genesis header. Genesis carries neither pre-digest nor
// seal.
// ToHeader 返回创世区块头，创世区块既没有预摘要也没有封印。
func (g *Genesis) ToHeader() *types.Header {
	return &types.Header{
		Number:   new(big.Int),
		Time:     g.Timestamp,
		Coinbase: g.Coinbase,
		Extra:    common.CopyBytes(g.ExtraData),
	}
}

// Commit writes the genesis header together with its empty total work, its
// difficulty state and the chain configuration, and makes it the head.
// Commit 写入创世区块头及其空的总工作量、难度状态和链配置，并将其设为链头。
func (g *Genesis) Commit(db ethdb.KeyValueStore) (*types.Header, error) {
	if g.Config == nil {
		return nil, errGenesisNoConfig
	}
	if err := g.Config.CheckConfig(); err != nil {
		return nil, err
	}
	header := g.ToHeader()
	hash := header.Hash()

	batch := db.NewBatch()
	rawdb.WriteDatabaseVersion(batch, BlockChainVersion)
	rawdb.WriteHeader(batch, header)
	rawdb.WriteTd(batch, hash, 0, multipow.Threshold{})
	rawdb.WriteDifficultyState(batch, hash, 0, multipow.NewDifficultyState(g.Config.Difficulty))
	rawdb.WriteCanonicalHash(batch, hash, 0)
	rawdb.WriteHeadHeaderHash(batch, hash)
	rawdb.WriteChainConfig(batch, hash, g.Config)
	if err := batch.Write(); err != nil {
		return nil, err
	}
	return header, nil
}

// SetupGenesisBlock writes or updates the genesis block in db.
// The block that will be used is:
//
//	                     genesis == nil       genesis != nil
//	                  +------------------------------------------
//	db has no genesis |  main-net default  |  genesis
//	db has genesis    |  from DB           |  genesis (if compatible)
//
// The stored chain configuration will be updated if it is compatible, which
// means the difficulty parameters are untouched: persisted difficulty states
// depend on them.
// SetupGenesisBlock 在数据库中写入或更新创世区块。
func SetupGenesisBlock(db ethdb.KeyValueStore, genesis *Genesis) (*params.ChainConfig, common.Hash, error) {
	if genesis != nil && genesis.Config == nil {
		return nil, common.Hash{}, errGenesisNoConfig
	}
	stored := rawdb.ReadCanonicalHash(db, 0)
	if (stored == common.Hash{}) {
		if genesis == nil {
			log.Info("Writing default genesis block")
			genesis = DefaultGenesisBlock()
		} else {
			log.Info("Writing custom genesis block")
		}
		header, err := genesis.Commit(db)
		if err != nil {
			return nil, common.Hash{}, err
		}
		return genesis.Config, header.Hash(), nil
	}
	if genesis != nil {
		if hash := genesis.ToHeader().Hash(); hash != stored {
			return nil, common.Hash{}, &GenesisMismatchError{Stored: stored, New: hash}
		}
	}
	storedcfg := rawdb.ReadChainConfig(db, stored)
	if storedcfg == nil {
		log.Warn("Found genesis block without chain config")
		storedcfg = params.DefaultChainConfig
		if genesis != nil {
			storedcfg = genesis.Config
		}
		rawdb.WriteChainConfig(db, stored, storedcfg)
		return storedcfg, stored, nil
	}
	if genesis == nil {
		return storedcfg, stored, storedcfg.CheckConfig()
	}
	newcfg := genesis.Config
	if err := newcfg.CheckConfig(); err != nil {
		return nil, common.Hash{}, err
	}
	if !difficultyCompatible(storedcfg.Difficulty, newcfg.Difficulty) {
		return storedcfg, stored, fmt.Errorf("incompatible difficulty configuration: stored %+v, new %+v", storedcfg.Difficulty, newcfg.Difficulty)
	}
	rawdb.WriteChainConfig(db, stored, newcfg)
	return newcfg, stored, nil
}

func difficultyCompatible(a, b params.DifficultyConfig) bool {
	if a.TargetBlockTime != b.TargetBlockTime || a.DampFactor != b.DampFactor ||
		a.ClampFactor != b.ClampFactor || a.WindowSize != b.WindowSize {
		return false
	}
	return eqInt(a.InitialDifficulty, b.InitialDifficulty) &&
		eqInt(a.MinDifficulty, b.MinDifficulty) &&
		eqInt(a.MaxDifficulty, b.MaxDifficulty)
}

func eqInt(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
}
