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

// Package miner implements the proof-of-work mining loop on top of the header
// chain.
package miner

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

// Backend wraps all methods required for mining.
// Backend 封装了挖矿所需的所有方法。
type Backend interface {
	// Metadata returns the template to seal on top of the current head. Polls
	// with an unchanged head and configuration yield the same pre-hash.
	Metadata(coinbase common.Address, algo multipow.Algorithm, extra []byte) (*core.MiningMetadata, error)

	// SubmitSeal attaches the seal to the template and imports the block.
	SubmitSeal(template *types.Header, seal []byte) error

	SubscribeChainHeadEvent(ch chan<- core.ChainHeadEvent) event.Subscription
}

// Config is the configuration parameters of mining.
type Config struct {
	Coinbase    common.Address     // Address credited in mined headers
	ExtraData   hexutil.Bytes      `toml:",omitempty"` // Block extra data set by the miner
	Algorithm   multipow.Algorithm // Hash algorithm to mine with, md5 is not allowed
	Threads     int                // Number of search threads, 0 picks one per CPU
	Recommit    time.Duration      // The time interval for miner to re-create mining work.
	InstantSeal bool               `toml:",omitempty"` // Produce seal-less blocks every Recommit, development only
}

// DefaultConfig contains default settings for miner.
var DefaultConfig = Config{
	Algorithm: multipow.Sha3,
	Threads:   1,
	Recommit:  2 * time.Second,
}

// MaximumExtraDataSize is the largest extra data a miner puts into headers.
const MaximumExtraDataSize = 32

var (
	errLegacyAlgorithm = errors.New("mining with md5 is not supported")
	errExtraTooLong    = fmt.Errorf("extra data exceeds %d bytes", MaximumExtraDataSize)
)

// minRecommit is the shortest recommit interval a user may configure.
const minRecommit = 10 * time.Millisecond

// sanitize checks the configuration and fills in defaults.
func (c Config) sanitize() (Config, error) {
	if !c.Algorithm.IsValid() {
		return c, fmt.Errorf("invalid mining algorithm %d", c.Algorithm)
	}
	if c.Algorithm == multipow.Md5 {
		return c, errLegacyAlgorithm
	}
	if len(c.ExtraData) > MaximumExtraDataSize {
		return c, errExtraTooLong
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.Recommit < minRecommit {
		log.Warn("Sanitizing miner recommit interval", "provided", c.Recommit, "updated", minRecommit)
		c.Recommit = minRecommit
	}
	return c, nil
}

// Miner creates blocks and searches for proof-of-work values.
// Miner 创建区块并搜索工作量证明值。
type Miner struct {
	worker *worker
}

// New creates a miner on top of the given backend. It does not start mining.
// New 在给定后端之上创建矿工，不会开始挖矿。
func New(backend Backend, config Config) (*Miner, error) {
	config, err := config.sanitize()
	if err != nil {
		return nil, err
	}
	return &Miner{worker: newWorker(config, backend)}, nil
}

// Start starts the mining threads. Calling it on a running miner is a no-op.
func (miner *Miner) Start() {
	miner.worker.start()
}

// Stop stops mining. In-flight searches are abandoned.
func (miner *Miner) Stop() {
	miner.worker.stop()
}

// Close terminates the miner and waits for all its goroutines.
// Close 终止矿工并等待其所有 goroutine 退出。
func (miner *Miner) Close() {
	miner.worker.close()
}

// Mining reports whether the miner is running.
func (miner *Miner) Mining() bool {
	return miner.worker.isRunning()
}

// SetThreads changes the number of search threads. Zero or less picks one
// thread per CPU. A running search is restarted with the new thread count.
// SetThreads 修改搜索线程的数量，小于等于零时每个 CPU 一个线程，正在进行的搜索会以新的线程数重新开始。
func (miner *Miner) SetThreads(threads int) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	miner.worker.setThreads(threads)
}

// Threads returns the number of search threads.
func (miner *Miner) Threads() int {
	return int(miner.worker.threads.Load())
}

// SetExtra sets the content used to initialize the block extra field.
func (miner *Miner) SetExtra(extra []byte) error {
	if len(extra) > MaximumExtraDataSize {
		return errExtraTooLong
	}
	miner.worker.setExtra(extra)
	return nil
}

// Hashrate returns the hashes per second over the last measurement period.
// Hashrate 返回最近一个测量周期内每秒的哈希次数。
func (miner *Miner) Hashrate() float64 {
	return miner.worker.hashrate()
}
