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

// Package core implements the header chain the proof-of-work engine verifies
// and the miner builds on.
package core

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/academy-pow/go-multipow/consensus"
	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/internal/syncx"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

var (
	headHeaderGauge     = metrics.NewRegisteredGauge("chain_head_header", "Number of the current head header.")
	headerInsertCounter = metrics.NewRegisteredCounter("chain_headers_inserted_total", "Headers written to the database.")
	reorgCounter        = metrics.NewRegisteredCounter("chain_reorgs_total", "Head changes that did not extend the previous head.")
)

const (
	headerCacheLimit = 512
	tdCacheLimit     = 1024
	stateCacheLimit  = 256
)

var (
	// ErrNoGenesis is returned when there is no genesis block in the database.
	ErrNoGenesis = errors.New("genesis not found in chain")

	errChainStopped = errors.New("blockchain is stopped")
)

// Engine is the part of the proof-of-work engine the chain needs for import.
// Engine 是链导入区块时所需要的工作量证明引擎部分。
type Engine interface {
	consensus.PowAlgorithm[multipow.Threshold]

	// VerifyHeaders verifies a batch of headers concurrently, see
	// multipow.MultiPow.VerifyHeaders.
	VerifyHeaders(chain consensus.ChainReader[multipow.Threshold], headers []*types.Header) (chan<- struct{}, <-chan error)

	// ActualWork extracts the work a seal contributes to the total.
	ActualWork(seal []byte) (multipow.TaggedDigest, error)
}

// BlockChain represents the canonical header chain given a database with a
// genesis block. Import is serial: the difficulty state of a block is derived
// from the one of its parent when the block is finalized, and the block with
// the heaviest accumulated work becomes the head.
//
// BlockChain 表示给定带有创世区块的数据库的规范区块头链。导入是串行的：区块最终确定时，
// 其难度状态由父区块的难度状态推导而来，累计工作量最重的区块成为链头。
type BlockChain struct {
	config *params.ChainConfig
	db     ethdb.KeyValueStore
	engine Engine

	genesis       *types.Header
	currentHeader atomic.Pointer[types.Header]
	pending       atomic.Pointer[pendingTemplate] // last mining template handed out

	chainmu *syncx.ClosableMutex // chain write lock, closed on Stop
	stopped atomic.Bool

	headerCache *lru.Cache[common.Hash, *types.Header]
	tdCache     *lru.Cache[common.Hash, multipow.Threshold]
	stateCache  *lru.Cache[common.Hash, *multipow.DifficultyState]

	chainHeadFeed event.FeedOf[ChainHeadEvent]
	scope         event.SubscriptionScope
}

var _ consensus.ChainReader[multipow.Threshold] = (*BlockChain)(nil)

// NewBlockChain returns a fully initialised header chain using information
// available in the database. SetupGenesisBlock has to run first.
// NewBlockChain 使用数据库中的信息返回一个完全初始化的区块头链，必须先运行 SetupGenesisBlock。
func NewBlockChain(db ethdb.KeyValueStore, engine Engine) (*BlockChain, error) {
	genesisHash := rawdb.ReadCanonicalHash(db, 0)
	if genesisHash == (common.Hash{}) {
		return nil, ErrNoGenesis
	}
	config := rawdb.ReadChainConfig(db, genesisHash)
	if config == nil {
		return nil, fmt.Errorf("no chain config stored for genesis %x", genesisHash)
	}
	if err := config.CheckConfig(); err != nil {
		return nil, err
	}
	bc := &BlockChain{
		config:      config,
		db:          db,
		engine:      engine,
		chainmu:     syncx.NewClosableMutex(),
		headerCache: lru.NewCache[common.Hash, *types.Header](headerCacheLimit),
		tdCache:     lru.NewCache[common.Hash, multipow.Threshold](tdCacheLimit),
		stateCache:  lru.NewCache[common.Hash, *multipow.DifficultyState](stateCacheLimit),
	}
	bc.genesis = bc.GetHeaderByHash(genesisHash)
	if bc.genesis == nil {
		return nil, ErrNoGenesis
	}
	if err := bc.loadLastState(); err != nil {
		return nil, err
	}
	return bc, nil
}

// loadLastState loads the last known chain state from the database.
// loadLastState 从数据库加载最后已知的链状态。
func (bc *BlockChain) loadLastState() error {
	head := rawdb.ReadHeadHeaderHash(bc.db)
	header := bc.GetHeaderByHash(head)
	if header == nil {
		log.Warn("Head header missing, resetting chain", "hash", head)
		header = bc.genesis
		rawdb.WriteHeadHeaderHash(bc.db, header.Hash())
	}
	if bc.GetTd(header.Hash()) == nil || bc.getState(header.Hash()) == nil {
		return fmt.Errorf("%w: head %x", consensus.ErrUnknownDifficulty, header.Hash())
	}
	bc.currentHeader.Store(header)
	headHeaderGauge.Set(float64(header.NumberU64()))

	td := bc.GetTd(header.Hash())
	log.Info("Loaded most recent local header", "number", header.Number, "hash", header.Hash(),
		"age", common.PrettyAge(time.UnixMilli(int64(header.Time))), "td", td)
	return nil
}

// Config retrieves the chain's fork configuration.
func (bc *BlockChain) Config() *params.ChainConfig { return bc.config }

// Engine retrieves the proof-of-work engine of the chain.
func (bc *BlockChain) Engine() Engine { return bc.engine }

// Genesis retrieves the chain's genesis header.
func (bc *BlockChain) Genesis() *types.Header { return bc.genesis }

// CurrentHeader retrieves the current head header of the canonical chain.
// CurrentHeader 检索规范链的当前头区块头。
func (bc *BlockChain) CurrentHeader() *types.Header {
	return bc.currentHeader.Load()
}

// GetHeaderByHash retrieves a block header from the database by hash, caching
// it if found.
// GetHeaderByHash 通过哈希从数据库检索区块头，如果找到则缓存。
func (bc *BlockChain) GetHeaderByHash(hash common.Hash) *types.Header {
	if header, ok := bc.headerCache.Get(hash); ok {
		return header
	}
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	header := rawdb.ReadHeader(bc.db, hash, *number)
	if header == nil {
		return nil
	}
	bc.headerCache.Add(hash, header)
	return header
}

// GetHeaderByNumber retrieves the canonical header with the given number.
func (bc *BlockChain) GetHeaderByNumber(number uint64) *types.Header {
	hash := rawdb.ReadCanonicalHash(bc.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return bc.GetHeaderByHash(hash)
}

// HasHeader checks if a block header is present in the database or not.
func (bc *BlockChain) HasHeader(hash common.Hash, number uint64) bool {
	if bc.headerCache.Contains(hash) {
		return true
	}
	return rawdb.HasHeader(bc.db, hash, number)
}

// GetTd retrieves the accumulated per-algorithm work of a block, nil if the
// block is unknown.
// GetTd 检索区块累计的每种算法工作量，区块未知时返回 nil。
func (bc *BlockChain) GetTd(hash common.Hash) *multipow.Threshold {
	if td, ok := bc.tdCache.Get(hash); ok {
		return &td
	}
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	td := rawdb.ReadTd(bc.db, hash, *number)
	if td == nil {
		return nil
	}
	bc.tdCache.Add(hash, *td)
	return td
}

// getState retrieves the difficulty state a block left behind. The returned
// state is shared and must not be modified.
func (bc *BlockChain) getState(hash common.Hash) *multipow.DifficultyState {
	if state, ok := bc.stateCache.Get(hash); ok {
		return state
	}
	number := rawdb.ReadHeaderNumber(bc.db, hash)
	if number == nil {
		return nil
	}
	state := rawdb.ReadDifficultyState(bc.db, bc.config.Difficulty, hash, *number)
	if state == nil {
		return nil
	}
	bc.stateCache.Add(hash, state)
	return state
}

// GetDifficulty returns the thresholds children of the given block have to
// meet.
// GetDifficulty 返回给定区块的子区块需要满足的难度阈值。
func (bc *BlockChain) GetDifficulty(hash common.Hash) (multipow.Threshold, bool) {
	state := bc.getState(hash)
	if state == nil {
		return multipow.Threshold{}, false
	}
	return state.Threshold(), true
}

// DifficultyWindow returns a copy of the retarget window of algo as left
// behind by the given block.
func (bc *BlockChain) DifficultyWindow(hash common.Hash, algo multipow.Algorithm) []*multipow.WindowEntry {
	state := bc.getState(hash)
	if state == nil || state.Adjuster(algo) == nil {
		return nil
	}
	return state.Adjuster(algo).Window()
}

// CurrentDifficulty returns the difficulty of algo a child of the current head
// has to meet.
// CurrentDifficulty 返回当前链头的子区块对 algo 需要满足的难度。
func (bc *BlockChain) CurrentDifficulty(algo multipow.Algorithm) *uint256.Int {
	state := bc.getState(bc.CurrentHeader().Hash())
	if state == nil {
		return new(uint256.Int)
	}
	return state.Current(algo)
}

// SubscribeChainHeadEvent registers a subscription of ChainHeadEvent.
// SubscribeChainHeadEvent 注册 ChainHeadEvent 的订阅。
func (bc *BlockChain) SubscribeChainHeadEvent(ch chan<- ChainHeadEvent) event.Subscription {
	return bc.scope.Track(bc.chainHeadFeed.Subscribe(ch))
}

// Stop stops the blockchain service. Import calls made afterwards fail.
// Stop 停止区块链服务，之后的导入调用会失败。
func (bc *BlockChain) Stop() {
	if !bc.stopped.CompareAndSwap(false, true) {
		return
	}
	// Wait for an in-flight import and refuse every later one.
	bc.chainmu.Close()
	bc.scope.Close()
	log.Info("Blockchain stopped")
}

// InsertHeader verifies and imports a single header.
// InsertHeader 验证并导入单个区块头。
func (bc *BlockChain) InsertHeader(header *types.Header) error {
	_, err := bc.InsertHeaders([]*types.Header{header})
	return err
}

// InsertHeaders verifies and imports a contiguous batch of headers. It returns
// the index of the first failing header together with the error, or the
// number of headers on success.
//
// Linkage of the whole batch is checked concurrently upfront. Seals of
// headers whose parent is part of the batch are checked once the parent has
// been finalized, since only then is the difficulty they have to meet known.
//
// InsertHeaders 验证并导入一批连续的区块头。批次的链接关系会提前并发检查；父区块属于该批次的
// 区块头的封印在父区块最终确定后才检查，因为只有这时才知道它们需要满足的难度。
func (bc *BlockChain) InsertHeaders(headers []*types.Header) (int, error) {
	if len(headers) == 0 {
		return 0, nil
	}
	if !bc.chainmu.TryLock() {
		return 0, errChainStopped
	}
	defer bc.chainmu.Unlock()
	abort, results := bc.engine.VerifyHeaders(bc, headers)
	defer close(abort)

	var (
		start    = time.Now()
		inserted int
	)
	for i, header := range headers {
		if err := <-results; err != nil {
			return i, err
		}
		hash := header.Hash()
		if bc.HasHeader(hash, header.NumberU64()) {
			log.Debug("Ignoring already known header", "number", header.Number, "hash", hash)
			continue
		}
		if i > 0 {
			if err := bc.verifySeal(header); err != nil {
				return i, err
			}
		}
		if err := bc.writeHeader(header); err != nil {
			return i, err
		}
		inserted++
	}
	if inserted > 0 {
		last := headers[len(headers)-1]
		log.Debug("Imported new headers", "count", inserted, "number", last.Number, "hash", last.Hash(),
			"elapsed", common.PrettyDuration(time.Since(start)))
	}
	return len(headers), nil
}

// verifySeal checks the seal of a header whose parent was imported in the
// same batch.
func (bc *BlockChain) verifySeal(header *types.Header) error {
	parent := bc.GetHeaderByHash(header.ParentHash)
	if parent == nil {
		return consensus.ErrUnknownAncestor
	}
	difficulty, err := bc.engine.Difficulty(bc, parent.Hash())
	if err != nil {
		return err
	}
	if !bc.engine.Verify(parent.NumberU64(), header.PreHash(), header.PreDigest, header.Seal, difficulty) {
		return consensus.ErrInvalidSeal
	}
	return nil
}

// writeHeader finalizes a verified header: it derives the difficulty state and
// the accumulated work from the parent, stores everything and moves the head
// if the header carries more work than the current one.
// writeHeader 最终确定一个已验证的区块头：从父区块推导难度状态和累计工作量，存储所有数据，
// 如果该区块头比当前链头累计了更多工作量则移动链头。
func (bc *BlockChain) writeHeader(header *types.Header) error {
	var (
		hash   = header.Hash()
		number = header.NumberU64()
	)
	ptd := bc.GetTd(header.ParentHash)
	pstate := bc.getState(header.ParentHash)
	if ptd == nil || pstate == nil {
		return fmt.Errorf("%w: parent %x", consensus.ErrUnknownDifficulty, header.ParentHash)
	}
	td := *ptd
	state := pstate.Copy()

	var (
		mined multipow.Algorithm
		known bool
	)
	if len(header.Seal) > 0 {
		work, err := bc.engine.ActualWork(header.Seal)
		if err != nil {
			return err
		}
		td.Increment(work)
		mined, known = work.Algorithm, true
	}
	if len(header.PreDigest) > 0 {
		algo, err := multipow.DecodePreDigest(header.PreDigest)
		if err != nil {
			return err
		}
		mined, known = algo, true
	}
	if known {
		state.OnBlockFinalized(mined, header.Time)
	}

	batch := bc.db.NewBatch()
	rawdb.WriteHeader(batch, header)
	rawdb.WriteTd(batch, hash, number, td)
	rawdb.WriteDifficultyState(batch, hash, number, state)
	if err := batch.Write(); err != nil {
		log.Crit("Failed to write header", "err", err)
	}
	bc.headerCache.Add(hash, header)
	bc.tdCache.Add(hash, td)
	bc.stateCache.Add(hash, state)
	headerInsertCounter.Inc()

	// Heaviest accumulated work wins, ties go to the higher block so that
	// seal-less development blocks still extend the chain.
	head := bc.CurrentHeader()
	localTd := bc.GetTd(head.Hash())
	if c := td.Cmp(localTd); c > 0 || (c == 0 && number > head.NumberU64()) {
		bc.setHead(header)
	}
	return nil
}

// setHead makes header the new head and rewrites the canonical number to hash
// mappings that changed.
// setHead 将 header 设为新的链头，并重写发生变化的规范编号到哈希的映射。
func (bc *BlockChain) setHead(header *types.Header) {
	old := bc.CurrentHeader()
	batch := bc.db.NewBatch()

	// Delete any canonical number assignments above the new head
	for i := header.NumberU64() + 1; i <= old.NumberU64(); i++ {
		rawdb.DeleteCanonicalHash(batch, i)
	}
	// Overwrite any stale canonical number assignments, going backwards from
	// the new head until an already canonical ancestor is found.
	var (
		cur    = header
		reorgs = header.ParentHash != old.Hash()
	)
	for cur != nil && rawdb.ReadCanonicalHash(bc.db, cur.NumberU64()) != cur.Hash() {
		rawdb.WriteCanonicalHash(batch, cur.Hash(), cur.NumberU64())
		if cur.NumberU64() == 0 {
			break
		}
		cur = bc.GetHeaderByHash(cur.ParentHash)
	}
	rawdb.WriteHeadHeaderHash(batch, header.Hash())
	if err := batch.Write(); err != nil {
		log.Crit("Failed to update chain head", "err", err)
	}
	bc.currentHeader.Store(header)
	headHeaderGauge.Set(float64(header.NumberU64()))

	if reorgs {
		reorgCounter.Inc()
		log.Info("Chain head switched", "number", header.Number, "hash", header.Hash(),
			"oldnumber", old.Number, "oldhash", old.Hash())
	}
	bc.chainHeadFeed.Send(ChainHeadEvent{Header: header})
}

// pendingTemplate is the mining template handed out for a given head and
// miner configuration.
type pendingTemplate struct {
	header   *types.Header
	metadata *MiningMetadata
}

// MiningMetadata is what a miner needs to search a seal on top of the head.
// MiningMetadata 是矿工在链头之上搜索封印所需的信息。
type MiningMetadata struct {
	Header     *types.Header      // Template of the block to seal, without seal
	PreHash    common.Hash        // Hash the seal is computed over
	Difficulty multipow.Threshold // Difficulty the seal has to meet
	Parent     uint64             // Number of the parent block
}

// Metadata returns the mining metadata for a block on top of the current head.
// The template is cached until the head or the miner configuration changes, so
// that repeated polls yield the same pre-hash.
// Metadata 返回在当前链头之上出块的挖矿元数据。模板会被缓存直到链头或矿工配置发生变化，
// 因此重复轮询会得到相同的预哈希。
func (bc *BlockChain) Metadata(coinbase common.Address, algo multipow.Algorithm, extra []byte) (*MiningMetadata, error) {
	head := bc.CurrentHeader()
	preDigest := multipow.EncodePreDigest(algo)
	if p := bc.pending.Load(); p != nil {
		h := p.header
		if h.ParentHash == head.Hash() && h.Coinbase == coinbase &&
			bytes.Equal(h.PreDigest, preDigest) && bytes.Equal(h.Extra, extra) {
			return p.metadata, nil
		}
	}
	difficulty, err := bc.engine.Difficulty(bc, head.Hash())
	if err != nil {
		return nil, err
	}
	now := uint64(time.Now().UnixMilli())
	if now <= head.Time {
		now = head.Time + 1
	}
	header := &types.Header{
		ParentHash: head.Hash(),
		Number:     new(big.Int).Add(head.Number, common.Big1),
		Time:       now,
		Coinbase:   coinbase,
		Extra:      common.CopyBytes(extra),
		PreDigest:  preDigest,
	}
	md := &MiningMetadata{
		Header:     header,
		PreHash:    header.PreHash(),
		Difficulty: difficulty,
		Parent:     head.NumberU64(),
	}
	bc.pending.Store(&pendingTemplate{header: header, metadata: md})
	return md, nil
}

// SubmitSeal attaches a seal to a template obtained from Metadata and imports
// the resulting block.
// SubmitSeal 将封印附加到从 Metadata 获得的模板上并导入生成的区块。
func (bc *BlockChain) SubmitSeal(template *types.Header, seal []byte) error {
	header := template.WithSeal(seal)
	if err := bc.InsertHeader(header); err != nil {
		return err
	}
	log.Info("Successfully sealed new block", "number", header.Number, "hash", header.Hash())
	return nil
}
