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

package miner

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// 每个搜索线程从自己的线程编号开始，以线程总数为步长递增随机数，因此线程之间从不重复尝试同一个随机数。
// 随机数在 2^256 处回绕。找到封印后提交区块，新的链头会触发从 0 开始的新一轮搜索。

const (
	// chainHeadChanSize is the size of channel listening to ChainHeadEvent.
	chainHeadChanSize = 10

	// hashBatch is the number of attempts a thread makes between checking for
	// cancellation and reporting its hash count.
	hashBatch = 256

	// hashrateInterval is the period the hashrate is measured over.
	hashrateInterval = time.Second
)

var (
	hashCounter     = metrics.NewRegisteredCounter("miner_hashes_total", "Proof-of-work attempts made by the local miner.")
	hashrateGauge   = metrics.NewRegisteredGauge("miner_hashrate", "Local hashes per second.")
	sealedCounter   = metrics.NewRegisteredCounter("miner_sealed_total", "Blocks sealed by the local miner.")
	rejectedCounter = metrics.NewRegisteredCounter("miner_rejected_total", "Sealed blocks the chain refused to import.")
)

// errSealFound stops sibling threads once one of them found a seal.
var errSealFound = errors.New("seal found")

// task is a running search over one template.
type task struct {
	metadata *core.MiningMetadata
	cancel   context.CancelFunc
	done     atomic.Bool // set once the search ended, whatever the outcome
}

// worker is the main object which takes care of polling the backend for new
// work and running the search threads.
// worker 是负责向后端轮询新工作并运行搜索线程的主要对象。
type worker struct {
	config  Config
	backend Backend

	threads atomic.Int32
	extra   atomic.Pointer[[]byte]
	running atomic.Bool

	hashes   atomic.Uint64 // attempts since the last hashrate sample
	rateBits atomic.Uint64 // float64 bits of the last hashrate sample

	startCh   chan struct{}
	stopCh    chan struct{}
	threadsCh chan struct{}
	exitCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newWorker(config Config, backend Backend) *worker {
	w := &worker{
		config:    config,
		backend:   backend,
		startCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}, 1),
		threadsCh: make(chan struct{}, 1),
		exitCh:    make(chan struct{}),
	}
	w.threads.Store(int32(config.Threads))
	extra := []byte(config.ExtraData)
	w.extra.Store(&extra)

	w.wg.Add(2)
	go w.mainLoop()
	go w.hashrateLoop()
	return w
}

func (w *worker) isRunning() bool { return w.running.Load() }

func (w *worker) start() {
	if w.running.CompareAndSwap(false, true) {
		notify(w.startCh)
	}
}

func (w *worker) stop() {
	if w.running.CompareAndSwap(true, false) {
		notify(w.stopCh)
	}
}

func (w *worker) close() {
	w.closeOnce.Do(func() {
		w.running.Store(false)
		close(w.exitCh)
	})
	w.wg.Wait()
}

func (w *worker) setThreads(threads int) {
	w.threads.Store(int32(threads))
	notify(w.threadsCh)
}

func (w *worker) setExtra(extra []byte) {
	cpy := common.CopyBytes(extra)
	w.extra.Store(&cpy)
}

func (w *worker) hashrate() float64 {
	return math.Float64frombits(w.rateBits.Load())
}

// notify performs a non-blocking send on a one-slot signal channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// mainLoop polls the backend every recommit interval and on every new head,
// restarting the search whenever the template changed.
// mainLoop 在每个重新提交间隔以及每个新链头时轮询后端，模板变化时重新开始搜索。
func (w *worker) mainLoop() {
	defer w.wg.Done()

	headCh := make(chan core.ChainHeadEvent, chainHeadChanSize)
	sub := w.backend.SubscribeChainHeadEvent(headCh)
	defer sub.Unsubscribe()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C // discard the initial tick

	var current *task
	abandon := func() {
		if current != nil {
			current.cancel()
			current = nil
		}
	}
	defer abandon()

	// commit fetches the template and starts a search unless the running one
	// already works on it.
	commit := func(force bool) {
		if !w.isRunning() {
			return
		}
		if w.config.InstantSeal {
			w.wg.Add(1)
			go w.instantSeal()
			return
		}
		extra := *w.extra.Load()
		md, err := w.backend.Metadata(w.config.Coinbase, w.config.Algorithm, extra)
		if err != nil {
			log.Warn("Failed to fetch mining metadata", "err", err)
			return
		}
		if !force && current != nil && !current.done.Load() &&
			current.metadata.PreHash == md.PreHash && current.metadata.Difficulty == md.Difficulty {
			return
		}
		abandon()

		ctx, cancel := context.WithCancel(context.Background())
		current = &task{metadata: md, cancel: cancel}
		threads := int(w.threads.Load())
		log.Debug("Commit new mining work", "number", md.Parent+1, "prehash", md.PreHash,
			"algo", w.config.Algorithm, "difficulty", md.Difficulty.Get(w.config.Algorithm), "threads", threads)

		w.wg.Add(1)
		go w.search(ctx, current, threads)
	}

	for {
		select {
		case <-w.startCh:
			commit(true)
			timer.Reset(w.config.Recommit)

		case <-w.stopCh:
			abandon()

		case <-w.threadsCh:
			if w.isRunning() && !w.config.InstantSeal {
				commit(true)
			}

		case <-headCh:
			if !w.config.InstantSeal {
				commit(false)
			}

		case <-timer.C:
			commit(false)
			if w.isRunning() {
				timer.Reset(w.config.Recommit)
			}

		case <-w.exitCh:
			return
		case <-sub.Err():
			return
		}
	}
}

// search runs the configured number of threads over one template and submits
// the first seal any of them finds.
// search 在一个模板上运行配置数量的线程，并提交其中任意线程找到的第一个封印。
func (w *worker) search(ctx context.Context, t *task, threads int) {
	defer w.wg.Done()
	defer t.done.Store(true)

	var (
		g, gctx = errgroup.WithContext(ctx)
		result  = make(chan []byte, threads)
	)
	for i := 0; i < threads; i++ {
		start := uint256.NewInt(uint64(i))
		g.Go(func() error {
			seal, err := w.mine(gctx, t.metadata, start, uint64(threads))
			if err != nil {
				return err
			}
			result <- seal
			return errSealFound
		})
	}
	if err := g.Wait(); !errors.Is(err, errSealFound) {
		return
	}
	seal := <-result
	md := t.metadata
	if err := w.backend.SubmitSeal(md.Header, seal); err != nil {
		rejectedCounter.Inc()
		log.Warn("Sealed block rejected", "number", md.Parent+1, "prehash", md.PreHash, "err", err)
		return
	}
	sealedCounter.Inc()
}

// mine searches nonces start, start+stride, start+2*stride, ... wrapping
// around at 2^256, until a seal meeting the difficulty is found or the
// context is cancelled.
// mine 搜索随机数 start、start+stride、start+2*stride……在 2^256 处回绕，直到找到满足难度的封印或上下文被取消。
func (w *worker) mine(ctx context.Context, md *core.MiningMetadata, start *uint256.Int, stride uint64) ([]byte, error) {
	var (
		algo    = w.config.Algorithm
		compute = multipow.Compute{Difficulty: md.Difficulty, PreHash: md.PreHash}
		step    = uint256.NewInt(stride)
		done    uint64
	)
	compute.Nonce.Set(start)
	for {
		if done == hashBatch {
			w.countHashes(done)
			done = 0
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		seal := compute.Compute(algo)
		done++
		if multipow.MultiMeetsDifficulty(seal.Work, md.Difficulty) {
			w.countHashes(done)
			log.Trace("Proof-of-work seal found", "nonce", seal.Nonce.Hex(), "digest", seal.Work.Digest)
			return seal.Encode(), nil
		}
		compute.Nonce.Add(&compute.Nonce, step)
	}
}

func (w *worker) countHashes(n uint64) {
	w.hashes.Add(n)
	hashCounter.Add(float64(n))
}

// instantSeal imports a seal-less block on top of the head.
func (w *worker) instantSeal() {
	defer w.wg.Done()

	md, err := w.backend.Metadata(w.config.Coinbase, w.config.Algorithm, *w.extra.Load())
	if err != nil {
		log.Warn("Failed to fetch mining metadata", "err", err)
		return
	}
	if err := w.backend.SubmitSeal(md.Header, nil); err != nil {
		rejectedCounter.Inc()
		log.Warn("Instant-sealed block rejected", "number", md.Parent+1, "err", err)
		return
	}
	sealedCounter.Inc()
}

// hashrateLoop samples the hash count once per interval.
func (w *worker) hashrateLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(hashrateInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			rate := float64(w.hashes.Swap(0)) / now.Sub(last).Seconds()
			last = now
			w.rateBits.Store(math.Float64bits(rate))
			hashrateGauge.Set(rate)
		case <-w.exitCh:
			return
		}
	}
}
