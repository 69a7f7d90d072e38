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
	"errors"
	"fmt"
	"io"

	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// 难度调整算法（DAA）：每种算法一个实例，只在使用该算法挖出的区块上推进。
// 窗口左移一格并在尾部追加 {当前难度, 当前时间}，然后对时间差和难度求和，
// 经过阻尼和钳制后得到新的难度。所有运算均为无符号，溢出时饱和而不是 panic。

var (
	maxUint256    = new(uint256.Int).SetAllOne()
	errStateShape = errors.New("difficulty state does not match config")
)

// Damp moves actual linearly toward goal, removing 1/factor of the distance
// per call: (actual + (factor-1)*goal) / factor.
// Damp 将 actual 线性地向 goal 移动：(actual + (factor-1)*goal) / factor。
func Damp(actual, goal, factor uint64) uint64 {
	if factor == 0 {
		factor = 1
	}
	x := new(uint256.Int).Mul(uint256.NewInt(factor-1), uint256.NewInt(goal))
	x.Add(x, uint256.NewInt(actual))
	x.Div(x, uint256.NewInt(factor))
	return x.Uint64() // never exceeds max(actual, goal)
}

// Clamp limits actual to within factor of goal:
// max(goal/factor, min(actual, goal*factor)).
// Clamp 将 actual 限制在 goal 的 factor 倍范围内。
func Clamp(actual, goal, factor uint64) uint64 {
	if factor == 0 {
		factor = 1
	}
	upper := new(uint256.Int).Mul(uint256.NewInt(goal), uint256.NewInt(factor))
	if upper.LtUint64(actual) {
		actual = upper.Uint64()
	}
	return max(goal/factor, actual)
}

// WindowEntry is a past difficulty together with the timestamp (milliseconds)
// of the block it was recorded at.
// WindowEntry 是过去的难度以及记录它的区块的时间戳（毫秒）。
type WindowEntry struct {
	Difficulty *uint256.Int
	Timestamp  uint64
}

// Adjuster is the retarget loop of a single algorithm. It is chain state:
// mutated once per finalized block by the serial import pipeline and read by
// verification and mining. It does no locking of its own.
// Adjuster 是单个算法的难度调整循环。它属于链状态，由串行的导入流程在每个最终确定的区块上修改一次，自身不加锁。
type Adjuster struct {
	algo   Algorithm
	config params.DifficultyConfig

	current uint256.Int
	// window holds the past entries from earliest to latest. Slots only ever
	// fill from the tail, so empty (nil) slots are always at the front.
	window []*WindowEntry
}

// NewAdjuster creates the retarget loop of algo at genesis: current difficulty
// set to the initial difficulty and an empty window.
// NewAdjuster 创建创世时 algo 的难度调整循环：当前难度为初始难度，窗口为空。
func NewAdjuster(algo Algorithm, config params.DifficultyConfig) *Adjuster {
	a := &Adjuster{
		algo:   algo,
		config: config,
		window: make([]*WindowEntry, config.WindowSize),
	}
	a.current.Set(config.InitialDifficulty)
	return a
}

// Algorithm returns the algorithm the adjuster is responsible for.
func (a *Adjuster) Algorithm() Algorithm { return a.algo }

// Current returns the difficulty the next block of the algorithm has to meet.
// Current 返回该算法下一个区块需要满足的难度。
func (a *Adjuster) Current() *uint256.Int {
	return new(uint256.Int).Set(&a.current)
}

// Window returns a copy of the history, earliest first, with nil for slots
// that were never filled.
func (a *Adjuster) Window() []*WindowEntry {
	cpy := make([]*WindowEntry, len(a.window))
	for i, entry := range a.window {
		if entry != nil {
			cpy[i] = &WindowEntry{Difficulty: new(uint256.Int).Set(entry.Difficulty), Timestamp: entry.Timestamp}
		}
	}
	return cpy
}

// OnBlockFinalized advances the loop for a block finalized at now
// (milliseconds) and mined with the given algorithm. Blocks of other
// algorithms leave the state untouched. It reports whether the state changed.
// OnBlockFinalized 为在 now（毫秒）最终确定、使用给定算法挖出的区块推进调整循环。
// 其他算法的区块不会改变状态，返回值报告状态是否改变。
func (a *Adjuster) OnBlockFinalized(mined Algorithm, now uint64) bool {
	if mined != a.algo {
		return false
	}
	size := len(a.window)
	if size == 0 {
		return false
	}
	// Shift the window and keep the evicted entry around as the predecessor of
	// the earliest slot, so that a full window yields one delta per block.
	evicted := a.window[0]
	copy(a.window, a.window[1:])
	a.window[size-1] = &WindowEntry{Difficulty: new(uint256.Int).Set(&a.current), Timestamp: now}

	var (
		cfg     = a.config
		tsDelta uint64
		prev    = evicted
	)
	for _, cur := range a.window {
		delta := cfg.TargetBlockTime
		if prev != nil && cur != nil {
			delta = 0
			if cur.Timestamp > prev.Timestamp {
				delta = cur.Timestamp - prev.Timestamp
			}
		}
		tsDelta = saturatingAdd(tsDelta, delta)
		prev = cur
	}
	if tsDelta == 0 {
		tsDelta = 1
	}

	diffSum := new(uint256.Int)
	for _, entry := range a.window {
		diff := cfg.InitialDifficulty
		if entry != nil {
			diff = entry.Difficulty
		}
		if _, overflow := diffSum.AddOverflow(diffSum, diff); overflow {
			diffSum.Set(maxUint256)
		}
	}
	if diffSum.Lt(cfg.MinDifficulty) {
		diffSum.Set(cfg.MinDifficulty)
	}

	adjustmentWindow := saturatingMul(uint64(size), cfg.TargetBlockTime)
	adjusted := Clamp(Damp(tsDelta, adjustmentWindow, cfg.DampFactor), adjustmentWindow, cfg.ClampFactor)
	if adjusted == 0 {
		adjusted = 1
	}

	next, overflow := new(uint256.Int).MulOverflow(diffSum, uint256.NewInt(cfg.TargetBlockTime))
	if overflow {
		next.Set(cfg.MaxDifficulty)
	} else {
		next.Div(next, uint256.NewInt(adjusted))
	}
	switch {
	case next.Lt(cfg.MinDifficulty):
		next.Set(cfg.MinDifficulty)
	case next.Gt(cfg.MaxDifficulty):
		next.Set(cfg.MaxDifficulty)
	}
	a.current.Set(next)
	return true
}

func saturatingAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return ^uint64(0)
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if c := a * b; c/b == a {
		return c
	}
	return ^uint64(0)
}

// DifficultyState bundles one Adjuster per supported algorithm. It is the
// difficulty part of the state of a block.
// DifficultyState 为每种支持的算法绑定一个 Adjuster，是区块状态中的难度部分。
type DifficultyState struct {
	adjusters [3]*Adjuster
}

// NewDifficultyState returns the genesis difficulty state.
// NewDifficultyState 返回创世难度状态。
func NewDifficultyState(config params.DifficultyConfig) *DifficultyState {
	s := new(DifficultyState)
	for _, algo := range Algorithms {
		s.adjusters[algo] = NewAdjuster(algo, config)
	}
	return s
}

// Adjuster returns the retarget loop of algo.
func (s *DifficultyState) Adjuster(algo Algorithm) *Adjuster {
	if !algo.IsValid() {
		return nil
	}
	return s.adjusters[algo]
}

// Current returns the current difficulty of algo.
func (s *DifficultyState) Current(algo Algorithm) *uint256.Int {
	if a := s.Adjuster(algo); a != nil {
		return a.Current()
	}
	return new(uint256.Int)
}

// Threshold collects the current difficulty of every algorithm.
// Threshold 收集每种算法的当前难度。
func (s *DifficultyState) Threshold() Threshold {
	var t Threshold
	for _, algo := range Algorithms {
		t.Set(algo, &s.adjusters[algo].current)
	}
	return t
}

// OnBlockFinalized hands the finalized block to every adjuster, only the one
// of the mined algorithm reacts.
// OnBlockFinalized 将最终确定的区块交给每个调整器，只有挖矿算法对应的调整器会响应。
func (s *DifficultyState) OnBlockFinalized(mined Algorithm, now uint64) {
	for _, a := range s.adjusters {
		a.OnBlockFinalized(mined, now)
	}
}

// Copy returns a deep copy of the state, so that a child block can be derived
// without touching the state of its parent.
func (s *DifficultyState) Copy() *DifficultyState {
	cpy := new(DifficultyState)
	for i, a := range s.adjusters {
		c := &Adjuster{algo: a.algo, config: a.config, window: a.Window()}
		c.current.Set(&a.current)
		cpy.adjusters[i] = c
	}
	return cpy
}

// storedAdjuster is the RLP layout of an Adjuster. Only the filled tail of the
// window is stored, the empty front is implied by the window size.
type storedAdjuster struct {
	Current *uint256.Int
	Entries []storedEntry
}

type storedEntry struct {
	Difficulty *uint256.Int
	Timestamp  uint64
}

// EncodeRLP implements rlp.Encoder.
func (s *DifficultyState) EncodeRLP(w io.Writer) error {
	stored := make([]storedAdjuster, len(s.adjusters))
	for i, a := range s.adjusters {
		stored[i].Current = new(uint256.Int).Set(&a.current)
		for _, entry := range a.window {
			if entry != nil {
				stored[i].Entries = append(stored[i].Entries, storedEntry{entry.Difficulty, entry.Timestamp})
			}
		}
	}
	return rlp.Encode(w, stored)
}

// DecodeDifficultyState restores a state encoded with EncodeRLP. The config is
// not part of the encoding and has to match the one the state was built with.
// DecodeDifficultyState 恢复使用 EncodeRLP 编码的状态，配置不属于编码的一部分。
func DecodeDifficultyState(config params.DifficultyConfig, blob []byte) (*DifficultyState, error) {
	var stored []storedAdjuster
	if err := rlp.DecodeBytes(blob, &stored); err != nil {
		return nil, err
	}
	if len(stored) != len(Algorithms) {
		return nil, fmt.Errorf("%w: %d adjusters", errStateShape, len(stored))
	}
	s := NewDifficultyState(config)
	for i, st := range stored {
		a := s.adjusters[i]
		if st.Current == nil || uint64(len(st.Entries)) > config.WindowSize {
			return nil, fmt.Errorf("%w: %v window of %d entries", errStateShape, a.algo, len(st.Entries))
		}
		a.current.Set(st.Current)
		offset := len(a.window) - len(st.Entries)
		for j, entry := range st.Entries {
			a.window[offset+j] = &WindowEntry{Difficulty: entry.Difficulty, Timestamp: entry.Timestamp}
		}
	}
	return s, nil
}
