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

// Package multipow implements a proof-of-work consensus engine that accepts
// seals from several hash algorithms, each with its own difficulty.
package multipow

import (
	"errors"
	"fmt"
	"time"

	"github.com/academy-pow/go-multipow/consensus"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// 封印验证按顺序执行：解码封印、检查预摘要、查询分叉策略、检查难度、重新计算谜题。
// 任何一步失败都会短路返回 false。无效的封印是对抗性输入的正常结果，不会导致 panic。

// allowedFutureBlockTime is how far ahead of the local clock a block timestamp
// may be before the block is considered a future block.
const allowedFutureBlockTime = 15 * time.Second

// Various error messages to mark seals invalid. These should be private to
// prevent engine specific errors from being referenced in the remainder of the
// codebase, inherently breaking if the engine is swapped out.
// 用于标记无效封印的各种错误消息，保持私有以免引擎特定的错误被代码库其他部分引用。
var (
	errInvalidSeal         = errors.New("undecodable seal")
	errInvalidPreDigest    = errors.New("undecodable pre-digest")
	errAlgorithmMismatch   = errors.New("pre-digest algorithm differs from seal algorithm")
	errAlgorithmNotAllowed = errors.New("algorithm not allowed at this height")
	errInsufficientWork    = errors.New("work does not meet difficulty")
	errInvalidWork         = errors.New("work does not derive from pre-hash and nonce")
)

var sealVerifyCounter = metrics.NewRegisteredCounterVec(
	"seal_verifications_total",
	"Seal verifications by algorithm and outcome.",
	"algorithm", "outcome",
)

// MultiPow is a consensus engine based on proof-of-work accepting seals from
// every algorithm the fork policy allows at a given height. Verification does
// not touch shared mutable state and is safe for concurrent use.
// MultiPow 是基于工作量证明的共识引擎，接受分叉策略在给定高度允许的每种算法的封印。验证是并发安全的。
type MultiPow struct {
	policy ForkPolicy

	fakeFail *uint64 // Block number which fails the seal check even in fake mode
	fakeFull bool    // Accepts every seal as valid
}

var _ consensus.PowAlgorithm[Threshold] = (*MultiPow)(nil)

// New creates a full sized multi-algorithm proof-of-work engine.
// New 创建一个完整的多算法工作量证明引擎。
func New(policy ForkPolicy) *MultiPow {
	return &MultiPow{policy: policy}
}

// NewFaker creates an engine that accepts every seal as valid. It backs the
// instant-seal development mode, blocks still have to link up with their
// parents.
// NewFaker 创建一个接受所有封印为有效的引擎，用于即时封印开发模式。
func NewFaker() *MultiPow {
	return &MultiPow{fakeFull: true}
}

// NewFakeFailer creates an engine that accepts every seal as valid apart from
// the one of the block with the given number.
// NewFakeFailer 创建一个除指定编号区块外接受所有封印为有效的引擎。
func NewFakeFailer(fail uint64) *MultiPow {
	return &MultiPow{fakeFull: true, fakeFail: &fail}
}

// Policy returns the fork policy the engine enforces, nil for fake engines.
func (pow *MultiPow) Policy() ForkPolicy {
	return pow.policy
}

// Difficulty returns the threshold a block built on top of parent has to meet.
// Difficulty 返回构建在 parent 之上的区块需要满足的难度阈值。
func (pow *MultiPow) Difficulty(chain consensus.ChainReader[Threshold], parent common.Hash) (Threshold, error) {
	threshold, ok := chain.GetDifficulty(parent)
	if !ok {
		return Threshold{}, fmt.Errorf("%w: %x", consensus.ErrUnknownDifficulty, parent)
	}
	return threshold, nil
}

// Verify checks a raw seal of a child of the block at height parent. It
// returns false for every invalid seal and never panics.
// Verify 检查高度为 parent 的区块的子区块的原始封印，对所有无效封印返回 false，从不 panic。
func (pow *MultiPow) Verify(parent uint64, preHash common.Hash, preDigest []byte, seal []byte, difficulty Threshold) bool {
	if pow.fakeFull {
		return pow.fakeFail == nil || *pow.fakeFail != parent+1
	}
	algo, err := pow.verifySeal(parent, preHash, preDigest, seal, difficulty)
	if err != nil {
		log.Debug("Rejected proof-of-work seal", "parent", parent, "prehash", preHash, "algo", algo, "err", err)
		sealVerifyCounter.WithLabelValues(algo, outcome(err)).Inc()
		return false
	}
	sealVerifyCounter.WithLabelValues(algo, "valid").Inc()
	return true
}

// CheckSeal runs the same checks as Verify but returns the reason a seal is
// rejected. It leaves the verification metrics untouched.
// CheckSeal 执行与 Verify 相同的检查，但返回封印被拒绝的原因，不更新验证指标。
func (pow *MultiPow) CheckSeal(parent uint64, preHash common.Hash, preDigest []byte, seal []byte, difficulty Threshold) error {
	if pow.fakeFull {
		if pow.fakeFail != nil && *pow.fakeFail == parent+1 {
			return errInvalidWork
		}
		return nil
	}
	_, err := pow.verifySeal(parent, preHash, preDigest, seal, difficulty)
	return err
}

// verifySeal runs the verification steps in order and reports the first
// failure. The returned label names the seal algorithm once it is known.
func (pow *MultiPow) verifySeal(parent uint64, preHash common.Hash, preDigest []byte, raw []byte, difficulty Threshold) (string, error) {
	seal, err := DecodeSeal(raw)
	if err != nil {
		return "unknown", fmt.Errorf("%w: %v", errInvalidSeal, err)
	}
	label := seal.Work.Algorithm.String()

	if len(preDigest) > 0 {
		announced, err := DecodePreDigest(preDigest)
		if err != nil {
			return label, fmt.Errorf("%w: %v", errInvalidPreDigest, err)
		}
		if announced != seal.Work.Algorithm {
			return label, fmt.Errorf("%w: announced %v, sealed %v", errAlgorithmMismatch, announced, seal.Work.Algorithm)
		}
	}
	if !pow.policy.IsAlgorithmAllowed(parent, seal.Work.Algorithm) {
		return label, fmt.Errorf("%w: %v at parent %d", errAlgorithmNotAllowed, seal.Work.Algorithm, parent)
	}
	if !MultiMeetsDifficulty(seal.Work, difficulty) {
		return label, errInsufficientWork
	}
	compute := Compute{Difficulty: difficulty, PreHash: preHash, Nonce: seal.Nonce}
	if compute.Compute(seal.Work.Algorithm) != *seal {
		return label, errInvalidWork
	}
	return label, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, errInvalidSeal):
		return "malformed"
	case errors.Is(err, errInvalidPreDigest), errors.Is(err, errAlgorithmMismatch), errors.Is(err, errAlgorithmNotAllowed):
		return "policy"
	case errors.Is(err, errInsufficientWork):
		return "insufficient"
	case errors.Is(err, errInvalidWork):
		return "mismatch"
	}
	return "other"
}

// ActualWork extracts the work of a raw seal for total difficulty accounting.
// ActualWork 从原始封印中提取工作量，用于总难度统计。
func (pow *MultiPow) ActualWork(seal []byte) (TaggedDigest, error) {
	decoded, err := DecodeSeal(seal)
	if err != nil {
		return TaggedDigest{}, fmt.Errorf("%w: %v", errInvalidSeal, err)
	}
	return decoded.Work, nil
}

// VerifyHeader checks whether a header conforms to the consensus rules: it has
// to extend a known parent, carry a later timestamp and a valid seal.
// VerifyHeader 检查区块头是否符合共识规则：必须扩展已知的父区块、携带更晚的时间戳以及有效的封印。
func (pow *MultiPow) VerifyHeader(chain consensus.ChainReader[Threshold], header *types.Header) error {
	parent := chain.GetHeaderByHash(header.ParentHash)
	if parent == nil {
		return consensus.ErrUnknownAncestor
	}
	return pow.verifyHeader(chain, header, parent, uint64(time.Now().UnixMilli()))
}

// VerifyHeaders is similar to VerifyHeader, but verifies a batch of headers
// concurrently. The method returns a quit channel to abort the operations and
// a results channel to retrieve the async verifications. Every header must
// extend either a known block or its predecessor in the batch, the latter is
// only checked for linkage since its difficulty is not in chain state yet.
// VerifyHeaders 与 VerifyHeader 类似，但并发验证一批区块头，返回一个用于中止的退出通道和一个结果通道。
func (pow *MultiPow) VerifyHeaders(chain consensus.ChainReader[Threshold], headers []*types.Header) (chan<- struct{}, <-chan error) {
	abort := make(chan struct{})
	results := make(chan error, len(headers))
	now := uint64(time.Now().UnixMilli())

	go func() {
		for i, header := range headers {
			var parent *types.Header
			if i == 0 {
				parent = chain.GetHeaderByHash(header.ParentHash)
			} else if headers[i-1].Hash() == header.ParentHash {
				parent = headers[i-1]
			}
			var err error
			switch {
			case parent == nil:
				err = consensus.ErrUnknownAncestor
			case i > 0:
				err = verifyLinkage(header, parent, now)
			default:
				err = pow.verifyHeader(chain, header, parent, now)
			}
			select {
			case <-abort:
				return
			case results <- err:
			}
		}
	}()
	return abort, results
}

func (pow *MultiPow) verifyHeader(chain consensus.ChainReader[Threshold], header, parent *types.Header, now uint64) error {
	if err := verifyLinkage(header, parent, now); err != nil {
		return err
	}
	difficulty, err := pow.Difficulty(chain, parent.Hash())
	if err != nil {
		return err
	}
	if !pow.Verify(parent.Number.Uint64(), header.PreHash(), header.PreDigest, header.Seal, difficulty) {
		return consensus.ErrInvalidSeal
	}
	return nil
}

func verifyLinkage(header, parent *types.Header, now uint64) error {
	if header.Time > now+uint64(allowedFutureBlockTime.Milliseconds()) {
		return consensus.ErrFutureBlock
	}
	if header.Time <= parent.Time {
		return consensus.ErrOlderBlockTime
	}
	if header.Number == nil || !header.Number.IsUint64() || header.Number.Uint64() != parent.Number.Uint64()+1 {
		return consensus.ErrInvalidNumber
	}
	return nil
}
