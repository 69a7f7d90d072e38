// Copyright 2016 The go-ethereum Authors
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

package params

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// 分叉按区块高度触发而不是按时间触发：区块高度是所有节点在验证时无需外部输入即可确定一致的唯一值。
// 三个顺序发生的分叉事件：启用额外算法（软分叉）、禁用弱的旧算法（硬分叉）、以及节点需要选边站的争议性分裂。

var (
	// DefaultChainConfig contains the chain parameters of the public network.
	// DefaultChainConfig 是公共网络的链参数。
	DefaultChainConfig = &ChainConfig{
		Forks: ForkConfig{
			AddSecondaryAlgorithmsBlock: big.NewInt(20_000),
			RemoveLegacyAlgorithmBlock:  big.NewInt(40_000),
			SplitBlock:                  big.NewInt(60_000),
		},
		Difficulty: DefaultDifficultyConfig(),
	}

	// DevChainConfig activates every fork at genesis except the contentious split,
	// so a local developer chain starts with Sha3 and Keccak mining.
	// DevChainConfig 在创世时激活除争议分裂外的所有分叉，本地开发链从 Sha3 和 Keccak 开始挖矿。
	DevChainConfig = &ChainConfig{
		Forks: ForkConfig{
			AddSecondaryAlgorithmsBlock: big.NewInt(0),
			RemoveLegacyAlgorithmBlock:  big.NewInt(0),
		},
		Difficulty: DifficultyConfig{
			TargetBlockTime:   1_000,
			DampFactor:        DampFactor,
			ClampFactor:       ClampFactor,
			WindowSize:        DifficultyAdjustWindow,
			InitialDifficulty: uint256.NewInt(1_000),
			MinDifficulty:     uint256.NewInt(MinimumDifficulty),
			MaxDifficulty:     new(uint256.Int).Set(MaximumDifficulty),
		},
	}
)

// DefaultDifficultyConfig returns the retarget parameters of the public network.
func DefaultDifficultyConfig() DifficultyConfig {
	return DifficultyConfig{
		TargetBlockTime:   TargetBlockTime,
		DampFactor:        DampFactor,
		ClampFactor:       ClampFactor,
		WindowSize:        DifficultyAdjustWindow,
		InitialDifficulty: uint256.NewInt(GenesisDifficulty),
		MinDifficulty:     uint256.NewInt(MinimumDifficulty),
		MaxDifficulty:     new(uint256.Int).Set(MaximumDifficulty),
	}
}

// ChainConfig is the core config which determines the consensus settings of a
// network. It is set once at chain-spec time and read-only afterwards.
// ChainConfig 是决定网络共识设置的核心配置，在链规范时设置一次，之后只读。
type ChainConfig struct {
	Forks ForkConfig `json:"forks"`

	// ManualForks selects the hard-coded fork schedule instead of Forks. There is
	// no contentious split in manual mode.
	// ManualForks 选择硬编码的分叉计划而不是 Forks，手动模式下没有争议性分裂。
	ManualForks bool `json:"manualForks,omitempty"`

	Difficulty DifficultyConfig `json:"difficulty"`
}

// ForkConfig holds the heights of the three algorithm forks. A nil height means
// the fork is not scheduled.
// ForkConfig 保存三次算法分叉的高度，nil 表示未计划该分叉。
type ForkConfig struct {
	AddSecondaryAlgorithmsBlock *big.Int `json:"addSecondaryAlgorithmsBlock,omitempty"` // Sha3 and Keccak become legal (nil = never)
	RemoveLegacyAlgorithmBlock  *big.Int `json:"removeLegacyAlgorithmBlock,omitempty"`  // Md5 becomes illegal (nil = never)
	SplitBlock                  *big.Int `json:"splitBlock,omitempty"`                  // Contentious split (nil = never)
}

// DifficultyConfig contains the parameters of the per-algorithm retarget loop.
// DifficultyConfig 包含每种算法难度调整循环的参数。
type DifficultyConfig struct {
	TargetBlockTime   uint64       `json:"targetBlockTime"` // milliseconds
	DampFactor        uint64       `json:"dampFactor"`
	ClampFactor       uint64       `json:"clampFactor"`
	WindowSize        uint64       `json:"windowSize"`
	InitialDifficulty *uint256.Int `json:"initialDifficulty"`
	MinDifficulty     *uint256.Int `json:"minDifficulty"`
	MaxDifficulty     *uint256.Int `json:"maxDifficulty"`
}

// Description returns a human-readable description of ChainConfig.
// Description 返回 ChainConfig 的人类可读描述。
func (c *ChainConfig) Description() string {
	var banner string

	banner += "Chain fork schedule:\n"
	if c.ManualForks {
		banner += fmt.Sprintf(" - Secondary algorithms:        #%-8d (manual)\n", ManualAddSecondaryAlgorithmsBlock)
		banner += fmt.Sprintf(" - Legacy algorithm removal:    #%-8d (manual)\n", ManualRemoveLegacyAlgorithmBlock)
	} else {
		banner += fmt.Sprintf(" - Secondary algorithms:        %s\n", describeBlock(c.Forks.AddSecondaryAlgorithmsBlock))
		banner += fmt.Sprintf(" - Legacy algorithm removal:    %s\n", describeBlock(c.Forks.RemoveLegacyAlgorithmBlock))
		banner += fmt.Sprintf(" - Contentious split:           %s\n", describeBlock(c.Forks.SplitBlock))
	}
	banner += "\n"
	d := c.Difficulty
	banner += "Difficulty adjustment:\n"
	banner += fmt.Sprintf(" - Target block time: %dms\n", d.TargetBlockTime)
	banner += fmt.Sprintf(" - Window: %d blocks, damp %d, clamp %d\n", d.WindowSize, d.DampFactor, d.ClampFactor)
	banner += fmt.Sprintf(" - Initial difficulty: %s\n", decimal(d.InitialDifficulty))
	banner += fmt.Sprintf(" - Bounds: [%s, %s]\n", decimal(d.MinDifficulty), decimal(d.MaxDifficulty))
	return banner
}

func describeBlock(b *big.Int) string {
	if b == nil {
		return "not scheduled"
	}
	return "#" + b.String()
}

func decimal(x *uint256.Int) string {
	if x == nil {
		return "<nil>"
	}
	return x.Dec()
}

// IsSecondaryAlgorithms returns whether num is either equal to the secondary
// algorithm fork block or greater.
// IsSecondaryAlgorithms 返回 num 是否等于或大于启用额外算法的分叉区块。
func (c *ChainConfig) IsSecondaryAlgorithms(num *big.Int) bool {
	if c.ManualForks {
		return isBlockForked(new(big.Int).SetUint64(ManualAddSecondaryAlgorithmsBlock), num)
	}
	return isBlockForked(c.Forks.AddSecondaryAlgorithmsBlock, num)
}

// IsLegacyRemoved returns whether num is either equal to the legacy algorithm
// removal block or greater.
// IsLegacyRemoved 返回 num 是否等于或大于移除旧算法的分叉区块。
func (c *ChainConfig) IsLegacyRemoved(num *big.Int) bool {
	if c.ManualForks {
		return isBlockForked(new(big.Int).SetUint64(ManualRemoveLegacyAlgorithmBlock), num)
	}
	return isBlockForked(c.Forks.RemoveLegacyAlgorithmBlock, num)
}

// IsSplit returns whether num is past the contentious split. Manual fork
// scheduling never splits.
// IsSplit 返回 num 是否已经越过争议性分裂，手动分叉模式从不分裂。
func (c *ChainConfig) IsSplit(num *big.Int) bool {
	if c.ManualForks {
		return false
	}
	return isBlockForked(c.Forks.SplitBlock, num)
}

// CheckConfigForkOrder checks that we don't "skip" any forks and that the forks
// are scheduled in the only order the fork policy can enforce.
// CheckConfigForkOrder 检查没有"跳过"任何分叉，并且分叉按照分叉策略能够执行的唯一顺序排列。
func (c *ChainConfig) CheckConfigForkOrder() error {
	if c.ManualForks {
		return nil
	}
	type fork struct {
		name  string
		block *big.Int
	}
	var lastFork fork
	for _, cur := range []fork{
		{name: "addSecondaryAlgorithmsBlock", block: c.Forks.AddSecondaryAlgorithmsBlock},
		{name: "removeLegacyAlgorithmBlock", block: c.Forks.RemoveLegacyAlgorithmBlock},
		{name: "splitBlock", block: c.Forks.SplitBlock},
	} {
		if cur.block != nil && cur.block.Sign() < 0 {
			return fmt.Errorf("invalid fork block: %v scheduled at negative block %v", cur.name, cur.block)
		}
		if lastFork.name != "" {
			switch {
			case lastFork.block == nil && cur.block != nil:
				return fmt.Errorf("unsupported fork ordering: %v not enabled, but %v enabled at block %v",
					lastFork.name, cur.name, cur.block)
			case lastFork.block != nil && cur.block != nil && lastFork.block.Cmp(cur.block) > 0:
				return fmt.Errorf("unsupported fork ordering: %v enabled at block %v, but %v enabled at block %v",
					lastFork.name, lastFork.block, cur.name, cur.block)
			}
		}
		lastFork = cur
	}
	return nil
}

var (
	errZeroTargetBlockTime = errors.New("target block time must be positive")
	errZeroDampFactor      = errors.New("damp factor must be positive")
	errZeroClampFactor     = errors.New("clamp factor must be positive")
	errZeroWindow          = errors.New("difficulty window must hold at least one block")
	errMissingDifficulty   = errors.New("initial, minimum and maximum difficulty must be set")
	errDifficultyBounds    = errors.New("minimum difficulty exceeds maximum difficulty")
)

// CheckDifficultyConfig validates the retarget parameters. It is called at
// startup so that a misconfigured node refuses to run instead of forking off.
// CheckDifficultyConfig 校验难度调整参数，在启动时调用，使配置错误的节点拒绝运行而不是意外分叉。
func (c *ChainConfig) CheckDifficultyConfig() error {
	d := c.Difficulty
	switch {
	case d.TargetBlockTime == 0:
		return errZeroTargetBlockTime
	case d.DampFactor == 0:
		return errZeroDampFactor
	case d.ClampFactor == 0:
		return errZeroClampFactor
	case d.WindowSize == 0:
		return errZeroWindow
	case d.InitialDifficulty == nil || d.MinDifficulty == nil || d.MaxDifficulty == nil:
		return errMissingDifficulty
	case d.MinDifficulty.Gt(d.MaxDifficulty):
		return errDifficultyBounds
	}
	return nil
}

// CheckConfig runs every startup validation of the chain config.
func (c *ChainConfig) CheckConfig() error {
	if err := c.CheckConfigForkOrder(); err != nil {
		return err
	}
	if err := c.CheckDifficultyConfig(); err != nil {
		return fmt.Errorf("invalid difficulty config: %w", err)
	}
	return nil
}

// String implements fmt.Stringer.
func (c *ChainConfig) String() string {
	return strings.TrimSpace(c.Description())
}

// isBlockForked returns whether a fork scheduled at block s is active at the
// given head block.
// isBlockForked 返回在区块 s 计划的分叉是否在给定的头区块激活。
func isBlockForked(s, head *big.Int) bool {
	if s == nil || head == nil {
		return false
	}
	return s.Cmp(head) <= 0
}
