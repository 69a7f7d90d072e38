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
	"math/big"

	"github.com/academy-pow/go-multipow/params"
	mapset "github.com/deckarep/golang-set/v2"
)

var errUnresolvedPosition = errors.New("political position must be resolved before building a fork policy")

// ForkPolicy decides which algorithms are legal for a block built on top of a
// parent at a given height. Implementations are pure functions of the height
// and their configuration.
// ForkPolicy 决定在给定高度的父区块之上构建的区块可以使用哪些算法，实现是高度和配置的纯函数。
type ForkPolicy interface {
	// IsAlgorithmAllowed reports whether algo may seal a child of the parent at
	// the given height.
	IsAlgorithmAllowed(parent uint64, algo Algorithm) bool

	// AllowedAlgorithms returns every algorithm that may seal a child of the
	// parent at the given height.
	AllowedAlgorithms(parent uint64) mapset.Set[Algorithm]

	String() string
}

// NewForkPolicy builds the fork policy selected by the chain config. The
// position must already be resolved, FollowMining is rejected.
// NewForkPolicy 构建链配置选定的分叉策略，立场必须已经解析，FollowMining 会被拒绝。
func NewForkPolicy(config *params.ChainConfig, position params.Position) (ForkPolicy, error) {
	if !position.IsConcrete() {
		return nil, fmt.Errorf("%w: %v", errUnresolvedPosition, position)
	}
	if config.ManualForks {
		return manualPolicy{}, nil
	}
	if err := config.CheckConfigForkOrder(); err != nil {
		return nil, err
	}
	return &automaticPolicy{config: config, position: position}, nil
}

// automaticPolicy reads the fork heights from the chain config. It walks
// through four regimes: legacy only, all algorithms, legacy removed and the
// contentious split where the node's position picks a camp.
type automaticPolicy struct {
	config   *params.ChainConfig
	position params.Position
}

func (p *automaticPolicy) IsAlgorithmAllowed(parent uint64, algo Algorithm) bool {
	num := new(big.Int).SetUint64(parent)
	switch {
	case !p.config.IsSecondaryAlgorithms(num):
		return algo == Md5
	case !p.config.IsLegacyRemoved(num):
		return algo.IsValid()
	case !p.config.IsSplit(num):
		return algo == Sha3 || algo == Keccak
	}
	switch p.position {
	case params.AllowAll:
		return algo == Sha3 || algo == Keccak
	case params.OnlySha3:
		return algo == Sha3
	case params.OnlyKeccak:
		return algo == Keccak
	}
	return false
}

func (p *automaticPolicy) AllowedAlgorithms(parent uint64) mapset.Set[Algorithm] {
	return allowedBy(p, parent)
}

func (p *automaticPolicy) String() string {
	return fmt.Sprintf("automatic(%v)", p.position)
}

// manualPolicy uses the hard-coded fork heights of params and has no
// contentious split.
type manualPolicy struct{}

func (manualPolicy) IsAlgorithmAllowed(parent uint64, algo Algorithm) bool {
	switch {
	case parent < params.ManualAddSecondaryAlgorithmsBlock:
		return algo == Md5
	case parent < params.ManualRemoveLegacyAlgorithmBlock:
		return algo.IsValid()
	}
	return algo == Sha3 || algo == Keccak
}

func (p manualPolicy) AllowedAlgorithms(parent uint64) mapset.Set[Algorithm] {
	return allowedBy(p, parent)
}

func (manualPolicy) String() string { return "manual" }

func allowedBy(p ForkPolicy, parent uint64) mapset.Set[Algorithm] {
	set := mapset.NewThreadUnsafeSet[Algorithm]()
	for _, algo := range Algorithms {
		if p.IsAlgorithmAllowed(parent, algo) {
			set.Add(algo)
		}
	}
	return set
}
