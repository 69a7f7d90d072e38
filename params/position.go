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

package params

import (
	"fmt"
	"strings"
)

// Position is the stance a node operator takes at the contentious split.
// Position 是节点运营者在争议性分裂时所持的立场。
type Position int

const (
	// AllowAll accepts blocks from both camps after the split.
	// AllowAll 在分裂后接受两个阵营的区块。
	AllowAll Position = iota
	// OnlySha3 only accepts Sha3 blocks after the split.
	OnlySha3
	// OnlyKeccak only accepts Keccak blocks after the split.
	OnlyKeccak
	// FollowMining takes the side of whatever algorithm the local node mines
	// with. It has to be resolved into one of the concrete positions before a
	// fork policy is built.
	// FollowMining 跟随本地节点挖矿所用的算法，在构建分叉策略之前必须解析为具体立场。
	FollowMining
)

var positionNames = map[Position]string{
	AllowAll:     "allow-all",
	OnlySha3:     "only-sha3",
	OnlyKeccak:   "only-keccak",
	FollowMining: "follow-mining",
}

// String implements fmt.Stringer.
func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// IsConcrete reports whether the position can be handed to a fork policy as is.
func (p Position) IsConcrete() bool {
	return p == AllowAll || p == OnlySha3 || p == OnlyKeccak
}

// ParsePosition converts a command line or config file value into a Position.
// Unknown values are a configuration error and must stop the node.
// ParsePosition 将命令行或配置文件的值转换为 Position，未知值属于配置错误，必须让节点停止。
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow-all", "allowall", "all", "":
		return AllowAll, nil
	case "only-sha3", "onlysha3", "sha3":
		return OnlySha3, nil
	case "only-keccak", "onlykeccak", "keccak":
		return OnlyKeccak, nil
	case "follow-mining", "followmining", "follow":
		return FollowMining, nil
	}
	return 0, fmt.Errorf("invalid political position %q (want allow-all, only-sha3, only-keccak or follow-mining)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	if _, ok := positionNames[p]; !ok {
		return nil, fmt.Errorf("invalid political position %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(input []byte) error {
	pos, err := ParsePosition(string(input))
	if err != nil {
		return err
	}
	*p = pos
	return nil
}

// ResolvePosition turns FollowMining into the concrete position matching the
// algorithm the local node mines with. Md5 has no camp at the split, so an md5
// miner takes no side. Concrete positions are returned as is. The resolution
// depends on local configuration only and has to happen once at startup,
// before the fork policy is built.
// ResolvePosition 根据本地挖矿算法将 FollowMining 解析为具体立场，md5 在分裂时没有阵营，因此不选边。
// 必须在启动时构建分叉策略之前完成。
func ResolvePosition(pos Position, miningAlgo string) (Position, error) {
	if pos != FollowMining {
		if !pos.IsConcrete() {
			return 0, fmt.Errorf("invalid political position %d", int(pos))
		}
		return pos, nil
	}
	switch strings.ToLower(strings.TrimSpace(miningAlgo)) {
	case "sha3":
		return OnlySha3, nil
	case "keccak":
		return OnlyKeccak, nil
	case "md5":
		return AllowAll, nil
	}
	return 0, fmt.Errorf("cannot follow unknown mining algorithm %q", miningAlgo)
}
