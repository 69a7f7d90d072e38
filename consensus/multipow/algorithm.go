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
	"crypto/md5"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies the hash function that produced a digest.
// Algorithm 标识生成摘要的哈希函数。
type Algorithm uint8

const (
	// Md5 is the legacy algorithm. Its 16 byte digest is repeated twice to fill
	// a 32 byte work value.
	// Md5 是旧算法，16 字节的摘要重复两次以填满 32 字节。
	Md5 Algorithm = iota
	// Sha3 is FIPS-202 SHA3-256.
	Sha3
	// Keccak is the pre-standard Keccak-256 used by Ethereum.
	Keccak
)

// Algorithms lists every supported algorithm in discriminant order.
var Algorithms = []Algorithm{Md5, Sha3, Keccak}

var errUnknownAlgorithm = errors.New("unknown hash algorithm")

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case Md5:
		return "md5"
	case Sha3:
		return "sha3"
	case Keccak:
		return "keccak"
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// IsValid reports whether a is one of the supported algorithms.
func (a Algorithm) IsValid() bool {
	return a <= Keccak
}

// ParseAlgorithm converts a name into an Algorithm.
// ParseAlgorithm 将名称转换为 Algorithm。
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md5":
		return Md5, nil
	case "sha3", "sha3-256":
		return Sha3, nil
	case "keccak", "keccak256", "keccak-256":
		return Keccak, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnknownAlgorithm, s)
}

// ParseMiningAlgorithm is like ParseAlgorithm but refuses the legacy algorithm,
// which nodes are no longer permitted to mine with.
// ParseMiningAlgorithm 与 ParseAlgorithm 类似，但拒绝节点不再被允许用于挖矿的旧算法。
func ParseMiningAlgorithm(s string) (Algorithm, error) {
	algo, err := ParseAlgorithm(s)
	if err != nil {
		return 0, err
	}
	if algo == Md5 {
		return 0, errors.New("mining with md5 is no longer supported, use sha3 or keccak")
	}
	return algo, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: %d", errUnknownAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(input []byte) error {
	algo, err := ParseAlgorithm(string(input))
	if err != nil {
		return err
	}
	*a = algo
	return nil
}

// Sum hashes data with the algorithm. It must only be called on valid
// algorithms.
// Sum 使用该算法对数据进行哈希。
func (a Algorithm) Sum(data []byte) common.Hash {
	var h common.Hash
	switch a {
	case Md5:
		sum := md5.Sum(data)
		copy(h[:16], sum[:])
		copy(h[16:], sum[:])
	case Sha3:
		h = sha3.Sum256(data)
	case Keccak:
		h = crypto.Keccak256Hash(data)
	default:
		panic(fmt.Sprintf("multipow: hashing with %v", a))
	}
	return h
}
