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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// 封印的线路格式是共识关键的：所有字段定宽，整数为小端序，枚举为单字节判别值。
// 任何偏差都会导致网络意外分叉。

const (
	uintLength      = 32
	thresholdLength = 3 * uintLength
	digestLength    = 1 + uintLength

	// SealLength is the size of an encoded Seal: difficulty, work and nonce.
	SealLength = thresholdLength + digestLength + uintLength
	// ComputeLength is the size of an encoded Compute: difficulty, pre-hash and nonce.
	ComputeLength = thresholdLength + uintLength + uintLength
	// PreDigestLength is the size of an encoded pre-digest, the algorithm tag alone.
	PreDigestLength = 1
)

var (
	errSealLength      = errors.New("invalid seal length")
	errPreDigestLength = errors.New("invalid pre-digest length")
)

// putUint256 writes x as 32 little-endian bytes.
func putUint256(b []byte, x *uint256.Int) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*8:], x[i])
	}
}

// getUint256 reads 32 little-endian bytes into x.
func getUint256(b []byte, x *uint256.Int) {
	for i := 0; i < 4; i++ {
		x[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
}

func (t *Threshold) encodeTo(b []byte) {
	putUint256(b[0:], &t.Md5)
	putUint256(b[uintLength:], &t.Sha3)
	putUint256(b[2*uintLength:], &t.Keccak)
}

func (t *Threshold) decodeFrom(b []byte) {
	getUint256(b[0:], &t.Md5)
	getUint256(b[uintLength:], &t.Sha3)
	getUint256(b[2*uintLength:], &t.Keccak)
}

// EncodeThreshold returns the canonical encoding of a threshold.
func EncodeThreshold(t Threshold) []byte {
	b := make([]byte, thresholdLength)
	t.encodeTo(b)
	return b
}

// DecodeThreshold parses a threshold produced by EncodeThreshold.
func DecodeThreshold(raw []byte) (Threshold, error) {
	var t Threshold
	if len(raw) != thresholdLength {
		return t, fmt.Errorf("invalid threshold length: have %d, want %d", len(raw), thresholdLength)
	}
	t.decodeFrom(raw)
	return t, nil
}

// Encode returns the canonical encoding of the seal.
// Encode 返回封印的规范编码。
func (s *Seal) Encode() []byte {
	b := make([]byte, SealLength)
	s.Difficulty.encodeTo(b)
	b[thresholdLength] = byte(s.Work.Algorithm)
	copy(b[thresholdLength+1:], s.Work.Digest[:])
	putUint256(b[thresholdLength+digestLength:], &s.Nonce)
	return b
}

// DecodeSeal parses a raw seal. The input must have exactly SealLength bytes
// and carry a known algorithm tag.
// DecodeSeal 解析原始封印，输入必须恰好为 SealLength 字节并携带已知的算法标签。
func DecodeSeal(raw []byte) (*Seal, error) {
	if len(raw) != SealLength {
		return nil, fmt.Errorf("%w: have %d, want %d", errSealLength, len(raw), SealLength)
	}
	seal := new(Seal)
	seal.Difficulty.decodeFrom(raw)
	algo := Algorithm(raw[thresholdLength])
	if !algo.IsValid() {
		return nil, fmt.Errorf("%w: tag %d", errUnknownAlgorithm, raw[thresholdLength])
	}
	seal.Work.Algorithm = algo
	copy(seal.Work.Digest[:], raw[thresholdLength+1:thresholdLength+digestLength])
	getUint256(raw[thresholdLength+digestLength:], &seal.Nonce)
	return seal, nil
}

// Encode returns the canonical encoding of the puzzle input, in the order
// difficulty, pre-hash, nonce.
// Encode 按难度、预哈希、随机数的顺序返回谜题输入的规范编码。
func (c *Compute) Encode() []byte {
	b := make([]byte, ComputeLength)
	c.encodeTo(b)
	return b
}

func (c *Compute) encodeTo(b []byte) {
	c.Difficulty.encodeTo(b)
	copy(b[thresholdLength:], c.PreHash[:])
	putUint256(b[thresholdLength+uintLength:], &c.Nonce)
}

// EncodePreDigest returns the pre-digest announcing the mining algorithm.
func EncodePreDigest(algo Algorithm) []byte {
	return []byte{byte(algo)}
}

// DecodePreDigest parses a pre-digest into the algorithm it announces.
// DecodePreDigest 将预摘要解析为其声明的算法。
func DecodePreDigest(raw []byte) (Algorithm, error) {
	if len(raw) != PreDigestLength {
		return 0, fmt.Errorf("%w: have %d, want %d", errPreDigestLength, len(raw), PreDigestLength)
	}
	algo := Algorithm(raw[0])
	if !algo.IsValid() {
		return 0, fmt.Errorf("%w: tag %d", errUnknownAlgorithm, raw[0])
	}
	return algo, nil
}
