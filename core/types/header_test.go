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

package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() *Header {
	return &Header{
		ParentHash: common.HexToHash("0xd4fe7bc31cedb7bfb8a345f31e668033056b2728"),
		Number:     big.NewInt(100),
		Time:       1698771234000,
		Coinbase:   common.HexToAddress("0x00000000000000000000000000000000deadbeef"),
		PreDigest:  []byte{1},
	}
}

func TestPreHashIgnoresSeal(t *testing.T) {
	header := testHeader()
	sealed := header.WithSeal([]byte{1, 2, 3})

	assert.Equal(t, header.PreHash(), sealed.PreHash())
	assert.NotEqual(t, header.Hash(), sealed.Hash())
	assert.Nil(t, header.Seal, "WithSeal must not modify the receiver")
}

func TestPreHashCoversPreDigest(t *testing.T) {
	header := testHeader()
	other := header.Copy()
	other.PreDigest = []byte{2}
	assert.NotEqual(t, header.PreHash(), other.PreHash())
}

func TestHeaderRLP(t *testing.T) {
	sealed := testHeader().WithSeal([]byte{9, 9})
	blob, err := rlp.EncodeToBytes(sealed)
	require.NoError(t, err)

	var decoded Header
	require.NoError(t, rlp.DecodeBytes(blob, &decoded))
	assert.Equal(t, sealed.Hash(), decoded.Hash())
	assert.Equal(t, sealed.Seal, decoded.Seal)
}

func TestCopyIsDeep(t *testing.T) {
	header := testHeader()
	cpy := header.Copy()
	cpy.Number.SetUint64(5)
	cpy.PreDigest[0] = 7
	assert.Equal(t, uint64(100), header.NumberU64())
	assert.Equal(t, byte(1), header.PreDigest[0])
}
