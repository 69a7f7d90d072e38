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

package core

import (
	"math/big"
	"testing"
	"time"

	"github.com/academy-pow/go-multipow/consensus"
	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/core/types"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGenesisTime = 1_000

// testChainConfig is the developer config with a difficulty low enough to
// find seals within a few dozen hashes.
func testChainConfig() *params.ChainConfig {
	cfg := *params.DevChainConfig
	cfg.Difficulty.InitialDifficulty = uint256.NewInt(16)
	return &cfg
}

func newTestEngine(t *testing.T, cfg *params.ChainConfig) *multipow.MultiPow {
	policy, err := multipow.NewForkPolicy(cfg, params.AllowAll)
	require.NoError(t, err)
	return multipow.New(policy)
}

func newTestBlockChain(t *testing.T, engine Engine) (*BlockChain, ethdb.KeyValueStore) {
	db := rawdb.NewMemoryDatabase()
	gspec := &Genesis{Config: testChainConfig(), Timestamp: testGenesisTime}
	_, err := gspec.Commit(db)
	require.NoError(t, err)

	chain, err := NewBlockChain(db, engine)
	require.NoError(t, err)
	t.Cleanup(chain.Stop)
	return chain, db
}

// sealHeader searches a nonce for header against difficulty.
func sealHeader(t *testing.T, header *types.Header, difficulty multipow.Threshold, algo multipow.Algorithm) *types.Header {
	t.Helper()
	compute := multipow.Compute{Difficulty: difficulty, PreHash: header.PreHash()}
	for i := 0; i < 1_000_000; i++ {
		seal := compute.Compute(algo)
		if multipow.MultiMeetsDifficulty(seal.Work, difficulty) {
			return header.WithSeal(seal.Encode())
		}
		compute.Nonce.AddUint64(&compute.Nonce, 1)
	}
	t.Fatalf("no seal found for %v", header)
	return nil
}

// makeSealedHeaders builds n sealed headers on top of parent. The difficulty
// state of parent is tracked locally, so none of the headers has to be known
// to the chain yet.
func makeSealedHeaders(t *testing.T, parent *types.Header, state *multipow.DifficultyState, algo multipow.Algorithm, n int) []*types.Header {
	t.Helper()
	state = state.Copy()
	headers := make([]*types.Header, 0, n)
	for i := 0; i < n; i++ {
		header := &types.Header{
			ParentHash: parent.Hash(),
			Number:     new(big.Int).Add(parent.Number, common.Big1),
			Time:       parent.Time + 5_000,
			PreDigest:  multipow.EncodePreDigest(algo),
		}
		header = sealHeader(t, header, state.Threshold(), algo)
		state.OnBlockFinalized(algo, header.Time)
		headers = append(headers, header)
		parent = header
	}
	return headers
}

// fakeHeader builds a child of parent with a seal claiming the given digest.
// Only the fake engine accepts it.
func fakeHeader(parent *types.Header, digest uint64) *types.Header {
	seal := multipow.Seal{Work: multipow.TaggedDigest{
		Algorithm: multipow.Sha3,
		Digest:    common.BigToHash(new(big.Int).SetUint64(digest)),
	}}
	return &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		Time:       parent.Time + 5_000,
		PreDigest:  multipow.EncodePreDigest(multipow.Sha3),
		Seal:       seal.Encode(),
	}
}

func TestInsertSealedHeaders(t *testing.T) {
	cfg := testChainConfig()
	chain, _ := newTestBlockChain(t, newTestEngine(t, cfg))
	genesis := chain.Genesis()

	state := multipow.NewDifficultyState(cfg.Difficulty)
	headers := makeSealedHeaders(t, genesis, state, multipow.Sha3, 5)

	n, err := chain.InsertHeaders(headers)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	head := chain.CurrentHeader()
	assert.Equal(t, headers[4].Hash(), head.Hash())
	for i, header := range headers {
		assert.Equal(t, header.Hash(), chain.GetHeaderByNumber(uint64(i+1)).Hash())
	}

	// The difficulty state stored for the head matches the locally derived one.
	for _, header := range headers {
		state.OnBlockFinalized(multipow.Sha3, header.Time)
	}
	have, ok := chain.GetDifficulty(head.Hash())
	require.True(t, ok)
	assert.Equal(t, state.Threshold(), have)
	assert.Equal(t, state.Current(multipow.Sha3), chain.CurrentDifficulty(multipow.Sha3))

	window := chain.DifficultyWindow(head.Hash(), multipow.Sha3)
	require.Len(t, window, int(cfg.Difficulty.WindowSize))
	assert.Nil(t, window[len(window)-6])
	assert.Equal(t, headers[4].Time, window[len(window)-1].Timestamp)
	assert.Nil(t, chain.DifficultyWindow(head.Hash(), multipow.Keccak)[len(window)-1], "keccak window untouched")

	// Only the sha3 component of the total work grew.
	td := chain.GetTd(head.Hash())
	require.NotNil(t, td)
	assert.True(t, td.Md5.IsZero())
	assert.True(t, td.Keccak.IsZero())
	assert.False(t, td.Sha3.IsZero())

	// Re-importing known headers is a no-op.
	n, err = chain.InsertHeaders(headers)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, head.Hash(), chain.CurrentHeader().Hash())
}

func TestInsertDecodedHeaderWithoutPreDigest(t *testing.T) {
	cfg := testChainConfig()
	chain, _ := newTestBlockChain(t, newTestEngine(t, cfg))
	genesis := chain.Genesis()

	state := multipow.NewDifficultyState(cfg.Difficulty)
	header := &types.Header{
		ParentHash: genesis.Hash(),
		Number:     big.NewInt(1),
		Time:       genesis.Time + 5_000,
	}
	header = sealHeader(t, header, state.Threshold(), multipow.Keccak)

	// A header received over the wire decodes the missing pre-digest as an
	// empty, non-nil slice.
	enc, err := rlp.EncodeToBytes(header)
	require.NoError(t, err)
	var decoded types.Header
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.NotNil(t, decoded.PreDigest)
	require.Empty(t, decoded.PreDigest)
	require.Equal(t, header.Hash(), decoded.Hash())

	require.NoError(t, chain.InsertHeader(&decoded))
	assert.Equal(t, header.Hash(), chain.CurrentHeader().Hash())

	// The seal alone tells which window advanced.
	window := chain.DifficultyWindow(header.Hash(), multipow.Keccak)
	require.NotNil(t, window[len(window)-1])
	assert.Equal(t, header.Time, window[len(window)-1].Timestamp)
}

func TestInsertHeaderRejects(t *testing.T) {
	cfg := testChainConfig()
	chain, _ := newTestBlockChain(t, newTestEngine(t, cfg))
	genesis := chain.Genesis()
	state := multipow.NewDifficultyState(cfg.Difficulty)
	good := makeSealedHeaders(t, genesis, state, multipow.Sha3, 1)[0]

	t.Run("tampered seal", func(t *testing.T) {
		bad := good.Copy()
		bad.Seal[len(bad.Seal)-1] ^= 0x01
		assert.ErrorIs(t, chain.InsertHeader(bad), consensus.ErrInvalidSeal)
	})
	t.Run("tampered header", func(t *testing.T) {
		bad := good.Copy()
		bad.Coinbase = common.Address{0x01}
		assert.ErrorIs(t, chain.InsertHeader(bad), consensus.ErrInvalidSeal)
	})
	t.Run("unknown parent", func(t *testing.T) {
		orphan := good.Copy()
		orphan.ParentHash = common.Hash{0xde, 0xad}
		assert.ErrorIs(t, chain.InsertHeader(orphan), consensus.ErrUnknownAncestor)
	})
	t.Run("legacy algorithm", func(t *testing.T) {
		md5 := makeSealedHeaders(t, genesis, state, multipow.Md5, 1)[0]
		assert.ErrorIs(t, chain.InsertHeader(md5), consensus.ErrInvalidSeal)
	})
	t.Run("old timestamp", func(t *testing.T) {
		early := good.Copy()
		early.Time = genesis.Time
		assert.ErrorIs(t, chain.InsertHeader(early), consensus.ErrOlderBlockTime)
	})
	assert.Equal(t, genesis.Hash(), chain.CurrentHeader().Hash())
	require.NoError(t, chain.InsertHeader(good))
	assert.Equal(t, good.Hash(), chain.CurrentHeader().Hash())
}

func TestInsertHeadersStopsAtBadSeal(t *testing.T) {
	cfg := testChainConfig()
	chain, _ := newTestBlockChain(t, newTestEngine(t, cfg))
	headers := makeSealedHeaders(t, chain.Genesis(), multipow.NewDifficultyState(cfg.Difficulty), multipow.Keccak, 4)

	// Sealing the third header against the wrong difficulty keeps its linkage
	// intact, only the in-batch seal check can catch it.
	headers[2] = sealHeader(t, headers[2].WithSeal(nil), multipow.Threshold{}, multipow.Keccak)

	n, err := chain.InsertHeaders(headers)
	assert.ErrorIs(t, err, consensus.ErrInvalidSeal)
	assert.Equal(t, 2, n)
	assert.Equal(t, headers[1].Hash(), chain.CurrentHeader().Hash())
}

func TestHeaviestChainBecomesHead(t *testing.T) {
	chain, _ := newTestBlockChain(t, multipow.NewFaker())
	genesis := chain.Genesis()

	a1 := fakeHeader(genesis, 100)
	require.NoError(t, chain.InsertHeader(a1))
	assert.Equal(t, a1.Hash(), chain.CurrentHeader().Hash())

	b1 := fakeHeader(genesis, 50)
	b1.Extra = []byte("b")
	require.NoError(t, chain.InsertHeader(b1))
	assert.Equal(t, a1.Hash(), chain.CurrentHeader().Hash(), "lighter sibling must not become head")

	b2 := fakeHeader(b1, 60)
	require.NoError(t, chain.InsertHeader(b2))
	assert.Equal(t, b2.Hash(), chain.CurrentHeader().Hash())
	assert.Equal(t, b1.Hash(), chain.GetHeaderByNumber(1).Hash())

	a2 := fakeHeader(a1, 20)
	require.NoError(t, chain.InsertHeader(a2))
	assert.Equal(t, a2.Hash(), chain.CurrentHeader().Hash())
	assert.Equal(t, a1.Hash(), chain.GetHeaderByNumber(1).Hash())

	// A shorter but heavier chain drops the canonical entries above it.
	c1 := fakeHeader(genesis, 1_000)
	c1.Extra = []byte("c")
	require.NoError(t, chain.InsertHeader(c1))
	assert.Equal(t, c1.Hash(), chain.CurrentHeader().Hash())
	assert.Nil(t, chain.GetHeaderByNumber(2))
	assert.Equal(t, uint64(1_000), chain.GetTd(c1.Hash()).Sha3.Uint64())
}

func TestChainHeadEvents(t *testing.T) {
	chain, _ := newTestBlockChain(t, multipow.NewFaker())

	events := make(chan ChainHeadEvent, 4)
	sub := chain.SubscribeChainHeadEvent(events)
	defer sub.Unsubscribe()

	header := fakeHeader(chain.Genesis(), 1)
	require.NoError(t, chain.InsertHeader(header))

	select {
	case ev := <-events:
		assert.Equal(t, header.Hash(), ev.Header.Hash())
	case <-time.After(time.Second):
		t.Fatal("no chain head event")
	}
}

func TestMetadataAndSubmitSeal(t *testing.T) {
	chain, _ := newTestBlockChain(t, newTestEngine(t, testChainConfig()))
	coinbase := common.Address{0xaa}

	md, err := chain.Metadata(coinbase, multipow.Sha3, []byte("x"))
	require.NoError(t, err)
	again, err := chain.Metadata(coinbase, multipow.Sha3, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, md.PreHash, again.PreHash, "template must be stable for the same head")
	assert.Equal(t, uint64(0), md.Parent)
	assert.Equal(t, md.Header.PreHash(), md.PreHash)

	other, err := chain.Metadata(coinbase, multipow.Keccak, []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, md.PreHash, other.PreHash)

	sealed := sealHeader(t, other.Header, other.Difficulty, multipow.Keccak)
	require.NoError(t, chain.SubmitSeal(other.Header, sealed.Seal))
	assert.Equal(t, sealed.Hash(), chain.CurrentHeader().Hash())

	next, err := chain.Metadata(coinbase, multipow.Keccak, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, sealed.Hash(), next.Header.ParentHash)
	assert.Equal(t, uint64(1), next.Parent)
}

func TestInstantSealBlocks(t *testing.T) {
	chain, _ := newTestBlockChain(t, multipow.NewFaker())

	for i := 0; i < 3; i++ {
		md, err := chain.Metadata(common.Address{}, multipow.Keccak, nil)
		require.NoError(t, err)
		require.NoError(t, chain.SubmitSeal(md.Header, nil))
	}
	head := chain.CurrentHeader()
	assert.Equal(t, uint64(3), head.NumberU64())
	assert.Equal(t, 0, chain.GetTd(head.Hash()).Cmp(&multipow.Threshold{}), "seal-less blocks carry no work")

	window := chain.DifficultyWindow(head.Hash(), multipow.Keccak)
	assert.NotNil(t, window[len(window)-3], "pre-digest still drives the retarget loop")
}

func TestFakeFailer(t *testing.T) {
	chain, _ := newTestBlockChain(t, multipow.NewFakeFailer(2))
	h1 := fakeHeader(chain.Genesis(), 1)
	require.NoError(t, chain.InsertHeader(h1))
	assert.ErrorIs(t, chain.InsertHeader(fakeHeader(h1, 1)), consensus.ErrInvalidSeal)
}

func TestReopenBlockChain(t *testing.T) {
	chain, db := newTestBlockChain(t, multipow.NewFaker())
	h1 := fakeHeader(chain.Genesis(), 7)
	h2 := fakeHeader(h1, 8)
	_, err := chain.InsertHeaders([]*types.Header{h1, h2})
	require.NoError(t, err)
	chain.Stop()
	assert.Error(t, chain.InsertHeader(fakeHeader(h2, 1)))

	reopened, err := NewBlockChain(db, multipow.NewFaker())
	require.NoError(t, err)
	assert.Equal(t, h2.Hash(), reopened.CurrentHeader().Hash())
	assert.Equal(t, uint64(15), reopened.GetTd(h2.Hash()).Sha3.Uint64())
}

func TestNewBlockChainWithoutGenesis(t *testing.T) {
	_, err := NewBlockChain(rawdb.NewMemoryDatabase(), multipow.NewFaker())
	assert.ErrorIs(t, err, ErrNoGenesis)
}

func TestDifficultyCollector(t *testing.T) {
	chain, _ := newTestBlockChain(t, multipow.NewFaker())
	collector := NewDifficultyCollector(chain)
	assert.Equal(t, 2*len(multipow.Algorithms), testutil.CollectAndCount(collector))
}
