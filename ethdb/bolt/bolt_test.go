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

package bolt

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ethdb.KeyValueStore = (*Database)(nil)

func newTestDatabase(t *testing.T) *Database {
	db, err := New(filepath.Join(t.TempDir(), "chaindata.bolt"), "test/", false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetDelete(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.Get([]byte("missing"))
	assert.ErrorIs(t, err, errNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	value, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, db.Delete([]byte("k")))
	has, err = db.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestIterator(t *testing.T) {
	db := newTestDatabase(t)
	for _, k := range []string{"a1", "a2", "a3", "b1", "a0"} {
		require.NoError(t, db.Put([]byte(k), []byte("v"+k)))
	}
	it := db.NewIterator([]byte("a"), []byte("1"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		assert.Equal(t, "v"+string(it.Key()), string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"a1", "a2", "a3"}, keys)
	assert.Nil(t, it.Key())
}

func TestBatchAndDeleteRange(t *testing.T) {
	db := newTestDatabase(t)
	b := db.NewBatch()
	for _, k := range []string{"k1", "k2", "k3", "k4"} {
		require.NoError(t, b.Put([]byte(k), []byte{1}))
	}
	require.NoError(t, b.Delete([]byte("k4")))
	assert.Equal(t, 4*3+2, b.ValueSize())

	has, _ := db.Has([]byte("k1"))
	assert.False(t, has, "batch must not write before Write")
	require.NoError(t, b.Write())

	require.NoError(t, db.DeleteRange([]byte("k2"), []byte("k3")))
	for k, want := range map[string]bool{"k1": true, "k2": false, "k3": true, "k4": false} {
		has, err := db.Has([]byte(k))
		require.NoError(t, err)
		assert.Equal(t, want, has, k)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaindata.bolt")
	db, err := New(path, "", false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("head"), []byte{7}))
	require.NoError(t, db.Close())

	_, err = db.Get([]byte("head"))
	assert.ErrorIs(t, err, errClosed)

	db, err = New(path, "", true)
	require.NoError(t, err)
	defer db.Close()
	value, err := db.Get([]byte("head"))
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, value)
}
