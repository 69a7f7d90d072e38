// Copyright 2018 The go-ethereum Authors
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

package rawdb

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/academy-pow/go-multipow/ethdb/bolt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/ethdb/pebble"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
)

// Supported storage engines.
const (
	DBMemory  = "memory"
	DBPebble  = "pebble"
	DBLeveldb = "leveldb"
	DBBolt    = "bolt"
)

// boltFile is the name of the single database file of the bolt engine.
const boltFile = "chaindata.bolt"

// OpenOptions contains the options to apply when opening a database.
// OpenOptions 包含打开数据库时应用的选项。
type OpenOptions struct {
	Type      string // "memory", "leveldb", "pebble" or "bolt"; empty picks the existing one or pebble
	Directory string // the datadir
	Namespace string // the namespace for database relevant metrics
	Cache     int    // the capacity(in megabytes) of the data caching
	Handles   int    // number of files to be open simultaneously
	ReadOnly  bool
}

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.KeyValueStore {
	return memorydb.New()
}

// PreexistingDatabase checks the given data directory whether a database is already
// instantiated at that location, and if so, returns the type of database (or the
// empty string).
// PreexistingDatabase 检查给定的数据目录是否已经存在数据库实例，如果存在，则返回数据库的类型（否则返回空字符串）。
func PreexistingDatabase(path string) string {
	if _, err := os.Stat(filepath.Join(path, boltFile)); err == nil {
		return DBBolt
	}
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); err != nil {
		return "" // No pre-existing db
	}
	if matches, err := filepath.Glob(filepath.Join(path, "OPTIONS*")); len(matches) > 0 || err != nil {
		if err != nil {
			panic(err) // only possible if the pattern is malformed
		}
		return DBPebble
	}
	return DBLeveldb
}

// Open opens the key-value store selected by the options. An existing database
// always wins over the requested type, mixing engines in one datadir is
// refused.
// Open 打开选项选定的键值存储，已存在的数据库优先于请求的类型，拒绝在同一数据目录中混用引擎。
func Open(o OpenOptions) (ethdb.KeyValueStore, error) {
	if o.Type == DBMemory || o.Directory == "" {
		return NewMemoryDatabase(), nil
	}
	existing := PreexistingDatabase(o.Directory)
	if existing != "" && o.Type != "" && o.Type != existing {
		return nil, fmt.Errorf("db.engine choice was %v but found pre-existing %v database in specified data directory", o.Type, existing)
	}
	kind := o.Type
	if existing != "" {
		kind = existing
	}
	switch kind {
	case DBBolt:
		if err := os.MkdirAll(o.Directory, 0o700); err != nil {
			return nil, err
		}
		log.Info("Using bolt as the backing database")
		db, err := bolt.New(filepath.Join(o.Directory, boltFile), o.Namespace, o.ReadOnly)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DBLeveldb:
		log.Info("Using leveldb as the backing database")
		db, err := leveldb.New(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DBPebble, "":
		log.Info("Using pebble as the backing database")
		db, err := pebble.New(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly, false)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown db.engine %v", kind)
}

type counter uint64

func (c counter) String() string {
	return fmt.Sprintf("%d", c)
}

// stat stores sizes and count for a parameter
type stat struct {
	size  common.StorageSize
	count counter
}

// Add size to the stat and increase the counter by 1
func (s *stat) Add(size common.StorageSize) {
	s.size += size
	s.count++
}

func (s *stat) Size() string {
	return s.size.String()
}

func (s *stat) Count() string {
	return s.count.String()
}

// InspectDatabase traverses the entire database and checks the size
// of all different categories of data.
// InspectDatabase 遍历整个数据库并检查所有不同类别数据的大小。
func InspectDatabase(db ethdb.KeyValueStore, w io.Writer) error {
	it := db.NewIterator(nil, nil)
	defer it.Release()

	var (
		count  int64
		start  = time.Now()
		logged = time.Now()

		headers         stat
		totals          stat
		numHashPairings stat
		hashNumPairings stat
		difficulties    stat
		metadata        stat
		unaccounted     stat

		total common.StorageSize
	)
	for it.Next() {
		var (
			key  = it.Key()
			size = common.StorageSize(len(key) + len(it.Value()))
		)
		total += size
		switch {
		case bytes.HasPrefix(key, headerPrefix) && len(key) == (len(headerPrefix)+8+common.HashLength):
			headers.Add(size)
		case bytes.HasPrefix(key, headerPrefix) && bytes.HasSuffix(key, headerTDSuffix) && len(key) == (len(headerPrefix)+8+common.HashLength+len(headerTDSuffix)):
			totals.Add(size)
		case bytes.HasPrefix(key, headerPrefix) && bytes.HasSuffix(key, headerHashSuffix) && len(key) == (len(headerPrefix)+8+len(headerHashSuffix)):
			numHashPairings.Add(size)
		case bytes.HasPrefix(key, headerNumberPrefix) && len(key) == (len(headerNumberPrefix)+common.HashLength):
			hashNumPairings.Add(size)
		case bytes.HasPrefix(key, difficultyPrefix) && len(key) == (len(difficultyPrefix)+8+common.HashLength):
			difficulties.Add(size)
		case bytes.Equal(key, databaseVersionKey), bytes.Equal(key, headHeaderKey), bytes.Equal(key, uncleanShutdownKey), bytes.HasPrefix(key, configPrefix):
			metadata.Add(size)
		default:
			unaccounted.Add(size)
		}
		count++
		if count%1000 == 0 && time.Since(logged) > 8*time.Second {
			log.Info("Inspecting database", "count", count, "elapsed", common.PrettyDuration(time.Since(start)))
			logged = time.Now()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	stats := [][]string{
		{"Key-Value store", "Headers", headers.Size(), headers.Count()},
		{"Key-Value store", "Total work", totals.Size(), totals.Count()},
		{"Key-Value store", "Block number->hash", numHashPairings.Size(), numHashPairings.Count()},
		{"Key-Value store", "Block hash->number", hashNumPairings.Size(), hashNumPairings.Count()},
		{"Key-Value store", "Difficulty states", difficulties.Size(), difficulties.Count()},
		{"Key-Value store", "Singleton metadata", metadata.Size(), metadata.Count()},
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Database", "Category", "Size", "Items"})
	table.SetFooter([]string{"", "Total", total.String(), " "})
	table.AppendBulk(stats)
	table.Render()

	if unaccounted.size > 0 {
		log.Error("Database contains unaccounted data", "size", unaccounted.size, "count", unaccounted.count)
	}
	return nil
}
