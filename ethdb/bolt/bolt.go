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

// Package bolt implements the key-value database layer on top of bbolt, a
// single file B+tree store.
package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	bbolt "go.etcd.io/bbolt"
)

var (
	// errNotFound is returned if a key is requested that is not found in the
	// provided database.
	// 如果请求的键在数据库中未找到，则返回 errNotFound。
	errNotFound = errors.New("not found")

	// errClosed is returned if a database was already closed at the invocation
	// of a data access operation.
	errClosed = errors.New("database closed")

	bucketName = []byte("multipow")
)

// Database is a persistent key-value store backed by a single bbolt file.
// Apart from basic data storage functionality it also supports batch writes
// and iterating over the keyspace in binary-alphabetical order.
// Database 是由单个 bbolt 文件支持的持久化键值存储，支持批量写入以及按二进制字母顺序遍历键空间。
type Database struct {
	fn string    // filename for reporting
	db *bbolt.DB // bbolt instance

	quitLock sync.RWMutex // Mutex protecting the quit channel and the closed flag
	closed   bool

	log log.Logger // Contextual logger tracking the database path
}

// New returns a wrapped bbolt object. The namespace is only used for logging.
// New 返回一个封装的 bbolt 对象，namespace 仅用于日志。
func New(file string, namespace string, readonly bool) (*Database, error) {
	logger := log.New("database", file)
	opts := &bbolt.Options{Timeout: time.Second, ReadOnly: readonly}

	db, err := bbolt.Open(file, 0o600, opts)
	if err != nil {
		return nil, err
	}
	if !readonly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	logger.Info("Allocated bolt database", "namespace", namespace, "readonly", readonly)
	return &Database{fn: file, db: db, log: logger}, nil
}

// Close stops the database and releases the underlying file.
// Close 停止数据库并释放底层文件。
func (d *Database) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// view runs fn in a read transaction on the bucket.
func (d *Database) view(fn func(b *bbolt.Bucket) error) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return errClosed
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return errNotFound
		}
		return fn(b)
	})
}

// update runs fn in a read-write transaction on the bucket.
func (d *Database) update(fn func(b *bbolt.Bucket) error) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return errClosed
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	var found bool
	err := d.view(func(b *bbolt.Bucket) error {
		found = b.Get(key) != nil
		return nil
	})
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	return found, err
}

// Get retrieves the given key if it's present in the key-value store. The
// returned slice is a copy, bbolt values are only valid inside a transaction.
// Get 检索键值存储中的给定键，返回值是副本，bbolt 的值只在事务内有效。
func (d *Database) Get(key []byte) ([]byte, error) {
	var value []byte
	err := d.view(func(b *bbolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return errNotFound
		}
		value = common.CopyBytes(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put inserts the given value into the key-value store.
func (d *Database) Put(key []byte, value []byte) error {
	return d.update(func(b *bbolt.Bucket) error {
		return b.Put(key, common.CopyBytes(value))
	})
}

// Delete removes the key from the key-value store.
func (d *Database) Delete(key []byte) error {
	return d.update(func(b *bbolt.Bucket) error {
		return b.Delete(key)
	})
}

// DeleteRange deletes all of the keys (and values) in the range [start,end)
// (inclusive on start, exclusive on end).
// DeleteRange 删除范围 [start,end) 内的所有键和值。
func (d *Database) DeleteRange(start, end []byte) error {
	return d.update(func(b *bbolt.Bucket) error {
		// Deleting through the cursor while stepping it skips entries, collect first.
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(start); k != nil && bytes.Compare(k, end) < 0; k, _ = c.Next() {
			keys = append(keys, common.CopyBytes(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (d *Database) NewBatch() ethdb.Batch {
	return &batch{db: d}
}

// NewBatchWithSize creates a write-only database batch with pre-allocated buffer.
func (d *Database) NewBatchWithSize(size int) ethdb.Batch {
	return &batch{db: d, writes: make([]keyvalue, 0, size/64)}
}

// NewIterator creates a binary-alphabetical iterator over a subset of database
// content with a particular key prefix, starting at a particular initial key
// (or after, if it does not exist). The content is snapshotted at creation.
// NewIterator 在具有特定键前缀的数据库内容子集上创建二进制字母顺序的迭代器，内容在创建时生成快照。
func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	it := &iterator{index: -1}
	it.err = d.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.Seek(append(common.CopyBytes(prefix), start...)); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			it.keys = append(it.keys, common.CopyBytes(k))
			it.values = append(it.values, common.CopyBytes(v))
		}
		return nil
	})
	return it
}

// Stat returns the statistic data of the database.
func (d *Database) Stat() (string, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return "", errClosed
	}
	stats := d.db.Stats()
	return fmt.Sprintf("file: %s\nfree pages: %d\npending pages: %d\nread txs: %d\nwrite txs: %d\n",
		d.fn, stats.FreePageN, stats.PendingPageN, stats.TxN, stats.TxStats.GetWrite()), nil
}

// Compact is a no-op, bbolt reuses freed pages instead of compacting in place.
func (d *Database) Compact(start []byte, limit []byte) error {
	return nil
}

// Path returns the path to the database file.
func (d *Database) Path() string {
	return d.fn
}

// keyvalue is a key-value tuple tagged with a deletion field to allow creating
// bolt batches.
type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

// batch is a write-only bolt batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
// batch 是只写的批次，在调用 Write 时将更改提交到宿主数据库，不能并发使用。
type batch struct {
	db     *Database
	writes []keyvalue
	size   int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{common.CopyBytes(key), common.CopyBytes(value), false})
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{common.CopyBytes(key), nil, true})
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to disk in a single transaction.
// Write 在单个事务中将累积的数据刷新到磁盘。
func (b *batch) Write() error {
	return b.db.update(func(bucket *bbolt.Bucket) error {
		for _, kv := range b.writes {
			var err error
			if kv.delete {
				err = bucket.Delete(kv.key)
			} else {
				err = bucket.Put(kv.key, kv.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

// Replay replays the batch contents.
func (b *batch) Replay(w ethdb.KeyValueWriter) error {
	for _, kv := range b.writes {
		if kv.delete {
			if err := w.Delete(kv.key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// iterator can walk over the (potentially partial) keyspace of a bolt
// database. Internally it is a deep copy of the entries taken at creation.
// iterator 可以遍历 bolt 数据库的（可能是部分的）键空间，内部是创建时条目的深拷贝。
type iterator struct {
	index  int
	keys   [][]byte
	values [][]byte
	err    error
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (it *iterator) Next() bool {
	if it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

// Error returns any accumulated error. A missing bucket is an empty database
// and not an error.
func (it *iterator) Error() error {
	if errors.Is(it.err, errNotFound) {
		return nil
	}
	return it.err
}

// Key returns the key of the current key/value pair, or nil if done.
func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.keys[it.index]
}

// Value returns the value of the current key/value pair, or nil if done.
func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.values[it.index]
}

// Release releases associated resources.
func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}
