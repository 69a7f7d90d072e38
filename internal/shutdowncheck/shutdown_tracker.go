// Copyright 2021 The go-ethereum Authors
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

// Package shutdowncheck reports crashes of previous runs of the node.
package shutdowncheck

import (
	"time"

	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
)

// updateInterval is how often the marker of the running instance is refreshed.
const updateInterval = 5 * time.Minute

// ShutdownTracker is a node lifecycle that reports previous unclean shutdowns
// when started. It has to be registered after the chain so that it is stopped
// before the chain database is closed.
// ShutdownTracker 是在启动时报告之前非正常关机的节点生命周期，必须在链之后注册，以便在链数据库关闭前停止。
type ShutdownTracker struct {
	db     ethdb.KeyValueStore
	stopCh chan struct{}
	done   chan struct{}
}

// NewShutdownTracker creates a new ShutdownTracker instance and has
// no other side-effect.
func NewShutdownTracker(db ethdb.KeyValueStore) *ShutdownTracker {
	return &ShutdownTracker{
		db:     db,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// MarkStartup pushes a new startup marker to the database and reports the
// markers that previous runs left behind.
// MarkStartup 向数据库推送新的启动标记，并报告之前运行遗留的标记。
func (t *ShutdownTracker) MarkStartup() {
	uncleanShutdowns, discards, err := rawdb.PushUncleanShutdownMarker(t.db)
	if err != nil {
		log.Error("Could not update unclean-shutdown-marker list", "error", err)
		return
	}
	if discards > 0 {
		log.Warn("Old unclean shutdowns found", "count", discards)
	}
	for _, tstamp := range uncleanShutdowns {
		t := time.Unix(int64(tstamp), 0)
		log.Warn("Unclean shutdown detected", "booted", t, "age", common.PrettyAge(t))
	}
}

// Start marks the startup and runs a loop refreshing the marker timestamp.
// Start 标记启动并运行刷新标记时间戳的循环。
func (t *ShutdownTracker) Start() error {
	t.MarkStartup()
	go func() {
		defer close(t.done)

		ticker := time.NewTicker(updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rawdb.UpdateUncleanShutdownMarker(t.db)
			case <-t.stopCh:
				return
			}
		}
	}()
	return nil
}

// Stop ends the update loop and clears the marker of this run.
func (t *ShutdownTracker) Stop() error {
	close(t.stopCh)
	<-t.done
	rawdb.PopUncleanShutdownMarker(t.db)
	return nil
}
