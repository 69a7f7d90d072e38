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

package node

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodeConfig(t *testing.T) *Config {
	return &Config{Name: "test node", DataDir: t.TempDir()}
}

type recordingService struct {
	name    string
	log     *[]string
	failErr error
}

func (s *recordingService) Start() error {
	if s.failErr != nil {
		return s.failErr
	}
	*s.log = append(*s.log, "start "+s.name)
	return nil
}

func (s *recordingService) Stop() error {
	*s.log = append(*s.log, "stop "+s.name)
	return nil
}

// Tests that an empty node can be started and closed, and that a second close
// reports the stopped state.
func TestNodeCloseMultipleTimes(t *testing.T) {
	stack, err := New(testNodeConfig(t))
	require.NoError(t, err)
	require.NoError(t, stack.Start())

	require.NoError(t, stack.Close())
	assert.ErrorIs(t, stack.Close(), ErrNodeStopped)
	assert.ErrorIs(t, stack.Start(), ErrNodeStopped)
	stack.Wait() // must not block once closed
}

// Tests that a second node cannot use the instance directory of a running one.
func TestNodeUsedDataDir(t *testing.T) {
	conf := testNodeConfig(t)
	original, err := New(conf)
	require.NoError(t, err)
	defer original.Close()

	_, err = New(conf)
	assert.ErrorIs(t, err, ErrDatadirUsed)

	// Once released, the directory is usable again.
	require.NoError(t, original.Close())
	duplicate, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, duplicate.Close())
}

func TestNodeInvalidName(t *testing.T) {
	_, err := New(&Config{Name: "a/b"})
	assert.Error(t, err)
}

// Tests that lifecycles start in registration order and stop in reverse.
func TestLifecycleOrdering(t *testing.T) {
	stack, err := New(&Config{Name: "ephemeral"})
	require.NoError(t, err)

	var events []string
	stack.RegisterLifecycle(&recordingService{name: "a", log: &events})
	stack.RegisterLifecycle(&recordingService{name: "b", log: &events})
	require.NoError(t, stack.Start())
	assert.ErrorIs(t, stack.Start(), ErrNodeRunning)
	require.NoError(t, stack.Close())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

// Tests that a failing lifecycle rolls back the already started ones.
func TestLifecycleStartFailure(t *testing.T) {
	stack, err := New(&Config{Name: "ephemeral"})
	require.NoError(t, err)

	var (
		events = []string{}
		boom   = errors.New("boom")
	)
	stack.RegisterLifecycle(&recordingService{name: "a", log: &events})
	stack.RegisterLifecycle(&recordingService{name: "b", log: &events, failErr: boom})
	assert.ErrorIs(t, stack.Start(), boom)
	assert.Equal(t, []string{"start a", "stop a"}, events)

	// The node closed itself.
	assert.ErrorIs(t, stack.Close(), ErrNodeStopped)
}

func TestRegisterLifecycleTwicePanics(t *testing.T) {
	stack, err := New(&Config{Name: "ephemeral"})
	require.NoError(t, err)
	defer stack.Close()

	var events []string
	svc := &recordingService{name: "a", log: &events}
	stack.RegisterLifecycle(svc)
	assert.Panics(t, func() { stack.RegisterLifecycle(svc) })
}

// Tests that databases opened through the node are persisted in the instance
// directory and closed together with the node.
func TestNodeOpenDatabase(t *testing.T) {
	conf := testNodeConfig(t)
	conf.DBEngine = "bolt"
	stack, err := New(conf)
	require.NoError(t, err)

	db, err := stack.OpenDatabase("chaindata", 16, 16, "", false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	assert.FileExists(t, filepath.Join(conf.DataDir, conf.Name, "chaindata", "chaindata.bolt"))
	assert.Len(t, stack.databases, 1)

	require.NoError(t, stack.Close())
	assert.Empty(t, stack.databases)

	_, err = stack.OpenDatabase("chaindata", 16, 16, "", false)
	assert.ErrorIs(t, err, ErrNodeStopped)

	// Reopening sees the stored value.
	stack, err = New(conf)
	require.NoError(t, err)
	defer stack.Close()
	db, err = stack.OpenDatabase("chaindata", 16, 16, "", true)
	require.NoError(t, err)
	have, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), have)

	// Closing the database directly removes it from the node.
	require.NoError(t, db.Close())
	assert.Empty(t, stack.databases)
}

func TestEphemeralNodeDatabase(t *testing.T) {
	stack, err := New(&Config{Name: "ephemeral"})
	require.NoError(t, err)
	defer stack.Close()

	assert.Empty(t, stack.ResolvePath("chaindata"))
	db, err := stack.OpenDatabase("chaindata", 0, 0, "", false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
}

func TestResolvePath(t *testing.T) {
	conf := &Config{Name: "inst", DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "inst", "chaindata"), conf.ResolvePath("chaindata"))
	assert.Equal(t, "/abs/path", conf.ResolvePath("/abs/path"))
}
