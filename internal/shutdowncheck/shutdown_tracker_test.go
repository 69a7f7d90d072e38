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

package shutdowncheck

import (
	"testing"

	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownTracker(t *testing.T) {
	db := rawdb.NewMemoryDatabase()

	// A clean run leaves no marker behind.
	tracker := NewShutdownTracker(db)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.Stop())

	previous, _, err := rawdb.PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Empty(t, previous)

	// The marker pushed above simulates a crash, the next run reports it.
	tracker = NewShutdownTracker(db)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.Stop())

	previous, _, err = rawdb.PushUncleanShutdownMarker(db)
	require.NoError(t, err)
	assert.Len(t, previous, 1)
}
