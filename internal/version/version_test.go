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

package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBuildSettings(t *testing.T) {
	info, ok := parseBuildSettings([]debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123456789abcdef0123456789abcdef01234567"},
		{Key: "vcs.time", Value: "2024-05-06T07:08:09Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	assert.True(t, ok)
	assert.Equal(t, "20240506", info.Date)
	assert.True(t, info.Dirty)
	assert.Equal(t, "01234567-20240506-dirty", info.String())

	_, ok = parseBuildSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}})
	assert.False(t, ok)
}

func TestWithCommit(t *testing.T) {
	assert.Equal(t, WithMeta, WithCommit("", ""))
	assert.Equal(t, WithMeta+"-01234567-20240506", WithCommit("0123456789abcdef", "20240506"))
	assert.True(t, strings.HasPrefix(WithMeta, Semantic))
}

func TestInfo(t *testing.T) {
	info := Info()
	assert.Contains(t, info, "Version: "+WithMeta)
	assert.Contains(t, info, "Go Version:")
}
