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

package flags

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathExpansion(t *testing.T) {
	home := HomeDir()
	tests := map[string]string{
		"/home/someuser/tmp": "/home/someuser/tmp",
		"~/tmp":              filepath.Join(home, "tmp"),
		"$DDDXXX/a/b":        "/tmp/a/b",
		"/a/b/":              "/a/b",
	}
	t.Setenv("DDDXXX", "/tmp")
	for test, expected := range tests {
		assert.Equal(t, expected, expandPath(test), test)
	}
}

func TestParseUint256(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
		ok    bool
	}{
		{"0", 0, true},
		{"4000000", 4_000_000, true},
		{"0x3d0900", 4_000_000, true},
		{"0x000a", 10, true},
		{"0x", 0, true},
		{" 17 ", 17, true},
		{"-1", 0, false},
		{"0xzz", 0, false},
		{"seven", 0, false},
	}
	for _, tt := range tests {
		have, err := ParseUint256(tt.input)
		if !tt.ok {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, have.Uint64(), tt.input)
	}
	max, err := ParseUint256("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).SetAllOne(), max)
}

func TestUint256Flag(t *testing.T) {
	f := &Uint256Flag{Name: "difficulty", Value: uint256.NewInt(42)}
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, f.Apply(set))
	assert.Equal(t, "42", f.GetDefaultText())

	require.NoError(t, set.Parse([]string{"--difficulty", "0x10"}))
	assert.Equal(t, uint64(16), f.Value.Uint64())
	assert.Equal(t, "42", f.GetDefaultText(), "default must survive parsing")

	assert.Error(t, set.Set("difficulty", "nope"))
}

func TestDirectoryFlagEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MULTIPOW_TEST_DATADIR", dir+"/../"+filepath.Base(dir))

	f := &DirectoryFlag{Name: "datadir", EnvVars: []string{"MULTIPOW_TEST_DATADIR"}}
	require.NoError(t, f.Apply(flag.NewFlagSet("test", flag.ContinueOnError)))
	assert.True(t, f.IsSet())
	assert.Equal(t, dir, f.Value.String())

	_, err := os.Stat(f.Value.String())
	assert.NoError(t, err)
}
