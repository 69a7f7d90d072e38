// Copyright 2016 The go-ethereum Authors
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

package node

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// DefaultConfig contains reasonable default settings.
// DefaultConfig 包含合理的默认设置。
var DefaultConfig = Config{
	DataDir:         DefaultDataDir(),
	DatabaseCache:   256,
	DatabaseHandles: 512,
	DBEngine:        "", // Use whatever exists, will default to Pebble if non-existent
	// 使用已有的数据库引擎，如果不存在则默认使用 Pebble
}

// DefaultDataDir is the default data directory to use for the databases and other
// persistence requirements.
// DefaultDataDir 是用于数据库和其他持久性需求的默认数据目录。
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	// 尝试将数据文件夹放置在用户的家目录中
	home := homeDir()
	if home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "MultiPow")
		case "windows":
			fallback := filepath.Join(home, "AppData", "Roaming", "MultiPow")
			appdata := os.Getenv("LOCALAPPDATA")
			if appdata == "" || isNonEmptyDir(fallback) {
				return fallback
			}
			return filepath.Join(appdata, "MultiPow")
		default:
			return filepath.Join(home, ".multipow")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	// 由于无法猜测稳定的位置，返回空字符串并稍后处理
	return ""
}

func isNonEmptyDir(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	names, _ := f.Readdir(1)
	f.Close()
	return len(names) > 0
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
