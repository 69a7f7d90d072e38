// Copyright 2014 The go-ethereum Authors
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
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// 临时节点：DataDir 为空时节点不持久化任何数据，数据库退化为内存数据库，适合开发和测试。

// Config represents a small collection of configuration values to fine tune the
// persistence layer of a node.
// Config 是用于微调节点持久化层的一小组配置值。
type Config struct {
	// Name sets the instance name of the node. It must not contain the / character
	// and is used as the name of the instance directory inside DataDir.
	// Name 设置节点的实例名称，不能包含 / 字符，用作 DataDir 内的实例目录名。
	Name string `toml:"-"`

	// DataDir is the file system folder the node should use for any data storage
	// requirements. An empty directory makes the node ephemeral.
	// DataDir 是节点用于数据存储的文件系统目录，为空时节点为临时节点。
	DataDir string

	// DBEngine selects the key-value store backing the chain database.
	DBEngine string `toml:",omitempty"`

	DatabaseCache   int
	DatabaseHandles int `toml:"-"`

	// Logger is a custom logger to use with the node.
	Logger log.Logger `toml:",omitempty"`
}

// name returns the instance name, falling back to the executable name.
func (c *Config) name() string {
	if c.Name == "" {
		progname := strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
		if progname == "" {
			panic("empty executable name, set Config.Name")
		}
		return progname
	}
	return c.Name
}

// instanceDir retrieves the directory that holds the instance specific data.
// instanceDir 返回保存实例特定数据的目录。
func (c *Config) instanceDir() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, c.name())
}

// ResolvePath resolves path in the instance directory.
// ResolvePath 在实例目录中解析路径。
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.instanceDir(), path)
}
