// Copyright 2022 The go-ethereum Authors
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

package version

import (
	"runtime/debug"
	"time"
)

// Layouts of the commit time as embedded by the go tool and as printed.
const (
	govcsTimeLayout = "2006-01-02T15:04:05Z"
	ourTimeLayout   = "20060102"
)

// gitCommit and gitDate may be injected with -ldflags "-X". They take
// precedence over the VCS stamp of the go tool.
// gitCommit 和 gitDate 可以通过 -ldflags "-X" 注入，优先于 go 工具嵌入的 VCS 信息。
var gitCommit, gitDate string

// VCSInfo represents the git repository state of a build.
type VCSInfo struct {
	Commit string // head commit hash
	Date   string // commit time in YYYYMMDD format
	Dirty  bool   // uncommitted changes were present
}

// String returns the abbreviated commit, the date and a dirty marker.
func (v VCSInfo) String() string {
	s := v.Commit
	if len(s) > 8 {
		s = s[:8]
	}
	if v.Date != "" {
		s += "-" + v.Date
	}
	if v.Dirty {
		s += "-dirty"
	}
	return s
}

// VCS returns version control information of the current executable. Builds
// of other main modules, e.g. tests, report nothing.
// VCS 返回当前可执行文件的版本控制信息。
func VCS() (VCSInfo, bool) {
	if gitCommit != "" {
		return VCSInfo{Commit: gitCommit, Date: gitDate}, true
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path == ourPath {
		return parseBuildSettings(info.Settings)
	}
	return VCSInfo{}, false
}

// parseBuildSettings extracts the vcs.* keys stamped by the go tool. The
// result is only usable if both the revision and its time are known.
func parseBuildSettings(settings []debug.BuildSetting) (VCSInfo, bool) {
	var info VCSInfo
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if t, err := time.Parse(govcsTimeLayout, s.Value); err == nil {
				info.Date = t.Format(ourTimeLayout)
			}
		}
	}
	return info, info.Commit != "" && info.Date != ""
}
