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

package debug

import (
	"errors"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"

	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/ethereum/go-ethereum/log"
)

// Handler is the global profiler of the process.
// Handler 是进程的全局性能分析器。
var Handler = new(Profiler)

// Profiler owns the CPU profile of a running node. Only one CPU profile can be
// active per process, so use the Handler variable instead of creating values.
// Profiler 管理运行中节点的 CPU 性能分析，每个进程只能有一个活动的 CPU 分析，请使用 Handler 变量。
type Profiler struct {
	mu      sync.Mutex
	cpuW    io.WriteCloser
	cpuFile string
}

// StartCPUProfile turns on CPU profiling, writing to the given file.
// StartCPUProfile 启动 CPU 性能分析，将数据写入指定的文件。
func (p *Profiler) StartCPUProfile(file string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cpuW != nil {
		return errors.New("CPU profiling already in progress")
	}
	f, err := os.Create(expandHome(file))
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}
	p.cpuW, p.cpuFile = f, file
	log.Info("CPU profiling started", "dump", file)
	return nil
}

// StopCPUProfile stops an ongoing CPU profile.
func (p *Profiler) StopCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cpuW == nil {
		return errors.New("CPU profiling not in progress")
	}
	pprof.StopCPUProfile()
	log.Info("Done writing CPU profile", "dump", p.cpuFile)
	err := p.cpuW.Close()
	p.cpuW, p.cpuFile = nil, ""
	return err
}

// WriteMemProfile writes a heap profile to the given file. A garbage
// collection runs first so the profile reflects live objects.
func (*Profiler) WriteMemProfile(file string) error {
	f, err := os.Create(expandHome(file))
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC()
	log.Info("Writing heap profile", "dump", file)
	return pprof.Lookup("heap").WriteTo(f, 0)
}

// expandHome expands home directory in file paths.
// ~someuser/tmp will not be expanded.
func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := flags.HomeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return p
}
