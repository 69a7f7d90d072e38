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

// Package debug sets up logging and profiling of the node from the command line.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/academy-pow/go-multipow/metrics/exp"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logFlags = []cli.Flag{
	verbosityFlag,
	logVmoduleFlag,
	logFormatFlag,
	logFileFlag,
	logRotateFlag,
	logMaxSizeMBsFlag,
	logMaxBackupsFlag,
	logMaxAgeFlag,
	logCompressFlag,
}

var profilingFlags = []cli.Flag{
	pprofFlag,
	pprofAddrFlag,
	pprofPortFlag,
	cpuprofileFlag,
	memprofileFlag,
}

// Flags holds all command-line flags required for debugging.
// Flags 包含所有用于调试的命令行标志。
var Flags = flags.Merge(logFlags, profilingFlags)

var (
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	logVmoduleFlag = &cli.StringFlag{
		Name:     "log.vmodule",
		Usage:    "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. miner/*=5,core=4)",
		Category: flags.LoggingCategory,
	}
	logFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log format to use (json|logfmt|terminal)",
		Category: flags.LoggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file",
		Category: flags.LoggingCategory,
	}
	logRotateFlag = &cli.BoolFlag{
		Name:     "log.rotate",
		Usage:    "Enables log file rotation",
		Category: flags.LoggingCategory,
	}
	logMaxSizeMBsFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in MBs of a single log file",
		Value:    100,
		Category: flags.LoggingCategory,
	}
	logMaxBackupsFlag = &cli.IntFlag{
		Name:     "log.maxbackups",
		Usage:    "Maximum number of log files to retain",
		Value:    10,
		Category: flags.LoggingCategory,
	}
	logMaxAgeFlag = &cli.IntFlag{
		Name:     "log.maxage",
		Usage:    "Maximum number of days to retain a log file",
		Value:    30,
		Category: flags.LoggingCategory,
	}
	logCompressFlag = &cli.BoolFlag{
		Name:     "log.compress",
		Usage:    "Compress rotated log files",
		Category: flags.LoggingCategory,
	}

	pprofFlag = &cli.BoolFlag{
		Name:     "pprof",
		Usage:    "Enable the pprof HTTP server",
		Category: flags.LoggingCategory,
	}
	pprofPortFlag = &cli.IntFlag{
		Name:     "pprof.port",
		Usage:    "pprof HTTP server listening port",
		Value:    6061,
		Category: flags.LoggingCategory,
	}
	pprofAddrFlag = &cli.StringFlag{
		Name:     "pprof.addr",
		Usage:    "pprof HTTP server listening interface",
		Value:    "127.0.0.1",
		Category: flags.LoggingCategory,
	}
	cpuprofileFlag = &cli.StringFlag{
		Name:     "pprof.cpuprofile",
		Usage:    "Write a CPU profile of the whole run to the given file",
		Category: flags.LoggingCategory,
	}
	memprofileFlag = &cli.StringFlag{
		Name:     "pprof.memprofile",
		Usage:    "Write a heap profile to the given file on exit",
		Category: flags.LoggingCategory,
	}
)

// logOutput is where log records end up: the terminal and, optionally, a
// plain or rotated log file.
// logOutput 是日志记录的去向：终端，以及可选的普通或轮转日志文件。
type logOutput struct {
	file     io.WriteCloser
	location string
	rotate   bool
}

var (
	logOutputFile io.WriteCloser // closed by Exit
	memProfile    string         // heap profile written by Exit
)

// Setup initializes profiling and logging based on the CLI flags.
// It should be called as early as possible in the program.
// Setup 根据 CLI 标志初始化性能分析和日志记录，应尽可能早地调用。
func Setup(ctx *cli.Context) error {
	out, err := openLogOutput(ctx)
	if err != nil {
		return err
	}
	format := ctx.String(logFormatFlag.Name)
	handler, err := newLogHandler(format, out)
	if err != nil {
		return err
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	if err := glogger.Vmodule(ctx.String(logVmoduleFlag.Name)); err != nil {
		return fmt.Errorf("invalid --%s: %v", logVmoduleFlag.Name, err)
	}
	log.SetDefault(log.NewLogger(glogger))

	if out.file != nil {
		if format == "" {
			format = "terminal"
		}
		log.Info("Logging configured", "format", format, "location", out.location, "rotate", out.rotate)
	}
	return setupProfiling(ctx)
}

// openLogOutput opens the log file requested on the command line, if any.
func openLogOutput(ctx *cli.Context) (*logOutput, error) {
	out := &logOutput{
		location: ctx.String(logFileFlag.Name),
		rotate:   ctx.Bool(logRotateFlag.Name),
	}
	if out.location != "" {
		if err := validateLogLocation(filepath.Dir(out.location)); err != nil {
			return nil, fmt.Errorf("failed to initialize file logger: %v", err)
		}
	}
	switch {
	case out.rotate:
		if out.location == "" {
			out.location = filepath.Join(os.TempDir(), "multipow-lumberjack.log")
		}
		out.file = &lumberjack.Logger{
			Filename:   out.location,
			MaxSize:    ctx.Int(logMaxSizeMBsFlag.Name),
			MaxBackups: ctx.Int(logMaxBackupsFlag.Name),
			MaxAge:     ctx.Int(logMaxAgeFlag.Name),
			Compress:   ctx.Bool(logCompressFlag.Name),
		}
	case out.location != "":
		f, err := os.OpenFile(out.location, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out.file = f
	}
	logOutputFile = out.file
	return out, nil
}

// writer returns the destination for formatted records. Colored output only
// goes to a terminal that understands it.
func (o *logOutput) writer(color bool) io.Writer {
	terminal := io.Writer(os.Stderr)
	if color {
		terminal = colorable.NewColorableStderr()
	}
	if o.file == nil {
		return terminal
	}
	return io.MultiWriter(o.file, terminal)
}

// newLogHandler builds the record handler for the given --log.format value.
// newLogHandler 根据 --log.format 的值构建日志处理程序。
func newLogHandler(format string, out *logOutput) (slog.Handler, error) {
	switch format {
	case "json":
		return log.JSONHandler(out.writer(false)), nil
	case "logfmt":
		return log.LogfmtHandler(out.writer(false)), nil
	case "", "terminal":
		fd := os.Stderr.Fd()
		useColor := (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
		return log.NewTerminalHandler(out.writer(useColor), useColor), nil
	}
	return nil, fmt.Errorf("unknown log format: %v", format)
}

// setupProfiling starts the profilers and the pprof server requested on the
// command line.
func setupProfiling(ctx *cli.Context) error {
	if file := ctx.String(cpuprofileFlag.Name); file != "" {
		if err := Handler.StartCPUProfile(file); err != nil {
			return err
		}
	}
	memProfile = ctx.String(memprofileFlag.Name)

	if ctx.Bool(pprofFlag.Name) {
		address := net.JoinHostPort(ctx.String(pprofAddrFlag.Name), fmt.Sprintf("%d", ctx.Int(pprofPortFlag.Name)))
		// "metrics.addr" is utils.MetricsHTTPFlag, which would be an import cycle.
		StartPProf(address, !ctx.IsSet("metrics.addr"))
	}
	return nil
}

// StartPProf starts the pprof HTTP server for profiling and, unless a
// dedicated metrics server runs, metrics.
// StartPProf 启动用于性能分析的 pprof HTTP 服务器，没有专用指标服务器时也提供指标。
func StartPProf(address string, withMetrics bool) {
	if withMetrics {
		http.Handle("/debug/metrics/prometheus", exp.Handler(metrics.DefaultRegistry))
	}
	log.Info("Starting pprof server", "addr", fmt.Sprintf("http://%s/debug/pprof", address))
	go func() {
		if err := http.ListenAndServe(address, nil); err != nil {
			log.Error("Failure in running pprof server", "err", err)
		}
	}()
}

// Exit stops the CPU profile, writes the heap profile and closes the log file.
// Exit 停止 CPU 性能分析，写出堆分析文件并关闭日志文件。
func Exit() {
	Handler.StopCPUProfile()
	if memProfile != "" {
		if err := Handler.WriteMemProfile(memProfile); err != nil {
			log.Error("Failed to write heap profile", "err", err)
		}
		memProfile = ""
	}
	if logOutputFile != nil {
		logOutputFile.Close()
		logOutputFile = nil
	}
}

// validateLogLocation checks if the log directory is valid and writable.
func validateLogLocation(path string) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("error creating the directory: %w", err)
	}
	f, err := os.CreateTemp(path, "multipow-log-*")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}
