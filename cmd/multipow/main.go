// Copyright 2014 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// multipow is the command-line client of a multi-algorithm proof-of-work chain.
package main

import (
	"fmt"
	"math"
	"os"
	godebug "runtime/debug"
	"strconv"

	"github.com/academy-pow/go-multipow/cmd/utils"
	"github.com/academy-pow/go-multipow/internal/debug"
	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/ethereum/go-ethereum/log"
	gopsutil "github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli/v2"
)

const (
	clientIdentifier = "multipow" // Client identifier used as the instance directory name
)

var (
	// flags that configure the node
	nodeFlags = []cli.Flag{
		utils.DataDirFlag,
		utils.DBEngineFlag,
		utils.CacheFlag,
		utils.DeveloperFlag,
		utils.DeveloperPeriodFlag,
		utils.ForkPositionFlag,
		utils.ManualForksFlag,
		utils.MiningEnabledFlag,
		utils.MinerAlgorithmFlag,
		utils.MinerThreadsFlag,
		utils.MinerCoinbaseFlag,
		utils.MinerExtraDataFlag,
		utils.MinerRecommitIntervalFlag,
		configFileFlag,
	}

	metricsFlags = []cli.Flag{
		utils.MetricsEnabledFlag,
		utils.MetricsHTTPFlag,
		utils.MetricsPortFlag,
	}
)

var app = flags.NewApp("the go-multipow command line interface")

func init() {
	// Initialize the CLI app and start multipow
	app.Action = runNode
	app.Commands = []*cli.Command{
		// See chaincmd.go:
		verifyCommand,
		mineCommand,
		headCommand,
		// See dbcmd.go:
		dbCommand,
		// See misccmd.go:
		versionCommand,
		// See config.go
		dumpConfigCommand,
	}
	app.Flags = flags.Merge(
		nodeFlags,
		metricsFlags,
		debug.Flags,
	)
	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// prepare manipulates memory cache allowance before the node is assembled.
// prepare 在组装节点之前调整内存缓存配额。
func prepare(ctx *cli.Context) {
	switch {
	case ctx.Bool(utils.DeveloperFlag.Name):
		log.Info("Starting multipow in ephemeral dev mode...")
		log.Warn(`You are running multipow in --dev mode. Please note the following:

  1. This mode is only intended for fast, iterative development without assumptions on
     security or persistence.
  2. The database is created in memory unless specified otherwise.
  3. Blocks are produced every --dev.period without any proof-of-work seal.
`)
	default:
		log.Info("Starting multipow on the public network...")
	}
	// Cap the cache allowance and tune the garbage collector
	mem, err := gopsutil.VirtualMemory()
	if err == nil {
		if 32<<(^uintptr(0)>>63) == 32 && mem.Total > 2*1024*1024*1024 {
			log.Warn("Lowering memory allowance on 32bit arch", "available", mem.Total/1024/1024, "addressable", 2*1024)
			mem.Total = 2 * 1024 * 1024 * 1024
		}
		allowance := int(mem.Total / 1024 / 1024 / 3)
		if cache := ctx.Int(utils.CacheFlag.Name); cache > allowance {
			log.Warn("Sanitizing cache to Go's GC limits", "provided", cache, "updated", allowance)
			ctx.Set(utils.CacheFlag.Name, strconv.Itoa(allowance))
		}
	}
	// Ensure Go's GC ignores the database cache for trigger percentage
	cache := ctx.Int(utils.CacheFlag.Name)
	gogc := math.Max(20, math.Min(100, 100/(float64(cache)/1024)))

	log.Debug("Sanitizing Go's GC trigger", "percent", int(gogc))
	godebug.SetGCPercent(int(gogc))
}

// runNode is the main entry point into the system if no special subcommand is
// run. It creates a default node based on the command line arguments and runs
// it in blocking mode, waiting for it to be shut down.
// runNode 是未运行特殊子命令时的主入口，它根据命令行参数创建默认节点并以阻塞模式运行，直到节点关闭。
func runNode(ctx *cli.Context) error {
	if args := ctx.Args().Slice(); len(args) > 0 {
		return fmt.Errorf("invalid command: %s", args[0])
	}
	prepare(ctx)
	stack, chain := makeFullNode(ctx)
	defer stack.Close()

	utils.StartNode(stack)
	head := chain.CurrentHeader()
	log.Info("Chain head", "number", head.Number, "hash", head.Hash())
	stack.Wait()
	return nil
}
