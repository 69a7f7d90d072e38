// Copyright 2015 The go-ethereum Authors
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

// Package utils contains internal helper functions for go-multipow commands.
package utils

import (
	"fmt"
	"os"
	"runtime"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/academy-pow/go-multipow/miner"
	"github.com/academy-pow/go-multipow/node"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := os.Stderr
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
//
// The flags are defined here so their names and help texts
// are the same for all commands.

var (
	// General settings
	DataDirFlag = &flags.DirectoryFlag{
		Name:     "datadir",
		Usage:    "Data directory for the databases",
		Value:    flags.DirectoryString(node.DefaultDataDir()),
		Category: flags.ChainCategory,
	}
	DBEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('pebble', 'leveldb' or 'bolt')",
		Value:    node.DefaultConfig.DBEngine,
		Category: flags.ChainCategory,
	}

	// Dev mode
	DeveloperFlag = &cli.BoolFlag{
		Name:     "dev",
		Usage:    "Ephemeral development chain with every secondary algorithm active and instant sealing",
		Category: flags.DevCategory,
	}
	DeveloperPeriodFlag = &cli.DurationFlag{
		Name:     "dev.period",
		Usage:    "Block period to use in developer mode",
		Value:    miner.DefaultConfig.Recommit,
		Category: flags.DevCategory,
	}

	// Consensus settings
	ForkPositionFlag = &cli.StringFlag{
		Name:     "fork.position",
		Usage:    "Side taken at the contentious split ('allow-all', 'only-sha3', 'only-keccak' or 'follow-mining')",
		Value:    params.AllowAll.String(),
		Category: flags.ConsensusCategory,
	}
	ManualForksFlag = &cli.BoolFlag{
		Name:     "fork.manual",
		Usage:    "Use the hard-coded fork heights instead of the configured schedule",
		Category: flags.ConsensusCategory,
	}

	// Performance tuning settings
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to internal caching",
		Value:    256,
		Category: flags.PerfCategory,
	}

	// Miner settings
	MiningEnabledFlag = &cli.BoolFlag{
		Name:     "mine",
		Usage:    "Enable mining",
		Category: flags.MinerCategory,
	}
	MinerAlgorithmFlag = &cli.StringFlag{
		Name:     "miner.algo",
		Usage:    "Hash algorithm to mine with ('sha3' or 'keccak')",
		Value:    miner.DefaultConfig.Algorithm.String(),
		Category: flags.MinerCategory,
	}
	MinerThreadsFlag = &cli.IntFlag{
		Name:     "miner.threads",
		Usage:    "Number of CPU threads to use for mining (0 = one per CPU)",
		Value:    miner.DefaultConfig.Threads,
		Category: flags.MinerCategory,
	}
	MinerCoinbaseFlag = &cli.StringFlag{
		Name:     "miner.coinbase",
		Usage:    "Address credited in mined headers",
		Category: flags.MinerCategory,
	}
	MinerExtraDataFlag = &cli.StringFlag{
		Name:     "miner.extradata",
		Usage:    "Block extra data set by the miner (default = client version)",
		Category: flags.MinerCategory,
	}
	MinerRecommitIntervalFlag = &cli.DurationFlag{
		Name:     "miner.recommit",
		Usage:    "Time interval to recreate the block being mined",
		Value:    miner.DefaultConfig.Recommit,
		Category: flags.MinerCategory,
	}

	// Metrics flags
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and reporting",
		Category: flags.MetricsCategory,
	}
	// MetricsHTTPFlag defines the endpoint for a stand-alone metrics HTTP endpoint.
	// Since the pprof service enables sensitive/vulnerable behavior, this allows a user
	// to enable a public-OK metrics endpoint without having to worry about ALSO exposing
	// other profiling behavior or information.
	MetricsHTTPFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    `Enable stand-alone metrics HTTP server listening interface.`,
		Category: flags.MetricsCategory,
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:     "metrics.port",
		Usage:    `Metrics HTTP server listening port.`,
		Value:    metrics.DefaultConfig.Port,
		Category: flags.MetricsCategory,
	}
)

var (
	// DatabaseFlags is the flag group of all database flags.
	DatabaseFlags = []cli.Flag{
		DataDirFlag,
		DBEngineFlag,
	}
)

// SetNodeConfig applies node-related command line flags to the config.
// SetNodeConfig 将与节点相关的命令行标志应用到配置中。
func SetNodeConfig(ctx *cli.Context, cfg *node.Config) {
	switch {
	case ctx.IsSet(DataDirFlag.Name):
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	case ctx.Bool(DeveloperFlag.Name):
		cfg.DataDir = "" // unless explicitly requested, use memory databases
	}
	if ctx.IsSet(DBEngineFlag.Name) {
		dbEngine := ctx.String(DBEngineFlag.Name)
		switch dbEngine {
		case rawdb.DBLeveldb, rawdb.DBPebble, rawdb.DBBolt:
		default:
			Fatalf("Invalid choice for db.engine '%s', allowed 'leveldb', 'pebble' or 'bolt'", dbEngine)
		}
		log.Info(fmt.Sprintf("Using %s as db engine", dbEngine))
		cfg.DBEngine = dbEngine
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(CacheFlag.Name)
	}
}

// SetMinerConfig applies miner-related command line flags to the config.
// SetMinerConfig 将与挖矿相关的命令行标志应用到配置中。
func SetMinerConfig(ctx *cli.Context, cfg *miner.Config) {
	if ctx.IsSet(MinerAlgorithmFlag.Name) {
		algo, err := multipow.ParseMiningAlgorithm(ctx.String(MinerAlgorithmFlag.Name))
		if err != nil {
			Fatalf("Invalid --%s: %v", MinerAlgorithmFlag.Name, err)
		}
		cfg.Algorithm = algo
	}
	if ctx.IsSet(MinerThreadsFlag.Name) {
		cfg.Threads = ctx.Int(MinerThreadsFlag.Name)
	}
	if ctx.IsSet(MinerCoinbaseFlag.Name) {
		addr := ctx.String(MinerCoinbaseFlag.Name)
		if !common.IsHexAddress(addr) {
			Fatalf("Invalid --%s address: %q", MinerCoinbaseFlag.Name, addr)
		}
		cfg.Coinbase = common.HexToAddress(addr)
	}
	if ctx.IsSet(MinerExtraDataFlag.Name) {
		cfg.ExtraData = []byte(ctx.String(MinerExtraDataFlag.Name))
	}
	if ctx.IsSet(MinerRecommitIntervalFlag.Name) {
		cfg.Recommit = ctx.Duration(MinerRecommitIntervalFlag.Name)
	}
	if ctx.Bool(DeveloperFlag.Name) {
		cfg.InstantSeal = true
		cfg.Recommit = ctx.Duration(DeveloperPeriodFlag.Name)
	}
}

// SetMetricsConfig applies metrics-related command line flags to the config.
func SetMetricsConfig(ctx *cli.Context, cfg *metrics.Config) {
	if ctx.IsSet(MetricsEnabledFlag.Name) {
		cfg.Enabled = ctx.Bool(MetricsEnabledFlag.Name)
	}
	if ctx.IsSet(MetricsHTTPFlag.Name) {
		cfg.HTTP = ctx.String(MetricsHTTPFlag.Name)
	}
	if ctx.IsSet(MetricsPortFlag.Name) {
		cfg.Port = ctx.Int(MetricsPortFlag.Name)
	}
}

// ConsensusConfig is the consensus related part of the node configuration.
// ConsensusConfig 是节点配置中与共识相关的部分。
type ConsensusConfig struct {
	Position    params.Position
	ManualForks bool `toml:",omitempty"`
}

// SetConsensusConfig applies consensus-related command line flags to the config.
func SetConsensusConfig(ctx *cli.Context, cfg *ConsensusConfig) {
	if ctx.IsSet(ForkPositionFlag.Name) {
		pos, err := params.ParsePosition(ctx.String(ForkPositionFlag.Name))
		if err != nil {
			Fatalf("%v", err)
		}
		cfg.Position = pos
	}
	if ctx.IsSet(ManualForksFlag.Name) {
		cfg.ManualForks = ctx.Bool(ManualForksFlag.Name)
	}
}

// MakeGenesis selects the genesis block matching the command line flags.
// MakeGenesis 根据命令行标志选择创世区块。
func MakeGenesis(ctx *cli.Context, cfg ConsensusConfig) *core.Genesis {
	genesis := core.DefaultGenesisBlock()
	if ctx.Bool(DeveloperFlag.Name) {
		genesis = core.DeveloperGenesisBlock()
	}
	if cfg.ManualForks {
		config := *genesis.Config
		config.ManualForks = true
		genesis.Config = &config
	}
	return genesis
}

// MakeEngine resolves the political position against the mining algorithm and
// builds the proof-of-work engine enforcing it. FollowMining can only be
// resolved here, once, before the fork policy exists.
// MakeEngine 根据挖矿算法解析政治立场，并构建执行该立场的工作量证明引擎。
func MakeEngine(config *params.ChainConfig, consensus ConsensusConfig, mining miner.Config, instantSeal bool) (*multipow.MultiPow, error) {
	if instantSeal {
		log.Warn("Running with a fake proof-of-work engine, blocks are not sealed")
		return multipow.NewFaker(), nil
	}
	position, err := params.ResolvePosition(consensus.Position, mining.Algorithm.String())
	if err != nil {
		return nil, err
	}
	policy, err := multipow.NewForkPolicy(config, position)
	if err != nil {
		return nil, err
	}
	log.Info("Initialised proof-of-work engine", "position", position, "policy", policy)
	return multipow.New(policy), nil
}
