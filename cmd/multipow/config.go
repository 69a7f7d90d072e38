// Copyright 2017 The go-ethereum Authors
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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"unicode"

	"github.com/academy-pow/go-multipow/cmd/utils"
	"github.com/academy-pow/go-multipow/core"
	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/academy-pow/go-multipow/internal/shutdowncheck"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/academy-pow/go-multipow/metrics/exp"
	"github.com/academy-pow/go-multipow/miner"
	"github.com/academy-pow/go-multipow/node"
	"github.com/academy-pow/go-multipow/version"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Flags:       flags.Merge(nodeFlags, metricsFlags),
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}

	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.ChainCategory,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
// 这些设置确保 TOML 键与 Go 结构体字段使用相同的名称。
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		if deprecatedConfigFields[id] {
			log.Warn(fmt.Sprintf("Config field '%s' is deprecated and won't have any effect.", id))
			return nil
		}
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// deprecatedConfigFields lists config keys that are still accepted but ignored.
var deprecatedConfigFields = map[string]bool{}

type multipowConfig struct {
	Node      node.Config
	Consensus utils.ConsensusConfig
	Miner     miner.Config
	Metrics   metrics.Config
}

func loadConfig(file string, cfg *multipowConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func defaultNodeConfig() node.Config {
	cfg := node.DefaultConfig
	cfg.Name = clientIdentifier
	return cfg
}

// loadBaseConfig loads the multipowConfig based on the given command line
// parameters and config file.
// loadBaseConfig 根据给定的命令行参数和配置文件加载 multipowConfig。
func loadBaseConfig(ctx *cli.Context) multipowConfig {
	// Load defaults.
	cfg := multipowConfig{
		Node:    defaultNodeConfig(),
		Miner:   miner.DefaultConfig,
		Metrics: metrics.DefaultConfig,
	}

	// Load config file.
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}

	// Apply flags.
	utils.SetNodeConfig(ctx, &cfg.Node)
	utils.SetConsensusConfig(ctx, &cfg.Consensus)
	utils.SetMinerConfig(ctx, &cfg.Miner)
	utils.SetMetricsConfig(ctx, &cfg.Metrics)
	cfg.Miner.ExtraData = makeExtraData(cfg.Miner.ExtraData)
	return cfg
}

// makeConfigNode loads the configuration and creates a blank node instance.
func makeConfigNode(ctx *cli.Context) (*node.Node, multipowConfig) {
	cfg := loadBaseConfig(ctx)
	stack, err := node.New(&cfg.Node)
	if err != nil {
		utils.Fatalf("Failed to create the node: %v", err)
	}
	return stack, cfg
}

// makeFullNode assembles the chain, the proof-of-work engine, the optional
// miner and the metrics server on top of a fresh node.
// makeFullNode 在新节点之上组装链、工作量证明引擎、可选的矿工以及指标服务器。
func makeFullNode(ctx *cli.Context) (*node.Node, *core.BlockChain) {
	stack, cfg := makeConfigNode(ctx)

	db, err := stack.OpenDatabase("chaindata", cfg.Node.DatabaseCache, cfg.Node.DatabaseHandles, "multipow/db/chaindata/", false)
	if err != nil {
		utils.Fatalf("Failed to open database: %v", err)
	}
	config, _, err := core.SetupGenesisBlock(db, utils.MakeGenesis(ctx, cfg.Consensus))
	if err != nil {
		utils.Fatalf("Failed to set up genesis block: %v", err)
	}
	log.Info("Initialised chain configuration", "config", "\n"+config.Description())

	engine, err := utils.MakeEngine(config, cfg.Consensus, cfg.Miner, cfg.Miner.InstantSeal)
	if err != nil {
		utils.Fatalf("Failed to create the proof-of-work engine: %v", err)
	}
	chain, err := core.NewBlockChain(db, engine)
	if err != nil {
		utils.Fatalf("Failed to load the chain: %v", err)
	}
	stack.RegisterLifecycle(&chainService{chain: chain})
	stack.RegisterLifecycle(shutdowncheck.NewShutdownTracker(db))

	if err := metrics.DefaultRegistry.Register(core.NewDifficultyCollector(chain)); err != nil {
		log.Warn("Failed to register difficulty metrics", "err", err)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.HTTP != "" {
		address := fmt.Sprintf("%s:%d", cfg.Metrics.HTTP, cfg.Metrics.Port)
		stack.RegisterLifecycle(&metricsService{address: address})
	}
	if ctx.Bool(utils.MiningEnabledFlag.Name) || ctx.Bool(utils.DeveloperFlag.Name) {
		m, err := miner.New(chain, cfg.Miner)
		if err != nil {
			utils.Fatalf("Failed to create the miner: %v", err)
		}
		stack.RegisterLifecycle(&minerService{miner: m})
	}
	return stack, chain
}

// makeExtraData returns the extra data the miner puts into headers, a version
// stamp unless the user provided one.
func makeExtraData(extra []byte) []byte {
	if len(extra) == 0 {
		// create default extradata
		extra, _ = rlp.EncodeToBytes([]interface{}{
			uint(version.Major<<16 | version.Minor<<8 | version.Patch),
			clientIdentifier,
			runtime.Version(),
			runtime.GOOS,
		})
	}
	if len(extra) > miner.MaximumExtraDataSize {
		log.Warn("Miner extra data exceed limit", "extra", hexutil.Bytes(extra), "limit", miner.MaximumExtraDataSize)
		extra = nil
	}
	return extra
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)

	return nil
}

// chainService closes the chain after every other service stopped.
type chainService struct {
	chain *core.BlockChain
}

func (s *chainService) Start() error { return nil }

func (s *chainService) Stop() error {
	s.chain.Stop()
	return nil
}

// minerService ties the miner to the node lifecycle.
type minerService struct {
	miner *miner.Miner
}

func (s *minerService) Start() error {
	s.miner.Start()
	return nil
}

func (s *minerService) Stop() error {
	s.miner.Close()
	return nil
}

// metricsService runs the stand-alone metrics HTTP server.
type metricsService struct {
	address string
	server  *exp.Server
}

func (s *metricsService) Start() error {
	s.server = exp.Setup(s.address)
	return nil
}

func (s *metricsService) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}
