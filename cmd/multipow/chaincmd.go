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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/academy-pow/go-multipow/cmd/utils"
	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/academy-pow/go-multipow/internal/flags"
	"github.com/academy-pow/go-multipow/miner"
	"github.com/academy-pow/go-multipow/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

var (
	parentFlag = &cli.Uint64Flag{
		Name:  "parent",
		Usage: "Height of the parent of the sealed block",
	}
	preHashFlag = &cli.StringFlag{
		Name:     "prehash",
		Usage:    "Hash of the block header without its seal",
		Required: true,
	}
	preDigestFlag = &cli.StringFlag{
		Name:  "predigest",
		Usage: "Hex encoded pre-digest announcing the algorithm (optional)",
	}
	algorithmFlag = &cli.StringFlag{
		Name:  "algo",
		Usage: "Hash algorithm to seal with ('md5', 'sha3' or 'keccak')",
		Value: multipow.Sha3.String(),
	}
	difficultyFlag = &flags.Uint256Flag{
		Name:  "difficulty",
		Usage: "Difficulty of every algorithm",
		Value: uint256.NewInt(params.GenesisDifficulty),
	}
	md5DifficultyFlag = &flags.Uint256Flag{
		Name:  "difficulty.md5",
		Usage: "Difficulty of the md5 algorithm (overrides --difficulty)",
	}
	sha3DifficultyFlag = &flags.Uint256Flag{
		Name:  "difficulty.sha3",
		Usage: "Difficulty of the sha3 algorithm (overrides --difficulty)",
	}
	keccakDifficultyFlag = &flags.Uint256Flag{
		Name:  "difficulty.keccak",
		Usage: "Difficulty of the keccak algorithm (overrides --difficulty)",
	}
	nonceFlag = &flags.Uint256Flag{
		Name:  "nonce",
		Usage: "Nonce to start searching from",
	}
	attemptsFlag = &cli.Uint64Flag{
		Name:  "attempts",
		Usage: "Maximum number of nonces to try (0 = unlimited)",
	}

	difficultyFlags = []cli.Flag{
		difficultyFlag,
		md5DifficultyFlag,
		sha3DifficultyFlag,
		keccakDifficultyFlag,
	}

	verifyCommand = &cli.Command{
		Action:    verifySeal,
		Name:      "verify",
		Usage:     "Verify a proof-of-work seal",
		ArgsUsage: "<hex seal>",
		Flags: flags.Merge([]cli.Flag{
			parentFlag,
			preHashFlag,
			preDigestFlag,
			utils.DeveloperFlag,
			utils.ForkPositionFlag,
			utils.ManualForksFlag,
		}, difficultyFlags),
		Description: `
The verify command checks a seal for a child of the block at --parent against
the fork schedule, the political position and the difficulty given on the
command line. It exits with a non-zero status if the seal is rejected.`,
	}
	mineCommand = &cli.Command{
		Action: mineSeal,
		Name:   "mine",
		Usage:  "Search a single proof-of-work seal",
		Flags: flags.Merge([]cli.Flag{
			preHashFlag,
			algorithmFlag,
			nonceFlag,
			attemptsFlag,
		}, difficultyFlags),
		Description: `
The mine command searches nonces for the given pre-hash until the digest meets
the difficulty of the chosen algorithm and prints the encoded seal.`,
	}
	headCommand = &cli.Command{
		Action:    showHead,
		Name:      "head",
		Usage:     "Print the head of the local chain",
		ArgsUsage: "",
		Flags:     utils.DatabaseFlags,
	}
)

// readThreshold assembles the difficulty vector from the command line.
// readThreshold 从命令行组装难度向量。
func readThreshold(ctx *cli.Context) multipow.Threshold {
	threshold := multipow.NewThreshold(flags.GlobalUint256(ctx, difficultyFlag.Name))
	for algo, flag := range map[multipow.Algorithm]*flags.Uint256Flag{
		multipow.Md5:    md5DifficultyFlag,
		multipow.Sha3:   sha3DifficultyFlag,
		multipow.Keccak: keccakDifficultyFlag,
	} {
		if ctx.IsSet(flag.Name) {
			threshold.Set(algo, flags.GlobalUint256(ctx, flag.Name))
		}
	}
	return threshold
}

func readPreHash(ctx *cli.Context) (common.Hash, error) {
	raw, err := hexutil.Decode(ctx.String(preHashFlag.Name))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid --%s: %v", preHashFlag.Name, err)
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid --%s: want %d bytes, have %d", preHashFlag.Name, common.HashLength, len(raw))
	}
	return common.BytesToHash(raw), nil
}

func verifySeal(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		utils.Fatalf("This command requires an argument.")
	}
	seal, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid seal: %v", err)
	}
	preHash, err := readPreHash(ctx)
	if err != nil {
		return err
	}
	var preDigest []byte
	if ctx.IsSet(preDigestFlag.Name) {
		if preDigest, err = hexutil.Decode(ctx.String(preDigestFlag.Name)); err != nil {
			return fmt.Errorf("invalid --%s: %v", preDigestFlag.Name, err)
		}
	}
	var consensus utils.ConsensusConfig
	utils.SetConsensusConfig(ctx, &consensus)
	genesis := utils.MakeGenesis(ctx, consensus)

	// The seal algorithm is what a FollowMining node would mine with.
	mining := miner.DefaultConfig
	if work, err := multipow.DecodeSeal(seal); err == nil {
		mining.Algorithm = work.Work.Algorithm
	}
	engine, err := utils.MakeEngine(genesis.Config, consensus, mining, false)
	if err != nil {
		return err
	}
	parent := ctx.Uint64(parentFlag.Name)
	if err := engine.CheckSeal(parent, preHash, preDigest, seal, readThreshold(ctx)); err != nil {
		return fmt.Errorf("seal rejected: %v", err)
	}
	work, _ := engine.ActualWork(seal)
	fmt.Printf("Seal valid for a child of block %d\nWork: %v\n", parent, work)
	return nil
}

var errSearchExhausted = errors.New("no seal found within the attempt limit")

// searchSeal tries consecutive nonces until the digest meets the difficulty
// of algo. It returns the seal and the number of hashes computed.
// searchSeal 依次尝试随机数直到摘要满足 algo 的难度，返回封印以及计算的哈希次数。
func searchSeal(ctx context.Context, compute multipow.Compute, algo multipow.Algorithm, attempts uint64) (*multipow.Seal, uint64, error) {
	one := uint256.NewInt(1)
	for hashes := uint64(0); attempts == 0 || hashes < attempts; {
		if hashes%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, hashes, err
			}
		}
		seal := compute.Compute(algo)
		hashes++
		if multipow.MultiMeetsDifficulty(seal.Work, seal.Difficulty) {
			return &seal, hashes, nil
		}
		compute.Nonce.Add(&compute.Nonce, one)
	}
	return nil, attempts, errSearchExhausted
}

func mineSeal(ctx *cli.Context) error {
	algo, err := multipow.ParseAlgorithm(ctx.String(algorithmFlag.Name))
	if err != nil {
		return err
	}
	preHash, err := readPreHash(ctx)
	if err != nil {
		return err
	}
	compute := multipow.Compute{
		Difficulty: readThreshold(ctx),
		PreHash:    preHash,
		Nonce:      *flags.GlobalUint256(ctx, nonceFlag.Name),
	}
	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	seal, hashes, err := searchSeal(sigctx, compute, algo, ctx.Uint64(attemptsFlag.Name))
	if err != nil {
		return fmt.Errorf("%v after %d hashes", err, hashes)
	}
	elapsed := time.Since(start)
	fmt.Printf("Seal: %s\n", hexutil.Encode(seal.Encode()))
	fmt.Printf("Nonce: %s\nWork: %v\n", seal.Nonce.Dec(), seal.Work)
	fmt.Printf("Hashes: %d in %v\n", hashes, common.PrettyDuration(elapsed))
	return nil
}

func showHead(ctx *cli.Context) error {
	stack, _ := makeConfigNode(ctx)
	defer stack.Close()

	db, err := stack.OpenDatabase("chaindata", 0, 0, "", true)
	if err != nil {
		return err
	}
	genesis := rawdb.ReadCanonicalHash(db, 0)
	if genesis == (common.Hash{}) {
		return errors.New("database contains no chain")
	}
	config := rawdb.ReadChainConfig(db, genesis)
	if config == nil {
		return errors.New("chain configuration not found")
	}
	hash := rawdb.ReadHeadHeaderHash(db)
	number := rawdb.ReadHeaderNumber(db, hash)
	if number == nil {
		return fmt.Errorf("head header %x not found", hash)
	}
	header := rawdb.ReadHeader(db, hash, *number)
	if header == nil {
		return fmt.Errorf("head header %x not found", hash)
	}
	fmt.Printf("Genesis: %x\n", genesis)
	fmt.Printf("Head: #%d [%x]\n", *number, hash)
	fmt.Printf("Age: %v\n", common.PrettyAge(time.UnixMilli(int64(header.Time))))
	if td := rawdb.ReadTd(db, hash, *number); td != nil {
		fmt.Printf("Total work: %v\n", td)
	}
	if state := rawdb.ReadDifficultyState(db, config.Difficulty, hash, *number); state != nil {
		fmt.Printf("Next difficulty: %v\n", state.Threshold())
	}
	return nil
}
