// Copyright 2021 The go-ethereum Authors
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
	"fmt"
	"os"

	"github.com/academy-pow/go-multipow/cmd/utils"
	"github.com/academy-pow/go-multipow/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	dbCommand = &cli.Command{
		Name:      "db",
		Usage:     "Low level database operations",
		ArgsUsage: "",
		Subcommands: []*cli.Command{
			dbInspectCmd,
			dbStatCmd,
		},
	}
	dbInspectCmd = &cli.Command{
		Action:      inspect,
		Name:        "inspect",
		ArgsUsage:   "",
		Flags:       utils.DatabaseFlags,
		Usage:       "Inspect the storage size for each type of data in the database",
		Description: `This commands iterates the entire database and prints the size of every data category.`,
	}
	dbStatCmd = &cli.Command{
		Action: dbStats,
		Name:   "stats",
		Usage:  "Print the statistics of the backing database",
		Flags:  utils.DatabaseFlags,
	}
)

// openChainDatabase opens the chain database of the configured node read-only.
func openChainDatabase(ctx *cli.Context) (ethdb.KeyValueStore, func()) {
	stack, _ := makeConfigNode(ctx)
	db, err := stack.OpenDatabase("chaindata", 0, 0, "", true)
	if err != nil {
		stack.Close()
		utils.Fatalf("Could not open database: %v", err)
	}
	return db, func() { stack.Close() }
}

func inspect(ctx *cli.Context) error {
	db, release := openChainDatabase(ctx)
	defer release()

	return rawdb.InspectDatabase(db, os.Stdout)
}

func showDBStats(db ethdb.KeyValueStater) {
	stats, err := db.Stat()
	if err != nil {
		log.Warn("Failed to read database stats", "error", err)
		return
	}
	fmt.Println(stats)
}

func dbStats(ctx *cli.Context) error {
	db, release := openChainDatabase(ctx)
	defer release()

	showDBStats(db)
	return nil
}
