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

package core

import (
	"math/big"

	"github.com/academy-pow/go-multipow/consensus/multipow"
	"github.com/academy-pow/go-multipow/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// difficultyCollector exports the difficulty every algorithm currently has to
// meet on top of the head, together with the accumulated work of the head.
// The values are read at scrape time.
// difficultyCollector 导出每种算法在链头之上当前需要满足的难度以及链头的累计工作量，在抓取时读取。
type difficultyCollector struct {
	chain *BlockChain

	difficulty *prometheus.Desc
	work       *prometheus.Desc
}

// NewDifficultyCollector returns a prometheus collector reporting the
// per-algorithm difficulty and total work of the chain head.
func NewDifficultyCollector(chain *BlockChain) prometheus.Collector {
	return &difficultyCollector{
		chain: chain,
		difficulty: prometheus.NewDesc(
			prometheus.BuildFQName(metrics.Namespace, "chain", "difficulty"),
			"Difficulty a child of the head has to meet.",
			[]string{"algorithm"}, nil,
		),
		work: prometheus.NewDesc(
			prometheus.BuildFQName(metrics.Namespace, "chain", "total_work"),
			"Accumulated work of the head.",
			[]string{"algorithm"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *difficultyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.difficulty
	ch <- c.work
}

// Collect implements prometheus.Collector.
func (c *difficultyCollector) Collect(ch chan<- prometheus.Metric) {
	head := c.chain.CurrentHeader()
	td := c.chain.GetTd(head.Hash())
	for _, algo := range multipow.Algorithms {
		ch <- prometheus.MustNewConstMetric(c.difficulty, prometheus.GaugeValue,
			toFloat(c.chain.CurrentDifficulty(algo).ToBig()), algo.String())
		if td != nil {
			ch <- prometheus.MustNewConstMetric(c.work, prometheus.GaugeValue,
				toFloat(td.Get(algo).ToBig()), algo.String())
		}
	}
}

func toFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
