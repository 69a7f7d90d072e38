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

// Package metrics holds the prometheus registry every component of the node
// registers its meters with.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric of the node.
const Namespace = "multipow"

// DefaultRegistry is the registry the node exposes over HTTP. Meters are
// always registered, whether they are served depends on the --metrics flag.
// DefaultRegistry 是节点通过 HTTP 暴露的注册表，指标总是会注册，是否对外提供取决于 --metrics 标志。
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// NewRegisteredCounter creates a counter and registers it with DefaultRegistry.
func NewRegisteredCounter(name, help string) prometheus.Counter {
	return promauto.With(DefaultRegistry).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	})
}

// NewRegisteredCounterVec creates a labelled counter and registers it with
// DefaultRegistry.
// NewRegisteredCounterVec 创建带标签的计数器并注册到 DefaultRegistry。
func NewRegisteredCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(DefaultRegistry).NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

// NewRegisteredGauge creates a gauge and registers it with DefaultRegistry.
func NewRegisteredGauge(name, help string) prometheus.Gauge {
	return promauto.With(DefaultRegistry).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	})
}

// NewRegisteredHistogram creates a histogram with exponential buckets and
// registers it with DefaultRegistry.
func NewRegisteredHistogram(name, help string, start, factor float64, count int) prometheus.Histogram {
	return promauto.With(DefaultRegistry).NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.ExponentialBuckets(start, factor, count),
	})
}
