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

// Package exp serves the node metrics over HTTP.
package exp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/academy-pow/go-multipow/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler exposing the given registry in the
// prometheus text format.
// Handler 返回以 prometheus 文本格式暴露给定注册表的 HTTP 处理程序。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Server is a dedicated HTTP server for metrics, separate from any other
// listener of the node.
// Server 是专用于指标的 HTTP 服务器，与节点的其他监听器分开。
type Server struct {
	srv *http.Server
}

// Setup starts a dedicated HTTP server for metrics on the specified address.
// Setup 在指定的地址上启动一个专用的 HTTP 服务器用于提供指标。
func Setup(address string) *Server {
	m := http.NewServeMux()
	m.Handle("/metrics", Handler(metrics.DefaultRegistry))
	m.Handle("/debug/metrics/prometheus", Handler(metrics.DefaultRegistry))

	s := &Server{srv: &http.Server{Addr: address, Handler: m, ReadHeaderTimeout: 5 * time.Second}}
	log.Info("Starting metrics server", "addr", "http://"+address+"/metrics")
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failure in running metrics server", "err", err)
		}
	}()
	return s
}

// Close shuts the server down, waiting at most a few seconds for in-flight
// scrapes.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// promLogger forwards errors of the prometheus handler to the node log.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log.Warn("Metrics exposition failed", "err", v)
}
