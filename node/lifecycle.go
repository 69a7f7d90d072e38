// Copyright 2020 The go-ethereum Authors
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

package node

// Lifecycle encompasses the behavior of services that can be started and stopped
// on the node. Lifecycle management is delegated to the node, but it is the
// responsibility of the service-specific package to configure and register the
// service on the node using the `RegisterLifecycle` method.
// Lifecycle 接口定义了节点上可启动和停止的服务的生命周期行为。
// 生命周期管理权归节点所管辖，服务由其所属包通过 `RegisterLifecycle` 注册到节点上。
type Lifecycle interface {
	// Start is called after all services have been constructed to spawn any
	// goroutines required by the service.
	// Start 在所有服务构造完成后调用，用于启动服务所需的 goroutine。
	Start() error

	// Stop terminates all goroutines belonging to the service, blocking until they
	// are all terminated.
	// Stop 终止属于该服务的所有 goroutine，阻塞直到全部终止。
	Stop() error
}
