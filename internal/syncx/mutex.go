// Copyright 2021 The go-ethereum Authors
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

// Package syncx contains exotic synchronization primitives.
package syncx

// ClosableMutex is a mutex that can also be closed. Once closed, it can never
// be taken again. The chain uses it as its import lock so that Stop waits for
// a running import and turns every later one into an error.
// ClosableMutex 是可以关闭的互斥锁，关闭后再也无法获取。链将其用作导入锁。
type ClosableMutex struct {
	ch chan struct{}
}

// NewClosableMutex creates an unlocked ClosableMutex.
func NewClosableMutex() *ClosableMutex {
	ch := make(chan struct{}, 1)
	ch <- struct{}{} // the token in the channel is the lock
	return &ClosableMutex{ch}
}

// TryLock blocks until cm is available and reports whether it was taken. It
// returns false once cm is closed.
func (cm *ClosableMutex) TryLock() bool {
	_, ok := <-cm.ch
	return ok
}

// MustLock locks cm and panics if cm is closed.
func (cm *ClosableMutex) MustLock() {
	if !cm.TryLock() {
		panic("mutex closed")
	}
}

// Unlock unlocks cm.
func (cm *ClosableMutex) Unlock() {
	select {
	case cm.ch <- struct{}{}:
	default:
		panic("Unlock of already-unlocked ClosableMutex")
	}
}

// Close waits for cm to be unlocked, then closes it.
// Close 等待互斥锁被释放，然后将其关闭。
func (cm *ClosableMutex) Close() {
	if _, ok := <-cm.ch; !ok {
		panic("Close of already-closed ClosableMutex")
	}
	close(cm.ch)
}
