// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"context"
	"sync"
)

// Memory is an in-memory loop-back bus.
// Reads are answered from the values previously written.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	width int
	mem   map[uint64]uint64
	txs   []Tx
	fails map[uint64]error
}

// NewMemory creates a new loop-back bus of the provided width, in bits.
func NewMemory(width int) (*Memory, error) {
	err := checkWidth(width)
	if err != nil {
		return nil, err
	}
	return &Memory{
		width: width,
		mem:   make(map[uint64]uint64),
		fails: make(map[uint64]error),
	}, nil
}

func (m *Memory) Write(ctx context.Context, addr, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fails[addr]; err != nil {
		return err
	}
	err := checkValue(value, m.width)
	if err != nil {
		return err
	}
	m.txs = append(m.txs, Tx{Op: "w", Addr: addr, Value: value})
	m.mem[addr] = value
	return nil
}

func (m *Memory) Read(ctx context.Context, addr uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fails[addr]; err != nil {
		return 0, err
	}
	v := m.mem[addr]
	m.txs = append(m.txs, Tx{Op: "r", Addr: addr, Value: v})
	return v, nil
}

// Peek returns the value stored at addr, without recording a transaction.
func (m *Memory) Peek(addr uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem[addr]
}

// Poke stores v at addr, without recording a transaction.
func (m *Memory) Poke(addr, v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem[addr] = v
}

// Fail makes every subsequent access to addr fail with err.
// A nil error clears the failure.
func (m *Memory) Fail(addr uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fails, addr)
		return
	}
	m.fails[addr] = err
}

// Txs returns the transactions recorded so far and clears the log.
func (m *Memory) Txs() []Tx {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs := m.txs
	m.txs = nil
	return txs
}

var _ Bus = (*Memory)(nil)

// Close is a no-op.
func (m *Memory) Close() error { return nil }
