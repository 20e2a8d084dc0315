// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmodel

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type tx struct {
	op    string
	addr  uint64
	value uint64
}

func (tx tx) String() string {
	return fmt.Sprintf("%s@0x%x=0x%x", tx.op, tx.addr, tx.value)
}

// fakeBus is a loop-back bus: reads are answered from the values written.
type fakeBus struct {
	mem  map[uint64]uint64
	txs  []tx
	fail int // fail the n-th transaction (1-based), if non-zero
}

var errBus = errors.New("fake bus error")

func newFakeBus() *fakeBus {
	return &fakeBus{mem: make(map[uint64]uint64)}
}

func (bus *fakeBus) Write(ctx context.Context, addr, value uint64) error {
	if bus.fail > 0 && len(bus.txs)+1 == bus.fail {
		return errBus
	}
	bus.txs = append(bus.txs, tx{"w", addr, value})
	bus.mem[addr] = value
	return nil
}

func (bus *fakeBus) Read(ctx context.Context, addr uint64) (uint64, error) {
	if bus.fail > 0 && len(bus.txs)+1 == bus.fail {
		return 0, errBus
	}
	v := bus.mem[addr]
	bus.txs = append(bus.txs, tx{"r", addr, v})
	return v, nil
}

func (bus *fakeBus) reset() { bus.txs = bus.txs[:0] }

func newTestModel(t *testing.T, opts ...Option) (*RegModel, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	rm, err := Open("testdata/regs.yaml", FromBus(bus), opts...)
	if err != nil {
		t.Fatalf("could not create register model: %+v", err)
	}
	return rm, bus
}
