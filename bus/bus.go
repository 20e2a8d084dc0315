// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus provides register bus transports.
//
// Every transport exposes a Write and a Read method that can be handed to
// a register model with regmodel.FromBus.
package bus // import "github.com/go-lpc/ral/bus"

import (
	"context"
	"fmt"
)

// Bus is a register bus.
type Bus interface {
	Write(ctx context.Context, addr, value uint64) error
	Read(ctx context.Context, addr uint64) (uint64, error)
}

// Tx is a bus transaction.
type Tx struct {
	Op    string // "w" or "r"
	Addr  uint64
	Value uint64
}

func (tx Tx) String() string {
	return fmt.Sprintf("%s@0x%x=0x%x", tx.Op, tx.Addr, tx.Value)
}

func checkWidth(width int) error {
	switch width {
	case 8, 16, 32, 64:
		return nil
	}
	return fmt.Errorf("bus: invalid bus width %d", width)
}

func checkValue(v uint64, width int) error {
	if width < 64 && v>>width != 0 {
		return fmt.Errorf("bus: value 0x%x overflows %d-bit bus", v, width)
	}
	return nil
}
