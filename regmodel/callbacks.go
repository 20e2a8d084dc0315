// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmodel

import (
	"context"
	"fmt"
)

// WriteFunc writes value at the provided bus address.
type WriteFunc func(ctx context.Context, addr, value uint64) error

// ReadFunc reads the value stored at the provided bus address.
type ReadFunc func(ctx context.Context, addr uint64) (uint64, error)

// Callbacks holds the bus capabilities used by a register model.
//
// Transport specific options may be passed through the context.
type Callbacks struct {
	Write WriteFunc
	Read  ReadFunc
}

func (cbs Callbacks) validate() error {
	switch {
	case cbs.Write == nil && cbs.Read == nil:
		return fmt.Errorf("regmodel: no write nor read callback: %w", ErrCallback)
	case cbs.Write == nil:
		return fmt.Errorf("regmodel: no write callback: %w", ErrCallback)
	case cbs.Read == nil:
		return fmt.Errorf("regmodel: no read callback: %w", ErrCallback)
	}
	return nil
}

// Bus is a register bus.
type Bus interface {
	Write(ctx context.Context, addr, value uint64) error
	Read(ctx context.Context, addr uint64) (uint64, error)
}

// FromBus returns the callbacks accessing the provided bus.
func FromBus(bus Bus) Callbacks {
	return Callbacks{
		Write: bus.Write,
		Read:  bus.Read,
	}
}
