// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmodel

import (
	"context"
	"errors"

	"github.com/go-lpc/ral/regmap"
)

// Write writes the mirror value of the register at path to the hardware.
func (rm *RegModel) Write(ctx context.Context, path string) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}
	return rm.write(ctx, path, reg, rm.get(reg))
}

// WriteValue writes v to the register at path.
// The mirror is updated once every sub-register has been written.
func (rm *RegModel) WriteValue(ctx context.Context, path string, v uint64) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}
	err = checkReg(reg, v)
	if err != nil {
		return err
	}

	err = rm.write(ctx, path, reg, v)
	if err != nil {
		return err
	}

	rm.set(reg, v)
	return nil
}

func (rm *RegModel) write(ctx context.Context, path string, reg regmap.Register, v uint64) error {
	var (
		aw   = reg.AccessWidth()
		mask = regmap.Mask(aw)
	)
	for i := 0; i < reg.Subregs(); i++ {
		addr := reg.SubregAddress(i)
		err := ctx.Err()
		if err != nil {
			return &ChunkError{Op: "write", Path: path, Subreg: i, Addr: addr, Err: err}
		}

		chunk := (v >> (aw * i)) & mask
		rm.debugf("write %s[%d] @0x%x <- 0x%x", path, i, addr, chunk)
		err = rm.cbs.Write(ctx, addr, chunk)
		if err != nil {
			return &ChunkError{Op: "write", Path: path, Subreg: i, Addr: addr, Err: err}
		}
	}
	return nil
}

// Read reads the value of the register at path from the hardware.
// The mirror is left untouched.
func (rm *RegModel) Read(ctx context.Context, path string) (uint64, error) {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return 0, err
	}
	return rm.read(ctx, path, reg, 0, reg.Subregs()-1)
}

// ReadField reads the value of the named field from the hardware.
// Only the sub-registers holding the field are accessed.
func (rm *RegModel) ReadField(ctx context.Context, path, name string) (uint64, error) {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return 0, err
	}
	f, err := reg.Field(name)
	if err != nil {
		return 0, err
	}

	aw := reg.AccessWidth()
	v, err := rm.read(ctx, path, reg, f.LSB()/aw, f.MSB()/aw)
	if err != nil {
		return 0, err
	}
	return (v >> (f.LSB() % aw)) & f.Mask(), nil
}

// read reads sub-registers [beg, end] and assembles them, sub-register beg
// ending in the least significant bits.
func (rm *RegModel) read(ctx context.Context, path string, reg regmap.Register, beg, end int) (uint64, error) {
	var (
		aw   = reg.AccessWidth()
		mask = regmap.Mask(aw)
		v    uint64
	)
	for i := beg; i <= end; i++ {
		addr := reg.SubregAddress(i)
		err := ctx.Err()
		if err != nil {
			return 0, &ChunkError{Op: "read", Path: path, Subreg: i, Addr: addr, Err: err}
		}

		chunk, err := rm.cbs.Read(ctx, addr)
		if err != nil {
			return 0, &ChunkError{Op: "read", Path: path, Subreg: i, Addr: addr, Err: err}
		}
		rm.debugf("read  %s[%d] @0x%x -> 0x%x", path, i, addr, chunk)
		v |= (chunk & mask) << (aw * (i - beg))
	}
	return v, nil
}

// Check reads the register at path from the hardware and compares it with
// its mirror value.
func (rm *RegModel) Check(ctx context.Context, path string) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}

	got, err := rm.read(ctx, path, reg, 0, reg.Subregs()-1)
	if err != nil {
		return err
	}

	want := rm.get(reg)
	if got != want {
		return &MismatchError{Path: path, Want: want, Got: got}
	}
	return nil
}

// WriteAll writes the mirror values of all registers to the hardware, in
// traversal order.
// WriteAll stops at the first failure.
func (rm *RegModel) WriteAll(ctx context.Context) error {
	for _, path := range rm.idx.Paths() {
		err := rm.Write(ctx, path)
		if err != nil {
			return err
		}
	}
	return nil
}

// CheckAll checks all registers against their mirror value and reports
// every discrepancy.
func (rm *RegModel) CheckAll(ctx context.Context) error {
	var errs []error
	for _, path := range rm.idx.Paths() {
		err := rm.Check(ctx, path)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}
