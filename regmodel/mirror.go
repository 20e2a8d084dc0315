// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmodel

import (
	"fmt"
	"iter"

	"github.com/go-lpc/ral/regmap"
)

// Split decomposes v into the values of the fields of reg.
// Pairs are yielded in field declaration order, as (field absolute address,
// field value).
func Split(reg regmap.Register, v uint64) iter.Seq2[uint64, uint64] {
	return func(yield func(addr, value uint64) bool) {
		for _, f := range reg.Fields() {
			if !yield(f.AbsoluteAddress(), (v>>f.LSB())&f.Mask()) {
				return
			}
		}
	}
}

// Set stores v into the mirror of the register at path.
func (rm *RegModel) Set(path string, v uint64) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}
	err = checkReg(reg, v)
	if err != nil {
		return err
	}
	rm.set(reg, v)
	return nil
}

func (rm *RegModel) set(reg regmap.Register, v uint64) {
	fields := reg.Fields()
	i := 0
	for _, fv := range Split(reg, v) {
		rm.mirror[fields[i].ID()] = fv
		i++
	}
}

// Get returns the mirror value of the register at path.
func (rm *RegModel) Get(path string) (uint64, error) {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return 0, err
	}
	return rm.get(reg), nil
}

func (rm *RegModel) get(reg regmap.Register) uint64 {
	var v uint64
	for _, f := range reg.Fields() {
		v |= rm.mirror[f.ID()] << f.LSB()
	}
	return v
}

// SetField stores v into the mirror of the named field.
func (rm *RegModel) SetField(path, name string, v uint64) error {
	f, err := rm.field(path, name)
	if err != nil {
		return err
	}
	if v&^f.Mask() != 0 {
		return fmt.Errorf(
			"regmodel: value 0x%x does not fit in field %s.%s (width=%d): %w",
			v, path, name, f.Width(), ErrRange,
		)
	}
	rm.mirror[f.ID()] = v
	return nil
}

// GetField returns the mirror value of the named field.
func (rm *RegModel) GetField(path, name string) (uint64, error) {
	f, err := rm.field(path, name)
	if err != nil {
		return 0, err
	}
	return rm.mirror[f.ID()], nil
}

// Reset restores the reset values of all the fields of the register at path.
// Fields without a declared reset value are cleared.
func (rm *RegModel) Reset(path string) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}
	for _, f := range reg.Fields() {
		rm.mirror[f.ID()] = f.ResetValue()
	}
	return nil
}

// ResetField restores the reset value of the named field.
func (rm *RegModel) ResetField(path, name string) error {
	f, err := rm.field(path, name)
	if err != nil {
		return err
	}
	rm.mirror[f.ID()] = f.ResetValue()
	return nil
}

// ResetAll restores the reset values of every register.
func (rm *RegModel) ResetAll() {
	for _, reg := range rm.m.Root().Registers() {
		for _, f := range reg.Fields() {
			rm.mirror[f.ID()] = f.ResetValue()
		}
	}
}

// Randomize stores a random value into the mirror of the register at path.
func (rm *RegModel) Randomize(path string) error {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return err
	}
	return rm.Set(path, rm.cfg.rnd.Uint64()&regmap.Mask(reg.RegWidth()))
}

// RandomizeField stores a random value into the mirror of the named field.
func (rm *RegModel) RandomizeField(path, name string) error {
	f, err := rm.field(path, name)
	if err != nil {
		return err
	}
	return rm.SetField(path, name, rm.cfg.rnd.Uint64()&f.Mask())
}

// SetAll stores the provided values into the mirror.
// The mirror is left untouched if any of the values is invalid.
func (rm *RegModel) SetAll(vs []Value) error {
	regs := make([]regmap.Register, len(vs))
	for i, v := range vs {
		reg, err := rm.idx.Lookup(v.Path)
		if err != nil {
			return err
		}
		err = checkReg(reg, v.Value)
		if err != nil {
			return err
		}
		regs[i] = reg
	}

	for i, reg := range regs {
		rm.set(reg, vs[i].Value)
	}
	return nil
}

// Snapshot returns the mirror values of all registers, in traversal order.
func (rm *RegModel) Snapshot() []Value {
	paths := rm.idx.Paths()
	vs := make([]Value, len(paths))
	for i, path := range paths {
		reg, _ := rm.idx.Lookup(path)
		vs[i] = Value{Path: path, Value: rm.get(reg)}
	}
	return vs
}

func checkReg(reg regmap.Register, v uint64) error {
	if v&^regmap.Mask(reg.RegWidth()) != 0 {
		return fmt.Errorf(
			"regmodel: value 0x%x does not fit in register %s (regwidth=%d): %w",
			v, reg.Path(regmap.Sep), reg.RegWidth(), ErrRange,
		)
	}
	return nil
}
