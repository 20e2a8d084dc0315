// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package script runs Lua register sequences against a register model.
//
// Scripts access the model through the global "ral" table:
//
//	ral.set("r5", 0xab12cd34)
//	ral.write("r5")
//	local v = ral.read_field("rf.r10", "hi")
//
// Register values that cannot be represented exactly as Lua numbers are
// exchanged as hexadecimal strings.
package script // import "github.com/go-lpc/ral/internal/script"

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-lpc/ral/regmodel"
	lua "github.com/yuin/gopher-lua"
)

const maxExact = 1 << 53

// Interp is a Lua interpreter bound to a register model.
type Interp struct {
	L  *lua.LState
	rm *regmodel.RegModel
}

// New creates a new interpreter for the provided register model.
// Bus accesses from scripts are issued with ctx.
func New(ctx context.Context, rm *regmodel.RegModel) *Interp {
	it := &Interp{
		L:  lua.NewState(),
		rm: rm,
	}
	it.L.SetContext(ctx)

	mod := it.L.SetFuncs(it.L.NewTable(), map[string]lua.LGFunction{
		"paths":           it.paths,
		"set":             it.set,
		"get":             it.get,
		"set_field":       it.setField,
		"get_field":       it.getField,
		"reset":           it.reset,
		"reset_field":     it.resetField,
		"reset_all":       it.resetAll,
		"randomize":       it.randomize,
		"randomize_field": it.randomizeField,
		"write":           it.write,
		"write_all":       it.writeAll,
		"read":            it.read,
		"read_field":      it.readField,
		"check":           it.check,
		"check_all":       it.checkAll,
	})
	it.L.SetGlobal("ral", mod)
	return it
}

// Close releases the resources of the interpreter.
func (it *Interp) Close() {
	it.L.Close()
}

// DoString runs the provided Lua code.
func (it *Interp) DoString(code string) error {
	err := it.L.DoString(code)
	if err != nil {
		return fmt.Errorf("script: could not run script: %w", err)
	}
	return nil
}

// DoFile runs the named Lua file.
func (it *Interp) DoFile(fname string) error {
	err := it.L.DoFile(fname)
	if err != nil {
		return fmt.Errorf("script: could not run %q: %w", fname, err)
	}
	return nil
}

func (it *Interp) ctx() context.Context {
	ctx := it.L.Context()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (it *Interp) raise(err error) int {
	it.L.RaiseError("%v", err)
	return 0
}

func (it *Interp) push(v uint64) int {
	if v < maxExact {
		it.L.Push(lua.LNumber(v))
		return 1
	}
	it.L.Push(lua.LString("0x" + strconv.FormatUint(v, 16)))
	return 1
}

func (it *Interp) checkValue(n int) uint64 {
	switch v := it.L.Get(n).(type) {
	case lua.LNumber:
		f := float64(v)
		if f < 0 || f >= maxExact || f != math.Trunc(f) {
			it.L.ArgError(n, fmt.Sprintf("invalid register value %v", f))
			return 0
		}
		return uint64(f)
	case lua.LString:
		u, err := strconv.ParseUint(string(v), 0, 64)
		if err != nil {
			it.L.ArgError(n, fmt.Sprintf("invalid register value %q", string(v)))
			return 0
		}
		return u
	default:
		it.L.ArgError(n, "register value expected, got "+v.Type().String())
		return 0
	}
}

func (it *Interp) paths(L *lua.LState) int {
	tbl := L.NewTable()
	for _, path := range it.rm.Paths() {
		tbl.Append(lua.LString(path))
	}
	L.Push(tbl)
	return 1
}

func (it *Interp) set(L *lua.LState) int {
	err := it.rm.Set(L.CheckString(1), it.checkValue(2))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) get(L *lua.LState) int {
	v, err := it.rm.Get(L.CheckString(1))
	if err != nil {
		return it.raise(err)
	}
	return it.push(v)
}

func (it *Interp) setField(L *lua.LState) int {
	err := it.rm.SetField(L.CheckString(1), L.CheckString(2), it.checkValue(3))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) getField(L *lua.LState) int {
	v, err := it.rm.GetField(L.CheckString(1), L.CheckString(2))
	if err != nil {
		return it.raise(err)
	}
	return it.push(v)
}

func (it *Interp) reset(L *lua.LState) int {
	err := it.rm.Reset(L.CheckString(1))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) resetField(L *lua.LState) int {
	err := it.rm.ResetField(L.CheckString(1), L.CheckString(2))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) resetAll(L *lua.LState) int {
	it.rm.ResetAll()
	return 0
}

func (it *Interp) randomize(L *lua.LState) int {
	err := it.rm.Randomize(L.CheckString(1))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) randomizeField(L *lua.LState) int {
	err := it.rm.RandomizeField(L.CheckString(1), L.CheckString(2))
	if err != nil {
		return it.raise(err)
	}
	return 0
}

// write writes the mirror value of a register, or the value given as
// second argument.
func (it *Interp) write(L *lua.LState) int {
	var (
		path = L.CheckString(1)
		err  error
	)
	switch L.GetTop() {
	case 1:
		err = it.rm.Write(it.ctx(), path)
	default:
		err = it.rm.WriteValue(it.ctx(), path, it.checkValue(2))
	}
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) writeAll(L *lua.LState) int {
	err := it.rm.WriteAll(it.ctx())
	if err != nil {
		return it.raise(err)
	}
	return 0
}

func (it *Interp) read(L *lua.LState) int {
	v, err := it.rm.Read(it.ctx(), L.CheckString(1))
	if err != nil {
		return it.raise(err)
	}
	return it.push(v)
}

func (it *Interp) readField(L *lua.LState) int {
	v, err := it.rm.ReadField(it.ctx(), L.CheckString(1), L.CheckString(2))
	if err != nil {
		return it.raise(err)
	}
	return it.push(v)
}

// check returns true when the hardware matches the mirror, and false along
// with a description of the discrepancy otherwise.
// Lookup and transport failures are raised as Lua errors.
func (it *Interp) check(L *lua.LState) int {
	err := it.rm.Check(it.ctx(), L.CheckString(1))
	return it.pushCheck(err)
}

func (it *Interp) checkAll(L *lua.LState) int {
	err := it.rm.CheckAll(it.ctx())
	return it.pushCheck(err)
}

func (it *Interp) pushCheck(err error) int {
	if err == nil {
		it.L.Push(lua.LTrue)
		return 1
	}
	if !isMismatch(err) {
		return it.raise(err)
	}
	it.L.Push(lua.LFalse)
	it.L.Push(lua.LString(err.Error()))
	return 2
}

// isMismatch reports whether err only carries register mismatches.
func isMismatch(err error) bool {
	if errs, ok := err.(interface{ Unwrap() []error }); ok {
		for _, err := range errs.Unwrap() {
			if !isMismatch(err) {
				return false
			}
		}
		return true
	}
	var mis *regmodel.MismatchError
	return errors.As(err, &mis)
}
