// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regmap models a hardware register map: an address map holding
// register files and registers, each register holding bit fields.
//
// A Map is built once from an elaborated description tree (a Source) and is
// immutable afterwards. Nodes live in an arena owned by the Map and are
// accessed through small value handles (Field, Register, RegisterFile,
// AddressMap).
package regmap // import "github.com/go-lpc/ral/regmap"

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructure is wrapped by all errors reporting a malformed source tree.
	ErrStructure = errors.New("regmap: malformed source tree")

	// ErrNotFound is wrapped by all lookup failures.
	ErrNotFound = errors.New("regmap: not found")
)

// Kind is the kind of a node in a register map.
type Kind uint8

const (
	KindAddrMap Kind = iota
	KindRegFile
	KindReg
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindAddrMap:
		return "addrmap"
	case KindRegFile:
		return "regfile"
	case KindReg:
		return "reg"
	case KindField:
		return "field"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Prop is a property key of a source node.
type Prop uint8

const (
	PropAccessWidth Prop = iota // register software access width, in bits
	PropRegWidth                // register width, in bits
	PropMSB
	PropLSB
	PropReset // integer reset value, or name of a reset signal
	PropSwAcc
	PropSwMod
	PropOnRead
	PropOnWrite
	PropSwReadable
	PropSwWritable
	PropHwReadable
	PropHwWritable
)

// Source is a node of an elaborated register description tree.
//
// Array instances must already be unrolled: each instance is a distinct
// node with its own concrete name and absolute address.
type Source interface {
	Kind() Kind
	Name() string
	Size() uint64    // size in bytes
	Address() uint64 // absolute byte address

	Int(key Prop) (uint64, bool)
	Bool(key Prop) bool
	Str(key Prop) (string, bool)

	Children() []Source
}

// OnRead is a software read side-effect.
type OnRead uint8

const (
	OnReadNone OnRead = iota
	OnReadClr
	OnReadSet
	OnReadUser
)

// OnWrite is a software write side-effect.
type OnWrite uint8

const (
	OnWriteNone OnWrite = iota
	OnWriteOneSet
	OnWriteOneClr
	OnWriteOneToggle
	OnWriteZeroSet
	OnWriteZeroClr
	OnWriteZeroToggle
	OnWriteClr
	OnWriteSet
	OnWriteUser
)

var (
	onreads = map[string]OnRead{
		"":      OnReadNone,
		"rclr":  OnReadClr,
		"rset":  OnReadSet,
		"ruser": OnReadUser,
	}
	onwrites = map[string]OnWrite{
		"":      OnWriteNone,
		"woset": OnWriteOneSet,
		"woclr": OnWriteOneClr,
		"wot":   OnWriteOneToggle,
		"wzs":   OnWriteZeroSet,
		"wzc":   OnWriteZeroClr,
		"wzt":   OnWriteZeroToggle,
		"wclr":  OnWriteClr,
		"wset":  OnWriteSet,
		"wuser": OnWriteUser,
	}
)

func (v OnRead) String() string {
	for k, o := range onreads {
		if o == v {
			return k
		}
	}
	return fmt.Sprintf("OnRead(%d)", uint8(v))
}

func (v OnWrite) String() string {
	for k, o := range onwrites {
		if o == v {
			return k
		}
	}
	return fmt.Sprintf("OnWrite(%d)", uint8(v))
}

// LookupError reports an unknown register path or field name, along with
// the set of valid keys.
type LookupError struct {
	What  string // "register" or "field"
	Name  string
	Valid []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf(
		"regmap: could not find %s %q (valid: %s)",
		e.What, e.Name, strings.Join(e.Valid, ", "),
	)
}

func (e *LookupError) Unwrap() error { return ErrNotFound }

func structErr(format string, args ...interface{}) error {
	return fmt.Errorf("regmap: "+format+": %w", append(args, ErrStructure)...)
}
