// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

import (
	"fmt"
)

// Listener receives the enter/exit events of a depth-first traversal of a
// source tree.
type Listener interface {
	Enter(kind Kind, src Source) error
	Exit(kind Kind, src Source) error
}

// Builder assembles a Map from traversal events, keeping the in-progress
// nodes on a stack.
type Builder struct {
	m     *Map
	stack []int
	top   int
}

var _ Listener = (*Builder)(nil)

// NewBuilder returns a builder for a new Map.
func NewBuilder() *Builder {
	return &Builder{m: new(Map), top: -1}
}

// Enter creates the node for src, as a child of the current top of the stack,
// and pushes it.
func (b *Builder) Enter(kind Kind, src Source) error {
	if len(b.stack) == 0 {
		if kind != KindAddrMap {
			panic(fmt.Errorf("regmap: %v %q entered without a parent", kind, src.Name()))
		}
		if len(b.m.nodes) != 0 {
			panic(fmt.Errorf("regmap: builder already holds an address map"))
		}
	}

	parent := -1
	if len(b.stack) > 0 {
		parent = b.stack[len(b.stack)-1]
		pk := b.m.nodes[parent].kind
		if !allowed(pk, kind) {
			return structErr(
				"%v %q not allowed under %v %q",
				kind, src.Name(), pk, b.m.nodes[parent].name,
			)
		}
	}

	nd := node{
		kind:   kind,
		src:    src,
		parent: parent,
		name:   src.Name(),
		addr:   src.Address(),
		size:   src.Size(),
	}

	err := b.load(&nd, parent)
	if err != nil {
		return err
	}

	id := len(b.m.nodes)
	b.m.nodes = append(b.m.nodes, nd)
	if parent >= 0 {
		b.m.nodes[parent].children = append(b.m.nodes[parent].children, id)
	}
	b.stack = append(b.stack, id)
	return nil
}

// Exit pops the current node. Popping the last node completes the Map.
func (b *Builder) Exit(kind Kind, src Source) error {
	if len(b.stack) == 0 {
		panic(fmt.Errorf("regmap: exit %v %q on an empty stack", kind, src.Name()))
	}
	id := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	if b.m.nodes[id].kind == KindReg && len(b.m.nodes[id].children) == 0 {
		return structErr("register %q has no field", b.m.nodes[id].name)
	}

	if len(b.stack) == 0 {
		b.top = id
	}
	return nil
}

// Map returns the completed Map.
func (b *Builder) Map() (*Map, error) {
	if b.top < 0 || len(b.stack) != 0 {
		return nil, structErr("incomplete traversal (depth=%d)", len(b.stack))
	}
	return b.m, nil
}

func allowed(parent, child Kind) bool {
	switch parent {
	case KindAddrMap, KindRegFile:
		return child == KindRegFile || child == KindReg
	case KindReg:
		return child == KindField
	}
	return false
}

func (b *Builder) load(nd *node, parent int) error {
	var (
		src = nd.src
		ok  bool
		v   uint64
	)
	switch nd.kind {
	case KindReg:
		v, ok = src.Int(PropAccessWidth)
		if !ok {
			return structErr("register %q has no accesswidth", nd.name)
		}
		nd.accw = int(v)
		v, ok = src.Int(PropRegWidth)
		if !ok {
			return structErr("register %q has no regwidth", nd.name)
		}
		nd.regw = int(v)

		switch {
		case nd.accw <= 0 || nd.accw%8 != 0:
			return structErr("register %q: invalid accesswidth=%d", nd.name, nd.accw)
		case nd.regw <= 0 || nd.regw > 64:
			return structErr("register %q: invalid regwidth=%d", nd.name, nd.regw)
		case nd.regw%nd.accw != 0:
			return structErr(
				"register %q: regwidth=%d is not a multiple of accesswidth=%d",
				nd.name, nd.regw, nd.accw,
			)
		}

	case KindField:
		msb, ok := src.Int(PropMSB)
		if !ok {
			return structErr("field %q has no msb", nd.name)
		}
		lsb, ok := src.Int(PropLSB)
		if !ok {
			return structErr("field %q has no lsb", nd.name)
		}
		reg := &b.m.nodes[parent]
		if lsb > msb || msb >= uint64(reg.regw) {
			return structErr(
				"field %s.%s: invalid bits [%d:%d] for regwidth=%d",
				reg.name, nd.name, msb, lsb, reg.regw,
			)
		}
		nd.msb = int(msb)
		nd.lsb = int(lsb)
		for _, id := range reg.children {
			o := &b.m.nodes[id]
			if o.lsb <= nd.msb && nd.lsb <= o.msb {
				return structErr("field %s.%s overlaps field %s", reg.name, nd.name, o.name)
			}
			if o.name == nd.name {
				return structErr("duplicate field %s.%s", reg.name, nd.name)
			}
		}
		nd.reset, nd.hasReset = src.Int(PropReset)
		if !nd.hasReset {
			nd.reset = 0
			nd.signal, _ = src.Str(PropReset)
		}
		if nd.reset&^Mask(nd.msb-nd.lsb+1) != 0 {
			return structErr(
				"field %s.%s: reset value 0x%x does not fit in %d bits",
				reg.name, nd.name, nd.reset, nd.msb-nd.lsb+1,
			)
		}
		nd.swr = src.Bool(PropSwReadable)
		nd.sww = src.Bool(PropSwWritable)
		nd.hwr = src.Bool(PropHwReadable)
		nd.hww = src.Bool(PropHwWritable)
		nd.swacc = src.Bool(PropSwAcc)
		nd.swmod = src.Bool(PropSwMod)

		str, _ := src.Str(PropOnRead)
		nd.onread, ok = onreads[str]
		if !ok {
			return structErr("field %s.%s: invalid onread %q", reg.name, nd.name, str)
		}
		str, _ = src.Str(PropOnWrite)
		nd.onwrite, ok = onwrites[str]
		if !ok {
			return structErr("field %s.%s: invalid onwrite %q", reg.name, nd.name, str)
		}
	}
	return nil
}
