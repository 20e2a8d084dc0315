// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

import (
	"fmt"
	"math/bits"
	"strings"
)

// Map is an arena holding every node of a register map.
// The first node is always the address map.
type Map struct {
	nodes []node
}

type node struct {
	kind     Kind
	src      Source
	parent   int // -1 for the address map
	children []int

	name string
	addr uint64
	size uint64

	// register
	accw int
	regw int

	// field
	msb, lsb int
	reset    uint64
	hasReset bool
	signal   string
	swr, sww bool
	hwr, hww bool
	swacc    bool
	swmod    bool
	onread   OnRead
	onwrite  OnWrite
}

// Root returns the address map at the root of m.
func (m *Map) Root() AddressMap {
	return AddressMap{Node{m: m, id: 0}}
}

// Len returns the number of nodes in m.
func (m *Map) Len() int { return len(m.nodes) }

// Node is a handle to any node of a Map.
type Node struct {
	m  *Map
	id int
}

func (n Node) get() *node { return &n.m.nodes[n.id] }

// ID returns the arena index of n.
func (n Node) ID() int { return n.id }

func (n Node) Kind() Kind      { return n.get().kind }
func (n Node) Name() string    { return n.get().name }
func (n Node) Size() uint64    { return n.get().size }
func (n Node) Address() uint64 { return n.get().addr }
func (n Node) Source() Source  { return n.get().src }

// Parent returns the structural parent of n.
// The address map has no parent.
func (n Node) Parent() (Node, bool) {
	p := n.get().parent
	if p < 0 {
		return Node{}, false
	}
	return Node{m: n.m, id: p}, true
}

// Children returns the children of n, in declaration order.
func (n Node) Children() []Node {
	ids := n.get().children
	o := make([]Node, len(ids))
	for i, id := range ids {
		o[i] = Node{m: n.m, id: id}
	}
	return o
}

// Path returns the names of n and its ancestors, joined by sep, relative to
// the owning address map.
func (n Node) Path(sep string) string {
	var names []string
	for cur := n; ; {
		p, ok := cur.Parent()
		if !ok {
			break
		}
		names = append(names, cur.Name())
		cur = p
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, sep)
}

func (n Node) String() string {
	return fmt.Sprintf("%v(%s)", n.Kind(), n.Name())
}

// Field is a named bit range of a register.
type Field struct{ Node }

// Register returns the register holding f.
func (f Field) Register() Register {
	return Register{Node{m: f.m, id: f.get().parent}}
}

func (f Field) MSB() int   { return f.get().msb }
func (f Field) LSB() int   { return f.get().lsb }
func (f Field) Width() int { return f.get().msb - f.get().lsb + 1 }

// Mask returns the mask of the field bits, not shifted.
func (f Field) Mask() uint64 { return Mask(f.Width()) }

// Reset returns the integer reset value of f, if any.
func (f Field) Reset() (uint64, bool) {
	nd := f.get()
	return nd.reset, nd.hasReset
}

// ResetValue returns the reset value of f, or 0 when none is declared.
func (f Field) ResetValue() uint64 { return f.get().reset }

// ResetSignal returns the name of the signal f is reset from, if any.
func (f Field) ResetSignal() (string, bool) {
	s := f.get().signal
	return s, s != ""
}

func (f Field) IsSwReadable() bool { return f.get().swr }
func (f Field) IsSwWritable() bool { return f.get().sww }
func (f Field) IsHwReadable() bool { return f.get().hwr }
func (f Field) IsHwWritable() bool { return f.get().hww }
func (f Field) SwAcc() bool        { return f.get().swacc }
func (f Field) SwMod() bool        { return f.get().swmod }
func (f Field) OnRead() OnRead     { return f.get().onread }
func (f Field) OnWrite() OnWrite   { return f.get().onwrite }

// NeedsQE reports whether hardware needs to be notified of a software write.
func (f Field) NeedsQE() bool {
	return f.IsSwWritable() && (f.SwAcc() || f.SwMod())
}

// NeedsQRE reports whether hardware needs to be notified of a software read.
func (f Field) NeedsQRE() bool {
	return f.IsSwReadable() && (f.SwAcc() || (f.SwMod() && f.OnRead() != OnReadNone))
}

// Subreg returns the index of the sub-register holding the MSB of f.
func (f Field) Subreg() int {
	return f.MSB() / f.Register().AccessWidth()
}

// AbsoluteAddress returns the address of f: the register base address, or,
// for wide registers, the address of the byte holding the MSB of f.
func (f Field) AbsoluteAddress() uint64 {
	reg := f.Register()
	base := reg.Address()
	if !reg.IsWide() {
		return base
	}
	return base + uint64(f.MSB()/8)
}

// BitSlice returns the bit slice of f within its register.
func (f Field) BitSlice() string {
	return bitSlice(f.MSB(), f.LSB())
}

// CPUIFBitSlice returns the bit slice of f as seen by software, within its
// sub-register.
func (f Field) CPUIFBitSlice() string {
	var (
		aw  = f.Register().AccessWidth()
		idx = f.MSB() / aw
		msb = f.MSB() - idx*aw
		lsb = f.LSB() - idx*aw
	)
	return bitSlice(msb, lsb)
}

func bitSlice(msb, lsb int) string {
	if msb == lsb {
		return fmt.Sprintf("%d", msb)
	}
	return fmt.Sprintf("%d:%d", msb, lsb)
}

// Register is an addressable unit holding ordered bit fields.
type Register struct{ Node }

func (r Register) AccessWidth() int { return r.get().accw }
func (r Register) RegWidth() int    { return r.get().regw }

// IsWide reports whether software needs more than one access to reach all
// bits of r.
func (r Register) IsWide() bool { return r.RegWidth() > r.AccessWidth() }

// AddressIncr returns the number of bytes addressed by one software access.
func (r Register) AddressIncr() uint64 { return uint64(r.AccessWidth() / 8) }

// Subregs returns the number of sub-registers of r.
func (r Register) Subregs() int { return r.RegWidth() / r.AccessWidth() }

// SubregAddress returns the address of the i-th sub-register of r.
func (r Register) SubregAddress(i int) uint64 {
	return r.Address() + uint64(i)*r.AddressIncr()
}

// Fields returns the fields of r, in declaration order.
func (r Register) Fields() []Field {
	ids := r.get().children
	o := make([]Field, len(ids))
	for i, id := range ids {
		o[i] = Field{Node{m: r.m, id: id}}
	}
	return o
}

// Field returns the field of r named name.
func (r Register) Field(name string) (Field, error) {
	for _, f := range r.Fields() {
		if f.Name() == name {
			return f, nil
		}
	}
	return Field{}, &LookupError{What: "field", Name: name, Valid: r.FieldNames()}
}

// FieldNames returns the names of the fields of r, in declaration order.
func (r Register) FieldNames() []string {
	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}
	return names
}

// SubregFields returns the fields whose MSB sits in the i-th sub-register.
func (r Register) SubregFields(i int) []Field {
	var (
		aw = r.AccessWidth()
		o  []Field
	)
	for _, f := range r.Fields() {
		if f.MSB()/aw == i {
			o = append(o, f)
		}
	}
	return o
}

func (r Register) NeedsQE() bool {
	for _, f := range r.Fields() {
		if f.NeedsQE() {
			return true
		}
	}
	return false
}

func (r Register) NeedsQRE() bool {
	for _, f := range r.Fields() {
		if f.NeedsQRE() {
			return true
		}
	}
	return false
}

// RegisterFile groups registers and nested register files.
type RegisterFile struct{ Node }

// Registers returns all registers under rf, flattening nested register files.
func (rf RegisterFile) Registers() []Register {
	return flatten(rf.Node, nil)
}

// AddressMap is the root of a register map.
type AddressMap struct{ Node }

// Registers returns all registers of the address map, depth-first,
// flattening register files.
func (am AddressMap) Registers() []Register {
	return flatten(am.Node, nil)
}

// RegisterFiles returns the register files directly under the address map.
func (am AddressMap) RegisterFiles() []RegisterFile {
	var o []RegisterFile
	for _, c := range am.Children() {
		if c.Kind() == KindRegFile {
			o = append(o, RegisterFile{c})
		}
	}
	return o
}

// AddrWidth returns the number of address bits needed to span the map.
func (am AddressMap) AddrWidth() int {
	if am.Size() == 0 {
		return 0
	}
	return bits.Len64(am.Size() - 1)
}

// AccessWidth returns the smallest access width of all registers of the map.
func (am AddressMap) AccessWidth() int {
	aw := 0
	for i, reg := range am.Registers() {
		if i == 0 || reg.AccessWidth() < aw {
			aw = reg.AccessWidth()
		}
	}
	return aw
}

func flatten(n Node, regs []Register) []Register {
	for _, c := range n.Children() {
		switch c.Kind() {
		case KindRegFile:
			regs = flatten(c, regs)
		case KindReg:
			regs = append(regs, Register{c})
		default:
			panic(fmt.Errorf("regmap: unexpected %v under %v", c, n))
		}
	}
	return regs
}

// Mask returns a mask of the n low bits.
func Mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}
