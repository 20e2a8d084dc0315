// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regdesc loads elaborated register descriptions from YAML files.
//
// A description is unrolled while it is loaded: arrays of registers and
// register files become distinct instances named name_0, name_1, ..., and
// every node is given its absolute address.
package regdesc // import "github.com/go-lpc/ral/regdesc"

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/ral/regmap"
	"gopkg.in/yaml.v3"
)

// AddrMap is the YAML description of an address map.
type AddrMap struct {
	Name        string  `yaml:"name"`
	Size        uint64  `yaml:"size"`
	AccessWidth int     `yaml:"accesswidth"`
	RegWidth    int     `yaml:"regwidth"`
	Children    []Child `yaml:"children"`
}

// Child is the YAML description of a register or of a register file.
type Child struct {
	Type   string `yaml:"type"` // reg or regfile
	Name   string `yaml:"name"`
	Offset uint64 `yaml:"offset"`
	Array  int    `yaml:"array"`
	Stride uint64 `yaml:"stride"`

	// register
	RegWidth    int     `yaml:"regwidth"`
	AccessWidth int     `yaml:"accesswidth"`
	Fields      []Field `yaml:"fields"`

	// register file
	Size     uint64  `yaml:"size"`
	Children []Child `yaml:"children"`
}

// Field is the YAML description of a register field.
type Field struct {
	Name    string      `yaml:"name"`
	MSB     *int        `yaml:"msb"`
	LSB     *int        `yaml:"lsb"`
	Bits    string      `yaml:"bits"`
	Reset   interface{} `yaml:"reset"`
	SW      string      `yaml:"sw"`
	HW      string      `yaml:"hw"`
	OnRead  string      `yaml:"onread"`
	OnWrite string      `yaml:"onwrite"`
	SwAcc   bool        `yaml:"swacc"`
	SwMod   bool        `yaml:"swmod"`
}

// Open loads the register description stored in the named file.
func Open(fname string) (regmap.Source, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("regdesc: could not read %q: %w", fname, err)
	}

	src, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("regdesc: could not load %q: %w", fname, err)
	}
	return src, nil
}

// Decode decodes a YAML register description from r.
func Decode(r io.Reader) (regmap.Source, error) {
	var desc AddrMap
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&desc)
	if err != nil {
		return nil, fmt.Errorf("regdesc: could not decode description: %w", err)
	}
	return desc.Elaborate()
}

// Elaborate unrolls the description into a source tree.
func (desc AddrMap) Elaborate() (regmap.Source, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("regdesc: address map has no name")
	}

	root := &node{
		kind: regmap.KindAddrMap,
		name: desc.Name,
		size: desc.Size,
	}
	defs := defaults{accw: desc.AccessWidth, regw: desc.RegWidth}

	kids, end, err := elaborate(desc.Children, 0, defs)
	if err != nil {
		return nil, fmt.Errorf("regdesc: %s: %w", desc.Name, err)
	}
	root.kids = kids
	if root.size == 0 {
		root.size = end
	}
	if end > root.size {
		return nil, fmt.Errorf(
			"regdesc: %s: content ends at 0x%x, beyond size=0x%x",
			desc.Name, end, root.size,
		)
	}
	return root, nil
}

type defaults struct {
	accw int
	regw int
}

// elaborate unrolls children located relative to base and returns the end
// address of the last byte they occupy.
func elaborate(children []Child, base uint64, defs defaults) ([]regmap.Source, uint64, error) {
	var (
		kids []regmap.Source
		end  = base
	)
	for _, c := range children {
		if c.Name == "" {
			return nil, 0, fmt.Errorf("%s without a name", c.Type)
		}

		n := 1
		if c.Array > 0 {
			n = c.Array
		}

		for i := 0; i < n; i++ {
			name := c.Name
			if c.Array > 0 {
				name = name + "_" + strconv.Itoa(i)
			}

			var (
				kid regmap.Source
				sz  uint64
				err error
			)
			switch c.Type {
			case "reg", "":
				kid, sz, err = elabReg(c, name, defs)
			case "regfile":
				kid, sz, err = elabRegFile(c, name, defs)
			default:
				err = fmt.Errorf("%s: unknown type %q", c.Name, c.Type)
			}
			if err != nil {
				return nil, 0, err
			}

			stride := c.Stride
			if stride == 0 {
				stride = sz
			}
			addr := base + c.Offset + uint64(i)*stride
			relocate(kid.(*node), addr)
			kids = append(kids, kid)

			if e := addr + sz; e > end {
				end = e
			}
		}
	}
	return kids, end, nil
}

func relocate(n *node, addr uint64) {
	delta := addr - n.addr
	var move func(n *node)
	move = func(n *node) {
		n.addr += delta
		for _, kid := range n.kids {
			move(kid.(*node))
		}
	}
	move(n)
}

func elabReg(c Child, name string, defs defaults) (*node, uint64, error) {
	regw := c.RegWidth
	if regw == 0 {
		regw = defs.regw
	}
	accw := c.AccessWidth
	if accw == 0 {
		accw = defs.accw
	}
	if accw == 0 {
		accw = regw
	}
	if regw <= 0 {
		return nil, 0, fmt.Errorf("register %s has no regwidth", name)
	}

	reg := &node{
		kind: regmap.KindReg,
		name: name,
		size: uint64(regw / 8),
		ints: map[regmap.Prop]uint64{
			regmap.PropRegWidth:    uint64(regw),
			regmap.PropAccessWidth: uint64(accw),
		},
	}

	for _, f := range c.Fields {
		fld, err := elabField(f)
		if err != nil {
			return nil, 0, fmt.Errorf("register %s: %w", name, err)
		}
		reg.kids = append(reg.kids, fld)
	}

	return reg, reg.size, nil
}

func elabRegFile(c Child, name string, defs defaults) (*node, uint64, error) {
	rf := &node{
		kind: regmap.KindRegFile,
		name: name,
	}
	if c.AccessWidth != 0 {
		defs.accw = c.AccessWidth
	}
	if c.RegWidth != 0 {
		defs.regw = c.RegWidth
	}

	kids, end, err := elaborate(c.Children, 0, defs)
	if err != nil {
		return nil, 0, fmt.Errorf("regfile %s: %w", name, err)
	}
	rf.kids = kids
	rf.size = c.Size
	if rf.size == 0 {
		rf.size = end
	}
	if end > rf.size {
		return nil, 0, fmt.Errorf(
			"regfile %s: content ends at 0x%x, beyond size=0x%x",
			name, end, rf.size,
		)
	}
	return rf, rf.size, nil
}

func elabField(f Field) (*node, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("field without a name")
	}

	msb, lsb, err := bitsOf(f)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}

	fld := &node{
		kind: regmap.KindField,
		name: f.Name,
		ints: map[regmap.Prop]uint64{
			regmap.PropMSB: uint64(msb),
			regmap.PropLSB: uint64(lsb),
		},
		bools: map[regmap.Prop]bool{
			regmap.PropSwAcc: f.SwAcc,
			regmap.PropSwMod: f.SwMod,
		},
		strs: map[regmap.Prop]string{},
	}

	sw := f.SW
	if sw == "" {
		sw = "rw"
	}
	hw := f.HW
	if hw == "" {
		hw = "r"
	}
	for _, v := range []struct {
		acc  string
		r, w regmap.Prop
	}{
		{sw, regmap.PropSwReadable, regmap.PropSwWritable},
		{hw, regmap.PropHwReadable, regmap.PropHwWritable},
	} {
		r, w, err := access(v.acc)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fld.bools[v.r] = r
		fld.bools[v.w] = w
	}

	if f.OnRead != "" {
		fld.strs[regmap.PropOnRead] = f.OnRead
	}
	if f.OnWrite != "" {
		fld.strs[regmap.PropOnWrite] = f.OnWrite
	}

	switch v := f.Reset.(type) {
	case nil:
	case int:
		if v < 0 {
			return nil, fmt.Errorf("field %s: negative reset value %d", f.Name, v)
		}
		fld.ints[regmap.PropReset] = uint64(v)
	case uint64:
		fld.ints[regmap.PropReset] = v
	case string:
		u, err := strconv.ParseUint(v, 0, 64)
		if err == nil {
			fld.ints[regmap.PropReset] = u
			break
		}
		fld.strs[regmap.PropReset] = v
	default:
		return nil, fmt.Errorf("field %s: invalid reset value %v (%T)", f.Name, v, v)
	}

	return fld, nil
}

func bitsOf(f Field) (msb, lsb int, err error) {
	switch {
	case f.Bits != "":
		if f.MSB != nil || f.LSB != nil {
			return 0, 0, fmt.Errorf("bits and msb/lsb are mutually exclusive")
		}
		hi, lo, ok := strings.Cut(f.Bits, ":")
		msb, err = strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid bits %q: %w", f.Bits, err)
		}
		lsb = msb
		if ok {
			lsb, err = strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return 0, 0, fmt.Errorf("invalid bits %q: %w", f.Bits, err)
			}
		}
	case f.MSB != nil && f.LSB != nil:
		msb, lsb = *f.MSB, *f.LSB
	case f.MSB != nil:
		msb, lsb = *f.MSB, *f.MSB
	default:
		return 0, 0, fmt.Errorf("missing bits")
	}
	if msb < 0 || lsb < 0 {
		return 0, 0, fmt.Errorf("negative bit index [%d:%d]", msb, lsb)
	}
	return msb, lsb, nil
}

func access(v string) (r, w bool, err error) {
	switch strings.ToLower(v) {
	case "rw", "wr":
		return true, true, nil
	case "r":
		return true, false, nil
	case "w":
		return false, true, nil
	case "na":
		return false, false, nil
	}
	return false, false, fmt.Errorf("invalid access %q", v)
}
