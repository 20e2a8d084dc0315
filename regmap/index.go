// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

import (
	"sort"
)

// Sep is the hierarchy separator of register paths.
const Sep = "."

// Index maps the relative path of every register of an address map to the
// register.
type Index struct {
	regs  map[string]Register
	paths []string // in traversal order
}

// NewIndex indexes all the registers of am.
func NewIndex(am AddressMap) (*Index, error) {
	regs := am.Registers()
	idx := &Index{
		regs:  make(map[string]Register, len(regs)),
		paths: make([]string, 0, len(regs)),
	}
	for _, reg := range regs {
		path := reg.Path(Sep)
		if _, dup := idx.regs[path]; dup {
			return nil, structErr("duplicate register path %q", path)
		}
		idx.regs[path] = reg
		idx.paths = append(idx.paths, path)
	}
	return idx, nil
}

// Len returns the number of registers.
func (idx *Index) Len() int { return len(idx.paths) }

// Paths returns the register paths in traversal order.
func (idx *Index) Paths() []string {
	o := make([]string, len(idx.paths))
	copy(o, idx.paths)
	return o
}

// Lookup returns the register at path.
func (idx *Index) Lookup(path string) (Register, error) {
	reg, ok := idx.regs[path]
	if !ok {
		valid := idx.Paths()
		sort.Strings(valid)
		return Register{}, &LookupError{What: "register", Name: path, Valid: valid}
	}
	return reg, nil
}
