// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regdesc

import (
	"github.com/go-lpc/ral/regmap"
)

// node is an elaborated description node.
type node struct {
	kind  regmap.Kind
	name  string
	addr  uint64
	size  uint64
	ints  map[regmap.Prop]uint64
	bools map[regmap.Prop]bool
	strs  map[regmap.Prop]string
	kids  []regmap.Source
}

func (n *node) Kind() regmap.Kind { return n.kind }
func (n *node) Name() string      { return n.name }
func (n *node) Size() uint64      { return n.size }
func (n *node) Address() uint64   { return n.addr }

func (n *node) Int(key regmap.Prop) (uint64, bool) {
	v, ok := n.ints[key]
	return v, ok
}

func (n *node) Bool(key regmap.Prop) bool { return n.bools[key] }

func (n *node) Str(key regmap.Prop) (string, bool) {
	v, ok := n.strs[key]
	return v, ok
}

func (n *node) Children() []regmap.Source { return n.kids }

var _ regmap.Source = (*node)(nil)
