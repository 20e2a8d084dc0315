// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

// Walk traverses the source tree rooted at src depth-first, calling l.Enter
// before and l.Exit after the children of each node.
// The root must be an address map.
func Walk(src Source, l Listener) error {
	if src == nil {
		return structErr("nil source")
	}
	if k := src.Kind(); k != KindAddrMap {
		return structErr("root %q is a %v, not an addrmap", src.Name(), k)
	}
	return walk(src, l)
}

func walk(src Source, l Listener) error {
	kind := src.Kind()
	err := l.Enter(kind, src)
	if err != nil {
		return err
	}
	for _, child := range src.Children() {
		err = walk(child, l)
		if err != nil {
			return err
		}
	}
	return l.Exit(kind, src)
}

// Build builds the Map of the source tree rooted at src.
func Build(src Source) (*Map, error) {
	b := NewBuilder()
	err := Walk(src, b)
	if err != nil {
		return nil, err
	}
	return b.Map()
}
