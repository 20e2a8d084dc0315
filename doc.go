// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ral holds a register abstraction layer for memory-mapped and
// bus-attached hardware registers.
//
// A register description (package regdesc) is elaborated into an
// immutable register map (package regmap). A register model (package
// regmodel) keeps a software mirror of every register of a map and
// transfers it to the hardware through a bus (package bus), splitting wide
// registers into sub-register accesses.
//
// Register presets are stored in a configuration database (package
// conddb) and programmed by the ral-load command or by the ral-tdaq
// run-control node (package ralsrv).
package ral // import "github.com/go-lpc/ral"

import (
	"fmt"
	"runtime/debug"
)

const root = "github.com/go-lpc/ral"

// Version returns the version of ral and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == root {
		return moduleVersion(&b.Main)
	}

	for _, m := range b.Deps {
		if m.Path == root {
			return moduleVersion(m)
		}
	}
	return "", ""
}

func moduleVersion(m *debug.Module) (version, sum string) {
	rep := m.Replace
	switch {
	case rep == nil:
		return m.Version, m.Sum
	case rep.Version != "" && rep.Path != "":
		return fmt.Sprintf("%s %s", rep.Path, rep.Version), rep.Sum
	case rep.Version != "":
		return rep.Version, rep.Sum
	case rep.Path != "":
		return rep.Path, rep.Sum
	default:
		return m.Version + "*", ""
	}
}
