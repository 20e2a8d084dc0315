// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmodel

import (
	"fmt"
)

// ChunkError reports a failed bus access to a sub-register.
type ChunkError struct {
	Op     string // "read" or "write"
	Path   string
	Subreg int
	Addr   uint64
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf(
		"regmodel: could not %s %s[%d] at 0x%x: %v",
		e.Op, e.Path, e.Subreg, e.Addr, e.Err,
	)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// MismatchError reports a register whose hardware value differs from its
// mirror value.
type MismatchError struct {
	Path string
	Want uint64 // mirror value
	Got  uint64 // hardware value
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"regmodel: register %s mismatch: mirror=0x%x, hw=0x%x",
		e.Path, e.Want, e.Got,
	)
}
