// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/go-lpc/ral/internal/mmap"
)

// ReadWriterAt is the interface that groups the ReadAt and WriteAt methods.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// MMap is a bus over a memory-mapped register window.
// Bus addresses are byte offsets into the window; values are stored in
// little-endian.
type MMap struct {
	mu    sync.Mutex
	rw    ReadWriterAt
	width int
	buf   [8]byte
}

// OpenMMap maps span bytes of the named device file, starting at base.
func OpenMMap(fname string, base int64, span, width int) (*MMap, error) {
	err := checkWidth(width)
	if err != nil {
		return nil, err
	}

	h, err := mmap.Open(fname, base, span)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open mmap bus: %w", err)
	}
	return &MMap{rw: h, width: width}, nil
}

// NewMMap creates a bus over rw.
func NewMMap(rw ReadWriterAt, width int) (*MMap, error) {
	err := checkWidth(width)
	if err != nil {
		return nil, err
	}
	return &MMap{rw: rw, width: width}, nil
}

// Close releases the underlying window, if it can be closed.
func (bus *MMap) Close() error {
	if c, ok := bus.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (bus *MMap) Write(ctx context.Context, addr, value uint64) error {
	err := bus.check(addr)
	if err != nil {
		return err
	}
	err = checkValue(value, bus.width)
	if err != nil {
		return err
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	n := bus.width / 8
	switch bus.width {
	case 8:
		bus.buf[0] = uint8(value)
	case 16:
		binary.LittleEndian.PutUint16(bus.buf[:2], uint16(value))
	case 32:
		binary.LittleEndian.PutUint32(bus.buf[:4], uint32(value))
	case 64:
		binary.LittleEndian.PutUint64(bus.buf[:8], value)
	}

	_, err = bus.rw.WriteAt(bus.buf[:n], int64(addr))
	if err != nil {
		return fmt.Errorf("bus: could not write register 0x%x: %w", addr, err)
	}
	return nil
}

func (bus *MMap) Read(ctx context.Context, addr uint64) (uint64, error) {
	err := bus.check(addr)
	if err != nil {
		return 0, err
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	n := bus.width / 8
	_, err = bus.rw.ReadAt(bus.buf[:n], int64(addr))
	if err != nil {
		return 0, fmt.Errorf("bus: could not read register 0x%x: %w", addr, err)
	}

	switch bus.width {
	case 8:
		return uint64(bus.buf[0]), nil
	case 16:
		return uint64(binary.LittleEndian.Uint16(bus.buf[:2])), nil
	case 32:
		return uint64(binary.LittleEndian.Uint32(bus.buf[:4])), nil
	default:
		return binary.LittleEndian.Uint64(bus.buf[:8]), nil
	}
}

func (bus *MMap) check(addr uint64) error {
	if n := uint64(bus.width / 8); addr%n != 0 {
		return fmt.Errorf("bus: address 0x%x is not aligned on %d bytes", addr, n)
	}
	return nil
}

var _ Bus = (*MMap)(nil)
