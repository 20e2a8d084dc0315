// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides random access to memory-mapped register windows.
package mmap // import "github.com/go-lpc/ral/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a memory-mapped window.
type Handle struct {
	data  []byte
	unmap func([]byte) error
}

// Open maps span bytes of the named file, starting at offset base.
// The file is typically a memory device such as /dev/mem or a UIO device.
func Open(fname string, base int64, span int) (*Handle, error) {
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	data, err := unix.Mmap(
		int(f.Fd()),
		base, span,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not mmap %q [0x%x, 0x%x): %w", fname, base, base+int64(span), err)
	}
	if data == nil || len(data) != span {
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(data))
	}

	h := &Handle{data: data, unmap: unix.Munmap}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// HandleFrom wraps a byte slice as a handle.
// Closing the returned handle does not unmap anything.
func HandleFrom(data []byte) *Handle {
	return &Handle{data: data}
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	if h.unmap == nil {
		return nil
	}
	return h.unmap(data)
}

// Len returns the length of the memory-mapped window.
func (h *Handle) Len() int {
	return len(h.data)
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
