// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("closed", func(t *testing.T) {
		h := HandleFrom(make([]byte, 4))
		err := h.Close()
		if err != nil {
			t.Fatalf("could not close handle: %+v", err)
		}

		_, err = h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing closed handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	_, err := h.WriteAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid WriteAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.WriteAt([]byte{0xa, 0xb}, 2)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	p := make([]byte, 2)
	_, err = h.ReadAt(p, 2)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if p[0] != 0xa || p[1] != 0xb {
		t.Fatalf("invalid data: %x", p)
	}

	_, err = h.ReadAt(p, 3)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read error: %+v", err)
	}

	_, err = h.WriteAt(p, 3)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("invalid short write error: %+v", err)
	}
}

func TestOpen(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "mem.bin")
	err := os.WriteFile(fname, make([]byte, 2*os.Getpagesize()), 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	h, err := Open(fname, int64(os.Getpagesize()), 16)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}

	_, err = h.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, 4)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read back file: %+v", err)
	}
	off := os.Getpagesize() + 4
	if got, want := raw[off:off+4], []byte{0xde, 0xad, 0xbe, 0xef}; string(got) != string(want) {
		t.Fatalf("invalid file content: got=%x, want=%x", got, want)
	}

	_, err = Open(filepath.Join(t.TempDir(), "not-there"), 0, 16)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
