// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	fname := filepath.Join(t.TempDir(), "dev.mem")
	err := os.WriteFile(fname, make([]byte, 2*os.Getpagesize()), 0644)
	if err != nil {
		t.Fatalf("could not create device file: %+v", err)
	}

	mem, err := NewMemory(32)
	if err != nil {
		t.Fatalf("could not create memory bus: %+v", err)
	}
	srv, err := NewServer("localhost:0", mem)
	if err != nil {
		t.Fatalf("could not create server: %+v", err)
	}
	srv.SetLogger(log.New(io.Discard, "bus-srv: ", 0))
	go func() { _ = srv.Serve() }()
	defer srv.Close()

	for _, uri := range []string{
		"mem",
		fmt.Sprintf("mmap:%s@0x%x+0x100", fname, os.Getpagesize()),
		"tcp:" + srv.Addr().String(),
	} {
		t.Run(uri, func(t *testing.T) {
			bus, err := Open(uri, 32)
			if err != nil {
				t.Fatalf("could not open bus: %+v", err)
			}
			defer bus.Close()

			err = bus.Write(ctx, 0x8, 0xdeadbeef)
			if err != nil {
				t.Fatalf("could not write: %+v", err)
			}
			v, err := bus.Read(ctx, 0x8)
			if err != nil {
				t.Fatalf("could not read: %+v", err)
			}
			if got, want := v, uint64(0xdeadbeef); got != want {
				t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
			}

			err = bus.Close()
			if err != nil {
				t.Fatalf("could not close bus: %+v", err)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	for _, tc := range []struct {
		uri  string
		want string
	}{
		{"", `bus: unknown bus kind ""`},
		{"usb:1", `bus: unknown bus kind "usb"`},
		{"mem:42", `bus: invalid memory bus "mem:42"`},
		{"mmap:/dev/mem", "want mmap:<file>@<base>+<span>"},
		{"mmap:/dev/mem@0x10", "want mmap:<file>@<base>+<span>"},
		{"mmap:/dev/mem@zz+0x10", `bus: invalid mmap base "zz"`},
		{"mmap:/dev/mem@0x10+zz", `bus: invalid mmap span "zz"`},
		{"smbus:1", "want smbus:<bus>@<addr>"},
		{"smbus:x@0x20", `bus: invalid smbus id "x"`},
		{"smbus:1@0x80", `bus: invalid smbus address "0x80"`},
		{"tcp:", "want tcp:<host>:<port>"},
	} {
		t.Run(tc.uri, func(t *testing.T) {
			_, err := Open(tc.uri, 32)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}
