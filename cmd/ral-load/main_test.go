// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/regmodel"
)

func newDevice(t *testing.T) (*bus.Memory, string) {
	t.Helper()

	mem, err := bus.NewMemory(16)
	if err != nil {
		t.Fatalf("could not create bus: %+v", err)
	}
	srv, err := bus.NewServer("localhost:0", mem)
	if err != nil {
		t.Fatalf("could not create server: %+v", err)
	}
	srv.SetLogger(log.New(io.Discard, "bus-srv: ", 0))
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })

	return mem, "tcp:" + srv.Addr().String()
}

func TestReadValues(t *testing.T) {
	vs, err := readValues("testdata/cosmics.yaml")
	if err != nil {
		t.Fatalf("could not read values: %+v", err)
	}

	want := []regmodel.Value{
		{Path: "ctrl", Value: 0x51},
		{Path: "thresh", Value: 0x00400030},
	}
	if !reflect.DeepEqual(vs, want) {
		t.Fatalf("invalid values:\ngot= %+v\nwant=%+v", vs, want)
	}

	got, err := fetch(context.Background(), "testdata/node.yaml", "testdata/cosmics.yaml", "", "", "")
	if err != nil {
		t.Fatalf("could not fetch values: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid fetched values:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestReadValuesErrors(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		data string
		want string
	}{
		{"list", "- 1\n- 2\n", "is not a mapping of registers to values"},
		{"empty", "", "is not a mapping of registers to values"},
		{"value", "ctrl: 0x1\nthresh: abc\n", `:2: invalid value for register "thresh"`},
		{"yaml", "ctrl: [\n", "could not decode values file"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(dir, tc.name+".yaml")
			err := os.WriteFile(fname, []byte(tc.data), 0644)
			if err != nil {
				t.Fatalf("could not create values file: %+v", err)
			}
			_, err = readValues(fname)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}

	_, err := readValues(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoad(t *testing.T) {
	var (
		mems []*bus.Memory
		uris []string
	)
	for i := 0; i < 3; i++ {
		mem, uri := newDevice(t)
		mems = append(mems, mem)
		uris = append(uris, uri)
	}

	vs, err := readValues("testdata/cosmics.yaml")
	if err != nil {
		t.Fatalf("could not read values: %+v", err)
	}

	err = load(context.Background(), "testdata/node.yaml", uris, 16, vs, true)
	if err != nil {
		t.Fatalf("could not load devices: %+v", err)
	}

	for i, mem := range mems {
		for _, v := range []struct {
			addr uint64
			want uint64
		}{
			{0x0, 0x51},
			{0x4, 0x30},
			{0x6, 0x40},
		} {
			if got := mem.Peek(v.addr); got != v.want {
				t.Fatalf("device %d: invalid value @0x%x: got=0x%x, want=0x%x", i, v.addr, got, v.want)
			}
		}
	}
}

func TestLoadErrors(t *testing.T) {
	_, uri := newDevice(t)

	for _, tc := range []struct {
		name string
		uris []string
		vs   []regmodel.Value
		want string
	}{
		{"bad-bus", []string{uri, "usb:1"}, nil, `device "usb:1": bus: unknown bus kind "usb"`},
		{"bad-reg", []string{uri}, []regmodel.Value{{Path: "nope", Value: 1}}, `could not find register "nope"`},
		{"bad-value", []string{uri}, []regmodel.Value{{Path: "ctrl", Value: 0x10000}}, "does not fit in register ctrl"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := load(context.Background(), "testdata/node.yaml", tc.uris, 16, tc.vs, true)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}
