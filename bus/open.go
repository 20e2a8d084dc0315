// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Conn is a bus that needs to be closed after use.
type Conn interface {
	Bus
	io.Closer
}

// Open opens the bus described by uri, with the provided width in bits.
//
// The following forms are recognized:
//
//	mem                      in-memory loop-back bus
//	mmap:<file>@<base>+<span>  memory-mapped device file (e.g. /dev/mem)
//	smbus:<bus>@<addr>       SMBus device at addr on /dev/i2c-<bus>
//	tcp:<host>:<port>        remote bus served by a bus.Server
func Open(uri string, width int) (Conn, error) {
	kind, arg, _ := strings.Cut(uri, ":")
	switch kind {
	case "mem":
		if arg != "" {
			return nil, fmt.Errorf("bus: invalid memory bus %q", uri)
		}
		mem, err := NewMemory(width)
		if err != nil {
			return nil, err
		}
		return mem, nil
	case "mmap":
		return openMMap(uri, arg, width)
	case "smbus":
		return openSMBus(uri, arg, width)
	case "tcp":
		if arg == "" {
			return nil, fmt.Errorf("bus: invalid tcp bus %q (want tcp:<host>:<port>)", uri)
		}
		bus, err := Dial(arg)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}
	return nil, fmt.Errorf("bus: unknown bus kind %q", kind)
}

func openMMap(uri, arg string, width int) (Conn, error) {
	fname, loc, ok := strings.Cut(arg, "@")
	if !ok || fname == "" {
		return nil, fmt.Errorf("bus: invalid mmap bus %q (want mmap:<file>@<base>+<span>)", uri)
	}
	sbase, sspan, ok := strings.Cut(loc, "+")
	if !ok {
		return nil, fmt.Errorf("bus: invalid mmap bus %q (want mmap:<file>@<base>+<span>)", uri)
	}
	base, err := strconv.ParseInt(sbase, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("bus: invalid mmap base %q: %w", sbase, err)
	}
	span, err := strconv.ParseInt(sspan, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("bus: invalid mmap span %q: %w", sspan, err)
	}

	bus, err := OpenMMap(fname, base, int(span), width)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func openSMBus(uri, arg string, width int) (Conn, error) {
	sbus, saddr, ok := strings.Cut(arg, "@")
	if !ok {
		return nil, fmt.Errorf("bus: invalid smbus bus %q (want smbus:<bus>@<addr>)", uri)
	}
	id, err := strconv.Atoi(sbus)
	if err != nil {
		return nil, fmt.Errorf("bus: invalid smbus id %q: %w", sbus, err)
	}
	addr, err := strconv.ParseUint(saddr, 0, 7)
	if err != nil {
		return nil, fmt.Errorf("bus: invalid smbus address %q: %w", saddr, err)
	}

	bus, err := OpenSMBus(id, uint8(addr), width)
	if err != nil {
		return nil, err
	}
	return bus, nil
}
