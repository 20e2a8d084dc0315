// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-daq/smbus"
)

type smbusConn interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	ReadWord(addr, reg uint8) (uint16, error)
	WriteWord(addr, reg uint8, v uint16) error
	Close() error
}

// SMBus is a bus over the registers of an I2C/SMBus slave device.
// Bus addresses are the 8-bit register numbers of the device.
type SMBus struct {
	mu    sync.Mutex
	conn  smbusConn
	addr  uint8
	width int
}

// OpenSMBus opens the device at addr on the numbered SMBus.
// The width of the bus is either 8 (byte data) or 16 (word data).
func OpenSMBus(bus int, addr uint8, width int) (*SMBus, error) {
	conn, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("bus: could not open smbus %d (addr=0x%x): %w", bus, addr, err)
	}

	dev, err := newSMBus(conn, addr, width)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return dev, nil
}

func newSMBus(conn smbusConn, addr uint8, width int) (*SMBus, error) {
	switch width {
	case 8, 16:
	default:
		return nil, fmt.Errorf("bus: invalid smbus width %d", width)
	}
	return &SMBus{conn: conn, addr: addr, width: width}, nil
}

// Close closes the connection to the device.
func (bus *SMBus) Close() error {
	return bus.conn.Close()
}

func (bus *SMBus) Write(ctx context.Context, addr, value uint64) error {
	reg, err := bus.reg(addr)
	if err != nil {
		return err
	}
	err = checkValue(value, bus.width)
	if err != nil {
		return err
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	switch bus.width {
	case 8:
		err = bus.conn.WriteReg(bus.addr, reg, uint8(value))
	default:
		err = bus.conn.WriteWord(bus.addr, reg, uint16(value))
	}
	if err != nil {
		return fmt.Errorf("bus: could not write smbus register 0x%x: %w", reg, err)
	}
	return nil
}

func (bus *SMBus) Read(ctx context.Context, addr uint64) (uint64, error) {
	reg, err := bus.reg(addr)
	if err != nil {
		return 0, err
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	var v uint64
	switch bus.width {
	case 8:
		var u8 uint8
		u8, err = bus.conn.ReadReg(bus.addr, reg)
		v = uint64(u8)
	default:
		var u16 uint16
		u16, err = bus.conn.ReadWord(bus.addr, reg)
		v = uint64(u16)
	}
	if err != nil {
		return 0, fmt.Errorf("bus: could not read smbus register 0x%x: %w", reg, err)
	}
	return v, nil
}

func (bus *SMBus) reg(addr uint64) (uint8, error) {
	if addr > 0xff {
		return 0, fmt.Errorf("bus: invalid smbus register address 0x%x", addr)
	}
	return uint8(addr), nil
}

var _ Bus = (*SMBus)(nil)
