// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regmodel implements a register abstraction layer on top of an
// abstract bus.
//
// A RegModel keeps a software mirror of every field of a register map,
// seeded from the declared reset values. Registers are addressed by their
// dotted path (e.g. "rf.r9") and are transferred over the bus in chunks of
// their access width, lowest address first.
package regmodel // import "github.com/go-lpc/ral/regmodel"

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/go-lpc/ral/regdesc"
	"github.com/go-lpc/ral/regmap"
)

var (
	// ErrRange reports a value that does not fit its target register or field.
	ErrRange = errors.New("regmodel: value out of range")

	// ErrCallback reports a missing bus capability.
	ErrCallback = errors.New("regmodel: missing callback")
)

// RegModel is a register abstraction layer over a register map.
//
// A RegModel is not safe for concurrent use.
type RegModel struct {
	msg *log.Logger
	cfg config

	m   *regmap.Map
	idx *regmap.Index
	cbs Callbacks

	mirror []uint64 // field values, indexed by node id
}

// Value associates a register path with a register value.
type Value struct {
	Path  string
	Value uint64
}

// New creates a register model for the provided map, using cbs to access
// the hardware.
func New(m *regmap.Map, cbs Callbacks, opts ...Option) (*RegModel, error) {
	err := cbs.validate()
	if err != nil {
		return nil, err
	}

	idx, err := regmap.NewIndex(m.Root())
	if err != nil {
		return nil, fmt.Errorf("regmodel: could not index register map: %w", err)
	}

	rm := &RegModel{
		msg: log.New(os.Stdout, "regmodel: ", 0),
		cfg: newConfig(),
		m:   m,
		idx: idx,
		cbs: cbs,

		mirror: make([]uint64, m.Len()),
	}
	for _, opt := range opts {
		opt(&rm.cfg)
	}
	if rm.cfg.msg != nil {
		rm.msg = rm.cfg.msg
	}

	rm.ResetAll()
	return rm, nil
}

// Open loads the named register description and creates a register model
// for it.
func Open(fname string, cbs Callbacks, opts ...Option) (*RegModel, error) {
	src, err := regdesc.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("regmodel: could not open description: %w", err)
	}

	m, err := regmap.Build(src)
	if err != nil {
		return nil, fmt.Errorf("regmodel: could not build register map: %w", err)
	}

	return New(m, cbs, opts...)
}

// Map returns the underlying register map.
func (rm *RegModel) Map() *regmap.Map { return rm.m }

// Register returns the register located at the provided path.
func (rm *RegModel) Register(path string) (regmap.Register, error) {
	return rm.idx.Lookup(path)
}

// Paths returns the paths of all registers, in traversal order.
func (rm *RegModel) Paths() []string { return rm.idx.Paths() }

func (rm *RegModel) field(path, name string) (regmap.Field, error) {
	reg, err := rm.idx.Lookup(path)
	if err != nil {
		return regmap.Field{}, err
	}
	return reg.Field(name)
}

func (rm *RegModel) debugf(format string, args ...interface{}) {
	if !rm.cfg.verbose {
		return
	}
	rm.msg.Printf(format, args...)
}

// Option configures a register model.
type Option func(*config)

type config struct {
	msg     *log.Logger
	rnd     *rand.Rand
	verbose bool
}

func newConfig() config {
	return config{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLogger sets the logger used by the register model.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithRand sets the random source used to randomize registers.
func WithRand(rnd *rand.Rand) Option {
	return func(cfg *config) {
		cfg.rnd = rnd
	}
}

// WithVerbose enables the logging of every bus transaction.
func WithVerbose(v bool) Option {
	return func(cfg *config) {
		cfg.verbose = v
	}
}
