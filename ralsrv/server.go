// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ralsrv exposes a register model as a TDAQ run-control node.
//
// The node loads its register description on /config, programs the
// hardware with the mirror on /start and verifies it on /stop.
package ralsrv // import "github.com/go-lpc/ral/ralsrv"

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/ral/conddb"
	"github.com/go-lpc/ral/regmodel"
)

// LastPreset is the preset name selecting the most recent preset stored
// for the loaded address map.
const LastPreset = "last"

// Presets retrieves register presets.
// *conddb.DB implements Presets.
type Presets interface {
	LastPreset(ctx context.Context, addrmap string) (string, error)
	Preset(ctx context.Context, name string) ([]conddb.RegValue, error)
}

// Option configures a Server.
type Option func(*Server)

// WithPresets sets the store presets are retrieved from.
func WithPresets(db Presets) Option {
	return func(srv *Server) {
		srv.db = db
	}
}

// WithModelOptions sets the options used to create the register model.
func WithModelOptions(opts ...regmodel.Option) Option {
	return func(srv *Server) {
		srv.opts = append(srv.opts, opts...)
	}
}

// Server is a TDAQ node driving a register model.
type Server struct {
	fname string
	cbs   regmodel.Callbacks
	opts  []regmodel.Option
	db    Presets

	rm     *regmodel.RegModel
	preset string
}

// New creates a new TDAQ node for the register description stored in fname,
// accessing the hardware through cbs.
func New(fname string, cbs regmodel.Callbacks, opts ...Option) *Server {
	srv := &Server{fname: fname, cbs: cbs}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Model returns the register model loaded by the last /config command.
func (srv *Server) Model() *regmodel.RegModel { return srv.rm }

func (srv *Server) model() (*regmodel.RegModel, error) {
	if srv.rm == nil {
		return nil, errors.New("ralsrv: no register model loaded (missing /config?)")
	}
	return srv.rm, nil
}

func (srv *Server) applyPreset(ctx tdaq.Context, rm *regmodel.RegModel) error {
	if srv.preset == "" {
		return nil
	}
	if srv.db == nil {
		return fmt.Errorf("ralsrv: preset %q requested without a presets database", srv.preset)
	}

	name := srv.preset
	if name == LastPreset {
		var err error
		name, err = srv.db.LastPreset(ctx.Ctx, rm.Map().Root().Name())
		if err != nil {
			return fmt.Errorf("ralsrv: could not find last preset: %w", err)
		}
	}

	rvs, err := srv.db.Preset(ctx.Ctx, name)
	if err != nil {
		return fmt.Errorf("ralsrv: could not retrieve preset %q: %w", name, err)
	}

	vs := make([]regmodel.Value, len(rvs))
	for i, rv := range rvs {
		vs[i] = regmodel.Value{Path: rv.Register, Value: rv.Value}
	}

	err = rm.SetAll(vs)
	if err != nil {
		return fmt.Errorf("ralsrv: could not apply preset %q: %w", name, err)
	}
	ctx.Msg.Infof("applied preset %q (%d registers)", name, len(vs))
	return nil
}

// OnConfig loads the register description.
// The request body may carry the name of the preset to apply on /init.
func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	srv.preset = ""
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		srv.preset = dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /config request: %+v", err)
			return fmt.Errorf("ralsrv: could not decode /config request: %w", err)
		}
	}

	rm, err := regmodel.Open(srv.fname, srv.cbs, srv.opts...)
	if err != nil {
		ctx.Msg.Errorf("could not load register description %q: %+v", srv.fname, err)
		return fmt.Errorf("ralsrv: could not load register description: %w", err)
	}
	srv.rm = rm

	ctx.Msg.Infof("loaded %d registers from %q", len(rm.Paths()), srv.fname)
	return nil
}

// OnInit resets the mirror and applies the configured preset.
func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	rm, err := srv.model()
	if err != nil {
		ctx.Msg.Errorf("could not initialize: %+v", err)
		return err
	}

	rm.ResetAll()
	err = srv.applyPreset(ctx, rm)
	if err != nil {
		ctx.Msg.Errorf("could not initialize: %+v", err)
		return err
	}
	return nil
}

// OnReset restores the reset value of every register in the mirror.
func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	rm, err := srv.model()
	if err != nil {
		return err
	}
	rm.ResetAll()
	return nil
}

// OnStart writes the mirror to the hardware.
func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	rm, err := srv.model()
	if err != nil {
		return err
	}

	err = rm.WriteAll(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("could not program registers: %+v", err)
		return fmt.Errorf("ralsrv: could not program registers: %w", err)
	}
	ctx.Msg.Infof("programmed %d registers", len(rm.Paths()))
	return nil
}

// OnStop verifies the hardware against the mirror.
func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	rm, err := srv.model()
	if err != nil {
		return err
	}

	err = rm.CheckAll(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("register check failed: %+v", err)
		return fmt.Errorf("ralsrv: register check failed: %w", err)
	}
	ctx.Msg.Infof("register check: OK")
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}
