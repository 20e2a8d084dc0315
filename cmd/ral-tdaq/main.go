// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ral-tdaq starts a TDAQ server programming a register bank.
//
// The register description is loaded on /config, the registers are
// written on /start and verified on /stop.
package main // import "github.com/go-lpc/ral/cmd/ral-tdaq"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/conddb"
	"github.com/go-lpc/ral/ralsrv"
	"github.com/go-lpc/ral/regmodel"
)

func main() {
	log.SetPrefix("ral-tdaq: ")
	log.SetFlags(0)

	var (
		uri    = flag.String("bus", "mem", "register bus to program")
		width  = flag.Int("width", 32, "bus width in bits")
		dbname = flag.String("db", "", "name of the presets database (empty: no presets)")
		verb   = flag.Bool("v", false, "enable verbose mode (log bus accesses)")
	)

	cmd := flags.New()
	if len(cmd.Args) != 1 {
		log.Fatalf("missing register description file")
	}

	dev, err := bus.Open(*uri, *width)
	if err != nil {
		log.Fatalf("could not open bus %q: %+v", *uri, err)
	}
	defer dev.Close()

	opts := []ralsrv.Option{
		ralsrv.WithModelOptions(
			regmodel.WithLogger(log.New(os.Stdout, "ral-tdaq: ", 0)),
			regmodel.WithVerbose(*verb),
		),
	}
	if *dbname != "" {
		db, err := conddb.Open(*dbname)
		if err != nil {
			log.Fatalf("could not open presets db: %+v", err)
		}
		defer db.Close()
		opts = append(opts, ralsrv.WithPresets(db))
	}

	node := ralsrv.New(cmd.Args[0], regmodel.FromBus(dev), opts...)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", node.OnConfig)
	srv.CmdHandle("/init", node.OnInit)
	srv.CmdHandle("/reset", node.OnReset)
	srv.CmdHandle("/start", node.OnStart)
	srv.CmdHandle("/stop", node.OnStop)
	srv.CmdHandle("/quit", node.OnQuit)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
