// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ral-srv exposes a local register bus over TCP.
//
// Clients connect to it with the "tcp:<host>:<port>" bus of ral-sh,
// ral-load or ral-tdaq.
package main // import "github.com/go-lpc/ral/cmd/ral-srv"

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/go-lpc/ral/bus"
)

func main() {
	log.SetPrefix("ral-srv: ")
	log.SetFlags(0)

	var (
		addr  = flag.String("addr", ":8877", "[ip]:[port] to listen on")
		uri   = flag.String("bus", "mmap:/dev/mem@0xff200000+0x1000", "local register bus to expose")
		width = flag.Int("width", 32, "bus width in bits")
	)

	flag.Parse()

	if strings.HasPrefix(*uri, "tcp:") {
		log.Fatalf("refusing to re-export remote bus %q", *uri)
	}

	dev, err := bus.Open(*uri, *width)
	if err != nil {
		log.Fatalf("could not open bus %q: %+v", *uri, err)
	}
	defer dev.Close()

	srv, err := bus.NewServer(*addr, dev)
	if err != nil {
		log.Fatalf("could not create server: %+v", err)
	}
	srv.SetLogger(log.New(os.Stdout, "ral-srv: ", 0))

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		<-sigc
		log.Printf("shutting down...")
		_ = srv.Close()
	}()

	log.Printf("serving %q on %v...", *uri, srv.Addr())
	err = srv.Serve()
	if err != nil {
		log.Fatalf("could not serve bus: %+v", err)
	}
}
