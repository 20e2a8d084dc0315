// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ral-load programs a set of devices sharing the same register map.
//
// Register values are read from a YAML file mapping register paths to
// values, or from a preset of the presets database. Devices are programmed
// concurrently.
package main // import "github.com/go-lpc/ral/cmd/ral-load"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/conddb"
	"github.com/go-lpc/ral/regdesc"
	"github.com/go-lpc/ral/regmap"
	"github.com/go-lpc/ral/regmodel"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	log.SetPrefix("ral-load: ")
	log.SetFlags(0)

	var (
		values = flag.String("values", "", "YAML file with register values")
		dbname = flag.String("db", "ral", "name of the presets database")
		preset = flag.String("preset", "", "name of the preset to load (\"last\" for the most recent one)")
		save   = flag.String("save", "", "store the values read from -values under this preset name")
		width  = flag.Int("width", 32, "bus width in bits")
		check  = flag.Bool("check", true, "verify registers after programming")
		alert  = flag.Bool("alert", false, "send a mail alert when programming fails (MAIL_xxx environment variables)")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ral-load [OPTIONS] regs.yaml bus1 [bus2 [...]]

ex:
 $> ral-load -values=./cosmics.yaml ./regs.yaml tcp:dev1:8877 tcp:dev2:8877
 $> ral-load -preset=last ./regs.yaml mmap:/dev/mem@0xff200000+0x1000

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		log.Fatalf("missing register description file or bus")
	}

	if (*values == "") == (*preset == "") {
		flag.Usage()
		log.Fatalf("exactly one of -values or -preset is required")
	}

	var (
		ctx   = context.Background()
		fname = flag.Arg(0)
		uris  = flag.Args()[1:]
	)

	vs, err := fetch(ctx, fname, *values, *dbname, *preset, *save)
	if err != nil {
		log.Fatalf("could not retrieve register values: %+v", err)
	}

	err = load(ctx, fname, uris, *width, vs, *check)
	if err != nil {
		if *alert {
			if err := alertMail(fname, uris, err); err != nil {
				log.Printf("%+v", err)
			}
		}
		log.Fatalf("could not program devices: %+v", err)
	}
	log.Printf("programmed %d registers on %d devices", len(vs), len(uris))
}

func fetch(ctx context.Context, fname, values, dbname, preset, save string) ([]regmodel.Value, error) {
	if values != "" && save == "" {
		return readValues(values)
	}

	addrmap, err := addrMapName(fname)
	if err != nil {
		return nil, err
	}

	db, err := conddb.Open(dbname)
	if err != nil {
		return nil, fmt.Errorf("could not open presets db: %w", err)
	}
	defer db.Close()

	if values != "" {
		vs, err := readValues(values)
		if err != nil {
			return nil, err
		}
		err = db.SavePreset(ctx, save, addrmap, toRegValues(vs))
		if err != nil {
			return nil, fmt.Errorf("could not save preset %q: %w", save, err)
		}
		log.Printf("saved preset %q for %q", save, addrmap)
		return vs, nil
	}

	if preset == "last" {
		preset, err = db.LastPreset(ctx, addrmap)
		if err != nil {
			return nil, err
		}
		log.Printf("using preset %q", preset)
	}

	rvs, err := db.Preset(ctx, preset)
	if err != nil {
		return nil, err
	}
	return fromRegValues(rvs), nil
}

func addrMapName(fname string) (string, error) {
	src, err := regdesc.Open(fname)
	if err != nil {
		return "", err
	}
	m, err := regmap.Build(src)
	if err != nil {
		return "", fmt.Errorf("could not build register map: %w", err)
	}
	return m.Root().Name(), nil
}

// readValues reads a YAML mapping of register paths to values.
// Values are returned in file order.
func readValues(fname string) ([]regmodel.Value, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("could not read values file: %w", err)
	}

	var doc yaml.Node
	err = yaml.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("could not decode values file %q: %w", fname, err)
	}
	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("values file %q is not a mapping of registers to values", fname)
	}

	var (
		m  = doc.Content[0]
		vs = make([]regmodel.Value, 0, len(m.Content)/2)
	)
	for i := 0; i+1 < len(m.Content); i += 2 {
		var (
			key = m.Content[i]
			v   uint64
		)
		err := m.Content[i+1].Decode(&v)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid value for register %q: %w", fname, key.Line, key.Value, err)
		}
		vs = append(vs, regmodel.Value{Path: key.Value, Value: v})
	}
	return vs, nil
}

func toRegValues(vs []regmodel.Value) []conddb.RegValue {
	o := make([]conddb.RegValue, len(vs))
	for i, v := range vs {
		o[i] = conddb.RegValue{Register: v.Path, Value: v.Value}
	}
	return o
}

func fromRegValues(vs []conddb.RegValue) []regmodel.Value {
	o := make([]regmodel.Value, len(vs))
	for i, v := range vs {
		o[i] = regmodel.Value{Path: v.Register, Value: v.Value}
	}
	return o
}

// load programs every device with vs.
// Each device gets its own register model.
func load(ctx context.Context, fname string, uris []string, width int, vs []regmodel.Value, check bool) error {
	grp, ctx := errgroup.WithContext(ctx)
	for _, uri := range uris {
		grp.Go(func() error {
			err := program(ctx, fname, uri, width, vs, check)
			if err != nil {
				return fmt.Errorf("device %q: %w", uri, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

func program(ctx context.Context, fname, uri string, width int, vs []regmodel.Value, check bool) error {
	dev, err := bus.Open(uri, width)
	if err != nil {
		return err
	}
	defer dev.Close()

	rm, err := regmodel.Open(fname, regmodel.FromBus(dev))
	if err != nil {
		return err
	}

	err = rm.SetAll(vs)
	if err != nil {
		return err
	}

	err = rm.WriteAll(ctx)
	if err != nil {
		return err
	}

	if !check {
		return nil
	}
	return rm.CheckAll(ctx)
}
