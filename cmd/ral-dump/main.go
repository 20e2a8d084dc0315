// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ral-dump displays the register map described by a YAML file.
package main // import "github.com/go-lpc/ral/cmd/ral-dump"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/ral/regdesc"
	"github.com/go-lpc/ral/regmap"
	"github.com/k0kubun/pp/v3"
)

func main() {
	log.SetPrefix("ral-dump: ")
	log.SetFlags(0)

	var (
		debug = flag.Bool("debug", false, "dump the elaborated description tree")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ral-dump [OPTIONS] regs.yaml

ex:
 $> ral-dump ./regs.yaml
 $> ral-dump -debug ./regs.yaml

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing register description file")
	}

	src, err := regdesc.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("could not open register description: %+v", err)
	}

	if *debug {
		pp.Println(src)
	}

	m, err := regmap.Build(src)
	if err != nil {
		log.Fatalf("could not build register map: %+v", err)
	}

	dump(os.Stdout, m)
}

func dump(w io.Writer, m *regmap.Map) {
	root := m.Root()
	fmt.Fprintf(
		w, "addrmap %s size=0x%x addrwidth=%d accesswidth=%d\n",
		root.Name(), root.Size(), root.AddrWidth(), root.AccessWidth(),
	)
	for _, c := range root.Children() {
		dumpNode(w, c, 1)
	}
}

func dumpNode(w io.Writer, n regmap.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind() {
	case regmap.KindRegFile:
		fmt.Fprintf(w, "%s0x%04x regfile %s size=0x%x\n", indent, n.Address(), n.Name(), n.Size())
		for _, c := range n.Children() {
			dumpNode(w, c, depth+1)
		}

	case regmap.KindReg:
		reg := regmap.Register{Node: n}
		fmt.Fprintf(
			w, "%s0x%04x reg %s regwidth=%d accesswidth=%d",
			indent, reg.Address(), reg.Path("."), reg.RegWidth(), reg.AccessWidth(),
		)
		if reg.IsWide() {
			fmt.Fprintf(w, " subregs=%d", reg.Subregs())
		}
		fmt.Fprintf(w, "\n")
		for _, f := range reg.Fields() {
			dumpField(w, f, indent+"  ")
		}
	}
}

func dumpField(w io.Writer, f regmap.Field, indent string) {
	fmt.Fprintf(
		w, "%s[%s] %s sw=%s hw=%s",
		indent, f.BitSlice(), f.Name(),
		access(f.IsSwReadable(), f.IsSwWritable()),
		access(f.IsHwReadable(), f.IsHwWritable()),
	)
	switch v, ok := f.Reset(); {
	case ok:
		fmt.Fprintf(w, " reset=0x%x", v)
	default:
		if sig, ok := f.ResetSignal(); ok {
			fmt.Fprintf(w, " reset=%s", sig)
		}
	}
	if v := f.OnRead().String(); v != "" {
		fmt.Fprintf(w, " onread=%s", v)
	}
	if v := f.OnWrite().String(); v != "" {
		fmt.Fprintf(w, " onwrite=%s", v)
	}
	if f.SwAcc() {
		fmt.Fprintf(w, " swacc")
	}
	if f.SwMod() {
		fmt.Fprintf(w, " swmod")
	}
	fmt.Fprintf(w, "\n")
}

func access(r, w bool) string {
	switch {
	case r && w:
		return "rw"
	case r:
		return "r"
	case w:
		return "w"
	default:
		return "na"
	}
}
