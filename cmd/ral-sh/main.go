// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ral-sh is an interactive shell to inspect and program registers.
package main // import "github.com/go-lpc/ral/cmd/ral-sh"

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/internal/script"
	"github.com/go-lpc/ral/internal/shell"
	"github.com/go-lpc/ral/regmodel"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

func main() {
	log.SetPrefix("ral-sh: ")
	log.SetFlags(0)

	var (
		uri   = flag.String("bus", "mem", "register bus to connect to (mem, mmap:<file>@<base>+<span>, smbus:<bus>@<addr>, tcp:<addr>)")
		width = flag.Int("width", 32, "bus width in bits")
		lua   = flag.String("script", "", "Lua register sequence to run before the shell starts")
		verb  = flag.Bool("v", false, "enable verbose mode (log bus accesses)")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ral-sh [OPTIONS] regs.yaml

ex:
 $> ral-sh -bus=tcp:192.168.1.10:8877 ./regs.yaml
 $> echo "read ctrl" | ral-sh -bus=mmap:/dev/mem@0xff200000+0x1000 ./regs.yaml

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing register description file")
	}

	dev, err := bus.Open(*uri, *width)
	if err != nil {
		log.Fatalf("could not open bus %q: %+v", *uri, err)
	}
	defer dev.Close()

	rm, err := regmodel.Open(
		flag.Arg(0), regmodel.FromBus(dev),
		regmodel.WithVerbose(*verb),
	)
	if err != nil {
		log.Fatalf("could not load register model: %+v", err)
	}

	ctx := context.Background()
	if *lua != "" {
		it := script.New(ctx, rm)
		err = it.DoFile(*lua)
		it.Close()
		if err != nil {
			log.Fatalf("could not run script: %+v", err)
		}
	}

	sh := shell.New(rm, os.Stdout)
	switch {
	case term.IsTerminal(int(os.Stdin.Fd())):
		err = interactive(ctx, sh)
	default:
		err = batch(ctx, sh, os.Stdin)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func interactive(ctx context.Context, sh *shell.Shell) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.Complete)

	hist := histFile()
	if f, err := os.Open(hist); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = line.WriteHistory(f)
	}()

	for {
		cmd, err := line.Prompt("ral> ")
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			fmt.Println()
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}
		line.AppendHistory(cmd)

		err = sh.Exec(ctx, cmd)
		switch {
		case err == nil:
		case errors.Is(err, shell.ErrQuit):
			return nil
		default:
			fmt.Printf("error: %v\n", err)
		}
	}
}

// batch runs the commands read from r, stopping at the first error.
func batch(ctx context.Context, sh *shell.Shell, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for i := 1; sc.Scan(); i++ {
		err := sh.Exec(ctx, sc.Text())
		switch {
		case err == nil:
		case errors.Is(err, shell.ErrQuit):
			return nil
		default:
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	err := sc.Err()
	if err != nil {
		return fmt.Errorf("could not read commands: %w", err)
	}
	return nil
}

func histFile() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ".ral_history")
}
