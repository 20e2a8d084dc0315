// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/regdesc"
	"github.com/go-lpc/ral/regmap"
	"github.com/go-lpc/ral/regmodel"
)

const desc = `
name: top
accesswidth: 8
children:
  - type: reg
    name: ctrl
    regwidth: 8
    fields:
      - {name: en, bits: "0", reset: 1}
      - {name: mode, bits: "3:1"}
  - type: reg
    name: wide
    offset: 0x04
    regwidth: 64
    accesswidth: 32
    fields:
      - {name: lo, bits: "31:0"}
      - {name: hi, bits: "63:32"}
`

func newShell(t *testing.T) (*Shell, *strings.Builder, *bus.Memory) {
	t.Helper()

	src, err := regdesc.Decode(strings.NewReader(desc))
	if err != nil {
		t.Fatalf("could not decode description: %+v", err)
	}
	m, err := regmap.Build(src)
	if err != nil {
		t.Fatalf("could not build map: %+v", err)
	}
	mem, err := bus.NewMemory(32)
	if err != nil {
		t.Fatalf("could not create bus: %+v", err)
	}
	rm, err := regmodel.New(m, regmodel.FromBus(mem))
	if err != nil {
		t.Fatalf("could not create model: %+v", err)
	}
	out := new(strings.Builder)
	return New(rm, out), out, mem
}

func TestExec(t *testing.T) {
	sh, out, mem := newShell(t)
	ctx := context.Background()

	for _, tc := range []struct {
		line string
		want string
	}{
		{"", ""},
		{"# comment", ""},
		{"get ctrl", "ctrl = 0x1\n"},
		{"set ctrl mode 5", ""},
		{"get ctrl", "ctrl = 0xb\n"},
		{"GET ctrl mode # upper case", "ctrl.mode = 0x5\n"},
		{"write ctrl", ""},
		{"set wide 0xdead_beef_0000_0001", ""},
		{"write", ""},
		{"read wide hi", "wide.hi = 0xdeadbeef\n"},
		{"check", "ok\n"},
		{"check wide", "ok\n"},
		{"fields ctrl", fmt.Sprintf("  %-16s [0] = 0x1\n  %-16s [3:1] = 0x5\n", "en", "mode")},
		{"ls w", fmt.Sprintf("0x0004 %-24s regwidth=64 accesswidth=32\n", "wide")},
		{"write ctrl 0", ""},
		{"read ctrl", "ctrl = 0x0\n"},
		{"reset ctrl", ""},
		{"dump", "ctrl = 0x1\nwide = 0xdeadbeef00000001\n"},
		{"reset", ""},
		{"dump", "ctrl = 0x1\nwide = 0x0\n"},
	} {
		t.Run(tc.line, func(t *testing.T) {
			out.Reset()
			err := sh.Exec(ctx, tc.line)
			if err != nil {
				t.Fatalf("could not exec %q: %+v", tc.line, err)
			}
			if got, want := out.String(), tc.want; got != want {
				t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
			}
		})
	}

	if got, want := mem.Peek(0x08), uint64(0xdeadbeef); got != want {
		t.Fatalf("invalid wide[1] value: got=0x%x, want=0x%x", got, want)
	}
}

func TestExecErrors(t *testing.T) {
	sh, _, mem := newShell(t)
	ctx := context.Background()

	err := sh.Exec(ctx, "write")
	if err != nil {
		t.Fatalf("could not write registers: %+v", err)
	}
	mem.Poke(0x00, 0x3)

	for _, tc := range []struct {
		line string
		want string
	}{
		{"frobnicate", `shell: unknown command "frobnicate"`},
		{"get", "shell: usage: get <reg> [field]"},
		{"get a b c", "shell: usage: get <reg> [field]"},
		{"get nope", `could not find register "nope"`},
		{"get ctrl nope", `could not find field "nope"`},
		{"set ctrl zz", `shell: invalid value "zz"`},
		{"set ctrl 0x100", "does not fit in register ctrl"},
		{"set ctrl mode 8", "does not fit in field ctrl.mode"},
		{"write ctrl -1", `shell: invalid value "-1"`},
		{"check", "register ctrl mismatch"},
		{"dump now", "shell: usage: dump"},
		{"run", "shell: usage: run <file.lua>"},
	} {
		t.Run(tc.line, func(t *testing.T) {
			err := sh.Exec(ctx, tc.line)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}

	for _, line := range []string{"quit", "exit"} {
		err := sh.Exec(ctx, line)
		if !errors.Is(err, ErrQuit) {
			t.Fatalf("%s: invalid error: %+v", line, err)
		}
	}
}

func TestRun(t *testing.T) {
	sh, _, mem := newShell(t)

	fname := filepath.Join(t.TempDir(), "seq.lua")
	err := os.WriteFile(fname, []byte(`
ral.set_field("ctrl", "mode", 7)
ral.write("ctrl")
`), 0644)
	if err != nil {
		t.Fatalf("could not create script: %+v", err)
	}

	err = sh.Exec(context.Background(), "run "+fname)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}
	if got, want := mem.Peek(0x00), uint64(0xf); got != want {
		t.Fatalf("invalid ctrl value: got=0x%x, want=0x%x", got, want)
	}
}

func TestHelp(t *testing.T) {
	sh, out, _ := newShell(t)
	err := sh.Exec(context.Background(), "help")
	if err != nil {
		t.Fatalf("could not run help: %+v", err)
	}
	for name, cmd := range cmds {
		if name == "exit" {
			continue
		}
		if !strings.Contains(out.String(), cmd.usage) {
			t.Fatalf("help is missing command %q", name)
		}
	}
	if strings.Contains(out.String(), "exit") {
		t.Fatalf("help should not list aliases")
	}
}

func TestComplete(t *testing.T) {
	sh, _, _ := newShell(t)

	for _, tc := range []struct {
		line string
		want []string
	}{
		{"re", []string{"read ", "reset "}},
		{"ra", []string{"randomize "}},
		{"get ", []string{"get ctrl", "get wide"}},
		{"get w", []string{"get wide"}},
		{"get ctrl ", []string{"get ctrl en", "get ctrl mode"}},
		{"set ctrl m", []string{"set ctrl mode"}},
		{"write ctrl ", nil},
		{"get nope ", nil},
		{"get ctrl mode ", nil},
	} {
		t.Run(tc.line, func(t *testing.T) {
			got := sh.Complete(tc.line)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid completion:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}
