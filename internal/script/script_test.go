// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/ral/bus"
	"github.com/go-lpc/ral/regdesc"
	"github.com/go-lpc/ral/regmap"
	"github.com/go-lpc/ral/regmodel"
	lua "github.com/yuin/gopher-lua"
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

func newModel(t *testing.T) (*regmodel.RegModel, *bus.Memory) {
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
	return rm, mem
}

func TestScript(t *testing.T) {
	rm, mem := newModel(t)

	it := New(context.Background(), rm)
	defer it.Close()

	err := it.DoString(`
assert(ral.get("ctrl") == 1)
ral.set_field("ctrl", "mode", 5)
assert(ral.get("ctrl") == 11)
ral.write("ctrl")

ral.set("wide", "0xdeadbeef00000001")
assert(ral.get("wide") == "0xdeadbeef00000001")
assert(ral.get_field("wide", "lo") == 1)
ral.write("wide")
assert(ral.read_field("wide", "hi") == 0xdeadbeef)

ral.write("ctrl", 0)
assert(ral.get("ctrl") == 0)

local ok, msg = ral.check("wide")
assert(ok)

paths = ral.paths()
`)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}

	if got, want := mem.Peek(0x00), uint64(0); got != want {
		t.Fatalf("invalid ctrl value: got=0x%x, want=0x%x", got, want)
	}
	if got, want := mem.Peek(0x04), uint64(0x1); got != want {
		t.Fatalf("invalid wide[0] value: got=0x%x, want=0x%x", got, want)
	}
	if got, want := mem.Peek(0x08), uint64(0xdeadbeef); got != want {
		t.Fatalf("invalid wide[1] value: got=0x%x, want=0x%x", got, want)
	}

	var paths []string
	tbl := it.L.GetGlobal("paths")
	for i := 1; ; i++ {
		v := it.L.GetTable(tbl, lua.LNumber(i))
		if v == lua.LNil {
			break
		}
		paths = append(paths, v.String())
	}
	if got, want := paths, []string{"ctrl", "wide"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid paths: got=%q, want=%q", got, want)
	}
}

func TestScriptCheck(t *testing.T) {
	rm, mem := newModel(t)

	it := New(context.Background(), rm)
	defer it.Close()

	err := it.DoString(`ral.write_all()`)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}

	mem.Poke(0x00, 0x3)
	err = it.DoString(`
local ok, msg = ral.check_all()
assert(not ok)
assert(string.find(msg, "register ctrl mismatch", 1, true))
ral.reset_all()
ral.randomize("wide")
ral.randomize_field("ctrl", "mode")
ral.reset_field("ctrl", "mode")
ral.reset("wide")
assert(ral.get("wide") == 0)
`)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}
}

func TestScriptCheckBusFailure(t *testing.T) {
	rm, mem := newModel(t)

	it := New(context.Background(), rm)
	defer it.Close()

	err := it.DoString(`ral.write_all()`)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}

	mem.Poke(0x00, 0x3)
	mem.Fail(0x08, errors.New("boom"))

	for _, code := range []string{
		`ral.check("wide")`,
		`ral.check_all()`,
	} {
		t.Run(code, func(t *testing.T) {
			err := it.DoString(code)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), "boom"; !strings.Contains(got, want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}

	err = it.DoString(`
local ok, msg = ral.check("ctrl")
assert(not ok)
assert(string.find(msg, "register ctrl mismatch", 1, true))
`)
	if err != nil {
		t.Fatalf("mismatch should not raise: %+v", err)
	}
}

func TestScriptErrors(t *testing.T) {
	rm, _ := newModel(t)

	it := New(context.Background(), rm)
	defer it.Close()

	for _, tc := range []struct {
		code string
		want string
	}{
		{`ral.get("nope")`, `could not find register "nope"`},
		{`ral.set("ctrl", 0x100)`, "does not fit in register ctrl"},
		{`ral.set("ctrl", -1)`, "invalid register value -1"},
		{`ral.set("ctrl", 1.5)`, "invalid register value 1.5"},
		{`ral.set("ctrl", "zz")`, `invalid register value "zz"`},
		{`ral.set("ctrl", {})`, "register value expected, got table"},
		{`ral.get_field("ctrl", "f0")`, `could not find field "f0"`},
	} {
		t.Run(tc.code, func(t *testing.T) {
			err := it.DoString(tc.code)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := err.Error(); !strings.Contains(got, tc.want) {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, tc.want)
			}
		})
	}
}

func TestDoFile(t *testing.T) {
	rm, mem := newModel(t)

	fname := filepath.Join(t.TempDir(), "seq.lua")
	err := os.WriteFile(fname, []byte(`
for i = 0, 7 do
	ral.set_field("ctrl", "mode", i)
	ral.write("ctrl")
end
`), 0644)
	if err != nil {
		t.Fatalf("could not create script: %+v", err)
	}

	it := New(context.Background(), rm)
	defer it.Close()

	err = it.DoFile(fname)
	if err != nil {
		t.Fatalf("could not run script: %+v", err)
	}

	txs := mem.Txs()
	if got, want := len(txs), 8; got != want {
		t.Fatalf("invalid number of transactions: got=%d, want=%d", got, want)
	}
	if got, want := txs[7].Value, uint64(0xf); got != want {
		t.Fatalf("invalid last value: got=0x%x, want=0x%x", got, want)
	}

	err = it.DoFile(filepath.Join(t.TempDir(), "missing.lua"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}
