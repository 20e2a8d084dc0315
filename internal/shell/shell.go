// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shell implements the command interpreter of ral-sh.
package shell // import "github.com/go-lpc/ral/internal/shell"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/ral/internal/script"
	"github.com/go-lpc/ral/regmodel"
)

// ErrQuit is returned by Exec when the user asked to leave the shell.
var ErrQuit = errors.New("shell: quit")

type command struct {
	usage string
	help  string
	run   func(sh *Shell, ctx context.Context, args []string) error
}

var cmds map[string]command

func init() {
	cmds = map[string]command{
		"help":      {"help", "print this help message", (*Shell).cmdHelp},
		"ls":        {"ls [prefix]", "list registers", (*Shell).cmdList},
		"fields":    {"fields <reg>", "list the fields of a register", (*Shell).cmdFields},
		"get":       {"get <reg> [field]", "print a mirror value", (*Shell).cmdGet},
		"set":       {"set <reg> [field] <value>", "store a mirror value", (*Shell).cmdSet},
		"reset":     {"reset [reg [field]]", "restore reset values", (*Shell).cmdReset},
		"randomize": {"randomize <reg> [field]", "store a random mirror value", (*Shell).cmdRandomize},
		"write":     {"write [reg [value]]", "write a register (all registers if none given)", (*Shell).cmdWrite},
		"read":      {"read <reg> [field]", "read a register from hardware", (*Shell).cmdRead},
		"check":     {"check [reg]", "compare hardware against mirror", (*Shell).cmdCheck},
		"dump":      {"dump", "print every mirror value", (*Shell).cmdDump},
		"run":       {"run <file.lua>", "run a Lua register sequence", (*Shell).cmdRun},
		"quit":      {"quit", "leave the shell", (*Shell).cmdQuit},
	}
	cmds["exit"] = cmds["quit"]
}

// Shell interprets register commands against a register model.
type Shell struct {
	rm  *regmodel.RegModel
	out io.Writer
}

// New creates a new shell for rm, printing results to w.
func New(rm *regmodel.RegModel, w io.Writer) *Shell {
	return &Shell{rm: rm, out: w}
}

// Exec runs a single command line.
func (sh *Shell) Exec(ctx context.Context, line string) error {
	line, _, _ = strings.Cut(line, "#")
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	cmd, ok := cmds[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("shell: unknown command %q (try \"help\")", args[0])
	}
	return cmd.run(sh, ctx, args[1:])
}

// Complete returns the completion candidates for the provided line.
func (sh *Shell) Complete(line string) []string {
	args := strings.Fields(line)
	if len(args) == 0 || (len(args) == 1 && !strings.HasSuffix(line, " ")) {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		var out []string
		for name := range cmds {
			if strings.HasPrefix(name, prefix) {
				out = append(out, name+" ")
			}
		}
		sort.Strings(out)
		return out
	}

	head := args[0]
	prefix := ""
	if !strings.HasSuffix(line, " ") {
		prefix = args[len(args)-1]
		args = args[:len(args)-1]
	}
	base := strings.TrimSuffix(line, prefix)

	var cands []string
	switch len(args) {
	case 1:
		cands = sh.rm.Paths()
	case 2:
		if head == "run" || head == "write" {
			return nil
		}
		reg, err := sh.rm.Register(args[1])
		if err != nil {
			return nil
		}
		cands = reg.FieldNames()
	}

	var out []string
	for _, c := range cands {
		if strings.HasPrefix(c, prefix) {
			out = append(out, base+c)
		}
	}
	return out
}

func parseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("shell: invalid value %q", s)
	}
	return v, nil
}

func nargs(args []string, min, max int, usage string) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("shell: usage: %s", usage)
	}
	return nil
}

func (sh *Shell) printValue(name string, v uint64) {
	fmt.Fprintf(sh.out, "%s = 0x%x\n", name, v)
}

func (sh *Shell) cmdHelp(ctx context.Context, args []string) error {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		if name == "exit" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := cmds[name]
		fmt.Fprintf(sh.out, "  %-28s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (sh *Shell) cmdList(ctx context.Context, args []string) error {
	err := nargs(args, 0, 1, cmds["ls"].usage)
	if err != nil {
		return err
	}
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	for _, path := range sh.rm.Paths() {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		reg, _ := sh.rm.Register(path)
		fmt.Fprintf(
			sh.out, "0x%04x %-24s regwidth=%d accesswidth=%d\n",
			reg.Address(), path, reg.RegWidth(), reg.AccessWidth(),
		)
	}
	return nil
}

func (sh *Shell) cmdFields(ctx context.Context, args []string) error {
	err := nargs(args, 1, 1, cmds["fields"].usage)
	if err != nil {
		return err
	}
	reg, err := sh.rm.Register(args[0])
	if err != nil {
		return err
	}
	for _, f := range reg.Fields() {
		v, _ := sh.rm.GetField(args[0], f.Name())
		fmt.Fprintf(sh.out, "  %-16s [%s] = 0x%x\n", f.Name(), f.BitSlice(), v)
	}
	return nil
}

func (sh *Shell) cmdGet(ctx context.Context, args []string) error {
	err := nargs(args, 1, 2, cmds["get"].usage)
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := sh.rm.GetField(args[0], args[1])
		if err != nil {
			return err
		}
		sh.printValue(args[0]+"."+args[1], v)
		return nil
	}
	v, err := sh.rm.Get(args[0])
	if err != nil {
		return err
	}
	sh.printValue(args[0], v)
	return nil
}

func (sh *Shell) cmdSet(ctx context.Context, args []string) error {
	err := nargs(args, 2, 3, cmds["set"].usage)
	if err != nil {
		return err
	}
	v, err := parseValue(args[len(args)-1])
	if err != nil {
		return err
	}
	if len(args) == 3 {
		return sh.rm.SetField(args[0], args[1], v)
	}
	return sh.rm.Set(args[0], v)
}

func (sh *Shell) cmdReset(ctx context.Context, args []string) error {
	err := nargs(args, 0, 2, cmds["reset"].usage)
	if err != nil {
		return err
	}
	switch len(args) {
	case 0:
		sh.rm.ResetAll()
		return nil
	case 1:
		return sh.rm.Reset(args[0])
	default:
		return sh.rm.ResetField(args[0], args[1])
	}
}

func (sh *Shell) cmdRandomize(ctx context.Context, args []string) error {
	err := nargs(args, 1, 2, cmds["randomize"].usage)
	if err != nil {
		return err
	}
	if len(args) == 2 {
		return sh.rm.RandomizeField(args[0], args[1])
	}
	return sh.rm.Randomize(args[0])
}

func (sh *Shell) cmdWrite(ctx context.Context, args []string) error {
	err := nargs(args, 0, 2, cmds["write"].usage)
	if err != nil {
		return err
	}
	switch len(args) {
	case 0:
		return sh.rm.WriteAll(ctx)
	case 1:
		return sh.rm.Write(ctx, args[0])
	default:
		v, err := parseValue(args[1])
		if err != nil {
			return err
		}
		return sh.rm.WriteValue(ctx, args[0], v)
	}
}

func (sh *Shell) cmdRead(ctx context.Context, args []string) error {
	err := nargs(args, 1, 2, cmds["read"].usage)
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := sh.rm.ReadField(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		sh.printValue(args[0]+"."+args[1], v)
		return nil
	}
	v, err := sh.rm.Read(ctx, args[0])
	if err != nil {
		return err
	}
	sh.printValue(args[0], v)
	return nil
}

func (sh *Shell) cmdCheck(ctx context.Context, args []string) error {
	err := nargs(args, 0, 1, cmds["check"].usage)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		err = sh.rm.Check(ctx, args[0])
	} else {
		err = sh.rm.CheckAll(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "ok\n")
	return nil
}

func (sh *Shell) cmdDump(ctx context.Context, args []string) error {
	err := nargs(args, 0, 0, cmds["dump"].usage)
	if err != nil {
		return err
	}
	for _, v := range sh.rm.Snapshot() {
		sh.printValue(v.Path, v.Value)
	}
	return nil
}

func (sh *Shell) cmdRun(ctx context.Context, args []string) error {
	err := nargs(args, 1, 1, cmds["run"].usage)
	if err != nil {
		return err
	}
	it := script.New(ctx, sh.rm)
	defer it.Close()
	return it.DoFile(args[0])
}

func (sh *Shell) cmdQuit(ctx context.Context, args []string) error {
	return ErrQuit
}
