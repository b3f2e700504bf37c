// This file is part of rebseq - https://github.com/db47h/rebseq
//
// Copyright 2016 Denis Bernard <db047h@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/reb"
	"github.com/db47h/rebseq/vm"
	"github.com/pkg/errors"
)

type command struct {
	args     string
	help     string
	min, max int // argument count, max < 0 for no limit
	run      func(ctx context.Context, s *session, args []string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"asm":      {"", "assemble the sequencer file and print its listing", 0, 0, cmdAsm},
		"funcs":    {"", "print the functions of the sequencer file", 0, 0, cmdFuncs},
		"time":     {"[subroutine]", "compute run times", 0, 1, cmdTime},
		"load":     {"", "load the sequencer file on the board", 0, 0, cmdLoad},
		"dump":     {"", "read back the program and functions from the board", 0, 0, cmdDump},
		"ptr":      {"", "list pointers and their values", 0, 0, cmdPtr},
		"get":      {"name", "read a pointer back from the board", 1, 1, cmdGet},
		"set":      {"name value", "set a pointer", 2, 2, cmdSet},
		"select":   {"subroutine [repeat]", "make the program run a subroutine", 1, 2, cmdSelect},
		"exposure": {"[seconds]", "get or set the exposure time", 0, 1, cmdExposure(false)},
		"dark":     {"[seconds]", "get or set the dark exposure time", 0, 1, cmdExposure(true)},
		"start":    {"", "start the sequencer", 0, 0, cmdStart},
		"stop":     {"", "stop the sequencer", 0, 0, cmdStop},
		"step":     {"", "send a step command", 0, 0, cmdStep},
		"wait":     {"", "wait for the sequencer to stop", 0, 0, cmdWait},
		"status":   {"", "print board state and telemetry", 0, 0, cmdStatus},
		"console":  {"", "interactive start/step/stop", 0, 0, cmdConsole},
		"monitor":  {"[interval]", "live view of state and telemetry", 0, 1, cmdMonitor},
	}
}

func cmdAsm(ctx context.Context, s *session, args []string) error {
	_, p, err := s.sequencer()
	if err != nil {
		return err
	}
	return printListing(s.out, p)
}

func cmdFuncs(ctx context.Context, s *session, args []string) error {
	f, _, err := s.sequencer()
	if err != nil {
		return err
	}
	for _, fn := range f.Functions.Functions() {
		labelColor.Fprintf(s.out, "%d: %s", fn.ID, fn.Name)
		fmt.Fprintf(s.out, "  %s\n", fn.Desc)
		if _, err = fn.WriteTo(s.out); err != nil {
			return err
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

// subroutineCode returns the addresses of the instructions of the subroutine
// at entry, up to its RTS or END.
func subroutineCode(p *asm.Program, entry int) []int {
	var l []int
	for a := entry; ; a++ {
		ins, ok := p.Instructions[a]
		if !ok {
			return l
		}
		l = append(l, a)
		if ins.Op == isa.OpRTS || ins.Op == isa.OpEnd {
			return l
		}
	}
}

func cmdTime(ctx context.Context, s *session, args []string) error {
	f, p, err := s.sequencer()
	if err != nil {
		return err
	}
	i, err := vm.New(p, f.Functions, vm.ClockPeriod(time.Duration(f.ClockPeriod)*time.Nanosecond))
	if err != nil {
		return err
	}
	if len(args) == 0 {
		for _, name := range p.Order {
			if err = i.RunSubroutine(name); err != nil {
				fmt.Fprintf(s.out, "%-20s %s\n", name, errColor.Sprint(err))
				continue
			}
			fmt.Fprintf(s.out, "%-20s %12d ticks  %v\n", labelColor.Sprint(name), i.Ticks(), i.Duration())
		}
		return nil
	}
	if err = i.RunSubroutine(args[0]); err != nil {
		return err
	}
	labelColor.Fprintf(s.out, "%s:", args[0])
	fmt.Fprintf(s.out, " %d ticks, %v\n", i.Ticks(), i.Duration())
	period := time.Duration(f.ClockPeriod) * time.Nanosecond
	for _, a := range subroutineCode(p, p.Subroutines[args[0]]) {
		t, err := i.InstructionTime(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s  %-40s %12d  %v\n", addrColor.Sprintf("0x%03x:", a), p.Instructions[a], t, time.Duration(t)*period)
	}
	return nil
}

func cmdLoad(ctx context.Context, s *session, args []string) error {
	f, p, err := s.sequencer()
	if err != nil {
		return err
	}
	b, err := s.open(false)
	if err != nil {
		return err
	}
	if err = b.Load(ctx, p, f.Functions); err != nil {
		return err
	}
	okColor.Fprintf(s.out, "loaded %d instructions and %d functions\n", len(p.Instructions), len(f.Functions.Functions()))
	return nil
}

func cmdDump(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	p, err := b.DumpProgram(ctx)
	if err != nil {
		return err
	}
	if err = printListing(s.out, p); err != nil {
		return err
	}
	r, err := b.DumpFunctions(ctx)
	if err != nil {
		return err
	}
	for _, fn := range r.Functions() {
		if fn.Len() == 0 {
			continue
		}
		labelColor.Fprintf(s.out, "\nfunction %d:\n", fn.ID)
		if _, err = fn.WriteTo(s.out); err != nil {
			return err
		}
	}
	return nil
}

func pointerString(v int, k asm.PointerKind, p *asm.Program) string {
	switch {
	case v == reb.Infinity && k == asm.RepeatFunc:
		return "infinity"
	case k == asm.TargetSubr:
		if n := p.SubroutineAt(v); n != "" && p.Subroutines[n] == v {
			return fmt.Sprintf("0x%03x (%s)", v, n)
		}
		return fmt.Sprintf("0x%03x", v)
	}
	return strconv.Itoa(v)
}

func cmdPtr(ctx context.Context, s *session, args []string) error {
	b, err := s.open(true)
	if err != nil {
		return err
	}
	for _, ptr := range b.Pointers() {
		v, err := b.GetPointer(ctx, ptr.Name, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s %-20s %-8s %s\n", addrColor.Sprintf("0x%03x", ptr.Addr), ptrColor.Sprint(ptr.Name), ptr.Kind, pointerString(v, ptr.Kind, b.Program()))
	}
	return nil
}

func cmdGet(ctx context.Context, s *session, args []string) error {
	b, err := s.open(true)
	if err != nil {
		return err
	}
	v, err := b.GetPointer(ctx, args[0], true)
	if err != nil {
		return err
	}
	ptr, _ := b.Program().Pointer(args[0])
	fmt.Fprintln(s.out, pointerString(v, ptr.Kind, b.Program()))
	return nil
}

func cmdSet(ctx context.Context, s *session, args []string) error {
	b, err := s.open(true)
	if err != nil {
		return err
	}
	return b.SetPointer(ctx, args[0], args[1])
}

func cmdSelect(ctx context.Context, s *session, args []string) error {
	b, err := s.open(true)
	if err != nil {
		return err
	}
	repeat := 1
	if len(args) > 1 {
		if repeat, err = strconv.Atoi(args[1]); err != nil {
			return errors.Wrap(err, "invalid repeat count")
		}
	}
	return b.SelectSubroutine(ctx, args[0], repeat)
}

func cmdExposure(dark bool) func(ctx context.Context, s *session, args []string) error {
	return func(ctx context.Context, s *session, args []string) error {
		b, err := s.open(true)
		if err != nil {
			return err
		}
		get, set := b.ExposureTime, b.SetExposureTime
		if dark {
			get, set = b.DarkTime, b.SetDarkTime
		}
		if len(args) > 0 {
			sec, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return errors.Wrap(err, "invalid exposure time")
			}
			if err = set(ctx, time.Duration(sec*float64(time.Second))); err != nil {
				return err
			}
		}
		t, err := get()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%.3f s\n", t.Seconds())
		return nil
	}
}

func cmdStart(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	return b.Start(ctx)
}

func cmdStop(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	return b.Stop(ctx)
}

func cmdStep(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	return b.Step(ctx)
}

func cmdWait(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	start := time.Now()
	if err = b.WaitEnd(ctx); err != nil {
		return err
	}
	okColor.Fprintf(s.out, "sequencer stopped after %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// stateString describes the bits of the state register.
func stateString(st uint32) string {
	var l []string
	for _, b := range []struct {
		bit  uint32
		name string
	}{
		{bus.StateClock, "clock"},
		{bus.StateSequencer, "running"},
		{bus.StateSupplies, "measuring supplies"},
		{bus.StateTemp, "measuring temperatures"},
	} {
		if st&b.bit != 0 {
			l = append(l, b.name)
		}
	}
	if len(l) == 0 {
		return "idle"
	}
	return strings.Join(l, ", ")
}

func cmdStatus(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	for _, r := range []struct {
		name string
		get  func(context.Context) (uint32, error)
	}{
		{"schema", b.Schema},
		{"version", b.Version},
		{"SCI id", b.SciID},
	} {
		v, err := r.get(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%-12s 0x%x\n", r.name, v)
	}
	st, err := b.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%-12s 0x%x (%s)\n", "state", st, okColor.Sprint(stateString(st)))
	t, err := b.Time(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%-12s %d\n", "clock", t)

	if w, _ := consoleSize(); w > 0 {
		addrColor.Fprintln(s.out, strings.Repeat("-", w))
	}
	temps, err := b.Temperatures(ctx)
	if err != nil {
		return err
	}
	for _, t := range temps {
		v := fmt.Sprintf("%7.2f °C", t.Celsius)
		if t.Err {
			v = errColor.Sprint(v + " (error)")
		}
		fmt.Fprintf(s.out, "TREB_%-7d %s\n", t.Sensor, v)
	}
	sup, err := b.Supplies(ctx)
	if err != nil {
		return err
	}
	for _, v := range sup {
		fmt.Fprintf(s.out, "%-12s %6.3f V  %6.3f A\n", v.Name, v.Volts, v.Amps)
	}
	return nil
}

func cmdMonitor(ctx context.Context, s *session, args []string) error {
	every := time.Second
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid interval")
		}
		every = d
	}
	b, err := s.open(false)
	if err != nil {
		return err
	}
	return monitor(ctx, b, every)
}
