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

package vm_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/vm"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// main 0x00, Line 0x10, Pixel 0x20
const timedProgram = `
main:
	JSR Line repeat(3)
	CALL func(2) repeat(2)
	END
Line:
	CALL func(1) repeat(4)
	JSR Pixel repeat(5)
	RTS
Pixel:
	CALL func(2) repeat(1)
	RTS
`

// functions returns function 1 taking 33 ticks and function 2 taking 103.
func functions(t *testing.T) *wave.Registry {
	t.Helper()
	r := new(wave.Registry)
	for id, slices := range map[int][]int{1: {10, 20}, 2: {100}} {
		f, err := wave.New(id, "", nil)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		for s, d := range slices {
			if err = f.SetSlice(s, d, 1); err != nil {
				t.Fatalf("%+v", err)
			}
		}
		if err = r.Set(f); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	return r
}

func setup(t *testing.T, src string, opts ...vm.Option) *vm.Instance {
	t.Helper()
	p, err := asm.Assemble("test", strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	i, err := vm.New(p, functions(t), opts...)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return i
}

func TestInstance_Run(t *testing.T) {
	i := setup(t, timedProgram)
	if err := i.Run(0); err != nil {
		t.Fatalf("%+v", err)
	}
	if i.Ticks() != 2147 {
		t.Errorf("expected 2147 ticks, got %d", i.Ticks())
	}
	if i.Duration() != 21470*time.Nanosecond {
		t.Errorf("expected 21.47µs, got %v", i.Duration())
	}
	if i.InstructionCount() != 8 {
		t.Errorf("expected 8 instructions walked, got %d", i.InstructionCount())
	}
	if i.PC != 2 || i.Depth() != 0 {
		t.Errorf("expected to stop on END at depth 0, got pc 0x%03x depth %d", i.PC, i.Depth())
	}

	if err := i.RunSubroutine("Line"); err != nil {
		t.Fatalf("%+v", err)
	}
	if i.Ticks() != 647 {
		t.Errorf("expected 647 ticks, got %d", i.Ticks())
	}
	if err := i.RunSubroutine("Nope"); err == nil {
		t.Error("expected error running an unknown subroutine")
	}
}

func TestInstance_Trace(t *testing.T) {
	var count int64
	var dump bytes.Buffer
	trace := func(i *vm.Instance, addr int, ins isa.Instruction) error {
		count++
		if addr == 0x20 && dump.Len() == 0 {
			if err := i.Dump(&dump); err != nil {
				return err
			}
		}
		return nil
	}
	i := setup(t, timedProgram, vm.Trace(trace))
	if err := i.Run(0); err != nil {
		t.Fatalf("%+v", err)
	}
	if i.Ticks() != 2147 {
		t.Errorf("expected 2147 ticks, got %d", i.Ticks())
	}
	if count != 42 || i.InstructionCount() != 42 {
		t.Errorf("expected 42 traced instructions, got %d (count %d)", count, i.InstructionCount())
	}
	exp := "pc 0x020 ticks 132 (1.32µs)\n" +
		"  0x010 Line, 2 left, return to 0x001\n" +
		"  0x020 Pixel, 4 left, return to 0x012\n"
	if dump.String() != exp {
		t.Errorf("expected dump:\n%s\ngot:\n%s", exp, dump.String())
	}

	stop := errors.New("stop")
	abort := func(i *vm.Instance, addr int, ins isa.Instruction) error {
		if ins.Op == isa.OpCall {
			return stop
		}
		return nil
	}
	if err := i.SetOptions(vm.Trace(abort)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := i.Run(0); errors.Cause(err) != stop {
		t.Errorf("expected trace error, got %v", err)
	}
	if i.PC != 0x10 || i.Ticks() != 0 {
		t.Errorf("expected to stop at 0x010 with no ticks, got 0x%03x, %d", i.PC, i.Ticks())
	}
}

func TestInstance_InstructionTime(t *testing.T) {
	i := setup(t, timedProgram)
	for _, d := range []struct {
		addr  int
		ticks uint64
	}{
		{0x00, 1941},
		{0x01, 206},
		{0x02, 0},
		{0x10, 132},
		{0x11, 515},
		{0x20, 103},
	} {
		n, err := i.InstructionTime(d.addr)
		if err != nil {
			t.Errorf("0x%03x: %+v", d.addr, err)
		} else if n != d.ticks {
			t.Errorf("0x%03x: expected %d ticks, got %d", d.addr, d.ticks, n)
		}
	}
	if _, err := i.InstructionTime(0x30); err == nil {
		t.Error("expected error at empty address")
	}
}

func TestTime(t *testing.T) {
	p, err := asm.Assemble("test", strings.NewReader(timedProgram), nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, d := range []struct {
		sub   string
		ticks uint64
	}{
		{"", 2147},
		{"main", 2147},
		{"Line", 647},
		{"Pixel", 103},
	} {
		n, err := vm.Time(p, functions(t), d.sub)
		if err != nil {
			t.Errorf("%s: %+v", d.sub, err)
		} else if n != d.ticks {
			t.Errorf("%s: expected %d ticks, got %d", d.sub, d.ticks, n)
		}
	}
}

func TestInstance_errors(t *testing.T) {
	data := []struct {
		name string
		src  string
		addr int
		opts []vm.Option
	}{
		{"forever", "main:\nCALL func(1) repeat(infinity)\nEND\n", 0, nil},
		{"not loaded", "main:\nCALL func(3) repeat(1)\nEND\n", 0, nil},
		{"no end", "CALL func(1) repeat(1)\n", 1, nil},
		{"recursion", "main:\nJSR Loop repeat(1)\nEND\nLoop:\nJSR Loop repeat(2)\n", 0x10, nil},
		{"depth", timedProgram, 0x11, []vm.Option{vm.MaxDepth(1)}},
	}
	for _, d := range data {
		i := setup(t, d.src, d.opts...)
		err := i.Run(0)
		var e *vm.Error
		if !errors.As(err, &e) {
			t.Errorf("%s: expected *vm.Error, got %v", d.name, err)
			continue
		}
		if e.Addr != d.addr {
			t.Errorf("%s: expected error at 0x%03x, got %v", d.name, d.addr, err)
		}
	}

	i := setup(t, "main:\nJSR Skip repeat(0)\nEND\nSkip:\nCALL func(1) repeat(1)\n")
	if err := i.Run(0); err != nil {
		t.Fatalf("%+v", err)
	}
	if i.Ticks() != 0 {
		t.Errorf("expected skipped JSR to take no time, got %d ticks", i.Ticks())
	}

	for _, opt := range []vm.Option{vm.ClockPeriod(0), vm.MaxDepth(0)} {
		if _, err := vm.New(i.Program, nil, opt); err == nil {
			t.Error("expected option error")
		}
	}
}
