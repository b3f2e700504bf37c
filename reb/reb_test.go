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

package reb_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/reb"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// Subroutine entries: main 0x00, Exposure 0x10, Wait 0x20, DarkExposure 0x30,
// Loop 0x40.
const testProgram = `
main:
	JSR Exposure repeat(1)
	END

Exposure:
	REP_SUBR ExposureTime
	JSR Wait repeat(50)
	RTS

Wait:
	REP_FUNC WaitCount
	CALL func(2) repeat(20)
	RTS

DarkExposure:
	JSR Wait repeat(10)
	RTS

Loop:
	PTR_FUNC Pixel
	CALL func(1) repeat(infinity)
	PTR_SUBR Target
	JSR Wait repeat(3)
	RTS
`

func testFunctions(t *testing.T) *wave.Registry {
	t.Helper()
	r := new(wave.Registry)
	for _, d := range []struct {
		id     int
		name   string
		slices [][2]int
	}{
		{0, "Default", [][2]int{{100, 0x0304}}},
		{1, "Pixel", [][2]int{{10, 0x30}, {48, 0x1}, {8, 0x80}}},
		{2, "Flush", [][2]int{{50000, 0x10100}, {49997, 0x10100}}},
	} {
		f, err := wave.New(d.id, d.name, nil)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		for i, s := range d.slices {
			if err = f.SetSlice(i, s[0], uint32(s[1])); err != nil {
				t.Fatalf("%+v", err)
			}
		}
		if err = r.Set(f); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	return r
}

type fixture struct {
	mem   *bus.Memory
	board *reb.Board
	prog  *asm.Program
	log   *bytes.Buffer
}

func setup(t *testing.T, opts ...reb.Option) *fixture {
	t.Helper()
	mem, err := bus.NewMemory()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b, err := reb.New(bus.NewClient(mem), append([]reb.Option{reb.Logger(log), reb.PollInterval(time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := asm.Assemble("test", strings.NewReader(testProgram), isa.REB3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = b.Load(context.Background(), p, testFunctions(t)); err != nil {
		t.Fatalf("%+v", err)
	}
	mem.ResetLog()
	return &fixture{mem, b, p, &buf}
}

func encode(t *testing.T, ins isa.Instruction) uint32 {
	t.Helper()
	w, err := isa.REB3.Encode(ins)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return w
}

func TestBoard_Load(t *testing.T) {
	mem, err := bus.NewMemory()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := reb.New(bus.NewClient(mem))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := asm.Assemble("test", strings.NewReader(testProgram), isa.REB3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = b.Load(context.Background(), p, testFunctions(t)); err != nil {
		t.Fatalf("%+v", err)
	}

	w := mem.Writes()
	end := p.End() + 16
	for i := 0; i < end; i++ {
		if w[i] != (bus.Access{Addr: bus.ProgramAddr(i), Value: 0}) {
			t.Fatalf("write %d: expected clear of 0x%x, got %+v", i, bus.ProgramAddr(i), w[i])
		}
	}
	w = w[end:]
	addrs := p.Addresses()
	for i, a := range addrs {
		if w[i].Addr != bus.ProgramAddr(a) {
			t.Fatalf("write %d: expected instruction at 0x%03x, got address 0x%x", end+i, a, w[i].Addr)
		}
		if exp := encode(t, p.Instructions[a]); w[i].Value != exp {
			t.Errorf("instruction at 0x%03x: expected 0x%08x, got 0x%08x", a, exp, w[i].Value)
		}
	}
	w = w[len(addrs):]
	if n := 3 * wave.SliceCount * 2; len(w) != n {
		t.Fatalf("expected %d function writes, got %d", n, len(w))
	}
	for _, a := range w {
		if a.Addr < bus.OutputsBase || a.Addr >= bus.ProgramBase {
			t.Errorf("unexpected write %+v after program", a)
		}
	}
	if v := mem.Peek(bus.DurationAddr(2, 1)); v != 49997 {
		t.Errorf("expected duration 49997, got %d", v)
	}
	if v := mem.Peek(bus.OutputAddr(1, 2)); v != 0x80 {
		t.Errorf("expected mask 0x80, got 0x%x", v)
	}

	// the board keeps its own copy
	p.Instructions[0x10] = isa.RTS()
	if ins := b.Program().Instructions[0x10]; ins.Op != isa.OpJSR {
		t.Errorf("loaded program modified through caller's copy: %v", ins)
	}
}

func TestBoard_Load_shorter(t *testing.T) {
	f := setup(t)
	short, err := asm.Assemble("short", strings.NewReader("CALL func(1) repeat(1)\nEND\n"), isa.REB3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = f.board.Load(context.Background(), short, nil); err != nil {
		t.Fatalf("%+v", err)
	}
	end := f.prog.End() + 16
	w := f.mem.Writes()
	if len(w) != end+len(short.Addresses()) {
		t.Fatalf("expected %d writes, got %d", end+len(short.Addresses()), len(w))
	}
	for a := 0; a < end; a++ {
		if _, ok := short.Instructions[a]; ok {
			continue
		}
		if v := f.mem.Peek(bus.ProgramAddr(a)); v != 0 {
			t.Errorf("word 0x%03x of the previous program left as 0x%08x", a, v)
		}
	}
}

func TestBoard_Load_revisionMismatch(t *testing.T) {
	mem, _ := bus.NewMemory()
	b, err := reb.New(bus.NewClient(mem), reb.Revision(isa.REB1))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := asm.Assemble("test", strings.NewReader(testProgram), isa.REB3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = b.Load(context.Background(), p, nil); err == nil {
		t.Fatal("expected error loading a reb3 program on a reb1 board")
	}
	if n := len(mem.Writes()); n != 0 {
		t.Errorf("expected no writes, got %d", n)
	}
}

func TestBoard_SetPointer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	before := f.board.Program().Clone()

	if err := f.board.SetPointer(ctx, "ExposureTime", "100"); err != nil {
		t.Fatalf("%+v", err)
	}
	w := f.mem.Writes()
	if len(w) != 1 {
		t.Fatalf("expected exactly one write, got %v", w)
	}
	exp, _ := isa.JSR(0x20, 100)
	if w[0] != (bus.Access{Addr: bus.ProgramAddr(0x10), Value: encode(t, exp)}) {
		t.Errorf("unexpected write %+v", w[0])
	}
	after := f.board.Program()
	for a, ins := range before.Instructions {
		got := after.Instructions[a]
		if a == 0x10 {
			if got.Repeat != 100 || got.Address != 0x20 || got.Target != "Wait" {
				t.Errorf("patched instruction: got %v", got)
			}
			continue
		}
		if got != ins {
			t.Errorf("instruction at 0x%03x changed from %v to %v", a, ins, got)
		}
	}
	if len(after.Instructions) != len(before.Instructions) {
		t.Errorf("expected %d instructions, got %d", len(before.Instructions), len(after.Instructions))
	}
}

func TestBoard_pointers(t *testing.T) {
	ctx := context.Background()
	data := []struct {
		name  string
		value string
		exp   int
		addr  int
		ins   isa.Instruction
	}{
		{"ExposureTime", "0x40", 0x40, 0x10, isa.Instruction{Op: isa.OpJSR, Address: 0x20, Repeat: 0x40, Resolved: true}},
		{"WaitCount", "7", 7, 0x20, isa.Instruction{Op: isa.OpCall, Func: 2, Repeat: 7}},
		{"WaitCount", "infinity", reb.Infinity, 0x20, isa.Instruction{Op: isa.OpCall, Func: 2, Infinite: true}},
		{"Pixel", "Flush", 2, 0x40, isa.Instruction{Op: isa.OpCall, Func: 2, Infinite: true}},
		{"Pixel", "5", 5, 0x40, isa.Instruction{Op: isa.OpCall, Func: 5, Infinite: true}},
		{"Target", "DarkExposure", 0x30, 0x41, isa.Instruction{Op: isa.OpJSR, Address: 0x30, Repeat: 3, Resolved: true}},
		{"Target", "0x10", 0x10, 0x41, isa.Instruction{Op: isa.OpJSR, Address: 0x10, Repeat: 3, Resolved: true}},
	}
	for _, d := range data {
		f := setup(t)
		if err := f.board.SetPointer(ctx, d.name, d.value); err != nil {
			t.Errorf("%s = %s: %+v", d.name, d.value, err)
			continue
		}
		v, err := f.board.GetPointer(ctx, d.name, true)
		if err != nil {
			t.Errorf("%s: %+v", d.name, err)
			continue
		}
		if v != d.exp {
			t.Errorf("%s = %s: expected %d, got %d", d.name, d.value, d.exp, v)
		}
		if w := f.mem.Peek(bus.ProgramAddr(d.addr)); w != encode(t, d.ins) {
			t.Errorf("%s = %s: expected word 0x%08x, got 0x%08x", d.name, d.value, encode(t, d.ins), w)
		}
		if strings.Contains(f.log.String(), "mismatch") {
			t.Errorf("%s: unexpected readback mismatch:\n%s", d.name, f.log)
		}
	}
}

func TestBoard_SetPointer_errors(t *testing.T) {
	ctx := context.Background()
	data := []struct {
		name  string
		value string
	}{
		{"ExposureTime", "70000"}, // JSR repeat is 16 bits
		{"ExposureTime", "infinity"},
		{"ExposureTime", "-1"},
		{"Pixel", "16"},
		{"Pixel", "NoSuchFunction"},
		{"Target", "0x400"},
		{"Target", "NoSuchSubroutine"},
	}
	for _, d := range data {
		f := setup(t)
		if err := f.board.SetPointer(ctx, d.name, d.value); err == nil {
			t.Errorf("%s = %s: expected error", d.name, d.value)
		}
		if w := f.mem.Writes(); len(w) != 0 {
			t.Errorf("%s = %s: expected no writes, got %v", d.name, d.value, w)
		}
	}

	f := setup(t)
	var pe *reb.PointerError
	if err := f.board.SetPointer(ctx, "Nope", "1"); !errors.As(err, &pe) || pe.Name != "Nope" {
		t.Errorf("expected PointerError, got %v", err)
	}
	if _, err := f.board.GetPointer(ctx, "Nope", false); !errors.As(err, &pe) {
		t.Errorf("expected PointerError, got %v", err)
	}

	b, _ := reb.New(bus.NewClient(f.mem))
	if err := b.SetPointer(ctx, "ExposureTime", "1"); errors.Cause(err) != reb.ErrNoProgram {
		t.Errorf("expected ErrNoProgram, got %v", err)
	}
}

func TestBoard_SetPointer_rollback(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	fail := errors.New("link down")
	err := f.mem.SetOptions(bus.BindWriteHandler(bus.ProgramAddr(0x10), func(m *bus.Memory, addr, value uint32) error {
		return fail
	}))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err = f.board.SetPointer(ctx, "ExposureTime", "100"); !errors.Is(err, fail) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if n := len(f.mem.Writes()); n != 1 {
		t.Errorf("expected one attempted write, got %d", n)
	}
	v, err := f.board.GetPointer(ctx, "ExposureTime", false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if v != 50 {
		t.Errorf("expected repeat count to be rolled back to 50, got %d", v)
	}
}

func TestBoard_GetPointer_readback(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ins, _ := isa.JSR(0x20, 49)
	if err := f.mem.SetOptions(bus.Preset(bus.ProgramAddr(0x10), encode(t, ins))); err != nil {
		t.Fatalf("%+v", err)
	}
	v, err := f.board.GetPointer(ctx, "ExposureTime", false)
	if err != nil || v != 50 {
		t.Fatalf("expected 50, got %d, %v", v, err)
	}
	if f.mem.Reads() != 0 {
		t.Error("GetPointer without readback read the board")
	}
	v, err = f.board.GetPointer(ctx, "ExposureTime", true)
	if err != nil || v != 50 {
		t.Fatalf("expected stored value 50, got %d, %v", v, err)
	}
	if !strings.Contains(f.log.String(), "pointer readback mismatch") {
		t.Errorf("expected a mismatch warning, got:\n%s", f.log)
	}
}

func TestBoard_SelectSubroutine(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.board.SelectSubroutine(ctx, "DarkExposure", 2); err != nil {
		t.Fatalf("%+v", err)
	}
	ins := f.board.Program().Instructions[0]
	if ins.Op != isa.OpJSR || ins.Address != 0x30 || ins.Repeat != 2 || ins.Target != "DarkExposure" {
		t.Errorf("unexpected instruction at 0: %v", ins)
	}
	exp, _ := isa.JSR(0x30, 2)
	if w := f.mem.Writes(); len(w) != 1 || w[0].Value != encode(t, exp) || w[0].Addr != bus.ProgramAddr(0) {
		t.Errorf("unexpected writes %v", w)
	}
	if err := f.board.SelectSubroutine(ctx, "Nope", 1); err == nil {
		t.Error("expected error selecting an unknown subroutine")
	}
}

func TestBoard_SelectSubroutine_running(t *testing.T) {
	ctx := context.Background()
	f := setup(t, reb.WaitTimeout(20*time.Millisecond))
	running := func(m *bus.Memory, addr uint32) (uint32, error) { return bus.StateSequencer, nil }
	if err := f.mem.SetOptions(bus.BindReadHandler(bus.RegState, running)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := f.board.SelectSubroutine(ctx, "Loop", 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if w := f.mem.Writes(); len(w) != 0 {
		t.Errorf("program written while the sequencer runs: %v", w)
	}
	if ins := f.board.Program().Instructions[0]; ins.Target == "Loop" {
		t.Errorf("instruction at 0 changed: %v", ins)
	}

	polls := 0
	stopping := func(m *bus.Memory, addr uint32) (uint32, error) {
		polls++
		if polls < 3 {
			return bus.StateSequencer, nil
		}
		return 0, nil
	}
	if err := f.mem.SetOptions(bus.BindReadHandler(bus.RegState, stopping)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := f.board.SelectSubroutine(ctx, "Loop", 1); err != nil {
		t.Fatalf("%+v", err)
	}
	if polls != 3 || len(f.mem.Writes()) != 1 {
		t.Errorf("expected 3 polls and 1 write, got %d and %v", polls, f.mem.Writes())
	}
}

func TestBoard_exposure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	check := func(get func() (time.Duration, error), exp time.Duration) {
		t.Helper()
		d, err := get()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if d != exp {
			t.Errorf("expected %v, got %v", exp, d)
		}
	}
	check(f.board.ExposureTime, time.Second)
	check(f.board.DarkTime, 200*time.Millisecond)

	if err := f.board.SetExposureTime(ctx, 2510*time.Millisecond); err != nil {
		t.Fatalf("%+v", err)
	}
	check(f.board.ExposureTime, 2500*time.Millisecond)
	if v, _ := f.board.GetPointer(ctx, "ExposureTime", false); v != 125 {
		t.Errorf("expected pointer value 125, got %d", v)
	}
	if err := f.board.SetExposureTime(ctx, time.Millisecond); err != nil {
		t.Fatalf("%+v", err)
	}
	check(f.board.ExposureTime, reb.MinExposure)

	if err := f.board.SetDarkTime(ctx, 0); err != nil {
		t.Fatalf("%+v", err)
	}
	check(f.board.DarkTime, reb.DefaultExposureUnit)
	if ins := f.board.Program().Instructions[0x30]; ins.Repeat != 1 || ins.Address != 0x20 {
		t.Errorf("unexpected dark exposure instruction %v", ins)
	}
	if w := f.mem.Writes(); len(w) != 3 {
		t.Errorf("expected 3 writes, got %v", w)
	}

	if err := f.board.SetOptions(reb.ExposureSubroutine("Expose", "DarkExposure")); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := f.board.DarkTime(); err != nil {
		t.Errorf("%+v", err)
	}
}

func TestBoard_control(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	b, mem := f.board, f.mem

	if err := b.StartClock(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	st, err := b.State(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if st != bus.StateClock|bus.StateSequencer {
		t.Errorf("expected state 0x6, got 0x%x", st)
	}
	if err = b.StopClock(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	if v := mem.Peek(bus.RegTrigger); v != bus.StateSequencer {
		t.Errorf("expected trigger 0x4, got 0x%x", v)
	}

	mem.ResetLog()
	if err = b.Stop(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	if err = b.Step(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	exp := []bus.Access{{Addr: isa.REB3.Stop, Value: 1}, {Addr: isa.REB3.Step, Value: 1}}
	if w := mem.Writes(); len(w) != 2 || w[0] != exp[0] || w[1] != exp[1] {
		t.Errorf("expected %v, got %v", exp, w)
	}

	if err = b.SetTime(ctx, 0x123456789a); err != nil {
		t.Fatalf("%+v", err)
	}
	if mem.Peek(bus.RegClockLo) != 0x3456789a || mem.Peek(bus.RegClockHi) != 0x12 {
		t.Errorf("unexpected clock registers 0x%x 0x%x", mem.Peek(bus.RegClockHi), mem.Peek(bus.RegClockLo))
	}
	tm, err := b.Time(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if tm != 0x123456789a {
		t.Errorf("expected time 0x123456789a, got 0x%x", tm)
	}
}

func TestBoard_info(t *testing.T) {
	ctx := context.Background()
	mem, _ := bus.NewMemory(bus.Preset(bus.RegSchema, 3), bus.Preset(bus.RegVersion, 0x1004), bus.Preset(bus.RegSciID, 7))
	b, _ := reb.New(bus.NewClient(mem))
	for _, d := range []struct {
		name string
		get  func(context.Context) (uint32, error)
		exp  uint32
	}{
		{"schema", b.Schema, 3},
		{"version", b.Version, 0x1004},
		{"sci id", b.SciID, 7},
	} {
		v, err := d.get(ctx)
		if err != nil {
			t.Errorf("%s: %+v", d.name, err)
		} else if v != d.exp {
			t.Errorf("%s: expected 0x%x, got 0x%x", d.name, d.exp, v)
		}
	}
}

func TestBoard_WaitEnd(t *testing.T) {
	ctx := context.Background()
	polls := 0
	busy := func(m *bus.Memory, addr uint32) (uint32, error) {
		polls++
		if polls < 3 {
			return bus.StateSequencer | bus.StateClock, nil
		}
		return bus.StateClock, nil
	}
	mem, _ := bus.NewMemory(bus.BindReadHandler(bus.RegState, busy))
	b, _ := reb.New(bus.NewClient(mem), reb.PollInterval(time.Millisecond))
	if err := b.WaitEnd(ctx); err != nil {
		t.Fatalf("%+v", err)
	}
	if polls != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}

	stuck := func(m *bus.Memory, addr uint32) (uint32, error) { return bus.StateSequencer, nil }
	if err := mem.SetOptions(bus.BindReadHandler(bus.RegState, stuck)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := b.SetOptions(reb.WaitTimeout(20 * time.Millisecond)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := b.WaitEnd(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	if err := b.SetOptions(reb.WaitTimeout(0)); err != nil {
		t.Fatalf("%+v", err)
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := b.WaitEnd(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestBoard_telemetry(t *testing.T) {
	ctx := context.Background()
	mem, _ := bus.NewMemory(
		bus.Preset(bus.TempBase, 0x0c80),
		bus.Preset(bus.TempBase+1, 0xfff0),
		bus.Preset(bus.TempBase+2, 0x10c80),
		bus.Preset(bus.SuppliesBase, 240<<4),
		bus.Preset(bus.SuppliesBase+1, 400<<4),
		bus.Preset(bus.SuppliesBase+4, 960<<4|0xf),
		bus.Preset(bus.SuppliesBase+5, 400<<4),
	)
	b, _ := reb.New(bus.NewClient(mem), reb.PollInterval(time.Millisecond))

	temps, err := b.Temperatures(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if mem.Peek(bus.RegTrigger) != bus.StateTemp {
		t.Errorf("temperature measurement not triggered")
	}
	if len(temps) != reb.TempSensors {
		t.Fatalf("expected %d sensors, got %d", reb.TempSensors, len(temps))
	}
	for _, d := range []struct {
		i   int
		c   float64
		err bool
	}{
		{0, 24.96, false},
		{1, -0.117, false},
		{2, 24.96, true},
		{3, 0, false},
	} {
		if math.Abs(temps[d.i].Celsius-d.c) > 1e-9 || temps[d.i].Err != d.err {
			t.Errorf("sensor %d: expected %v (error %v), got %+v", d.i, d.c, d.err, temps[d.i])
		}
	}

	sup, err := b.Supplies(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if mem.Peek(bus.RegTrigger) != bus.StateSupplies {
		t.Errorf("supply measurement not triggered")
	}
	exp := []reb.Supply{
		{Name: "6V", Volts: 6, Amps: 0.1},
		{Name: "9V"},
		{Name: "24V", Volts: 24, Amps: 0.032},
		{Name: "40V"},
	}
	if len(sup) != len(exp) {
		t.Fatalf("expected %d supplies, got %d", len(exp), len(sup))
	}
	for i, e := range exp {
		s := sup[i]
		if s.Name != e.Name || math.Abs(s.Volts-e.Volts) > 1e-9 || math.Abs(s.Amps-e.Amps) > 1e-9 {
			t.Errorf("expected %+v, got %+v", e, s)
		}
	}
}

func TestBoard_dump(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p, err := f.board.DumpProgram(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(p.Instructions) != len(f.prog.Instructions) {
		t.Fatalf("expected %d instructions, got %d", len(f.prog.Instructions), len(p.Instructions))
	}
	for a, exp := range f.prog.Instructions {
		got := p.Instructions[a]
		if got.Op != exp.Op || got.Func != exp.Func || got.Repeat != exp.Repeat || got.Infinite != exp.Infinite || got.Address != exp.Address {
			t.Errorf("0x%03x: expected %v, got %v", a, exp, got)
		}
	}
	if a, ok := p.Subroutines["L020"]; !ok || a != 0x20 {
		t.Errorf("expected generated label L020 at 0x020, got %v", p.Subroutines)
	}

	r, err := f.board.DumpFunctions(ctx)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, exp := range f.board.Functions().Functions() {
		got := r.Get(exp.ID)
		if got == nil || got.Slices != exp.Slices || got.Name != exp.Name {
			t.Errorf("slot %d: expected %v, got %v", exp.ID, exp.Slices, got)
		}
	}
	if got := r.Get(5); got == nil || got.Len() != 0 {
		t.Errorf("expected empty slot 5, got %v", got)
	}
}
