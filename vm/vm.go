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

package vm

import (
	"io"
	"time"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/internal/rsi"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// Defaults.
const (
	DefaultClockPeriod = 10 * time.Nanosecond
	DefaultMaxDepth    = 16
)

// frame is an address stack entry.
type frame struct {
	ret   int    // return address
	entry int    // subroutine entry
	left  int    // repeats left after the current one
	start uint64 // tick count at entry
}

// Instance is a sequencer timing machine. It walks a linked program the way
// the sequencer does and adds up the duration of every function called.
type Instance struct {
	PC        int // Program Counter
	Program   *asm.Program
	Functions *wave.Registry
	period    time.Duration
	maxDepth  int
	trace     TraceHandler
	address   []frame
	ticks     uint64
	insCount  int64
}

// Option interface
type Option func(*Instance) error

// ClockPeriod sets the duration of one tick. The default is 10ns.
func ClockPeriod(d time.Duration) Option {
	return func(i *Instance) error {
		if d <= 0 {
			return errors.Errorf("vm: invalid clock period %v", d)
		}
		i.period = d
		return nil
	}
}

// MaxDepth sets the maximum subroutine nesting depth. Jumps beyond it fail
// with an address stack overflow, which also catches recursive subroutines.
func MaxDepth(n int) Option {
	return func(i *Instance) error {
		if n < 1 {
			return errors.Errorf("vm: invalid maximum depth %d", n)
		}
		i.maxDepth = n
		return nil
	}
}

// TraceHandler is the function prototype for trace handlers. It is called
// before each instruction is executed, with the tick count at that point. A
// non-nil error aborts Run.
type TraceHandler func(i *Instance, addr int, ins isa.Instruction) error

// Trace sets the trace handler.
//
// Without a trace handler, a subroutine repeated n times is walked once and its
// duration multiplied by n. With one, every repeat is walked so that the
// handler sees each executed instruction.
func Trace(h TraceHandler) Option {
	return func(i *Instance) error {
		i.trace = h
		return nil
	}
}

// SetOptions sets the provided options.
func (i *Instance) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return err
		}
	}
	return nil
}

// New creates a new timing machine for program p, calling the functions in
// funcs.
func New(p *asm.Program, funcs *wave.Registry, opts ...Option) (*Instance, error) {
	if p == nil {
		return nil, errors.New("vm: nil program")
	}
	if funcs == nil {
		funcs = new(wave.Registry)
	}
	i := &Instance{
		Program:   p,
		Functions: funcs,
		period:    DefaultClockPeriod,
		maxDepth:  DefaultMaxDepth,
	}
	if err := i.SetOptions(opts...); err != nil {
		return nil, err
	}
	return i, nil
}

// Ticks returns the number of clock ticks elapsed since the last call to Run.
func (i *Instance) Ticks() uint64 { return i.ticks }

// Duration returns the elapsed time since the last call to Run.
func (i *Instance) Duration() time.Duration {
	return time.Duration(i.ticks) * i.period
}

// Depth returns the current subroutine nesting depth.
func (i *Instance) Depth() int { return len(i.address) }

// InstructionCount returns the number of instructions executed so far.
func (i *Instance) InstructionCount() int64 {
	return i.insCount
}

// Dump writes the machine state to w: program counter, tick count and address
// stack, innermost frame last.
func (i *Instance) Dump(w io.Writer) error {
	ew := rsi.NewErrWriter(w)
	ew.Printf("pc 0x%03x ticks %d (%v)\n", i.PC, i.ticks, i.Duration())
	for _, f := range i.address {
		ew.Printf("  0x%03x %s, %d left, return to 0x%03x\n", f.entry, i.Program.SubroutineAt(f.entry), f.left, f.ret)
	}
	return ew.Err
}
