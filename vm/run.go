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
	"fmt"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// Error is returned by Run when the program cannot complete.
type Error struct {
	Addr int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vm: 0x%03x: %s", e.Addr, e.Msg)
}

func (i *Instance) fail(msg string, args ...interface{}) error {
	return &Error{Addr: i.PC, Msg: fmt.Sprintf(msg, args...)}
}

// callTime returns the duration of one execution of the function called by ins.
func (i *Instance) callTime(ins isa.Instruction) (uint64, error) {
	f := i.Functions.Get(ins.Func)
	if f == nil {
		return 0, i.fail("function %d not loaded", ins.Func)
	}
	return uint64(f.TotalTime()), nil
}

// Run executes the program from address entry until it reaches END or returns
// from entry. The tick count and address stack are reset first.
//
// A CALL repeating forever never returns on the sequencer and makes Run fail.
// JSRs with a zero repeat count are skipped.
func (i *Instance) Run(entry int) error {
	i.PC = entry
	i.ticks = 0
	i.insCount = 0
	i.address = i.address[:0]
	for {
		ins, ok := i.Program.Instructions[i.PC]
		if !ok {
			return i.fail("no instruction")
		}
		if i.trace != nil {
			if err := i.trace(i, i.PC, ins); err != nil {
				return err
			}
		}
		i.insCount++
		switch ins.Op {
		case isa.OpCall:
			if ins.Infinite {
				return i.fail("CALL func(%d) repeats forever", ins.Func)
			}
			t, err := i.callTime(ins)
			if err != nil {
				return err
			}
			i.ticks += t * uint64(ins.Repeat)
			i.PC++
		case isa.OpJSR:
			if !ins.Resolved {
				return i.fail("unresolved jump to %s", ins.Target)
			}
			if ins.Repeat == 0 {
				i.PC++
				continue
			}
			if len(i.address) >= i.maxDepth {
				return i.fail("address stack overflow")
			}
			i.address = append(i.address, frame{ret: i.PC + 1, entry: ins.Address, left: ins.Repeat - 1, start: i.ticks})
			i.PC = ins.Address
		case isa.OpRTS:
			n := len(i.address)
			if n == 0 {
				return nil
			}
			f := &i.address[n-1]
			if f.left > 0 {
				if i.trace != nil {
					f.left--
					f.start = i.ticks
					i.PC = f.entry
					continue
				}
				i.ticks += (i.ticks - f.start) * uint64(f.left)
			}
			i.PC = f.ret
			i.address = i.address[:n-1]
		case isa.OpEnd:
			return nil
		default:
			return i.fail("invalid opcode %v", ins.Op)
		}
	}
}

// RunSubroutine runs the named subroutine of the program.
func (i *Instance) RunSubroutine(name string) error {
	a, ok := i.Program.Subroutines[name]
	if !ok {
		return errors.Errorf("vm: no subroutine %s in program", name)
	}
	return i.Run(a)
}

// InstructionTime returns the ticks taken by one execution of the instruction
// at addr, repeats included. It does not change the state of i.
func (i *Instance) InstructionTime(addr int) (uint64, error) {
	ins, ok := i.Program.Instructions[addr]
	if !ok {
		return 0, &Error{Addr: addr, Msg: "no instruction"}
	}
	switch ins.Op {
	case isa.OpCall:
		if ins.Infinite {
			return 0, &Error{Addr: addr, Msg: "CALL repeats forever"}
		}
		t, err := i.callTime(ins)
		return t * uint64(ins.Repeat), err
	case isa.OpJSR:
		if ins.Repeat == 0 {
			return 0, nil
		}
		sub := &Instance{Program: i.Program, Functions: i.Functions, period: i.period, maxDepth: i.maxDepth - 1}
		if sub.maxDepth < 0 {
			return 0, &Error{Addr: addr, Msg: "address stack overflow"}
		}
		if err := sub.Run(ins.Address); err != nil {
			return 0, err
		}
		return sub.ticks * uint64(ins.Repeat), nil
	}
	return 0, nil
}

// Time returns the number of ticks taken by the named subroutine of p. An empty
// name runs the program from address 0.
func Time(p *asm.Program, funcs *wave.Registry, name string, opts ...Option) (uint64, error) {
	i, err := New(p, funcs, opts...)
	if err != nil {
		return 0, err
	}
	if name == "" {
		err = i.Run(0)
	} else {
		err = i.RunSubroutine(name)
	}
	return i.ticks, err
}
