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

package isa

import (
	"fmt"
	"strconv"
)

// Opcode identifies one of the four sequencer operations. Opcode values are
// symbolic; the numeric value stored in a bytecode word depends on the
// hardware revision.
type Opcode uint8

// Sequencer opcodes.
const (
	OpCall Opcode = iota + 1
	OpJSR
	OpRTS
	OpEnd
)

var opNames = [...]string{
	OpCall: "CALL",
	OpJSR:  "JSR",
	OpRTS:  "RTS",
	OpEnd:  "END",
}

func (op Opcode) String() string {
	if op >= OpCall && op <= OpEnd {
		return opNames[op]
	}
	return "Opcode(" + strconv.Itoa(int(op)) + ")"
}

// Universal field limits. Revisions may be narrower, see InstructionSet.
const (
	FuncCount   = 16        // function slots addressable by CALL
	AddressMax  = 0x3ff     // 10 bits subroutine address
	ProgramSize = 0x3ff     // program memory words
	RepeatMax   = 1<<23 - 1 // widest repeat field of all revisions
)

// Instruction is a single sequencer instruction.
//
// For CALL, Func and either Repeat or Infinite are meaningful. For JSR, Target
// holds the subroutine name when the jump was written symbolically and Address
// holds the jump address once Resolved is true. RTS and END carry no operands.
//
// Instruction values are comparable.
type Instruction struct {
	Op       Opcode
	Func     int
	Repeat   int
	Infinite bool
	Target   string
	Address  int
	Resolved bool
}

// Call returns a CALL instruction running function fn repeat times.
func Call(fn, repeat int) (Instruction, error) {
	if err := checkFunc(fn); err != nil {
		return Instruction{}, err
	}
	if repeat < 0 || repeat > RepeatMax {
		return Instruction{}, &RangeError{"repeat", repeat, RepeatMax}
	}
	return Instruction{Op: OpCall, Func: fn, Repeat: repeat}, nil
}

// CallForever returns a CALL instruction looping on function fn until the
// sequencer is stopped.
func CallForever(fn int) (Instruction, error) {
	if err := checkFunc(fn); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpCall, Func: fn, Infinite: true}, nil
}

// JSR returns a jump to the subroutine at address addr.
func JSR(addr, repeat int) (Instruction, error) {
	if addr < 0 || addr > AddressMax {
		return Instruction{}, &RangeError{"address", addr, AddressMax}
	}
	if err := checkRepeat(repeat); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpJSR, Address: addr, Repeat: repeat, Resolved: true}, nil
}

// JSRName returns a jump to the named subroutine. The jump address is set by
// the linker.
func JSRName(name string, repeat int) (Instruction, error) {
	if name == "" {
		return Instruction{}, &RangeError{Field: "target"}
	}
	if err := checkRepeat(repeat); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpJSR, Target: name, Repeat: repeat}, nil
}

// RTS returns a return from subroutine instruction.
func RTS() Instruction { return Instruction{Op: OpRTS} }

// End returns an end of program instruction.
func End() Instruction { return Instruction{Op: OpEnd} }

func checkFunc(fn int) error {
	if fn < 0 || fn >= FuncCount {
		return &RangeError{"function", fn, FuncCount - 1}
	}
	return nil
}

func checkRepeat(repeat int) error {
	if repeat < 0 || repeat > RepeatMax {
		return &RangeError{"repeat", repeat, RepeatMax}
	}
	return nil
}

// String returns the assembly form of the instruction, as accepted by the
// label style parser.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpCall:
		rep := "repeat(infinity)"
		if !ins.Infinite {
			rep = "repeat(" + strconv.Itoa(ins.Repeat) + ")"
		}
		return fmt.Sprintf("%-8s%-12s%s", ins.Op, "func("+strconv.Itoa(ins.Func)+")", rep)
	case OpJSR:
		t := ins.Target
		if t == "" {
			t = fmt.Sprintf("0x%03x", ins.Address)
		}
		return fmt.Sprintf("%-8s%-12s%s", ins.Op, t, "repeat("+strconv.Itoa(ins.Repeat)+")")
	}
	return ins.Op.String()
}

// RangeError reports an operand outside of its field.
type RangeError struct {
	Field string
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	if e.Field == "target" && e.Max == 0 {
		return "isa: empty jump target"
	}
	return fmt.Sprintf("isa: %s %d out of range [0, %d]", e.Field, e.Value, e.Max)
}
