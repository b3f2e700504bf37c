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
	"sort"

	"github.com/pkg/errors"
)

// Field describes a bit field within a bytecode word.
type Field struct {
	Shift uint
	Width uint
}

// Max returns the largest value the field can hold.
func (f Field) Max() int { return 1<<f.Width - 1 }

func (f Field) put(v int) uint32 { return uint32(v) & uint32(f.Max()) << f.Shift }
func (f Field) get(w uint32) int  { return int(w >> f.Shift & uint32(f.Max())) }

var opField = Field{28, 4}

// InstructionSet describes the bytecode layout of one hardware revision.
type InstructionSet struct {
	Revision string

	// opcode values, indexed by Opcode
	Opcodes [OpEnd + 1]uint32

	CallFunc     Field
	CallInfinite Field
	CallRepeat   Field
	JSRAddress   Field
	JSRRepeat    Field

	// command registers
	Stop uint32
	Step uint32
}

// Supported hardware revisions.
var (
	REB1 = &InstructionSet{
		Revision:     "reb1",
		Opcodes:      [...]uint32{OpCall: 0x1, OpJSR: 0x2, OpRTS: 0x3, OpEnd: 0x4},
		CallFunc:     Field{24, 4},
		CallInfinite: Field{23, 1},
		CallRepeat:   Field{0, 22},
		JSRAddress:   Field{18, 10},
		JSRRepeat:    Field{0, 18},
		Stop:         0x320000,
		Step:         0x310000,
	}
	REB2 = &InstructionSet{
		Revision:     "reb2",
		Opcodes:      [...]uint32{OpCall: 0x1, OpJSR: 0x2, OpRTS: 0x3, OpEnd: 0x4},
		CallFunc:     Field{24, 4},
		CallInfinite: Field{23, 1},
		CallRepeat:   Field{0, 23},
		JSRAddress:   Field{18, 10},
		JSRRepeat:    Field{0, 17},
		Stop:         0x310000,
		Step:         0x320000,
	}
	REB3 = &InstructionSet{
		Revision:     "reb3",
		Opcodes:      [...]uint32{OpCall: 0x1, OpJSR: 0x5, OpRTS: 0xE, OpEnd: 0xF},
		CallFunc:     Field{24, 4},
		CallInfinite: Field{23, 1},
		CallRepeat:   Field{0, 22},
		JSRAddress:   Field{16, 10},
		JSRRepeat:    Field{0, 16},
		Stop:         0x320000,
		Step:         0x310000,
	}
)

// Default is the instruction set used when none is specified.
var Default = REB3

var revisions = map[string]*InstructionSet{
	REB1.Revision: REB1,
	REB2.Revision: REB2,
	REB3.Revision: REB3,
}

// Lookup returns the instruction set for the given revision tag.
func Lookup(tag string) (*InstructionSet, error) {
	if set, ok := revisions[tag]; ok {
		return set, nil
	}
	return nil, errors.Errorf("isa: unknown hardware revision %q", tag)
}

// Revisions returns the known revision tags, sorted.
func Revisions() []string {
	tags := make([]string, 0, len(revisions))
	for t := range revisions {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func (set *InstructionSet) String() string { return set.Revision }

// Check verifies that all operands of ins fit in this revision's fields.
func (set *InstructionSet) Check(ins Instruction) error {
	switch ins.Op {
	case OpCall:
		if ins.Func < 0 || ins.Func > set.CallFunc.Max() {
			return &RangeError{"function", ins.Func, set.CallFunc.Max()}
		}
		if !ins.Infinite && (ins.Repeat < 0 || ins.Repeat > set.CallRepeat.Max()) {
			return &RangeError{"repeat", ins.Repeat, set.CallRepeat.Max()}
		}
	case OpJSR:
		if !ins.Resolved {
			return errors.Errorf("isa: unresolved jump to %s", ins.Target)
		}
		if ins.Address < 0 || ins.Address > set.JSRAddress.Max() {
			return &RangeError{"address", ins.Address, set.JSRAddress.Max()}
		}
		if ins.Repeat < 0 || ins.Repeat > set.JSRRepeat.Max() {
			return &RangeError{"repeat", ins.Repeat, set.JSRRepeat.Max()}
		}
	case OpRTS, OpEnd:
	default:
		return errors.Errorf("isa: invalid opcode %v", ins.Op)
	}
	return nil
}

// Encode returns the bytecode word for ins.
func (set *InstructionSet) Encode(ins Instruction) (uint32, error) {
	if err := set.Check(ins); err != nil {
		return 0, err
	}
	w := opField.put(int(set.Opcodes[ins.Op]))
	switch ins.Op {
	case OpCall:
		w |= set.CallFunc.put(ins.Func)
		if ins.Infinite {
			w |= set.CallInfinite.put(1)
		} else {
			w |= set.CallRepeat.put(ins.Repeat)
		}
	case OpJSR:
		w |= set.JSRAddress.put(ins.Address) | set.JSRRepeat.put(ins.Repeat)
	}
	return w, nil
}

// Decode returns the instruction encoded in w.
func (set *InstructionSet) Decode(w uint32) (Instruction, error) {
	code := uint32(opField.get(w))
	var op Opcode
	for o := OpCall; o <= OpEnd; o++ {
		if set.Opcodes[o] == code {
			op = o
			break
		}
	}
	switch op {
	case OpCall:
		ins := Instruction{Op: OpCall, Func: set.CallFunc.get(w)}
		if set.CallInfinite.get(w) != 0 {
			ins.Infinite = true
		} else {
			ins.Repeat = set.CallRepeat.get(w)
		}
		return ins, nil
	case OpJSR:
		return Instruction{
			Op:       OpJSR,
			Address:  set.JSRAddress.get(w),
			Repeat:   set.JSRRepeat.get(w),
			Resolved: true,
		}, nil
	case OpRTS, OpEnd:
		return Instruction{Op: op}, nil
	}
	return Instruction{}, &OpcodeError{set.Revision, w}
}

// OpcodeError is returned when decoding a word with an unknown opcode nibble.
type OpcodeError struct {
	Revision string
	Word     uint32
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("isa: invalid opcode 0x%x in word 0x%08x (%s)", e.Word>>28, e.Word, e.Revision)
}
