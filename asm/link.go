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

package asm

import (
	"io"
	"sort"
	"text/scanner"

	"github.com/db47h/rebseq/internal/rsi"
	"github.com/db47h/rebseq/isa"
)

// Alignment of subroutine entry points.
const Alignment = 0x10

// Pointer is a named reference to one field of the instruction at Addr.
type Pointer struct {
	Name string
	Kind PointerKind
	Addr int
	Pos  scanner.Position
}

// Program is a linked program.
type Program struct {
	Set          *isa.InstructionSet
	Instructions map[int]isa.Instruction
	Subroutines  map[string]int // entry addresses
	Order        []string       // subroutine names in address order
	Pointers     []Pointer
}

func newProgram(set *isa.InstructionSet) *Program {
	return &Program{
		Set:          set,
		Instructions: make(map[int]isa.Instruction),
		Subroutines:  make(map[string]int),
	}
}

// Link places the main sequence at address 0 and each subroutine, in
// declaration order, at the next multiple of Alignment. Then it resolves
// symbolic jumps and pointers and checks every instruction against set. If set
// is nil, isa.Default is used.
//
// The returned error, if not nil, is a *LinkError.
func Link(src *Source, set *isa.InstructionSet) (*Program, error) {
	if set == nil {
		set = isa.Default
	}
	p := newProgram(set)
	owner := make(map[int]string)
	addr := 0
	place := func(sub string, code []isa.Instruction) error {
		for _, ins := range code {
			if addr >= isa.ProgramSize {
				return &LinkError{Sub: sub, Addr: addr, Msg: "program does not fit in sequencer memory"}
			}
			p.Instructions[addr] = ins
			owner[addr] = sub
			addr++
		}
		return nil
	}
	if err := place("", src.Main); err != nil {
		return nil, err
	}
	for _, sub := range src.Subroutines {
		if _, ok := p.Subroutines[sub.Name]; ok {
			return nil, &LinkError{Sub: sub.Name, Addr: addr, Msg: "duplicate subroutine"}
		}
		if addr%Alignment != 0 {
			addr += Alignment - addr%Alignment
		}
		p.Subroutines[sub.Name] = addr
		p.Order = append(p.Order, sub.Name)
		if err := place(sub.Name, sub.Code); err != nil {
			return nil, err
		}
	}

	for _, a := range p.Addresses() {
		ins := p.Instructions[a]
		if ins.Op == isa.OpJSR && ins.Target != "" {
			entry, ok := p.Subroutines[ins.Target]
			if !ok {
				return nil, &LinkError{Sub: owner[a], Addr: a, Msg: "undefined subroutine " + ins.Target}
			}
			ins.Address = entry
			ins.Resolved = true
			p.Instructions[a] = ins
		}
		if err := set.Check(ins); err != nil {
			return nil, &LinkError{Sub: owner[a], Addr: a, Msg: "invalid " + ins.Op.String() + " for " + set.Revision, Err: err}
		}
	}

	for _, d := range src.Pointers {
		base := 0
		if d.Sub != "" {
			entry, ok := p.Subroutines[d.Sub]
			if !ok {
				return nil, &LinkError{Sub: d.Sub, Msg: "pointer " + d.Name + " in undefined subroutine"}
			}
			base = entry
		}
		a := base + d.Index
		if ins, ok := p.Instructions[a]; !ok || ins.Op != d.Kind.Op() {
			return nil, &LinkError{Sub: d.Sub, Addr: a, Msg: "pointer " + d.Name + " does not reference a " + d.Kind.Op().String()}
		}
		p.Pointers = append(p.Pointers, Pointer{d.Name, d.Kind, a, d.Pos})
	}
	return p, nil
}

// Addresses returns the addresses of all instructions in ascending order.
func (p *Program) Addresses() []int {
	l := make([]int, 0, len(p.Instructions))
	for a := range p.Instructions {
		l = append(l, a)
	}
	sort.Ints(l)
	return l
}

// End returns the address following the last instruction.
func (p *Program) End() int {
	end := 0
	for a := range p.Instructions {
		if a >= end {
			end = a + 1
		}
	}
	return end
}

// Bytecode returns the encoded program words.
func (p *Program) Bytecode() (map[int]uint32, error) {
	w := make(map[int]uint32, len(p.Instructions))
	for a, ins := range p.Instructions {
		v, err := p.Set.Encode(ins)
		if err != nil {
			return nil, &LinkError{Sub: p.SubroutineAt(a), Addr: a, Msg: "cannot encode " + ins.Op.String(), Err: err}
		}
		w[a] = v
	}
	return w, nil
}

// SubroutineAt returns the name of the subroutine holding address a, or an
// empty string for the main sequence.
func (p *Program) SubroutineAt(a int) string {
	name, best := "", -1
	for n, e := range p.Subroutines {
		if e <= a && e > best {
			name, best = n, e
		}
	}
	return name
}

// Pointer returns the named pointer.
func (p *Program) Pointer(name string) (*Pointer, bool) {
	for i := range p.Pointers {
		if p.Pointers[i].Name == name {
			return &p.Pointers[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of p.
func (p *Program) Clone() *Program {
	c := newProgram(p.Set)
	for a, ins := range p.Instructions {
		c.Instructions[a] = ins
	}
	for n, e := range p.Subroutines {
		c.Subroutines[n] = e
	}
	c.Order = append(c.Order, p.Order...)
	c.Pointers = append(c.Pointers, p.Pointers...)
	return c
}

// WriteTo writes a listing of the program to w. Subroutine entries are
// labelled, pointer directives precede the instruction they reference, and
// gaps in the address space are marked with an empty line. The listing can be
// read back with Parse.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	ew := rsi.NewErrWriter(w)
	labels := make(map[int]string)
	for _, n := range p.Order {
		labels[p.Subroutines[n]] = n
	}
	ptrs := make(map[int][]Pointer)
	for _, ptr := range p.Pointers {
		ptrs[ptr.Addr] = append(ptrs[ptr.Addr], ptr)
	}
	prev := -1
	for _, a := range p.Addresses() {
		l, ok := labels[a]
		if prev >= 0 && (a != prev+1 || ok) {
			ew.Printf("\n")
		}
		if ok {
			ew.Printf("%s:\n", l)
		}
		for _, ptr := range ptrs[a] {
			ew.Printf("        %s %s\n", ptr.Kind, ptr.Name)
		}
		ew.Printf("0x%03x:  %s\n", a, p.Instructions[a])
		prev = a
	}
	return ew.Count(), ew.Err
}
