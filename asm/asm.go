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
	"fmt"
	"io"
	"sort"

	"github.com/db47h/rebseq/isa"
)

// Option interface
type Option func(*parser) error

// Constants makes the given integer constants available as repeat counts.
func Constants(c map[string]int) Option {
	return func(p *parser) error {
		for k, v := range c {
			p.consts[k] = v
		}
		return nil
	}
}

// Functions makes the given function names available as CALL targets, mapping
// each name to its slot.
func Functions(f map[string]int) Option {
	return func(p *parser) error {
		for k, v := range f {
			p.funcs[k] = v
		}
		return nil
	}
}

// lineOffset shifts the line numbers of reported positions.
func lineOffset(n int) Option {
	return func(p *parser) error { p.line = n; return nil }
}

// Parse reads label style assembly from the supplied io.Reader and returns the
// unassembled source.
//
// The name parameter is used only in error messages to name the source of the
// error. If the io.Reader is a file, name should be the file name.
//
// The returned error, if not nil, is a *ParseError.
func Parse(name string, r io.Reader, opts ...Option) (*Source, error) {
	p := newParser()
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p.parse(name, r)
}

// Assemble parses and links label style assembly for the given instruction
// set.
func Assemble(name string, r io.Reader, set *isa.InstructionSet, opts ...Option) (*Program, error) {
	src, err := Parse(name, r, opts...)
	if err != nil {
		return nil, err
	}
	return Link(src, set)
}

// Disassemble decodes the program words in w (address to bytecode word). Zero
// words are skipped. JSR targets are labelled "L" followed by their address in
// hex so that the listing of the result can be assembled again.
func Disassemble(set *isa.InstructionSet, w map[int]uint32) (*Program, error) {
	if set == nil {
		set = isa.Default
	}
	p := newProgram(set)
	addrs := make([]int, 0, len(w))
	for a, v := range w {
		if v != 0 {
			addrs = append(addrs, a)
		}
	}
	sort.Ints(addrs)
	for _, a := range addrs {
		ins, err := set.Decode(w[a])
		if err != nil {
			return nil, &LinkError{Addr: a, Msg: "invalid program word", Err: err}
		}
		p.Instructions[a] = ins
	}
	var entries []int
	for _, a := range addrs {
		ins := p.Instructions[a]
		if ins.Op != isa.OpJSR {
			continue
		}
		name := fmt.Sprintf("L%03x", ins.Address)
		if _, ok := p.Subroutines[name]; !ok {
			p.Subroutines[name] = ins.Address
			entries = append(entries, ins.Address)
		}
		ins.Target = name
		p.Instructions[a] = ins
	}
	sort.Ints(entries)
	for _, a := range entries {
		p.Order = append(p.Order, fmt.Sprintf("L%03x", a))
	}
	return p, nil
}
