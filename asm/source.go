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
	"text/scanner"

	"github.com/db47h/rebseq/isa"
)

// Subroutine is a named instruction sequence.
type Subroutine struct {
	Name string
	Pos  scanner.Position
	Code []isa.Instruction
}

// PointerKind tells which instruction field a pointer controls.
type PointerKind int

// Pointer kinds.
const (
	RepeatFunc PointerKind = iota // repeat count of a CALL
	RepeatSubr                    // repeat count of a JSR
	TargetFunc                    // function index of a CALL
	TargetSubr                    // target address of a JSR
)

var kindNames = [...]string{"REP_FUNC", "REP_SUBR", "PTR_FUNC", "PTR_SUBR"}

func (k PointerKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PointerKind(%d)", int(k))
}

// IsRepeat returns true for pointers controlling a repeat count.
func (k PointerKind) IsRepeat() bool { return k == RepeatFunc || k == RepeatSubr }

// Op returns the opcode of the instructions this kind of pointer can bind to.
func (k PointerKind) Op() isa.Opcode {
	if k == RepeatFunc || k == TargetFunc {
		return isa.OpCall
	}
	return isa.OpJSR
}

func pointerKind(s string) (PointerKind, bool) {
	for i, n := range kindNames {
		if n == s {
			return PointerKind(i), true
		}
	}
	return 0, false
}

// PointerDecl binds a pointer name to one instruction of the source. Sub is
// the name of the subroutine holding the instruction, empty for the main
// sequence, and Index the position of the instruction in it.
type PointerDecl struct {
	Name  string
	Kind  PointerKind
	Pos   scanner.Position
	Sub   string
	Index int
}

// Source is an unassembled program: the main instruction sequence and the
// subroutines, in declaration order.
type Source struct {
	Main        []isa.Instruction
	Subroutines []*Subroutine
	Pointers    []PointerDecl
}

// Subroutine returns the named subroutine.
func (s *Source) Subroutine(name string) *Subroutine {
	for _, sub := range s.Subroutines {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// ParseError reports malformed source text.
type ParseError struct {
	Pos scanner.Position
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if !e.Pos.IsValid() {
		if e.Pos.Filename != "" {
			return e.Pos.Filename + ": " + msg
		}
		return msg
	}
	return e.Pos.String() + ": " + msg
}

// Unwrap returns the underlying error, if any.
func (e *ParseError) Unwrap() error { return e.Err }

// LinkError reports an unresolved reference or an operand that does not fit
// the target instruction set.
type LinkError struct {
	Sub  string // subroutine name, empty for the main sequence
	Addr int
	Msg  string
	Err  error
}

func (e *LinkError) Error() string {
	where := "main"
	if e.Sub != "" {
		where = e.Sub
	}
	msg := fmt.Sprintf("link: %s at 0x%03x: %s", where, e.Addr, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *LinkError) Unwrap() error { return e.Err }
