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

package reb

import (
	"context"
	"strconv"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/isa"
	"github.com/pkg/errors"
)

// Infinity is the repeat count reported for CALL instructions looping
// forever.
const Infinity = -1

// PointerError is returned for pointer names not declared in the program.
type PointerError struct {
	Name string
}

func (e *PointerError) Error() string {
	return "reb: undeclared pointer " + strconv.Quote(e.Name)
}

// Pointers returns the pointers of the loaded program.
func (b *Board) Pointers() []asm.Pointer {
	if b.prog == nil {
		return nil
	}
	return append([]asm.Pointer(nil), b.prog.Pointers...)
}

func (b *Board) pointer(name string) (*asm.Pointer, error) {
	if b.prog == nil {
		return nil, ErrNoProgram
	}
	ptr, ok := b.prog.Pointer(name)
	if !ok {
		return nil, &PointerError{name}
	}
	return ptr, nil
}

// patch replaces the instruction at addr with a single register write. The
// in-memory program is only updated if the write succeeds.
func (b *Board) patch(ctx context.Context, addr int, ins isa.Instruction) error {
	w, err := b.set.Encode(ins)
	if err != nil {
		return err
	}
	old, had := b.prog.Instructions[addr]
	b.prog.Instructions[addr] = ins
	if err = b.bus.Write(ctx, bus.ProgramAddr(addr), w); err != nil {
		if had {
			b.prog.Instructions[addr] = old
		} else {
			delete(b.prog.Instructions, addr)
		}
		return errors.Wrapf(err, "reb: patch instruction at 0x%03x", addr)
	}
	b.log.Debug("instruction patched", "addr", addr, "instruction", ins.String(), "word", w)
	return nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "reb: invalid value %q", s)
	}
	return int(v), nil
}

// SetPointer sets the field referenced by the named pointer and rewrites the
// instruction holding it.
//
// For repeat pointers, value is a count, or "infinity" for REP_FUNC. For
// PTR_FUNC pointers, it is a function name or slot number. For PTR_SUBR
// pointers, it is a subroutine name or address.
func (b *Board) SetPointer(ctx context.Context, name, value string) error {
	ptr, err := b.pointer(name)
	if err != nil {
		return err
	}
	ins := b.prog.Instructions[ptr.Addr]
	switch ptr.Kind {
	case asm.RepeatFunc, asm.RepeatSubr:
		if ptr.Kind == asm.RepeatFunc && value == "infinity" {
			ins.Infinite, ins.Repeat = true, 0
			break
		}
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		ins.Repeat, ins.Infinite = n, false
	case asm.TargetFunc:
		if f, ok := b.function(value); ok {
			ins.Func = f
		} else if ins.Func, err = parseInt(value); err != nil {
			return err
		}
	case asm.TargetSubr:
		if a, ok := b.prog.Subroutines[value]; ok {
			ins.Address, ins.Target = a, value
		} else {
			if ins.Address, err = parseInt(value); err != nil {
				return err
			}
			ins.Target = b.subroutineAt(ins.Address)
		}
		ins.Resolved = true
	}
	if err = b.set.Check(ins); err != nil {
		return errors.Wrapf(err, "reb: pointer %s", name)
	}
	if err = b.patch(ctx, ptr.Addr, ins); err != nil {
		return err
	}
	b.log.Info("pointer set", "name", name, "kind", ptr.Kind.String(), "value", value, "addr", ptr.Addr)
	return nil
}

func (b *Board) function(name string) (int, bool) {
	if b.funcs == nil {
		return 0, false
	}
	f, ok := b.funcs.ByName(name)
	if !ok {
		return 0, false
	}
	return f.ID, true
}

// subroutineAt returns the name of the subroutine starting at addr.
func (b *Board) subroutineAt(addr int) string {
	for _, n := range b.prog.Order {
		if b.prog.Subroutines[n] == addr {
			return n
		}
	}
	return ""
}

func pointerValue(k asm.PointerKind, ins isa.Instruction) int {
	switch k {
	case asm.RepeatFunc:
		if ins.Infinite {
			return Infinity
		}
		return ins.Repeat
	case asm.RepeatSubr:
		return ins.Repeat
	case asm.TargetFunc:
		return ins.Func
	}
	return ins.Address
}

// GetPointer returns the value of the field referenced by the named pointer:
// a repeat count (Infinity for CALLs looping forever), a function slot or a
// subroutine address.
//
// If readback is true, the instruction is also read from the board and a
// warning is logged if its field differs from the stored value. The stored
// value is returned in any case.
func (b *Board) GetPointer(ctx context.Context, name string, readback bool) (int, error) {
	ptr, err := b.pointer(name)
	if err != nil {
		return 0, err
	}
	v := pointerValue(ptr.Kind, b.prog.Instructions[ptr.Addr])
	if !readback {
		return v, nil
	}
	w, err := b.read(ctx, bus.ProgramAddr(ptr.Addr))
	if err != nil {
		return v, err
	}
	ins, err := b.set.Decode(w)
	if err != nil {
		b.log.Warn("pointer readback failed", "name", name, "addr", ptr.Addr, "word", w, "err", err)
		return v, nil
	}
	if ins.Op != ptr.Kind.Op() || pointerValue(ptr.Kind, ins) != v {
		b.log.Warn("pointer readback mismatch", "name", name, "addr", ptr.Addr,
			"stored", v, "board", pointerValue(ptr.Kind, ins), "instruction", ins.String())
	}
	return v, nil
}

// SelectSubroutine rewrites the first instruction of the program as a jump to
// the named subroutine, repeated repeat times. It first waits for the
// sequencer to stop.
func (b *Board) SelectSubroutine(ctx context.Context, name string, repeat int) error {
	if b.prog == nil {
		return ErrNoProgram
	}
	a, ok := b.prog.Subroutines[name]
	if !ok {
		return errors.Errorf("reb: no subroutine %s in program", name)
	}
	ins, err := isa.JSRName(name, repeat)
	if err != nil {
		return err
	}
	ins.Address, ins.Resolved = a, true
	if err = b.set.Check(ins); err != nil {
		return err
	}
	if err = b.WaitEnd(ctx); err != nil {
		return errors.Wrap(err, "reb: select subroutine")
	}
	if err = b.patch(ctx, 0, ins); err != nil {
		return err
	}
	b.log.Info("subroutine selected", "name", name, "addr", a, "repeat", repeat)
	return nil
}
