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

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// Load sends the program and the functions to the board and keeps a copy of
// them for later patching. funcs may be nil.
func (b *Board) Load(ctx context.Context, p *asm.Program, funcs *wave.Registry) error {
	if err := b.checkProgram(p); err != nil {
		return err
	}
	if err := b.SendProgram(ctx, p); err != nil {
		return err
	}
	if funcs != nil {
		if err := b.SendFunctions(ctx, funcs); err != nil {
			return err
		}
	}
	b.prog = p.Clone()
	b.funcs = funcs
	return nil
}

// SendProgram writes p to the program memory. The memory is first cleared up
// to 16 words past the end of p, or of the loaded program if it is longer,
// then instructions are written in ascending address order.
func (b *Board) SendProgram(ctx context.Context, p *asm.Program) error {
	if err := b.checkProgram(p); err != nil {
		return err
	}
	words := make(map[int]uint32, len(p.Instructions))
	for a, ins := range p.Instructions {
		w, err := b.set.Encode(ins)
		if err != nil {
			return errors.Wrapf(err, "reb: instruction at 0x%03x", a)
		}
		words[a] = w
	}
	end := p.End()
	if b.prog != nil && b.prog.End() > end {
		end = b.prog.End()
	}
	end += 16
	if end > isa.ProgramSize {
		end = isa.ProgramSize
	}
	for a := 0; a < end; a++ {
		if err := b.bus.Write(ctx, bus.ProgramAddr(a), 0); err != nil {
			return errors.Wrap(err, "reb: clear program")
		}
	}
	addrs := p.Addresses()
	for _, a := range addrs {
		if err := b.bus.Write(ctx, bus.ProgramAddr(a), words[a]); err != nil {
			return errors.Wrap(err, "reb: send program")
		}
	}
	b.log.Info("program sent", "revision", b.set.Revision, "instructions", len(addrs), "subroutines", len(p.Subroutines))
	return nil
}

// SendProgramInstruction writes a single instruction.
func (b *Board) SendProgramInstruction(ctx context.Context, addr int, ins isa.Instruction) error {
	if addr < 0 || addr >= isa.ProgramSize {
		return &isa.RangeError{Field: "address", Value: addr, Max: isa.ProgramSize - 1}
	}
	w, err := b.set.Encode(ins)
	if err != nil {
		return err
	}
	return b.bus.Write(ctx, bus.ProgramAddr(addr), w)
}

// SendFunction writes the slices of f to its slot.
func (b *Board) SendFunction(ctx context.Context, f *wave.Function) error {
	if f.ID < 0 || f.ID >= wave.SlotCount {
		return errors.Errorf("reb: function %s: invalid slot %d", f.Name, f.ID)
	}
	for i, s := range f.Slices {
		d, m := uint32(s.Duration), s.Mask
		if f.ID == wave.DefaultSlot && i > 0 {
			d, m = 0, 0
		}
		if err := b.bus.Write(ctx, bus.DurationAddr(f.ID, i), d); err != nil {
			return errors.Wrapf(err, "reb: send function %s", f.Name)
		}
		if err := b.bus.Write(ctx, bus.OutputAddr(f.ID, i), m); err != nil {
			return errors.Wrapf(err, "reb: send function %s", f.Name)
		}
	}
	b.log.Debug("function sent", "slot", f.ID, "name", f.Name, "slices", f.Len())
	return nil
}

// SendFunctions writes all functions of r.
func (b *Board) SendFunctions(ctx context.Context, r *wave.Registry) error {
	for _, f := range r.Functions() {
		if err := b.SendFunction(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpProgram reads back and decodes the program memory. Instructions are
// not resolved to the names of a loaded program; JSR targets get generated
// labels.
func (b *Board) DumpProgram(ctx context.Context) (*asm.Program, error) {
	m, err := b.bus.Read(ctx, bus.ProgramBase, isa.ProgramSize)
	if err != nil {
		return nil, errors.Wrap(err, "reb: dump program")
	}
	words := make(map[int]uint32, len(m))
	for addr, w := range m {
		words[int(addr-bus.ProgramBase)] = w
	}
	return asm.Disassemble(b.set, words)
}

// DumpFunction reads back the function in slot id. The channel table of the
// loaded functions is used when available.
func (b *Board) DumpFunction(ctx context.Context, id int) (*wave.Function, error) {
	var ch *wave.Channels
	name := ""
	if b.funcs != nil {
		if f := b.funcs.Get(id); f != nil {
			ch, name = f.Channels, f.Name
		}
	}
	f, err := wave.New(id, name, ch)
	if err != nil {
		return nil, err
	}
	d, err := b.bus.Read(ctx, bus.DurationAddr(id, 0), wave.SliceCount)
	if err != nil {
		return nil, errors.Wrapf(err, "reb: dump function %d", id)
	}
	o, err := b.bus.Read(ctx, bus.OutputAddr(id, 0), wave.SliceCount)
	if err != nil {
		return nil, errors.Wrapf(err, "reb: dump function %d", id)
	}
	for i := 0; i < wave.SliceCount; i++ {
		if err = f.SetSlice(i, int(d[bus.DurationAddr(id, i)]), o[bus.OutputAddr(id, i)]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// DumpFunctions reads back all function slots.
func (b *Board) DumpFunctions(ctx context.Context) (*wave.Registry, error) {
	r := new(wave.Registry)
	for id := 0; id < wave.SlotCount; id++ {
		f, err := b.DumpFunction(ctx, id)
		if err != nil {
			return nil, err
		}
		if err = r.Set(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
