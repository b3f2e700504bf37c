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
	"io"
	"log/slog"
	"time"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// Default settings.
const (
	DefaultPollInterval = 80 * time.Millisecond
	DefaultWaitTimeout  = 10 * time.Minute
	DefaultExposureUnit = 20 * time.Millisecond
)

// ErrNoProgram is returned by operations that need a program when none has
// been loaded or attached.
var ErrNoProgram = errors.New("reb: no program loaded")

// Board is the sequencer of one REB, reached through a register bus.
//
// Board keeps a copy of the program and functions it loaded, which pointer and
// exposure operations patch in place. A Board is not safe for concurrent use.
type Board struct {
	bus     bus.Bus
	set     *isa.InstructionSet
	log     *slog.Logger
	poll    time.Duration
	timeout time.Duration
	expUnit time.Duration
	expSub  string
	darkSub string

	prog  *asm.Program
	funcs *wave.Registry
}

// Option interface
type Option func(*Board) error

// Revision sets the instruction set of the board. The default is isa.Default.
func Revision(set *isa.InstructionSet) Option {
	return func(b *Board) error {
		if set == nil {
			return errors.New("reb: nil instruction set")
		}
		if b.prog != nil && b.prog.Set != set {
			return errors.Errorf("reb: cannot switch to %s with a %s program loaded", set, b.prog.Set)
		}
		b.set = set
		return nil
	}
}

// Logger sets the logger. By default, nothing is logged.
func Logger(l *slog.Logger) Option {
	return func(b *Board) error {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		b.log = l
		return nil
	}
}

// PollInterval sets the delay between two reads of the state register when
// waiting for the sequencer or a measurement.
func PollInterval(d time.Duration) Option {
	return func(b *Board) error {
		if d <= 0 {
			return errors.Errorf("reb: invalid poll interval %v", d)
		}
		b.poll = d
		return nil
	}
}

// WaitTimeout sets the maximum time WaitEnd and measurements wait for. Zero
// disables the timeout; the context passed to each call can still cancel it.
func WaitTimeout(d time.Duration) Option {
	return func(b *Board) error {
		if d < 0 {
			return errors.Errorf("reb: invalid wait timeout %v", d)
		}
		b.timeout = d
		return nil
	}
}

// ExposureUnit sets the duration of one repeat of the exposure subroutine.
func ExposureUnit(d time.Duration) Option {
	return func(b *Board) error {
		if d <= 0 {
			return errors.Errorf("reb: invalid exposure unit %v", d)
		}
		b.expUnit = d
		return nil
	}
}

// ExposureSubroutine sets the names of the exposure subroutines, with shutter
// open and closed. The defaults are "Exposure" and "DarkExposure".
func ExposureSubroutine(light, dark string) Option {
	return func(b *Board) error {
		b.expSub, b.darkSub = light, dark
		return nil
	}
}

// New returns a new Board on the given bus.
func New(b bus.Bus, opts ...Option) (*Board, error) {
	r := &Board{
		bus:     b,
		set:     isa.Default,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		poll:    DefaultPollInterval,
		timeout: DefaultWaitTimeout,
		expUnit: DefaultExposureUnit,
		expSub:  "Exposure",
		darkSub: "DarkExposure",
	}
	if err := r.SetOptions(opts...); err != nil {
		return nil, err
	}
	return r, nil
}

// SetOptions sets the provided options.
func (b *Board) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return err
		}
	}
	return nil
}

// InstructionSet returns the board's instruction set.
func (b *Board) InstructionSet() *isa.InstructionSet { return b.set }

// Program returns the program last loaded or attached, or nil.
func (b *Board) Program() *asm.Program { return b.prog }

// Functions returns the functions last loaded or attached, or nil.
func (b *Board) Functions() *wave.Registry { return b.funcs }

// Attach sets the program and functions the board is assumed to run, without
// sending them. Use it to patch a program loaded by an earlier session.
func (b *Board) Attach(p *asm.Program, funcs *wave.Registry) error {
	if err := b.checkProgram(p); err != nil {
		return err
	}
	b.prog = p.Clone()
	b.funcs = funcs
	return nil
}

func (b *Board) checkProgram(p *asm.Program) error {
	if p == nil {
		return ErrNoProgram
	}
	if p.Set != nil && p.Set != b.set {
		return errors.Errorf("reb: program linked for %s, board is %s", p.Set, b.set)
	}
	return nil
}

func (b *Board) read(ctx context.Context, addr uint32) (uint32, error) {
	m, err := b.bus.Read(ctx, addr, 1)
	if err != nil {
		return 0, err
	}
	return m[addr], nil
}

// withTimeout applies the default wait timeout to ctx.
func (b *Board) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}
	return context.WithCancel(ctx)
}

// waitClear polls the state register until all bits in mask are cleared.
func (b *Board) waitClear(ctx context.Context, mask uint32) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	t := time.NewTicker(b.poll)
	defer t.Stop()
	for {
		st, err := b.State(ctx)
		if err != nil {
			return err
		}
		if st&mask == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "reb: waiting for state 0x%x to clear", mask)
		case <-t.C:
		}
	}
}
