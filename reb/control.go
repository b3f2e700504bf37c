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

	"github.com/db47h/rebseq/bus"
	"github.com/pkg/errors"
)

// Schema returns the version of the register map.
func (b *Board) Schema(ctx context.Context) (uint32, error) { return b.read(ctx, bus.RegSchema) }

// Version returns the firmware version.
func (b *Board) Version(ctx context.Context) (uint32, error) { return b.read(ctx, bus.RegVersion) }

// SciID returns the board address on the SCI link.
func (b *Board) SciID(ctx context.Context) (uint32, error) { return b.read(ctx, bus.RegSciID) }

// State returns the state register.
func (b *Board) State(ctx context.Context) (uint32, error) { return b.read(ctx, bus.RegState) }

// Trigger writes the trigger register.
func (b *Board) Trigger(ctx context.Context, v uint32) error {
	return b.bus.Write(ctx, bus.RegTrigger, v)
}

func (b *Board) setState(ctx context.Context, set, clear uint32) error {
	st, err := b.State(ctx)
	if err != nil {
		return err
	}
	return b.Trigger(ctx, st&^clear|set)
}

// Start starts the sequencer.
func (b *Board) Start(ctx context.Context) error {
	if err := b.setState(ctx, bus.StateSequencer, 0); err != nil {
		return errors.Wrap(err, "reb: start")
	}
	b.log.Info("sequencer started")
	return nil
}

// Stop sends the STOP command.
func (b *Board) Stop(ctx context.Context) error {
	if err := b.bus.Write(ctx, b.set.Stop, 1); err != nil {
		return errors.Wrap(err, "reb: stop")
	}
	b.log.Info("sequencer stopped")
	return nil
}

// Step sends the STEP command.
func (b *Board) Step(ctx context.Context) error {
	if err := b.bus.Write(ctx, b.set.Step, 1); err != nil {
		return errors.Wrap(err, "reb: step")
	}
	b.log.Debug("sequencer step")
	return nil
}

// StartClock starts the internal clock counter.
func (b *Board) StartClock(ctx context.Context) error {
	return b.setState(ctx, bus.StateClock, 0)
}

// StopClock stops the internal clock counter.
func (b *Board) StopClock(ctx context.Context) error {
	return b.setState(ctx, 0, bus.StateClock)
}

// Time returns the internal clock counter, in ticks.
func (b *Board) Time(ctx context.Context) (uint64, error) {
	m, err := b.bus.Read(ctx, bus.RegClockLo, 2)
	if err != nil {
		return 0, err
	}
	return uint64(m[bus.RegClockHi])<<32 | uint64(m[bus.RegClockLo]), nil
}

// SetTime sets the internal clock counter.
func (b *Board) SetTime(ctx context.Context, t uint64) error {
	if err := b.bus.Write(ctx, bus.RegClockLo, uint32(t)); err != nil {
		return err
	}
	return b.bus.Write(ctx, bus.RegClockHi, uint32(t>>32))
}

// WaitEnd waits until the sequencer is no longer running, the context is
// done, or the wait timeout expires.
func (b *Board) WaitEnd(ctx context.Context) error {
	return b.waitClear(ctx, bus.StateSequencer)
}
