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
	"time"

	"github.com/db47h/rebseq/isa"
	"github.com/pkg/errors"
)

// ExposurePointer is the name of the repeat pointer that, when declared,
// controls the exposure time instead of the first instruction of the exposure
// subroutine.
const ExposurePointer = "ExposureTime"

// MinExposure is the shortest shutter opening time.
const MinExposure = 100 * time.Millisecond

// exposureAddr returns the address of the instruction whose repeat count sets
// the exposure time.
func (b *Board) exposureAddr(dark bool) (int, error) {
	if b.prog == nil {
		return 0, ErrNoProgram
	}
	if !dark {
		if ptr, ok := b.prog.Pointer(ExposurePointer); ok && ptr.Kind.IsRepeat() {
			return ptr.Addr, nil
		}
	}
	sub := b.expSub
	if dark {
		sub = b.darkSub
	}
	a, ok := b.prog.Subroutines[sub]
	if !ok {
		return 0, errors.Errorf("reb: no exposure subroutine %s in program", sub)
	}
	ins := b.prog.Instructions[a]
	if ins.Op != isa.OpCall && ins.Op != isa.OpJSR {
		return 0, errors.Errorf("reb: exposure subroutine %s does not start with CALL or JSR", sub)
	}
	return a, nil
}

func (b *Board) exposureTime(dark bool) (time.Duration, error) {
	a, err := b.exposureAddr(dark)
	if err != nil {
		return 0, err
	}
	return time.Duration(b.prog.Instructions[a].Repeat) * b.expUnit, nil
}

func (b *Board) setExposureTime(ctx context.Context, t time.Duration, dark bool) error {
	a, err := b.exposureAddr(dark)
	if err != nil {
		return err
	}
	n := int(t / b.expUnit)
	lo := 1
	if m := int(MinExposure / b.expUnit); !dark && m > lo {
		lo = m
	}
	if n < lo {
		n = lo
	}
	if ptr, ok := b.prog.Pointer(ExposurePointer); ok && ptr.Addr == a {
		return b.SetPointer(ctx, ExposurePointer, strconv.Itoa(n))
	}
	ins := b.prog.Instructions[a]
	ins.Repeat, ins.Infinite = n, false
	if err = b.set.Check(ins); err != nil {
		return errors.Wrap(err, "reb: exposure time")
	}
	if err = b.patch(ctx, a, ins); err != nil {
		return err
	}
	b.log.Info("exposure time set", "dark", dark, "repeat", n, "time", time.Duration(n)*b.expUnit)
	return nil
}

// ExposureTime returns the exposure time with the shutter open.
func (b *Board) ExposureTime() (time.Duration, error) { return b.exposureTime(false) }

// DarkTime returns the exposure time with the shutter closed.
func (b *Board) DarkTime() (time.Duration, error) { return b.exposureTime(true) }

// SetExposureTime sets the exposure time with the shutter open, rounded down
// to a multiple of the exposure unit and no shorter than MinExposure.
func (b *Board) SetExposureTime(ctx context.Context, t time.Duration) error {
	return b.setExposureTime(ctx, t, false)
}

// SetDarkTime sets the exposure time with the shutter closed, rounded down to
// a multiple of the exposure unit and no shorter than one unit.
func (b *Board) SetDarkTime(ctx context.Context, t time.Duration) error {
	return b.setExposureTime(ctx, t, true)
}
