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

package wave

import (
	"io"

	"github.com/db47h/rebseq/internal/rsi"
	"github.com/pkg/errors"
)

const (
	// SliceCount is the number of time slices of a function.
	SliceCount = 16
	// SlotCount is the number of function slots on the board.
	SlotCount = 16
	// DurationMax is the largest slice duration, in ticks.
	DurationMax = 0xffff
	// DefaultSlot holds the default output state. Only its first slice is
	// used by the hardware, the others are always zero.
	DefaultSlot = 0
)

// Slice is one step of a function: the outputs are held at Mask for Duration
// ticks.
type Slice struct {
	Duration uint16
	Mask     uint32
}

// Function is a waveform table loaded in one of the board's function slots.
type Function struct {
	ID       int
	Name     string
	Desc     string
	Channels *Channels
	Slices   [SliceCount]Slice
}

// New returns an empty function for slot id.
func New(id int, name string, ch *Channels) (*Function, error) {
	if id < 0 || id >= SlotCount {
		return nil, errors.Errorf("function %s: slot %d out of range [0, %d)", name, id, SlotCount)
	}
	if ch == nil {
		ch = DefaultChannels()
	}
	return &Function{ID: id, Name: name, Channels: ch}, nil
}

// SetSlice sets the duration and output mask of a slice. Durations are
// clamped to [0, DurationMax].
//
// Slices other than the first of the DefaultSlot function are always set to
// zero.
func (f *Function) SetSlice(index, duration int, mask uint32) error {
	if index < 0 || index >= SliceCount {
		return errors.Errorf("function %s: slice %d out of range [0, %d)", f.Name, index, SliceCount)
	}
	if f.ID == DefaultSlot && index > 0 {
		f.Slices[index] = Slice{}
		return nil
	}
	switch {
	case duration < 0:
		duration = 0
	case duration > DurationMax:
		duration = DurationMax
	}
	f.Slices[index] = Slice{uint16(duration), mask}
	return nil
}

// IsOn returns the state of the given output bit during a slice. defined is
// false if the slice is out of range or unused (zero duration).
func (f *Function) IsOn(bit, slice int) (on, defined bool) {
	if slice < 0 || slice >= SliceCount || bit < 0 || bit >= OutputBits {
		return false, false
	}
	s := f.Slices[slice]
	if s.Duration == 0 {
		return false, false
	}
	return s.Mask&(1<<uint(bit)) != 0, true
}

// IsOnChannel is like IsOn for a named channel.
func (f *Function) IsOnChannel(name string, slice int) (on, defined bool, err error) {
	bit, err := f.Channels.Bit(name)
	if err != nil {
		return false, false, err
	}
	on, defined = f.IsOn(bit, slice)
	return on, defined, nil
}

// Len returns the number of used slices, stopping at the first zero duration.
func (f *Function) Len() int {
	for i, s := range f.Slices {
		if s.Duration == 0 {
			return i
		}
	}
	return SliceCount
}

// TotalTime returns the duration of one execution of the function in ticks,
// including the 3 cycles added by the sequencer.
func (f *Function) TotalTime() int {
	t := 3
	for _, s := range f.Slices {
		t += int(s.Duration)
	}
	return t
}

// WriteTo writes a table of the function slices to w, with one column per
// output bit (bit 31 first) labeled by channel name.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	ew := rsi.NewErrWriter(w)
	start := ew.Count()
	ew.Printf("Function %d: %s\n", f.ID, f.Name)
	if f.Desc != "" {
		ew.Printf("    %s\n", f.Desc)
	}
	var hdr [3][OutputBits]byte
	for i := 0; i < OutputBits; i++ {
		for l := range hdr {
			hdr[l][i] = ' '
		}
		name, ok := f.Channels.Name(OutputBits - 1 - i)
		if !ok {
			continue
		}
		for l := range hdr {
			if l < len(name) {
				hdr[l][i] = name[l]
			} else {
				hdr[l][i] = '|'
			}
		}
	}
	for l := range hdr {
		ew.Printf("%-24s%s\n", "", hdr[l][:])
	}
	for i, s := range f.Slices {
		ew.Printf("%02d  %8d%12s%032b\n", i, s.Duration, "", s.Mask)
	}
	return ew.Count() - start, ew.Err
}
