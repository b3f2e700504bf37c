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
	"github.com/pkg/errors"
)

// Level sets a channel to a fixed value for a whole function.
type Level struct {
	Channel string
	Value   int
}

// SliceDef describes one slice of a function definition: its duration and the
// values of the function's clocks, in declaration order.
type SliceDef struct {
	Ticks  int
	Values []int
}

// Def is a function definition as written in a sequencer file.
type Def struct {
	Name      string
	Desc      string
	Clocks    []string
	Slices    []SliceDef
	Constants []Level
}

// Build returns the function defined by def in slot id.
//
// The output mask of each slice merges the function constants and the
// per-slice clock values; a channel set by both takes the constant value.
// Channels set by neither are 0.
//
// The sequencer stretches the first slice of a function by one tick and the
// last one by two. Build compensates by shortening them.
func Build(id int, def *Def, ch *Channels) (*Function, error) {
	f, err := New(id, def.Name, ch)
	if err != nil {
		return nil, err
	}
	f.Desc = def.Desc
	// keep one slice for the end marker
	if len(def.Slices) > SliceCount-1 {
		return nil, errors.Errorf("function %s: too many slices (%d > %d)", def.Name, len(def.Slices), SliceCount-1)
	}

	var constMask, constSet uint32
	for _, c := range def.Constants {
		bit, err := f.Channels.Bit(c.Channel)
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", def.Name)
		}
		if c.Value != 0 && c.Value != 1 {
			return nil, errors.Errorf("function %s: invalid value %d for channel %s", def.Name, c.Value, c.Channel)
		}
		constSet |= 1 << uint(bit)
		constMask |= uint32(c.Value) << uint(bit)
	}

	clocks := make([]uint, len(def.Clocks))
	for i, name := range def.Clocks {
		bit, err := f.Channels.Bit(name)
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", def.Name)
		}
		clocks[i] = uint(bit)
	}

	last := len(def.Slices) - 1
	for i, s := range def.Slices {
		if len(s.Values) != len(clocks) {
			return nil, errors.Errorf("function %s: slice %d has %d values for %d clocks", def.Name, i, len(s.Values), len(clocks))
		}
		mask := constMask
		for j, v := range s.Values {
			if v != 0 && v != 1 {
				return nil, errors.Errorf("function %s: slice %d: invalid value %d for clock %s", def.Name, i, v, def.Clocks[j])
			}
			bit := uint32(1) << clocks[j]
			if constSet&bit == 0 && v == 1 {
				mask |= bit
			}
		}
		d := s.Ticks
		switch i {
		case 0:
			d--
		case last:
			d -= 2
		}
		if d < 1 && (f.ID != DefaultSlot || i == 0) {
			return nil, errors.Errorf("function %s: slice %d: %d ticks is too short", def.Name, i, s.Ticks)
		}
		if err := f.SetSlice(i, d, mask); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Registry holds the functions loaded in the board's slots.
type Registry struct {
	slots [SlotCount]*Function
}

// Set stores f in its slot, replacing any previous function.
func (r *Registry) Set(f *Function) error {
	if f.ID < 0 || f.ID >= SlotCount {
		return errors.Errorf("function %s: slot %d out of range [0, %d)", f.Name, f.ID, SlotCount)
	}
	if g, ok := r.ByName(f.Name); ok && f.Name != "" && g.ID != f.ID {
		return errors.Errorf("function %s already loaded in slot %d", f.Name, g.ID)
	}
	r.slots[f.ID] = f
	return nil
}

// Get returns the function in slot id, or nil.
func (r *Registry) Get(id int) *Function {
	if id < 0 || id >= SlotCount {
		return nil
	}
	return r.slots[id]
}

// ByName returns the function with the given name.
func (r *Registry) ByName(name string) (*Function, bool) {
	for _, f := range r.slots {
		if f != nil && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Functions returns the loaded functions in slot order.
func (r *Registry) Functions() []*Function {
	var l []*Function
	for _, f := range r.slots {
		if f != nil {
			l = append(l, f)
		}
	}
	return l
}
