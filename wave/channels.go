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
	"sort"

	"github.com/pkg/errors"
)

// OutputBits is the number of sequencer output lines.
const OutputBits = 32

// Channel names one output line.
type Channel struct {
	Name string
	Bit  int
	Desc string
}

// Channels maps channel names to output bits.
type Channels struct {
	byName map[string]int
	list   []Channel
}

// NewChannels returns an empty channel table.
func NewChannels() *Channels {
	return &Channels{byName: make(map[string]int)}
}

// Define adds a channel to the table.
func (c *Channels) Define(name string, bit int, desc string) error {
	if bit < 0 || bit >= OutputBits {
		return errors.Errorf("channel %s: bit %d out of range [0, %d)", name, bit, OutputBits)
	}
	if _, ok := c.byName[name]; ok {
		return errors.Errorf("channel %s redefined", name)
	}
	if prev, ok := c.Name(bit); ok {
		return errors.Errorf("channel %s: bit %d already assigned to %s", name, bit, prev)
	}
	c.byName[name] = len(c.list)
	c.list = append(c.list, Channel{name, bit, desc})
	return nil
}

// Bit returns the output bit of the named channel.
func (c *Channels) Bit(name string) (int, error) {
	if i, ok := c.byName[name]; ok {
		return c.list[i].Bit, nil
	}
	return 0, &UnknownChannelError{name}
}

// Name returns the name of the channel on the given bit.
func (c *Channels) Name(bit int) (string, bool) {
	for _, ch := range c.list {
		if ch.Bit == bit {
			return ch.Name, true
		}
	}
	return "", false
}

// List returns the channels sorted by bit.
func (c *Channels) List() []Channel {
	l := append([]Channel(nil), c.list...)
	sort.Slice(l, func(i, j int) bool { return l[i].Bit < l[j].Bit })
	return l
}

// Len returns the number of channels in the table.
func (c *Channels) Len() int { return len(c.list) }

// DefaultChannels returns the channel assignments of the REB3 board.
func DefaultChannels() *Channels {
	c := NewChannels()
	for _, ch := range []Channel{
		{"RU", 0, "ASPIC ramp-up integration"},
		{"RD", 1, "ASPIC ramp-down integration"},
		{"RST", 2, "ASPIC integrator reset"},
		{"CL", 3, "ASPIC clamp"},
		{"R1", 4, "Serial clock 1"},
		{"R2", 5, "Serial clock 2"},
		{"R3", 6, "Serial clock 3"},
		{"RG", 7, "Serial reset clock"},
		{"P1", 8, "Parallel clock 1"},
		{"P2", 9, "Parallel clock 2"},
		{"P3", 10, "Parallel clock 3"},
		{"P4", 11, "Parallel clock 4"},
		{"SPL", 12, "ADC sampling signal"},
		{"SOI", 13, "Start of image"},
		{"EOI", 14, "End of image"},
		{"SHU", 16, "Shutter TTL"},
	} {
		c.Define(ch.Name, ch.Bit, ch.Desc)
	}
	return c
}

// UnknownChannelError is returned when a channel name is not in the channel
// table.
type UnknownChannelError struct {
	Name string
}

func (e *UnknownChannelError) Error() string {
	return "unknown channel " + e.Name
}
