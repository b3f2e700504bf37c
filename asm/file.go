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
	"io"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

// DefaultClockPeriod is the sequencer tick in nanoseconds.
const DefaultClockPeriod = 10

// Constant is a named value from the [constants] section of a sequencer file.
type Constant struct {
	Name  string
	Value int
	Unit  string // ns, us, ms, s or empty
	Desc  string
	Pos   scanner.Position
}

// Ticks converts c to a number of clock ticks of period nanoseconds. Constants
// without a unit are tick counts.
func (c Constant) Ticks(period int) (int, error) {
	return ticks(duration{c.Value, c.Unit}, period)
}

func (c Constant) String() string {
	if c.Unit == "" {
		return strconv.Itoa(c.Value)
	}
	return strconv.Itoa(c.Value) + " " + c.Unit
}

func ticks(d duration, period int) (int, error) {
	if d.unit == "" {
		return d.value, nil
	}
	if period <= 0 {
		return 0, errors.Errorf("invalid clock period %d", period)
	}
	ns := int64(d.value) * unitNanoseconds[d.unit]
	if ns%int64(period) != 0 {
		return 0, errors.Errorf("%d %s is not a multiple of the %d ns clock period", d.value, d.unit, period)
	}
	return int(ns / int64(period)), nil
}

// File is a parsed sequencer file.
type File struct {
	Constants   []Constant
	ClockPeriod int // tick length in nanoseconds
	Channels    *wave.Channels
	Defs        []*wave.Def
	Functions   *wave.Registry
	Source      *Source
}

// Constant returns the named constant.
func (f *File) Constant(name string) (Constant, bool) {
	for _, c := range f.Constants {
		if c.Name == name {
			return c, true
		}
	}
	return Constant{}, false
}

// FunctionSlots maps function names to their slot.
func (f *File) FunctionSlots() map[string]int {
	m := make(map[string]int)
	for _, fn := range f.Functions.Functions() {
		m[fn.Name] = fn.ID
	}
	return m
}

type fileParser struct {
	c        cursor
	f        *File
	opts     []Option
	sections map[string]bool
}

// ParseFile reads a sequencer file: a [constants] section of named integers
// and durations, a [clocks] section naming the output channels, a [functions]
// section of waveform definitions and a [program] section holding label style
// assembly. All sections are optional; functions are assigned to slots in
// declaration order.
//
// Options are passed on to the parser of the [program] section. Constants
// without a unit and function names are made available to the program.
//
// The returned error, if not nil, is a *ParseError.
func ParseFile(name string, r io.Reader, opts ...Option) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	p := &fileParser{
		c: cursor{name: name, src: string(b)},
		f: &File{
			ClockPeriod: DefaultClockPeriod,
			Channels:    wave.DefaultChannels(),
			Functions:   new(wave.Registry),
			Source:      new(Source),
		},
		opts:     opts,
		sections: make(map[string]bool),
	}
	if err = p.parse(); err != nil {
		return nil, err
	}
	return p.f, nil
}

func (p *fileParser) parse() error {
	c := &p.c
	off := 0
	for !c.eof(off) {
		if r := lineEnd(c, off); r.ok() {
			off = r.next
			c.commit()
			continue
		}
		m := sectionMarker(c, off)
		if !m.ok() {
			return c.failed(off)
		}
		at := zmsp(c, off).next
		if p.sections[m.val] {
			return c.errorAt(at, "duplicate section ["+m.val+"]", nil)
		}
		p.sections[m.val] = true
		c.commit()
		var err error
		switch m.val {
		case "constants":
			off, err = p.constants(m.next)
		case "clocks":
			if p.sections["functions"] {
				return c.errorAt(at, "[clocks] must precede [functions]", nil)
			}
			off, err = p.clocks(m.next)
		case "functions":
			off, err = p.functions(m.next)
		case "program":
			off, err = p.program(m.next)
		default:
			return c.errorAt(at, "unknown section ["+m.val+"]", nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *fileParser) constants(off int) (int, error) {
	c := &p.c
	for !c.eof(off) {
		if r := emptyLine(c, off); r.ok() {
			off = r.next
			c.commit()
			continue
		}
		d := definition(c, off)
		if !d.ok() {
			return off, nil
		}
		at := zmsp(c, off).next
		if _, ok := p.f.Constant(d.val.name); ok {
			return off, c.errorAt(at, "constant "+d.val.name+" redefined", nil)
		}
		if d.val.name == "clockperiod" {
			if (d.val.val.unit != "" && d.val.val.unit != "ns") || d.val.val.value <= 0 {
				return off, c.errorAt(at, "clockperiod must be a positive number of nanoseconds", nil)
			}
			p.f.ClockPeriod = d.val.val.value
		}
		p.f.Constants = append(p.f.Constants, Constant{
			Name:  d.val.name,
			Value: d.val.val.value,
			Unit:  d.val.val.unit,
			Desc:  d.val.desc,
			Pos:   c.position(at),
		})
		off = d.next
		c.commit()
	}
	return off, nil
}

func (p *fileParser) clocks(off int) (int, error) {
	c := &p.c
	p.f.Channels = wave.NewChannels()
	for !c.eof(off) {
		if r := emptyLine(c, off); r.ok() {
			off = r.next
			c.commit()
			continue
		}
		d := definition(c, off)
		if !d.ok() {
			return off, nil
		}
		at := zmsp(c, off).next
		if d.val.val.unit != "" {
			return off, c.errorAt(at, "channel "+d.val.name+": unexpected unit "+d.val.val.unit, nil)
		}
		if err := p.f.Channels.Define(d.val.name, d.val.val.value, d.val.desc); err != nil {
			return off, c.errorAt(at, "invalid channel", err)
		}
		off = d.next
		c.commit()
	}
	return off, nil
}

func (p *fileParser) functions(off int) (int, error) {
	c := &p.c
	for !c.eof(off) {
		if r := emptyLine(c, off); r.ok() {
			off = r.next
			c.commit()
			continue
		}
		h := funcHeader(c, off)
		if !h.ok() {
			return off, nil
		}
		at := zmsp(c, off).next
		switch h.val.name {
		case "clocks", "slices", "constants":
			return off, c.errorAt(at, h.val.name+" outside of a function definition", nil)
		}
		id := len(p.f.Defs)
		if id >= wave.SlotCount {
			return off, c.errorAt(at, "too many functions", nil)
		}
		if _, ok := p.f.Functions.ByName(h.val.name); ok {
			return off, c.errorAt(at, "function "+h.val.name+" redefined", nil)
		}
		def := &wave.Def{Name: h.val.name, Desc: h.val.desc}
		c.commit()
		var err error
		if off, err = p.functionBody(h.next, def); err != nil {
			return off, err
		}
		fn, err := wave.Build(id, def, p.f.Channels)
		if err != nil {
			return off, c.errorAt(at, "", err)
		}
		if err = p.f.Functions.Set(fn); err != nil {
			return off, c.errorAt(at, "", err)
		}
		p.f.Defs = append(p.f.Defs, def)
	}
	return off, nil
}

func (p *fileParser) functionBody(off int, def *wave.Def) (int, error) {
	c := &p.c
	slices := false
	for !c.eof(off) {
		next := -1
		if r := emptyLine(c, off); r.ok() {
			next = r.next
		} else if r := clocksLine(c, off); r.ok() {
			def.Clocks = append(def.Clocks, r.val...)
			next = r.next
		} else if r := constantsLine(c, off); r.ok() {
			def.Constants = append(def.Constants, r.val...)
			next = r.next
		} else if r := slicesMarker(c, off); r.ok() {
			slices = true
			next = r.next
		} else if slices {
			if r := sliceLine(c, off); r.ok() {
				t, err := p.sliceTicks(r.val)
				if err != nil {
					return off, c.errorAt(zmsp(c, off).next, "function "+def.Name, err)
				}
				def.Slices = append(def.Slices, wave.SliceDef{Ticks: t, Values: r.val.values})
				next = r.next
			}
		}
		if next < 0 {
			break
		}
		off = next
		c.commit()
	}
	return off, nil
}

func (p *fileParser) sliceTicks(s sliceSpec) (int, error) {
	d := s.dur
	if s.ref != "" {
		k, ok := p.f.Constant(s.ref)
		if !ok {
			return 0, errors.Errorf("undefined constant %s", s.ref)
		}
		d = duration{k.Value, k.Unit}
	}
	return ticks(d, p.f.ClockPeriod)
}

// program hands the section body, up to the next section marker, to the label
// style parser.
func (p *fileParser) program(off int) (int, error) {
	c := &p.c
	end := off
	for !c.eof(end) {
		if sectionMarker(c, end).ok() {
			break
		}
		if i := strings.IndexByte(c.src[end:], '\n'); i >= 0 {
			end += i + 1
		} else {
			end = len(c.src)
		}
	}
	c.commit()

	consts := make(map[string]int)
	for _, k := range p.f.Constants {
		if k.Unit == "" {
			consts[k.Name] = k.Value
		}
	}
	opts := append([]Option{
		Constants(consts),
		Functions(p.f.FunctionSlots()),
		lineOffset(c.position(off).Line - 1),
	}, p.opts...)
	src, err := Parse(c.name, strings.NewReader(c.src[off:end]), opts...)
	if err != nil {
		return off, err
	}
	p.f.Source = src
	return end, nil
}
