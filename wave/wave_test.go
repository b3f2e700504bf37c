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

package wave_test

import (
	"testing"

	"github.com/db47h/rebseq/wave"
	"github.com/pkg/errors"
)

func TestIsOn(t *testing.T) {
	f, err := wave.New(1, "test", nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	f.SetSlice(0, 2, 0x3)
	f.SetSlice(1, 0, 0)

	data := []struct {
		bit, slice int
		on, ok     bool
	}{
		{0, 0, true, true},
		{1, 0, true, true},
		{2, 0, false, true},
		{0, 1, false, false},
		{0, 2, false, false},
		{0, 16, false, false},
		{32, 0, false, false},
	}
	for _, d := range data {
		on, ok := f.IsOn(d.bit, d.slice)
		if on != d.on || ok != d.ok {
			t.Errorf("IsOn(%d, %d): expected (%v, %v), got (%v, %v)", d.bit, d.slice, d.on, d.ok, on, ok)
		}
	}

	on, ok, err := f.IsOnChannel("RD", 0)
	if err != nil || !on || !ok {
		t.Errorf("IsOnChannel(RD, 0): got (%v, %v, %v)", on, ok, err)
	}
	_, _, err = f.IsOnChannel("XX", 0)
	var ue *wave.UnknownChannelError
	if !errors.As(err, &ue) || ue.Name != "XX" {
		t.Errorf("expected UnknownChannelError, got %v", err)
	}
}

func TestDefaultSlot(t *testing.T) {
	f, _ := wave.New(wave.DefaultSlot, "default", nil)
	for i := 0; i < wave.SliceCount; i++ {
		if err := f.SetSlice(i, 100, 0xff); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if f.Slices[0] != (wave.Slice{Duration: 100, Mask: 0xff}) {
		t.Errorf("slice 0: got %+v", f.Slices[0])
	}
	for i := 1; i < wave.SliceCount; i++ {
		if f.Slices[i] != (wave.Slice{}) {
			t.Errorf("slice %d of default slot: got %+v", i, f.Slices[i])
		}
	}

	g, _ := wave.New(3, "other", nil)
	g.SetSlice(5, 100, 0xff)
	if g.Slices[5].Duration != 100 {
		t.Error("slot 3 slice 5 should not be cleared")
	}
}

func TestSetSlice_clamp(t *testing.T) {
	f, _ := wave.New(2, "clamp", nil)
	f.SetSlice(0, 0x12345, 1)
	f.SetSlice(1, -4, 1)
	if f.Slices[0].Duration != wave.DurationMax {
		t.Errorf("expected duration clamped to 0x%x, got 0x%x", wave.DurationMax, f.Slices[0].Duration)
	}
	if f.Slices[1].Duration != 0 {
		t.Errorf("expected negative duration clamped to 0, got %d", f.Slices[1].Duration)
	}
	if err := f.SetSlice(16, 1, 1); err == nil {
		t.Error("expected error for slice 16")
	}
}

func TestBuild(t *testing.T) {
	def := &wave.Def{
		Name:   "ParallelClear",
		Clocks: []string{"P1", "P2", "RG"},
		Slices: []wave.SliceDef{
			{Ticks: 100, Values: []int{1, 0, 0}},
			{Ticks: 50, Values: []int{1, 1, 1}},
			{Ticks: 100, Values: []int{0, 1, 0}},
		},
		Constants: []wave.Level{{"RG", 1}, {"SPL", 1}, {"RU", 0}},
	}
	f, err := wave.Build(4, def, wave.DefaultChannels())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	const rg, spl, p1, p2 = 1 << 7, 1 << 12, 1 << 8, 1 << 9
	expected := []wave.Slice{
		{99, rg | spl | p1},
		{50, rg | spl | p1 | p2},
		{98, rg | spl | p2},
		{0, 0},
	}
	for i, s := range expected {
		if f.Slices[i] != s {
			t.Errorf("slice %d: expected %+v, got %+v", i, s, f.Slices[i])
		}
	}
	if f.Len() != 3 {
		t.Errorf("Len: expected 3, got %d", f.Len())
	}
	if tt := f.TotalTime(); tt != 99+50+98+3 {
		t.Errorf("TotalTime: got %d", tt)
	}

	// single slice only gets the first slice correction
	f, err = wave.Build(5, &wave.Def{Name: "one", Clocks: []string{"SHU"}, Slices: []wave.SliceDef{{10, []int{1}}}}, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if f.Slices[0] != (wave.Slice{9, 1 << 16}) {
		t.Errorf("single slice: got %+v", f.Slices[0])
	}
}

func TestBuild_errors(t *testing.T) {
	data := []struct {
		name string
		def  wave.Def
	}{
		{"unknown clock", wave.Def{Name: "f", Clocks: []string{"ZZ"}, Slices: []wave.SliceDef{{10, []int{1}}}}},
		{"unknown constant", wave.Def{Name: "f", Constants: []wave.Level{{"ZZ", 1}}}},
		{"value count", wave.Def{Name: "f", Clocks: []string{"P1", "P2"}, Slices: []wave.SliceDef{{10, []int{1}}}}},
		{"bad value", wave.Def{Name: "f", Clocks: []string{"P1"}, Slices: []wave.SliceDef{{10, []int{2}}}}},
		{"too many slices", wave.Def{Name: "f", Slices: make([]wave.SliceDef, 16)}},
		{"one tick", wave.Def{Name: "f", Clocks: []string{"P1"}, Slices: []wave.SliceDef{{1, []int{1}}}}},
		{"short first slice", wave.Def{Name: "f", Clocks: []string{"P1"}, Slices: []wave.SliceDef{{1, []int{1}}, {5, []int{0}}, {3, []int{1}}}}},
		{"short last slice", wave.Def{Name: "f", Clocks: []string{"P1"}, Slices: []wave.SliceDef{{4, []int{1}}, {5, []int{0}}, {2, []int{1}}}}},
	}
	for _, d := range data {
		if _, err := wave.Build(1, &d.def, nil); err == nil {
			t.Errorf("%s: expected error", d.name)
		}
	}
	_, err := wave.Build(1, &data[0].def, nil)
	var ue *wave.UnknownChannelError
	if !errors.As(err, &ue) {
		t.Errorf("expected UnknownChannelError, got %v", err)
	}

	// only the first slice of the default function is kept
	f, err := wave.Build(wave.DefaultSlot, &wave.Def{Name: "Default", Clocks: []string{"P1"}, Slices: []wave.SliceDef{{4, []int{1}}, {2, []int{0}}}}, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if f.Len() != 1 || f.Slices[0].Duration != 3 {
		t.Errorf("default function: got %+v", f.Slices[:2])
	}
}

func TestRegistry(t *testing.T) {
	var r wave.Registry
	a, _ := wave.New(2, "a", nil)
	b, _ := wave.New(0, "b", nil)
	for _, f := range []*wave.Function{a, b} {
		if err := r.Set(f); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if f, ok := r.ByName("a"); !ok || f != a {
		t.Error("ByName(a) failed")
	}
	if r.Get(0) != b || r.Get(1) != nil || r.Get(42) != nil {
		t.Error("Get returned unexpected functions")
	}
	l := r.Functions()
	if len(l) != 2 || l[0] != b || l[1] != a {
		t.Errorf("Functions: unexpected order %v", l)
	}
	dup, _ := wave.New(3, "a", nil)
	if err := r.Set(dup); err == nil {
		t.Error("expected error for duplicate function name")
	}
}

func TestChannels(t *testing.T) {
	c := wave.NewChannels()
	if err := c.Define("A", 3, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.Define("A", 4, ""); err == nil {
		t.Error("expected redefinition error")
	}
	if err := c.Define("B", 3, ""); err == nil {
		t.Error("expected bit collision error")
	}
	if err := c.Define("C", 32, ""); err == nil {
		t.Error("expected range error")
	}
	if n, ok := c.Name(3); !ok || n != "A" {
		t.Errorf("Name(3): got %q, %v", n, ok)
	}
}
