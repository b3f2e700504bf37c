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

package bus

// Register map of the REB FPGA.
const (
	RegSchema  = 0x0 // address map version
	RegVersion = 0x1 // firmware version
	RegSciID   = 0x2 // board address
	RegClockLo = 0x4 // clock counter, low word
	RegClockHi = 0x5 // clock counter, high word
	RegState   = 0x8
	RegTrigger = 0x9

	OutputsBase   = 0x100000
	DurationsBase = 0x200000
	ProgramBase   = 0x300000

	RegStripes = 0x400007

	SuppliesBase = 0x600000 // voltage/current pairs
	TempBase     = 0x600010
)

// State and trigger register bits.
const (
	StateClock     = 0x02 // clock counter running
	StateSequencer = 0x04 // sequencer running
	StateSupplies  = 0x08 // supply measurement in progress
	StateTemp      = 0x10 // temperature measurement in progress
)

// OutputAddr returns the address of the output mask register of slice s of
// function fn.
func OutputAddr(fn, s int) uint32 { return OutputsBase | uint32(fn)<<4 | uint32(s) }

// DurationAddr returns the address of the duration register of slice s of
// function fn.
func DurationAddr(fn, s int) uint32 { return DurationsBase | uint32(fn)<<4 | uint32(s) }

// ProgramAddr returns the register address of program word a.
func ProgramAddr(a int) uint32 { return ProgramBase | uint32(a) }
