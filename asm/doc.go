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

// Package asm provides the sequencer assembler, linker and disassembler.
//
// Label style assembly:
//
// One instruction per line. Keywords are case sensitive.
//
//	instruction	description
//	-----------	------------------------------------------------------------
//	CALL func(F) repeat(N)	run function F, N times
//	CALL func(F) repeat(infinity)	run function F until the sequencer is stopped
//	JSR name repeat(N)	run subroutine name, N times
//	JSR 0x010 repeat(N)	run the subroutine at the given address
//	RTS	return from subroutine
//	END	end of program
//
// Integers are decimal, or hexadecimal with a 0x prefix: 010 is ten. Function
// indices and repeat counts may also be names supplied with the Functions and
// Constants options.
//
// A line of the form "name:" opens a subroutine. The subroutine ends at the
// next label, at the first RTS, or at the end of input; an RTS is appended if
// it ends with neither RTS nor END. Instructions outside of any subroutine
// make up the main sequence, placed at address 0.
//
// A '#' starts a comment that runs up to the end of the line. Lines of a
// listing may start with an address prefix such as "0x010:", which is ignored.
//
// Pointers:
//
// A pointer directive names one field of the instruction that follows it, so
// that it can be patched once the program has been loaded:
//
//	REP_FUNC name	repeat count of a CALL
//	PTR_FUNC name	function index of a CALL
//	REP_SUBR name	repeat count of a JSR
//	PTR_SUBR name	target of a JSR
//
// For example:
//
//	Exposure:
//	    REP_FUNC ExposureTime
//	    CALL func(3) repeat(50)
//	    RTS
//
// Sequencer files:
//
// ParseFile reads a complete sequencer description split in sections:
//
//	[constants]
//	clockperiod: 10 ns	# tick length, 10 ns if omitted
//	TimeP: 1 us
//	Rows: 2002
//
//	[clocks]
//	P1: 8	# parallel clock 1
//	P2: 9
//
//	[functions]
//	ParallelUp:	# parallel transfer
//	  clocks: P1, P2
//	  slices:
//	    TimeP = 1, 0
//	    TimeP = 0, 1
//	  constants: SHU=0
//
//	[program]
//	main:
//	    CALL func(ParallelUp) repeat(Rows)
//	    END
//
// Slice durations are either a duration with a unit (ns, us, ms or s), a
// plain number of clock ticks, or the name of a constant. Functions are
// assigned to slots in declaration order, the first one being the default
// state function in slot 0. Without a [clocks] section, the default REB
// channels are used.
package asm
