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

// Package isa describes the REB clock sequencer instruction set and its
// bytecode.
//
// The sequencer has four instructions:
//
//	CALL	func(N) repeat(R)	run waveform function N, R times
//	CALL	func(N) repeat(infinity)	run function N until stopped
//	JSR	addr repeat(R)		call the subroutine at addr, R times
//	RTS				return from subroutine
//	END				end of program
//
// Each instruction is encoded in a 32 bits word with the opcode in the top
// 4 bits. Opcode values and operand fields differ from one board revision to
// the next; they are described by InstructionSet values:
//
//	rev	CALL	JSR	RTS	END	CALL repeat	JSR address	JSR repeat
//	reb1	1	2	3	4	bits 0-21	bits 18-27	bits 0-17
//	reb2	1	2	3	4	bits 0-22	bits 18-27	bits 0-16
//	reb3	1	5	0xE	0xF	bits 0-21	bits 16-25	bits 0-15
//
// In all revisions, the CALL function index is in bits 24-27 and the infinite
// loop flag in bit 23.
package isa
