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

// The rebseq command assembles sequencer files for the Readout Electronics
// Board, loads them on a board and controls the sequencer.
//
// Usage:
//
//	rebseq [flags] command [arguments]
//
// Flags:
//
//	-debug
//		  enable debug diagnostics
//	-dry
//		  use an in-memory register file instead of the board
//	-f file
//		  sequencer file to assemble
//	-host host
//		  run the register client on host over ssh
//	-nocolor
//		  disable colored output
//	-noraw
//		  disable raw terminal IO in the console
//	-poll interval
//		  state register polling interval (default 80ms)
//	-reb id
//		  board id on the SCI link
//	-rev revision
//		  hardware revision (reb1, reb2 or reb3) (default reb3)
//	-timeout duration
//		  maximum duration of waits, 0 for none (default 10m0s)
//
// The -host, -reb and -rev defaults are taken from the REBSEQ_HOST, REBSEQ_REB
// and REBSEQ_REV environment variables when set.
//
// Commands working on a program (asm, funcs, time, load, ptr, get, set,
// select, exposure, dark) need a sequencer file. Each invocation is a separate
// session: commands patching a program assume that the board runs the program
// assembled from -f, as loaded by an earlier "rebseq -f file load".
//
//	asm
//		print the listing of the linked program
//	funcs
//		print the functions as tables of outputs per slice
//	time [subroutine]
//		print the run time of each subroutine, or of one subroutine and of each
//		of its instructions
//	load
//		load the program and functions on the board
//	dump
//		read back and disassemble the program and functions
//	ptr
//		list the pointers declared in the program and their values
//	get name
//		print a pointer value, checking it against the board
//	set name value
//		set a pointer: a repeat count (or "infinity" for REP_FUNC), a function
//		name or slot, or a subroutine name or address
//	select subroutine [repeat]
//		rewrite the first instruction as a jump to subroutine
//	exposure [seconds], dark [seconds]
//		print or set the exposure time with the shutter open or closed
//	start, stop, step
//		control the sequencer
//	wait
//		wait for the sequencer to stop
//	status
//		print board information, state, temperatures and supplies
//	console
//		read single key commands: g start, s step, x stop, w wait, t clock,
//		q quit. Unless -noraw is set or stdin is not a terminal, the terminal is
//		switched to raw mode.
//	monitor [interval]
//		full screen view of the board state and telemetry, refreshed every
//		interval (default 1s)
//
// -debug: log board operations and print a full stacktrace on errors.
package main
