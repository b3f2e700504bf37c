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

// Package vm implements a timing model of the REB sequencer.
//
// An Instance walks a linked program like the sequencer does: CALL runs a
// function Repeat times, JSR pushes a return address and runs a subroutine
// Repeat times, RTS returns and END stops. Instead of driving outputs, it adds
// up the duration of every function called, so that the run time of a
// program or subroutine is known before it is loaded on a board.
//
// A function takes the sum of its slice durations plus 3 ticks, the overhead
// added by the FPGA. Instructions themselves take no time.
package vm
