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

package vm_test

import (
	"fmt"
	"strings"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/isa"
	"github.com/db47h/rebseq/vm"
)

// Compute the read out time of a sequencer file.
func ExampleInstance_Run() {
	src := `
[functions]
Default:
  clocks: R1
  slices:
    1 us = 0

Pixel:
  clocks: R1, R2
  slices:
    200 ns = 1, 0
    300 ns = 0, 1

[program]
Readout:
    JSR Line repeat(10)
    END
Line:
    CALL func(Pixel) repeat(100)
`
	f, err := asm.ParseFile("example", strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	p, err := asm.Link(f.Source, nil)
	if err != nil {
		panic(err)
	}

	calls := 0
	i, err := vm.New(p, f.Functions, vm.Trace(func(i *vm.Instance, addr int, ins isa.Instruction) error {
		if ins.Op == isa.OpCall {
			calls++
		}
		return nil
	}))
	if err != nil {
		panic(err)
	}
	if err = i.RunSubroutine("Readout"); err != nil {
		panic(err)
	}
	fmt.Println(i.Ticks(), "ticks")
	fmt.Println(i.Duration())
	fmt.Println(calls, "CALLs")

	// Output:
	// 50000 ticks
	// 500µs
	// 10 CALLs
}
