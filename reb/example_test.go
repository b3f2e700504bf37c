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

package reb_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/reb"
)

// Patch the repeat count of a loaded program through a pointer.
func ExampleBoard_SetPointer() {
	src := `
main:
	REP_SUBR Lines
	JSR ReadLine repeat(2002)
	END
ReadLine:
	CALL func(1) repeat(576)
	RTS
`
	ctx := context.Background()
	p, err := asm.Assemble("example", strings.NewReader(src), nil)
	if err != nil {
		panic(err)
	}
	mem, _ := bus.NewMemory()
	b, _ := reb.New(bus.NewClient(mem))
	if err = b.Load(ctx, p, nil); err != nil {
		panic(err)
	}

	mem.ResetLog()
	if err = b.SetPointer(ctx, "Lines", "100"); err != nil {
		panic(err)
	}
	for _, w := range mem.Writes() {
		fmt.Printf("write 0x%x = 0x%08x\n", w.Addr, w.Value)
	}
	v, _ := b.GetPointer(ctx, "Lines", true)
	fmt.Println("Lines:", v)
	fmt.Println(b.Program().Instructions[0])

	// Output:
	// write 0x300000 = 0x50100064
	// Lines: 100
	// JSR     ReadLine    repeat(100)
}
