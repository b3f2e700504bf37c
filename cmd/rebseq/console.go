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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/db47h/rebseq/reb"
	"github.com/mattn/go-isatty"
)

const consoleHelp = "g: start  s: step  x: stop  w: wait  t: time  ?: state  q: quit"

// setupIO switches stdin to raw mode when it is a terminal, so that commands
// are read one key at a time.
func setupIO() (raw bool, tearDown func()) {
	if noRawIO || !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, nil
	}
	tearDown, err := setRawIO()
	if err != nil {
		return false, nil
	}
	return true, tearDown
}

func consoleKey(ctx context.Context, s *session, b *reb.Board, k byte) error {
	var err error
	switch k {
	case 'g':
		err = b.Start(ctx)
	case 's':
		err = b.Step(ctx)
	case 'x':
		err = b.Stop(ctx)
	case 'w':
		err = b.WaitEnd(ctx)
	case 't':
		var t uint64
		if t, err = b.Time(ctx); err == nil {
			fmt.Fprintf(s.out, "clock %d\n", t)
		}
		return err
	case '?', '\n', '\r':
	default:
		fmt.Fprintln(s.out, consoleHelp)
		return nil
	}
	if err != nil {
		return err
	}
	st, err := b.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "state 0x%x (%s)\n", st, okColor.Sprint(stateString(st)))
	return nil
}

func cmdConsole(ctx context.Context, s *session, args []string) error {
	b, err := s.open(false)
	if err != nil {
		return err
	}
	raw, tearDown := setupIO()
	if tearDown != nil {
		defer tearDown()
	}
	fmt.Fprintln(s.out, consoleHelp)

	in := bufio.NewReader(os.Stdin)
	for {
		k, err := in.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if k == 'q' || k == 3 || k == 4 { // CTRL-C, CTRL-D
			return nil
		}
		if !raw && (k == '\n' || k == '\r') {
			continue
		}
		if err = consoleKey(ctx, s, b, k); err != nil {
			errColor.Fprintln(s.out, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
