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
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/db47h/rebseq/asm"
	"github.com/db47h/rebseq/bus"
	"github.com/db47h/rebseq/reb"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	labelColor = color.New(color.FgYellow, color.Bold)
	ptrColor   = color.New(color.FgCyan)
	addrColor  = color.New(color.Faint)
	errColor   = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
)

// session holds what a command works on. The sequencer file and the board are
// opened on first use.
type session struct {
	log   *slog.Logger
	out   io.Writer
	file  *asm.File
	prog  *asm.Program
	board *reb.Board
}

func (s *session) sequencer() (*asm.File, *asm.Program, error) {
	if s.file != nil {
		return s.file, s.prog, nil
	}
	if seqFile == "" {
		return nil, nil, errors.New("no sequencer file, use -f")
	}
	f, err := os.Open(seqFile)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open sequencer file")
	}
	defer f.Close()
	file, err := asm.ParseFile(seqFile, bufio.NewReader(f))
	if err != nil {
		return nil, nil, err
	}
	p, err := asm.Link(file.Source, rev.set)
	if err != nil {
		return nil, nil, err
	}
	s.file, s.prog = file, p
	return file, p, nil
}

func (s *session) bus() (bus.Bus, error) {
	if dryRun {
		m, err := bus.NewMemory()
		if err != nil {
			return nil, err
		}
		return bus.NewClient(m), nil
	}
	t, err := bus.NewCommandTransport(rebID, bus.Host(host))
	if err != nil {
		return nil, err
	}
	s.log.Debug("register client", "command", strings.Join(t.Args(), " "))
	return bus.NewClient(t), nil
}

// open returns the board. If withProgram is true, the sequencer file is
// assembled and attached to it, as if it had been loaded earlier.
func (s *session) open(withProgram bool) (*reb.Board, error) {
	if s.board == nil {
		rb, err := s.bus()
		if err != nil {
			return nil, err
		}
		b, err := reb.New(rb,
			reb.Revision(rev.set),
			reb.Logger(s.log),
			reb.PollInterval(poll),
			reb.WaitTimeout(timeout))
		if err != nil {
			return nil, err
		}
		s.board = b
	}
	if withProgram && s.board.Program() == nil {
		f, p, err := s.sequencer()
		if err != nil {
			return nil, err
		}
		if err = s.board.Attach(p, f.Functions); err != nil {
			return nil, err
		}
	}
	return s.board, nil
}

// printListing writes the listing of p with labels and pointer directives
// highlighted.
func printListing(w io.Writer, p *asm.Program) error {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return err
	}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		l := sc.Text()
		switch {
		case strings.HasSuffix(l, ":") && !strings.HasPrefix(l, " "):
			l = labelColor.Sprint(l)
		case strings.HasPrefix(l, "0x") && len(l) > 6:
			l = addrColor.Sprint(l[:6]) + l[6:]
		case strings.TrimSpace(l) != "":
			l = ptrColor.Sprint(l)
		}
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return sc.Err()
}
