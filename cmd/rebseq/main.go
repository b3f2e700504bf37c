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
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/db47h/rebseq/isa"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

type revision struct {
	set *isa.InstructionSet
}

func (r *revision) String() string {
	if r.set == nil {
		return isa.Default.Revision
	}
	return r.set.Revision
}

func (r *revision) Set(s string) error {
	set, err := isa.Lookup(s)
	if err != nil {
		return err
	}
	r.set = set
	return nil
}

func (r *revision) Get() interface{} { return r.set }

var (
	debug   bool
	noColor bool
	noRawIO bool
	dryRun  bool
	host    string
	rebID   int
	rev     revision
	seqFile string
	timeout time.Duration
	poll    time.Duration
)

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "Usage: %s [flags] command [arguments]\n\nCommands:\n", os.Args[0])
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-28s %s\n", n+" "+commands[n].args, commands[n].help)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	flag.PrintDefaults()
}

func atExit(err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	if err = rev.Set(envString("REBSEQ_REV", isa.Default.Revision)); err != nil {
		return
	}
	flag.StringVar(&host, "host", envString("REBSEQ_HOST", ""), "run the register client on `host` over ssh")
	flag.IntVar(&rebID, "reb", envInt("REBSEQ_REB", 0), "board `id` on the SCI link")
	flag.Var(&rev, "rev", "hardware `revision` (reb1, reb2 or reb3)")
	flag.StringVar(&seqFile, "f", "", "sequencer `file` to assemble")
	flag.BoolVar(&debug, "debug", false, "enable debug diagnostics")
	flag.BoolVar(&noColor, "nocolor", false, "disable colored output")
	flag.BoolVar(&noRawIO, "noraw", false, "disable raw terminal IO in the console")
	flag.BoolVar(&dryRun, "dry", false, "use an in-memory register file instead of the board")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "maximum `duration` of waits, 0 for none")
	flag.DurationVar(&poll, "poll", 80*time.Millisecond, "state register polling `interval`")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	color.NoColor = noColor || os.Getenv("TERM") == "dumb" ||
		!(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		err = errors.Errorf("unknown command %q, see %s -h", flag.Arg(0), os.Args[0])
		return
	}
	args := flag.Args()[1:]
	if len(args) < cmd.min || (cmd.max >= 0 && len(args) > cmd.max) {
		err = errors.Errorf("usage: %s %s", flag.Arg(0), cmd.args)
		return
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	s := &session{
		log: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		out: color.Output,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err = cmd.run(ctx, s, args)
}
