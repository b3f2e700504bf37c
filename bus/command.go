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

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CommandTransport talks to the board through the rriClient command line
// tool, optionally run on a remote host over ssh.
type CommandTransport struct {
	id   int
	host string
	cmd  string
}

// CommandOption configures a CommandTransport.
type CommandOption func(*CommandTransport) error

// Host runs the client on the given host through ssh. An empty host runs it
// locally.
func Host(host string) CommandOption {
	return func(t *CommandTransport) error { t.host = host; return nil }
}

// Command sets the name or path of the register client executable. The default
// is "rriClient".
func Command(name string) CommandOption {
	return func(t *CommandTransport) error {
		if name == "" {
			return errors.New("empty client command")
		}
		t.cmd = name
		return nil
	}
}

// NewCommandTransport returns a transport for board rebID.
func NewCommandTransport(rebID int, opts ...CommandOption) (*CommandTransport, error) {
	t := &CommandTransport{id: rebID, cmd: "rriClient"}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Args returns the command line used for a request.
func (t *CommandTransport) Args(args ...string) []string {
	cmd := append([]string{t.cmd, strconv.Itoa(t.id)}, args...)
	if t.host != "" {
		cmd = append([]string{"ssh", t.host}, cmd...)
	}
	return cmd
}

func (t *CommandTransport) run(ctx context.Context, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", strings.Join(args, " "), msg)
		}
		return nil, errors.Wrap(err, strings.Join(args, " "))
	}
	return stdout.Bytes(), nil
}

// ReadRegisters implements Transport.
func (t *CommandTransport) ReadRegisters(ctx context.Context, addr uint32, count int) ([]byte, error) {
	return t.run(ctx, t.Args("read", "0x"+strconv.FormatUint(uint64(addr), 16), strconv.Itoa(count)))
}

// WriteRegister implements Transport.
func (t *CommandTransport) WriteRegister(ctx context.Context, addr, value uint32) error {
	_, err := t.run(ctx, t.Args("write",
		"0x"+strconv.FormatUint(uint64(addr), 16),
		"0x"+strconv.FormatUint(uint64(value), 16)))
	return err
}
