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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bus gives access to the board registers.
//
// Read returns the values of count consecutive registers starting at addr,
// keyed by address. Write sets a single register; it is not verified.
type Bus interface {
	Read(ctx context.Context, addr uint32, count int) (map[uint32]uint32, error)
	Write(ctx context.Context, addr, value uint32) error
}

// Transport moves register requests to the board. ReadRegisters returns the
// raw text response: one line per register in the form
//
//	Register <addr> (<dec>): <value> (<dec>)
type Transport interface {
	ReadRegisters(ctx context.Context, addr uint32, count int) ([]byte, error)
	WriteRegister(ctx context.Context, addr, value uint32) error
}

// Client implements Bus on top of a Transport, checking that read responses
// are well formed and complete.
type Client struct {
	t Transport
}

// NewClient returns a new Client using the given transport.
func NewClient(t Transport) *Client {
	return &Client{t}
}

var reRegister = regexp.MustCompile(`^Register ([-+]?(0[xX])?[\dA-Fa-f]+) \(([-+]?\d+)\): ([-+]?(0[xX])?[\dA-Fa-f]+) \(([-+]?\d+)\)`)

func (c *Client) Read(ctx context.Context, addr uint32, count int) (map[uint32]uint32, error) {
	if count <= 0 {
		return nil, &ProtocolError{Op: "read", Addr: addr, Count: count, Msg: "invalid register count"}
	}
	out, err := c.t.ReadRegisters(ctx, addr, count)
	if err != nil {
		return nil, &ProtocolError{Op: "read", Addr: addr, Count: count, Err: err}
	}
	m, err := ParseResponse(out)
	if err != nil {
		perr := err.(*ProtocolError)
		perr.Addr, perr.Count = addr, count
		return nil, perr
	}
	if len(m) != count {
		return nil, &ProtocolError{Op: "read", Addr: addr, Count: count,
			Msg: fmt.Sprintf("got %d registers", len(m))}
	}
	for a := range m {
		if a < addr || a-addr >= uint32(count) {
			return nil, &ProtocolError{Op: "read", Addr: addr, Count: count,
				Msg: fmt.Sprintf("unexpected register 0x%x in response", a)}
		}
	}
	return m, nil
}

func (c *Client) Write(ctx context.Context, addr, value uint32) error {
	if err := c.t.WriteRegister(ctx, addr, value); err != nil {
		return &ProtocolError{Op: "write", Addr: addr, Count: 1, Err: err}
	}
	return nil
}

// ParseResponse parses the text response of a register read. Blank lines are
// ignored. Any other line must match the register line format.
func ParseResponse(out []byte) (map[uint32]uint32, error) {
	m := make(map[uint32]uint32)
	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		sm := reRegister.FindStringSubmatch(line)
		if sm == nil {
			return nil, &ProtocolError{Op: "read", Line: line, Msg: "malformed response"}
		}
		a, err := parseHex(sm[1])
		if err != nil {
			return nil, &ProtocolError{Op: "read", Line: line, Err: err}
		}
		v, err := parseHex(sm[4])
		if err != nil {
			return nil, &ProtocolError{Op: "read", Line: line, Err: err}
		}
		m[a] = v
	}
	if err := s.Err(); err != nil {
		return nil, &ProtocolError{Op: "read", Err: err}
	}
	return m, nil
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "+")
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}

// FormatRegister returns a response line for a register, in the format
// expected by ParseResponse.
func FormatRegister(addr, value uint32) string {
	return fmt.Sprintf("Register 0x%x (%d): 0x%08x (%d)", addr, addr, value, int32(value))
}

// ProtocolError reports a failed or inconsistent register access.
type ProtocolError struct {
	Op    string
	Addr  uint32
	Count int
	Line  string
	Msg   string
	Err   error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bus: %s 0x%x", e.Op, e.Addr)
	if e.Op == "read" {
		fmt.Fprintf(&b, " (%d)", e.Count)
	}
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if e.Line != "" {
		fmt.Fprintf(&b, " %q", e.Line)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying transport or parse error, if any.
func (e *ProtocolError) Unwrap() error { return e.Err }
