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
	"sync"
)

// ReadHandler is the function prototype for custom register read handlers.
type ReadHandler func(m *Memory, addr uint32) (uint32, error)

// WriteHandler is the function prototype for custom register write handlers.
type WriteHandler func(m *Memory, addr, value uint32) error

// Access is a logged register write.
type Access struct {
	Addr  uint32
	Value uint32
}

// Memory is an in-memory register file implementing Transport. Its responses
// use the same text format as the board client, so that a Client on top of a
// Memory goes through the complete protocol path.
//
// Unless overridden by a handler, reading a register returns its last written
// value (0 if never written), and writing the trigger register latches the
// clock and sequencer bits in the state register; measurement triggers complete
// immediately.
type Memory struct {
	mu     sync.Mutex
	regs   map[uint32]uint32
	readH  map[uint32]ReadHandler
	writeH map[uint32]WriteHandler
	writes []Access
	reads  int
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory) error

// BindReadHandler binds the provided read handler to the given register.
func BindReadHandler(addr uint32, h ReadHandler) MemoryOption {
	return func(m *Memory) error { m.readH[addr] = h; return nil }
}

// BindWriteHandler binds the provided write handler to the given register.
// Writes are logged whether the handler succeeds or not.
func BindWriteHandler(addr uint32, h WriteHandler) MemoryOption {
	return func(m *Memory) error { m.writeH[addr] = h; return nil }
}

// Preset sets the initial value of a register.
func Preset(addr, value uint32) MemoryOption {
	return func(m *Memory) error { m.regs[addr] = value; return nil }
}

// NewMemory returns a new register file.
func NewMemory(opts ...MemoryOption) (*Memory, error) {
	m := &Memory{
		regs:   make(map[uint32]uint32),
		readH:  make(map[uint32]ReadHandler),
		writeH: make(map[uint32]WriteHandler),
	}
	m.writeH[RegTrigger] = triggerHandler
	if err := m.SetOptions(opts...); err != nil {
		return nil, err
	}
	return m, nil
}

func triggerHandler(m *Memory, addr, value uint32) error {
	m.regs[addr] = value
	m.regs[RegState] = value & (StateClock | StateSequencer)
	return nil
}

// SetOptions sets the provided options.
func (m *Memory) SetOptions(opts ...MemoryOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns the current value of a register without going through read
// handlers. It must not be called from a handler.
func (m *Memory) Peek(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// Value returns the stored value of a register. Unlike Peek, it is meant to be
// called from within handlers.
func (m *Memory) Value(addr uint32) uint32 { return m.regs[addr] }

// Store sets the stored value of a register, for use within handlers.
func (m *Memory) Store(addr, value uint32) { m.regs[addr] = value }

// Writes returns the log of register writes since the last call to ResetLog.
func (m *Memory) Writes() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Access(nil), m.writes...)
}

// Reads returns the number of read requests since the last call to ResetLog.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// ResetLog clears the access log.
func (m *Memory) ResetLog() {
	m.mu.Lock()
	m.writes = m.writes[:0]
	m.reads = 0
	m.mu.Unlock()
}

// ReadRegisters implements Transport.
func (m *Memory) ReadRegisters(ctx context.Context, addr uint32, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var b bytes.Buffer
	for i := 0; i < count; i++ {
		a := addr + uint32(i)
		v := m.regs[a]
		if h := m.readH[a]; h != nil {
			var err error
			if v, err = h(m, a); err != nil {
				return nil, err
			}
		}
		b.WriteString(FormatRegister(a, v))
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// WriteRegister implements Transport.
func (m *Memory) WriteRegister(ctx context.Context, addr, value uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, Access{addr, value})
	if h := m.writeH[addr]; h != nil {
		return h(m, addr, value)
	}
	m.regs[addr] = value
	return nil
}
