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

package asm

import (
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/db47h/rebseq/isa"
)

type token struct {
	tok rune
	lit string
	pos scanner.Position
}

type pendingPointer struct {
	name string
	kind PointerKind
	pos  scanner.Position
}

type parser struct {
	s       scanner.Scanner
	src     *Source
	consts  map[string]int
	funcs   map[string]int
	cur     *Subroutine
	labels  map[string]scanner.Position
	ptrs    map[string]scanner.Position
	pending *pendingPointer
	peeked  *token
	line    int // line offset for embedded sources
	err     error
}

func newParser() *parser {
	return &parser{
		src:    new(Source),
		consts: make(map[string]int),
		funcs:  make(map[string]int),
		labels: make(map[string]scanner.Position),
		ptrs:   make(map[string]scanner.Position),
	}
}

func (p *parser) errorf(pos scanner.Position, err error, msg string) {
	if p.err != nil {
		return
	}
	pos.Line += p.line
	p.err = &ParseError{Pos: pos, Msg: msg, Err: err}
}

// scan returns the next token. Comments are skipped up to the end of the line.
func (p *parser) scan() token {
	if t := p.peeked; t != nil {
		p.peeked = nil
		return *t
	}
	tok := p.s.Scan()
	if tok == '#' {
		for ch := p.s.Peek(); ch != '\n' && ch != scanner.EOF; ch = p.s.Peek() {
			p.s.Next()
		}
		tok = p.s.Scan()
	}
	lit := p.s.TokenText()
	// numbers are scanned as words and checked by integer
	if tok == scanner.Ident && isDigit(lit[0]) {
		tok = scanner.Int
	}
	return token{tok, lit, p.s.Position}
}

func isWordRune(ch rune, i int) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (p *parser) peek() token {
	if p.peeked == nil {
		t := p.scan()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) expect(tok rune, what string) token {
	t := p.scan()
	if t.tok != tok {
		p.errorf(t.pos, nil, "expected "+what+", got "+describe(t))
	}
	return t
}

func (p *parser) keyword(kw string) {
	t := p.scan()
	if t.tok != scanner.Ident || t.lit != kw {
		p.errorf(t.pos, nil, "expected "+kw+", got "+describe(t))
	}
}

func describe(t token) string {
	switch t.tok {
	case scanner.EOF:
		return "end of input"
	case '\n':
		return "end of line"
	}
	return strconv.Quote(t.lit)
}

// integer parses a decimal or 0x prefixed hexadecimal literal.
func (p *parser) integer(t token) int {
	lit, base := t.lit, 10
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		lit, base = lit[2:], 16
	}
	n, err := strconv.ParseInt(lit, base, 32)
	if err != nil {
		p.errorf(t.pos, nil, "invalid integer "+t.lit)
	}
	return int(n)
}

// argument parses "(" arg ")" where arg is an integer, a name from the
// symbols table, or, if allowInf is set, "infinity". It returns -1 for
// infinity.
func (p *parser) argument(symbols map[string]int, allowInf bool) int {
	p.expect('(', "(")
	t := p.scan()
	v := 0
	switch {
	case t.tok == scanner.Int:
		v = p.integer(t)
	case t.tok == scanner.Ident && t.lit == "infinity" && allowInf:
		v = -1
	case t.tok == scanner.Ident:
		c, ok := symbols[t.lit]
		if !ok {
			p.errorf(t.pos, nil, "undefined name "+t.lit)
		}
		v = c
	default:
		p.errorf(t.pos, nil, "expected integer argument, got "+describe(t))
	}
	p.expect(')', ")")
	return v
}

func (p *parser) instruction(kw token) (ins isa.Instruction, ok bool) {
	var err error
	switch kw.lit {
	case "CALL":
		p.keyword("func")
		fn := p.argument(p.funcs, false)
		p.keyword("repeat")
		if rep := p.argument(p.consts, true); rep < 0 {
			ins, err = isa.CallForever(fn)
		} else {
			ins, err = isa.Call(fn, rep)
		}
	case "JSR":
		t := p.scan()
		var addr int
		var name string
		switch t.tok {
		case scanner.Int:
			addr = p.integer(t)
		case scanner.Ident:
			name = t.lit
		default:
			p.errorf(t.pos, nil, "expected subroutine name or address, got "+describe(t))
		}
		p.keyword("repeat")
		rep := p.argument(p.consts, false)
		if name != "" {
			ins, err = isa.JSRName(name, rep)
		} else {
			ins, err = isa.JSR(addr, rep)
		}
	case "RTS":
		ins = isa.RTS()
	case "END":
		ins = isa.End()
	default:
		p.errorf(kw.pos, nil, "unknown instruction "+kw.lit)
		return ins, false
	}
	if p.err != nil {
		return ins, false
	}
	if err != nil {
		p.errorf(kw.pos, err, "invalid "+kw.lit)
		return ins, false
	}
	return ins, true
}

func (p *parser) emit(ins isa.Instruction, pos scanner.Position) {
	sub := ""
	index := len(p.src.Main)
	if p.cur != nil {
		sub = p.cur.Name
		index = len(p.cur.Code)
	}
	if pp := p.pending; pp != nil {
		p.pending = nil
		if pp.kind.Op() != ins.Op {
			p.errorf(pos, nil, pp.kind.String()+" pointer "+pp.name+" cannot bind to "+ins.Op.String())
			return
		}
		p.src.Pointers = append(p.src.Pointers, PointerDecl{pp.name, pp.kind, pp.pos, sub, index})
	}
	if p.cur != nil {
		p.cur.Code = append(p.cur.Code, ins)
		if ins.Op == isa.OpRTS {
			p.cur = nil
		}
		return
	}
	p.src.Main = append(p.src.Main, ins)
}

// closeSub terminates the current subroutine, appending an RTS if it does not
// end with RTS or END.
func (p *parser) closeSub() {
	if p.pending != nil {
		p.errorf(p.pending.pos, nil, "pointer "+p.pending.name+" is not followed by an instruction")
		return
	}
	if p.cur == nil {
		return
	}
	if n := len(p.cur.Code); n == 0 || (p.cur.Code[n-1].Op != isa.OpRTS && p.cur.Code[n-1].Op != isa.OpEnd) {
		p.cur.Code = append(p.cur.Code, isa.RTS())
	}
	p.cur = nil
}

func (p *parser) label(name string, pos scanner.Position) {
	if prev, ok := p.labels[name]; ok {
		p.errorf(pos, nil, "subroutine "+name+" redefined, previous definition here: "+prev.String())
		return
	}
	p.closeSub()
	p.labels[name] = pos
	p.cur = &Subroutine{Name: name, Pos: pos}
	p.src.Subroutines = append(p.src.Subroutines, p.cur)
}

func (p *parser) pointer(kind PointerKind, kw token) {
	t := p.expect(scanner.Ident, "pointer name")
	if p.err != nil {
		return
	}
	if p.pending != nil {
		p.errorf(kw.pos, nil, "pointer "+p.pending.name+" is not followed by an instruction")
		return
	}
	if prev, ok := p.ptrs[t.lit]; ok {
		p.errorf(t.pos, nil, "pointer "+t.lit+" redefined, previous definition here: "+prev.String())
		return
	}
	p.ptrs[t.lit] = t.pos
	p.pending = &pendingPointer{t.lit, kind, kw.pos}
}

// line parses: [address ':'] [label ':'] [instruction | pointer directive] ('\n' | EOF)
//
// Address prefixes, as written in listings, are ignored.
func (p *parser) parseLine() bool {
	t := p.scan()
	if t.tok == scanner.EOF {
		return false
	}
	if t.tok == scanner.Int && p.peek().tok == ':' {
		p.integer(t)
		p.scan()
		t = p.scan()
	}
	if t.tok == scanner.Ident && p.peek().tok == ':' {
		p.scan()
		p.label(t.lit, t.pos)
		t = p.scan()
	}
	switch t.tok {
	case '\n', scanner.EOF:
	case scanner.Ident:
		if kind, ok := pointerKind(t.lit); ok {
			p.pointer(kind, t)
		} else if ins, ok := p.instruction(t); ok {
			p.emit(ins, t.pos)
		}
		if p.err == nil {
			if e := p.scan(); e.tok != '\n' && e.tok != scanner.EOF {
				p.errorf(e.pos, nil, "unexpected "+describe(e)+" after instruction")
			}
		}
	default:
		p.errorf(t.pos, nil, "unexpected "+describe(t))
	}
	return t.tok != scanner.EOF && p.err == nil
}

// parse reads label style source from r.
func (p *parser) parse(name string, r io.Reader) (*Source, error) {
	p.s.Init(r)
	p.s.Filename = name
	p.s.Mode = scanner.ScanIdents
	p.s.IsIdentRune = isWordRune
	p.s.Whitespace = 1<<' ' | 1<<'\t' | 1<<'\r'
	p.s.Error = func(s *scanner.Scanner, msg string) {
		pos := s.Position
		if !pos.IsValid() {
			pos = s.Pos()
		}
		p.errorf(pos, nil, msg)
	}
	for p.parseLine() {
	}
	p.closeSub()
	if p.err != nil {
		return nil, p.err
	}
	return p.src, nil
}
