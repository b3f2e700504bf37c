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
	"strconv"
	"strings"
	"text/scanner"
	"unicode/utf8"

	"github.com/db47h/rebseq/wave"
)

// Match primitives for sequencer files. Each one tries to match at a given
// offset and returns a result holding either the offset following the match
// and the matched value, or a positioned failure. Primitives never consume
// input on failure.

type failure struct {
	off int
	msg string
}

type result[T any] struct {
	next int
	val  T
	fail *failure
}

func (r result[T]) ok() bool { return r.fail == nil }

// cursor holds the source text and the furthest failure seen since the last
// committed line.
type cursor struct {
	name string
	src  string
	far  *failure
}

func match[T any](next int, v T) result[T] { return result[T]{next: next, val: v} }

func miss[T any](c *cursor, off int, msg string) result[T] {
	f := &failure{off, msg}
	if c.far == nil || off >= c.far.off {
		c.far = f
	}
	return result[T]{next: off, fail: f}
}

// forward converts a failed result to another result type.
func forward[T, U any](r result[U]) result[T] { return result[T]{next: r.next, fail: r.fail} }

func (c *cursor) commit() { c.far = nil }

func (c *cursor) eof(off int) bool { return off >= len(c.src) }

func (c *cursor) position(off int) scanner.Position {
	if off > len(c.src) {
		off = len(c.src)
	}
	line := 1 + strings.Count(c.src[:off], "\n")
	bol := strings.LastIndexByte(c.src[:off], '\n') + 1
	return scanner.Position{
		Filename: c.name,
		Offset:   off,
		Line:     line,
		Column:   utf8.RuneCountInString(c.src[bol:off]) + 1,
	}
}

func (c *cursor) errorAt(off int, msg string, err error) error {
	return &ParseError{Pos: c.position(off), Msg: msg, Err: err}
}

// failed returns a ParseError for the furthest failure.
func (c *cursor) failed(off int) error {
	if c.far != nil {
		return c.errorAt(c.far.off, c.far.msg, nil)
	}
	return c.errorAt(off, "syntax error", nil)
}

func zmsp(c *cursor, off int) result[string] {
	i := off
	for i < len(c.src) && (c.src[i] == ' ' || c.src[i] == '\t') {
		i++
	}
	return match(i, c.src[off:i])
}

func char(c *cursor, off int, ch byte) result[byte] {
	if off < len(c.src) && c.src[off] == ch {
		return match(off+1, ch)
	}
	return miss[byte](c, off, "expected "+strconv.QuoteRune(rune(ch)))
}

func newline(c *cursor, off int) result[string] {
	if strings.HasPrefix(c.src[off:], "\r\n") {
		return match(off+2, "\r\n")
	}
	if strings.HasPrefix(c.src[off:], "\n") {
		return match(off+1, "\n")
	}
	return miss[string](c, off, "expected end of line")
}

// comment matches '#' up to the end of the line. Its value is the comment text.
func comment(c *cursor, off int) result[string] {
	if r := char(c, off, '#'); !r.ok() {
		return forward[string](r)
	}
	i := off + 1
	for i < len(c.src) && c.src[i] != '\n' {
		i++
	}
	return match(i, strings.TrimSpace(c.src[off+1:i]))
}

func isDigit(b byte) bool    { return '0' <= b && b <= '9' }
func isHexDigit(b byte) bool { return isDigit(b) || 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F' }
func isLetter(b byte) bool   { return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || b == '_' }

// integer matches a signed decimal or 0x prefixed hexadecimal integer.
func integer(c *cursor, off int) result[int] {
	i := off
	if i < len(c.src) && (c.src[i] == '-' || c.src[i] == '+') {
		i++
	}
	start, base, digit := i, 10, isDigit
	if strings.HasPrefix(c.src[i:], "0x") || strings.HasPrefix(c.src[i:], "0X") {
		i += 2
		start, base, digit = i, 16, isHexDigit
	}
	for i < len(c.src) && digit(c.src[i]) {
		i++
	}
	if i == start {
		return miss[int](c, off, "expected integer")
	}
	v, err := strconv.ParseInt(c.src[start:i], base, 64)
	if err != nil {
		return miss[int](c, off, "invalid integer "+c.src[off:i])
	}
	if c.src[off] == '-' {
		v = -v
	}
	return match(i, int(v))
}

func name(c *cursor, off int) result[string] {
	if off >= len(c.src) || !isLetter(c.src[off]) {
		return miss[string](c, off, "expected name")
	}
	i := off + 1
	for i < len(c.src) && (isLetter(c.src[i]) || isDigit(c.src[i])) {
		i++
	}
	return match(i, c.src[off:i])
}

func keyword(c *cursor, off int, kw string) result[string] {
	r := name(c, off)
	if !r.ok() || r.val != kw {
		return miss[string](c, off, "expected "+kw)
	}
	return r
}

var unitNanoseconds = map[string]int64{"ns": 1, "us": 1e3, "ms": 1e6, "s": 1e9}

func durationUnit(c *cursor, off int) result[string] {
	r := name(c, off)
	if _, ok := unitNanoseconds[r.val]; !r.ok() || !ok {
		return miss[string](c, off, "expected time unit (ns, us, ms or s)")
	}
	return r
}

type duration struct {
	value int
	unit  string // empty for a count of clock ticks
}

func durationValue(c *cursor, off int) result[duration] {
	n := integer(c, off)
	if !n.ok() {
		return forward[duration](n)
	}
	if u := durationUnit(c, zmsp(c, n.next).next); u.ok() {
		return match(u.next, duration{n.val, u.val})
	}
	return match(n.next, duration{n.val, ""})
}

// lineEnd matches optional spaces and comment followed by a newline or the end
// of input. Its value is the comment text.
func lineEnd(c *cursor, off int) result[string] {
	i := zmsp(c, off).next
	text := ""
	if r := comment(c, i); r.ok() {
		i, text = r.next, r.val
	}
	if c.eof(i) {
		return match(i, text)
	}
	r := newline(c, i)
	if !r.ok() {
		return forward[string](r)
	}
	return match(r.next, text)
}

// emptyLine is like lineEnd but fails at the end of input.
func emptyLine(c *cursor, off int) result[string] {
	if c.eof(off) {
		return miss[string](c, off, "unexpected end of input")
	}
	r := lineEnd(c, off)
	if r.ok() && r.next == off {
		return miss[string](c, off, "unexpected end of input")
	}
	return r
}

func sectionMarker(c *cursor, off int) result[string] {
	r := char(c, zmsp(c, off).next, '[')
	if !r.ok() {
		return forward[string](r)
	}
	n := name(c, zmsp(c, r.next).next)
	if !n.ok() {
		return n
	}
	b := char(c, zmsp(c, n.next).next, ']')
	if !b.ok() {
		return forward[string](b)
	}
	e := lineEnd(c, b.next)
	if !e.ok() {
		return e
	}
	return match(e.next, n.val)
}

// label matches `name ':'` with leading spaces.
func label(c *cursor, off int) result[string] {
	n := name(c, zmsp(c, off).next)
	if !n.ok() {
		return n
	}
	r := char(c, zmsp(c, n.next).next, ':')
	if !r.ok() {
		return forward[string](r)
	}
	return match(r.next, n.val)
}

type definitionLine struct {
	name string
	val  duration
	desc string
}

// definition matches `name: integer [unit] [# comment]`.
func definition(c *cursor, off int) result[definitionLine] {
	l := label(c, off)
	if !l.ok() {
		return forward[definitionLine](l)
	}
	v := durationValue(c, zmsp(c, l.next).next)
	if !v.ok() {
		return forward[definitionLine](v)
	}
	e := lineEnd(c, v.next)
	if !e.ok() {
		return forward[definitionLine](e)
	}
	return match(e.next, definitionLine{l.val, v.val, e.val})
}

type headerLine struct {
	name string
	desc string
}

// funcHeader matches `Name: [# description]`.
func funcHeader(c *cursor, off int) result[headerLine] {
	l := label(c, off)
	if !l.ok() {
		return forward[headerLine](l)
	}
	e := lineEnd(c, l.next)
	if !e.ok() {
		return forward[headerLine](e)
	}
	return match(e.next, headerLine{l.val, e.val})
}

// list matches zero or more items separated by commas.
func list[T any](c *cursor, off int, item func(*cursor, int) result[T]) result[[]T] {
	var l []T
	r := item(c, off)
	if !r.ok() {
		return match(off, l)
	}
	l = append(l, r.val)
	next := r.next
	for {
		comma := char(c, zmsp(c, next).next, ',')
		if !comma.ok() {
			return match(next, l)
		}
		r = item(c, zmsp(c, comma.next).next)
		if !r.ok() {
			return forward[[]T](r)
		}
		l = append(l, r.val)
		next = r.next
	}
}

// keywordLine matches `kw: <item list>`.
func keywordLine[T any](c *cursor, off int, kw string, item func(*cursor, int) result[T]) result[[]T] {
	k := keyword(c, zmsp(c, off).next, kw)
	if !k.ok() {
		return forward[[]T](k)
	}
	colon := char(c, zmsp(c, k.next).next, ':')
	if !colon.ok() {
		return forward[[]T](colon)
	}
	l := list(c, zmsp(c, colon.next).next, item)
	if !l.ok() {
		return l
	}
	e := lineEnd(c, l.next)
	if !e.ok() {
		return forward[[]T](e)
	}
	return match(e.next, l.val)
}

func clocksLine(c *cursor, off int) result[[]string] {
	return keywordLine(c, off, "clocks", name)
}

func assignment(c *cursor, off int) result[wave.Level] {
	n := name(c, off)
	if !n.ok() {
		return forward[wave.Level](n)
	}
	eq := char(c, zmsp(c, n.next).next, '=')
	if !eq.ok() {
		return forward[wave.Level](eq)
	}
	v := integer(c, zmsp(c, eq.next).next)
	if !v.ok() {
		return forward[wave.Level](v)
	}
	return match(v.next, wave.Level{Channel: n.val, Value: v.val})
}

func constantsLine(c *cursor, off int) result[[]wave.Level] {
	return keywordLine(c, off, "constants", assignment)
}

func slicesMarker(c *cursor, off int) result[[]struct{}] {
	none := func(c *cursor, off int) result[struct{}] { return miss[struct{}](c, off, "unexpected slice value") }
	return keywordLine(c, off, "slices", none)
}

type sliceSpec struct {
	dur    duration
	ref    string // constant name, if the duration is symbolic
	values []int
}

// sliceLine matches `<duration|CONSTANT> = v0, v1, ...`.
func sliceLine(c *cursor, off int) result[sliceSpec] {
	var s sliceSpec
	i := zmsp(c, off).next
	if d := durationValue(c, i); d.ok() {
		s.dur, i = d.val, d.next
	} else if n := name(c, i); n.ok() {
		s.ref, i = n.val, n.next
	} else {
		return miss[sliceSpec](c, i, "expected slice duration")
	}
	eq := char(c, zmsp(c, i).next, '=')
	if !eq.ok() {
		return forward[sliceSpec](eq)
	}
	l := list(c, zmsp(c, eq.next).next, integer)
	if !l.ok() {
		return forward[sliceSpec](l)
	}
	e := lineEnd(c, l.next)
	if !e.ok() {
		return forward[sliceSpec](e)
	}
	s.values = l.val
	return match(e.next, s)
}
