// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source provides a named, immutable text source and a cheap-clone
// byte cursor over it, together with spans that describe a byte range inside
// a source.
package source

import "unicode/utf8"

// inner is the shared, immutable backing store for a File. Cloning a File
// only copies the pointer, mirroring the Rc<Inner> sharing used by the
// original implementation.
type inner struct {
	name string
	text string
}

// File is a named piece of source text. Files are cheap to copy by value.
type File struct {
	in *inner
}

// New creates a File with the given name and text contents.
func New(name, text string) File {
	return File{in: &inner{name: name, text: text}}
}

// Name returns the file's name, used in diagnostic rendering.
func (f File) Name() string {
	if f.in == nil {
		return ""
	}
	return f.in.name
}

// Text returns the file's full text contents.
func (f File) Text() string {
	if f.in == nil {
		return ""
	}
	return f.in.text
}

// Len returns the byte length of the file's text.
func (f File) Len() int {
	return len(f.Text())
}

// Cursor returns a cursor positioned at the start of the file.
func (f File) Cursor() Cursor {
	return Cursor{file: f, pos: 0}
}

// Span describes a byte range (position, length) inside a File. Spans are
// purely descriptive: they own no text of their own.
type Span struct {
	Source   File
	Position int
	Length   int
}

// FromLength builds a span starting at position, length bytes long.
func FromLength(src File, position, length int) Span {
	return Span{Source: src, Position: position, Length: length}
}

// FromEnd builds a span covering [position, end).
func FromEnd(src File, position, end int) Span {
	if end < position {
		panic("source: span end precedes position")
	}
	return Span{Source: src, Position: position, Length: end - position}
}

// End returns the exclusive end offset of the span.
func (s Span) End() int {
	return s.Position + s.Length
}

// Text returns the text covered by the span.
func (s Span) Text() string {
	return s.Source.Text()[s.Position:s.End()]
}

// Cursor is a cheap, independently-cloneable byte position into a File.
// Consumer code never inspects bytes between known-valid UTF-8 scalar
// boundaries: every advance moves by exactly the width of one decoded rune.
type Cursor struct {
	file File
	pos  int
}

// Position returns the current byte offset.
func (c Cursor) Position() int {
	return c.pos
}

// File returns the source file the cursor is iterating.
func (c Cursor) File() File {
	return c.file
}

// AtEnd reports whether the cursor has consumed the whole source.
func (c Cursor) AtEnd() bool {
	return c.pos >= len(c.file.Text())
}

// Peek returns the next rune without consuming it, and whether one exists.
func (c Cursor) Peek() (rune, bool) {
	text := c.file.Text()
	if c.pos >= len(text) {
		return 0, false
	}
	r, w := utf8.DecodeRuneInString(text[c.pos:])
	if w == 0 {
		return 0, false
	}
	return r, true
}

// Next advances past the next rune and returns it, or false at end of input.
func (c *Cursor) Next() (rune, bool) {
	text := c.file.Text()
	if c.pos >= len(text) {
		return 0, false
	}
	r, w := utf8.DecodeRuneInString(text[c.pos:])
	if w == 0 {
		return 0, false
	}
	c.pos += w
	return r, true
}

// Predicate reports whether a rune belongs to the class being accepted.
type Predicate func(r rune) bool

// Accept advances the cursor past the next rune if pred(rune) is true.
func (c *Cursor) Accept(pred Predicate) bool {
	r, ok := c.Peek()
	if !ok || !pred(r) {
		return false
	}
	_, w := utf8.DecodeRuneInString(c.file.Text()[c.pos:])
	c.pos += w
	return true
}

// AcceptStr attempts to match the whole literal s starting at the cursor.
// It is all-or-nothing: the cursor only advances on a full match.
func (c *Cursor) AcceptStr(s string) bool {
	text := c.file.Text()
	if len(text)-c.pos < len(s) {
		return false
	}
	if text[c.pos:c.pos+len(s)] != s {
		return false
	}
	c.pos += len(s)
	return true
}

// SkipWhile repeatedly accepts runes matching pred.
func (c *Cursor) SkipWhile(pred Predicate) int {
	start := c.pos
	for c.Accept(pred) {
	}
	return c.pos - start
}

// Clone returns an independent copy of the cursor; advancing the clone does
// not affect the original.
func (c Cursor) Clone() Cursor {
	return c
}
