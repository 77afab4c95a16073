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

// Package charclass implements the character class algebra: sets of scalar
// characters denoted by a union of inclusive ranges, enumerated runes,
// choices and negation.
package charclass

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the seven variants of the algebra.
type Kind int

const (
	// KindRangeInclusive matches [From, To] inclusive on both ends.
	KindRangeInclusive Kind = iota
	// KindRange matches [From, To), exclusive on the upper end.
	KindRange
	// KindContained matches any rune present in Runes.
	KindContained
	// KindChoice matches if any of Parts matches (logical or).
	KindChoice
	// KindNot inverts the outcome of Inner.
	KindNot
	// KindNothing never matches. Not(Nothing) is "matches everything".
	KindNothing
	// KindRef is a borrowed reference to another class, used to share
	// large classes (e.g. "layout") without copying.
	KindRef
)

// Class is an immutable character class value.
type Class struct {
	Kind  Kind
	From  rune
	To    rune
	Runes []rune
	Parts []*Class
	Inner *Class
	Ref   *Class
}

// Nothing is the empty character class.
var Nothing = &Class{Kind: KindNothing}

// Everything matches every scalar value.
var Everything = &Class{Kind: KindNot, Inner: Nothing}

// RangeInclusive builds a class matching [from, to] inclusive.
func RangeInclusive(from, to rune) *Class {
	return &Class{Kind: KindRangeInclusive, From: from, To: to}
}

// Range builds a class matching [from, to).
func Range(from, to rune) *Class {
	return &Class{Kind: KindRange, From: from, To: to}
}

// Contained builds a class matching exactly the given runes.
func Contained(runes ...rune) *Class {
	cp := make([]rune, len(runes))
	copy(cp, runes)
	return &Class{Kind: KindContained, Runes: cp}
}

// Single builds a class matching a single rune.
func Single(r rune) *Class {
	return Contained(r)
}

// Ref returns a borrowed-reference class pointing at other, avoiding a deep
// copy of large shared classes (e.g. the layout class referenced from many
// constructors).
func Ref(other *Class) *Class {
	return &Class{Kind: KindRef, Ref: other}
}

// Contains reports whether c includes the rune r.
//
// Laws: Contains distributes over Combine (logical or); Contains(Invert(c),
// x) == !Contains(c, x); Nothing is neutral for Combine.
func (c *Class) Contains(r rune) bool {
	if c == nil {
		return false
	}
	switch c.Kind {
	case KindRangeInclusive:
		return r >= c.From && r <= c.To
	case KindRange:
		return r >= c.From && r < c.To
	case KindContained:
		for _, x := range c.Runes {
			if x == r {
				return true
			}
		}
		return false
	case KindChoice:
		for _, p := range c.Parts {
			if p.Contains(r) {
				return true
			}
		}
		return false
	case KindNot:
		return !c.Inner.Contains(r)
	case KindNothing:
		return false
	case KindRef:
		return c.Ref.Contains(r)
	}
	return false
}

// Combine returns the union of parts.
func Combine(parts ...*Class) *Class {
	var flat []*Class
	for _, p := range parts {
		if p == nil {
			continue
		}
		if p.Kind == KindNothing {
			// Nothing is neutral for Combine.
			continue
		}
		if p.Kind == KindChoice {
			flat = append(flat, p.Parts...)
			continue
		}
		flat = append(flat, p)
	}
	if len(flat) == 0 {
		return Nothing
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Class{Kind: KindChoice, Parts: flat}
}

// Invert returns the logical complement of c. Invert is an involution:
// Invert(Invert(c)) behaves the same as c for every rune (though it is not
// guaranteed to be represented identically).
func Invert(c *Class) *Class {
	if c == nil {
		return Everything
	}
	if c.Kind == KindNot {
		return c.Inner
	}
	return &Class{Kind: KindNot, Inner: c}
}

func runeLiteral(r rune) string {
	q := strconv.QuoteRune(r)
	return q[1 : len(q)-1]
}

// String renders a canonical bracket-syntax representation of the class,
// following the grammar source format's [ranges] notation (spec.md §6).
func (c *Class) String() string {
	if c == nil {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	writeClassBody(&b, c)
	b.WriteByte(']')
	return b.String()
}

func writeClassBody(b *strings.Builder, c *Class) {
	switch c.Kind {
	case KindNothing:
		// empty body
	case KindNot:
		if c.Inner.Kind == KindNothing {
			// Everything: represented as a caret over an empty body.
			b.WriteByte('^')
			return
		}
		b.WriteByte('^')
		writeClassBody(b, c.Inner)
	case KindRangeInclusive:
		fmt.Fprintf(b, "%s-%s", runeLiteral(c.From), runeLiteral(c.To))
	case KindRange:
		// Exclusive ranges are rendered as an inclusive range one below To,
		// the closest lossless approximation in this bracket notation.
		fmt.Fprintf(b, "%s-%s", runeLiteral(c.From), runeLiteral(c.To-1))
	case KindContained:
		runes := append([]rune(nil), c.Runes...)
		sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
		for _, r := range runes {
			if r == ']' {
				b.WriteString(`\]`)
				continue
			}
			b.WriteString(runeLiteral(r))
		}
	case KindChoice:
		for _, p := range c.Parts {
			writeClassBody(b, p)
		}
	case KindRef:
		writeClassBody(b, c.Ref)
	}
}

// Parse parses a bracket-syntax char class body (without the surrounding
// [ ]), following the grammar source format of spec.md §6: ranges "a-z",
// enumerated runes, a leading "^" for negation, and escapes
// \n \r \t \\ \].
func Parse(body string) (*Class, error) {
	negated := false
	i := 0
	if len(body) > 0 && body[0] == '^' {
		negated = true
		i = 1
	}
	var parts []*Class
	runes := []rune{}
	chars := []rune(body[i:])
	for j := 0; j < len(chars); j++ {
		r := chars[j]
		if r == '\\' {
			if j+1 >= len(chars) {
				return nil, fmt.Errorf("charclass: dangling escape at end of %q", body)
			}
			j++
			switch chars[j] {
			case 'n':
				r = '\n'
			case 'r':
				r = '\r'
			case 't':
				r = '\t'
			case '\\', ']':
				r = chars[j]
			default:
				return nil, fmt.Errorf("charclass: invalid escape \\%c in %q", chars[j], body)
			}
			// an escaped rune may also start a range, e.g. \t-~
			if j+2 < len(chars) && chars[j+1] == '-' && chars[j+2] != ']' {
				from := r
				j += 2
				to := chars[j]
				if to == '\\' && j+1 < len(chars) {
					j++
					to = unescapeOne(chars[j])
				}
				parts = append(parts, RangeInclusive(from, to))
				continue
			}
			runes = append(runes, r)
			continue
		}
		if j+2 < len(chars) && chars[j+1] == '-' && chars[j+2] != ']' {
			from := r
			to := chars[j+2]
			j += 2
			if to == '\\' && j+1 < len(chars) {
				j++
				to = unescapeOne(chars[j])
			}
			if to < from {
				return nil, fmt.Errorf("charclass: invalid range %c-%c", from, to)
			}
			parts = append(parts, RangeInclusive(from, to))
			continue
		}
		runes = append(runes, r)
	}
	if len(runes) > 0 {
		parts = append(parts, Contained(runes...))
	}
	cls := Combine(parts...)
	if negated {
		cls = Invert(cls)
	}
	return cls, nil
}

func unescapeOne(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		return r
	}
}
