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

// Package metaparser is the hand-written front end that turns the grammar
// source format (spec.md §6) into a sugared grammar.Grammar. It is a
// recursive-descent reader over a source.Cursor, following the same
// byte-at-a-time, escape-aware scanning style the teacher's own grammar
// loader uses, generalised from one rule per text line to a free-layout
// sort/constructor/expression grammar.
package metaparser

import (
	"fmt"
	"strconv"
	"unicode"

	log "github.com/golang/glog"

	"github.com/jdonszelmann/lwbgo/charclass"
	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/source"
)

type parser struct {
	cur source.Cursor
	g   *grammar.Grammar
}

// Parse reads file's full contents as a grammar source document and builds
// the sugared grammar.Grammar it describes.
func Parse(file source.File) (*grammar.Grammar, error) {
	p := &parser{cur: file.Cursor(), g: grammar.New("")}
	if err := p.parseDocument(); err != nil {
		return nil, err
	}
	if p.g.Start == "" {
		return nil, fmt.Errorf("metaparser: grammar has no \"start at\" statement")
	}
	log.V(1).Infof("metaparser: parsed %d sorts, start=%q", len(p.g.SortNames), p.g.Start)
	return p.g, nil
}

// ParseString is Parse for an in-memory grammar source, convenient for
// tests and the CLI.
func ParseString(name, text string) (*grammar.Grammar, error) {
	return Parse(source.New(name, text))
}

func (p *parser) parseDocument() error {
	for {
		doc := p.skipDocAndLayout()
		if p.cur.AtEnd() {
			return nil
		}
		name, err := p.parseIdent()
		if err != nil {
			return err
		}
		p.skipBlanks()
		if name == "start" {
			if err := p.parseStartStmt(); err != nil {
				return err
			}
			continue
		}
		if err := p.parseSortBlock(name, doc); err != nil {
			return err
		}
	}
}

func (p *parser) parseStartStmt() error {
	kw, err := p.parseIdent()
	if err != nil {
		return fmt.Errorf("metaparser: expected \"at\" after \"start\": %w", err)
	}
	if kw != "at" {
		return fmt.Errorf("metaparser: expected \"at\" after \"start\", got %q", kw)
	}
	p.skipBlanks()
	name, err := p.parseIdent()
	if err != nil {
		return err
	}
	p.skipBlanks()
	if !p.cur.AcceptStr(";") {
		return fmt.Errorf("metaparser: expected ';' after \"start at %s\"", name)
	}
	p.g.Start = name
	return nil
}

func (p *parser) parseSortBlock(name, doc string) error {
	if !p.cur.AcceptStr(":") {
		return fmt.Errorf("metaparser: expected ':' after sort name %q at byte %d", name, p.cur.Position())
	}
	annos, err := p.maybeParseAnnotations()
	if err != nil {
		return fmt.Errorf("metaparser: sort %q: %w", name, err)
	}
	sort := &grammar.Sort{Name: name, Annotations: annos, Docs: doc}

	for {
		ctorDoc := p.skipDocAndLayout()
		if p.cur.AtEnd() {
			break
		}

		snapshot := p.cur.Clone()
		ident, err := p.parseIdent()
		if err != nil {
			return fmt.Errorf("metaparser: sort %q: %w", name, err)
		}
		p.skipBlanks()
		next, hasNext := p.cur.Peek()
		if ident == "start" || (hasNext && next == ':') {
			// Either the document's "start at" statement or the next sort
			// block; this constructor line belongs to neither, back off
			// and let parseDocument handle it.
			p.cur = snapshot
			break
		}
		if !hasNext || next != '=' {
			return fmt.Errorf("metaparser: sort %q: expected '=' after constructor name %q", name, ident)
		}
		p.cur.Next() // consume '='

		p.skipBlanks()
		expr, err := p.parseExpr()
		if err != nil {
			return fmt.Errorf("metaparser: sort %q constructor %q: %w", name, ident, err)
		}
		p.skipBlanks()
		if !p.cur.AcceptStr(";") {
			return fmt.Errorf("metaparser: sort %q constructor %q: expected ';'", name, ident)
		}
		ctorAnnos, err := p.maybeParseAnnotations()
		if err != nil {
			return fmt.Errorf("metaparser: sort %q constructor %q: %w", name, ident, err)
		}
		sort.Constructors = append(sort.Constructors, &grammar.Constructor{
			Name: ident, Expr: expr, Annotations: ctorAnnos, Docs: ctorDoc,
		})
	}

	if len(sort.Constructors) == 0 {
		return fmt.Errorf("metaparser: sort %q has no constructors", name)
	}
	log.V(3).Infof("metaparser: sort %q: %d constructor(s)", name, len(sort.Constructors))
	p.g.AddSort(sort)
	return nil
}

func (p *parser) maybeParseAnnotations() (grammar.Annotations, error) {
	annos := grammar.Annotations{}
	p.skipBlanks()
	if !p.cur.AcceptStr("{") {
		return annos, nil
	}
	p.skipBlanks()
	for {
		name, err := p.parseAnnotationName()
		if err != nil {
			return nil, err
		}
		arg := ""
		p.skipBlanks()
		if p.cur.AcceptStr("(") {
			p.skipBlanks()
			r, ok := p.cur.Peek()
			if ok && (r == '\'' || r == '"') {
				s, err := p.parseQuoted()
				if err != nil {
					return nil, err
				}
				arg = s
			} else {
				s, err := p.parseIdent()
				if err != nil {
					return nil, err
				}
				arg = s
			}
			p.skipBlanks()
			if !p.cur.AcceptStr(")") {
				return nil, fmt.Errorf("metaparser: expected ')' closing annotation %q's argument", name)
			}
		}
		annos[name] = arg
		p.skipBlanks()
		if p.cur.AcceptStr(",") {
			p.skipBlanks()
			continue
		}
		break
	}
	p.skipBlanks()
	if !p.cur.AcceptStr("}") {
		return nil, fmt.Errorf("metaparser: expected '}' closing annotation list")
	}
	return annos, nil
}

// parseExpr parses a sequence of juxtaposed postfix terms, stopping at a
// sequence terminator (';', ')', ',' or end of input). A single term is
// returned bare rather than wrapped in a one-element Sequence.
func (p *parser) parseExpr() (*grammar.Expression, error) {
	var terms []*grammar.Expression
	for {
		p.skipBlanks()
		r, ok := p.cur.Peek()
		if !ok || isExprTerminator(r) {
			break
		}
		term, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("metaparser: empty expression at byte %d", p.cur.Position())
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return grammar.Sequence(terms...), nil
}

func isExprTerminator(r rune) bool {
	return r == ';' || r == ')' || r == ','
}

func (p *parser) parsePostfix() (*grammar.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	r, ok := p.cur.Peek()
	if !ok {
		return e, nil
	}
	switch r {
	case '*':
		p.cur.Next()
		return grammar.Repeat(e, 0, nil), nil
	case '+':
		p.cur.Next()
		return grammar.Repeat(e, 1, nil), nil
	case '?':
		p.cur.Next()
		one := 1
		return grammar.Repeat(e, 0, &one), nil
	case '{':
		min, max, err := p.parseBraceCount()
		if err != nil {
			return nil, err
		}
		return grammar.Repeat(e, min, max), nil
	}
	return e, nil
}

func (p *parser) parsePrimary() (*grammar.Expression, error) {
	p.skipBlanks()
	r, ok := p.cur.Peek()
	if !ok {
		return nil, fmt.Errorf("metaparser: expression expected at end of input")
	}
	switch {
	case r == '\'' || r == '"':
		s, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		return grammar.Literal(s), nil
	case r == '[':
		cls, err := p.parseCharClass()
		if err != nil {
			return nil, err
		}
		return grammar.CharClass(cls), nil
	case r == '(':
		p.cur.Next()
		p.skipBlanks()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipBlanks()
		if !p.cur.AcceptStr(")") {
			return nil, fmt.Errorf("metaparser: expected ')' at byte %d", p.cur.Position())
		}
		return inner, nil
	case isIdentStart(r):
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if name == "delimited" {
			return p.parseDelimitedCall()
		}
		return grammar.Sort(name), nil
	}
	return nil, fmt.Errorf("metaparser: unexpected character %q at byte %d", r, p.cur.Position())
}

func (p *parser) parseDelimitedCall() (*grammar.Expression, error) {
	p.skipBlanks()
	if !p.cur.AcceptStr("(") {
		return nil, fmt.Errorf("metaparser: expected '(' after \"delimited\"")
	}
	p.skipBlanks()
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipBlanks()
	if !p.cur.AcceptStr(",") {
		return nil, fmt.Errorf("metaparser: expected ',' in delimited(...)")
	}
	p.skipBlanks()
	sep, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipBlanks()
	if !p.cur.AcceptStr(",") {
		return nil, fmt.Errorf("metaparser: expected ',' in delimited(...)")
	}
	p.skipBlanks()
	min, max, err := p.parseDelimitedCount()
	if err != nil {
		return nil, err
	}
	p.skipBlanks()
	trailing := false
	if p.cur.AcceptStr(",") {
		p.skipBlanks()
		kw, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if kw != "trailing" {
			return nil, fmt.Errorf("metaparser: expected \"trailing\" in delimited(...), got %q", kw)
		}
		trailing = true
		p.skipBlanks()
	}
	if !p.cur.AcceptStr(")") {
		return nil, fmt.Errorf("metaparser: expected ')' closing delimited(...)")
	}
	return grammar.Delimited(inner, sep, min, max, trailing), nil
}

// parseDelimitedCount parses the `count` argument of delimited(...): one of
// `*`, `+`, a bare number, `n..m`, or `n..`.
func (p *parser) parseDelimitedCount() (int, *int, error) {
	if p.cur.AcceptStr("*") {
		return 0, nil, nil
	}
	if p.cur.AcceptStr("+") {
		return 1, nil, nil
	}
	lo, err := p.parseNumber()
	if err != nil {
		return 0, nil, err
	}
	if p.cur.AcceptStr("..") {
		if r, ok := p.cur.Peek(); ok && unicode.IsDigit(r) {
			hi, err := p.parseNumber()
			if err != nil {
				return 0, nil, err
			}
			return lo, &hi, nil
		}
		return lo, nil, nil
	}
	return lo, &lo, nil
}

// parseBraceCount parses `{n}`, `{n,m}` or `{n,}`.
func (p *parser) parseBraceCount() (int, *int, error) {
	if !p.cur.AcceptStr("{") {
		return 0, nil, fmt.Errorf("metaparser: expected '{'")
	}
	p.skipBlanks()
	lo, err := p.parseNumber()
	if err != nil {
		return 0, nil, err
	}
	p.skipBlanks()
	if p.cur.AcceptStr(",") {
		p.skipBlanks()
		if r, ok := p.cur.Peek(); ok && r == '}' {
			p.cur.Next()
			return lo, nil, nil
		}
		hi, err := p.parseNumber()
		if err != nil {
			return 0, nil, err
		}
		p.skipBlanks()
		if !p.cur.AcceptStr("}") {
			return 0, nil, fmt.Errorf("metaparser: expected '}' closing repeat count")
		}
		return lo, &hi, nil
	}
	if !p.cur.AcceptStr("}") {
		return 0, nil, fmt.Errorf("metaparser: expected '}' closing repeat count")
	}
	return lo, &lo, nil
}

// parseCharClass parses a `[...]` character class, delegating the body
// (ranges, enumerations, ^ negation, escapes) to charclass.Parse.
func (p *parser) parseCharClass() (*charclass.Class, error) {
	if !p.cur.AcceptStr("[") {
		return nil, fmt.Errorf("metaparser: expected '[' at byte %d", p.cur.Position())
	}
	text := p.cur.File().Text()
	start := p.cur.Position()
	for {
		r, ok := p.cur.Next()
		if !ok {
			return nil, fmt.Errorf("metaparser: unterminated character class starting at byte %d", start)
		}
		if r == '\\' {
			if _, ok := p.cur.Next(); !ok {
				return nil, fmt.Errorf("metaparser: dangling escape in character class starting at byte %d", start)
			}
			continue
		}
		if r == ']' {
			return charclass.Parse(text[start : p.cur.Position()-1])
		}
	}
}

// parseQuoted parses a single- or double-quoted literal with \n \r \t \\ \"
// \' escapes.
func (p *parser) parseQuoted() (string, error) {
	q, ok := p.cur.Peek()
	if !ok || (q != '\'' && q != '"') {
		return "", fmt.Errorf("metaparser: quoted literal expected at byte %d", p.cur.Position())
	}
	start := p.cur.Position()
	p.cur.Next()
	var runes []rune
	for {
		r, ok := p.cur.Next()
		if !ok {
			return "", fmt.Errorf("metaparser: unterminated quoted literal starting at byte %d", start)
		}
		if r == q {
			return string(runes), nil
		}
		if r == '\\' {
			e, ok := p.cur.Next()
			if !ok {
				return "", fmt.Errorf("metaparser: dangling escape in quoted literal starting at byte %d", start)
			}
			switch e {
			case 'n':
				runes = append(runes, '\n')
			case 'r':
				runes = append(runes, '\r')
			case 't':
				runes = append(runes, '\t')
			case '\\', '"', '\'':
				runes = append(runes, e)
			default:
				return "", fmt.Errorf("metaparser: invalid escape \\%c at byte %d", e, p.cur.Position())
			}
			continue
		}
		runes = append(runes, r)
	}
}

func (p *parser) parseIdent() (string, error) {
	start := p.cur.Position()
	r, ok := p.cur.Peek()
	if !ok || !isIdentStart(r) {
		return "", fmt.Errorf("metaparser: identifier expected at byte %d", p.cur.Position())
	}
	for {
		r, ok := p.cur.Peek()
		if !ok || !isIdentCont(r) {
			break
		}
		p.cur.Next()
	}
	return p.cur.File().Text()[start:p.cur.Position()], nil
}

func (p *parser) parseNumber() (int, error) {
	start := p.cur.Position()
	for {
		r, ok := p.cur.Peek()
		if !ok || !unicode.IsDigit(r) {
			break
		}
		p.cur.Next()
	}
	if p.cur.Position() == start {
		return 0, fmt.Errorf("metaparser: number expected at byte %d", start)
	}
	return strconv.Atoi(p.cur.File().Text()[start:p.cur.Position()])
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentCont(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

// parseAnnotationName is parseIdent widened to accept the hyphenated
// annotation names spec.md §3 defines (single-string, no-layout, ...).
func (p *parser) parseAnnotationName() (string, error) {
	start := p.cur.Position()
	r, ok := p.cur.Peek()
	if !ok || !isIdentStart(r) {
		return "", fmt.Errorf("metaparser: annotation name expected at byte %d", p.cur.Position())
	}
	for {
		r, ok := p.cur.Peek()
		if !ok || !(isIdentCont(r) || r == '-') {
			break
		}
		p.cur.Next()
	}
	return p.cur.File().Text()[start:p.cur.Position()], nil
}

func (p *parser) skipBlanks() {
	for {
		r, ok := p.cur.Peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		p.cur.Next()
	}
}

// skipDocAndLayout skips whitespace and accumulates consecutive `///` doc
// comment lines immediately preceding the next token, returning their
// joined text (without the `///` marker).
func (p *parser) skipDocAndLayout() string {
	var lines []string
	for {
		p.skipBlanks()
		if !p.cur.AcceptStr("///") {
			break
		}
		p.cur.Accept(func(r rune) bool { return r == ' ' })
		text := p.cur.File().Text()
		start := p.cur.Position()
		for {
			r, ok := p.cur.Peek()
			if !ok || r == '\n' {
				break
			}
			p.cur.Next()
		}
		lines = append(lines, text[start:p.cur.Position()])
	}
	if len(lines) == 0 {
		return ""
	}
	joined := lines[0]
	for _, l := range lines[1:] {
		joined += "\n" + l
	}
	return joined
}
