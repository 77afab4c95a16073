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

// Package blob encodes and decodes a sugared grammar.Grammar as a compact,
// size-prefixed binary blob (spec.md §6), so a bootstrap tool can write the
// meta-grammar once and the runtime can load it without re-running
// metaparser. Strings and lists carry a varint length or count prefix and
// numbers are varints, so the format needs no separate schema version bump
// when a grammar merely grows; only the leading version byte, the kind tags
// and the booleans are single raw bytes.
package blob

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/jdonszelmann/lwbgo/charclass"
	"github.com/jdonszelmann/lwbgo/grammar"
)

// version is bumped whenever the wire layout changes incompatibly.
const version = 1

// Encode serialises g into the binary blob format.
func Encode(g *grammar.Grammar) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(version)

	writeUvarint(&buf, uint64(len(g.SortNames)))
	for _, name := range g.SortNames {
		sort := g.Sorts[name]
		if sort == nil {
			return nil, fmt.Errorf("blob: SortNames lists %q but Sorts has no entry for it", name)
		}
		if err := writeSort(&buf, sort); err != nil {
			return nil, fmt.Errorf("blob: encoding sort %q: %w", name, err)
		}
	}

	writeString(&buf, g.Start)

	writeUvarint(&buf, uint64(len(g.Merges)))
	for _, old := range sortedKeys(g.Merges) {
		writeString(&buf, old)
		writeString(&buf, g.Merges[old])
	}

	return buf.Bytes(), nil
}

// Decode parses data, previously produced by Encode, back into a
// grammar.Grammar. It rejects blobs written by an incompatible version.
func Decode(data []byte) (*grammar.Grammar, error) {
	r := bytes.NewReader(data)

	v, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("blob: empty input")
	}
	if v != version {
		return nil, fmt.Errorf("blob: unsupported version %d (want %d)", v, version)
	}

	g := grammar.New("")
	sortCount, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("blob: reading sort count: %w", err)
	}
	for i := uint64(0); i < sortCount; i++ {
		s, err := readSort(r)
		if err != nil {
			return nil, fmt.Errorf("blob: decoding sort %d: %w", i, err)
		}
		g.AddSort(s)
	}

	start, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("blob: reading start sort: %w", err)
	}
	g.Start = start

	mergeCount, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("blob: reading merge count: %w", err)
	}
	for i := uint64(0); i < mergeCount; i++ {
		old, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("blob: reading merge %d key: %w", i, err)
		}
		to, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("blob: reading merge %d value: %w", i, err)
		}
		g.Merges[old] = to
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("blob: %d trailing byte(s) after a complete grammar", r.Len())
	}
	return g, nil
}

func writeSort(buf *bytes.Buffer, s *grammar.Sort) error {
	writeString(buf, s.Name)
	writeString(buf, s.Docs)
	writeAnnotations(buf, s.Annotations)
	writeUvarint(buf, uint64(len(s.Constructors)))
	for _, c := range s.Constructors {
		if err := writeConstructor(buf, c); err != nil {
			return fmt.Errorf("constructor %q: %w", c.Name, err)
		}
	}
	return nil
}

func readSort(r *bytes.Reader) (*grammar.Sort, error) {
	name, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	docs, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("docs: %w", err)
	}
	annos, err := readAnnotations(r)
	if err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	ctorCount, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("constructor count: %w", err)
	}
	s := &grammar.Sort{Name: name, Docs: docs, Annotations: annos}
	for i := uint64(0); i < ctorCount; i++ {
		c, err := readConstructor(r)
		if err != nil {
			return nil, fmt.Errorf("constructor %d: %w", i, err)
		}
		s.Constructors = append(s.Constructors, c)
	}
	return s, nil
}

func writeConstructor(buf *bytes.Buffer, c *grammar.Constructor) error {
	writeString(buf, c.Name)
	writeString(buf, c.Docs)
	writeBool(buf, c.DontPutInAST)
	writeAnnotations(buf, c.Annotations)
	return writeExpr(buf, c.Expr)
}

func readConstructor(r *bytes.Reader) (*grammar.Constructor, error) {
	name, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	docs, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("docs: %w", err)
	}
	dontPut, err := readBool(r)
	if err != nil {
		return nil, fmt.Errorf("dontPutInAST flag: %w", err)
	}
	annos, err := readAnnotations(r)
	if err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	expr, err := readExpr(r)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	return &grammar.Constructor{Name: name, Expr: expr, Annotations: annos, Docs: docs, DontPutInAST: dontPut}, nil
}

func writeAnnotations(buf *bytes.Buffer, a grammar.Annotations) {
	keys := sortedKeys(a)
	writeUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
		writeString(buf, a[k])
	}
}

func readAnnotations(r *bytes.Reader) (grammar.Annotations, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	a := make(grammar.Annotations, n)
	for i := uint64(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		v, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		a[k] = v
	}
	return a, nil
}

// writeExpr walks e in pre-order, a tag byte per node followed by the
// fields grammar.ExprKind defines as active for that tag.
func writeExpr(buf *bytes.Buffer, e *grammar.Expression) error {
	if e == nil {
		return fmt.Errorf("nil expression")
	}
	buf.WriteByte(byte(e.Kind))
	switch e.Kind {
	case grammar.ExprSort:
		writeString(buf, e.SortName)
	case grammar.ExprLiteral:
		writeString(buf, e.Literal)
	case grammar.ExprCharClass:
		return writeClass(buf, e.Class)
	case grammar.ExprSequence, grammar.ExprChoice:
		writeUvarint(buf, uint64(len(e.List)))
		for _, sub := range e.List {
			if err := writeExpr(buf, sub); err != nil {
				return err
			}
		}
	case grammar.ExprRepeat:
		if err := writeExpr(buf, e.Inner); err != nil {
			return err
		}
		writeUvarint(buf, uint64(e.Min))
		writeMax(buf, e.Max)
	case grammar.ExprDelimited:
		if err := writeExpr(buf, e.Inner); err != nil {
			return err
		}
		if err := writeExpr(buf, e.Sep); err != nil {
			return err
		}
		writeUvarint(buf, uint64(e.Min))
		writeMax(buf, e.Max)
		writeBool(buf, e.Trailing)
	case grammar.ExprNegative, grammar.ExprPositive:
		return writeExpr(buf, e.Pred)
	default:
		return fmt.Errorf("unknown expression kind %d", e.Kind)
	}
	return nil
}

func readExpr(r *bytes.Reader) (*grammar.Expression, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("kind tag: %w", err)
	}
	kind := grammar.ExprKind(kindByte)
	switch kind {
	case grammar.ExprSort:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return grammar.Sort(name), nil
	case grammar.ExprLiteral:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return grammar.Literal(s), nil
	case grammar.ExprCharClass:
		c, err := readClass(r)
		if err != nil {
			return nil, err
		}
		return grammar.CharClass(c), nil
	case grammar.ExprSequence, grammar.ExprChoice:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		list := make([]*grammar.Expression, n)
		for i := range list {
			list[i], err = readExpr(r)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		if kind == grammar.ExprSequence {
			return grammar.Sequence(list...), nil
		}
		return grammar.Choice(list...), nil
	case grammar.ExprRepeat:
		inner, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		min, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		max, err := readMax(r)
		if err != nil {
			return nil, err
		}
		return grammar.Repeat(inner, int(min), max), nil
	case grammar.ExprDelimited:
		inner, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		sep, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		min, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		max, err := readMax(r)
		if err != nil {
			return nil, err
		}
		trailing, err := readBool(r)
		if err != nil {
			return nil, err
		}
		return grammar.Delimited(inner, sep, int(min), max, trailing), nil
	case grammar.ExprNegative, grammar.ExprPositive:
		pred, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		if kind == grammar.ExprNegative {
			return grammar.Negative(pred), nil
		}
		return grammar.Positive(pred), nil
	}
	return nil, fmt.Errorf("unknown expression kind tag %d", kindByte)
}

// writeClass walks a character class in pre-order. KindRef is flattened:
// the referenced class is encoded by value, since a blob round-trip only
// needs to preserve Contains semantics, not the teacher's pointer-sharing
// of large classes (e.g. the layout class) across constructors.
func writeClass(buf *bytes.Buffer, c *charclass.Class) error {
	if c == nil {
		return fmt.Errorf("nil character class")
	}
	if c.Kind == charclass.KindRef {
		return writeClass(buf, c.Ref)
	}
	buf.WriteByte(byte(c.Kind))
	switch c.Kind {
	case charclass.KindRangeInclusive, charclass.KindRange:
		writeUvarint(buf, uint64(c.From))
		writeUvarint(buf, uint64(c.To))
	case charclass.KindContained:
		writeUvarint(buf, uint64(len(c.Runes)))
		for _, r := range c.Runes {
			writeUvarint(buf, uint64(r))
		}
	case charclass.KindChoice:
		writeUvarint(buf, uint64(len(c.Parts)))
		for _, p := range c.Parts {
			if err := writeClass(buf, p); err != nil {
				return err
			}
		}
	case charclass.KindNot:
		return writeClass(buf, c.Inner)
	case charclass.KindNothing:
		// no payload
	default:
		return fmt.Errorf("unknown character class kind %d", c.Kind)
	}
	return nil
}

func readClass(r *bytes.Reader) (*charclass.Class, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("class kind tag: %w", err)
	}
	switch charclass.Kind(kindByte) {
	case charclass.KindRangeInclusive:
		from, to, err := readRuneRange(r)
		if err != nil {
			return nil, err
		}
		return charclass.RangeInclusive(from, to), nil
	case charclass.KindRange:
		from, to, err := readRuneRange(r)
		if err != nil {
			return nil, err
		}
		return charclass.Range(from, to), nil
	case charclass.KindContained:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		runes := make([]rune, n)
		for i := range runes {
			v, err := readUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("rune %d: %w", i, err)
			}
			runes[i] = rune(v)
		}
		return charclass.Contained(runes...), nil
	case charclass.KindChoice:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		parts := make([]*charclass.Class, n)
		for i := range parts {
			parts[i], err = readClass(r)
			if err != nil {
				return nil, fmt.Errorf("part %d: %w", i, err)
			}
		}
		return &charclass.Class{Kind: charclass.KindChoice, Parts: parts}, nil
	case charclass.KindNot:
		inner, err := readClass(r)
		if err != nil {
			return nil, err
		}
		return &charclass.Class{Kind: charclass.KindNot, Inner: inner}, nil
	case charclass.KindNothing:
		return charclass.Nothing, nil
	}
	return nil, fmt.Errorf("unknown character class kind tag %d", kindByte)
}

func readRuneRange(r *bytes.Reader) (rune, rune, error) {
	from, err := readUvarint(r)
	if err != nil {
		return 0, 0, fmt.Errorf("from: %w", err)
	}
	to, err := readUvarint(r)
	if err != nil {
		return 0, 0, fmt.Errorf("to: %w", err)
	}
	return rune(from), rune(to), nil
}

func writeMax(buf *bytes.Buffer, max *int) {
	if max == nil {
		writeBool(buf, false)
		return
	}
	writeBool(buf, true)
	writeUvarint(buf, uint64(*max))
}

func readMax(r *bytes.Reader) (*int, error) {
	has, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	v, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	n := int(v)
	return &n, nil
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("unexpected end of blob")
		}
		return 0, err
	}
	return v, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUvarint(r)
	if err != nil {
		return "", fmt.Errorf("length: %w", err)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", fmt.Errorf("bytes: %w", err)
	}
	return string(out), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
