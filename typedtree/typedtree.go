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

// Package typedtree builds the final typed tree from a resugared pair tree
// (spec.md §4.7). There is no per-grammar code generation: every sort
// becomes a record (one constructor) or a tagged variant (several
// constructors) of the same runtime Node type, with field shapes resolved
// according to the grammar rather than a statically generated struct.
package typedtree

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/recursion"
	"github.com/jdonszelmann/lwbgo/resugar"
	"github.com/jdonszelmann/lwbgo/source"
)

// Kind discriminates the three node shapes a sort's constructor can produce.
type Kind int

const (
	KindRecord Kind = iota
	KindString
	KindError
)

// Meta is the information every constructed node carries, stamped by a
// MetaGen. The default generator allocates ids in depth-first pre-order.
type Meta struct {
	Span source.Span
	ID   int
}

// MetaGen is the injectable node-info generator spec.md §4.7 requires.
type MetaGen interface {
	Next(span source.Span) Meta
}

// SpanIDGen is the minimum generator spec.md §4.7 asks every implementation
// to support: span plus a unique, depth-first pre-order id.
type SpanIDGen struct {
	next int
}

func NewSpanIDGen() *SpanIDGen { return &SpanIDGen{} }

func (g *SpanIDGen) Next(span source.Span) Meta {
	id := g.next
	g.next++
	return Meta{Span: span, ID: id}
}

// Node is a typed-tree node: a record (possibly one of several constructors
// of a variant sort), a single-string leaf, or an error placeholder.
type Node struct {
	Meta     Meta
	Kind     Kind
	SortName string
	Ctor     string

	Fields []*Field // KindRecord only, one per materialised sub-expression
	Text   string   // KindString only, the constructor's full matched text
}

// FieldKind discriminates the field shapes spec.md §4.7 lists.
type FieldKind int

const (
	FieldBool FieldKind = iota
	FieldChild
	FieldOption
	FieldTuple
	FieldList
	FieldCount
)

// Field is one materialised slot of a record node.
type Field struct {
	Kind FieldKind

	Bool bool // FieldBool

	Child *Node // FieldChild
	Boxed bool  // FieldChild: recursion.Analysis required indirection here

	Present bool   // FieldOption
	Option  *Field // FieldOption, populated only when Present

	Tuple []*Field // FieldTuple: a nested multi-field group in a single slot

	List []*Field // FieldList: one element per repetition

	Count int // FieldCount: repetitions with no per-element content
}

// Build constructs the typed tree for p, using the default pre-order
// span/id generator.
func Build(p *resugar.PairSort, g *grammar.Grammar, rec *recursion.Analysis) (*Node, error) {
	return BuildWithMetaGen(p, g, rec, NewSpanIDGen())
}

// BuildWithMetaGen is Build with an injectable MetaGen, for callers that
// want node ids scoped differently (e.g. per incremental re-parse).
func BuildWithMetaGen(p *resugar.PairSort, g *grammar.Grammar, rec *recursion.Analysis, gen MetaGen) (*Node, error) {
	log.V(2).Infof("typedtree: building from sort %q", p.SortName)
	return buildSort(p, g, rec, gen)
}

func buildSort(p *resugar.PairSort, g *grammar.Grammar, rec *recursion.Analysis, gen MetaGen) (*Node, error) {
	if p.Body.Kind == resugar.ExprError {
		return &Node{Meta: gen.Next(p.Span), Kind: KindError, SortName: p.SortName}, nil
	}

	sort, ok := g.Sorts[p.SortName]
	if !ok {
		return nil, fmt.Errorf("typedtree: unknown sort %q", p.SortName)
	}
	var ctor *grammar.Constructor
	for _, c := range sort.Constructors {
		if c.Name == p.Ctor {
			ctor = c
			break
		}
	}
	if ctor == nil {
		return nil, fmt.Errorf("typedtree: sort %q has no constructor %q", p.SortName, p.Ctor)
	}

	meta := gen.Next(p.Span)

	if ctor.Annotations.Has(grammar.AnnoError) {
		log.V(3).Infof("typedtree: %s.%s is error(_), surfacing placeholder", p.SortName, ctor.Name)
		return &Node{Meta: meta, Kind: KindError, SortName: p.SortName, Ctor: ctor.Name}, nil
	}

	if ctor.Annotations.Has(grammar.AnnoSingleString) {
		return &Node{Meta: meta, Kind: KindString, SortName: p.SortName, Ctor: ctor.Name, Text: p.Span.Text()}, nil
	}

	fields, err := buildFields(p.Body, ctor.Expr, g, rec, p.SortName, gen)
	if err != nil {
		return nil, fmt.Errorf("typedtree: sort %q constructor %q: %w", p.SortName, ctor.Name, err)
	}

	node := &Node{Meta: meta, Kind: KindRecord, SortName: p.SortName, Ctor: ctor.Name, Fields: fields}

	if sort.Annotations.Has(grammar.AnnoHidden) {
		if len(fields) != 1 || fields[0].Kind != FieldChild {
			return nil, fmt.Errorf("typedtree: hidden sort %q must materialise exactly one child field, got %d field(s)",
				p.SortName, len(fields))
		}
		return fields[0].Child, nil
	}

	return node, nil
}

// buildFields resolves e (a constructor body, or any sub-expression used as
// a field-producing position) into its ordered list of materialised
// fields. A bare Sequence contributes one field per materialised child
// (spec.md §4.7); any other expression contributes zero or one field.
func buildFields(p *resugar.PairExpr, e *grammar.Expression, g *grammar.Grammar, rec *recursion.Analysis, parentSort string, gen MetaGen) ([]*Field, error) {
	if e.Kind == grammar.ExprSequence {
		if p.Kind != resugar.ExprSequence || len(p.List) != len(e.List) {
			return nil, fmt.Errorf("typedtree: Sequence shape mismatch (raw has %d children, grammar expects %d)",
				len(p.List), len(e.List))
		}
		var fields []*Field
		for i, sub := range e.List {
			f, err := fieldFor(p.List[i], sub, g, rec, parentSort, gen)
			if err != nil {
				return nil, err
			}
			if f != nil {
				fields = append(fields, f)
			}
		}
		return fields, nil
	}
	f, err := fieldFor(p, e, g, rec, parentSort, gen)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	return []*Field{f}, nil
}

// fieldFor resolves e into the single field value it contributes when used
// in one field-producing slot (an element of a Sequence, the inner of a
// Repeat/Delimited, etc).
func fieldFor(p *resugar.PairExpr, e *grammar.Expression, g *grammar.Grammar, rec *recursion.Analysis, parentSort string, gen MetaGen) (*Field, error) {
	switch e.Kind {
	case grammar.ExprLiteral, grammar.ExprNegative, grammar.ExprPositive:
		return nil, nil

	case grammar.ExprCharClass:
		return &Field{Kind: FieldBool, Bool: true}, nil

	case grammar.ExprSort:
		if p.Kind != resugar.ExprSort {
			return nil, fmt.Errorf("typedtree: Sort(%s): expected a resugared sort reference, got kind %d", e.SortName, p.Kind)
		}
		child, err := buildSort(p.Sort, g, rec, gen)
		if err != nil {
			return nil, err
		}
		return &Field{Kind: FieldChild, Child: child, Boxed: rec.NeedsIndirection(parentSort, e.SortName)}, nil

	case grammar.ExprSequence:
		fields, err := buildFields(p, e, g, rec, parentSort, gen)
		if err != nil {
			return nil, err
		}
		switch len(fields) {
		case 0:
			return nil, nil
		case 1:
			return fields[0], nil
		default:
			return &Field{Kind: FieldTuple, Tuple: fields}, nil
		}

	case grammar.ExprRepeat:
		if p.Kind != resugar.ExprRepeat {
			return nil, fmt.Errorf("typedtree: Repeat: expected a resugared repeat, got kind %d", p.Kind)
		}
		return repeatedField(p.List, e.Min, e.Max, e.Inner, g, rec, parentSort, gen)

	case grammar.ExprDelimited:
		if p.Kind != resugar.ExprDelimited {
			return nil, fmt.Errorf("typedtree: Delimited: expected a resugared delimited list, got kind %d", p.Kind)
		}
		return repeatedField(p.List, e.Min, e.Max, e.Inner, g, rec, parentSort, gen)

	case grammar.ExprChoice:
		// Rejected earlier, at grammar-compile time, by desugar.desugarExpr;
		// a Choice reaching here would mean a grammar that never should have
		// compiled.
		return nil, fmt.Errorf("typedtree: Choice cannot appear in an expression position; only sort-level alternation is allowed")
	}
	return nil, fmt.Errorf("typedtree: unknown expression kind %d", e.Kind)
}

// repeatedField applies spec.md §4.7's Repeat/Delimited field-shape rules
// to an already-resugared flat element list: `{0,1}` bounds with a
// zero-arity inner become a boolean presence flag; `{0,1}` with a
// one-field inner becomes an option of that field; `{0,1}` with a
// multi-field inner becomes an option of a tuple; any wider bound becomes
// a count (zero-arity inner) or a list of per-element fields.
func repeatedField(elems []*resugar.PairExpr, min int, max *int, inner *grammar.Expression, g *grammar.Grammar, rec *recursion.Analysis, parentSort string, gen MetaGen) (*Field, error) {
	arity := staticArity(inner)
	optional := min == 0 && max != nil && *max == 1

	if optional {
		present := len(elems) == 1
		if arity == 0 {
			return &Field{Kind: FieldBool, Bool: present}, nil
		}
		f := &Field{Kind: FieldOption, Present: present}
		if present {
			innerField, err := fieldFor(elems[0], inner, g, rec, parentSort, gen)
			if err != nil {
				return nil, err
			}
			f.Option = innerField
		}
		return f, nil
	}

	if arity == 0 {
		return &Field{Kind: FieldCount, Count: len(elems)}, nil
	}

	list := make([]*Field, len(elems))
	for i, el := range elems {
		f, err := fieldFor(el, inner, g, rec, parentSort, gen)
		if err != nil {
			return nil, err
		}
		list[i] = f
	}
	return &Field{Kind: FieldList, List: list}, nil
}

// staticArity counts how many fields e would contribute to an enclosing
// Sequence, without walking any actual parse result. It is used to decide
// a Repeat/Delimited element's shape before we know whether the element
// was even present (the `{0,1}` absent case still needs a definite shape).
func staticArity(e *grammar.Expression) int {
	switch e.Kind {
	case grammar.ExprLiteral, grammar.ExprNegative, grammar.ExprPositive:
		return 0
	case grammar.ExprCharClass, grammar.ExprSort, grammar.ExprRepeat, grammar.ExprDelimited:
		return 1
	case grammar.ExprSequence:
		n := 0
		for _, sub := range e.List {
			n += staticArity(sub)
		}
		return n
	default:
		return 0
	}
}
