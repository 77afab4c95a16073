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

// Package resugar projects the engine's raw, core-grammar-shaped parse tree
// back into a tree shaped by the sugared grammar a user actually wrote
// (spec.md §4.6). The typed-tree builder (package typedtree) consumes this
// shape, never the raw one.
package resugar

import (
	"fmt"

	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/pair"
	"github.com/jdonszelmann/lwbgo/source"
)

// ExprKind discriminates the resugared expression shapes, one per sugared
// operator that can materialise content (Literal/CharClass collapse to a
// single Empty leaf; Negative/Positive never appear here, desugar already
// rejects them).
type ExprKind int

const (
	ExprEmpty ExprKind = iota
	ExprSort
	ExprSequence
	ExprChoice
	ExprRepeat
	ExprDelimited
	ExprError
)

// PairExpr is a resugared expression-position result.
type PairExpr struct {
	Kind ExprKind
	Span source.Span

	Sort *PairSort // ExprSort

	List []*PairExpr // ExprSequence / ExprRepeat / ExprDelimited

	Index  int       // ExprChoice
	Choice *PairExpr // ExprChoice
}

// PairSort is a resugared sort invocation: which constructor fired, and the
// resugared shape of its body.
type PairSort struct {
	Span     source.Span
	SortName string
	Ctor     string
	Body     *PairExpr
}

// Resugar projects the raw tree p (as produced by engine.Parse for g's start
// sort) into a PairSort following g's shape.
func Resugar(p *pair.Pair, g *grammar.Grammar) (*PairSort, error) {
	return resugarSort(p, g.Start, g)
}

func resugarSort(p *pair.Pair, sortName string, g *grammar.Grammar) (*PairSort, error) {
	if p.Kind == pair.KindError {
		return &PairSort{Span: p.Span, SortName: sortName, Body: &PairExpr{Kind: ExprError, Span: p.Span}}, nil
	}
	if p.Kind != pair.KindChoice {
		return nil, fmt.Errorf("resugar: sort %q: expected Choice or Error pair, got kind %d", sortName, p.Kind)
	}
	sort, ok := g.Sorts[sortName]
	if !ok {
		return nil, fmt.Errorf("resugar: unknown sort %q", sortName)
	}
	if p.Index < 0 || p.Index >= len(sort.Constructors) {
		return nil, fmt.Errorf("resugar: sort %q: constructor index %d out of range (have %d)",
			sortName, p.Index, len(sort.Constructors))
	}
	ctor := sort.Constructors[p.Index]
	body, err := resugarExpr(p.Child, ctor.Expr, g)
	if err != nil {
		return nil, fmt.Errorf("resugar: sort %q constructor %q: %w", sortName, ctor.Name, err)
	}
	return &PairSort{Span: p.Span, SortName: sortName, Ctor: ctor.Name, Body: body}, nil
}

func resugarExpr(p *pair.Pair, e *grammar.Expression, g *grammar.Grammar) (*PairExpr, error) {
	if p.Kind == pair.KindError {
		return &PairExpr{Kind: ExprError, Span: p.Span}, nil
	}
	switch e.Kind {
	case grammar.ExprSort:
		if p.Kind != pair.KindName {
			return nil, fmt.Errorf("resugar: Sort(%s): expected Name pair, got kind %d", e.SortName, p.Kind)
		}
		sub, err := resugarSort(p.Child, e.SortName, g)
		if err != nil {
			return nil, err
		}
		return &PairExpr{Kind: ExprSort, Span: p.Span, Sort: sub}, nil

	case grammar.ExprLiteral, grammar.ExprCharClass:
		// Both collapse to a single span-only leaf regardless of whether the
		// raw tree represents them as one Empty pair (CharClass) or a List
		// of per-rune Empty pairs (a desugared multi-character Literal).
		return &PairExpr{Kind: ExprEmpty, Span: p.Span}, nil

	case grammar.ExprSequence:
		if p.Kind != pair.KindList || len(p.Children) != len(e.List) {
			return nil, fmt.Errorf("resugar: Sequence: shape mismatch (raw has %d children, grammar expects %d)",
				len(p.Children), len(e.List))
		}
		list := make([]*PairExpr, len(e.List))
		for i, sub := range e.List {
			r, err := resugarExpr(p.Children[i], sub, g)
			if err != nil {
				return nil, err
			}
			list[i] = r
		}
		return &PairExpr{Kind: ExprSequence, Span: p.Span, List: list}, nil

	case grammar.ExprChoice:
		if p.Kind != pair.KindChoice {
			return nil, fmt.Errorf("resugar: Choice: expected Choice pair, got kind %d", p.Kind)
		}
		if p.Index < 0 || p.Index >= len(e.List) {
			return nil, fmt.Errorf("resugar: Choice: index %d out of range (have %d alternatives)", p.Index, len(e.List))
		}
		inner, err := resugarExpr(p.Child, e.List[p.Index], g)
		if err != nil {
			return nil, err
		}
		return &PairExpr{Kind: ExprChoice, Span: p.Span, Index: p.Index, Choice: inner}, nil

	case grammar.ExprRepeat:
		if p.Kind != pair.KindList {
			return nil, fmt.Errorf("resugar: Repeat: expected List pair, got kind %d", p.Kind)
		}
		list := make([]*PairExpr, len(p.Children))
		for i, c := range p.Children {
			r, err := resugarExpr(c, e.Inner, g)
			if err != nil {
				return nil, err
			}
			list[i] = r
		}
		return &PairExpr{Kind: ExprRepeat, Span: p.Span, List: list}, nil

	case grammar.ExprDelimited:
		return resugarDelimited(p, e, g)

	case grammar.ExprNegative, grammar.ExprPositive:
		return nil, fmt.Errorf("resugar: Negative/Positive lookahead cannot appear in a resugared tree " +
			"(desugar rejects it at grammar-prep time)")
	}
	return nil, fmt.Errorf("resugar: unknown expression kind %d", e.Kind)
}

// resugarDelimited unwraps the two-level Choice/Sequence shape that desugar
// produced for Delimited{inner, sep, min, max, trailing} (spec.md §4.4, §4.6)
// back into a flat list of resugared `inner` results in source order. The
// optional trailing-separator repeat never contributes a field (separators
// are never materialised, matching Literal's no-field rule).
func resugarDelimited(p *pair.Pair, e *grammar.Expression, g *grammar.Grammar) (*PairExpr, error) {
	if p.Kind != pair.KindList || len(p.Children) == 0 {
		return nil, fmt.Errorf("resugar: Delimited: expected non-empty outer Sequence pair, got kind %d", p.Kind)
	}
	choice := p.Children[0]
	if choice.Kind != pair.KindChoice {
		return nil, fmt.Errorf("resugar: Delimited: expected inner Choice pair, got kind %d", choice.Kind)
	}

	var elems []*PairExpr
	switch choice.Index {
	case 0:
		oneOrMore := choice.Child
		if oneOrMore.Kind != pair.KindList || len(oneOrMore.Children) != 2 {
			return nil, fmt.Errorf("resugar: Delimited: malformed one-or-more shape")
		}
		first, err := resugarExpr(oneOrMore.Children[0], e.Inner, g)
		if err != nil {
			return nil, err
		}
		elems = append(elems, first)

		rest := oneOrMore.Children[1]
		if rest.Kind != pair.KindList {
			return nil, fmt.Errorf("resugar: Delimited: expected List pair for repeated tail")
		}
		for _, pairStep := range rest.Children {
			if pairStep.Kind != pair.KindList || len(pairStep.Children) != 2 {
				return nil, fmt.Errorf("resugar: Delimited: malformed separator/element pair")
			}
			el, err := resugarExpr(pairStep.Children[1], e.Inner, g)
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
		}
	case 1:
		// The lo==0 empty alternative fired: zero elements.
	default:
		return nil, fmt.Errorf("resugar: Delimited: unexpected choice index %d", choice.Index)
	}

	return &PairExpr{Kind: ExprDelimited, Span: p.Span, List: elems}, nil
}
