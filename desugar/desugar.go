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

// Package desugar rewrites a sugared grammar (package grammar) into the
// minimal seven-operator core grammar (package core) that the engine
// evaluates, per spec.md §4.4.
package desugar

import (
	"fmt"

	"github.com/jdonszelmann/lwbgo/charclass"
	"github.com/jdonszelmann/lwbgo/core"
	"github.com/jdonszelmann/lwbgo/grammar"
)

// Desugar rewrites g into a core grammar. It fails if g uses Negative or
// Positive lookahead, which are not yet implemented (spec.md §1, §3, §4.4).
func Desugar(g *grammar.Grammar) (*core.Grammar, error) {
	out := core.New(g.Start)
	for _, name := range g.SortNames {
		s := g.Sorts[name]
		expr, err := desugarSort(s)
		if err != nil {
			return nil, fmt.Errorf("desugar: sort %q: %w", name, err)
		}
		out.AddSort(&core.Sort{Name: s.Name, Expr: expr, Annotations: s.Annotations})
	}
	if !out.HasLayout() {
		out.AddSort(&core.Sort{
			Name: core.LayoutSortName,
			Expr: core.CharClass(charclass.Nothing),
		})
	}
	return out, nil
}

// desugarSort turns a sort's constructors into a single Choice expression,
// each alternative wrapped in FlagNoLayout when the constructor (or the
// sort) carries the no-layout annotation, and then labelled "sort.ctor" via
// an outermost FlagNoErrors.
func desugarSort(s *grammar.Sort) (*core.Expression, error) {
	alts := make([]*core.Expression, 0, len(s.Constructors))
	for _, c := range s.Constructors {
		body, err := desugarExpr(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("constructor %q: %w", c.Name, err)
		}
		label := s.Name + "." + c.Name
		if s.Annotations.Has(grammar.AnnoNoLayout) || c.Annotations.Has(grammar.AnnoNoLayout) {
			body = core.FlagNoLayout(body)
		}
		body = core.FlagNoErrors(body, label)
		alts = append(alts, body)
	}
	return core.Choice(alts...), nil
}

func desugarExpr(e *grammar.Expression) (*core.Expression, error) {
	switch e.Kind {
	case grammar.ExprSort:
		return core.Name(e.SortName), nil
	case grammar.ExprSequence:
		return desugarList(e.List, core.Sequence)
	case grammar.ExprChoice:
		return nil, fmt.Errorf("desugar: Choice cannot appear in an expression position; " +
			"only sort-level alternation (multiple constructors) is allowed")
	case grammar.ExprRepeat:
		inner, err := desugarExpr(e.Inner)
		if err != nil {
			return nil, err
		}
		return core.Repeat(inner, e.Min, e.Max), nil
	case grammar.ExprCharClass:
		return core.CharClass(e.Class), nil
	case grammar.ExprLiteral:
		return desugarLiteral(e.Literal), nil
	case grammar.ExprDelimited:
		return desugarDelimited(e)
	case grammar.ExprNegative, grammar.ExprPositive:
		return nil, fmt.Errorf("desugar: Negative/Positive lookahead is not supported " +
			"(spec.md §1 Non-goals); reject the grammar instead of mis-parsing")
	}
	return nil, fmt.Errorf("desugar: unknown expression kind %d", e.Kind)
}

func desugarList(xs []*grammar.Expression, build func(...*core.Expression) *core.Expression) (*core.Expression, error) {
	out := make([]*core.Expression, len(xs))
	for i, x := range xs {
		d, err := desugarExpr(x)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return build(out...), nil
}

// desugarLiteral rewrites Literal(s) into
// FlagNoLayout(FlagNoErrors(Sequence(map char-cc s.chars), "'"+s+"'")).
func desugarLiteral(s string) *core.Expression {
	runes := []rune(s)
	parts := make([]*core.Expression, len(runes))
	for i, r := range runes {
		parts[i] = core.CharClass(charclass.Single(r))
	}
	seq := core.Sequence(parts...)
	label := "'" + s + "'"
	return core.FlagNoLayout(core.FlagNoErrors(seq, label))
}

// desugarDelimited rewrites a Delimited{x, sep, lo, hi, trailing} expression
// into the core-operator equivalent described in spec.md §4.4:
//
//	Sequence[
//	  Choice[
//	    Sequence[x, Repeat{Sequence[sep, x], lo-1 saturating, hi-1 saturating}],
//	    Sequence[]            (only when lo == 0),
//	  ],
//	  optional Repeat[sep, 0, 1]  (only when trailing),
//	]
func desugarDelimited(e *grammar.Expression) (*core.Expression, error) {
	inner, err := desugarExpr(e.Inner)
	if err != nil {
		return nil, err
	}
	sep, err := desugarExpr(e.Sep)
	if err != nil {
		return nil, err
	}
	tailMin := saturatingSub(e.Min, 1)
	var tailMax *int
	if e.Max != nil {
		m := saturatingSub(*e.Max, 1)
		tailMax = &m
	}
	oneOrMore := core.Sequence(inner, core.Repeat(core.Sequence(sep, inner), tailMin, tailMax))
	var choice *core.Expression
	if e.Min == 0 {
		choice = core.Choice(oneOrMore, core.Sequence())
	} else {
		choice = core.Choice(oneOrMore)
	}
	if !e.Trailing {
		return core.Sequence(choice), nil
	}
	one := 1
	return core.Sequence(choice, core.Repeat(sep, 0, &one)), nil
}

func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}
