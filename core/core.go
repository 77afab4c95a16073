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

// Package core models the desugared core grammar: a minimal set of seven
// orthogonal operators that the parsing engine evaluates directly.
package core

import (
	"github.com/jdonszelmann/lwbgo/charclass"
	"github.com/jdonszelmann/lwbgo/grammar"
)

// ExprKind discriminates the seven core operators.
type ExprKind int

const (
	ExprName ExprKind = iota
	ExprSequence
	ExprChoice
	ExprRepeat
	ExprCharClass
	ExprFlagNoLayout
	ExprFlagNoErrors
)

// Expression is a core-grammar fragment.
type Expression struct {
	Kind ExprKind

	// ExprName
	Ref string

	// ExprSequence / ExprChoice
	List []*Expression

	// ExprRepeat
	Inner *Expression
	Min   int
	Max   *int

	// ExprCharClass
	Class *charclass.Class

	// ExprFlagNoLayout / ExprFlagNoErrors (share Inner above)
	// ExprFlagNoErrors only:
	Label string
}

func Name(ref string) *Expression { return &Expression{Kind: ExprName, Ref: ref} }
func Sequence(xs ...*Expression) *Expression {
	return &Expression{Kind: ExprSequence, List: xs}
}
func Choice(xs ...*Expression) *Expression { return &Expression{Kind: ExprChoice, List: xs} }
func Repeat(inner *Expression, min int, max *int) *Expression {
	return &Expression{Kind: ExprRepeat, Inner: inner, Min: min, Max: max}
}
func CharClass(c *charclass.Class) *Expression {
	return &Expression{Kind: ExprCharClass, Class: c}
}
func FlagNoLayout(inner *Expression) *Expression {
	return &Expression{Kind: ExprFlagNoLayout, Inner: inner}
}
func FlagNoErrors(inner *Expression, label string) *Expression {
	return &Expression{Kind: ExprFlagNoErrors, Inner: inner, Label: label}
}

// Sort is a core non-terminal: a single Choice expression over the sort's
// (possibly labelled) constructor bodies, plus the sugared annotations that
// still matter post-desugar (only no-layout propagation is consumed by
// desugar itself; the rest ride along for resugaring/typed-tree use).
type Sort struct {
	Name        string
	Expr        *Expression
	Annotations grammar.Annotations
}

// Grammar bundles core sorts, the start sort name, and a synthesised
// "layout" sort (an empty-match Nothing class, if the source grammar did not
// define one, per spec.md §4.4).
type Grammar struct {
	Sorts     map[string]*Sort
	SortNames []string
	Start     string
}

// New builds an empty core grammar.
func New(start string) *Grammar {
	return &Grammar{Sorts: make(map[string]*Sort), Start: start}
}

// AddSort registers a core sort, preserving declaration order.
func (g *Grammar) AddSort(s *Sort) {
	if _, exists := g.Sorts[s.Name]; !exists {
		g.SortNames = append(g.SortNames, s.Name)
	}
	g.Sorts[s.Name] = s
}

// LayoutSortName is the reserved name of the layout sort.
const LayoutSortName = "layout"

// HasLayout reports whether the grammar defines its own layout sort.
func (g *Grammar) HasLayout() bool {
	_, ok := g.Sorts[LayoutSortName]
	return ok
}
