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

// Package grammar models a grammar as authored: sorts with one or more
// constructors, built from the rich sugared operator set (sequence, choice,
// repeat, delimited lists, literals, character classes, sort references and
// lookahead).
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdonszelmann/lwbgo/charclass"
)

// ExprKind discriminates the sugared expression alternatives.
type ExprKind int

const (
	ExprSort ExprKind = iota
	ExprLiteral
	ExprCharClass
	ExprSequence
	ExprChoice
	ExprRepeat
	ExprDelimited
	ExprNegative
	ExprPositive
)

// Expression is a grammar fragment, the right-hand side of a constructor (or
// a sub-expression thereof). Only the fields relevant to Kind are populated,
// following the same one-active-field-per-kind idiom the teacher's Term type
// uses for PEG terms.
type Expression struct {
	Kind ExprKind

	// ExprSort
	SortName string

	// ExprLiteral
	Literal string

	// ExprCharClass
	Class *charclass.Class

	// ExprSequence / ExprChoice
	List []*Expression

	// ExprRepeat / ExprDelimited (shared)
	Inner *Expression
	Min   int
	Max   *int // nil means unbounded

	// ExprDelimited only
	Sep      *Expression
	Trailing bool

	// ExprNegative / ExprPositive
	Pred *Expression
}

func Sort(name string) *Expression           { return &Expression{Kind: ExprSort, SortName: name} }
func Literal(s string) *Expression           { return &Expression{Kind: ExprLiteral, Literal: s} }
func CharClass(c *charclass.Class) *Expression { return &Expression{Kind: ExprCharClass, Class: c} }
func Sequence(xs ...*Expression) *Expression { return &Expression{Kind: ExprSequence, List: xs} }
func Choice(xs ...*Expression) *Expression   { return &Expression{Kind: ExprChoice, List: xs} }

func Repeat(inner *Expression, min int, max *int) *Expression {
	return &Expression{Kind: ExprRepeat, Inner: inner, Min: min, Max: max}
}

func Delimited(inner, sep *Expression, min int, max *int, trailing bool) *Expression {
	return &Expression{Kind: ExprDelimited, Inner: inner, Sep: sep, Min: min, Max: max, Trailing: trailing}
}

func Negative(inner *Expression) *Expression { return &Expression{Kind: ExprNegative, Pred: inner} }
func Positive(inner *Expression) *Expression { return &Expression{Kind: ExprPositive, Pred: inner} }

// String renders the expression using the grammar source's concrete syntax,
// following generator/peg.go's Term.String idiom of one case per variant.
func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprSort:
		return e.SortName
	case ExprLiteral:
		return strconv.Quote(e.Literal)
	case ExprCharClass:
		return e.Class.String()
	case ExprSequence:
		return joinExprs(e.List, " ")
	case ExprChoice:
		return joinExprs(e.List, " | ")
	case ExprRepeat:
		return e.Inner.String() + repeatSuffix(e.Min, e.Max)
	case ExprDelimited:
		trailing := ""
		if e.Trailing {
			trailing = ", trailing"
		}
		return fmt.Sprintf("delimited(%s, %s, %s%s)", e.Inner, e.Sep, countSuffix(e.Min, e.Max), trailing)
	case ExprNegative:
		return "!" + e.Pred.String()
	case ExprPositive:
		return "&" + e.Pred.String()
	}
	return "<invalid>"
}

func joinExprs(xs []*Expression, sep string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, sep)
}

func repeatSuffix(min int, max *int) string {
	switch {
	case min == 0 && max == nil:
		return "*"
	case min == 1 && max == nil:
		return "+"
	case min == 0 && max != nil && *max == 1:
		return "?"
	case max == nil:
		return fmt.Sprintf("{%d,}", min)
	case min == *max:
		return fmt.Sprintf("{%d}", min)
	default:
		return fmt.Sprintf("{%d,%d}", min, *max)
	}
}

func countSuffix(min int, max *int) string {
	switch {
	case min == 0 && max == nil:
		return "*"
	case min == 1 && max == nil:
		return "+"
	case max == nil:
		return fmt.Sprintf("%d..", min)
	case min == *max:
		return strconv.Itoa(min)
	default:
		return fmt.Sprintf("%d..%d", min, *max)
	}
}

// Annotation names recognised by the workbench (spec.md §3).
const (
	AnnoNoLayout       = "no-layout"
	AnnoNoPrettyPrint  = "no-pretty-print"
	AnnoInjection      = "injection"
	AnnoSingleString   = "single-string"
	AnnoHidden         = "hidden"
	AnnoError          = "error"
	AnnoPartOf         = "part-of"
)

// Annotations is a closed-set annotation bag attached to a sort or
// constructor. Value-carrying annotations (error(msg), part-of(other)) store
// their argument as the map value.
type Annotations map[string]string

// Has reports whether the annotation is present.
func (a Annotations) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Arg returns the argument of a value-carrying annotation.
func (a Annotations) Arg(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Constructor is a named alternative within a sort.
type Constructor struct {
	Name       string
	Expr       *Expression
	Annotations Annotations
	Docs       string
	// DontPutInAST is set by grammar simplification (§4.3) when this
	// constructor's Sort(S) expression was inlined by a part-of merge.
	DontPutInAST bool
}

// Sort is a named non-terminal: one or more constructors.
type Sort struct {
	Name        string
	Constructors []*Constructor
	Annotations Annotations
	Docs        string
}

// Grammar is the complete sugared grammar: a mapping of sorts, the start
// sort, and (once simplified) the merge history.
type Grammar struct {
	Sorts map[string]*Sort
	// SortNames preserves declaration order of Sorts (pre-merge, if
	// simplification happened), for deterministic iteration/diagnostics.
	SortNames []string
	Start     string

	// Merges maps an old (folded) sort name to the surviving sort it was
	// merged into. Empty until Simplify runs.
	Merges map[string]string
}

// New builds an empty grammar with the given start sort name.
func New(start string) *Grammar {
	return &Grammar{
		Sorts: make(map[string]*Sort),
		Start: start,
		Merges: make(map[string]string),
	}
}

// AddSort registers a sort, preserving declaration order.
func (g *Grammar) AddSort(s *Sort) {
	if _, exists := g.Sorts[s.Name]; !exists {
		g.SortNames = append(g.SortNames, s.Name)
	}
	g.Sorts[s.Name] = s
}

// Simplified reports whether this grammar has already been through
// simplification (spec.md §4.3 step 1: "reject if already simplified").
func (g *Grammar) Simplified() bool {
	return len(g.Merges) > 0
}

// Resolve follows the merge table for a sort name to its final surviving
// name. Names never merged map to themselves.
func (g *Grammar) Resolve(name string) string {
	seen := map[string]bool{}
	for {
		next, ok := g.Merges[name]
		if !ok || seen[next] {
			return name
		}
		seen[name] = true
		name = next
	}
}
