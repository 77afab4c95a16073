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

// Package pair is the raw, core-grammar-shaped parse tree the engine
// produces: Name/List/Choice/Empty/Error nodes. Name, Sequence, Repeat and
// Choice materialise a node of their own, CharClass yields an Empty leaf, and
// the flag operators pass their inner result through unchanged (see package
// engine). Resugaring (package resugar) projects a
// Pair tree back into a shape that follows the sugared grammar.
package pair

import "github.com/jdonszelmann/lwbgo/source"

// Kind discriminates the five raw pair shapes.
type Kind int

const (
	KindName Kind = iota
	KindList
	KindChoice
	KindEmpty
	KindError
)

// Pair is one node of the raw parse tree.
type Pair struct {
	Kind Kind
	Span source.Span

	// KindName: which sort this node names, and its single child.
	SortName string
	Child    *Pair

	// KindList: children in source order.
	Children []*Pair

	// KindChoice: which alternative fired, and that alternative's result.
	Index int
}

func Name(span source.Span, sortName string, child *Pair) *Pair {
	return &Pair{Kind: KindName, Span: span, SortName: sortName, Child: child}
}

func List(span source.Span, children []*Pair) *Pair {
	return &Pair{Kind: KindList, Span: span, Children: children}
}

func Choice(span source.Span, index int, child *Pair) *Pair {
	return &Pair{Kind: KindChoice, Span: span, Index: index, Child: child}
}

func Empty(span source.Span) *Pair {
	return &Pair{Kind: KindEmpty, Span: span}
}

func Error(span source.Span) *Pair {
	return &Pair{Kind: KindError, Span: span}
}
