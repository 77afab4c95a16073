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

// Package recursion decides, for every Sort(S) reference that occurs inside
// a sort P, whether the typed-tree field it produces needs indirection
// (spec.md §4.8). It performs a breadth-first traversal of the grammar's
// sort graph starting at the start sort, carrying a parent chain of
// ancestor sort names for every visited sort. Sorts unreachable from the
// start sort are re-rooted and traversed afterwards so every sort ends up
// with a chain.
package recursion

import (
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/sets/hashset"

	"github.com/jdonszelmann/lwbgo/grammar"
)

// Chain is a persistent, tail-shared ancestor path: the sort names from the
// traversal root down to and including this sort. Several visited sorts can
// share the same prefix without copying it.
type Chain struct {
	Sort   string
	Parent *Chain
}

// Contains reports whether name appears anywhere in the chain, including
// this link itself.
func (c *Chain) Contains(name string) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Sort == name {
			return true
		}
	}
	return false
}

// Analysis is the result of analysing a grammar's sort graph.
type Analysis struct {
	chains map[string]*Chain
	// roots records, in traversal order, the root of each BFS tree: the
	// start sort, then one re-rooted sort per otherwise-unreached component.
	roots []string
}

// Analyze runs the breadth-first traversal described in spec.md §4.8 over
// g's sorts.
func Analyze(g *grammar.Grammar) *Analysis {
	a := &Analysis{chains: make(map[string]*Chain, len(g.SortNames))}

	visited := hashset.New()
	a.runFrom(g, g.Start, visited)
	a.roots = append(a.roots, g.Start)

	// Re-root unreached sorts, in declaration order, so the result is
	// deterministic across runs of the same grammar.
	for _, name := range g.SortNames {
		if visited.Contains(name) {
			continue
		}
		a.runFrom(g, name, visited)
		a.roots = append(a.roots, name)
	}

	return a
}

// runFrom performs one BFS tree rooted at root, skipping sorts already in
// visited and adding every sort it reaches to it.
func (a *Analysis) runFrom(g *grammar.Grammar, root string, visited *hashset.Set) {
	if visited.Contains(root) {
		return
	}
	if _, ok := g.Sorts[root]; !ok {
		return
	}

	queue := arraylist.New()
	rootChain := &Chain{Sort: root}
	visited.Add(root)
	a.chains[root] = rootChain
	queue.Add(rootChain)

	for !queue.Empty() {
		front, _ := queue.Get(0)
		queue.Remove(0)
		cur := front.(*Chain)

		for _, next := range referencedSorts(g, cur.Sort) {
			if visited.Contains(next) {
				continue
			}
			if _, ok := g.Sorts[next]; !ok {
				continue
			}
			visited.Add(next)
			nextChain := &Chain{Sort: next, Parent: cur}
			a.chains[next] = nextChain
			queue.Add(nextChain)
		}
	}
}

// NeedsIndirection reports whether a Sort(child) field occurring inside
// sort parent's body must be represented with indirection: true iff child
// appears in parent's own ancestor chain (including parent itself, which
// covers direct self-recursion).
func (a *Analysis) NeedsIndirection(parent, child string) bool {
	chain, ok := a.chains[parent]
	if !ok {
		// parent was never reached by any traversal (shouldn't happen once
		// re-rooting has run over every declared sort); be conservative.
		return true
	}
	return chain.Contains(child)
}

// Chain returns the ancestor chain recorded for name, or nil if name was
// never visited (e.g. it does not exist in the grammar).
func (a *Analysis) Chain(name string) *Chain {
	return a.chains[name]
}

// Roots returns the BFS root sorts in traversal order: the start sort
// first, then one re-rooted sort per otherwise-unreachable component.
func (a *Analysis) Roots() []string {
	return a.roots
}

// referencedSorts returns the distinct sort names referenced anywhere in
// sortName's constructors, in order of first occurrence (constructors and
// sub-expressions are slices, so the order is deterministic).
func referencedSorts(g *grammar.Grammar, sortName string) []string {
	s, ok := g.Sorts[sortName]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	var walk func(e *grammar.Expression)
	walk = func(e *grammar.Expression) {
		if e == nil {
			return
		}
		switch e.Kind {
		case grammar.ExprSort:
			if !seen[e.SortName] {
				seen[e.SortName] = true
				out = append(out, e.SortName)
			}
		case grammar.ExprSequence, grammar.ExprChoice:
			for _, sub := range e.List {
				walk(sub)
			}
		case grammar.ExprRepeat:
			walk(e.Inner)
		case grammar.ExprDelimited:
			walk(e.Inner)
			walk(e.Sep)
		case grammar.ExprNegative, grammar.ExprPositive:
			walk(e.Pred)
		}
	}
	for _, ctor := range s.Constructors {
		walk(ctor.Expr)
	}
	return out
}
