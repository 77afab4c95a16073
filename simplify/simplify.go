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

// Package simplify implements grammar canonicalisation: resolving part-of
// merges into a single surviving sort per merge chain, per spec.md §4.3.
package simplify

import (
	"fmt"

	"github.com/cnf/structhash"
	log "github.com/golang/glog"

	"github.com/jdonszelmann/lwbgo/grammar"
)

// Simplify canonicalises g in place-equivalent fashion (it returns a new
// Grammar value; the input is not mutated) and returns the result. It is an
// error to simplify an already-simplified grammar (spec.md §4.3 step 1).
func Simplify(g *grammar.Grammar) (*grammar.Grammar, error) {
	if g.Simplified() {
		fp, _ := Fingerprint(g)
		return nil, fmt.Errorf("simplify: grammar already simplified (fingerprint %s)", fp)
	}

	order, err := topoOrder(g)
	if err != nil {
		return nil, err
	}

	if err := verifyPartOfConnections(g); err != nil {
		return nil, err
	}

	if partOf, ok := partOfTarget(g.Sorts[g.Start]); ok {
		return nil, fmt.Errorf("simplify: start sort %q cannot be part-of %q", g.Start, partOf)
	}

	out := &grammar.Grammar{
		Sorts:     make(map[string]*grammar.Sort),
		SortNames: append([]string(nil), g.SortNames...),
		Start:     g.Start,
		Merges:    make(map[string]string),
	}
	for name, s := range g.Sorts {
		out.Sorts[name] = copySort(s)
	}

	// Merge in reverse topological order: process part-of children before
	// the parents disappear from iteration, folding each child into its
	// parent exactly once.
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		sort := out.Sorts[name]
		parentName, ok := partOfTarget(sort)
		if !ok {
			continue
		}
		parent := out.Sorts[parentName]
		mergeInto(parent, sort)
		delete(out.Sorts, name)
		out.Merges[name] = parentName
		log.V(2).Infof("simplify: merged sort %q into %q", name, parentName)
	}

	// Rewrite every Sort(name) reference through the transitive closure of
	// the merge table.
	for _, s := range out.Sorts {
		for _, c := range s.Constructors {
			rewriteRefs(c.Expr, out)
		}
	}

	log.V(1).Infof("simplify: %d sorts merged away, %d sorts remain", len(out.Merges), len(out.Sorts))
	return out, nil
}

// Fingerprint returns a short content hash of a grammar's merge table and
// sort set, used to make the "already simplified" idempotency check
// inspectable in diagnostics and tests without a full structural diff.
func Fingerprint(g *grammar.Grammar) (string, error) {
	type fingerprintView struct {
		Sorts  []string
		Merges map[string]string
	}
	view := fingerprintView{Sorts: append([]string(nil), g.SortNames...), Merges: g.Merges}
	hash, err := structhash.Hash(view, 1)
	if err != nil {
		return "", fmt.Errorf("simplify: computing fingerprint: %w", err)
	}
	return hash, nil
}

func partOfTarget(s *grammar.Sort) (string, bool) {
	return s.Annotations.Arg(grammar.AnnoPartOf)
}

// topoOrder returns sort names ordered so that every part-of sort appears
// after the sort it folds into (so walking the order in reverse folds
// children before their parents), detecting cycles.
func topoOrder(g *grammar.Grammar) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.SortNames))
	var order []string
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("simplify: cycle in part-of chain: %v -> %s", path, name)
		}
		color[name] = gray
		sort, ok := g.Sorts[name]
		if !ok {
			return fmt.Errorf("simplify: unknown sort %q referenced in part-of chain", name)
		}
		if parent, ok := partOfTarget(sort); ok {
			if err := visit(parent, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}
	for _, name := range g.SortNames {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// verifyPartOfConnections checks that for every `part-of(other)` sort S,
// `other` has a constructor whose expression is exactly Sort(S).
func verifyPartOfConnections(g *grammar.Grammar) error {
	for _, name := range g.SortNames {
		s := g.Sorts[name]
		parentName, ok := partOfTarget(s)
		if !ok {
			continue
		}
		parent, ok := g.Sorts[parentName]
		if !ok {
			return fmt.Errorf("simplify: sort %q is part-of unknown sort %q", name, parentName)
		}
		found := false
		for _, c := range parent.Constructors {
			if c.Expr.Kind == grammar.ExprSort && c.Expr.SortName == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("simplify: no-connection: sort %q is part-of %q, "+
				"but %q has no constructor that is exactly Sort(%q)", name, parentName, parentName, name)
		}
	}
	return nil
}

func copySort(s *grammar.Sort) *grammar.Sort {
	out := &grammar.Sort{
		Name:        s.Name,
		Annotations: s.Annotations,
		Docs:        s.Docs,
	}
	out.Constructors = make([]*grammar.Constructor, len(s.Constructors))
	for i, c := range s.Constructors {
		cc := *c
		cc.Expr = copyExpr(c.Expr)
		out.Constructors[i] = &cc
	}
	return out
}

// copyExpr deep-copies e so that rewriteRefs never touches the input grammar.
func copyExpr(e *grammar.Expression) *grammar.Expression {
	if e == nil {
		return nil
	}
	cp := *e
	cp.List = nil
	for _, sub := range e.List {
		cp.List = append(cp.List, copyExpr(sub))
	}
	cp.Inner, cp.Sep, cp.Pred = copyExpr(e.Inner), copyExpr(e.Sep), copyExpr(e.Pred)
	return &cp
}

// mergeInto appends child's constructors to parent, flags the parent's
// existing Sort(child) constructor as don't-put-in-AST (the link is
// inlined), and concatenates documentation.
func mergeInto(parent, child *grammar.Sort) {
	for _, c := range parent.Constructors {
		if c.Expr.Kind == grammar.ExprSort && c.Expr.SortName == child.Name {
			c.DontPutInAST = true
		}
	}
	parent.Constructors = append(parent.Constructors, child.Constructors...)
	if child.Docs != "" {
		if parent.Docs != "" {
			parent.Docs += "\n"
		}
		parent.Docs += child.Docs
	}
}

func rewriteRefs(e *grammar.Expression, g *grammar.Grammar) {
	if e == nil {
		return
	}
	switch e.Kind {
	case grammar.ExprSort:
		e.SortName = g.Resolve(e.SortName)
	case grammar.ExprSequence, grammar.ExprChoice:
		for _, sub := range e.List {
			rewriteRefs(sub, g)
		}
	case grammar.ExprRepeat:
		rewriteRefs(e.Inner, g)
	case grammar.ExprDelimited:
		rewriteRefs(e.Inner, g)
		rewriteRefs(e.Sep, g)
	case grammar.ExprNegative, grammar.ExprPositive:
		rewriteRefs(e.Pred, g)
	}
}
