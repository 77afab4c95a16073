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

// Package engine is the memoised packrat evaluator for the core grammar: it
// resolves left recursion with a seed-growing scheme, applies the
// no-layout/no-errors scoped discipline, tracks the furthest-right "best"
// diagnostic, and drives insertion-based recovery across whole-grammar retry
// attempts.
package engine

import (
	"unicode/utf8"

	log "github.com/golang/glog"

	"github.com/jdonszelmann/lwbgo/core"
	"github.com/jdonszelmann/lwbgo/diag"
	"github.com/jdonszelmann/lwbgo/pair"
	"github.com/jdonszelmann/lwbgo/source"
)

// result is the engine's internal ParseResult<Pair>: the outcome of
// evaluating one core expression (or sort) starting at a given position.
type result struct {
	ok     bool
	value  *pair.Pair
	pos    int  // cursor_after, valid when ok
	posErr int  // furthest position reached during this evaluation
	diag   diag.Diagnostic
}

func fail(posErr int, d diag.Diagnostic) result {
	return result{ok: false, posErr: posErr, diag: d}
}

func ok(value *pair.Pair, pos int) result {
	return result{ok: true, value: value, pos: pos, posErr: pos}
}

type memoKey struct {
	pos  int
	sort string
}

// memoEntry is one memo-table cell. While marker is true the cell is a
// left-recursion sentinel (spec.md §4.5 "seed-growing"); detected records
// whether evaluation of the sort's own body re-entered this cell.
type memoEntry struct {
	result   result
	marker   bool
	detected bool
}

// attempt is the per-attempt mutable state of a single top-to-bottom parse
// (spec.md §4.5's "per-attempt cache"). A fresh attempt is built for every
// retry of the recovery driver; the recover offset map itself survives
// across attempts (it is the per-parse, not per-attempt, state).
type attempt struct {
	grammar *core.Grammar
	file    source.File
	recover map[int]int

	memo       map[memoKey]*memoEntry
	cacheStack []memoKey

	best diag.Best

	noLayoutDepth int
	noErrorsDepth int
}

func newAttempt(g *core.Grammar, file source.File, recover map[int]int) *attempt {
	return &attempt{
		grammar: g,
		file:    file,
		recover: recover,
		memo:    make(map[memoKey]*memoEntry),
	}
}

func (a *attempt) allowLayout() bool {
	return a.noLayoutDepth == 0
}

// Parse runs the engine to completion: the whole-grammar retry loop of
// spec.md §4.5 "Entry". It returns the raw parse tree (possibly partial, if
// recovery was exhausted) plus every diagnostic accumulated along the way.
func Parse(g *core.Grammar, file source.File) (*pair.Pair, diag.List) {
	recover := make(map[int]int)
	var diags diag.List

	for {
		a := newAttempt(g, file, recover)
		r := a.applySort(0, g.Start)

		if r.ok {
			final := a.skipLayoutFully(r.pos)
			if final >= file.Len() {
				return r.value, diags
			}
			d := diag.New(source.FromLength(file, final, 0), diag.NotEntireInput, "")
			a.best.Record(d)
			r = result{ok: false, value: r.value, posErr: final, diag: d}
		}

		best, has := a.best.Get()
		if !has {
			best = r.diag
		}
		diags = append(diags, best)

		posErr := best.Span.Position
		off, seen := recover[posErr]
		if seen {
			next := off + 1
			if posErr+next >= file.Len() {
				log.V(2).Infof("engine: recovery exhausted at %d, returning partial tree", posErr)
				diags = append(diags, diag.New(source.FromLength(file, posErr, 0), diag.RecoveryExhausted, ""))
				return r.value, diags
			}
			recover[posErr] = next
		} else {
			recover[posErr] = 0
		}
		log.V(1).Infof("engine: retrying with recover[%d]=%d", posErr, recover[posErr])
	}
}

// applySort evaluates sort `name` at `pos`, memoising on (pos, name) and
// resolving left recursion with the seed-growing scheme (spec.md §4.5).
func (a *attempt) applySort(pos int, name string) result {
	key := memoKey{pos, name}

	if e, ok := a.memo[key]; ok {
		if e.marker {
			e.detected = true
		}
		return e.result
	}

	marker := &memoEntry{
		marker: true,
		result: fail(pos, diag.New(source.FromLength(a.file, pos, 0), diag.LeftRecursion, name)),
	}
	a.memo[key] = marker
	a.cacheStack = append(a.cacheStack, key)
	// snapshot is taken after the marker is pushed, so rollback during
	// seed-growing discards only entries inserted while evaluating the
	// body, never the marker itself: the left-recursive self-reference
	// must keep reading the current seed out of a.memo.
	snapshot := len(a.cacheStack)

	ans := a.evalSortBody(pos, name)

	if !marker.detected {
		marker.marker = false
		marker.result = a.withRecovery(pos, ans)
		log.V(6).Infof("engine: %s@%d -> ok=%v pos=%d (no left recursion)", name, pos, marker.result.ok, marker.result.pos)
		return marker.result
	}

	// Seed-growing: the sort's own body read the marker, meaning it is
	// left-recursive at this position. Treat the first attempt as the
	// initial seed and keep re-evaluating, each time rolling the cache
	// back to the pre-evaluation snapshot, until an attempt fails to
	// improve on the seed.
	seed := a.withRecovery(pos, ans)
	marker.marker = false
	marker.result = seed
	for {
		a.rollback(snapshot)
		marker.detected = false
		next := a.withRecovery(pos, a.evalSortBody(pos, name))
		if next.ok && (!seed.ok || next.pos > seed.pos) {
			seed = next
			marker.result = seed
			continue
		}
		break
	}
	log.V(5).Infof("engine: %s@%d grown seed pos=%d", name, pos, seed.pos)
	return seed
}

// withRecovery fabricates a local Error-pair success for a failing
// (pos, sort) result when the outer driver has seeded a recovery offset for
// this exact position (spec.md §4.5 "Recovery").
func (a *attempt) withRecovery(pos int, ans result) result {
	if ans.ok {
		return ans
	}
	off, ok := a.recover[pos]
	if !ok {
		return ans
	}
	span := source.FromLength(a.file, pos, off)
	return result{ok: true, value: pair.Error(span), pos: pos + off, posErr: ans.posErr, diag: ans.diag}
}

// rollback discards every memo entry inserted since snapshot, per the
// "speculatively inserted during growth" invariant of spec.md §4.5.
func (a *attempt) rollback(snapshot int) {
	for i := snapshot; i < len(a.cacheStack); i++ {
		delete(a.memo, a.cacheStack[i])
	}
	a.cacheStack = a.cacheStack[:snapshot]
}

func (a *attempt) evalSortBody(pos int, name string) result {
	sort, ok := a.grammar.Sorts[name]
	if !ok {
		d := diag.New(source.FromLength(a.file, pos, 0), diag.ExpectSort, name)
		a.best.Record(d)
		return fail(pos, d)
	}
	return a.eval(sort.Expr, pos)
}

// eval evaluates one core expression at pos, per spec.md §4.5 "Per-expression
// evaluation".
func (a *attempt) eval(e *core.Expression, pos int) result {
	switch e.Kind {
	case core.ExprName:
		return a.evalName(e, pos)
	case core.ExprSequence:
		return a.evalSequence(e, pos)
	case core.ExprChoice:
		return a.evalChoice(e, pos)
	case core.ExprRepeat:
		return a.evalRepeat(e, pos)
	case core.ExprCharClass:
		return a.evalCharClass(e, pos)
	case core.ExprFlagNoLayout:
		return a.evalFlagNoLayout(e, pos)
	case core.ExprFlagNoErrors:
		return a.evalFlagNoErrors(e, pos)
	}
	return fail(pos, diag.New(source.FromLength(a.file, pos, 0), diag.ExpectSort, "<invalid expression>"))
}

func (a *attempt) evalName(e *core.Expression, pos int) result {
	p := pos
	if e.Ref != core.LayoutSortName && a.allowLayout() {
		p = a.skipLayout(p)
	}
	r := a.applySort(p, e.Ref)
	if !r.ok {
		return fail(r.posErr, r.diag)
	}
	span := source.FromEnd(a.file, pos, r.pos)
	return ok(pair.Name(span, e.Ref, r.value), r.pos)
}

func (a *attempt) evalSequence(e *core.Expression, pos int) result {
	cur := pos
	children := make([]*pair.Pair, 0, len(e.List))
	for _, sub := range e.List {
		r := a.eval(sub, cur)
		if !r.ok {
			children = append(children, pair.Error(source.FromLength(a.file, r.posErr, 0)))
			return result{
				ok:     false,
				value:  pair.List(source.FromEnd(a.file, pos, r.posErr), children),
				posErr: r.posErr,
				diag:   r.diag,
			}
		}
		children = append(children, r.value)
		cur = r.pos
	}
	return ok(pair.List(source.FromEnd(a.file, pos, cur), children), cur)
}

func (a *attempt) evalChoice(e *core.Expression, pos int) result {
	var best diag.Best
	for i, alt := range e.List {
		r := a.eval(alt, pos)
		if r.ok {
			span := source.FromEnd(a.file, pos, r.pos)
			return ok(pair.Choice(span, i, r.value), r.pos)
		}
		best.Record(r.diag)
	}
	d, has := best.Get()
	if !has {
		d = diag.New(source.FromLength(a.file, pos, 0), diag.ExpectSort, "<empty choice>")
	}
	return fail(d.Span.Position, d)
}

func (a *attempt) evalRepeat(e *core.Expression, pos int) result {
	cur := pos
	children := make([]*pair.Pair, 0)
	count := 0

	for count < e.Min {
		r := a.eval(e.Inner, cur)
		if !r.ok {
			return result{
				ok:     false,
				value:  pair.List(source.FromEnd(a.file, pos, cur), children),
				posErr: r.posErr,
				diag:   r.diag,
			}
		}
		if r.pos == cur {
			d := diag.New(source.FromLength(a.file, cur, 0), diag.InfiniteLoop, "")
			a.best.Record(d)
			return result{ok: false, value: pair.List(source.FromEnd(a.file, pos, cur), children), posErr: cur, diag: d}
		}
		children = append(children, r.value)
		cur = r.pos
		count++
	}

	for e.Max == nil || count < *e.Max {
		r := a.eval(e.Inner, cur)
		if !r.ok {
			break
		}
		if r.pos == cur {
			d := diag.New(source.FromLength(a.file, cur, 0), diag.InfiniteLoop, "")
			a.best.Record(d)
			return result{ok: false, value: pair.List(source.FromEnd(a.file, pos, cur), children), posErr: cur, diag: d}
		}
		children = append(children, r.value)
		cur = r.pos
		count++
	}
	return ok(pair.List(source.FromEnd(a.file, pos, cur), children), cur)
}

func (a *attempt) evalCharClass(e *core.Expression, pos int) result {
	text := a.file.Text()
	if pos >= len(text) {
		d := diag.New(source.FromLength(a.file, pos, 0), diag.ExpectCharClass, e.Class.String())
		a.best.Record(d)
		return fail(pos, d)
	}
	r, w := utf8.DecodeRuneInString(text[pos:])
	if w == 0 || !e.Class.Contains(r) {
		d := diag.New(source.FromLength(a.file, pos, 0), diag.ExpectCharClass, e.Class.String())
		a.best.Record(d)
		return fail(pos, d)
	}
	return ok(pair.Empty(source.FromLength(a.file, pos, w)), pos+w)
}

func (a *attempt) evalFlagNoLayout(e *core.Expression, pos int) result {
	a.noLayoutDepth++
	r := a.eval(e.Inner, pos)
	a.noLayoutDepth--
	return r
}

func (a *attempt) evalFlagNoErrors(e *core.Expression, pos int) result {
	a.noErrorsDepth++
	r := a.eval(e.Inner, pos)
	a.noErrorsDepth--
	if r.ok {
		return r
	}
	cause := diag.ExpectSort
	if len(e.Label) > 0 && (e.Label[0] == '\'' || e.Label[0] == '"') {
		cause = diag.ExpectLiteral
	}
	d := diag.New(source.FromLength(a.file, pos, 0), cause, e.Label)
	a.best.Record(d)
	return fail(pos, d)
}

// skipLayout advances past one run of the layout sort at pos, or returns pos
// unchanged if layout does not match there.
func (a *attempt) skipLayout(pos int) int {
	if !a.grammar.HasLayout() {
		return pos
	}
	r := a.applySort(pos, core.LayoutSortName)
	for r.ok && r.pos > pos {
		pos = r.pos
		r = a.applySort(pos, core.LayoutSortName)
	}
	return pos
}

// skipLayoutFully drains trailing layout at end of input (spec.md §4.5
// "Entry" / "Layout": "At end-of-input, trailing layout is similarly
// consumed").
func (a *attempt) skipLayoutFully(pos int) int {
	return a.skipLayout(pos)
}
