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

// Package diag is the parse-time error model: positioned diagnostics with a
// tagged cause, combination rules for the engine's "best error" tracking, and
// rendering for human consumption. Distinct from plain `error`, which the
// grammar-preparation stages (charclass, grammar, simplify, desugar) use for
// malformed-grammar failures that never reach a parse.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jdonszelmann/lwbgo/source"
)

// Cause tags a diagnostic with the kind of failure that produced it.
type Cause int

const (
	ExpectCharClass Cause = iota
	ExpectLiteral
	ExpectSort
	NotEntireInput
	LeftRecursion
	InfiniteLoop
	RecoveryExhausted
)

func (c Cause) String() string {
	switch c {
	case ExpectCharClass:
		return "expect_char_class"
	case ExpectLiteral:
		return "expect_literal"
	case ExpectSort:
		return "expect_sort"
	case NotEntireInput:
		return "not_entire_input"
	case LeftRecursion:
		return "left_recursion"
	case InfiniteLoop:
		return "infinite_loop"
	case RecoveryExhausted:
		return "recovery_exhausted"
	}
	return "unknown_cause"
}

// Diagnostic is a single positioned parse error. Expected carries the set of
// labels (literal spellings, char-class descriptions, sort names) that would
// have let parsing continue at Span's start position; it is nil for causes
// that are not about an expected-vs-found mismatch (e.g. InfiniteLoop).
type Diagnostic struct {
	Span     source.Span
	Cause    Cause
	Expected []string
}

// New builds a diagnostic with a single expected label.
func New(span source.Span, cause Cause, expected string) Diagnostic {
	d := Diagnostic{Span: span, Cause: cause}
	if expected != "" {
		d.Expected = []string{expected}
	}
	return d
}

// Error satisfies the error interface so a Diagnostic can be wrapped or
// logged with the standard library like any other error.
func (d Diagnostic) Error() string {
	pos := d.Span.Position
	if len(d.Expected) == 0 {
		return fmt.Sprintf("at %d: %s", pos, d.Cause)
	}
	return fmt.Sprintf("at %d: expected %s", pos, strings.Join(d.Expected, " or "))
}

// extend merges other's expected-set into d, used when two diagnostics share
// a position (spec.md §4.5, §7: "first failure wins, later failures at the
// same position extend the expected-set").
func (d Diagnostic) extend(other Diagnostic) Diagnostic {
	seen := make(map[string]bool, len(d.Expected))
	for _, e := range d.Expected {
		seen[e] = true
	}
	out := d
	out.Expected = append([]string(nil), d.Expected...)
	for _, e := range other.Expected {
		if !seen[e] {
			seen[e] = true
			out.Expected = append(out.Expected, e)
		}
	}
	if other.Span.Length > out.Span.Length {
		out.Span.Length = other.Span.Length
	}
	return out
}

// Best tracks the furthest-right diagnostic observed during a parse attempt
// (spec.md §4.5 "best_error", §7's ordering rule). It is owned by a single
// parse's per-attempt state; no process-wide mutable state is involved.
type Best struct {
	has bool
	cur Diagnostic
}

// Record folds d into the running best-error. Per spec.md §7: a diagnostic at
// a strictly further-right position replaces the current best outright
// ("first failure wins" at each position means the first diagnostic recorded
// there sets the cause, so only a later position can displace it); a
// diagnostic at the same position extends the expected-set instead of
// replacing the cause; a diagnostic at an earlier position is dropped.
func (b *Best) Record(d Diagnostic) {
	if !b.has {
		b.cur, b.has = d, true
		return
	}
	switch {
	case d.Span.Position > b.cur.Span.Position:
		b.cur = d
	case d.Span.Position == b.cur.Span.Position:
		b.cur = b.cur.extend(d)
	}
}

// Get returns the current best diagnostic, if any has been recorded.
func (b *Best) Get() (Diagnostic, bool) {
	return b.cur, b.has
}

// List is an ordered collection of diagnostics accumulated over a parse,
// kept in the order recovery encountered them (left to right by construction,
// since recovery only ever proceeds forward through the input).
type List []Diagnostic

// Render formats the list one diagnostic per line, sorted by position, for
// CLI / REPL display (cmd/lwb).
func (l List) Render(file source.File) string {
	sorted := append(List(nil), l...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Position < sorted[j].Span.Position
	})
	var b strings.Builder
	for _, d := range sorted {
		fmt.Fprintf(&b, "%s:%d: %s\n", file.Name(), d.Span.Position, d.Error())
	}
	return b.String()
}
