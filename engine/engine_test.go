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

package engine

import (
	"testing"

	"github.com/jdonszelmann/lwbgo/charclass"
	"github.com/jdonszelmann/lwbgo/core"
	"github.com/jdonszelmann/lwbgo/desugar"
	"github.com/jdonszelmann/lwbgo/diag"
	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/pair"
	"github.com/jdonszelmann/lwbgo/source"
)

func buildCore(t *testing.T, g *grammar.Grammar) *core.Grammar {
	t.Helper()
	out, err := desugar.Desugar(g)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	return out
}

func parseString(t *testing.T, cg *core.Grammar, text string) (*pair.Pair, diag.List) {
	t.Helper()
	file := source.New("test", text)
	return Parse(cg, file)
}

// As: More = 'a' As; NoMore = '';  (right recursion)
func rightRecursiveAs() *grammar.Grammar {
	g := grammar.New("As")
	g.AddSort(&grammar.Sort{
		Name: "As",
		Constructors: []*grammar.Constructor{
			{Name: "More", Expr: grammar.Sequence(grammar.Literal("a"), grammar.Sort("As")), Annotations: grammar.Annotations{}},
			{Name: "NoMore", Expr: grammar.Literal(""), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	return g
}

// As the engine invokes the start sort directly (not via a Name(n)
// expression), the tree Parse returns for the start sort is the sort's own
// Choice node, unwrapped; only references to As from inside the grammar
// (the recursive occurrences) go through evalName and get Name-wrapped.

func TestRightRecursiveAsEmpty(t *testing.T) {
	cg := buildCore(t, rightRecursiveAs())
	tree, diags := parseString(t, cg, "")
	if tree == nil {
		t.Fatalf("expected a tree, got nil; diags=%v", diags)
	}
	if tree.Kind != pair.KindChoice || tree.Index != 1 {
		t.Fatalf("expected NoMore alternative (index 1) to fire on empty input, got %+v", tree)
	}
}

func TestRightRecursiveAsThree(t *testing.T) {
	cg := buildCore(t, rightRecursiveAs())
	tree, diags := parseString(t, cg, "aaa")
	if tree == nil {
		t.Fatalf("expected a tree, got nil; diags=%v", diags)
	}
	depth := 0
	choice := tree
	for choice.Kind == pair.KindChoice && choice.Index == 0 {
		depth++
		seq := choice.Child
		next := seq.Children[1] // Name("As", ...)
		if next.Kind != pair.KindName || next.SortName != "As" {
			break
		}
		choice = next.Child
	}
	if depth != 3 {
		t.Fatalf("expected 3 levels of More recursion, got %d (tree=%+v)", depth, tree)
	}
}

func TestRightRecursiveAsRejectsB(t *testing.T) {
	cg := buildCore(t, rightRecursiveAs())
	_, diags := parseString(t, cg, "b")
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for input 'b'")
	}
}

// As: More = As 'a'; NoMore = '';  (left recursion)
func leftRecursiveAs() *grammar.Grammar {
	g := grammar.New("As")
	g.AddSort(&grammar.Sort{
		Name: "As",
		Constructors: []*grammar.Constructor{
			{Name: "More", Expr: grammar.Sequence(grammar.Sort("As"), grammar.Literal("a")), Annotations: grammar.Annotations{}},
			{Name: "NoMore", Expr: grammar.Literal(""), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	return g
}

func TestLeftRecursiveAsGrowsSeed(t *testing.T) {
	cg := buildCore(t, leftRecursiveAs())
	tree, diags := parseString(t, cg, "aaa")
	if tree == nil {
		t.Fatalf("expected a tree, got nil; diags=%v", diags)
	}
	depth := 0
	choice := tree
	for choice.Kind == pair.KindChoice && choice.Index == 0 {
		depth++
		seq := choice.Child
		next := seq.Children[0] // Name("As", ...), the left-recursive occurrence
		if next.Kind != pair.KindName || next.SortName != "As" {
			break
		}
		choice = next.Child
	}
	if depth != 3 {
		t.Fatalf("expected left-leaning chain of depth 3, got %d (tree=%+v)", depth, tree)
	}
}

func TestLeftRecursiveAsRejectsB(t *testing.T) {
	cg := buildCore(t, leftRecursiveAs())
	_, diags := parseString(t, cg, "b")
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for input 'b'")
	}
}

// X: X = X; (direct left recursion with no base case)
func pureLeftRecursion() *grammar.Grammar {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{
		Name:         "X",
		Constructors: []*grammar.Constructor{{Name: "X", Expr: grammar.Sort("X"), Annotations: grammar.Annotations{}}},
		Annotations:  grammar.Annotations{},
	})
	return g
}

func TestPureLeftRecursionReportsLeftRecursion(t *testing.T) {
	cg := buildCore(t, pureLeftRecursion())
	_, diags := parseString(t, cg, "")
	if len(diags) == 0 {
		t.Fatalf("expected a left-recursion diagnostic")
	}
	found := false
	for _, d := range diags {
		if d.Cause == diag.LeftRecursion {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cause left_recursion among diagnostics, got %+v", diags)
	}
}

// X: X = ''*; (zero-width repetition)
func infiniteLoopGrammar() *grammar.Grammar {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{
		Name:         "X",
		Constructors: []*grammar.Constructor{{Name: "X", Expr: grammar.Repeat(grammar.Literal(""), 0, nil), Annotations: grammar.Annotations{}}},
		Annotations:  grammar.Annotations{},
	})
	return g
}

func TestInfiniteLoopDetected(t *testing.T) {
	cg := buildCore(t, infiniteLoopGrammar())
	_, diags := parseString(t, cg, "")
	found := false
	for _, d := range diags {
		if d.Cause == diag.InfiniteLoop {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cause infinite_loop among diagnostics, got %+v", diags)
	}
}

// X: X = 'x' 'y'; layout = [ \t\n\r]*
func layoutGrammar(noLayout bool) *grammar.Grammar {
	g := grammar.New("X")
	anno := grammar.Annotations{}
	if noLayout {
		anno = grammar.Annotations{grammar.AnnoNoLayout: ""}
	}
	g.AddSort(&grammar.Sort{
		Name: "X",
		Constructors: []*grammar.Constructor{
			{Name: "X", Expr: grammar.Sequence(grammar.Literal("x"), grammar.Literal("y")), Annotations: anno},
		},
		Annotations: grammar.Annotations{},
	})
	g.AddSort(&grammar.Sort{
		Name: "layout",
		Constructors: []*grammar.Constructor{
			{Name: "ws", Expr: grammar.Repeat(grammar.CharClass(charclass.Contained(' ', '\t', '\n', '\r')), 0, nil), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	return g
}

func TestLayoutOnAllowsSpaceBetweenLiterals(t *testing.T) {
	cg := buildCore(t, layoutGrammar(false))
	_, diags := parseString(t, cg, "x y")
	if len(diags) != 0 {
		t.Fatalf("expected clean parse of 'x y' with layout on, got diags=%v", diags)
	}
}

func TestLayoutOffRejectsSpaceBetweenLiterals(t *testing.T) {
	cg := buildCore(t, layoutGrammar(true))
	_, diags := parseString(t, cg, "x y")
	if len(diags) == 0 {
		t.Fatalf("expected an error parsing 'x y' with no-layout constructor")
	}
}

func TestLayoutOffAcceptsAdjacentLiterals(t *testing.T) {
	cg := buildCore(t, layoutGrammar(true))
	_, diags := parseString(t, cg, "xy")
	if len(diags) != 0 {
		t.Fatalf("expected clean parse of 'xy' with no-layout, got diags=%v", diags)
	}
}

// X: X = 'x'+ ';'; XS: XS = X*; start at XS;
func recoveryGrammar() *grammar.Grammar {
	g := grammar.New("XS")
	g.AddSort(&grammar.Sort{
		Name: "X",
		Constructors: []*grammar.Constructor{
			{Name: "X", Expr: grammar.Sequence(grammar.Repeat(grammar.Literal("x"), 1, nil), grammar.Literal(";")), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	g.AddSort(&grammar.Sort{
		Name: "XS",
		Constructors: []*grammar.Constructor{
			{Name: "XS", Expr: grammar.Repeat(grammar.Sort("X"), 0, nil), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	return g
}

func TestRecoveryNoErrorsOnCleanInput(t *testing.T) {
	cg := buildCore(t, recoveryGrammar())
	_, diags := parseString(t, cg, "x;x;xx;")
	if len(diags) != 0 {
		t.Fatalf("expected zero diagnostics for well-formed input, got %v", diags)
	}
}

func TestRecoveryOneErrorOnOffendingSemicolon(t *testing.T) {
	cg := buildCore(t, recoveryGrammar())
	_, diags := parseString(t, cg, "x;xx;;")
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic for the doubled ';'")
	}
}

// X = delimited("x", ",", +, trailing); start at X;
func delimitedGrammar() *grammar.Grammar {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{
		Name: "X",
		Constructors: []*grammar.Constructor{
			{Name: "X", Expr: grammar.Delimited(grammar.Literal("x"), grammar.Literal(","), 1, nil, true), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	return g
}

func TestDelimitedAcceptsValidForms(t *testing.T) {
	cg := buildCore(t, delimitedGrammar())
	for _, in := range []string{"x", "x,x", "x,x,"} {
		_, diags := parseString(t, cg, in)
		if len(diags) != 0 {
			t.Errorf("input %q: expected no diagnostics, got %v", in, diags)
		}
	}
}

func TestDelimitedRejectsInvalidForms(t *testing.T) {
	cg := buildCore(t, delimitedGrammar())
	for _, in := range []string{"", ",", "x,,x"} {
		_, diags := parseString(t, cg, in)
		if len(diags) == 0 {
			t.Errorf("input %q: expected a diagnostic", in)
		}
	}
}

// TestParseAlwaysTerminatesOnPathologicalGrammar relies on the test runner's
// own timeout to catch a hang; a left-recursive sort with no base case must
// still return (with a left-recursion diagnostic), never loop forever.
func TestParseAlwaysTerminatesOnPathologicalGrammar(t *testing.T) {
	cg := buildCore(t, pureLeftRecursion())
	parseString(t, cg, "anything")
}

func TestErrorListPositionsAreWeaklyMonotonic(t *testing.T) {
	cg := buildCore(t, recoveryGrammar())
	_, diags := parseString(t, cg, "x;xx;;xx;")
	for i := 1; i < len(diags); i++ {
		if diags[i].Span.Position < diags[i-1].Span.Position {
			t.Fatalf("diagnostic %d at %d precedes diagnostic %d at %d",
				i, diags[i].Span.Position, i-1, diags[i-1].Span.Position)
		}
	}
}
