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

package recursion

import (
	"testing"

	"github.com/jdonszelmann/lwbgo/grammar"
)

func ctor(name string, e *grammar.Expression) *grammar.Constructor {
	return &grammar.Constructor{Name: name, Expr: e, Annotations: grammar.Annotations{}}
}

func TestSelfRecursionNeedsIndirection(t *testing.T) {
	g := grammar.New("As")
	g.AddSort(&grammar.Sort{Name: "As", Constructors: []*grammar.Constructor{
		ctor("More", grammar.Sequence(grammar.Literal("a"), grammar.Sort("As"))),
		ctor("NoMore", grammar.Literal("")),
	}, Annotations: grammar.Annotations{}})

	a := Analyze(g)
	if !a.NeedsIndirection("As", "As") {
		t.Errorf("expected direct self-recursion to need indirection")
	}
}

func TestNonCyclicReferenceNeedsNoIndirection(t *testing.T) {
	g := grammar.New("Program")
	g.AddSort(&grammar.Sort{Name: "Program", Constructors: []*grammar.Constructor{
		ctor("Program", grammar.Sort("Statement")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "Statement", Constructors: []*grammar.Constructor{
		ctor("Statement", grammar.Literal("x")),
	}, Annotations: grammar.Annotations{}})

	a := Analyze(g)
	if a.NeedsIndirection("Program", "Statement") {
		t.Errorf("acyclic parent/child reference should not need indirection")
	}
}

func TestMutualRecursionNeedsIndirection(t *testing.T) {
	g := grammar.New("Expr")
	g.AddSort(&grammar.Sort{Name: "Expr", Constructors: []*grammar.Constructor{
		ctor("Paren", grammar.Sequence(grammar.Literal("("), grammar.Sort("List"), grammar.Literal(")"))),
		ctor("Atom", grammar.Literal("x")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "List", Constructors: []*grammar.Constructor{
		ctor("List", grammar.Repeat(grammar.Sort("Expr"), 0, nil)),
	}, Annotations: grammar.Annotations{}})

	a := Analyze(g)
	// Expr -> List -> Expr is a cycle: the Expr field inside List needs
	// indirection, since Expr is List's own ancestor.
	if !a.NeedsIndirection("List", "Expr") {
		t.Errorf("expected List -> Expr back-edge to need indirection")
	}
	// The forward edge Expr -> List is the tree edge that discovered List;
	// List is not an ancestor of Expr, so it needs none.
	if a.NeedsIndirection("Expr", "List") {
		t.Errorf("did not expect the forward tree edge Expr -> List to need indirection")
	}
}

func TestUnreachableSortIsReRooted(t *testing.T) {
	g := grammar.New("Main")
	g.AddSort(&grammar.Sort{Name: "Main", Constructors: []*grammar.Constructor{
		ctor("Main", grammar.Literal("x")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "Orphan", Constructors: []*grammar.Constructor{
		ctor("Orphan", grammar.Literal("y")),
	}, Annotations: grammar.Annotations{}})

	a := Analyze(g)
	if a.Chain("Orphan") == nil {
		t.Fatalf("expected unreachable sort to still receive a chain via re-rooting")
	}
	roots := a.Roots()
	if len(roots) != 2 || roots[0] != "Main" || roots[1] != "Orphan" {
		t.Fatalf("expected roots [Main Orphan], got %v", roots)
	}
}

func TestChainContainsAncestors(t *testing.T) {
	g := grammar.New("A")
	g.AddSort(&grammar.Sort{Name: "A", Constructors: []*grammar.Constructor{
		ctor("A", grammar.Sort("B")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "B", Constructors: []*grammar.Constructor{
		ctor("B", grammar.Sort("C")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "C", Constructors: []*grammar.Constructor{
		ctor("C", grammar.Literal("z")),
	}, Annotations: grammar.Annotations{}})

	a := Analyze(g)
	chain := a.Chain("C")
	if chain == nil || !chain.Contains("A") || !chain.Contains("B") || !chain.Contains("C") {
		t.Fatalf("expected C's chain to contain A, B and C, got %+v", chain)
	}
	if chain.Contains("Nonexistent") {
		t.Errorf("chain should not contain a sort never visited")
	}
}
