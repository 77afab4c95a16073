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

package simplify

import (
	"testing"

	"github.com/jdonszelmann/lwbgo/grammar"
)

func ctor(name string, e *grammar.Expression) *grammar.Constructor {
	return &grammar.Constructor{Name: name, Expr: e, Annotations: grammar.Annotations{}}
}

func TestMergesPartOfChildIntoParent(t *testing.T) {
	g := grammar.New("Stmt")
	g.AddSort(&grammar.Sort{Name: "Stmt", Constructors: []*grammar.Constructor{
		ctor("IfStmt", grammar.Sort("If")),
		ctor("WhileStmt", grammar.Sort("While")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "If", Constructors: []*grammar.Constructor{
		ctor("If", grammar.Literal("if")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "Stmt"}})
	g.AddSort(&grammar.Sort{Name: "While", Constructors: []*grammar.Constructor{
		ctor("While", grammar.Literal("while")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "Stmt"}})

	out, err := Simplify(g)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if _, ok := out.Sorts["If"]; ok {
		t.Errorf("expected sort If to be folded away")
	}
	if _, ok := out.Sorts["While"]; ok {
		t.Errorf("expected sort While to be folded away")
	}
	stmt := out.Sorts["Stmt"]
	if len(stmt.Constructors) != 4 {
		t.Fatalf("expected Stmt to gain If's and While's constructors (4 total), got %d", len(stmt.Constructors))
	}
	var sawIf, sawWhile bool
	for _, c := range stmt.Constructors {
		switch c.Name {
		case "IfStmt":
			if !c.DontPutInAST {
				t.Errorf("expected the inlined IfStmt -> If link to be flagged DontPutInAST")
			}
		case "If":
			sawIf = true
		case "While":
			sawWhile = true
		}
	}
	if !sawIf || !sawWhile {
		t.Fatalf("expected both If's and While's own constructors to land on Stmt, got %+v", stmt.Constructors)
	}
	if out.Merges["If"] != "Stmt" || out.Merges["While"] != "Stmt" {
		t.Fatalf("expected merge table If->Stmt, While->Stmt, got %v", out.Merges)
	}
}

func TestRewritesSortReferencesThroughMergeTable(t *testing.T) {
	g := grammar.New("Stmt")
	g.AddSort(&grammar.Sort{Name: "Stmt", Constructors: []*grammar.Constructor{
		ctor("IfStmt", grammar.Sort("If")),
		ctor("Block", grammar.Repeat(grammar.Sort("If"), 0, nil)),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "If", Constructors: []*grammar.Constructor{
		ctor("If", grammar.Literal("if")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "Stmt"}})

	out, err := Simplify(g)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	var block *grammar.Constructor
	for _, c := range out.Sorts["Stmt"].Constructors {
		if c.Name == "Block" {
			block = c
		}
	}
	if block == nil {
		t.Fatalf("expected Block constructor to survive")
	}
	if got := block.Expr.Inner.SortName; got != "Stmt" {
		t.Errorf("expected Block's Sort(If) reference to be rewritten to Sort(Stmt), got Sort(%s)", got)
	}
}

func TestRejectsAlreadySimplifiedGrammar(t *testing.T) {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{Name: "X", Constructors: []*grammar.Constructor{
		ctor("X", grammar.Literal("x")),
	}, Annotations: grammar.Annotations{}})
	g.Merges["Y"] = "X"

	if _, err := Simplify(g); err == nil {
		t.Fatalf("expected an error simplifying an already-simplified grammar")
	}
}

func TestRejectsPartOfCycle(t *testing.T) {
	g := grammar.New("A")
	g.AddSort(&grammar.Sort{Name: "A", Constructors: []*grammar.Constructor{
		ctor("A", grammar.Sort("B")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "B"}})
	g.AddSort(&grammar.Sort{Name: "B", Constructors: []*grammar.Constructor{
		ctor("B", grammar.Sort("A")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "A"}})

	if _, err := Simplify(g); err == nil {
		t.Fatalf("expected an error on a part-of cycle between A and B")
	}
}

func TestRejectsPartOfWithoutMatchingConnection(t *testing.T) {
	g := grammar.New("Stmt")
	g.AddSort(&grammar.Sort{Name: "Stmt", Constructors: []*grammar.Constructor{
		ctor("Stmt", grammar.Literal("x")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "If", Constructors: []*grammar.Constructor{
		ctor("If", grammar.Literal("if")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "Stmt"}})

	if _, err := Simplify(g); err == nil {
		t.Fatalf("expected an error: Stmt has no constructor that is exactly Sort(If)")
	}
}

func TestRejectsStartSortThatIsPartOf(t *testing.T) {
	g := grammar.New("If")
	g.AddSort(&grammar.Sort{Name: "Stmt", Constructors: []*grammar.Constructor{
		ctor("IfStmt", grammar.Sort("If")),
	}, Annotations: grammar.Annotations{}})
	g.AddSort(&grammar.Sort{Name: "If", Constructors: []*grammar.Constructor{
		ctor("If", grammar.Literal("if")),
	}, Annotations: grammar.Annotations{grammar.AnnoPartOf: "Stmt"}})

	if _, err := Simplify(g); err == nil {
		t.Fatalf("expected an error: the start sort cannot be folded away")
	}
}

func TestFingerprintStableAcrossEquivalentGrammars(t *testing.T) {
	build := func() *grammar.Grammar {
		g := grammar.New("X")
		g.AddSort(&grammar.Sort{Name: "X", Constructors: []*grammar.Constructor{
			ctor("X", grammar.Literal("x")),
		}, Annotations: grammar.Annotations{}})
		return g
	}

	a, err := Fingerprint(build())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := Fingerprint(build())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Fatalf("expected two equivalent grammars to share a Fingerprint, got %q and %q", a, b)
	}
}
