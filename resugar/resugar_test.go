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

package resugar

import (
	"testing"

	"github.com/jdonszelmann/lwbgo/desugar"
	"github.com/jdonszelmann/lwbgo/engine"
	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/source"
)

func TestResugarRightRecursiveAs(t *testing.T) {
	g := grammar.New("As")
	g.AddSort(&grammar.Sort{
		Name: "As",
		Constructors: []*grammar.Constructor{
			{Name: "More", Expr: grammar.Sequence(grammar.Literal("a"), grammar.Sort("As")), Annotations: grammar.Annotations{}},
			{Name: "NoMore", Expr: grammar.Literal(""), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})

	cg, err := desugar.Desugar(g)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	file := source.New("t", "aaa")
	raw, diags := engine.Parse(cg, file)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	resugared, err := Resugar(raw, g)
	if err != nil {
		t.Fatalf("Resugar: %v", err)
	}

	depth := 0
	cur := resugared
	for cur.Ctor == "More" {
		depth++
		seq := cur.Body
		if seq.Kind != ExprSequence || len(seq.List) != 2 {
			t.Fatalf("expected 2-field Sequence body for More, got %+v", seq)
		}
		next := seq.List[1]
		if next.Kind != ExprSort {
			t.Fatalf("expected second field to be the recursive As reference, got kind %d", next.Kind)
		}
		cur = next.Sort
	}
	if depth != 3 || cur.Ctor != "NoMore" {
		t.Fatalf("expected 3 levels of More ending in NoMore, got depth=%d final=%q", depth, cur.Ctor)
	}
}

func TestResugarDelimited(t *testing.T) {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{
		Name: "X",
		Constructors: []*grammar.Constructor{
			{Name: "X", Expr: grammar.Delimited(grammar.Literal("x"), grammar.Literal(","), 1, nil, true), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	cg, err := desugar.Desugar(g)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	file := source.New("t", "x,x,x,")
	raw, diags := engine.Parse(cg, file)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	resugared, err := Resugar(raw, g)
	if err != nil {
		t.Fatalf("Resugar: %v", err)
	}
	if resugared.Body.Kind != ExprDelimited {
		t.Fatalf("expected Delimited body, got kind %d", resugared.Body.Kind)
	}
	if len(resugared.Body.List) != 3 {
		t.Fatalf("expected 3 delimited elements, got %d", len(resugared.Body.List))
	}
	for _, el := range resugared.Body.List {
		if el.Kind != ExprEmpty {
			t.Errorf("expected each delimited element to resugar to a literal leaf, got kind %d", el.Kind)
		}
	}
}

func TestResugarEmptyDelimited(t *testing.T) {
	g := grammar.New("X")
	g.AddSort(&grammar.Sort{
		Name: "X",
		Constructors: []*grammar.Constructor{
			{Name: "X", Expr: grammar.Delimited(grammar.Literal("x"), grammar.Literal(","), 0, nil, false), Annotations: grammar.Annotations{}},
		},
		Annotations: grammar.Annotations{},
	})
	cg, err := desugar.Desugar(g)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	file := source.New("t", "")
	raw, diags := engine.Parse(cg, file)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	resugared, err := Resugar(raw, g)
	if err != nil {
		t.Fatalf("Resugar: %v", err)
	}
	if len(resugared.Body.List) != 0 {
		t.Fatalf("expected zero delimited elements on empty input, got %d", len(resugared.Body.List))
	}
}
