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

package grammar

import (
	"testing"

	"github.com/jdonszelmann/lwbgo/charclass"
)

func TestExpressionStringRendersConcreteSyntax(t *testing.T) {
	cases := []struct {
		name string
		expr *Expression
		want string
	}{
		{"sort", Sort("Expr"), "Expr"},
		{"literal", Literal("if"), `"if"`},
		{"sequence", Sequence(Literal("a"), Sort("B")), `"a" B`},
		{"choice", Choice(Sort("A"), Sort("B")), "A | B"},
		{"star", Repeat(Sort("A"), 0, nil), "A*"},
		{"plus", Repeat(Sort("A"), 1, nil), "A+"},
		{"optional", Repeat(Sort("A"), 0, intp(1)), "A?"},
		{"exact count", Repeat(Sort("A"), 2, intp(2)), "A{2}"},
		{"bounded count", Repeat(Sort("A"), 1, intp(3)), "A{1,3}"},
		{"at-least count", Repeat(Sort("A"), 2, nil), "A{2,}"},
		{"negative", Negative(Sort("A")), "!A"},
		{"positive", Positive(Sort("A")), "&A"},
		{"delimited star", Delimited(Sort("A"), Literal(","), 0, nil, false), `delimited(A, ",", *)`},
		{"delimited trailing", Delimited(Sort("A"), Literal(","), 2, nil, true), `delimited(A, ",", 2.., trailing)`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.expr.String(); got != c.want {
				t.Errorf("String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestCharClassExpressionDelegatesToClassString(t *testing.T) {
	e := CharClass(charclass.RangeInclusive('a', 'z'))
	if got, want := e.String(), charclass.RangeInclusive('a', 'z').String(); got != want {
		t.Errorf("CharClass expression String() = %q, want %q", got, want)
	}
}

func TestAnnotationsHasAndArg(t *testing.T) {
	a := Annotations{AnnoSingleString: "", AnnoError: "bad statement"}
	if !a.Has(AnnoSingleString) {
		t.Errorf("expected Has(single-string) to be true")
	}
	if a.Has(AnnoHidden) {
		t.Errorf("expected Has(hidden) to be false")
	}
	arg, ok := a.Arg(AnnoError)
	if !ok || arg != "bad statement" {
		t.Errorf("expected Arg(error) = (%q, true), got (%q, %v)", "bad statement", arg, ok)
	}
	if _, ok := a.Arg(AnnoHidden); ok {
		t.Errorf("expected Arg(hidden) to report absent")
	}
}

func TestAddSortPreservesDeclarationOrderAndAllowsOverwrite(t *testing.T) {
	g := New("A")
	g.AddSort(&Sort{Name: "A"})
	g.AddSort(&Sort{Name: "B"})
	g.AddSort(&Sort{Name: "A", Docs: "updated"})

	if got := g.SortNames; len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("expected SortNames [A B] with no duplicate on re-add, got %v", got)
	}
	if g.Sorts["A"].Docs != "updated" {
		t.Errorf("expected re-adding A to overwrite its Sort value")
	}
}

func TestResolveFollowsMergeChainAndStopsOnCycle(t *testing.T) {
	g := New("A")
	g.Merges["Old1"] = "Old2"
	g.Merges["Old2"] = "New"

	if got := g.Resolve("Old1"); got != "New" {
		t.Errorf("Resolve(Old1) = %q, want %q", got, "New")
	}
	if got := g.Resolve("Unrelated"); got != "Unrelated" {
		t.Errorf("Resolve(Unrelated) = %q, want it to map to itself", got)
	}

	g.Merges["X"] = "Y"
	g.Merges["Y"] = "X"
	if got := g.Resolve("X"); got != "X" && got != "Y" {
		t.Errorf("Resolve on a merge cycle should terminate and return one of the cycle's names, got %q", got)
	}
}

func intp(n int) *int { return &n }
