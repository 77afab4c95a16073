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

package main

import (
	"fmt"

	"github.com/jdonszelmann/lwbgo/core"
	"github.com/jdonszelmann/lwbgo/desugar"
	"github.com/jdonszelmann/lwbgo/engine"
	"github.com/jdonszelmann/lwbgo/grammar"
	"github.com/jdonszelmann/lwbgo/metaparser"
	"github.com/jdonszelmann/lwbgo/recursion"
	"github.com/jdonszelmann/lwbgo/resugar"
	"github.com/jdonszelmann/lwbgo/simplify"
	"github.com/jdonszelmann/lwbgo/source"
	"github.com/jdonszelmann/lwbgo/typedtree"
)

// loadedGrammar holds everything a repeated parse over the same grammar
// needs, so a REPL session only pays the metaparser/simplify/desugar cost
// once per grammar file.
type loadedGrammar struct {
	sugared *grammar.Grammar
	core    *core.Grammar
	rec     *recursion.Analysis
}

// loadGrammar runs metaparser -> simplify -> desugar over text, the first
// three pipeline stages spec.md §4 lays out, and precomputes the recursion
// analysis typedtree needs.
func loadGrammar(name, text string) (*loadedGrammar, error) {
	g, err := metaparser.ParseString(name, text)
	if err != nil {
		return nil, fmt.Errorf("parsing grammar: %w", err)
	}
	simplified, err := simplify.Simplify(g)
	if err != nil {
		return nil, fmt.Errorf("simplifying grammar: %w", err)
	}
	cg, err := desugar.Desugar(simplified)
	if err != nil {
		return nil, fmt.Errorf("desugaring grammar: %w", err)
	}
	return &loadedGrammar{
		sugared: simplified,
		core:    cg,
		rec:     recursion.Analyze(simplified),
	}, nil
}

// parse runs the remaining pipeline stages (spec.md §4.4-4.7) over a single
// input against an already-loaded grammar.
func (lg *loadedGrammar) parse(inputName, input string) (*typedtree.Node, error) {
	file := source.New(inputName, input)
	raw, diags := engine.Parse(lg.core, file)
	if len(diags) != 0 {
		return nil, fmt.Errorf("%s", diags.Render(file))
	}
	pairSort, err := resugar.Resugar(raw, lg.sugared)
	if err != nil {
		return nil, fmt.Errorf("resugaring: %w", err)
	}
	node, err := typedtree.Build(pairSort, lg.sugared, lg.rec)
	if err != nil {
		return nil, fmt.Errorf("building typed tree: %w", err)
	}
	return node, nil
}
