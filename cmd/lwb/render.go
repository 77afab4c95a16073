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

	"github.com/pterm/pterm"

	"github.com/jdonszelmann/lwbgo/typedtree"
)

// renderTree flattens a typed tree into pterm's leveled-list shape and
// prints it with DefaultTree, the same two-step conversion
// (leveledElem + NewTreeFromLeveledList) the teacher's REPL uses to show a
// term-rewriting AST.
func renderTree(node *typedtree.Node) {
	ll := leveledNode(node, pterm.LeveledList{}, 0)
	root := pterm.NewTreeFromLeveledList(ll)
	pterm.DefaultTree.WithRoot(root).Render()
}

func leveledNode(n *typedtree.Node, ll pterm.LeveledList, level int) pterm.LeveledList {
	if n == nil {
		return append(ll, pterm.LeveledListItem{Level: level, Text: "<nil>"})
	}
	switch n.Kind {
	case typedtree.KindString:
		text := fmt.Sprintf("%s.%s %q", n.SortName, n.Ctor, n.Text)
		return append(ll, pterm.LeveledListItem{Level: level, Text: text})
	case typedtree.KindError:
		text := fmt.Sprintf("%s: <error>", n.SortName)
		return append(ll, pterm.LeveledListItem{Level: level, Text: text})
	default:
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: fmt.Sprintf("%s.%s", n.SortName, n.Ctor)})
		for i, f := range n.Fields {
			ll = leveledField(fmt.Sprintf("[%d]", i), f, ll, level+1)
		}
		return ll
	}
}

func leveledField(label string, f *typedtree.Field, ll pterm.LeveledList, level int) pterm.LeveledList {
	switch f.Kind {
	case typedtree.FieldBool:
		return append(ll, pterm.LeveledListItem{Level: level, Text: fmt.Sprintf("%s = %t", label, f.Bool)})
	case typedtree.FieldCount:
		return append(ll, pterm.LeveledListItem{Level: level, Text: fmt.Sprintf("%s = %d repetition(s)", label, f.Count)})
	case typedtree.FieldChild:
		boxed := ""
		if f.Boxed {
			boxed = " (boxed)"
		}
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: label + boxed})
		return leveledNode(f.Child, ll, level+1)
	case typedtree.FieldOption:
		if !f.Present {
			return append(ll, pterm.LeveledListItem{Level: level, Text: label + " = <absent>"})
		}
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: label})
		return leveledField(label, f.Option, ll, level+1)
	case typedtree.FieldTuple:
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: label})
		for i, sub := range f.Tuple {
			ll = leveledField(fmt.Sprintf("[%d]", i), sub, ll, level+1)
		}
		return ll
	case typedtree.FieldList:
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: fmt.Sprintf("%s = %d element(s)", label, len(f.List))})
		for i, sub := range f.List {
			ll = leveledField(fmt.Sprintf("[%d]", i), sub, ll, level+1)
		}
		return ll
	}
	return ll
}
