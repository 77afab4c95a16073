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
	"flag"
	"os"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/golang/glog"
	"github.com/pterm/pterm"
)

// runRepl loads a grammar once and then reparses every line a user enters,
// following the load-once/reparse-many loop gorgo's trepl REPL uses for its
// s-expression sandbox.
func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	grammarFile := fs.String("grammar", "", "Path to the grammar source file.")
	if err := fs.Parse(args); err != nil {
		log.Exitf("parsing flags: %s", err)
	}
	if *grammarFile == "" {
		log.Exitf("--grammar is required")
	}

	grammarSrc, err := os.ReadFile(*grammarFile)
	if err != nil {
		log.Exitf("reading grammar file %q: %s", *grammarFile, err)
	}
	lg, err := loadGrammar(*grammarFile, string(grammarSrc))
	if err != nil {
		log.Exitf("loading grammar: %s", err)
	}

	rl, err := readline.New("lwb> ")
	if err != nil {
		log.Exitf("starting readline: %s", err)
	}
	defer rl.Close()

	pterm.Info.Printfln("Loaded grammar %q, start sort %q. Quit with <ctrl>D.", *grammarFile, lg.sugared.Start)

	for i := 0; ; i++ {
		line, err := rl.Readline()
		if err != nil { // io.EOF on <ctrl>D
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		node, err := lg.parse("repl", line)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		renderTree(node)
	}
	pterm.Info.Println("Good bye!")
}
