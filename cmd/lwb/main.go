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

// Binary lwb is a thin front end over the language workbench pipeline:
// `parse` runs a grammar against one input and prints the typed tree (or
// diagnostics), `repl` loads a grammar once and reparses successive lines.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/pterm/pterm"
)

func main() {
	if len(os.Args) < 2 {
		log.Exitf("usage: lwb <parse|repl> [flags]")
	}
	sub := os.Args[1]
	args := os.Args[2:]
	switch sub {
	case "parse":
		runParse(args)
	case "repl":
		runRepl(args)
	default:
		log.Exitf("unknown subcommand %q, want one of: parse, repl", sub)
	}
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	grammarFile := fs.String("grammar", "", "Path to the grammar source file.")
	inputFile := fs.String("input", "", "Path to the input file to parse.")
	if err := fs.Parse(args); err != nil {
		log.Exitf("parsing flags: %s", err)
	}
	if *grammarFile == "" || *inputFile == "" {
		log.Exitf("both --grammar and --input are required")
	}

	grammarSrc, err := os.ReadFile(*grammarFile)
	if err != nil {
		log.Exitf("reading grammar file %q: %s", *grammarFile, err)
	}
	inputSrc, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Exitf("reading input file %q: %s", *inputFile, err)
	}

	lg, err := loadGrammar(*grammarFile, string(grammarSrc))
	if err != nil {
		log.Exitf("loading grammar: %s", err)
	}
	node, err := lg.parse(*inputFile, string(inputSrc))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	renderTree(node)
	fmt.Println("OK")
}
