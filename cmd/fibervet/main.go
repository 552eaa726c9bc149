// Fibervet reports fiber entry functions that can return without
// calling Exit.
//
// Run it directly on packages:
//
//	fibervet ./...
//
// or through go vet:
//
//	go vet -vettool=$(which fibervet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/loomkit/fiber/fiberexit"
)

func main() { singlechecker.Main(fiberexit.Analyzer) }
