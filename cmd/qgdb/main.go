// Command qgdb is the qgdb CLI: init/load/dump/query/update/repl over a
// SPARQL 1.1 graph store (spec §6). Grounded on the teacher's
// cmd/cayley/cayley.go entry point, generalized from flag-package flags
// to the cmd/cayley/command cobra tree's pattern of one *cobra.Command
// constructor per subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/quadgraph/qgdb/cmd/qgdb/command"
)

func main() {
	if err := command.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
