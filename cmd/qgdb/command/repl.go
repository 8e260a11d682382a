package command

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/queryexec"
	"github.com/quadgraph/qgdb/store"
)

// updateKeywords are the SPARQL Update request keywords that open a
// request (spec §4.I); the repl uses the first non-prefix keyword on a
// line to decide whether to run it as a query or an update, the same
// dispatch Cayley's repl.go makes by query language rather than by
// keyword (it only ever runs one language at a time).
var updateKeywords = []string{
	"INSERT", "DELETE", "LOAD", "CLEAR", "CREATE", "DROP", "ADD", "MOVE", "COPY", "WITH",
}

func looksLikeUpdate(line string) bool {
	toks := strings.Fields(line)
	for i := 0; i < len(toks); i++ {
		up := strings.ToUpper(toks[i])
		if up == "PREFIX" {
			// skip this token and the two following it (prefix name, IRI)
			i += 2
			continue
		}
		if up == "BASE" {
			// skip this token and the IRI following it
			i++
			continue
		}
		for _, kw := range updateKeywords {
			if up == kw {
				return true
			}
		}
		return false
	}
	return false
}

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Read SPARQL queries/updates from stdin, one per line, printing each result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			sc := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(os.Stderr, "qgdb> ")
				if !sc.Scan() {
					break
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if err := runReplLine(ctx, s, line); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
			return sc.Err()
		},
	}
	return cmd
}

func runReplLine(ctx context.Context, s *store.Store, line string) error {
	if looksLikeUpdate(line) {
		return s.Update(func(w *store.Writer) error {
			return queryexec.Update(ctx, w, line, queryexec.Options{})
		})
	}
	r, err := s.Snapshot()
	if err != nil {
		return err
	}
	defer r.Close()
	res, err := queryexec.Query(ctx, r, line, queryexec.Options{})
	if err != nil {
		return err
	}
	return printResult(ctx, res)
}
