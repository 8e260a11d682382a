package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/queryexec"
)

func newQueryCmd() *cobra.Command {
	var baseIRI string
	var noOptimize bool
	cmd := &cobra.Command{
		Use:   "query <sparql>",
		Short: "Run a SPARQL query against the database and print its result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.Snapshot()
			if err != nil {
				return err
			}
			defer r.Close()

			ctx := context.Background()
			res, err := queryexec.Query(ctx, r, args[0], queryexec.Options{
				BaseIRI:              baseIRI,
				DisableOptimizations: noOptimize,
			})
			if err != nil {
				return err
			}
			return printResult(ctx, res)
		},
	}
	cmd.Flags().StringVar(&baseIRI, "base", "", "base IRI for relative IRI resolution")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip the optimizer rewrite pass")
	return cmd
}

func printResult(ctx context.Context, res *queryexec.QueryResult) error {
	switch res.Form {
	case algebra.Ask:
		fmt.Fprintln(os.Stdout, res.Boolean)
		return nil
	case algebra.Construct, algebra.Describe:
		defer res.Triples.Close()
		for res.Triples.Next(ctx) {
			fmt.Fprintln(os.Stdout, res.Triples.Triple().Subject.String(), res.Triples.Triple().Predicate.String(), res.Triples.Triple().Object.String(), ".")
		}
		return res.Triples.Err()
	default:
		defer res.Solutions.Close()
		vars := res.Solutions.Vars
		for res.Solutions.Next(ctx) {
			for i, v := range vars {
				if i > 0 {
					fmt.Fprint(os.Stdout, " ")
				}
				if val, ok := res.Solutions.Binding(v); ok {
					fmt.Fprintf(os.Stdout, "%s=%s", v, val.String())
				} else {
					fmt.Fprintf(os.Stdout, "%s=unbound", v)
				}
			}
			fmt.Fprintln(os.Stdout)
		}
		return res.Solutions.Err()
	}
}
