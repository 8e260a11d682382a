package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/queryexec"
	"github.com/quadgraph/qgdb/store"
)

func newUpdateCmd() *cobra.Command {
	var baseIRI string
	cmd := &cobra.Command{
		Use:   "update <sparql-update>",
		Short: "Run a SPARQL Update request against the database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			err = s.Update(func(w *store.Writer) error {
				return queryexec.Update(context.Background(), w, args[0], queryexec.Options{BaseIRI: baseIRI})
			})
			if err != nil {
				return err
			}
			clog.Infof("qgdb: update applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&baseIRI, "base", "", "base IRI for relative IRI resolution")
	return cmd
}
