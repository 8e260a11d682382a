package command

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/internal/quadio"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Bulk-dump the database into a file (or stdout with \"-\"/no argument).",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			out := os.Stdout
			if path != "-" {
				out, err = os.Create(path)
				if err != nil {
					return err
				}
				defer out.Close()
			}

			r, err := s.Snapshot()
			if err != nil {
				return err
			}
			defer r.Close()

			n := 0
			var writeErr error
			err = r.QuadsForPattern(context.Background(), store.Pattern{}, func(q quad.Quad) bool {
				if writeErr = quadio.WriteQuad(out, q); writeErr != nil {
					return false
				}
				n++
				return true
			})
			if err != nil {
				return err
			}
			if writeErr != nil {
				return writeErr
			}
			clog.Infof("qgdb: dumped %d quads", n)
			return nil
		},
	}
	return cmd
}
