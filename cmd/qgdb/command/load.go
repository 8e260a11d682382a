package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/internal/quadio"
	"github.com/quadgraph/qgdb/quad"
)

func newLoadCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Bulk-load quads from a file (or stdin with \"-\"/no argument) into the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			f := os.Stdin
			if path != "-" {
				f, err = os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
			}

			if batch <= 0 {
				batch = cfg.LoadBatchSize
			}
			bl := s.BulkLoader(batch)
			var readErr error
			err = bl.LoadQuads(func(yield func(quad.Quad) bool) {
				readErr = quadio.ReadQuads(f, yield)
			})
			if err != nil {
				return err
			}
			if readErr != nil {
				return readErr
			}
			clog.Infof("qgdb: loaded %d quads (%d skipped as duplicates)", bl.Inserted, bl.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "commit every N quads (defaults to load.batch config)")
	return cmd
}
