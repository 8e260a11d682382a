package command

import (
	"github.com/spf13/cobra"

	"github.com/quadgraph/qgdb/internal/clog"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBackends()
			s, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			clog.Infof("qgdb: initialized %s database at %q", cfg.Backend, cfg.Path)
			return nil
		},
	}
}
