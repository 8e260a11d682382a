// Package command implements qgdb's cobra command tree: init, load,
// dump, query, update, repl. Grounded on the teacher's
// cmd/cayley/command package, which binds the same viper-backed flags
// (store.backend, store.path, store.options, store.read_only) to a
// cobra.Command tree and opens a graph.Handle per invocation the same
// way NewRootCmd here opens a store.Store.
package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/internal/config"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/store/kv"

	_ "github.com/quadgraph/qgdb/store/kv/badger"
	_ "github.com/quadgraph/qgdb/store/kv/bolt"
	_ "github.com/quadgraph/qgdb/store/kv/leveldb"
	_ "github.com/quadgraph/qgdb/store/kv/memory"
)

var v = viper.New()

// NewRootCmd builds the top-level qgdb command, with every subcommand
// attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qgdb",
		Short:         "qgdb is a SPARQL 1.1 graph database.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "path to a JSON configuration file")
	root.PersistentFlags().String("db", "memory", fmt.Sprintf("storage backend (%s)", strings.Join(kv.Backends(), ", ")))
	root.PersistentFlags().String("dbpath", "", "path to the database (ignored by the memory backend)")
	root.PersistentFlags().Bool("read_only", false, "stored as store.read_only in the configuration; no command reads it")
	root.PersistentFlags().Int("verbosity", 0, "clog verbosity level")

	v.BindPFlag(config.KeyBackend, root.PersistentFlags().Lookup("db"))
	v.BindPFlag(config.KeyPath, root.PersistentFlags().Lookup("dbpath"))
	v.BindPFlag(config.KeyReadOnly, root.PersistentFlags().Lookup("read_only"))
	v.BindPFlag("verbosity", root.PersistentFlags().Lookup("verbosity"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		clog.SetV(v.GetInt("verbosity"))
		return nil
	}

	root.AddCommand(
		newInitCmd(),
		newLoadCmd(),
		newDumpCmd(),
		newQueryCmd(),
		newUpdateCmd(),
		newReplCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	return config.Load(file, v)
}

// openStore opens the configured backend's kv.Store and wraps it as a
// store.Store. The caller must Close it.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	kvs, err := kv.Open(cfg.Backend, cfg.Path, kv.Options(cfg.Options))
	if err != nil {
		return nil, cfg, err
	}
	clog.Infof("qgdb: opened %s backend at %q", cfg.Backend, cfg.Path)
	return store.Open(kvs), cfg, nil
}

func printBackends() {
	names := kv.Backends()
	sort.Strings(names)
	clog.Infof("qgdb: registered backends: %s", strings.Join(names, ", "))
}
