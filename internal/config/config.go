// Package config loads qgdb runtime configuration, binding the same
// store.backend / store.path / store.options / store.read_only keys
// Cayley's cmd/cayley/command package binds through viper, plus the
// execution-limit keys from spec §6.3.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyBackend  = "store.backend"
	KeyPath     = "store.path"
	KeyOptions  = "store.options"
	KeyReadOnly = "store.read_only"

	KeyLoadBatch = "load.batch"

	KeyLimitTimeout        = "limits.timeout"
	KeyLimitMaxRows        = "limits.max_result_rows"
	KeyLimitMaxGroups      = "limits.max_groups"
	KeyLimitMaxPathDepth   = "limits.max_property_path_depth"
	KeyLimitMaxMemoryBytes = "limits.max_memory_bytes"
)

// Config is the resolved, typed view of a qgdb deployment's settings.
type Config struct {
	Backend  string
	Path     string
	Options  map[string]interface{}
	ReadOnly bool

	LoadBatchSize int

	Timeout         time.Duration
	MaxResultRows   uint64
	MaxGroups       uint64
	MaxPathDepth    uint64
	MaxMemoryBytes  uint64
}

// Default returns the configuration baseline used when no file or flags
// override it: an in-memory backend with conservative execution limits.
func Default() Config {
	return Config{
		Backend:        "memory",
		Path:           "",
		Options:        map[string]interface{}{},
		LoadBatchSize:  10000,
		Timeout:        30 * time.Second,
		MaxResultRows:  1_000_000,
		MaxGroups:      1_000_000,
		MaxPathDepth:   10_000,
		MaxMemoryBytes: 1 << 30,
	}
}

// Load reads a JSON configuration file into v, the same shape Cayley's
// internal/config.Load uses (a plain JSON document with viper-style dotted
// keys flattened into nested objects).
func Load(path string, v *viper.Viper) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		var raw map[string]interface{}
		if err := json.NewDecoder(f).Decode(&raw); err != nil {
			return cfg, err
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return cfg, err
		}
	}
	return FromViper(v), nil
}

// FromViper resolves a Config from a bound viper instance (CLI flags take
// precedence over file values, which take precedence over Default()).
func FromViper(v *viper.Viper) Config {
	cfg := Default()
	if s := v.GetString(KeyBackend); s != "" {
		cfg.Backend = s
	}
	if s := v.GetString(KeyPath); s != "" {
		cfg.Path = s
	}
	if opts := v.GetStringMap(KeyOptions); len(opts) > 0 {
		cfg.Options = opts
	}
	cfg.ReadOnly = v.GetBool(KeyReadOnly)
	if n := v.GetInt(KeyLoadBatch); n > 0 {
		cfg.LoadBatchSize = n
	}
	if d := v.GetDuration(KeyLimitTimeout); d > 0 {
		cfg.Timeout = d
	}
	if n := v.GetUint64(KeyLimitMaxRows); n > 0 {
		cfg.MaxResultRows = n
	}
	if n := v.GetUint64(KeyLimitMaxGroups); n > 0 {
		cfg.MaxGroups = n
	}
	if n := v.GetUint64(KeyLimitMaxPathDepth); n > 0 {
		cfg.MaxPathDepth = n
	}
	if n := v.GetUint64(KeyLimitMaxMemoryBytes); n > 0 {
		cfg.MaxMemoryBytes = n
	}
	return cfg
}
