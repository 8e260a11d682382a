// Package all imports every store/kv backend for its registration side
// effect, so a binary can select a backend by name at runtime. Mirrors
// Cayley's graph/kv/all package.
package all

import (
	_ "github.com/quadgraph/qgdb/store/kv/badger"
	_ "github.com/quadgraph/qgdb/store/kv/bolt"
	_ "github.com/quadgraph/qgdb/store/kv/leveldb"
	_ "github.com/quadgraph/qgdb/store/kv/memory"
)
