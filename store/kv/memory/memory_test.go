package memory_test

import (
	"testing"

	"github.com/quadgraph/qgdb/store/kv"
	"github.com/quadgraph/qgdb/store/kv/kvtest"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

func TestMemory(t *testing.T) {
	kvtest.RunSuite(t, func(t testing.TB) kv.Store { return memory.New() })
}
