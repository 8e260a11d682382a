package leveldb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/store/kv"
	"github.com/quadgraph/qgdb/store/kv/kvtest"
	"github.com/quadgraph/qgdb/store/kv/leveldb"
)

func TestLevelDB(t *testing.T) {
	kvtest.RunSuite(t, func(t testing.TB) kv.Store {
		s, err := leveldb.Open(t.TempDir(), kv.Options{})
		require.NoError(t, err)
		return s
	})
}
