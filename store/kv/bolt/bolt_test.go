package bolt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/store/kv"
	"github.com/quadgraph/qgdb/store/kv/bolt"
	"github.com/quadgraph/qgdb/store/kv/kvtest"
)

func TestBolt(t *testing.T) {
	kvtest.RunSuite(t, func(t testing.TB) kv.Store {
		s, err := bolt.Open(t.TempDir(), kv.Options{})
		require.NoError(t, err)
		return s
	})
}
