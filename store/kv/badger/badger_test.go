package badger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/store/kv"
	"github.com/quadgraph/qgdb/store/kv/badger"
	"github.com/quadgraph/qgdb/store/kv/kvtest"
)

func TestBadger(t *testing.T) {
	kvtest.RunSuite(t, func(t testing.TB) kv.Store {
		s, err := badger.Open(t.TempDir(), kv.Options{})
		require.NoError(t, err)
		return s
	})
}
