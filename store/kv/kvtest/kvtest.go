// Package kvtest runs one shared property suite against any store/kv
// backend, the same "backend-agnostic test suite" pattern Cayley's
// graph/kv/kvtest package uses against bolt, badger, leveldb, and btree.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/store/kv"
)

// NewFunc constructs a fresh, empty Store for one test run.
type NewFunc func(t testing.TB) kv.Store

// RunSuite exercises put/get/del/scan and snapshot isolation against new.
func RunSuite(t *testing.T, new NewFunc) {
	t.Run("put-get", func(t *testing.T) { testPutGet(t, new(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, new(t)) })
	t.Run("prefix-scan-order", func(t *testing.T) { testScanOrder(t, new(t)) })
	t.Run("snapshot-isolation", func(t *testing.T) { testSnapshotIsolation(t, new(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, new(t)) })
}

func testPutGet(t *testing.T, s kv.Store) {
	defer s.Close()
	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("b1"))
		require.NoError(t, err)
		return b.Put([]byte("k1"), []byte("v1"))
	}))
	require.NoError(t, kv.View(s, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("b1"))
		require.NoError(t, err)
		v, err := b.Get([]byte("k1"))
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)
		ok, err := b.Contains([]byte("missing"))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func testDelete(t *testing.T, s kv.Store) {
	defer s.Close()
	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		return b.Put([]byte("k1"), []byte("v1"))
	}))
	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		return b.Del([]byte("k1"))
	}))
	require.NoError(t, kv.View(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		_, err := b.Get([]byte("k1"))
		require.Error(t, err)
		return nil
	}))
}

func testScanOrder(t *testing.T, s kv.Store) {
	defer s.Close()
	keys := []string{"a/2", "a/1", "a/3", "b/1"}
	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		for _, k := range keys {
			if err := b.Put([]byte(k), []byte("x")); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, kv.View(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		var got []string
		require.NoError(t, kv.Each(context.Background(), b, []byte("a/"), func(k, v []byte) bool {
			got = append(got, string(k))
			return true
		}))
		require.Equal(t, []string{"a/1", "a/2", "a/3"}, got)
		return nil
	}))
}

func testSnapshotIsolation(t *testing.T, s kv.Store) {
	defer s.Close()
	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		return b.Put([]byte("k1"), []byte("v1"))
	}))

	rtx, err := s.Tx(false)
	require.NoError(t, err)
	defer rtx.Rollback()

	require.NoError(t, kv.Update(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		return b.Put([]byte("k1"), []byte("v2"))
	}))

	b, err := rtx.Bucket([]byte("b1"))
	require.NoError(t, err)
	v, err := b.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v, "reader captured before the commit must not observe it")
}

func testRollback(t *testing.T, s kv.Store) {
	defer s.Close()
	tx, err := s.Tx(true)
	require.NoError(t, err)
	b, err := tx.Bucket([]byte("b1"))
	require.NoError(t, err)
	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, tx.Rollback())

	require.NoError(t, kv.View(s, func(tx kv.Tx) error {
		b, _ := tx.Bucket([]byte("b1"))
		_, err := b.Get([]byte("k1"))
		require.Error(t, err, "a rolled-back write must not be visible")
		return nil
	}))
}
