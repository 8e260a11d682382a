package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return store.Open(memory.New())
}

func q(s, p, o string) quad.Quad {
	return quad.Quad{Subject: quad.IRI(s), Predicate: quad.IRI(p), Object: quad.IRI(o)}
}

func TestInsertContainsRemove(t *testing.T) {
	s := openStore(t)
	defer s.Close()

	quad1 := q("http://ex/a", "http://ex/knows", "http://ex/b")

	err := s.Update(func(w *store.Writer) error {
		ok, err := w.Insert(quad1)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = w.Insert(quad1)
		require.NoError(t, err)
		require.False(t, ok, "duplicate insert must report false")
		return nil
	})
	require.NoError(t, err)

	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	ok, err := r.Contains(quad1)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := r.Len(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = s.Update(func(w *store.Writer) error {
		removed, err := w.Remove(quad1)
		require.NoError(t, err)
		require.True(t, removed)
		return nil
	})
	require.NoError(t, err)

	r2, err := s.Snapshot()
	require.NoError(t, err)
	defer r2.Close()

	empty, err := r2.IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestQuadsForPattern(t *testing.T) {
	s := openStore(t)
	defer s.Close()

	a := q("http://ex/a", "http://ex/knows", "http://ex/b")
	c := q("http://ex/a", "http://ex/knows", "http://ex/c")
	d := q("http://ex/x", "http://ex/knows", "http://ex/y")

	require.NoError(t, s.Update(func(w *store.Writer) error {
		for _, quad := range []quad.Quad{a, c, d} {
			if _, err := w.Insert(quad); err != nil {
				return err
			}
		}
		return nil
	}))

	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	var got []quad.Quad
	err = r.QuadsForPattern(context.Background(), store.Pattern{Subject: quad.IRI("http://ex/a")}, func(qd quad.Quad) bool {
		got = append(got, qd)
		return true
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestNamedGraphs(t *testing.T) {
	s := openStore(t)
	defer s.Close()

	g := quad.IRI("http://ex/g1")
	require.NoError(t, s.Update(func(w *store.Writer) error {
		return w.InsertNamedGraph(g)
	}))

	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	ok, err := r.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.True(t, ok)

	var names []quad.Value
	err = r.NamedGraphs(context.Background(), func(v quad.Value) bool {
		names = append(names, v)
		return true
	})
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestSnapshotIsolation(t *testing.T) {
	s := openStore(t)
	defer s.Close()

	quad1 := q("http://ex/a", "http://ex/knows", "http://ex/b")

	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, s.Update(func(w *store.Writer) error {
		_, err := w.Insert(quad1)
		return err
	}))

	ok, err := r.Contains(quad1)
	require.NoError(t, err)
	require.False(t, ok, "snapshot taken before the write must not observe it")
}

func TestOptimizeSweepsDeadDictionaryEntries(t *testing.T) {
	s := openStore(t)
	defer s.Close()

	long := quad.IRI("http://example.org/a-very-long-iri-that-exceeds-inline-capacity")
	quad1 := quad.Quad{Subject: long, Predicate: quad.IRI("http://ex/p"), Object: quad.IRI("http://ex/o")}

	require.NoError(t, s.Update(func(w *store.Writer) error {
		_, err := w.Insert(quad1)
		return err
	}))
	require.NoError(t, s.Update(func(w *store.Writer) error {
		_, err := w.Remove(quad1)
		return err
	}))
	require.NoError(t, s.Optimize())
}
