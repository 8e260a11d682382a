package queryexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/queryexec"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.Open(memory.New())
	require.NoError(t, s.Update(func(w *store.Writer) error {
		rows := []quad.Quad{
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/b")},
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/c")},
		}
		for _, q := range rows {
			if _, err := w.Insert(q); err != nil {
				return err
			}
		}
		return nil
	}))
	return s
}

func TestQuerySelect(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	res, err := queryexec.Query(context.Background(), r, `SELECT ?o WHERE { <http://ex/a> <http://ex/knows> ?o }`, queryexec.Options{})
	require.NoError(t, err)
	require.Equal(t, algebra.Select, res.Form)
	defer res.Solutions.Close()

	var objs []quad.Value
	for res.Solutions.Next(context.Background()) {
		v, ok := res.Solutions.Binding("o")
		require.True(t, ok)
		objs = append(objs, v)
	}
	require.NoError(t, res.Solutions.Err())
	require.Len(t, objs, 2)
}

func TestQueryAsk(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	res, err := queryexec.Query(context.Background(), r, `ASK { <http://ex/a> <http://ex/knows> <http://ex/b> }`, queryexec.Options{})
	require.NoError(t, err)
	require.Equal(t, algebra.Ask, res.Form)
	require.True(t, bool(res.Boolean))
}

func TestQueryConstruct(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	res, err := queryexec.Query(context.Background(), r,
		`CONSTRUCT { ?s <http://ex/related> ?o } WHERE { ?s <http://ex/knows> ?o }`, queryexec.Options{})
	require.NoError(t, err)
	require.Equal(t, algebra.Construct, res.Form)
	defer res.Triples.Close()

	n := 0
	for res.Triples.Next(context.Background()) {
		require.Equal(t, quad.IRI("http://ex/related"), res.Triples.Triple().Predicate)
		n++
	}
	require.NoError(t, res.Triples.Err())
	require.Equal(t, 2, n)
}

func TestQueryDisableOptimizationsStillProducesSameResults(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	res, err := queryexec.Query(context.Background(), r,
		`SELECT ?o WHERE { <http://ex/a> <http://ex/knows> ?o }`, queryexec.Options{DisableOptimizations: true})
	require.NoError(t, err)
	defer res.Solutions.Close()

	n := 0
	for res.Solutions.Next(context.Background()) {
		n++
	}
	require.NoError(t, res.Solutions.Err())
	require.Equal(t, 2, n)
}

func TestUpdateInsertData(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Update(func(w *store.Writer) error {
		return queryexec.Update(context.Background(), w, `INSERT DATA { <http://ex/a> <http://ex/knows> <http://ex/d> }`, queryexec.Options{})
	}))

	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()
	res, err := queryexec.Query(context.Background(), r, `SELECT ?o WHERE { <http://ex/a> <http://ex/knows> ?o }`, queryexec.Options{})
	require.NoError(t, err)
	defer res.Solutions.Close()

	n := 0
	for res.Solutions.Next(context.Background()) {
		n++
	}
	require.NoError(t, res.Solutions.Err())
	require.Equal(t, 3, n)
}

func TestQueryParseErrorPropagates(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r, err := s.Snapshot()
	require.NoError(t, err)
	defer r.Close()

	_, err = queryexec.Query(context.Background(), r, `SELECT ?s WHERE ?s`, queryexec.Options{})
	require.Error(t, err)
}
