package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/encoding"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store/index"
	"github.com/quadgraph/qgdb/store/kv"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

func encodeQuad(t *testing.T, tx kv.Tx, q quad.Quad) encoding.EncodedQuad {
	t.Helper()
	b, err := tx.Bucket(index.CFID2Str)
	require.NoError(t, err)
	enc := &encoding.Encoder{Dict: &index.Dict{B: b}}
	eq, err := enc.EncodeQuad(q)
	require.NoError(t, err)
	return eq
}

func TestInsertRemoveAllPermutations(t *testing.T) {
	s := memory.New()
	tx, err := s.Tx(true)
	require.NoError(t, err)

	qd := quad.Quad{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/p"), Object: quad.IRI("http://ex/b")}
	eq := encodeQuad(t, tx, qd)

	inserted, err := index.Insert(tx, eq)
	require.NoError(t, err)
	require.True(t, inserted)

	for _, cf := range [][]byte{index.CFSPOG, index.CFPOSG, index.CFOSPG, index.CFGSPO, index.CFGPOS, index.CFGOSP} {
		b, err := tx.Bucket(cf)
		require.NoError(t, err)
		n := 0
		require.NoError(t, kv.Each(context.Background(), b, nil, func(_, _ []byte) bool { n++; return true }))
		require.Equal(t, 1, n, "permutation %s should have exactly one key", cf)
	}

	ok, err := index.Contains(tx, eq)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := index.Remove(tx, eq)
	require.NoError(t, err)
	require.True(t, removed)

	ok, err = index.Contains(tx, eq)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tx.Commit())
}

func TestForPatternChoosesPermutation(t *testing.T) {
	p, n := index.ForPattern(true, false, false, false)
	require.Equal(t, index.PermSPOG, p)
	require.Equal(t, 1, n)

	p, n = index.ForPattern(false, false, false, true)
	require.Equal(t, index.PermGSPO, p)
	require.Equal(t, 1, n)

	p, n = index.ForPattern(true, true, false, true)
	require.Equal(t, index.PermGSPO, p)
	require.Equal(t, 3, n)

	p, n = index.ForPattern(false, false, false, false)
	require.Equal(t, index.PermSPOG, p)
	require.Equal(t, 0, n)
}

func TestNamedGraphRegistry(t *testing.T) {
	s := memory.New()
	tx, err := s.Tx(true)
	require.NoError(t, err)

	qd := quad.Quad{
		Subject:   quad.IRI("http://ex/a"),
		Predicate: quad.IRI("http://ex/p"),
		Object:    quad.IRI("http://ex/b"),
		Graph:     quad.IRI("http://ex/g1"),
	}
	eq := encodeQuad(t, tx, qd)

	_, err = index.Insert(tx, eq)
	require.NoError(t, err)

	ok, err := index.ContainsNamedGraph(tx, eq.G)
	require.NoError(t, err)
	require.True(t, ok)

	var seen int
	require.NoError(t, index.NamedGraphs(context.Background(), tx, func(encoding.EncodedTerm) bool {
		seen++
		return true
	}))
	require.Equal(t, 1, seen)

	require.NoError(t, tx.Commit())
}

func TestDictRefcounting(t *testing.T) {
	s := memory.New()
	tx, err := s.Tx(true)
	require.NoError(t, err)
	b, err := tx.Bucket(index.CFID2Str)
	require.NoError(t, err)
	d := &index.Dict{B: b}

	long := []byte("http://example.org/a-very-long-iri-exceeding-sixteen-bytes")
	h := mustHash(t, d, long)

	data, ok, err := d.Lookup(h)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, long, data)

	require.NoError(t, d.Release(h))
	require.NoError(t, d.Release(h))
	require.NoError(t, d.Release(h)) // floors at zero, never errors

	_, ok, err = d.Lookup(h)
	require.NoError(t, err)
	require.True(t, ok, "Release never deletes; GC is deferred to Store.Optimize")
}

func mustHash(t *testing.T, d *index.Dict, data []byte) encoding.Hash128 {
	t.Helper()
	enc := &encoding.Encoder{Dict: d}
	et, err := enc.EncodeTerm(quad.IRI(string(data)))
	require.NoError(t, err)
	var h encoding.Hash128
	copy(h[:], et[1:17])
	require.NoError(t, d.Insert(h, data)) // second reference
	return h
}
