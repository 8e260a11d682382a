package results_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/results"
)

type fakeIterator struct {
	rows []engine.Solution
	pos  int
	err  error
}

func (f *fakeIterator) Next(ctx context.Context) bool {
	if f.pos+1 >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}
func (f *fakeIterator) Solution() engine.Solution { return f.rows[f.pos] }
func (f *fakeIterator) Err() error                 { return f.err }
func (f *fakeIterator) Close() error               { return nil }

func TestQuerySolutionIterBindingAndOrder(t *testing.T) {
	it := &fakeIterator{pos: -1, rows: []engine.Solution{
		{"s": quad.IRI("http://ex/a"), "o": quad.IRI("http://ex/b")},
		{"s": quad.IRI("http://ex/c")},
	}}
	qsi := results.NewQuerySolutionIter(it, []algebra.Var{"s", "o"})

	require.True(t, qsi.Next(context.Background()))
	v, ok := qsi.Binding("s")
	require.True(t, ok)
	require.Equal(t, quad.IRI("http://ex/a"), v)
	v, ok = qsi.Binding("o")
	require.True(t, ok)
	require.Equal(t, quad.IRI("http://ex/b"), v)

	require.True(t, qsi.Next(context.Background()))
	_, ok = qsi.Binding("o")
	require.False(t, ok)

	require.False(t, qsi.Next(context.Background()))
	require.NoError(t, qsi.Err())
}

func TestQuerySolutionIterPropagatesError(t *testing.T) {
	boom := context.Canceled
	it := &fakeIterator{pos: -1, err: boom}
	qsi := results.NewQuerySolutionIter(it, nil)
	require.False(t, qsi.Next(context.Background()))
	require.Equal(t, boom, qsi.Err())
}

func TestQueryTripleIterInstantiatesTemplate(t *testing.T) {
	it := &fakeIterator{pos: -1, rows: []engine.Solution{
		{"s": quad.IRI("http://ex/a"), "o": quad.IRI("http://ex/b")},
	}}
	tmpl := []algebra.QuadTemplate{
		{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/sameAs")},
			Object:    algebra.Term{Var: "o"},
		},
	}
	qti := results.NewQueryTripleIter(it, tmpl)
	require.True(t, qti.Next(context.Background()))
	tr := qti.Triple()
	require.Equal(t, quad.IRI("http://ex/a"), tr.Subject)
	require.Equal(t, quad.IRI("http://ex/sameAs"), tr.Predicate)
	require.Equal(t, quad.IRI("http://ex/b"), tr.Object)
	require.False(t, qti.Next(context.Background()))
	require.NoError(t, qti.Err())
}

func TestQueryTripleIterSkipsUnboundTemplateTerm(t *testing.T) {
	it := &fakeIterator{pos: -1, rows: []engine.Solution{
		{"s": quad.IRI("http://ex/a")}, // "o" left unbound
	}}
	tmpl := []algebra.QuadTemplate{
		{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/sameAs")},
			Object:    algebra.Term{Var: "o"},
		},
	}
	qti := results.NewQueryTripleIter(it, tmpl)
	require.False(t, qti.Next(context.Background()))
	require.NoError(t, qti.Err())
}

func TestQueryTripleIterFreshensBlankNodesPerSolution(t *testing.T) {
	it := &fakeIterator{pos: -1, rows: []engine.Solution{
		{"s": quad.IRI("http://ex/a")},
		{"s": quad.IRI("http://ex/b")},
	}}
	tmpl := []algebra.QuadTemplate{
		{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/p")},
			Object:    algebra.Term{Value: quad.BNode("x")},
		},
	}
	qti := results.NewQueryTripleIter(it, tmpl)
	require.True(t, qti.Next(context.Background()))
	first := qti.Triple().Object.(quad.BNode)
	require.True(t, qti.Next(context.Background()))
	second := qti.Triple().Object.(quad.BNode)
	require.NotEqual(t, first, second)
}

func TestEvalBooleanTrueWhenSolutionExists(t *testing.T) {
	it := &fakeIterator{pos: -1, rows: []engine.Solution{{}}}
	b, err := results.EvalBoolean(context.Background(), it)
	require.NoError(t, err)
	require.True(t, bool(b))
}

func TestEvalBooleanFalseWhenNoSolutions(t *testing.T) {
	it := &fakeIterator{pos: -1}
	b, err := results.EvalBoolean(context.Background(), it)
	require.NoError(t, err)
	require.False(t, bool(b))
}
