package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

func openTestContext(t *testing.T) (*store.Store, *engine.Context) {
	t.Helper()
	s := store.Open(memory.New())
	require.NoError(t, s.Update(func(w *store.Writer) error {
		rows := []quad.Quad{
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/b")},
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/c")},
			{Subject: quad.IRI("http://ex/b"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/c")},
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/age"), Object: quad.TypedLiteral{Value: "30", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
			{Subject: quad.IRI("http://ex/b"), Predicate: quad.IRI("http://ex/age"), Object: quad.TypedLiteral{Value: "25", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
		}
		for _, q := range rows {
			if _, err := w.Insert(q); err != nil {
				return err
			}
		}
		return nil
	}))

	r, err := s.Snapshot()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	return s, &engine.Context{Reader: r, Funcs: expr.NewRegistry()}
}

func knowsPattern(subj, obj algebra.Var) algebra.QuadPattern {
	return algebra.QuadPattern{
		Subject:   algebra.Term{Var: subj},
		Predicate: algebra.Term{Value: quad.IRI("http://ex/knows")},
		Object:    algebra.Term{Var: obj},
	}
}

func TestEvalQuadPatternBindsVariables(t *testing.T) {
	_, ec := openTestContext(t)

	it, err := engine.Eval(context.Background(), ec, knowsPattern("s", "o"))
	require.NoError(t, err)
	defer it.Close()

	var rows []engine.Solution
	for it.Next(context.Background()) {
		rows = append(rows, it.Solution())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 3)
}

func TestEvalJoinMatchesSharedVariable(t *testing.T) {
	_, ec := openTestContext(t)

	// ?x knows ?y . ?y knows ?z  (transitive pair: only a-b-c satisfies it)
	join := algebra.Join{
		Left:  knowsPattern("x", "y"),
		Right: knowsPattern("y", "z"),
	}
	it, err := engine.Eval(context.Background(), ec, join)
	require.NoError(t, err)
	defer it.Close()

	var rows []engine.Solution
	for it.Next(context.Background()) {
		rows = append(rows, it.Solution())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 1)
	require.Equal(t, quad.IRI("http://ex/a"), rows[0][algebra.Var("x")])
	require.Equal(t, quad.IRI("http://ex/b"), rows[0][algebra.Var("y")])
	require.Equal(t, quad.IRI("http://ex/c"), rows[0][algebra.Var("z")])
}

func TestEvalDistinctDropsDuplicates(t *testing.T) {
	_, ec := openTestContext(t)

	// project away ?o so (a,b) and (a,c) both collapse to ?s = a
	proj := algebra.Project{
		Inner: knowsPattern("s", "o"),
		Vars:  []algebra.Var{"s"},
	}
	it, err := engine.Eval(context.Background(), ec, algebra.Distinct{Inner: proj})
	require.NoError(t, err)
	defer it.Close()

	var rows []engine.Solution
	for it.Next(context.Background()) {
		rows = append(rows, it.Solution())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 2) // subjects a and b, deduplicated
}

func TestEvalOrderByNumericAscending(t *testing.T) {
	_, ec := openTestContext(t)

	agePattern := algebra.QuadPattern{
		Subject:   algebra.Term{Var: "s"},
		Predicate: algebra.Term{Value: quad.IRI("http://ex/age")},
		Object:    algebra.Term{Var: "age"},
	}
	ob := algebra.OrderBy{
		Inner:      agePattern,
		Conditions: []algebra.OrderCondition{{Expr: expr.VarRef{Name: "age"}}},
	}
	it, err := engine.Eval(context.Background(), ec, ob)
	require.NoError(t, err)
	defer it.Close()

	var ages []quad.Value
	for it.Next(context.Background()) {
		ages = append(ages, it.Solution()[algebra.Var("age")])
	}
	require.NoError(t, it.Err())
	require.Len(t, ages, 2)
	require.Equal(t, "25", ages[0].(quad.TypedLiteral).Value)
	require.Equal(t, "30", ages[1].(quad.TypedLiteral).Value)
}

func TestEvalGroupCountsPerSubject(t *testing.T) {
	_, ec := openTestContext(t)

	group := algebra.Group{
		Inner: knowsPattern("s", "o"),
		Keys:  []expr.Expr{expr.VarRef{Name: "s"}},
		Aggs:  []algebra.Aggregation{{Var: "n", Func: expr.AggCount}},
	}
	it, err := engine.Eval(context.Background(), ec, group)
	require.NoError(t, err)
	defer it.Close()

	counts := map[string]string{}
	for it.Next(context.Background()) {
		sol := it.Solution()
		s := sol[algebra.Var("s")].(quad.IRI)
		n := sol[algebra.Var("n")].(quad.TypedLiteral)
		counts[string(s)] = n.Value
	}
	require.NoError(t, it.Err())
	require.Equal(t, "2", counts["http://ex/a"])
	require.Equal(t, "1", counts["http://ex/b"])
}

func TestEvalFilterDropsNonMatching(t *testing.T) {
	_, ec := openTestContext(t)

	filter := algebra.Filter{
		Inner: knowsPattern("s", "o"),
		Expr: expr.Call{
			Op: expr.OpEqual,
			Args: []expr.Expr{
				expr.VarRef{Name: "o"},
				expr.Term{Value: quad.IRI("http://ex/c")},
			},
		},
	}
	it, err := engine.Eval(context.Background(), ec, filter)
	require.NoError(t, err)
	defer it.Close()

	n := 0
	for it.Next(context.Background()) {
		require.Equal(t, quad.IRI("http://ex/c"), it.Solution()[algebra.Var("o")])
		n++
	}
	require.NoError(t, it.Err())
	require.Equal(t, 2, n)
}
