package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/service"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/store/kv/memory"
)

// openChainContext builds a -> b -> c -> d knows-chain, for property path tests.
func openChainContext(t *testing.T) *engine.Context {
	t.Helper()
	s := store.Open(memory.New())
	require.NoError(t, s.Update(func(w *store.Writer) error {
		rows := []quad.Quad{
			{Subject: quad.IRI("http://ex/a"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/b")},
			{Subject: quad.IRI("http://ex/b"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/c")},
			{Subject: quad.IRI("http://ex/c"), Predicate: quad.IRI("http://ex/knows"), Object: quad.IRI("http://ex/d")},
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
	return &engine.Context{Reader: r, Funcs: expr.NewRegistry()}
}

func TestEvalPathZeroOrMoreFromBoundSubject(t *testing.T) {
	ec := openChainContext(t)
	path := algebra.Path{
		Subject: algebra.Term{Value: quad.IRI("http://ex/a")},
		Object:  algebra.Term{Var: "o"},
		Expr:    algebra.PathZeroOrMore{Path: algebra.PathPredicate{IRI: quad.IRI("http://ex/knows")}},
	}
	it, err := engine.Eval(context.Background(), ec, path)
	require.NoError(t, err)
	defer it.Close()

	reached := map[string]bool{}
	for it.Next(context.Background()) {
		reached[it.Solution()[algebra.Var("o")].String()] = true
	}
	require.NoError(t, it.Err())
	// a, a-b, a-b-c, a-b-c-d all reachable (zero-or-more includes start)
	require.Len(t, reached, 4)
	require.True(t, reached["<http://ex/a>"])
	require.True(t, reached["<http://ex/d>"])
}

func TestEvalPathOneOrMoreExcludesStart(t *testing.T) {
	ec := openChainContext(t)
	path := algebra.Path{
		Subject: algebra.Term{Value: quad.IRI("http://ex/a")},
		Object:  algebra.Term{Var: "o"},
		Expr:    algebra.PathOneOrMore{Path: algebra.PathPredicate{IRI: quad.IRI("http://ex/knows")}},
	}
	it, err := engine.Eval(context.Background(), ec, path)
	require.NoError(t, err)
	defer it.Close()

	reached := map[string]bool{}
	for it.Next(context.Background()) {
		reached[it.Solution()[algebra.Var("o")].String()] = true
	}
	require.NoError(t, it.Err())
	require.Len(t, reached, 3)
	require.False(t, reached["<http://ex/a>"])
}

func TestEvalPathInverse(t *testing.T) {
	ec := openChainContext(t)
	path := algebra.Path{
		Subject: algebra.Term{Value: quad.IRI("http://ex/b")},
		Object:  algebra.Term{Var: "s"},
		Expr:    algebra.PathInverse{Path: algebra.PathPredicate{IRI: quad.IRI("http://ex/knows")}},
	}
	it, err := engine.Eval(context.Background(), ec, path)
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next(context.Background()))
	require.Equal(t, quad.IRI("http://ex/a"), it.Solution()[algebra.Var("s")])
	require.False(t, it.Next(context.Background()))
	require.NoError(t, it.Err())
}

func TestEvalPathDepthLimitErrors(t *testing.T) {
	ec := openChainContext(t)
	ec.Limits = engine.Limits{MaxPropertyPathDepth: 1}
	path := algebra.Path{
		Subject: algebra.Term{Value: quad.IRI("http://ex/a")},
		Object:  algebra.Term{Var: "o"},
		Expr:    algebra.PathZeroOrMore{Path: algebra.PathPredicate{IRI: quad.IRI("http://ex/knows")}},
	}
	_, err := engine.Eval(context.Background(), ec, path)
	require.Error(t, err)
}

func TestEvalGroupCountStarOverEmptyInputStillYieldsOneRow(t *testing.T) {
	ec := openChainContext(t)
	// filter to nothing, so the inner pattern has zero solutions
	noMatch := algebra.Filter{
		Inner: algebra.QuadPattern{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/knows")},
			Object:    algebra.Term{Var: "o"},
		},
		Expr: expr.Call{Op: expr.OpEqual, Args: []expr.Expr{
			expr.VarRef{Name: "s"},
			expr.Term{Value: quad.IRI("http://ex/nobody")},
		}},
	}
	group := algebra.Group{
		Inner: noMatch,
		Aggs:  []algebra.Aggregation{{Var: "n", Func: expr.AggCount}},
	}
	it, err := engine.Eval(context.Background(), ec, group)
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next(context.Background()))
	n := it.Solution()[algebra.Var("n")].(quad.TypedLiteral)
	require.Equal(t, "0", n.Value)
	require.False(t, it.Next(context.Background()))
}

func TestEvalGroupCountAggregate(t *testing.T) {
	ec := openChainContext(t)
	group := algebra.Group{
		Inner: algebra.QuadPattern{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/knows")},
			Object:    algebra.Term{Var: "o"},
		},
		Aggs: []algebra.Aggregation{{Var: "n", Func: expr.AggCount}},
	}
	it, err := engine.Eval(context.Background(), ec, group)
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next(context.Background()))
	n := it.Solution()[algebra.Var("n")].(quad.TypedLiteral)
	require.Equal(t, "3", n.Value)
}

func TestEvalOrderByDescending(t *testing.T) {
	ec := openChainContext(t)
	pattern := algebra.QuadPattern{
		Subject:   algebra.Term{Var: "s"},
		Predicate: algebra.Term{Value: quad.IRI("http://ex/knows")},
		Object:    algebra.Term{Var: "o"},
	}
	ob := algebra.OrderBy{
		Inner:      pattern,
		Conditions: []algebra.OrderCondition{{Expr: expr.VarRef{Name: "s"}, Desc: true}},
	}
	it, err := engine.Eval(context.Background(), ec, ob)
	require.NoError(t, err)
	defer it.Close()

	var subs []string
	for it.Next(context.Background()) {
		subs = append(subs, it.Solution()[algebra.Var("s")].String())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"<http://ex/c>", "<http://ex/b>", "<http://ex/a>"}, subs)
}

func TestEvalReducedAllowsDuplicatesButMayCollapse(t *testing.T) {
	ec := openChainContext(t)
	proj := algebra.Project{
		Inner: algebra.QuadPattern{
			Subject:   algebra.Term{Var: "s"},
			Predicate: algebra.Term{Value: quad.IRI("http://ex/knows")},
			Object:    algebra.Term{Var: "o"},
		},
		Vars: []algebra.Var{"s"},
	}
	it, err := engine.Eval(context.Background(), ec, algebra.Reduced{Inner: proj})
	require.NoError(t, err)
	defer it.Close()

	n := 0
	for it.Next(context.Background()) {
		n++
	}
	require.NoError(t, it.Err())
	// REDUCED permits (but doesn't require) duplicate elimination; with 3
	// distinct subjects already, output can't exceed 3 rows either way.
	require.LessOrEqual(t, n, 3)
	require.Greater(t, n, 0)
}

func TestEvalServiceDispatchesToRegisteredHandler(t *testing.T) {
	ec := openChainContext(t)
	reg := service.NewRegistry()
	reg.Register("http://ex/remote", func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (service.Iterator, error) {
		return nil, assertNever{}
	})
	ec.Services = reg

	svc := algebra.Service{
		Name:  algebra.Term{Value: quad.IRI("http://ex/remote")},
		Inner: algebra.Values{},
	}
	_, err := engine.Eval(context.Background(), ec, svc)
	require.Error(t, err) // handler above always errors; confirms dispatch reached it, not a missing-handler error
}

type assertNever struct{}

func (assertNever) Error() string { return "service handler invoked (expected)" }

func TestEvalServiceSilentSwallowsError(t *testing.T) {
	ec := openChainContext(t)
	reg := service.NewRegistry()
	ec.Services = reg // no handler registered at all

	svc := algebra.Service{
		Name:   algebra.Term{Value: quad.IRI("http://ex/missing")},
		Inner:  algebra.Values{},
		Silent: true,
	}
	it, err := engine.Eval(context.Background(), ec, svc)
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next(context.Background()))
	require.Empty(t, it.Solution())
	require.False(t, it.Next(context.Background()))
}

func TestEvalServiceUnboundNameErrorsWithoutSilent(t *testing.T) {
	ec := openChainContext(t)
	ec.Services = service.NewRegistry()
	svc := algebra.Service{
		Name:  algebra.Term{Var: "endpoint"},
		Inner: algebra.Values{},
	}
	_, err := engine.Eval(context.Background(), ec, svc)
	require.Error(t, err)
}
