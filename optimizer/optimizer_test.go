package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/optimizer"
	"github.com/quadgraph/qgdb/quad"
)

func boolTerm(b bool) expr.Term {
	v := "false"
	if b {
		v = "true"
	}
	return expr.Term{Value: quad.TypedLiteral{Value: v, Type: quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")}}
}

func TestOptimizeFoldsConstantAndExpression(t *testing.T) {
	filter := algebra.Filter{
		Inner: algebra.QuadPattern{Subject: algebra.Term{Var: "s"}},
		Expr: expr.Call{Op: expr.OpAnd, Args: []expr.Expr{
			boolTerm(true),
			boolTerm(true),
		}},
	}
	out := optimizer.Optimize(filter)
	// both operands of AND fold to true, so the filter is dropped entirely
	_, isFilter := out.(algebra.Filter)
	require.False(t, isFilter)
	_, isQuad := out.(algebra.QuadPattern)
	require.True(t, isQuad)
}

func TestOptimizeDropsAlwaysFalseFilter(t *testing.T) {
	filter := algebra.Filter{
		Inner: algebra.QuadPattern{Subject: algebra.Term{Var: "s"}},
		Expr:  boolTerm(false),
	}
	out := optimizer.Optimize(filter)
	vals, ok := out.(algebra.Values)
	require.True(t, ok)
	require.Empty(t, vals.Rows)
}

func TestOptimizeFlattensAndDedupsJoin(t *testing.T) {
	a := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/p")}}
	join := algebra.Join{
		Left:  algebra.Join{Left: a, Right: a},
		Right: a,
	}
	out := optimizer.Optimize(join)
	require.Equal(t, a, out)
}

func TestOptimizeReordersBGPByBoundTermCount(t *testing.T) {
	unbound := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Var: "p"}, Object: algebra.Term{Var: "o"}}
	selective := algebra.QuadPattern{
		Subject:   algebra.Term{Value: quad.IRI("http://ex/a")},
		Predicate: algebra.Term{Value: quad.IRI("http://ex/p")},
		Object:    algebra.Term{Var: "o"},
	}
	join := algebra.Join{Left: unbound, Right: selective}
	out := optimizer.Optimize(join)
	j, ok := out.(algebra.Join)
	require.True(t, ok)
	require.Equal(t, selective, j.Left)
	require.Equal(t, unbound, j.Right)
}

func TestOptimizePushesFilterToMatchingJoinSide(t *testing.T) {
	left := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/age")}, Object: algebra.Term{Var: "age"}}
	right := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/name")}, Object: algebra.Term{Var: "name"}}
	filter := algebra.Filter{
		Inner: algebra.Join{Left: left, Right: right},
		Expr: expr.Call{Op: expr.OpGreater, Args: []expr.Expr{
			expr.VarRef{Name: "age"},
			expr.Term{Value: quad.TypedLiteral{Value: "18", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
		}},
	}
	out := optimizer.Optimize(filter)
	j, ok := out.(algebra.Join)
	require.True(t, ok)
	lf, ok := j.Left.(algebra.Filter)
	require.True(t, ok, "filter should migrate onto the side bearing ?age")
	require.Equal(t, left, lf.Inner)
}

func TestOptimizeDoesNotPushFilterNeedingBothSides(t *testing.T) {
	left := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/age")}, Object: algebra.Term{Var: "age"}}
	right := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/limit")}, Object: algebra.Term{Var: "limit"}}
	filter := algebra.Filter{
		Inner: algebra.Join{Left: left, Right: right},
		Expr: expr.Call{Op: expr.OpLess, Args: []expr.Expr{
			expr.VarRef{Name: "age"},
			expr.VarRef{Name: "limit"},
		}},
	}
	out := optimizer.Optimize(filter)
	_, ok := out.(algebra.Filter)
	require.True(t, ok, "filter needing both sides' variables must stay at the join level")
}

func TestOptimizeNeverMergesMinusRightSide(t *testing.T) {
	left := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/p")}, Object: algebra.Term{Var: "o"}}
	right := algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Predicate: algebra.Term{Value: quad.IRI("http://ex/q")}, Object: algebra.Term{Var: "o"}}
	minus := algebra.Minus{Left: left, Right: right}
	out := optimizer.Optimize(minus)
	m, ok := out.(algebra.Minus)
	require.True(t, ok)
	require.Equal(t, left, m.Left)
	require.Equal(t, right, m.Right)
}

func TestOptimizeCollapsesNestedProject(t *testing.T) {
	inner := algebra.Project{
		Inner: algebra.QuadPattern{Subject: algebra.Term{Var: "s"}, Object: algebra.Term{Var: "o"}},
		Vars:  []algebra.Var{"s", "o"},
	}
	outer := algebra.Project{Inner: inner, Vars: []algebra.Var{"s"}}
	out := optimizer.Optimize(outer)
	p, ok := out.(algebra.Project)
	require.True(t, ok)
	require.Equal(t, []algebra.Var{"s"}, p.Vars)
	_, nested := p.Inner.(algebra.Project)
	require.False(t, nested)
}

func TestOptimizeDropsUnusedExtendUnderProject(t *testing.T) {
	ext := algebra.Extend{
		Inner: algebra.QuadPattern{Subject: algebra.Term{Var: "s"}},
		Var:   "unused",
		Expr:  expr.Term{Value: quad.XSDString("x")},
	}
	proj := algebra.Project{Inner: ext, Vars: []algebra.Var{"s"}}
	out := optimizer.Optimize(proj)
	p, ok := out.(algebra.Project)
	require.True(t, ok)
	_, hasExtend := p.Inner.(algebra.Extend)
	require.False(t, hasExtend)
}

func TestOptimizeCanonicalizesOneOrMorePath(t *testing.T) {
	path := algebra.Path{
		Subject: algebra.Term{Var: "s"},
		Object:  algebra.Term{Var: "o"},
		Expr:    algebra.PathOneOrMore{Path: algebra.PathPredicate{IRI: quad.IRI("http://ex/p")}},
	}
	out := optimizer.Optimize(path)
	p, ok := out.(algebra.Path)
	require.True(t, ok)
	seq, ok := p.Expr.(algebra.PathSeq)
	require.True(t, ok)
	require.Equal(t, algebra.PathPredicate{IRI: quad.IRI("http://ex/p")}, seq.Left)
	_, zeroOrMore := seq.Right.(algebra.PathZeroOrMore)
	require.True(t, zeroOrMore)
}

func TestOptimizeDedupsNegatedPathSet(t *testing.T) {
	path := algebra.Path{
		Subject: algebra.Term{Var: "s"},
		Object:  algebra.Term{Var: "o"},
		Expr: algebra.PathNegatedSet{IRIs: []quad.IRI{
			quad.IRI("http://ex/a"), quad.IRI("http://ex/a"), quad.IRI("http://ex/b"),
		}},
	}
	out := optimizer.Optimize(path)
	p := out.(algebra.Path)
	neg := p.Expr.(algebra.PathNegatedSet)
	require.Len(t, neg.IRIs, 2)
}
