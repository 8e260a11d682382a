package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

func intLit(n string) quad.Value {
	return quad.TypedLiteral{Value: n, Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}
}

func boolLit(b string) quad.Value {
	return quad.TypedLiteral{Value: b, Type: quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")}
}

func TestEvalTermReturnsItsValue(t *testing.T) {
	v, err := expr.Eval(expr.Term{Value: quad.IRI("http://ex/a")}, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, quad.IRI("http://ex/a"), v)
}

func TestEvalVarRefUnboundErrors(t *testing.T) {
	_, err := expr.Eval(expr.VarRef{Name: "x"}, expr.MapBinding{}, nil)
	require.Error(t, err)
}

func TestEvalVarRefBound(t *testing.T) {
	b := expr.MapBinding{"x": quad.IRI("http://ex/a")}
	v, err := expr.Eval(expr.VarRef{Name: "x"}, b, nil)
	require.NoError(t, err)
	require.Equal(t, quad.IRI("http://ex/a"), v)
}

func TestEvalArithmetic(t *testing.T) {
	e := expr.Call{Op: expr.OpAdd, Args: []expr.Expr{
		expr.Term{Value: intLit("2")},
		expr.Term{Value: intLit("3")},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "5", v.(quad.TypedLiteral).Value)
}

func TestEvalDivisionByZeroErrors(t *testing.T) {
	e := expr.Call{Op: expr.OpDiv, Args: []expr.Expr{
		expr.Term{Value: intLit("1")},
		expr.Term{Value: intLit("0")},
	}}
	_, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.Error(t, err)
}

func TestEvalComparison(t *testing.T) {
	e := expr.Call{Op: expr.OpLess, Args: []expr.Expr{
		expr.Term{Value: intLit("2")},
		expr.Term{Value: intLit("3")},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}

func TestEvalAndShortCircuitsOnFalseLeft(t *testing.T) {
	// right side errors (unbound var); AND must still return false since left is false.
	e := expr.Call{Op: expr.OpAnd, Args: []expr.Expr{
		expr.Term{Value: boolLit("false")},
		expr.VarRef{Name: "nope"},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "false", v.(quad.TypedLiteral).Value)
}

func TestEvalOrShortCircuitsOnTrueLeft(t *testing.T) {
	e := expr.Call{Op: expr.OpOr, Args: []expr.Expr{
		expr.Term{Value: boolLit("true")},
		expr.VarRef{Name: "nope"},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}

func TestEvalAndPropagatesErrorWhenNeitherShortCircuits(t *testing.T) {
	e := expr.Call{Op: expr.OpAnd, Args: []expr.Expr{
		expr.VarRef{Name: "nope"},
		expr.Term{Value: boolLit("true")},
	}}
	_, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.Error(t, err)
}

func TestEvalBoundTrueAndFalse(t *testing.T) {
	bound := expr.Call{Op: expr.OpBound, Args: []expr.Expr{expr.VarRef{Name: "x"}}}
	v, err := expr.Eval(bound, expr.MapBinding{"x": quad.IRI("http://ex/a")}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)

	v, err = expr.Eval(bound, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "false", v.(quad.TypedLiteral).Value)
}

func TestEvalIfTakesTrueBranch(t *testing.T) {
	e := expr.Call{Op: expr.OpIf, Args: []expr.Expr{
		expr.Term{Value: boolLit("true")},
		expr.Term{Value: quad.XSDString("yes")},
		expr.Term{Value: quad.XSDString("no")},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, quad.XSDString("yes"), v)
}

func TestEvalCoalesceSkipsErroringArgs(t *testing.T) {
	e := expr.Call{Op: expr.OpCoalesce, Args: []expr.Expr{
		expr.VarRef{Name: "nope"},
		expr.Term{Value: quad.XSDString("fallback")},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, quad.XSDString("fallback"), v)
}

func TestEvalStringFunctions(t *testing.T) {
	concat := expr.Call{Op: expr.OpConcat, Args: []expr.Expr{
		expr.Term{Value: quad.XSDString("foo")},
		expr.Term{Value: quad.XSDString("bar")},
	}}
	v, err := expr.Eval(concat, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, quad.XSDString("foobar"), v)

	ucase := expr.Call{Op: expr.OpUCase, Args: []expr.Expr{expr.Term{Value: quad.XSDString("abc")}}}
	v, err = expr.Eval(ucase, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, quad.XSDString("ABC"), v)

	contains := expr.Call{Op: expr.OpContains, Args: []expr.Expr{
		expr.Term{Value: quad.XSDString("foobar")},
		expr.Term{Value: quad.XSDString("oba")},
	}}
	v, err = expr.Eval(contains, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}

func TestEvalRegexMatch(t *testing.T) {
	e := expr.Call{Op: expr.OpRegex, Args: []expr.Expr{
		expr.Term{Value: quad.XSDString("Hello")},
		expr.Term{Value: quad.XSDString("^hello$")},
		expr.Term{Value: quad.XSDString("i")},
	}}
	v, err := expr.Eval(e, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}

func TestEvalCustomCallUnregisteredErrors(t *testing.T) {
	e := expr.CustomCall{IRI: "http://ex/fn", Args: nil}
	_, err := expr.Eval(e, expr.MapBinding{}, expr.NewRegistry())
	require.Error(t, err)
}

func TestEvalCustomCallRegistered(t *testing.T) {
	reg := expr.NewRegistry()
	reg.Register("http://ex/double", func(args []quad.Value) (quad.Value, error) {
		s := string(args[0].(quad.XSDString))
		return quad.XSDString(s + s), nil
	})
	e := expr.CustomCall{IRI: "http://ex/double", Args: []expr.Expr{expr.Term{Value: quad.XSDString("ab")}}}
	v, err := expr.Eval(e, expr.MapBinding{}, reg)
	require.NoError(t, err)
	require.Equal(t, quad.XSDString("abab"), v)
}

func TestEffectiveBooleanValue(t *testing.T) {
	ok, err := expr.EffectiveBooleanValue(boolLit("true"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = expr.EffectiveBooleanValue(intLit("0"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = expr.EffectiveBooleanValue(quad.XSDString(""))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = expr.EffectiveBooleanValue(quad.XSDString("nonempty"))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = expr.EffectiveBooleanValue(quad.IRI("http://ex/a"))
	require.Error(t, err)
}

func TestEvalIsIRIIsBlankIsLiteral(t *testing.T) {
	iri := expr.Call{Op: expr.OpIsIRI, Args: []expr.Expr{expr.Term{Value: quad.IRI("http://ex/a")}}}
	v, err := expr.Eval(iri, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)

	blank := expr.Call{Op: expr.OpIsBlank, Args: []expr.Expr{expr.Term{Value: quad.BNode("b1")}}}
	v, err = expr.Eval(blank, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)

	lit := expr.Call{Op: expr.OpIsLiteral, Args: []expr.Expr{expr.Term{Value: quad.XSDString("x")}}}
	v, err = expr.Eval(lit, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}

func TestEvalInAndNotIn(t *testing.T) {
	in := expr.Call{Op: expr.OpIn, Args: []expr.Expr{
		expr.Term{Value: intLit("2")},
		expr.Term{Value: intLit("1")},
		expr.Term{Value: intLit("2")},
	}}
	v, err := expr.Eval(in, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)

	notIn := expr.Call{Op: expr.OpNotIn, Args: []expr.Expr{
		expr.Term{Value: intLit("3")},
		expr.Term{Value: intLit("1")},
		expr.Term{Value: intLit("2")},
	}}
	v, err = expr.Eval(notIn, expr.MapBinding{}, nil)
	require.NoError(t, err)
	require.Equal(t, "true", v.(quad.TypedLiteral).Value)
}
