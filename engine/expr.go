package engine

import (
	"context"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

const xsdBoolean = quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")

func boolValue(b bool) quad.Value {
	if b {
		return quad.TypedLiteral{Value: "true", Type: xsdBoolean}
	}
	return quad.TypedLiteral{Value: "false", Type: xsdBoolean}
}

// evalExpr evaluates e against sol. expr.Eval alone cannot see EXISTS
// (its Pattern field is an opaque interface{} to avoid an expr<->algebra
// import cycle), so this package rewrites every Exists subexpression into
// its evaluated boolean Term before delegating the rest of the tree to
// expr.Eval.
func evalExpr(ctx context.Context, ec *Context, e expr.Expr, sol Solution) (quad.Value, error) {
	rewritten, err := rewriteExists(ctx, ec, e, sol)
	if err != nil {
		return nil, err
	}
	return expr.Eval(rewritten, sol, ec.Funcs)
}

func evalBool(ctx context.Context, ec *Context, e expr.Expr, sol Solution) (bool, error) {
	v, err := evalExpr(ctx, ec, e, sol)
	if err != nil {
		return false, err
	}
	return expr.EffectiveBooleanValue(v)
}

func rewriteExists(ctx context.Context, ec *Context, e expr.Expr, sol Solution) (expr.Expr, error) {
	switch t := e.(type) {
	case expr.Term, expr.VarRef:
		return e, nil
	case expr.Call:
		args, err := rewriteExistsAll(ctx, ec, t.Args, sol)
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: t.Op, Args: args}, nil
	case expr.CustomCall:
		args, err := rewriteExistsAll(ctx, ec, t.Args, sol)
		if err != nil {
			return nil, err
		}
		return expr.CustomCall{IRI: t.IRI, Args: args}, nil
	case expr.Exists:
		found, err := evalExists(ctx, ec, t, sol)
		if err != nil {
			return nil, err
		}
		return expr.Term{Value: boolValue(found)}, nil
	default:
		return nil, evalErr("engine: %T cannot be evaluated in this expression context", e)
	}
}

func rewriteExistsAll(ctx context.Context, ec *Context, in []expr.Expr, sol Solution) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(in))
	for i, a := range in {
		r, err := rewriteExists(ctx, ec, a, sol)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// evalExists reports whether t.Pattern has at least one solution
// compatible with sol, negated per t.Negated.
func evalExists(ctx context.Context, ec *Context, t expr.Exists, sol Solution) (bool, error) {
	pattern, ok := t.Pattern.(algebra.GraphPattern)
	if !ok {
		return false, evalErr("engine: EXISTS pattern is not an algebra.GraphPattern (%T)", t.Pattern)
	}
	it, err := Eval(ctx, ec, pattern)
	if err != nil {
		return false, err
	}
	defer it.Close()
	found := false
	for it.Next(ctx) {
		if it.Solution().compatible(sol) {
			found = true
			break
		}
	}
	if err := it.Err(); err != nil {
		return false, err
	}
	if t.Negated {
		return !found, nil
	}
	return found, nil
}
