package optimizer

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

const xsdBoolean = quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")

func boolTerm(b bool) expr.Term {
	v := "false"
	if b {
		v = "true"
	}
	return expr.Term{Value: quad.TypedLiteral{Value: v, Type: xsdBoolean}}
}

// foldExpr constant-folds e bottom-up (spec §4.F rule 1): AND/OR with a
// constant operand collapse to the constant or the other operand, and
// IF with a constant condition collapses to its taken branch. Folding
// never evaluates an operand that SPARQL's own short-circuit semantics
// wouldn't have evaluated, so it cannot turn a would-have-errored
// expression into a success or vice versa.
func foldExpr(e expr.Expr) expr.Expr {
	switch t := e.(type) {
	case expr.Term:
		return t
	case expr.VarRef:
		return t
	case expr.Call:
		args := make([]expr.Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = foldExpr(a)
		}
		return foldCall(expr.Call{Op: t.Op, Args: args})
	case expr.CustomCall:
		args := make([]expr.Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = foldExpr(a)
		}
		return expr.CustomCall{IRI: t.IRI, Args: args}
	case expr.Exists:
		if p, ok := t.Pattern.(algebra.GraphPattern); ok {
			return expr.Exists{Pattern: Optimize(p), Negated: t.Negated}
		}
		return t
	default:
		return e
	}
}

func foldCall(c expr.Call) expr.Expr {
	switch c.Op {
	case expr.OpAnd:
		if len(c.Args) == 2 {
			if b, ok := constBool(c.Args[0]); ok {
				if !b {
					return boolTerm(false)
				}
				return c.Args[1]
			}
			if b, ok := constBool(c.Args[1]); ok {
				if !b {
					return boolTerm(false)
				}
				return c.Args[0]
			}
		}
	case expr.OpOr:
		if len(c.Args) == 2 {
			if b, ok := constBool(c.Args[0]); ok {
				if b {
					return boolTerm(true)
				}
				return c.Args[1]
			}
			if b, ok := constBool(c.Args[1]); ok {
				if b {
					return boolTerm(true)
				}
				return c.Args[0]
			}
		}
	case expr.OpNot:
		if len(c.Args) == 1 {
			if b, ok := constBool(c.Args[0]); ok {
				return boolTerm(!b)
			}
		}
	case expr.OpIf:
		if len(c.Args) == 3 {
			if b, ok := constBool(c.Args[0]); ok {
				if b {
					return c.Args[1]
				}
				return c.Args[2]
			}
		}
	}
	return c
}

// exprFreeVars collects every variable e's evaluation could read from a
// binding. Exists/NOT EXISTS is treated conservatively: its correlation
// with the outer binding isn't visible here (Pattern is opaque to expr),
// so it reports the unresolvable sentinel var, which never matches
// anything outputVars produces and so blocks any push-down that would
// otherwise try to split this expression across a Join boundary.
const unknownVar = algebra.Var("\x00unknown")

func exprFreeVars(e expr.Expr) map[algebra.Var]bool {
	out := map[algebra.Var]bool{}
	walkExprVars(e, out)
	return out
}

func walkExprVars(e expr.Expr, out map[algebra.Var]bool) {
	switch t := e.(type) {
	case expr.Term:
	case expr.VarRef:
		out[algebra.Var(t.Name)] = true
	case expr.Call:
		for _, a := range t.Args {
			walkExprVars(a, out)
		}
	case expr.CustomCall:
		for _, a := range t.Args {
			walkExprVars(a, out)
		}
	case expr.Exists:
		out[unknownVar] = true
	}
}
