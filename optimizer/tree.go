package optimizer

import (
	"reflect"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
)

// samePattern reports whether a and b are structurally identical, used
// both to detect a rewrite fixpoint and to collapse duplicate Join/Union
// children.
func samePattern(a, b algebra.GraphPattern) bool {
	return reflect.DeepEqual(a, b)
}

// OutputVars returns every variable p's solutions could bind, used by
// pushFilter to decide which side of a Join a filter may migrate into.
func OutputVars(p algebra.GraphPattern) map[algebra.Var]bool {
	out := map[algebra.Var]bool{}
	collectOutputVars(p, out)
	return out
}

func collectOutputVars(p algebra.GraphPattern, out map[algebra.Var]bool) {
	switch t := p.(type) {
	case algebra.QuadPattern:
		addTermVar(out, t.Subject)
		addTermVar(out, t.Predicate)
		addTermVar(out, t.Object)
		addTermVar(out, t.Graph)
	case algebra.Path:
		addTermVar(out, t.Subject)
		addTermVar(out, t.Object)
		addTermVar(out, t.Graph)
	case algebra.Join:
		collectOutputVars(t.Left, out)
		collectOutputVars(t.Right, out)
	case algebra.LeftJoin:
		collectOutputVars(t.Left, out)
		collectOutputVars(t.Right, out)
	case algebra.Lateral:
		collectOutputVars(t.Left, out)
		collectOutputVars(t.Right, out)
	case algebra.Minus:
		collectOutputVars(t.Left, out)
	case algebra.Filter:
		collectOutputVars(t.Inner, out)
	case algebra.Union:
		for _, c := range t.Children {
			collectOutputVars(c, out)
		}
	case algebra.Extend:
		collectOutputVars(t.Inner, out)
		out[t.Var] = true
	case algebra.Values:
		for _, v := range t.Vars {
			out[v] = true
		}
	case algebra.OrderBy:
		collectOutputVars(t.Inner, out)
	case algebra.Project:
		for _, v := range t.Vars {
			out[v] = true
		}
	case algebra.Distinct:
		collectOutputVars(t.Inner, out)
	case algebra.Reduced:
		collectOutputVars(t.Inner, out)
	case algebra.Slice:
		collectOutputVars(t.Inner, out)
	case algebra.Group:
		for _, k := range t.Keys {
			if vr, ok := k.(expr.VarRef); ok {
				out[algebra.Var(vr.Name)] = true
			}
		}
		for _, agg := range t.Aggs {
			out[agg.Var] = true
		}
	case algebra.Service:
		collectOutputVars(t.Inner, out)
		if t.Name.Var != "" {
			out[t.Name.Var] = true
		}
	}
}

func addTermVar(out map[algebra.Var]bool, t algebra.Term) {
	if t.Var != "" {
		out[t.Var] = true
	}
}
