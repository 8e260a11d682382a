// Package engine evaluates an algebra.GraphPattern tree into a stream of
// solutions (spec §4.H): a pull-based, single-threaded tree of iterators
// cooperating on cancellation through ctx, modeled on Cayley's
// graph/iterator.Chain pull protocol and graph/iterator.And's
// primary-plus-check join strategy, generalized from a single opaque
// graph.Value to a variable→term solution map.
package engine

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

// Solution is one result row: a partial map from variable to bound term.
// A variable absent from the map is unbound, not bound-to-nil.
type Solution map[algebra.Var]quad.Value

// Lookup implements expr.Binding so a Solution can be evaluated against
// directly by the expression evaluator.
func (s Solution) Lookup(v expr.Var) (quad.Value, bool) {
	val, ok := s[algebra.Var(v)]
	return val, ok
}

func (s Solution) clone() Solution {
	out := make(Solution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// compatible reports whether s and o agree on every variable they share
// (spec §4.H.3/§4.H.4's "compatible" test).
func (s Solution) compatible(o Solution) bool {
	for k, v := range o {
		if cur, ok := s[k]; ok && !termEqual(cur, v) {
			return false
		}
	}
	return true
}

// merge returns the union of s and o, assumed already compatible.
func (s Solution) merge(o Solution) Solution {
	out := s.clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

// sharesBoundVar reports whether s and o have at least one variable in
// common (spec §4.H.4's Minus condition).
func (s Solution) sharesBoundVar(o Solution) bool {
	for k := range o {
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

// termEqual is RDF term equality (spec §3.1), not the SPARQL '=' operator:
// same kind, same lexical representation.
func termEqual(a, b quad.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if eq, ok := a.(quad.Equaler); ok {
		return eq.Equal(b)
	}
	return quad.StringOf(a) == quad.StringOf(b)
}
