// Package optimizer rewrites a parsed algebra tree into an equivalent but
// cheaper one (spec §4.F): constant folding, join/union flattening,
// filter push-down, projection push-down, BGP reordering, and property
// path canonicalization. Optimize never changes the multiset of
// solutions a pattern produces; it only changes how cheaply engine.Eval
// can produce them.
//
// Grounded on the teacher's graph/iterator.and_optimize.go: that file
// reorders an And's subiterators by estimated cost without changing
// which quads match, and folds a single-child And away entirely. This
// package applies the same two moves (reorder, collapse) one level up,
// on the algebra tree the engine evaluates rather than on iterators.
package optimizer

import (
	"sort"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
)

// Optimize rewrites p into an equivalent, cheaper tree. It repeats the
// rewrite passes until a fixpoint (a pass makes no further change) or a
// bounded number of iterations, since one pass's output can expose a new
// opportunity for another (e.g. flattening a Join can bring two filters
// that were on opposite sides next to the same Join node).
func Optimize(p algebra.GraphPattern) algebra.GraphPattern {
	const maxPasses = 8
	for i := 0; i < maxPasses; i++ {
		next := rewrite(p)
		if samePattern(next, p) {
			return next
		}
		p = next
	}
	return p
}

// rewrite applies one bottom-up pass: children are rewritten first, then
// the node itself is normalized given its already-rewritten children.
func rewrite(p algebra.GraphPattern) algebra.GraphPattern {
	switch t := p.(type) {
	case algebra.QuadPattern:
		return t

	case algebra.Path:
		t.Expr = canonicalizePath(t.Expr)
		return t

	case algebra.Join:
		return rewriteJoin(rewrite(t.Left), rewrite(t.Right))

	case algebra.LeftJoin:
		t.Left = rewrite(t.Left)
		t.Right = rewrite(t.Right)
		t.Expr = foldExpr(t.Expr)
		return t

	case algebra.Lateral:
		t.Left = rewrite(t.Left)
		t.Right = rewrite(t.Right)
		return t

	case algebra.Minus:
		// Minus's right side must never be reordered into or merged
		// with anything else: it is evaluated for set-subtraction, not
		// for its bindings, so folding it into a Join would change
		// which rows of Left survive.
		t.Left = rewrite(t.Left)
		t.Right = rewrite(t.Right)
		return t

	case algebra.Filter:
		inner := rewrite(t.Inner)
		e := foldExpr(t.Expr)
		if b, ok := constBool(e); ok {
			if !b {
				return algebra.Values{Vars: nil, Rows: nil}
			}
			return inner
		}
		return pushFilter(algebra.Filter{Inner: inner, Expr: e})

	case algebra.Union:
		return rewriteUnion(t)

	case algebra.Extend:
		t.Inner = rewrite(t.Inner)
		t.Expr = foldExpr(t.Expr)
		return t

	case algebra.Values:
		return t

	case algebra.OrderBy:
		t.Inner = rewrite(t.Inner)
		for i := range t.Conditions {
			t.Conditions[i].Expr = foldExpr(t.Conditions[i].Expr)
		}
		return t

	case algebra.Project:
		return rewriteProject(algebra.Project{Inner: rewrite(t.Inner), Vars: t.Vars})

	case algebra.Distinct:
		t.Inner = rewrite(t.Inner)
		return t

	case algebra.Reduced:
		t.Inner = rewrite(t.Inner)
		return t

	case algebra.Slice:
		t.Inner = rewrite(t.Inner)
		return t

	case algebra.Group:
		t.Inner = rewrite(t.Inner)
		for i := range t.Keys {
			t.Keys[i] = foldExpr(t.Keys[i])
		}
		for i := range t.Aggs {
			if t.Aggs[i].Expr != nil {
				t.Aggs[i].Expr = foldExpr(t.Aggs[i].Expr)
			}
		}
		return t

	case algebra.Service:
		t.Inner = rewrite(t.Inner)
		return t

	default:
		return p
	}
}

// rewriteJoin flattens nested Joins into a list of leaves, drops exact
// duplicate leaves (A JOIN A == A, since Join is a set intersection of
// solutions), reorders the leaves by estimated selectivity, and rebuilds
// a left-deep Join chain.
func rewriteJoin(left, right algebra.GraphPattern) algebra.GraphPattern {
	leaves := append(flattenJoin(left), flattenJoin(right)...)
	leaves = dedupPatterns(leaves)
	leaves = reorderBGP(leaves)
	return foldJoinChain(leaves)
}

func flattenJoin(p algebra.GraphPattern) []algebra.GraphPattern {
	if j, ok := p.(algebra.Join); ok {
		return append(flattenJoin(j.Left), flattenJoin(j.Right)...)
	}
	return []algebra.GraphPattern{p}
}

func foldJoinChain(leaves []algebra.GraphPattern) algebra.GraphPattern {
	// leaves always has at least one element: rewriteJoin is only ever
	// called with two already-non-nil GraphPattern operands, each of
	// which flattens to at least itself.
	out := leaves[0]
	for _, l := range leaves[1:] {
		out = algebra.Join{Left: out, Right: l}
	}
	return out
}

func dedupPatterns(leaves []algebra.GraphPattern) []algebra.GraphPattern {
	out := make([]algebra.GraphPattern, 0, len(leaves))
	for _, l := range leaves {
		dup := false
		for _, seen := range out {
			if samePattern(l, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

// reorderBGP sorts join leaves so that the most selective ones (those
// with the most bound terms, hence the fewest expected matches) run
// first, matching the teacher's and_optimize.go cost heuristic of
// running the cheapest iterator's Next() first. Ties keep their
// original relative order.
func reorderBGP(leaves []algebra.GraphPattern) []algebra.GraphPattern {
	sort.SliceStable(leaves, func(i, j int) bool {
		return selectivity(leaves[i]) > selectivity(leaves[j])
	})
	return leaves
}

// selectivity scores a pattern by how many of its terms are already
// bound; higher is more selective. Non-QuadPattern/Path nodes (Filter,
// Union, subqueries, ...) are scored 0 so they sort after plain patterns
// but keep a stable relative order among themselves.
func selectivity(p algebra.GraphPattern) int {
	switch t := p.(type) {
	case algebra.QuadPattern:
		n := 0
		for _, term := range []algebra.Term{t.Subject, t.Predicate, t.Object, t.Graph} {
			if term.Bound() {
				n++
			}
		}
		return n
	case algebra.Path:
		n := 0
		if t.Subject.Bound() {
			n++
		}
		if t.Object.Bound() {
			n++
		}
		return n
	default:
		return 0
	}
}

func rewriteUnion(u algebra.Union) algebra.GraphPattern {
	var leaves []algebra.GraphPattern
	for _, c := range u.Children {
		c = rewrite(c)
		if cu, ok := c.(algebra.Union); ok {
			leaves = append(leaves, cu.Children...)
		} else {
			leaves = append(leaves, c)
		}
	}
	leaves = dedupPatterns(leaves)
	if len(leaves) == 1 {
		return leaves[0]
	}
	return algebra.Union{Children: leaves}
}

// pushFilter migrates a Filter below a Join when every free variable the
// Filter's expression references is already bound by exactly one side,
// so the filter runs as early as possible without changing which rows
// ultimately pass. A Filter that needs variables from both sides (or
// sits over anything but a Join) stays put.
func pushFilter(f algebra.Filter) algebra.GraphPattern {
	j, ok := f.Inner.(algebra.Join)
	if !ok {
		return f
	}
	need := exprFreeVars(f.Expr)
	if len(need) == 0 {
		return f
	}
	leftVars := OutputVars(j.Left)
	if subsetOf(need, leftVars) {
		return algebra.Join{Left: algebra.Filter{Inner: j.Left, Expr: f.Expr}, Right: j.Right}
	}
	rightVars := OutputVars(j.Right)
	if subsetOf(need, rightVars) {
		return algebra.Join{Left: j.Left, Right: algebra.Filter{Inner: j.Right, Expr: f.Expr}}
	}
	return f
}

// rewriteProject drops nested Projects to their outer Vars list, and
// strips any Extend directly under a Project whose bound variable the
// Project doesn't keep, since BIND has no side effect beyond the
// binding itself: a downstream consumer that never asks for the
// variable is unaffected by skipping it.
func rewriteProject(p algebra.Project) algebra.GraphPattern {
	if inner, ok := p.Inner.(algebra.Project); ok {
		return rewriteProject(algebra.Project{Inner: inner.Inner, Vars: p.Vars})
	}
	if ext, ok := p.Inner.(algebra.Extend); ok && !containsVar(p.Vars, ext.Var) {
		return rewriteProject(algebra.Project{Inner: ext.Inner, Vars: p.Vars})
	}
	return p
}

func containsVar(vars []algebra.Var, v algebra.Var) bool {
	for _, x := range vars {
		if x == v {
			return true
		}
	}
	return false
}

func subsetOf(need, have map[algebra.Var]bool) bool {
	for v := range need {
		if !have[v] {
			return false
		}
	}
	return true
}

// constBool reports whether e folded down to a fixed boolean literal.
func constBool(e expr.Expr) (bool, bool) {
	t, ok := e.(expr.Term)
	if !ok {
		return false, false
	}
	b, err := expr.EffectiveBooleanValue(t.Value)
	if err != nil {
		return false, false
	}
	return b, true
}
