package engine

import (
	"context"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

// evalDistinct removes duplicate solutions (spec §4.H.9), hashing each
// solution's bound (var, value) tuple with xxhash over its
// expr.Collation-encoded bytes rather than keying a map directly on
// Solution (which is not comparable: quad.Value need not be).
func evalDistinct(ctx context.Context, ec *Context, d algebra.Distinct) (Iterator, error) {
	inner, err := Eval(ctx, ec, d.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()

	seen := map[uint64][][]byte{}
	var out []Solution
	limit := ec.Limits.rows()
	for inner.Next(ctx) {
		sol := inner.Solution()
		key := collateSolution(sol)
		h := xxhash.Sum64(key)
		dup := false
		for _, k := range seen[h] {
			if string(k) == string(key) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], key)
		out = append(out, sol)
		if limit > 0 && len(out) > limit {
			return nil, rowLimitErr(limit)
		}
	}
	if err := inner.Err(); err != nil {
		return nil, err
	}
	return newSliceIterator(out), nil
}

// collateSolution encodes a solution's bindings, sorted by variable name
// so the encoding is independent of binding insertion order, into bytes
// suitable for hashing and exact comparison.
func collateSolution(sol Solution) []byte {
	vars := make([]string, 0, len(sol))
	for v := range sol {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)
	vals := make([]quad.Value, len(vars))
	names := make([][]byte, len(vars))
	for i, v := range vars {
		names[i] = []byte(v)
		vals[i] = sol[algebra.Var(v)]
	}
	var out []byte
	for i := range vars {
		out = append(out, byte(len(names[i])))
		out = append(out, names[i]...)
		out = append(out, collateKey([]quad.Value{vals[i]})...)
	}
	return out
}

// evalOrderBy materializes Inner and sorts with expr.Compare per
// Conditions, most-significant condition first, stable so ties preserve
// Inner's emission order (spec §4.H.9's "materialize, sort with the
// comparator, emit").
func evalOrderBy(ctx context.Context, ec *Context, ob algebra.OrderBy) (Iterator, error) {
	inner, err := Eval(ctx, ec, ob.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	rows, err := drain(ctx, inner, ec.Limits.rows())
	if err != nil {
		return nil, err
	}

	keys := make([][]quad.Value, len(rows))
	for i, row := range rows {
		vals := make([]quad.Value, len(ob.Conditions))
		for j, cond := range ob.Conditions {
			v, err := evalExpr(ctx, ec, cond.Expr, row)
			if err != nil {
				v = nil
			}
			vals[j] = v
		}
		keys[i] = vals
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		for j, cond := range ob.Conditions {
			va, vb := keys[ia][j], keys[ib][j]
			c := compareOrderKeys(va, vb)
			if c == 0 {
				continue
			}
			if cond.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	out := make([]Solution, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return newSliceIterator(out), nil
}

// compareOrderKeys orders an unbound key (nil, from an erroring or
// unbound ORDER BY expression) before any bound value, then delegates to
// expr.Compare; an incomparable pair (expr.Compare's error) falls back to
// treating the values as equal so sorting stays a total preorder.
func compareOrderKeys(a, b quad.Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	c, err := expr.Compare(a, b)
	if err != nil {
		return 0
	}
	return c
}
