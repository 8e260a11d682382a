package engine

import (
	"context"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
)

// Eval evaluates pattern into an Iterator over its solutions (spec §4.H).
// Every operator computes its whole solution slice before returning, and
// the Iterator it returns walks that slice.
func Eval(ctx context.Context, ec *Context, pattern algebra.GraphPattern) (Iterator, error) {
	switch p := pattern.(type) {
	case algebra.Values:
		return evalValues(p), nil
	case algebra.QuadPattern:
		return evalQuadPattern(ctx, ec, p)
	case algebra.Path:
		return evalPath(ctx, ec, p)
	case algebra.Join:
		return evalJoin(ctx, ec, p)
	case algebra.LeftJoin:
		return evalLeftJoin(ctx, ec, p)
	case algebra.Lateral:
		return evalLateral(ctx, ec, p)
	case algebra.Filter:
		return evalFilter(ctx, ec, p)
	case algebra.Union:
		return evalUnion(ctx, ec, p)
	case algebra.Extend:
		return evalExtend(ctx, ec, p)
	case algebra.Minus:
		return evalMinus(ctx, ec, p)
	case algebra.OrderBy:
		return evalOrderBy(ctx, ec, p)
	case algebra.Project:
		return evalProject(ctx, ec, p)
	case algebra.Distinct:
		return evalDistinct(ctx, ec, p)
	case algebra.Reduced:
		return evalDistinct(ctx, ec, algebra.Distinct{Inner: p.Inner})
	case algebra.Slice:
		return evalSlice(ctx, ec, p)
	case algebra.Group:
		return evalGroup(ctx, ec, p)
	case algebra.Service:
		return evalService(ctx, ec, p)
	default:
		return nil, evalErr("engine: unsupported pattern node %T", pattern)
	}
}

// evalValues realizes a VALUES block, or the empty-BGP sentinel
// (algebra.Values{}, no Vars and no Rows) as the single empty solution
// (spec §4.H.1's "an empty BGP matches the single empty solution").
func evalValues(v algebra.Values) Iterator {
	if len(v.Vars) == 0 && len(v.Rows) == 0 {
		return newSliceIterator([]Solution{{}})
	}
	rows := make([]Solution, 0, len(v.Rows))
	for _, row := range v.Rows {
		sol := Solution{}
		for i, val := range row {
			if val != nil && i < len(v.Vars) {
				sol[v.Vars[i]] = val
			}
		}
		rows = append(rows, sol)
	}
	return newSliceIterator(rows)
}

// resolveGraphs expands a QuadPattern/Path's graph term into the concrete
// graph values to scan, honoring the active Dataset (spec §4.D "Dataset"):
//   - the default-graph sentinel, or a zero Term (no GRAPH wrapper), resolves to
//     Dataset.Default when FROM was given, else the store's own default
//     graph;
//   - a bound named graph is scanned only if it is in Dataset.Named, when
//     FROM NAMED restricts the named-graph set;
//   - an unbound graph variable (GRAPH ?g) enumerates Dataset.Named, or
//     every named graph in the store when FROM NAMED was not given.
func resolveGraphs(ctx context.Context, ec *Context, g algebra.Term) ([]quad.Value, error) {
	switch {
	case g.Value == quad.DefaultGraph || (g.Value == nil && g.Var == ""):
		if ec.Dataset != nil && len(ec.Dataset.Default) > 0 {
			return ec.Dataset.Default, nil
		}
		return []quad.Value{quad.DefaultGraph}, nil
	case g.Bound():
		if ec.Dataset != nil && len(ec.Dataset.Named) > 0 && !containsValue(ec.Dataset.Named, g.Value) {
			return nil, nil
		}
		return []quad.Value{g.Value}, nil
	default:
		if ec.Dataset != nil && len(ec.Dataset.Named) > 0 {
			return ec.Dataset.Named, nil
		}
		var graphs []quad.Value
		err := ec.Reader.NamedGraphs(ctx, func(v quad.Value) bool {
			graphs = append(graphs, v)
			return true
		})
		return graphs, err
	}
}

func containsValue(list []quad.Value, v quad.Value) bool {
	for _, x := range list {
		if termEqual(x, v) {
			return true
		}
	}
	return false
}

// evalQuadPattern scans every graph resolveGraphs selects, binding each
// bound variable position and enforcing repeated-variable equality within
// one pattern (spec §4.H.1).
func evalQuadPattern(ctx context.Context, ec *Context, p algebra.QuadPattern) (Iterator, error) {
	positions := [4]algebra.Term{p.Subject, p.Predicate, p.Object, p.Graph}
	graphs, err := resolveGraphs(ctx, ec, p.Graph)
	if err != nil {
		return nil, err
	}
	var out []Solution
	limit := ec.Limits.rows()
	for _, g := range graphs {
		pat := store.Pattern{Subject: p.Subject.Value, Predicate: p.Predicate.Value, Object: p.Object.Value, Graph: g}
		scanErr := ec.Reader.QuadsForPattern(ctx, pat, func(q quad.Quad) bool {
			vals := [4]quad.Value{q.Subject, q.Predicate, q.Object, q.Graph}
			sol := Solution{}
			for i, t := range positions {
				if t.Var == "" {
					continue
				}
				if existing, seen := sol[t.Var]; seen {
					if !termEqual(existing, vals[i]) {
						return true
					}
					continue
				}
				sol[t.Var] = vals[i]
			}
			out = append(out, sol)
			return limit == 0 || len(out) <= limit
		})
		if scanErr != nil {
			return nil, scanErr
		}
		if limit > 0 && len(out) > limit {
			return nil, rowLimitErr(limit)
		}
	}
	return newSliceIterator(out), nil
}

// evalJoin (spec §4.H.2) materializes the left side in full, then streams
// the right side and checks each right solution against every left
// solution, emitting the merge of each compatible pair. The left side is
// always the one materialized, whatever the two sides' sizes, and the left
// rows are scanned in a loop rather than looked up in a hash table.
// Adapted from Cayley's And iterator (primary-iterator-plus-check-list)
// from a single opaque value to solution-binding compatibility and merge.
func evalJoin(ctx context.Context, ec *Context, p algebra.Join) (Iterator, error) {
	left, err := Eval(ctx, ec, p.Left)
	if err != nil {
		return nil, err
	}
	leftRows, err := drain(ctx, left, ec.Limits.rows())
	left.Close()
	if err != nil {
		return nil, err
	}
	right, err := Eval(ctx, ec, p.Right)
	if err != nil {
		return nil, err
	}
	defer right.Close()
	limit := ec.Limits.rows()
	var out []Solution
	for right.Next(ctx) {
		rs := right.Solution()
		for _, ls := range leftRows {
			if ls.compatible(rs) {
				out = append(out, ls.merge(rs))
				if limit > 0 && len(out) > limit {
					return nil, rowLimitErr(limit)
				}
			}
		}
	}
	if err := right.Err(); err != nil {
		return nil, err
	}
	return newSliceIterator(out), nil
}

// evalLateral evaluates Right once per solution of Left, with Left's
// bindings visible inside Right — used to desugar VALUES-as-subquery and
// certain SERVICE forms. Unlike Join it does not require Right's pattern
// to be evaluable independently of Left's bindings.
func evalLateral(ctx context.Context, ec *Context, p algebra.Lateral) (Iterator, error) {
	left, err := Eval(ctx, ec, p.Left)
	if err != nil {
		return nil, err
	}
	defer left.Close()
	limit := ec.Limits.rows()
	var out []Solution
	for left.Next(ctx) {
		ls := left.Solution()
		right, err := Eval(ctx, ec, p.Right)
		if err != nil {
			return nil, err
		}
		for right.Next(ctx) {
			out = append(out, ls.merge(right.Solution()))
			if limit > 0 && len(out) > limit {
				right.Close()
				return nil, rowLimitErr(limit)
			}
		}
		err = right.Err()
		right.Close()
		if err != nil {
			return nil, err
		}
	}
	return newSliceIterator(out), left.Err()
}

// evalLeftJoin implements OPTIONAL (spec §4.H.3): left order is preserved,
// and a left solution with no compatible right survives unchanged.
func evalLeftJoin(ctx context.Context, ec *Context, p algebra.LeftJoin) (Iterator, error) {
	left, err := Eval(ctx, ec, p.Left)
	if err != nil {
		return nil, err
	}
	defer left.Close()
	right, err := Eval(ctx, ec, p.Right)
	if err != nil {
		return nil, err
	}
	rightRows, err := drain(ctx, right, ec.Limits.rows())
	right.Close()
	if err != nil {
		return nil, err
	}
	limit := ec.Limits.rows()
	var out []Solution
	for left.Next(ctx) {
		ls := left.Solution()
		matched := false
		for _, rs := range rightRows {
			if !ls.compatible(rs) {
				continue
			}
			merged := ls.merge(rs)
			if p.Expr != nil {
				ok, err := evalBool(ctx, ec, p.Expr, merged)
				if err != nil || !ok {
					continue
				}
			}
			matched = true
			out = append(out, merged)
			if limit > 0 && len(out) > limit {
				return nil, rowLimitErr(limit)
			}
		}
		if !matched {
			out = append(out, ls)
		}
	}
	return newSliceIterator(out), left.Err()
}

// evalMinus drops a left solution when some right solution is compatible
// with it and shares at least one bound variable (spec §4.H.4).
func evalMinus(ctx context.Context, ec *Context, p algebra.Minus) (Iterator, error) {
	left, err := Eval(ctx, ec, p.Left)
	if err != nil {
		return nil, err
	}
	defer left.Close()
	right, err := Eval(ctx, ec, p.Right)
	if err != nil {
		return nil, err
	}
	rightRows, err := drain(ctx, right, ec.Limits.rows())
	right.Close()
	if err != nil {
		return nil, err
	}
	var out []Solution
	for left.Next(ctx) {
		ls := left.Solution()
		excluded := false
		for _, rs := range rightRows {
			if ls.sharesBoundVar(rs) && ls.compatible(rs) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, ls)
		}
	}
	return newSliceIterator(out), left.Err()
}

// evalUnion concatenates child streams; children may bind different
// variable sets (spec §4.H.5) since Solution is just a partial map.
func evalUnion(ctx context.Context, ec *Context, p algebra.Union) (Iterator, error) {
	limit := ec.Limits.rows()
	var out []Solution
	for _, child := range p.Children {
		it, err := Eval(ctx, ec, child)
		if err != nil {
			return nil, err
		}
		rows, err := drain(ctx, it, 0)
		it.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if limit > 0 && len(out) > limit {
			return nil, rowLimitErr(limit)
		}
	}
	return newSliceIterator(out), nil
}

// evalFilter drops solutions where Expr's effective boolean value is
// false, or where evaluation errors (spec §4.H.6).
func evalFilter(ctx context.Context, ec *Context, p algebra.Filter) (Iterator, error) {
	inner, err := Eval(ctx, ec, p.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	var out []Solution
	for inner.Next(ctx) {
		sol := inner.Solution()
		ok, err := evalBool(ctx, ec, p.Expr, sol)
		if err == nil && ok {
			out = append(out, sol)
		}
	}
	return newSliceIterator(out), inner.Err()
}

// evalExtend binds Var to Expr's value for every solution, leaving Var
// unbound (rather than failing the solution) when Expr errors (spec
// §4.H.6). Redefining an already-bound variable is rejected here as a
// runtime guard; the optimizer is expected to catch it statically first.
func evalExtend(ctx context.Context, ec *Context, p algebra.Extend) (Iterator, error) {
	inner, err := Eval(ctx, ec, p.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	var out []Solution
	for inner.Next(ctx) {
		sol := inner.Solution()
		if _, bound := sol[p.Var]; bound {
			return nil, evalErr("BIND: %s is already bound in this scope", p.Var)
		}
		sol = sol.clone()
		v, err := evalExpr(ctx, ec, p.Expr, sol)
		if err == nil {
			sol[p.Var] = v
		}
		out = append(out, sol)
	}
	return newSliceIterator(out), inner.Err()
}

// evalProject keeps only Vars from each solution.
func evalProject(ctx context.Context, ec *Context, p algebra.Project) (Iterator, error) {
	inner, err := Eval(ctx, ec, p.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	var out []Solution
	for inner.Next(ctx) {
		sol := inner.Solution()
		proj := Solution{}
		for _, v := range p.Vars {
			if val, ok := sol[v]; ok {
				proj[v] = val
			}
		}
		out = append(out, proj)
	}
	return newSliceIterator(out), inner.Err()
}

// evalSlice applies OFFSET/LIMIT over Inner's order (spec §4.H.9).
func evalSlice(ctx context.Context, ec *Context, p algebra.Slice) (Iterator, error) {
	inner, err := Eval(ctx, ec, p.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	rows, err := drain(ctx, inner, 0)
	if err != nil {
		return nil, err
	}
	start := p.Start
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if p.HasLen {
		if e := start + p.Len; e < end {
			end = e
		}
		if p.Len < 0 {
			end = start
		}
	}
	return newSliceIterator(append([]Solution{}, rows[start:end]...)), nil
}

