package engine

import (
	"context"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store"
)

// evalPath evaluates a property-path pattern (spec §4.H.7) via mutually
// recursive one-step expansion functions (pathForward/pathBackward);
// ZeroOrMore/OneOrMore perform their own breadth-first fixed-point search
// bounded by Limits.MaxPropertyPathDepth, with a per-starting-node visited
// set guaranteeing termination on any finite dataset (spec: "the
// visited-set bound is the number of distinct nodes reachable"), and
// ZeroOrOne is the start node plus one step of its inner path. graphs resolves p.Graph once per call so every step of one
// path evaluation scans the same graph set.
func evalPath(ctx context.Context, ec *Context, p algebra.Path) (Iterator, error) {
	graphs, err := resolveGraphs(ctx, ec, p.Graph)
	if err != nil {
		return nil, err
	}

	emit := func(out *[]Solution, s, o quad.Value) {
		sol := Solution{}
		if p.Subject.Var != "" {
			sol[p.Subject.Var] = s
		}
		if p.Object.Var != "" {
			sol[p.Object.Var] = o
		}
		*out = append(*out, sol)
	}

	var out []Solution
	limit := ec.Limits.rows()

	switch {
	case p.Subject.Bound():
		reached, err := pathForward(ctx, ec, graphs, p.Expr, p.Subject.Value)
		if err != nil {
			return nil, err
		}
		for _, o := range reached {
			if p.Object.Bound() && !termEqual(p.Object.Value, o) {
				continue
			}
			emit(&out, p.Subject.Value, o)
			if limit > 0 && len(out) > limit {
				return nil, rowLimitErr(limit)
			}
		}
	case p.Object.Bound():
		reached, err := pathBackward(ctx, ec, graphs, p.Expr, p.Object.Value)
		if err != nil {
			return nil, err
		}
		for _, s := range reached {
			emit(&out, s, p.Object.Value)
			if limit > 0 && len(out) > limit {
				return nil, rowLimitErr(limit)
			}
		}
	default:
		starts, err := pathStartNodes(ctx, ec, graphs)
		if err != nil {
			return nil, err
		}
		for _, s := range starts {
			reached, err := pathForward(ctx, ec, graphs, p.Expr, s)
			if err != nil {
				return nil, err
			}
			for _, o := range reached {
				emit(&out, s, o)
				if limit > 0 && len(out) > limit {
					return nil, rowLimitErr(limit)
				}
			}
		}
	}
	return newSliceIterator(out), nil
}

// pathStartNodes enumerates candidate subjects when neither end of a path
// pattern is bound, by scanning for every distinct subject across graphs
// (a full-scan fallback; documented simplification — a smarter
// implementation would restrict this to the path's base predicate set).
func pathStartNodes(ctx context.Context, ec *Context, graphs []quad.Value) ([]quad.Value, error) {
	seen := map[string]quad.Value{}
	for _, g := range graphs {
		err := ec.Reader.QuadsForPattern(ctx, store.Pattern{Graph: g}, func(q quad.Quad) bool {
			key := quad.StringOf(q.Subject)
			if _, ok := seen[key]; !ok {
				seen[key] = q.Subject
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	out := make([]quad.Value, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out, nil
}

// pathForward returns every node reachable from s by pe, evaluated in
// exactly one top-level expansion (the star/plus cases perform their own
// internal closure over their inner sub-expression; ZeroOrOne adds s to
// one step of its inner path; all other cases compose single steps).
func pathForward(ctx context.Context, ec *Context, graphs []quad.Value, pe algebra.PathExpr, s quad.Value) ([]quad.Value, error) {
	switch t := pe.(type) {
	case algebra.PathPredicate:
		return scanStep(ctx, ec, graphs, s, t.IRI, false)
	case algebra.PathInverse:
		return pathBackward(ctx, ec, graphs, t.Path, s)
	case algebra.PathSeq:
		mids, err := pathForward(ctx, ec, graphs, t.Left, s)
		if err != nil {
			return nil, err
		}
		return fanOut(mids, func(mid quad.Value) ([]quad.Value, error) {
			return pathForward(ctx, ec, graphs, t.Right, mid)
		})
	case algebra.PathAlt:
		a, err := pathForward(ctx, ec, graphs, t.Left, s)
		if err != nil {
			return nil, err
		}
		b, err := pathForward(ctx, ec, graphs, t.Right, s)
		if err != nil {
			return nil, err
		}
		return dedup(append(a, b...)), nil
	case algebra.PathNegatedSet:
		return scanNegated(ctx, ec, graphs, s, t.IRIs, false)
	case algebra.PathZeroOrMore:
		return closure(ctx, ec, graphs, t.Path, s, true, ec.Limits.pathDepth(), pathForward)
	case algebra.PathOneOrMore:
		return closure(ctx, ec, graphs, t.Path, s, false, ec.Limits.pathDepth(), pathForward)
	case algebra.PathZeroOrOne:
		one, err := pathForward(ctx, ec, graphs, t.Path, s)
		if err != nil {
			return nil, err
		}
		return dedup(append(one, s)), nil
	default:
		return nil, evalErr("engine: unsupported path expression %T", pe)
	}
}

// pathBackward returns every node x such that x reaches o by pe, i.e. the
// forward evaluation of pe's inverse.
func pathBackward(ctx context.Context, ec *Context, graphs []quad.Value, pe algebra.PathExpr, o quad.Value) ([]quad.Value, error) {
	switch t := pe.(type) {
	case algebra.PathPredicate:
		return scanStep(ctx, ec, graphs, o, t.IRI, true)
	case algebra.PathInverse:
		return pathForward(ctx, ec, graphs, t.Path, o)
	case algebra.PathSeq:
		mids, err := pathBackward(ctx, ec, graphs, t.Right, o)
		if err != nil {
			return nil, err
		}
		return fanOut(mids, func(mid quad.Value) ([]quad.Value, error) {
			return pathBackward(ctx, ec, graphs, t.Left, mid)
		})
	case algebra.PathAlt:
		a, err := pathBackward(ctx, ec, graphs, t.Left, o)
		if err != nil {
			return nil, err
		}
		b, err := pathBackward(ctx, ec, graphs, t.Right, o)
		if err != nil {
			return nil, err
		}
		return dedup(append(a, b...)), nil
	case algebra.PathNegatedSet:
		return scanNegated(ctx, ec, graphs, o, t.IRIs, true)
	case algebra.PathZeroOrMore:
		return closure(ctx, ec, graphs, t.Path, o, true, ec.Limits.pathDepth(), pathBackward)
	case algebra.PathOneOrMore:
		return closure(ctx, ec, graphs, t.Path, o, false, ec.Limits.pathDepth(), pathBackward)
	case algebra.PathZeroOrOne:
		one, err := pathBackward(ctx, ec, graphs, t.Path, o)
		if err != nil {
			return nil, err
		}
		return dedup(append(one, o)), nil
	default:
		return nil, evalErr("engine: unsupported path expression %T", pe)
	}
}

type stepFn func(ctx context.Context, ec *Context, graphs []quad.Value, pe algebra.PathExpr, node quad.Value) ([]quad.Value, error)

// closure performs the breadth-first fixed-point search behind
// */+: repeatedly apply step from the frontier until nothing new is
// reached, bounded by maxDepth traversal rounds and a per-start visited
// set (spec §4.H.7).
func closure(ctx context.Context, ec *Context, graphs []quad.Value, pe algebra.PathExpr, start quad.Value, includeStart bool, maxDepth int, step stepFn) ([]quad.Value, error) {
	visited := map[string]quad.Value{}
	if includeStart {
		visited[quad.StringOf(start)] = start
	}
	frontier := []quad.Value{start}
	for round := 0; len(frontier) > 0; round++ {
		if round >= maxDepth {
			return nil, pathDepthErr(maxDepth)
		}
		var next []quad.Value
		for _, node := range frontier {
			outs, err := step(ctx, ec, graphs, pe, node)
			if err != nil {
				return nil, err
			}
			for _, o := range outs {
				key := quad.StringOf(o)
				if _, ok := visited[key]; ok {
					continue
				}
				visited[key] = o
				next = append(next, o)
			}
		}
		frontier = next
	}
	out := make([]quad.Value, 0, len(visited))
	for _, v := range visited {
		out = append(out, v)
	}
	return out, nil
}

func fanOut(nodes []quad.Value, step func(quad.Value) ([]quad.Value, error)) ([]quad.Value, error) {
	seen := map[string]quad.Value{}
	for _, n := range nodes {
		outs, err := step(n)
		if err != nil {
			return nil, err
		}
		for _, o := range outs {
			seen[quad.StringOf(o)] = o
		}
	}
	out := make([]quad.Value, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out, nil
}

func dedup(nodes []quad.Value) []quad.Value {
	seen := map[string]quad.Value{}
	for _, n := range nodes {
		seen[quad.StringOf(n)] = n
	}
	out := make([]quad.Value, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out
}

// scanStep scans for quads with predicate iri anchored at node; reverse
// swaps which side node binds (Object for a forward predicate scan from
// s, Subject for a backward scan from o).
func scanStep(ctx context.Context, ec *Context, graphs []quad.Value, node quad.Value, iri quad.IRI, reverse bool) ([]quad.Value, error) {
	var out []quad.Value
	for _, g := range graphs {
		pat := store.Pattern{Predicate: iri, Graph: g}
		if reverse {
			pat.Object = node
		} else {
			pat.Subject = node
		}
		err := ec.Reader.QuadsForPattern(ctx, pat, func(q quad.Quad) bool {
			if reverse {
				out = append(out, q.Subject)
			} else {
				out = append(out, q.Object)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return dedup(out), nil
}

// scanNegated scans for quads anchored at node whose predicate is not in
// excluded (spec's `!(p1|...|pn)`).
func scanNegated(ctx context.Context, ec *Context, graphs []quad.Value, node quad.Value, excluded []quad.IRI, reverse bool) ([]quad.Value, error) {
	excludeSet := make(map[quad.IRI]bool, len(excluded))
	for _, iri := range excluded {
		excludeSet[iri] = true
	}
	var out []quad.Value
	for _, g := range graphs {
		pat := store.Pattern{Graph: g}
		if reverse {
			pat.Object = node
		} else {
			pat.Subject = node
		}
		err := ec.Reader.QuadsForPattern(ctx, pat, func(q quad.Quad) bool {
			if excludeSet[q.Predicate] {
				return true
			}
			if reverse {
				out = append(out, q.Subject)
			} else {
				out = append(out, q.Object)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return dedup(out), nil
}
