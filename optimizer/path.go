package optimizer

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
)

// canonicalizePath rewrites a property path expression into the spec's
// canonical form (§4.F rule 6): p+ becomes p/p* (PathOneOrMore{p}
// becomes PathSeq{p, PathZeroOrMore{p}}), and a negated property set's
// IRI list is deduplicated. PathZeroOrOne is already its own canonical
// variant, so p? needs no rewrite. The engine keeps a direct evaluator
// for PathOneOrMore (engine/path.go) for trees that reach it without
// going through Optimize first; this rewrite just means an optimized
// tree always takes the Seq/ZeroOrMore path instead.
func canonicalizePath(p algebra.PathExpr) algebra.PathExpr {
	switch t := p.(type) {
	case algebra.PathPredicate:
		return t
	case algebra.PathInverse:
		return algebra.PathInverse{Path: canonicalizePath(t.Path)}
	case algebra.PathSeq:
		return algebra.PathSeq{Left: canonicalizePath(t.Left), Right: canonicalizePath(t.Right)}
	case algebra.PathAlt:
		return algebra.PathAlt{Left: canonicalizePath(t.Left), Right: canonicalizePath(t.Right)}
	case algebra.PathZeroOrMore:
		return algebra.PathZeroOrMore{Path: canonicalizePath(t.Path)}
	case algebra.PathOneOrMore:
		inner := canonicalizePath(t.Path)
		return algebra.PathSeq{Left: inner, Right: algebra.PathZeroOrMore{Path: inner}}
	case algebra.PathZeroOrOne:
		return algebra.PathZeroOrOne{Path: canonicalizePath(t.Path)}
	case algebra.PathNegatedSet:
		return algebra.PathNegatedSet{IRIs: dedupIRIs(t.IRIs)}
	default:
		return p
	}
}

func dedupIRIs(iris []quad.IRI) []quad.IRI {
	seen := map[quad.IRI]bool{}
	out := make([]quad.IRI, 0, len(iris))
	for _, iri := range iris {
		if seen[iri] {
			continue
		}
		seen[iri] = true
		out = append(out, iri)
	}
	return out
}
