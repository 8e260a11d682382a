// Package results adapts engine.Iterator to the three result shapes the
// four SPARQL query forms produce (spec §4.K): a SELECT yields
// QuerySolutionIter, a CONSTRUCT/DESCRIBE yields QueryTripleIter, an ASK
// yields a single Boolean. All three are single-pass, mirroring
// engine.Iterator's own pull protocol rather than buffering a whole
// result set up front.
package results

import (
	"context"

	"github.com/google/uuid"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/quad"
)

// QuerySolutionIter yields one solution per row, carrying the ordered
// variable list a SELECT's output columns are named after.
type QuerySolutionIter struct {
	Vars []algebra.Var

	it  engine.Iterator
	cur engine.Solution
	err error
}

// NewQuerySolutionIter wraps it, which must already yield the projected
// (and, for SELECT *, full) solution shape; vars fixes the column order
// independent of any one solution's map iteration order.
func NewQuerySolutionIter(it engine.Iterator, vars []algebra.Var) *QuerySolutionIter {
	return &QuerySolutionIter{Vars: vars, it: it}
}

func (q *QuerySolutionIter) Next(ctx context.Context) bool {
	if !q.it.Next(ctx) {
		q.err = q.it.Err()
		return false
	}
	q.cur = q.it.Solution()
	return true
}

// Binding returns the current row's value for v, and whether v is bound.
func (q *QuerySolutionIter) Binding(v algebra.Var) (quad.Value, bool) {
	val, ok := q.cur[v]
	return val, ok
}

func (q *QuerySolutionIter) Err() error   { return q.err }
func (q *QuerySolutionIter) Close() error { return q.it.Close() }

// QueryTripleIter yields one quad.Triple at a time, produced by
// resolving a CONSTRUCT/DESCRIBE template against each underlying
// solution (spec §4.H's QuadTemplate, spec §4.K).
type QueryTripleIter struct {
	it        engine.Iterator
	templates []algebra.QuadTemplate

	pending []quad.Triple
	cur     quad.Triple
	err     error
}

// NewQueryTripleIter drives it (the WHERE pattern's solutions) through
// templates (the CONSTRUCT triple template) to produce a flat triple
// stream. Each solution gets its own fresh blank-node labels, per
// SPARQL CONSTRUCT's "blank nodes in the template are scoped to the
// solution that produced them" rule — a distinct instantiation must not
// collapse blank nodes from two different solutions onto the same node.
func NewQueryTripleIter(it engine.Iterator, templates []algebra.QuadTemplate) *QueryTripleIter {
	return &QueryTripleIter{it: it, templates: templates}
}

func (q *QueryTripleIter) Next(ctx context.Context) bool {
	for len(q.pending) == 0 {
		if !q.it.Next(ctx) {
			q.err = q.it.Err()
			return false
		}
		q.pending = instantiateTemplate(q.templates, engine.Solution(q.it.Solution()))
	}
	q.cur = q.pending[0]
	q.pending = q.pending[1:]
	return true
}

func (q *QueryTripleIter) Triple() quad.Triple { return q.cur }
func (q *QueryTripleIter) Err() error          { return q.err }
func (q *QueryTripleIter) Close() error        { return q.it.Close() }

// instantiateTemplate resolves every QuadTemplate against sol, skipping
// a template whose non-blank-node term is unbound in sol (spec: a
// template triple with an unbound variable simply does not produce an
// output triple for that solution). A fixed quad.BNode template term
// (the parser keeps CONSTRUCT template blank nodes as literal BNode
// values, unlike a WHERE-clause BGP where they are lowered to pattern
// variables) is given a fresh label per call to instantiateTemplate, so
// that two solutions' instantiations never alias the same blank node,
// while repeated occurrences of the same label within one solution's
// instantiation still resolve to one shared fresh node.
func instantiateTemplate(templates []algebra.QuadTemplate, sol engine.Solution) []quad.Triple {
	freshBNodes := map[quad.BNode]quad.Value{}
	resolve := func(t algebra.Term) (quad.Value, bool) {
		if t.Var != "" {
			v, ok := sol[t.Var]
			return v, ok
		}
		if bn, ok := t.Value.(quad.BNode); ok {
			if v, ok := freshBNodes[bn]; ok {
				return v, true
			}
			v := quad.BNode(uuid.NewString())
			freshBNodes[bn] = v
			return v, true
		}
		return t.Value, t.Value != nil
	}
	var out []quad.Triple
	for _, tmpl := range templates {
		s, ok1 := resolve(tmpl.Subject)
		p, ok2 := resolve(tmpl.Predicate)
		o, ok3 := resolve(tmpl.Object)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		pIRI, ok := p.(quad.IRI)
		if !ok {
			continue
		}
		out = append(out, quad.Triple{Subject: s, Predicate: pIRI, Object: o})
	}
	return out
}

// Boolean is the ASK result: true iff the pattern has at least one
// solution (spec §4.K's QueryResults::Boolean).
type Boolean bool

// EvalBoolean drains it for a single row, closing it either way.
func EvalBoolean(ctx context.Context, it engine.Iterator) (Boolean, error) {
	defer it.Close()
	has := it.Next(ctx)
	if err := it.Err(); err != nil {
		return false, err
	}
	return Boolean(has), nil
}
