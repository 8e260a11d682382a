// Package update executes a parsed algebra.Update over a store.Writer
// (spec §4.I): DeleteInsert, Load, Clear, Create, Drop, Add, Move, Copy.
// Grounded on the teacher's graph.QuadWriter transactional batch-apply
// shape (graph/quadwriter.go's ApplyDeltas), generalized from a flat
// delta slice to per-operation template instantiation against WHERE
// solutions produced by the engine package.
package update

import (
	"context"

	"github.com/google/uuid"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/service"
	"github.com/quadgraph/qgdb/store"
)

// newBlankLabel mints an opaque fresh blank-node label for one template
// instantiation, the same "fresh identifier per instantiation" use as
// results.QueryTripleIter's CONSTRUCT template handling.
func newBlankLabel() string { return uuid.NewString() }

// Loader resolves a LOAD <source> operation's remote/external data (spec
// §1 excludes RDF syntax codecs from this core, so Load never parses
// anything itself — Loader is the embedder-supplied collaborator that
// already did that, the same extension-point shape as service.Handler).
type Loader interface {
	Load(ctx context.Context, source quad.IRI) ([]quad.Quad, error)
}

// ExecContext carries the evaluator dependencies a DeleteInsert's WHERE
// clause needs (mirrors engine.Context minus Reader, which Exec binds
// per-operation to the in-progress Writer so a later operation in the
// same request observes an earlier one's writes).
type ExecContext struct {
	Funcs    *expr.Registry
	Services *service.Registry
	Limits   engine.Limits
	BaseIRI  string
	Loader   Loader
}

// Exec runs every operation in u in order against w, within the
// transaction w already belongs to (spec §4.I: "entire update request
// runs in one transaction"; the caller is expected to invoke Exec from
// inside store.Store.Update/Transaction so a failure here rolls the
// whole request back, including operations already applied earlier in
// the same Exec call).
func Exec(ctx context.Context, ec *ExecContext, w *store.Writer, u algebra.Update) error {
	for _, op := range u.Operations {
		if err := execOp(ctx, ec, w, op); err != nil {
			return err
		}
	}
	return nil
}

func execOp(ctx context.Context, ec *ExecContext, w *store.Writer, op algebra.UpdateOp) error {
	switch t := op.(type) {
	case algebra.DeleteInsert:
		return execDeleteInsert(ctx, ec, w, t)
	case algebra.Load:
		return execLoad(ctx, ec, w, t)
	case algebra.Clear:
		return silently(t.Silent, execClear(w, t.Graph))
	case algebra.Create:
		return silently(t.Silent, execCreate(w, t.Graph))
	case algebra.Drop:
		return silently(t.Silent, execDrop(w, t.Graph))
	case algebra.Add:
		return silently(t.Silent, execAdd(w, t.From, t.To))
	case algebra.Move:
		return silently(t.Silent, execMove(w, t.From, t.To))
	case algebra.Copy:
		return silently(t.Silent, execCopy(w, t.From, t.To))
	default:
		return qerrors.New(qerrors.EvaluationError, "update: unsupported operation %T", op)
	}
}

func silently(silent bool, err error) error {
	if err != nil && silent {
		return nil
	}
	return err
}

// execDeleteInsert implements DELETE/INSERT DATA, DELETE WHERE, and the
// general Modify form (spec §4.I). A nil Where means a ground DATA form:
// Delete/Insert already hold fully bound templates, instantiated once.
// Otherwise every WHERE solution is computed first, the delete set
// instantiated against all of them, and only then is the insert set
// instantiated against the *same* solutions — the insert templates must
// see WHERE's bindings from before any deletion took effect (spec
// §4.I's "insert set uses bindings from WHERE before deletions are
// applied").
func execDeleteInsert(ctx context.Context, ec *ExecContext, w *store.Writer, op algebra.DeleteInsert) error {
	if op.Where == nil {
		for _, q := range instantiateTemplates(op.Delete, nil) {
			if _, err := w.Remove(q); err != nil {
				return err
			}
		}
		for _, q := range instantiateTemplates(op.Insert, nil) {
			if _, err := w.Insert(q); err != nil {
				return err
			}
		}
		return nil
	}

	eng := &engine.Context{
		Reader:   w.Reader,
		Dataset:  op.Using,
		Funcs:    ec.Funcs,
		Services: ec.Services,
		Limits:   ec.Limits,
		BaseIRI:  ec.BaseIRI,
	}
	it, err := engine.Eval(ctx, eng, op.Where)
	if err != nil {
		return err
	}
	defer it.Close()
	var solutions []engine.Solution
	for it.Next(ctx) {
		solutions = append(solutions, it.Solution())
	}
	if err := it.Err(); err != nil {
		return err
	}

	var deletes, inserts []quad.Quad
	for _, sol := range solutions {
		deletes = append(deletes, instantiateTemplates(op.Delete, sol)...)
	}
	for _, sol := range solutions {
		inserts = append(inserts, instantiateTemplates(op.Insert, sol)...)
	}
	for _, q := range deletes {
		if _, err := w.Remove(q); err != nil {
			return err
		}
	}
	for _, q := range inserts {
		if _, err := w.Insert(q); err != nil {
			return err
		}
	}
	return nil
}

// instantiateTemplates resolves each QuadTemplate against sol (nil for a
// ground DATA block, where every term must already be fixed), skipping a
// template with an unbound non-blank term. A template blank node is
// freshened once per call so that repeated occurrences of the same label
// within one solution's instantiation share a node, but two different
// solutions never alias one.
func instantiateTemplates(templates []algebra.QuadTemplate, sol engine.Solution) []quad.Quad {
	fresh := map[quad.BNode]quad.Value{}
	resolve := func(t algebra.Term) (quad.Value, bool) {
		if t.Var != "" {
			if sol == nil {
				return nil, false
			}
			v, ok := sol[t.Var]
			return v, ok
		}
		if bn, ok := t.Value.(quad.BNode); ok {
			if v, ok := fresh[bn]; ok {
				return v, true
			}
			v := quad.BNode(newBlankLabel())
			fresh[bn] = v
			return v, true
		}
		return t.Value, t.Value != nil
	}
	var out []quad.Quad
	for _, tmpl := range templates {
		s, ok1 := resolve(tmpl.Subject)
		p, ok2 := resolve(tmpl.Predicate)
		o, ok3 := resolve(tmpl.Object)
		g, ok4 := resolve(tmpl.Graph)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		pIRI, ok := p.(quad.IRI)
		if !ok {
			continue
		}
		if !ok4 {
			if tmpl.Graph.Var != "" {
				continue
			}
			g = quad.DefaultGraph
		}
		out = append(out, quad.Quad{Subject: s, Predicate: pIRI, Object: o, Graph: g})
	}
	return out
}

// execLoad fetches source's quads via ec.Loader and inserts them, into
// Into if given, otherwise each quad's own graph (spec §4.I's LOAD).
func execLoad(ctx context.Context, ec *ExecContext, w *store.Writer, op algebra.Load) error {
	if ec.Loader == nil {
		return silently(op.Silent, qerrors.New(qerrors.EvaluationError, "LOAD <%s>: no loader configured", op.Source))
	}
	quads, err := ec.Loader.Load(ctx, op.Source)
	if err != nil {
		return silently(op.Silent, err)
	}
	for _, q := range quads {
		if op.Into != nil {
			q.Graph = *op.Into
		}
		if _, err := w.Insert(q); err != nil {
			return err
		}
	}
	return nil
}

func execClear(w *store.Writer, target algebra.ClearTarget) error {
	switch target.Kind {
	case algebra.ClearDefault:
		return w.ClearGraph(quad.DefaultGraph)
	case algebra.ClearGraph:
		return w.ClearGraph(target.Graph)
	case algebra.ClearAll:
		return w.ClearAll()
	case algebra.ClearNamed:
		return forEachNamedGraph(w, func(g quad.Value) error { return w.ClearGraph(g) })
	default:
		return qerrors.New(qerrors.EvaluationError, "update: unsupported CLEAR target")
	}
}

// execCreate registers an empty named graph (spec's CREATE GRAPH). It is
// idempotent: creating an already-registered graph is a no-op rather than
// an error, since nothing observable distinguishes the two states once
// CREATE has run (this core has no separate graph-metadata to collide
// on); SILENT only matters for errors this op can actually raise (a
// backend failure propagating from InsertNamedGraph).
func execCreate(w *store.Writer, g quad.IRI) error {
	return w.InsertNamedGraph(g)
}

// execDrop empties and deregisters the target graph(s), unlike Clear
// which only empties (spec's CLEAR vs DROP distinction).
func execDrop(w *store.Writer, target algebra.ClearTarget) error {
	switch target.Kind {
	case algebra.ClearDefault:
		return w.ClearGraph(quad.DefaultGraph)
	case algebra.ClearGraph:
		if err := w.ClearGraph(target.Graph); err != nil {
			return err
		}
		return w.RemoveNamedGraph(target.Graph)
	case algebra.ClearAll:
		if err := w.ClearAll(); err != nil {
			return err
		}
		return forEachNamedGraph(w, func(g quad.Value) error { return w.RemoveNamedGraph(g) })
	case algebra.ClearNamed:
		return forEachNamedGraph(w, func(g quad.Value) error {
			if err := w.ClearGraph(g); err != nil {
				return err
			}
			return w.RemoveNamedGraph(g)
		})
	default:
		return qerrors.New(qerrors.EvaluationError, "update: unsupported DROP target")
	}
}

func forEachNamedGraph(w *store.Writer, fn func(quad.Value) error) error {
	var graphs []quad.Value
	if err := w.NamedGraphs(context.Background(), func(v quad.Value) bool {
		graphs = append(graphs, v)
		return true
	}); err != nil {
		return err
	}
	for _, g := range graphs {
		if err := fn(g); err != nil {
			return err
		}
	}
	return nil
}

func moveTargetGraph(t algebra.MoveTarget) quad.Value {
	if t.IsDefault {
		return quad.DefaultGraph
	}
	return t.Graph
}

// execAdd inserts a copy of from's triples into to, without clearing to
// first (spec's ADD is a union, unlike COPY/MOVE which replace).
func execAdd(w *store.Writer, from, to algebra.MoveTarget) error {
	return copyGraph(w, moveTargetGraph(from), moveTargetGraph(to))
}

// execCopy clears to, then inserts a copy of from's triples into it;
// from is left untouched.
func execCopy(w *store.Writer, from, to algebra.MoveTarget) error {
	toGraph := moveTargetGraph(to)
	if err := w.ClearGraph(toGraph); err != nil {
		return err
	}
	return copyGraph(w, moveTargetGraph(from), toGraph)
}

// execMove is Copy followed by clearing from (spec's MOVE moves rather
// than duplicates).
func execMove(w *store.Writer, from, to algebra.MoveTarget) error {
	fromGraph := moveTargetGraph(from)
	if err := execCopy(w, from, to); err != nil {
		return err
	}
	return w.ClearGraph(fromGraph)
}

func copyGraph(w *store.Writer, from, to quad.Value) error {
	var quads []quad.Quad
	if err := w.QuadsForPattern(context.Background(), store.Pattern{Graph: from}, func(q quad.Quad) bool {
		quads = append(quads, q)
		return true
	}); err != nil {
		return err
	}
	for _, q := range quads {
		q.Graph = to
		if _, err := w.Insert(q); err != nil {
			return err
		}
	}
	return nil
}
