// Package queryexec implements the Store-level query/update entry points
// spec §6.1 describes (Store.query(text, options), Store.update(text,
// options)): parse, optimize, and evaluate a SPARQL 1.1 request against a
// store.Store. It lives outside the store package itself because engine,
// update, and sparql/parser all import store — a method directly on
// store.Store would close that cycle.
//
// Grounded on the teacher's internal/db package, which is the same kind
// of thin composition layer gluing graph.Handle (storage) to a query
// language's parse+eval pair and to internal.Load/Dump for the CLI.
package queryexec

import (
	"context"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/engine"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/optimizer"
	"github.com/quadgraph/qgdb/results"
	"github.com/quadgraph/qgdb/service"
	"github.com/quadgraph/qgdb/sparql/parser"
	"github.com/quadgraph/qgdb/store"
	"github.com/quadgraph/qgdb/update"
)

// Options collects the per-request knobs spec §6.1 exposes uniformly
// across query and update. A zero Options runs with fresh empty
// registries, no row/group/path limits, and optimizations enabled.
type Options struct {
	Dataset              *algebra.Dataset
	Funcs                *expr.Registry
	Services             *service.Registry
	Limits               engine.Limits
	BaseIRI              string
	Loader               update.Loader // update.Exec's LOAD support; unused by Query
	DisableOptimizations bool          // spec §6.1's without_optimizations
}

func (o Options) resolve() Options {
	if o.Funcs == nil {
		o.Funcs = expr.NewRegistry()
	}
	if o.Services == nil {
		o.Services = service.NewRegistry()
	}
	return o
}

// QueryResult carries exactly one of the three SPARQL result shapes
// (spec §4.K), selected by Form.
type QueryResult struct {
	Form      algebra.QueryForm
	Solutions *results.QuerySolutionIter // Select
	Triples   *results.QueryTripleIter   // Construct, Describe
	Boolean   results.Boolean            // Ask
}

// Query parses text as a SPARQL query, optimizes its pattern unless
// disabled, evaluates it against r, and adapts the result to the form
// the query requested. The caller owns closing the returned iterator
// (Solutions.Close/Triples.Close); an Ask result has nothing to close.
func Query(ctx context.Context, r *store.Reader, text string, opts Options) (*QueryResult, error) {
	opts = opts.resolve()
	q, err := parser.ParseQuery(text, opts.BaseIRI)
	if err != nil {
		return nil, err
	}

	pattern := q.Pattern
	if !opts.DisableOptimizations {
		pattern = optimizer.Optimize(pattern)
	}

	dataset := opts.Dataset
	if dataset == nil {
		dataset = q.Dataset
	}
	ec := &engine.Context{
		Reader:   r,
		Dataset:  dataset,
		Funcs:    opts.Funcs,
		Services: opts.Services,
		Limits:   opts.Limits,
		BaseIRI:  opts.BaseIRI,
	}
	it, err := engine.Eval(ctx, ec, pattern)
	if err != nil {
		return nil, err
	}

	switch q.Form {
	case algebra.Ask:
		b, err := results.EvalBoolean(ctx, it)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Form: q.Form, Boolean: b}, nil
	case algebra.Construct, algebra.Describe:
		return &QueryResult{Form: q.Form, Triples: results.NewQueryTripleIter(it, q.Template)}, nil
	default:
		return &QueryResult{Form: q.Form, Solutions: results.NewQuerySolutionIter(it, selectVars(q.Pattern))}, nil
	}
}

// Update parses text as a SPARQL Update request and runs it against w,
// within w's already-open transaction (spec §4.I's single-transaction
// semantics: the caller is expected to invoke Update from inside
// store.Store.Update/Transaction).
func Update(ctx context.Context, w *store.Writer, text string, opts Options) error {
	opts = opts.resolve()
	u, err := parser.ParseUpdate(text, opts.BaseIRI)
	if err != nil {
		return err
	}
	ec := &update.ExecContext{
		Funcs:    opts.Funcs,
		Services: opts.Services,
		Limits:   opts.Limits,
		BaseIRI:  opts.BaseIRI,
		Loader:   opts.Loader,
	}
	return update.Exec(ctx, ec, w, *u)
}

// selectVars recovers a SELECT query's output column order: the parser
// always wraps a non-"SELECT *" query in exactly one algebra.Project,
// directly under any Distinct/Reduced wrapper, so unwrapping those two
// finds it; "SELECT *" has no Project; every variable the pattern could
// bind is the output (spec §4.H "SELECT *" semantics).
func selectVars(p algebra.GraphPattern) []algebra.Var {
	switch t := p.(type) {
	case algebra.Distinct:
		return selectVars(t.Inner)
	case algebra.Reduced:
		return selectVars(t.Inner)
	case algebra.Project:
		return t.Vars
	default:
		set := optimizer.OutputVars(p)
		vars := make([]algebra.Var, 0, len(set))
		for v := range set {
			vars = append(vars, v)
		}
		return vars
	}
}
