package engine

import (
	"context"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
)

// evalService dispatches Inner to the handler registered for Name,
// converting the inner pattern's algebra tree directly rather than
// re-serializing it to SPARQL text (spec §4.H.10's "or pass the algebra
// directly to a native handler" option). SILENT turns any failure —
// including an unbound SERVICE ?var or no registered handler — into a
// single empty solution instead of propagating the error.
func evalService(ctx context.Context, ec *Context, p algebra.Service) (Iterator, error) {
	rows, err := runService(ctx, ec, p)
	if err != nil {
		if p.Silent {
			return newSliceIterator([]Solution{{}}), nil
		}
		return nil, err
	}
	return newSliceIterator(rows), nil
}

func runService(ctx context.Context, ec *Context, p algebra.Service) ([]Solution, error) {
	if !p.Name.Bound() {
		return nil, evalErr("SERVICE: variable service endpoint is not bound")
	}
	iri, ok := p.Name.Value.(quad.IRI)
	if !ok {
		return nil, evalErr("SERVICE: endpoint term %s is not an IRI", quad.StringOf(p.Name.Value))
	}
	if ec.Services == nil {
		return nil, evalErr("SERVICE: no service registry configured")
	}
	it, err := ec.Services.Handle(ctx, string(iri), p.Inner, ec.BaseIRI)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	limit := ec.Limits.rows()
	var out []Solution
	for it.Next(ctx) {
		out = append(out, Solution(it.Solution()))
		if limit > 0 && len(out) > limit {
			return nil, rowLimitErr(limit)
		}
	}
	return out, it.Err()
}
