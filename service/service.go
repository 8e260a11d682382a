// Package service implements the SPARQL SERVICE handler registry (spec
// §4.J): a per-IRI handler table plus one default handler, invoked by the
// engine's Service evaluator (spec §4.H.10).
package service

import (
	"context"
	"sync"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
)

// Solution is a variable binding, mirroring engine.Solution without
// importing the engine package (which imports service, to avoid a cycle).
type Solution map[algebra.Var]quad.Value

// Iterator yields Solutions, mirroring engine.Iterator's shape.
type Iterator interface {
	Next(ctx context.Context) bool
	Solution() Solution
	Err() error
	Close() error
}

// Handler evaluates pattern against the named remote (or local) endpoint
// and returns its solutions. baseIRI is the query's base IRI, needed to
// resolve any relative IRIs the handler re-serializes pattern with.
type Handler func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (Iterator, error)

// Registry holds the handler table (spec §4.J "two kinds: per-IRI
// handlers and a single default handler").
type Registry struct {
	mu      sync.RWMutex
	byIRI   map[string]Handler
	Default Handler
}

func NewRegistry() *Registry {
	return &Registry{byIRI: map[string]Handler{}}
}

// Register installs (or replaces) the handler for a specific service IRI.
func (r *Registry) Register(iri string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIRI[iri] = h
}

// Handle dispatches to the handler registered for name, falling back to
// Default; it is an evaluation error for neither to exist.
func (r *Registry) Handle(ctx context.Context, name string, pattern algebra.GraphPattern, baseIRI string) (Iterator, error) {
	r.mu.RLock()
	h, ok := r.byIRI[name]
	def := r.Default
	r.mu.RUnlock()
	if !ok {
		h = def
	}
	if h == nil {
		return nil, qerrors.New(qerrors.EvaluationError, "service: no handler registered for %q", name)
	}
	return h(ctx, pattern, baseIRI)
}
