// Package store implements the top-level Storage API (spec §4.D): Reader,
// Writer, Store, and BulkLoader, layered over store/kv and store/index.
package store

import (
	"context"

	"github.com/quadgraph/qgdb/encoding"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store/index"
	"github.com/quadgraph/qgdb/store/kv"
)

// Pattern describes a quad pattern with any of its four components left
// unbound (nil). It mirrors the (s?, p?, o?, g?) notation of spec §4.C.
type Pattern struct {
	Subject, Predicate, Object, Graph quad.Value
}

// Reader is an immutable snapshot view (spec §4.D "Reader").
type Reader struct {
	tx kv.Tx
}

func newReader(tx kv.Tx) *Reader {
	return &Reader{tx: tx}
}

func (r *Reader) dict() (*index.Dict, error) {
	b, err := r.tx.Bucket(index.CFID2Str)
	if err != nil {
		return nil, err
	}
	return &index.Dict{B: b}, nil
}

func (r *Reader) encoder() (*encoding.Encoder, error) {
	// Pattern encoding never writes to the dictionary: a bound value in a
	// query pattern must not create or bump a dictionary entry merely by
	// being looked up.
	return &encoding.Encoder{Dict: nil}, nil
}

// Contains reports whether q is present.
func (r *Reader) Contains(q quad.Quad) (bool, error) {
	enc, err := r.encoder()
	if err != nil {
		return false, err
	}
	eq, err := enc.EncodeQuad(q)
	if err != nil {
		return false, err
	}
	return index.Contains(r.tx, eq)
}

// QuadsForPattern scans every quad matching p, calling fn for each until fn
// returns false or the scan is exhausted.
func (r *Reader) QuadsForPattern(ctx context.Context, p Pattern, fn func(quad.Quad) bool) error {
	enc, err := r.encoder()
	if err != nil {
		return err
	}
	var pat encoding.EncodedQuad
	var sBound, pBound, oBound, gBound bool
	if p.Subject != nil {
		if pat.S, err = enc.EncodeTerm(p.Subject); err != nil {
			return err
		}
		sBound = true
	}
	if p.Predicate != nil {
		if pat.P, err = enc.EncodeTerm(p.Predicate); err != nil {
			return err
		}
		pBound = true
	}
	if p.Object != nil {
		if pat.O, err = enc.EncodeTerm(p.Object); err != nil {
			return err
		}
		oBound = true
	}
	if p.Graph != nil {
		if pat.G, err = enc.EncodeTerm(p.Graph); err != nil {
			return err
		}
		gBound = true
	}

	dict, err := r.dict()
	if err != nil {
		return err
	}
	dec := &encoding.Decoder{Dict: dict}

	return index.Scan(ctx, r.tx, pat, sBound, pBound, oBound, gBound, func(eq encoding.EncodedQuad) bool {
		// Re-verify the bound components: the chosen permutation's prefix
		// may be shorter than the full set of bound components (e.g. s and
		// o bound: SPOG's prefix covers only s), so a residual
		// equality check is required (spec §4.H.1 "enforce equality").
		if sBound && eq.S != pat.S {
			return true
		}
		if pBound && eq.P != pat.P {
			return true
		}
		if oBound && eq.O != pat.O {
			return true
		}
		if gBound && eq.G != pat.G {
			return true
		}
		q, err := dec.DecodeQuad(eq)
		if err != nil {
			return false
		}
		return fn(q)
	})
}

// NamedGraphs enumerates every known named graph.
func (r *Reader) NamedGraphs(ctx context.Context, fn func(quad.Value) bool) error {
	dict, err := r.dict()
	if err != nil {
		return err
	}
	dec := &encoding.Decoder{Dict: dict}
	return index.NamedGraphs(ctx, r.tx, func(et encoding.EncodedTerm) bool {
		v, err := dec.DecodeTerm(et)
		if err != nil {
			return false
		}
		return fn(v)
	})
}

// ContainsNamedGraph reports whether g is a known, non-empty-by-declaration
// named graph (spec §4.D).
func (r *Reader) ContainsNamedGraph(g quad.Value) (bool, error) {
	enc, err := r.encoder()
	if err != nil {
		return false, err
	}
	et, err := enc.EncodeTerm(g)
	if err != nil {
		return false, err
	}
	return index.ContainsNamedGraph(r.tx, et)
}

// Len returns the total number of quads in the store (scans SPOG fully;
// callers needing this on a hot path should cache it).
func (r *Reader) Len(ctx context.Context) (int, error) {
	b, err := r.tx.Bucket(index.CFSPOG)
	if err != nil {
		return 0, err
	}
	n := 0
	err = kv.Each(ctx, b, nil, func(_, _ []byte) bool { n++; return true })
	return n, err
}

// IsEmpty reports whether the store holds zero quads, without a full scan.
func (r *Reader) IsEmpty(ctx context.Context) (bool, error) {
	b, err := r.tx.Bucket(index.CFSPOG)
	if err != nil {
		return false, err
	}
	empty := true
	err = kv.Each(ctx, b, nil, func(_, _ []byte) bool { empty = false; return false })
	return empty, err
}

var errReadOnly = qerrors.New(qerrors.InvalidArgument, "store: write attempted on a read-only snapshot")
