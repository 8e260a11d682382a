package store

import (
	"context"

	"github.com/quadgraph/qgdb/encoding"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store/index"
)

// Writer is a Reader plus mutation operations, valid only within the
// transaction it was handed to (spec §4.D "Writer"). It observes its own
// in-progress writes immediately, since it shares the underlying kv.Tx.
type Writer struct {
	*Reader
}

func newWriter(r *Reader) *Writer { return &Writer{Reader: r} }

func (w *Writer) dictBucket() (*index.Dict, error) {
	b, err := w.tx.Bucket(index.CFID2Str)
	if err != nil {
		return nil, err
	}
	return &index.Dict{B: b}, nil
}

// writeEncoder returns an Encoder backed by the live dictionary, so hash
// variants are inserted (and refcounted) as a side effect of encoding —
// unlike Reader.encoder, which never writes.
func (w *Writer) writeEncoder() (*encoding.Encoder, error) {
	d, err := w.dictBucket()
	if err != nil {
		return nil, err
	}
	return &encoding.Encoder{Dict: d}, nil
}

// Insert adds q, returning true iff it was not already present. Per spec
// §4.C step 1-2: encode (inserting any newly-seen dictionary entries, each
// occurrence bumping its refcount), then write into all six permutations
// and the graphs family if needed.
func (w *Writer) Insert(q quad.Quad) (bool, error) {
	if err := q.IsValid(); err != nil {
		return false, err
	}
	enc, err := w.writeEncoder()
	if err != nil {
		return false, err
	}
	eq, err := enc.EncodeQuad(q)
	if err != nil {
		return false, err
	}
	return index.Insert(w.tx, eq)
}

// Remove deletes q, returning true iff it had been present. Dictionary
// refcounts for its terms are decremented; entries are not purged here
// (deferred to Store.Optimize, spec §3.3/§9).
func (w *Writer) Remove(q quad.Quad) (bool, error) {
	enc, err := w.encoder()
	if err != nil {
		return false, err
	}
	eq, err := enc.EncodeQuad(q)
	if err != nil {
		return false, err
	}
	removed, err := index.Remove(w.tx, eq)
	if err != nil || !removed {
		return removed, err
	}
	d, err := w.dictBucket()
	if err != nil {
		return removed, err
	}
	for _, et := range [4]encoding.EncodedTerm{eq.S, eq.P, eq.O, eq.G} {
		if k := et.Kind(); k == encoding.KindNamedNodeHash || k == encoding.KindBlankNodeHash ||
			k == encoding.KindStringHash || k == encoding.KindLangStringHash ||
			k == encoding.KindTypedLiteralHash || k == encoding.KindTripleHash {
			var h encoding.Hash128
			copy(h[:], et[1:17])
			if err := d.Release(h); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

// InsertNamedGraph registers g as a known named graph even with zero quads
// in it (spec §3.4's empty-named-graph invariant, §4.D).
func (w *Writer) InsertNamedGraph(g quad.Value) error {
	enc, err := w.writeEncoder()
	if err != nil {
		return err
	}
	et, err := enc.EncodeTerm(g)
	if err != nil {
		return err
	}
	b, err := w.tx.Bucket(index.CFGraphs)
	if err != nil {
		return err
	}
	return b.Put(et[:], nil)
}

// RemoveNamedGraph forgets g's registration (but not its quads; callers
// wanting full removal should ClearGraph first).
func (w *Writer) RemoveNamedGraph(g quad.Value) error {
	enc, err := w.encoder()
	if err != nil {
		return err
	}
	et, err := enc.EncodeTerm(g)
	if err != nil {
		return err
	}
	b, err := w.tx.Bucket(index.CFGraphs)
	if err != nil {
		return err
	}
	return b.Del(et[:])
}

// ClearGraph removes every quad asserted in g, leaving g registered.
func (w *Writer) ClearGraph(g quad.Value) error {
	var toRemove []quad.Quad
	if err := w.QuadsForPattern(context.Background(), Pattern{Graph: g}, func(q quad.Quad) bool {
		toRemove = append(toRemove, q)
		return true
	}); err != nil {
		return err
	}
	for _, q := range toRemove {
		if _, err := w.Remove(q); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every quad in every graph, named and default.
func (w *Writer) ClearAll() error {
	var toRemove []quad.Quad
	if err := w.QuadsForPattern(context.Background(), Pattern{}, func(q quad.Quad) bool {
		toRemove = append(toRemove, q)
		return true
	}); err != nil {
		return err
	}
	for _, q := range toRemove {
		if _, err := w.Remove(q); err != nil {
			return err
		}
	}
	return nil
}
