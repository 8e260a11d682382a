// Package index implements the quad permutation indexing layer (spec
// §3.4, §4.C): six sort-key permutations of quads, a `graphs` column
// family, and the `id2str` string dictionary backing encoding.Dictionary.
package index

import (
	"encoding/binary"

	"github.com/quadgraph/qgdb/encoding"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/store/kv"
)

// CF names, matching the persisted layout in SPEC_FULL.md / spec §6.2.
var (
	CFID2Str = []byte("id2str")
	CFSPOG   = []byte("spog")
	CFPOSG   = []byte("posg")
	CFOSPG   = []byte("ospg")
	CFGSPO   = []byte("gspo")
	CFGPOS   = []byte("gpos")
	CFGOSP   = []byte("gosp")
	CFGraphs = []byte("graphs")
	CFMeta   = []byte("default")
)

// Dict adapts a kv.Bucket (the id2str column family within one
// transaction) to encoding.Dictionary. Entries are stored as an 8-byte
// big-endian refcount prefix followed by the raw value bytes, so
// Insert/Release can adjust the count in place without a second bucket.
type Dict struct {
	B kv.Bucket
}

var _ encoding.Dictionary = (*Dict)(nil)

func (d *Dict) Insert(hash encoding.Hash128, data []byte) error {
	key := hash[:]
	existing, err := d.B.Get(key)
	if err != nil && err != kv.ErrNotFound {
		return err
	}
	var count uint64
	if err == nil && len(existing) >= 8 {
		count = binary.BigEndian.Uint64(existing[:8])
	}
	count++
	rec := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(rec[:8], count)
	copy(rec[8:], data)
	return d.B.Put(key, rec)
}

func (d *Dict) Lookup(hash encoding.Hash128) ([]byte, bool, error) {
	rec, err := d.B.Get(hash[:])
	if err == kv.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	if len(rec) < 8 {
		return nil, false, qerrors.Storage(qerrors.StorageCorruption, nil, "index: malformed dictionary record")
	}
	out := make([]byte, len(rec)-8)
	copy(out, rec[8:])
	return out, true, nil
}

// Release decrements hash's refcount. Per spec §3.3/§9, GC of a
// zero-count entry is NOT performed here; it is deferred to Store.Optimize
// (see store/optimize.go), which sweeps zero-count entries.
func (d *Dict) Release(hash encoding.Hash128) error {
	key := hash[:]
	existing, err := d.B.Get(key)
	if err == kv.ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}
	if len(existing) < 8 {
		return qerrors.Storage(qerrors.StorageCorruption, nil, "index: malformed dictionary record")
	}
	count := binary.BigEndian.Uint64(existing[:8])
	if count > 0 {
		count--
	}
	rec := make([]byte, len(existing))
	binary.BigEndian.PutUint64(rec[:8], count)
	copy(rec[8:], existing[8:])
	return d.B.Put(key, rec)
}
