package store

import (
	"context"
	"encoding/binary"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/store/index"
	"github.com/quadgraph/qgdb/store/kv"
)

// Optimize is a hint to the backend with one concrete effect in this
// implementation: it sweeps zero-refcount entries out of the string
// dictionary (spec §3.3, §9 — GC is deferred here, never performed
// eagerly on Release). It has no effect on query results.
func (s *Store) Optimize() error {
	return s.Update(func(w *Writer) error {
		b, err := w.tx.Bucket(index.CFID2Str)
		if err != nil {
			return err
		}
		var dead [][]byte
		if err := kv.Each(context.Background(), b, nil, func(k, v []byte) bool {
			if len(v) >= 8 && binary.BigEndian.Uint64(v[:8]) == 0 {
				key := append([]byte(nil), k...)
				dead = append(dead, key)
			}
			return true
		}); err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Del(k); err != nil {
				return err
			}
		}
		clog.Infof("store: optimize swept %d dead dictionary entries", len(dead))
		return nil
	})
}
