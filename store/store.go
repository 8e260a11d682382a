package store

import (
	"github.com/quadgraph/qgdb/store/kv"
)

// Store is the top-level handle over a kv.Store (spec §4.D "Store").
type Store struct {
	kv kv.Store
}

// Open wraps an already-opened kv.Store as a Store.
func Open(s kv.Store) *Store {
	return &Store{kv: s}
}

// Snapshot returns a Reader over a fresh read-only transaction. The
// caller is responsible for calling Close when done with it.
func (s *Store) Snapshot() (*Reader, error) {
	tx, err := s.kv.Tx(false)
	if err != nil {
		return nil, err
	}
	return newReader(tx), nil
}

// Close releases the Reader's underlying snapshot transaction.
func (r *Reader) Close() error { return r.tx.Rollback() }

// Transaction runs fn under one read-write transaction (spec §4.D): a
// failed fn aborts the whole transaction; success commits it. Retries are
// never automatic. Only one write transaction may be in flight at a time
// (spec §5); the kv.Store.Tx(true) call itself enforces that exclusivity
// for backends that support concurrent access.
func Transaction[T any](s *Store, fn func(w *Writer) (T, error)) (T, error) {
	var zero T
	tx, err := s.kv.Tx(true)
	if err != nil {
		return zero, err
	}
	w := newWriter(newReader(tx))
	out, err := fn(w)
	if err != nil {
		_ = tx.Rollback()
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return out, nil
}

// Update is the common case of Transaction where fn returns no value.
func (s *Store) Update(fn func(w *Writer) error) error {
	_, err := Transaction(s, func(w *Writer) (struct{}, error) {
		return struct{}{}, fn(w)
	})
	return err
}

// Flush is a hint to the backend to persist buffered writes; it has no
// semantic effect on visible state (spec §4.D).
func (s *Store) Flush() error {
	type flusher interface{ Flush() error }
	if f, ok := s.kv.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// BulkLoader returns a new bulk ingest session over this store (spec
// §4.D, §4.D "BulkLoader").
func (s *Store) BulkLoader(batchSize int) *BulkLoader {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &BulkLoader{store: s, batchSize: batchSize}
}

// Close releases the underlying kv.Store.
func (s *Store) Close() error { return s.kv.Close() }
