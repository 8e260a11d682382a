// Package kv defines the ordered byte-to-byte key/value abstraction that
// every storage backend (bolt, badger, leveldb, in-memory) implements
// (spec §4.A): named column families, snapshot reads, batched atomic
// writes, and prefix scans.
package kv

import (
	"bytes"
	"context"

	"github.com/quadgraph/qgdb/internal/qerrors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = qerrors.Storage(qerrors.StorageNotFound, nil, "kv: key not found")

// Iterator walks keys within a column family in key order, optionally
// restricted to a key prefix.
type Iterator interface {
	// Next advances to the next key, returning false at end of the scan
	// or when ctx is cancelled. The backends in this module return nil
	// from Err in both cases.
	Next(ctx context.Context) bool
	Err() error
	Close() error
	Key() []byte
	Val() []byte
}

// Bucket is one column family as seen from inside a transaction or
// snapshot.
type Bucket interface {
	Get(k []byte) ([]byte, error)
	Contains(k []byte) (bool, error)
	Put(k, v []byte) error
	Del(k []byte) error
	// Scan returns an Iterator over all keys with the given prefix, in
	// ascending key order.
	Scan(pref []byte) Iterator
}

// Tx is a transaction handle; Reader and Writer embed it via Bucket
// access below.
type Tx interface {
	Commit() error
	Rollback() error
	// Bucket returns (creating if necessary and the tx is writable) the
	// named column family.
	Bucket(name []byte) (Bucket, error)
}

// Store is the backend-specific handle returned by a Backend's Open.
type Store interface {
	Type() string
	Close() error
	// Tx starts a new transaction; update selects a read-write
	// transaction (at most one may be in flight at a time, per spec §5)
	// versus a read-only snapshot transaction (any number may be open at
	// once; the memory backend's Tx(false) waits while a write
	// transaction is open).
	Tx(update bool) (Tx, error)
}

// Backend registers a named Store implementation (bolt, badger, leveldb,
// memory); see Register/Open below.
type Backend struct {
	// Open opens or creates a Store rooted at path, using the given
	// backend-specific options.
	Open func(path string, opts Options) (Store, error)
	// IsPersistent is false for the in-memory backend.
	IsPersistent bool
}

// Options is a generic bag of backend-specific open options, mirroring
// Cayley's graph.Options.
type Options map[string]interface{}

func (o Options) BoolKey(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (o Options) IntKey(key string, def int) int {
	if v, ok := o[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

var registry = map[string]Backend{}

// Register adds a named backend to the global registry. Backend packages
// call this from an init() func, the same pattern Cayley's graph/kv/bolt,
// graph/kv/badger, and graph/kv/leveldb use.
func Register(name string, b Backend) {
	if _, ok := registry[name]; ok {
		panic("kv: backend already registered: " + name)
	}
	registry[name] = b
}

// Open opens a Store by registered backend name.
func Open(name, path string, opts Options) (Store, error) {
	b, ok := registry[name]
	if !ok {
		return nil, qerrors.New(qerrors.InvalidArgument, "kv: unknown backend %q", name)
	}
	return b.Open(path, opts)
}

// IsPersistent reports whether the named backend survives process
// restarts.
func IsPersistent(name string) bool {
	b, ok := registry[name]
	return ok && b.IsPersistent
}

// Backends lists every registered backend name.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	return names
}

// Update runs fn under a fresh read-write transaction, committing iff fn
// returns nil and rolling back otherwise.
func Update(s Store, fn func(tx Tx) error) error {
	tx, err := s.Tx(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// View runs fn under a fresh read-only (snapshot) transaction.
func View(s Store, fn func(tx Tx) error) error {
	tx, err := s.Tx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// Each calls fn for every key/value pair under prefix pref in bucket b,
// stopping early (without error) if fn returns false.
func Each(ctx context.Context, b Bucket, pref []byte, fn func(k, v []byte) bool) error {
	it := b.Scan(pref)
	defer it.Close()
	for it.Next(ctx) {
		if !fn(it.Key(), it.Val()) {
			break
		}
	}
	return it.Err()
}

// HasPrefix reports whether key starts with pref. Every backend's
// iterator already stops at the prefix boundary (leveldb through a
// util.BytesPrefix range), and none of them calls this helper.
func HasPrefix(key, pref []byte) bool { return bytes.HasPrefix(key, pref) }
