// Package badger implements the store/kv.Backend interface on top of
// github.com/dgraph-io/badger/v4, an LSM-tree KV engine well suited to
// the BulkLoader's write-heavy ingest path (spec §4.D).
//
// Badger has no native bucket concept, so column families are emulated
// by prefixing every key with "<name>/" before it reaches badger, the
// same flattening Cayley's kv.FromFlat helper performs over any flat KV.
package badger

import (
	"context"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/store/kv"
)

const Type = "badger"

func init() {
	kv.Register(Type, kv.Backend{Open: Open, IsPersistent: true})
}

// Open opens (creating if necessary) a badger database rooted at path.
func Open(path string, opts kv.Options) (kv.Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "badger: mkdir %s", path)
	}
	bopts := badger.DefaultOptions(path)
	bopts = bopts.WithLogger(nil)
	if opts.BoolKey("sync_writes", false) {
		bopts = bopts.WithSyncWrites(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "badger: open %s", path)
	}
	return &store{db: db}, nil
}

type store struct{ db *badger.DB }

func (s *store) Type() string { return Type }
func (s *store) Close() error { return s.db.Close() }

func (s *store) Tx(update bool) (kv.Tx, error) {
	return &txn{db: s.db, txn: s.db.NewTransaction(update), update: update}, nil
}

type txn struct {
	db     *badger.DB
	txn    *badger.Txn
	update bool
}

func (t *txn) Commit() error {
	if !t.update {
		t.txn.Discard()
		return nil
	}
	if err := t.txn.Commit(); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "badger: commit")
	}
	return nil
}

func (t *txn) Rollback() error {
	t.txn.Discard()
	return nil
}

func (t *txn) Bucket(name []byte) (kv.Bucket, error) {
	pref := make([]byte, 0, len(name)+1)
	pref = append(pref, name...)
	pref = append(pref, '/')
	return &bucket{txn: t.txn, pref: pref, writable: t.update}, nil
}

type bucket struct {
	txn      *badger.Txn
	pref     []byte
	writable bool
}

func (b *bucket) key(k []byte) []byte {
	key := make([]byte, 0, len(b.pref)+len(k))
	key = append(key, b.pref...)
	key = append(key, k...)
	return key
}

func (b *bucket) Get(k []byte) ([]byte, error) {
	item, err := b.txn.Get(b.key(k))
	if err == badger.ErrKeyNotFound {
		return nil, kv.ErrNotFound
	} else if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "badger: get")
	}
	return item.ValueCopy(nil)
}

func (b *bucket) Contains(k []byte) (bool, error) {
	_, err := b.txn.Get(b.key(k))
	if err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, qerrors.Storage(qerrors.StorageIoOther, err, "badger: get")
	}
	return true, nil
}

func (b *bucket) Put(k, v []byte) error {
	if !b.writable {
		return qerrors.New(qerrors.InvalidArgument, "badger: put on read-only transaction")
	}
	if err := b.txn.Set(b.key(k), v); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "badger: set")
	}
	return nil
}

func (b *bucket) Del(k []byte) error {
	if !b.writable {
		return qerrors.New(qerrors.InvalidArgument, "badger: del on read-only transaction")
	}
	if err := b.txn.Delete(b.key(k)); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "badger: delete")
	}
	return nil
}

func (b *bucket) Scan(pref []byte) kv.Iterator {
	full := b.key(pref)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	it := b.txn.NewIterator(opts)
	it.Seek(full)
	return &iterator{it: it, pref: full, trim: len(b.pref), started: false}
}

type iterator struct {
	it      *badger.Iterator
	pref    []byte
	trim    int
	started bool
	k, v    []byte
}

func (it *iterator) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	if it.started {
		it.it.Next()
	}
	it.started = true
	if !it.it.ValidForPrefix(it.pref) {
		it.it.Close()
		return false
	}
	item := it.it.Item()
	key := item.KeyCopy(nil)
	it.k = key[it.trim:]
	val, err := item.ValueCopy(nil)
	if err != nil {
		val = nil
	}
	it.v = val
	return true
}

func (it *iterator) Key() []byte  { return it.k }
func (it *iterator) Val() []byte  { return it.v }
func (it *iterator) Err() error   { return nil }
func (it *iterator) Close() error { it.it.Close(); return nil }
