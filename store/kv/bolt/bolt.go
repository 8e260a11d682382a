// Package bolt implements the store/kv.Backend interface on top of
// go.etcd.io/bbolt, the maintained fork of boltdb/bolt that Cayley's
// graph/kv/bolt package is built on.
package bolt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	bbolt "go.etcd.io/bbolt"

	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/store/kv"
)

const Type = "bolt"

func init() {
	kv.Register(Type, kv.Backend{Open: Open, IsPersistent: true})
}

func dbFile(path string) string { return filepath.Join(path, "qgdb.bolt") }

// Open opens (creating the directory and file if necessary) a bbolt
// database at path.
func Open(path string, opts kv.Options) (kv.Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "bolt: mkdir %s", path)
	}
	db, err := bbolt.Open(dbFile(path), 0600, nil)
	if err != nil {
		clog.Errorf("bolt: open failed: %v", err)
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "bolt: open %s", path)
	}
	db.NoSync = opts.BoolKey("nosync", false)
	return &store{db: db}, nil
}

type store struct{ db *bbolt.DB }

func (s *store) Type() string { return Type }
func (s *store) Close() error { return s.db.Close() }

func (s *store) Tx(update bool) (kv.Tx, error) {
	tx, err := s.db.Begin(update)
	if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "bolt: begin tx")
	}
	return &txn{tx: tx}, nil
}

type txn struct {
	tx *bbolt.Tx
	// bucketCache avoids recreating the *bolt.Bucket wrapper per access
	// within one transaction, mirroring Cayley's flatTx bucket caching.
	bucketCache map[string]*bucket
}

func (t *txn) Commit() error   { return t.tx.Commit() }
func (t *txn) Rollback() error { return t.tx.Rollback() }

func (t *txn) Bucket(name []byte) (kv.Bucket, error) {
	if t.bucketCache == nil {
		t.bucketCache = map[string]*bucket{}
	}
	if b, ok := t.bucketCache[string(name)]; ok {
		return b, nil
	}
	var b *bbolt.Bucket
	var err error
	if t.tx.Writable() {
		b, err = t.tx.CreateBucketIfNotExists(name)
		if err != nil {
			return nil, qerrors.Storage(qerrors.StorageIoOther, err, "bolt: create bucket %s", name)
		}
	} else {
		b = t.tx.Bucket(name)
		if b == nil {
			return nil, qerrors.Storage(qerrors.StorageNotFound, nil, "bolt: no such bucket %s", name)
		}
	}
	bk := &bucket{b: b}
	t.bucketCache[string(name)] = bk
	return bk, nil
}

type bucket struct{ b *bbolt.Bucket }

func (b *bucket) Get(k []byte) ([]byte, error) {
	v := b.b.Get(k)
	if v == nil {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *bucket) Contains(k []byte) (bool, error) { return b.b.Get(k) != nil, nil }

func (b *bucket) Put(k, v []byte) error {
	if err := b.b.Put(k, v); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "bolt: put")
	}
	return nil
}

func (b *bucket) Del(k []byte) error {
	if err := b.b.Delete(k); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "bolt: delete")
	}
	return nil
}

func (b *bucket) Scan(pref []byte) kv.Iterator {
	return &iterator{b: b.b, pref: pref}
}

type iterator struct {
	b    *bbolt.Bucket
	pref []byte
	c    *bbolt.Cursor
	k, v []byte
	done bool
}

func (it *iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	select {
	case <-ctx.Done():
		it.done = true
		return false
	default:
	}
	if it.c == nil {
		it.c = it.b.Cursor()
		if len(it.pref) == 0 {
			it.k, it.v = it.c.First()
		} else {
			it.k, it.v = it.c.Seek(it.pref)
		}
	} else {
		it.k, it.v = it.c.Next()
	}
	ok := it.k != nil && bytes.HasPrefix(it.k, it.pref)
	if !ok {
		it.done = true
		it.k, it.v = nil, nil
	}
	return ok
}

func (it *iterator) Key() []byte  { return it.k }
func (it *iterator) Val() []byte  { return it.v }
func (it *iterator) Err() error   { return nil }
func (it *iterator) Close() error { return nil }
