// Package leveldb implements the store/kv.Backend interface on top of
// github.com/syndtr/goleveldb, a third persistent backend option
// alongside bolt and badger (spec §4.A names the abstraction as
// backend-agnostic; Cayley supports all three via graph/kv/leveldb).
//
// Like badger, goleveldb has no native buckets; column families are
// emulated with a "<name>/" key prefix, same as the badger backend.
package leveldb

import (
	"context"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/store/kv"
)

const Type = "leveldb"

func init() {
	kv.Register(Type, kv.Backend{Open: Open, IsPersistent: true})
}

func Open(path string, opts kv.Options) (kv.Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: mkdir %s", path)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: open %s", path)
	}
	wo := &opt.WriteOptions{Sync: !opts.BoolKey("nosync", false)}
	return &store{db: db, wo: wo}, nil
}

type store struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

func (s *store) Type() string { return Type }
func (s *store) Close() error { return s.db.Close() }

func (s *store) Tx(update bool) (kv.Tx, error) {
	if update {
		tx, err := s.db.OpenTransaction()
		if err != nil {
			return nil, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: open transaction")
		}
		return &txn{db: s.db, tx: tx, update: true, wo: s.wo}, nil
	}
	sn, err := s.db.GetSnapshot()
	if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: snapshot")
	}
	return &txn{db: s.db, sn: sn, update: false}, nil
}

type txn struct {
	db     *leveldb.DB
	tx     *leveldb.Transaction
	sn     *leveldb.Snapshot
	update bool
	wo     *opt.WriteOptions
}

func (t *txn) Commit() error {
	if t.tx != nil {
		if err := t.tx.Commit(); err != nil {
			return qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: commit")
		}
		return nil
	}
	t.sn.Release()
	return nil
}

func (t *txn) Rollback() error {
	if t.tx != nil {
		t.tx.Discard()
	} else {
		t.sn.Release()
	}
	return nil
}

func (t *txn) Bucket(name []byte) (kv.Bucket, error) {
	pref := append(append([]byte{}, name...), '/')
	return &bucket{t: t, pref: pref}, nil
}

type bucket struct {
	t    *txn
	pref []byte
}

func (b *bucket) key(k []byte) []byte { return append(append([]byte{}, b.pref...), k...) }

func (b *bucket) get(k []byte) ([]byte, error) {
	if b.t.tx != nil {
		return b.t.tx.Get(k, nil)
	}
	return b.t.sn.Get(k, nil)
}

func (b *bucket) Get(k []byte) ([]byte, error) {
	v, err := b.get(b.key(k))
	if err == leveldb.ErrNotFound {
		return nil, kv.ErrNotFound
	} else if err != nil {
		return nil, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: get")
	}
	return v, nil
}

func (b *bucket) Contains(k []byte) (bool, error) {
	_, err := b.get(b.key(k))
	if err == leveldb.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: get")
	}
	return true, nil
}

func (b *bucket) Put(k, v []byte) error {
	if b.t.tx == nil {
		return qerrors.New(qerrors.InvalidArgument, "leveldb: put on read-only transaction")
	}
	if err := b.t.tx.Put(b.key(k), v, b.t.wo); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: put")
	}
	return nil
}

func (b *bucket) Del(k []byte) error {
	if b.t.tx == nil {
		return qerrors.New(qerrors.InvalidArgument, "leveldb: del on read-only transaction")
	}
	if err := b.t.tx.Delete(b.key(k), b.t.wo); err != nil {
		return qerrors.Storage(qerrors.StorageIoOther, err, "leveldb: delete")
	}
	return nil
}

func (b *bucket) Scan(pref []byte) kv.Iterator {
	full := b.key(pref)
	rng := util.BytesPrefix(full)
	var it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
	}
	if b.t.tx != nil {
		it = b.t.tx.NewIterator(rng, nil)
	} else {
		it = b.t.sn.NewIterator(rng, nil)
	}
	return &iterator{it: it, trim: len(b.pref)}
}

type iterator struct {
	it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
	}
	trim int
	k, v []byte
}

func (it *iterator) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	if !it.it.Next() {
		return false
	}
	key := it.it.Key()
	it.k = append([]byte{}, key[it.trim:]...)
	it.v = append([]byte{}, it.it.Value()...)
	return true
}

func (it *iterator) Key() []byte  { return it.k }
func (it *iterator) Val() []byte  { return it.v }
func (it *iterator) Err() error   { return nil }
func (it *iterator) Close() error { it.it.Release(); return nil }
