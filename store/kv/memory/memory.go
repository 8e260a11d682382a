// Package memory implements the store/kv.Backend interface as a
// single-process in-memory ordered map, modeled on Cayley's
// graph/kv/btree in-memory backend. It is a first-class backend (not
// just a test double): the original oxigraph-shaped system this module
// generalizes keeps an in-memory fallback storage tier for ephemeral or
// ad-hoc datasets (see SPEC_FULL.md "Supplemented features" #4), and this
// package is that tier.
//
// Snapshot isolation (spec §5) is achieved by deep-copying the relevant
// buckets into every read-only transaction at Tx(false) time; later
// writes to the live store never affect data already handed to a reader.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/store/kv"
)

const Type = "memory"

func init() {
	kv.Register(Type, kv.Backend{Open: Open, IsPersistent: false})
}

// Open ignores path; a memory store is always empty and local to the
// process.
func Open(path string, opts kv.Options) (kv.Store, error) {
	return New(), nil
}

// New creates an empty in-memory Store.
func New() kv.Store {
	return &store{buckets: map[string]*ordered{}}
}

type store struct {
	// mu serializes writers and is held from Tx(true) until Commit or
	// Rollback. Tx(false) also takes it while copying the buckets, so
	// opening a reader waits while a write transaction is open.
	mu      sync.Mutex
	buckets map[string]*ordered
}

func (s *store) Type() string { return Type }
func (s *store) Close() error { return nil }

func (s *store) Tx(update bool) (kv.Tx, error) {
	if update {
		s.mu.Lock()
		return &txn{s: s, update: true, work: map[string]*ordered{}}, nil
	}
	// Deep-copy every bucket so later commits cannot mutate this
	// reader's view (snapshot isolation invariant, spec §8.1).
	snap := make(map[string]*ordered, len(s.buckets))
	s.mu.Lock()
	for name, b := range s.buckets {
		snap[name] = b.clone()
	}
	s.mu.Unlock()
	return &txn{s: s, update: false, work: snap}, nil
}

// ordered is a sorted-slice-backed map supporting prefix scans in O(log n
// + k). It is never mutated in place once handed to a reader; a writer
// clones a bucket the first time its transaction touches it.
type ordered struct {
	keys [][]byte
	vals [][]byte
}

func newOrdered() *ordered { return &ordered{} }

func (o *ordered) clone() *ordered {
	c := &ordered{keys: make([][]byte, len(o.keys)), vals: make([][]byte, len(o.vals))}
	copy(c.keys, o.keys)
	copy(c.vals, o.vals)
	return c
}

func (o *ordered) search(k []byte) (int, bool) {
	i := sort.Search(len(o.keys), func(i int) bool { return bytes.Compare(o.keys[i], k) >= 0 })
	return i, i < len(o.keys) && bytes.Equal(o.keys[i], k)
}

func (o *ordered) get(k []byte) ([]byte, bool) {
	i, ok := o.search(k)
	if !ok {
		return nil, false
	}
	return o.vals[i], true
}

func (o *ordered) put(k, v []byte) {
	i, ok := o.search(k)
	kk := append([]byte{}, k...)
	vv := append([]byte{}, v...)
	if ok {
		o.vals[i] = vv
		return
	}
	o.keys = append(o.keys, nil)
	o.vals = append(o.vals, nil)
	copy(o.keys[i+1:], o.keys[i:])
	copy(o.vals[i+1:], o.vals[i:])
	o.keys[i] = kk
	o.vals[i] = vv
}

func (o *ordered) del(k []byte) {
	i, ok := o.search(k)
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
}

func (o *ordered) scanFrom(pref []byte) (idx int) {
	return sort.Search(len(o.keys), func(i int) bool { return bytes.Compare(o.keys[i], pref) >= 0 })
}

type txn struct {
	s      *store
	update bool
	// work holds this transaction's private view: for a reader, a frozen
	// deep copy made at Tx() time; for a writer, a clone-on-first-touch
	// overlay merged back into s.buckets on Commit.
	work map[string]*ordered
	dirty map[string]bool
}

func (t *txn) Commit() error {
	if !t.update {
		return nil
	}
	defer t.s.mu.Unlock()
	for name, b := range t.work {
		if t.dirty[name] {
			t.s.buckets[name] = b
		}
	}
	return nil
}

func (t *txn) Rollback() error {
	if t.update {
		t.s.mu.Unlock()
	}
	return nil
}

func (t *txn) Bucket(name []byte) (kv.Bucket, error) {
	key := string(name)
	o, ok := t.work[key]
	if !ok {
		if t.update {
			if live, ok := t.s.buckets[key]; ok {
				o = live.clone()
			} else {
				o = newOrdered()
			}
		} else {
			o = newOrdered()
		}
		t.work[key] = o
	}
	return &bucket{t: t, name: key, o: o}, nil
}

type bucket struct {
	t    *txn
	name string
	o    *ordered
}

func (b *bucket) Get(k []byte) ([]byte, error) {
	v, ok := b.o.get(k)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return v, nil
}

func (b *bucket) Contains(k []byte) (bool, error) {
	_, ok := b.o.get(k)
	return ok, nil
}

func (b *bucket) Put(k, v []byte) error {
	if !b.t.update {
		return qerrors.New(qerrors.InvalidArgument, "memory: put on read-only transaction")
	}
	b.o.put(k, v)
	if b.t.dirty == nil {
		b.t.dirty = map[string]bool{}
	}
	b.t.dirty[b.name] = true
	return nil
}

func (b *bucket) Del(k []byte) error {
	if !b.t.update {
		return qerrors.New(qerrors.InvalidArgument, "memory: del on read-only transaction")
	}
	b.o.del(k)
	if b.t.dirty == nil {
		b.t.dirty = map[string]bool{}
	}
	b.t.dirty[b.name] = true
	return nil
}

func (b *bucket) Scan(pref []byte) kv.Iterator {
	start := b.o.scanFrom(pref)
	return &iterator{o: b.o, pref: pref, i: start - 1}
}

type iterator struct {
	o    *ordered
	pref []byte
	i    int
}

func (it *iterator) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	it.i++
	return it.i < len(it.o.keys) && bytes.HasPrefix(it.o.keys[it.i], it.pref)
}

func (it *iterator) Key() []byte  { return it.o.keys[it.i] }
func (it *iterator) Val() []byte  { return it.o.vals[it.i] }
func (it *iterator) Err() error   { return nil }
func (it *iterator) Close() error { return nil }
