package index

import (
	"context"

	"github.com/quadgraph/qgdb/encoding"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/store/kv"
)

// Permutation names one of the six sort-key orderings of a quad (spec
// §3.4): SPOG/POSG/OSPG serve patterns in the default graph or "any
// graph" scans; GSPO/GPOS/GOSP serve "within one named graph" scans.
type Permutation int

const (
	PermSPOG Permutation = iota
	PermPOSG
	PermOSPG
	PermGSPO
	PermGPOS
	PermGOSP
)

var permCF = [...][]byte{CFSPOG, CFPOSG, CFOSPG, CFGSPO, CFGPOS, CFGOSP}

// order is the per-permutation direction sequence the key concatenates
// EncodedTerm bytes in.
var order = [...][4]quad.Direction{
	PermSPOG: {quad.Subject, quad.Predicate, quad.Object, quad.Graph},
	PermPOSG: {quad.Predicate, quad.Object, quad.Subject, quad.Graph},
	PermOSPG: {quad.Object, quad.Subject, quad.Predicate, quad.Graph},
	PermGSPO: {quad.Graph, quad.Subject, quad.Predicate, quad.Object},
	PermGPOS: {quad.Graph, quad.Predicate, quad.Object, quad.Subject},
	PermGOSP: {quad.Graph, quad.Object, quad.Subject, quad.Predicate},
}

func (p Permutation) CF() []byte { return permCF[p] }

func term(eq encoding.EncodedQuad, d quad.Direction) encoding.EncodedTerm {
	switch d {
	case quad.Subject:
		return eq.S
	case quad.Predicate:
		return eq.P
	case quad.Object:
		return eq.O
	default:
		return eq.G
	}
}

// Key builds the full, unambiguous key for eq under permutation p: four
// fixed-width EncodedTerm values concatenated in the permutation's order.
func Key(p Permutation, eq encoding.EncodedQuad) []byte {
	dirs := order[p]
	key := make([]byte, 0, 4*encoding.Size)
	for _, d := range dirs {
		t := term(eq, d)
		key = append(key, t[:]...)
	}
	return key
}

// ForPattern chooses, per spec §4.H.1/§4.C, the permutation whose key
// prefix matches the longest run of bound components, given which of
// S/P/O/G are bound (true) vs. variable (false) in a query pattern.
func ForPattern(sBound, pBound, oBound, gBound bool) (p Permutation, prefixLen int) {
	// Graph-first permutations serve best when the graph is bound and at
	// least one other component is bound; otherwise the SPOG family
	// (which can scan "any graph") takes over based on which of S/P/O is
	// bound first, mirroring Cayley's QuadIndexer "longest bound prefix"
	// choice.
	switch {
	case gBound && sBound:
		return PermGSPO, prefixBoundLen(order[PermGSPO], sBound, pBound, oBound, gBound)
	case gBound && pBound:
		return PermGPOS, prefixBoundLen(order[PermGPOS], sBound, pBound, oBound, gBound)
	case gBound && oBound:
		return PermGOSP, prefixBoundLen(order[PermGOSP], sBound, pBound, oBound, gBound)
	case sBound:
		return PermSPOG, prefixBoundLen(order[PermSPOG], sBound, pBound, oBound, gBound)
	case pBound:
		return PermPOSG, prefixBoundLen(order[PermPOSG], sBound, pBound, oBound, gBound)
	case oBound:
		return PermOSPG, prefixBoundLen(order[PermOSPG], sBound, pBound, oBound, gBound)
	case gBound:
		return PermGSPO, prefixBoundLen(order[PermGSPO], sBound, pBound, oBound, gBound)
	default:
		return PermSPOG, 0
	}
}

func prefixBoundLen(dirs [4]quad.Direction, sBound, pBound, oBound, gBound bool) int {
	bound := func(d quad.Direction) bool {
		switch d {
		case quad.Subject:
			return sBound
		case quad.Predicate:
			return pBound
		case quad.Object:
			return oBound
		default:
			return gBound
		}
	}
	n := 0
	for _, d := range dirs {
		if !bound(d) {
			break
		}
		n++
	}
	return n
}

// Prefix truncates a full Key to the first n EncodedTerm slots, for use
// as a prefix-scan bound.
func Prefix(p Permutation, eq encoding.EncodedQuad, n int) []byte {
	full := Key(p, eq)
	return full[:n*encoding.Size]
}

// Insert writes eq into all six permutations and, if its graph is a
// named graph not yet known, into the graphs column family (spec §4.C).
func Insert(tx kv.Tx, eq encoding.EncodedQuad) (inserted bool, err error) {
	spog, err := tx.Bucket(CFSPOG)
	if err != nil {
		return false, err
	}
	k := Key(PermSPOG, eq)
	if ok, err := spog.Contains(k); err != nil {
		return false, err
	} else if ok {
		return false, nil // idempotent: spec §8.1 insertion idempotence
	}
	for _, p := range []Permutation{PermSPOG, PermPOSG, PermOSPG, PermGSPO, PermGPOS, PermGOSP} {
		b, err := tx.Bucket(p.CF())
		if err != nil {
			return false, err
		}
		if err := b.Put(Key(p, eq), nil); err != nil {
			return false, err
		}
	}
	if eq.G.Kind() != 0 { // not DefaultGraph
		g, err := tx.Bucket(CFGraphs)
		if err != nil {
			return false, err
		}
		if err := g.Put(eq.G[:], nil); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Remove deletes eq from all six permutations symmetrically (spec §4.C).
// It does NOT remove a now-empty named graph from CFGraphs: an empty
// named graph must still be enumerable (spec §3.4 invariant).
func Remove(tx kv.Tx, eq encoding.EncodedQuad) (removed bool, err error) {
	spog, err := tx.Bucket(CFSPOG)
	if err != nil {
		return false, err
	}
	k := Key(PermSPOG, eq)
	if ok, err := spog.Contains(k); err != nil {
		return false, err
	} else if !ok {
		return false, nil
	}
	for _, p := range []Permutation{PermSPOG, PermPOSG, PermOSPG, PermGSPO, PermGPOS, PermGOSP} {
		b, err := tx.Bucket(p.CF())
		if err != nil {
			return false, err
		}
		if err := b.Del(Key(p, eq)); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Contains reports whether eq is present (checked via SPOG, which every
// insert/remove keeps in lockstep with the other five permutations).
func Contains(tx kv.Tx, eq encoding.EncodedQuad) (bool, error) {
	b, err := tx.Bucket(CFSPOG)
	if err != nil {
		return false, err
	}
	return b.Contains(Key(PermSPOG, eq))
}

// Scan walks every quad whose bound components match pattern, via the
// permutation chosen by ForPattern, decoding each full key back into an
// EncodedQuad and calling fn. Scanning stops early if fn returns false.
func Scan(ctx context.Context, tx kv.Tx, pattern encoding.EncodedQuad, sBound, pBound, oBound, gBound bool, fn func(encoding.EncodedQuad) bool) error {
	p, n := ForPattern(sBound, pBound, oBound, gBound)
	b, err := tx.Bucket(p.CF())
	if err != nil {
		return err
	}
	pref := Prefix(p, pattern, n)
	return kv.Each(ctx, b, pref, func(k, _ []byte) bool {
		eq := decodeKey(p, k)
		return fn(eq)
	})
}

func decodeKey(p Permutation, k []byte) encoding.EncodedQuad {
	dirs := order[p]
	var eq encoding.EncodedQuad
	for i, d := range dirs {
		var t encoding.EncodedTerm
		copy(t[:], k[i*encoding.Size:(i+1)*encoding.Size])
		switch d {
		case quad.Subject:
			eq.S = t
		case quad.Predicate:
			eq.P = t
		case quad.Object:
			eq.O = t
		case quad.Graph:
			eq.G = t
		}
	}
	return eq
}

// NamedGraphs enumerates the graphs column family.
func NamedGraphs(ctx context.Context, tx kv.Tx, fn func(encoding.EncodedTerm) bool) error {
	b, err := tx.Bucket(CFGraphs)
	if err != nil {
		return err
	}
	return kv.Each(ctx, b, nil, func(k, _ []byte) bool {
		var t encoding.EncodedTerm
		copy(t[:], k)
		return fn(t)
	})
}

// ContainsNamedGraph reports whether g is a known named graph.
func ContainsNamedGraph(tx kv.Tx, g encoding.EncodedTerm) (bool, error) {
	b, err := tx.Bucket(CFGraphs)
	if err != nil {
		return false, err
	}
	return b.Contains(g[:])
}
