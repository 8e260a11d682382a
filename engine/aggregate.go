package engine

import (
	"bytes"
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

// groupBucket is one hash bucket's worth of distinct group keys. Two
// groups can share an xxhash bucket; keyBytes disambiguates them without
// falling back to a full linear scan of every group seen so far.
type groupBucket struct {
	keyBytes []byte
	keyVals  []quad.Value
	accs     []*expr.Accumulator
}

// evalGroup partitions Inner's solutions by Keys and accumulates each
// Aggregation per group (spec §4.H.8). The group key is hashed with
// xxhash (over each key term's expr.Collation encoding, which is an
// injection per term) rather than built as a Go map key directly, so
// wide or many-valued group keys stay a fixed-size lookup.
func evalGroup(ctx context.Context, ec *Context, g algebra.Group) (Iterator, error) {
	inner, err := Eval(ctx, ec, g.Inner)
	if err != nil {
		return nil, err
	}
	defer inner.Close()
	rows, err := drain(ctx, inner, 0)
	if err != nil {
		return nil, err
	}

	buckets := map[uint64][]*groupBucket{}
	var order []*groupBucket
	groupLimit := ec.Limits.groups()

	for _, row := range rows {
		keyVals := make([]quad.Value, len(g.Keys))
		for i, ke := range g.Keys {
			v, err := evalExpr(ctx, ec, ke, row)
			if err != nil {
				v = nil // an erroring group-key expression groups as unbound
			}
			keyVals[i] = v
		}
		keyBytes := collateKey(keyVals)
		h := xxhash.Sum64(keyBytes)
		var b *groupBucket
		for _, cand := range buckets[h] {
			if bytes.Equal(cand.keyBytes, keyBytes) {
				b = cand
				break
			}
		}
		if b == nil {
			if groupLimit > 0 && len(order) >= groupLimit {
				return nil, groupLimitErr(groupLimit)
			}
			b = &groupBucket{keyBytes: keyBytes, keyVals: keyVals}
			for _, agg := range g.Aggs {
				b.accs = append(b.accs, expr.NewAccumulator(agg.Func, agg.Distinct, agg.Separator))
			}
			buckets[h] = append(buckets[h], b)
			order = append(order, b)
		}
		for i, agg := range g.Aggs {
			var v quad.Value
			if agg.Expr != nil {
				v, _ = evalExpr(ctx, ec, agg.Expr, row)
			}
			b.accs[i].Add(v)
		}
	}

	if len(order) == 0 && len(g.Keys) == 0 {
		// No input rows and no GROUP BY: SPARQL still emits one group
		// over the empty sequence (e.g. COUNT(*) = 0).
		b := &groupBucket{}
		for _, agg := range g.Aggs {
			b.accs = append(b.accs, expr.NewAccumulator(agg.Func, agg.Distinct, agg.Separator))
		}
		order = append(order, b)
	}

	out := make([]Solution, 0, len(order))
	for _, b := range order {
		sol := Solution{}
		for i, ke := range g.Keys {
			if vr, ok := ke.(expr.VarRef); ok && b.keyVals[i] != nil {
				sol[algebra.Var(vr.Name)] = b.keyVals[i]
			}
		}
		for i, agg := range g.Aggs {
			if v := b.accs[i].Result(); v != nil {
				sol[agg.Var] = v
			}
		}
		out = append(out, sol)
	}
	return newSliceIterator(out), nil
}

// collateKey encodes a group-by key tuple into a byte sequence suitable
// for both hashing and exact comparison: each term's expr.Collation form,
// length-prefixed so concatenation stays unambiguous, with a single
// sentinel byte standing in for an unbound/nil key term.
func collateKey(vals []quad.Value) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		if v == nil {
			buf.WriteByte(0xff)
			continue
		}
		c := expr.Collation(v)
		var lenBuf [4]byte
		n := len(c)
		lenBuf[0] = byte(n >> 24)
		lenBuf[1] = byte(n >> 16)
		lenBuf[2] = byte(n >> 8)
		lenBuf[3] = byte(n)
		buf.Write(lenBuf[:])
		buf.Write(c)
	}
	return buf.Bytes()
}
