package expr

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/quadgraph/qgdb/quad"
)

// kindClass orders term kinds for ORDER BY: blank < IRI < literal <
// triple (spec §4.G).
func kindClass(v quad.Value) int {
	switch v.(type) {
	case quad.BNode:
		return 0
	case quad.IRI:
		return 1
	case quad.XSDString, quad.LangString, quad.TypedLiteral:
		return 2
	case quad.Triple:
		return 3
	default:
		return 4
	}
}

// Compare implements the SPARQL ORDER BY / relational-operator ordering
// (spec §4.G): numerics compare numerically, datetimes chronologically,
// strings lexicographically; cross-kind comparisons fall back to a
// stable (not semantically meaningful) kind-class order.
func Compare(l, r quad.Value) (int, error) {
	if lf, lok := numeric(l); lok {
		if rf, rok := numeric(r); rok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if lt, lok := l.(quad.TypedLiteral); lok {
		if rt, rok := r.(quad.TypedLiteral); rok && lt.Type == rt.Type &&
			(lt.Type == xsd("dateTime") || lt.Type == xsd("date")) {
			lp, err1 := time.Parse(time.RFC3339Nano, lt.Value)
			rp, err2 := time.Parse(time.RFC3339Nano, rt.Value)
			if err1 == nil && err2 == nil {
				switch {
				case lp.Before(rp):
					return -1, nil
				case lp.After(rp):
					return 1, nil
				default:
					return 0, nil
				}
			}
		}
	}
	if lc, rc := kindClass(l), kindClass(r); lc != rc {
		if lc < rc {
			return -1, nil
		}
		return 1, nil
	}
	ls, rs := lexicalOrString(l), lexicalOrString(r)
	switch {
	case ls < rs:
		return -1, nil
	case ls > rs:
		return 1, nil
	default:
		return 0, nil
	}
}

func lexicalOrString(v quad.Value) string {
	switch v.(type) {
	case quad.XSDString, quad.LangString, quad.TypedLiteral:
		return lexical(v)
	default:
		return quad.StringOf(v)
	}
}

// Collation produces a byte sequence for a term: its kind class, then
// either its numeric value (as an order-preserving 8-byte float) or its
// lexical form, then a zero byte and its quad.StringOf form. The trailing
// StringOf form makes Collation injective: terms that share a value or a
// lexical form (1 and 1.0, "a"@en and "a"@fr) still get distinct bytes.
// The byte order follows Compare within numerics and within plain
// lexical forms; numerics sort before every other literal, and dateTime
// and date literals sort by lexical form, not chronologically. This plugs
// the comparator into third-party sort engines that operate on raw bytes
// rather than a comparator callback.
func Collation(v quad.Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(kindClass(v)))
	if f, ok := numeric(v); ok {
		buf.WriteByte(0) // numeric sub-band, sorts before text sub-band
		bits := math.Float64bits(f)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var b8 [8]byte
		binary.BigEndian.PutUint64(b8[:], bits)
		buf.Write(b8[:])
	} else {
		buf.WriteByte(1)
		buf.WriteString(lexicalOrString(v))
	}
	buf.WriteByte(0)
	buf.WriteString(quad.StringOf(v))
	return buf.Bytes()
}
