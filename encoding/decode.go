package encoding

import (
	"encoding/binary"
	"math"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
)

// Decoder mirrors Encoder: it holds the Dictionary needed to resolve hash
// variants back to their original bytes.
type Decoder struct {
	Dict Dictionary
}

// DecodeTerm converts an EncodedTerm back into a quad.Value. Inline
// variants decode without I/O; hash variants look up the dictionary and
// fail with a StorageError(Corruption) if the hash is unknown (spec
// §4.B). decode(encode(t)) == t for every t (spec §3.2, §8.1).
func (d *Decoder) DecodeTerm(e EncodedTerm) (quad.Value, error) {
	switch Kind(e[0]) {
	case KindDefaultGraph:
		return quad.DefaultGraph, nil
	case KindNamedNodeInline:
		return quad.IRI(inlineString(e)), nil
	case KindNamedNodeHash:
		s, err := d.lookupString(e)
		if err != nil {
			return nil, err
		}
		return quad.IRI(s), nil
	case KindBlankNodeNumeric:
		n := binary.LittleEndian.Uint64(e[1:9])
		return quad.BNode(uitoa(n)), nil
	case KindBlankNodeHash:
		s, err := d.lookupString(e)
		if err != nil {
			return nil, err
		}
		return quad.BNode(s), nil
	case KindStringInline:
		return quad.XSDString(inlineString(e)), nil
	case KindStringHash:
		s, err := d.lookupString(e)
		if err != nil {
			return nil, err
		}
		return quad.XSDString(s), nil
	case KindLangStringInline:
		return splitLangString(inlineString(e)), nil
	case KindLangStringHash:
		s, err := d.lookupString(e)
		if err != nil {
			return nil, err
		}
		return splitLangString(s), nil
	case KindBoolean:
		v := "false"
		if e[1] == 1 {
			v = "true"
		}
		return quad.TypedLiteral{Value: v, Type: xsd("boolean")}, nil
	case KindInteger:
		n := int64(binary.BigEndian.Uint64(e[1:9]) ^ (1 << 63))
		return quad.TypedLiteral{Value: itoa(n), Type: xsd("integer")}, nil
	case KindDecimal:
		f := unsortableFloatBits(binary.BigEndian.Uint64(e[1:9]))
		return quad.TypedLiteral{Value: ftoa(f), Type: xsd("decimal")}, nil
	case KindFloat:
		f := unsortableFloatBits(binary.BigEndian.Uint64(e[1:9]))
		return quad.TypedLiteral{Value: ftoa(f), Type: xsd("float")}, nil
	case KindDouble:
		f := unsortableFloatBits(binary.BigEndian.Uint64(e[1:9]))
		return quad.TypedLiteral{Value: ftoa(f), Type: xsd("double")}, nil
	case KindDateTime:
		nanos := int64(binary.BigEndian.Uint64(e[1:9]) ^ (1 << 63))
		return quad.TypedLiteral{Value: unixNanoToRFC3339(nanos), Type: xsd("dateTime")}, nil
	case KindDate:
		days := int64(binary.BigEndian.Uint64(e[1:9]) ^ (1 << 63))
		return quad.TypedLiteral{Value: daysToDate(days), Type: xsd("date")}, nil
	case KindTypedLiteralHash:
		s, err := d.lookupString(e)
		if err != nil {
			return nil, err
		}
		return splitTypedLiteral(s), nil
	case KindTripleHash:
		return d.decodeTriple(e)
	default:
		return nil, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: unknown tag %d", e[0])
	}
}

func (d *Decoder) decodeTriple(e EncodedTerm) (quad.Value, error) {
	blob, ok, err := d.lookup(e)
	if err != nil {
		return nil, err
	}
	if !ok || len(blob) != 3*Size {
		return nil, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: corrupt quoted triple payload")
	}
	var sub, pred, obj EncodedTerm
	copy(sub[:], blob[0:Size])
	copy(pred[:], blob[Size:2*Size])
	copy(obj[:], blob[2*Size:3*Size])

	sv, err := d.DecodeTerm(sub)
	if err != nil {
		return nil, err
	}
	pv, err := d.DecodeTerm(pred)
	if err != nil {
		return nil, err
	}
	ov, err := d.DecodeTerm(obj)
	if err != nil {
		return nil, err
	}
	p, ok := pv.(quad.IRI)
	if !ok {
		return nil, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: quoted triple predicate not an IRI")
	}
	return quad.Triple{Subject: sv, Predicate: p, Object: ov}, nil
}

func (d *Decoder) lookup(e EncodedTerm) ([]byte, bool, error) {
	if d.Dict == nil {
		return nil, false, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: no dictionary configured")
	}
	var h Hash128
	copy(h[:], e[1:17])
	data, ok, err := d.Dict.Lookup(h)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: dictionary entry missing for hash")
	}
	return data, true, nil
}

func (d *Decoder) lookupString(e EncodedTerm) (string, error) {
	data, _, err := d.lookup(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func inlineString(e EncodedTerm) string {
	n := int(e[1])
	if n > InlineCap {
		n = InlineCap
	}
	return string(e[2 : 2+n])
}

func unsortableFloatBits(sortable uint64) float64 {
	var bits uint64
	if sortable&(1<<63) != 0 {
		bits = sortable &^ (1 << 63)
	} else {
		bits = ^sortable
	}
	return math.Float64frombits(bits)
}

// EncodeQuad composes EncodeTerm over all four directions of a quad.
func (e *Encoder) EncodeQuad(q quad.Quad) (EncodedQuad, error) {
	var out EncodedQuad
	var err error
	if out.S, err = e.EncodeTerm(q.Subject); err != nil {
		return out, err
	}
	if out.P, err = e.EncodeTerm(q.Predicate); err != nil {
		return out, err
	}
	if out.O, err = e.EncodeTerm(q.Object); err != nil {
		return out, err
	}
	if out.G, err = e.EncodeTerm(q.GraphOrDefault()); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeQuad composes DecodeTerm over all four directions of an
// EncodedQuad.
func (d *Decoder) DecodeQuad(e EncodedQuad) (quad.Quad, error) {
	var q quad.Quad
	s, err := d.DecodeTerm(e.S)
	if err != nil {
		return q, err
	}
	p, err := d.DecodeTerm(e.P)
	if err != nil {
		return q, err
	}
	o, err := d.DecodeTerm(e.O)
	if err != nil {
		return q, err
	}
	g, err := d.DecodeTerm(e.G)
	if err != nil {
		return q, err
	}
	pi, ok := p.(quad.IRI)
	if !ok {
		return q, qerrors.Storage(qerrors.StorageCorruption, nil, "encoding: predicate not an IRI")
	}
	q.Subject, q.Predicate, q.Object, q.Graph = s, pi, o, g
	return q, nil
}

// EncodedQuad is the composition of four EncodedTerm values, in
// Subject/Predicate/Object/Graph order, as stored in every index
// permutation's key (spec §3.4).
type EncodedQuad struct {
	S, P, O, G EncodedTerm
}
