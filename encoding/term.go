// Package encoding implements the term dictionary and binary encoder
// (spec §3.2, §3.3, §4.B): a content-addressed mapping from RDF terms to
// a fixed-width tagged EncodedTerm, with inline payloads for small/common
// values and a 128-bit xxh3 hash reference into a string dictionary for
// everything else.
//
// The EncodedTerm shape and inline-vs-hash split follow
// internal/encoding/encoder.go from the aleksaelezovic-trigo reference
// repo (17-byte tagged array, xxh3 128-bit hashing, 16-byte inline cap).
// Two bugs present there are deliberately fixed here per spec §4.B/§9:
// the blank-node numeric payload is serialized little-endian (not
// native/big-endian) for cross-platform stability, and numeric/datetime
// payloads use an order-preserving ("sortable") byte transform rather
// than raw big-endian two's-complement/IEEE-754 bits, so EncodedTerm
// byte order matches term order within a kind (spec §4.B).
package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
)

// Size is the fixed width of an EncodedTerm: one tag byte plus a 16-byte
// payload (spec §3.2 target).
const Size = 17

// InlineCap is the small-string threshold below which IRIs and simple
// literals are stored inline rather than by hash (spec §4.B guideline).
const InlineCap = 16

// Kind tags the variant an EncodedTerm holds.
type Kind byte

const (
	KindDefaultGraph Kind = iota
	KindNamedNodeInline
	KindNamedNodeHash
	KindBlankNodeNumeric
	KindBlankNodeHash
	KindStringInline
	KindStringHash
	KindLangStringInline
	KindLangStringHash
	KindBoolean
	KindInteger
	KindDecimal
	KindFloat
	KindDouble
	KindDateTime
	KindDate
	KindTypedLiteralHash
	KindTripleHash
)

// EncodedTerm is the tagged fixed-width internal representation of a
// single RDF term (spec §3.2). It is a value type: comparable, copyable,
// usable as a map key, and safe to embed directly in index keys.
type EncodedTerm [Size]byte

func (e EncodedTerm) Kind() Kind { return Kind(e[0]) }

// Hash128 is a 128-bit dictionary hash reference.
type Hash128 [16]byte

func hash128(s string) Hash128 {
	h := xxh3.Hash128([]byte(s))
	var out Hash128
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// Dictionary is the string-dictionary column family contract (spec §3.3):
// hash -> UTF-8 bytes, with insert-on-first-sight and reference-counted
// entries. Implementations live in store/index.
type Dictionary interface {
	// Insert adds (hash, data) if absent and bumps its refcount;
	// idempotent bumps happen once per distinct quad slot that
	// references it (the caller controls that).
	Insert(hash Hash128, data []byte) error
	// Lookup returns the bytes for hash, or ok=false if unknown.
	Lookup(hash Hash128) (data []byte, ok bool, err error)
	// Release decrements hash's refcount; it may (but need not) GC a
	// zero-count entry immediately (spec §3.3, §9).
	Release(hash Hash128) error
}

// Encoder binds a Dictionary so EncodeTerm can insert hash variants as it
// goes, per spec §4.B.
type Encoder struct {
	Dict Dictionary
}

// EncodeTerm converts a quad.Value to its EncodedTerm. For inline
// variants this is a pure function; for hash variants it also inserts
// (hash, bytes) into the dictionary if this is the first time the value
// has been seen.
func (e *Encoder) EncodeTerm(v quad.Value) (EncodedTerm, error) {
	var out EncodedTerm
	switch t := v.(type) {
	case nil, quad.DefaultGraphTerm:
		out[0] = byte(KindDefaultGraph)
		return out, nil
	case quad.IRI:
		return e.encodeInlineOrHash(string(t), KindNamedNodeInline, KindNamedNodeHash)
	case quad.BNode:
		return e.encodeBlankNode(string(t))
	case quad.XSDString:
		return e.encodeInlineOrHash(string(t), KindStringInline, KindStringHash)
	case quad.LangString:
		combined := string(t.Value) + "@" + t.Lang
		return e.encodeInlineOrHash(combined, KindLangStringInline, KindLangStringHash)
	case quad.TypedLiteral:
		return e.encodeTypedLiteral(t)
	case quad.Triple:
		return e.encodeTriple(t)
	default:
		return out, qerrors.New(qerrors.InvalidArgument, "encoding: unknown term type %T", v)
	}
}

func (e *Encoder) encodeInlineOrHash(s string, inlineKind, hashKind Kind) (EncodedTerm, error) {
	var out EncodedTerm
	if len(s) < InlineCap {
		out[0] = byte(inlineKind)
		out[1] = byte(len(s))
		copy(out[2:], s)
		return out, nil
	}
	out[0] = byte(hashKind)
	h := hash128(s)
	copy(out[1:], h[:])
	if e.Dict != nil {
		if err := e.Dict.Insert(h, []byte(s)); err != nil {
			return out, err
		}
	}
	return out, nil
}

// encodeBlankNode: numeric ids are stored as a 128-bit little-endian
// integer (spec §3.2/§4.B/§9 — the explicit fix for the historical
// native/big-endian bug); non-numeric ids are hashed like strings.
func (e *Encoder) encodeBlankNode(id string) (EncodedTerm, error) {
	var out EncodedTerm
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		out[0] = byte(KindBlankNodeNumeric)
		binary.LittleEndian.PutUint64(out[1:9], n)
		return out, nil
	}
	out[0] = byte(KindBlankNodeHash)
	h := hash128(id)
	copy(out[1:], h[:])
	if e.Dict != nil {
		if err := e.Dict.Insert(h, []byte(id)); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (e *Encoder) encodeTypedLiteral(t quad.TypedLiteral) (EncodedTerm, error) {
	switch string(t.Type) {
	case "http://www.w3.org/2001/XMLSchema#integer":
		return e.encodeInteger(t.Value)
	case "http://www.w3.org/2001/XMLSchema#decimal":
		return e.encodeDecimal(t.Value)
	case "http://www.w3.org/2001/XMLSchema#float":
		return e.encodeFloat(t.Value, KindFloat)
	case "http://www.w3.org/2001/XMLSchema#double":
		return e.encodeFloat(t.Value, KindDouble)
	case "http://www.w3.org/2001/XMLSchema#boolean":
		return e.encodeBoolean(t.Value)
	case "http://www.w3.org/2001/XMLSchema#dateTime":
		return e.encodeDateTime(t.Value)
	case "http://www.w3.org/2001/XMLSchema#date":
		return e.encodeDate(t.Value)
	default:
		combined := t.Value + "\x00" + string(t.Type)
		var out EncodedTerm
		out[0] = byte(KindTypedLiteralHash)
		h := hash128(combined)
		copy(out[1:], h[:])
		if e.Dict != nil {
			if err := e.Dict.Insert(h, []byte(combined)); err != nil {
				return out, err
			}
		}
		return out, nil
	}
}

func (e *Encoder) encodeInteger(s string) (EncodedTerm, error) {
	var out EncodedTerm
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid xsd:integer %q", s)
	}
	out[0] = byte(KindInteger)
	// Offset-binary bias so two's-complement ordering becomes unsigned
	// byte-lexicographic ordering (sortable form, spec §4.B).
	binary.BigEndian.PutUint64(out[1:9], uint64(n)^(1<<63))
	return out, nil
}

func (e *Encoder) encodeDecimal(s string) (EncodedTerm, error) {
	var out EncodedTerm
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid xsd:decimal %q", s)
	}
	out[0] = byte(KindDecimal)
	binary.BigEndian.PutUint64(out[1:9], sortableFloatBits(f))
	return out, nil
}

func (e *Encoder) encodeFloat(s string, kind Kind) (EncodedTerm, error) {
	var out EncodedTerm
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid numeric literal %q", s)
	}
	out[0] = byte(kind)
	binary.BigEndian.PutUint64(out[1:9], sortableFloatBits(f))
	return out, nil
}

// sortableFloatBits maps IEEE-754 bits to an order-preserving unsigned
// encoding: flip the sign bit for non-negative numbers, flip every bit
// for negative numbers.
func sortableFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func (e *Encoder) encodeBoolean(s string) (EncodedTerm, error) {
	var out EncodedTerm
	b, err := strconv.ParseBool(s)
	if err != nil {
		return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid xsd:boolean %q", s)
	}
	out[0] = byte(KindBoolean)
	if b {
		out[1] = 1
	}
	return out, nil
}

func (e *Encoder) encodeDateTime(s string) (EncodedTerm, error) {
	var out EncodedTerm
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid xsd:dateTime %q", s)
		}
		t = t.UTC()
	}
	out[0] = byte(KindDateTime)
	// Unix nanos biased so negative/positive spans still sort correctly.
	binary.BigEndian.PutUint64(out[1:9], uint64(t.UnixNano())^(1<<63))
	return out, nil
}

func (e *Encoder) encodeDate(s string) (EncodedTerm, error) {
	var out EncodedTerm
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return out, qerrors.New(qerrors.EvaluationError, "encoding: invalid xsd:date %q", s)
	}
	out[0] = byte(KindDate)
	days := t.Unix() / 86400
	binary.BigEndian.PutUint64(out[1:9], uint64(days)^(1<<63))
	return out, nil
}

// encodeTriple stores the quoted triple's three sub-terms, each already
// encoded, concatenated as the dictionary payload (the "full triple
// stored separately" of spec §3.2), so decode reads the sub-terms back
// without re-parsing text. The dictionary address is the hash of the
// triple's textual form: the three sub-terms' text joined by spaces.
func (e *Encoder) encodeTriple(t quad.Triple) (EncodedTerm, error) {
	var out EncodedTerm
	out[0] = byte(KindTripleHash)

	sub, err := e.EncodeTerm(t.Subject)
	if err != nil {
		return out, err
	}
	pred, err := e.EncodeTerm(t.Predicate)
	if err != nil {
		return out, err
	}
	obj, err := e.EncodeTerm(t.Object)
	if err != nil {
		return out, err
	}
	blob := make([]byte, 0, 3*Size)
	blob = append(blob, sub[:]...)
	blob = append(blob, pred[:]...)
	blob = append(blob, obj[:]...)

	h := hash128(fmt.Sprintf("%s %s %s", quad.StringOf(t.Subject), t.Predicate.String(), quad.StringOf(t.Object)))
	copy(out[1:], h[:])
	if e.Dict != nil {
		if err := e.Dict.Insert(h, blob); err != nil {
			return out, err
		}
	}
	return out, nil
}
