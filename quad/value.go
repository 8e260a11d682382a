// Package quad defines RDF term and quad value types.
//
// A complete representation of an RDF dataset is a list of quads; the rest
// of this module is just indexing for speed. Adding fields to Quad is not
// to be taken lightly.
package quad

import (
	"fmt"
	"strings"
)

// Value is the interface implemented by every RDF term kind: IRI, BNode,
// String/TypedString/LangString literals, and (RDF 1.2) Triple.
type Value interface {
	String() string
	// Native converts the term to its closest native Go type, or returns
	// itself if there is no good analog.
	Native() interface{}
}

// Equaler is implemented by values that need special equality semantics
// beyond String() comparison (e.g. language tag case-folding).
type Equaler interface {
	Equal(v Value) bool
}

// IRI is an RDF Internationalized Resource Identifier, ex: <http://ex/a>.
type IRI string

func (s IRI) String() string      { return "<" + string(s) + ">" }
func (s IRI) Native() interface{} { return string(s) }
func (s IRI) Valid() bool         { return isValidIRI(string(s)) }

// BNode is a blank node, identified by an opaque local label.
//
// The label is either a caller-supplied string or one synthesized by the
// SPARQL parser, scoped to a single parse (two parses never share blank
// node identity, per spec §4.E).
type BNode string

func (s BNode) String() string      { return "_:" + string(s) }
func (s BNode) Native() interface{} { return string(s) }

// DefaultGraph marks the unnamed graph of a dataset.
type DefaultGraphTerm struct{}

func (DefaultGraphTerm) String() string      { return "DEFAULT" }
func (DefaultGraphTerm) Native() interface{} { return nil }

// DefaultGraph is the single shared instance of DefaultGraphTerm.
var DefaultGraph = DefaultGraphTerm{}

// String literals -----------------------------------------------------

// XSDString is a plain xsd:string literal with no language tag.
type XSDString string

var escaper = strings.NewReplacer(
	"\\", `\\`,
	"\"", `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func (s XSDString) String() string      { return `"` + escaper.Replace(string(s)) + `"` }
func (s XSDString) Native() interface{} { return string(s) }

// LangString is an RDF literal with a language tag (ex: "chat"@en); its
// datatype is always rdf:langString per spec §3.1.
type LangString struct {
	Value XSDString
	Lang  string
}

func (s LangString) String() string      { return s.Value.String() + "@" + s.Lang }
func (s LangString) Native() interface{} { return string(s.Value) }

// TypedLiteral is a literal with an explicit, non-string datatype IRI.
type TypedLiteral struct {
	Value string
	Type  IRI
}

func (s TypedLiteral) String() string      { return XSDString(s.Value).String() + "^^" + s.Type.String() }
func (s TypedLiteral) Native() interface{} { return s.Value }

// Triple is an RDF 1.2 quoted triple used as a subject or object term.
type Triple struct {
	Subject   Value
	Predicate IRI
	Object    Value
}

func (t Triple) String() string {
	return fmt.Sprintf("<<%s %s %s>>", StringOf(t.Subject), t.Predicate.String(), StringOf(t.Object))
}
func (t Triple) Native() interface{} { return t }

func (t Triple) Equal(v Value) bool {
	o, ok := v.(Triple)
	if !ok {
		return false
	}
	return t.Predicate == o.Predicate && StringOf(t.Subject) == StringOf(o.Subject) && StringOf(t.Object) == StringOf(o.Object)
}

// StringOf safely calls v.String(), returning "" for a nil Value.
func StringOf(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// NativeOf safely calls v.Native(), returning nil for a nil Value.
func NativeOf(v Value) interface{} {
	if v == nil {
		return nil
	}
	return v.Native()
}

func isValidIRI(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch r {
		case ' ', '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			if r != '\\' {
				return false
			}
		}
		if r < 0x20 {
			return false
		}
	}
	return true
}
