package encoding

import (
	"strconv"
	"strings"
	"time"

	"github.com/quadgraph/qgdb/quad"
)

const xsdNS = "http://www.w3.org/2001/XMLSchema#"

func xsd(local string) quad.IRI { return quad.IRI(xsdNS + local) }

func itoa(n int64) string  { return strconv.FormatInt(n, 10) }
func uitoa(n uint64) string { return strconv.FormatUint(n, 10) }
func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func unixNanoToRFC3339(nanos int64) string {
	return time.Unix(0, nanos).UTC().Format(time.RFC3339Nano)
}

func daysToDate(days int64) string {
	return time.Unix(days*86400, 0).UTC().Format("2006-01-02")
}

// splitLangString reconstructs a quad.LangString from its "value@lang"
// dictionary/inline form.
func splitLangString(s string) quad.LangString {
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		return quad.LangString{Value: quad.XSDString(s[:i]), Lang: s[i+1:]}
	}
	return quad.LangString{Value: quad.XSDString(s)}
}

// splitTypedLiteral reconstructs a quad.TypedLiteral from its
// "value\x00datatypeIRI" dictionary form.
func splitTypedLiteral(s string) quad.TypedLiteral {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return quad.TypedLiteral{Value: s[:i], Type: quad.IRI(s[i+1:])}
	}
	return quad.TypedLiteral{Value: s}
}
