package quadio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/internal/quadio"
	"github.com/quadgraph/qgdb/quad"
)

func TestWriteReadRoundTripsPlainIRIQuad(t *testing.T) {
	q := quad.Quad{
		Subject:   quad.IRI("http://ex/a"),
		Predicate: quad.IRI("http://ex/p"),
		Object:    quad.IRI("http://ex/b"),
		Graph:     quad.DefaultGraph,
	}
	var buf bytes.Buffer
	require.NoError(t, quadio.WriteQuad(&buf, q))

	var got []quad.Quad
	require.NoError(t, quadio.ReadQuads(&buf, func(q quad.Quad) bool {
		got = append(got, q)
		return true
	}))
	require.Len(t, got, 1)
	require.Equal(t, q.Subject, got[0].Subject)
	require.Equal(t, q.Predicate, got[0].Predicate)
	require.Equal(t, q.Object, got[0].Object)
}

func TestWriteReadRoundTripsLiteralAndBlankNode(t *testing.T) {
	q := quad.Quad{
		Subject:   quad.BNode("b1"),
		Predicate: quad.IRI("http://ex/age"),
		Object:    quad.TypedLiteral{Value: "30", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")},
		Graph:     quad.DefaultGraph,
	}
	var buf bytes.Buffer
	require.NoError(t, quadio.WriteQuad(&buf, q))

	var got []quad.Quad
	require.NoError(t, quadio.ReadQuads(&buf, func(q quad.Quad) bool {
		got = append(got, q)
		return true
	}))
	require.Len(t, got, 1)
	require.Equal(t, quad.BNode("b1"), got[0].Subject)
	require.Equal(t, quad.TypedLiteral{Value: "30", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}, got[0].Object)
}

func TestWriteReadRoundTripsLangString(t *testing.T) {
	q := quad.Quad{
		Subject:   quad.IRI("http://ex/a"),
		Predicate: quad.IRI("http://ex/label"),
		Object:    quad.LangString{Value: quad.XSDString("hello"), Lang: "en"},
		Graph:     quad.DefaultGraph,
	}
	var buf bytes.Buffer
	require.NoError(t, quadio.WriteQuad(&buf, q))

	var got []quad.Quad
	require.NoError(t, quadio.ReadQuads(&buf, func(q quad.Quad) bool {
		got = append(got, q)
		return true
	}))
	require.Len(t, got, 1)
	require.Equal(t, quad.LangString{Value: quad.XSDString("hello"), Lang: "en"}, got[0].Object)
}

func TestReadQuadsWithNamedGraph(t *testing.T) {
	q := quad.Quad{
		Subject:   quad.IRI("http://ex/a"),
		Predicate: quad.IRI("http://ex/p"),
		Object:    quad.IRI("http://ex/b"),
		Graph:     quad.IRI("http://ex/g"),
	}
	var buf bytes.Buffer
	require.NoError(t, quadio.WriteQuad(&buf, q))

	var got []quad.Quad
	require.NoError(t, quadio.ReadQuads(&buf, func(q quad.Quad) bool {
		got = append(got, q)
		return true
	}))
	require.Len(t, got, 1)
	require.Equal(t, quad.IRI("http://ex/g"), got[0].Graph)
}

func TestReadQuadsSkipsBlankLinesAndComments(t *testing.T) {
	src := "\n# a comment\n<http://ex/a> <http://ex/p> <http://ex/b> .\n"
	var got []quad.Quad
	require.NoError(t, quadio.ReadQuads(bytes.NewBufferString(src), func(q quad.Quad) bool {
		got = append(got, q)
		return true
	}))
	require.Len(t, got, 1)
}

func TestReadQuadsStopsWhenYieldReturnsFalse(t *testing.T) {
	src := "<http://ex/a> <http://ex/p> <http://ex/b> .\n<http://ex/c> <http://ex/p> <http://ex/d> .\n"
	n := 0
	require.NoError(t, quadio.ReadQuads(bytes.NewBufferString(src), func(q quad.Quad) bool {
		n++
		return false
	}))
	require.Equal(t, 1, n)
}

func TestReadQuadsRejectsNonIRIPredicate(t *testing.T) {
	src := `<http://ex/a> "notAnIRI" <http://ex/b> .` + "\n"
	err := quadio.ReadQuads(bytes.NewBufferString(src), func(q quad.Quad) bool { return true })
	require.Error(t, err)
}

func TestReadQuadsRejectsWrongTermCount(t *testing.T) {
	src := `<http://ex/a> <http://ex/p>` + "\n"
	err := quadio.ReadQuads(bytes.NewBufferString(src), func(q quad.Quad) bool { return true })
	require.Error(t, err)
}
