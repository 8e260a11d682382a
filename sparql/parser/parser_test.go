package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/parser"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s ?o WHERE { ?s <http://ex/knows> ?o }`, "")
	require.NoError(t, err)
	require.Equal(t, algebra.Select, q.Form)

	proj, ok := q.Pattern.(algebra.Project)
	require.True(t, ok)
	require.Equal(t, []algebra.Var{"s", "o"}, proj.Vars)

	qp, ok := proj.Inner.(algebra.QuadPattern)
	require.True(t, ok)
	require.Equal(t, algebra.Var("s"), qp.Subject.Var)
	require.Equal(t, quad.IRI("http://ex/knows"), qp.Predicate.Value)
	require.Equal(t, algebra.Var("o"), qp.Object.Var)
}

func TestParseSelectStarHasNoProject(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT * WHERE { ?s ?p ?o }`, "")
	require.NoError(t, err)
	_, isProject := q.Pattern.(algebra.Project)
	require.False(t, isProject)
}

func TestParseSelectDistinct(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT DISTINCT ?s WHERE { ?s ?p ?o }`, "")
	require.NoError(t, err)
	_, ok := q.Pattern.(algebra.Distinct)
	require.True(t, ok)
}

func TestParsePrefixedName(t *testing.T) {
	q, err := parser.ParseQuery(`PREFIX ex: <http://ex/>
SELECT ?s WHERE { ?s ex:knows ex:bob }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	qp := proj.Inner.(algebra.QuadPattern)
	require.Equal(t, quad.IRI("http://ex/knows"), qp.Predicate.Value)
	require.Equal(t, quad.IRI("http://ex/bob"), qp.Object.Value)
}

func TestParseUndeclaredPrefixErrors(t *testing.T) {
	_, err := parser.ParseQuery(`SELECT ?s WHERE { ?s ex:knows ?o }`, "")
	require.Error(t, err)
}

func TestParseJoinOfTwoTriples(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?x ?z WHERE { ?x <http://ex/knows> ?y . ?y <http://ex/knows> ?z }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	_, ok := proj.Inner.(algebra.Join)
	require.True(t, ok)
}

func TestParseOptional(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s ?o WHERE { ?s <http://ex/p> ?o . OPTIONAL { ?s <http://ex/q> ?o } }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	_, ok := proj.Inner.(algebra.LeftJoin)
	require.True(t, ok)
}

func TestParseUnion(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s WHERE { { ?s <http://ex/p> ?o } UNION { ?s <http://ex/q> ?o } }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	u, ok := proj.Inner.(algebra.Union)
	require.True(t, ok)
	require.Len(t, u.Children, 2)
}

func TestParseMinus(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s WHERE { ?s <http://ex/p> ?o MINUS { ?s <http://ex/q> ?o } }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	_, ok := proj.Inner.(algebra.Minus)
	require.True(t, ok)
}

func TestParseFilter(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s WHERE { ?s <http://ex/age> ?age . FILTER(?age > 18) }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	f, ok := proj.Inner.(algebra.Filter)
	require.True(t, ok)
	_, ok = f.Expr.(expr.Call)
	require.True(t, ok)
}

func TestParseBind(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s ?label WHERE { ?s <http://ex/name> ?n . BIND(UCASE(?n) AS ?label) }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	ext, ok := proj.Inner.(algebra.Extend)
	require.True(t, ok)
	require.Equal(t, algebra.Var("label"), ext.Var)
}

func TestParseValuesClause(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s WHERE { VALUES ?s { <http://ex/a> <http://ex/b> } }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	v, ok := proj.Inner.(algebra.Values)
	require.True(t, ok)
	require.Equal(t, []algebra.Var{"s"}, v.Vars)
	require.Len(t, v.Rows, 2)
}

func TestParseOrderByLimitOffset(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s WHERE { ?s <http://ex/age> ?age } ORDER BY DESC(?age) LIMIT 10 OFFSET 5`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	slice, ok := proj.Inner.(algebra.Slice)
	require.True(t, ok)
	require.Equal(t, 5, slice.Start)
	require.Equal(t, 10, slice.Len)
	require.True(t, slice.HasLen)
	ob, ok := slice.Inner.(algebra.OrderBy)
	require.True(t, ok)
	require.True(t, ob.Conditions[0].Desc)
}

func TestParseGroupByWithAggregate(t *testing.T) {
	q, err := parser.ParseQuery(`SELECT ?s (COUNT(?o) AS ?n) WHERE { ?s <http://ex/knows> ?o } GROUP BY ?s`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	require.Equal(t, []algebra.Var{"s", "n"}, proj.Vars)
	group, ok := proj.Inner.(algebra.Group)
	require.True(t, ok)
	require.Len(t, group.Aggs, 1)
	require.Equal(t, algebra.Var("n"), group.Aggs[0].Var)
}

func TestParseAsk(t *testing.T) {
	q, err := parser.ParseQuery(`ASK { ?s <http://ex/p> ?o }`, "")
	require.NoError(t, err)
	require.Equal(t, algebra.Ask, q.Form)
}

func TestParseConstruct(t *testing.T) {
	q, err := parser.ParseQuery(`CONSTRUCT { ?s <http://ex/sameAs> ?o } WHERE { ?s <http://ex/p> ?o }`, "")
	require.NoError(t, err)
	require.Equal(t, algebra.Construct, q.Form)
	require.Len(t, q.Template, 1)
}

func TestParseDescribeStar(t *testing.T) {
	q, err := parser.ParseQuery(`DESCRIBE * WHERE { ?s <http://ex/p> ?o }`, "")
	require.NoError(t, err)
	require.Equal(t, algebra.Describe, q.Form)
	require.Equal(t, []algebra.Var{"*"}, q.Describe)
}

func TestParsePropertyPathSequence(t *testing.T) {
	q, err := parser.ParseQuery(`PREFIX ex: <http://ex/>
SELECT ?s ?o WHERE { ?s ex:p/ex:q ?o }`, "")
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	path, ok := proj.Inner.(algebra.Path)
	require.True(t, ok)
	_, ok = path.Expr.(algebra.PathSeq)
	require.True(t, ok)
}

func TestParseInsertData(t *testing.T) {
	u, err := parser.ParseUpdate(`INSERT DATA { <http://ex/a> <http://ex/p> <http://ex/b> }`, "")
	require.NoError(t, err)
	require.Len(t, u.Operations, 1)
	_, ok := u.Operations[0].(algebra.DeleteInsert)
	require.True(t, ok)
}

func TestParseDeleteWhere(t *testing.T) {
	u, err := parser.ParseUpdate(`DELETE { ?s <http://ex/p> ?o } WHERE { ?s <http://ex/p> ?o }`, "")
	require.NoError(t, err)
	require.Len(t, u.Operations, 1)
	di, ok := u.Operations[0].(algebra.DeleteInsert)
	require.True(t, ok)
	require.NotNil(t, di.Where)
}

func TestParseSyntaxErrorOnMissingBrace(t *testing.T) {
	_, err := parser.ParseQuery(`SELECT ?s WHERE ?s <http://ex/p> ?o }`, "")
	require.Error(t, err)
}
