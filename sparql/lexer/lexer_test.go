package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/sparql/lexer"
)

func allTokens(t *testing.T, src string) []lexer.Token {
	t.Helper()
	l := lexer.New(src)
	var toks []lexer.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		if tok.Kind == lexer.EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestLexIRIRef(t *testing.T) {
	toks := allTokens(t, "<http://ex/a>")
	require.Len(t, toks, 1)
	require.Equal(t, lexer.IRIRef, toks[0].Kind)
	require.Equal(t, "http://ex/a", toks[0].Text)
}

func TestLexVariables(t *testing.T) {
	toks := allTokens(t, "?x $y")
	require.Len(t, toks, 2)
	require.Equal(t, lexer.Var1, toks[0].Kind)
	require.Equal(t, "x", toks[0].Text)
	require.Equal(t, lexer.Var2, toks[1].Kind)
	require.Equal(t, "y", toks[1].Text)
}

func TestLexKeywordIsCaseInsensitiveAndUppercased(t *testing.T) {
	toks := allTokens(t, "select Select SELECT")
	for _, tok := range toks {
		require.Equal(t, lexer.Keyword, tok.Kind)
		require.Equal(t, "SELECT", tok.Text)
	}
}

func TestLexPNameNSAndLN(t *testing.T) {
	toks := allTokens(t, "foaf: foaf:name")
	require.Len(t, toks, 2)
	require.Equal(t, lexer.PNameNS, toks[0].Kind)
	require.Equal(t, "foaf", toks[0].Text)
	require.Equal(t, lexer.PNameLN, toks[1].Kind)
	require.Equal(t, "foaf:name", toks[1].Text)
}

func TestLexBlankNodeLabel(t *testing.T) {
	toks := allTokens(t, "_:b1")
	require.Len(t, toks, 1)
	require.Equal(t, lexer.BlankNodeLabel, toks[0].Kind)
	require.Equal(t, "b1", toks[0].Text)
}

func TestLexNumbers(t *testing.T) {
	toks := allTokens(t, "42 3.14 1.0e10")
	require.Len(t, toks, 3)
	require.Equal(t, lexer.Integer, toks[0].Kind)
	require.Equal(t, lexer.Decimal, toks[1].Kind)
	require.Equal(t, lexer.DoubleLit, toks[2].Kind)
}

func TestLexStringLiteralWithLangTag(t *testing.T) {
	toks := allTokens(t, `"hello"@en`)
	require.Len(t, toks, 2)
	require.Equal(t, lexer.StringLit, toks[0].Kind)
	require.Equal(t, "hello", toks[0].Text)
	require.Equal(t, lexer.LangTag, toks[1].Kind)
	require.Equal(t, "en", toks[1].Text)
}

func TestLexStringLiteralEscapes(t *testing.T) {
	toks := allTokens(t, `"a\nb"`)
	require.Len(t, toks, 1)
	require.Equal(t, "a\nb", toks[0].Text)
}

func TestLexLongStringLiteral(t *testing.T) {
	toks := allTokens(t, `"""multi
line"""`)
	require.Len(t, toks, 1)
	require.Equal(t, lexer.StringLit, toks[0].Kind)
	require.Contains(t, toks[0].Text, "multi")
}

func TestLexTypedLiteralPunctuation(t *testing.T) {
	toks := allTokens(t, `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	require.Len(t, toks, 3)
	require.Equal(t, lexer.StringLit, toks[0].Kind)
	require.Equal(t, lexer.Punct, toks[1].Kind)
	require.Equal(t, "^^", toks[1].Text)
	require.Equal(t, lexer.IRIRef, toks[2].Kind)
}

func TestLexCommentsAreSkipped(t *testing.T) {
	toks := allTokens(t, "?x # a comment\n?y")
	require.Len(t, toks, 2)
	require.Equal(t, "x", toks[0].Text)
	require.Equal(t, "y", toks[1].Text)
}

func TestLexPunctuationLongestMatchFirst(t *testing.T) {
	toks := allTokens(t, "!= <= >= ^^ || &&")
	require.Len(t, toks, 6)
	for _, tok := range toks {
		require.Equal(t, lexer.Punct, tok.Kind)
	}
	require.Equal(t, "!=", toks[0].Text)
	require.Equal(t, "^^", toks[3].Text)
}

func TestLexUnterminatedIRIRefErrors(t *testing.T) {
	l := lexer.New("<http://ex/a")
	_, err := l.Next()
	require.Error(t, err)
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	l := lexer.New(`"unterminated`)
	_, err := l.Next()
	require.Error(t, err)
}

func TestLexIdentFallsThroughForNonKeyword(t *testing.T) {
	toks := allTokens(t, "someRandomIdent")
	require.Len(t, toks, 1)
	require.Equal(t, lexer.Ident, toks[0].Kind)
}
