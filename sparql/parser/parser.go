// Package parser implements the SPARQL 1.1 query/update parser (spec
// §4.E): token-driven recursive descent over sparql/lexer, producing an
// algebra.Query or algebra.Update. Blank-node labels are scoped to one
// Parse call, so two parses never share blank-node identity.
package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

type parser struct {
	lex  *lexer.Lexer
	tok  lexer.Token
	base string
	ns   map[string]string

	bnodeSeq int
}

// ParseQuery parses a SPARQL 1.1 query string.
func ParseQuery(src, baseIRI string) (*algebra.Query, error) {
	p, err := newParser(src, baseIRI)
	if err != nil {
		return nil, err
	}
	return p.parseQuery()
}

// ParseUpdate parses a SPARQL 1.1 Update request.
func ParseUpdate(src, baseIRI string) (*algebra.Update, error) {
	p, err := newParser(src, baseIRI)
	if err != nil {
		return nil, err
	}
	return p.parseUpdate()
}

func newParser(src, baseIRI string) (*parser, error) {
	p := &parser{lex: lexer.New(src), base: baseIRI, ns: map[string]string{}}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) next() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	e := qerrors.Syntax(qerrors.Pos{Offset: p.tok.Offset, Line: p.tok.Line, Column: p.tok.Column}, format, args...)
	e.Pos.Found = p.tok.Text
	return e
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.Kind == lexer.Keyword && p.tok.Text == kw
}

func (p *parser) isPunct(s string) bool {
	return p.tok.Kind == lexer.Punct && p.tok.Text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errf("expected %q, found %q", s, p.tok.Text)
	}
	return p.next()
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errf("expected keyword %s, found %q", kw, p.tok.Text)
	}
	return p.next()
}

func (p *parser) freshBlankVar() algebra.Var {
	p.bnodeSeq++
	return algebra.Var(fmt.Sprintf("_path%d", p.bnodeSeq))
}

func (p *parser) freshBlankNode() quad.BNode {
	p.bnodeSeq++
	return quad.BNode(fmt.Sprintf("b%d", p.bnodeSeq))
}

// --- Prologue (PREFIX/BASE) ------------------------------------------

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.isKeyword("PREFIX"):
			if err := p.next(); err != nil {
				return err
			}
			if p.tok.Kind != lexer.PNameNS {
				return p.errf("expected prefix name after PREFIX")
			}
			name := p.tok.Text
			if err := p.next(); err != nil {
				return err
			}
			if p.tok.Kind != lexer.IRIRef {
				return p.errf("expected IRI after PREFIX %s:", name)
			}
			p.ns[name] = p.resolveRefIRI(p.tok.Text)
			if err := p.next(); err != nil {
				return err
			}
		case p.isKeyword("BASE"):
			if err := p.next(); err != nil {
				return err
			}
			if p.tok.Kind != lexer.IRIRef {
				return p.errf("expected IRI after BASE")
			}
			p.base = p.resolveRefIRI(p.tok.Text)
			if err := p.next(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) resolveRefIRI(ref string) string {
	if p.base == "" {
		return ref
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func (p *parser) resolvePName(pname string) (quad.IRI, error) {
	i := strings.IndexByte(pname, ':')
	prefix, local := pname[:i], pname[i+1:]
	ns, ok := p.ns[prefix]
	if !ok {
		return "", p.errf("undeclared prefix %q", prefix)
	}
	return quad.IRI(ns + unescapePNLocal(local)), nil
}

func unescapePNLocal(s string) string {
	return strings.NewReplacer(`\-`, "-", `\.`, ".", `\_`, "_", `\~`, "~").Replace(s)
}

// --- Top level ---------------------------------------------------------

func (p *parser) parseQuery() (*algebra.Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	switch {
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	case p.isKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.isKeyword("DESCRIBE"):
		return p.parseDescribe()
	case p.isKeyword("ASK"):
		return p.parseAsk()
	default:
		return nil, p.errf("expected SELECT, CONSTRUCT, DESCRIBE, or ASK")
	}
}

func (p *parser) parseDataset() (*algebra.Dataset, error) {
	var ds *algebra.Dataset
	for p.isKeyword("FROM") {
		if ds == nil {
			ds = &algebra.Dataset{}
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		named := false
		if p.isKeyword("NAMED") {
			named = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return nil, err
		}
		if named {
			ds.Named = append(ds.Named, iri)
		} else {
			ds.Default = append(ds.Default, iri)
		}
	}
	return ds, nil
}

func (p *parser) parseIRIRefOrPName() (quad.Value, error) {
	switch p.tok.Kind {
	case lexer.IRIRef:
		v := quad.IRI(p.resolveRefIRI(p.tok.Text))
		return v, p.next()
	case lexer.PNameLN, lexer.PNameNS:
		iri, err := p.resolvePName(p.tok.Text)
		if err != nil {
			return nil, err
		}
		return iri, p.next()
	default:
		return nil, p.errf("expected an IRI")
	}
}

func (p *parser) parseSelect() (*algebra.Query, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	distinct, reduced := false, false
	if p.isKeyword("DISTINCT") {
		distinct = true
		if err := p.next(); err != nil {
			return nil, err
		}
	} else if p.isKeyword("REDUCED") {
		reduced = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}

	var vars []algebra.Var
	var extends []algebra.Extend
	var aggs []algebra.Aggregation
	star := false
	if p.isPunct("*") {
		star = true
		if err := p.next(); err != nil {
			return nil, err
		}
	} else {
		for {
			if p.isPunct("(") {
				if err := p.next(); err != nil {
					return nil, err
				}
				if isAggregateKeyword(p.tok) {
					agg, err := p.parseAggregateBody()
					if err != nil {
						return nil, err
					}
					if err := p.expectKeyword("AS"); err != nil {
						return nil, err
					}
					if p.tok.Kind != lexer.Var1 && p.tok.Kind != lexer.Var2 {
						return nil, p.errf("expected variable after AS")
					}
					v := algebra.Var(p.tok.Text)
					if err := p.next(); err != nil {
						return nil, err
					}
					if err := p.expectPunct(")"); err != nil {
						return nil, err
					}
					agg.Var = v
					vars = append(vars, v)
					aggs = append(aggs, agg)
					continue
				}
				e, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if err := p.expectKeyword("AS"); err != nil {
					return nil, err
				}
				if p.tok.Kind != lexer.Var1 && p.tok.Kind != lexer.Var2 {
					return nil, p.errf("expected variable after AS")
				}
				v := algebra.Var(p.tok.Text)
				if err := p.next(); err != nil {
					return nil, err
				}
				if err := p.expectPunct(")"); err != nil {
					return nil, err
				}
				vars = append(vars, v)
				extends = append(extends, algebra.Extend{Var: v, Expr: e})
				continue
			}
			if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
				vars = append(vars, algebra.Var(p.tok.Text))
				if err := p.next(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}

	ds, err := p.parseDataset()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		if !p.isPunct("{") { // WHERE is optional per grammar but we require the brace either way
			return nil, err
		}
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	for _, e := range extends {
		pattern = algebra.Extend{Inner: pattern, Var: e.Var, Expr: e.Expr}
	}
	pattern, err = p.parseSolutionModifiers(pattern, aggs)
	if err != nil {
		return nil, err
	}
	if !star {
		pattern = algebra.Project{Inner: pattern, Vars: vars}
	}
	if distinct {
		pattern = algebra.Distinct{Inner: pattern}
	} else if reduced {
		pattern = algebra.Reduced{Inner: pattern}
	}
	return &algebra.Query{Form: algebra.Select, Dataset: ds, Pattern: pattern}, nil
}

func (p *parser) parseSolutionModifiers(pattern algebra.GraphPattern, aggs []algebra.Aggregation) (algebra.GraphPattern, error) {
	grouped := false
	if p.isKeyword("GROUP") {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		var keys []expr.Expr
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			keys = append(keys, e)
			if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 || p.isPunct("(") {
				continue
			}
			break
		}
		pattern = algebra.Group{Inner: pattern, Keys: keys, Aggs: aggs}
		grouped = true
	}
	if !grouped && len(aggs) > 0 {
		// aggregate(s) referenced in the SELECT list with no explicit
		// GROUP BY: implicit whole-result aggregation (spec-standard
		// SPARQL semantics: one group over the entire solution sequence).
		pattern = algebra.Group{Inner: pattern, Aggs: aggs}
	}
	if p.isKeyword("HAVING") {
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		pattern = algebra.Filter{Inner: pattern, Expr: e}
	}
	if p.isKeyword("ORDER") {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		var conds []algebra.OrderCondition
		for {
			desc := false
			if p.isKeyword("ASC") {
				if err := p.next(); err != nil {
					return nil, err
				}
			} else if p.isKeyword("DESC") {
				desc = true
				if err := p.next(); err != nil {
					return nil, err
				}
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			conds = append(conds, algebra.OrderCondition{Expr: e, Desc: desc})
			if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 || p.isPunct("(") || p.isKeyword("ASC") || p.isKeyword("DESC") {
				continue
			}
			break
		}
		pattern = algebra.OrderBy{Inner: pattern, Conditions: conds}
	}
	start, length, hasLen := 0, 0, false
	if p.isKeyword("LIMIT") {
		if err := p.next(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		length, hasLen = n, true
	}
	if p.isKeyword("OFFSET") {
		if err := p.next(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		start = n
	}
	if start != 0 || hasLen {
		pattern = algebra.Slice{Inner: pattern, Start: start, Len: length, HasLen: hasLen}
	}
	return pattern, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	if p.tok.Kind != lexer.Integer {
		return 0, p.errf("expected an integer")
	}
	n, err := strconv.Atoi(p.tok.Text)
	if err != nil {
		return 0, p.errf("invalid integer literal %q", p.tok.Text)
	}
	return n, p.next()
}

func (p *parser) parseConstruct() (*algebra.Query, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	var template []algebra.QuadTemplate
	if p.isPunct("{") {
		tmpl, err := p.parseConstructTemplate()
		if err != nil {
			return nil, err
		}
		template = tmpl
		ds, err := p.parseDataset()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("WHERE"); err != nil {
			return nil, err
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		pattern, err = p.parseSolutionModifiers(pattern, nil)
		if err != nil {
			return nil, err
		}
		return &algebra.Query{Form: algebra.Construct, Dataset: ds, Pattern: pattern, Template: template}, nil
	}
	// CONSTRUCT WHERE { ... } short form: template == pattern's triples.
	ds, err := p.parseDataset()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	pattern, err = p.parseSolutionModifiers(pattern, nil)
	if err != nil {
		return nil, err
	}
	return &algebra.Query{Form: algebra.Construct, Dataset: ds, Pattern: pattern}, nil
}

func (p *parser) parseConstructTemplate() ([]algebra.QuadTemplate, error) {
	return p.parseTemplateBraces(true)
}

func (p *parser) parseDescribe() (*algebra.Query, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	var vars []algebra.Var
	star := false
	if p.isPunct("*") {
		star = true
		if err := p.next(); err != nil {
			return nil, err
		}
	} else {
		for p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 || p.tok.Kind == lexer.IRIRef || p.tok.Kind == lexer.PNameLN {
			if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
				vars = append(vars, algebra.Var(p.tok.Text))
				if err := p.next(); err != nil {
					return nil, err
				}
				continue
			}
			iri, err := p.parseIRIRefOrPName()
			if err != nil {
				return nil, err
			}
			vars = append(vars, algebra.Var(iri.String()))
		}
	}
	ds, err := p.parseDataset()
	if err != nil {
		return nil, err
	}
	var pattern algebra.GraphPattern = algebra.Values{}
	if p.isKeyword("WHERE") || p.isPunct("{") {
		if p.isKeyword("WHERE") {
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		pattern, err = p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
	}
	if star {
		// DESCRIBE * has no fixed variable list; "*" is not a legal
		// SPARQL variable name, so it's a safe sentinel meaning "every
		// variable bound by Pattern", resolved by the engine at eval time.
		vars = []algebra.Var{"*"}
	}
	return &algebra.Query{Form: algebra.Describe, Dataset: ds, Pattern: pattern, Describe: vars}, nil
}

func (p *parser) parseAsk() (*algebra.Query, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	ds, err := p.parseDataset()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		if !p.isPunct("{") {
			return nil, err
		}
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &algebra.Query{Form: algebra.Ask, Dataset: ds, Pattern: pattern}, nil
}
