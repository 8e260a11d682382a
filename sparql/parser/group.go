package parser

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

// parseGroupGraphPattern parses a '{' GroupGraphPatternSub '}' (or a
// subselect) rooted at the default graph.
func (p *parser) parseGroupGraphPattern() (algebra.GraphPattern, error) {
	return p.parseGroupGraphPatternGraph(defaultGraphTerm())
}

func (p *parser) parseGroupGraphPatternGraph(graphCtx algebra.Term) (algebra.GraphPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if p.isKeyword("SELECT") {
		q, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return q.Pattern, nil
	}
	pattern, filters, err := p.parseGroupGraphPatternSub(graphCtx)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return applyFilters(pattern, filters), nil
}

func applyFilters(pattern algebra.GraphPattern, filters []expr.Expr) algebra.GraphPattern {
	if pattern == nil {
		pattern = algebra.Values{}
	}
	if cond := andAll(filters); cond != nil {
		pattern = algebra.Filter{Inner: pattern, Expr: cond}
	}
	return pattern
}

func andAll(exprs []expr.Expr) expr.Expr {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = expr.Call{Op: expr.OpAnd, Args: []expr.Expr{out, e}}
	}
	return out
}

// parseGroupGraphPatternSub parses GroupGraphPatternSub content up to (but
// not consuming) the closing '}', returning the joined pattern and any
// FILTER expressions still awaiting application by the caller (so OPTIONAL
// can instead fold them into its join condition, per SPARQL's Filter
// distribution rule).
func (p *parser) parseGroupGraphPatternSub(graphCtx algebra.Term) (algebra.GraphPattern, []expr.Expr, error) {
	var pattern algebra.GraphPattern
	var filters []expr.Expr
	var unionParts []algebra.GraphPattern

	join := func(gp algebra.GraphPattern) {
		if pattern == nil {
			pattern = gp
		} else {
			pattern = algebra.Join{Left: pattern, Right: gp}
		}
	}
	flushUnion := func() {
		if len(unionParts) == 0 {
			return
		}
		if len(unionParts) == 1 {
			join(unionParts[0])
		} else {
			join(algebra.Union{Children: append([]algebra.GraphPattern{}, unionParts...)})
		}
		unionParts = nil
	}

	for !p.isPunct("}") && p.tok.Kind != lexer.EOF {
		switch {
		case p.isKeyword("FILTER"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			e, err := p.parseConstraint()
			if err != nil {
				return nil, nil, err
			}
			filters = append(filters, e)

		case p.isKeyword("BIND"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, nil, err
			}
			if p.tok.Kind != lexer.Var1 && p.tok.Kind != lexer.Var2 {
				return nil, nil, p.errf("expected variable after AS")
			}
			v := algebra.Var(p.tok.Text)
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, nil, err
			}
			if pattern == nil {
				pattern = algebra.Values{}
			}
			pattern = algebra.Extend{Inner: pattern, Var: v, Expr: e}

		case p.isKeyword("VALUES"):
			flushUnion()
			v, err := p.parseInlineData()
			if err != nil {
				return nil, nil, err
			}
			join(v)

		case p.isKeyword("OPTIONAL"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			if err := p.expectPunct("{"); err != nil {
				return nil, nil, err
			}
			right, rfilters, err := p.parseGroupGraphPatternSub(graphCtx)
			if err != nil {
				return nil, nil, err
			}
			if err := p.expectPunct("}"); err != nil {
				return nil, nil, err
			}
			if right == nil {
				right = algebra.Values{}
			}
			if pattern == nil {
				pattern = algebra.Values{}
			}
			pattern = algebra.LeftJoin{Left: pattern, Right: right, Expr: andAll(rfilters)}

		case p.isKeyword("MINUS"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			right, err := p.parseGroupGraphPatternGraph(graphCtx)
			if err != nil {
				return nil, nil, err
			}
			if pattern == nil {
				pattern = algebra.Values{}
			}
			pattern = algebra.Minus{Left: pattern, Right: right}

		case p.isKeyword("GRAPH"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			g, err := p.parseVarOrIRI()
			if err != nil {
				return nil, nil, err
			}
			right, err := p.parseGroupGraphPatternGraph(g)
			if err != nil {
				return nil, nil, err
			}
			join(right)

		case p.isKeyword("SERVICE"):
			flushUnion()
			if err := p.next(); err != nil {
				return nil, nil, err
			}
			silent := false
			if p.isKeyword("SILENT") {
				silent = true
				if err := p.next(); err != nil {
					return nil, nil, err
				}
			}
			name, err := p.parseVarOrIRI()
			if err != nil {
				return nil, nil, err
			}
			inner, err := p.parseGroupGraphPatternGraph(defaultGraphTerm())
			if err != nil {
				return nil, nil, err
			}
			join(algebra.Service{Name: name, Inner: inner, Silent: silent})

		case p.isPunct("{"):
			first, err := p.parseGroupGraphPatternGraph(graphCtx)
			if err != nil {
				return nil, nil, err
			}
			unionParts = append(unionParts, first)
			for p.isKeyword("UNION") {
				if err := p.next(); err != nil {
					return nil, nil, err
				}
				next, err := p.parseGroupGraphPatternGraph(graphCtx)
				if err != nil {
					return nil, nil, err
				}
				unionParts = append(unionParts, next)
			}
			flushUnion()

		default:
			flushUnion()
			tb := &triplesBuilder{p: p, graph: graphCtx, hasGraph: true}
			if err := tb.parseTriplesBlock(); err != nil {
				return nil, nil, err
			}
			join(quadTemplatesToPattern(tb.quads, tb.paths, p.bnodeVarMap(tb.quads, tb.paths)))
		}

		if p.isPunct(".") {
			if err := p.next(); err != nil {
				return nil, nil, err
			}
		}
	}
	flushUnion()
	return pattern, filters, nil
}

func (p *parser) parseVarOrIRI() (algebra.Term, error) {
	if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
		v := algebra.Var(p.tok.Text)
		return algebra.Term{Var: v}, p.next()
	}
	iri, err := p.parseIRIRefOrPName()
	if err != nil {
		return algebra.Term{}, err
	}
	return algebra.Term{Value: iri}, nil
}

// parseConstraint parses a FILTER's Constraint: a BrackettedExpression,
// BuiltInCall (including EXISTS/NOT EXISTS), or IRI-function call — all
// handled by the ordinary expression grammar.
func (p *parser) parseConstraint() (expr.Expr, error) {
	if p.isPunct("(") {
		return p.parseExpression()
	}
	return p.parsePrimaryExpression()
}

// parseInlineData parses the VALUES clause (inline data block).
func (p *parser) parseInlineData() (algebra.GraphPattern, error) {
	if err := p.next(); err != nil { // consume VALUES
		return nil, err
	}
	var vars []algebra.Var
	if p.isPunct("(") {
		if err := p.next(); err != nil {
			return nil, err
		}
		for p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
			vars = append(vars, algebra.Var(p.tok.Text))
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	} else if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
		vars = append(vars, algebra.Var(p.tok.Text))
		if err := p.next(); err != nil {
			return nil, err
		}
	} else {
		return nil, p.errf("expected a variable or variable list after VALUES")
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var rows [][]quad.Value
	for !p.isPunct("}") {
		var row []quad.Value
		if p.isPunct("(") {
			if err := p.next(); err != nil {
				return nil, err
			}
			for !p.isPunct(")") {
				v, err := p.parseDataBlockValue()
				if err != nil {
					return nil, err
				}
				row = append(row, v)
			}
			if err := p.next(); err != nil { // ')'
				return nil, err
			}
		} else {
			v, err := p.parseDataBlockValue()
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	if err := p.next(); err != nil { // consume '}'
		return nil, err
	}
	return algebra.Values{Vars: vars, Rows: rows}, nil
}

func (p *parser) parseDataBlockValue() (quad.Value, error) {
	if p.isKeyword("UNDEF") {
		return nil, p.next()
	}
	tb := &triplesBuilder{p: p}
	t, err := tb.parseGraphTerm()
	if err != nil {
		return nil, err
	}
	return t.Value, nil
}
