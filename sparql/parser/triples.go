package parser

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

// triplesBuilder accumulates triple patterns from a TriplesBlock (WHERE
// clause) or a QuadTemplate list (CONSTRUCT / INSERT DATA / DELETE DATA),
// handling ";"-shared subjects, ","-shared predicates, "[...]" anonymous
// property-list blank nodes, and paths in predicate position.
type triplesBuilder struct {
	p         *parser
	quads     []algebra.QuadTemplate
	paths     []algebra.Path
	graph     algebra.Term // current GRAPH wrapper, zero value = default graph
	hasGraph  bool
}

func defaultGraphTerm() algebra.Term {
	return algebra.Term{Value: quad.DefaultGraph}
}

// parseTriplesBlock parses one TriplesBlock: Subject PredicateObjectList
// ("." Subject PredicateObjectList)*  up to (but not consuming) "}" or a
// keyword that starts the next GraphPatternNotTriples.
func (tb *triplesBuilder) parseTriplesBlock() error {
	for {
		subj, err := tb.parseGraphTerm()
		if err != nil {
			return err
		}
		if err := tb.parsePredicateObjectList(subj); err != nil {
			return err
		}
		if tb.p.isPunct(".") {
			if err := tb.p.next(); err != nil {
				return err
			}
			if tb.atBlockEnd() {
				return nil
			}
			continue
		}
		return nil
	}
}

func (tb *triplesBuilder) atBlockEnd() bool {
	p := tb.p
	if p.isPunct("}") || p.tok.Kind == lexer.EOF {
		return true
	}
	switch {
	case p.isKeyword("FILTER"), p.isKeyword("OPTIONAL"), p.isKeyword("MINUS"),
		p.isKeyword("GRAPH"), p.isKeyword("SERVICE"), p.isKeyword("BIND"),
		p.isKeyword("VALUES"):
		return true
	case p.isPunct("{"):
		return true
	}
	return false
}

func (tb *triplesBuilder) parsePredicateObjectList(subj algebra.Term) error {
	for {
		pred, inverse, path, err := tb.parsePredicate()
		if err != nil {
			return err
		}
		for {
			obj, err := tb.parseGraphTerm()
			if err != nil {
				return err
			}
			if path != nil {
				s, o := subj, obj
				if inverse {
					s, o = o, s
				}
				tb.paths = append(tb.paths, algebra.Path{Subject: s, Object: o, Expr: path, Graph: tb.currentGraph()})
			} else {
				s, p2, o := subj, pred, obj
				if inverse {
					s, o = o, s
				}
				tb.quads = append(tb.quads, algebra.QuadTemplate{Subject: s, Predicate: p2, Object: o, Graph: tb.currentGraph()})
			}
			if tb.p.isPunct(",") {
				if err := tb.p.next(); err != nil {
					return err
				}
				continue
			}
			break
		}
		if tb.p.isPunct(";") {
			if err := tb.p.next(); err != nil {
				return err
			}
			if tb.p.isPunct(".") || tb.atBlockEnd() {
				return nil
			}
			continue
		}
		return nil
	}
}

func (tb *triplesBuilder) currentGraph() algebra.Term {
	if tb.hasGraph {
		return tb.graph
	}
	return defaultGraphTerm()
}

// parsePredicate returns either a fixed predicate term, or (for a
// property path) a PathExpr; inverse reports a leading '^'.
func (tb *triplesBuilder) parsePredicate() (algebra.Term, bool, algebra.PathExpr, error) {
	p := tb.p
	if p.isKeyword("A") {
		if err := p.next(); err != nil {
			return algebra.Term{}, false, nil, err
		}
		return algebra.Term{Value: quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")}, false, nil, nil
	}
	// Every other predicate goes through the full path grammar;
	// parsePathOrPredicate returns a bare IRI/variable predicate with no
	// path operators as a plain Term rather than a PathExpr.
	return tb.parsePathOrPredicate()
}

// parseGraphTerm parses one subject/object position: variable, IRI,
// literal, blank node (label, "[...]", or collection), defaulting
// unsupported RDF collection syntax to an error (documented simplification).
func (tb *triplesBuilder) parseGraphTerm() (algebra.Term, error) {
	p := tb.p
	switch p.tok.Kind {
	case lexer.Var1, lexer.Var2:
		v := algebra.Var(p.tok.Text)
		return algebra.Term{Var: v}, p.next()
	case lexer.IRIRef:
		v := quad.IRI(p.resolveRefIRI(p.tok.Text))
		return algebra.Term{Value: v}, p.next()
	case lexer.PNameLN, lexer.PNameNS:
		iri, err := p.resolvePName(p.tok.Text)
		if err != nil {
			return algebra.Term{}, err
		}
		return algebra.Term{Value: iri}, p.next()
	case lexer.BlankNodeLabel:
		v := quad.BNode(p.tok.Text)
		return algebra.Term{Value: v}, p.next()
	case lexer.StringLit:
		return tb.parseLiteral()
	case lexer.Integer, lexer.Decimal, lexer.DoubleLit:
		return tb.parseNumericLiteral()
	case lexer.Keyword:
		switch p.tok.Text {
		case "TRUE":
			return algebra.Term{Value: quad.TypedLiteral{Value: "true", Type: xsdBoolean}}, p.next()
		case "FALSE":
			return algebra.Term{Value: quad.TypedLiteral{Value: "false", Type: xsdBoolean}}, p.next()
		}
	case lexer.Punct:
		switch p.tok.Text {
		case "[":
			return tb.parseAnonBlankNode()
		case "(":
			return algebra.Term{}, p.errf("RDF collection syntax is not supported")
		}
	}
	return algebra.Term{}, p.errf("expected a subject or object term, found %q", p.tok.Text)
}

const xsdBoolean = quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")

func (tb *triplesBuilder) parseAnonBlankNode() (algebra.Term, error) {
	p := tb.p
	if err := p.next(); err != nil { // consume '['
		return algebra.Term{}, err
	}
	bn := p.freshBlankNode()
	term := algebra.Term{Value: bn}
	if !p.isPunct("]") {
		if err := tb.parsePredicateObjectList(term); err != nil {
			return algebra.Term{}, err
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return algebra.Term{}, err
	}
	return term, nil
}

func (tb *triplesBuilder) parseLiteral() (algebra.Term, error) {
	p := tb.p
	s := p.tok.Text
	if err := p.next(); err != nil {
		return algebra.Term{}, err
	}
	if p.tok.Kind == lexer.LangTag {
		lang := p.tok.Text
		if err := p.next(); err != nil {
			return algebra.Term{}, err
		}
		return algebra.Term{Value: quad.LangString{Value: quad.XSDString(s), Lang: lang}}, nil
	}
	if p.isPunct("^^") {
		if err := p.next(); err != nil {
			return algebra.Term{}, err
		}
		typ, err := p.parseIRIRefOrPName()
		if err != nil {
			return algebra.Term{}, err
		}
		return algebra.Term{Value: quad.TypedLiteral{Value: s, Type: typ.(quad.IRI)}}, nil
	}
	return algebra.Term{Value: quad.XSDString(s)}, nil
}

func (tb *triplesBuilder) parseNumericLiteral() (algebra.Term, error) {
	p := tb.p
	text, kind := p.tok.Text, p.tok.Kind
	if err := p.next(); err != nil {
		return algebra.Term{}, err
	}
	typ := quad.IRI("http://www.w3.org/2001/XMLSchema#integer")
	switch kind {
	case lexer.Decimal:
		typ = "http://www.w3.org/2001/XMLSchema#decimal"
	case lexer.DoubleLit:
		typ = "http://www.w3.org/2001/XMLSchema#double"
	}
	return algebra.Term{Value: quad.TypedLiteral{Value: text, Type: typ}}, nil
}

// parseTemplateBraces parses a '{' QuadTemplate '}' block (a CONSTRUCT
// template, or an INSERT/DELETE DATA or INSERT/DELETE {...} update
// clause), handling nested GRAPH <iri> {...} blocks. When allowVars is
// false (the DATA forms), every template term must be ground.
func (p *parser) parseTemplateBraces(allowVars bool) ([]algebra.QuadTemplate, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	tb := &triplesBuilder{p: p}
	for !p.isPunct("}") {
		if p.isKeyword("GRAPH") {
			if err := p.next(); err != nil {
				return nil, err
			}
			g, err := tb.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			tb.graph, tb.hasGraph = g, true
			for !p.isPunct("}") {
				if err := tb.parseTriplesBlock(); err != nil {
					return nil, err
				}
			}
			tb.hasGraph = false
			if err := p.next(); err != nil { // consume inner '}'
				return nil, err
			}
			continue
		}
		if err := tb.parseTriplesBlock(); err != nil {
			return nil, err
		}
	}
	if !allowVars {
		for _, q := range tb.quads {
			if q.Subject.Var != "" || q.Predicate.Var != "" || q.Object.Var != "" || q.Graph.Var != "" {
				return nil, p.errf("variables are not allowed in a DATA block")
			}
		}
	}
	return tb.quads, p.next() // consume outer '}'
}

// bnodeVarMap assigns one fresh pattern-scoped variable per distinct
// blank-node label appearing in quads/paths, so repeated occurrences of
// "_:x" within one WHERE-clause BGP are treated as the same variable
// rather than a literal match against a stored blank node.
func (p *parser) bnodeVarMap(quads []algebra.QuadTemplate, paths []algebra.Path) map[quad.BNode]algebra.Var {
	out := map[quad.BNode]algebra.Var{}
	see := func(t algebra.Term) {
		if bn, ok := t.Value.(quad.BNode); ok {
			if _, ok := out[bn]; !ok {
				out[bn] = p.freshBlankVar()
			}
		}
	}
	for _, q := range quads {
		see(q.Subject)
		see(q.Predicate)
		see(q.Object)
		see(q.Graph)
	}
	for _, pp := range paths {
		see(pp.Subject)
		see(pp.Object)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// quadTemplatesToPattern lowers a flat QuadTemplate list into a Join tree
// of QuadPattern nodes for use as a WHERE-clause BGP. Blank nodes in a
// WHERE clause pattern are non-distinguished variables (SPARQL 1.1 §:
// "blank nodes act as variables"), so they are converted to fresh
// pattern-scoped variables here.
func quadTemplatesToPattern(quads []algebra.QuadTemplate, paths []algebra.Path, bnodeToVar map[quad.BNode]algebra.Var) algebra.GraphPattern {
	toTerm := func(t algebra.Term) algebra.Term {
		if bn, ok := t.Value.(quad.BNode); ok {
			if v, ok := bnodeToVar[bn]; ok {
				return algebra.Term{Var: v}
			}
		}
		return t
	}
	var pattern algebra.GraphPattern
	add := func(gp algebra.GraphPattern) {
		if pattern == nil {
			pattern = gp
		} else {
			pattern = algebra.Join{Left: pattern, Right: gp}
		}
	}
	for _, q := range quads {
		qp := algebra.QuadPattern{
			Subject:   toTerm(q.Subject),
			Predicate: toTerm(q.Predicate),
			Object:    toTerm(q.Object),
			Graph:     toTerm(q.Graph),
		}
		add(qp)
	}
	for _, pp := range paths {
		add(algebra.Path{Subject: toTerm(pp.Subject), Object: toTerm(pp.Object), Expr: pp.Expr, Graph: toTerm(pp.Graph)})
	}
	if pattern == nil {
		return algebra.Values{} // empty BGP matches the single empty solution
	}
	return pattern
}
