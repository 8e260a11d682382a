package parser

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

const rdfType = quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")

// parsePathOrPredicate parses a Verb position: either VerbSimple (a bare
// variable, never a path) or VerbPath (a full property path expression,
// spec §4.H.7). A path that reduces to a single predicate IRI (with or
// without a leading '^') is returned as a plain bound/inverse Term rather
// than a PathExpr, so ordinary triple patterns don't pay the Path
// evaluation cost.
func (tb *triplesBuilder) parsePathOrPredicate() (algebra.Term, bool, algebra.PathExpr, error) {
	p := tb.p
	if p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2 {
		v := algebra.Var(p.tok.Text)
		return algebra.Term{Var: v}, false, nil, p.next()
	}
	pe, err := tb.parsePathAlternative()
	if err != nil {
		return algebra.Term{}, false, nil, err
	}
	if iri, ok := simplePathPredicate(pe); ok {
		return algebra.Term{Value: iri}, false, nil, nil
	}
	if inv, ok := pe.(algebra.PathInverse); ok {
		if iri, ok2 := simplePathPredicate(inv.Path); ok2 {
			return algebra.Term{Value: iri}, true, nil, nil
		}
	}
	return algebra.Term{}, false, pe, nil
}

func simplePathPredicate(pe algebra.PathExpr) (quad.IRI, bool) {
	if pp, ok := pe.(algebra.PathPredicate); ok {
		return pp.IRI, true
	}
	return "", false
}

func (tb *triplesBuilder) parsePathAlternative() (algebra.PathExpr, error) {
	p := tb.p
	left, err := tb.parsePathSequence()
	if err != nil {
		return nil, err
	}
	for p.isPunct("|") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := tb.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = algebra.PathAlt{Left: left, Right: right}
	}
	return left, nil
}

func (tb *triplesBuilder) parsePathSequence() (algebra.PathExpr, error) {
	p := tb.p
	left, err := tb.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}
	for p.isPunct("/") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := tb.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}
		left = algebra.PathSeq{Left: left, Right: right}
	}
	return left, nil
}

func (tb *triplesBuilder) parsePathEltOrInverse() (algebra.PathExpr, error) {
	p := tb.p
	if p.isPunct("^") {
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := tb.parsePathElt()
		if err != nil {
			return nil, err
		}
		return algebra.PathInverse{Path: inner}, nil
	}
	return tb.parsePathElt()
}

func (tb *triplesBuilder) parsePathElt() (algebra.PathExpr, error) {
	p := tb.p
	prim, err := tb.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.isPunct("*"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return algebra.PathZeroOrMore{Path: prim}, nil
	case p.isPunct("+"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return algebra.PathOneOrMore{Path: prim}, nil
	case p.isPunct("?"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return algebra.PathZeroOrOne{Path: prim}, nil
	default:
		return prim, nil
	}
}

func (tb *triplesBuilder) parsePathPrimary() (algebra.PathExpr, error) {
	p := tb.p
	switch {
	case p.isKeyword("A"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return algebra.PathPredicate{IRI: rdfType}, nil
	case p.isPunct("!"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return tb.parsePathNegatedPropertySet()
	case p.isPunct("("):
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := tb.parsePathAlternative()
		if err != nil {
			return nil, err
		}
		return inner, p.expectPunct(")")
	default:
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return nil, err
		}
		return algebra.PathPredicate{IRI: iri.(quad.IRI)}, nil
	}
}

// parsePathNegatedPropertySet parses '!' iri, '!' 'a', or a parenthesized
// '|'-separated list of those. A leading '^' on a member negates that
// member's direction in the real grammar; this implementation folds both
// directions into one IRI set (a documented simplification).
func (tb *triplesBuilder) parsePathNegatedPropertySet() (algebra.PathExpr, error) {
	p := tb.p
	readOne := func() (quad.IRI, error) {
		if p.isPunct("^") {
			if err := p.next(); err != nil {
				return "", err
			}
		}
		if p.isKeyword("A") {
			return rdfType, p.next()
		}
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return "", err
		}
		return iri.(quad.IRI), nil
	}
	if !p.isPunct("(") {
		iri, err := readOne()
		if err != nil {
			return nil, err
		}
		return algebra.PathNegatedSet{IRIs: []quad.IRI{iri}}, nil
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	var iris []quad.IRI
	for !p.isPunct(")") {
		iri, err := readOne()
		if err != nil {
			return nil, err
		}
		iris = append(iris, iri)
		if p.isPunct("|") {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return algebra.PathNegatedSet{IRIs: iris}, p.expectPunct(")")
}
