package parser

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

// parseExpression parses a full SPARQL Expression (the '||' precedence
// level down through PrimaryExpression).
func (p *parser) parseExpression() (expr.Expr, error) {
	return p.parseConditionalOr()
}

func (p *parser) parseConditionalOr() (expr.Expr, error) {
	left, err := p.parseConditionalAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseConditionalAnd()
		if err != nil {
			return nil, err
		}
		left = expr.Call{Op: expr.OpOr, Args: []expr.Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseConditionalAnd() (expr.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = expr.Call{Op: expr.OpAnd, Args: []expr.Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseRelational() (expr.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var op expr.BuiltinOp
	switch {
	case p.isPunct("="):
		op = expr.OpEqual
	case p.isPunct("!="):
		op = expr.OpNotEqual
	case p.isPunct("<"):
		op = expr.OpLess
	case p.isPunct("<="):
		op = expr.OpLessEqual
	case p.isPunct(">"):
		op = expr.OpGreater
	case p.isPunct(">="):
		op = expr.OpGreaterEqual
	case p.isKeyword("IN"):
		if err := p.next(); err != nil {
			return nil, err
		}
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpIn, Args: append([]expr.Expr{left}, list...)}, nil
	case p.isKeyword("NOT"):
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("IN"); err != nil {
			return nil, err
		}
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpNotIn, Args: append([]expr.Expr{left}, list...)}, nil
	default:
		return left, nil
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return expr.Call{Op: op, Args: []expr.Expr{left, right}}, nil
}

func (p *parser) parseExpressionList() ([]expr.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var out []expr.Expr
	for !p.isPunct(")") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.isPunct(",") {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, p.expectPunct(")")
}

func (p *parser) parseAdditive() (expr.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := expr.OpAdd
		if p.tok.Text == "-" {
			op = expr.OpSub
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = expr.Call{Op: op, Args: []expr.Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (expr.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") {
		op := expr.OpMul
		if p.tok.Text == "/" {
			op = expr.OpDiv
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = expr.Call{Op: op, Args: []expr.Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseUnary() (expr.Expr, error) {
	switch {
	case p.isPunct("!"):
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpNot, Args: []expr.Expr{e}}, nil
	case p.isPunct("+"):
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parsePrimaryExpression()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpUnaryPlus, Args: []expr.Expr{e}}, nil
	case p.isPunct("-"):
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parsePrimaryExpression()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpUnaryMinus, Args: []expr.Expr{e}}, nil
	default:
		return p.parsePrimaryExpression()
	}
}

var aggregateKeywords = map[string]expr.AggFunc{
	"COUNT":        expr.AggCount,
	"SUM":          expr.AggSum,
	"MIN":          expr.AggMin,
	"MAX":          expr.AggMax,
	"AVG":          expr.AggAvg,
	"SAMPLE":       expr.AggSample,
	"GROUP_CONCAT": expr.AggGroupConcat,
}

func isAggregateKeyword(t lexer.Token) bool {
	if t.Kind != lexer.Keyword {
		return false
	}
	_, ok := aggregateKeywords[t.Text]
	return ok
}

// parseAggregateBody parses one aggregate function call, from the
// function-name keyword (already the current token) through its closing
// ')'. The caller supplies the result Var.
func (p *parser) parseAggregateBody() (algebra.Aggregation, error) {
	fn := aggregateKeywords[p.tok.Text]
	if err := p.next(); err != nil {
		return algebra.Aggregation{}, err
	}
	if err := p.expectPunct("("); err != nil {
		return algebra.Aggregation{}, err
	}
	distinct := false
	if p.isKeyword("DISTINCT") {
		distinct = true
		if err := p.next(); err != nil {
			return algebra.Aggregation{}, err
		}
	}
	var arg expr.Expr
	if fn == expr.AggCount && p.isPunct("*") {
		if err := p.next(); err != nil {
			return algebra.Aggregation{}, err
		}
	} else {
		e, err := p.parseExpression()
		if err != nil {
			return algebra.Aggregation{}, err
		}
		arg = e
	}
	separator := ""
	if p.isPunct(";") { // SEPARATOR = "..." inside GROUP_CONCAT
		if err := p.next(); err != nil {
			return algebra.Aggregation{}, err
		}
		if err := p.expectKeyword("SEPARATOR"); err != nil {
			return algebra.Aggregation{}, err
		}
		if err := p.expectPunct("="); err != nil {
			return algebra.Aggregation{}, err
		}
		if p.tok.Kind != lexer.StringLit {
			return algebra.Aggregation{}, p.errf("expected a string after SEPARATOR =")
		}
		separator = p.tok.Text
		if err := p.next(); err != nil {
			return algebra.Aggregation{}, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return algebra.Aggregation{}, err
	}
	return algebra.Aggregation{Func: fn, Expr: arg, Distinct: distinct, Separator: separator}, nil
}

// builtinNoArgs are built-ins with no arguments.
var builtinNoArgs = map[string]expr.BuiltinOp{
	"RAND": expr.OpRand,
	"NOW":  expr.OpNow,
	"UUID": expr.OpUUID,
	"STRUUID": expr.OpStrUUID,
}

var builtinUnary = map[string]expr.BuiltinOp{
	"STR": expr.OpStr, "LANG": expr.OpLang, "DATATYPE": expr.OpDatatype,
	"BOUND": expr.OpBound, "IRI": expr.OpIRIFunc, "URI": expr.OpIRIFunc,
	"BNODE": expr.OpBNodeFunc, "ABS": expr.OpAbs, "CEIL": expr.OpCeil,
	"FLOOR": expr.OpFloor, "ROUND": expr.OpRound, "STRLEN": expr.OpStrLen,
	"UCASE": expr.OpUCase, "LCASE": expr.OpLCase,
	"ENCODE_FOR_URI": expr.OpEncodeForURI, "ISIRI": expr.OpIsIRI,
	"ISURI": expr.OpIsIRI, "ISBLANK": expr.OpIsBlank,
	"ISLITERAL": expr.OpIsLiteral, "ISNUMERIC": expr.OpIsNumeric,
	"YEAR": expr.OpYear, "MONTH": expr.OpMonth, "DAY": expr.OpDay,
	"HOURS": expr.OpHours, "MINUTES": expr.OpMinutes, "SECONDS": expr.OpSeconds,
	"TIMEZONE": expr.OpTimezone, "TZ": expr.OpTZ,
	"MD5": expr.OpMD5, "SHA1": expr.OpSHA1, "SHA256": expr.OpSHA256,
	"SHA384": expr.OpSHA384, "SHA512": expr.OpSHA512,
}

var builtinBinary = map[string]expr.BuiltinOp{
	"LANGMATCHES": expr.OpLangMatches, "CONTAINS": expr.OpContains,
	"STRSTARTS": expr.OpStrStarts, "STRENDS": expr.OpStrEnds,
	"STRBEFORE": expr.OpStrBefore, "STRAFTER": expr.OpStrAfter,
	"SAMETERM": expr.OpSameTerm,
}

func (p *parser) parsePrimaryExpression() (expr.Expr, error) {
	switch {
	case p.isPunct("("):
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return e, p.expectPunct(")")

	case p.tok.Kind == lexer.Var1 || p.tok.Kind == lexer.Var2:
		v := expr.Var(p.tok.Text)
		return expr.VarRef{Name: v}, p.next()

	case p.tok.Kind == lexer.StringLit, p.tok.Kind == lexer.Integer,
		p.tok.Kind == lexer.Decimal, p.tok.Kind == lexer.DoubleLit:
		tb := &triplesBuilder{p: p}
		t, err := tb.parseGraphTerm()
		if err != nil {
			return nil, err
		}
		return expr.Term{Value: t.Value}, nil

	case p.isKeyword("TRUE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return expr.Term{Value: quad.TypedLiteral{Value: "true", Type: xsdBoolean}}, nil
	case p.isKeyword("FALSE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return expr.Term{Value: quad.TypedLiteral{Value: "false", Type: xsdBoolean}}, nil

	case p.isKeyword("NOT"): // NOT EXISTS {...}
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return expr.Exists{Pattern: pat, Negated: true}, nil
	case p.isKeyword("EXISTS"):
		if err := p.next(); err != nil {
			return nil, err
		}
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return expr.Exists{Pattern: pat}, nil

	case p.isKeyword("IF"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpIf, Args: args}, nil
	case p.isKeyword("COALESCE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpCoalesce, Args: args}, nil
	case p.isKeyword("CONCAT"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpConcat, Args: args}, nil
	case p.isKeyword("SUBSTR"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpSubstr, Args: args}, nil
	case p.isKeyword("REPLACE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpReplace, Args: args}, nil
	case p.isKeyword("REGEX"):
		if err := p.next(); err != nil {
			return nil, err
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return expr.Call{Op: expr.OpRegex, Args: args}, nil

	case isAggregateKeyword(p.tok):
		agg, err := p.parseAggregateBody()
		if err != nil {
			return nil, err
		}
		return expr.AggregateCall{Func: agg.Func, Arg: agg.Expr, Distinct: agg.Distinct, Separator: agg.Separator}, nil

	case p.tok.Kind == lexer.Keyword:
		name := p.tok.Text
		if op, ok := builtinNoArgs[name]; ok {
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			return expr.Call{Op: op}, p.expectPunct(")")
		}
		if op, ok := builtinUnary[name]; ok {
			if err := p.next(); err != nil {
				return nil, err
			}
			args, err := p.parseExpressionList()
			if err != nil {
				return nil, err
			}
			return expr.Call{Op: op, Args: args}, nil
		}
		if op, ok := builtinBinary[name]; ok {
			if err := p.next(); err != nil {
				return nil, err
			}
			args, err := p.parseExpressionList()
			if err != nil {
				return nil, err
			}
			return expr.Call{Op: op, Args: args}, nil
		}
		return nil, p.errf("unsupported built-in function %s", name)

	case p.tok.Kind == lexer.IRIRef, p.tok.Kind == lexer.PNameLN, p.tok.Kind == lexer.PNameNS:
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return nil, err
		}
		if p.isPunct("(") {
			args, err := p.parseExpressionList()
			if err != nil {
				return nil, err
			}
			return expr.CustomCall{IRI: string(iri.(quad.IRI)), Args: args}, nil
		}
		return expr.Term{Value: iri}, nil

	default:
		return nil, p.errf("expected an expression, found %q", p.tok.Text)
	}
}
