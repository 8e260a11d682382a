package parser

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/sparql/lexer"
)

// parseUpdate parses a SPARQL 1.1 Update request: a ';'-separated list of
// update operations, each with its own prologue (spec §4.I). The whole
// list is returned as one algebra.Update to run in a single transaction.
func (p *parser) parseUpdate() (*algebra.Update, error) {
	var ops []algebra.UpdateOp
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.EOF {
			break
		}
		op, err := p.parseUpdate1()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if p.isPunct(";") {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &algebra.Update{Operations: ops}, nil
}

func (p *parser) parseUpdate1() (algebra.UpdateOp, error) {
	switch {
	case p.isKeyword("LOAD"):
		return p.parseLoad()
	case p.isKeyword("CLEAR"):
		return p.parseClear()
	case p.isKeyword("DROP"):
		return p.parseDrop()
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("ADD"):
		return p.parseAddMoveCopy("ADD")
	case p.isKeyword("MOVE"):
		return p.parseAddMoveCopy("MOVE")
	case p.isKeyword("COPY"):
		return p.parseAddMoveCopy("COPY")
	case p.isKeyword("INSERT"):
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.isKeyword("DATA") {
			return p.parseInsertData()
		}
		return p.parseModify(nil, false)
	case p.isKeyword("DELETE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.isKeyword("DATA") {
			return p.parseDeleteData()
		}
		if p.isKeyword("WHERE") {
			return p.parseDeleteWhere()
		}
		return p.parseModify(nil, true)
	case p.isKeyword("WITH"):
		if err := p.next(); err != nil {
			return nil, err
		}
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return nil, err
		}
		g := algebra.Term{Value: iri}
		if p.isKeyword("DELETE") {
			if err := p.next(); err != nil {
				return nil, err
			}
			return p.parseModify(&g, true)
		}
		if p.isKeyword("INSERT") {
			if err := p.next(); err != nil {
				return nil, err
			}
			return p.parseModify(&g, false)
		}
		return nil, p.errf("expected DELETE or INSERT after WITH")
	default:
		return nil, p.errf("expected an update operation")
	}
}

func (p *parser) parseSilent() (bool, error) {
	if p.isKeyword("SILENT") {
		return true, p.next()
	}
	return false, nil
}

func (p *parser) parseLoad() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	src, err := p.parseIRIRefOrPName()
	if err != nil {
		return nil, err
	}
	var into *quad.IRI
	if p.isKeyword("INTO") {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("GRAPH"); err != nil {
			return nil, err
		}
		g, err := p.parseIRIRefOrPName()
		if err != nil {
			return nil, err
		}
		iri := g.(quad.IRI)
		into = &iri
	}
	return algebra.Load{Source: src.(quad.IRI), Into: into, Silent: silent}, nil
}

func (p *parser) parseClearTarget() (algebra.ClearTarget, error) {
	switch {
	case p.isKeyword("DEFAULT"):
		return algebra.ClearTarget{Kind: algebra.ClearDefault}, p.next()
	case p.isKeyword("NAMED"):
		return algebra.ClearTarget{Kind: algebra.ClearNamed}, p.next()
	case p.isKeyword("ALL"):
		return algebra.ClearTarget{Kind: algebra.ClearAll}, p.next()
	default:
		if p.isKeyword("GRAPH") {
			if err := p.next(); err != nil {
				return algebra.ClearTarget{}, err
			}
		}
		iri, err := p.parseIRIRefOrPName()
		if err != nil {
			return algebra.ClearTarget{}, err
		}
		return algebra.ClearTarget{Kind: algebra.ClearGraph, Graph: iri.(quad.IRI)}, nil
	}
}

func (p *parser) parseClear() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	t, err := p.parseClearTarget()
	if err != nil {
		return nil, err
	}
	return algebra.Clear{Graph: t, Silent: silent}, nil
}

func (p *parser) parseDrop() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	t, err := p.parseClearTarget()
	if err != nil {
		return nil, err
	}
	return algebra.Drop{Graph: t, Silent: silent}, nil
}

func (p *parser) parseCreate() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("GRAPH"); err != nil {
		return nil, err
	}
	iri, err := p.parseIRIRefOrPName()
	if err != nil {
		return nil, err
	}
	return algebra.Create{Graph: iri.(quad.IRI), Silent: silent}, nil
}

func (p *parser) parseGraphOrDefaultTarget() (algebra.MoveTarget, error) {
	if p.isKeyword("DEFAULT") {
		return algebra.MoveTarget{IsDefault: true}, p.next()
	}
	if p.isKeyword("GRAPH") {
		if err := p.next(); err != nil {
			return algebra.MoveTarget{}, err
		}
	}
	iri, err := p.parseIRIRefOrPName()
	if err != nil {
		return algebra.MoveTarget{}, err
	}
	return algebra.MoveTarget{Graph: iri.(quad.IRI)}, nil
}

func (p *parser) parseAddMoveCopy(kw string) (algebra.UpdateOp, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	silent, err := p.parseSilent()
	if err != nil {
		return nil, err
	}
	from, err := p.parseGraphOrDefaultTarget()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	to, err := p.parseGraphOrDefaultTarget()
	if err != nil {
		return nil, err
	}
	switch kw {
	case "ADD":
		return algebra.Add{From: from, To: to, Silent: silent}, nil
	case "MOVE":
		return algebra.Move{From: from, To: to, Silent: silent}, nil
	default:
		return algebra.Copy{From: from, To: to, Silent: silent}, nil
	}
}

func (p *parser) parseInsertData() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil { // consume DATA
		return nil, err
	}
	quads, err := p.parseTemplateBraces(false)
	if err != nil {
		return nil, err
	}
	return algebra.DeleteInsert{Insert: quads}, nil
}

func (p *parser) parseDeleteData() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil { // consume DATA
		return nil, err
	}
	quads, err := p.parseTemplateBraces(false)
	if err != nil {
		return nil, err
	}
	return algebra.DeleteInsert{Delete: quads}, nil
}

func (p *parser) parseDeleteWhere() (algebra.UpdateOp, error) {
	if err := p.next(); err != nil { // consume WHERE
		return nil, err
	}
	quads, err := p.parseTemplateBraces(true)
	if err != nil {
		return nil, err
	}
	pattern := quadTemplatesToPattern(quads, nil, p.bnodeVarMap(quads, nil))
	return algebra.DeleteInsert{Delete: quads, Where: pattern}, nil
}

// parseModify parses the general DELETE {...} INSERT {...} [USING...]
// WHERE {...} form; at least one of Delete/Insert is present per the
// caller's entry point (deleteFirst selects which clause was already
// consumed by the caller when neither WITH nor a solitary clause applies).
func (p *parser) parseModify(withGraph *algebra.Term, deleteFirst bool) (algebra.UpdateOp, error) {
	var del, ins []algebra.QuadTemplate
	var err error
	if deleteFirst {
		del, err = p.parseTemplateBraces(true)
		if err != nil {
			return nil, err
		}
		if p.isKeyword("INSERT") {
			if err := p.next(); err != nil {
				return nil, err
			}
			ins, err = p.parseTemplateBraces(true)
			if err != nil {
				return nil, err
			}
		}
	} else {
		ins, err = p.parseTemplateBraces(true)
		if err != nil {
			return nil, err
		}
	}
	ds, err := p.parseUsingDataset()
	if err != nil {
		return nil, err
	}
	if withGraph != nil {
		if ds == nil {
			ds = &algebra.Dataset{}
		}
		ds.Default = append(ds.Default, withGraph.Value)
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return algebra.DeleteInsert{Delete: del, Insert: ins, Using: ds, Where: where}, nil
}

func (p *parser) parseUsingDataset() (*algebra.Dataset, error) {
	var ds *algebra.Dataset
	for p.isKeyword("USING") {
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
