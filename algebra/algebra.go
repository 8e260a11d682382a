// Package algebra defines the SPARQL 1.1 algebra tree (spec §3.5): the
// Query/Update entities the parser produces, the optimizer rewrites, and
// the engine evaluates. It holds no evaluation logic of its own.
package algebra

import (
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/quad"
)

// Var names a SPARQL variable within a solution binding.
type Var string

// QueryForm distinguishes the four SPARQL query forms.
type QueryForm int

const (
	Select QueryForm = iota
	Construct
	Describe
	Ask
)

// Dataset is the FROM / FROM NAMED clause: the default-graph set and the
// named-graph set a query is evaluated against. A nil/empty Dataset means
// "the whole store" (every graph, default included).
type Dataset struct {
	Default []quad.Value
	Named   []quad.Value
}

// Query is the top-level algebra value the parser produces for a SELECT,
// CONSTRUCT, DESCRIBE, or ASK request (spec §3.5).
type Query struct {
	Form     QueryForm
	Dataset  *Dataset
	Pattern  GraphPattern
	Template []QuadTemplate // CONSTRUCT triple template, resolved against each solution at eval time
	Describe []Var          // DESCRIBE target variables/IRIs, resolved at eval time
}

// GraphPattern is the graph-pattern algebra tree (spec §3.5). Each node
// variant is its own Go type; callers dispatch on it with a type switch.
type GraphPattern interface {
	graphPattern()
}

// QuadPattern matches quads where any of S/P/O/G may be a bound term or
// an unbound Var (nil term + set Var name).
type QuadPattern struct {
	Subject, Predicate, Object, Graph Term
}

// Term is either a fixed RDF term (Value set, Var empty) or a variable
// (Var set, Value nil).
type Term struct {
	Value quad.Value
	Var   Var
}

func (t Term) Bound() bool   { return t.Value != nil }
func (t Term) Variable() Var { return t.Var }

// Path is a property-path pattern (spec §4.H.7): (Subject, Path, Object)
// evaluated within Graph (the default graph unless wrapped in GRAPH <g>).
type Path struct {
	Subject, Object Term
	Expr            PathExpr
	Graph           Term
}

// PathExpr is a property path expression tree.
type PathExpr interface{ pathExpr() }

type PathPredicate struct{ IRI quad.IRI }
type PathInverse struct{ Path PathExpr }
type PathSeq struct{ Left, Right PathExpr }
type PathAlt struct{ Left, Right PathExpr }
type PathZeroOrMore struct{ Path PathExpr }
type PathOneOrMore struct{ Path PathExpr }
type PathZeroOrOne struct{ Path PathExpr }
type PathNegatedSet struct{ IRIs []quad.IRI }

func (PathPredicate) pathExpr()   {}
func (PathInverse) pathExpr()     {}
func (PathSeq) pathExpr()         {}
func (PathAlt) pathExpr()         {}
func (PathZeroOrMore) pathExpr()  {}
func (PathOneOrMore) pathExpr()   {}
func (PathZeroOrOne) pathExpr()   {}
func (PathNegatedSet) pathExpr()  {}

// Join is an inner join of two patterns (the BGP default combinator).
type Join struct{ Left, Right GraphPattern }

// LeftJoin is SPARQL OPTIONAL: Left augmented with Right where a join
// condition (may be nil) holds.
type LeftJoin struct {
	Left, Right GraphPattern
	Expr        expr.Expr
}

// Lateral evaluates Right once per solution of Left, with Left's
// bindings visible inside Right (used to desugar VALUES-as-subquery and
// certain SERVICE forms).
type Lateral struct{ Left, Right GraphPattern }

// Filter drops solutions of Inner for which Expr is false or errors.
type Filter struct {
	Inner GraphPattern
	Expr  expr.Expr
}

// Union concatenates the solutions of every child.
type Union struct{ Children []GraphPattern }

// Extend binds Var to the result of Expr for every solution of Inner.
type Extend struct {
	Inner GraphPattern
	Var   Var
	Expr  expr.Expr
}

// Minus removes from Left any solution compatible with, and sharing a
// bound variable with, some solution of Right.
type Minus struct{ Left, Right GraphPattern }

// Values is an inline VALUES clause: a fixed list of solutions over Vars.
type Values struct {
	Vars []Var
	Rows [][]quad.Value // nil entry in a row = UNDEF
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr expr.Expr
	Desc bool
}

// OrderBy sorts Inner's solutions by Conditions.
type OrderBy struct {
	Inner      GraphPattern
	Conditions []OrderCondition
}

// Project keeps only Vars from each solution.
type Project struct {
	Inner GraphPattern
	Vars  []Var
}

// Distinct removes duplicate solutions (by their full binding).
type Distinct struct{ Inner GraphPattern }

// Reduced permits (but does not require) duplicate removal.
type Reduced struct{ Inner GraphPattern }

// Slice implements OFFSET/LIMIT.
type Slice struct {
	Inner       GraphPattern
	Start, Len  int
	HasLen      bool
}

// Aggregation is one aggregate expression bound to a result variable,
// e.g. (COUNT(?x) AS ?n).
type Aggregation struct {
	Var  Var
	Func expr.AggFunc
	Expr expr.Expr // nil for COUNT(*)
	Distinct bool
	Separator string // GROUP_CONCAT only
}

// Group partitions Inner's solutions by Keys and emits one solution per
// group carrying every Aggregation's result.
type Group struct {
	Inner GraphPattern
	Keys  []expr.Expr
	Aggs  []Aggregation
}

// Service evaluates Inner against the registered handler for Name (an
// IRI, possibly itself a variable for SERVICE ?var forms — represented
// here as Term with Var set).
type Service struct {
	Name   Term
	Inner  GraphPattern
	Silent bool
}

func (QuadPattern) graphPattern() {}
func (Path) graphPattern()        {}
func (Join) graphPattern()        {}
func (LeftJoin) graphPattern()    {}
func (Lateral) graphPattern()     {}
func (Filter) graphPattern()      {}
func (Union) graphPattern()       {}
func (Extend) graphPattern()      {}
func (Minus) graphPattern()       {}
func (Values) graphPattern()      {}
func (OrderBy) graphPattern()     {}
func (Project) graphPattern()     {}
func (Distinct) graphPattern()    {}
func (Reduced) graphPattern()     {}
func (Slice) graphPattern()       {}
func (Group) graphPattern()       {}
func (Service) graphPattern()     {}

// Update is an ordered list of update operations (spec §3.5); the whole
// list runs in one transaction (spec §4.I).
type Update struct {
	Operations []UpdateOp
}

// UpdateOp is one SPARQL Update Language operation.
type UpdateOp interface{ updateOp() }

// DeleteInsert is the general DELETE/INSERT WHERE form; Delete and
// Insert are triple templates (may reference Where's variables), Using
// is the optional USING/USING NAMED dataset, Where is the pattern whose
// solutions feed both templates.
type DeleteInsert struct {
	Delete, Insert []QuadTemplate
	Using          *Dataset
	Where          GraphPattern
}

// QuadTemplate is a triple/quad template term: either fixed or a
// variable reference, resolved per-solution during update execution.
type QuadTemplate struct {
	Subject, Predicate, Object, Graph Term
}

type Load struct {
	Source quad.IRI
	Into   *quad.IRI
	Silent bool
}
type Clear struct {
	Graph  ClearTarget
	Silent bool
}
type Create struct {
	Graph  quad.IRI
	Silent bool
}
type Drop struct {
	Graph  ClearTarget
	Silent bool
}
type Add struct {
	From, To MoveTarget
	Silent   bool
}
type Move struct {
	From, To MoveTarget
	Silent   bool
}
type Copy struct {
	From, To MoveTarget
	Silent   bool
}

// ClearTarget selects DEFAULT, NAMED, ALL, or one named graph.
type ClearTarget struct {
	Kind  ClearKind
	Graph quad.IRI
}

type ClearKind int

const (
	ClearDefault ClearKind = iota
	ClearNamed
	ClearAll
	ClearGraph
)

// MoveTarget selects DEFAULT or a named graph for ADD/MOVE/COPY.
type MoveTarget struct {
	IsDefault bool
	Graph     quad.IRI
}

func (DeleteInsert) updateOp() {}
func (Load) updateOp()         {}
func (Clear) updateOp()        {}
func (Create) updateOp()       {}
func (Drop) updateOp()         {}
func (Add) updateOp()          {}
func (Move) updateOp()         {}
func (Copy) updateOp()         {}
