// Package expr implements the SPARQL 1.1 expression tree and evaluator
// (spec §4.G): eval(expr, binding) -> term | error, with three-valued
// FILTER semantics and the full built-in function library.
package expr

import "github.com/quadgraph/qgdb/quad"

// Var names a variable reference within an expression; kept as a plain
// string (rather than importing algebra.Var) to avoid an import cycle
// between expr and algebra.
type Var string

// Expr is one node of a SPARQL expression tree.
type Expr interface{ expr() }

// Term is a fixed RDF term literal appearing directly in an expression.
type Term struct{ Value quad.Value }

// VarRef looks up a variable's binding.
type VarRef struct{ Name Var }

// BuiltinOp enumerates built-in operators and functions (spec §4.G).
type BuiltinOp int

const (
	OpOr BuiltinOp = iota
	OpAnd
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpUnaryPlus
	OpUnaryMinus
	OpSameTerm
	OpIsIRI
	OpIsBlank
	OpIsLiteral
	OpIsNumeric
	OpBound
	OpIf
	OpCoalesce
	OpIn
	OpNotIn
	OpLang
	OpLangMatches
	OpDatatype
	OpStr
	OpIRIFunc
	OpBNodeFunc
	OpUUID
	OpStrUUID
	OpStrLen
	OpSubstr
	OpUCase
	OpLCase
	OpStrStarts
	OpStrEnds
	OpContains
	OpStrBefore
	OpStrAfter
	OpEncodeForURI
	OpConcat
	OpReplace
	OpRegex
	OpAbs
	OpCeil
	OpFloor
	OpRound
	OpRand
	OpNow
	OpYear
	OpMonth
	OpDay
	OpHours
	OpMinutes
	OpSeconds
	OpTimezone
	OpTZ
	OpMD5
	OpSHA1
	OpSHA256
	OpSHA384
	OpSHA512
)

// Call is a built-in function/operator application.
type Call struct {
	Op   BuiltinOp
	Args []Expr
}

// CustomCall invokes a registered custom function by IRI (spec §4.G
// "custom-function registry is a required extension point").
type CustomCall struct {
	IRI  string
	Args []Expr
}

// Exists is EXISTS{...} / NOT EXISTS{...}. Pattern is algebra.GraphPattern
// stored as interface{} to avoid an expr<->algebra import cycle; the
// engine package (which imports both) performs the type assertion.
type Exists struct {
	Pattern interface{}
	Negated bool
}

func (Term) expr()       {}
func (VarRef) expr()     {}
func (Call) expr()       {}
func (CustomCall) expr() {}
func (Exists) expr()     {}

// AggFunc enumerates SPARQL aggregate functions (spec §4.G, §4.H.8).
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggAvg
	AggSample
	AggGroupConcat
)

// AggregateCall is an aggregate function applied in an expression context
// outside the SELECT list (e.g. directly inside HAVING or ORDER BY), as
// opposed to the common (AGG(...) AS ?v) form the parser lifts straight
// into a Group's Aggregation list. Eval cannot compute this alone, since
// it needs the whole group's row set rather than one binding, and the
// engine does not lift it into a Group either: evaluating an expression
// that contains an AggregateCall fails with an evaluation error.
type AggregateCall struct {
	Func      AggFunc
	Arg       Expr // nil for COUNT(*)
	Distinct  bool
	Separator string
}

func (AggregateCall) expr() {}
