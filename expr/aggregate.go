package expr

import (
	"strings"

	"github.com/quadgraph/qgdb/quad"
)

// Accumulator folds one aggregate function's state across a group's
// solutions (spec §4.H.8).
type Accumulator struct {
	Func      AggFunc
	Distinct  bool
	Separator string

	count   int
	sum     float64
	sumType quad.IRI
	min     quad.Value
	max     quad.Value
	sample  quad.Value
	parts   []string
	seen    map[string]bool
}

// NewAccumulator starts a fresh accumulator for fn.
func NewAccumulator(fn AggFunc, distinct bool, separator string) *Accumulator {
	if separator == "" {
		separator = " "
	}
	return &Accumulator{Func: fn, Distinct: distinct, Separator: separator, seen: map[string]bool{}}
}

// Add folds in one value; v may be nil for COUNT(*) over an unbound
// expression, which still counts the solution.
func (a *Accumulator) Add(v quad.Value) {
	if a.Distinct && v != nil {
		key := quad.StringOf(v)
		if a.seen[key] {
			return
		}
		a.seen[key] = true
	}
	switch a.Func {
	case AggCount:
		a.count++
	case AggSum, AggAvg:
		if f, ok := numeric(v); ok {
			a.sum += f
			a.sumType = promote(a.sumType, numericType(v))
			a.count++
		}
	case AggMin:
		if v == nil {
			return
		}
		if a.min == nil {
			a.min = v
			return
		}
		if cmp, err := Compare(v, a.min); err == nil && cmp < 0 {
			a.min = v
		}
	case AggMax:
		if v == nil {
			return
		}
		if a.max == nil {
			a.max = v
			return
		}
		if cmp, err := Compare(v, a.max); err == nil && cmp > 0 {
			a.max = v
		}
	case AggSample:
		if a.sample == nil && v != nil {
			a.sample = v
		}
	case AggGroupConcat:
		if v != nil {
			a.parts = append(a.parts, lexical(v))
		}
	}
}

// Result returns the aggregate's final value.
func (a *Accumulator) Result() quad.Value {
	switch a.Func {
	case AggCount:
		return numTerm(float64(a.count), xsd("integer"))
	case AggSum:
		typ := a.sumType
		if typ == "" {
			typ = xsd("integer")
		}
		return numTerm(a.sum, typ)
	case AggAvg:
		if a.count == 0 {
			return numTerm(0, xsd("integer"))
		}
		return numTerm(a.sum/float64(a.count), xsd("decimal"))
	case AggMin:
		return a.min
	case AggMax:
		return a.max
	case AggSample:
		return a.sample
	case AggGroupConcat:
		return quad.XSDString(strings.Join(a.parts, a.Separator))
	default:
		return nil
	}
}
