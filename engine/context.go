package engine

import (
	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/expr"
	"github.com/quadgraph/qgdb/internal/qerrors"
	"github.com/quadgraph/qgdb/service"
	"github.com/quadgraph/qgdb/store"
)

// Limits bounds one evaluation (spec §6.3's closed option set: timeout is
// enforced by the caller's ctx deadline, not here).
type Limits struct {
	MaxResultRows      int
	MaxGroups          int
	MaxPropertyPathDepth int
	MaxMemoryBytes     int64
}

func (l Limits) rows() int {
	if l.MaxResultRows <= 0 {
		return 0
	}
	return l.MaxResultRows
}

func (l Limits) groups() int {
	if l.MaxGroups <= 0 {
		return 0
	}
	return l.MaxGroups
}

func (l Limits) pathDepth() int {
	if l.MaxPropertyPathDepth <= 0 {
		return 1 << 30
	}
	return l.MaxPropertyPathDepth
}

// Context carries everything one Eval call needs beyond the pattern tree
// itself (spec §6.1's query options, minus use_default_graph_as_union and
// without_optimizations, which the caller applies before/around Eval).
type Context struct {
	Reader   *store.Reader
	Dataset  *algebra.Dataset
	Funcs    *expr.Registry
	Services *service.Registry
	Limits   Limits
	BaseIRI  string
}

func rowLimitErr(n int) error {
	return qerrors.LimitExceeded(qerrors.LimitMaxRows, "result set exceeded %d rows", n)
}

func groupLimitErr(n int) error {
	return qerrors.LimitExceeded(qerrors.LimitMaxGroups, "exceeded %d groups", n)
}

func pathDepthErr(n int) error {
	return qerrors.LimitExceeded(qerrors.LimitMaxPathDepth, "property path exceeded %d steps", n)
}

func evalErr(format string, args ...interface{}) error {
	return qerrors.New(qerrors.EvaluationError, format, args...)
}
