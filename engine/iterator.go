package engine

import "context"

// Iterator yields Solutions one at a time. Next reports whether Solution
// now holds a valid row; it returns false at end of stream or on error
// (distinguished by Err). Grounded on Cayley's graph/iterator.Chain pull
// protocol (Next(ctx) bool / Result() / Err() / Close()), generalized
// from a single value to a solution map so cancellation stays cooperative
// (spec §5): every concrete Iterator below checks ctx at each Next.
type Iterator interface {
	Next(ctx context.Context) bool
	Solution() Solution
	Err() error
	Close() error
}

// sliceIterator replays a materialized row set. Several operators (Group,
// OrderBy, Distinct, property paths) must see every input row before
// producing their first output row, so they build one of these rather
// than remaining lazy.
type sliceIterator struct {
	rows []Solution
	pos  int
	err  error
}

func newSliceIterator(rows []Solution) *sliceIterator {
	return &sliceIterator{rows: rows, pos: -1}
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	select {
	case <-ctx.Done():
		it.err = ctx.Err()
		return false
	default:
	}
	if it.pos+1 >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Solution() Solution { return it.rows[it.pos] }
func (it *sliceIterator) Err() error          { return it.err }
func (it *sliceIterator) Close() error        { return nil }

// drain pulls every remaining row out of it into a slice, respecting
// maxRows (spec §6.3 limits.max_result_rows; 0 means unbounded).
func drain(ctx context.Context, it Iterator, maxRows int) ([]Solution, error) {
	var out []Solution
	for it.Next(ctx) {
		out = append(out, it.Solution())
		if maxRows > 0 && len(out) > maxRows {
			return nil, rowLimitErr(maxRows)
		}
	}
	return out, it.Err()
}
