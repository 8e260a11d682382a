package store

import (
	"github.com/quadgraph/qgdb/internal/clog"
	"github.com/quadgraph/qgdb/quad"
)

// BulkLoader trades transactional guarantees for ingest throughput (spec
// §4.D "BulkLoader"): it batches writes into separate transactions rather
// than holding one exclusive write lock across an entire stream. On a
// fatal mid-stream error the store is left quad-consistent (every
// committed batch keeps all six permutations and the graphs family in
// agreement) but may reflect only a prefix of the input.
type BulkLoader struct {
	store     *Store
	batchSize int

	// Stats, accumulated across LoadQuads calls.
	Inserted int
	Skipped  int
}

// LoadQuads drains quads, committing every batchSize quads as one
// transaction. Between batches, partial results are visible to readers
// (spec §4.D).
func (bl *BulkLoader) LoadQuads(quads func(yield func(quad.Quad) bool)) error {
	batch := make([]quad.Quad, 0, bl.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := bl.store.Update(func(w *Writer) error {
			for _, q := range batch {
				ok, err := w.Insert(q)
				if err != nil {
					return err
				}
				if ok {
					bl.Inserted++
				} else {
					bl.Skipped++
				}
			}
			return nil
		})
		batch = batch[:0]
		return err
	}

	var loopErr error
	quads(func(q quad.Quad) bool {
		if err := q.IsValid(); err != nil {
			loopErr = err
			return false
		}
		batch = append(batch, q)
		if len(batch) >= bl.batchSize {
			if err := flush(); err != nil {
				loopErr = err
				return false
			}
		}
		return true
	})
	if loopErr != nil {
		clog.Warningf("store: bulk load aborted after %d inserted, %d skipped: %v", bl.Inserted, bl.Skipped, loopErr)
		return loopErr
	}
	if err := flush(); err != nil {
		clog.Warningf("store: bulk load final batch failed after %d inserted, %d skipped: %v", bl.Inserted, bl.Skipped, err)
		return err
	}
	clog.Infof("store: bulk load complete: %d inserted, %d skipped", bl.Inserted, bl.Skipped)
	return nil
}
