package greenhouse

import (
	"context"
	"net/url"

	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/models"
)

// Iterator walks one entity's record stream lazily. For a plain entity it
// pages through the root collection; for a compound entity it descends
// through each parent record's nested relation chain, yielding only the
// deepest level, parent-major: all of one parent's nested records before
// the next parent's.
//
// Usage follows the sql.Rows pattern:
//
//	it := source.List(ctx, "applications.interviews", nil)
//	for it.Next(ctx) {
//	    rec := it.Record()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// The first error encountered stops the iterator; records yielded before
// the failure remain valid.
type Iterator struct {
	frames []*traversalFrame

	cur  *models.Record
	err  error
	done bool
}

// traversalFrame is one level of the depth-first walk: a collection being
// paged through plus the relation chain still to descend below its records.
type traversalFrame struct {
	res     resourceAccessor
	chain   []string
	params  url.Values
	fetched bool
	batch   []*models.Record
	idx     int
}

// newTraversal starts a depth-first walk at the given root collection.
// Filter params apply to the root request only; nested requests carry just
// the fixed page size.
func newTraversal(root resourceAccessor, chain []string, params url.Values) *Iterator {
	return &Iterator{
		frames: []*traversalFrame{{res: root, chain: chain, params: params}},
	}
}

// Next advances to the next record. It returns false when the stream is
// exhausted or an error occurred; check Err afterwards.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	for len(it.frames) > 0 {
		if ctx.Err() != nil {
			it.fail(errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "traversal cancelled"))
			return false
		}

		f := it.frames[len(it.frames)-1]

		if !f.fetched {
			batch, err := f.res.Get(ctx, f.params)
			if err != nil {
				it.fail(err)
				return false
			}
			f.fetched = true
			f.batch = batch
			f.idx = 0
		}

		if f.idx < len(f.batch) {
			rec := f.batch[f.idx]
			f.idx++

			if len(f.chain) == 0 {
				it.cur = rec
				return true
			}

			// Descend: push the nested collection for this parent record.
			id, ok := rec.ID()
			if !ok {
				it.fail(errors.Newf(errors.ErrorTypeData,
					"record from %s has no usable id for nested traversal", f.res.Name()))
				return false
			}
			child, err := f.res.Child(id, f.chain[0])
			if err != nil {
				it.fail(err)
				return false
			}
			it.frames = append(it.frames, &traversalFrame{res: child, chain: f.chain[1:]})
			continue
		}

		// Batch drained. Keep paging this level, or pop back to the parent.
		if f.res.RecordsRemaining() {
			batch, err := f.res.GetNext(ctx)
			if err != nil {
				it.fail(err)
				return false
			}
			f.batch = batch
			f.idx = 0
			continue
		}

		it.frames = it.frames[:len(it.frames)-1]
	}

	it.done = true
	it.cur = nil
	return false
}

// Record returns the record produced by the last successful Next call.
func (it *Iterator) Record() *models.Record {
	return it.cur
}

// Err returns the error that stopped the iterator, if any.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.cur = nil
	it.frames = nil
	it.done = true
}
