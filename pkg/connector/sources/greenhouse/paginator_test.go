package greenhouse

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResource is a scripted collection: a fixed sequence of pages plus a
// table of child collections keyed by parent id and relation name.
type fakeResource struct {
	name     string
	pages    [][]*models.Record
	children map[string]*fakeResource // key: parentID + "/" + relation

	cur          int
	getCalls     int
	getNextCalls int
	getErr       error
	getNextErr   error
	gotParams    url.Values
}

func (f *fakeResource) Name() string { return f.name }

func (f *fakeResource) Get(_ context.Context, params url.Values) ([]*models.Record, error) {
	f.getCalls++
	f.gotParams = params
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.cur = 0
	if len(f.pages) == 0 {
		return nil, nil
	}
	return f.pages[0], nil
}

func (f *fakeResource) GetNext(_ context.Context) ([]*models.Record, error) {
	f.getNextCalls++
	if f.getNextErr != nil {
		return nil, f.getNextErr
	}
	f.cur++
	return f.pages[f.cur], nil
}

func (f *fakeResource) RecordsRemaining() bool {
	return f.cur < len(f.pages)-1
}

func (f *fakeResource) Child(parentID, relation string) (resourceAccessor, error) {
	child, ok := f.children[parentID+"/"+relation]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "no child %s for parent %s", relation, parentID)
	}
	return child, nil
}

func rec(id int) *models.Record {
	r := models.NewRecord("test", map[string]interface{}{"id": id})
	return r
}

func recs(ids ...int) []*models.Record {
	out := make([]*models.Record, len(ids))
	for i, id := range ids {
		out[i] = rec(id)
	}
	return out
}

func drain(t *testing.T, it *Iterator) []int {
	t.Helper()
	var ids []int
	for it.Next(context.Background()) {
		raw, ok := it.Record().GetData("id")
		require.True(t, ok)
		ids = append(ids, raw.(int))
	}
	return ids
}

func TestIteratorPagesThroughRoot(t *testing.T) {
	res := &fakeResource{name: "candidates", pages: [][]*models.Record{
		recs(1, 2, 3),
		recs(4, 5),
		recs(6),
	}}

	it := newTraversal(res, nil, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids)
	assert.Equal(t, 1, res.getCalls)
	assert.Equal(t, 2, res.getNextCalls)
}

func TestIteratorEmptyCollection(t *testing.T) {
	res := &fakeResource{name: "offers"}

	it := newTraversal(res, nil, url.Values{})

	assert.False(t, it.Next(context.Background()))
	assert.NoError(t, it.Err())
	assert.Nil(t, it.Record())
	// Exhausted iterators stay exhausted.
	assert.False(t, it.Next(context.Background()))
}

func TestIteratorPassesRootParams(t *testing.T) {
	res := &fakeResource{name: "jobs", pages: [][]*models.Record{recs(1)}}

	params := url.Values{"status": []string{"open"}}
	it := newTraversal(res, nil, params)
	drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, "open", res.gotParams.Get("status"))
}

func TestIteratorNestedParentMajor(t *testing.T) {
	// Three parents, two nested records each. Only the nested records come
	// out, grouped by parent in parent order.
	parents := &fakeResource{
		name:  "applications",
		pages: [][]*models.Record{recs(1, 2, 3)},
		children: map[string]*fakeResource{
			"1/interviews": {name: "interviews", pages: [][]*models.Record{recs(11, 12)}},
			"2/interviews": {name: "interviews", pages: [][]*models.Record{recs(21, 22)}},
			"3/interviews": {name: "interviews", pages: [][]*models.Record{recs(31, 32)}},
		},
	}

	it := newTraversal(parents, []string{"interviews"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{11, 12, 21, 22, 31, 32}, ids)
}

func TestIteratorNestedRecursesAcrossParentPages(t *testing.T) {
	// Parents arrive on two pages; both pages' records must be descended
	// into, not emitted raw.
	parents := &fakeResource{
		name: "jobs",
		pages: [][]*models.Record{
			recs(1),
			recs(2),
		},
		children: map[string]*fakeResource{
			"1/openings": {name: "openings", pages: [][]*models.Record{recs(10)}},
			"2/openings": {name: "openings", pages: [][]*models.Record{recs(20)}},
		},
	}

	it := newTraversal(parents, []string{"openings"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{10, 20}, ids)
	assert.Equal(t, 1, parents.getNextCalls)
}

func TestIteratorNestedChildPagination(t *testing.T) {
	parents := &fakeResource{
		name:  "applications",
		pages: [][]*models.Record{recs(1)},
		children: map[string]*fakeResource{
			"1/interviews": {name: "interviews", pages: [][]*models.Record{
				recs(11, 12),
				recs(13),
			}},
		},
	}

	it := newTraversal(parents, []string{"interviews"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{11, 12, 13}, ids)
}

func TestIteratorNestedSkipsChildlessParents(t *testing.T) {
	parents := &fakeResource{
		name:  "applications",
		pages: [][]*models.Record{recs(1, 2, 3)},
		children: map[string]*fakeResource{
			"1/interviews": {name: "interviews", pages: [][]*models.Record{recs(11)}},
			"2/interviews": {name: "interviews"}, // no records
			"3/interviews": {name: "interviews", pages: [][]*models.Record{recs(31)}},
		},
	}

	it := newTraversal(parents, []string{"interviews"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{11, 31}, ids)
}

func TestIteratorTwoLevelChain(t *testing.T) {
	leafA := &fakeResource{name: "options", pages: [][]*models.Record{recs(111, 112)}}
	leafB := &fakeResource{name: "options", pages: [][]*models.Record{recs(121)}}
	mid := &fakeResource{
		name:  "answers",
		pages: [][]*models.Record{recs(11, 12)},
		children: map[string]*fakeResource{
			"11/options": leafA,
			"12/options": leafB,
		},
	}
	root := &fakeResource{
		name:  "questions",
		pages: [][]*models.Record{recs(1)},
		children: map[string]*fakeResource{
			"1/answers": mid,
		},
	}

	it := newTraversal(root, []string{"answers", "options"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, []int{111, 112, 121}, ids)
}

func TestIteratorRootErrorStops(t *testing.T) {
	res := &fakeResource{
		name:   "candidates",
		getErr: errors.New(errors.ErrorTypeConnection, "boom"),
	}

	it := newTraversal(res, nil, url.Values{})

	assert.False(t, it.Next(context.Background()))
	require.Error(t, it.Err())
	assert.True(t, errors.IsType(it.Err(), errors.ErrorTypeConnection))
}

func TestIteratorNestedErrorStopsAfterPartialYield(t *testing.T) {
	parents := &fakeResource{
		name:  "applications",
		pages: [][]*models.Record{recs(1, 2)},
		children: map[string]*fakeResource{
			"1/interviews": {name: "interviews", pages: [][]*models.Record{recs(11)}},
			"2/interviews": {name: "interviews", getErr: errors.New(errors.ErrorTypePermission, "forbidden")},
		},
	}

	it := newTraversal(parents, []string{"interviews"}, url.Values{})

	var ids []int
	for it.Next(context.Background()) {
		raw, _ := it.Record().GetData("id")
		ids = append(ids, raw.(int))
	}

	assert.Equal(t, []int{11}, ids)
	require.Error(t, it.Err())
	assert.True(t, errors.IsPermission(it.Err()))
}

func TestIteratorMissingParentID(t *testing.T) {
	bad := models.NewRecord("test", map[string]interface{}{"name": "no id here"})
	parents := &fakeResource{
		name:  "applications",
		pages: [][]*models.Record{{bad}},
	}

	it := newTraversal(parents, []string{"interviews"}, url.Values{})

	assert.False(t, it.Next(context.Background()))
	require.Error(t, it.Err())
	assert.True(t, errors.IsType(it.Err(), errors.ErrorTypeData))
}

func TestIteratorContextCancel(t *testing.T) {
	res := &fakeResource{name: "candidates", pages: [][]*models.Record{recs(1, 2, 3)}}

	ctx, cancel := context.WithCancel(context.Background())
	it := newTraversal(res, nil, url.Values{})

	require.True(t, it.Next(ctx))
	cancel()

	assert.False(t, it.Next(ctx))
	require.Error(t, it.Err())
}

func TestIteratorLargeNestedFanout(t *testing.T) {
	// 40 parents across 4 pages, 3 nested records each.
	children := make(map[string]*fakeResource, 40)
	var pages [][]*models.Record
	want := make([]int, 0, 120)
	id := 0
	for p := 0; p < 4; p++ {
		var page []*models.Record
		for i := 0; i < 10; i++ {
			id++
			page = append(page, rec(id))
			base := id * 100
			children[fmt.Sprintf("%d/interviews", id)] = &fakeResource{
				name:  "interviews",
				pages: [][]*models.Record{recs(base + 1, base + 2, base + 3)},
			}
			want = append(want, base+1, base+2, base+3)
		}
		pages = append(pages, page)
	}

	parents := &fakeResource{name: "applications", pages: pages, children: children}
	it := newTraversal(parents, []string{"interviews"}, url.Values{})
	ids := drain(t, it)

	require.NoError(t, it.Err())
	assert.Equal(t, want, ids)
}
