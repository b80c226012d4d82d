package reactive

import (
	"slices"
	"testing"

	"github.com/go-playground/assert/v2"
)

// parent [a,b,c]; append 1,2 to a and 3,5 to b: merged {1,2,3,5}.
// b.Clear(): merged {1,2}.
func TestMergeManyListsWithClear(t *testing.T) {
	a := NewSourceList[int]()
	b := NewSourceList[int]()
	c := NewSourceList[int]()

	parent := NewSourceList[*SourceList[int]]()
	parent.Add(a, b, c)

	merged := MergeManyLists(parent.Connect(), func(item *SourceList[int]) Observable[*ListChangeSet[int]] {
		return item.Connect()
	})
	view := AsObservableList(merged)
	defer view.Dispose()

	a.Add(1, 2)
	b.Add(3, 5)

	assert.Equal(t, 4, view.Count())
	items := view.Items()
	slices.Sort(items)
	assert.Equal(t, []int{1, 2, 3, 5}, items)

	b.Clear()

	assert.Equal(t, 2, view.Count())
	items = view.Items()
	slices.Sort(items)
	assert.Equal(t, []int{1, 2}, items)
}

// removing a child from the parent withdraws everything it contributed
func TestMergeManyListsChildRemoval(t *testing.T) {
	a := NewSourceList[int]()
	b := NewSourceList[int]()
	a.Add(1, 2)
	b.Add(3)

	parent := NewSourceList[*SourceList[int]]()
	parent.Add(a, b)

	merged := MergeManyLists(parent.Connect(), func(item *SourceList[int]) Observable[*ListChangeSet[int]] {
		return item.Connect()
	})
	view := AsObservableList(merged)
	defer view.Dispose()

	items := view.Items()
	slices.Sort(items)
	assert.Equal(t, []int{1, 2, 3}, items)

	parent.Edit(func(updater *ListUpdater[*SourceList[int]]) {
		updater.RemoveAt(0)
	})

	assert.Equal(t, []int{3}, view.Items())

	// the removed child's later edits no longer reach the merged view
	a.Add(9)
	assert.Equal(t, []int{3}, view.Items())
}

func TestMergeManyListsLiveChild(t *testing.T) {
	parent := NewSourceList[*SourceList[int]]()

	merged := MergeManyLists(parent.Connect(), func(item *SourceList[int]) Observable[*ListChangeSet[int]] {
		return item.Connect()
	})
	view := AsObservableList(merged)
	defer view.Dispose()

	assert.Equal(t, 0, view.Count())

	// a child attached later contributes its snapshot
	a := NewSourceList[int]()
	a.Add(1)
	parent.Add(a)
	assert.Equal(t, []int{1}, view.Items())

	a.Edit(func(updater *ListUpdater[int]) {
		updater.Remove(1)
		updater.Add(2)
	})
	assert.Equal(t, []int{2}, view.Items())
}

func TestMergeManyListsDispose(t *testing.T) {
	a := NewSourceList[int]()
	a.Add(1)
	parent := NewSourceList[*SourceList[int]]()
	parent.Add(a)

	rec := newRecorder[*ListChangeSet[int]]()
	merged := MergeManyLists(parent.Connect(), func(item *SourceList[int]) Observable[*ListChangeSet[int]] {
		return item.Connect()
	})
	subscription := merged.Subscribe(rec.observer())

	assert.Equal(t, 1, len(rec.values))

	subscription.Dispose()
	subscription.Dispose()

	a.Add(2)
	assert.Equal(t, 1, len(rec.values))
}

func TestMergeManyCaches(t *testing.T) {
	a := newIntSource(1, 2)
	b := newIntSource(3)

	parent := NewSourceCache(func(value *SourceCache[int, int]) *SourceCache[int, int] {
		return value
	})
	parent.Edit(func(updater *CacheUpdater[*SourceCache[int, int], *SourceCache[int, int]]) {
		updater.Load(a, b)
	})

	merged := MergeManyCaches(parent.Connect(), func(value *SourceCache[int, int], key *SourceCache[int, int]) Observable[*ChangeSet[int, int]] {
		return value.Connect()
	})
	view := AsObservableCache(merged)
	defer view.Dispose()

	assert.Equal(t, []int{1, 2, 3}, sortedKeys(view))

	// live child changes flow through
	b.Edit(func(updater *CacheUpdater[int, int]) {
		updater.AddOrUpdate(4)
	})
	assert.Equal(t, []int{1, 2, 3, 4}, sortedKeys(view))

	// removing a child withdraws its keys
	parent.Edit(func(updater *CacheUpdater[*SourceCache[int, int], *SourceCache[int, int]]) {
		updater.RemoveKey(b)
	})
	assert.Equal(t, []int{1, 2}, sortedKeys(view))
}

func TestMergeManyCachesOverlap(t *testing.T) {
	a := newIntSource(1)
	b := newIntSource(1)

	parent := NewSourceCache(func(value *SourceCache[int, int]) *SourceCache[int, int] {
		return value
	})
	parent.Edit(func(updater *CacheUpdater[*SourceCache[int, int], *SourceCache[int, int]]) {
		updater.Load(a, b)
	})

	merged := MergeManyCaches(parent.Connect(), func(value *SourceCache[int, int], key *SourceCache[int, int]) Observable[*ChangeSet[int, int]] {
		return value.Connect()
	})
	view := AsObservableCache(merged)
	defer view.Dispose()

	assert.Equal(t, []int{1}, sortedKeys(view))

	// the key survives removal of one contributor
	parent.Edit(func(updater *CacheUpdater[*SourceCache[int, int], *SourceCache[int, int]]) {
		updater.RemoveKey(b)
	})
	assert.Equal(t, []int{1}, sortedKeys(view))

	parent.Edit(func(updater *CacheUpdater[*SourceCache[int, int], *SourceCache[int, int]]) {
		updater.RemoveKey(a)
	})
	assert.Equal(t, []int{}, sortedKeys(view))
}
