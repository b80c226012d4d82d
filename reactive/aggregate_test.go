package reactive

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

type reading struct {
	id    int
	value int
}

func readingKey(value *reading) int {
	return value.id
}

func readingValue(value *reading) int {
	return value.value
}

// values [3,7,5]: emissions 3, 7. Remove the 7: emission 5.
// Remove the rest: emission emptyValue.
func TestMaximumWithRemove(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Maximum(source.Connect(), readingValue, -1).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 1, value: 3})
	})
	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 2, value: 7})
	})
	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 3, value: 5})
	})
	// adding 5 does not move the maximum: consecutive duplicate suppressed
	assert.Equal(t, []int{3, 7}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RemoveKey(2)
	})
	assert.Equal(t, []int{3, 7, 5}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RemoveKey(1)
		updater.RemoveKey(3)
	})
	assert.Equal(t, []int{3, 7, 5, -1}, rec.values)
}

func TestMaximumUpdateMovesDown(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Maximum(source.Connect(), readingValue, 0).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.Load(
			&reading{id: 1, value: 10},
			&reading{id: 2, value: 4},
		)
	})
	assert.Equal(t, []int{10}, rec.values)

	// updating the current maximum downward rescans the collection
	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 1, value: 2})
	})
	assert.Equal(t, []int{10, 4}, rec.values)
}

func TestMinimum(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Minimum(source.Connect(), readingValue, 0).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.Load(
			&reading{id: 1, value: 3},
			&reading{id: 2, value: 7},
		)
	})
	assert.Equal(t, []int{3}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 3, value: 1})
	})
	assert.Equal(t, []int{3, 1}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RemoveKey(3)
	})
	assert.Equal(t, []int{3, 1, 3}, rec.values)
}

// aggregate operators never emit two consecutive equal values
func TestCountDistinct(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Count(source.Connect()).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.Load(
			&reading{id: 1, value: 3},
			&reading{id: 2, value: 7},
		)
	})
	assert.Equal(t, []int{2}, rec.values)

	// an update keeps the count: suppressed
	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 1, value: 4})
	})
	assert.Equal(t, []int{2}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RemoveKey(1)
	})
	assert.Equal(t, []int{2, 1}, rec.values)
}

func TestSum(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Sum(source.Connect(), readingValue).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.Load(
			&reading{id: 1, value: 3},
			&reading{id: 2, value: 7},
		)
	})
	assert.Equal(t, []int{10}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 1, value: 5})
	})
	assert.Equal(t, []int{10, 12}, rec.values)

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RemoveKey(2)
	})
	assert.Equal(t, []int{10, 12, 5}, rec.values)

	// a refresh is not a data change: suppressed
	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.RefreshKey(1)
	})
	assert.Equal(t, []int{10, 12, 5}, rec.values)
}

func TestMaximumCompletes(t *testing.T) {
	source := NewSourceCache(readingKey)
	rec := newRecorder[int]()
	subscription := Maximum(source.Connect(), readingValue, 0).Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *CacheUpdater[int, *reading]) {
		updater.AddOrUpdate(&reading{id: 1, value: 3})
	})
	source.Complete()

	// the last value was already emitted; completion follows it
	assert.Equal(t, []int{3}, rec.values)
	assert.Equal(t, 1, rec.completed)
}
