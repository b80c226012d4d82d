package reactive

import (
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

type device struct {
	name    string
	ownerId int
}

func deviceKey(value *device) string {
	return value.name
}

func deviceOwner(value *device) int {
	return value.ownerId
}

// left {1->L1, 2->L2}, right {r->1, s->2}. Remove right s: key 2 falls
// back to None. Remove left 1: key 1 disappears.
func TestLeftJoin(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.Load(
			&person{id: 1, name: "L1"},
			&person{id: 2, name: "L2"},
		)
	})
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.Load(
			&device{name: "r", ownerId: 1},
			&device{name: "s", ownerId: 2},
		)
	})

	joined := LeftJoin(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue *person, rightValue Optional[*device]) string {
			if rightValue.Present() {
				return fmt.Sprintf("%s+%s", leftValue.name, rightValue.Value().name)
			}
			return leftValue.name
		},
	)
	view := AsObservableCache(joined)
	defer view.Dispose()

	assert.Equal(t, 2, view.Count())
	assert.Equal(t, "L1+r", view.Lookup(1).Value())
	assert.Equal(t, "L2+s", view.Lookup(2).Value())

	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.RemoveKey("s")
	})
	assert.Equal(t, "L2", view.Lookup(2).Value())

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.RemoveKey(1)
	})
	assert.Equal(t, false, view.Lookup(1).Present())
	// join completeness: exactly the left keys remain
	assert.Equal(t, []int{2}, view.Keys())
}

func TestLeftJoinRightWithoutLeft(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)

	joined := LeftJoin(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue *person, rightValue Optional[*device]) string {
			return leftValue.name
		},
	)
	rec := newRecorder[*ChangeSet[int, string]]()
	subscription := joined.Subscribe(rec.observer())
	defer subscription.Dispose()

	// a right value with no matching left emits nothing
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.AddOrUpdate(&device{name: "r", ownerId: 1})
	})
	assert.Equal(t, 0, len(rec.values))

	// the left arrival joins it in
	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.AddOrUpdate(&person{id: 1, name: "L1"})
	})
	assert.Equal(t, 1, len(rec.values))
}

func TestLeftJoinRekeyedUpdate(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.Load(
			&person{id: 1, name: "L1"},
			&person{id: 2, name: "L2"},
		)
	})
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.AddOrUpdate(&device{name: "r", ownerId: 1})
	})

	joined := LeftJoin(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue *person, rightValue Optional[*device]) string {
			if rightValue.Present() {
				return fmt.Sprintf("%s+%s", leftValue.name, rightValue.Value().name)
			}
			return leftValue.name
		},
	)
	view := AsObservableCache(joined)
	defer view.Dispose()

	assert.Equal(t, "L1+r", view.Lookup(1).Value())
	assert.Equal(t, "L2", view.Lookup(2).Value())

	// updating the right value to a new owner migrates the row
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.AddOrUpdate(&device{name: "r", ownerId: 2})
	})
	assert.Equal(t, "L1", view.Lookup(1).Value())
	assert.Equal(t, "L2+r", view.Lookup(2).Value())
}

func TestLeftJoinRefresh(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)
	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.AddOrUpdate(&person{id: 1, name: "L1"})
	})

	joined := LeftJoin(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue *person, rightValue Optional[*device]) string {
			return leftValue.name
		},
	)
	rec := newRecorder[*ChangeSet[int, string]]()
	subscription := joined.Subscribe(rec.observer())
	defer subscription.Dispose()

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.RefreshKey(1)
	})
	last := rec.values[len(rec.values)-1]
	assert.Equal(t, 1, last.Refreshes())
}

func TestFullJoin(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)

	joined := FullJoin(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue Optional[*person], rightValue Optional[*device]) string {
			l := "-"
			if leftValue.Present() {
				l = leftValue.Value().name
			}
			r := "-"
			if rightValue.Present() {
				r = rightValue.Value().name
			}
			return fmt.Sprintf("%s/%s", l, r)
		},
	)
	view := AsObservableCache(joined)
	defer view.Dispose()

	// right side alone produces a row
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.AddOrUpdate(&device{name: "r", ownerId: 1})
	})
	assert.Equal(t, "-/r", view.Lookup(1).Value())

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.AddOrUpdate(&person{id: 1, name: "L1"})
	})
	assert.Equal(t, "L1/r", view.Lookup(1).Value())

	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.RemoveKey("r")
	})
	assert.Equal(t, "L1/-", view.Lookup(1).Value())

	// the row disappears when both sides are absent
	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.RemoveKey(1)
	})
	assert.Equal(t, false, view.Lookup(1).Present())
	assert.Equal(t, 0, view.Count())
}

func TestGroupOn(t *testing.T) {
	right := NewSourceCache(deviceKey)
	grouped := GroupOn(right.Connect(), deviceOwner)
	view := AsObservableCache(grouped)
	defer view.Dispose()

	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.Load(
			&device{name: "r", ownerId: 1},
			&device{name: "s", ownerId: 1},
			&device{name: "t", ownerId: 2},
		)
	})

	assert.Equal(t, 2, view.Count())
	assert.Equal(t, 2, view.Lookup(1).Value().Count())
	assert.Equal(t, []string{"r", "s"}, view.Lookup(1).Value().Keys())
	assert.Equal(t, 1, view.Lookup(2).Value().Count())

	// an emptied group is removed
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.RemoveKey("t")
	})
	assert.Equal(t, false, view.Lookup(2).Present())

	// an update can migrate a member between groups
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.AddOrUpdate(&device{name: "s", ownerId: 3})
	})
	assert.Equal(t, []string{"r"}, view.Lookup(1).Value().Keys())
	assert.Equal(t, []string{"s"}, view.Lookup(3).Value().Keys())
}

func TestFullJoinMany(t *testing.T) {
	left := NewSourceCache(personKey)
	right := NewSourceCache(deviceKey)

	left.Edit(func(updater *CacheUpdater[int, *person]) {
		updater.Load(
			&person{id: 1, name: "L1"},
			&person{id: 2, name: "L2"},
		)
	})
	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.Load(
			&device{name: "r", ownerId: 1},
			&device{name: "s", ownerId: 1},
		)
	})

	joined := FullJoinMany(
		left.Connect(),
		right.Connect(),
		deviceOwner,
		func(key int, leftValue Optional[*person], rightGroup *Grouping[string, *device, int]) string {
			l := "-"
			if leftValue.Present() {
				l = leftValue.Value().name
			}
			return fmt.Sprintf("%s/%d", l, rightGroup.Count())
		},
	)
	view := AsObservableCache(joined)
	defer view.Dispose()

	assert.Equal(t, "L1/2", view.Lookup(1).Value())
	// the empty group substitutes when the right side has no members
	assert.Equal(t, "L2/0", view.Lookup(2).Value())

	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.RemoveKey("s")
	})
	assert.Equal(t, "L1/1", view.Lookup(1).Value())

	right.Edit(func(updater *CacheUpdater[string, *device]) {
		updater.RemoveKey("r")
	})
	assert.Equal(t, "L1/0", view.Lookup(1).Value())
}
