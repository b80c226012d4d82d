package reactive

import (
	"fmt"
	"slices"
	"sync"
)

// an immutable snapshot of a keyed sub-cache with its group key
type Grouping[K comparable, V any, G comparable] struct {
	key     G
	keys    []K
	entries map[K]V
}

func newGrouping[K comparable, V any, G comparable](key G, cache *Cache[K, V]) *Grouping[K, V, G] {
	grouping := &Grouping[K, V, G]{
		key:     key,
		keys:    cache.Keys(),
		entries: map[K]V{},
	}
	cache.Each(func(k K, v V) {
		grouping.entries[k] = v
	})
	return grouping
}

func EmptyGrouping[K comparable, V any, G comparable](key G) *Grouping[K, V, G] {
	return &Grouping[K, V, G]{
		key:     key,
		keys:    []K{},
		entries: map[K]V{},
	}
}

func (self *Grouping[K, V, G]) Key() G {
	return self.key
}

func (self *Grouping[K, V, G]) Count() int {
	return len(self.keys)
}

func (self *Grouping[K, V, G]) Keys() []K {
	return slices.Clone(self.keys)
}

func (self *Grouping[K, V, G]) Items() []V {
	items := make([]V, 0, len(self.keys))
	for _, key := range self.keys {
		items = append(items, self.entries[key])
	}
	return items
}

func (self *Grouping[K, V, G]) Lookup(key K) Optional[V] {
	value, ok := self.entries[key]
	if !ok {
		return None[V]()
	}
	return Some(value)
}

// partitions a keyed stream by `groupKeySelector` into a stream of
// immutable group snapshots keyed by group key. An add, update or remove
// of a member re-emits its group's snapshot; an emptied group is removed.
// Refresh re-evaluates the group key, so a member can migrate between
// groups without a value-level delta; a Refresh that keeps the member in
// its group forwards a Refresh of that group instead of a new snapshot.
func GroupOn[K comparable, V any, G comparable](source Observable[*ChangeSet[K, V]], groupKeySelector func(value V) G) Observable[*ChangeSet[G, *Grouping[K, V, G]]] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	if groupKeySelector == nil {
		panic(fmt.Errorf("Group key selector required."))
	}

	return ObservableFunc[*ChangeSet[G, *Grouping[K, V, G]]](func(observer Observer[*ChangeSet[G, *Grouping[K, V, G]]]) Disposable {
		group := &groupOnSubscription[K, V, G]{
			groupKeySelector: groupKeySelector,
			itemGroups:       map[K]G{},
			groups:           map[G]*Cache[K, V]{},
			result:           NewChangeAwareCache[G, *Grouping[K, V, G]](),
			out:              newEmitter(observer),
		}

		lock := &sync.Mutex{}
		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				group.handle(changeSet)
			},
			func(err error) {
				group.out.error(err)
			},
			func() {
				group.out.complete()
			},
		))

		return NewCompositeDisposable(
			upstream,
			DisposeFunc(group.out.stop),
		)
	})
}

type groupOnSubscription[K comparable, V any, G comparable] struct {
	groupKeySelector func(value V) G

	// current group of each member key
	itemGroups map[K]G
	groups     map[G]*Cache[K, V]

	result *ChangeAwareCache[G, *Grouping[K, V, G]]
	out    *emitter[*ChangeSet[G, *Grouping[K, V, G]]]
}

func (self *groupOnSubscription[K, V, G]) handle(changeSet *ChangeSet[K, V]) {
	defer handlePanic("group", self.out.error)

	// groups whose snapshot must be rebuilt, in first-touch order
	touched := []G{}
	touchedSet := map[G]bool{}
	touch := func(groupKey G) {
		if !touchedSet[groupKey] {
			touchedSet[groupKey] = true
			touched = append(touched, groupKey)
		}
	}

	for _, change := range changeSet.Changes() {
		key := change.Key
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate, ChangeReasonRefresh:
			groupKey := self.groupKeySelector(change.Current)
			if previousGroupKey, ok := self.itemGroups[key]; ok && previousGroupKey != groupKey {
				self.removeFromGroup(key, previousGroupKey)
				touch(previousGroupKey)
			} else if ok && change.Reason == ChangeReasonRefresh {
				// same group, no snapshot change
				self.result.Refresh(groupKey)
				continue
			}
			cache, ok := self.groups[groupKey]
			if !ok {
				cache = NewCache[K, V]()
				self.groups[groupKey] = cache
			}
			cache.AddOrUpdate(change.Current, key)
			self.itemGroups[key] = groupKey
			touch(groupKey)
		case ChangeReasonRemove:
			if groupKey, ok := self.itemGroups[key]; ok {
				delete(self.itemGroups, key)
				self.removeFromGroup(key, groupKey)
				touch(groupKey)
			}
		case ChangeReasonMoved:
			// order carries no meaning in a grouping
		}
	}

	for _, groupKey := range touched {
		cache, ok := self.groups[groupKey]
		if !ok || cache.Count() == 0 {
			delete(self.groups, groupKey)
			self.result.Remove(groupKey)
			continue
		}
		self.result.AddOrUpdate(newGrouping(groupKey, cache), groupKey)
	}

	if captured := self.result.CaptureChanges(); !captured.IsEmpty() {
		self.out.next(captured)
	}
}

func (self *groupOnSubscription[K, V, G]) removeFromGroup(key K, groupKey G) {
	if cache, ok := self.groups[groupKey]; ok {
		cache.Remove(key)
	}
}

// groups the right stream by `rightKeySelector`, so that each left key
// maps to a whole group snapshot, then full-joins. The selector sees the
// empty group when the right side has no members for the key.
func FullJoinMany[KL comparable, KR comparable, L any, R any, D any](
	left Observable[*ChangeSet[KL, L]],
	right Observable[*ChangeSet[KR, R]],
	rightKeySelector func(value R) KL,
	resultSelector func(key KL, leftValue Optional[L], rightGroup *Grouping[KR, R, KL]) D,
) Observable[*ChangeSet[KL, D]] {
	if rightKeySelector == nil {
		panic(fmt.Errorf("Right key selector required."))
	}
	if resultSelector == nil {
		panic(fmt.Errorf("Result selector required."))
	}
	grouped := GroupOn(right, rightKeySelector)
	return FullJoin(
		left,
		grouped,
		func(group *Grouping[KR, R, KL]) KL {
			return group.Key()
		},
		func(key KL, leftValue Optional[L], rightGroup Optional[*Grouping[KR, R, KL]]) D {
			return resultSelector(key, leftValue, rightGroup.ValueOr(EmptyGrouping[KR, R, KL](key)))
		},
	)
}
