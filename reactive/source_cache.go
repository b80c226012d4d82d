package reactive

import (
	"fmt"
	"sync"
)

type KeyFunction[K comparable, V any] func(value V) K

// a mutable keyed collection that publishes empty-free change sets
// reflecting each transactional edit.
type SourceCache[K comparable, V any] struct {
	keyFunction KeyFunction[K, V]

	stateLock sync.Mutex
	cache     *ChangeAwareCache[K, V]
	completed bool

	observers *CallbackList[Observer[*ChangeSet[K, V]]]
}

func NewSourceCache[K comparable, V any](keyFunction KeyFunction[K, V]) *SourceCache[K, V] {
	if keyFunction == nil {
		panic(fmt.Errorf("Key function required."))
	}
	return &SourceCache[K, V]{
		keyFunction: keyFunction,
		cache:       NewChangeAwareCache[K, V](),
		observers:   NewCallbackList[Observer[*ChangeSet[K, V]]](),
	}
}

// applies `edit` as one transactional batch and publishes the net change
// set to connected streams. Publishing happens under the source lock so
// subscribers observe batches in edit order.
func (self *SourceCache[K, V]) Edit(edit func(updater *CacheUpdater[K, V])) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.completed {
		return
	}

	edit(&CacheUpdater[K, V]{
		cache:       self.cache,
		keyFunction: self.keyFunction,
	})

	changeSet := self.cache.CaptureChanges()
	if changeSet.IsEmpty() {
		return
	}
	for _, observer := range self.observers.Get() {
		observer.OnNext(changeSet)
	}
}

// computes the minimal diff between the current state and `newItems` and
// applies it as one transactional edit: removes first, then upserts.
// `equal` detects updates for keys present on both sides.
func (self *SourceCache[K, V]) EditDiff(newItems []V, equal func(a V, b V) bool) {
	self.Edit(func(updater *CacheUpdater[K, V]) {
		updater.EditDiff(newItems, equal)
	})
}

// completes all connected streams. Further edits are ignored.
func (self *SourceCache[K, V]) Complete() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.completed {
		return
	}
	self.completed = true
	for _, observer := range self.observers.Get() {
		observer.OnComplete()
	}
	self.observers.Clear()
}

func (self *SourceCache[K, V]) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Count()
}

func (self *SourceCache[K, V]) Lookup(key K) Optional[V] {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Lookup(key)
}

func (self *SourceCache[K, V]) Keys() []K {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Keys()
}

func (self *SourceCache[K, V]) Items() []V {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Items()
}

// the change-set stream. On subscribe, the current state is emitted as a
// single Add batch (nothing when empty), then live batches follow.
func (self *SourceCache[K, V]) Connect() Observable[*ChangeSet[K, V]] {
	return ObservableFunc[*ChangeSet[K, V]](func(observer Observer[*ChangeSet[K, V]]) Disposable {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.completed {
			observer.OnComplete()
			return EmptyDisposable()
		}

		if 0 < self.cache.Count() {
			changes := []Change[K, V]{}
			self.cache.Each(func(key K, value V) {
				changes = append(changes, NewChange(ChangeReasonAdd, key, value))
			})
			observer.OnNext(newChangeSet(changes))
		}

		callbackId := self.observers.Add(observer)
		return DisposeFunc(func() {
			self.observers.Remove(callbackId)
		})
	})
}

// transactional view of a source cache during one edit
type CacheUpdater[K comparable, V any] struct {
	cache       *ChangeAwareCache[K, V]
	keyFunction KeyFunction[K, V]
}

func (self *CacheUpdater[K, V]) Key(value V) K {
	return self.keyFunction(value)
}

func (self *CacheUpdater[K, V]) Count() int {
	return self.cache.Count()
}

func (self *CacheUpdater[K, V]) Lookup(key K) Optional[V] {
	return self.cache.Lookup(key)
}

func (self *CacheUpdater[K, V]) Keys() []K {
	return self.cache.Keys()
}

func (self *CacheUpdater[K, V]) Items() []V {
	return self.cache.Items()
}

func (self *CacheUpdater[K, V]) AddOrUpdate(value V) {
	self.cache.AddOrUpdate(value, self.keyFunction(value))
}

func (self *CacheUpdater[K, V]) Load(values ...V) {
	for _, value := range values {
		self.AddOrUpdate(value)
	}
}

func (self *CacheUpdater[K, V]) Remove(value V) {
	self.cache.Remove(self.keyFunction(value))
}

func (self *CacheUpdater[K, V]) RemoveKey(key K) {
	self.cache.Remove(key)
}

func (self *CacheUpdater[K, V]) Refresh(value V) {
	self.cache.Refresh(self.keyFunction(value))
}

func (self *CacheUpdater[K, V]) RefreshKey(key K) {
	self.cache.Refresh(key)
}

func (self *CacheUpdater[K, V]) RefreshAll() {
	self.cache.RefreshAll()
}

func (self *CacheUpdater[K, V]) Clear() {
	self.cache.Clear()
}
