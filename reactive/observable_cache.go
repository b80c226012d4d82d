package reactive

import (
	"sync"

	"github.com/golang/glog"
)

// materializes a keyed change-set stream into a read-only view.
// `UpdateMonitor` notifies after every applied batch, so callers can wait
// for changes on a channel.
type ObservableCache[K comparable, V any] struct {
	stateLock sync.Mutex
	cache     *Cache[K, V]
	err       error
	completed bool

	updateMonitor *Monitor
	subscription  Disposable
}

func AsObservableCache[K comparable, V any](source Observable[*ChangeSet[K, V]]) *ObservableCache[K, V] {
	observableCache := &ObservableCache[K, V]{
		cache:         NewCache[K, V](),
		updateMonitor: NewMonitor(),
	}
	observableCache.subscription = source.Subscribe(NewObserver(
		func(changeSet *ChangeSet[K, V]) {
			observableCache.apply(changeSet)
		},
		func(err error) {
			observableCache.fail(err)
		},
		func() {
			observableCache.complete()
		},
	))
	return observableCache
}

func (self *ObservableCache[K, V]) apply(changeSet *ChangeSet[K, V]) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.err != nil || self.completed {
		return
	}
	if err := changeSet.applyTo(self.cache); err != nil {
		glog.Infof("[cache]replay invariant violation: %v", err)
		self.err = err
	}
	self.updateMonitor.NotifyAll()
}

func (self *ObservableCache[K, V]) fail(err error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.err = err
	self.updateMonitor.NotifyAll()
}

func (self *ObservableCache[K, V]) complete() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.completed = true
	self.updateMonitor.NotifyAll()
}

func (self *ObservableCache[K, V]) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Count()
}

func (self *ObservableCache[K, V]) Lookup(key K) Optional[V] {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Lookup(key)
}

func (self *ObservableCache[K, V]) Keys() []K {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Keys()
}

func (self *ObservableCache[K, V]) Items() []V {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.cache.Items()
}

// the stream error, if the view terminated abnormally
func (self *ObservableCache[K, V]) Error() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.err
}

func (self *ObservableCache[K, V]) IsCompleted() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.completed
}

func (self *ObservableCache[K, V]) UpdateMonitor() *Monitor {
	return self.updateMonitor
}

func (self *ObservableCache[K, V]) Dispose() {
	self.subscription.Dispose()
}
