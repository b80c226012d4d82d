package reactive

import (
	"reflect"
	"slices"
	"sync"
)

// materializes a list change-set stream into a read-only view
type ObservableList[T any] struct {
	stateLock sync.Mutex
	items     []T
	err       error
	completed bool

	updateMonitor *Monitor
	subscription  Disposable
}

func AsObservableList[T any](source Observable[*ListChangeSet[T]]) *ObservableList[T] {
	observableList := &ObservableList[T]{
		items:         []T{},
		updateMonitor: NewMonitor(),
	}
	observableList.subscription = source.Subscribe(NewObserver(
		func(changeSet *ListChangeSet[T]) {
			observableList.apply(changeSet)
		},
		func(err error) {
			observableList.fail(err)
		},
		func() {
			observableList.complete()
		},
	))
	return observableList
}

func (self *ObservableList[T]) apply(changeSet *ListChangeSet[T]) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.err != nil || self.completed {
		return
	}
	for _, change := range changeSet.Changes() {
		self.applyChange(change)
	}
	self.updateMonitor.NotifyAll()
}

func (self *ObservableList[T]) applyChange(change ListChange[T]) {
	switch change.Reason {
	case ListChangeReasonAdd:
		if change.CurrentIndex < 0 || len(self.items) < change.CurrentIndex {
			self.items = append(self.items, change.Item)
		} else {
			self.items = slices.Insert(self.items, change.CurrentIndex, change.Item)
		}
	case ListChangeReasonAddRange:
		if change.CurrentIndex < 0 || len(self.items) < change.CurrentIndex {
			self.items = append(self.items, change.Range...)
		} else {
			self.items = slices.Insert(self.items, change.CurrentIndex, change.Range...)
		}
	case ListChangeReasonReplace:
		if 0 <= change.CurrentIndex && change.CurrentIndex < len(self.items) {
			self.items[change.CurrentIndex] = change.Item
		} else if previous, ok := change.Previous.Get(); ok {
			if i := self.indexOf(previous); 0 <= i {
				self.items[i] = change.Item
			}
		}
	case ListChangeReasonRemove:
		self.removeOne(change.Item, change.CurrentIndex)
	case ListChangeReasonRemoveRange, ListChangeReasonClear:
		for _, item := range change.Range {
			self.removeOne(item, -1)
		}
	case ListChangeReasonMoved:
		if 0 <= change.PreviousIndex && change.PreviousIndex < len(self.items) &&
			0 <= change.CurrentIndex && change.CurrentIndex < len(self.items) {
			item := self.items[change.PreviousIndex]
			self.items = slices.Delete(self.items, change.PreviousIndex, change.PreviousIndex+1)
			self.items = slices.Insert(self.items, change.CurrentIndex, item)
		}
	case ListChangeReasonRefresh:
		// not a data change
	}
}

// removes by index when positioned, by value otherwise
func (self *ObservableList[T]) removeOne(item T, index int) {
	if 0 <= index && index < len(self.items) && reflect.DeepEqual(self.items[index], item) {
		self.items = slices.Delete(self.items, index, index+1)
		return
	}
	if i := self.indexOf(item); 0 <= i {
		self.items = slices.Delete(self.items, i, i+1)
	}
}

func (self *ObservableList[T]) indexOf(item T) int {
	return slices.IndexFunc(self.items, func(candidate T) bool {
		return reflect.DeepEqual(candidate, item)
	})
}

func (self *ObservableList[T]) fail(err error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.err = err
	self.updateMonitor.NotifyAll()
}

func (self *ObservableList[T]) complete() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.completed = true
	self.updateMonitor.NotifyAll()
}

func (self *ObservableList[T]) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.items)
}

func (self *ObservableList[T]) Items() []T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return slices.Clone(self.items)
}

func (self *ObservableList[T]) Error() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.err
}

func (self *ObservableList[T]) IsCompleted() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.completed
}

func (self *ObservableList[T]) UpdateMonitor() *Monitor {
	return self.updateMonitor
}

func (self *ObservableList[T]) Dispose() {
	self.subscription.Dispose()
}
