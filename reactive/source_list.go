package reactive

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// a mutable ordered collection that publishes empty-free list change sets
// reflecting each transactional edit.
type SourceList[T any] struct {
	stateLock sync.Mutex
	items     []T
	completed bool

	observers *CallbackList[Observer[*ListChangeSet[T]]]
}

func NewSourceList[T any]() *SourceList[T] {
	return &SourceList[T]{
		items:     []T{},
		observers: NewCallbackList[Observer[*ListChangeSet[T]]](),
	}
}

// applies `edit` as one transactional batch and publishes the net change
// set to connected streams
func (self *SourceList[T]) Edit(edit func(updater *ListUpdater[T])) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.completed {
		return
	}

	updater := &ListUpdater[T]{
		list: self,
	}
	edit(updater)

	if len(updater.changes) == 0 {
		return
	}
	changeSet := newListChangeSet(updater.changes)
	for _, observer := range self.observers.Get() {
		observer.OnNext(changeSet)
	}
}

func (self *SourceList[T]) Add(items ...T) {
	self.Edit(func(updater *ListUpdater[T]) {
		for _, item := range items {
			updater.Add(item)
		}
	})
}

func (self *SourceList[T]) Remove(item T) {
	self.Edit(func(updater *ListUpdater[T]) {
		updater.Remove(item)
	})
}

func (self *SourceList[T]) Clear() {
	self.Edit(func(updater *ListUpdater[T]) {
		updater.Clear()
	})
}

// completes all connected streams. Further edits are ignored.
func (self *SourceList[T]) Complete() {
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

func (self *SourceList[T]) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.items)
}

func (self *SourceList[T]) Items() []T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return slices.Clone(self.items)
}

// the list change-set stream. On subscribe, the current items are emitted
// as a single AddRange batch (nothing when empty), then live batches
// follow.
func (self *SourceList[T]) Connect() Observable[*ListChangeSet[T]] {
	return ObservableFunc[*ListChangeSet[T]](func(observer Observer[*ListChangeSet[T]]) Disposable {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.completed {
			observer.OnComplete()
			return EmptyDisposable()
		}

		if 0 < len(self.items) {
			changes := []ListChange[T]{
				NewListRangeChange(ListChangeReasonAddRange, self.items, 0),
			}
			observer.OnNext(newListChangeSet(changes))
		}

		callbackId := self.observers.Add(observer)
		return DisposeFunc(func() {
			self.observers.Remove(callbackId)
		})
	})
}

// transactional view of a source list during one edit
type ListUpdater[T any] struct {
	list    *SourceList[T]
	changes []ListChange[T]
}

func (self *ListUpdater[T]) Count() int {
	return len(self.list.items)
}

func (self *ListUpdater[T]) Items() []T {
	return slices.Clone(self.list.items)
}

func (self *ListUpdater[T]) Add(item T) {
	index := len(self.list.items)
	self.list.items = append(self.list.items, item)
	self.changes = append(self.changes, NewListChange(ListChangeReasonAdd, item, index))
}

func (self *ListUpdater[T]) AddRange(items []T) {
	if len(items) == 0 {
		return
	}
	index := len(self.list.items)
	self.list.items = append(self.list.items, items...)
	self.changes = append(self.changes, NewListRangeChange(ListChangeReasonAddRange, items, index))
}

func (self *ListUpdater[T]) InsertAt(index int, item T) {
	if index < 0 || len(self.list.items) < index {
		panic(fmt.Errorf("Insert index out of range: %d.", index))
	}
	self.list.items = slices.Insert(self.list.items, index, item)
	self.changes = append(self.changes, NewListChange(ListChangeReasonAdd, item, index))
}

func (self *ListUpdater[T]) RemoveAt(index int) {
	if index < 0 || len(self.list.items) <= index {
		panic(fmt.Errorf("Remove index out of range: %d.", index))
	}
	item := self.list.items[index]
	self.list.items = slices.Delete(self.list.items, index, index+1)
	self.changes = append(self.changes, NewListChange(ListChangeReasonRemove, item, index))
}

// removes the first item equal to `item`. No-op when absent.
func (self *ListUpdater[T]) Remove(item T) {
	i := slices.IndexFunc(self.list.items, func(candidate T) bool {
		return reflect.DeepEqual(candidate, item)
	})
	if i < 0 {
		// not present
		return
	}
	self.RemoveAt(i)
}

func (self *ListUpdater[T]) ReplaceAt(index int, item T) {
	if index < 0 || len(self.list.items) <= index {
		panic(fmt.Errorf("Replace index out of range: %d.", index))
	}
	previous := self.list.items[index]
	self.list.items[index] = item
	self.changes = append(self.changes, NewListReplaceChange(item, previous, index))
}

func (self *ListUpdater[T]) Move(fromIndex int, toIndex int) {
	n := len(self.list.items)
	if fromIndex < 0 || n <= fromIndex || toIndex < 0 || n <= toIndex {
		panic(fmt.Errorf("Move index out of range: %d->%d.", fromIndex, toIndex))
	}
	if fromIndex == toIndex {
		return
	}
	item := self.list.items[fromIndex]
	self.list.items = slices.Delete(self.list.items, fromIndex, fromIndex+1)
	self.list.items = slices.Insert(self.list.items, toIndex, item)
	self.changes = append(self.changes, NewListMovedChange(item, toIndex, fromIndex))
}

// removes everything as one Clear delta carrying the removed block
func (self *ListUpdater[T]) Clear() {
	if len(self.list.items) == 0 {
		return
	}
	removed := self.list.items
	self.list.items = []T{}
	self.changes = append(self.changes, NewListRangeChange(ListChangeReasonClear, removed, 0))
}
