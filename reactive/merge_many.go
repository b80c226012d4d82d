package reactive

import (
	"fmt"
	"reflect"
	"slices"
)

// merges the inner list change-set streams selected from each item of a
// parent list into one stream. Each child's contributions are recorded;
// when a child is removed from the parent (or clears itself), everything
// it contributed is withdrawn from the merged view. Merged deltas are
// unpositioned: order within the merged view carries no meaning.
func MergeManyLists[S any, T any](parent Observable[*ListChangeSet[S]], selector func(item S) Observable[*ListChangeSet[T]]) Observable[*ListChangeSet[T]] {
	if parent == nil {
		panic(fmt.Errorf("Parent required."))
	}
	if selector == nil {
		panic(fmt.Errorf("Selector required."))
	}

	return ObservableFunc[*ListChangeSet[T]](func(observer Observer[*ListChangeSet[T]]) Disposable {
		merge := &listMergeSubscription[S, T]{
			selector: selector,
			seq:      newSequencer(),
			out:      newEmitter(observer),
		}

		parentUpstream := sequenced(parent, merge.seq).Subscribe(NewObserver(
			func(changeSet *ListChangeSet[S]) {
				merge.handleParent(changeSet)
			},
			func(err error) {
				merge.fail(err)
			},
			func() {
				merge.parentCompleted = true
				merge.checkComplete()
			},
		))

		return NewCompositeDisposable(
			parentUpstream,
			DisposeFunc(func() {
				merge.out.stop()
				merge.seq.run(func() {
					merge.disposeChildren()
				})
			}),
		)
	})
}

type listMergeChild[T any] struct {
	subscription Disposable
	contributed  []T
	completed    bool
	removed      bool
}

type listMergeSubscription[S any, T any] struct {
	selector func(item S) Observable[*ListChangeSet[T]]

	seq *sequencer

	// parent list order
	children []*listMergeChild[T]
	out      *emitter[*ListChangeSet[T]]

	parentCompleted bool
	failed          bool
}

func (self *listMergeSubscription[S, T]) handleParent(changeSet *ListChangeSet[S]) {
	defer handlePanic("merge", self.fail)

	if self.failed {
		return
	}
	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ListChangeReasonAdd:
			self.addChild(change.Item, change.CurrentIndex)
		case ListChangeReasonAddRange:
			for i, item := range change.Range {
				if change.CurrentIndex < 0 {
					self.addChild(item, -1)
				} else {
					self.addChild(item, change.CurrentIndex+i)
				}
			}
		case ListChangeReasonRemove:
			self.removeChildrenAt(change.CurrentIndex, 1)
		case ListChangeReasonRemoveRange:
			self.removeChildrenAt(change.CurrentIndex, len(change.Range))
		case ListChangeReasonClear:
			self.removeChildrenAt(0, len(self.children))
		case ListChangeReasonReplace:
			self.removeChildrenAt(change.CurrentIndex, 1)
			self.addChild(change.Item, change.CurrentIndex)
		case ListChangeReasonMoved:
			self.moveChild(change.PreviousIndex, change.CurrentIndex)
		case ListChangeReasonRefresh:
			// not a membership change
		}
	}
}

func (self *listMergeSubscription[S, T]) addChild(item S, index int) {
	child := &listMergeChild[T]{
		contributed: []T{},
	}
	if index < 0 || len(self.children) < index {
		self.children = append(self.children, child)
	} else {
		self.children = slices.Insert(self.children, index, child)
	}

	inner := self.selector(item)
	if inner == nil {
		self.fail(fmt.Errorf("Inner stream must not be nil."))
		return
	}
	child.subscription = sequenced(inner, self.seq).Subscribe(NewObserver(
		func(changeSet *ListChangeSet[T]) {
			self.handleChild(child, changeSet)
		},
		func(err error) {
			self.fail(err)
		},
		func() {
			child.completed = true
			self.checkComplete()
		},
	))
}

func (self *listMergeSubscription[S, T]) removeChildrenAt(index int, n int) {
	if index < 0 || len(self.children) < index+n {
		self.fail(fmt.Errorf("Child remove out of range: %d+%d.", index, n))
		return
	}
	removed := slices.Clone(self.children[index : index+n])
	self.children = slices.Delete(self.children, index, index+n)

	withdrawn := []ListChange[T]{}
	for _, child := range removed {
		child.removed = true
		if child.subscription != nil {
			child.subscription.Dispose()
		}
		if 0 < len(child.contributed) {
			withdrawn = append(withdrawn, NewListRangeChange(ListChangeReasonRemoveRange, child.contributed, -1))
			child.contributed = nil
		}
	}
	if 0 < len(withdrawn) {
		self.out.next(newListChangeSet(withdrawn))
	}
	self.checkComplete()
}

func (self *listMergeSubscription[S, T]) moveChild(fromIndex int, toIndex int) {
	n := len(self.children)
	if fromIndex < 0 || n <= fromIndex || toIndex < 0 || n <= toIndex {
		self.fail(fmt.Errorf("Child move out of range: %d->%d.", fromIndex, toIndex))
		return
	}
	if fromIndex == toIndex {
		return
	}
	child := self.children[fromIndex]
	self.children = slices.Delete(self.children, fromIndex, fromIndex+1)
	self.children = slices.Insert(self.children, toIndex, child)
}

func (self *listMergeSubscription[S, T]) handleChild(child *listMergeChild[T], changeSet *ListChangeSet[T]) {
	defer handlePanic("merge", self.fail)

	if self.failed || child.removed {
		return
	}
	out := []ListChange[T]{}
	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ListChangeReasonAdd:
			child.contributed = append(child.contributed, change.Item)
			out = append(out, NewListChange(ListChangeReasonAdd, change.Item, -1))
		case ListChangeReasonAddRange:
			child.contributed = append(child.contributed, change.Range...)
			out = append(out, NewListRangeChange(ListChangeReasonAddRange, change.Range, -1))
		case ListChangeReasonReplace:
			if previous, ok := change.Previous.Get(); ok {
				if i := indexOfItem(child.contributed, previous); 0 <= i {
					child.contributed[i] = change.Item
				}
				out = append(out, NewListReplaceChange(change.Item, previous, -1))
			}
		case ListChangeReasonRemove:
			if i := indexOfItem(child.contributed, change.Item); 0 <= i {
				child.contributed = slices.Delete(child.contributed, i, i+1)
			}
			out = append(out, NewListChange(ListChangeReasonRemove, change.Item, -1))
		case ListChangeReasonRemoveRange, ListChangeReasonClear:
			for _, item := range change.Range {
				if i := indexOfItem(child.contributed, item); 0 <= i {
					child.contributed = slices.Delete(child.contributed, i, i+1)
				}
			}
			out = append(out, NewListRangeChange(ListChangeReasonRemoveRange, change.Range, -1))
		case ListChangeReasonRefresh:
			out = append(out, NewListChange(ListChangeReasonRefresh, change.Item, -1))
		case ListChangeReasonMoved:
			// position within the merged view carries no meaning
		}
	}
	if 0 < len(out) {
		self.out.next(newListChangeSet(out))
	}
}

func (self *listMergeSubscription[S, T]) checkComplete() {
	if !self.parentCompleted {
		return
	}
	for _, child := range self.children {
		if !child.completed {
			return
		}
	}
	self.disposeChildren()
	self.out.complete()
}

func (self *listMergeSubscription[S, T]) fail(err error) {
	if self.failed {
		return
	}
	self.failed = true
	self.disposeChildren()
	self.out.error(err)
}

func (self *listMergeSubscription[S, T]) disposeChildren() {
	for i := len(self.children) - 1; 0 <= i; i -= 1 {
		child := self.children[i]
		child.removed = true
		if child.subscription != nil {
			child.subscription.Dispose()
		}
	}
	self.children = nil
}

func indexOfItem[T any](items []T, item T) int {
	return slices.IndexFunc(items, func(candidate T) bool {
		return reflect.DeepEqual(candidate, item)
	})
}

// merges the inner keyed change-set streams selected from each entry of a
// parent cache into one keyed stream. When two children assert the same
// key, the later assertion wins; removing a child withdraws its keys,
// falling back to another child's value where one exists.
func MergeManyCaches[PK comparable, S any, K comparable, V any](parent Observable[*ChangeSet[PK, S]], selector func(value S, key PK) Observable[*ChangeSet[K, V]]) Observable[*ChangeSet[K, V]] {
	if parent == nil {
		panic(fmt.Errorf("Parent required."))
	}
	if selector == nil {
		panic(fmt.Errorf("Selector required."))
	}

	return ObservableFunc[*ChangeSet[K, V]](func(observer Observer[*ChangeSet[K, V]]) Disposable {
		merge := &cacheMergeSubscription[PK, S, K, V]{
			selector: selector,
			seq:      newSequencer(),
			children: map[PK]*cacheMergeChild[K, V]{},
			result:   NewChangeAwareCache[K, V](),
			out:      newEmitter(observer),
		}

		parentUpstream := sequenced(parent, merge.seq).Subscribe(NewObserver(
			func(changeSet *ChangeSet[PK, S]) {
				merge.handleParent(changeSet)
			},
			func(err error) {
				merge.fail(err)
			},
			func() {
				merge.parentCompleted = true
				merge.checkComplete()
			},
		))

		return NewCompositeDisposable(
			parentUpstream,
			DisposeFunc(func() {
				merge.out.stop()
				merge.seq.run(func() {
					merge.disposeChildren()
				})
			}),
		)
	})
}

type cacheMergeChild[K comparable, V any] struct {
	subscription Disposable
	contributed  *Cache[K, V]
	completed    bool
	removed      bool
}

type cacheMergeSubscription[PK comparable, S any, K comparable, V any] struct {
	selector func(value S, key PK) Observable[*ChangeSet[K, V]]

	seq *sequencer

	children map[PK]*cacheMergeChild[K, V]
	result   *ChangeAwareCache[K, V]
	out      *emitter[*ChangeSet[K, V]]

	parentCompleted bool
	failed          bool
}

func (self *cacheMergeSubscription[PK, S, K, V]) handleParent(changeSet *ChangeSet[PK, S]) {
	defer handlePanic("merge", self.fail)

	if self.failed {
		return
	}
	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ChangeReasonAdd:
			self.addChild(change.Key, change.Current)
		case ChangeReasonUpdate:
			self.removeChild(change.Key)
			self.addChild(change.Key, change.Current)
		case ChangeReasonRemove:
			self.removeChild(change.Key)
		case ChangeReasonRefresh, ChangeReasonMoved:
			// not a membership change
		}
	}
}

func (self *cacheMergeSubscription[PK, S, K, V]) addChild(parentKey PK, value S) {
	child := &cacheMergeChild[K, V]{
		contributed: NewCache[K, V](),
	}
	self.children[parentKey] = child

	inner := self.selector(value, parentKey)
	if inner == nil {
		self.fail(fmt.Errorf("Inner stream must not be nil."))
		return
	}
	child.subscription = sequenced(inner, self.seq).Subscribe(NewObserver(
		func(changeSet *ChangeSet[K, V]) {
			self.handleChild(child, changeSet)
		},
		func(err error) {
			self.fail(err)
		},
		func() {
			child.completed = true
			self.checkComplete()
		},
	))
}

func (self *cacheMergeSubscription[PK, S, K, V]) removeChild(parentKey PK) {
	child, ok := self.children[parentKey]
	if !ok {
		return
	}
	delete(self.children, parentKey)
	child.removed = true
	if child.subscription != nil {
		child.subscription.Dispose()
	}

	child.contributed.Each(func(key K, value V) {
		self.withdraw(child, key)
	})
	self.emitCaptured()
	self.checkComplete()
}

func (self *cacheMergeSubscription[PK, S, K, V]) handleChild(child *cacheMergeChild[K, V], changeSet *ChangeSet[K, V]) {
	defer handlePanic("merge", self.fail)

	if self.failed || child.removed {
		return
	}
	for _, change := range changeSet.Changes() {
		key := change.Key
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate:
			child.contributed.AddOrUpdate(change.Current, key)
			self.result.AddOrUpdate(change.Current, key)
		case ChangeReasonRemove:
			child.contributed.Remove(key)
			self.withdraw(child, key)
		case ChangeReasonRefresh:
			self.result.Refresh(key)
		case ChangeReasonMoved:
			// order carries no meaning across merged sources
		}
	}
	self.emitCaptured()
}

// removes `key` on behalf of `child`, falling back to another child's
// value where one exists
func (self *cacheMergeSubscription[PK, S, K, V]) withdraw(exclude *cacheMergeChild[K, V], key K) {
	for _, child := range self.children {
		if child == exclude {
			continue
		}
		if value, ok := child.contributed.Lookup(key).Get(); ok {
			self.result.AddOrUpdate(value, key)
			return
		}
	}
	self.result.Remove(key)
}

func (self *cacheMergeSubscription[PK, S, K, V]) emitCaptured() {
	if captured := self.result.CaptureChanges(); !captured.IsEmpty() {
		self.out.next(captured)
	}
}

func (self *cacheMergeSubscription[PK, S, K, V]) checkComplete() {
	if !self.parentCompleted {
		return
	}
	for _, child := range self.children {
		if !child.completed {
			return
		}
	}
	self.disposeChildren()
	self.out.complete()
}

func (self *cacheMergeSubscription[PK, S, K, V]) fail(err error) {
	if self.failed {
		return
	}
	self.failed = true
	self.disposeChildren()
	self.out.error(err)
}

func (self *cacheMergeSubscription[PK, S, K, V]) disposeChildren() {
	for _, child := range self.children {
		child.removed = true
		if child.subscription != nil {
			child.subscription.Dispose()
		}
	}
	self.children = map[PK]*cacheMergeChild[K, V]{}
}
