package reactive

import (
	"fmt"
	"sync"
)

// joins two keyed streams on the left key. The right stream is re-keyed
// through `rightKeySelector`. The result contains exactly the keys of the
// left side; the right value is optional.
func LeftJoin[KL comparable, KR comparable, L any, R any, D any](
	left Observable[*ChangeSet[KL, L]],
	right Observable[*ChangeSet[KR, R]],
	rightKeySelector func(value R) KL,
	resultSelector func(key KL, leftValue L, rightValue Optional[R]) D,
) Observable[*ChangeSet[KL, D]] {
	if left == nil || right == nil {
		panic(fmt.Errorf("Left and right sources required."))
	}
	if rightKeySelector == nil {
		panic(fmt.Errorf("Right key selector required."))
	}
	if resultSelector == nil {
		panic(fmt.Errorf("Result selector required."))
	}

	return ObservableFunc[*ChangeSet[KL, D]](func(observer Observer[*ChangeSet[KL, D]]) Disposable {
		join := &leftJoinSubscription[KL, KR, L, R, D]{
			rightKeySelector: rightKeySelector,
			resultSelector:   resultSelector,
			leftMirror:       NewCache[KL, L](),
			rightMirror:      NewCache[KL, R](),
			rightKeyIndex:    map[KR]KL{},
			result:           NewChangeAwareCache[KL, D](),
			out:              newEmitter(observer),
		}

		lock := &sync.Mutex{}
		leftUpstream := Synchronize(left, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[KL, L]) {
				join.handleLeft(changeSet)
			},
			func(err error) {
				join.out.error(err)
			},
			func() {
				join.completeOne()
			},
		))
		rightUpstream := Synchronize(right, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[KR, R]) {
				join.handleRight(changeSet)
			},
			func(err error) {
				join.out.error(err)
			},
			func() {
				join.completeOne()
			},
		))

		return NewCompositeDisposable(
			leftUpstream,
			rightUpstream,
			DisposeFunc(join.out.stop),
		)
	})
}

type leftJoinSubscription[KL comparable, KR comparable, L any, R any, D any] struct {
	rightKeySelector func(value R) KL
	resultSelector   func(key KL, leftValue L, rightValue Optional[R]) D

	leftMirror *Cache[KL, L]
	// right values re-keyed to the left key
	rightMirror *Cache[KL, R]
	// right key -> left key, for updates that change the selector value
	rightKeyIndex map[KR]KL

	result    *ChangeAwareCache[KL, D]
	out       *emitter[*ChangeSet[KL, D]]
	completed int
}

func (self *leftJoinSubscription[KL, KR, L, R, D]) handleLeft(changeSet *ChangeSet[KL, L]) {
	defer handlePanic("join", self.out.error)

	for _, change := range changeSet.Changes() {
		key := change.Key
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate:
			self.leftMirror.AddOrUpdate(change.Current, key)
			self.result.AddOrUpdate(self.resultSelector(key, change.Current, self.rightMirror.Lookup(key)), key)
		case ChangeReasonRemove:
			self.leftMirror.Remove(key)
			self.result.Remove(key)
		case ChangeReasonRefresh:
			self.result.Refresh(key)
		case ChangeReasonMoved:
			// order carries no meaning in a join
		}
	}
	self.emitCaptured()
}

func (self *leftJoinSubscription[KL, KR, L, R, D]) handleRight(changeSet *ChangeSet[KR, R]) {
	defer handlePanic("join", self.out.error)

	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate:
			key := self.rightKeySelector(change.Current)
			// an update can re-key the right value
			if previousKey, ok := self.rightKeyIndex[change.Key]; ok && previousKey != key {
				self.rightMirror.Remove(previousKey)
				self.reassert(previousKey)
			}
			self.rightKeyIndex[change.Key] = key
			self.rightMirror.AddOrUpdate(change.Current, key)
			self.reassert(key)
		case ChangeReasonRemove:
			key, ok := self.rightKeyIndex[change.Key]
			if !ok {
				key = self.rightKeySelector(change.Current)
			}
			delete(self.rightKeyIndex, change.Key)
			self.rightMirror.Remove(key)
			self.reassert(key)
		case ChangeReasonRefresh:
			if key, ok := self.rightKeyIndex[change.Key]; ok {
				self.result.Refresh(key)
			}
		case ChangeReasonMoved:
			// order carries no meaning in a join
		}
	}
	self.emitCaptured()
}

// recomputes the result row for a left key after a right-side change
func (self *leftJoinSubscription[KL, KR, L, R, D]) reassert(key KL) {
	if leftValue, ok := self.leftMirror.Lookup(key).Get(); ok {
		self.result.AddOrUpdate(self.resultSelector(key, leftValue, self.rightMirror.Lookup(key)), key)
	} else {
		self.result.Remove(key)
	}
}

func (self *leftJoinSubscription[KL, KR, L, R, D]) emitCaptured() {
	if captured := self.result.CaptureChanges(); !captured.IsEmpty() {
		self.out.next(captured)
	}
}

func (self *leftJoinSubscription[KL, KR, L, R, D]) completeOne() {
	self.completed += 1
	if self.completed == 2 {
		self.out.complete()
	}
}

// joins two keyed streams on the left key over the union of keys from
// both sides. Either side is optional; a row disappears when both sides
// are absent.
func FullJoin[KL comparable, KR comparable, L any, R any, D any](
	left Observable[*ChangeSet[KL, L]],
	right Observable[*ChangeSet[KR, R]],
	rightKeySelector func(value R) KL,
	resultSelector func(key KL, leftValue Optional[L], rightValue Optional[R]) D,
) Observable[*ChangeSet[KL, D]] {
	if left == nil || right == nil {
		panic(fmt.Errorf("Left and right sources required."))
	}
	if rightKeySelector == nil {
		panic(fmt.Errorf("Right key selector required."))
	}
	if resultSelector == nil {
		panic(fmt.Errorf("Result selector required."))
	}

	return ObservableFunc[*ChangeSet[KL, D]](func(observer Observer[*ChangeSet[KL, D]]) Disposable {
		join := &fullJoinSubscription[KL, KR, L, R, D]{
			rightKeySelector: rightKeySelector,
			resultSelector:   resultSelector,
			leftMirror:       NewCache[KL, L](),
			rightMirror:      NewCache[KL, R](),
			rightKeyIndex:    map[KR]KL{},
			result:           NewChangeAwareCache[KL, D](),
			out:              newEmitter(observer),
		}

		lock := &sync.Mutex{}
		leftUpstream := Synchronize(left, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[KL, L]) {
				join.handleLeft(changeSet)
			},
			func(err error) {
				join.out.error(err)
			},
			func() {
				join.completeOne()
			},
		))
		rightUpstream := Synchronize(right, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[KR, R]) {
				join.handleRight(changeSet)
			},
			func(err error) {
				join.out.error(err)
			},
			func() {
				join.completeOne()
			},
		))

		return NewCompositeDisposable(
			leftUpstream,
			rightUpstream,
			DisposeFunc(join.out.stop),
		)
	})
}

type fullJoinSubscription[KL comparable, KR comparable, L any, R any, D any] struct {
	rightKeySelector func(value R) KL
	resultSelector   func(key KL, leftValue Optional[L], rightValue Optional[R]) D

	leftMirror    *Cache[KL, L]
	rightMirror   *Cache[KL, R]
	rightKeyIndex map[KR]KL

	result    *ChangeAwareCache[KL, D]
	out       *emitter[*ChangeSet[KL, D]]
	completed int
}

func (self *fullJoinSubscription[KL, KR, L, R, D]) handleLeft(changeSet *ChangeSet[KL, L]) {
	defer handlePanic("join", self.out.error)

	for _, change := range changeSet.Changes() {
		key := change.Key
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate:
			self.leftMirror.AddOrUpdate(change.Current, key)
			self.reassert(key)
		case ChangeReasonRemove:
			self.leftMirror.Remove(key)
			self.reassert(key)
		case ChangeReasonRefresh:
			self.result.Refresh(key)
		case ChangeReasonMoved:
			// order carries no meaning in a join
		}
	}
	self.emitCaptured()
}

func (self *fullJoinSubscription[KL, KR, L, R, D]) handleRight(changeSet *ChangeSet[KR, R]) {
	defer handlePanic("join", self.out.error)

	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate:
			key := self.rightKeySelector(change.Current)
			if previousKey, ok := self.rightKeyIndex[change.Key]; ok && previousKey != key {
				self.rightMirror.Remove(previousKey)
				self.reassert(previousKey)
			}
			self.rightKeyIndex[change.Key] = key
			self.rightMirror.AddOrUpdate(change.Current, key)
			self.reassert(key)
		case ChangeReasonRemove:
			key, ok := self.rightKeyIndex[change.Key]
			if !ok {
				key = self.rightKeySelector(change.Current)
			}
			delete(self.rightKeyIndex, change.Key)
			self.rightMirror.Remove(key)
			self.reassert(key)
		case ChangeReasonRefresh:
			if key, ok := self.rightKeyIndex[change.Key]; ok {
				self.result.Refresh(key)
			}
		case ChangeReasonMoved:
			// order carries no meaning in a join
		}
	}
	self.emitCaptured()
}

func (self *fullJoinSubscription[KL, KR, L, R, D]) reassert(key KL) {
	leftValue := self.leftMirror.Lookup(key)
	rightValue := self.rightMirror.Lookup(key)
	if !leftValue.Present() && !rightValue.Present() {
		self.result.Remove(key)
		return
	}
	self.result.AddOrUpdate(self.resultSelector(key, leftValue, rightValue), key)
}

func (self *fullJoinSubscription[KL, KR, L, R, D]) emitCaptured() {
	if captured := self.result.CaptureChanges(); !captured.IsEmpty() {
		self.out.next(captured)
	}
}

func (self *fullJoinSubscription[KL, KR, L, R, D]) completeOne() {
	self.completed += 1
	if self.completed == 2 {
		self.out.complete()
	}
}
