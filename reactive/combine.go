package reactive

import (
	"fmt"
	"reflect"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

type CombineOperator int

const (
	CombineOperatorAnd CombineOperator = iota
	CombineOperatorOr
	CombineOperatorXor
	CombineOperatorExcept
)

func (self CombineOperator) String() string {
	switch self {
	case CombineOperatorAnd:
		return "And"
	case CombineOperatorOr:
		return "Or"
	case CombineOperatorXor:
		return "Xor"
	case CombineOperatorExcept:
		return "Except"
	default:
		return fmt.Sprintf("CombineOperator(%d)", int(self))
	}
}

func (self CombineOperator) isValid() bool {
	switch self {
	case CombineOperatorAnd, CombineOperatorOr, CombineOperatorXor, CombineOperatorExcept:
		return true
	default:
		return false
	}
}

func DefaultCombineSettings[V any]() *CombineSettings[V] {
	return &CombineSettings[V]{
		Equality: func(a V, b V) bool {
			return reflect.DeepEqual(a, b)
		},
	}
}

type CombineSettings[V any] struct {
	// suppresses redundant updates when a key already in the result is
	// re-asserted with an equal value
	Equality func(a V, b V) bool
}

// combines a dynamic set of keyed streams under a set operator. A key is
// in the result iff its membership across the inner source mirrors
// satisfies the operator:
//
//	And:    every inner source contains the key
//	Or:     any inner source contains the key
//	Xor:    exactly one inner source contains the key
//	Except: the first inner source contains the key and none of the others
//
// With no inner sources the result is empty. The inner source set follows
// the parent list: adding a source can admit keys (and, for And/Except,
// evict previously matching keys); removing a source re-evaluates the
// keys it carried.
func DynamicCombine[K comparable, V any](operator CombineOperator, sources Observable[*ListChangeSet[Observable[*ChangeSet[K, V]]]], settings *CombineSettings[V]) Observable[*ChangeSet[K, V]] {
	if !operator.isValid() {
		panic(fmt.Errorf("Unknown combine operator: %d.", int(operator)))
	}
	if sources == nil {
		panic(fmt.Errorf("Sources required."))
	}
	if settings == nil || settings.Equality == nil {
		panic(fmt.Errorf("Equality settings required."))
	}
	equality := settings.Equality

	return ObservableFunc[*ChangeSet[K, V]](func(observer Observer[*ChangeSet[K, V]]) Disposable {
		combine := &combineSubscription[K, V]{
			operator: operator,
			equality: equality,
			seq:      newSequencer(),
			result:   NewChangeAwareCache[K, V](),
			out:      newEmitter(observer),
		}

		parent := sequenced(sources, combine.seq).Subscribe(NewObserver(
			func(changeSet *ListChangeSet[Observable[*ChangeSet[K, V]]]) {
				combine.handleParent(changeSet)
			},
			func(err error) {
				combine.fail(err)
			},
			func() {
				combine.parentCompleted = true
				combine.checkComplete()
			},
		))

		return NewCompositeDisposable(
			parent,
			DisposeFunc(func() {
				combine.out.stop()
				combine.seq.run(func() {
					combine.disposeContainers()
				})
			}),
		)
	})
}

func DynamicCombineWithDefaults[K comparable, V any](operator CombineOperator, sources Observable[*ListChangeSet[Observable[*ChangeSet[K, V]]]]) Observable[*ChangeSet[K, V]] {
	return DynamicCombine(operator, sources, DefaultCombineSettings[V]())
}

// fixed-source entry points

func And[K comparable, V any](sources ...Observable[*ChangeSet[K, V]]) Observable[*ChangeSet[K, V]] {
	return DynamicCombineWithDefaults(CombineOperatorAnd, staticSources(sources))
}

func Or[K comparable, V any](sources ...Observable[*ChangeSet[K, V]]) Observable[*ChangeSet[K, V]] {
	return DynamicCombineWithDefaults(CombineOperatorOr, staticSources(sources))
}

func Xor[K comparable, V any](sources ...Observable[*ChangeSet[K, V]]) Observable[*ChangeSet[K, V]] {
	return DynamicCombineWithDefaults(CombineOperatorXor, staticSources(sources))
}

func Except[K comparable, V any](sources ...Observable[*ChangeSet[K, V]]) Observable[*ChangeSet[K, V]] {
	return DynamicCombineWithDefaults(CombineOperatorExcept, staticSources(sources))
}

// a parent stream carrying one fixed batch of inner sources.
// Never completes: the combined lifetime is the inner sources' lifetime.
func staticSources[K comparable, V any](sources []Observable[*ChangeSet[K, V]]) Observable[*ListChangeSet[Observable[*ChangeSet[K, V]]]] {
	return ObservableFunc[*ListChangeSet[Observable[*ChangeSet[K, V]]]](func(observer Observer[*ListChangeSet[Observable[*ChangeSet[K, V]]]]) Disposable {
		if 0 < len(sources) {
			changes := []ListChange[Observable[*ChangeSet[K, V]]]{
				NewListRangeChange(ListChangeReasonAddRange, sources, 0),
			}
			observer.OnNext(newListChangeSet(changes))
		}
		return EmptyDisposable()
	})
}

// one inner source: its subscription and a mirror kept current via clone
type mergeContainer[K comparable, V any] struct {
	source       Observable[*ChangeSet[K, V]]
	mirror       *Cache[K, V]
	subscription Disposable
	completed    bool
	removed      bool
}

type combineSubscription[K comparable, V any] struct {
	operator CombineOperator
	equality func(a V, b V) bool

	seq *sequencer

	// parent list order; order defines "first" for Except
	containers []*mergeContainer[K, V]
	result     *ChangeAwareCache[K, V]
	out        *emitter[*ChangeSet[K, V]]

	parentCompleted bool
	failed          bool
}

func (self *combineSubscription[K, V]) handleParent(changeSet *ListChangeSet[Observable[*ChangeSet[K, V]]]) {
	defer handlePanic("combine", self.fail)

	if self.failed {
		return
	}
	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ListChangeReasonAdd:
			self.addSource(change.Item, change.CurrentIndex)
		case ListChangeReasonAddRange:
			for i, item := range change.Range {
				if change.CurrentIndex < 0 {
					self.addSource(item, -1)
				} else {
					self.addSource(item, change.CurrentIndex+i)
				}
			}
		case ListChangeReasonRemove:
			self.removeSourceAt(change.CurrentIndex, 1)
		case ListChangeReasonRemoveRange:
			self.removeSourceAt(change.CurrentIndex, len(change.Range))
		case ListChangeReasonClear:
			self.removeSourceAt(0, len(self.containers))
		case ListChangeReasonReplace:
			self.removeSourceAt(change.CurrentIndex, 1)
			self.addSource(change.Item, change.CurrentIndex)
		case ListChangeReasonMoved:
			self.moveSource(change.PreviousIndex, change.CurrentIndex)
		case ListChangeReasonRefresh:
			// not a membership change
		}
	}
	self.emitCaptured()
}

func (self *combineSubscription[K, V]) addSource(source Observable[*ChangeSet[K, V]], index int) {
	if source == nil {
		self.fail(fmt.Errorf("Inner source must not be nil."))
		return
	}
	container := &mergeContainer[K, V]{
		source: source,
		mirror: NewCache[K, V](),
	}
	if index < 0 || len(self.containers) < index {
		self.containers = append(self.containers, container)
	} else {
		self.containers = slices.Insert(self.containers, index, container)
	}

	// the source's first change set arrives through the sequencer and
	// initializes the mirror before the re-evaluation below runs
	container.subscription = sequenced[*ChangeSet[K, V]](source, self.seq).Subscribe(NewObserver(
		func(changeSet *ChangeSet[K, V]) {
			self.handleInner(container, changeSet)
		},
		func(err error) {
			self.fail(err)
		},
		func() {
			container.completed = true
			self.checkComplete()
		},
	))

	// adding a source can evict previously matching keys for And/Except
	switch self.operator {
	case CombineOperatorAnd, CombineOperatorExcept:
		self.seq.run(func() {
			if self.failed || container.removed {
				return
			}
			for _, key := range self.result.Keys() {
				self.processKey(key)
			}
			self.emitCaptured()
		})
	}
}

func (self *combineSubscription[K, V]) removeSourceAt(index int, n int) {
	if index < 0 || len(self.containers) < index+n {
		self.fail(fmt.Errorf("Source remove out of range: %d+%d.", index, n))
		return
	}
	removed := slices.Clone(self.containers[index : index+n])
	self.containers = slices.Delete(self.containers, index, index+n)

	keys := mapset.NewThreadUnsafeSet[K]()
	for _, container := range removed {
		container.removed = true
		if container.subscription != nil {
			container.subscription.Dispose()
		}
		for _, key := range container.mirror.Keys() {
			keys.Add(key)
		}
	}
	switch self.operator {
	case CombineOperatorAnd, CombineOperatorExcept:
		// membership may widen for keys the removed sources never carried
		for _, container := range self.containers {
			for _, key := range container.mirror.Keys() {
				keys.Add(key)
			}
		}
	}
	for key := range keys.Iter() {
		self.processKey(key)
	}
	self.emitCaptured()
	self.checkComplete()
}

func (self *combineSubscription[K, V]) moveSource(fromIndex int, toIndex int) {
	n := len(self.containers)
	if fromIndex < 0 || n <= fromIndex || toIndex < 0 || n <= toIndex {
		self.fail(fmt.Errorf("Source move out of range: %d->%d.", fromIndex, toIndex))
		return
	}
	if fromIndex == toIndex {
		return
	}
	container := self.containers[fromIndex]
	self.containers = slices.Delete(self.containers, fromIndex, fromIndex+1)
	self.containers = slices.Insert(self.containers, toIndex, container)

	// only Except depends on source order
	if self.operator == CombineOperatorExcept {
		keys := mapset.NewThreadUnsafeSet[K]()
		for _, container := range self.containers {
			for _, key := range container.mirror.Keys() {
				keys.Add(key)
			}
		}
		for key := range keys.Iter() {
			self.processKey(key)
		}
	}
}

func (self *combineSubscription[K, V]) handleInner(container *mergeContainer[K, V], changeSet *ChangeSet[K, V]) {
	defer handlePanic("combine", self.fail)

	if self.failed || container.removed {
		return
	}
	if err := changeSet.applyTo(container.mirror); err != nil {
		self.fail(err)
		return
	}
	for _, change := range changeSet.Changes() {
		switch change.Reason {
		case ChangeReasonAdd, ChangeReasonUpdate, ChangeReasonRemove:
			self.processKey(change.Key)
		case ChangeReasonRefresh:
			self.result.Refresh(change.Key)
		case ChangeReasonMoved:
			// order carries no meaning across combined sources
		}
	}
	self.emitCaptured()
}

func (self *combineSubscription[K, V]) matches(key K) bool {
	if len(self.containers) == 0 {
		return false
	}
	switch self.operator {
	case CombineOperatorAnd:
		for _, container := range self.containers {
			if !container.mirror.Contains(key) {
				return false
			}
		}
		return true
	case CombineOperatorOr:
		for _, container := range self.containers {
			if container.mirror.Contains(key) {
				return true
			}
		}
		return false
	case CombineOperatorXor:
		c := 0
		for _, container := range self.containers {
			if container.mirror.Contains(key) {
				c += 1
			}
		}
		return c == 1
	case CombineOperatorExcept:
		if !self.containers[0].mirror.Contains(key) {
			return false
		}
		for _, container := range self.containers[1:] {
			if container.mirror.Contains(key) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// the value a matching key takes: from the first source carrying it
func (self *combineSubscription[K, V]) valueFor(key K) Optional[V] {
	for _, container := range self.containers {
		if value, ok := container.mirror.Lookup(key).Get(); ok {
			return Some(value)
		}
	}
	return None[V]()
}

func (self *combineSubscription[K, V]) processKey(key K) {
	shouldBe := self.matches(key)
	cached, isIn := self.result.Lookup(key).Get()
	if shouldBe {
		value, ok := self.valueFor(key).Get()
		if !ok {
			// matches implies some source carries the key
			self.fail(fmt.Errorf("No source value for matching key %v.", key))
			return
		}
		if !isIn || !self.equality(value, cached) {
			self.result.AddOrUpdate(value, key)
		}
	} else if isIn {
		self.result.Remove(key)
	}
}

func (self *combineSubscription[K, V]) emitCaptured() {
	if captured := self.result.CaptureChanges(); !captured.IsEmpty() {
		self.out.next(captured)
	}
}

func (self *combineSubscription[K, V]) checkComplete() {
	if !self.parentCompleted {
		return
	}
	for _, container := range self.containers {
		if !container.completed {
			return
		}
	}
	self.disposeContainers()
	self.out.complete()
}

func (self *combineSubscription[K, V]) fail(err error) {
	if self.failed {
		return
	}
	self.failed = true
	self.disposeContainers()
	self.out.error(err)
}

func (self *combineSubscription[K, V]) disposeContainers() {
	for i := len(self.containers) - 1; 0 <= i; i -= 1 {
		container := self.containers[i]
		container.removed = true
		if container.subscription != nil {
			container.subscription.Dispose()
		}
	}
	self.containers = nil
}
