package reactive

import (
	"fmt"
	"sync"

	"golang.org/x/exp/constraints"
)

// running maximum of `valueSelector` over a keyed stream. Emits once per
// upstream change set: `emptyValue` when that change set leaves the
// source without items. Nothing is emitted before the first change set.
// Consecutive duplicate emissions are suppressed.
func Maximum[K comparable, V any, R constraints.Ordered](source Observable[*ChangeSet[K, V]], valueSelector func(value V) R, emptyValue R) Observable[R] {
	return extremum(source, valueSelector, emptyValue, "max", func(candidate R, current R) bool {
		return current < candidate
	})
}

// running minimum of `valueSelector` over a keyed stream
func Minimum[K comparable, V any, R constraints.Ordered](source Observable[*ChangeSet[K, V]], valueSelector func(value V) R, emptyValue R) Observable[R] {
	return extremum(source, valueSelector, emptyValue, "min", func(candidate R, current R) bool {
		return candidate < current
	})
}

// one flattened aggregation event: an added or removed value, without
// index or refresh
type aggregateChange[V any] struct {
	remove bool
	value  V
}

// The upstream is shared through a publisher so that two views observe
// the same sequence: the flattened aggregation changes and the
// materialized collection after each change set. The views are consumed
// in zipped order; the running extremum folds the changes and falls back
// to a full scan of the collection only when the current extremum is
// removed.
func extremum[K comparable, V any, R constraints.Ordered](source Observable[*ChangeSet[K, V]], valueSelector func(value V) R, emptyValue R, tag string, better func(candidate R, current R) bool) Observable[R] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	if valueSelector == nil {
		panic(fmt.Errorf("Value selector required."))
	}

	return ObservableFunc[R](func(observer Observer[R]) Disposable {
		lock := &sync.Mutex{}
		out := newEmitter(observer)

		state := &extremumState[V, R]{
			valueSelector: valueSelector,
			emptyValue:    emptyValue,
			better:        better,
			out:           out,
		}

		publisher := NewPublisher(Synchronize(source, lock))
		shared := publisher.Observable()

		// view (a): flattened aggregation changes
		changesView := shared.Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				defer handlePanic(tag, out.error)

				flattened := []aggregateChange[V]{}
				for _, change := range changeSet.Changes() {
					switch change.Reason {
					case ChangeReasonAdd:
						flattened = append(flattened, aggregateChange[V]{value: change.Current})
					case ChangeReasonUpdate:
						flattened = append(flattened, aggregateChange[V]{remove: true, value: change.Previous.Value()})
						flattened = append(flattened, aggregateChange[V]{value: change.Current})
					case ChangeReasonRemove:
						flattened = append(flattened, aggregateChange[V]{remove: true, value: change.Current})
					case ChangeReasonRefresh, ChangeReasonMoved:
						// without index or refresh
					}
				}
				state.pendingChanges = append(state.pendingChanges, flattened)
				state.step()
			},
			func(err error) {
				out.error(err)
			},
			func() {
				out.complete()
			},
		))

		// view (b): collection snapshot after the change
		mirror := NewCache[K, V]()
		snapshotView := shared.Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				defer handlePanic(tag, out.error)

				if err := changeSet.applyTo(mirror); err != nil {
					out.error(err)
					return
				}
				state.pendingSnapshots = append(state.pendingSnapshots, mirror.Items())
				state.step()
			},
			nil,
			nil,
		))

		connection := publisher.Connect()

		return NewCompositeDisposable(
			changesView,
			snapshotView,
			connection,
			DisposeFunc(out.stop),
		)
	})
}

type extremumState[V any, R constraints.Ordered] struct {
	valueSelector func(value V) R
	emptyValue    R
	better        func(candidate R, current R) bool

	// zipped views: both queues drain pairwise
	pendingChanges   [][]aggregateChange[V]
	pendingSnapshots [][]V

	current     Optional[R]
	lastEmitted Optional[R]

	out *emitter[R]
}

func (self *extremumState[V, R]) step() {
	for 0 < len(self.pendingChanges) && 0 < len(self.pendingSnapshots) {
		changes := self.pendingChanges[0]
		self.pendingChanges = self.pendingChanges[1:]
		collection := self.pendingSnapshots[0]
		self.pendingSnapshots = self.pendingSnapshots[1:]

		needsReset := false
		for _, change := range changes {
			value := self.valueSelector(change.value)
			if change.remove {
				if current, ok := self.current.Get(); ok && value == current {
					needsReset = true
					break
				}
			} else if current, ok := self.current.Get(); !ok {
				self.current = Some(value)
			} else if self.better(value, current) {
				self.current = Some(value)
			}
		}

		if needsReset {
			self.current = None[R]()
			for _, item := range collection {
				value := self.valueSelector(item)
				if current, ok := self.current.Get(); !ok || self.better(value, current) {
					self.current = Some(value)
				}
			}
		}

		next := self.current.ValueOr(self.emptyValue)
		if lastEmitted, ok := self.lastEmitted.Get(); !ok || lastEmitted != next {
			self.lastEmitted = Some(next)
			self.out.next(next)
		}
	}
}

// running count of items in a keyed stream. Consecutive duplicate
// emissions are suppressed.
func Count[K comparable, V any](source Observable[*ChangeSet[K, V]]) Observable[int] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}

	return ObservableFunc[int](func(observer Observer[int]) Disposable {
		lock := &sync.Mutex{}
		out := newEmitter(observer)
		count := 0
		var lastEmitted Optional[int]

		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				count += changeSet.Adds() - changeSet.Removes()
				if last, ok := lastEmitted.Get(); !ok || last != count {
					lastEmitted = Some(count)
					out.next(count)
				}
			},
			func(err error) {
				out.error(err)
			},
			func() {
				out.complete()
			},
		))

		return NewCompositeDisposable(
			upstream,
			DisposeFunc(out.stop),
		)
	})
}

type Number interface {
	constraints.Integer | constraints.Float
}

// running sum of `valueSelector` over a keyed stream. Consecutive
// duplicate emissions are suppressed.
func Sum[K comparable, V any, R Number](source Observable[*ChangeSet[K, V]], valueSelector func(value V) R) Observable[R] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	if valueSelector == nil {
		panic(fmt.Errorf("Value selector required."))
	}

	return ObservableFunc[R](func(observer Observer[R]) Disposable {
		lock := &sync.Mutex{}
		out := newEmitter(observer)
		var sum R
		var lastEmitted Optional[R]

		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				defer handlePanic("sum", out.error)

				for _, change := range changeSet.Changes() {
					switch change.Reason {
					case ChangeReasonAdd:
						sum += valueSelector(change.Current)
					case ChangeReasonUpdate:
						sum += valueSelector(change.Current) - valueSelector(change.Previous.Value())
					case ChangeReasonRemove:
						sum -= valueSelector(change.Current)
					case ChangeReasonRefresh, ChangeReasonMoved:
						// not a data change
					}
				}
				if last, ok := lastEmitted.Get(); !ok || last != sum {
					lastEmitted = Some(sum)
					out.next(sum)
				}
			},
			func(err error) {
				out.error(err)
			},
			func() {
				out.complete()
			},
		))

		return NewCompositeDisposable(
			upstream,
			DisposeFunc(out.stop),
		)
	})
}
