package reactive

import (
	"fmt"
	"sync"
)

// maintains the subset of a keyed stream whose values satisfy `predicate`.
// Refresh re-evaluates the predicate: a membership toggle becomes an
// Add/Remove, otherwise the Refresh is forwarded for present keys.
func Filter[K comparable, V any](source Observable[*ChangeSet[K, V]], predicate func(value V) bool) Observable[*ChangeSet[K, V]] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	if predicate == nil {
		panic(fmt.Errorf("Predicate required."))
	}

	return ObservableFunc[*ChangeSet[K, V]](func(observer Observer[*ChangeSet[K, V]]) Disposable {
		lock := &sync.Mutex{}
		result := NewChangeAwareCache[K, V]()
		out := newEmitter(observer)

		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				defer handlePanic("filter", out.error)

				for _, change := range changeSet.Changes() {
					key := change.Key
					switch change.Reason {
					case ChangeReasonAdd, ChangeReasonUpdate:
						if predicate(change.Current) {
							result.AddOrUpdate(change.Current, key)
						} else {
							result.Remove(key)
						}
					case ChangeReasonRemove:
						result.Remove(key)
					case ChangeReasonRefresh:
						isIn := result.Contains(key)
						if predicate(change.Current) {
							if isIn {
								result.Refresh(key)
							} else {
								result.AddOrUpdate(change.Current, key)
							}
						} else if isIn {
							result.Remove(key)
						}
					case ChangeReasonMoved:
						// order carries no meaning for a keyed subset
					}
				}

				if captured := result.CaptureChanges(); !captured.IsEmpty() {
					out.next(captured)
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
