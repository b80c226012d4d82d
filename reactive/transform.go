package reactive

import (
	"fmt"
	"sync"
)

// projects each value of a keyed stream through `selector`, preserving
// keys. Refresh is forwarded so downstream sinks bound to observable
// properties can react without a value-level delta.
func Transform[K comparable, V any, D any](source Observable[*ChangeSet[K, V]], selector func(value V, key K) D) Observable[*ChangeSet[K, D]] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	if selector == nil {
		panic(fmt.Errorf("Selector required."))
	}

	return ObservableFunc[*ChangeSet[K, D]](func(observer Observer[*ChangeSet[K, D]]) Disposable {
		lock := &sync.Mutex{}
		result := NewChangeAwareCache[K, D]()
		out := newEmitter(observer)

		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(changeSet *ChangeSet[K, V]) {
				defer handlePanic("transform", out.error)

				for _, change := range changeSet.Changes() {
					key := change.Key
					switch change.Reason {
					case ChangeReasonAdd, ChangeReasonUpdate:
						result.AddOrUpdate(selector(change.Current, key), key)
					case ChangeReasonRemove:
						result.Remove(key)
					case ChangeReasonRefresh:
						result.Refresh(key)
					case ChangeReasonMoved:
						// order carries no meaning downstream of a projection
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
