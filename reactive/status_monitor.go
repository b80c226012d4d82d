package reactive

import (
	"fmt"
	"sync"
)

// connection state of a monitored stream:
// StatusPending
//
//	-> StatusLoaded
//	  -> StatusErrored (terminal)
//	  -> StatusCompleted (terminal)
//	-> StatusErrored (terminal)
//	-> StatusCompleted (terminal)
type Status int

const (
	StatusPending Status = iota
	StatusLoaded
	StatusErrored
	StatusCompleted
)

func (self Status) String() string {
	switch self {
	case StatusPending:
		return "Pending"
	case StatusLoaded:
		return "Loaded"
	case StatusErrored:
		return "Errored"
	case StatusCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Status(%d)", int(self))
	}
}

func (self Status) IsTerminal() bool {
	switch self {
	case StatusErrored, StatusCompleted:
		return true
	default:
		return false
	}
}

// surfaces the state of any stream. The output starts with the current
// state on subscription, emits on transitions only, and suppresses
// consecutive duplicates. An upstream error emits StatusErrored and then
// propagates the error.
func MonitorStatus[T any](source Observable[T]) Observable[Status] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}

	return ObservableFunc[Status](func(observer Observer[Status]) Disposable {
		lock := &sync.Mutex{}
		out := newEmitter(observer)
		status := StatusPending

		transition := func(next Status) {
			if status.IsTerminal() || status == next {
				return
			}
			status = next
			out.next(next)
		}

		// current state first
		out.next(status)

		upstream := Synchronize(source, lock).Subscribe(NewObserver(
			func(value T) {
				transition(StatusLoaded)
			},
			func(err error) {
				transition(StatusErrored)
				out.error(err)
			},
			func() {
				transition(StatusCompleted)
				out.complete()
			},
		))

		return NewCompositeDisposable(
			upstream,
			DisposeFunc(out.stop),
		)
	})
}
