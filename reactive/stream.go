package reactive

import (
	"fmt"
	"slices"
	"sync"
)

// push-based stream contract. Subscribers receive `OnNext` values and at
// most one terminal `OnError` or `OnComplete`. Delivery is serial per
// subscription: no overlapping calls into one observer.

type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

type observerFuncs[T any] struct {
	onNext     func(value T)
	onError    func(err error)
	onComplete func()
}

// any of the callbacks may be nil
func NewObserver[T any](onNext func(value T), onError func(err error), onComplete func()) Observer[T] {
	return &observerFuncs[T]{
		onNext:     onNext,
		onError:    onError,
		onComplete: onComplete,
	}
}

func (self *observerFuncs[T]) OnNext(value T) {
	if self.onNext != nil {
		self.onNext(value)
	}
}

func (self *observerFuncs[T]) OnError(err error) {
	if self.onError != nil {
		self.onError(err)
	}
}

func (self *observerFuncs[T]) OnComplete() {
	if self.onComplete != nil {
		self.onComplete()
	}
}

type Observable[T any] interface {
	Subscribe(observer Observer[T]) Disposable
}

type ObservableFunc[T any] func(observer Observer[T]) Disposable

func (self ObservableFunc[T]) Subscribe(observer Observer[T]) Disposable {
	return self(observer)
}

type Disposable interface {
	Dispose()
}

type DisposeFunc func()

func (self DisposeFunc) Dispose() {
	self()
}

func EmptyDisposable() Disposable {
	return DisposeFunc(func() {})
}

// a small LIFO stack of disposables. Disposing detaches all inner
// disposables in reverse add order, exactly once. Idempotent.
type CompositeDisposable struct {
	stateLock   sync.Mutex
	disposed    bool
	disposables []Disposable
}

func NewCompositeDisposable(disposables ...Disposable) *CompositeDisposable {
	return &CompositeDisposable{
		disposables: slices.Clone(disposables),
	}
}

// if already disposed, `disposable` is disposed immediately
func (self *CompositeDisposable) Add(disposable Disposable) {
	disposed := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.disposed {
			disposed = true
			return
		}
		self.disposables = append(self.disposables, disposable)
	}()
	if disposed {
		disposable.Dispose()
	}
}

func (self *CompositeDisposable) IsDisposed() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.disposed
}

func (self *CompositeDisposable) Dispose() {
	var disposables []Disposable
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.disposed {
			return
		}
		self.disposed = true
		disposables = self.disposables
		self.disposables = nil
	}()
	// release outside the lock, most recently added first
	for i := len(disposables) - 1; 0 <= i; i -= 1 {
		disposables[i].Dispose()
	}
}

// funnels one upstream's emissions through a shared mutex so that a
// multi-source operator observes a total order across its upstreams.
// Every multi-source operator synchronizes every subscribed upstream on a
// single lock object shared across those upstreams.
func Synchronize[T any](source Observable[T], lock *sync.Mutex) Observable[T] {
	if lock == nil {
		panic(fmt.Errorf("Lock required."))
	}
	return ObservableFunc[T](func(observer Observer[T]) Disposable {
		return source.Subscribe(NewObserver(
			func(value T) {
				lock.Lock()
				defer lock.Unlock()
				observer.OnNext(value)
			},
			func(err error) {
				lock.Lock()
				defer lock.Unlock()
				observer.OnError(err)
			},
			func() {
				lock.Lock()
				defer lock.Unlock()
				observer.OnComplete()
			},
		))
	})
}

// serializes emissions from multiple upstreams into a total order, like
// `Synchronize`, but re-entrant: work scheduled while a frame is active is
// queued and drained by the active frame on the same goroutine. Operators
// that subscribe to new upstreams from inside a change handler (dynamic
// combiner, merge-many) would deadlock on a plain mutex, because the new
// upstream delivers its first change set synchronously during subscribe.
type sequencer struct {
	stateLock sync.Mutex
	active    bool
	queue     []func()
}

func newSequencer() *sequencer {
	return &sequencer{}
}

func (self *sequencer) run(work func()) {
	self.stateLock.Lock()
	self.queue = append(self.queue, work)
	if self.active {
		self.stateLock.Unlock()
		return
	}
	self.active = true
	for 0 < len(self.queue) {
		next := self.queue[0]
		self.queue = self.queue[1:]
		self.stateLock.Unlock()
		next()
		self.stateLock.Lock()
	}
	self.active = false
	self.stateLock.Unlock()
}

// `Synchronize` over a sequencer
func sequenced[T any](source Observable[T], seq *sequencer) Observable[T] {
	return ObservableFunc[T](func(observer Observer[T]) Disposable {
		return source.Subscribe(NewObserver(
			func(value T) {
				seq.run(func() {
					observer.OnNext(value)
				})
			},
			func(err error) {
				seq.run(func() {
					observer.OnError(err)
				})
			},
			func() {
				seq.run(func() {
					observer.OnComplete()
				})
			},
		))
	})
}

// guards a downstream observer: at most one terminal event, and nothing
// after `stop`. Signal calls must already be serialized by the operator's
// lock or sequencer; the emitter's own lock only orders the done flag
// against disposal, which may race with an in-flight emission.
type emitter[T any] struct {
	stateLock sync.Mutex
	observer  Observer[T]
	done      bool
}

func newEmitter[T any](observer Observer[T]) *emitter[T] {
	return &emitter[T]{
		observer: observer,
	}
}

func (self *emitter[T]) next(value T) {
	self.stateLock.Lock()
	if self.done {
		self.stateLock.Unlock()
		return
	}
	observer := self.observer
	self.stateLock.Unlock()
	observer.OnNext(value)
}

func (self *emitter[T]) error(err error) {
	self.stateLock.Lock()
	if self.done {
		self.stateLock.Unlock()
		return
	}
	self.done = true
	observer := self.observer
	self.stateLock.Unlock()
	observer.OnError(err)
}

func (self *emitter[T]) complete() {
	self.stateLock.Lock()
	if self.done {
		self.stateLock.Unlock()
		return
	}
	self.done = true
	observer := self.observer
	self.stateLock.Unlock()
	observer.OnComplete()
}

// stops future emissions without a terminal event (disposal)
func (self *emitter[T]) stop() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.done = true
}

// converts a selector/predicate panic into a terminal stream error.
// Must be invoked directly by defer: `defer handlePanic(tag, fail)`.
func handlePanic(tag string, fail func(err error)) {
	if r := recover(); r != nil {
		logRecovered(tag, r)
		fail(fmt.Errorf("%s: %v", tag, r))
	}
}
