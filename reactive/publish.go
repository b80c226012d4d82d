package reactive

import (
	"fmt"
	"sync"
)

// shared publication: a single upstream subscription multiplexed to many
// inner consumers. Every consumer registered before `Connect` sees the
// same sequence from the moment the connection is established. Disposing
// the connection releases the upstream subscription exactly once.
type Publisher[T any] struct {
	source Observable[T]

	stateLock sync.Mutex
	connected bool
	upstream  Disposable

	consumers *CallbackList[Observer[T]]
}

func NewPublisher[T any](source Observable[T]) *Publisher[T] {
	if source == nil {
		panic(fmt.Errorf("Source required."))
	}
	return &Publisher[T]{
		source:    source,
		consumers: NewCallbackList[Observer[T]](),
	}
}

// the multiplexed stream. Subscribing registers a consumer; it receives
// emissions only while a connection is established.
func (self *Publisher[T]) Observable() Observable[T] {
	return ObservableFunc[T](func(observer Observer[T]) Disposable {
		callbackId := self.consumers.Add(observer)
		return DisposeFunc(func() {
			self.consumers.Remove(callbackId)
		})
	})
}

// establishes the single upstream subscription
func (self *Publisher[T]) Connect() Disposable {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.connected {
			panic(fmt.Errorf("Publisher is already connected."))
		}
		self.connected = true
	}()

	upstream := self.source.Subscribe(NewObserver(
		func(value T) {
			for _, consumer := range self.consumers.Get() {
				consumer.OnNext(value)
			}
		},
		func(err error) {
			for _, consumer := range self.consumers.Get() {
				consumer.OnError(err)
			}
		},
		func() {
			for _, consumer := range self.consumers.Get() {
				consumer.OnComplete()
			}
		},
	))

	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		self.upstream = upstream
	}()

	return DisposeFunc(func() {
		var released Disposable
		func() {
			self.stateLock.Lock()
			defer self.stateLock.Unlock()

			if !self.connected {
				return
			}
			self.connected = false
			released = self.upstream
			self.upstream = nil
		}()
		if released != nil {
			released.Dispose()
		}
	})
}
