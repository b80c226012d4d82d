package reactive

import (
	"slices"
	"sync"

	"golang.org/x/exp/maps"
)

// makes a copy of the list on get, so that callers can iterate without
// holding the lock
type CallbackList[T any] struct {
	stateLock   sync.Mutex
	callbackIds []Id
	callbacks   map[Id]T
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{
		callbackIds: []Id{},
		callbacks:   map[Id]T{},
	}
}

// in registration order
func (self *CallbackList[T]) Get() []T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	callbacks := make([]T, 0, len(self.callbackIds))
	for _, callbackId := range self.callbackIds {
		callbacks = append(callbacks, self.callbacks[callbackId])
	}
	return callbacks
}

func (self *CallbackList[T]) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.callbackIds)
}

func (self *CallbackList[T]) Add(callback T) Id {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	callbackId := NewId()
	self.callbackIds = append(self.callbackIds, callbackId)
	self.callbacks[callbackId] = callback
	return callbackId
}

func (self *CallbackList[T]) Remove(callbackId Id) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if _, ok := self.callbacks[callbackId]; !ok {
		// not present
		return
	}
	delete(self.callbacks, callbackId)
	i := slices.Index(self.callbackIds, callbackId)
	self.callbackIds = slices.Delete(self.callbackIds, i, i+1)
}

func (self *CallbackList[T]) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.callbackIds = []Id{}
	maps.Clear(self.callbacks)
}

// notifies waiters of an update by closing the update channel and
// creating a new one
type Monitor struct {
	stateLock sync.Mutex
	update    chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		update: make(chan struct{}),
	}
}

// the returned channel is closed on the next `NotifyAll`
func (self *Monitor) NotifyChannel() <-chan struct{} {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.update
}

func (self *Monitor) NotifyAll() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	close(self.update)
	self.update = make(chan struct{})
}
