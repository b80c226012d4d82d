package reactive

import (
	"sync"

	"gopkg.in/tomb.v2"
)

// bridges a stream to a Go channel for select-based consumption.
// Emissions are buffered internally and delivered by a goroutine whose
// lifecycle is owned by the returned tomb: killing the tomb unsubscribes
// and closes the channel; a terminal stream event kills the tomb with the
// stream error (nil for completion) after the buffer drains.
func ToChannel[T any](source Observable[T]) (<-chan T, *tomb.Tomb) {
	out := make(chan T)
	t := &tomb.Tomb{}

	bridge := &channelBridge[T]{
		updateMonitor: NewMonitor(),
	}
	subscription := source.Subscribe(NewObserver(
		func(value T) {
			bridge.push(value)
		},
		func(err error) {
			bridge.terminate(err)
		},
		func() {
			bridge.terminate(nil)
		},
	))

	t.Go(func() error {
		defer func() {
			subscription.Dispose()
			close(out)
		}()
		for {
			notify := bridge.updateMonitor.NotifyChannel()
			values, done, err := bridge.drain()
			for _, value := range values {
				select {
				case out <- value:
				case <-t.Dying():
					return tomb.ErrDying
				}
			}
			if done {
				return err
			}
			select {
			case <-notify:
			case <-t.Dying():
				return tomb.ErrDying
			}
		}
	})

	return out, t
}

type channelBridge[T any] struct {
	stateLock sync.Mutex
	queue     []T
	done      bool
	err       error

	updateMonitor *Monitor
}

func (self *channelBridge[T]) push(value T) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.done {
		return
	}
	self.queue = append(self.queue, value)
	self.updateMonitor.NotifyAll()
}

func (self *channelBridge[T]) terminate(err error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.done {
		return
	}
	self.done = true
	self.err = err
	self.updateMonitor.NotifyAll()
}

func (self *channelBridge[T]) drain() ([]T, bool, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	values := self.queue
	self.queue = nil
	return values, self.done, self.err
}
