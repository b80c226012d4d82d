package reactive

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
)

// records everything a stream emits
type recorder[T any] struct {
	values    []T
	errs      []error
	completed int
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{}
}

func (self *recorder[T]) observer() Observer[T] {
	return NewObserver(
		func(value T) {
			self.values = append(self.values, value)
		},
		func(err error) {
			self.errs = append(self.errs, err)
		},
		func() {
			self.completed += 1
		},
	)
}

// replays recorded keyed change sets against an empty receiver cache
func replay[K comparable, V any](t *testing.T, changeSets []*ChangeSet[K, V]) *Cache[K, V] {
	receiver := NewCache[K, V]()
	for _, changeSet := range changeSets {
		// no empty emissions
		assert.Equal(t, true, 1 <= changeSet.TotalChanges())
		if err := changeSet.applyTo(receiver); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	return receiver
}

func TestCompositeDisposable(t *testing.T) {
	order := []int{}
	composite := NewCompositeDisposable(
		DisposeFunc(func() {
			order = append(order, 0)
		}),
		DisposeFunc(func() {
			order = append(order, 1)
		}),
	)
	composite.Add(DisposeFunc(func() {
		order = append(order, 2)
	}))

	assert.Equal(t, false, composite.IsDisposed())
	composite.Dispose()
	// released in reverse add order
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Equal(t, true, composite.IsDisposed())

	// disposing twice has the same effect as disposing once
	composite.Dispose()
	assert.Equal(t, []int{2, 1, 0}, order)

	// adding after disposal disposes immediately
	composite.Add(DisposeFunc(func() {
		order = append(order, 3)
	}))
	assert.Equal(t, []int{2, 1, 0, 3}, order)
}

func TestEmitterTerminalOnce(t *testing.T) {
	rec := newRecorder[int]()
	out := newEmitter(rec.observer())

	out.next(1)
	out.error(errors.New("first"))
	out.error(errors.New("second"))
	out.complete()
	out.next(2)

	assert.Equal(t, []int{1}, rec.values)
	assert.Equal(t, 1, len(rec.errs))
	assert.Equal(t, 0, rec.completed)
}

func TestEmitterStop(t *testing.T) {
	rec := newRecorder[int]()
	out := newEmitter(rec.observer())

	out.next(1)
	out.stop()
	out.next(2)
	out.complete()

	assert.Equal(t, []int{1}, rec.values)
	assert.Equal(t, 0, rec.completed)
}

func TestSynchronize(t *testing.T) {
	lock := &sync.Mutex{}
	rec := newRecorder[int]()

	source := ObservableFunc[int](func(observer Observer[int]) Disposable {
		observer.OnNext(1)
		observer.OnNext(2)
		observer.OnComplete()
		return EmptyDisposable()
	})
	Synchronize[int](source, lock).Subscribe(rec.observer())

	assert.Equal(t, []int{1, 2}, rec.values)
	assert.Equal(t, 1, rec.completed)
}

func TestSequencerReentrant(t *testing.T) {
	seq := newSequencer()
	order := []int{}

	seq.run(func() {
		order = append(order, 0)
		// scheduled while a frame is active: runs after this frame
		seq.run(func() {
			order = append(order, 2)
		})
		order = append(order, 1)
	})
	seq.run(func() {
		order = append(order, 3)
	})

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestPublisher(t *testing.T) {
	upstreamSubscribes := 0
	upstreamDisposes := 0
	var upstream Observer[int]
	source := ObservableFunc[int](func(observer Observer[int]) Disposable {
		upstreamSubscribes += 1
		upstream = observer
		return DisposeFunc(func() {
			upstreamDisposes += 1
		})
	})

	publisher := NewPublisher[int](source)
	a := newRecorder[int]()
	b := newRecorder[int]()
	subA := publisher.Observable().Subscribe(a.observer())
	subB := publisher.Observable().Subscribe(b.observer())

	connection := publisher.Connect()
	// exactly one upstream subscription for many consumers
	assert.Equal(t, 1, upstreamSubscribes)

	upstream.OnNext(1)
	upstream.OnNext(2)
	// every consumer sees the same sequence
	assert.Equal(t, []int{1, 2}, a.values)
	assert.Equal(t, []int{1, 2}, b.values)

	subB.Dispose()
	upstream.OnNext(3)
	assert.Equal(t, []int{1, 2, 3}, a.values)
	assert.Equal(t, []int{1, 2}, b.values)

	connection.Dispose()
	// released exactly once
	connection.Dispose()
	assert.Equal(t, 1, upstreamDisposes)

	subA.Dispose()
}

func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func() int]()

	oneId := callbacks.Add(func() int { return 1 })
	callbacks.Add(func() int { return 2 })
	assert.Equal(t, 2, callbacks.Count())

	got := []int{}
	for _, callback := range callbacks.Get() {
		got = append(got, callback())
	}
	// registration order
	assert.Equal(t, []int{1, 2}, got)

	callbacks.Remove(oneId)
	assert.Equal(t, 1, callbacks.Count())
	// removing twice is a no-op
	callbacks.Remove(oneId)
	assert.Equal(t, 1, callbacks.Count())
}

func TestMonitor(t *testing.T) {
	monitor := NewMonitor()
	notify := monitor.NotifyChannel()

	select {
	case <-notify:
		t.Fatal("not notified yet")
	default:
	}

	monitor.NotifyAll()
	select {
	case <-notify:
	default:
		t.Fatal("expected notify")
	}

	// a fresh channel waits for the next notify
	notify = monitor.NotifyChannel()
	select {
	case <-notify:
		t.Fatal("not notified yet")
	default:
	}
}
