package reactive

import (
	"fmt"
	"strings"
)

// the kind of a keyed delta
type ChangeReason int

const (
	ChangeReasonAdd ChangeReason = iota
	ChangeReasonUpdate
	ChangeReasonRemove
	ChangeReasonRefresh
	ChangeReasonMoved
)

func (self ChangeReason) String() string {
	switch self {
	case ChangeReasonAdd:
		return "Add"
	case ChangeReasonUpdate:
		return "Update"
	case ChangeReasonRemove:
		return "Remove"
	case ChangeReasonRefresh:
		return "Refresh"
	case ChangeReasonMoved:
		return "Moved"
	default:
		return fmt.Sprintf("ChangeReason(%d)", int(self))
	}
}

// one keyed delta.
// `Previous` is present only for `ChangeReasonUpdate`.
// `CurrentIndex`/`PreviousIndex` are meaningful only for `ChangeReasonMoved`
// and are -1 otherwise.
type Change[K comparable, V any] struct {
	Reason        ChangeReason
	Key           K
	Current       V
	Previous      Optional[V]
	CurrentIndex  int
	PreviousIndex int
}

func NewChange[K comparable, V any](reason ChangeReason, key K, current V) Change[K, V] {
	switch reason {
	case ChangeReasonUpdate:
		panic(fmt.Errorf("Update requires a previous value."))
	case ChangeReasonMoved:
		panic(fmt.Errorf("Moved requires a current and previous index."))
	}
	return Change[K, V]{
		Reason:        reason,
		Key:           key,
		Current:       current,
		CurrentIndex:  -1,
		PreviousIndex: -1,
	}
}

func NewUpdateChange[K comparable, V any](key K, current V, previous V) Change[K, V] {
	return Change[K, V]{
		Reason:        ChangeReasonUpdate,
		Key:           key,
		Current:       current,
		Previous:      Some(previous),
		CurrentIndex:  -1,
		PreviousIndex: -1,
	}
}

func NewMovedChange[K comparable, V any](key K, current V, currentIndex int, previousIndex int) Change[K, V] {
	if currentIndex < 0 || previousIndex < 0 {
		panic(fmt.Errorf("Moved requires a current and previous index."))
	}
	return Change[K, V]{
		Reason:        ChangeReasonMoved,
		Key:           key,
		Current:       current,
		CurrentIndex:  currentIndex,
		PreviousIndex: previousIndex,
	}
}

func (self Change[K, V]) String() string {
	switch self.Reason {
	case ChangeReasonUpdate:
		return fmt.Sprintf("Update %v:%v->%v", self.Key, self.Previous.Value(), self.Current)
	case ChangeReasonMoved:
		return fmt.Sprintf("Moved %v:%d->%d", self.Key, self.PreviousIndex, self.CurrentIndex)
	default:
		return fmt.Sprintf("%s %v:%v", self.Reason, self.Key, self.Current)
	}
}

// a finite ordered sequence of keyed deltas.
// Replaying the changes in order against a receiver cache yields the same
// state as the sender. The sequence is read-only once constructed.
type ChangeSet[K comparable, V any] struct {
	changes []Change[K, V]
}

func NewChangeSet[K comparable, V any](changes []Change[K, V]) *ChangeSet[K, V] {
	return &ChangeSet[K, V]{
		changes: append([]Change[K, V]{}, changes...),
	}
}

// takes ownership of `changes`
func newChangeSet[K comparable, V any](changes []Change[K, V]) *ChangeSet[K, V] {
	return &ChangeSet[K, V]{
		changes: changes,
	}
}

func EmptyChangeSet[K comparable, V any]() *ChangeSet[K, V] {
	return &ChangeSet[K, V]{}
}

// read-only view of the change sequence
func (self *ChangeSet[K, V]) Changes() []Change[K, V] {
	return self.changes
}

func (self *ChangeSet[K, V]) Size() int {
	return len(self.changes)
}

func (self *ChangeSet[K, V]) IsEmpty() bool {
	return len(self.changes) == 0
}

func (self *ChangeSet[K, V]) count(reason ChangeReason) int {
	c := 0
	for _, change := range self.changes {
		if change.Reason == reason {
			c += 1
		}
	}
	return c
}

func (self *ChangeSet[K, V]) Adds() int {
	return self.count(ChangeReasonAdd)
}

func (self *ChangeSet[K, V]) Updates() int {
	return self.count(ChangeReasonUpdate)
}

func (self *ChangeSet[K, V]) Removes() int {
	return self.count(ChangeReasonRemove)
}

func (self *ChangeSet[K, V]) Refreshes() int {
	return self.count(ChangeReasonRefresh)
}

func (self *ChangeSet[K, V]) Moves() int {
	return self.count(ChangeReasonMoved)
}

func (self *ChangeSet[K, V]) TotalChanges() int {
	return len(self.changes)
}

func (self *ChangeSet[K, V]) String() string {
	parts := []string{}
	for _, change := range self.changes {
		parts = append(parts, change.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// applies the change sequence to `cache` in order.
// An update replayed against an absent key is an invariant violation.
func (self *ChangeSet[K, V]) applyTo(cache *Cache[K, V]) error {
	for _, change := range self.changes {
		switch change.Reason {
		case ChangeReasonAdd:
			cache.AddOrUpdate(change.Current, change.Key)
		case ChangeReasonUpdate:
			if !cache.Contains(change.Key) {
				return fmt.Errorf("Replayed update for absent key %v.", change.Key)
			}
			cache.AddOrUpdate(change.Current, change.Key)
		case ChangeReasonRemove:
			cache.Remove(change.Key)
		case ChangeReasonRefresh, ChangeReasonMoved:
			// not a data change
		}
	}
	return nil
}

// auxiliary response attached to a change set by paging/virtualization
type VirtualResponse struct {
	StartIndex int
	Size       int
}

// wraps a change set with a virtual response.
// Counters and iteration forward to the wrapped set verbatim.
type VirtualChangeSet[K comparable, V any] struct {
	*ChangeSet[K, V]

	Response VirtualResponse
}

func NewVirtualChangeSet[K comparable, V any](changeSet *ChangeSet[K, V], response VirtualResponse) *VirtualChangeSet[K, V] {
	if changeSet == nil {
		panic(fmt.Errorf("Change set required."))
	}
	return &VirtualChangeSet[K, V]{
		ChangeSet: changeSet,
		Response:  response,
	}
}
