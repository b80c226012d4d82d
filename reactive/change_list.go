package reactive

import (
	"fmt"
	"strings"
)

// the kind of an ordered-list delta
type ListChangeReason int

const (
	ListChangeReasonAdd ListChangeReason = iota
	ListChangeReasonAddRange
	ListChangeReasonReplace
	ListChangeReasonRemove
	ListChangeReasonRemoveRange
	ListChangeReasonRefresh
	ListChangeReasonMoved
	ListChangeReasonClear
)

func (self ListChangeReason) String() string {
	switch self {
	case ListChangeReasonAdd:
		return "Add"
	case ListChangeReasonAddRange:
		return "AddRange"
	case ListChangeReasonReplace:
		return "Replace"
	case ListChangeReasonRemove:
		return "Remove"
	case ListChangeReasonRemoveRange:
		return "RemoveRange"
	case ListChangeReasonRefresh:
		return "Refresh"
	case ListChangeReasonMoved:
		return "Moved"
	case ListChangeReasonClear:
		return "Clear"
	default:
		return fmt.Sprintf("ListChangeReason(%d)", int(self))
	}
}

func (self ListChangeReason) IsRange() bool {
	switch self {
	case ListChangeReasonAddRange, ListChangeReasonRemoveRange, ListChangeReasonClear:
		return true
	default:
		return false
	}
}

// one ordered-list delta.
// Single variants carry `Item`; range variants carry a contiguous `Range`
// and its starting index. `Previous` is present only for Replace.
// An index of -1 means "unpositioned": append for adds, match by value
// for removes.
type ListChange[T any] struct {
	Reason        ListChangeReason
	Item          T
	Previous      Optional[T]
	Range         []T
	CurrentIndex  int
	PreviousIndex int
}

func NewListChange[T any](reason ListChangeReason, item T, index int) ListChange[T] {
	if reason.IsRange() {
		panic(fmt.Errorf("%s requires a range.", reason))
	}
	if reason == ListChangeReasonReplace {
		panic(fmt.Errorf("Replace requires a previous item."))
	}
	if reason == ListChangeReasonMoved {
		panic(fmt.Errorf("Moved requires a current and previous index."))
	}
	return ListChange[T]{
		Reason:        reason,
		Item:          item,
		CurrentIndex:  index,
		PreviousIndex: -1,
	}
}

func NewListRangeChange[T any](reason ListChangeReason, items []T, startIndex int) ListChange[T] {
	if !reason.IsRange() {
		panic(fmt.Errorf("%s is not a range reason.", reason))
	}
	return ListChange[T]{
		Reason:        reason,
		Range:         append([]T{}, items...),
		CurrentIndex:  startIndex,
		PreviousIndex: -1,
	}
}

func NewListReplaceChange[T any](item T, previous T, index int) ListChange[T] {
	return ListChange[T]{
		Reason:        ListChangeReasonReplace,
		Item:          item,
		Previous:      Some(previous),
		CurrentIndex:  index,
		PreviousIndex: -1,
	}
}

func NewListMovedChange[T any](item T, currentIndex int, previousIndex int) ListChange[T] {
	if currentIndex < 0 || previousIndex < 0 {
		panic(fmt.Errorf("Moved requires a current and previous index."))
	}
	return ListChange[T]{
		Reason:        ListChangeReasonMoved,
		Item:          item,
		CurrentIndex:  currentIndex,
		PreviousIndex: previousIndex,
	}
}

// the number of individual items this delta touches
func (self ListChange[T]) ItemCount() int {
	if self.Reason.IsRange() {
		return len(self.Range)
	}
	return 1
}

func (self ListChange[T]) String() string {
	if self.Reason.IsRange() {
		return fmt.Sprintf("%s %v@%d", self.Reason, self.Range, self.CurrentIndex)
	}
	return fmt.Sprintf("%s %v@%d", self.Reason, self.Item, self.CurrentIndex)
}

// a finite ordered sequence of list deltas.
// Replaying the changes in order against a receiver list yields the same
// state as the sender.
type ListChangeSet[T any] struct {
	changes []ListChange[T]
}

func NewListChangeSet[T any](changes []ListChange[T]) *ListChangeSet[T] {
	return &ListChangeSet[T]{
		changes: append([]ListChange[T]{}, changes...),
	}
}

// takes ownership of `changes`
func newListChangeSet[T any](changes []ListChange[T]) *ListChangeSet[T] {
	return &ListChangeSet[T]{
		changes: changes,
	}
}

func EmptyListChangeSet[T any]() *ListChangeSet[T] {
	return &ListChangeSet[T]{}
}

// read-only view of the change sequence
func (self *ListChangeSet[T]) Changes() []ListChange[T] {
	return self.changes
}

func (self *ListChangeSet[T]) Size() int {
	return len(self.changes)
}

func (self *ListChangeSet[T]) IsEmpty() bool {
	return len(self.changes) == 0
}

func (self *ListChangeSet[T]) countItems(reasons ...ListChangeReason) int {
	c := 0
	for _, change := range self.changes {
		for _, reason := range reasons {
			if change.Reason == reason {
				c += change.ItemCount()
				break
			}
		}
	}
	return c
}

func (self *ListChangeSet[T]) Adds() int {
	return self.countItems(ListChangeReasonAdd, ListChangeReasonAddRange)
}

func (self *ListChangeSet[T]) Removes() int {
	return self.countItems(ListChangeReasonRemove, ListChangeReasonRemoveRange, ListChangeReasonClear)
}

func (self *ListChangeSet[T]) Replaces() int {
	return self.countItems(ListChangeReasonReplace)
}

func (self *ListChangeSet[T]) Refreshes() int {
	return self.countItems(ListChangeReasonRefresh)
}

func (self *ListChangeSet[T]) Moves() int {
	return self.countItems(ListChangeReasonMoved)
}

// total individual item deltas across the sequence
func (self *ListChangeSet[T]) TotalChanges() int {
	c := 0
	for _, change := range self.changes {
		c += change.ItemCount()
	}
	return c
}

func (self *ListChangeSet[T]) String() string {
	parts := []string{}
	for _, change := range self.changes {
		parts = append(parts, change.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
