package reactive

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSourceListEditBatches(t *testing.T) {
	source := NewSourceList[int]()
	rec := newRecorder[*ListChangeSet[int]]()
	subscription := source.Connect().Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Edit(func(updater *ListUpdater[int]) {
		updater.Add(1)
		updater.Add(2)
		updater.AddRange([]int{3, 4})
	})
	assert.Equal(t, 1, len(rec.values))
	assert.Equal(t, 4, rec.values[0].Adds())
	assert.Equal(t, []int{1, 2, 3, 4}, source.Items())

	source.Edit(func(updater *ListUpdater[int]) {
		updater.RemoveAt(0)
		updater.Remove(3)
	})
	assert.Equal(t, []int{2, 4}, source.Items())
	assert.Equal(t, 2, rec.values[1].Removes())

	source.Edit(func(updater *ListUpdater[int]) {
		updater.ReplaceAt(1, 40)
		updater.InsertAt(0, 0)
		updater.Move(0, 2)
	})
	assert.Equal(t, []int{2, 40, 0}, source.Items())

	// an edit with no net changes emits nothing
	emissions := len(rec.values)
	source.Edit(func(updater *ListUpdater[int]) {
		updater.Remove(99)
	})
	assert.Equal(t, emissions, len(rec.values))
}

func TestSourceListConnectSnapshot(t *testing.T) {
	source := NewSourceList[int]()
	source.Add(1, 2, 3)

	rec := newRecorder[*ListChangeSet[int]]()
	subscription := source.Connect().Subscribe(rec.observer())
	defer subscription.Dispose()

	// current state arrives as a single AddRange batch
	assert.Equal(t, 1, len(rec.values))
	changes := rec.values[0].Changes()
	assert.Equal(t, 1, len(changes))
	assert.Equal(t, ListChangeReasonAddRange, changes[0].Reason)
	assert.Equal(t, []int{1, 2, 3}, changes[0].Range)
}

func TestSourceListClearCarriesRemovedBlock(t *testing.T) {
	source := NewSourceList[int]()
	source.Add(1, 2)

	rec := newRecorder[*ListChangeSet[int]]()
	subscription := source.Connect().Subscribe(rec.observer())
	defer subscription.Dispose()

	source.Clear()
	changes := rec.values[1].Changes()
	assert.Equal(t, 1, len(changes))
	assert.Equal(t, ListChangeReasonClear, changes[0].Reason)
	assert.Equal(t, []int{1, 2}, changes[0].Range)
	assert.Equal(t, 0, source.Count())

	// clearing an empty list emits nothing
	emissions := len(rec.values)
	source.Clear()
	assert.Equal(t, emissions, len(rec.values))
}

func TestObservableListMaterializes(t *testing.T) {
	source := NewSourceList[int]()
	source.Add(1, 2)

	view := AsObservableList(source.Connect())
	defer view.Dispose()

	assert.Equal(t, []int{1, 2}, view.Items())

	source.Edit(func(updater *ListUpdater[int]) {
		updater.InsertAt(1, 9)
		updater.RemoveAt(0)
	})
	assert.Equal(t, []int{9, 2}, view.Items())
	assert.Equal(t, 2, view.Count())

	source.Edit(func(updater *ListUpdater[int]) {
		updater.Move(0, 1)
	})
	assert.Equal(t, []int{2, 9}, view.Items())

	source.Complete()
	assert.Equal(t, true, view.IsCompleted())
}
