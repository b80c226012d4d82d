package reactive

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// replaces the cache contents with `newItems` as one transactional edit,
// touching only the keys that actually changed:
//   - keys no longer present are removed
//   - new keys are added
//   - keys present on both sides are updated only when `equal` says the
//     values differ
//
// Removes are applied first, then upserts, to bound intermediate size.
// Key-set differencing uses key equality only; `equal` detects updates.
func (self *CacheUpdater[K, V]) EditDiff(newItems []V, equal func(a V, b V) bool) {
	if equal == nil {
		panic(fmt.Errorf("Equality function required."))
	}

	originalKeys := mapset.NewThreadUnsafeSet[K](self.cache.Keys()...)

	newKeys := mapset.NewThreadUnsafeSet[K]()
	for _, newItem := range newItems {
		newKeys.Add(self.keyFunction(newItem))
	}

	removes := originalKeys.Difference(newKeys)
	// iterate cache order for a deterministic change sequence
	for _, key := range self.cache.Keys() {
		if removes.Contains(key) {
			self.cache.Remove(key)
		}
	}

	for _, newItem := range newItems {
		key := self.keyFunction(newItem)
		if !originalKeys.Contains(key) {
			self.cache.AddOrUpdate(newItem, key)
			continue
		}
		original := self.cache.Lookup(key).Value()
		if !equal(original, newItem) {
			self.cache.AddOrUpdate(newItem, key)
		}
	}
}
