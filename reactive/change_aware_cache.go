package reactive

// a cache that records the deltas applied to it and emits them as change
// sets. Every mutating operation appends the corresponding change to a
// buffer; `CaptureChanges` atomically drains the buffer.
//
// Like `Cache`, owned by exactly one source or operator and mutated only
// under the owner's lock.
type ChangeAwareCache[K comparable, V any] struct {
	cache   *Cache[K, V]
	changes []Change[K, V]
}

func NewChangeAwareCache[K comparable, V any]() *ChangeAwareCache[K, V] {
	return &ChangeAwareCache[K, V]{
		cache: NewCache[K, V](),
	}
}

func (self *ChangeAwareCache[K, V]) Count() int {
	return self.cache.Count()
}

func (self *ChangeAwareCache[K, V]) Contains(key K) bool {
	return self.cache.Contains(key)
}

// never mutates
func (self *ChangeAwareCache[K, V]) Lookup(key K) Optional[V] {
	return self.cache.Lookup(key)
}

func (self *ChangeAwareCache[K, V]) Keys() []K {
	return self.cache.Keys()
}

func (self *ChangeAwareCache[K, V]) Items() []V {
	return self.cache.Items()
}

func (self *ChangeAwareCache[K, V]) Each(callback func(key K, value V)) {
	self.cache.Each(callback)
}

// records Add for an absent key, Update with the prior value otherwise
func (self *ChangeAwareCache[K, V]) AddOrUpdate(value V, key K) {
	if previous, ok := self.cache.Lookup(key).Get(); ok {
		self.changes = append(self.changes, NewUpdateChange(key, value, previous))
	} else {
		self.changes = append(self.changes, NewChange(ChangeReasonAdd, key, value))
	}
	self.cache.AddOrUpdate(value, key)
}

// no-op for an absent key
func (self *ChangeAwareCache[K, V]) Remove(key K) {
	previous, ok := self.cache.Lookup(key).Get()
	if !ok {
		return
	}
	self.changes = append(self.changes, NewChange(ChangeReasonRemove, key, previous))
	self.cache.Remove(key)
}

// signals that observable properties of the value changed without changing
// storage. No-op for an absent key.
func (self *ChangeAwareCache[K, V]) Refresh(key K) {
	value, ok := self.cache.Lookup(key).Get()
	if !ok {
		return
	}
	self.changes = append(self.changes, NewChange(ChangeReasonRefresh, key, value))
}

func (self *ChangeAwareCache[K, V]) RefreshAll() {
	self.cache.Each(func(key K, value V) {
		self.changes = append(self.changes, NewChange(ChangeReasonRefresh, key, value))
	})
}

// removes everything, recording a Remove per present key in order
func (self *ChangeAwareCache[K, V]) Clear() {
	self.cache.Each(func(key K, value V) {
		self.changes = append(self.changes, NewChange(ChangeReasonRemove, key, value))
	})
	self.cache.Clear()
}

// applies an external change set to internal state without recording,
// used when mirroring an upstream whose deltas will be forwarded as-is.
// An update replayed against an absent key is an invariant violation.
func (self *ChangeAwareCache[K, V]) Clone(changeSet *ChangeSet[K, V]) error {
	return changeSet.applyTo(self.cache)
}

// drains the buffer. The returned set's order matches record order.
// Returns an empty sentinel set, never nil; callers must not emit empty
// sets downstream.
func (self *ChangeAwareCache[K, V]) CaptureChanges() *ChangeSet[K, V] {
	if len(self.changes) == 0 {
		return EmptyChangeSet[K, V]()
	}
	changeSet := newChangeSet(self.changes)
	self.changes = nil
	return changeSet
}
