package reactive

import (
	"fmt"
)

// present-or-absent sum type, used wherever a lookup may miss.
// The zero value is absent.
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{
		value:   value,
		present: true,
	}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (self Optional[T]) Present() bool {
	return self.present
}

func (self Optional[T]) Get() (T, bool) {
	return self.value, self.present
}

// the value must be present
func (self Optional[T]) Value() T {
	if !self.present {
		panic(fmt.Errorf("Optional value is absent."))
	}
	return self.value
}

func (self Optional[T]) ValueOr(defaultValue T) T {
	if !self.present {
		return defaultValue
	}
	return self.value
}

func (self Optional[T]) String() string {
	if !self.present {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", self.value)
}
