// Package reactive turns mutable keyed and ordered collections into
// observable streams of incremental changes, so that derived collections
// can be maintained without re-evaluating from scratch.
//
// Sources (`SourceCache`, `SourceList`) publish change sets on a stream.
// Operators subscribe, fold changes into internal change-aware caches,
// and publish derived change sets. Sinks (`ObservableCache`,
// `ObservableList`) materialize the final state.
package reactive

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func IdFromBytes(idBytes []byte) (Id, error) {
	if len(idBytes) != 16 {
		return Id{}, errors.New("Id must be 16 bytes")
	}
	return Id(idBytes), nil
}

func (self Id) Bytes() []byte {
	return self[0:16]
}

func (self Id) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", self[0:4], self[4:6], self[6:8], self[8:10], self[10:16])
}
