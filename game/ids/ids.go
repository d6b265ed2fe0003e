// Package ids provides unique identifiers for players and rooms.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Source produces identifiers that are unique among all live identifiers it
// has handed out.
type Source interface {
	Next() string
}

// UUIDSource hands out random version 4 UUIDs.
type UUIDSource struct{}

// NewUUIDSource returns a Source backed by github.com/google/uuid.
func NewUUIDSource() UUIDSource {
	return UUIDSource{}
}

func (UUIDSource) Next() string {
	return uuid.NewString()
}

// Sequence hands out "<prefix>-1", "<prefix>-2", ... and is safe for
// concurrent use. Tests use it for readable, predictable ids.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence returns a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
