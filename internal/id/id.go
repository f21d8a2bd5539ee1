package id

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator returns a new identifier on every call.
type Generator func() string

// UUID generates a random UUID v4 string.
func UUID() string {
	return uuid.NewString()
}

// Sequence generates "<prefix>-<n>" ids with n starting at 1.
// It is safe for concurrent use.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next id in the sequence.
func (s *Sequence) Next() string {
	return s.prefix + "-" + strconv.FormatUint(s.n.Add(1), 10)
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
