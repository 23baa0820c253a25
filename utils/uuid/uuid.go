// Package uuid provides identifier generation and test utilities.
package uuid

import (
	"github.com/TincheHK/prefw/ident"

	"github.com/google/uuid"
)

// IDers generate identifiers.
type IDer interface {
	ID() string
}

// UUID generates random identifiers in their external (32 hex character) form.
type UUID struct{}

// NewUUID creates a new UUID ID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// ID generates a new random identifier.
func (u *UUID) ID() string {
	return ident.Unpack(uuid.New())
}

// StaticIDs is an ID generator that cycles through provided IDs.
type StaticIDs struct {
	ids []string
	i   int
}

// NewStaticIDs creates a new static ID generator.
func NewStaticIDs(ids ...string) *StaticIDs {
	return &StaticIDs{ids: ids}
}

// ID returns the next ID.
// It will continually cycle through the IDs.
func (s *StaticIDs) ID() string {
	id := s.ids[s.i%len(s.ids)]
	s.i++
	return id
}
