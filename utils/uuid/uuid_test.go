package uuid

import (
	"testing"

	"github.com/TincheHK/prefw/ident"
)

func TestUUIDUnique(t *testing.T) {
	u := NewUUID()
	if u.ID() == u.ID() {
		t.Error("UUIDs are not unique")
	}
}

func TestUUIDWellFormed(t *testing.T) {
	id := NewUUID().ID()
	if !ident.Valid(id) {
		t.Errorf("malformed id: %s", id)
	}
}

func TestStaticIDs(t *testing.T) {
	u := NewStaticIDs("A", "B")
	for _, expected := range []string{"A", "B", "A", "B", "A"} {
		if have, want := u.ID(), expected; have != want {
			t.Errorf("unexpected ID: have: %v, want: %v", have, want)
		}
	}
}
