package ident

import (
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{
		"00000000000000000000000000000000",
		"0123456789abcdef0123456789abcdef",
		"ffffffffffffffffffffffffffffffff",
		"5e0ad0b1c5a911ee8c900242ac120002",
	} {
		k, err := Pack(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if want, have := s, Unpack(k); want != have {
			t.Errorf("want: %s; have: %s", want, have)
		}

		b, err := PackBytes(s)
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 16, len(b); want != have {
			t.Errorf("want: %d; have: %d", want, have)
		}
		s2, err := UnpackBytes(b)
		if err != nil {
			t.Fatal(err)
		}
		if want, have := s, s2; want != have {
			t.Errorf("want: %s; have: %s", want, have)
		}
	}
}

func TestMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"abc",
		"0123456789abcdef0123456789abcde",   // 31
		"0123456789abcdef0123456789abcdef0", // 33
		"0123456789abcdef0123456789abcdeg",
		"0123456789ABCDEF0123456789ABCDEF",
		"01234567-89ab-cdef-0123-456789abcdef",
	} {
		_, err := Pack(s)
		if !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("%q: expected ErrInvalidIdentity, have: %v", s, err)
		}
		if Valid(s) {
			t.Errorf("%q: expected invalid", s)
		}
	}

	if _, err := UnpackBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity, have: %v", err)
	}
}
