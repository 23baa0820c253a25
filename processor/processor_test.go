package processor

import (
	"reflect"
	"testing"
)

func TestStringsSetting(t *testing.T) {
	for _, tc := range []struct {
		v    interface{}
		want []string
	}{
		{[]interface{}{"a", 1, "b"}, []string{"a", "b"}},
		{[]string{"c"}, []string{"c"}},
		{"d", []string{"d"}},
		{"", nil},
		{nil, nil},
	} {
		have := StringsSetting(map[string]interface{}{"k": tc.v}, "k")
		if !reflect.DeepEqual(have, tc.want) {
			t.Errorf("%v: have %v, want %v", tc.v, have, tc.want)
		}
	}
}

func TestBool(t *testing.T) {
	for _, tc := range []struct {
		v    interface{}
		want bool
	}{
		{true, true},
		{"yes", true},
		{"no", false},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	} {
		if have := Bool(tc.v); have != tc.want {
			t.Errorf("%v: have %v, want %v", tc.v, have, tc.want)
		}
	}
}
