package snapshot

import (
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name   string
		in     Value
		kind   Kind
		want   Value
		wantOK bool
	}{
		{"bool to bool", Bool(true), KindBool, Bool(true), true},
		{"int to bool", Int(2), KindBool, Bool(true), true},
		{"zero to bool", Int(0), KindBool, Bool(false), true},
		{"on to bool", String("on"), KindBool, Bool(true), true},
		{"empty to bool", String(""), KindBool, Bool(false), true},
		{"junk to bool", String("maybe"), KindBool, Value{}, false},
		{"string to int", String(" 42 "), KindInt, Int(42), true},
		{"bool to int", Bool(true), KindInt, Int(1), true},
		{"junk to int", String("12abc"), KindInt, Value{}, false},
		{"int to string", Int(7), KindString, String("7"), true},
		{"bool to string", Bool(false), KindString, String("false"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.Coerce(tt.kind)
			if ok != tt.wantOK {
				t.Fatalf("Coerce() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAccessorsOnWrongKind(t *testing.T) {
	if String("true").Bool() {
		t.Error("String.Bool() should be false")
	}
	if String("5").Int() != 0 {
		t.Error("String.Int() should be 0")
	}
	var zero Value
	if zero.Kind() != KindString || zero.String() != "" {
		t.Error("zero Value should be the empty string")
	}
}
