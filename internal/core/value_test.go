package core

import "testing"

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal text", TextValue("a"), TextValue("a"), true},
		{"different text", TextValue("a"), TextValue("b"), false},
		{"text vs ref same payload", TextValue("alice"), RefValue("alice"), true},
		{"null equals null", NullValue(TypeText), NullValue(TypeNumber), true},
		{"null vs value", NullValue(TypeText), TextValue("a"), false},
		{"value vs null", NumberValue(1), NullValue(TypeNumber), false},
		{"equal numbers", NumberValue(1.5), NumberValue(1.5), true},
		{"different numbers", NumberValue(1), NumberValue(2), false},
		{"bools", BoolValue(true), BoolValue(true), true},
		{"set unordered", SetValue("a", "b"), SetValue("b", "a"), true},
		{"set different", SetValue("a"), SetValue("a", "b"), false},
		{"kind mismatch", BoolValue(true), NumberValue(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValue_Contains(t *testing.T) {
	set := SetValue("alice", "bob")

	if !set.Contains(TextValue("alice")) {
		t.Error("Contains(alice) = false, want true")
	}
	if !set.Contains(RefValue("bob")) {
		t.Error("Contains(ref bob) = false, want true")
	}
	if set.Contains(TextValue("carol")) {
		t.Error("Contains(carol) = true, want false")
	}
	if set.Contains(NullValue(TypeText)) {
		t.Error("Contains(null) = true, want false")
	}
	if NullValue(TypeSet).Contains(TextValue("alice")) {
		t.Error("null set Contains = true, want false")
	}
	if TextValue("alice").Contains(TextValue("alice")) {
		t.Error("non-set Contains = true, want false")
	}
}

func TestValue_AsNumber(t *testing.T) {
	if n, ok := NumberValue(3.5).AsNumber(); !ok || n != 3.5 {
		t.Errorf("AsNumber() = %v, %v, want 3.5, true", n, ok)
	}
	if _, ok := NullValue(TypeNumber).AsNumber(); ok {
		t.Error("null AsNumber() ok = true, want false")
	}
	if _, ok := TextValue("3").AsNumber(); ok {
		t.Error("text AsNumber() ok = true, want false")
	}
}

func TestWindowContains(t *testing.T) {
	tests := []struct {
		name                     string
		point, pOff, start, end  float64
		wOff                     float64
		want                     bool
	}{
		{"inside", 600, 0, 540, 1020, 0, true},
		{"start boundary inclusive", 540, 0, 540, 1020, 0, true},
		{"end boundary inclusive", 1020, 0, 540, 1020, 0, true},
		{"before", 539, 0, 540, 1020, 0, false},
		{"after", 1021, 0, 540, 1020, 0, false},
		{"offsets cancel", 600, 60, 540, 1020, 60, true},
		{"point offset shifts out", 540, 60, 540, 1020, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowContains(tt.point, tt.pOff, tt.start, tt.end, tt.wOff)
			if got != tt.want {
				t.Errorf("WindowContains() = %v, want %v", got, tt.want)
			}
		})
	}
}
