package script

import (
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		token string
		want  any
	}{
		{"3", 3},
		{"-2", -2},
		{"0.5", 0.5},
		{"4.3", 4.3},
		{"'w'", "w"},
		{`"left"`, "left"},
		{"w", "w"},
		{"lcontrol", "lcontrol"},
		{"inf", "inf"},
		{"NaN", "NaN"},
		{"{'w':2,'a':1}", Weights{{"w", 2}, {"a", 1}}},
		{"{'left':0.5}", Weights{{"left", 0.5}}},
		{"{}", Weights{}},
		{"{w:2}", "{w:2}"},
		{"{'w':x}", "{'w':x}"},
		{"'", "'"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := ParseValue(tt.token)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValue(%q) = %#v, want %#v", tt.token, got, tt.want)
			}
		})
	}
}

func TestWeights_Pick(t *testing.T) {
	w := Weights{{"w", 2}, {"a", 1}, {"s", 1}}

	tests := []struct {
		u    float64
		want string
	}{
		{0, "w"},
		{0.49, "w"},
		{0.5, "a"},
		{0.74, "a"},
		{0.75, "s"},
		{0.999, "s"},
	}
	for _, tt := range tests {
		if got := w.Pick(tt.u); got != tt.want {
			t.Errorf("Pick(%v) = %q, want %q", tt.u, got, tt.want)
		}
	}

	if got := (Weights{{"x", 0}}).Pick(0.3); got != "" {
		t.Errorf("all-zero Pick() = %q, want empty", got)
	}
}

func TestWeights_String(t *testing.T) {
	w := Weights{{"w", 2}, {"a", 0.5}}
	if got := w.String(); got != "{'w':2,'a':0.5}" {
		t.Errorf("String() = %q", got)
	}
	if got := ParseValue(w.String()); !reflect.DeepEqual(got, w) {
		t.Errorf("ParseValue(String()) = %#v, want %#v", got, w)
	}
}
