package pagerange

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		want []int
	}{
		{"", nil},
		{"1", []int{0}},
		{"3,1,2", []int{2, 0, 1}},
		{" 2 - 4 ", []int{1, 2, 3}},
		{"1-3,5", []int{0, 1, 2, 4}},
		{"1,1,2", []int{0, 0, 1}},
		{"a,2,,x-3", []int{1}},
		{"4-2", nil},
		{"0", []int{-1}},
		{"7", []int{6}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := Parse(tt.expr); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestGroups(t *testing.T) {
	got := Groups("1-2, bad, 4, 6-5, 3")
	want := [][]int{{0, 1}, {3}, {2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Groups() = %v, want %v", got, want)
	}
}

func TestClamp(t *testing.T) {
	got := Clamp([]int{2, -1, 0, 5, 2, 3}, 3)
	want := []int{2, 0, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Clamp() = %v, want %v", got, want)
	}
	if got := Clamp(Parse("5"), 3); len(got) != 0 {
		t.Fatalf("expected out-of-range index to be dropped, got %v", got)
	}
}

func TestSet(t *testing.T) {
	set := Set(Parse("2,2,4"))
	if len(set) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set))
	}
	for _, i := range []int{1, 3} {
		if _, ok := set[i]; !ok {
			t.Fatalf("missing index %d", i)
		}
	}
}
