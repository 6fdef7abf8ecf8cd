package chunk

import (
	"errors"
	"reflect"
	"testing"
)

// widthMap is a WidthLookup over a plain map for tests.
type widthMap map[string]int

func (m widthMap) Width(name string) (int, bool) {
	w, ok := m[name]
	return w, ok
}

func TestPlan_SpecExample(t *testing.T) {
	t.Parallel()

	widths := widthMap{"A": 100, "B": 50, "C": 500, "D": 30}
	got, err := Plan([]string{"A", "B", "C", "D"}, widths, 150)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []VChunk{{"A", "B"}, {"C"}, {"D"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}
}

func TestPlan_OverBudgetFieldIsSingleton(t *testing.T) {
	t.Parallel()

	widths := widthMap{"X": 10, "WIDE": 9999, "Y": 10}
	got, err := Plan([]string{"X", "WIDE", "Y"}, widths, 100)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []VChunk{{"X"}, {"WIDE"}, {"Y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}
}

func TestPlan_LeadingOverBudgetField(t *testing.T) {
	t.Parallel()

	widths := widthMap{"WIDE": 9999, "Y": 10}
	got, err := Plan([]string{"WIDE", "Y"}, widths, 100)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []VChunk{{"WIDE"}, {"Y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}
}

func TestPlan_EmptyFields(t *testing.T) {
	t.Parallel()

	got, err := Plan(nil, widthMap{}, 100)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Plan = %v, want empty", got)
	}
}

func TestPlan_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Plan([]string{"A", "NOPE"}, widthMap{"A": 1}, 100)
	var uf *UnknownFieldError
	if !errors.As(err, &uf) {
		t.Fatalf("err = %v, want *UnknownFieldError", err)
	}
	if uf.Name != "NOPE" {
		t.Fatalf("UnknownFieldError.Name = %q, want NOPE", uf.Name)
	}
}

func TestPlan_InvalidBudget(t *testing.T) {
	t.Parallel()

	for _, budget := range []int{0, -5} {
		if _, err := Plan([]string{"A"}, widthMap{"A": 1}, budget); err == nil {
			t.Fatalf("Plan(budget=%d) err = nil, want error", budget)
		}
	}
}

// TestPlan_PartitionProperty checks the structural invariants over a spread
// of field lists and budgets: the plan partitions the input with no
// omissions, duplicates, or reordering, and every chunk except singleton
// over-budget fields fits the budget.
func TestPlan_PartitionProperty(t *testing.T) {
	t.Parallel()

	widths := widthMap{
		"A": 3, "B": 7, "C": 12, "D": 1, "E": 30, "F": 5, "G": 18, "H": 2,
	}
	fields := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	for budget := 1; budget <= 40; budget++ {
		plan, err := Plan(fields, widths, budget)
		if err != nil {
			t.Fatalf("Plan(budget=%d): %v", budget, err)
		}
		if got := Flatten(plan); !reflect.DeepEqual(got, fields) {
			t.Fatalf("budget=%d: Flatten = %v, want %v", budget, got, fields)
		}
		for _, vc := range plan {
			if len(vc) == 0 {
				t.Fatalf("budget=%d: empty vchunk in %v", budget, plan)
			}
			sum := 0
			for _, f := range vc {
				sum += widths[f]
			}
			if sum > budget && len(vc) > 1 {
				t.Fatalf("budget=%d: multi-field vchunk %v over budget (sum=%d)", budget, vc, sum)
			}
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	widths := widthMap{"A": 10, "B": 20, "C": 30, "D": 40}
	fields := []string{"A", "B", "C", "D"}
	first, err := Plan(fields, widths, 50)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Plan(fields, widths, 50)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d: Plan = %v, want %v", i, again, first)
		}
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	got := Flatten([]VChunk{{"A", "B"}, {"C"}, {"D", "E"}})
	want := []string{"A", "B", "C", "D", "E"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten = %v, want %v", got, want)
	}
	if out := Flatten(nil); len(out) != 0 {
		t.Fatalf("Flatten(nil) = %v, want empty", out)
	}
}
