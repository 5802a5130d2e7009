package domain

import (
	"testing"

	apperrors "pdf-workbench/pkg/errors"
)

func TestParsePageRange_SinglesAndRanges(t *testing.T) {
	r, err := ParsePageRange("1,3-5,8")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	resolved, err := r.Resolve(10)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	want := []int{1, 3, 4, 5, 8}
	if len(resolved) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(resolved))
	}
	for i := range want {
		if resolved[i] != want[i] {
			t.Fatalf("expected index %d at position %d, got %d", want[i], i, resolved[i])
		}
	}
}

func TestParsePageRange_PreservesSelectionOrder(t *testing.T) {
	r, err := ParsePageRange("4,2")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	resolved, err := r.Resolve(5)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if resolved[0] != 4 || resolved[1] != 2 {
		t.Fatalf("expected selection order 4,2, got %v", resolved)
	}
}

func TestParsePageRange_RejectsBadSyntax(t *testing.T) {
	cases := []string{"", " ", "1,,2", "a", "0", "-1", "5-3", "1-x"}
	for _, spec := range cases {
		if _, err := ParsePageRange(spec); err == nil {
			t.Fatalf("expected parse of %q to fail", spec)
		}
	}
}

func TestPageRange_Resolve_OutOfRangeIsErrorNotClamp(t *testing.T) {
	r, err := ParsePageRange("1,9")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	_, err = r.Resolve(5)
	if err == nil {
		t.Fatal("expected out-of-range resolve to fail")
	}
	if !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestPageRange_Segments(t *testing.T) {
	r, err := ParsePageRange("1-2,4-5")
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	segs, err := r.Segments(5)
	if err != nil {
		t.Fatalf("expected segments to resolve, got %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0] != [2]int{1, 2} || segs[1] != [2]int{4, 5} {
		t.Fatalf("unexpected segments %v", segs)
	}
}

func TestPageRange_IsPlainList(t *testing.T) {
	plain, _ := ParsePageRange("2,4")
	if !plain.IsPlainList() {
		t.Fatal("expected 2,4 to be a plain list")
	}
	ranged, _ := ParsePageRange("2,4-5")
	if ranged.IsPlainList() {
		t.Fatal("expected 2,4-5 not to be a plain list")
	}
}
