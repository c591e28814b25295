package hecate_test

import (
	"errors"
	"strings"
	"testing"

	h "github.com/njchilds90/hecate"
)

// ============================================================
// Solve
// ============================================================

func TestSolve(t *testing.T) {
	tests := []struct {
		eq   string
		want string
	}{
		{"2*x + 3 = 7", "Eq(Symbol(x), Integer(2))"},
		{"3*x - 6 = x", "Eq(Symbol(x), Integer(3))"},
		{"k*x = y", "Eq(Symbol(x), Mul(Symbol(y), Pow(Symbol(k), Integer(-1))))"},
		{"y = x", "Eq(Symbol(x), Symbol(y))"},
	}
	for _, tt := range tests {
		eq, err := h.ParseEquation(tt.eq)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.eq, err)
		}
		got, err := h.Solve(eq, x)
		if err != nil {
			t.Errorf("%q: %v", tt.eq, err)
			continue
		}
		if got.Signature() != tt.want {
			t.Errorf("%q: want %s, got %s", tt.eq, tt.want, got.Signature())
		}
	}
}

func TestSolveSatisfiesEquation(t *testing.T) {
	eq, _ := h.ParseEquation("a*x + b = c - x*d")
	got, err := h.Solve(eq, x)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Has(got.LHS, x) || h.Has(got.RHS, x) {
		t.Errorf("want x isolated on the left, got %s", got)
	}
	if !equivalent(got.Residual(), h.Expand(eq.Residual())) {
		t.Errorf("solution is not equivalent: %s vs %s", got, eq)
	}
}

func TestSolveErrors(t *testing.T) {
	eq, _ := h.ParseEquation("x = 1")
	_, err := h.Solve(eq)
	if !errors.Is(err, h.ErrNoUnknowns) {
		t.Errorf("want ErrNoUnknowns, got %v", err)
	}

	eq, _ = h.ParseEquation("u - u = 1")
	_, err = h.Solve(eq, h.S("u"))
	if !errors.Is(err, h.ErrZeroCoefficient) {
		t.Fatalf("want ErrZeroCoefficient, got %v", err)
	}
	var serr *h.SolveError
	if !errors.As(err, &serr) {
		t.Fatalf("want SolveError, got %T", err)
	}
	if want := "failed to solve equation 0 = 1 for unknowns [u] : failed to get unknown coefficient"; err.Error() != want {
		t.Errorf("want %q, got %q", want, err.Error())
	}
	if !strings.Contains(serr.Unknowns, "u") {
		t.Errorf("want u in unknowns, got %s", serr.Unknowns)
	}
}
