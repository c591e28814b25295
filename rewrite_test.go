package hecate_test

import (
	"testing"

	h "github.com/njchilds90/hecate"
)

func equivalent(p, q h.Expr) bool { return h.IsZero(h.Expand(h.Minus(p, q))) }

// ============================================================
// Expand
// ============================================================

func TestExpand(t *testing.T) {
	assertSig(t, h.Expand(h.MustParse("(x + 1)*(x + 2)")),
		"Add(Pow(Symbol(x), Integer(2)), Mul(Integer(3), Symbol(x)), Integer(2))")
	assertSig(t, h.Expand(h.MustParse("(a + b)*(a - b)")),
		"Add(Pow(Symbol(a), Integer(2)), Mul(Integer(-1), Pow(Symbol(b), Integer(2))))")
	assertSig(t, h.Expand(h.MustParse("(x + 1)^2")),
		"Add(Pow(Symbol(x), Integer(2)), Mul(Integer(2), Symbol(x)), Integer(1))")
	assertSig(t, h.Expand(h.PowOf(h.Times(x, y), h.N(2))),
		"Mul(Pow(Symbol(x), Integer(2)), Pow(Symbol(y), Integer(2)))")
}

func TestExpandEquation(t *testing.T) {
	eq := h.Expand(h.MustParse("2*(x + 1) = y*(a + b)"))
	assertSig(t, eq, "Eq(Add(Mul(Integer(2), Symbol(x)), Integer(2)), Add(Mul(Symbol(y), Symbol(a)), Mul(Symbol(y), Symbol(b))))")
}

// ============================================================
// Factor
// ============================================================

func TestFactor(t *testing.T) {
	e := h.MustParse("x*a + x*b + c")
	got := h.Factor(e, []h.Expr{x})
	assertSig(t, got, "Add(Mul(Add(Symbol(a), Symbol(b)), Symbol(x)), Symbol(c))")
	if got.String() != "(a + b)x + c" {
		t.Errorf("want (a + b)x + c, got %s", got)
	}
	if !equivalent(got, e) {
		t.Errorf("factoring changed the value: %s vs %s", got, e)
	}
}

func TestFactorNested(t *testing.T) {
	e := h.MustParse("x^2*a + x*b")
	got := h.Factor(e, []h.Expr{x})
	assertSig(t, got, "Mul(Add(Mul(Symbol(a), Symbol(x)), Symbol(b)), Symbol(x))")
	if !equivalent(got, e) {
		t.Errorf("factoring changed the value: %s vs %s", got, e)
	}
}

func TestFactorFirstFactorWins(t *testing.T) {
	got := h.Factor(h.MustParse("x*y + y"), []h.Expr{x, y})
	assertSig(t, got, "Add(Mul(Symbol(y), Symbol(x)), Symbol(y))")
}

func TestFactorIgnoresNumbers(t *testing.T) {
	e := h.Times(h.N(2), x)
	if got := h.Factor(e, []h.Expr{h.N(2)}); !h.Equal(got, e) {
		t.Errorf("want %s, got %s", e, got)
	}
}

// ============================================================
// Subs
// ============================================================

func TestSubs(t *testing.T) {
	z := h.S("z")
	assertSig(t, h.Subs(x, h.Pair{From: x, To: y}, h.Pair{From: x, To: z}), "Symbol(y)")
	assertSig(t, h.Subs(h.MustParse("2*a*b + c"), h.Pair{From: h.Times(a, b), To: z}),
		"Add(Mul(Integer(2), Symbol(z)), Symbol(c))")
	assertSig(t, h.Subs(h.MustParse("du/dt"), h.Pair{From: h.S("t"), To: h.S("s")}),
		"Diff(Symbol(u), s:1)")
	assertSig(t, h.Subs(h.NewFunc("g", x), h.Pair{From: x, To: h.N(2)}), "Func(g, Integer(2))")
}

func TestSubsKeepsFactorPosition(t *testing.T) {
	c, z := h.S("c"), h.S("z")
	e := h.MulOf(h.N(2), a, b, c)
	ab := h.Times(a, b)
	assertSig(t, h.Subs(e, h.Pair{From: ab, To: z}), "Mul(Integer(2), Symbol(z), Symbol(c))")
	if got := h.Subs(e, h.Pair{From: ab, To: ab}); !h.Equal(got, e) {
		t.Errorf("want %s, got %s", e, got)
	}

	A, B, u := h.S("A"), h.S("B"), h.S("u")
	op := h.MulOf(A, B, u)
	assertSig(t, h.Subs(op, h.Pair{From: h.Times(A, B), To: h.S("M")}), "Mul(Symbol(M), Symbol(u))")
	assertSig(t, h.Subs(op, h.Pair{From: h.Times(B, u), To: h.S("w")}), "Mul(Symbol(A), Symbol(w))")
}

func TestSubsRequiresWholeFactors(t *testing.T) {
	e := h.Times(a, b)
	got := h.Subs(e, h.Pair{From: h.Times(a, h.PowOf(b, h.N(2))), To: h.S("z")})
	if !h.Equal(got, e) {
		t.Errorf("want %s unchanged, got %s", e, got)
	}
}

// ============================================================
// Compare
// ============================================================

func TestCompare(t *testing.T) {
	tests := []struct {
		p, q h.Expr
		want h.Ordering
	}{
		{h.N(1), h.N(2), h.OrderLess},
		{h.R(1, 2), h.R(1, 3), h.OrderGreater},
		{x, x, h.OrderEqual},
		{x, h.N(1), h.OrderUnordered},
	}
	for _, tt := range tests {
		if got := h.Compare(tt.p, tt.q); got != tt.want {
			t.Errorf("compare(%s, %s): want %s, got %s", tt.p, tt.q, tt.want, got)
		}
	}
}

// ============================================================
// Laplacian recognition
// ============================================================

func TestSimplifyWithDimension(t *testing.T) {
	eq := h.MustParse("d2u_dx2 + d2u_dy2 = f").(*h.Equation)
	got := h.SimplifyWithDimension(eq, 2).(*h.Equation)
	assertSig(t, got, "Eq(Mul(Symbol(Δ), Symbol(u)), Symbol(f))")

	if same := h.SimplifyWithDimension(eq.LHS, 3); !h.Equal(same, eq.LHS) {
		t.Errorf("want incomplete sum unchanged, got %s", same)
	}

	scaled := h.MustParse("c*d2u_dx2 + c*d2u_dy2 + g")
	assertSig(t, h.SimplifyWithDimension(scaled, 2), "Add(Mul(Symbol(c), Symbol(Δ), Symbol(u)), Symbol(g))")
}
