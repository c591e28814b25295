package hecate_test

import (
	"testing"

	h "github.com/njchilds90/hecate"
)

var (
	x = h.S("x")
	y = h.S("y")
	a = h.S("a")
	b = h.S("b")
	c = h.S("c")
	k = h.S("k")
)

// ============================================================
// Rendering
// ============================================================

func TestString(t *testing.T) {
	u := h.NewFunc("u")
	tests := []struct {
		name string
		e    h.Expr
		want string
	}{
		{"negation", h.Neg(x), "-x"},
		{"difference", h.Minus(x, y), "x - y"},
		{"negative constant", h.Plus(x, h.N(-3)), "x - 3"},
		{"long symbol gets a dot", h.Times(h.S("mass"), h.S("v")), "mass.v"},
		{"glyph has no dot", h.Times(h.S("laplacian"), u), "Δu"},
		{"reciprocal", h.Div(h.N(1), k), "1 / k"},
		{"power", h.PowOf(c, h.N(2)), "c^2"},
		{"coefficient", h.Times(h.R(1, 4), h.Times(h.PowOf(c, h.N(2)), k)), "(1/4)(c^2)k"},
		{"sum factor", h.Times(h.Plus(a, b), x), "(a + b)x"},
		{"second derivative", h.DiffOf(h.S("u"), h.D("t", 2)), "∂^2u / ∂t^2"},
		{"long target", h.NewFunc("dt_u").Diff("t", 1), "∂(dt_u) / ∂t"},
		{"mixed derivative", h.DiffOf(u, h.D("x", 1), h.D("y", 2)), "∂^3u / ∂x.y^2"},
		{"integral", h.IntegralOf(u), "∫u"},
		{"equation", h.Eq(u, h.N(1)), "u = 1"},
		{"rational", h.R(-1, 2), "-1/2"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("%s: want %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestReservedSymbols(t *testing.T) {
	for name, want := range map[string]string{"laplacian": "Δ", "nabla": "∇", "theta": "θ", "u": "u"} {
		if got := h.S(name).Name(); got != want {
			t.Errorf("S(%q): want %s, got %s", name, want, got)
		}
	}
}

// ============================================================
// Traversal
// ============================================================

func TestRebuildRoundTrip(t *testing.T) {
	exprs := []h.Expr{
		x, h.N(7), h.R(2, 3),
		h.PowOf(x, y),
		h.Plus(x, h.Times(h.N(2), y)),
		h.DiffOf(h.NewFunc("u"), h.D("t", 2)),
		h.NewFunc("g", x, y),
		h.Eq(x, y),
		h.IntegralOf(x),
	}
	for _, e := range exprs {
		got := e.Rebuild(e.Children())
		if !h.Equal(got, e) {
			t.Errorf("want %s, got %s", e.Signature(), got.Signature())
		}
		if !h.Equal(e.Clone(), e) {
			t.Errorf("clone of %s differs", e.Signature())
		}
	}
}

func TestRebuildWrongArityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("want panic")
		}
	}()
	h.PowOf(x, y).Rebuild([]h.Child{h.ExprArg{Expr: x}})
}

func TestHas(t *testing.T) {
	u := h.NewFunc("u")
	e := h.Eq(h.DiffOf(u, h.D("t", 1)), h.Times(k, h.NewFunc("g", x)))
	for _, sub := range []h.Expr{u, h.S("t"), x, k, h.NewFunc("g", x)} {
		if !h.Has(e, sub) {
			t.Errorf("want %s in %s", sub, e)
		}
	}
	if h.Has(e, y) {
		t.Errorf("did not want y in %s", e)
	}
}

func TestTransformReplacesDerivativeVariables(t *testing.T) {
	d := h.DiffOf(h.S("u"), h.D("t", 1))
	got := h.Transform(d, func(e h.Expr) h.Expr {
		if h.Equal(e, h.S("t")) {
			return h.S("s")
		}
		return e
	})
	if want := "Diff(Symbol(u), s:1)"; got.Signature() != want {
		t.Errorf("want %s, got %s", want, got.Signature())
	}
}

// ============================================================
// Functions
// ============================================================

func TestFuncTimeDiscretize(t *testing.T) {
	prev, curr := h.NewFunc("u").TimeDiscretize()
	if prev.Name() != "u^n-1" || curr.Name() != "u^n" {
		t.Errorf("want u^n-1 and u^n, got %s and %s", prev, curr)
	}
	if got := h.NewFunc("dt_u^n-1").ToVector().Name(); got != "DT_U^n-1" {
		t.Errorf("want DT_U^n-1, got %s", got)
	}
	if got := h.NewFunc("f").ToVector().Name(); got != "F" {
		t.Errorf("want F, got %s", got)
	}
}

func TestDiffOfAccumulatesOrders(t *testing.T) {
	d := h.DiffOf(h.DiffOf(x, h.D("x", 1), h.D("y", 1)), h.D("x", 1))
	if want := "Diff(Symbol(x), x:2, y:1)"; d.Signature() != want {
		t.Errorf("want %s, got %s", want, d.Signature())
	}
	if got := d.(*h.Diff).Order(); got != 3 {
		t.Errorf("want order 3, got %d", got)
	}
	if got := h.DiffOf(x); !h.Equal(got, x) {
		t.Errorf("want x for an empty variable list, got %s", got)
	}
}

func TestKindString(t *testing.T) {
	if got := h.NewFunc("u").Kind().String(); got != "func" {
		t.Errorf("want func, got %s", got)
	}
	if got := h.Kind(99).String(); got != "kind(99)" {
		t.Errorf("want kind(99), got %s", got)
	}
}
