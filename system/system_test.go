package system_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/internal/logger"
	"github.com/njchilds90/hecate/system"
)

func init() { logger.Discard() }

func mustEq(t *testing.T, s string) *hecate.Equation {
	t.Helper()
	eq, err := hecate.ParseEquation(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return eq
}

func waveSystem(t *testing.T) *system.System {
	t.Helper()
	return system.New([]string{"u"}, []string{"f"}, mustEq(t, "diff(u, t, 2) - c^2 * laplacian * u = f"))
}

// ============================================================
// Construction
// ============================================================

func TestNewTurnsNamedSymbolsIntoFunctions(t *testing.T) {
	s := system.New([]string{"u"}, []string{"f"}, mustEq(t, "u = f + c"))
	want := "Eq(Func(u), Add(Func(f), Symbol(c)))"
	if got := s.Equations[0].Signature(); got != want {
		t.Errorf("want %s, got %s", want, got)
	}
	if len(s.Unknowns) != 1 || len(s.Knowns) != 1 || len(s.KnownUnknowns) != 0 {
		t.Errorf("unexpected classification: %s", s)
	}
}

// ============================================================
// First order in time
// ============================================================

func TestToFirstOrderInTime(t *testing.T) {
	s := waveSystem(t).ToFirstOrderInTime()
	if len(s.Equations) != 2 {
		t.Fatalf("want 2 equations, got %d", len(s.Equations))
	}
	want := "Eq(Func(dt_u), Diff(Func(u), t:1))"
	if got := s.Equations[0].Signature(); got != want {
		t.Errorf("want %s, got %s", want, got)
	}
	if len(s.Unknowns) != 2 || s.Unknowns[1].Name() != "dt_u" {
		t.Errorf("want unknowns [u dt_u], got %s", s)
	}
	u := hecate.NewFunc("u")
	if hecate.Has(s.Equations[1], u.Diff("t", 2)) {
		t.Errorf("second derivative survived: %s", s.Equations[1])
	}
	if !hecate.Has(s.Equations[1], hecate.NewFunc("dt_u").Diff("t", 1)) {
		t.Errorf("want ∂dt_u/∂t in %s", s.Equations[1])
	}
}

func TestToFirstOrderInTimeWithoutSecondDerivative(t *testing.T) {
	s := system.New([]string{"u"}, nil, mustEq(t, "du/dt = u")).ToFirstOrderInTime()
	if len(s.Equations) != 1 || len(s.Unknowns) != 1 {
		t.Errorf("want system unchanged, got %s", s)
	}
}

// ============================================================
// Time discretization
// ============================================================

func TestTimeDiscretized(t *testing.T) {
	s := system.New([]string{"u"}, []string{"f"}, mustEq(t, "du/dt = f")).TimeDiscretized()
	if got := s.Unknowns[0].Name(); got != "u^n" {
		t.Errorf("want u^n, got %s", got)
	}
	if got := s.KnownUnknowns[0].Name(); got != "u^n-1" {
		t.Errorf("want u^n-1, got %s", got)
	}
	if len(s.Knowns) != 2 || s.Knowns[0].Name() != "f^n-1" || s.Knowns[1].Name() != "f^n" {
		t.Errorf("want knowns [f^n-1 f^n], got %s", s)
	}
	eq := s.Equations[0]
	for _, sub := range []hecate.Expr{hecate.S("k"), hecate.S("θ"), s.Unknowns[0], s.KnownUnknowns[0]} {
		if !hecate.Has(eq, sub) {
			t.Errorf("want %s in %s", sub, eq)
		}
	}
	if hecate.Has(eq, hecate.NewFunc("u")) || hecate.Has(eq, hecate.NewFunc("f")) {
		t.Errorf("continuous function survived: %s", eq)
	}
}

// ============================================================
// Simplified
// ============================================================

func TestSimplifiedSingleEquation(t *testing.T) {
	s, err := system.New([]string{"u"}, nil, mustEq(t, "du/dt = 1")).TimeDiscretized().Simplified()
	if err != nil {
		t.Fatal(err)
	}
	lhs := s.Equations[0].LHS
	if !hecate.Equal(lhs, hecate.NewFunc("u^n")) {
		t.Errorf("want u^n isolated, got %s", s.Equations[0])
	}
}

func TestSimplifiedReportsSolveFailure(t *testing.T) {
	s := system.New([]string{"u"}, nil, mustEq(t, "u*(1 + a) - u - u*a = 1"))
	_, err := s.Simplified()
	var serr *system.SimplificationError
	if !errors.As(err, &serr) {
		t.Fatalf("want SimplificationError, got %v", err)
	}
	if serr.Index != 0 {
		t.Errorf("want index 0, got %d", serr.Index)
	}
	if !errors.Is(err, hecate.ErrZeroCoefficient) {
		t.Errorf("want ErrZeroCoefficient in chain, got %v", err)
	}
}

// ============================================================
// Matrix form
// ============================================================

func TestMatrixify(t *testing.T) {
	s := &system.System{
		Unknowns:      []*hecate.Func{hecate.NewFunc("u^n")},
		KnownUnknowns: []*hecate.Func{hecate.NewFunc("u^n-1")},
		Knowns:        []*hecate.Func{hecate.NewFunc("f^n")},
		Equations: []*hecate.Equation{
			hecate.Eq(hecate.NewFunc("u^n"), hecate.Plus(
				hecate.NewFunc("f^n"),
				hecate.Times(hecate.S("Δ"), hecate.NewFunc("u^n-1")),
			)),
		},
	}
	m := s.Matrixify()
	want := "Eq(Mul(Symbol(M^n), Func(U^n)), Add(Func(F^n), Mul(Integer(-1), Symbol(A^n,n-1), Func(U^n-1))))"
	if got := m.Equations[0].Signature(); got != want {
		t.Errorf("want %s, got %s", want, got)
	}
	if m.Unknowns[0].Name() != "U^n" || m.KnownUnknowns[0].Name() != "U^n-1" || m.Knowns[0].Name() != "F^n" {
		t.Errorf("vectors not renamed: %s", m)
	}
}

func TestToConstantMesh(t *testing.T) {
	s := &system.System{
		KnownUnknowns: []*hecate.Func{hecate.NewFunc("U^n-1")},
		Equations: []*hecate.Equation{
			hecate.Eq(hecate.S("x"), hecate.Times(hecate.S(system.MassMatrixPrev), hecate.NewFunc("U^n-1"))),
		},
	}
	got := s.ToConstantMesh().Equations[0].RHS
	want := hecate.Times(hecate.S(system.MassMatrix), hecate.NewFunc("U^n-1"))
	if !hecate.Equal(got, want) {
		t.Errorf("want %s, got %s", want, got)
	}
}

// ============================================================
// Schemes
// ============================================================

func TestSchemes(t *testing.T) {
	theta := hecate.S("θ")
	x, y, z := hecate.S("x"), hecate.S("y"), hecate.S("z")
	s := &system.System{
		Equations: []*hecate.Equation{hecate.Eq(hecate.Plus(hecate.Times(theta, x), z), y)},
	}
	if got := s.ToImplicitEuler().Equations[0].LHS; !hecate.Equal(got, hecate.Plus(x, z)) {
		t.Errorf("implicit: want x + z, got %s", got)
	}
	if got := s.ToExplicitEuler().Equations[0].LHS; !hecate.Equal(got, z) {
		t.Errorf("explicit: want z, got %s", got)
	}
	want := hecate.Plus(hecate.Times(hecate.R(1, 2), x), z)
	if got := s.ToCrankNicolson().Equations[0].LHS; !hecate.Equal(got, want) {
		t.Errorf("crank-nicolson: want %s, got %s", want, got)
	}
	if got := s.WithScheme(system.ExplicitEuler).Equations[0].LHS; !hecate.Equal(got, z) {
		t.Errorf("with scheme: want z, got %s", got)
	}
}

func TestParseScheme(t *testing.T) {
	for _, s := range []system.Scheme{system.CrankNicolson, system.ExplicitEuler, system.ImplicitEuler} {
		got, err := system.ParseScheme(s.String())
		if err != nil || got != s {
			t.Errorf("want %s, got %s (%v)", s, got, err)
		}
	}
	if _, err := system.ParseScheme("leapfrog"); err == nil {
		t.Error("want error for unknown scheme")
	}
}

// ============================================================
// Queries
// ============================================================

func TestEqsInSolvingOrder(t *testing.T) {
	u, v := hecate.NewFunc("u"), hecate.NewFunc("v")
	both := hecate.Eq(u, v)
	onlyV := hecate.Eq(v, hecate.N(1))
	onlyU := hecate.Eq(u, hecate.N(2))
	s := &system.System{Unknowns: []*hecate.Func{u, v}, Equations: []*hecate.Equation{both, onlyV, onlyU}}
	got := s.EqsInSolvingOrder()
	want := []*hecate.Equation{onlyV, onlyU, both}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLHSUnknowns(t *testing.T) {
	u, v := hecate.NewFunc("u"), hecate.NewFunc("v")
	s := &system.System{Unknowns: []*hecate.Func{u, v}}
	got := s.LHSUnknowns(hecate.Eq(hecate.Times(hecate.S("M"), v), u))
	if len(got) != 1 || got[0].Name() != "v" {
		t.Errorf("want [v], got %v", got)
	}
}

func TestVectorsAndMatrixes(t *testing.T) {
	s := waveSystem(t).TimeDiscretized()
	if got := s.NumVectors(); got != 4 {
		t.Errorf("want 4 vectors, got %d", got)
	}
	vs := s.Vectors()
	if !vs[0].Unknown || !vs[1].Unknown || vs[2].Unknown {
		t.Errorf("unexpected unknown flags: %+v", vs)
	}
	if got := len(s.Matrixes()); got != 4 {
		t.Errorf("want 4 matrixes, got %d", got)
	}
}

// ============================================================
// End to end
// ============================================================

func TestWavePipeline(t *testing.T) {
	s, err := waveSystem(t).Pipeline(system.CrankNicolson)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Equations) != 2 {
		t.Fatalf("want 2 equations, got %d\n%s", len(s.Equations), s)
	}
	if names := []string{s.Unknowns[0].Name(), s.Unknowns[1].Name()}; names[0] != "U^n" || names[1] != "DT_U^n" {
		t.Errorf("want unknowns [U^n DT_U^n], got %v", names)
	}
	for i, eq := range s.Equations {
		var onLHS []string
		for _, u := range s.LHSUnknowns(eq) {
			onLHS = append(onLHS, u.Name())
		}
		if len(onLHS) != 1 {
			t.Errorf("equation %d: want exactly one unknown on the left, got %v\n%s", i, onLHS, eq)
			continue
		}
		m, ok := eq.LHS.(*hecate.Mul)
		if !ok {
			t.Errorf("equation %d: want product on the left, got %s", i, eq.LHS)
			continue
		}
		fs := m.Factors()
		if last := fs[len(fs)-1]; last.String() != onLHS[0] {
			t.Errorf("equation %d: want %s last, got %s", i, onLHS[0], last)
		}
		if hecate.Has(eq, hecate.S("θ")) {
			t.Errorf("equation %d: θ survived: %s", i, eq)
		}
	}

	first := s.Equations[0]
	if !hecate.Equal(s.EquationUnknowns(first)[0], hecate.NewFunc("U^n")) {
		t.Errorf("want U^n in the first equation, got %s", first)
	}
	for _, name := range []string{"U^n-1", "DT_U^n-1", "F^n", "F^n-1"} {
		if !hecate.Has(first.RHS, hecate.NewFunc(name)) {
			t.Errorf("want %s on the right of %s", name, first)
		}
	}
	if strings.Contains(first.String(), ",n-1") {
		t.Errorf("previous-step matrix survived: %s", first)
	}
	if got := s.EqsInSolvingOrder()[0]; got != first {
		t.Errorf("want the U^n equation solved first, got %s", got)
	}
}
