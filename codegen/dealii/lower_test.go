package dealii_test

import (
	"errors"
	"strings"
	"testing"

	h "github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/codegen/dealii"
	"github.com/njchilds90/hecate/internal/logger"
)

func init() { logger.Discard() }

var (
	c = h.S("c")
	k = h.S("k")
	u = h.S("u")
	v = h.S("v")
	A = h.S("A")
)

func exprs(es ...h.Expr) []h.Expr { return es }

func lower(t *testing.T, e h.Expr, vectors, matrixes []h.Expr) string {
	t.Helper()
	out, err := dealii.RhsCodeGen(e, vectors, matrixes)
	if err != nil {
		t.Fatalf("lower %s: %v", e, err)
	}
	return out.String()
}

// ============================================================
// Single operands
// ============================================================

func TestLowerSimple(t *testing.T) {
	tests := []struct {
		name     string
		e        h.Expr
		vectors  []h.Expr
		matrixes []h.Expr
		want     string
	}{
		{"zero", h.N(0), nil, nil, "rhs = 0;"},
		{"vector", u, exprs(u), nil, "rhs = u;"},
		{"scaled vector", h.Times(c, u), exprs(u), nil, "// rhs = c * u\nrhs.equ(c, u);"},
		{"rational coefficient", h.Times(h.Times(h.R(-10, 3), c), u), exprs(u), nil,
			"// rhs = (-10/3)c * u\nrhs.equ((-10./3.) * c, u);"},
		{"matrix vector", h.Times(A, u), exprs(u), exprs(A), "// rhs = Au\na.vmult(rhs, u);"},
		{"time step", h.Times(k, h.S("U")), exprs(h.S("U")), nil, "// rhs = k * U\nrhs.equ(time_step, u);"},
		{"scaled matrix vector", h.Times(h.Times(k, A), u), exprs(u), exprs(A),
			"// rhs = kAu\na.vmult(rhs, u); rhs *= time_step;"},
		{"scalar", k, nil, nil, "rhs = time_step;"},
		{"scalar power", h.PowOf(c, h.N(2)), nil, nil, "rhs = c * c;"},
		{"scalar reciprocal", h.PowOf(k, h.N(-1)), nil, nil, "rhs = 1 / time_step;"},
	}
	for _, tt := range tests {
		if got := lower(t, tt.e, tt.vectors, tt.matrixes); got != tt.want {
			t.Errorf("%s: want\n%s\ngot\n%s", tt.name, tt.want, got)
		}
	}
}

func TestLowerMatrixProductTimesVector(t *testing.T) {
	B := h.S("B")
	out, err := dealii.RhsCodeGen(h.MulOf(A, B, u), exprs(u), exprs(A, B))
	if err != nil {
		t.Fatal(err)
	}
	want := "a.mmult(mtmp, b);\n// rhs = mtmp * u\nmtmp.vmult(rhs, u);"
	if got := out.String(); got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
	if len(out.Matrixes) != 1 || out.Matrixes[0] != "mtmp" {
		t.Errorf("want matrix temporaries [mtmp], got %v", out.Matrixes)
	}
	if len(out.Vectors) != 0 {
		t.Errorf("want no vector temporaries, got %v", out.Vectors)
	}
}

// ============================================================
// Sums
// ============================================================

func TestLowerVectorPlusScalar(t *testing.T) {
	e := h.Plus(u, h.Times(h.R(-1, 2), k))
	want := "// rhs = u + (-1/2)k\nrhs = u;\n\n// rhs += (-1/2)k\nrhs += (-1./2.) * time_step;"
	if got := lower(t, e, exprs(u), nil); got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
}

func TestLowerEliminatesTemporary(t *testing.T) {
	m := h.S("m")
	uPrev, vPrev := h.S("u_prev"), h.S("v_prev")
	e := h.Minus(h.Times(m, uPrev), h.Times(h.Times(k, m), vPrev))
	want := strings.Join([]string{
		"// rhs = mu_prev - kmv_prev",
		"// rhs = mu_prev",
		"m.vmult(rhs, u_prev);",
		"",
		"// rhs += -kmv_prev",
		"m.vmult(vtmp, v_prev);",
		"rhs.add(-time_step, vtmp);",
	}, "\n")
	out, err := dealii.RhsCodeGen(e, exprs(vPrev, uPrev), exprs(m))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
	if len(out.Vectors) != 1 || out.Vectors[0] != "vtmp" {
		t.Errorf("want temporaries [vtmp], got %v", out.Vectors)
	}
	if len(out.Matrixes) != 0 {
		t.Errorf("want no matrix temporaries, got %v", out.Matrixes)
	}
}

func waveOperands() (mass, lap, uPrev, vPrev, f, fPrev h.Expr) {
	return h.S("mass_mat"), h.S("laplace_mat"), h.S("u_prev"), h.S("v_prev"), h.S("f"), h.S("f_prev")
}

func TestLowerWaveRhs(t *testing.T) {
	mass, lap, uPrev, vPrev, f, fPrev := waveOperands()
	e := h.Plus(h.Plus(h.Plus(
		h.Times(h.Plus(h.Times(h.Neg(h.Div(h.N(1), k)), mass), h.Times(h.Times(h.R(1, 4), h.PowOf(c, h.N(2))), lap)), uPrev),
		h.Neg(h.Times(mass, vPrev))),
		h.Times(h.Times(h.R(-1, 4), k), fPrev)),
		h.Times(h.Times(h.R(-1, 4), k), f))

	want := strings.Join([]string{
		"// rhs = (-(1 / k)mass_mat + (1/4)(c^2)laplace_mat)u_prev - mass_mat.v_prev + (-1/4)kf_prev + (-1/4)kf",
		"",
		"// mtmp = -(1 / k)mass_mat + (1/4)(c^2)laplace_mat",
		"// mtmp = -(1 / k) * mass_mat",
		"mtmp.copy_from(mass_mat); mtmp *= -(1 / time_step);",
		"",
		"// mtmp += (1/4)(c^2)laplace_mat",
		"mtmp.add((1./4.) * (c * c), laplace_mat);",
		"",
		"// rhs = mtmp * u_prev",
		"mtmp.vmult(rhs, u_prev);",
		"",
		"// rhs += -mass_mat.v_prev",
		"mass_mat.vmult(vtmp, v_prev);",
		"rhs -= vtmp;",
		"",
		"// rhs += (-1/4)kf_prev + (-1/4)kf",
		"rhs.add((-1./4.) * time_step, f_prev, (-1./4.) * time_step, f);",
	}, "\n")

	out, err := dealii.RhsCodeGen(e, exprs(uPrev, vPrev, f, fPrev), exprs(mass, lap))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
	if len(out.Matrixes) != 1 || out.Matrixes[0] != "mtmp" {
		t.Errorf("want matrix temporaries [mtmp], got %v", out.Matrixes)
	}
}

func TestLowerWaveSystem(t *testing.T) {
	mass, lap, uPrev, vPrev, f, fPrev := waveOperands()
	e := h.Plus(h.Times(h.Neg(h.Div(h.N(1), k)), mass), h.Times(h.Times(h.R(-1, 4), h.PowOf(c, h.N(2))), lap))
	want := strings.Join([]string{
		"// system = -(1 / k)mass_mat + (-1/4)(c^2)laplace_mat",
		"// system = -(1 / k) * mass_mat",
		"system.copy_from(mass_mat); system *= -(1 / time_step);",
		"",
		"// system += (-1/4)(c^2)laplace_mat",
		"system.add((-1./4.) * (c * c), laplace_mat);",
	}, "\n")

	out, err := dealii.MatCodeGen("system", e, exprs(uPrev, vPrev, f, fPrev), exprs(mass, lap))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
	if out.Kind != dealii.Matrix {
		t.Errorf("want %s, got %s", dealii.Matrix, out.Kind)
	}
	if len(out.Matrixes) != 0 {
		t.Errorf("want the matrix temporary eliminated, got %v", out.Matrixes)
	}
}

// ============================================================
// Errors
// ============================================================

func TestLowerErrors(t *testing.T) {
	w := h.S("w")
	B, C := h.S("B"), h.S("C")
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"vector times vector", func() error {
			_, err := dealii.RhsCodeGen(h.Times(u, v), exprs(u, v), nil)
			return err
		}, dealii.ErrVectorMul},
		{"three vectors", func() error {
			_, err := dealii.RhsCodeGen(h.Times(h.Times(u, v), w), exprs(u, v, w), nil)
			return err
		}, dealii.ErrTooManyVectors},
		{"three matrixes", func() error {
			_, err := dealii.MatCodeGen("m", h.Times(h.Times(A, B), C), nil, exprs(A, B, C))
			return err
		}, dealii.ErrTooManyMatrixes},
		{"matrix where a vector is expected", func() error {
			_, err := dealii.VecCodeGen("rhs", h.Times(c, A), nil, exprs(A))
			return err
		}, dealii.ErrMatResult},
		{"vector where a matrix is expected", func() error {
			_, err := dealii.MatCodeGen("m", h.Times(c, u), exprs(u), nil)
			return err
		}, dealii.ErrVecResult},
		{"derivative", func() error {
			_, err := dealii.RhsCodeGen(h.NewFunc("u").Diff("t", 1), nil, nil)
			return err
		}, dealii.ErrUnsupportedExpr},
		{"power of a vector", func() error {
			_, err := dealii.RhsCodeGen(h.PowOf(u, h.N(2)), exprs(u), nil)
			return err
		}, dealii.ErrUnsupportedExpr},
		{"power of a matrix", func() error {
			_, err := dealii.MatCodeGen("m", h.PowOf(A, h.N(2)), nil, exprs(A))
			return err
		}, dealii.ErrUnsupportedExpr},
		{"vector plus matrix", func() error {
			_, err := dealii.RhsCodeGen(h.Plus(u, A), exprs(u), exprs(A))
			return err
		}, dealii.ErrUnsupportedExpr},
	}
	for _, tt := range tests {
		err := tt.run()
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: want %v, got %v", tt.name, tt.want, err)
			continue
		}
		var le *dealii.LowerError
		if !errors.As(err, &le) || le.Expr == "" {
			t.Errorf("%s: want a *LowerError naming the expression, got %#v", tt.name, err)
		}
	}
}
