// Package system rewrites a set of coupled PDEs into time-discretized,
// matrix-form equations, one isolated unknown vector per equation.
//
// Every stage is a pure function from System to System; the receiver is
// never modified.
package system

import (
	"fmt"
	"slices"
	"strings"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/internal/logger"
)

// ============================================================
// System
// ============================================================

// Shape matrix symbols.
const (
	MassMatrix        = "M^n"
	LaplaceMatrix     = "A^n"
	MassMatrixPrev    = "M^n,n-1"
	LaplaceMatrixPrev = "A^n,n-1"
	TimeStep          = "k"
)

// System is an ordered set of equations together with the classification of
// the functions that appear in them.
type System struct {
	Equations []*hecate.Equation
	// Unknowns are solved for at the current time step.
	Unknowns []*hecate.Func
	// KnownUnknowns are unknowns at the previous time step.
	KnownUnknowns []*hecate.Func
	// Knowns are prescribed functions.
	Knowns []*hecate.Func
}

// New builds a System from unknown and known function names. Symbols in the
// equations that carry one of these names are turned into functions.
func New(unknowns, knowns []string, equations ...*hecate.Equation) *System {
	s := &System{}
	var pairs []hecate.Pair
	for _, u := range unknowns {
		f := hecate.NewFunc(u)
		s.Unknowns = append(s.Unknowns, f)
		pairs = append(pairs, hecate.Pair{From: hecate.S(u), To: f})
	}
	for _, k := range knowns {
		f := hecate.NewFunc(k)
		s.Knowns = append(s.Knowns, f)
		pairs = append(pairs, hecate.Pair{From: hecate.S(k), To: f})
	}
	for _, eq := range equations {
		s.Equations = append(s.Equations, hecate.Subs(eq, pairs...).(*hecate.Equation))
	}
	return s
}

func (s *System) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "System (%s), (%s), (%s)", names(s.Unknowns), names(s.KnownUnknowns), names(s.Knowns))
	for _, eq := range s.Equations {
		sb.WriteString("\n> ")
		sb.WriteString(eq.String())
	}
	return sb.String()
}

func names(fs []*hecate.Func) string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name()
	}
	return strings.Join(out, ", ")
}

// WithEquations returns a copy of s holding equations.
func (s *System) WithEquations(equations []*hecate.Equation) *System {
	return &System{
		Equations:     equations,
		Unknowns:      slices.Clone(s.Unknowns),
		KnownUnknowns: slices.Clone(s.KnownUnknowns),
		Knowns:        slices.Clone(s.Knowns),
	}
}

func (s *System) mapEquations(f func(*hecate.Equation) *hecate.Equation) *System {
	out := make([]*hecate.Equation, len(s.Equations))
	for i, eq := range s.Equations {
		out[i] = f(eq)
	}
	return s.WithEquations(out)
}

// ============================================================
// Stages
// ============================================================

// ToFirstOrderInTime introduces dt_u = ∂u/∂t for every unknown u whose
// second time derivative appears, and rewrites ∂²u/∂t² as ∂(dt_u)/∂t. The
// new equations come first, the new unknowns last.
func (s *System) ToFirstOrderInTime() *System {
	var (
		unknowns  = slices.Clone(s.Unknowns)
		pairs     []hecate.Pair
		equations []*hecate.Equation
	)
	for _, u := range s.Unknowns {
		second := u.Diff("t", 2)
		if !slices.ContainsFunc(s.Equations, func(eq *hecate.Equation) bool { return hecate.Has(eq, second) }) {
			continue
		}
		logger.Info("Unknown has a second order time derivative", "unknown", u.Name())
		dt := hecate.NewFunc("dt_" + u.Name())
		pairs = append(pairs, hecate.Pair{From: second, To: dt.Diff("t", 1)})
		equations = append(equations, hecate.Eq(dt, u.Diff("t", 1)))
		unknowns = append(unknowns, dt)
	}
	for _, eq := range s.Equations {
		equations = append(equations, hecate.Subs(eq, pairs...).(*hecate.Equation))
	}
	return &System{
		Equations: equations,
		Unknowns:  unknowns,
		Knowns:    slices.Clone(s.Knowns),
	}
}

// TimeDiscretized applies the θ-scheme: ∂f/∂t becomes (f^n - f^n-1)/k and
// f becomes θf^n + (1-θ)f^n-1 for every unknown and known f.
func (s *System) TimeDiscretized() *System {
	out := &System{}
	for _, u := range s.Unknowns {
		prev, curr := u.TimeDiscretize()
		out.KnownUnknowns = append(out.KnownUnknowns, prev)
		out.Unknowns = append(out.Unknowns, curr)
	}
	for _, f := range s.Knowns {
		prev, curr := f.TimeDiscretize()
		out.Knowns = append(out.Knowns, prev, curr)
	}

	k, theta := hecate.S(TimeStep), hecate.S(hecate.ThetaName)
	var pairs []hecate.Pair
	for _, f := range slices.Concat(s.Unknowns, s.Knowns) {
		prev, curr := f.TimeDiscretize()
		pairs = append(pairs,
			hecate.Pair{From: f.Diff("t", 1), To: hecate.Div(hecate.Minus(curr, prev), k)},
			hecate.Pair{From: f, To: hecate.Plus(
				hecate.Times(theta, curr),
				hecate.Times(hecate.Minus(hecate.N(1), theta), prev),
			)},
		)
	}
	for _, eq := range s.Equations {
		out.Equations = append(out.Equations, hecate.Subs(eq, pairs...).(*hecate.Equation))
	}
	return out
}

// SimplificationError wraps a solve failure during Simplified.
type SimplificationError struct {
	Index int
	Err   error
}

func (e *SimplificationError) Error() string {
	return fmt.Sprintf("failed to simplify system at equation %d: %v", e.Index, e.Err)
}

func (e *SimplificationError) Unwrap() error { return e.Err }

// Simplified isolates one unknown per equation. Equations are visited last
// to first; each is solved for the last unsolved unknown it references and
// its solution is substituted into every earlier equation, which is then
// re-solved for the unknowns it still references.
func (s *System) Simplified() (*System, error) {
	logger.Info("Simplifying system so that each equation has one unknown")
	equations := slices.Clone(s.Equations)
	unsolved := make(map[string]bool, len(s.Unknowns))
	for _, u := range s.Unknowns {
		unsolved[u.Name()] = true
	}
	pending := func(eq *hecate.Equation) []hecate.Expr {
		var out []hecate.Expr
		for _, u := range s.Unknowns {
			if unsolved[u.Name()] && hecate.Has(eq, u) {
				out = append(out, u)
			}
		}
		return out
	}

	for i := len(equations) - 1; i >= 0; i-- {
		for _, u := range slices.Backward(s.Unknowns) {
			if !unsolved[u.Name()] || !hecate.Has(equations[i], u) {
				continue
			}
			logger.Debug("Solving equation", "index", i, "unknown", u.Name())
			solved, err := hecate.Solve(equations[i], u)
			if err != nil {
				return nil, &SimplificationError{Index: i, Err: err}
			}
			equations[i] = hecate.Expand(solved).(*hecate.Equation)
			delete(unsolved, u.Name())
			if len(unsolved) == 0 {
				break
			}

			pair := hecate.Pair{From: equations[i].LHS, To: equations[i].RHS}
			for j := 0; j < i; j++ {
				logger.Debug("Substituting solution", "unknown", u.Name(), "into", j, "from", i)
				equations[j] = hecate.Subs(equations[j], pair).(*hecate.Equation)
				targets := pending(equations[j])
				if len(targets) == 0 {
					continue
				}
				if equations[j], err = hecate.Solve(equations[j], targets...); err != nil {
					return nil, &SimplificationError{Index: j, Err: err}
				}
			}
			break
		}
	}
	return s.WithEquations(equations), nil
}

// Factor groups every equation by the Laplacian and plain forms of each
// function and shape matrix, then by k and θ.
func (s *System) Factor() *System {
	laplacian := hecate.S(hecate.LaplacianName)
	var groups []hecate.Expr
	for _, f := range s.Unknowns {
		groups = append(groups, f)
	}
	for _, f := range s.KnownUnknowns {
		groups = append(groups, f)
	}
	groups = append(groups, hecate.S(MassMatrix), hecate.S(LaplaceMatrix))
	for _, f := range s.Knowns {
		groups = append(groups, f)
	}

	factors := make([]hecate.Expr, 0, 2*len(groups)+2)
	for _, g := range groups {
		factors = append(factors, hecate.Times(laplacian, g), g)
	}
	factors = append(factors, hecate.S(TimeStep), hecate.S(hecate.ThetaName))
	return s.mapEquations(func(eq *hecate.Equation) *hecate.Equation {
		return hecate.Factor(eq, factors).(*hecate.Equation)
	})
}

// Matrixify replaces functions with their finite-element vectors: a known f
// becomes F, an unknown u becomes M·U and Δu becomes -A·U. Previous-step
// unknowns use the previous-step matrices. Equations are then factored by the
// unknown vectors.
func (s *System) Matrixify() *System {
	laplacian := hecate.S(hecate.LaplacianName)
	out := &System{}
	var pairs []hecate.Pair
	for _, f := range s.Knowns {
		vec := f.ToVector()
		pairs = append(pairs, hecate.Pair{From: f, To: vec})
		out.Knowns = append(out.Knowns, vec)
	}
	matrixPairs := func(u *hecate.Func, mass, laplace string) *hecate.Func {
		vec := u.ToVector()
		pairs = append(pairs,
			hecate.Pair{From: hecate.Times(laplacian, u), To: hecate.Neg(hecate.Times(hecate.S(laplace), vec))},
			hecate.Pair{From: u, To: hecate.Times(hecate.S(mass), vec)},
		)
		return vec
	}
	for _, u := range s.Unknowns {
		out.Unknowns = append(out.Unknowns, matrixPairs(u, MassMatrix, LaplaceMatrix))
	}
	for _, u := range s.KnownUnknowns {
		out.KnownUnknowns = append(out.KnownUnknowns, matrixPairs(u, MassMatrixPrev, LaplaceMatrixPrev))
	}

	vectors := make([]hecate.Expr, len(out.Unknowns))
	for i, u := range out.Unknowns {
		vectors[i] = u
	}
	for _, eq := range s.Equations {
		out.Equations = append(out.Equations, hecate.Factor(hecate.Subs(eq, pairs...), vectors).(*hecate.Equation))
	}
	return out
}

// ToConstantMesh identifies the previous-step matrices with the current ones.
func (s *System) ToConstantMesh() *System {
	return s.Subs(
		hecate.Pair{From: hecate.S(MassMatrixPrev), To: hecate.S(MassMatrix)},
		hecate.Pair{From: hecate.S(LaplaceMatrixPrev), To: hecate.S(LaplaceMatrix)},
	).Factor()
}

func (s *System) ToCrankNicolson() *System {
	logger.Info("Applying a Crank-Nicolson time discretization")
	return s.withTheta(hecate.R(1, 2))
}

func (s *System) ToExplicitEuler() *System {
	logger.Info("Applying an explicit Euler time discretization")
	return s.withTheta(hecate.N(0))
}

func (s *System) ToImplicitEuler() *System {
	logger.Info("Applying an implicit Euler time discretization")
	return s.withTheta(hecate.N(1))
}

// WithScheme applies the θ value of scheme.
func (s *System) WithScheme(scheme Scheme) *System {
	switch scheme {
	case ExplicitEuler:
		return s.ToExplicitEuler()
	case ImplicitEuler:
		return s.ToImplicitEuler()
	}
	return s.ToCrankNicolson()
}

func (s *System) withTheta(theta hecate.Expr) *System {
	return s.Subs(hecate.Pair{From: hecate.S(hecate.ThetaName), To: theta}).Simplify()
}

// Subs applies pairs to every equation.
func (s *System) Subs(pairs ...hecate.Pair) *System {
	return s.mapEquations(func(eq *hecate.Equation) *hecate.Equation {
		return hecate.Subs(eq, pairs...).(*hecate.Equation)
	})
}

// Expand expands every equation.
func (s *System) Expand() *System {
	return s.mapEquations(func(eq *hecate.Equation) *hecate.Equation {
		return hecate.Expand(eq).(*hecate.Equation)
	})
}

// Simplify expands and then factors every equation.
func (s *System) Simplify() *System { return s.Expand().Factor() }

// ============================================================
// Queries
// ============================================================

// Vector is one finite-element vector of the system.
type Vector struct {
	Func *hecate.Func
	// Unknown is true for current and previous step unknowns.
	Unknown bool
}

// Vectors lists the unknowns, then the previous-step unknowns, then the knowns.
func (s *System) Vectors() []Vector {
	var out []Vector
	for _, f := range s.Unknowns {
		out = append(out, Vector{Func: f, Unknown: true})
	}
	for _, f := range s.KnownUnknowns {
		out = append(out, Vector{Func: f, Unknown: true})
	}
	for _, f := range s.Knowns {
		out = append(out, Vector{Func: f})
	}
	return out
}

// Matrixes lists the shape matrix symbols.
func (s *System) Matrixes() []*hecate.Symbol {
	return []*hecate.Symbol{
		hecate.S(MassMatrix), hecate.S(LaplaceMatrix),
		hecate.S(MassMatrixPrev), hecate.S(LaplaceMatrixPrev),
	}
}

func (s *System) NumVectors() int {
	return len(s.Unknowns) + len(s.KnownUnknowns) + len(s.Knowns)
}

// EquationUnknowns returns the unknowns that occur in eq.
func (s *System) EquationUnknowns(eq *hecate.Equation) []*hecate.Func {
	var out []*hecate.Func
	for _, u := range s.Unknowns {
		if hecate.Has(eq, u) {
			out = append(out, u)
		}
	}
	return out
}

// LHSUnknowns returns the unknowns that occur on the left of eq. After the
// pipeline this is the single unknown the equation is solved for.
func (s *System) LHSUnknowns(eq *hecate.Equation) []*hecate.Func {
	var out []*hecate.Func
	for _, u := range s.Unknowns {
		if hecate.Has(eq.LHS, u) {
			out = append(out, u)
		}
	}
	return out
}

// EqsInSolvingOrder sorts equations by the number of unknowns they
// reference. The sort is stable.
func (s *System) EqsInSolvingOrder() []*hecate.Equation {
	out := slices.Clone(s.Equations)
	slices.SortStableFunc(out, func(a, b *hecate.Equation) int {
		return len(s.EquationUnknowns(a)) - len(s.EquationUnknowns(b))
	})
	return out
}

// ============================================================
// Pipeline
// ============================================================

// Scheme selects the value of θ.
type Scheme int

const (
	CrankNicolson Scheme = iota
	ExplicitEuler
	ImplicitEuler
)

var schemeNames = map[Scheme]string{
	CrankNicolson: "crank_nicolson",
	ExplicitEuler: "explicit_euler",
	ImplicitEuler: "implicit_euler",
}

func (s Scheme) String() string {
	if n, ok := schemeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme maps a scheme name to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown time scheme %q", name)
}

// Pipeline runs every stage in order and returns the final system.
func (s *System) Pipeline(scheme Scheme) (*System, error) {
	run := func(name string, stage func(*System) *System) {
		logger.LogPhase(name)
		s = stage(s)
		logger.LogPhaseComplete(name, len(s.Equations))
	}
	run("to_first_order_in_time", (*System).ToFirstOrderInTime)
	run("time_discretized", (*System).TimeDiscretized)

	logger.LogPhase("simplified")
	simplified, err := s.Simplified()
	if err != nil {
		return nil, err
	}
	s = simplified
	logger.LogPhaseComplete("simplified", len(s.Equations))

	run("factor", (*System).Factor)
	run("matrixify", (*System).Matrixify)
	run("to_constant_mesh", (*System).ToConstantMesh)
	run("to_"+scheme.String(), func(s *System) *System { return s.WithScheme(scheme) })
	return s, nil
}
