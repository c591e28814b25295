package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/njchilds90/hecate"
)

var (
	ErrMeshNotFound      = errors.New("mesh not found")
	ErrEquationNotFound  = errors.New("equation(s) not found")
	ErrFunctionNotFound  = errors.New("function not found")
	ErrUndefinedSymbol   = errors.New("undefined symbol")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnsupportedMesh   = errors.New("unsupported mesh type")
	ErrNothingToSolve    = errors.New("no equation to solve")
	ErrReservedNameClash = errors.New("name is reserved")
)

// ValidationError reports what part of a problem is invalid.
type ValidationError struct {
	Err  error
	Name string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Name) }
func (e *ValidationError) Unwrap() error { return e.Err }

// Coordinate and time variables usable in equations and functions.
var variables = []string{"t", "x", "y", "z"}

// Validate checks that every reference resolves and that numeric settings
// are usable.
func (p *Problem) Validate() error {
	var errs []error
	fail := func(err error, format string, args ...any) {
		errs = append(errs, &ValidationError{Err: err, Name: fmt.Sprintf(format, args...)})
	}

	s := p.Solve
	if len(s.Equations) == 0 {
		fail(ErrNothingToSolve, "solve.equations")
	}
	if mesh, ok := p.Meshes.Get(s.Mesh); !ok {
		fail(ErrMeshNotFound, "%s", s.Mesh)
	} else {
		if mesh.Type != HyperCube {
			fail(ErrUnsupportedMesh, "%s", mesh.Type)
		}
		if mesh.End <= mesh.Start {
			fail(ErrInvalidValue, "mesh %s: end must be greater than start", s.Mesh)
		}
		if mesh.Subdivisions < 0 {
			fail(ErrInvalidValue, "mesh %s: subdivisions must not be negative", s.Mesh)
		}
	}
	var missing []string
	for _, name := range s.Equations {
		if !p.Equations.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		fail(ErrEquationNotFound, "%s", strings.Join(missing, ", "))
	}
	if s.Element.Degree() == 0 {
		fail(ErrInvalidValue, "element %q", s.Element)
	}
	if s.Dimension < 1 || s.Dimension > 3 {
		fail(ErrInvalidValue, "dimension %d", s.Dimension)
	}
	if s.TimeStep <= 0 {
		fail(ErrInvalidValue, "time step %s", FormatNumber(s.TimeStep))
	}
	if s.Time.End < s.Time.Start {
		fail(ErrInvalidValue, "time range %s", s.Time)
	}

	_ = p.Unknowns.Each(func(name string, u Unknown) error {
		if slices.Contains(variables, name) {
			fail(ErrReservedNameClash, "unknown %s", name)
		}
		for _, prop := range u.Properties() {
			if prop.Int == nil && prop.Float == nil && !p.Functions.Has(prop.Function) {
				fail(ErrFunctionNotFound, "%s (used by unknown %s)", prop.Function, name)
			}
		}
		return nil
	})

	defined := func(sym string) bool {
		return slices.Contains(variables, sym) ||
			sym == hecate.LaplacianName || sym == hecate.NablaName ||
			p.Parameters.Has(sym) || p.Unknowns.Has(sym) || p.Functions.Has(sym)
	}
	for _, name := range s.Equations {
		eq, ok := p.Equations.Get(name)
		if !ok {
			continue
		}
		for _, sym := range Symbols(eq.Eq) {
			if !defined(sym) {
				fail(ErrUndefinedSymbol, "%s (in equation %s)", sym, name)
			}
		}
	}
	return errors.Join(errs...)
}

// Symbols lists the names of the symbols of e in first-seen order.
// Differentiation variables are not included.
func Symbols(e hecate.Expr) []string {
	var out []string
	var walk func(hecate.Expr)
	walk = func(e hecate.Expr) {
		if s, ok := e.(*hecate.Symbol); ok {
			if !slices.Contains(out, s.Name()) {
				out = append(out, s.Name())
			}
			return
		}
		for _, c := range e.Children() {
			switch c := c.(type) {
			case hecate.ExprArg:
				walk(c.Expr)
			case hecate.ListArg:
				for _, sub := range c.Exprs {
					walk(sub)
				}
			}
		}
	}
	walk(e)
	return out
}
