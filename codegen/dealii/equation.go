package dealii

import (
	"strings"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/codegen"
)

// systemMatrix splits the left-hand side of eq into the expression of the
// system matrix multiplying unknown.
func systemMatrix(eq *hecate.Equation, unknown hecate.Expr) (hecate.Expr, error) {
	lhs := hecate.Factor(hecate.Expand(eq.LHS), []hecate.Expr{unknown})
	m, ok := lhs.(*hecate.Mul)
	if !ok {
		return nil, lowerErr(ErrUnsupportedEquation, eq, "left-hand side must be a matrix times "+unknown.String())
	}
	factors := m.Factors()
	last := factors[len(factors)-1]
	if !hecate.Equal(last, unknown) {
		return nil, lowerErr(ErrUnsupportedEquation, eq, unknown.String()+" must be the last factor on the left")
	}
	sys := hecate.MulOf(factors[:len(factors)-1]...)
	if hecate.Has(sys, unknown) {
		return nil, lowerErr(ErrUnsupportedEquation, eq, unknown.String()+" appears more than once on the left")
	}
	return sys, nil
}

// equationSetup lowers the system matrix and the right-hand side of an
// equation solved for one unknown vector.
func equationSetup(_ string, cfg codegen.EquationSetupConfig) (*codegen.Block, error) {
	sys, err := systemMatrix(cfg.Equation, cfg.Unknown)
	if err != nil {
		return nil, err
	}
	unknown := Cpp(cfg.Unknown)
	mat, err := MatCodeGen("matrix_"+unknown, sys, cfg.Vectors, cfg.Matrixes)
	if err != nil {
		return nil, err
	}
	rhs, err := RhsCodeGen(cfg.Equation.RHS, cfg.Vectors, cfg.Matrixes)
	if err != nil {
		return nil, err
	}

	code := "// ## Compute system for " + unknown + "\n" + mat.String() +
		"\n\n\n// ## Compute rhs for " + unknown + "\n" + rhs.String()

	b := codegen.NewBlock()
	b.Main = append(b.Main, "// # Setup equation "+cfg.Equation.String())
	b.Main = append(b.Main, strings.Split(code, "\n")...)
	b.AddVector(mat.Vectors...)
	b.AddVector(rhs.Vectors...)
	b.AddMatrix(mat.Matrixes...)
	b.AddMatrix(rhs.Matrixes...)
	return b, nil
}
