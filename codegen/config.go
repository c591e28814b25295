package codegen

import "github.com/njchilds90/hecate"

// ============================================================
// Emitter configurations
// ============================================================

// GenConfig holds the generation options.
type GenConfig struct {
	MPI        bool
	MatrixFree bool
	// Debug embeds the transformed system in the generated source.
	Debug bool
}

type VectorConfig struct {
	DofHandler string
}

type MatrixConfig struct {
	SparsityPattern string
}

// ShapeMatrixKind selects the assembled shape matrix.
type ShapeMatrixKind int

const (
	Laplace ShapeMatrixKind = iota
	Mass
)

func (k ShapeMatrixKind) String() string {
	if k == Mass {
		return "mass"
	}
	return "laplace"
}

type ShapeMatrixConfig struct {
	DofHandler string
	Element    string
	Matrix     MatrixConfig
	Kind       ShapeMatrixKind
}

type DofHandlerConfig struct {
	Mesh    string
	Element string
}

type SparsityPatternConfig struct {
	DofHandler string
}

// InitialConditionConfig projects Function onto Target before time stepping.
type InitialConditionConfig struct {
	DofHandler string
	Function   string
	Element    string
	Target     string
}

type SolveUnknownConfig struct {
	Rhs        string
	UnknownVec string
	UnknownMat string
}

// EquationSetupConfig lowers the system matrix and the right-hand side of
// Equation, which must be solved for Unknown.
type EquationSetupConfig struct {
	Equation *hecate.Equation
	Unknown  hecate.Expr
	Vectors  []hecate.Expr
	Matrixes []hecate.Expr
}

// TargetIteration is the time level a function is evaluated at.
type TargetIteration int

const (
	Current TargetIteration = iota
	Next
	Previous
)

// VectorFromFunctionConfig interpolates Function into Target at the time
// level given by Iteration.
type VectorFromFunctionConfig struct {
	Function   string
	DofHandler string
	Target     string
	Iteration  TargetIteration
}

type ApplyBoundaryConditionConfig struct {
	Function   string
	DofHandler string
	Matrix     string
	Solution   string
	Rhs        string
}
