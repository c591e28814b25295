package dealii

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/njchilds90/hecate"
)

// ============================================================
// Lowering errors
// ============================================================

var (
	ErrTooManyVectors        = errors.New("too many vectors in a product")
	ErrTooManyMatrixes       = errors.New("too many matrixes in a product")
	ErrUnsupportedExpr       = errors.New("unsupported expression")
	ErrUnsupportedMulOperand = errors.New("unsupported product operand")
	ErrVectorMul             = errors.New("can't multiply two vectors")
	ErrMatResult             = errors.New("operations resulted in a matrix when a vector was expected")
	ErrVecResult             = errors.New("operations resulted in a vector when a matrix was expected")
	ErrUnsupportedEquation   = errors.New("unsupported equation")
)

// LowerError reports an expression that can't be lowered to statements.
type LowerError struct {
	Err    error
	Expr   string
	Reason string
}

func (e *LowerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s (%s)", e.Err, e.Expr, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Expr)
}

func (e *LowerError) Unwrap() error { return e.Err }

func lowerErr(err error, e hecate.Expr, reason string) *LowerError {
	return &LowerError{Err: err, Expr: e.String(), Reason: reason}
}

// ============================================================
// Lowering
// ============================================================

// Lowered is the result of lowering one expression into a target variable.
type Lowered struct {
	Stmts []Stmt
	Kind  ResultKind
	// Vectors and Matrixes are the temporaries the statements use.
	Vectors  []string
	Matrixes []string
}

func (l *Lowered) String() string { return Render(l.Stmts) }

type lowerer struct {
	vectors  map[string]bool
	matrixes map[string]bool
}

func newLowerer(vectors, matrixes []hecate.Expr) *lowerer {
	l := &lowerer{vectors: make(map[string]bool), matrixes: make(map[string]bool)}
	for _, v := range vectors {
		l.vectors[v.Signature()] = true
	}
	for _, m := range matrixes {
		l.matrixes[m.Signature()] = true
	}
	return l
}

func (l *lowerer) isVector(e hecate.Expr) bool { return l.vectors[e.Signature()] }
func (l *lowerer) isMatrix(e hecate.Expr) bool { return l.matrixes[e.Signature()] }

// isScalar reports whether e contains no vector and no matrix.
func (l *lowerer) isScalar(e hecate.Expr) bool {
	if l.isVector(e) || l.isMatrix(e) {
		return false
	}
	for _, c := range e.Children() {
		switch c := c.(type) {
		case hecate.ExprArg:
			if !l.isScalar(c.Expr) {
				return false
			}
		case hecate.ListArg:
			for _, sub := range c.Exprs {
				if !l.isScalar(sub) {
					return false
				}
			}
		}
	}
	return true
}

// ExprCodeGen lowers e into statements computing target. vectors and
// matrixes list the expressions that denote finite-element vectors and
// matrixes; everything else is a scalar. depth is the nesting level, used to
// name temporaries.
func ExprCodeGen(target string, e hecate.Expr, vectors, matrixes []hecate.Expr, depth int) (*Lowered, error) {
	l := newLowerer(vectors, matrixes)
	stmts, kind, err := l.expr(target, e, depth)
	if err != nil {
		return nil, err
	}
	out := &Lowered{Stmts: stmts, Kind: kind}
	for _, s := range stmts {
		switch name := writes(s); {
		case strings.HasPrefix(name, "vtmp"):
			out.Vectors = addUnique(out.Vectors, name)
		case strings.HasPrefix(name, "mtmp"):
			out.Matrixes = addUnique(out.Matrixes, name)
		}
	}
	return out, nil
}

func addUnique(set []string, s string) []string {
	if slices.Contains(set, s) {
		return set
	}
	return append(set, s)
}

// VecCodeGen lowers an expression that must evaluate to a vector or a
// scalar.
func VecCodeGen(target string, e hecate.Expr, vectors, matrixes []hecate.Expr) (*Lowered, error) {
	out, err := ExprCodeGen(target, e, vectors, matrixes, 0)
	if err != nil {
		return nil, err
	}
	if out.Kind == Matrix {
		return nil, lowerErr(ErrMatResult, e, "")
	}
	return out, nil
}

// RhsCodeGen lowers the right-hand side of a linear system into "rhs".
func RhsCodeGen(e hecate.Expr, vectors, matrixes []hecate.Expr) (*Lowered, error) {
	return VecCodeGen("rhs", e, vectors, matrixes)
}

// MatCodeGen lowers an expression that must evaluate to a matrix or a
// scalar.
func MatCodeGen(target string, e hecate.Expr, vectors, matrixes []hecate.Expr) (*Lowered, error) {
	out, err := ExprCodeGen(target, e, vectors, matrixes, 0)
	if err != nil {
		return nil, err
	}
	if out.Kind == Vector {
		return nil, lowerErr(ErrVecResult, e, "")
	}
	return out, nil
}

func placeholder(depth int) string {
	if depth == 0 {
		return "$x$"
	}
	return "$x" + strconv.Itoa(depth) + "$"
}

func tempName(kind ResultKind, depth int) string {
	prefix := "vtmp"
	if kind == Matrix {
		prefix = "mtmp"
	}
	if depth == 0 {
		return prefix
	}
	return prefix + strconv.Itoa(depth)
}

func (l *lowerer) expr(target string, e hecate.Expr, depth int) ([]Stmt, ResultKind, error) {
	e = hecate.Simplify(e)
	switch {
	case l.isVector(e):
		return []Stmt{Assign{Dest: target, Value: Cpp(e)}}, Vector, nil
	case l.isMatrix(e):
		return []Stmt{CopyFrom{Dest: target, Src: Cpp(e)}}, Matrix, nil
	}
	switch e := e.(type) {
	case *hecate.Diff, *hecate.Equation, *hecate.Integral:
		return nil, Scalar, lowerErr(ErrUnsupportedExpr, e, "")
	case *hecate.Add:
		return l.add(target, e, depth)
	case *hecate.Mul:
		return l.mul(target, e, depth)
	case *hecate.Pow:
		if !l.isScalar(e.Base()) {
			return nil, Scalar, lowerErr(ErrUnsupportedExpr, e, "power of a vector or a matrix")
		}
	}
	if !l.isScalar(e) {
		return nil, Scalar, lowerErr(ErrUnsupportedExpr, e, "")
	}
	return []Stmt{Assign{Dest: target, Value: Cpp(e)}}, Scalar, nil
}

func mergeKinds(a, b ResultKind, e hecate.Expr) (ResultKind, error) {
	switch {
	case a == Scalar:
		return b, nil
	case b == Scalar, a == b:
		return a, nil
	}
	return Scalar, lowerErr(ErrUnsupportedExpr, e, "can't add a vector and a matrix")
}

// add accumulates the terms of e into target from left to right.
func (l *lowerer) add(target string, e *hecate.Add, depth int) ([]Stmt, ResultKind, error) {
	terms := e.Terms()
	var out []Stmt
	if depth > 0 {
		out = append(out, Blank{})
	}
	out = append(out, Comment{Text: target + " = " + e.String()})

	first, kind, err := l.expr(target, terms[0], depth)
	if err != nil {
		return nil, Scalar, err
	}
	out = append(out, first...)

	for _, op := range terms[1:] {
		out = append(out, Blank{}, Comment{Text: target + " += " + op.String()})

		if l.isVector(op) || l.isScalar(op) {
			opKind := Scalar
			if l.isVector(op) {
				opKind = Vector
			}
			if kind, err = mergeKinds(kind, opKind, e); err != nil {
				return nil, Scalar, err
			}
			out = append(out, Accumulate{Dest: target, Value: Cpp(op)})
			continue
		}

		ph := placeholder(depth)
		sub, subKind, err := l.expr(ph, op, depth+1)
		if err != nil {
			return nil, Scalar, err
		}
		if subKind == Scalar {
			return nil, Scalar, lowerErr(ErrUnsupportedExpr, op, "scalar addend needs no temporary")
		}
		tmp := tempName(subKind, depth)
		sub = Rename(sub, ph, tmp)
		out = append(out, fuseAddend(target, tmp, sub, subKind)...)
		if kind, err = mergeKinds(kind, subKind, e); err != nil {
			return nil, Scalar, err
		}
	}
	out = append(out, Blank{})
	return fuseAdds(target, out), kind, nil
}

// mulOperand is one classified non-scalar factor of a product.
type mulOperand struct {
	kind  ResultKind
	name  string // C++ name, or temporary name for lowered factors
	text  string
	stmts []Stmt // non-nil for factors lowered into a temporary
}

// mul lowers a product. Scalar factors are gathered into one coefficient
// applied at the end.
func (l *lowerer) mul(target string, e *hecate.Mul, depth int) ([]Stmt, ResultKind, error) {
	var (
		coeff    hecate.Expr = hecate.N(1)
		operands []mulOperand
		nv, nm   int
	)
	for _, f := range e.Factors() {
		switch {
		case l.isVector(f):
			operands = append(operands, mulOperand{kind: Vector, name: Cpp(f), text: f.String()})
			nv++
		case l.isMatrix(f):
			operands = append(operands, mulOperand{kind: Matrix, name: Cpp(f), text: f.String()})
			nm++
		case l.isScalar(f):
			coeff = hecate.Times(coeff, f)
		default:
			ph := placeholder(depth)
			sub, kind, err := l.expr(ph, f, depth+1)
			if err != nil {
				return nil, Scalar, err
			}
			if kind == Scalar {
				return nil, Scalar, lowerErr(ErrUnsupportedMulOperand, f, "")
			}
			tmp := tempName(kind, depth)
			if slices.ContainsFunc(operands, func(o mulOperand) bool { return o.name == tmp }) {
				return nil, Scalar, lowerErr(ErrUnsupportedExpr, e, "temporary "+tmp+" is used twice")
			}
			operands = append(operands, mulOperand{kind: kind, name: tmp, text: tmp, stmts: Rename(sub, ph, tmp)})
			if kind == Vector {
				nv++
			} else {
				nm++
			}
		}
	}
	coeff = hecate.Simplify(coeff)
	switch {
	case nv > 2:
		return nil, Scalar, lowerErr(ErrTooManyVectors, e, "")
	case nm > 2:
		return nil, Scalar, lowerErr(ErrTooManyMatrixes, e, "")
	case nv == 2:
		return nil, Scalar, lowerErr(ErrVectorMul, e, "")
	}

	one := hecate.IsOne(coeff)
	c := Cpp(coeff)
	scale := func(out []Stmt) []Stmt {
		if one {
			return out
		}
		return append(out, Scale{Dest: target, Coeff: c, Inline: true})
	}

	if len(operands) == 0 {
		return []Stmt{Assign{Dest: target, Value: c}}, Scalar, nil
	}
	if len(operands) == 1 && operands[0].stmts == nil {
		op := operands[0]
		if op.kind == Vector {
			if one {
				return []Stmt{Assign{Dest: target, Value: op.name}}, Vector, nil
			}
			var out []Stmt
			if depth == 0 {
				out = append(out, Comment{Text: target + " = " + coeff.String() + " * " + op.text})
			}
			return append(out, Equ{Dest: target, Coeff: c, Src: op.name}), Vector, nil
		}
		if one {
			return []Stmt{CopyFrom{Dest: target, Src: op.name}}, Matrix, nil
		}
		return []Stmt{
			Comment{Text: target + " = " + coeff.String() + " * " + op.text},
			CopyFrom{Dest: target, Src: op.name},
			Scale{Dest: target, Coeff: c, Inline: true},
		}, Matrix, nil
	}
	if len(operands) == 2 && operands[0].stmts == nil && operands[1].stmts == nil &&
		operands[0].kind == Matrix && operands[1].kind == Vector {
		return scale([]Stmt{
			Comment{Text: target + " = " + e.String()},
			Mult{Matrix: operands[0].name, Dest: target, Arg: operands[1].name},
		}), Vector, nil
	}

	// Left to right chain. A matrix product feeding a vmult goes into a
	// matrix temporary, never into a vector target.
	var (
		out    []Stmt
		kind   = Scalar
		source string
	)
	for i, op := range operands {
		out = append(out, op.stmts...)
		switch {
		case kind == Scalar:
			source, kind = op.name, op.kind
		case kind == Vector && op.kind == Matrix:
			return nil, Scalar, lowerErr(ErrUnsupportedMulOperand, e, "vector times matrix")
		case kind == Vector:
			return nil, Scalar, lowerErr(ErrVectorMul, e, "")
		case op.kind == Matrix:
			dest := target
			if slices.ContainsFunc(operands[i+1:], func(o mulOperand) bool { return o.kind == Vector }) {
				dest = tempName(Matrix, depth)
				if slices.ContainsFunc(operands, func(o mulOperand) bool { return o.name == dest }) {
					return nil, Scalar, lowerErr(ErrUnsupportedExpr, e, "temporary "+dest+" is used twice")
				}
			}
			out = append(out, Mult{Matrix: source, Dest: dest, Arg: op.name, MatrixProduct: true})
			source = dest
		default:
			out = append(out,
				Comment{Text: target + " = " + source + " * " + op.text},
				Mult{Matrix: source, Dest: target, Arg: op.name},
			)
			source, kind = target, Vector
		}
	}
	if source != target {
		if kind == Vector {
			out = append(out, Assign{Dest: target, Value: source})
		} else {
			out = append(out, CopyFrom{Dest: target, Src: source})
		}
	}
	return scale(out), kind, nil
}
