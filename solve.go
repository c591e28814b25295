package hecate

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================
// Solve
// ============================================================

var (
	ErrNoUnknowns      = errors.New("no unknowns given")
	ErrZeroCoefficient = errors.New("failed to get unknown coefficient")
)

// SolveError reports an equation that could not be isolated.
type SolveError struct {
	Equation string
	Unknowns string
	Err      error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("failed to solve equation %s for unknowns %s : %s", e.Equation, e.Unknowns, e.Err)
}

func (e *SolveError) Unwrap() error { return e.Err }

// Solve isolates the target terms on the left-hand side of eq.
//
// The equation is expanded; terms without a target move right, terms with a
// target move left. The left side is then divided by its numeric coefficient
// and, when it is a product, by its factors that contain no target. With a
// single target u the result has the form u = rhs.
func Solve(eq *Equation, targets ...Expr) (*Equation, error) {
	res := Expand(eq).(*Equation)
	fail := func(err error) error {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.String()
		}
		return &SolveError{Equation: res.String(), Unknowns: "[" + strings.Join(names, ", ") + "]", Err: err}
	}
	if len(targets) == 0 {
		return nil, fail(ErrNoUnknowns)
	}
	hasTarget := func(e Expr) bool {
		for _, t := range targets {
			if Has(e, t) {
				return true
			}
		}
		return false
	}

	var moveRight, moveLeft []Expr
	for _, t := range addTerms(res.LHS) {
		if !hasTarget(t) {
			moveRight = append(moveRight, t)
		}
	}
	for _, t := range addTerms(res.RHS) {
		if hasTarget(t) {
			moveLeft = append(moveLeft, t)
		}
	}
	for _, t := range moveRight {
		res = res.Sub(t)
	}
	for _, t := range moveLeft {
		res = res.Sub(t)
	}

	coeff, _ := GetCoeff(res.LHS)
	if coeff.Sign() == 0 {
		return nil, fail(ErrZeroCoefficient)
	}
	if !isRatOne(coeff) {
		res = res.Divide(Rat(coeff))
	}
	if m, ok := res.LHS.(*Mul); ok {
		var others []Expr
		for _, op := range m.factors {
			if !hasTarget(op) {
				others = append(others, op)
			}
		}
		if len(others) > 0 {
			res = res.Divide(MulOf(others...))
		}
	}
	return res, nil
}
