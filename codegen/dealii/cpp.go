package dealii

import (
	"strings"
	"unicode/utf8"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/system"
)

// ============================================================
// C++ rendering
// ============================================================

var reservedNames = map[string]string{
	system.MassMatrix:    "mass_mat",
	system.LaplaceMatrix: "laplace_mat",
	system.TimeStep:      "time_step",
}

// Name turns a symbol or vector name into a C++ identifier: u^n-1 becomes
// u_prev and u^n becomes u.
func Name(name string) string {
	if cpp, ok := reservedNames[name]; ok {
		return cpp
	}
	name = strings.ReplaceAll(name, "^n-1", "_prev")
	name = strings.ReplaceAll(name, "^n", "")
	return strings.ToLower(name)
}

// Cpp renders e as a C++ expression.
func Cpp(e hecate.Expr) string {
	switch e := e.(type) {
	case *hecate.Symbol:
		return Name(e.Name())
	case *hecate.Integer:
		return e.String()
	case *hecate.Rational:
		return e.Num().String() + "./" + e.Denom().String() + "."
	case *hecate.Func:
		if !strings.Contains(e.Name(), "^") && utf8.RuneCountInString(e.Name()) > 1 {
			args := e.Args()
			out := make([]string, len(args))
			for i, a := range args {
				out[i] = Cpp(a)
			}
			return "Kokkos::" + e.Name() + "(" + strings.Join(out, ", ") + ")"
		}
		return Name(e.Name())
	case *hecate.Pow:
		return powCpp(e)
	case *hecate.Mul:
		return mulCpp(e)
	case *hecate.Add:
		terms := e.Terms()
		out := make([]string, len(terms))
		for i, t := range terms {
			out[i] = Cpp(t)
		}
		return strings.Join(out, " + ")
	}
	return e.String()
}

func powCpp(p *hecate.Pow) string {
	base := Cpp(p.Base())
	switch p.Base().(type) {
	case *hecate.Add, *hecate.Mul, *hecate.Pow, *hecate.Rational:
		base = "(" + base + ")"
	}
	if hecate.IsNegOne(p.Exp()) {
		return "1 / " + base
	}
	if n, ok := p.Exp().(*hecate.Integer); ok {
		if v, ok := n.Int64(); ok && v > 0 && v <= 16 {
			return strings.TrimSuffix(strings.Repeat(base+" * ", int(v)), " * ")
		}
	}
	return "Kokkos::pow(" + Cpp(p.Base()) + ", " + Cpp(p.Exp()) + ")"
}

func mulCpp(m *hecate.Mul) string {
	factors := m.Factors()
	var sb strings.Builder
	ops := factors
	if len(ops) > 0 && hecate.IsNegOne(ops[0]) {
		sb.WriteString("-")
		ops = ops[1:]
	}
	for i, op := range ops {
		if i > 0 {
			sb.WriteString(" * ")
		}
		s := Cpp(op)
		if len(factors) > 1 {
			switch op.(type) {
			case *hecate.Add, *hecate.Pow, *hecate.Rational:
				s = "(" + s + ")"
			}
		}
		sb.WriteString(s)
	}
	return sb.String()
}
