// Package hecate is the symbolic core of the hecate PDE compiler.
//
// Expressions are immutable trees built from a closed set of node kinds:
//   - Symbol, Integer, Rational (exact, math/big)
//   - Pow, Add, Mul
//   - Diff (partial derivative with accumulated orders)
//   - Func (named unknown or known function)
//   - Equation, Integral
//
// Every generic operator is written against the Children/Rebuild traversal
// contract, so a new node kind does not require touching the operators.
package hecate

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Core Interface
// ============================================================

// Kind classifies an expression node.
type Kind int

const (
	KindUnknown Kind = iota
	KindSymbol
	KindInteger
	KindRational
	KindPow
	KindAdd
	KindMul
	KindDiff
	KindFunc
	KindEquation
	KindIntegral
)

var kindNames = [...]string{
	"unknown", "symbol", "integer", "rational", "pow", "add", "mul",
	"diff", "func", "equation", "integral",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Expr is an immutable expression node.
type Expr interface {
	Kind() Kind
	// Children decomposes the node into its ordered, typed children.
	Children() []Child
	// Rebuild returns a node of the same kind built from children.
	// Children of the wrong arity or type are a programming error and panic.
	Rebuild(children []Child) Expr
	String() string
	// Signature is a stable structural rendering; two expressions are
	// equal exactly when their signatures are.
	Signature() string
	Clone() Expr
}

// Child is one element of a node decomposition.
type Child interface{ isChild() }

// ExprArg is a nested expression child.
type ExprArg struct{ Expr Expr }

// AtomArg is an opaque atomic child such as a name or a number literal.
type AtomArg struct{ Value string }

// ListArg is an ordered collection of expressions.
type ListArg struct{ Exprs []Expr }

// OrdersArg is the ordered variable/order list of a derivative.
type OrdersArg struct{ Orders []VarOrder }

func (ExprArg) isChild()   {}
func (AtomArg) isChild()   {}
func (ListArg) isChild()   {}
func (OrdersArg) isChild() {}

// VarOrder is one differentiation variable with its order.
type VarOrder struct {
	Var   *Symbol
	Order int
}

// D is shorthand for a VarOrder on the symbol named v.
func D(v string, order int) VarOrder { return VarOrder{Var: S(v), Order: order} }

func childExpr(k Kind, children []Child, i int) Expr {
	if i >= len(children) {
		panic(fmt.Sprintf("hecate: rebuild %s: missing child %d", k, i))
	}
	c, ok := children[i].(ExprArg)
	if !ok {
		panic(fmt.Sprintf("hecate: rebuild %s: child %d is %T, want ExprArg", k, i, children[i]))
	}
	return c.Expr
}

func childAtom(k Kind, children []Child, i int) string {
	if i >= len(children) {
		panic(fmt.Sprintf("hecate: rebuild %s: missing child %d", k, i))
	}
	c, ok := children[i].(AtomArg)
	if !ok {
		panic(fmt.Sprintf("hecate: rebuild %s: child %d is %T, want AtomArg", k, i, children[i]))
	}
	return c.Value
}

func childList(k Kind, children []Child, i int) []Expr {
	if i >= len(children) {
		panic(fmt.Sprintf("hecate: rebuild %s: missing child %d", k, i))
	}
	c, ok := children[i].(ListArg)
	if !ok {
		panic(fmt.Sprintf("hecate: rebuild %s: child %d is %T, want ListArg", k, i, children[i]))
	}
	return c.Exprs
}

func cloneAll(exprs []Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.Clone()
	}
	return out
}

func signatures(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.Signature()
	}
	return strings.Join(parts, ", ")
}

// ============================================================
// Symbol
// ============================================================

// Reserved glyphs.
const (
	NablaName     = "∇"
	LaplacianName = "Δ"
	ThetaName     = "θ"
)

var reservedSymbols = map[string]string{
	"nabla":     NablaName,
	"laplacian": LaplacianName,
	"theta":     ThetaName,
}

type Symbol struct{ name string }

// S returns the symbol called name. Reserved names are replaced by their glyph.
func S(name string) *Symbol {
	if glyph, ok := reservedSymbols[name]; ok {
		name = glyph
	}
	return &Symbol{name: name}
}

func (s *Symbol) Name() string      { return s.name }
func (s *Symbol) Kind() Kind        { return KindSymbol }
func (s *Symbol) Children() []Child { return []Child{AtomArg{s.name}} }
func (s *Symbol) Rebuild(c []Child) Expr {
	return S(childAtom(KindSymbol, c, 0))
}
func (s *Symbol) String() string    { return s.name }
func (s *Symbol) Signature() string { return "Symbol(" + s.name + ")" }
func (s *Symbol) Clone() Expr       { return &Symbol{name: s.name} }

// ============================================================
// Integer
// ============================================================

type Integer struct{ val *big.Int }

func N(n int64) *Integer { return &Integer{val: big.NewInt(n)} }

// Int returns an Integer holding a copy of v.
func Int(v *big.Int) *Integer { return &Integer{val: new(big.Int).Set(v)} }

func (n *Integer) Value() *big.Int   { return new(big.Int).Set(n.val) }
func (n *Integer) Kind() Kind        { return KindInteger }
func (n *Integer) Children() []Child { return []Child{AtomArg{n.val.String()}} }
func (n *Integer) Rebuild(c []Child) Expr {
	v, ok := new(big.Int).SetString(childAtom(KindInteger, c, 0), 10)
	if !ok {
		panic("hecate: rebuild integer: invalid literal")
	}
	return &Integer{val: v}
}
func (n *Integer) String() string    { return n.val.String() }
func (n *Integer) Signature() string { return "Integer(" + n.val.String() + ")" }
func (n *Integer) Clone() Expr       { return Int(n.val) }

// Int64 returns the value and whether it fits in an int64.
func (n *Integer) Int64() (int64, bool) { return n.val.Int64(), n.val.IsInt64() }

// ============================================================
// Rational
// ============================================================

type Rational struct{ val *big.Rat }

// R returns p/q in lowest terms, collapsed to an Integer when q divides p.
func R(p, q int64) Expr {
	if q == 0 {
		panic("hecate: denominator is zero")
	}
	return Rat(big.NewRat(p, q))
}

// Rat returns r as an exact number, collapsed to an Integer when possible.
func Rat(r *big.Rat) Expr {
	if r.IsInt() {
		return Int(r.Num())
	}
	return &Rational{val: new(big.Rat).Set(r)}
}

func (r *Rational) Value() *big.Rat { return new(big.Rat).Set(r.val) }
func (r *Rational) Num() *big.Int   { return new(big.Int).Set(r.val.Num()) }
func (r *Rational) Denom() *big.Int { return new(big.Int).Set(r.val.Denom()) }
func (r *Rational) Kind() Kind      { return KindRational }
func (r *Rational) Children() []Child {
	return []Child{AtomArg{r.val.Num().String()}, AtomArg{r.val.Denom().String()}}
}
func (r *Rational) Rebuild(c []Child) Expr {
	v, ok := new(big.Rat).SetString(childAtom(KindRational, c, 0) + "/" + childAtom(KindRational, c, 1))
	if !ok {
		panic("hecate: rebuild rational: invalid literal")
	}
	return Rat(v)
}
func (r *Rational) String() string { return r.val.String() }
func (r *Rational) Signature() string {
	return "Rational(" + r.val.Num().String() + ", " + r.val.Denom().String() + ")"
}
func (r *Rational) Clone() Expr { return &Rational{val: new(big.Rat).Set(r.val)} }

// ============================================================
// Pow
// ============================================================

type Pow struct{ base, exp Expr }

func (p *Pow) Base() Expr        { return p.base }
func (p *Pow) Exp() Expr         { return p.exp }
func (p *Pow) Kind() Kind        { return KindPow }
func (p *Pow) Children() []Child { return []Child{ExprArg{p.base}, ExprArg{p.exp}} }
func (p *Pow) Rebuild(c []Child) Expr {
	return PowOf(childExpr(KindPow, c, 0), childExpr(KindPow, c, 1))
}
func (p *Pow) Signature() string {
	return "Pow(" + p.base.Signature() + ", " + p.exp.Signature() + ")"
}
func (p *Pow) Clone() Expr { return &Pow{base: p.base.Clone(), exp: p.exp.Clone()} }

func (p *Pow) String() string {
	if isInt(p.exp, -1) {
		return "1 / " + wrapCompound(p.base)
	}
	return wrapCompound(p.base) + "^" + wrapCompound(p.exp)
}

func wrapCompound(e Expr) string {
	switch v := e.(type) {
	case *Add, *Mul, *Pow, *Rational, *Equation:
		return "(" + e.String() + ")"
	case *Integer:
		if v.val.Sign() < 0 {
			return "(" + e.String() + ")"
		}
	}
	return e.String()
}

// ============================================================
// Add
// ============================================================

type Add struct{ terms []Expr }

// Terms returns a copy of the operands.
func (a *Add) Terms() []Expr     { return append([]Expr(nil), a.terms...) }
func (a *Add) Kind() Kind        { return KindAdd }
func (a *Add) Children() []Child { return exprChildren(a.terms) }
func (a *Add) Rebuild(c []Child) Expr {
	return AddOf(exprsOf(KindAdd, c)...)
}
func (a *Add) Signature() string { return "Add(" + signatures(a.terms) + ")" }
func (a *Add) Clone() Expr       { return &Add{terms: cloneAll(a.terms)} }

func (a *Add) String() string {
	var sb strings.Builder
	for i, t := range a.terms {
		if i == 0 {
			sb.WriteString(t.String())
			continue
		}
		switch v := t.(type) {
		case *Mul:
			if len(v.factors) > 1 && isInt(v.factors[0], -1) {
				sb.WriteString(" - ")
				sb.WriteString(v.render(true))
				continue
			}
		case *Integer:
			if v.val.Sign() < 0 {
				sb.WriteString(" - ")
				sb.WriteString(new(big.Int).Neg(v.val).String())
				continue
			}
		}
		sb.WriteString(" + ")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// ============================================================
// Mul
// ============================================================

type Mul struct{ factors []Expr }

// Factors returns a copy of the operands.
func (m *Mul) Factors() []Expr   { return append([]Expr(nil), m.factors...) }
func (m *Mul) Kind() Kind        { return KindMul }
func (m *Mul) Children() []Child { return exprChildren(m.factors) }
func (m *Mul) Rebuild(c []Child) Expr {
	return MulOf(exprsOf(KindMul, c)...)
}
func (m *Mul) Signature() string { return "Mul(" + signatures(m.factors) + ")" }
func (m *Mul) Clone() Expr       { return &Mul{factors: cloneAll(m.factors)} }
func (m *Mul) String() string    { return m.render(false) }

// render writes the product by juxtaposition. dropSign omits a leading -1.
func (m *Mul) render(dropSign bool) string {
	var sb strings.Builder
	last := len(m.factors) - 1
	for i, f := range m.factors {
		if i == 0 && isInt(f, -1) && last > 0 {
			if !dropSign {
				sb.WriteString("-")
			}
			continue
		}
		switch v := f.(type) {
		case *Add:
			sb.WriteString("(" + f.String() + ")")
		case *Pow, *Rational:
			if last > 0 {
				sb.WriteString("(" + f.String() + ")")
			} else {
				sb.WriteString(f.String())
			}
		case *Symbol:
			sb.WriteString(v.name)
			if i < last && utf8.RuneCountInString(v.name) > 1 {
				sb.WriteString(".")
			}
		default:
			sb.WriteString(f.String())
		}
	}
	return sb.String()
}

func exprChildren(exprs []Expr) []Child {
	out := make([]Child, len(exprs))
	for i, e := range exprs {
		out[i] = ExprArg{e}
	}
	return out
}

func exprsOf(k Kind, c []Child) []Expr {
	out := make([]Expr, len(c))
	for i := range c {
		out[i] = childExpr(k, c, i)
	}
	return out
}

// ============================================================
// Diff
// ============================================================

// Diff is a partial derivative of a target expression.
type Diff struct {
	f    Expr
	vars []VarOrder
}

// DiffOf differentiates f with respect to vars. Orders of a variable that is
// already present accumulate, and differentiating a Diff merges into it.
func DiffOf(f Expr, vars ...VarOrder) Expr {
	var acc []VarOrder
	if d, ok := f.(*Diff); ok {
		f = d.f
		acc = append(acc, d.vars...)
	}
next:
	for _, v := range vars {
		if v.Order <= 0 {
			continue
		}
		for i := range acc {
			if acc[i].Var.name == v.Var.name {
				acc[i].Order += v.Order
				continue next
			}
		}
		acc = append(acc, VarOrder{Var: S(v.Var.name), Order: v.Order})
	}
	if len(acc) == 0 {
		return f
	}
	return &Diff{f: f, vars: acc}
}

func (d *Diff) Target() Expr      { return d.f }
func (d *Diff) Vars() []VarOrder  { return append([]VarOrder(nil), d.vars...) }
func (d *Diff) Kind() Kind        { return KindDiff }
func (d *Diff) Children() []Child { return []Child{ExprArg{d.f}, OrdersArg{d.Vars()}} }
func (d *Diff) Rebuild(c []Child) Expr {
	if len(c) != 2 {
		panic("hecate: rebuild diff: want 2 children")
	}
	orders, ok := c[1].(OrdersArg)
	if !ok {
		panic(fmt.Sprintf("hecate: rebuild diff: child 1 is %T, want OrdersArg", c[1]))
	}
	return DiffOf(childExpr(KindDiff, c, 0), orders.Orders...)
}

// Order is the total differentiation order.
func (d *Diff) Order() int {
	n := 0
	for _, v := range d.vars {
		n += v.Order
	}
	return n
}

func (d *Diff) String() string {
	f := d.f.String()
	if utf8.RuneCountInString(f) > 1 {
		f = "(" + f + ")"
	}
	exponent := ""
	if n := d.Order(); n > 1 {
		exponent = fmt.Sprintf("^%d", n)
	}
	denom := make([]string, len(d.vars))
	for i, v := range d.vars {
		if v.Order == 1 {
			denom[i] = v.Var.name
		} else {
			denom[i] = fmt.Sprintf("%s^%d", v.Var.name, v.Order)
		}
	}
	return "∂" + exponent + f + " / ∂" + strings.Join(denom, ".")
}

func (d *Diff) Signature() string {
	parts := make([]string, len(d.vars))
	for i, v := range d.vars {
		parts[i] = fmt.Sprintf("%s:%d", v.Var.name, v.Order)
	}
	return "Diff(" + d.f.Signature() + ", " + strings.Join(parts, ", ") + ")"
}

func (d *Diff) Clone() Expr { return &Diff{f: d.f.Clone(), vars: d.Vars()} }

// ============================================================
// Func
// ============================================================

// Func is a named function of the problem, such as an unknown field.
type Func struct {
	name string
	args []Expr
}

func NewFunc(name string, args ...Expr) *Func {
	return &Func{name: name, args: append([]Expr(nil), args...)}
}

func (f *Func) Name() string { return f.name }
func (f *Func) Args() []Expr { return append([]Expr(nil), f.args...) }
func (f *Func) Kind() Kind   { return KindFunc }
func (f *Func) Children() []Child {
	return []Child{AtomArg{f.name}, ListArg{f.Args()}}
}
func (f *Func) Rebuild(c []Child) Expr {
	return NewFunc(childAtom(KindFunc, c, 0), childList(KindFunc, c, 1)...)
}
func (f *Func) String() string { return f.name }
func (f *Func) Signature() string {
	if len(f.args) == 0 {
		return "Func(" + f.name + ")"
	}
	return "Func(" + f.name + ", " + signatures(f.args) + ")"
}
func (f *Func) Clone() Expr { return &Func{name: f.name, args: cloneAll(f.args)} }

// Prev is the function at the previous time step.
func (f *Func) Prev() *Func { return NewFunc(f.name+"^n-1", f.args...) }

// Curr is the function at the current time step.
func (f *Func) Curr() *Func { return NewFunc(f.name+"^n", f.args...) }

// TimeDiscretize returns the previous and current time step variants.
func (f *Func) TimeDiscretize() (prev, curr *Func) { return f.Prev(), f.Curr() }

// ToVector returns the finite-element vector form: the base name before the
// first '^' is uppercased.
func (f *Func) ToVector() *Func {
	base, suffix, found := strings.Cut(f.name, "^")
	name := strings.ToUpper(base)
	if found {
		name += "^" + suffix
	}
	return NewFunc(name, f.args...)
}

// Diff differentiates f order times with respect to the variable v.
func (f *Func) Diff(v string, order int) Expr { return DiffOf(f, D(v, order)) }

// ============================================================
// Equation
// ============================================================

type Equation struct{ LHS, RHS Expr }

func Eq(lhs, rhs Expr) *Equation { return &Equation{LHS: lhs, RHS: rhs} }

func (e *Equation) Kind() Kind        { return KindEquation }
func (e *Equation) Children() []Child { return []Child{ExprArg{e.LHS}, ExprArg{e.RHS}} }
func (e *Equation) Rebuild(c []Child) Expr {
	return Eq(childExpr(KindEquation, c, 0), childExpr(KindEquation, c, 1))
}
func (e *Equation) String() string { return e.LHS.String() + " = " + e.RHS.String() }
func (e *Equation) Signature() string {
	return "Eq(" + e.LHS.Signature() + ", " + e.RHS.Signature() + ")"
}
func (e *Equation) Clone() Expr { return Eq(e.LHS.Clone(), e.RHS.Clone()) }

// Sub subtracts x from both sides.
func (e *Equation) Sub(x Expr) *Equation { return Eq(Minus(e.LHS, x), Minus(e.RHS, x)) }

// Divide divides both sides by x.
func (e *Equation) Divide(x Expr) *Equation { return Eq(Div(e.LHS, x), Div(e.RHS, x)) }

// Residual is LHS - RHS.
func (e *Equation) Residual() Expr { return Minus(e.LHS, e.RHS) }

// ============================================================
// Integral
// ============================================================

// Integral is an opaque integrand wrapper; no operator evaluates it.
type Integral struct{ f Expr }

func IntegralOf(f Expr) *Integral { return &Integral{f: f} }

func (i *Integral) Integrand() Expr   { return i.f }
func (i *Integral) Kind() Kind        { return KindIntegral }
func (i *Integral) Children() []Child { return []Child{ExprArg{i.f}} }
func (i *Integral) Rebuild(c []Child) Expr {
	return IntegralOf(childExpr(KindIntegral, c, 0))
}
func (i *Integral) String() string    { return "∫" + wrapCompound(i.f) }
func (i *Integral) Signature() string { return "Integral(" + i.f.Signature() + ")" }
func (i *Integral) Clone() Expr       { return IntegralOf(i.f.Clone()) }

// ============================================================
// Structural helpers
// ============================================================

// Equal reports structural equality.
func Equal(a, b Expr) bool { return a.Signature() == b.Signature() }

// Has reports whether sub occurs anywhere in e, e included.
func Has(e, sub Expr) bool {
	return has(e, sub.Signature())
}

func has(e Expr, sig string) bool {
	if e.Signature() == sig {
		return true
	}
	for _, c := range e.Children() {
		switch c := c.(type) {
		case ExprArg:
			if has(c.Expr, sig) {
				return true
			}
		case ListArg:
			for _, x := range c.Exprs {
				if has(x, sig) {
					return true
				}
			}
		case OrdersArg:
			for _, v := range c.Orders {
				if has(v.Var, sig) {
					return true
				}
			}
		}
	}
	return false
}

// Transform rebuilds e with f applied to each of its expression children.
// A derivative variable is only replaced when f maps it to another Symbol.
func Transform(e Expr, f func(Expr) Expr) Expr {
	children := e.Children()
	out := make([]Child, len(children))
	for i, c := range children {
		switch c := c.(type) {
		case ExprArg:
			out[i] = ExprArg{f(c.Expr)}
		case ListArg:
			exprs := make([]Expr, len(c.Exprs))
			for j, x := range c.Exprs {
				exprs[j] = f(x)
			}
			out[i] = ListArg{exprs}
		case OrdersArg:
			orders := make([]VarOrder, len(c.Orders))
			for j, v := range c.Orders {
				orders[j] = v
				if s, ok := f(v.Var).(*Symbol); ok {
					orders[j].Var = s
				}
			}
			out[i] = OrdersArg{orders}
		default:
			out[i] = c
		}
	}
	return e.Rebuild(out)
}

// IsNumber reports whether e is an Integer or a Rational.
func IsNumber(e Expr) bool {
	switch e.(type) {
	case *Integer, *Rational:
		return true
	}
	return false
}

func IsZero(e Expr) bool   { return isInt(e, 0) }
func IsOne(e Expr) bool    { return isInt(e, 1) }
func IsNegOne(e Expr) bool { return isInt(e, -1) }

func isInt(e Expr, n int64) bool {
	i, ok := e.(*Integer)
	return ok && i.val.IsInt64() && i.val.Int64() == n
}

func ratOf(e Expr) (*big.Rat, bool) {
	switch v := e.(type) {
	case *Integer:
		return new(big.Rat).SetInt(v.val), true
	case *Rational:
		return new(big.Rat).Set(v.val), true
	}
	return nil, false
}
