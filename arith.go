package hecate

import "math/big"

// ============================================================
// Canonical Arithmetic
// ============================================================

// Plus returns the canonical sum a + b. Like terms (equal up to their
// numeric coefficient) are merged in first-seen order and zero terms drop.
// Factor order is part of a term: a·b and b·a are not like terms.
func Plus(a, b Expr) Expr {
	if IsZero(a) {
		return b
	}
	if IsZero(b) {
		return a
	}
	if x, ok := ratOf(a); ok {
		if y, ok := ratOf(b); ok {
			return Rat(x.Add(x, y))
		}
	}
	terms := append(addTerms(a), addTerms(b)...)
	return sumOf(terms)
}

// Minus returns a - b.
func Minus(a, b Expr) Expr { return Plus(a, Neg(b)) }

// Neg returns -e.
func Neg(e Expr) Expr { return Times(N(-1), e) }

// Times returns the canonical product a * b. The numeric coefficient leads,
// and equal bases collect their exponents.
func Times(a, b Expr) Expr {
	if IsZero(a) || IsZero(b) {
		return N(0)
	}
	if IsOne(a) {
		return b
	}
	if IsOne(b) {
		return a
	}
	if x, ok := ratOf(a); ok {
		if y, ok := ratOf(b); ok {
			return Rat(x.Mul(x, y))
		}
	}
	ca, ra := GetCoeff(a)
	cb, rb := GetCoeff(b)
	coeff := ca.Mul(ca, cb)
	if coeff.Sign() == 0 {
		return N(0)
	}
	return productOf(coeff, []Expr{ra, rb})
}

// Div returns a / b as a * b^-1.
func Div(a, b Expr) Expr { return Times(a, PowOf(b, N(-1))) }

// PowOf returns the canonical power base^exp.
func PowOf(base, exp Expr) Expr {
	if IsZero(exp) {
		return N(1)
	}
	if IsOne(exp) {
		return base
	}
	if IsOne(base) {
		return N(1)
	}
	if n, ok := exp.(*Integer); ok {
		if b, ok := ratOf(base); ok {
			if r, ok := ratPow(b, n.val); ok {
				return Rat(r)
			}
		}
		if p, ok := base.(*Pow); ok && IsNumber(p.exp) {
			return PowOf(p.base, Times(p.exp, exp))
		}
	}
	return &Pow{base: base, exp: exp}
}

// AddOf folds terms with Plus.
func AddOf(terms ...Expr) Expr {
	var out Expr = N(0)
	for _, t := range terms {
		out = Plus(out, t)
	}
	return out
}

// MulOf folds factors with Times.
func MulOf(factors ...Expr) Expr {
	var out Expr = N(1)
	for _, f := range factors {
		out = Times(out, f)
	}
	return out
}

// GetCoeff splits e into its numeric coefficient and the remaining factor.
// A number yields (value, 1); a non-product yields (1, e).
func GetCoeff(e Expr) (*big.Rat, Expr) {
	switch v := e.(type) {
	case *Integer, *Rational:
		r, _ := ratOf(e)
		return r, N(1)
	case *Mul:
		coeff := big.NewRat(1, 1)
		var rest []Expr
		for _, op := range v.factors {
			c, r := GetCoeff(op)
			coeff.Mul(coeff, c)
			if !IsOne(r) {
				rest = append(rest, r)
			}
		}
		switch len(rest) {
		case 0:
			return coeff, N(1)
		case 1:
			return coeff, rest[0]
		}
		return coeff, &Mul{factors: rest}
	case *Pow:
		n, ok := v.exp.(*Integer)
		if !ok {
			break
		}
		c, r := GetCoeff(v.base)
		cp, ok := ratPow(c, n.val)
		if !ok {
			break
		}
		return cp, PowOf(r, v.exp)
	}
	return big.NewRat(1, 1), e
}

// Simplify refolds e bottom-up through the canonical constructors.
func Simplify(e Expr) Expr {
	switch v := e.(type) {
	case *Add:
		var out Expr = N(0)
		for _, t := range v.terms {
			out = Plus(out, Simplify(t))
		}
		return out
	case *Mul:
		var out Expr = N(1)
		for _, f := range v.factors {
			out = Times(out, Simplify(f))
		}
		return out
	case *Pow:
		return PowOf(Simplify(v.base), Simplify(v.exp))
	}
	return Transform(e, Simplify)
}

// ============================================================
// Internals
// ============================================================

func addTerms(e Expr) []Expr {
	if s, ok := e.(*Add); ok {
		return s.terms
	}
	return []Expr{e}
}

func mulFactors(e Expr) []Expr {
	if m, ok := e.(*Mul); ok {
		return m.factors
	}
	return []Expr{e}
}

type sumEntry struct {
	coeff *big.Rat
	rest  Expr
}

func sumOf(terms []Expr) Expr {
	var order []string
	entries := make(map[string]*sumEntry, len(terms))
	for _, t := range terms {
		c, rest := GetCoeff(t)
		key := rest.Signature()
		if en, ok := entries[key]; ok {
			en.coeff.Add(en.coeff, c)
			continue
		}
		entries[key] = &sumEntry{coeff: c, rest: rest}
		order = append(order, key)
	}
	out := make([]Expr, 0, len(order))
	for _, key := range order {
		en := entries[key]
		switch {
		case en.coeff.Sign() == 0:
		case IsOne(en.rest):
			out = append(out, Rat(en.coeff))
		case isRatOne(en.coeff):
			out = append(out, en.rest)
		default:
			out = append(out, Times(Rat(en.coeff), en.rest))
		}
	}
	switch len(out) {
	case 0:
		return N(0)
	case 1:
		return out[0]
	}
	return &Add{terms: out}
}

func productOf(coeff *big.Rat, factors []Expr) Expr {
	m := newExponentMap()
	for _, f := range factors {
		if !IsOne(f) {
			m.addFactor(f)
		}
	}
	coeff = new(big.Rat).Mul(coeff, m.coeff)
	if coeff.Sign() == 0 {
		return N(0)
	}
	var out []Expr
	if !isRatOne(coeff) {
		out = append(out, Rat(coeff))
	}
	for _, en := range m.entries {
		switch {
		case IsZero(en.exp):
		case IsOne(en.exp):
			out = append(out, en.base)
		default:
			out = append(out, &Pow{base: en.base, exp: en.exp})
		}
	}
	switch len(out) {
	case 0:
		return Rat(coeff)
	case 1:
		return out[0]
	}
	return &Mul{factors: out}
}

// exponentMap collects factor bases with their summed exponents in
// first-seen order. Numeric factors fold into coeff.
type exponentMap struct {
	coeff   *big.Rat
	index   map[string]int
	entries []exponentEntry
}

type exponentEntry struct {
	base, exp Expr
}

func newExponentMap() *exponentMap {
	return &exponentMap{coeff: big.NewRat(1, 1), index: map[string]int{}}
}

// operandExponents maps the non-numeric operands of e to their exponents.
func operandExponents(e Expr) *exponentMap {
	m := newExponentMap()
	_, rest := GetCoeff(e)
	if !IsOne(rest) {
		m.addFactor(rest)
	}
	return m
}

func (m *exponentMap) add(base, exp Expr) {
	key := base.Signature()
	if i, ok := m.index[key]; ok {
		m.entries[i].exp = Plus(m.entries[i].exp, exp)
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, exponentEntry{base: base, exp: exp})
}

func (m *exponentMap) addFactor(f Expr) {
	if r, ok := ratOf(f); ok {
		m.coeff.Mul(m.coeff, r)
		return
	}
	switch v := f.(type) {
	case *Mul:
		for _, op := range v.factors {
			m.addFactor(op)
		}
	case *Pow:
		if inner, ok := v.base.(*Mul); ok {
			for _, op := range inner.factors {
				m.addFactor(PowOf(op, v.exp))
			}
			return
		}
		m.add(v.base, v.exp)
	default:
		m.add(f, N(1))
	}
}

func (m *exponentMap) get(base Expr) (Expr, bool) {
	i, ok := m.index[base.Signature()]
	if !ok {
		return nil, false
	}
	return m.entries[i].exp, true
}

func isRatOne(r *big.Rat) bool { return r.IsInt() && r.Num().IsInt64() && r.Num().Int64() == 1 }

// maxExactExp bounds the exponents ratPow evaluates; larger powers of a
// number other than 0 or ±1 stay symbolic.
const maxExactExp = 1 << 12

// ratPow raises b to the integer power n. It fails for 0^negative and for
// exponents above maxExactExp in magnitude unless b is ±1.
func ratPow(b *big.Rat, n *big.Int) (*big.Rat, bool) {
	if b.Sign() == 0 {
		if n.Sign() < 0 {
			return nil, false
		}
		return new(big.Rat), true
	}
	if b.IsInt() && b.Num().CmpAbs(big.NewInt(1)) == 0 {
		if n.Bit(0) == 0 {
			return big.NewRat(1, 1), true
		}
		return new(big.Rat).Set(b), true
	}
	if !n.IsInt64() {
		return nil, false
	}
	k := n.Int64()
	if k > maxExactExp || k < -maxExactExp {
		return nil, false
	}
	neg := k < 0
	if neg {
		k = -k
	}
	e := big.NewInt(k)
	num := new(big.Int).Exp(b.Num(), e, nil)
	den := new(big.Int).Exp(b.Denom(), e, nil)
	r := new(big.Rat).SetFrac(num, den)
	if neg {
		r.Inv(r)
	}
	return r, true
}
