package hecate

// ============================================================
// Expand
// ============================================================

// Expand distributes products over sums and positive integer powers of sums.
func Expand(e Expr) Expr {
	switch v := e.(type) {
	case *Equation:
		return Eq(Expand(v.LHS), Expand(v.RHS))
	case *Add:
		var out Expr = N(0)
		for _, t := range v.terms {
			out = Plus(out, Expand(t))
		}
		return out
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Expand(f)
		}
		return expandProduct(factors)
	case *Pow:
		base, exp := Expand(v.base), Expand(v.exp)
		if n, ok := exp.(*Integer); ok && n.val.IsInt64() && n.val.Int64() >= 2 {
			if _, ok := base.(*Add); ok {
				out := base
				for i := int64(1); i < n.val.Int64(); i++ {
					out = expandProduct([]Expr{out, base})
				}
				return out
			}
		}
		if m, ok := base.(*Mul); ok {
			var out Expr = N(1)
			for _, f := range m.factors {
				out = Times(out, PowOf(f, exp))
			}
			return out
		}
		return PowOf(base, exp)
	}
	return Transform(e, Expand)
}

// expandProduct multiplies already expanded factors term by term.
func expandProduct(factors []Expr) Expr {
	products := []Expr{N(1)}
	for _, f := range factors {
		terms := addTerms(f)
		next := make([]Expr, 0, len(products)*len(terms))
		for _, p := range products {
			for _, t := range terms {
				next = append(next, Times(p, t))
			}
		}
		products = next
	}
	return AddOf(products...)
}

// ============================================================
// Factor
// ============================================================

// Factor expands e and groups its terms by the first factor in factors
// that divides them. Coefficients are factored recursively with the same
// list. Numeric factors are ignored.
func Factor(e Expr, factors []Expr) Expr {
	if eq, ok := e.(*Equation); ok {
		return Eq(Factor(eq.LHS, factors), Factor(eq.RHS, factors))
	}
	coeffs := make([]Expr, len(factors))
	var others []Expr
terms:
	for _, t := range addTerms(Expand(e)) {
		for i, f := range factors {
			if IsNumber(f) {
				continue
			}
			if q, ok := factorCoeffNoDiv(t, f); ok {
				if coeffs[i] == nil {
					coeffs[i] = q
				} else {
					coeffs[i] = Plus(coeffs[i], q)
				}
				continue terms
			}
		}
		others = append(others, t)
	}
	var out []Expr
	for i, f := range factors {
		if coeffs[i] == nil || IsZero(coeffs[i]) {
			continue
		}
		out = append(out, Times(Factor(coeffs[i], factors), f))
	}
	out = append(out, others...)
	switch len(out) {
	case 0:
		return N(0)
	case 1:
		return out[0]
	}
	return &Add{terms: out}
}

// factorCoeffNoDiv returns e / f when every operand of f occurs in e with an
// exponent that is not smaller, so the division introduces no new factor.
func factorCoeffNoDiv(e, f Expr) (Expr, bool) {
	if Equal(e, f) {
		return N(1), true
	}
	em := operandExponents(e)
	for _, fe := range operandExponents(f).entries {
		ee, ok := em.get(fe.base)
		if !ok {
			return nil, false
		}
		if Has(ee, fe.exp) {
			continue
		}
		switch Compare(fe.exp, ee) {
		case OrderGreater, OrderUnordered:
			return nil, false
		}
	}
	q := Div(e, f)
	if Equal(q, e) {
		return nil, false
	}
	return q, true
}

// ============================================================
// Subs
// ============================================================

// Pair is one substitution rule.
type Pair struct{ From, To Expr }

// Subs replaces, top-down, every occurrence of a pair's From with its To.
// Pairs are tried in order at each node and the first match wins. A product
// that contains a product pattern as a sub-product is rewritten as well:
// 2·a·b with a·b → c becomes 2·c.
func Subs(e Expr, pairs ...Pair) Expr {
	for _, p := range pairs {
		if Equal(e, p.From) {
			return p.To
		}
		if e.Kind() == KindMul && p.From.Kind() == KindMul {
			if q, ok := factorCoeffNoDiv(e, p.From); ok {
				return replaceFactors(e, q, p)
			}
		}
	}
	return Transform(e, func(c Expr) Expr { return Subs(c, pairs...) })
}

// replaceFactors rebuilds the product e = q·p.From with p.To standing where
// the first factor of p.From stood in e. Factors of e keep their order.
func replaceFactors(e, q Expr, p Pair) Expr {
	baseOf := func(f Expr) string {
		if pw, ok := f.(*Pow); ok {
			return pw.base.Signature()
		}
		return f.Signature()
	}
	matched := make(map[string]bool)
	for _, f := range mulFactors(p.From) {
		matched[baseOf(f)] = true
	}
	position := make(map[string]int)
	first := -1
	for i, f := range mulFactors(e) {
		b := baseOf(f)
		if _, ok := position[b]; !ok {
			position[b] = i
		}
		if first < 0 && matched[b] {
			first = i
		}
	}
	var before, after []Expr
	for _, f := range mulFactors(q) {
		if i, ok := position[baseOf(f)]; IsNumber(f) || (ok && i < first) {
			before = append(before, f)
		} else {
			after = append(after, f)
		}
	}
	factors := append(append(before, p.To), after...)
	return MulOf(factors...)
}

// ============================================================
// Compare
// ============================================================

// Ordering is the result of Compare.
type Ordering int

const (
	OrderLess Ordering = iota
	OrderEqual
	OrderGreater
	OrderUnordered
)

func (o Ordering) String() string {
	switch o {
	case OrderLess:
		return "less"
	case OrderEqual:
		return "equal"
	case OrderGreater:
		return "greater"
	}
	return "unordered"
}

// Compare orders two expressions. Only equal expressions and pairs of
// numbers are ordered.
func Compare(a, b Expr) Ordering {
	if Equal(a, b) {
		return OrderEqual
	}
	x, okx := ratOf(a)
	y, oky := ratOf(b)
	if !okx || !oky {
		return OrderUnordered
	}
	switch x.Cmp(y) {
	case -1:
		return OrderLess
	case 1:
		return OrderGreater
	}
	return OrderEqual
}
