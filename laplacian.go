package hecate

var spatialAxes = []string{"x", "y", "z"}

// SimplifyWithDimension rewrites sums of second-order spatial derivatives
// that cover every axis of a dim-dimensional domain into Δ·f. Terms must
// share the same cofactor and target; ∂²u/∂x² + ∂²u/∂y² becomes Δu for
// dim 2. Expressions without such a group are returned unchanged.
func SimplifyWithDimension(e Expr, dim int) Expr {
	if eq, ok := e.(*Equation); ok {
		return Eq(SimplifyWithDimension(eq.LHS, dim), SimplifyWithDimension(eq.RHS, dim))
	}
	if dim < 1 || dim > len(spatialAxes) {
		return e
	}
	axes := spatialAxes[:dim]
	terms := addTerms(Expand(e))

	type group struct {
		cofactor, target Expr
		seen             map[string]int
	}
	groups := map[string]*group{}
	var order []string
	for i, t := range terms {
		cof, target, axis, ok := splitSecondDerivative(t, axes)
		if !ok {
			continue
		}
		key := cof.Signature() + "|" + target.Signature()
		g, ok := groups[key]
		if !ok {
			g = &group{cofactor: cof, target: target, seen: map[string]int{}}
			groups[key] = g
			order = append(order, key)
		}
		if _, dup := g.seen[axis]; !dup {
			g.seen[axis] = i
		}
	}

	drop := map[int]bool{}
	replace := map[int]Expr{}
	for _, key := range order {
		g := groups[key]
		if len(g.seen) != dim {
			continue
		}
		first := len(terms)
		for _, i := range g.seen {
			drop[i] = true
			if i < first {
				first = i
			}
		}
		replace[first] = Times(g.cofactor, Times(S(LaplacianName), g.target))
	}
	if len(replace) == 0 {
		return e
	}

	var out Expr = N(0)
	for i, t := range terms {
		if r, ok := replace[i]; ok {
			out = Plus(out, r)
			continue
		}
		if !drop[i] {
			out = Plus(out, t)
		}
	}
	return out
}

func splitSecondDerivative(t Expr, axes []string) (cofactor, target Expr, axis string, ok bool) {
	factors := mulFactors(t)
	for i, f := range factors {
		d, isDiff := f.(*Diff)
		if !isDiff || len(d.vars) != 1 || d.vars[0].Order != 2 {
			continue
		}
		name := d.vars[0].Var.name
		for _, a := range axes {
			if a != name {
				continue
			}
			rest := make([]Expr, 0, len(factors)-1)
			rest = append(rest, factors[:i]...)
			rest = append(rest, factors[i+1:]...)
			return MulOf(rest...), d.f, name, true
		}
	}
	return nil, nil, "", false
}
