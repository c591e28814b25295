package dealii

import (
	"strings"

	"github.com/njchilds90/hecate/internal/logger"
)

// ============================================================
// Peephole rewrites over lowered statements
// ============================================================

// addTerm adds coeff * src into dest.
func addTerm(dest, coeff, src string, kind ResultKind) Stmt {
	if coeff == "-1" {
		return Accumulate{Dest: dest, Value: src, Sub: true}
	}
	return AddScaled{Dest: dest, Kind: kind, Terms: []Term{{Coeff: coeff, Src: src}}}
}

// fuseAddend turns the statements computing tmp into statements adding tmp
// to target.
//
//	// tmp = c * x          ->   target.add(c, x);
//	tmp.copy_from(x); tmp *= c;
//
//	tmp.equ(c, x);          ->   target.add(c, x);
func fuseAddend(target, tmp string, sub []Stmt, kind ResultKind) []Stmt {
	n := len(sub)
	if n == 3 {
		_, isComment := sub[0].(Comment)
		if sc, ok := sub[2].(Scale); ok && isComment && sc.Dest == tmp {
			logger.Debug("Peephole: fused scaled temporary into add", "target", target)
			return eliminateTemp([]Stmt{sub[1], addTerm(target, sc.Coeff, tmp, kind)}, tmp)
		}
	}
	if n > 0 {
		if equ, ok := sub[n-1].(Equ); ok && equ.Dest == tmp {
			logger.Debug("Peephole: fused equ into add", "target", target)
			out := append(sub[:n-1:n-1], addTerm(target, equ.Coeff, equ.Src, kind))
			return eliminateTemp(out, tmp)
		}
	}
	out := append(sub[:n:n], Accumulate{Dest: target, Value: tmp})
	return eliminateTemp(out, tmp)
}

// eliminateTemp drops the last plain copy into tmp when tmp is not changed
// afterwards and only the final statement reads it. The copied variable is
// used in its place.
func eliminateTemp(stmts []Stmt, tmp string) []Stmt {
	n := len(stmts)
	if n == 0 || !reads(stmts[n-1], tmp) {
		return stmts
	}
	at, src := -1, ""
	for i := n - 1; i >= 0; i-- {
		switch s := stmts[i].(type) {
		case Assign:
			if s.Dest == tmp {
				at, src = i, s.Value
			}
		case CopyFrom:
			if s.Dest == tmp {
				at, src = i, s.Src
			}
		}
		if at >= 0 {
			break
		}
	}
	if at < 0 || at == n-1 || !isIdent(src) {
		return stmts
	}
	for _, s := range stmts[at+1:] {
		if writes(s) == tmp {
			return stmts
		}
	}
	out := append([]Stmt(nil), stmts[:at]...)
	for _, s := range stmts[at+1:] {
		if _, ok := s.(Comment); ok {
			out = append(out, s)
			continue
		}
		out = append(out, s.rename(tmp, src))
	}
	logger.Debug("Peephole: eliminated temporary", "temporary", tmp, "source", src)
	return out
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// fuseAdds merges two consecutive single term vector adds into target,
// separated only by blank lines, into one two term add:
//
//	// target += A          ->   // target += A + B
//	target.add(a, x);            target.add(a, x, b, y);
//
//	// target += B
//	target.add(b, y);
//
// Matched pairs do not overlap.
func fuseAdds(target string, stmts []Stmt) []Stmt {
	prefix := target + " += "
	single := func(i int) (string, AddScaled, bool) {
		if i+1 >= len(stmts) {
			return "", AddScaled{}, false
		}
		c, ok := stmts[i].(Comment)
		if !ok || !strings.HasPrefix(c.Text, prefix) {
			return "", AddScaled{}, false
		}
		add, ok := stmts[i+1].(AddScaled)
		if !ok || add.Dest != target || add.Kind != Vector || len(add.Terms) != 1 {
			return "", AddScaled{}, false
		}
		return strings.TrimPrefix(c.Text, prefix), add, true
	}

	out := make([]Stmt, 0, len(stmts))
	changes := 0
	for i := 0; i < len(stmts); {
		textA, a, ok := single(i)
		if !ok {
			out = append(out, stmts[i])
			i++
			continue
		}
		j := i + 2
		for j < len(stmts) {
			if _, blank := stmts[j].(Blank); !blank {
				break
			}
			j++
		}
		textB, b, ok := single(j)
		if !ok {
			out = append(out, stmts[i], stmts[i+1])
			i += 2
			continue
		}
		out = append(out,
			Comment{Text: prefix + textA + " + " + textB},
			AddScaled{Dest: target, Kind: Vector, Terms: []Term{a.Terms[0], b.Terms[0]}},
		)
		changes++
		i = j + 2
	}
	if changes > 0 {
		logger.LogOptimization("fuse_adds", changes)
	}
	return out
}
