package dealii

import (
	"fmt"
	"strings"
)

// ============================================================
// Statement IR
// ============================================================

// ResultKind is the algebraic kind of a lowered value.
type ResultKind int

const (
	Scalar ResultKind = iota
	Vector
	Matrix
)

func (k ResultKind) String() string {
	switch k {
	case Vector:
		return "vector"
	case Matrix:
		return "matrix"
	}
	return "scalar"
}

// Stmt is one statement of lowered code. Every statement renders on its own
// line except an inline Scale, which joins the line before it.
type Stmt interface {
	stmt()
	// rename replaces every use of the variable from by to.
	rename(from, to string) Stmt
}

// Comment renders as "// Text".
type Comment struct{ Text string }

// Blank renders as an empty line.
type Blank struct{}

// Assign renders as "Dest = Value;".
type Assign struct{ Dest, Value string }

// CopyFrom renders as "Dest.copy_from(Src);".
type CopyFrom struct{ Dest, Src string }

// Scale renders as "Dest *= Coeff;".
type Scale struct {
	Dest, Coeff string
	Inline      bool
}

// Equ renders as "Dest.equ(Coeff, Src);".
type Equ struct{ Dest, Coeff, Src string }

// Accumulate renders as "Dest += Value;" or "Dest -= Value;".
type Accumulate struct {
	Dest, Value string
	Sub         bool
}

// Term is one coefficient and source pair of an AddScaled.
type Term struct{ Coeff, Src string }

// AddScaled renders as "Dest.add(c1, x1, c2, x2, ...);".
type AddScaled struct {
	Dest  string
	Kind  ResultKind
	Terms []Term
}

// Mult renders as "Matrix.vmult(Dest, Arg);" or, for a matrix product,
// "Matrix.mmult(Dest, Arg);".
type Mult struct {
	Matrix, Dest, Arg string
	MatrixProduct     bool
}

func (Comment) stmt()    {}
func (Blank) stmt()      {}
func (Assign) stmt()     {}
func (CopyFrom) stmt()   {}
func (Scale) stmt()      {}
func (Equ) stmt()        {}
func (Accumulate) stmt() {}
func (AddScaled) stmt()  {}
func (Mult) stmt()       {}

func swap(s, from, to string) string {
	if s == from {
		return to
	}
	return s
}

func (s Comment) rename(from, to string) Stmt {
	return Comment{Text: strings.ReplaceAll(s.Text, from, to)}
}
func (s Blank) rename(string, string) Stmt { return s }
func (s Assign) rename(from, to string) Stmt {
	return Assign{Dest: swap(s.Dest, from, to), Value: swap(s.Value, from, to)}
}
func (s CopyFrom) rename(from, to string) Stmt {
	return CopyFrom{Dest: swap(s.Dest, from, to), Src: swap(s.Src, from, to)}
}
func (s Scale) rename(from, to string) Stmt {
	s.Dest = swap(s.Dest, from, to)
	return s
}
func (s Equ) rename(from, to string) Stmt {
	return Equ{Dest: swap(s.Dest, from, to), Coeff: s.Coeff, Src: swap(s.Src, from, to)}
}
func (s Accumulate) rename(from, to string) Stmt {
	s.Dest, s.Value = swap(s.Dest, from, to), swap(s.Value, from, to)
	return s
}
func (s AddScaled) rename(from, to string) Stmt {
	terms := make([]Term, len(s.Terms))
	for i, t := range s.Terms {
		terms[i] = Term{Coeff: t.Coeff, Src: swap(t.Src, from, to)}
	}
	return AddScaled{Dest: swap(s.Dest, from, to), Kind: s.Kind, Terms: terms}
}
func (s Mult) rename(from, to string) Stmt {
	s.Matrix, s.Dest, s.Arg = swap(s.Matrix, from, to), swap(s.Dest, from, to), swap(s.Arg, from, to)
	return s
}

// Rename replaces the variable from by to in every statement.
func Rename(stmts []Stmt, from, to string) []Stmt {
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = s.rename(from, to)
	}
	return out
}

// writes returns the variable s assigns to, or "".
func writes(s Stmt) string {
	switch s := s.(type) {
	case Assign:
		return s.Dest
	case CopyFrom:
		return s.Dest
	case Scale:
		return s.Dest
	case Equ:
		return s.Dest
	case Accumulate:
		return s.Dest
	case AddScaled:
		return s.Dest
	case Mult:
		return s.Dest
	}
	return ""
}

// reads reports whether s uses the value of v.
func reads(s Stmt, v string) bool {
	switch s := s.(type) {
	case Assign:
		return s.Value == v
	case CopyFrom:
		return s.Src == v
	case Scale:
		return s.Dest == v
	case Equ:
		return s.Src == v
	case Accumulate:
		return s.Dest == v || s.Value == v
	case AddScaled:
		for _, t := range s.Terms {
			if t.Src == v {
				return true
			}
		}
		return s.Dest == v
	case Mult:
		return s.Matrix == v || s.Arg == v
	}
	return false
}

// ============================================================
// Rendering
// ============================================================

func (s Comment) String() string  { return "// " + s.Text }
func (Blank) String() string      { return "" }
func (s Assign) String() string   { return s.Dest + " = " + s.Value + ";" }
func (s CopyFrom) String() string { return s.Dest + ".copy_from(" + s.Src + ");" }
func (s Scale) String() string    { return s.Dest + " *= " + s.Coeff + ";" }
func (s Equ) String() string      { return fmt.Sprintf("%s.equ(%s, %s);", s.Dest, s.Coeff, s.Src) }
func (s Accumulate) String() string {
	if s.Sub {
		return s.Dest + " -= " + s.Value + ";"
	}
	return s.Dest + " += " + s.Value + ";"
}
func (s AddScaled) String() string {
	args := make([]string, 0, 2*len(s.Terms))
	for _, t := range s.Terms {
		args = append(args, t.Coeff, t.Src)
	}
	return s.Dest + ".add(" + strings.Join(args, ", ") + ");"
}
func (s Mult) String() string {
	op := "vmult"
	if s.MatrixProduct {
		op = "mmult"
	}
	return fmt.Sprintf("%s.%s(%s, %s);", s.Matrix, op, s.Dest, s.Arg)
}

// Lines renders stmts one line per statement. Leading and trailing blank
// lines are dropped.
func Lines(stmts []Stmt) []string {
	var lines []string
	for _, s := range stmts {
		text := s.(fmt.Stringer).String()
		if sc, ok := s.(Scale); ok && sc.Inline && len(lines) > 0 {
			lines[len(lines)-1] += " " + text
			continue
		}
		lines = append(lines, text)
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Render joins Lines with newlines.
func Render(stmts []Stmt) string { return strings.Join(Lines(stmts), "\n") }
