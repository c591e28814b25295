// Package schema reads and validates the YAML description of a PDE problem.
//
// A problem names its meshes, equations, parameters, unknowns and functions,
// and says which of them to solve:
//
//	meshes:
//	  square: {type: hyper_cube, start: 0, end: 1, subdivisions: 5}
//	equations:
//	  wave: "diff(u, t, 2) - c^2 * laplacian * u = f"
//	parameters:
//	  c: 1
//	unknowns:
//	  u: {initial: 0, boundary: 0, derivative: {initial: 0, boundary: 0}}
//	functions:
//	  f: "0"
//	solve:
//	  equations: [wave]
//	  mesh: square
//	  time_step: 0.01
package schema

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/njchilds90/hecate"
)

// ============================================================
// Problem
// ============================================================

type Problem struct {
	Generation Generation              `yaml:"generation"`
	Meshes     OrderedMap[Mesh]        `yaml:"meshes"`
	Equations  OrderedMap[Equation]    `yaml:"equations"`
	Parameters OrderedMap[float64]     `yaml:"parameters"`
	Unknowns   OrderedMap[Unknown]     `yaml:"unknowns"`
	Functions  OrderedMap[FunctionDef] `yaml:"functions"`
	Solve      Solve                   `yaml:"solve"`
}

// Generation holds the generation flags stored in the schema.
type Generation struct {
	MPI        bool   `yaml:"mpi"`
	MatrixFree bool   `yaml:"matrix_free"`
	Scheme     string `yaml:"scheme,omitempty"`
}

// Solve selects what to solve and how.
type Solve struct {
	Equations []string      `yaml:"equations"`
	Mesh      string        `yaml:"mesh"`
	Element   FiniteElement `yaml:"element"`
	Dimension int           `yaml:"dimension"`
	Time      Range         `yaml:"time"`
	TimeStep  float64       `yaml:"time_step"`
}

// Mesh types.
const HyperCube = "hyper_cube"

type Mesh struct {
	Type         string  `yaml:"type"`
	Start        float64 `yaml:"start"`
	End          float64 `yaml:"end"`
	Subdivisions int     `yaml:"subdivisions"`
	ShowInfo     bool    `yaml:"show_info"`
}

func (m *Mesh) UnmarshalYAML(n *yaml.Node) error {
	type plain Mesh
	p := plain{Type: HyperCube, End: 1, Subdivisions: 5}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*m = Mesh(p)
	return nil
}

// FiniteElement is a Lagrange element of degree 1 to 3.
type FiniteElement string

const (
	Q1 FiniteElement = "Q1"
	Q2 FiniteElement = "Q2"
	Q3 FiniteElement = "Q3"
)

// Degree returns the polynomial degree, or 0 for an unknown element.
func (e FiniteElement) Degree() int {
	switch e {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	}
	return 0
}

// ============================================================
// Ranges and conditions
// ============================================================

// Range is a closed interval written "start .. end" or as a mapping.
type Range struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// ParseRange parses "start .. end".
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		return Range{}, fmt.Errorf("invalid range %q: missing '..'", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range start in %q: %w", s, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range end in %q: %w", s, err)
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) String() string { return FormatNumber(r.Start) + " .. " + FormatNumber(r.End) }

func (r *Range) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		parsed, err := ParseRange(n.Value)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	type plain Range
	return n.Decode((*plain)(r))
}

func (r Range) MarshalYAML() (any, error) { return r.String(), nil }

// Condition restricts a function piece to one value or a range.
type Condition struct {
	Value *float64
	Range *Range
}

func (c *Condition) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a value or a range", n.Line)
	}
	if strings.Contains(n.Value, "..") {
		r, err := ParseRange(n.Value)
		if err != nil {
			return err
		}
		c.Range = &r
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(n.Value), 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid condition %q", n.Line, n.Value)
	}
	c.Value = &v
	return nil
}

func (c Condition) MarshalYAML() (any, error) {
	if c.Range != nil {
		return c.Range.String(), nil
	}
	if c.Value != nil {
		return *c.Value, nil
	}
	return nil, nil
}

// FormatNumber renders f the shortest way that parses back to f.
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ============================================================
// Expressions
// ============================================================

// Equation is an equation parsed from its text.
type Equation struct {
	Text string
	Eq   *hecate.Equation
}

func (e *Equation) UnmarshalYAML(n *yaml.Node) error {
	var text string
	if err := n.Decode(&text); err != nil {
		return err
	}
	eq, err := hecate.ParseEquation(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	e.Text, e.Eq = text, eq
	return nil
}

func (e Equation) MarshalYAML() (any, error) { return e.Text, nil }

// Expression is an expression parsed from its text. Available variables are
// t, x, y and z.
type Expression struct {
	Text string
	Expr hecate.Expr
}

// ParseExpression parses text into an Expression.
func ParseExpression(text string) (Expression, error) {
	e, err := hecate.Parse(text)
	if err != nil {
		return Expression{}, err
	}
	return Expression{Text: text, Expr: e}, nil
}

func (e *Expression) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an expression", n.Line)
	}
	parsed, err := ParseExpression(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*e = parsed
	return nil
}

func (e Expression) MarshalYAML() (any, error) { return e.Text, nil }

// ConditionedExpression is one piece of a piecewise function.
type ConditionedExpression struct {
	Expr Expression `yaml:"expr"`
	T    *Condition `yaml:"t,omitempty"`
	X    *Condition `yaml:"x,omitempty"`
	Y    *Condition `yaml:"y,omitempty"`
	Z    *Condition `yaml:"z,omitempty"`
}

// FunctionDef is either a single expression or a list of pieces checked in
// order. A piecewise function without an unconditioned piece is 0 elsewhere.
type FunctionDef struct {
	Expr        *Expression
	Conditioned []ConditionedExpression
}

// ExprFunction returns the definition of a function given by one expression.
func ExprFunction(e Expression) FunctionDef { return FunctionDef{Expr: &e} }

func (f *FunctionDef) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var e Expression
		if err := e.UnmarshalYAML(n); err != nil {
			return err
		}
		f.Expr = &e
		return nil
	case yaml.SequenceNode:
		return n.Decode(&f.Conditioned)
	}
	return fmt.Errorf("line %d: expected a function expression or a conditioned function", n.Line)
}

func (f FunctionDef) MarshalYAML() (any, error) {
	if f.Expr != nil {
		return f.Expr.Text, nil
	}
	return f.Conditioned, nil
}

// ============================================================
// Unknowns
// ============================================================

// Property is an initial or boundary value: an integer, a float or the name
// of a function.
type Property struct {
	Int      *int64
	Float    *float64
	Function string
}

// FunctionName is the name of the generated function object for p.
// Constants get a name of their own, e.g. fn_neg1 or fn_0dot5.
func (p Property) FunctionName() string {
	switch {
	case p.Int != nil:
		return "fn_" + strings.ReplaceAll(strconv.FormatInt(*p.Int, 10), "-", "neg")
	case p.Float != nil:
		s := strings.ReplaceAll(FormatNumber(*p.Float), "-", "neg")
		return "fn_" + strings.ReplaceAll(s, ".", "dot")
	}
	return "fn_" + p.Function
}

// Constant returns the value of a constant property.
func (p Property) Constant() (string, bool) {
	switch {
	case p.Int != nil:
		return strconv.FormatInt(*p.Int, 10), true
	case p.Float != nil:
		return FormatNumber(*p.Float), true
	}
	return "", false
}

func (p *Property) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a constant or a function name", n.Line)
	}
	switch n.ShortTag() {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return err
		}
		p.Int = &i
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		p.Float = &f
	default:
		p.Function = n.Value
	}
	return nil
}

func (p Property) MarshalYAML() (any, error) {
	switch {
	case p.Int != nil:
		return *p.Int, nil
	case p.Float != nil:
		return *p.Float, nil
	}
	return p.Function, nil
}

// Unknown holds the conditions of an unknown. Derivative holds those of its
// time derivative, needed when the unknown is second order in time.
type Unknown struct {
	Initial    Property  `yaml:"initial"`
	Boundary   *Property `yaml:"boundary,omitempty"`
	Derivative *Unknown  `yaml:"derivative,omitempty"`
}

// Properties lists the initial and boundary properties of u and of its
// derivatives.
func (u *Unknown) Properties() []Property {
	props := []Property{u.Initial}
	if u.Boundary != nil {
		props = append(props, *u.Boundary)
	}
	if u.Derivative != nil {
		props = append(props, u.Derivative.Properties()...)
	}
	return props
}

// HasFunction reports whether u or its derivatives refer to function name.
func (u *Unknown) HasFunction(name string) bool {
	for _, p := range u.Properties() {
		if p.Int == nil && p.Float == nil && p.Function == name {
			return true
		}
	}
	return false
}

// ============================================================
// Loading
// ============================================================

// Parse decodes a problem and fills in defaults.
func Parse(data []byte) (*Problem, error) {
	p := &Problem{Solve: Solve{
		Element:   Q2,
		Dimension: 2,
		Time:      Range{Start: 0, End: 5},
	}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("invalid yaml input schema: %w", err)
	}
	return p, nil
}

// Load reads and decodes the problem stored in path.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Echo renders p back to YAML, keeping key order.
func (p *Problem) Echo() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
