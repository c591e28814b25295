package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/internal/logger"
	"github.com/njchilds90/hecate/schema"
	"github.com/njchilds90/hecate/system"
)

// ============================================================
// Artifacts
// ============================================================

// Artifacts are the generated files of one problem.
type Artifacts struct {
	Source string
	Build  string
	// Schema echoes the input problem for provenance.
	Schema string
}

// File names used by WriteToDir.
const (
	SourceFile = "main.cpp"
	BuildFile  = "CMakeLists.txt"
	SchemaFile = "schema.hecate.yaml"
)

// WriteToDir writes the artifacts into dir, creating it if needed.
func (a *Artifacts) WriteToDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, f := range []struct{ name, content string }{
		{SourceFile, a.Source},
		{BuildFile, a.Build},
		{SchemaFile, a.Schema},
	} {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		logger.LogGenerated(path, len(f.content))
	}
	return nil
}

// ============================================================
// Generation
// ============================================================

// Block names shared between emitters.
const (
	meshName            = "mesh"
	elementName         = "element"
	dofHandlerName      = "dof_handler"
	sparsityPatternName = "sparsity_pattern"
	rhsName             = "rhs"
)

type generator struct {
	p   *schema.Problem
	f   *Factory
	c   *Collector
	sys *system.System
	// schema unknown of every unknown vector, keyed by signature
	unknownOf map[string]unknownRef
}

type unknownRef struct {
	name       string
	derivative bool
}

// Generate compiles p into deal.II sources using the emitters of f.
func Generate(p *schema.Problem, f *Factory, cfg GenConfig) (*Artifacts, error) {
	fail := func(stage string, err error) (*Artifacts, error) {
		return nil, &GenerateError{Stage: stage, Err: err}
	}

	logger.LogPhase("validation")
	if err := p.Validate(); err != nil {
		return fail(StageValidation, err)
	}
	if cfg.MatrixFree || p.Generation.MatrixFree {
		return fail(StageValidation, ErrMatrixFree)
	}
	cfg.MPI = cfg.MPI || p.Generation.MPI
	scheme, err := schemeOf(p)
	if err != nil {
		return fail(StageValidation, err)
	}

	g := &generator{p: p, f: f, c: NewCollector(f), unknownOf: make(map[string]unknownRef)}
	equations, unknowns, knowns := g.equations()

	logger.LogPhase("pipeline")
	sys, err := system.New(unknowns, knowns, equations...).Pipeline(scheme)
	if err != nil {
		return fail(StagePipeline, err)
	}
	g.sys = sys
	logger.LogPhaseComplete("pipeline", len(sys.Equations))

	logger.LogPhase("blocks")
	if err := g.blocks(equations, knowns); err != nil {
		return fail(StageBlocks, err)
	}
	block, err := g.c.Collect(dofHandlerName, sparsityPatternName)
	if err != nil {
		return fail(StageBlocks, err)
	}
	logger.LogPhaseComplete("blocks", len(sys.Equations))

	logger.LogPhase("template")
	source, build, err := f.Render(&Unit{
		Block:     block,
		Dimension: p.Solve.Dimension,
		TimeStart: p.Solve.Time.Start,
		TimeEnd:   p.Solve.Time.End,
		TimeStep:  p.Solve.TimeStep,
		Config:    cfg,
		System:    sys.String(),
	})
	if err != nil {
		return fail(StageTemplate, err)
	}
	echo, err := p.Echo()
	if err != nil {
		return fail(StageTemplate, err)
	}
	return &Artifacts{Source: source, Build: build, Schema: echo}, nil
}

// schemeOf returns the time scheme of p, Crank-Nicolson by default.
func schemeOf(p *schema.Problem) (system.Scheme, error) {
	if p.Generation.Scheme == "" {
		return system.CrankNicolson, nil
	}
	return system.ParseScheme(p.Generation.Scheme)
}

// equations returns the equations to solve with the Laplacian recognized,
// and the unknowns and known functions that occur in them.
func (g *generator) equations() (eqs []*hecate.Equation, unknowns, knowns []string) {
	for _, name := range g.p.Solve.Equations {
		eq, _ := g.p.Equations.Get(name)
		simplified := hecate.SimplifyWithDimension(eq.Eq, g.p.Solve.Dimension).(*hecate.Equation)
		eqs = append(eqs, simplified)
	}
	occurs := func(name string) bool {
		for _, eq := range eqs {
			if hecate.Has(eq, hecate.S(name)) {
				return true
			}
		}
		return false
	}
	for _, name := range g.p.Unknowns.Keys() {
		if !occurs(name) {
			continue
		}
		unknowns = append(unknowns, name)
		g.unknownOf[hecate.NewFunc(name).Curr().ToVector().Signature()] = unknownRef{name: name}
		g.unknownOf[hecate.NewFunc("dt_"+name).Curr().ToVector().Signature()] = unknownRef{name: name, derivative: true}
	}
	for _, name := range g.p.Functions.Keys() {
		if occurs(name) {
			knowns = append(knowns, name)
		}
	}
	return eqs, unknowns, knowns
}

func (g *generator) blocks(equations []*hecate.Equation, knowns []string) error {
	p, c := g.p, g.c

	if err := p.Parameters.Each(func(name string, v float64) error {
		_, err := Create(c, KindParameter, name, v)
		return err
	}); err != nil {
		return err
	}

	if err := p.Functions.Each(func(name string, def schema.FunctionDef) error {
		used := false
		for _, eq := range equations {
			used = used || hecate.Has(eq, hecate.S(name))
		}
		_ = p.Unknowns.Each(func(_ string, u schema.Unknown) error {
			used = used || u.HasFunction(name)
			return nil
		})
		if !used {
			logger.Warn("Function is never used", "function", name)
			return nil
		}
		_, err := Create(c, KindFunction, "fn_"+name, def)
		return err
	}); err != nil {
		return err
	}

	if err := g.structure(); err != nil {
		return err
	}

	for _, name := range knowns {
		if err := g.knownVectors(name); err != nil {
			return err
		}
	}

	var solved []string
	for i, eq := range g.sys.EqsInSolvingOrder() {
		for _, u := range g.sys.LHSUnknowns(eq) {
			name := g.f.NameOf(u)
			if slices.Contains(solved, name) {
				continue
			}
			solved = append(solved, name)
			if err := g.equation(i, eq, u); err != nil {
				return err
			}
			break
		}
	}

	if _, err := c.Call("output_results"); err != nil {
		return err
	}
	for _, u := range g.sys.Unknowns {
		if _, err := c.AddVectorOutput(g.f.NameOf(u)); err != nil {
			return err
		}
	}
	if _, err := c.Newline(); err != nil {
		return err
	}
	if _, err := c.Comment("Swap new values with previous values for the next step"); err != nil {
		return err
	}
	for _, u := range g.sys.Unknowns {
		name := g.f.NameOf(u)
		if _, err := c.Call("swap", name, name+"_prev"); err != nil {
			return err
		}
	}
	return nil
}

// structure emits the mesh, the finite element space, the vectors and the
// matrices.
func (g *generator) structure() error {
	p, c, f := g.p, g.c, g.f
	mesh, _ := p.Meshes.Get(p.Solve.Mesh)

	steps := []func() (string, error){
		func() (string, error) { return Create(c, MeshKind(mesh.Type), meshName, mesh) },
		func() (string, error) { return Create(c, KindFiniteElement, elementName, p.Solve.Element) },
		func() (string, error) {
			return Create(c, KindDofHandler, dofHandlerName, DofHandlerConfig{Mesh: meshName, Element: elementName})
		},
	}
	for _, v := range g.sys.Vectors() {
		name := f.NameOf(v.Func)
		steps = append(steps, func() (string, error) {
			return Create(c, KindVector, name, VectorConfig{DofHandler: dofHandlerName})
		})
	}
	steps = append(steps,
		func() (string, error) {
			return Create(c, KindSparsityPattern, sparsityPatternName, SparsityPatternConfig{DofHandler: dofHandlerName})
		},
		func() (string, error) { return Create(c, KindVector, rhsName, VectorConfig{DofHandler: dofHandlerName}) },
	)
	for _, u := range g.sys.Unknowns {
		name := f.NameOf(u)
		steps = append(steps,
			func() (string, error) {
				return Create(c, KindMatrix, "matrix_"+name, MatrixConfig{SparsityPattern: sparsityPatternName})
			},
			func() (string, error) {
				return Create(c, KindSolveUnknown, "solve_"+name, SolveUnknownConfig{
					Rhs: rhsName, UnknownVec: name, UnknownMat: "matrix_" + name,
				})
			},
		)
	}
	for _, m := range []struct {
		symbol string
		kind   ShapeMatrixKind
	}{{system.LaplaceMatrix, Laplace}, {system.MassMatrix, Mass}} {
		name := f.NameOf(hecate.S(m.symbol))
		steps = append(steps, func() (string, error) {
			return Create(c, KindShapeMatrix, name, ShapeMatrixConfig{
				DofHandler: dofHandlerName,
				Element:    elementName,
				Matrix:     MatrixConfig{SparsityPattern: sparsityPatternName},
				Kind:       m.kind,
			})
		})
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			return err
		}
	}
	return nil
}

// knownVectors fills the current and previous vectors of a known function
// at every time step.
func (g *generator) knownVectors(name string) error {
	fn := hecate.NewFunc(name)
	for _, v := range []struct {
		vec *hecate.Func
		at  TargetIteration
	}{{fn.Curr().ToVector(), Current}, {fn.Prev().ToVector(), Previous}} {
		target := g.f.NameOf(v.vec)
		if _, err := Create(g.c, KindVectorFromFunction, "interpolate_"+target, VectorFromFunctionConfig{
			Function:   "fn_" + name,
			DofHandler: dofHandlerName,
			Target:     target,
			Iteration:  v.at,
		}); err != nil {
			return err
		}
	}
	return nil
}

// conditions returns the schema conditions of the unknown vector u.
func (g *generator) conditions(u *hecate.Func) (schema.Unknown, error) {
	ref, ok := g.unknownOf[u.Signature()]
	if !ok {
		return schema.Unknown{}, fmt.Errorf("%w: %s", ErrUnknownUnknown, u)
	}
	conf, _ := g.p.Unknowns.Get(ref.name)
	if !ref.derivative {
		return conf, nil
	}
	if conf.Derivative == nil {
		return schema.Unknown{}, fmt.Errorf("%w: %s", ErrMissingDerivative, ref.name)
	}
	return *conf.Derivative, nil
}

// equation emits everything needed to solve eq for u at each time step.
func (g *generator) equation(i int, eq *hecate.Equation, u *hecate.Func) error {
	c, f := g.c, g.f
	name := f.NameOf(u)

	var vectors, matrixes []hecate.Expr
	for _, v := range g.sys.Vectors() {
		vectors = append(vectors, v.Func)
	}
	for _, m := range g.sys.Matrixes() {
		matrixes = append(matrixes, m)
	}
	if _, err := Create(c, KindEquationSetup, fmt.Sprintf("equation_%d", i), EquationSetupConfig{
		Equation: eq, Unknown: u, Vectors: vectors, Matrixes: matrixes,
	}); err != nil {
		return err
	}

	conf, err := g.conditions(u)
	if err != nil {
		return err
	}
	if conf.Boundary == nil {
		return fmt.Errorf("%w: %s", ErrMissingBoundary, name)
	}
	if _, err := Create(c, KindInitialCondition, "initial_condition_"+name, InitialConditionConfig{
		DofHandler: dofHandlerName,
		Function:   conf.Initial.FunctionName(),
		Element:    elementName,
		Target:     name + "_prev",
	}); err != nil {
		return err
	}
	for _, prop := range []schema.Property{conf.Initial, *conf.Boundary} {
		value, ok := prop.Constant()
		if !ok || c.Has(prop.FunctionName()) {
			continue
		}
		expr, err := schema.ParseExpression(value)
		if err != nil {
			return err
		}
		if _, err := Create(c, KindFunction, prop.FunctionName(), schema.ExprFunction(expr)); err != nil {
			return err
		}
	}

	steps := []func() (string, error){
		c.Newline,
		func() (string, error) {
			return Create(c, KindApplyBoundaryCondition, "apply_boundary_condition_"+name, ApplyBoundaryConditionConfig{
				Function:   conf.Boundary.FunctionName(),
				DofHandler: dofHandlerName,
				Matrix:     "matrix_" + name,
				Solution:   name,
				Rhs:        rhsName,
			})
		},
		c.Newline,
		func() (string, error) { return c.Call("solve_" + name) },
		c.Newline,
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders the transformed system of p, one equation per line.
func Describe(p *schema.Problem) (string, error) {
	if err := p.Validate(); err != nil {
		return "", &GenerateError{Stage: StageValidation, Err: err}
	}
	scheme, err := schemeOf(p)
	if err != nil {
		return "", &GenerateError{Stage: StageValidation, Err: err}
	}
	g := &generator{p: p, unknownOf: make(map[string]unknownRef)}
	equations, unknowns, knowns := g.equations()
	sys, err := system.New(unknowns, knowns, equations...).Pipeline(scheme)
	if err != nil {
		return "", &GenerateError{Stage: StagePipeline, Err: err}
	}
	return strings.TrimSpace(sys.String()), nil
}
