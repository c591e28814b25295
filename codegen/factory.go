package codegen

import (
	"fmt"
	"strings"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/internal/logger"
)

// ============================================================
// Construct kinds
// ============================================================

const (
	KindMesh                   = "mesh"
	KindFiniteElement          = "finite_element"
	KindDofHandler             = "dof_handler"
	KindSparsityPattern        = "sparsity_pattern"
	KindVector                 = "vector"
	KindVectorFromFunction     = "vector_from_function"
	KindMatrix                 = "matrix"
	KindShapeMatrix            = "shape_matrix"
	KindSolveUnknown           = "solve_unknown"
	KindEquationSetup          = "equation_setup"
	KindApplyBoundaryCondition = "apply_boundary_condition"
	KindInitialCondition       = "initial_condition"
	KindAddVectorOutput        = "add_vector_output"
	KindParameter              = "parameter"
	KindFunction               = "function"
	KindCall                   = "call"
	KindComment                = "comment"
	KindNewline                = "newline"
)

// MeshKind is the construct kind of a mesh of the given type, e.g.
// "mesh/hyper_cube".
func MeshKind(meshType string) string { return KindMesh + "/" + meshType }

// ============================================================
// Factory
// ============================================================

// Emitter builds the block of one construct named name.
type Emitter[C any] func(name string, cfg C) (*Block, error)

// Unit is the assembled program handed to the backend renderer.
type Unit struct {
	Block     *Block
	Dimension int
	TimeStart float64
	TimeEnd   float64
	TimeStep  float64
	Config    GenConfig
	// System is the rendering of the final transformed system.
	System string
}

// Renderer turns a Unit into the source file and the build descriptor.
type Renderer func(u *Unit) (source, build string, err error)

// Namer renders a vector, matrix or scalar expression as a backend
// identifier.
type Namer func(e hecate.Expr) string

// Factory is a named table of emitters keyed by construct kind.
type Factory struct {
	name     string
	emitters map[string]any
	render   Renderer
	namer    Namer
}

// NewFactory returns a factory that already knows how to emit calls,
// comments and blank lines.
func NewFactory(name string) *Factory {
	f := &Factory{name: name, emitters: make(map[string]any)}
	// A call config is the function name followed by its arguments.
	Register[[]string](f, KindCall, func(_ string, call []string) (*Block, error) {
		if len(call) == 0 {
			return nil, fmt.Errorf("%w: call without a function name", ErrEmitterConfig)
		}
		b := NewBlock()
		b.Main = append(b.Main, fmt.Sprintf("%s(%s);", call[0], strings.Join(call[1:], ", ")))
		return b, nil
	})
	Register[string](f, KindComment, func(_ string, text string) (*Block, error) {
		b := NewBlock()
		b.Main = append(b.Main, "// "+text)
		return b, nil
	})
	Register[struct{}](f, KindNewline, func(string, struct{}) (*Block, error) {
		b := NewBlock()
		b.Main = append(b.Main, "")
		return b, nil
	})
	return f
}

func (f *Factory) Name() string { return f.name }

// Has reports whether an emitter is registered for kind.
func (f *Factory) Has(kind string) bool {
	_, ok := f.emitters[kind]
	return ok
}

// SetRenderer installs the backend renderer.
func (f *Factory) SetRenderer(r Renderer) { f.render = r }

// SetNamer installs the backend naming of expressions.
func (f *Factory) SetNamer(n Namer) { f.namer = n }

// NameOf returns the backend identifier of e. Without a namer it is the
// expression text.
func (f *Factory) NameOf(e hecate.Expr) string {
	if f.namer == nil {
		return e.String()
	}
	return f.namer(e)
}

// Render renders u with the backend renderer.
func (f *Factory) Render(u *Unit) (source, build string, err error) {
	if f.render == nil {
		return "", "", &BlockError{Block: "render", Factory: f.name, Err: ErrMissingEmitter}
	}
	return f.render(u)
}

// Register installs e for kind, replacing any previous emitter.
func Register[C any](f *Factory, kind string, e Emitter[C]) {
	f.emitters[kind] = e
}

// Emit runs the emitter registered for kind.
func Emit[C any](f *Factory, kind, name string, cfg C) (*Block, error) {
	raw, ok := f.emitters[kind]
	if !ok {
		return nil, &BlockError{Block: kind, Factory: f.name, Err: ErrMissingEmitter}
	}
	e, ok := raw.(Emitter[C])
	if !ok {
		return nil, &BlockError{Block: name, Factory: f.name,
			Err: fmt.Errorf("%w: %s does not take %T", ErrEmitterConfig, kind, cfg)}
	}
	b, err := e(name, cfg)
	if err != nil {
		return nil, &BlockError{Block: name, Factory: f.name, Err: err}
	}
	logger.LogBlock(kind, name)
	return b, nil
}
