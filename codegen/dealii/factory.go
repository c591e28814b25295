// Package dealii is the deal.II backend of the code generator. It renders
// expressions as C++, lowers the equations of a transformed system into
// vector and matrix statements, and emits the building blocks of a deal.II
// simulation.
package dealii

import (
	"fmt"
	"strings"

	"github.com/njchilds90/hecate/codegen"
	"github.com/njchilds90/hecate/schema"
)

// FactoryName is the name of the deal.II factory.
const FactoryName = "deal.II"

// New returns a factory with every deal.II emitter and the source renderer
// installed.
func New() *codegen.Factory {
	f := codegen.NewFactory(FactoryName)
	codegen.Register(f, codegen.MeshKind(schema.HyperCube), codegen.Emitter[schema.Mesh](hyperCube))
	codegen.Register(f, codegen.KindVector, codegen.Emitter[codegen.VectorConfig](vector))
	codegen.Register(f, codegen.KindVectorFromFunction, codegen.Emitter[codegen.VectorFromFunctionConfig](vectorFromFunction))
	codegen.Register(f, codegen.KindDofHandler, codegen.Emitter[codegen.DofHandlerConfig](dofHandler))
	codegen.Register(f, codegen.KindFiniteElement, codegen.Emitter[schema.FiniteElement](finiteElement))
	codegen.Register(f, codegen.KindSparsityPattern, codegen.Emitter[codegen.SparsityPatternConfig](sparsityPattern))
	codegen.Register(f, codegen.KindMatrix, codegen.Emitter[codegen.MatrixConfig](matrix))
	codegen.Register(f, codegen.KindShapeMatrix, codegen.Emitter[codegen.ShapeMatrixConfig](shapeMatrix))
	codegen.Register(f, codegen.KindSolveUnknown, codegen.Emitter[codegen.SolveUnknownConfig](solveUnknown))
	codegen.Register(f, codegen.KindEquationSetup, codegen.Emitter[codegen.EquationSetupConfig](equationSetup))
	codegen.Register(f, codegen.KindParameter, codegen.Emitter[float64](parameter))
	codegen.Register(f, codegen.KindFunction, codegen.Emitter[schema.FunctionDef](function))
	codegen.Register(f, codegen.KindApplyBoundaryCondition, codegen.Emitter[codegen.ApplyBoundaryConditionConfig](applyBoundaryCondition))
	codegen.Register(f, codegen.KindInitialCondition, codegen.Emitter[codegen.InitialConditionConfig](initialCondition))
	codegen.Register(f, codegen.KindAddVectorOutput, codegen.Emitter[string](addVectorOutput))
	f.SetRenderer(RenderUnit)
	f.SetNamer(Cpp)
	return f
}

// ============================================================
// Mesh and finite elements
// ============================================================

func hyperCube(name string, m schema.Mesh) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/grid/grid_generator.h", "deal.II/grid/tria.h")
	b.Data = append(b.Data, "Triangulation<dim> "+name)
	b.Setup = append(b.Setup,
		fmt.Sprintf("GridGenerator::hyper_cube(%s, %s, %s)", name,
			schema.FormatNumber(m.Start), schema.FormatNumber(m.End)),
		fmt.Sprintf("%s.refine_global(%d)", name, m.Subdivisions),
	)
	if m.ShowInfo {
		b.Setup = append(b.Setup, fmt.Sprintf(`std::cout << "Number of active cells: " << %s.n_active_cells() << "\n"`, name))
	}
	return b, nil
}

func finiteElement(name string, e schema.FiniteElement) (*codegen.Block, error) {
	if e.Degree() == 0 {
		return nil, fmt.Errorf("unsupported finite element %q", e)
	}
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/fe/fe_q.h")
	b.Constructor = append(b.Constructor, fmt.Sprintf("%s(%d)", name, e.Degree()))
	b.Data = append(b.Data, "const FE_Q<dim> "+name)
	return b, nil
}

func dofHandler(name string, cfg codegen.DofHandlerConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/dofs/dof_handler.h")
	b.Constructor = append(b.Constructor, name+"("+cfg.Mesh+")")
	b.Data = append(b.Data, "DoFHandler<dim> "+name)
	b.Setup = append(b.Setup,
		name+".distribute_dofs("+cfg.Element+")",
		fmt.Sprintf(`std::cout << "Number of degrees of freedom: " << %s.n_dofs() << "\n\n"`, name),
	)
	return b, nil
}

// ============================================================
// Linear algebra
// ============================================================

func vector(name string, cfg codegen.VectorConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/lac/vector.h")
	b.Data = append(b.Data, "Vector<data_type> "+name)
	b.Setup = append(b.Setup, name+".reinit("+cfg.DofHandler+".n_dofs())")
	return b, nil
}

func sparsityPattern(name string, cfg codegen.SparsityPatternConfig) (*codegen.Block, error) {
	dof := cfg.DofHandler
	dsp := dof + "_dsp"
	b := codegen.NewBlock()
	b.AddIncludes(
		"deal.II/lac/dynamic_sparsity_pattern.h",
		"deal.II/lac/sparsity_pattern.h",
		"deal.II/dofs/dof_tools.h",
	)
	b.Data = append(b.Data, "SparsityPattern "+name)
	b.Setup = append(b.Setup,
		fmt.Sprintf("DynamicSparsityPattern %s(%s.n_dofs(), %s.n_dofs())", dsp, dof, dof),
		fmt.Sprintf("DoFTools::make_sparsity_pattern(%s, %s)", dof, dsp),
		fmt.Sprintf("%s.copy_from(%s)", name, dsp),
	)
	b.AddName(dsp)
	return b, nil
}

func matrix(name string, cfg codegen.MatrixConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/lac/sparse_matrix.h")
	b.Data = append(b.Data, "SparseMatrix<data_type> "+name)
	b.Setup = append(b.Setup, name+".reinit("+cfg.SparsityPattern+")")
	return b, nil
}

func shapeMatrix(name string, cfg codegen.ShapeMatrixConfig) (*codegen.Block, error) {
	b, err := matrix(name, cfg.Matrix)
	if err != nil {
		return nil, err
	}
	b.AddIncludes("deal.II/numerics/matrix_creator.h", "deal.II/base/quadrature_lib.h")
	b.Setup = append(b.Setup, fmt.Sprintf("MatrixCreator::create_%s_matrix(%s, QGauss<dim>(%s.degree + 1), %s)",
		cfg.Kind, cfg.DofHandler, cfg.Element, name))
	return b, nil
}

func solveUnknown(name string, cfg codegen.SolveUnknownConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/lac/solver_cg.h", "deal.II/lac/precondition.h", "deal.II/lac/solver_control.h")
	b.MethodDefs = append(b.MethodDefs, "void "+name+"()")
	b.MethodImpls = append(b.MethodImpls, fmt.Sprintf(`void Sim::%[1]s() {
  SolverControl solver_control(1000, 1e-8 * %[2]s.l2_norm());
  SolverCG<Vector<data_type>> cg(solver_control);

  cg.solve(%[3]s, %[4]s, %[2]s, PreconditionIdentity());

  std::cout << "    %[1]s: " << solver_control.last_step()
            << "  CG iterations." << std::endl;
}`, name, cfg.Rhs, cfg.UnknownMat, cfg.UnknownVec))
	return b, nil
}

// ============================================================
// Time loop
// ============================================================

// parameter declares a named constant, visible to function objects too.
func parameter(name string, value float64) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.Global = append(b.Global, fmt.Sprintf("const data_type %s = %s;", name, schema.FormatNumber(value)))
	return b, nil
}

func applyBoundaryCondition(_ string, cfg codegen.ApplyBoundaryConditionConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/numerics/vector_tools_boundary.h", "deal.II/numerics/matrix_tools.h")
	b.Main = append(b.Main, fmt.Sprintf(`// Apply boundary condition to the equation for solving %[4]s
{
  %[1]s.set_time(time);

  std::map<types::global_dof_index, double> boundary_values;
  VectorTools::interpolate_boundary_values(
      %[2]s, 0, %[1]s, boundary_values);
  MatrixTools::apply_boundary_values(boundary_values, %[3]s, %[4]s,
                                     %[5]s);
}`, cfg.Function, cfg.DofHandler, cfg.Matrix, cfg.Solution, cfg.Rhs))
	return b, nil
}

func initialCondition(_ string, cfg codegen.InitialConditionConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/numerics/vector_tools_project.h")
	unknown := strings.TrimSuffix(cfg.Target, "_prev")
	b.MainSetup = append(b.MainSetup,
		"// Apply Initial Condition for "+unknown,
		fmt.Sprintf("VectorTools::project(%s, constraints, QGauss<dim>(%s.degree + 1),", cfg.DofHandler, cfg.Element),
		fmt.Sprintf("                     %s, %s);", cfg.Function, cfg.Target),
	)
	return b, nil
}

func vectorFromFunction(_ string, cfg codegen.VectorFromFunctionConfig) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/numerics/vector_tools_interpolate.h")
	at := "time"
	switch cfg.Iteration {
	case codegen.Previous:
		at = "time - time_step"
	case codegen.Next:
		at = "time + time_step"
	}
	b.Main = append(b.Main,
		fmt.Sprintf("%s.set_time(%s);", cfg.Function, at),
		fmt.Sprintf("VectorTools::interpolate(%s, %s, %s);", cfg.DofHandler, cfg.Function, cfg.Target),
	)
	return b, nil
}

func addVectorOutput(_ string, v string) (*codegen.Block, error) {
	b := codegen.NewBlock()
	b.Output = append(b.Output, fmt.Sprintf("data_out.add_data_vector(%s, %q);", v, v))
	return b, nil
}
