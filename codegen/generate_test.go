package codegen_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/njchilds90/hecate/codegen"
	"github.com/njchilds90/hecate/codegen/dealii"
	"github.com/njchilds90/hecate/schema"
)

func loadWave(t *testing.T) *schema.Problem {
	t.Helper()
	p, err := schema.Load("../testdata/wave.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// ============================================================
// End to end
// ============================================================

func TestGenerateWave(t *testing.T) {
	a, err := codegen.Generate(loadWave(t), dealii.New(), codegen.GenConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"const data_type c = 1;",
		"class Fn_g : public Function<dim>",
		"class Fn_dg : public Function<dim>",
		"class Fn_0 : public Function<dim>",
		"void Sim::solve_u()",
		"void Sim::solve_dt_u()",
		"GridGenerator::hyper_cube(mesh, -1, 1);",
		"mesh.refine_global(7);",
		"MatrixCreator::create_mass_matrix(",
		"MatrixCreator::create_laplace_matrix(",
		"// # Setup equation",
		"solve_u();",
		"solve_dt_u();",
		"swap(u, u_prev);",
		"swap(dt_u, dt_u_prev);",
		`data_out.add_data_vector(u, "u");`,
	} {
		if !strings.Contains(a.Source, want) {
			t.Errorf("source: want %q", want)
		}
	}
	if strings.Contains(a.Source, "/* system") {
		t.Error("want no embedded system without debug")
	}
	if strings.Contains(a.Source, "MPI_InitFinalize") {
		t.Error("want no MPI without the flag")
	}
	if !strings.Contains(a.Build, "add_executable(run_sim main.cpp)") {
		t.Errorf("build: want the run_sim target, got\n%s", a.Build)
	}
	if !strings.Contains(a.Build, "set(CMAKE_BUILD_TYPE Release)") {
		t.Errorf("build: want a release build, got\n%s", a.Build)
	}
	if !strings.Contains(a.Schema, "wave") {
		t.Errorf("schema: want the echoed problem, got\n%s", a.Schema)
	}
}

func TestGenerateFlags(t *testing.T) {
	a, err := codegen.Generate(loadWave(t), dealii.New(), codegen.GenConfig{MPI: true, Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Source, "MPI_InitFinalize") {
		t.Error("want MPI initialization")
	}
	if !strings.Contains(a.Build, "MPI::MPI_CXX") || !strings.Contains(a.Build, "Debug") {
		t.Errorf("want an MPI debug build, got\n%s", a.Build)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := codegen.Generate(loadWave(t), dealii.New(), codegen.GenConfig{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := codegen.Generate(loadWave(t), dealii.New(), codegen.GenConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Source != second.Source {
		t.Error("want identical sources for identical input")
	}
}

// ============================================================
// Failures
// ============================================================

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *schema.Problem)
		cfg   codegen.GenConfig
		stage string
		want  error
	}{
		{"missing mesh", func(p *schema.Problem) { p.Solve.Mesh = "disk" }, codegen.GenConfig{},
			codegen.StageValidation, schema.ErrMeshNotFound},
		{"matrix free flag", func(*schema.Problem) {}, codegen.GenConfig{MatrixFree: true},
			codegen.StageValidation, codegen.ErrMatrixFree},
		{"matrix free schema", func(p *schema.Problem) { p.Generation.MatrixFree = true }, codegen.GenConfig{},
			codegen.StageValidation, codegen.ErrMatrixFree},
		{"missing boundary", func(p *schema.Problem) {
			u, _ := p.Unknowns.Get("u")
			u.Boundary = nil
			p.Unknowns.Set("u", u)
		}, codegen.GenConfig{}, codegen.StageBlocks, codegen.ErrMissingBoundary},
		{"missing derivative", func(p *schema.Problem) {
			u, _ := p.Unknowns.Get("u")
			u.Derivative = nil
			p.Unknowns.Set("u", u)
		}, codegen.GenConfig{}, codegen.StageBlocks, codegen.ErrMissingDerivative},
	}
	for _, tt := range tests {
		p := loadWave(t)
		tt.edit(p)
		_, err := codegen.Generate(p, dealii.New(), tt.cfg)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: want %v, got %v", tt.name, tt.want, err)
			continue
		}
		var ge *codegen.GenerateError
		if !errors.As(err, &ge) || ge.Stage != tt.stage {
			t.Errorf("%s: want stage %s, got %v", tt.name, tt.stage, err)
		}
	}
}

func TestGenerateMissingEmitter(t *testing.T) {
	_, err := codegen.Generate(loadWave(t), codegen.NewFactory("empty"), codegen.GenConfig{})
	if !errors.Is(err, codegen.ErrMissingEmitter) {
		t.Errorf("want ErrMissingEmitter, got %v", err)
	}
}

// ============================================================
// Output
// ============================================================

func TestWriteToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	a := &codegen.Artifacts{Source: "int main() {}\n", Build: "project(x)\n", Schema: "a: 1\n"}
	if err := a.WriteToDir(dir); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		codegen.SourceFile: a.Source,
		codegen.BuildFile:  a.Build,
		codegen.SchemaFile: a.Schema,
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s: want %q, got %q", name, want, got)
		}
	}
}

func TestDescribe(t *testing.T) {
	text, err := codegen.Describe(loadWave(t))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(text, "\n"); len(lines) < 2 {
		t.Errorf("want one line per equation of the first order system, got\n%s", text)
	}
	if !strings.Contains(text, "dt_u") {
		t.Errorf("want the time derivative unknown, got\n%s", text)
	}
}
