package dealii

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/njchilds90/hecate/codegen"
	"github.com/njchilds90/hecate/schema"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("dealii").ParseFS(templateFS, "templates/*.tmpl"))

// sourceContext is the fully joined text inserted into main.cpp.
type sourceContext struct {
	Includes     string
	Dimension    int
	MPI          bool
	System       string
	Global       string
	Constructors string
	Setup        string
	Data         string
	MethodDefs   string
	MethodImpls  string
	TimeStart    string
	TimeEnd      string
	TimeStep     string
	MainSetup    string
	Main         string
	Output       string
}

type buildContext struct {
	MPI   bool
	Debug bool
}

// cppLines terminates every line with ';' and prefixes it.
func cppLines(prefix string, lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = prefix + l + ";"
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// indentLines prefixes every non-empty line.
func indentLines(n int, lines []string) string {
	return strings.TrimSpace(indent(strings.Join(lines, "\n"), strings.Repeat(" ", n)))
}

func newSourceContext(u *codegen.Unit) sourceContext {
	b := u.Block
	includes := make([]string, len(b.Includes))
	for i, inc := range b.Includes {
		includes[i] = "#include <" + inc + ">"
	}
	constructors := ""
	if len(b.Constructor) > 0 {
		constructors = ": " + strings.Join(b.Constructor, ", ")
	}
	ctx := sourceContext{
		Includes:     strings.Join(includes, "\n"),
		Dimension:    u.Dimension,
		MPI:          u.Config.MPI,
		Global:       strings.TrimSpace(strings.Join(b.Global, "\n\n\n")),
		Constructors: constructors,
		Setup:        cppLines("    ", b.Setup),
		Data:         cppLines("  ", b.Data),
		MethodDefs:   cppLines("  ", b.MethodDefs),
		MethodImpls:  strings.TrimSpace(strings.Join(b.MethodImpls, "\n")),
		TimeStart:    schema.FormatNumber(u.TimeStart),
		TimeEnd:      schema.FormatNumber(u.TimeEnd),
		TimeStep:     schema.FormatNumber(u.TimeStep),
		MainSetup:    indentLines(2, b.MainSetup),
		Main:         indentLines(4, b.Main),
		Output:       indentLines(2, b.Output),
	}
	if u.Config.Debug {
		ctx.System = u.System
	}
	return ctx
}

// RenderUnit fills the main.cpp and CMakeLists.txt templates.
func RenderUnit(u *codegen.Unit) (source, build string, err error) {
	var src, cmake bytes.Buffer
	if err := templates.ExecuteTemplate(&src, "main.cpp.tmpl", newSourceContext(u)); err != nil {
		return "", "", err
	}
	bc := buildContext{MPI: u.Config.MPI, Debug: u.Config.Debug}
	if err := templates.ExecuteTemplate(&cmake, "CMakeLists.txt.tmpl", bc); err != nil {
		return "", "", err
	}
	return src.String(), cmake.String(), nil
}
