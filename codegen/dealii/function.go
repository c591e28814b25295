package dealii

import (
	"fmt"
	"strings"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/codegen"
	"github.com/njchilds90/hecate/schema"
)

// ============================================================
// Function objects
// ============================================================

// Time and coordinates as seen from inside Function<dim>::value.
var variables = []hecate.Pair{
	{From: hecate.S("t"), To: hecate.S("get_time()")},
	{From: hecate.S("x"), To: hecate.S("point[0]")},
	{From: hecate.S("y"), To: hecate.S("point[1]")},
	{From: hecate.S("z"), To: hecate.S("point[2]")},
}

var varCpp = map[string]string{
	"t": "get_time()",
	"x": "point[0]",
	"y": "point[1]",
	"z": "point[2]",
}

// className turns fn_gauss into Fn_gauss.
func className(name string) string { return "Fn_" + strings.TrimPrefix(name, "fn_") }

// exprCpp renders e with t, x, y and z mapped to the function arguments.
func exprCpp(e hecate.Expr) string {
	return Cpp(hecate.Subs(e, variables...))
}

func condition(variable string, c *schema.Condition) string {
	v := varCpp[variable]
	if c.Range != nil {
		return fmt.Sprintf("%s >= %s && %s <= %s", v,
			schema.FormatNumber(c.Range.Start), v, schema.FormatNumber(c.Range.End))
	}
	return fmt.Sprintf("float_equals(%s, %s)", v, schema.FormatNumber(*c.Value))
}

// FunctionBody renders the statements of Function<dim>::value for def.
// Pieces are tried in order; without an unconditioned piece the function is
// 0 elsewhere.
func FunctionBody(def schema.FunctionDef) string {
	if def.Expr != nil {
		return "return " + exprCpp(def.Expr.Expr) + ";"
	}
	var sb strings.Builder
	for i, piece := range def.Conditioned {
		var conds []string
		for _, c := range []struct {
			name string
			cond *schema.Condition
		}{{"t", piece.T}, {"x", piece.X}, {"y", piece.Y}, {"z", piece.Z}} {
			if c.cond != nil {
				conds = append(conds, condition(c.name, c.cond))
			}
		}
		ret := "  return " + exprCpp(piece.Expr.Expr) + ";\n}"
		if len(conds) == 0 {
			if i == 0 {
				return "return " + exprCpp(piece.Expr.Expr) + ";"
			}
			sb.WriteString(" else {\n" + ret)
			return sb.String()
		}
		if i > 0 {
			sb.WriteString(" else ")
		}
		sb.WriteString("if (" + strings.Join(conds, " && ") + ") {\n" + ret)
	}
	if len(def.Conditioned) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("return 0;")
	return sb.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func function(name string, def schema.FunctionDef) (*codegen.Block, error) {
	class := className(name)
	b := codegen.NewBlock()
	b.AddIncludes("deal.II/base/function.h")
	b.Data = append(b.Data, class+" "+name)
	b.Global = append(b.Global, fmt.Sprintf(`class %s : public Function<dim> {
public:
  virtual double value(const Point<dim> &point,
                       const unsigned int component = 0) const override {
%s
  }
};`, class, indent(FunctionBody(def), "    ")))
	return b, nil
}
