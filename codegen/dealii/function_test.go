package dealii_test

import (
	"testing"

	"github.com/njchilds90/hecate/codegen/dealii"
	"github.com/njchilds90/hecate/schema"
)

func functionDef(t *testing.T, yamlDef string) schema.FunctionDef {
	t.Helper()
	p, err := schema.Parse([]byte("functions:\n  g:" + yamlDef))
	if err != nil {
		t.Fatal(err)
	}
	def, _ := p.Functions.Get("g")
	return def
}

func TestFunctionBody(t *testing.T) {
	tests := []struct {
		name string
		def  string
		want string
	}{
		{"expression", ` "t"`, "return get_time();"},
		{"scaled coordinate", ` "2 * x"`, "return 2 * point[0];"},
		{"unconditioned first piece", `
    - expr: "3"`, "return 3;"},
		{"conditioned with fallback", `
    - expr: "1"
      t: "0 .. 0.5"
      x: -1
    - expr: "2"`, "if (get_time() >= 0 && get_time() <= 0.5 && float_equals(point[0], -1)) {\n  return 1;\n} else {\n  return 2;\n}"},
		{"conditioned without fallback", `
    - expr: "1"
      y: 0.25`, "if (float_equals(point[1], 0.25)) {\n  return 1;\n}\nreturn 0;"},
		{"two conditions", `
    - expr: "1"
      z: "0 .. 1"
    - expr: "2"
      z: "1 .. 2"`, "if (point[2] >= 0 && point[2] <= 1) {\n  return 1;\n} else if (point[2] >= 1 && point[2] <= 2) {\n  return 2;\n}\nreturn 0;"},
	}
	for _, tt := range tests {
		if got := dealii.FunctionBody(functionDef(t, tt.def)); got != tt.want {
			t.Errorf("%s: want\n%s\ngot\n%s", tt.name, tt.want, got)
		}
	}
}
