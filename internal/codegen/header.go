package codegen

import (
	"fmt"
	"strings"

	"github.com/pbedn/pbc/internal/ast"
)

// writeHeader declares every public function signature and class struct and
// constructor, per spec.md §4.5's module boundary contract.
func (g *Generator) writeHeader(prog *ast.Program, imports []Import) error {
	guard := strings.ToUpper(sanitizeIdent(strings.ReplaceAll(prog.ModuleName, ".", "_"))) + "_H"
	g.header.line("#ifndef %s", guard)
	g.header.line("#define %s", guard)
	g.header.blank()
	g.header.line("#include \"pb_runtime.h\"")
	for _, im := range imports {
		if im.Native {
			continue
		}
		g.header.line("#include \"%s\"", headerFileName(strings.Join(im.ModuleDotted, ".")))
	}
	g.header.blank()

	for _, name := range g.listOrder {
		g.header.line("PB_DECLARE_LIST(%s, %s);", g.listTypes[name], name)
	}
	if len(g.listOrder) > 0 {
		g.header.blank()
	}

	// Forward-declare every class struct before any of them reference each
	// other as field types.
	for _, name := range classNamesInOrder(prog) {
		g.header.line("struct %s;", name)
	}
	if len(g.classes) > 0 {
		g.header.blank()
	}

	for _, name := range classNamesInOrder(prog) {
		cls := g.classes[name]
		if err := g.writeClassHeader(cls); err != nil {
			return err
		}
	}

	for _, stmt := range prog.Body {
		if d, ok := stmt.(*ast.VarDecl); ok {
			g.header.line("extern %s %s;", g.mapType(d.DeclaredType.String()), g.qualify(d.Name))
		}
	}
	g.header.blank()

	for _, stmt := range prog.Body {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			g.header.line("%s;", g.functionSignature(fn, g.qualify(fn.Name), ""))
		}
	}

	g.header.blank()
	g.header.line("#endif /* %s */", guard)
	return nil
}

func classNamesInOrder(prog *ast.Program) []string {
	var names []string
	for _, stmt := range prog.Body {
		if cls, ok := stmt.(*ast.ClassDef); ok {
			names = append(names, cls.Name)
		}
	}
	return names
}

// functionSignature renders a FunctionDef's C signature (no trailing `;` or
// body). cName is the qualified C name to use. receiverClass, when
// non-empty, marks fn as a method: its first declared parameter (`self`,
// whose parsed type is a meaningless placeholder since PB methods never
// write `self`'s type) is emitted as `struct receiverClass *self` instead.
func (g *Generator) functionSignature(fn *ast.FunctionDef, cName string, receiverClass string) string {
	retType := "void"
	if fn.ReturnType.Name != "" {
		retType = g.mapType(fn.ReturnType.String())
	}
	if cName == "main" {
		// The one function left unprefixed by qualify() doubles as C's
		// entry point, whose signature the standard fixes as `int
		// main(void)` regardless of the declared return type's mapped C
		// type.
		retType = "int"
	}
	params := make([]string, 0, len(fn.Params))
	for i, p := range fn.Params {
		if i == 0 && receiverClass != "" {
			params = append(params, fmt.Sprintf("struct %s *%s", receiverClass, p.Name))
			continue
		}
		params = append(params, fmt.Sprintf("%s %s", g.mapType(p.Type.String()), p.Name))
	}
	if len(params) == 0 {
		params = append(params, "void")
	}
	return fmt.Sprintf("%s %s(%s)", retType, cName, strings.Join(params, ", "))
}
