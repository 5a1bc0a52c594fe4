package codegen

import (
	"fmt"
	"strings"

	"github.com/pbedn/pbc/internal/ast"
)

// classSymbol is the C identifier prefix for a class's own symbols
// (constructor, methods, static-field constants): <modulePrefix><ClassName>.
func (g *Generator) classSymbol(className string) string {
	return g.symbolPrefix + className
}

func (g *Generator) constructorName(className string) string {
	return g.classSymbol(className) + "_new"
}

func (g *Generator) methodName(className, method string) string {
	return g.classSymbol(className) + "_" + method
}

func (g *Generator) staticFieldName(className, field string) string {
	return g.classSymbol(className) + "__" + field
}

// writeClassHeader emits the struct layout, the constructor prototype, and
// one method prototype per method declared on cls (including __init__,
// which is a real callable so a derived class's constructor can delegate to
// `Base.__init__(self, ...)`).
func (g *Generator) writeClassHeader(cls *ast.ClassDef) error {
	g.header.line("struct %s {", cls.Name)
	g.header.push()
	if cls.Base != "" {
		g.header.line("struct %s base;", cls.Base)
	}
	for _, f := range cls.Fields {
		g.header.line("%s %s;", g.mapType(f.DeclaredType.String()), f.Name)
	}
	if cls.Base == "" && len(cls.Fields) == 0 {
		g.header.line("char _empty;")
	}
	g.header.pop()
	g.header.line("};")
	g.header.blank()

	ctorParams := g.initParams(cls)
	g.header.line("struct %s *%s(%s);", cls.Name, g.constructorName(cls.Name), ctorParams)

	for _, m := range cls.Methods {
		g.header.line("%s;", g.functionSignature(m, g.methodName(cls.Name, m.Name), cls.Name))
	}
	g.header.blank()
	return nil
}

// initParams renders the constructor's declared-parameter list (everything
// after the implicit self of __init__), or "void" if the class has no
// __init__ (its fields are simply defaulted).
func (g *Generator) initParams(cls *ast.ClassDef) string {
	init := findInit(cls)
	if init == nil || len(init.Params) <= 1 {
		return "void"
	}
	params := make([]string, 0, len(init.Params)-1)
	for _, p := range init.Params[1:] {
		params = append(params, fmt.Sprintf("%s %s", g.mapType(p.Type.String()), p.Name))
	}
	return strings.Join(params, ", ")
}

func (g *Generator) initArgs(cls *ast.ClassDef) string {
	init := findInit(cls)
	if init == nil || len(init.Params) <= 1 {
		return ""
	}
	names := make([]string, 0, len(init.Params)-1)
	for _, p := range init.Params[1:] {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// constExpr reports whether a field default can live in a file-scope
// `static const` initializer. Only numeric and bool literals (optionally
// negated) are C constant expressions; string and list defaults lower to
// runtime constructor calls and must be assigned at object-construction
// time instead.
func constExpr(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Literal:
		return n.Kind == ast.LitInt || n.Kind == ast.LitFloat || n.Kind == ast.LitBool
	case *ast.UnaryOp:
		if n.Op != "-" {
			return false
		}
		lit, ok := n.Operand.(*ast.Literal)
		return ok && (lit.Kind == ast.LitInt || lit.Kind == ast.LitFloat)
	}
	return false
}

// findField resolves the class in this module that actually declares field,
// walking the base chain starting at className.
func (g *Generator) findField(className, field string) (*ast.ClassDef, *ast.VarDecl) {
	for cur, ok := g.classes[className]; ok; cur, ok = g.classes[cur.Base] {
		for _, f := range cur.Fields {
			if f.Name == field {
				return cur, f
			}
		}
		if cur.Base == "" {
			break
		}
	}
	return nil, nil
}

func findMethod(cls *ast.ClassDef, name string) *ast.FunctionDef {
	for _, m := range cls.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func findInit(cls *ast.ClassDef) *ast.FunctionDef {
	return findMethod(cls, "__init__")
}

// genClassDef emits the class's static-field constants, its constructor
// (allocates, default-initializes every field from its static constant or,
// for a string/list default, from the default built inline, then calls
// __init__ if the class declares one), and a top-level C function per
// method, __init__ included.
func (g *Generator) genClassDef(cls *ast.ClassDef) error {
	g.currentLocals = make(map[string]bool) // class/field scope has no locals
	for _, f := range cls.Fields {
		if !constExpr(f.Value) {
			continue
		}
		valCode, err := g.genExpr(f.Value)
		if err != nil {
			return err
		}
		g.body.line("static const %s %s = %s;", g.mapType(f.DeclaredType.String()), g.staticFieldName(cls.Name, f.Name), valCode)
	}

	init := findInit(cls)
	ctorParams := g.initParams(cls)
	g.body.line("struct %s *%s(%s) {", cls.Name, g.constructorName(cls.Name), ctorParams)
	g.body.push()
	g.body.line("struct %s *self = (struct %s *)calloc(1, sizeof(struct %s));", cls.Name, cls.Name, cls.Name)
	// Default-initialize fields declared at every level of the hierarchy;
	// inherited fields live behind one ".base" hop per level. Constant
	// defaults read their static constant; string/list defaults build their
	// runtime value here, the one place a constructor call is legal.
	fieldPath := ""
	for cur, ok := cls, true; ok; {
		for _, f := range cur.Fields {
			if constExpr(f.Value) {
				g.body.line("self->%s%s = %s;", fieldPath, f.Name, g.staticFieldName(cur.Name, f.Name))
				continue
			}
			valCode, err := g.genExpr(f.Value)
			if err != nil {
				return err
			}
			g.body.line("self->%s%s = %s;", fieldPath, f.Name, valCode)
		}
		if cur.Base == "" {
			break
		}
		fieldPath += "base."
		cur, ok = g.classes[cur.Base]
	}
	if init != nil {
		args := "self"
		if a := g.initArgs(cls); a != "" {
			args += ", " + a
		}
		g.body.line("%s(%s);", g.methodName(cls.Name, "__init__"), args)
	}
	g.body.line("return self;")
	g.body.pop()
	g.body.line("}")
	g.body.blank()

	for _, m := range cls.Methods {
		if err := g.genMethodDef(cls, m); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genMethodDef(cls *ast.ClassDef, m *ast.FunctionDef) error {
	g.resetLocals(m.Params)
	g.body.line("%s {", g.functionSignature(m, g.methodName(cls.Name, m.Name), cls.Name))
	g.body.push()
	for _, stmt := range m.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.body.pop()
	g.body.line("}")
	g.body.blank()
	return nil
}
