// Package codegen lowers a type-checked Program to a C99 translation unit
// and its matching header, per spec.md §4.5. The generator is a pure
// bottom-up AST walker with no state machine: every exported entry point
// takes a *ast.Program (already annotated with types by internal/types) and
// returns text.
package codegen

import (
	"fmt"
	"strings"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
)

// Import describes one resolved import binding the generator needs in order
// to qualify cross-module references. internal/pipeline builds these from
// the same resolution internal/types.Checker already performed (BindModule
// vs BindImportedFunc/Var/Class), so the generator never re-resolves module
// search paths itself.
type Import struct {
	// ModuleDotted is the real dotted module path, e.g. ["test_import", "mathlib2"].
	ModuleDotted []string
	// Alias is the name this binding is referenced by in this module's
	// source: a module alias for IsModuleAlias, or the local (possibly
	// `as`-renamed) symbol name otherwise.
	Alias string
	// IsModuleAlias is true when Alias supports `.Attr` access (plain
	// `import x`, `import x as y`, or a `from` import whose name resolved to
	// a submodule). It is false for a direct function/var/class import.
	IsModuleAlias bool
	// OriginalName is the symbol's name in its defining module, used to
	// build its qualified C name. Only meaningful when !IsModuleAlias.
	OriginalName string
	// Kind distinguishes a direct class import (whose call sites need the
	// "_new" constructor suffix) from a direct function or var import. Only
	// meaningful when !IsModuleAlias. One of "function", "class", "var".
	Kind string
	// Native marks a vendor module with no .c/.h pair of its own; the
	// generator must not #include a generated header for it.
	Native bool
	// Headers is a native module's vendor-metadata #include list, emitted
	// into the importing .c in place of a generated header.
	Headers []string
}

// dottedPrefix turns ["a", "b"] into "a_b".
func dottedPrefix(segs []string) string {
	return strings.Join(segs, "_")
}

// Generator holds the per-Generate working state: the set of classes and
// top-level functions declared in this module (for struct layout, method
// dispatch, and default-argument padding), the module's own C symbol prefix,
// and the list-of-T struct shapes instantiated while walking expressions.
type Generator struct {
	moduleName   string
	symbolPrefix string // "" for the entry module ("main"), else moduleName with dots -> underscores + "_"

	classes    map[string]*ast.ClassDef
	funcs      map[string]*ast.FunctionDef
	globalVars map[string]bool // this module's own top-level VarDecl names

	// currentLocals tracks the parameter and local-variable names visible in
	// whatever function/method body is currently being walked, so
	// genIdentifier can tell a local apart from one of this module's own
	// qualified globals that happens to share its bare name.
	currentLocals map[string]bool

	moduleAliasPrefix map[string]string // import alias -> dotted-module C prefix
	directBinding     map[string]string // imported name -> its qualified C symbol
	directBindingKind map[string]string // imported name -> Import.Kind, so a call site knows to add "_new"

	listTypes map[string]string // C list struct name -> element C type
	listOrder []string

	header *emitter
	body   *emitter

	tempCounter int
}

// New creates a Generator for a module named moduleName (dotted form, e.g.
// "test_import.mathlib2", or "main" for the entry module).
func New(moduleName string) *Generator {
	g := &Generator{
		moduleName:        moduleName,
		classes:           make(map[string]*ast.ClassDef),
		funcs:             make(map[string]*ast.FunctionDef),
		globalVars:        make(map[string]bool),
		currentLocals:     make(map[string]bool),
		moduleAliasPrefix: make(map[string]string),
		directBinding:     make(map[string]string),
		directBindingKind: make(map[string]string),
		listTypes:         make(map[string]string),
	}
	if moduleName != "main" {
		g.symbolPrefix = strings.ReplaceAll(moduleName, ".", "_") + "_"
	}
	return g
}

// qualify returns the C symbol this module emits for one of its own
// top-level names, honoring the "main" function stays bare as the C entry
// point" rule: a zero-parameter function literally named "main" is never
// prefixed, since its signature already matches C's `int main(void)`.
func (g *Generator) qualify(name string) string {
	if name == "main" {
		if fn, ok := g.funcs["main"]; ok && len(fn.Params) == 0 {
			return "main"
		}
	}
	return g.symbolPrefix + name
}

// Generate lowers prog to a (.h, .c) pair.
func (g *Generator) Generate(prog *ast.Program, imports []Import) (headerSrc, cSrc string, err error) {
	g.header = &emitter{}

	for _, im := range imports {
		if im.IsModuleAlias {
			g.moduleAliasPrefix[im.Alias] = dottedPrefix(im.ModuleDotted)
		} else {
			qualified := dottedPrefix(im.ModuleDotted) + "_" + im.OriginalName
			g.directBinding[im.Alias] = qualified
			g.directBindingKind[im.Alias] = im.Kind
		}
	}

	for _, stmt := range prog.Body {
		switch n := stmt.(type) {
		case *ast.ClassDef:
			g.classes[n.Name] = n
		case *ast.FunctionDef:
			g.funcs[n.Name] = n
		case *ast.VarDecl:
			g.globalVars[n.Name] = true
		}
	}

	// Emit bodies first so list-of-T struct usage is discovered before the
	// header (which must declare them) is finalized.
	bodyEm := &emitter{}
	g.body = bodyEm
	for _, stmt := range prog.Body {
		if err := g.genTopLevel(stmt); err != nil {
			return "", "", err
		}
	}

	if err := g.writeHeader(prog, imports); err != nil {
		return "", "", err
	}

	var c strings.Builder
	c.WriteString(fmt.Sprintf("// generated by pbc from %s.pb; do not edit\n", prog.ModuleName))
	c.WriteString(fmt.Sprintf("#include \"%s\"\n", headerFileName(prog.ModuleName)))
	included := map[string]bool{}
	for _, im := range imports {
		if im.Native {
			// A native binding has no generated header; its vendor metadata
			// names the real headers its symbols are declared in.
			for _, h := range im.Headers {
				if !included[h] {
					included[h] = true
					c.WriteString(fmt.Sprintf("#include \"%s\"\n", h))
				}
			}
			continue
		}
		name := headerFileName(strings.Join(im.ModuleDotted, "."))
		if !included[name] {
			included[name] = true
			c.WriteString(fmt.Sprintf("#include \"%s\"\n", name))
		}
	}
	c.WriteString("\n")
	c.WriteString(bodyEm.String())

	return g.header.String(), c.String(), nil
}

func headerFileName(dotted string) string {
	return HeaderFileName(dotted)
}

// HeaderFileName returns the generated header's path for a dotted module
// name, e.g. HeaderFileName("std.math") -> "std/math.h". internal/pipeline
// writes Generate's header output under this name so its own #include
// directives (which use the same convention) resolve.
func HeaderFileName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/") + ".h"
}

// CFileName is HeaderFileName's .c counterpart.
func CFileName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/") + ".c"
}

func (g *Generator) genTopLevel(stmt ast.Stmt) error {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		return g.genGlobalVarDecl(n)
	case *ast.FunctionDef:
		return g.genFunctionDef(n)
	case *ast.ClassDef:
		return g.genClassDef(n)
	case *ast.ImportStmt, *ast.ImportFromStmt:
		return nil // resolved entirely by internal/module + internal/types
	default:
		return errorsx.New("codegen", errorsx.GEN001, fmt.Sprintf("unsupported top-level statement %T", stmt), stmt.Position())
	}
}

func (g *Generator) genGlobalVarDecl(d *ast.VarDecl) error {
	g.currentLocals = make(map[string]bool) // top-level scope has no locals
	cType := g.mapType(d.DeclaredType.String())
	valCode, err := g.genExpr(d.Value)
	if err != nil {
		return err
	}
	g.body.line("%s %s = %s;", cType, g.qualify(d.Name), valCode)
	return nil
}

func genError(n ast.Node, format string, args ...any) error {
	return errorsx.New("codegen", errorsx.GEN001, fmt.Sprintf(format, args...), n.Position())
}

func (g *Generator) newTemp(prefix string) string {
	g.tempCounter++
	return fmt.Sprintf("__%s%d", prefix, g.tempCounter)
}
