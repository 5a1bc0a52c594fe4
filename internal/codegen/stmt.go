package codegen

import (
	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/runtimeabi"
	"github.com/pbedn/pbc/internal/types"
)

// genFunctionDef emits a top-level function definition (its header
// prototype was already written by writeHeader).
func (g *Generator) genFunctionDef(fn *ast.FunctionDef) error {
	g.resetLocals(fn.Params)
	g.body.line("%s {", g.functionSignature(fn, g.qualify(fn.Name), ""))
	g.body.push()
	for _, stmt := range fn.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.body.pop()
	g.body.line("}")
	g.body.blank()
	return nil
}

// resetLocals clears currentLocals and seeds it with a function's own
// parameter names before its body is walked.
func (g *Generator) resetLocals(params []ast.Param) {
	g.currentLocals = make(map[string]bool, len(params))
	for _, p := range params {
		g.currentLocals[p.Name] = true
	}
}

func (g *Generator) genStmt(stmt ast.Stmt) error {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		return g.genVarDecl(n)
	case *ast.AssignStmt:
		return g.genAssignStmt(n)
	case *ast.AugAssignStmt:
		return g.genAugAssignStmt(n)
	case *ast.ReturnStmt:
		return g.genReturnStmt(n)
	case *ast.ExprStmt:
		return g.genExprStmt(n)
	case *ast.PassStmt:
		g.body.line(";  // pass")
		return nil
	case *ast.BreakStmt:
		g.body.line("break;")
		return nil
	case *ast.ContinueStmt:
		g.body.line("continue;")
		return nil
	case *ast.GlobalStmt:
		return nil // the checker already resolved the binding; no C emission needed
	case *ast.IfStmt:
		return g.genIfStmt(n, true)
	case *ast.WhileStmt:
		return g.genWhileStmt(n)
	case *ast.ForStmt:
		return g.genForStmt(n)
	case *ast.AssertStmt:
		return g.genAssertStmt(n)
	case *ast.FunctionDef:
		// Unreachable: the parser rejects nested function definitions
		// (PAR004) before codegen ever sees one.
		return genError(n, "nested function definition reached codegen")
	default:
		return genError(stmt, "unsupported statement %T", stmt)
	}
}

func (g *Generator) genVarDecl(d *ast.VarDecl) error {
	valCode, err := g.genExpr(d.Value)
	if err != nil {
		return err
	}
	g.body.line("%s %s = %s;", g.mapType(d.DeclaredType.String()), d.Name, valCode)
	g.currentLocals[d.Name] = true
	return nil
}

func (g *Generator) genAssignStmt(s *ast.AssignStmt) error {
	target, err := g.genExpr(s.Target)
	if err != nil {
		return err
	}
	value, err := g.genExpr(s.Value)
	if err != nil {
		return err
	}
	g.body.line("%s = %s;", target, value)
	return nil
}

func (g *Generator) genAugAssignStmt(s *ast.AugAssignStmt) error {
	target, err := g.genExpr(s.Target)
	if err != nil {
		return err
	}
	value, err := g.genExpr(s.Value)
	if err != nil {
		return err
	}
	// C has no //=, no %= on double, and no += on pb_string; those forms
	// re-assign through the same lowering the binary operator uses.
	valType := s.Value.Type()
	switch {
	case s.Op == "//" && valType == types.TFloat:
		g.body.line("%s = floor(%s / %s);", target, target, value)
	case s.Op == "//":
		g.body.line("%s /= %s;", target, value)
	case s.Op == "%" && valType == types.TFloat:
		g.body.line("%s = fmod(%s, %s);", target, target, value)
	case s.Op == "+" && valType == types.TStr:
		g.body.line("%s = %s(%s, %s);", target, runtimeabi.FuncStringConcat, target, value)
	default:
		g.body.line("%s %s= %s;", target, s.Op, value)
	}
	return nil
}

func (g *Generator) genReturnStmt(s *ast.ReturnStmt) error {
	if s.Value == nil {
		g.body.line("return;")
		return nil
	}
	value, err := g.genExpr(s.Value)
	if err != nil {
		return err
	}
	g.body.line("return %s;", value)
	return nil
}

func (g *Generator) genExprStmt(s *ast.ExprStmt) error {
	if call, ok := s.X.(*ast.CallExpr); ok {
		if ident, ok := call.Func.(*ast.Identifier); ok && ident.Name == "print" {
			return g.genPrintCall(call)
		}
	}
	code, err := g.genExpr(s.X)
	if err != nil {
		return err
	}
	g.body.line("%s;", code)
	return nil
}

// genPrintCall lowers `print(a, b, ...)`. Each argument is coerced through
// its own pb_print_* overload (space-joined, per spec.md's print semantics);
// multiple arguments become successive calls since pb_runtime has no
// varargs-over-mixed-types print entry point.
func (g *Generator) genPrintCall(call *ast.CallExpr) error {
	for i, arg := range call.Args {
		code, err := g.genExpr(arg)
		if err != nil {
			return err
		}
		fn, ok := g.printFunc(arg.Type())
		if !ok {
			return genError(arg, "no print() overload for type %q", arg.Type())
		}
		if i > 0 {
			g.body.line("pb_print_str(%s(\" \"));", runtimeabi.FuncStringFromLiteral)
		}
		g.body.line("%s(%s);", fn, code)
	}
	g.body.line("pb_print_str(%s(\"\\n\"));", runtimeabi.FuncStringFromLiteral)
	return nil
}

func (g *Generator) printFunc(t string) (string, bool) {
	switch t {
	case types.TInt:
		return runtimeabi.FuncPrintInt, true
	case types.TFloat:
		return runtimeabi.FuncPrintFloat, true
	case types.TBool:
		return runtimeabi.FuncPrintBool, true
	case types.TStr:
		return runtimeabi.FuncPrintString, true
	}
	if types.IsListType(t) {
		return runtimeabi.FuncPrintListPrefix + g.listStructName(types.ListElem(t)), true
	}
	return "", false
}

func (g *Generator) genIfStmt(s *ast.IfStmt, isFirst bool) error {
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	keyword := "if"
	if !isFirst {
		keyword = "else if"
	}
	g.body.line("%s (%s) {", keyword, cond)
	g.body.push()
	for _, stmt := range s.Then {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.body.pop()
	g.body.line("}")

	switch {
	case s.Else == nil:
		return nil
	case len(s.Else) == 1:
		if nested, ok := s.Else[0].(*ast.IfStmt); ok {
			return g.genIfStmt(nested, false)
		}
		fallthrough
	default:
		g.body.line("else {")
		g.body.push()
		for _, stmt := range s.Else {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		g.body.pop()
		g.body.line("}")
	}
	return nil
}

func (g *Generator) genWhileStmt(s *ast.WhileStmt) error {
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	g.body.line("while (%s) {", cond)
	g.body.push()
	for _, stmt := range s.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.body.pop()
	g.body.line("}")
	return nil
}

// genForStmt lowers `for x in iterable: body`. Over a range it emits a
// counted loop driven by the range's start/stop/step; over a list[T] it
// emits an indexed loop that binds the loop variable from .data[i], per
// spec.md §4.5.
func (g *Generator) genForStmt(s *ast.ForStmt) error {
	iterType := s.Iterable.Type()
	iterCode, err := g.genExpr(s.Iterable)
	if err != nil {
		return err
	}

	g.currentLocals[s.VarName] = true

	if iterType == "range" {
		rangeVar := g.newTemp("r_" + s.VarName)
		g.body.line("pb_range %s = %s;", rangeVar, iterCode)
		idx := s.VarName
		g.body.line("for (int64_t %s = %s.start; %s < %s.stop; %s += %s.step) {", idx, rangeVar, idx, rangeVar, idx, rangeVar)
		g.body.push()
		for _, stmt := range s.Body {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		g.body.pop()
		g.body.line("}")
		return nil
	}

	elemCType := g.mapType(s.ElemType)
	listVar := g.newTemp("list_" + s.VarName)
	g.body.line("%s %s = %s;", g.mapType(iterType), listVar, iterCode)
	idxVar := g.newTemp("i_" + s.VarName)
	g.body.line("for (size_t %s = 0; %s < %s.len; %s++) {", idxVar, idxVar, listVar, idxVar)
	g.body.push()
	g.body.line("%s %s = %s.data[%s];", elemCType, s.VarName, listVar, idxVar)
	for _, stmt := range s.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.body.pop()
	g.body.line("}")
	return nil
}

// genAssertStmt lowers `assert cond` to a runtime check that aborts with the
// built-in exception machinery when the condition is false.
func (g *Generator) genAssertStmt(s *ast.AssertStmt) error {
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	g.body.line("if (!(%s)) {", cond)
	g.body.push()
	g.body.line("pb_assert_fail(__FILE__, __LINE__, %s);", cStringLiteral(exprSource(s.Condition)))
	g.body.pop()
	g.body.line("}")
	return nil
}
