package types

import (
	"fmt"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
)

func (c *Checker) checkExpr(e ast.Expr) (string, error) {
	t, err := c.inferExpr(e)
	if err != nil {
		return "", err
	}
	e.SetType(t)
	return t, nil
}

func (c *Checker) inferExpr(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Kind {
		case ast.LitInt:
			return TInt, nil
		case ast.LitFloat:
			return TFloat, nil
		case ast.LitString:
			return TStr, nil
		case ast.LitBool:
			return TBool, nil
		default:
			return TNone, nil
		}
	case *ast.Identifier:
		return c.checkIdentifier(n)
	case *ast.BinOp:
		return c.checkBinOp(n)
	case *ast.UnaryOp:
		return c.checkUnaryOp(n)
	case *ast.IndexExpr:
		return c.checkIndexExpr(n)
	case *ast.CallExpr:
		return c.checkCallExpr(n)
	case *ast.AttributeExpr:
		return c.checkAttributeExpr(n)
	case *ast.ListExpr:
		return c.checkListExpr(n)
	case *ast.DictExpr:
		return c.checkDictExpr(n)
	case *ast.FString:
		return c.checkFString(n)
	}
	return "", fmt.Errorf("typecheck: unhandled expression %T", e)
}

func (c *Checker) checkIdentifier(n *ast.Identifier) (string, error) {
	if t, ok := c.globals.Lookup(n.Name); ok {
		return t, nil
	}
	if t, ok := c.importedVars[n.Name]; ok {
		return t, nil
	}
	return "", c.errAt(errorsx.TC001, "undefined variable: "+n.Name, n.Pos)
}

func (c *Checker) checkBinOp(n *ast.BinOp) (string, error) {
	left, err := c.checkExpr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := c.checkExpr(n.Right)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "+", "-", "*", "/", "%", "//":
		if !c.assignable(left, right) && !c.assignable(right, left) {
			return "", c.errAt(errorsx.TC011, fmt.Sprintf("type mismatch in binary operation: %s %s %s", left, n.Op, right), n.Pos)
		}
		return left, nil
	case "==", "!=", "<", "<=", ">", ">=", "is", "is not", "in":
		if n.Op != "in" && left != right && !c.assignable(left, right) && !c.assignable(right, left) {
			return "", c.errAt(errorsx.TC011, fmt.Sprintf("type mismatch in comparison: %s %s %s", left, n.Op, right), n.Pos)
		}
		return TBool, nil
	case "and", "or":
		if left != TBool || right != TBool {
			return "", c.errAt(errorsx.TC011, "logical operators require 'bool' operands", n.Pos)
		}
		return TBool, nil
	}
	return "", c.errAt(errorsx.TC011, "unknown binary operator: "+n.Op, n.Pos)
}

func (c *Checker) checkUnaryOp(n *ast.UnaryOp) (string, error) {
	t, err := c.checkExpr(n.Operand)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "-":
		if t == TInt || t == TFloat {
			return t, nil
		}
	case "not":
		if t == TBool {
			return TBool, nil
		}
	}
	return "", c.errAt(errorsx.TC012, fmt.Sprintf("invalid unary operator %q for type %q", n.Op, t), n.Pos)
}

func (c *Checker) checkIndexExpr(n *ast.IndexExpr) (string, error) {
	baseType, err := c.checkExpr(n.Base)
	if err != nil {
		return "", err
	}
	idxType, err := c.checkExpr(n.Index)
	if err != nil {
		return "", err
	}
	if !IsListType(baseType) {
		return "", c.errAt(errorsx.TC008, "can only index into a list, got "+baseType, n.Pos)
	}
	if idxType != TInt {
		return "", c.errAt(errorsx.TC008, "list index must be 'int', got "+idxType, n.Pos)
	}
	elem := ListElem(baseType)
	n.ElemType = elem
	return elem, nil
}

func (c *Checker) checkListExpr(n *ast.ListExpr) (string, error) {
	if len(n.Elements) == 0 {
		return "", c.errAt(errorsx.TC007, "cannot infer the type of an empty list literal", n.Pos)
	}
	first, err := c.checkExpr(n.Elements[0])
	if err != nil {
		return "", err
	}
	for _, elem := range n.Elements[1:] {
		t, err := c.checkExpr(elem)
		if err != nil {
			return "", err
		}
		if t != first {
			return "", c.errAt(errorsx.TC007, fmt.Sprintf("all elements of a list literal must share one type, got %s and %s", first, t), n.Pos)
		}
	}
	n.ElemType = first
	return MakeListType(first), nil
}

func (c *Checker) checkDictExpr(n *ast.DictExpr) (string, error) {
	for _, pair := range n.Pairs {
		if _, err := c.checkExpr(pair.Key); err != nil {
			return "", err
		}
		if _, err := c.checkExpr(pair.Value); err != nil {
			return "", err
		}
	}
	return TDict, nil
}

func (c *Checker) checkFString(n *ast.FString) (string, error) {
	for _, part := range n.Parts {
		if part.Expr == nil {
			continue
		}
		if _, err := c.checkExpr(part.Expr); err != nil {
			return "", err
		}
	}
	return TStr, nil
}

func (c *Checker) checkAttributeExpr(n *ast.AttributeExpr) (string, error) {
	if ident, ok := n.Obj.(*ast.Identifier); ok {
		if mod, ok := c.modules[ident.Name]; ok {
			kind, ok := mod.Exports[n.Attr]
			if !ok {
				return "", c.errAt(errorsx.TC014, fmt.Sprintf("module %q has no export %q", ident.Name, n.Attr), n.Pos)
			}
			if kind == "function" {
				return "function", nil
			}
			return kind, nil
		}
		// ClassName.field / ClassName.method referenced on the class itself
		// rather than an instance (e.g. Player.species).
		if _, isLocalVar := c.globals.Lookup(ident.Name); !isLocalVar {
			if cls, ok := c.lookupClass(ident.Name); ok {
				for cur := cls; cur != nil; {
					if t, ok := cur.Fields[n.Attr]; ok {
						n.IsClassRef = true
						return t, nil
					}
					if _, ok := cur.Methods[n.Attr]; ok {
						n.IsClassRef = true
						return "function", nil
					}
					if cur.Base == "" {
						break
					}
					cur, ok = c.lookupClass(cur.Base)
					if !ok {
						break
					}
				}
				return "", c.errAt(errorsx.TC014, fmt.Sprintf("class %q has no attribute %q", ident.Name, n.Attr), n.Pos)
			}
		}
	}
	objType, err := c.checkExpr(n.Obj)
	if err != nil {
		return "", err
	}
	cls, ok := c.lookupClass(objType)
	if !ok {
		return "", c.errAt(errorsx.TC014, "unknown class: "+objType, n.Pos)
	}
	for cur := cls; cur != nil; {
		if t, ok := cur.Fields[n.Attr]; ok {
			return t, nil
		}
		if _, ok := cur.Methods[n.Attr]; ok {
			return "function", nil
		}
		if cur.Base == "" {
			break
		}
		cur, ok = c.lookupClass(cur.Base)
		if !ok {
			break
		}
	}
	return "", c.errAt(errorsx.TC014, fmt.Sprintf("class %q has no attribute %q", objType, n.Attr), n.Pos)
}

// builtinFuncs is the fixed built-in function table from spec.md §4.3: len,
// int, float, bool, str, open. print and range are handled separately, since
// print accepts any arguments and range takes 1 or 2.
var builtinFuncs = map[string]*FuncInfo{
	"len":   {Name: "len", ParamNames: []string{"x"}, ParamTypes: []string{TStr}, HasDefault: []bool{false}, ReturnType: TInt},
	"int":   {Name: "int", ParamNames: []string{"x"}, ParamTypes: []string{TStr}, HasDefault: []bool{false}, ReturnType: TInt},
	"float": {Name: "float", ParamNames: []string{"x"}, ParamTypes: []string{TStr}, HasDefault: []bool{false}, ReturnType: TFloat},
	"bool":  {Name: "bool", ParamNames: []string{"x"}, ParamTypes: []string{TStr}, HasDefault: []bool{false}, ReturnType: TBool},
	"str":   {Name: "str", ParamNames: []string{"x"}, ParamTypes: []string{TStr}, HasDefault: []bool{false}, ReturnType: TStr},
	"open":  {Name: "open", ParamNames: []string{"path", "mode"}, ParamTypes: []string{TStr, TStr}, HasDefault: []bool{false, true}, ReturnType: TFile},
}

func (c *Checker) checkCallExpr(n *ast.CallExpr) (string, error) {
	switch fn := n.Func.(type) {
	case *ast.Identifier:
		return c.checkCallByName(fn.Name, n)
	case *ast.AttributeExpr:
		return c.checkMethodOrModuleCall(fn, n)
	}
	return "", c.errAt(errorsx.TC002, "function calls must use an identifier or attribute as the callee", n.Pos)
}

func (c *Checker) checkCallByName(name string, n *ast.CallExpr) (string, error) {
	if name == "print" {
		for _, arg := range n.Args {
			if _, err := c.checkExpr(arg); err != nil {
				return "", err
			}
		}
		return TVoid, nil
	}
	if name == "range" {
		if len(n.Args) < 1 || len(n.Args) > 2 {
			return "", c.errAt(errorsx.TC003, "range() takes 1 or 2 arguments", n.Pos)
		}
		for _, arg := range n.Args {
			t, err := c.checkExpr(arg)
			if err != nil {
				return "", err
			}
			if t != TInt {
				return "", c.errAt(errorsx.TC004, "range() arguments must be 'int'", n.Pos)
			}
		}
		return TRange, nil
	}
	if fn, ok := builtinFuncs[name]; ok {
		if len(n.Args) < fn.RequiredArgCount() || len(n.Args) > len(fn.ParamTypes) {
			return "", c.errAt(errorsx.TC003, fmt.Sprintf("%s() expects between %d and %d arguments, got %d", name, fn.RequiredArgCount(), len(fn.ParamTypes), len(n.Args)), n.Pos)
		}
		for _, arg := range n.Args {
			if _, err := c.checkExpr(arg); err != nil {
				return "", err
			}
		}
		return fn.ReturnType, nil
	}
	if cls, ok := c.lookupClass(name); ok {
		return c.checkConstructorCall(cls, n)
	}
	fn, ok := c.functions[name]
	if !ok {
		fn, ok = c.importedFuncs[name]
	}
	if !ok {
		return "", c.errAt(errorsx.TC002, "undefined function: "+name, n.Pos)
	}
	return c.checkArgsAgainst(fn, n)
}

func (c *Checker) checkConstructorCall(cls *ClassInfo, n *ast.CallExpr) (string, error) {
	init, hasInit := cls.Methods["__init__"]
	if !hasInit {
		if len(n.Args) > 0 {
			return "", c.errAt(errorsx.TC003, fmt.Sprintf("constructor %s takes no arguments, got %d", cls.Name, len(n.Args)), n.Pos)
		}
		return cls.Name, nil
	}
	if _, err := c.checkMethodArgs(init, n); err != nil {
		return "", err
	}
	return cls.Name, nil
}

func (c *Checker) checkArgsAgainst(fn *FuncInfo, n *ast.CallExpr) (string, error) {
	if len(n.Args) > len(fn.ParamTypes) || len(n.Args) < fn.RequiredArgCount() {
		return "", c.errAt(errorsx.TC003, fmt.Sprintf("call to %s expects between %d and %d arguments, got %d", fn.Name, fn.RequiredArgCount(), len(fn.ParamTypes), len(n.Args)), n.Pos)
	}
	for i, arg := range n.Args {
		argType, err := c.checkExpr(arg)
		if err != nil {
			return "", err
		}
		if !c.assignable(fn.ParamTypes[i], argType) {
			return "", c.errAt(errorsx.TC004, fmt.Sprintf("argument %d to %s: expected %q, got %q", i+1, fn.Name, fn.ParamTypes[i], argType), n.Pos)
		}
	}
	return fn.ReturnType, nil
}

// checkMethodOrModuleCall handles `obj.method(...)`, `module.func(...)`, and
// unbound base-class delegation calls like `Base.__init__(self, msg)`.
func (c *Checker) checkMethodOrModuleCall(attr *ast.AttributeExpr, n *ast.CallExpr) (string, error) {
	if ident, ok := attr.Obj.(*ast.Identifier); ok {
		if mod, ok := c.modules[ident.Name]; ok {
			fn, ok := mod.Functions[attr.Attr]
			if !ok {
				return "", c.errAt(errorsx.TC002, fmt.Sprintf("module %q has no function %q", ident.Name, attr.Attr), n.Pos)
			}
			return c.checkArgsAgainst(fn, n)
		}
		if _, isLocalVar := c.globals.Lookup(ident.Name); !isLocalVar {
			if cls, ok := c.lookupClass(ident.Name); ok {
				fn, ok := cls.Methods[attr.Attr]
				if !ok {
					return "", c.errAt(errorsx.TC014, fmt.Sprintf("class %q has no method %q", ident.Name, attr.Attr), n.Pos)
				}
				attr.IsClassRef = true
				return c.checkArgsAgainst(fn, n)
			}
		}
	}
	objType, err := c.checkExpr(attr.Obj)
	if err != nil {
		return "", err
	}
	cls, ok := c.lookupClass(objType)
	if !ok {
		return "", c.errAt(errorsx.TC014, "unknown class: "+objType, n.Pos)
	}
	for cur := cls; cur != nil; {
		if method, ok := cur.Methods[attr.Attr]; ok {
			return c.checkMethodArgs(method, n)
		}
		if cur.Base == "" {
			break
		}
		cur, ok = c.lookupClass(cur.Base)
		if !ok {
			break
		}
	}
	return "", c.errAt(errorsx.TC014, fmt.Sprintf("class %q has no method %q", objType, attr.Attr), n.Pos)
}

// checkMethodArgs is checkArgsAgainst skipping the implicit self parameter.
func (c *Checker) checkMethodArgs(fn *FuncInfo, n *ast.CallExpr) (string, error) {
	params := fn.ParamTypes
	defaults := fn.HasDefault
	if len(params) > 0 {
		params = params[1:]
		defaults = defaults[1:]
	}
	required := 0
	for _, d := range defaults {
		if !d {
			required++
		}
	}
	if len(n.Args) > len(params) || len(n.Args) < required {
		return "", c.errAt(errorsx.TC003, fmt.Sprintf("call to %s expects between %d and %d arguments, got %d", fn.Name, required, len(params), len(n.Args)), n.Pos)
	}
	for i, arg := range n.Args {
		argType, err := c.checkExpr(arg)
		if err != nil {
			return "", err
		}
		if !c.assignable(params[i], argType) {
			return "", c.errAt(errorsx.TC004, fmt.Sprintf("argument %d to %s: expected %q, got %q", i+1, fn.Name, params[i], argType), n.Pos)
		}
	}
	return fn.ReturnType, nil
}
