package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/runtimeabi"
	"github.com/pbedn/pbc/internal/types"
)

func (g *Generator) genExpr(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return g.genLiteral(n)
	case *ast.Identifier:
		return g.genIdentifier(n), nil
	case *ast.BinOp:
		return g.genBinOp(n)
	case *ast.UnaryOp:
		return g.genUnaryOp(n)
	case *ast.CallExpr:
		return g.genCallExpr(n)
	case *ast.AttributeExpr:
		return g.genAttributeExpr(n)
	case *ast.IndexExpr:
		return g.genIndexExpr(n)
	case *ast.ListExpr:
		return g.genListExpr(n)
	case *ast.FString:
		return g.genFString(n)
	case *ast.DictExpr:
		return "", genError(n, "dict literals have no runtime representation yet")
	}
	return "", genError(e, "unsupported expression %T", e)
}

func (g *Generator) genLiteral(n *ast.Literal) (string, error) {
	switch n.Kind {
	case ast.LitInt:
		return fmt.Sprintf("%dLL", n.Int), nil
	case ast.LitFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64), nil
	case ast.LitString:
		return fmt.Sprintf("%s(%s)", runtimeabi.FuncStringFromLiteral, cStringLiteral(n.Str)), nil
	case ast.LitBool:
		if n.Bool {
			return "true", nil
		}
		return "false", nil
	default: // LitNone
		return "NULL", nil
	}
}

// genIdentifier resolves a bare name to its C spelling. A local (parameter
// or declared variable) always wins even if the same bare name also names
// one of this module's own globals, matching the lexical shadowing the
// checker's scope chain already enforces. Otherwise: a qualified
// cross-module symbol if it was bound by a direct `from ... import`, this
// module's own qualified global name if it names a top-level VarDecl, or the
// name verbatim (e.g. a class/function name used as a value is never routed
// through genIdentifier).
func (g *Generator) genIdentifier(n *ast.Identifier) string {
	if g.currentLocals[n.Name] {
		return n.Name
	}
	if qualified, ok := g.directBinding[n.Name]; ok {
		return qualified
	}
	if g.globalVars[n.Name] {
		return g.qualify(n.Name)
	}
	return n.Name
}

func (g *Generator) genBinOp(n *ast.BinOp) (string, error) {
	left, err := g.genExpr(n.Left)
	if err != nil {
		return "", err
	}
	right, err := g.genExpr(n.Right)
	if err != nil {
		return "", err
	}
	leftType := n.Left.Type()

	switch n.Op {
	case "is":
		if leftType == types.TStr || types.IsListType(leftType) {
			// Identity for the heap-backed runtime structs compares the
			// backing pointer, not the contents.
			return fmt.Sprintf("(%s.data == %s.data)", left, right), nil
		}
		return fmt.Sprintf("(%s == %s)", left, right), nil
	case "is not":
		if leftType == types.TStr || types.IsListType(leftType) {
			return fmt.Sprintf("(%s.data != %s.data)", left, right), nil
		}
		return fmt.Sprintf("(%s != %s)", left, right), nil
	case "in":
		return g.genContains(n, left, right)
	case "and":
		return fmt.Sprintf("(%s && %s)", left, right), nil
	case "or":
		return fmt.Sprintf("(%s || %s)", left, right), nil
	case "//":
		if leftType == types.TFloat {
			return fmt.Sprintf("floor(%s / %s)", left, right), nil
		}
		return fmt.Sprintf("(%s / %s)", left, right), nil
	case "+":
		if leftType == types.TStr {
			return fmt.Sprintf("%s(%s, %s)", runtimeabi.FuncStringConcat, left, right), nil
		}
		return fmt.Sprintf("(%s + %s)", left, right), nil
	case "%":
		if leftType == types.TFloat {
			return fmt.Sprintf("fmod(%s, %s)", left, right), nil
		}
		return fmt.Sprintf("(%s %% %s)", left, right), nil
	case "==":
		if leftType == types.TStr {
			return fmt.Sprintf("%s(%s, %s)", runtimeabi.FuncStringEq, left, right), nil
		}
		if types.IsListType(leftType) {
			return "", genError(n, "list equality is not supported; compare elements instead")
		}
		return fmt.Sprintf("(%s == %s)", left, right), nil
	case "!=":
		if leftType == types.TStr {
			return fmt.Sprintf("(!%s(%s, %s))", runtimeabi.FuncStringEq, left, right), nil
		}
		if types.IsListType(leftType) {
			return "", genError(n, "list equality is not supported; compare elements instead")
		}
		return fmt.Sprintf("(%s != %s)", left, right), nil
	case "<", "<=", ">", ">=":
		if leftType == types.TStr || types.IsListType(leftType) {
			return "", genError(n, "ordering comparison is not supported for type %q", leftType)
		}
		return fmt.Sprintf("(%s %s %s)", left, n.Op, right), nil
	case "-", "*", "/":
		return fmt.Sprintf("(%s %s %s)", left, n.Op, right), nil
	}
	return "", genError(n, "unsupported binary operator %q", n.Op)
}

// genContains lowers `x in items` for a list[T] right-hand side to a
// per-element-type runtime membership check.
func (g *Generator) genContains(n *ast.BinOp, left, right string) (string, error) {
	rightType := n.Right.Type()
	if !types.IsListType(rightType) {
		return "", genError(n, "'in' is only supported against a list, got %q", rightType)
	}
	listStruct := g.listStructName(types.ListElem(rightType))
	return fmt.Sprintf("%s%s(%s, %s)", listStruct, runtimeabi.FuncListContainsSuffix, right, left), nil
}

func (g *Generator) genUnaryOp(n *ast.UnaryOp) (string, error) {
	operand, err := g.genExpr(n.Operand)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "-":
		return fmt.Sprintf("(-(%s))", operand), nil
	case "not":
		return fmt.Sprintf("(!(%s))", operand), nil
	}
	return "", genError(n, "unsupported unary operator %q", n.Op)
}

func (g *Generator) genIndexExpr(n *ast.IndexExpr) (string, error) {
	base, err := g.genExpr(n.Base)
	if err != nil {
		return "", err
	}
	index, err := g.genExpr(n.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.data[%s]", base, index), nil
}

func (g *Generator) genListExpr(n *ast.ListExpr) (string, error) {
	listStruct := g.listStructName(n.ElemType)
	elems := make([]string, 0, len(n.Elements))
	for _, el := range n.Elements {
		code, err := g.genExpr(el)
		if err != nil {
			return "", err
		}
		elems = append(elems, code)
	}
	args := append([]string{fmt.Sprintf("%d", len(elems))}, elems...)
	return fmt.Sprintf("%s%s(%s)", listStruct, runtimeabi.FuncListNewSuffix, strings.Join(args, ", ")), nil
}

func (g *Generator) genFString(n *ast.FString) (string, error) {
	acc := fmt.Sprintf("%s(%s)", runtimeabi.FuncStringFromLiteral, cStringLiteral(""))
	for _, part := range n.Parts {
		var piece string
		if part.Expr == nil {
			piece = fmt.Sprintf("%s(%s)", runtimeabi.FuncStringFromLiteral, cStringLiteral(part.Literal))
		} else {
			code, err := g.genExpr(part.Expr)
			if err != nil {
				return "", err
			}
			conv, err := g.toStrFunc(part.Expr.Type())
			if err != nil {
				return "", err
			}
			piece = fmt.Sprintf("%s(%s)", conv, code)
		}
		acc = fmt.Sprintf("%s(%s, %s)", runtimeabi.FuncStringConcat, acc, piece)
	}
	return acc, nil
}

// toStrFunc picks the runtime pb_to_str_* coercion for an embedded f-string
// expression's static type.
func (g *Generator) toStrFunc(t string) (string, error) {
	switch t {
	case types.TInt:
		return runtimeabi.FuncToStrInt, nil
	case types.TFloat:
		return runtimeabi.FuncToStrFloat, nil
	case types.TBool:
		return runtimeabi.FuncToStrBool, nil
	case types.TStr:
		return runtimeabi.FuncToStrString, nil
	}
	if types.IsListType(t) {
		listStruct := g.listStructName(types.ListElem(t))
		return runtimeabi.FuncToStrListPrefix + listStruct, nil
	}
	return "", fmt.Errorf("no string coercion for type %q", t)
}

// exprSource reconstructs an approximate PB-syntax rendering of an
// expression for embedding in an assert failure message. It need not
// round-trip exactly; it exists purely for the diagnostic text.
func exprSource(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Kind {
		case ast.LitInt:
			return strconv.FormatInt(n.Int, 10)
		case ast.LitFloat:
			return strconv.FormatFloat(n.Float, 'g', -1, 64)
		case ast.LitString:
			return strconv.Quote(n.Str)
		case ast.LitBool:
			if n.Bool {
				return "True"
			}
			return "False"
		default:
			return "None"
		}
	case *ast.Identifier:
		return n.Name
	case *ast.BinOp:
		return fmt.Sprintf("%s %s %s", exprSource(n.Left), n.Op, exprSource(n.Right))
	case *ast.UnaryOp:
		return fmt.Sprintf("%s %s", n.Op, exprSource(n.Operand))
	case *ast.AttributeExpr:
		return fmt.Sprintf("%s.%s", exprSource(n.Obj), n.Attr)
	case *ast.IndexExpr:
		return fmt.Sprintf("%s[%s]", exprSource(n.Base), exprSource(n.Index))
	case *ast.CallExpr:
		return fmt.Sprintf("%s(...)", exprSource(n.Func))
	default:
		return "<expr>"
	}
}
