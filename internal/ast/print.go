package ast

import (
	"encoding/json"
	"fmt"
)

// Print produces a deterministic JSON representation of an AST node, used
// for golden snapshot testing of the parser and type checker. Positions are
// omitted for every node so golden files don't churn on cosmetic source
// reformatting.
func Print(node Node) string {
	data, err := json.MarshalIndent(simplify(node), "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}

func simplifyStmts(stmts []Stmt) []interface{} {
	out := make([]interface{}, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, simplify(s))
	}
	return out
}

func simplifyExprs(exprs []Expr) []interface{} {
	out := make([]interface{}, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, simplify(e))
	}
	return out
}

func simplify(node interface{}) interface{} {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *Program:
		return map[string]interface{}{
			"type":   "Program",
			"module": n.ModuleName,
			"body":   simplifyStmts(n.Body),
		}
	case *VarDecl:
		return map[string]interface{}{
			"type":  "VarDecl",
			"name":  n.Name,
			"ctype": n.DeclaredType.String(),
			"value": simplify(n.Value),
		}
	case *AssignStmt:
		return map[string]interface{}{"type": "AssignStmt", "target": simplify(n.Target), "value": simplify(n.Value)}
	case *AugAssignStmt:
		return map[string]interface{}{"type": "AugAssignStmt", "target": simplify(n.Target), "op": n.Op, "value": simplify(n.Value)}
	case *ReturnStmt:
		m := map[string]interface{}{"type": "ReturnStmt"}
		if n.Value != nil {
			m["value"] = simplify(n.Value)
		}
		return m
	case *IfStmt:
		m := map[string]interface{}{"type": "IfStmt", "cond": simplify(n.Condition), "then": simplifyStmts(n.Then)}
		if n.Else != nil {
			m["else"] = simplifyStmts(n.Else)
		}
		return m
	case *WhileStmt:
		return map[string]interface{}{"type": "WhileStmt", "cond": simplify(n.Condition), "body": simplifyStmts(n.Body)}
	case *ForStmt:
		return map[string]interface{}{"type": "ForStmt", "var": n.VarName, "iter": simplify(n.Iterable), "body": simplifyStmts(n.Body)}
	case *BreakStmt:
		return map[string]interface{}{"type": "BreakStmt"}
	case *ContinueStmt:
		return map[string]interface{}{"type": "ContinueStmt"}
	case *PassStmt:
		return map[string]interface{}{"type": "PassStmt"}
	case *GlobalStmt:
		return map[string]interface{}{"type": "GlobalStmt", "names": n.Names}
	case *AssertStmt:
		return map[string]interface{}{"type": "AssertStmt", "cond": simplify(n.Condition)}
	case *FunctionDef:
		params := make([]map[string]interface{}, 0, len(n.Params))
		for _, p := range n.Params {
			pm := map[string]interface{}{"name": p.Name, "type": p.Type.String()}
			if p.Default != nil {
				pm["default"] = simplify(p.Default)
			}
			params = append(params, pm)
		}
		ret := "None"
		if n.ReturnType.Name != "" {
			ret = n.ReturnType.String()
		}
		return map[string]interface{}{
			"type":   "FunctionDef",
			"name":   n.Name,
			"params": params,
			"return": ret,
			"body":   simplifyStmts(n.Body),
		}
	case *ClassDef:
		fields := make([]interface{}, 0, len(n.Fields))
		for _, f := range n.Fields {
			fields = append(fields, simplify(f))
		}
		methods := make([]interface{}, 0, len(n.Methods))
		for _, m := range n.Methods {
			methods = append(methods, simplify(m))
		}
		return map[string]interface{}{"type": "ClassDef", "name": n.Name, "base": n.Base, "fields": fields, "methods": methods}
	case *ImportStmt:
		return map[string]interface{}{"type": "ImportStmt", "module": n.Module, "alias": n.Alias}
	case *ImportFromStmt:
		return map[string]interface{}{"type": "ImportFromStmt", "module": n.Module, "wildcard": n.IsWildcard}
	case *ExprStmt:
		return map[string]interface{}{"type": "ExprStmt", "x": simplify(n.X)}
	case *Literal:
		switch n.Kind {
		case LitInt:
			return map[string]interface{}{"type": "Literal", "kind": "int", "value": n.Int}
		case LitFloat:
			return map[string]interface{}{"type": "Literal", "kind": "float", "value": n.Float}
		case LitString:
			return map[string]interface{}{"type": "Literal", "kind": "str", "value": n.Str}
		case LitBool:
			return map[string]interface{}{"type": "Literal", "kind": "bool", "value": n.Bool}
		default:
			return map[string]interface{}{"type": "Literal", "kind": "none"}
		}
	case *Identifier:
		return map[string]interface{}{"type": "Identifier", "name": n.Name}
	case *BinOp:
		return map[string]interface{}{"type": "BinOp", "op": n.Op, "left": simplify(n.Left), "right": simplify(n.Right)}
	case *UnaryOp:
		return map[string]interface{}{"type": "UnaryOp", "op": n.Op, "operand": simplify(n.Operand)}
	case *CallExpr:
		return map[string]interface{}{"type": "CallExpr", "func": simplify(n.Func), "args": simplifyExprs(n.Args)}
	case *AttributeExpr:
		return map[string]interface{}{"type": "AttributeExpr", "obj": simplify(n.Obj), "attr": n.Attr}
	case *IndexExpr:
		return map[string]interface{}{"type": "IndexExpr", "base": simplify(n.Base), "index": simplify(n.Index)}
	case *ListExpr:
		return map[string]interface{}{"type": "ListExpr", "elements": simplifyExprs(n.Elements)}
	case *DictExpr:
		pairs := make([]interface{}, 0, len(n.Pairs))
		for _, p := range n.Pairs {
			pairs = append(pairs, map[string]interface{}{"key": simplify(p.Key), "value": simplify(p.Value)})
		}
		return map[string]interface{}{"type": "DictExpr", "pairs": pairs}
	case *FString:
		parts := make([]interface{}, 0, len(n.Parts))
		for _, p := range n.Parts {
			if p.Expr != nil {
				parts = append(parts, map[string]interface{}{"expr": simplify(p.Expr)})
			} else {
				parts = append(parts, map[string]interface{}{"literal": p.Literal})
			}
		}
		return map[string]interface{}{"type": "FString", "parts": parts}
	default:
		return fmt.Sprintf("<unprintable %T>", node)
	}
}
