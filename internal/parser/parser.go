// Package parser implements the PB recursive-descent parser: tokens from
// internal/lexer become a *ast.Program, per spec.md §4.2.
package parser

import (
	"fmt"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/token"
)

const phase = "parser"

// Parser consumes a token slice and produces a *ast.Program. It reports the
// first error it meets and aborts; there is no resynchronization (spec.md
// §4.2 Error policy).
type Parser struct {
	toks           []token.Token
	pos            int
	inFunctionBody bool
	file           string
}

// New creates a Parser over a complete token stream (must end in EOF). NL
// tokens (bracket continuations, blank and comment-only lines) and COMMENT
// tokens are insignificant to the grammar and dropped up front.
func New(toks []token.Token, file string) *Parser {
	kept := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.NL || t.Kind == token.COMMENT {
			continue
		}
		kept = append(kept, t)
	}
	return &Parser{toks: kept, file: file}
}

func (p *Parser) current() token.Token { return p.toks[p.pos] }

func (p *Parser) peek(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.current().Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) match(kinds ...token.Kind) (token.Token, bool) {
	if p.check(kinds...) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if tok, ok := p.match(kind); ok {
		return tok, nil
	}
	cur := p.current()
	return token.Token{}, p.errAt(errorsx.PAR001,
		fmt.Sprintf("expected %s but got %s %q", kind, cur.Kind, cur.Literal), cur.Pos)
}

func (p *Parser) errAt(code, msg string, pos token.Pos) error {
	return errorsx.New(phase, code, msg, pos)
}

// Parse consumes the entire token stream and returns the resulting Program.
func Parse(toks []token.Token, file string) (*ast.Program, error) {
	p := New(toks, file)
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{FilePath: p.file, Pos: p.current().Pos}
	for !p.check(token.EOF) {
		stmt, err := p.parseGlobalStmt()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

// parseGlobalStmt parses a single top-level statement. Only function defs,
// class defs, imports, and typed variable declarations are permitted at
// module scope (spec.md §4.2 "Top level").
func (p *Parser) parseGlobalStmt() (ast.Stmt, error) {
	cur := p.current()
	switch {
	case p.check(token.DEF):
		p.advance()
		return p.parseFunctionDef(false)
	case p.check(token.CLASS):
		p.advance()
		return p.parseClassDef()
	case p.check(token.IMPORT):
		p.advance()
		return p.parseImport()
	case p.check(token.FROM):
		p.advance()
		return p.parseImportFrom()
	case p.check(token.IDENT) && p.peek(1).Kind == token.COLON:
		return p.parseVarDecl()
	}
	return nil, p.errAt(errorsx.PAR006,
		"only function definitions, class definitions, imports, and typed variable declarations are allowed at module scope", cur.Pos)
}

// parseStmt parses one statement inside a function/method/block body.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	cur := p.current()
	switch {
	case p.check(token.DEF):
		if p.inFunctionBody {
			return nil, p.errAt(errorsx.PAR004, "nested function definitions are not allowed", cur.Pos)
		}
		p.advance()
		return p.parseFunctionDef(false)
	case p.check(token.CLASS):
		p.advance()
		return p.parseClassDef()
	case p.check(token.RETURN):
		return p.parseReturn()
	case p.check(token.GLOBAL):
		return p.parseGlobal()
	case p.check(token.IF):
		p.advance()
		return p.parseIf()
	case p.check(token.WHILE):
		p.advance()
		return p.parseWhile()
	case p.check(token.FOR):
		p.advance()
		return p.parseFor()
	case p.check(token.BREAK):
		p.advance()
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Pos: cur.Pos}, nil
	case p.check(token.CONTINUE):
		p.advance()
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{Pos: cur.Pos}, nil
	case p.check(token.ASSERT):
		return p.parseAssert()
	case p.check(token.PASS):
		p.advance()
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.PassStmt{Pos: cur.Pos}, nil
	case p.check(token.TRY, token.RAISE):
		return nil, p.errAt(errorsx.PAR011, "exception handling is not supported", cur.Pos)
	case p.check(token.IDENT) && p.peek(1).Kind == token.COLON:
		return p.parseVarDecl()
	case p.check(token.IDENT):
		return p.parseExprStmt()
	}
	return nil, p.errAt(errorsx.PAR001, fmt.Sprintf("unexpected token %s in statement position", cur.Kind), cur.Pos)
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.INDENT); err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for !p.check(token.DEDENT) {
		if p.check(token.EOF) {
			return nil, p.errAt(errorsx.PAR009, "unterminated block, expected DEDENT", p.current().Pos)
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	p.advance() // consume DEDENT
	return body, nil
}

func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	nameTok, _ := p.expect(token.IDENT)
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.match(token.ASSIGN); !ok {
		return nil, p.errAt(errorsx.PAR002, "variable declaration must include an initializer", p.current().Pos)
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.VarDecl{Name: nameTok.Literal, DeclaredType: typ, Value: value, Pos: nameTok.Pos}, nil
}

// parseTypeExpr parses a bare type name or a "list[T]" form.
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	if _, ok := p.match(token.NONE); ok {
		return ast.TypeExpr{Name: "None"}, nil
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return ast.TypeExpr{}, err
	}
	if nameTok.Literal == "list" {
		if _, err := p.expect(token.LBRACKET); err != nil {
			return ast.TypeExpr{}, err
		}
		elem, err := p.parseTypeExpr()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Name: "list", Elem: &elem}, nil
	}
	return ast.TypeExpr{Name: nameTok.Literal}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	retTok := p.advance()
	if _, ok := p.match(token.NEWLINE); ok {
		return &ast.ReturnStmt{Pos: retTok.Pos}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: value, Pos: retTok.Pos}, nil
}

func (p *Parser) parseGlobal() (ast.Stmt, error) {
	tok := p.advance()
	var names []string
	for {
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		names = append(names, nameTok.Literal)
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.GlobalStmt{Names: names, Pos: tok.Pos}, nil
}

func (p *Parser) parseAssert() (ast.Stmt, error) {
	tok := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.AssertStmt{Condition: cond, Pos: tok.Pos}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	tok := p.toks[p.pos-1].Pos
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if _, ok := p.match(token.ELIF); ok {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		elseBody = []ast.Stmt{nested}
	} else if _, ok := p.match(token.ELSE); ok {
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		elseBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Condition: cond, Then: thenBody, Else: elseBody, Pos: tok}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	tok := p.toks[p.pos-1].Pos
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Condition: cond, Body: body, Pos: tok}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	tok := p.toks[p.pos-1].Pos
	varTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{VarName: varTok.Literal, Iterable: iterable, Body: body, Pos: tok}, nil
}

func (p *Parser) parseFunctionDef(isMethod bool) (*ast.FunctionDef, error) {
	defPos := p.toks[p.pos-1].Pos
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.check(token.RPAREN) {
		for {
			pnameTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			ptype := ast.TypeExpr{Name: "int"}
			if _, ok := p.match(token.COLON); ok {
				ptype, err = p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
			}
			var def ast.Expr
			if _, ok := p.match(token.ASSIGN); ok {
				def, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			params = append(params, ast.Param{Name: pnameTok.Literal, Type: ptype, Default: def})
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	var retType ast.TypeExpr
	if _, ok := p.match(token.ARROW); ok {
		retType, err = p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	wasIn := p.inFunctionBody
	p.inFunctionBody = true
	body, err := p.parseBlock()
	p.inFunctionBody = wasIn
	if err != nil {
		return nil, err
	}
	globals := map[string]bool{}
	for _, s := range body {
		collectGlobals(s, globals)
	}
	return &ast.FunctionDef{
		Name: nameTok.Literal, Params: params, Body: body, ReturnType: retType,
		GlobalsDeclared: globals, IsMethod: isMethod, Pos: defPos,
	}, nil
}

// collectGlobals unions every GlobalStmt's name set across the whole body,
// including statements nested inside if/while/for blocks.
func collectGlobals(s ast.Stmt, out map[string]bool) {
	switch n := s.(type) {
	case *ast.GlobalStmt:
		for _, name := range n.Names {
			out[name] = true
		}
	case *ast.IfStmt:
		for _, stmt := range n.Then {
			collectGlobals(stmt, out)
		}
		for _, stmt := range n.Else {
			collectGlobals(stmt, out)
		}
	case *ast.WhileStmt:
		for _, stmt := range n.Body {
			collectGlobals(stmt, out)
		}
	case *ast.ForStmt:
		for _, stmt := range n.Body {
			collectGlobals(stmt, out)
		}
	}
}

// parseClassDef enforces the body shape from spec.md §3: a single `pass`,
// or fields (VarDecl) then methods (FunctionDef), never interleaved.
func (p *Parser) parseClassDef() (*ast.ClassDef, error) {
	classPos := p.toks[p.pos-1].Pos
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	base := ""
	if _, ok := p.match(token.LPAREN); ok {
		baseTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		base = baseTok.Literal
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.INDENT); err != nil {
		return nil, err
	}

	var fields []*ast.VarDecl
	var methods []*ast.FunctionDef
	sawMethod := false

	for !p.check(token.DEDENT) {
		if p.check(token.PASS) {
			if len(fields) > 0 || len(methods) > 0 {
				return nil, p.errAt(errorsx.PAR005, "'pass' must be the only statement in a class body", p.current().Pos)
			}
			p.advance()
			if _, err := p.expect(token.NEWLINE); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.DEDENT); err != nil {
				return nil, err
			}
			return &ast.ClassDef{Name: nameTok.Literal, Base: base, Pos: classPos}, nil
		}
		if _, ok := p.match(token.DEF); ok {
			m, err := p.parseFunctionDef(true)
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
			sawMethod = true
			continue
		}
		if p.check(token.IDENT) && p.peek(1).Kind == token.COLON {
			if sawMethod {
				return nil, p.errAt(errorsx.PAR005, "fields must be declared before methods", p.current().Pos)
			}
			f, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			continue
		}
		return nil, p.errAt(errorsx.PAR005, "only fields, methods, or a lone 'pass' are allowed in a class body", p.current().Pos)
	}
	p.advance() // DEDENT
	return &ast.ClassDef{Name: nameTok.Literal, Base: base, Fields: fields, Methods: methods, Pos: classPos}, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	tok := p.toks[p.pos-1].Pos
	segs, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	alias := ""
	if _, ok := p.match(token.AS); ok {
		aliasTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		alias = aliasTok.Literal
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.ImportStmt{Module: segs, Alias: alias, Pos: tok}, nil
}

func (p *Parser) parseImportFrom() (ast.Stmt, error) {
	tok := p.toks[p.pos-1].Pos
	segs, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IMPORT); err != nil {
		return nil, err
	}
	if _, ok := p.match(token.STAR); ok {
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.ImportFromStmt{Module: segs, IsWildcard: true, Pos: tok}, nil
	}
	var names []ast.ImportName
	for {
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		asname := ""
		if _, ok := p.match(token.AS); ok {
			asTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			asname = asTok.Literal
		}
		names = append(names, ast.ImportName{Name: nameTok.Literal, AsName: asname})
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.ImportFromStmt{Module: segs, Names: names, Pos: tok}, nil
}

func (p *Parser) parseDottedName() ([]string, error) {
	var segs []string
	first, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	segs = append(segs, first.Literal)
	for {
		if _, ok := p.match(token.DOT); !ok {
			break
		}
		seg, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg.Literal)
	}
	return segs, nil
}

// parseExprStmt parses a statement starting with an identifier: an
// assignment, augmented assignment, or a bare expression statement (only a
// CallExpr makes sense here in practice).
func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	expr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, ok := p.match(token.ASSIGN); ok {
		if !isValidAssignTarget(expr) {
			return nil, p.errAt(errorsx.PAR003, "invalid assignment target", expr.Position())
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Target: expr, Value: value, Pos: expr.Position()}, nil
	}
	if op, ok := p.matchAugOp(); ok {
		if !isValidAssignTarget(expr) {
			return nil, p.errAt(errorsx.PAR003, "invalid assignment target", expr.Position())
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.NEWLINE); err != nil {
			return nil, err
		}
		return &ast.AugAssignStmt{Target: expr, Op: op, Value: value, Pos: expr.Position()}, nil
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: expr, Pos: expr.Position()}, nil
}

func (p *Parser) matchAugOp() (string, bool) {
	cur := p.current()
	if op, ok := token.AugOps[cur.Kind]; ok {
		p.advance()
		return op, true
	}
	return "", false
}

func isValidAssignTarget(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.AttributeExpr, *ast.IndexExpr:
		return true
	default:
		return false
	}
}
