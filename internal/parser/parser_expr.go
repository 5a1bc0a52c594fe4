package parser

import (
	"strconv"
	"strings"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/token"
)

// parseExpr is the entry point of the precedence chain:
// or -> and -> comparison/is/is-not -> additive -> multiplicative -> unary
// -> postfix -> primary (spec.md §4.2 Expression grammar).
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(token.OR) {
		opTok := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: "or", Right: right, Pos: opTok.Pos}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.check(token.AND) {
		opTok := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: "and", Right: right, Pos: opTok.Pos}
	}
	return left, nil
}

var comparisonOps = map[token.Kind]string{
	token.EQ:    "==",
	token.NOTEQ: "!=",
	token.LT:    "<",
	token.LTE:   "<=",
	token.GT:    ">",
	token.GTE:   ">=",
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		cur := p.current()
		if op, ok := comparisonOps[cur.Kind]; ok {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinOp{Left: left, Op: op, Right: right, Pos: cur.Pos}
			continue
		}
		if p.check(token.IS) {
			p.advance()
			op := "is"
			if _, ok := p.match(token.NOT); ok {
				op = "is not"
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinOp{Left: left, Op: op, Right: right, Pos: cur.Pos}
			continue
		}
		if p.check(token.IN) {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinOp{Left: left, Op: "in", Right: right, Pos: cur.Pos}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(token.PLUS, token.MINUS) {
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: opTok.Literal, Right: right, Pos: opTok.Pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(token.STAR, token.SLASH, token.PERCENT, token.FLOORDIV) {
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: opTok.Literal, Right: right, Pos: opTok.Pos}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(token.MINUS) {
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "-", Operand: operand, Pos: opTok.Pos}, nil
	}
	if p.check(token.NOT) {
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "not", Operand: operand, Pos: opTok.Pos}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of call,
// attribute, or index suffixes.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(token.LPAREN):
			lp := p.advance()
			var args []ast.Expr
			if !p.check(token.RPAREN) {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if _, ok := p.match(token.COMMA); !ok {
						break
					}
				}
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Func: expr, Args: args, Pos: lp.Pos}
		case p.check(token.DOT):
			dot := p.advance()
			attrTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.AttributeExpr{Obj: expr, Attr: attrTok.Literal, Pos: dot.Pos}
		case p.check(token.LBRACKET):
			lb := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Base: expr, Index: idx, Pos: lb.Pos}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	cur := p.current()
	switch {
	case p.check(token.INT):
		p.advance()
		lit := strings.ReplaceAll(cur.Literal, "_", "")
		n, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			return nil, p.errAt(errorsx.PAR008, "invalid integer literal: "+cur.Literal, cur.Pos)
		}
		return &ast.Literal{Kind: ast.LitInt, Int: n, Pos: cur.Pos}, nil
	case p.check(token.FLOAT):
		p.advance()
		lit := strings.ReplaceAll(cur.Literal, "_", "")
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errAt(errorsx.PAR008, "invalid float literal: "+cur.Literal, cur.Pos)
		}
		return &ast.Literal{Kind: ast.LitFloat, Float: f, Pos: cur.Pos}, nil
	case p.check(token.STRING):
		p.advance()
		return &ast.Literal{Kind: ast.LitString, Str: cur.Literal, Pos: cur.Pos}, nil
	case p.check(token.FSTRING_START):
		return p.parseFString()
	case p.check(token.TRUE):
		p.advance()
		return &ast.Literal{Kind: ast.LitBool, Bool: true, Pos: cur.Pos}, nil
	case p.check(token.FALSE):
		p.advance()
		return &ast.Literal{Kind: ast.LitBool, Bool: false, Pos: cur.Pos}, nil
	case p.check(token.NONE):
		p.advance()
		return &ast.Literal{Kind: ast.LitNone, Pos: cur.Pos}, nil
	case p.check(token.IDENT):
		p.advance()
		return &ast.Identifier{Name: cur.Literal, Pos: cur.Pos}, nil
	case p.check(token.LPAREN):
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case p.check(token.LBRACKET):
		return p.parseListExpr()
	case p.check(token.LBRACE):
		return p.parseDictExpr()
	}
	return nil, p.errAt(errorsx.PAR001, "unexpected token "+cur.Kind.String()+" in expression", cur.Pos)
}

func (p *Parser) parseListExpr() (ast.Expr, error) {
	lb := p.advance()
	var elems []ast.Expr
	if !p.check(token.RBRACKET) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ListExpr{Elements: elems, Pos: lb.Pos}, nil
}

func (p *Parser) parseDictExpr() (ast.Expr, error) {
	lb := p.advance()
	var pairs []ast.DictPair
	if !p.check(token.RBRACE) {
		for {
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.COLON); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ast.DictPair{Key: key, Value: val})
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.DictExpr{Pairs: pairs, Pos: lb.Pos}, nil
}

// parseFString consumes an FSTRING_START ... FSTRING_END run, where the
// lexer has already re-tokenized each embedded expression inline (wrapped
// in explicit LBRACE/RBRACE tokens) using the same token kinds as top-level
// code. The START and END literals are the quote delimiters, not content.
func (p *Parser) parseFString() (ast.Expr, error) {
	start := p.advance() // FSTRING_START
	fs := &ast.FString{Pos: start.Pos}
	for {
		cur := p.current()
		switch cur.Kind {
		case token.FSTRING_END:
			p.advance()
			return fs, nil
		case token.FSTRING_MIDDLE:
			p.advance()
			if cur.Literal != "" {
				fs.Parts = append(fs.Parts, ast.FStringPart{Literal: cur.Literal})
			}
		case token.LBRACE:
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACE); err != nil {
				return nil, err
			}
			fs.Parts = append(fs.Parts, ast.FStringPart{Expr: expr})
		default:
			return nil, p.errAt(errorsx.PAR008,
				"unexpected "+cur.Kind.String()+" inside f-string", cur.Pos)
		}
	}
}
