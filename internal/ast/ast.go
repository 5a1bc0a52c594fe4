// Package ast defines the typed AST produced by internal/parser and enriched
// by internal/types. It is a closed family of tagged node variants, per
// spec.md §3.
package ast

import (
	"fmt"

	"github.com/pbedn/pbc/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	Position() token.Pos
}

// Span is a source range, used by diagnostics that need more than a point.
type Span struct {
	Start token.Pos
	End   token.Pos
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
	// Type is the static type assigned by the type checker. Empty until
	// checked. Expressed as a string (see internal/types.Type.String).
	Type() string
	SetType(string)
}

// baseExpr factors the Type/SetType bookkeeping shared by every Expr.
type baseExpr struct {
	typ string
}

func (b *baseExpr) Type() string     { return b.typ }
func (b *baseExpr) SetType(t string) { b.typ = t }

// Program is the top-level AST for a single module.
type Program struct {
	ModuleName string // assigned by the loader, e.g. "std.math"
	FilePath   string
	Body       []Stmt
	Pos        token.Pos
}

func (p *Program) Position() token.Pos { return p.Pos }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// VarDecl is `name: type = value`.
type VarDecl struct {
	Name         string
	DeclaredType TypeExpr
	Value        Expr
	Pos          token.Pos
}

func (*VarDecl) stmtNode()            {}
func (d *VarDecl) Position() token.Pos { return d.Pos }

// AssignStmt is `target = value`.
type AssignStmt struct {
	Target Expr // Identifier | AttributeExpr | IndexExpr
	Value  Expr
	Pos    token.Pos
}

func (*AssignStmt) stmtNode()            {}
func (s *AssignStmt) Position() token.Pos { return s.Pos }

// AugAssignStmt is `target op= value`.
type AugAssignStmt struct {
	Target Expr
	Op     string // one of + - * / % //
	Value  Expr
	Pos    token.Pos
}

func (*AugAssignStmt) stmtNode()            {}
func (s *AugAssignStmt) Position() token.Pos { return s.Pos }

// ReturnStmt is `return value?`.
type ReturnStmt struct {
	Value Expr // nil for a bare `return`
	Pos   token.Pos
}

func (*ReturnStmt) stmtNode()            {}
func (s *ReturnStmt) Position() token.Pos { return s.Pos }

// IfStmt is `if cond: then_body (else: else_body)?`. An `elif` is desugared
// into a single-statement ElseBody holding a nested *IfStmt.
type IfStmt struct {
	Condition Expr
	Then      []Stmt
	Else      []Stmt // nil if no else/elif clause
	Pos       token.Pos
}

func (*IfStmt) stmtNode()            {}
func (s *IfStmt) Position() token.Pos { return s.Pos }

// WhileStmt is `while cond: body`.
type WhileStmt struct {
	Condition Expr
	Body      []Stmt
	Pos       token.Pos
}

func (*WhileStmt) stmtNode()            {}
func (s *WhileStmt) Position() token.Pos { return s.Pos }

// ForStmt is `for var in iterable: body`.
type ForStmt struct {
	VarName  string
	Iterable Expr
	Body     []Stmt
	// ElemType is filled in by the type checker: "int" for a range, or the
	// element type T when iterating a list[T].
	ElemType string
	Pos      token.Pos
}

func (*ForStmt) stmtNode()            {}
func (s *ForStmt) Position() token.Pos { return s.Pos }

// BreakStmt is `break`.
type BreakStmt struct{ Pos token.Pos }

func (*BreakStmt) stmtNode()            {}
func (s *BreakStmt) Position() token.Pos { return s.Pos }

// ContinueStmt is `continue`.
type ContinueStmt struct{ Pos token.Pos }

func (*ContinueStmt) stmtNode()            {}
func (s *ContinueStmt) Position() token.Pos { return s.Pos }

// PassStmt is `pass`.
type PassStmt struct{ Pos token.Pos }

func (*PassStmt) stmtNode()            {}
func (s *PassStmt) Position() token.Pos { return s.Pos }

// GlobalStmt is `global name, name, ...`.
type GlobalStmt struct {
	Names []string
	Pos   token.Pos
}

func (*GlobalStmt) stmtNode()            {}
func (s *GlobalStmt) Position() token.Pos { return s.Pos }

// AssertStmt is `assert condition`.
type AssertStmt struct {
	Condition Expr
	Pos       token.Pos
}

func (*AssertStmt) stmtNode()            {}
func (s *AssertStmt) Position() token.Pos { return s.Pos }

// Param is one formal parameter of a FunctionDef.
type Param struct {
	Name    string
	Type    TypeExpr
	Default Expr // nil if no default
}

// FunctionDef is `def name(params) -> return_type: body`.
type FunctionDef struct {
	Name            string
	Params          []Param
	Body            []Stmt
	ReturnType      TypeExpr // zero value (empty Name) means None
	GlobalsDeclared map[string]bool
	// IsMethod is set by the parser when this FunctionDef sits inside a
	// ClassDef body.
	IsMethod bool
	Pos      token.Pos
}

func (*FunctionDef) stmtNode()            {}
func (f *FunctionDef) Position() token.Pos { return f.Pos }

// ClassDef is `class name(base?): fields then methods` or a single `pass`.
type ClassDef struct {
	Name    string
	Base    string // "" if no base class
	Fields  []*VarDecl
	Methods []*FunctionDef
	Pos     token.Pos
}

func (*ClassDef) stmtNode()            {}
func (c *ClassDef) Position() token.Pos { return c.Pos }

// ImportStmt is `import a.b.c (as alias)?`.
type ImportStmt struct {
	Module []string
	Alias  string // "" if no alias
	Pos    token.Pos
}

func (*ImportStmt) stmtNode()            {}
func (s *ImportStmt) Position() token.Pos { return s.Pos }

// ImportName is one `name (as asname)?` inside a from-import list.
type ImportName struct {
	Name   string
	AsName string // "" if no `as`
}

// ImportFromStmt is `from a.b import x, y as z` or `from a.b import *`.
type ImportFromStmt struct {
	Module     []string
	Names      []ImportName // nil when IsWildcard
	IsWildcard bool
	Pos        token.Pos
}

func (*ImportFromStmt) stmtNode()            {}
func (s *ImportFromStmt) Position() token.Pos { return s.Pos }

// ExprStmt wraps a bare expression used as a statement (only valid in
// practice for CallExpr, e.g. a standalone `foo()`).
type ExprStmt struct {
	X   Expr
	Pos token.Pos
}

func (*ExprStmt) stmtNode()            {}
func (s *ExprStmt) Position() token.Pos { return s.Pos }

// ---------------------------------------------------------------------------
// Types (as written in source, before the checker resolves them to Type)
// ---------------------------------------------------------------------------

// TypeExpr is the syntactic form of a type annotation: a bare name ("int",
// "MyClass") or "list[T]".
type TypeExpr struct {
	Name string    // "int", "float", "bool", "str", "None", "range", "file", or a class name
	Elem *TypeExpr // non-nil iff Name == "list"
}

func (t TypeExpr) String() string {
	if t.Name == "list" && t.Elem != nil {
		return fmt.Sprintf("list[%s]", t.Elem.String())
	}
	return t.Name
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// LitKind identifies the Go-level kind of value a Literal holds.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBool
	LitNone
)

// Literal is an int/float/str/bool/None constant.
type Literal struct {
	baseExpr
	Kind  LitKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Pos   token.Pos
}

func (*Literal) exprNode()            {}
func (l *Literal) Position() token.Pos { return l.Pos }

// Identifier is a bare name reference.
type Identifier struct {
	baseExpr
	Name string
	Pos  token.Pos
}

func (*Identifier) exprNode()            {}
func (i *Identifier) Position() token.Pos { return i.Pos }

// BinOp is `left op right`.
type BinOp struct {
	baseExpr
	Left  Expr
	Op    string
	Right Expr
	Pos   token.Pos
}

func (*BinOp) exprNode()            {}
func (b *BinOp) Position() token.Pos { return b.Pos }

// UnaryOp is `op operand`.
type UnaryOp struct {
	baseExpr
	Op      string // "-" or "not"
	Operand Expr
	Pos     token.Pos
}

func (*UnaryOp) exprNode()            {}
func (u *UnaryOp) Position() token.Pos { return u.Pos }

// CallExpr is `func(args...)`.
type CallExpr struct {
	baseExpr
	Func Expr
	Args []Expr
	Pos  token.Pos
}

func (*CallExpr) exprNode()            {}
func (c *CallExpr) Position() token.Pos { return c.Pos }

// AttributeExpr is `obj.attr`. IsClassRef is filled in by the type checker
// when Obj names a class itself (e.g. `Player.species`) rather than an
// instance, so the generator can emit the file-scope static constant instead
// of an instance-pointer field access.
type AttributeExpr struct {
	baseExpr
	Obj        Expr
	Attr       string
	IsClassRef bool
	Pos        token.Pos
}

func (*AttributeExpr) exprNode()            {}
func (a *AttributeExpr) Position() token.Pos { return a.Pos }

// IndexExpr is `base[index]`. ElemType is filled in by the type checker.
type IndexExpr struct {
	baseExpr
	Base     Expr
	Index    Expr
	ElemType string
	Pos      token.Pos
}

func (*IndexExpr) exprNode()            {}
func (i *IndexExpr) Position() token.Pos { return i.Pos }

// ListExpr is `[e1, e2, ...]`. ElemType is filled in by the type checker.
type ListExpr struct {
	baseExpr
	Elements []Expr
	ElemType string
	Pos      token.Pos
}

func (*ListExpr) exprNode()            {}
func (l *ListExpr) Position() token.Pos { return l.Pos }

// DictPair is one `key: value` entry of a DictExpr.
type DictPair struct {
	Key   Expr
	Value Expr
}

// DictExpr is `{k: v, ...}`. Parsed and type-checked to a monomorphic `dict`
// type; the generator rejects it (see spec.md §9 Open Question (c)).
type DictExpr struct {
	baseExpr
	Pairs []DictPair
	Pos   token.Pos
}

func (*DictExpr) exprNode()            {}
func (d *DictExpr) Position() token.Pos { return d.Pos }

// FStringPart is one piece of an FString: either a literal chunk or an
// embedded expression.
type FStringPart struct {
	Literal string // valid iff Expr == nil
	Expr    Expr   // valid iff non-nil
}

// FString is an f-prefixed string literal with embedded expressions.
type FString struct {
	baseExpr
	Parts []FStringPart
	Pos   token.Pos
}

func (*FString) exprNode()            {}
func (f *FString) Position() token.Pos { return f.Pos }
