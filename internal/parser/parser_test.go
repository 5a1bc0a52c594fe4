package parser_test

import (
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/lexer"
	"github.com/pbedn/pbc/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "test.pb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestParseVarDeclAndFunction(t *testing.T) {
	src := strings.Join([]string{
		"x: int = 1",
		"",
		"def add(a: int, b: int = 2) -> int:",
		"    return a + b",
		"",
	}, "\n")
	prog := mustParse(t, src)
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 top-level statements, got %d", len(prog.Body))
	}
	vd, ok := prog.Body[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", prog.Body[0])
	}
	if vd.Name != "x" || vd.DeclaredType.String() != "int" {
		t.Fatalf("unexpected VarDecl: %+v", vd)
	}
	fn, ok := prog.Body[1].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected FunctionDef, got %T", prog.Body[1])
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected FunctionDef: %+v", fn)
	}
	if fn.Params[1].Default == nil {
		t.Fatalf("expected default value on second param")
	}
	if fn.ReturnType.String() != "int" {
		t.Fatalf("expected return type int, got %s", fn.ReturnType.String())
	}
}

func TestParseClassWithInheritance(t *testing.T) {
	src := strings.Join([]string{
		"class Animal:",
		"    name: str = \"\"",
		"    def speak(self) -> str:",
		"        return self.name",
		"",
		"class Dog(Animal):",
		"    pass",
		"",
	}, "\n")
	prog := mustParse(t, src)
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(prog.Body))
	}
	animal := prog.Body[0].(*ast.ClassDef)
	if len(animal.Fields) != 1 || len(animal.Methods) != 1 {
		t.Fatalf("unexpected Animal shape: %+v", animal)
	}
	dog := prog.Body[1].(*ast.ClassDef)
	if dog.Base != "Animal" {
		t.Fatalf("expected Dog to extend Animal, got base %q", dog.Base)
	}
}

func TestParseIfElifElseDesugars(t *testing.T) {
	src := strings.Join([]string{
		"def classify(n: int) -> str:",
		"    if n < 0:",
		"        return \"neg\"",
		"    elif n == 0:",
		"        return \"zero\"",
		"    else:",
		"        return \"pos\"",
		"",
	}, "\n")
	prog := mustParse(t, src)
	fn := prog.Body[0].(*ast.FunctionDef)
	ifStmt := fn.Body[0].(*ast.IfStmt)
	if len(ifStmt.Else) != 1 {
		t.Fatalf("expected elif to desugar into a single nested IfStmt, got %d stmts", len(ifStmt.Else))
	}
	if _, ok := ifStmt.Else[0].(*ast.IfStmt); !ok {
		t.Fatalf("expected nested IfStmt for elif, got %T", ifStmt.Else[0])
	}
}

func TestParseForOverListAndAugAssign(t *testing.T) {
	src := strings.Join([]string{
		"def total(xs: list[int]) -> int:",
		"    acc: int = 0",
		"    for x in xs:",
		"        acc += x",
		"    return acc",
		"",
	}, "\n")
	prog := mustParse(t, src)
	fn := prog.Body[0].(*ast.FunctionDef)
	forStmt := fn.Body[1].(*ast.ForStmt)
	aug := forStmt.Body[0].(*ast.AugAssignStmt)
	if aug.Op != "+" {
		t.Fatalf("expected '+' base op for +=, got %q", aug.Op)
	}
}

func TestParsePrecedenceRoundTrip(t *testing.T) {
	// Parenthesising a sub-expression the precedence rules already group
	// must yield an equivalent tree.
	pairs := [][2]string{
		{"1 + 2 * 3", "1 + (2 * 3)"},
		{"1 * 2 + 3", "(1 * 2) + 3"},
		{"a < b and c < d", "(a < b) and (c < d)"},
		{"not p or q", "(not p) or q"},
		{"-x + y", "(-x) + y"},
		{"a / b % c", "(a / b) % c"},
	}
	for _, pair := range pairs {
		left := mustParse(t, "v: int = "+pair[0]+"\n")
		right := mustParse(t, "v: int = "+pair[1]+"\n")
		if ast.Print(left) != ast.Print(right) {
			t.Errorf("%q and %q must parse to equivalent trees:\n%s\nvs\n%s",
				pair[0], pair[1], ast.Print(left), ast.Print(right))
		}
	}
	// And the counter-case: parentheses that fight precedence change the tree.
	a := mustParse(t, "v: int = 1 + 2 * 3\n")
	b := mustParse(t, "v: int = (1 + 2) * 3\n")
	if ast.Print(a) == ast.Print(b) {
		t.Errorf("(1 + 2) * 3 must not parse the same as 1 + 2 * 3")
	}
}

func TestParseFString(t *testing.T) {
	src := strings.Join([]string{
		"def greet(name: str) -> str:",
		"    return f\"hello {name}!\"",
		"",
	}, "\n")
	prog := mustParse(t, src)
	fn := prog.Body[0].(*ast.FunctionDef)
	ret := fn.Body[0].(*ast.ReturnStmt)
	fs, ok := ret.Value.(*ast.FString)
	if !ok {
		t.Fatalf("expected FString, got %T", ret.Value)
	}
	if len(fs.Parts) != 3 {
		t.Fatalf("expected 3 f-string parts, got %d: %+v", len(fs.Parts), fs.Parts)
	}
	if fs.Parts[1].Expr == nil {
		t.Fatalf("expected middle part to be an embedded expression")
	}
}

func TestParseImportForms(t *testing.T) {
	src := strings.Join([]string{
		"import std.math",
		"from std.math import sqrt, pow as power",
		"from std.io import *",
		"",
	}, "\n")
	prog := mustParse(t, src)
	imp := prog.Body[0].(*ast.ImportStmt)
	if strings.Join(imp.Module, ".") != "std.math" {
		t.Fatalf("unexpected import module: %v", imp.Module)
	}
	from := prog.Body[1].(*ast.ImportFromStmt)
	if len(from.Names) != 2 || from.Names[1].AsName != "power" {
		t.Fatalf("unexpected from-import names: %+v", from.Names)
	}
	wild := prog.Body[2].(*ast.ImportFromStmt)
	if !wild.IsWildcard {
		t.Fatalf("expected wildcard import")
	}
}

func TestGlobalsDeclaredUnionsNestedBlocks(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> None:",
		"    if True:",
		"        global a",
		"    while False:",
		"        global b",
		"    global c",
		"",
	}, "\n")
	prog := mustParse(t, src)
	fn := prog.Body[0].(*ast.FunctionDef)
	for _, name := range []string{"a", "b", "c"} {
		if !fn.GlobalsDeclared[name] {
			t.Errorf("expected %q in GlobalsDeclared, got %v", name, fn.GlobalsDeclared)
		}
	}
	if len(fn.GlobalsDeclared) != 3 {
		t.Errorf("expected exactly 3 declared globals, got %v", fn.GlobalsDeclared)
	}
}

func TestRejectsTryExcept(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    try:",
		"        return 1",
		"    except:",
		"        return 0",
		"",
	}, "\n")
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = parser.Parse(toks, "test.pb")
	if err == nil {
		t.Fatalf("expected parse error for try/except")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.PAR011 {
		t.Fatalf("expected PAR011, got %v", err)
	}
}

func TestRejectsCallAsAssignmentTarget(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> None:",
		"    g() = 1",
		"",
	}, "\n")
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = parser.Parse(toks, "test.pb")
	if err == nil {
		t.Fatalf("expected parse error for call as assignment target")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.PAR003 {
		t.Fatalf("expected PAR003, got %v", err)
	}
}

func TestRejectsUntypedTopLevelAssignment(t *testing.T) {
	src := "x = 1\n"
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = parser.Parse(toks, "test.pb")
	if err == nil {
		t.Fatalf("expected parse error for bare top-level assignment")
	}
}
