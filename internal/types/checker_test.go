package types_test

import (
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/lexer"
	"github.com/pbedn/pbc/internal/parser"
	"github.com/pbedn/pbc/internal/types"
)

func checkSrc(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "test.pb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	c := types.NewChecker("test.pb")
	return c.Check(prog)
}

func TestCheckArithmeticAndCallOk(t *testing.T) {
	src := strings.Join([]string{
		"def add(x: int, y: int) -> int:",
		"    return x + y",
		"",
		"def main() -> int:",
		"    result: int = add(3, 4)",
		"    print(result)",
		"    return 0",
		"",
	}, "\n")
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
}

func TestCheckListRoundTrip(t *testing.T) {
	src := strings.Join([]string{
		"def main() -> int:",
		"    arr: list[int] = [100]",
		"    print(arr[0])",
		"    arr[0] = 1",
		"    return 0",
		"",
	}, "\n")
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
}

func TestCheckClassInheritance(t *testing.T) {
	src := strings.Join([]string{
		"class Player:",
		"    hp: int = 150",
		"    def get_hp(self) -> int:",
		"        return self.hp",
		"",
		"class Mage(Player):",
		"    mana: int = 200",
		"",
		"def main() -> int:",
		"    m: Mage = Mage()",
		"    print(m.hp)",
		"    print(m.mana)",
		"    print(m.get_hp())",
		"    return 0",
		"",
	}, "\n")
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
}

func TestCheckRejectsBadReturnType(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    return \"oops\"",
		"",
	}, "\n")
	err := checkSrc(t, src)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.TC005 {
		t.Fatalf("expected TC005, got %v", err)
	}
}

func TestCheckRejectsBreakOutsideLoop(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    break",
		"",
	}, "\n")
	err := checkSrc(t, src)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.TC009 {
		t.Fatalf("expected TC009, got %v", err)
	}
}

func TestCheckRejectsEmptyListLiteral(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    xs: list[int] = []",
		"    return 0",
		"",
	}, "\n")
	err := checkSrc(t, src)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.TC007 {
		t.Fatalf("expected TC007, got %v", err)
	}
}

func TestCheckUndefinedFunctionCall(t *testing.T) {
	src := strings.Join([]string{
		"def main() -> int:",
		"    mystery()",
		"    return 0",
		"",
	}, "\n")
	err := checkSrc(t, src)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.TC002 {
		t.Fatalf("expected TC002, got %v", err)
	}
}

func TestCheckUnboundBaseInitDelegation(t *testing.T) {
	src := strings.Join([]string{
		"class Player:",
		"    hp: int = 150",
		"",
		"    def __init__(self) -> None:",
		"        pass",
		"",
		"class Mage(Player):",
		"    mana: int = 200",
		"",
		"    def __init__(self) -> None:",
		"        Player.__init__(self)",
		"",
	}, "\n")
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
}

func TestCheckBuiltinArityMismatch(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    return len()",
		"",
	}, "\n")
	err := checkSrc(t, src)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.TC003 {
		t.Fatalf("expected TC003, got %v", err)
	}
}

func TestCheckForOverRange(t *testing.T) {
	src := strings.Join([]string{
		"def total(n: int) -> int:",
		"    acc: int = 0",
		"    for i in range(n):",
		"        acc += i",
		"    return acc",
		"",
	}, "\n")
	if err := checkSrc(t, src); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
}
