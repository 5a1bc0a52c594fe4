package codegen_test

import (
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/codegen"
	"github.com/pbedn/pbc/internal/lexer"
	"github.com/pbedn/pbc/internal/parser"
	"github.com/pbedn/pbc/internal/types"
)

func checkedProgram(t *testing.T, moduleName, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "test.pb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog.ModuleName = moduleName
	c := types.NewChecker("test.pb")
	if err := c.Check(prog); err != nil {
		t.Fatalf("type check error: %v", err)
	}
	return prog
}

func generate(t *testing.T, moduleName, src string) (header, body string) {
	t.Helper()
	prog := checkedProgram(t, moduleName, src)
	g := codegen.New(moduleName)
	h, c, err := g.Generate(prog, nil)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return h, c
}

func TestGenerateHelloWorld(t *testing.T) {
	src := strings.Join([]string{
		"def main() -> int:",
		"    print(\"hello\")",
		"    return 0",
		"",
	}, "\n")
	header, body := generate(t, "main", src)

	if !strings.Contains(header, "int main(void);") {
		t.Errorf("header missing bare main() prototype:\n%s", header)
	}
	if !strings.Contains(body, "int main(void) {") {
		t.Errorf("body missing unprefixed main() definition:\n%s", body)
	}
	if !strings.Contains(body, "pb_print_str(pb_string_from_cstr(\"hello\"));") {
		t.Errorf("body missing print(\"hello\") lowering:\n%s", body)
	}
	if !strings.Contains(body, "return 0LL;") {
		t.Errorf("body missing return statement:\n%s", body)
	}
}

func TestGenerateGlobalReassignment(t *testing.T) {
	src := strings.Join([]string{
		"x: int = 1",
		"",
		"def bump() -> None:",
		"    global x",
		"    x = x + 1",
		"",
		"def main() -> int:",
		"    bump()",
		"    print(x)",
		"    return 0",
		"",
	}, "\n")
	header, body := generate(t, "main", src)

	if !strings.Contains(header, "extern int64_t x;") {
		t.Errorf("header missing extern declaration for global x:\n%s", header)
	}
	if !strings.Contains(body, "int64_t x = 1LL;") {
		t.Errorf("body missing global definition for x:\n%s", body)
	}
	if !strings.Contains(body, "x = (x + 1LL);") {
		t.Errorf("body missing reassignment inside bump():\n%s", body)
	}
}

func TestGenerateNonMainModuleQualifiesOwnGlobals(t *testing.T) {
	src := strings.Join([]string{
		"count: int = 0",
		"",
		"def bump() -> None:",
		"    global count",
		"    count = count + 1",
		"",
	}, "\n")
	header, body := generate(t, "mathlib", src)

	if !strings.Contains(header, "extern int64_t mathlib_count;") {
		t.Errorf("header missing qualified extern for mathlib's own global:\n%s", header)
	}
	if !strings.Contains(body, "int64_t mathlib_count = 0LL;") {
		t.Errorf("body missing qualified global definition:\n%s", body)
	}
	if !strings.Contains(body, "mathlib_count = (mathlib_count + 1LL);") {
		t.Errorf("body references to the module's own global must use its qualified name, got:\n%s", body)
	}
	if !strings.Contains(body, "void mathlib_bump(void) {") {
		t.Errorf("body missing qualified function definition:\n%s", body)
	}
}

func TestGenerateCrossModuleCall(t *testing.T) {
	src := strings.Join([]string{
		"import mathlib",
		"",
		"def main() -> int:",
		"    print(mathlib.square(5))",
		"    return 0",
		"",
	}, "\n")
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "test.pb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog.ModuleName = "main"

	c := types.NewChecker("test.pb")
	c.BindModule("mathlib", &types.ImportedModule{
		Name:      "mathlib",
		Exports:   map[string]string{"square": "function"},
		Functions: map[string]*types.FuncInfo{"square": {Name: "square", ParamNames: []string{"n"}, ParamTypes: []string{"int"}, ReturnType: "int"}},
	})
	if err := c.Check(prog); err != nil {
		t.Fatalf("type check error: %v", err)
	}

	g := codegen.New("main")
	_, body, err := g.Generate(prog, []codegen.Import{
		{ModuleDotted: []string{"mathlib"}, Alias: "mathlib", IsModuleAlias: true},
	})
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	if !strings.Contains(body, "pb_print_int(mathlib_square(5LL));") {
		t.Errorf("body missing qualified cross-module call:\n%s", body)
	}
}

func TestGenerateFunctionDefaultArgPadding(t *testing.T) {
	src := strings.Join([]string{
		"def increment(value: int, step: int = 1) -> int:",
		"    return value + step",
		"",
		"def main() -> int:",
		"    result: int = increment(5)",
		"    print(result)",
		"    return 0",
		"",
	}, "\n")
	_, body := generate(t, "main", src)

	if !strings.Contains(body, "increment(5LL, 1LL)") {
		t.Errorf("body missing call-site default-argument padding:\n%s", body)
	}
}

func TestGenerateOperatorLowering(t *testing.T) {
	src := strings.Join([]string{
		"def same(a: str, b: str) -> bool:",
		"    return a == b",
		"",
		"def frac(x: float, y: float) -> float:",
		"    return x % y",
		"",
		"def halve(n: int) -> int:",
		"    n //= 2",
		"    return n",
		"",
	}, "\n")
	_, body := generate(t, "main", src)

	if !strings.Contains(body, "pb_string_eq(a, b)") {
		t.Errorf("string equality must lower to pb_string_eq:\n%s", body)
	}
	if !strings.Contains(body, "fmod(x, y)") {
		t.Errorf("float %% must lower to fmod:\n%s", body)
	}
	if !strings.Contains(body, "n /= 2LL;") {
		t.Errorf("//= on int must lower to /=:\n%s", body)
	}
}

func TestGenerateFStringConcatenation(t *testing.T) {
	src := strings.Join([]string{
		"def greet(name: str) -> str:",
		"    return f\"hello {name}!\"",
		"",
	}, "\n")
	_, body := generate(t, "main", src)

	if !strings.Contains(body, "pb_string_concat(") {
		t.Errorf("f-string must lower to runtime concatenations:\n%s", body)
	}
	if !strings.Contains(body, "pb_to_str_str(name)") {
		t.Errorf("embedded str expression must coerce through pb_to_str_str:\n%s", body)
	}
	if !strings.Contains(body, "pb_string_from_cstr(\"hello \")") {
		t.Errorf("literal chunk missing from f-string lowering:\n%s", body)
	}
}

func TestGenerateListRoundTrip(t *testing.T) {
	src := strings.Join([]string{
		"def main() -> int:",
		"    arr: list[int] = [100]",
		"    print(arr[0])",
		"    arr[0] = 1",
		"    return 0",
		"",
	}, "\n")
	header, body := generate(t, "main", src)

	if !strings.Contains(header, "PB_DECLARE_LIST(int64_t, pb_list_int64_t);") {
		t.Errorf("header missing list-of-int64_t struct declaration:\n%s", header)
	}
	if !strings.Contains(body, "pb_list_int64_t arr = pb_list_int64_t_new(1, 100LL);") {
		t.Errorf("body missing list literal construction:\n%s", body)
	}
	if !strings.Contains(body, "arr.data[0LL] = 1LL;") {
		t.Errorf("body missing indexed assignment:\n%s", body)
	}
}

func TestGenerateClassInheritance(t *testing.T) {
	// Mirrors the canonical inheritance scenario: base Player with hp=150
	// and get_hp, subclass Mage adding mana=200 and delegating to
	// Player.__init__(self).
	src := strings.Join([]string{
		"class Player:",
		"    hp: int = 150",
		"",
		"    def __init__(self) -> None:",
		"        pass",
		"",
		"    def get_hp(self) -> int:",
		"        return self.hp",
		"",
		"class Mage(Player):",
		"    mana: int = 200",
		"",
		"    def __init__(self) -> None:",
		"        Player.__init__(self)",
		"",
		"def main() -> int:",
		"    m: Mage = Mage()",
		"    print(m.hp)",
		"    print(m.mana)",
		"    print(m.get_hp())",
		"    return 0",
		"",
	}, "\n")
	header, body := generate(t, "main", src)

	if !strings.Contains(header, "struct Player {") || !strings.Contains(header, "struct Mage {") {
		t.Errorf("header missing both class struct layouts:\n%s", header)
	}
	if !strings.Contains(header, "struct Mage {\n    struct Player base;") {
		t.Errorf("Mage struct missing embedded Player base field:\n%s", header)
	}
	if !strings.Contains(body, "static const int64_t Player__hp = 150LL;") {
		t.Errorf("body missing Player's static hp constant:\n%s", body)
	}
	if !strings.Contains(body, "Player___init__((struct Player *)(self));") {
		t.Errorf("body missing Mage's delegated call to Player.__init__ with a base-pointer cast:\n%s", body)
	}
	if !strings.Contains(body, "struct Mage *Mage_new(void) {") {
		t.Errorf("body missing Mage constructor:\n%s", body)
	}
	if !strings.Contains(body, "Mage___init__(self);") {
		t.Errorf("body missing Mage_new's call to its own __init__ method:\n%s", body)
	}
	if !strings.Contains(body, "self->base.hp = Player__hp;") {
		t.Errorf("Mage_new must default-initialize the inherited hp field:\n%s", body)
	}
	if !strings.Contains(body, "self->mana = Mage__mana;") {
		t.Errorf("Mage_new must default-initialize its own mana field:\n%s", body)
	}
}

func TestGenerateStringFieldDefault(t *testing.T) {
	src := strings.Join([]string{
		"class Greeter:",
		"    name: str = \"world\"",
		"",
		"    def greet(self) -> str:",
		"        return self.name",
		"",
		"def main() -> int:",
		"    g: Greeter = Greeter()",
		"    print(g.greet())",
		"    return 0",
		"",
	}, "\n")
	_, body := generate(t, "main", src)

	if strings.Contains(body, "static const pb_string") {
		t.Errorf("a runtime-built string default must not become a static const:\n%s", body)
	}
	if !strings.Contains(body, "self->name = pb_string_from_cstr(\"world\");") {
		t.Errorf("constructor must build the string default inline:\n%s", body)
	}
}

func TestGenerateConstructorDefaultArgPadding(t *testing.T) {
	src := strings.Join([]string{
		"class Counter:",
		"    value: int = 0",
		"",
		"    def __init__(self, start: int = 5) -> None:",
		"        self.value = start",
		"",
		"def main() -> int:",
		"    c: Counter = Counter()",
		"    print(c.value)",
		"    return 0",
		"",
	}, "\n")
	_, body := generate(t, "main", src)

	if !strings.Contains(body, "Counter_new(5LL)") {
		t.Errorf("constructor call must pad the omitted default argument:\n%s", body)
	}
	if !strings.Contains(body, "self->value = start;") {
		t.Errorf("__init__ body missing the field assignment:\n%s", body)
	}
}
