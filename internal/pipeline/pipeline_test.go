package pipeline_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/pipeline"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Join(wd, "..", "..")
}

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Compile is pure Go (lex/parse/load/check/generate); it never shells out,
// so it is the one pipeline entry point these tests can exercise without
// invoking an external C compiler.

func TestCompileHelloWorldWritesGeneratedFiles(t *testing.T) {
	root := repoRoot(t)
	srcDir := t.TempDir()
	buildDir := filepath.Join(t.TempDir(), "build")

	entry := writeFile(t, srcDir, "main.pb", strings.Join([]string{
		"def main() -> int:",
		"    print(\"hello\")",
		"    return 0",
		"",
	}, "\n"))

	p := pipeline.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"), filepath.Join(root, "runtime"), buildDir, "gcc", []string{"-std=c99", "-W"})
	results, err := p.Compile(entry)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(results) != 1 || results[0].ModuleName != "main" {
		t.Fatalf("expected a single 'main' module result, got %+v", results)
	}

	body, err := os.ReadFile(results[0].CPath)
	if err != nil {
		t.Fatalf("expected generated .c file at %s: %v", results[0].CPath, err)
	}
	if !strings.Contains(string(body), "int main(void) {") {
		t.Errorf("generated .c missing bare main() definition:\n%s", body)
	}
	if !strings.Contains(string(body), "pb_print_str(pb_string_from_cstr(\"hello\"));") {
		t.Errorf("generated .c missing print lowering:\n%s", body)
	}

	header, err := os.ReadFile(results[0].HeaderPath)
	if err != nil {
		t.Fatalf("expected generated .h file at %s: %v", results[0].HeaderPath, err)
	}
	if !strings.Contains(string(header), "#include \"pb_runtime.h\"") {
		t.Errorf("generated .h missing runtime include:\n%s", header)
	}
}

func TestCompileResolvesStdlibImportInDependencyOrder(t *testing.T) {
	root := repoRoot(t)
	srcDir := t.TempDir()
	buildDir := filepath.Join(t.TempDir(), "build")

	entry := writeFile(t, srcDir, "main.pb", strings.Join([]string{
		"import mathlib",
		"",
		"def main() -> int:",
		"    print(mathlib.add(1, 2))",
		"    return 0",
		"",
	}, "\n"))

	p := pipeline.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"), filepath.Join(root, "runtime"), buildDir, "gcc", []string{"-std=c99", "-W"})
	results, err := p.Compile(entry)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 module results (mathlib, main), got %d: %+v", len(results), results)
	}
	if results[0].ModuleName != "mathlib" || results[1].ModuleName != "main" {
		t.Fatalf("expected mathlib before main in link order, got %+v", results)
	}

	mathlibBody, err := os.ReadFile(results[0].CPath)
	if err != nil {
		t.Fatalf("expected generated mathlib.c: %v", err)
	}
	if !strings.Contains(string(mathlibBody), "mathlib_add(int64_t a, int64_t b) {") {
		t.Errorf("mathlib.c missing qualified add() definition:\n%s", mathlibBody)
	}

	mainBody, err := os.ReadFile(results[1].CPath)
	if err != nil {
		t.Fatalf("expected generated main.c: %v", err)
	}
	if !strings.Contains(string(mainBody), "pb_print_int(mathlib_add(1LL, 2LL));") {
		t.Errorf("main.c missing qualified cross-module call:\n%s", mainBody)
	}
	if !strings.Contains(string(mainBody), "#include \"stdlib/mathlib.h\"") && !strings.Contains(string(mainBody), "#include \"mathlib.h\"") {
		t.Errorf("main.c missing #include of mathlib's generated header:\n%s", mainBody)
	}
}

func TestCompileVendorNativeModuleSkipsCodegen(t *testing.T) {
	root := repoRoot(t)
	srcDir := t.TempDir()
	buildDir := filepath.Join(t.TempDir(), "build")

	entry := writeFile(t, srcDir, "main.pb", strings.Join([]string{
		"import raylib",
		"",
		"def main() -> int:",
		"    raylib.init_window(800, 600, \"demo\")",
		"    return 0",
		"",
	}, "\n"))

	p := pipeline.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"), filepath.Join(root, "runtime"), buildDir, "gcc", []string{"-std=c99", "-W"})
	results, err := p.Compile(entry)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var raylibResult *pipeline.CompileResult
	for i := range results {
		if results[i].ModuleName == "raylib" {
			raylibResult = &results[i]
		}
	}
	if raylibResult == nil {
		t.Fatalf("expected a raylib result, got %+v", results)
	}
	if !raylibResult.Native {
		t.Errorf("expected raylib to be marked Native")
	}
	if raylibResult.CPath != "" {
		t.Errorf("expected no generated .c for a native vendor module, got %q", raylibResult.CPath)
	}
	if raylibResult.Vendor == nil || len(raylibResult.Vendor.LinkFlags) == 0 {
		t.Errorf("expected raylib's vendor metadata (with link flags) to be carried on the result")
	}

	for i := range results {
		if results[i].ModuleName != "main" {
			continue
		}
		mainBody, err := os.ReadFile(results[i].CPath)
		if err != nil {
			t.Fatalf("expected generated main.c: %v", err)
		}
		if !strings.Contains(string(mainBody), "#include \"raylib.h\"") {
			t.Errorf("main.c must include the native module's vendor headers:\n%s", mainBody)
		}
	}

	info := pipeline.CollectVendorBuildInfo(results)
	if !contains(info.LinkFlags, "-lraylib") {
		t.Errorf("expected -lraylib in collected link flags, got %+v", info.LinkFlags)
	}
	if !contains(info.Headers, "raylib.h") {
		t.Errorf("expected raylib.h in collected headers, got %+v", info.Headers)
	}
	if len(info.IncludeDirs) == 0 || len(info.LibDirs) == 0 {
		t.Errorf("expected include/lib dirs in collected vendor info, got %+v", info)
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
