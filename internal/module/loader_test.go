package module_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/module"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Join(wd, "..", "..")
}

func writeModule(t *testing.T, dir, name, src string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadStdlibModule(t *testing.T) {
	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	sym, err := loader.Load([]string{"mathlib"}, []string{filepath.Join(root, "stdlib")})
	if err != nil {
		t.Fatalf("unexpected error loading mathlib: %v", err)
	}
	if sym.Exports["add"] != "function" {
		t.Fatalf("expected mathlib.add to be exported as a function, got %+v", sym.Exports)
	}
	if sym.Exports["PI"] != "float" {
		t.Fatalf("expected mathlib.PI to be exported as float, got %+v", sym.Exports)
	}
}

func TestLoadCachesModule(t *testing.T) {
	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	searchPaths := []string{filepath.Join(root, "stdlib")}
	first, err := loader.Load([]string{"mathlib"}, searchPaths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := loader.Load([]string{"mathlib"}, searchPaths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same cached *Symbol on a second Load")
	}
}

func TestLoadVendorNativeModuleSkipsCodegenButKeepsExports(t *testing.T) {
	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	sym, err := loader.Load([]string{"raylib"}, []string{filepath.Join(root, "vendor")})
	if err != nil {
		t.Fatalf("unexpected error loading raylib: %v", err)
	}
	if !sym.NativeBinding {
		t.Fatalf("expected raylib to be marked as a native binding")
	}
	if sym.Vendor == nil || len(sym.Vendor.LinkFlags) == 0 {
		t.Fatalf("expected vendor metadata with link flags, got %+v", sym.Vendor)
	}
	if sym.Exports["init_window"] != "function" {
		t.Fatalf("expected init_window to remain exported for type checking")
	}
}

func TestLoadVendorJSONMetadataFallback(t *testing.T) {
	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	sym, err := loader.Load([]string{"sqlite"}, []string{filepath.Join(root, "vendor")})
	if err != nil {
		t.Fatalf("unexpected error loading sqlite: %v", err)
	}
	if sym.Vendor == nil || len(sym.Vendor.LinkFlags) == 0 || sym.Vendor.LinkFlags[0] != "-lsqlite3" {
		t.Fatalf("expected metadata.json to populate link flags, got %+v", sym.Vendor)
	}
}

func TestLoadModuleNotFoundListsTriedPaths(t *testing.T) {
	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	_, err := loader.Load([]string{"does", "not", "exist"}, []string{filepath.Join(root, "stdlib")})
	if err == nil {
		t.Fatalf("expected a module-not-found error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestExtraSearchPathsResolveImports(t *testing.T) {
	libDir := t.TempDir()
	writeModule(t, libDir, "util.pb", "def helper() -> int:\n    return 7\n")
	srcDir := t.TempDir()
	entry := writeModule(t, srcDir, "main.pb", strings.Join([]string{
		"import util",
		"",
		"def main() -> int:",
		"    print(util.helper())",
		"    return 0",
		"",
	}, "\n"))

	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"), libDir)
	sym, err := loader.LoadEntry(entry)
	if err != nil {
		t.Fatalf("expected util to resolve via the extra search path: %v", err)
	}
	if len(sym.Imports) != 1 || sym.Imports[0].Alias != "util" || !sym.Imports[0].IsModuleAlias {
		t.Fatalf("unexpected resolved imports %+v", sym.Imports)
	}
}

func TestMalformedVendorMetadataIsError(t *testing.T) {
	vendorRoot := t.TempDir()
	dir := filepath.Join(vendorRoot, "badlib")
	writeModule(t, dir, "badlib.pb", "def f() -> int:\n    return 1\n")
	if err := os.WriteFile(filepath.Join(dir, "metadata.toml"), []byte("native = \"not-a-bool\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := module.New(filepath.Join(repoRoot(t), "stdlib"), vendorRoot)
	_, err := loader.Load([]string{"badlib"}, []string{vendorRoot})
	if err == nil {
		t.Fatalf("expected a malformed-metadata error")
	}
	rep, ok := errorsx.AsReport(err)
	if !ok || rep.Code != errorsx.LDR003 {
		t.Fatalf("expected LDR003, got %v", err)
	}
}

func TestImportCycleBreaksViaStub(t *testing.T) {
	tmp := t.TempDir()
	writeModule(t, tmp, "a.pb", "import b\n\ndef from_a() -> int:\n    return 1\n")
	writeModule(t, tmp, "b.pb", "import a\n\ndef from_b() -> int:\n    return 2\n")

	root := repoRoot(t)
	loader := module.New(filepath.Join(root, "stdlib"), filepath.Join(root, "vendor"))
	sym, err := loader.Load([]string{"a"}, []string{tmp})
	if err != nil {
		t.Fatalf("expected cyclic import to resolve via stub, got error: %v", err)
	}
	if sym.Exports["from_a"] != "function" {
		t.Fatalf("expected module a's own export to survive the cycle, got %+v", sym.Exports)
	}
}
